package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/repository/sqlite"
	"github.com/mamadbah2/sheepfold/internal/service/feeding"
	"github.com/mamadbah2/sheepfold/internal/service/reporting"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

const helpMessage = "Commands:\n/pens - list pens and occupancy\n/ration <pen id> - today's feeding plan of a pen"

// Dispatcher executes parsed commands against the farm owner's data.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	tenants  reporting.TenantRunner
	ownerID  string
	defaults models.FarmDefaults
	logger   *zap.Logger
	now      func() time.Time
}

// NewService constructs a command dispatcher serving the tenant of ownerID.
func NewService(tenants reporting.TenantRunner, ownerID string, defaults models.FarmDefaults, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tenants:  tenants,
		ownerID:  ownerID,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleCommand runs the command and returns the reply text.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandRation:
		penID, err := parsePenID(cmd.Args)
		if err != nil {
			return "", err
		}
		return s.ration(ctx, penID)
	case models.CommandPens:
		return s.pens(ctx)
	case models.CommandHelp, models.CommandUnknown:
		return helpMessage, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) ration(ctx context.Context, penID int64) (string, error) {
	var plan models.FeedCalculation
	err := s.tenants.WithTenant(ctx, s.ownerID, func(t *sqlite.Tenant) error {
		calc := feeding.NewCalculator(t.Farm(), s.defaults, s.logger.Named("calculator"))
		var err error
		plan, err = calc.Compute(ctx, penID, s.now())
		return err
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(reporting.FormatPenPlan(plan)), nil
}

func (s *Service) pens(ctx context.Context) (string, error) {
	var pens []models.Pen
	err := s.tenants.WithTenant(ctx, s.ownerID, func(t *sqlite.Tenant) error {
		var err error
		pens, err = t.Farm().ListPens(ctx)
		return err
	})
	if err != nil {
		return "", err
	}

	if len(pens) == 0 {
		return "No pens configured yet.", nil
	}

	lines := make([]string, 0, len(pens))
	for _, pen := range pens {
		line := fmt.Sprintf("#%d %s: %d/%d sheep, %d meals/day", pen.ID, pen.Name, pen.SheepCount, pen.Capacity, pen.MealsPerDay)
		if pen.OverCapacity() {
			line += " (over capacity)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func parsePenID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, ErrInvalidArguments
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidArguments
	}
	return id, nil
}
