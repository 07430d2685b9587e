package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

const penColumns = `p.id, p.name, p.capacity, p.meals_per_day, p.created_at,
	(SELECT COUNT(*) FROM sheep s WHERE s.pen_id = p.id AND s.status = 'alive')`

const sheepColumns = `s.id, s.gender, s.birth_date, s.stage, s.derived_stage, s.status, s.pen_id, s.created_at,
	EXISTS (SELECT 1 FROM pregnancies g WHERE g.sheep_id = s.id AND g.delivered_at IS NULL)`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreatePen inserts a pen and returns it with its id.
func (r *FarmRepository) CreatePen(ctx context.Context, name string, capacity, mealsPerDay int) (models.Pen, error) {
	createdAt := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO pens(name, capacity, meals_per_day, created_at) VALUES(?, ?, ?, ?)`,
		name, capacity, mealsPerDay, createdAt.Format(time.RFC3339))
	if err != nil {
		return models.Pen{}, fmt.Errorf("insert pen %s: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Pen{}, fmt.Errorf("pen id: %w", err)
	}
	return models.Pen{
		ID:          id,
		Name:        name,
		Capacity:    capacity,
		MealsPerDay: mealsPerDay,
		CreatedAt:   createdAt.Truncate(time.Second),
	}, nil
}

// GetPen loads a pen with its live sheep count.
func (r *FarmRepository) GetPen(ctx context.Context, id int64) (models.Pen, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+penColumns+` FROM pens p WHERE p.id = ?`, id)
	pen, err := scanPen(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Pen{}, &models.NotFoundError{Entity: "pen", ID: strconv.FormatInt(id, 10)}
	}
	return pen, err
}

// ListPens returns every pen ordered by id.
func (r *FarmRepository) ListPens(ctx context.Context) ([]models.Pen, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+penColumns+` FROM pens p ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("select pens: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pens []models.Pen
	for rows.Next() {
		pen, err := scanPen(rows)
		if err != nil {
			return nil, err
		}
		pens = append(pens, pen)
	}
	return pens, rows.Err()
}

// UpdatePen rewrites the name, capacity and meal count of a pen.
// Meal plans beyond a reduced meal count are kept.
func (r *FarmRepository) UpdatePen(ctx context.Context, pen models.Pen) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pens SET name = ?, capacity = ?, meals_per_day = ? WHERE id = ?`,
		pen.Name, pen.Capacity, pen.MealsPerDay, pen.ID)
	if err != nil {
		return fmt.Errorf("update pen %d: %w", pen.ID, err)
	}
	return expectAffected(res, "pen", strconv.FormatInt(pen.ID, 10))
}

func scanPen(row rowScanner) (models.Pen, error) {
	var (
		pen       models.Pen
		createdAt string
	)
	if err := row.Scan(&pen.ID, &pen.Name, &pen.Capacity, &pen.MealsPerDay, &createdAt, &pen.SheepCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Pen{}, err
		}
		return models.Pen{}, fmt.Errorf("scan pen: %w", err)
	}
	pen.CreatedAt = parseTimestamp(createdAt)
	return pen, nil
}

// CreateSheep inserts a sheep. A taken id yields a ValidationError on "id".
func (r *FarmRepository) CreateSheep(ctx context.Context, sheep models.Sheep) (models.Sheep, error) {
	createdAt := r.now().UTC().Truncate(time.Second)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sheep(id, gender, birth_date, stage, status, pen_id, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		sheep.ID, string(sheep.Gender), formatDate(sheep.BirthDate), nullString(string(sheep.Stage)),
		string(sheep.Status), nullInt64(sheep.PenID), createdAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Sheep{}, &models.ValidationError{Field: "id", Message: fmt.Sprintf("sheep %s already exists", sheep.ID)}
		}
		return models.Sheep{}, fmt.Errorf("insert sheep %s: %w", sheep.ID, err)
	}

	sheep.CreatedAt = createdAt
	return sheep, nil
}

// GetSheep loads one sheep.
func (r *FarmRepository) GetSheep(ctx context.Context, id string) (models.Sheep, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sheepColumns+` FROM sheep s WHERE s.id = ?`, id)
	sheep, err := scanSheep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sheep{}, &models.NotFoundError{Entity: "sheep", ID: id}
	}
	return sheep, err
}

// ListSheep returns the flock, optionally restricted to one pen.
func (r *FarmRepository) ListSheep(ctx context.Context, penID *int64) ([]models.Sheep, error) {
	query := `SELECT ` + sheepColumns + ` FROM sheep s`
	var args []any
	if penID != nil {
		query += ` WHERE s.pen_id = ?`
		args = append(args, *penID)
	}
	query += ` ORDER BY s.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select sheep: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var flock []models.Sheep
	for rows.Next() {
		sheep, err := scanSheep(rows)
		if err != nil {
			return nil, err
		}
		flock = append(flock, sheep)
	}
	return flock, rows.Err()
}

// ListPenSheep returns the roster of a pen, all statuses included.
func (r *FarmRepository) ListPenSheep(ctx context.Context, penID int64) ([]models.Sheep, error) {
	return r.ListSheep(ctx, &penID)
}

// UpdateSheep rewrites the mutable fields of a sheep.
func (r *FarmRepository) UpdateSheep(ctx context.Context, sheep models.Sheep) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sheep SET gender = ?, birth_date = ?, stage = ?, status = ?, pen_id = ? WHERE id = ?`,
		string(sheep.Gender), formatDate(sheep.BirthDate), nullString(string(sheep.Stage)),
		string(sheep.Status), nullInt64(sheep.PenID), sheep.ID)
	if err != nil {
		return fmt.Errorf("update sheep %s: %w", sheep.ID, err)
	}
	return expectAffected(res, "sheep", sheep.ID)
}

// RefreshDerivedStages stores the age-derived stage of every sheep that has a
// birth date, and returns how many rows changed. The column is read back for
// listings only; calculations derive the stage at their own date.
func (r *FarmRepository) RefreshDerivedStages(ctx context.Context, asOf time.Time) (int, error) {
	flock, err := r.ListSheep(ctx, nil)
	if err != nil {
		return 0, err
	}

	changed := 0
	err = r.inTx(ctx, func(tx *sql.Tx) error {
		for _, sheep := range flock {
			if sheep.BirthDate == nil {
				continue
			}
			derived := models.DeriveStage(sheep.Gender, *sheep.BirthDate, asOf)
			if derived == sheep.DerivedStage {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE sheep SET derived_stage = ? WHERE id = ?`, string(derived), sheep.ID); err != nil {
				return fmt.Errorf("update derived stage %s: %w", sheep.ID, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

func scanSheep(row rowScanner) (models.Sheep, error) {
	var (
		sheep                   models.Sheep
		gender, status, created string
		birth, stage, derived   sql.NullString
		penID                   sql.NullInt64
	)
	if err := row.Scan(&sheep.ID, &gender, &birth, &stage, &derived, &status, &penID, &created, &sheep.Pregnant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Sheep{}, err
		}
		return models.Sheep{}, fmt.Errorf("scan sheep: %w", err)
	}

	birthDate, err := parseDate(birth)
	if err != nil {
		return models.Sheep{}, err
	}
	sheep.Gender = models.Gender(gender)
	sheep.Status = models.Status(status)
	sheep.BirthDate = birthDate
	sheep.Stage = models.Stage(stage.String)
	sheep.DerivedStage = models.Stage(derived.String)
	sheep.CreatedAt = parseTimestamp(created)
	if penID.Valid {
		id := penID.Int64
		sheep.PenID = &id
	}
	return sheep, nil
}

// CreatePregnancy records a gestation for a ewe.
func (r *FarmRepository) CreatePregnancy(ctx context.Context, p models.Pregnancy) (models.Pregnancy, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO pregnancies(sheep_id, mating_date, expected_date, notes) VALUES(?, ?, ?, ?)`,
		p.SheepID, p.MatingDate.Format(dateLayout), formatDate(p.ExpectedDate), nullString(p.Notes))
	if err != nil {
		return models.Pregnancy{}, fmt.Errorf("insert pregnancy for %s: %w", p.SheepID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Pregnancy{}, fmt.Errorf("pregnancy id: %w", err)
	}
	p.ID = id
	return p, nil
}

// MarkDelivered closes a pregnancy.
func (r *FarmRepository) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pregnancies SET delivered_at = ? WHERE id = ? AND delivered_at IS NULL`,
		at.Format(dateLayout), id)
	if err != nil {
		return fmt.Errorf("update pregnancy %d: %w", id, err)
	}
	return expectAffected(res, "active pregnancy", strconv.FormatInt(id, 10))
}

func expectAffected(res sql.Result, entity, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return &models.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
