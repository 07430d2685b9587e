package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/sheepfold/internal/config"
	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/repository/sqlite"
)

type stubPublisher struct {
	users []string
	err   error
}

func (p *stubPublisher) PublishFeedReport(_ context.Context, userID string) (models.FeedReport, error) {
	p.users = append(p.users, userID)
	if p.err != nil {
		return models.FeedReport{}, p.err
	}
	return models.FeedReport{UserID: userID, Summary: "Feeding plan 2025-06-01"}, nil
}

type stubMessaging struct {
	sent []models.OutboundMessageRequest
}

func (m *stubMessaging) VerifyWebhookToken(_, _, challenge string) (string, error) {
	return challenge, nil
}

func (m *stubMessaging) HandleWebhook(context.Context, models.WebhookPayload) error { return nil }

func (m *stubMessaging) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	m.sent = append(m.sent, req)
	return nil
}

func reportingConfig(owner string) config.ReportingConfig {
	return config.ReportingConfig{
		CronSchedule:     "0 6 * * *",
		StageRefreshCron: "30 0 * * *",
		Timezone:         "UTC",
		FarmOwnerID:      owner,
	}
}

func TestNewScheduler_BadTimezone(t *testing.T) {
	cfg := reportingConfig("owner")
	cfg.Timezone = "Nowhere/Land"
	_, err := NewScheduler(cfg, "", nil, &stubPublisher{}, nil, nil)
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(reportingConfig(""), "", nil, &stubPublisher{}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()

	bad := reportingConfig("owner")
	bad.CronSchedule = "every morning"
	s, err = NewScheduler(bad, "", nil, &stubPublisher{}, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestScheduler_RefreshStages(t *testing.T) {
	ctx := context.Background()
	p, err := sqlite.NewProvisioner(t.TempDir(), models.DefaultFarmDefaults(), nil)
	require.NoError(t, err)
	defer p.Close()

	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, owner := range []string{"a", "b"} {
		_, err := p.Provision(ctx, owner)
		require.NoError(t, err)

		birth := asOf.AddDate(0, 0, -100)
		err = p.WithTenant(ctx, owner, func(tenant *sqlite.Tenant) error {
			_, err := tenant.Farm().CreateSheep(ctx, models.Sheep{ID: "s1", Gender: models.GenderMale, BirthDate: &birth, Status: models.StatusAlive})
			return err
		})
		require.NoError(t, err)
	}

	s, err := NewScheduler(reportingConfig(""), "", p, &stubPublisher{}, nil, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return asOf }

	changed, err := s.RefreshStages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	err = p.WithTenant(ctx, "b", func(tenant *sqlite.Tenant) error {
		sheep, err := tenant.Farm().GetSheep(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, models.StageYoungMale, sheep.DerivedStage)
		return nil
	})
	require.NoError(t, err)

	changed, err = s.RefreshStages(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestScheduler_SendDailyReport(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and notifies the manager", func(t *testing.T) {
		publisher := &stubPublisher{}
		messaging := &stubMessaging{}
		s, err := NewScheduler(reportingConfig("owner"), "224622222222", nil, publisher, messaging, nil)
		require.NoError(t, err)

		require.NoError(t, s.SendDailyReport(ctx))
		assert.Equal(t, []string{"owner"}, publisher.users)
		require.Len(t, messaging.sent, 1)
		assert.Equal(t, "224622222222", messaging.sent[0].To)
		assert.Equal(t, "Feeding plan 2025-06-01", messaging.sent[0].Message)
	})

	t.Run("without messaging", func(t *testing.T) {
		s, err := NewScheduler(reportingConfig("owner"), "", nil, &stubPublisher{}, nil, nil)
		require.NoError(t, err)
		assert.NoError(t, s.SendDailyReport(ctx))
	})

	t.Run("publish failure", func(t *testing.T) {
		messaging := &stubMessaging{}
		s, err := NewScheduler(reportingConfig("owner"), "224622222222", nil, &stubPublisher{err: errors.New("boom")}, messaging, nil)
		require.NoError(t, err)
		assert.Error(t, s.SendDailyReport(ctx))
		assert.Empty(t, messaging.sent)
	})
}
