package feeding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
	"github.com/mamadbah2/sheepfold/internal/repository/sqlite"
)

// newFarm provisions a throwaway tenant and returns its repository.
func newFarm(t *testing.T) *sqlite.FarmRepository {
	t.Helper()

	ctx := context.Background()
	p, err := sqlite.NewProvisioner(t.TempDir(), models.DefaultFarmDefaults(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	_, err = p.Provision(ctx, "owner")
	require.NoError(t, err)

	tenant, err := p.Open(ctx, "owner")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tenant.Close() })

	return tenant.Farm()
}

func addSheep(t *testing.T, repo *sqlite.FarmRepository, penID int64, prefix string, n int, stage models.Stage) {
	t.Helper()

	for i := 0; i < n; i++ {
		_, err := repo.CreateSheep(context.Background(), models.Sheep{
			ID:     prefix + "-" + string(rune('a'+i)),
			Gender: models.GenderFemale,
			Stage:  stage,
			Status: models.StatusAlive,
			PenID:  &penID,
		})
		require.NoError(t, err)
	}
}

func feedTypeID(t *testing.T, repo *sqlite.FarmRepository, name string) int64 {
	t.Helper()

	types, err := repo.ListFeedTypes(context.Background())
	require.NoError(t, err)
	for _, ft := range types {
		if ft.Name == name {
			return ft.ID
		}
	}
	t.Fatalf("feed type %s not seeded", name)
	return 0
}
