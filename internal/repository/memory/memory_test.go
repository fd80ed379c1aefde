package memory

import (
	"context"
	"testing"

	"clinic-backoffice/internal/domain/entity"
	"clinic-backoffice/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerSaveVersionSemantics(t *testing.T) {
	repo := NewLedgerRepository()
	ctx := context.Background()

	ledger := entity.NewClinicLedger(7, entity.QueueStandard)
	ledger.Days["2025-03-01"] = entity.NewDaySlotTable(entity.SourceSecretary, 2)
	require.NoError(t, repo.Save(ctx, ledger))
	assert.Equal(t, int64(1), ledger.Version)

	// A second zero-version create against the same key loses.
	fresh := entity.NewClinicLedger(7, entity.QueueStandard)
	require.ErrorIs(t, repo.Save(ctx, fresh), repository.ErrVersionConflict)

	// Two readers, one commit: the second writer's version is stale.
	a, err := repo.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)
	b, err := repo.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)

	a.Days["2025-03-02"] = entity.NewDaySlotTable(entity.SourceSecretary, 2)
	require.NoError(t, repo.Save(ctx, a))
	require.ErrorIs(t, repo.Save(ctx, b), repository.ErrVersionConflict)
}

func TestLedgerLoadCopiesState(t *testing.T) {
	repo := NewLedgerRepository()
	ctx := context.Background()

	ledger := entity.NewClinicLedger(7, entity.QueueStandard)
	ledger.Days["2025-03-01"] = entity.NewDaySlotTable(entity.SourceSecretary, 2)
	require.NoError(t, repo.Save(ctx, ledger))

	loaded, err := repo.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)
	loaded.Days["2025-03-01"].CapacityTotal = 99

	again, err := repo.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Days["2025-03-01"].CapacityTotal)
}

func TestLedgerDeleteAndLoadAll(t *testing.T) {
	repo := NewLedgerRepository()
	ctx := context.Background()

	for _, kind := range []entity.QueueKind{entity.QueueStandard, entity.QueuePriority} {
		ledger := entity.NewClinicLedger(7, kind)
		require.NoError(t, repo.Save(ctx, ledger))
	}

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, 7, entity.QueueStandard))
	all, err = repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, entity.QueuePriority, all[0].Kind)

	gone, err := repo.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
