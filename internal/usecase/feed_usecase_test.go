package usecase

import (
	"context"
	"testing"

	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedSnapshotEmptyLedger(t *testing.T) {
	f := newEngineFixture(t)

	snapshot, err := f.feed.Snapshot(context.Background(), entity.QueueStandard, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(7), snapshot.ClinicID)
	assert.Empty(t, snapshot.Days)
	assert.NotEmpty(t, snapshot.Hash)
}

func TestFeedHashChangesWithContent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	before, err := f.feed.ReadLive(ctx, entity.QueueStandard, 7)
	require.NoError(t, err)

	_, err = f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, "2025-03-01"))
	require.NoError(t, err)

	after, err := f.feed.ReadLive(ctx, entity.QueueStandard, 7)
	require.NoError(t, err)
	assert.NotEqual(t, before.Hash, after.Hash)

	// Identical content hashes identical.
	again, err := f.feed.ReadLive(ctx, entity.QueueStandard, 7)
	require.NoError(t, err)
	assert.Equal(t, after.Hash, again.Hash)
}

func TestFeedScrubsInternalFields(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	secretaryID := uint(42)
	_, err := f.allocation.Book(ctx, entity.QueuePriority, &dto.BookRequest{
		ClinicID:    7,
		PatientID:   512,
		Name:        "Priority Case",
		Phone:       "0100000000",
		Source:      "secretary",
		Date:        "2025-03-01",
		SecretaryID: &secretaryID,
	})
	require.NoError(t, err)

	snapshot, err := f.feed.ReadLive(ctx, entity.QueuePriority, 7)
	require.NoError(t, err)
	entries := snapshot.Days["2025-03-01"].Entries
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Code)
	assert.Nil(t, entries[0].SecretaryID)
}

func TestFeedSnapshotServedFromCacheUntilInvalidated(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, "2025-03-01"))
	require.NoError(t, err)

	first, err := f.feed.Snapshot(ctx, entity.QueueStandard, 7, map[string]string{"clinic_id": "7"})
	require.NoError(t, err)
	require.Equal(t, 1, f.readCache.Len())

	// A write through the engine invalidates the clinic's feed prefix, so
	// the next snapshot reflects the new booking.
	_, err = f.allocation.Book(ctx, entity.QueueStandard, patientBook(2, "2025-03-01"))
	require.NoError(t, err)
	require.Equal(t, 0, f.readCache.Len())

	second, err := f.feed.Snapshot(ctx, entity.QueueStandard, 7, map[string]string{"clinic_id": "7"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, second.Hash)
	assert.Len(t, second.Days["2025-03-01"].Entries, 2)
}

func TestFeedCacheIsScopedPerKindAndClinic(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, "2025-03-01"))
	require.NoError(t, err)

	_, err = f.feed.Snapshot(ctx, entity.QueueStandard, 7, nil)
	require.NoError(t, err)
	_, err = f.feed.Snapshot(ctx, entity.QueuePriority, 7, nil)
	require.NoError(t, err)
	require.Equal(t, 2, f.readCache.Len())

	// A standard-queue write leaves the priority entry cached.
	_, err = f.allocation.Book(ctx, entity.QueueStandard, patientBook(2, "2025-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.readCache.Len())
}
