package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/internal/domain/entity"
	"clinic-backoffice/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseTableArchivesAndRemovesDay(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, "2025-03-01"))
	require.NoError(t, err)
	second, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(2, "2025-03-01"))
	require.NoError(t, err)
	_, err = f.cancellation.SetStatus(ctx, entity.QueueStandard, &dto.EditStatusRequest{
		ClinicID:  7,
		BookingID: second.Booking.BookingID,
		Status:    "served",
	})
	require.NoError(t, err)

	resp, err := f.archival.CloseTable(ctx, entity.QueueStandard, &dto.CloseTableRequest{
		ClinicID: 7,
		Date:     "2025-03-01",
	})
	require.NoError(t, err)

	// Aggregates count statuses as they stood at closing time; the forced
	// cancellations are visible only in the frozen entries.
	assert.Equal(t, 1, resp.CapacityServed)
	assert.Equal(t, 0, resp.CapacityCancelled)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "cancelled", resp.Entries[0].Status)
	require.NotNil(t, resp.Entries[0].Token)
	assert.Equal(t, 1, *resp.Entries[0].Token)
	assert.Equal(t, "served", resp.Entries[1].Status)

	// Closing the only day removes the ledger row entirely.
	ledger, err := f.ledgers.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)
	assert.Nil(t, ledger)
}

func TestCloseTableConflictNeedsForce(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, "2025-03-01"))
	require.NoError(t, err)
	_, err = f.archival.CloseTable(ctx, entity.QueueStandard, &dto.CloseTableRequest{ClinicID: 7, Date: "2025-03-01"})
	require.NoError(t, err)

	// Recreate the date and close it again: the archive slot is taken.
	_, err = f.allocation.Book(ctx, entity.QueueStandard, patientBook(2, "2025-03-01"))
	require.NoError(t, err)
	_, err = f.archival.CloseTable(ctx, entity.QueueStandard, &dto.CloseTableRequest{ClinicID: 7, Date: "2025-03-01"})
	require.ErrorIs(t, err, ErrDayAlreadyClosed)

	resp, err := f.archival.CloseTable(ctx, entity.QueueStandard, &dto.CloseTableRequest{ClinicID: 7, Date: "2025-03-01", Force: true})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, uint(2), resp.Entries[0].PatientID)
}

func TestCloseTableMissingDay(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.archival.CloseTable(ctx, entity.QueueStandard, &dto.CloseTableRequest{ClinicID: 7, Date: "2025-03-01"})
	require.ErrorIs(t, err, ErrLedgerNotFound)

	_, err = f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, "2025-03-01"))
	require.NoError(t, err)
	_, err = f.archival.CloseTable(ctx, entity.QueueStandard, &dto.CloseTableRequest{ClinicID: 7, Date: "2025-03-02"})
	require.ErrorIs(t, err, ErrDayNotFound)
}

func TestSaveSnapshotLeavesLedgerUntouched(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, "2025-03-01"))
	require.NoError(t, err)

	resp, err := f.archival.SaveSnapshot(ctx, entity.QueueStandard, &dto.SaveSnapshotRequest{ClinicID: 7, Date: "2025-03-01"})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	// A snapshot never force-cancels.
	assert.Equal(t, "booked", resp.Entries[0].Status)

	ledger, err := f.ledgers.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.Contains(t, ledger.Days, "2025-03-01")

	// Booking again and re-snapshotting overwrites the record in place.
	_, err = f.allocation.Book(ctx, entity.QueueStandard, patientBook(2, "2025-03-01"))
	require.NoError(t, err)
	resp, err = f.archival.SaveSnapshot(ctx, entity.QueueStandard, &dto.SaveSnapshotRequest{ClinicID: 7, Date: "2025-03-01"})
	require.NoError(t, err)
	assert.Len(t, resp.Entries, 2)

	list, err := f.archival.ListArchives(ctx, entity.QueueStandard, 7, archiveFilter())
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
}

func TestListArchivesFiltersByDateRange(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	for _, date := range []string{"2025-02-26", "2025-02-27", "2025-03-01"} {
		_, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, date))
		require.NoError(t, err)
		_, err = f.archival.SaveSnapshot(ctx, entity.QueueStandard, &dto.SaveSnapshotRequest{ClinicID: 7, Date: date})
		require.NoError(t, err)
	}

	filter := archiveFilter()
	filter.FromDate = "2025-02-27"
	filter.ToDate = "2025-02-28"
	list, err := f.archival.ListArchives(ctx, entity.QueueStandard, 7, filter)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "2025-02-27", list.Archives[0].Date)

	filter = archiveFilter()
	filter.Limit = 2
	list, err = f.archival.ListArchives(ctx, entity.QueueStandard, 7, filter)
	require.NoError(t, err)
	require.Equal(t, 2, list.Total)
	// Newest first.
	assert.Equal(t, "2025-03-01", list.Archives[0].Date)
	assert.Equal(t, "2025-02-27", list.Archives[1].Date)
}

func TestDailySweepArchivesPastDaysUntouched(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// Yesterday, today and tomorrow, all with one active booking.
	for _, date := range []string{"2025-02-28", "2025-03-01", "2025-03-02"} {
		_, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, date))
		require.NoError(t, err)
	}

	swept, err := f.archival.DailySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	ledger, err := f.ledgers.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.NotContains(t, ledger.Days, "2025-02-28")
	assert.Contains(t, ledger.Days, "2025-03-01")
	assert.Contains(t, ledger.Days, "2025-03-02")

	// The sweep freezes statuses as they are: no forced cancellation.
	list, err := f.archival.ListArchives(ctx, entity.QueueStandard, 7, archiveFilter())
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "2025-02-28", list.Archives[0].Date)
	require.Len(t, list.Archives[0].Entries, 1)
	assert.Equal(t, "booked", list.Archives[0].Entries[0].Status)

	// Running again finds nothing left to move.
	swept, err = f.archival.DailySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestDailySweepFirstWriteWins(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, "2025-02-28"))
	require.NoError(t, err)
	_, err = f.archival.SaveSnapshot(ctx, entity.QueueStandard, &dto.SaveSnapshotRequest{ClinicID: 7, Date: "2025-02-28"})
	require.NoError(t, err)

	// A second booking after the snapshot is absent from the archive, and
	// the sweep must not overwrite the manually saved record.
	_, err = f.allocation.Book(ctx, entity.QueueStandard, patientBook(2, "2025-02-28"))
	require.NoError(t, err)

	swept, err := f.archival.DailySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	list, err := f.archival.ListArchives(ctx, entity.QueueStandard, 7, archiveFilter())
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Len(t, list.Archives[0].Entries, 1)
}

func TestDailySweepLeavesUnparseableDayKeys(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	ledger := entity.NewClinicLedger(7, entity.QueueStandard)
	ledger.Days["garbage"] = entity.NewDaySlotTable(entity.SourceSecretary, 2)
	ledger.Days["2025-02-28"] = entity.NewDaySlotTable(entity.SourceSecretary, 2)
	require.NoError(t, f.ledgers.Save(ctx, ledger))

	swept, err := f.archival.DailySweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	ledger, err = f.ledgers.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.Contains(t, ledger.Days, "garbage")
	assert.NotContains(t, ledger.Days, "2025-02-28")
}

func TestArchiveRecordRoundTrip(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	booked, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, "2025-02-28"))
	require.NoError(t, err)
	_, err = f.archival.SaveSnapshot(ctx, entity.QueueStandard, &dto.SaveSnapshotRequest{ClinicID: 7, Date: "2025-02-28"})
	require.NoError(t, err)

	records, err := f.archives.FindByClinic(ctx, 7, entity.QueueStandard, archiveFilter())
	require.NoError(t, err)
	require.Len(t, records, 1)

	var entries []entity.BookingEntry
	require.NoError(t, json.Unmarshal(records[0].Entries, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, booked.Booking.BookingID, entries[0].BookingID)
}

// The full lifecycle on one clinic: explicit and automatic booking, a
// cancellation with renumbering, then closing the day.
func TestLedgerLifecycle(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	alice, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(1, ""))
	require.NoError(t, err)
	bob, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(2, ""))
	require.NoError(t, err)
	require.Equal(t, "2025-03-01", alice.Date)
	require.Equal(t, "2025-03-01", bob.Date)
	require.Equal(t, 1, *alice.Booking.Token)
	require.Equal(t, 2, *bob.Booking.Token)

	// The day is full, so the next patient rolls to Sunday.
	carol, err := f.allocation.Book(ctx, entity.QueueStandard, patientBook(3, ""))
	require.NoError(t, err)
	require.Equal(t, "2025-03-02", carol.Date)
	require.Equal(t, 1, *carol.Booking.Token)

	// Alice cancels; Bob closes up to token 1 with a renumbered id.
	_, err = f.cancellation.SetStatus(ctx, entity.QueueStandard, &dto.EditStatusRequest{
		ClinicID:  7,
		BookingID: alice.Booking.BookingID,
		Status:    "cancelled",
	})
	require.NoError(t, err)

	snapshot, err := f.feed.ReadLive(ctx, entity.QueueStandard, 7)
	require.NoError(t, err)
	saturday := snapshot.Days["2025-03-01"]
	require.Len(t, saturday.Entries, 2)
	assert.Nil(t, saturday.Entries[0].Token)
	require.NotNil(t, saturday.Entries[1].Token)
	assert.Equal(t, 1, *saturday.Entries[1].Token)
	assert.Equal(t, "B-7-20250301-0001", saturday.Entries[1].BookingID)

	// Close Saturday: Bob was never served, so the frozen record cancels
	// him while the aggregate still says one cancellation (Alice).
	closed, err := f.archival.CloseTable(ctx, entity.QueueStandard, &dto.CloseTableRequest{ClinicID: 7, Date: "2025-03-01"})
	require.NoError(t, err)
	assert.Equal(t, 0, closed.CapacityServed)
	assert.Equal(t, 1, closed.CapacityCancelled)
	require.Len(t, closed.Entries, 2)
	assert.Equal(t, "cancelled", closed.Entries[1].Status)
	require.NotNil(t, closed.Entries[1].Token)
	assert.Equal(t, 1, *closed.Entries[1].Token)

	// Sunday survives.
	ledger, err := f.ledgers.Load(ctx, 7, entity.QueueStandard)
	require.NoError(t, err)
	require.NotNil(t, ledger)
	assert.NotContains(t, ledger.Days, "2025-03-01")
	assert.Contains(t, ledger.Days, "2025-03-02")
}

func archiveFilter() repository.ArchiveFilter {
	return repository.ArchiveFilter{}
}
