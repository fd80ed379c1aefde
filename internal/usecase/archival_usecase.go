package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clinic-backoffice/internal/converter"
	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/internal/domain/entity"
	"clinic-backoffice/internal/domain/repository"
	"clinic-backoffice/internal/service"
	"clinic-backoffice/pkg/cache"

	"github.com/sirupsen/logrus"
)

var ErrDayAlreadyClosed = errors.New("day has already been closed and archived")

type ArchivalUsecase interface {
	CloseTable(ctx context.Context, kind entity.QueueKind, req *dto.CloseTableRequest) (*dto.ArchiveResponse, error)
	SaveSnapshot(ctx context.Context, kind entity.QueueKind, req *dto.SaveSnapshotRequest) (*dto.ArchiveResponse, error)
	ListArchives(ctx context.Context, kind entity.QueueKind, clinicID uint, filter repository.ArchiveFilter) (*dto.ArchiveListResponse, error)
	DailySweep(ctx context.Context) (int, error)
}

type archivalUsecase struct {
	log         *logrus.Logger
	ledgerRepo  repository.LedgerRepository
	archiveRepo repository.ArchiveRepository
	clinicRepo  repository.ClinicRepository
	calendar    *service.WorkingCalendar
	readCache   cache.Cache
	guard       *LedgerGuard
}

func NewArchivalUsecase(
	log *logrus.Logger,
	ledgerRepo repository.LedgerRepository,
	archiveRepo repository.ArchiveRepository,
	clinicRepo repository.ClinicRepository,
	calendar *service.WorkingCalendar,
	readCache cache.Cache,
	guard *LedgerGuard,
) ArchivalUsecase {
	return &archivalUsecase{
		log:         log,
		ledgerRepo:  ledgerRepo,
		archiveRepo: archiveRepo,
		clinicRepo:  clinicRepo,
		calendar:    calendar,
		readCache:   readCache,
		guard:       guard,
	}
}

// CloseTable archives a day and removes it from the live ledger. Aggregate
// counts reflect the statuses as they stood before closing; afterwards every
// entry not already served is forced to cancelled in the frozen snapshot,
// keeping its token since the day's numbering is final. Re-closing an already
// archived date needs force, which overwrites the prior record.
func (u *archivalUsecase) CloseTable(ctx context.Context, kind entity.QueueKind, req *dto.CloseTableRequest) (*dto.ArchiveResponse, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	if _, err := time.Parse(entity.DateLayout, req.Date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
	}

	unlock := u.guard.Lock(req.ClinicID, kind)
	defer unlock()

	ledger, err := u.ledgerRepo.Load(ctx, req.ClinicID, kind)
	if err != nil {
		u.log.Warnf("Failed to load ledger for clinic %d: %+v", req.ClinicID, err)
		return nil, err
	}
	if ledger == nil {
		return nil, ErrLedgerNotFound
	}
	day, exists := ledger.Days[req.Date]
	if !exists {
		return nil, ErrDayNotFound
	}

	record, err := u.buildRecord(req.ClinicID, kind, req.Date, day, true)
	if err != nil {
		return nil, err
	}

	inserted, err := u.archiveRepo.SaveIfAbsent(ctx, record)
	if err != nil {
		u.log.Errorf("Failed to archive day %s for clinic %d: %+v", req.Date, req.ClinicID, err)
		return nil, err
	}
	if !inserted {
		if !req.Force {
			return nil, ErrDayAlreadyClosed
		}
		if err := u.archiveRepo.Upsert(ctx, record); err != nil {
			u.log.Errorf("Failed to overwrite archive for day %s clinic %d: %+v", req.Date, req.ClinicID, err)
			return nil, err
		}
	}

	delete(ledger.Days, req.Date)
	if err := u.persistOrDelete(ctx, ledger); err != nil {
		return nil, err
	}
	u.readCache.DeletePrefix(ctx, feedPrefix(kind, req.ClinicID))

	u.log.Infof("Day closed: clinic=%d kind=%s date=%s served=%d cancelled=%d", req.ClinicID, kind, req.Date, record.CapacityServed, record.CapacityCancelled)
	resp := converter.ArchiveToResponse(record)
	return &resp, nil
}

// SaveSnapshot records the day's current state into the archive without
// touching the live ledger; the record is overwritten on repeat calls.
func (u *archivalUsecase) SaveSnapshot(ctx context.Context, kind entity.QueueKind, req *dto.SaveSnapshotRequest) (*dto.ArchiveResponse, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	if _, err := time.Parse(entity.DateLayout, req.Date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
	}

	unlock := u.guard.Lock(req.ClinicID, kind)
	defer unlock()

	ledger, err := u.ledgerRepo.Load(ctx, req.ClinicID, kind)
	if err != nil {
		u.log.Warnf("Failed to load ledger for clinic %d: %+v", req.ClinicID, err)
		return nil, err
	}
	if ledger == nil {
		return nil, ErrLedgerNotFound
	}
	day, exists := ledger.Days[req.Date]
	if !exists {
		return nil, ErrDayNotFound
	}

	record, err := u.buildRecord(req.ClinicID, kind, req.Date, day, false)
	if err != nil {
		return nil, err
	}
	if err := u.archiveRepo.Upsert(ctx, record); err != nil {
		u.log.Errorf("Failed to save snapshot for day %s clinic %d: %+v", req.Date, req.ClinicID, err)
		return nil, err
	}

	resp := converter.ArchiveToResponse(record)
	return &resp, nil
}

func (u *archivalUsecase) ListArchives(ctx context.Context, kind entity.QueueKind, clinicID uint, filter repository.ArchiveFilter) (*dto.ArchiveListResponse, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	records, err := u.archiveRepo.FindByClinic(ctx, clinicID, kind, filter)
	if err != nil {
		u.log.Warnf("Failed to list archives for clinic %d: %+v", clinicID, err)
		return nil, err
	}
	archives := make([]dto.ArchiveResponse, 0, len(records))
	for i := range records {
		archives = append(archives, converter.ArchiveToResponse(&records[i]))
	}
	return &dto.ArchiveListResponse{Archives: archives, Total: len(archives)}, nil
}

// DailySweep moves every date strictly before clinic-local today into the
// archive, statuses untouched, first write wins against manually saved
// records. Unparseable day keys are left in place. One broken ledger never
// stops the sweep of the others.
func (u *archivalUsecase) DailySweep(ctx context.Context) (int, error) {
	ledgers, err := u.ledgerRepo.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, stale := range ledgers {
		n, err := u.sweepLedger(ctx, stale.ClinicID, stale.Kind)
		if err != nil {
			u.log.Errorf("Sweep failed for clinic %d kind %s: %+v", stale.ClinicID, stale.Kind, err)
			continue
		}
		swept += n
	}
	if swept > 0 {
		u.log.Infof("Daily sweep archived %d day(s)", swept)
	}
	return swept, nil
}

func (u *archivalUsecase) sweepLedger(ctx context.Context, clinicID uint, kind entity.QueueKind) (int, error) {
	clinic, err := u.clinicRepo.FindByID(ctx, clinicID)
	if err != nil {
		return 0, err
	}
	today := u.calendar.Today(clinic).Format(entity.DateLayout)

	unlock := u.guard.Lock(clinicID, kind)
	defer unlock()

	// Reload under the lock so the sweep serializes with interactive writers.
	ledger, err := u.ledgerRepo.Load(ctx, clinicID, kind)
	if err != nil || ledger == nil {
		return 0, err
	}

	swept := 0
	for _, date := range ledger.SortedDates() {
		if _, err := time.Parse(entity.DateLayout, date); err != nil {
			u.log.Warnf("Leaving unparseable day key %q in clinic %d ledger", date, clinicID)
			continue
		}
		if date >= today {
			continue
		}
		record, err := u.buildRecord(clinicID, kind, date, ledger.Days[date], false)
		if err != nil {
			return swept, err
		}
		if _, err := u.archiveRepo.SaveIfAbsent(ctx, record); err != nil {
			return swept, err
		}
		delete(ledger.Days, date)
		swept++
	}
	if swept == 0 {
		return 0, nil
	}

	if err := u.persistOrDelete(ctx, ledger); err != nil {
		return swept, err
	}
	u.readCache.DeletePrefix(ctx, feedPrefix(kind, clinicID))
	return swept, nil
}

// buildRecord freezes a day into an archive record. Aggregates always count
// the statuses as currently stored; with forceCancel the snapshot additionally
// marks every non-served entry cancelled.
func (u *archivalUsecase) buildRecord(clinicID uint, kind entity.QueueKind, date string, day *entity.DaySlotTable, forceCancel bool) (*entity.ArchiveRecord, error) {
	served, cancelled := 0, 0
	for i := range day.Entries {
		switch day.Entries[i].Status {
		case entity.BookingStatusServed:
			served++
		case entity.BookingStatusCancelled:
			cancelled++
		}
	}

	snapshot := make([]entity.BookingEntry, len(day.Entries))
	copy(snapshot, day.Entries)
	if forceCancel {
		for i := range snapshot {
			if snapshot[i].Status != entity.BookingStatusServed {
				snapshot[i].Status = entity.BookingStatusCancelled
			}
		}
	}

	entries, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal archive snapshot: %w", err)
	}
	return &entity.ArchiveRecord{
		ClinicID:          clinicID,
		Kind:              kind,
		Date:              date,
		CapacityTotal:     day.CapacityTotal,
		CapacityServed:    served,
		CapacityCancelled: cancelled,
		Entries:           entries,
	}, nil
}

func (u *archivalUsecase) persistOrDelete(ctx context.Context, ledger *entity.ClinicLedger) error {
	if ledger.IsEmpty() {
		if err := u.ledgerRepo.Delete(ctx, ledger.ClinicID, ledger.Kind); err != nil {
			u.log.Errorf("Failed to delete empty ledger for clinic %d: %+v", ledger.ClinicID, err)
			return err
		}
		return nil
	}
	if err := u.ledgerRepo.Save(ctx, ledger); err != nil {
		u.log.Errorf("Failed to persist ledger for clinic %d: %+v", ledger.ClinicID, err)
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrStoreConflict
		}
		return err
	}
	return nil
}
