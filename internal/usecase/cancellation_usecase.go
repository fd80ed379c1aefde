package usecase

import (
	"context"
	"errors"
	"fmt"

	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/internal/domain/entity"
	"clinic-backoffice/internal/domain/repository"
	"clinic-backoffice/pkg/cache"

	"github.com/sirupsen/logrus"
)

var (
	ErrLedgerNotFound  = errors.New("no ledger exists for this clinic")
	ErrDayNotFound     = errors.New("day not found in ledger")
	ErrBookingNotFound = errors.New("booking not found")
	ErrInvalidStatus   = errors.New("unknown booking status")
)

type CancellationUsecase interface {
	SetStatus(ctx context.Context, kind entity.QueueKind, req *dto.EditStatusRequest) (*dto.EditStatusResponse, error)
}

type cancellationUsecase struct {
	log        *logrus.Logger
	ledgerRepo repository.LedgerRepository
	readCache  cache.Cache
	guard      *LedgerGuard
}

func NewCancellationUsecase(
	log *logrus.Logger,
	ledgerRepo repository.LedgerRepository,
	readCache cache.Cache,
	guard *LedgerGuard,
) CancellationUsecase {
	return &cancellationUsecase{
		log:        log,
		ledgerRepo: ledgerRepo,
		readCache:  readCache,
		guard:      guard,
	}
}

// SetStatus transitions one booking. Cancellation nulls the entry's token and
// renumbers every remaining active entry in stored order, rewriting their
// booking-id suffixes; any other status touches only the status field. The
// day is located from the id's embedded date segment. A supplied token must
// match too, which disambiguates a cancelled slot from a newer active booking
// that reuses the same id suffix.
func (u *cancellationUsecase) SetStatus(ctx context.Context, kind entity.QueueKind, req *dto.EditStatusRequest) (*dto.EditStatusResponse, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	newStatus := entity.BookingStatus(req.Status)
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	_, _, date, err := entity.ParseBookingID(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
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
	day, exists := ledger.Days[date]
	if !exists {
		return nil, ErrDayNotFound
	}

	entry := findEntry(day, req.BookingID, req.Token)
	if entry == nil {
		return nil, ErrBookingNotFound
	}

	oldStatus := entry.Status
	if newStatus == entity.BookingStatusCancelled {
		entry.Status = entity.BookingStatusCancelled
		entry.Token = nil
		day.Renumber()
	} else {
		entry.Status = newStatus
	}

	if err := u.ledgerRepo.Save(ctx, ledger); err != nil {
		u.log.Errorf("Failed to persist status change for %s: %+v", req.BookingID, err)
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrStoreConflict
		}
		return nil, err
	}
	u.readCache.DeletePrefix(ctx, feedPrefix(kind, req.ClinicID))

	u.log.Infof("Booking status changed: clinic=%d kind=%s id=%s %s -> %s", req.ClinicID, kind, req.BookingID, oldStatus, newStatus)
	return &dto.EditStatusResponse{
		BookingID: req.BookingID,
		OldStatus: string(oldStatus),
		NewStatus: string(newStatus),
	}, nil
}

func findEntry(day *entity.DaySlotTable, bookingID string, token *int) *entity.BookingEntry {
	for i := range day.Entries {
		e := &day.Entries[i]
		if e.BookingID != bookingID {
			continue
		}
		if token != nil {
			if e.Token == nil || *e.Token != *token {
				continue
			}
		}
		return e
	}
	return nil
}
