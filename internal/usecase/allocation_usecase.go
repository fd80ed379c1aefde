package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"clinic-backoffice/config"
	"clinic-backoffice/internal/converter"
	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/internal/domain/entity"
	"clinic-backoffice/internal/domain/repository"
	"clinic-backoffice/internal/service"
	"clinic-backoffice/pkg/cache"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidKind        = errors.New("unknown queue kind")
	ErrInvalidDate        = errors.New("invalid date format, use YYYY-MM-DD")
	ErrClinicNotFound     = errors.New("clinic not found")
	ErrCapacityUnresolved = errors.New("day capacity is not configured for this clinic")
	ErrDayClosed          = errors.New("day is closed for booking")
	ErrCapacityExceeded   = errors.New("day is fully booked")
	ErrDuplicateBooking   = errors.New("patient already holds an active booking for this day")
	ErrNoAvailability     = errors.New("no bookable day within the search horizon")
	ErrDateRequired       = errors.New("front-desk bookings require an explicit date")
	ErrStoreConflict      = errors.New("ledger was modified concurrently, retry")
)

// validKind guards the engine entry points; the HTTP router constrains the
// path segment already, but the usecases stay safe for other callers.
func validKind(kind entity.QueueKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return nil
}

// Outcome distinguishes the non-error results of idempotent calls.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeExists   Outcome = "exists"
	OutcomeRejected Outcome = "rejected"
)

type AllocationUsecase interface {
	CreateTable(ctx context.Context, kind entity.QueueKind, req *dto.CreateTableRequest) (*dto.CreateTableResponse, error)
	AddDay(ctx context.Context, kind entity.QueueKind, req *dto.AddDayRequest) (*dto.AddDayResponse, error)
	Book(ctx context.Context, kind entity.QueueKind, req *dto.BookRequest) (*dto.BookResponse, error)
	VerifyCode(ctx context.Context, req *dto.VerifyCodeRequest) (*dto.BookResponse, error)
}

type allocationUsecase struct {
	log        *logrus.Logger
	cfg        config.BookingConfig
	ledgerRepo repository.LedgerRepository
	clinicRepo repository.ClinicRepository
	calendar   *service.WorkingCalendar
	readCache  cache.Cache
	guard      *LedgerGuard
}

func NewAllocationUsecase(
	log *logrus.Logger,
	cfg config.BookingConfig,
	ledgerRepo repository.LedgerRepository,
	clinicRepo repository.ClinicRepository,
	calendar *service.WorkingCalendar,
	readCache cache.Cache,
	guard *LedgerGuard,
) AllocationUsecase {
	return &allocationUsecase{
		log:        log,
		cfg:        cfg,
		ledgerRepo: ledgerRepo,
		clinicRepo: clinicRepo,
		calendar:   calendar,
		readCache:  readCache,
		guard:      guard,
	}
}

// CreateTable creates the requested days, idempotent per date: an existing
// date is reported as "exists" and left untouched.
func (u *allocationUsecase) CreateTable(ctx context.Context, kind entity.QueueKind, req *dto.CreateTableRequest) (*dto.CreateTableResponse, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	clinic, err := u.requireClinic(ctx, req.ClinicID)
	if err != nil {
		return nil, err
	}

	// Validate everything up front so a bad date creates nothing at all.
	dates := make([]string, 0, len(req.Days))
	for date, capacity := range req.Days {
		if _, err := time.Parse(entity.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
		if capacity == 0 && clinic.CapacityFor(kind) < 1 {
			return nil, ErrCapacityUnresolved
		}
		if capacity < 0 {
			return nil, fmt.Errorf("%w: negative capacity for %q", ErrInvalidDate, date)
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)

	unlock := u.guard.Lock(req.ClinicID, kind)
	defer unlock()

	ledger, err := u.loadOrNewLedger(ctx, req.ClinicID, kind)
	if err != nil {
		return nil, err
	}

	results := make(map[string]string, len(dates))
	changed := false
	for _, date := range dates {
		if _, exists := ledger.Days[date]; exists {
			results[date] = string(OutcomeExists)
			continue
		}
		capacity := req.Days[date]
		if capacity == 0 {
			capacity = clinic.CapacityFor(kind)
		}
		ledger.Days[date] = entity.NewDaySlotTable(entity.SourceSecretary, capacity)
		results[date] = string(OutcomeCreated)
		changed = true
	}

	if changed {
		if err := u.persist(ctx, ledger); err != nil {
			return nil, err
		}
	}
	return &dto.CreateTableResponse{ClinicID: req.ClinicID, Results: results}, nil
}

// AddDay appends the day after the ledger's latest date. Without force the
// call is rejected while the latest day still has free capacity, so the queue
// never fragments prematurely. An explicit date bypasses the fullness check.
func (u *allocationUsecase) AddDay(ctx context.Context, kind entity.QueueKind, req *dto.AddDayRequest) (*dto.AddDayResponse, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	clinic, err := u.requireClinic(ctx, req.ClinicID)
	if err != nil {
		return nil, err
	}

	if req.Date != "" {
		if _, err := time.Parse(entity.DateLayout, req.Date); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
		}
	}

	unlock := u.guard.Lock(req.ClinicID, kind)
	defer unlock()

	ledger, err := u.loadOrNewLedger(ctx, req.ClinicID, kind)
	if err != nil {
		return nil, err
	}

	date := req.Date
	if date == "" {
		if latest, ok := ledger.LatestDate(); ok {
			if !ledger.Days[latest].IsFull() && !req.Force {
				return &dto.AddDayResponse{ClinicID: req.ClinicID, Outcome: string(OutcomeRejected)}, nil
			}
			next, err := time.Parse(entity.DateLayout, latest)
			if err != nil {
				return nil, fmt.Errorf("%w: stored day %q", ErrInvalidDate, latest)
			}
			date = next.AddDate(0, 0, 1).Format(entity.DateLayout)
		} else {
			date = u.calendar.Today(clinic).Format(entity.DateLayout)
		}
	}

	if _, exists := ledger.Days[date]; exists {
		return &dto.AddDayResponse{ClinicID: req.ClinicID, Date: date, Outcome: string(OutcomeExists)}, nil
	}

	ledger.Days[date] = entity.NewDaySlotTable(entity.SourceSecretary, u.inheritCapacity(ledger, clinic, kind))
	if err := u.persist(ctx, ledger); err != nil {
		return nil, err
	}
	return &dto.AddDayResponse{ClinicID: req.ClinicID, Date: date, Outcome: string(OutcomeCreated)}, nil
}

// Book appends a booking entry. With an explicit date the day is resolved or
// lazily created and a full day fails; without one the nearest eligible
// working day inside the search horizon is selected, creating days as needed.
func (u *allocationUsecase) Book(ctx context.Context, kind entity.QueueKind, req *dto.BookRequest) (*dto.BookResponse, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	source := entity.BookingSource(req.Source)
	if source == entity.SourceSecretary && req.Date == "" {
		return nil, ErrDateRequired
	}
	if req.Date != "" {
		if _, err := time.Parse(entity.DateLayout, req.Date); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
		}
	}

	clinic, err := u.requireClinic(ctx, req.ClinicID)
	if err != nil {
		return nil, err
	}

	unlock := u.guard.Lock(req.ClinicID, kind)
	defer unlock()

	ledger, err := u.loadOrNewLedger(ctx, req.ClinicID, kind)
	if err != nil {
		return nil, err
	}

	var date string
	if req.Date != "" {
		date, err = u.resolveExplicitDay(ledger, clinic, kind, req)
	} else {
		date, err = u.autoAssignDay(ledger, clinic, kind, req.PatientID)
	}
	if err != nil {
		return nil, err
	}
	day := ledger.Days[date]

	dayTime, err := time.Parse(entity.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	token := day.ActiveCount() + 1
	prefix := entity.BookingPrefix(kind, source)
	seq := uint(len(day.Entries) + 1)
	if prefix == entity.PrefixPriority {
		seq = req.PatientID
	}

	entry := entity.BookingEntry{
		BookingID:   entity.NewBookingID(prefix, req.ClinicID, dayTime, seq),
		Token:       &token,
		PatientID:   req.PatientID,
		Name:        req.Name,
		Phone:       req.Phone,
		Status:      entity.BookingStatusBooked,
		CreatedAt:   time.Now(),
		SecretaryID: req.SecretaryID,
	}
	if kind == entity.QueuePriority {
		entry.Code = u.verificationCode(ledger)
	}

	day.Entries = append(day.Entries, entry)
	day.CapacityUsed = token

	if err := u.persist(ctx, ledger); err != nil {
		return nil, err
	}

	u.log.Infof("Booking created: clinic=%d kind=%s date=%s id=%s token=%d", req.ClinicID, kind, date, entry.BookingID, token)
	return &dto.BookResponse{
		ClinicID: req.ClinicID,
		Date:     date,
		Booking:  converter.EntryToResponse(&entry, true),
	}, nil
}

func (u *allocationUsecase) resolveExplicitDay(ledger *entity.ClinicLedger, clinic *entity.Clinic, kind entity.QueueKind, req *dto.BookRequest) (string, error) {
	day, exists := ledger.Days[req.Date]
	if !exists {
		day = entity.NewDaySlotTable(entity.BookingSource(req.Source), u.inheritCapacity(ledger, clinic, kind))
		ledger.Days[req.Date] = day
	}
	if day.Status == entity.DayClosed {
		return "", ErrDayClosed
	}
	if day.HasActivePatient(req.PatientID) {
		return "", ErrDuplicateBooking
	}
	if day.IsFull() {
		return "", ErrCapacityExceeded
	}
	return req.Date, nil
}

// autoAssignDay walks forward from clinic-local today for up to the horizon,
// skipping non-working weekdays, closed days, full days and days where the
// patient already has an active entry. A missing day is created and selected,
// which terminates the search.
func (u *allocationUsecase) autoAssignDay(ledger *entity.ClinicLedger, clinic *entity.Clinic, kind entity.QueueKind, patientID uint) (string, error) {
	today := u.calendar.Today(clinic)
	horizon := u.cfg.SearchHorizonDays
	if horizon < 1 {
		horizon = 30
	}

	for i := 0; i < horizon; i++ {
		candidate := today.AddDate(0, 0, i)
		if !u.calendar.IsWorkingDay(clinic, candidate) {
			continue
		}
		date := candidate.Format(entity.DateLayout)
		day, exists := ledger.Days[date]
		if !exists {
			ledger.Days[date] = entity.NewDaySlotTable(entity.SourcePatient, u.inheritCapacity(ledger, clinic, kind))
			return date, nil
		}
		if day.Status == entity.DayClosed || day.IsFull() || day.HasActivePatient(patientID) {
			continue
		}
		return date, nil
	}
	return "", ErrNoAvailability
}

// VerifyCode scans the priority ledger's days for an active entry carrying
// the 4-digit code.
func (u *allocationUsecase) VerifyCode(ctx context.Context, req *dto.VerifyCodeRequest) (*dto.BookResponse, error) {
	ledger, err := u.ledgerRepo.Load(ctx, req.ClinicID, entity.QueuePriority)
	if err != nil {
		u.log.Warnf("Failed to load priority ledger for clinic %d: %+v", req.ClinicID, err)
		return nil, err
	}
	if ledger == nil {
		return nil, ErrBookingNotFound
	}

	for _, date := range ledger.SortedDates() {
		day := ledger.Days[date]
		for i := range day.Entries {
			e := &day.Entries[i]
			if e.Code == req.Code && !e.IsCancelled() {
				return &dto.BookResponse{
					ClinicID: req.ClinicID,
					Date:     date,
					Booking:  converter.EntryToResponse(e, true),
				}, nil
			}
		}
	}
	return nil, ErrBookingNotFound
}

func (u *allocationUsecase) requireClinic(ctx context.Context, clinicID uint) (*entity.Clinic, error) {
	clinic, err := u.clinicRepo.FindByID(ctx, clinicID)
	if err != nil {
		u.log.Warnf("Failed to find clinic %d: %+v", clinicID, err)
		return nil, err
	}
	if clinic == nil {
		return nil, ErrClinicNotFound
	}
	return clinic, nil
}

func (u *allocationUsecase) loadOrNewLedger(ctx context.Context, clinicID uint, kind entity.QueueKind) (*entity.ClinicLedger, error) {
	ledger, err := u.ledgerRepo.Load(ctx, clinicID, kind)
	if err != nil {
		u.log.Warnf("Failed to load ledger for clinic %d: %+v", clinicID, err)
		return nil, err
	}
	if ledger == nil {
		ledger = entity.NewClinicLedger(clinicID, kind)
	}
	return ledger, nil
}

// inheritCapacity picks a new day's capacity: the latest existing day first,
// then the clinic's configured count, then the service-wide default.
func (u *allocationUsecase) inheritCapacity(ledger *entity.ClinicLedger, clinic *entity.Clinic, kind entity.QueueKind) int {
	if latest, ok := ledger.LatestDate(); ok {
		if capacity := ledger.Days[latest].CapacityTotal; capacity > 0 {
			return capacity
		}
	}
	if capacity := clinic.CapacityFor(kind); capacity > 0 {
		return capacity
	}
	if kind == entity.QueuePriority && u.cfg.DefaultPriorityCapacity > 0 {
		return u.cfg.DefaultPriorityCapacity
	}
	if u.cfg.DefaultCapacity > 0 {
		return u.cfg.DefaultCapacity
	}
	return 1
}

func (u *allocationUsecase) persist(ctx context.Context, ledger *entity.ClinicLedger) error {
	if err := u.ledgerRepo.Save(ctx, ledger); err != nil {
		u.log.Errorf("Failed to persist ledger for clinic %d kind %s: %+v", ledger.ClinicID, ledger.Kind, err)
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrStoreConflict
		}
		return err
	}
	u.readCache.DeletePrefix(ctx, feedPrefix(ledger.Kind, ledger.ClinicID))
	return nil
}

// verificationCode draws a random 4-digit code not currently active anywhere
// in the ledger.
func (u *allocationUsecase) verificationCode(ledger *entity.ClinicLedger) string {
	for attempt := 0; attempt < 32; attempt++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			u.log.Warnf("Failed to draw verification code: %+v", err)
			break
		}
		code := fmt.Sprintf("%04d", n.Int64())
		if !codeInUse(ledger, code) {
			return code
		}
	}
	// Worst case fall back to a time-derived code.
	return fmt.Sprintf("%04d", time.Now().UnixNano()%10000)
}

func codeInUse(ledger *entity.ClinicLedger, code string) bool {
	for _, day := range ledger.Days {
		for i := range day.Entries {
			if day.Entries[i].Code == code && !day.Entries[i].IsCancelled() {
				return true
			}
		}
	}
	return false
}
