package usecase

import (
	"io"
	"testing"
	"time"

	"clinic-backoffice/config"
	"clinic-backoffice/internal/domain/entity"
	"clinic-backoffice/internal/repository/memory"
	"clinic-backoffice/internal/service"
	"clinic-backoffice/pkg/cache"

	"github.com/sirupsen/logrus"
)

// Saturday, so the Sat-Thu fixture clinic starts its week on test "today".
var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testClinic() entity.Clinic {
	return entity.Clinic{
		ID:               7,
		Name:             "General Medicine",
		DailyCapacity:    2,
		PriorityCapacity: 2,
		WorkStartDay:     "السبت",
		WorkEndDay:       "الخميس",
	}
}

type engineFixture struct {
	ledgers      *memory.LedgerRepository
	archives     *memory.ArchiveRepository
	clinics      *memory.ClinicRepository
	readCache    *cache.MemoryCache
	calendar     *service.WorkingCalendar
	allocation   AllocationUsecase
	cancellation CancellationUsecase
	archival     ArchivalUsecase
	feed         FeedUsecase
}

func newEngineFixture(t *testing.T, clinics ...entity.Clinic) *engineFixture {
	t.Helper()
	if len(clinics) == 0 {
		clinics = []entity.Clinic{testClinic()}
	}

	log := testLogger()
	f := &engineFixture{
		ledgers:   memory.NewLedgerRepository(),
		archives:  memory.NewArchiveRepository(),
		clinics:   memory.NewClinicRepository(clinics...),
		readCache: cache.NewMemoryCache(64),
		calendar:  service.NewWorkingCalendar("UTC", log).WithNow(func() time.Time { return testNow }),
	}

	cfg := config.BookingConfig{
		DefaultCapacity:         20,
		DefaultPriorityCapacity: 5,
		SearchHorizonDays:       30,
		DefaultTimezone:         "UTC",
	}
	guard := NewLedgerGuard()

	f.allocation = NewAllocationUsecase(log, cfg, f.ledgers, f.clinics, f.calendar, f.readCache, guard)
	f.cancellation = NewCancellationUsecase(log, f.ledgers, f.readCache, guard)
	f.archival = NewArchivalUsecase(log, f.ledgers, f.archives, f.clinics, f.calendar, f.readCache, guard)
	f.feed = NewFeedUsecase(log, f.ledgers, f.readCache, 30*time.Second)
	return f
}
