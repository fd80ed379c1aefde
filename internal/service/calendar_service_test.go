package service

import (
	"io"
	"testing"
	"time"

	"clinic-backoffice/internal/domain/entity"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalendar() *WorkingCalendar {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewWorkingCalendar("UTC", log)
}

func TestNormalizeArabicVariants(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"hamza on alef", "الأحد", "الاحد"},
		{"hamza under alef", "الإثنين", "الاثنين"},
		{"madda", "آحد", "احد"},
		{"alef maqsura", "مستشفى", "مستشفي"},
		{"tatweel", "السـبت", "السبت"},
		{"tashkeel", "الجُمُعَة", "الجمعة"},
		{"surrounding space", " الخميس ", "الخميس"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, NormalizeArabic(tc.b), NormalizeArabic(tc.a))
		})
	}
}

func TestIsWorkingDaySaturdayToThursday(t *testing.T) {
	cal := newTestCalendar()
	clinic := &entity.Clinic{ID: 7, WorkStartDay: "السبت", WorkEndDay: "الخميس"}

	// 2025-03-01 is a Saturday; 2025-03-07 the first Friday after it.
	for day := 1; day <= 6; day++ {
		date := time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC)
		assert.True(t, cal.IsWorkingDay(clinic, date), date.Weekday().String())
	}
	friday := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	assert.False(t, cal.IsWorkingDay(clinic, friday))
}

func TestIsWorkingDayCircularWindow(t *testing.T) {
	cal := newTestCalendar()
	// Thursday through Sunday wraps around the Saturday-first week.
	clinic := &entity.Clinic{ID: 7, WorkStartDay: "الخميس", WorkEndDay: "الأحد"}

	working := map[time.Weekday]bool{
		time.Thursday: true,
		time.Friday:   true,
		time.Saturday: true,
		time.Sunday:   true,
	}
	for day := 1; day <= 7; day++ {
		date := time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, working[date.Weekday()], cal.IsWorkingDay(clinic, date), date.Weekday().String())
	}
}

func TestIsWorkingDayMatchesSpellingVariants(t *testing.T) {
	cal := newTestCalendar()
	// Window stored without hamza; membership must still resolve.
	clinic := &entity.Clinic{ID: 7, WorkStartDay: "الاحد", WorkEndDay: "الخميس"}

	sunday := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, cal.IsWorkingDay(clinic, sunday))
	assert.False(t, cal.IsWorkingDay(clinic, saturday))
}

func TestIsWorkingDayWithoutWindow(t *testing.T) {
	cal := newTestCalendar()
	friday := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)

	assert.True(t, cal.IsWorkingDay(nil, friday))
	assert.True(t, cal.IsWorkingDay(&entity.Clinic{ID: 7}, friday))
	// An unrecognized window never blocks booking.
	assert.True(t, cal.IsWorkingDay(&entity.Clinic{ID: 7, WorkStartDay: "lundi", WorkEndDay: "jeudi"}, friday))
}

func TestTodayUsesClinicTimezone(t *testing.T) {
	cal := newTestCalendar()
	// 23:30 UTC on Feb 28 is already Mar 1 in Cairo (UTC+2).
	cal.WithNow(func() time.Time {
		return time.Date(2025, time.February, 28, 23, 30, 0, 0, time.UTC)
	})

	utcToday := cal.Today(&entity.Clinic{ID: 7})
	require.Equal(t, "2025-02-28", utcToday.Format(entity.DateLayout))

	cairoToday := cal.Today(&entity.Clinic{ID: 7, Timezone: "Africa/Cairo"})
	require.Equal(t, "2025-03-01", cairoToday.Format(entity.DateLayout))
	assert.Equal(t, 0, cairoToday.Hour())
}
