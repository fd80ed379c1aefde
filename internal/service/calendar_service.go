package service

import (
	"strings"
	"time"

	"clinic-backoffice/internal/domain/entity"

	"github.com/sirupsen/logrus"
)

// arabicWeekdays maps Go weekdays to the Arabic names clinic rows are
// configured with.
var arabicWeekdays = map[time.Weekday]string{
	time.Saturday:  "السبت",
	time.Sunday:    "الأحد",
	time.Monday:    "الاثنين",
	time.Tuesday:   "الثلاثاء",
	time.Wednesday: "الأربعاء",
	time.Thursday:  "الخميس",
	time.Friday:    "الجمعة",
}

// saturdayFirstWeek orders the week the way clinic working windows are
// expressed (Sat–Thu is the common case).
var saturdayFirstWeek = []time.Weekday{
	time.Saturday, time.Sunday, time.Monday, time.Tuesday,
	time.Wednesday, time.Thursday, time.Friday,
}

// WorkingCalendar resolves clinic-local "today" and working-day membership
// from a clinic's configured weekday window.
type WorkingCalendar struct {
	defaultTimezone string
	now             func() time.Time
	log             *logrus.Logger
}

func NewWorkingCalendar(defaultTimezone string, log *logrus.Logger) *WorkingCalendar {
	return &WorkingCalendar{
		defaultTimezone: defaultTimezone,
		now:             time.Now,
		log:             log,
	}
}

// WithNow overrides the clock; used by tests and deterministic sweeps.
func (c *WorkingCalendar) WithNow(now func() time.Time) *WorkingCalendar {
	c.now = now
	return c
}

func (c *WorkingCalendar) location(clinic *entity.Clinic) *time.Location {
	name := c.defaultTimezone
	if clinic != nil && clinic.Timezone != "" {
		name = clinic.Timezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		c.log.Warnf("Unknown timezone %q, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// Today returns the clinic-local calendar date at midnight.
func (c *WorkingCalendar) Today(clinic *entity.Clinic) time.Time {
	now := c.now().In(c.location(clinic))
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// IsWorkingDay reports whether the date's weekday falls inside the clinic's
// configured window. A clinic without a window works every day. The window is
// inclusive and circular over a Saturday-first week; names are compared after
// Arabic normalization so hamza and diacritic spelling variants match.
func (c *WorkingCalendar) IsWorkingDay(clinic *entity.Clinic, date time.Time) bool {
	if clinic == nil || clinic.WorkStartDay == "" || clinic.WorkEndDay == "" {
		return true
	}

	start := weekIndex(clinic.WorkStartDay)
	end := weekIndex(clinic.WorkEndDay)
	if start < 0 || end < 0 {
		c.log.Warnf("Clinic %d has unrecognized working window %q..%q", clinic.ID, clinic.WorkStartDay, clinic.WorkEndDay)
		return true
	}

	day := weekIndex(arabicWeekdays[date.Weekday()])
	if start <= end {
		return day >= start && day <= end
	}
	return day >= start || day <= end
}

func weekIndex(name string) int {
	normalized := NormalizeArabic(name)
	for i, weekday := range saturdayFirstWeek {
		if NormalizeArabic(arabicWeekdays[weekday]) == normalized {
			return i
		}
	}
	return -1
}

// NormalizeArabic strips tashkeel and tatweel and unifies hamza-carrying alef
// and alef-maqsura variants, so "الأحد" and "الاحد" compare equal.
func NormalizeArabic(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0x064B && r <= 0x0652: // tashkeel
			continue
		case r == 0x0670: // superscript alef
			continue
		case r == 0x0640: // tatweel
			continue
		case r == 'أ' || r == 'إ' || r == 'آ' || r == 'ٱ':
			b.WriteRune('ا')
		case r == 'ى':
			b.WriteRune('ي')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
