package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar-date key used for days inside a ledger
// document. IDDateLayout is the compact form embedded in booking ids.
const (
	DateLayout   = "2006-01-02"
	IDDateLayout = "20060102"
)

// QueueKind selects which of the two parallel queues a ledger belongs to.
type QueueKind string

const (
	QueueStandard QueueKind = "standard"
	QueuePriority QueueKind = "priority"
)

func (k QueueKind) Valid() bool {
	return k == QueueStandard || k == QueuePriority
}

// BookingSource records who created a day or an entry.
type BookingSource string

const (
	SourcePatient   BookingSource = "patient"
	SourceSecretary BookingSource = "secretary"
)

type DayStatus string

const (
	DayOpen   DayStatus = "open"
	DayClosed DayStatus = "closed"
)

type BookingStatus string

const (
	BookingStatusBooked     BookingStatus = "booked"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusServed     BookingStatus = "served"
	BookingStatusNoShow     BookingStatus = "no_show"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusBooked, BookingStatusInProgress, BookingStatusServed,
		BookingStatusNoShow, BookingStatusCancelled:
		return true
	}
	return false
}

// BookingEntry is one slot reservation inside a day. Token is nil once the
// entry is cancelled; cancelled entries stay in Entries as permanent history.
type BookingEntry struct {
	BookingID   string        `json:"booking_id"`
	Token       *int          `json:"token"`
	PatientID   uint          `json:"patient_id"`
	Name        string        `json:"name"`
	Phone       string        `json:"phone"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	SecretaryID *uint         `json:"secretary_id,omitempty"`
	Code        string        `json:"code,omitempty"`
}

func (e *BookingEntry) IsCancelled() bool {
	return e.Status == BookingStatusCancelled
}

// DaySlotTable is the booking list and capacity for one clinic on one date.
// Entries is append-only and never reordered.
type DaySlotTable struct {
	Origin        BookingSource  `json:"origin"`
	Status        DayStatus      `json:"status"`
	CapacityTotal int            `json:"capacity_total"`
	CapacityUsed  int            `json:"capacity_used"`
	Entries       []BookingEntry `json:"entries"`
}

func NewDaySlotTable(origin BookingSource, capacity int) *DaySlotTable {
	return &DaySlotTable{
		Origin:        origin,
		Status:        DayOpen,
		CapacityTotal: capacity,
		CapacityUsed:  0,
		Entries:       []BookingEntry{},
	}
}

// ActiveCount returns the number of non-cancelled entries.
func (d *DaySlotTable) ActiveCount() int {
	n := 0
	for i := range d.Entries {
		if !d.Entries[i].IsCancelled() {
			n++
		}
	}
	return n
}

func (d *DaySlotTable) IsFull() bool {
	return d.ActiveCount() >= d.CapacityTotal
}

// HasActivePatient reports whether the patient already holds a non-cancelled
// entry in this day.
func (d *DaySlotTable) HasActivePatient(patientID uint) bool {
	for i := range d.Entries {
		if d.Entries[i].PatientID == patientID && !d.Entries[i].IsCancelled() {
			return true
		}
	}
	return false
}

// Renumber reassigns ascending tokens 1..N to every non-cancelled entry in
// stored order, rewrites B/S booking-id suffixes to match the new token, and
// recomputes CapacityUsed. G ids keep their patient-id suffix.
func (d *DaySlotTable) Renumber() {
	token := 0
	for i := range d.Entries {
		if d.Entries[i].IsCancelled() {
			d.Entries[i].Token = nil
			continue
		}
		token++
		t := token
		d.Entries[i].Token = &t
		d.Entries[i].BookingID = RenumberedBookingID(d.Entries[i].BookingID, t)
	}
	d.CapacityUsed = token
}

// ClinicLedger is the full date-keyed booking structure for one clinic and
// one queue kind. Version backs the store's compare-and-swap commit.
type ClinicLedger struct {
	ClinicID uint
	Kind     QueueKind
	Days     map[string]*DaySlotTable
	Version  int64
}

func NewClinicLedger(clinicID uint, kind QueueKind) *ClinicLedger {
	return &ClinicLedger{
		ClinicID: clinicID,
		Kind:     kind,
		Days:     map[string]*DaySlotTable{},
	}
}

func (l *ClinicLedger) IsEmpty() bool {
	return len(l.Days) == 0
}

// SortedDates returns the ledger's day keys in ascending calendar order.
// ISO dates sort lexicographically.
func (l *ClinicLedger) SortedDates() []string {
	dates := make([]string, 0, len(l.Days))
	for date := range l.Days {
		dates = append(dates, date)
	}
	for i := 1; i < len(dates); i++ {
		for j := i; j > 0 && dates[j] < dates[j-1]; j-- {
			dates[j], dates[j-1] = dates[j-1], dates[j]
		}
	}
	return dates
}

// LatestDate returns the newest day key, or ok=false for an empty ledger.
func (l *ClinicLedger) LatestDate() (string, bool) {
	latest := ""
	for date := range l.Days {
		if date > latest {
			latest = date
		}
	}
	return latest, latest != ""
}

// Booking-id prefixes: B = patient self-service, S = front desk,
// G = priority queue (suffix is the patient id, not a position).
const (
	PrefixPatient   = "B"
	PrefixSecretary = "S"
	PrefixPriority  = "G"
)

// BookingPrefix picks the id prefix for a new entry.
func BookingPrefix(kind QueueKind, source BookingSource) string {
	if kind == QueuePriority {
		return PrefixPriority
	}
	if source == SourceSecretary {
		return PrefixSecretary
	}
	return PrefixPatient
}

// NewBookingID formats {prefix}-{clinic}-{YYYYMMDD}-{seq}. For B/S the seq is
// zero-padded (4 and 3 digits); for G the seq is the raw patient id.
func NewBookingID(prefix string, clinicID uint, date time.Time, seq uint) string {
	compact := date.Format(IDDateLayout)
	switch prefix {
	case PrefixSecretary:
		return fmt.Sprintf("%s-%d-%s-%03d", prefix, clinicID, compact, seq)
	case PrefixPriority:
		return fmt.Sprintf("%s-%d-%s-%d", prefix, clinicID, compact, seq)
	default:
		return fmt.Sprintf("%s-%d-%s-%04d", prefix, clinicID, compact, seq)
	}
}

// RenumberedBookingID re-derives a B/S id's sequence suffix from the entry's
// current token. G ids are returned unchanged.
func RenumberedBookingID(id string, token int) string {
	prefix, clinicID, date, err := ParseBookingID(id)
	if err != nil || prefix == PrefixPriority {
		return id
	}
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return id
	}
	return NewBookingID(prefix, clinicID, day, uint(token))
}

// ParseBookingID splits a booking id into prefix, clinic id and the ISO date
// of the day it belongs to.
func ParseBookingID(id string) (prefix string, clinicID uint, date string, err error) {
	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		return "", 0, "", fmt.Errorf("malformed booking id %q", id)
	}
	clinic, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return "", 0, "", fmt.Errorf("malformed clinic segment in booking id %q", id)
	}
	day, err := time.Parse(IDDateLayout, parts[2])
	if err != nil {
		return "", 0, "", fmt.Errorf("malformed date segment in booking id %q", id)
	}
	return parts[0], uint(clinic), day.Format(DateLayout), nil
}
