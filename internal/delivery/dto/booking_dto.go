package dto

import "time"

// CreateTableRequest creates one or more day tables. Days maps an ISO date to
// a capacity; zero means "derive from the clinic's configured count".
type CreateTableRequest struct {
	ClinicID uint           `json:"clinic_id" validate:"required"`
	Days     map[string]int `json:"days" validate:"required,min=1"`
}

type CreateTableResponse struct {
	ClinicID uint              `json:"clinic_id"`
	Results  map[string]string `json:"results"`
}

type AddDayRequest struct {
	ClinicID uint   `json:"clinic_id" validate:"required"`
	Date     string `json:"date,omitempty"`
	Force    bool   `json:"force,omitempty"`
}

type AddDayResponse struct {
	ClinicID uint   `json:"clinic_id"`
	Date     string `json:"date,omitempty"`
	Outcome  string `json:"outcome"`
}

type BookRequest struct {
	ClinicID    uint   `json:"clinic_id" validate:"required"`
	PatientID   uint   `json:"patient_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=255"`
	Phone       string `json:"phone" validate:"required,max=32"`
	Source      string `json:"source" validate:"required,oneof=patient secretary"`
	Date        string `json:"date,omitempty"`
	SecretaryID *uint  `json:"secretary_id,omitempty"`
}

type BookResponse struct {
	ClinicID uint                 `json:"clinic_id"`
	Date     string               `json:"date"`
	Booking  BookingEntryResponse `json:"booking"`
}

type EditStatusRequest struct {
	ClinicID  uint   `json:"clinic_id" validate:"required"`
	BookingID string `json:"booking_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
	Token     *int   `json:"token,omitempty"`
}

type EditStatusResponse struct {
	BookingID string `json:"booking_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type CloseTableRequest struct {
	ClinicID uint   `json:"clinic_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Force    bool   `json:"force,omitempty"`
}

type SaveSnapshotRequest struct {
	ClinicID uint   `json:"clinic_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
}

type VerifyCodeRequest struct {
	ClinicID uint   `json:"clinic_id" validate:"required"`
	Code     string `json:"code" validate:"required,len=4,number"`
}

type BookingEntryResponse struct {
	BookingID   string    `json:"booking_id"`
	Token       *int      `json:"token"`
	PatientID   uint      `json:"patient_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	SecretaryID *uint     `json:"secretary_id,omitempty"`
	Code        string    `json:"code,omitempty"`
}

type DayResponse struct {
	Date          string                 `json:"date"`
	Origin        string                 `json:"origin"`
	Status        string                 `json:"status"`
	CapacityTotal int                    `json:"capacity_total"`
	CapacityUsed  int                    `json:"capacity_used"`
	Entries       []BookingEntryResponse `json:"entries"`
}

// FeedSnapshot is the change-feed payload: the cleaned ledger plus a content
// hash stream clients compare between polls.
type FeedSnapshot struct {
	ClinicID uint                   `json:"clinic_id"`
	Days     map[string]DayResponse `json:"days"`
	Hash     string                 `json:"hash"`
}

type ArchiveResponse struct {
	ClinicID          uint                   `json:"clinic_id"`
	Date              string                 `json:"date"`
	CapacityTotal     int                    `json:"capacity_total"`
	CapacityServed    int                    `json:"capacity_served"`
	CapacityCancelled int                    `json:"capacity_cancelled"`
	Entries           []BookingEntryResponse `json:"entries"`
	ArchivedAt        time.Time              `json:"archived_at"`
}

type ArchiveListResponse struct {
	Archives []ArchiveResponse `json:"archives"`
	Total    int               `json:"total"`
}
