package converter

import (
	"encoding/json"

	"clinic-backoffice/internal/delivery/dto"
	"clinic-backoffice/internal/domain/entity"
)

// EntryToResponse converts a booking entry. When includeInternal is false the
// priority verification code and the secretary id are scrubbed; the public
// change feed must never leak them.
func EntryToResponse(e *entity.BookingEntry, includeInternal bool) dto.BookingEntryResponse {
	resp := dto.BookingEntryResponse{
		BookingID: e.BookingID,
		Token:     e.Token,
		PatientID: e.PatientID,
		Name:      e.Name,
		Phone:     e.Phone,
		Status:    string(e.Status),
		CreatedAt: e.CreatedAt,
	}
	if includeInternal {
		resp.SecretaryID = e.SecretaryID
		resp.Code = e.Code
	}
	return resp
}

func DayToResponse(date string, day *entity.DaySlotTable, includeInternal bool) dto.DayResponse {
	entries := make([]dto.BookingEntryResponse, 0, len(day.Entries))
	for i := range day.Entries {
		entries = append(entries, EntryToResponse(&day.Entries[i], includeInternal))
	}
	return dto.DayResponse{
		Date:          date,
		Origin:        string(day.Origin),
		Status:        string(day.Status),
		CapacityTotal: day.CapacityTotal,
		CapacityUsed:  day.CapacityUsed,
		Entries:       entries,
	}
}

func LedgerToDays(ledger *entity.ClinicLedger, includeInternal bool) map[string]dto.DayResponse {
	days := make(map[string]dto.DayResponse, len(ledger.Days))
	for date, day := range ledger.Days {
		days[date] = DayToResponse(date, day, includeInternal)
	}
	return days
}

func ArchiveToResponse(record *entity.ArchiveRecord) dto.ArchiveResponse {
	var entries []entity.BookingEntry
	// A snapshot that fails to decode still yields the aggregate counts.
	_ = json.Unmarshal(record.Entries, &entries)

	responses := make([]dto.BookingEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, EntryToResponse(&entries[i], true))
	}
	return dto.ArchiveResponse{
		ClinicID:          record.ClinicID,
		Date:              record.Date,
		CapacityTotal:     record.CapacityTotal,
		CapacityServed:    record.CapacityServed,
		CapacityCancelled: record.CapacityCancelled,
		Entries:           responses,
		ArchivedAt:        record.UpdatedAt,
	}
}
