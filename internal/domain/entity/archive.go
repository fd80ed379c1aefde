package entity

import "time"

// ArchiveRecord is the frozen, queryable record of one (clinic, kind, date)
// after its day is closed or has passed. Entries holds the JSON snapshot of
// the day's booking list at archival time.
type ArchiveRecord struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ClinicID          uint      `gorm:"not null;uniqueIndex:idx_archive_clinic_kind_date" json:"clinic_id"`
	Kind              QueueKind `gorm:"type:varchar(16);not null;uniqueIndex:idx_archive_clinic_kind_date" json:"kind"`
	Date              string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_archive_clinic_kind_date" json:"date"`
	CapacityTotal     int       `gorm:"not null" json:"capacity_total"`
	CapacityServed    int       `gorm:"not null" json:"capacity_served"`
	CapacityCancelled int       `gorm:"not null" json:"capacity_cancelled"`
	Entries           []byte    `gorm:"type:jsonb;not null" json:"entries"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ArchiveRecord) TableName() string {
	return "archive_records"
}
