package entity

import "time"

// SlotLedger is the persisted form of a ClinicLedger: one row per
// (clinic, kind) holding the whole date→day map as a JSON document.
// Version is bumped on every committed write and guards against lost
// updates from concurrent writers.
type SlotLedger struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ClinicID  uint      `gorm:"not null;uniqueIndex:idx_slot_ledgers_clinic_kind" json:"clinic_id"`
	Kind      QueueKind `gorm:"type:varchar(16);not null;uniqueIndex:idx_slot_ledgers_clinic_kind" json:"kind"`
	Document  []byte    `gorm:"type:jsonb;not null" json:"document"`
	Version   int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SlotLedger) TableName() string {
	return "slot_ledgers"
}
