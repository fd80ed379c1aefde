package entity

import "time"

// Clinic carries the configuration the ledger engine reads for a clinic:
// daily patient-receiving counts per queue, the working-day window and the
// clinic's local timezone. Clinic management itself lives elsewhere; this
// service only ever reads these rows.
type Clinic struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	Name string `gorm:"type:varchar(255);not null" json:"name"`

	// Patient-receiving counts used as default day capacities.
	DailyCapacity    int `gorm:"not null;default:0" json:"daily_capacity"`
	PriorityCapacity int `gorm:"not null;default:0" json:"priority_capacity"`

	// Working-day window, inclusive, as Arabic weekday names over a
	// Saturday-first week (e.g. "السبت".."الخميس" for Sat–Thu).
	WorkStartDay string `gorm:"type:varchar(32)" json:"work_start_day"`
	WorkEndDay   string `gorm:"type:varchar(32)" json:"work_end_day"`

	// IANA timezone name; empty means the configured service default.
	Timezone string `gorm:"type:varchar(64)" json:"timezone"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Clinic) TableName() string {
	return "clinics"
}

// CapacityFor returns the clinic's configured default capacity for a queue
// kind; zero means unconfigured.
func (c *Clinic) CapacityFor(kind QueueKind) int {
	if kind == QueuePriority {
		return c.PriorityCapacity
	}
	return c.DailyCapacity
}
