package hospitals

import "time"

type Hospital struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string    `gorm:"size:200;not null" json:"name"`
	EmergencyNumber string    `gorm:"size:20;not null" json:"emergency_number"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Hospital) TableName() string { return "directory.hospitals" }
