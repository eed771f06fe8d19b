package doctors

import "time"

type Doctor struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Specialist string    `gorm:"size:100;not null;index" json:"specialist"`
	Fees       float64   `gorm:"type:numeric(10,2);not null" json:"fees"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Doctor) TableName() string { return "directory.doctors" }
