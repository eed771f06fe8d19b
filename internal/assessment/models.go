package assessment

import (
	"time"
)

// Submission is one completed assessment. Rows are never updated or deleted.
type Submission struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	Pincode         string    `gorm:"type:varchar(6);not null;index:idx_submissions_pincode_created,priority:1" json:"pincode"`
	Score           float64   `gorm:"not null" json:"score"`
	MaxScore        float64   `gorm:"not null;default:400" json:"max_score"`
	FingerprintHash string    `gorm:"type:char(64);not null;index:idx_submissions_fingerprint_created,priority:1" json:"-"`
	IPHash          string    `gorm:"type:char(64);not null;index:idx_submissions_ip_created,priority:1" json:"-"`
	UserAgentHash   *string   `gorm:"type:char(64)" json:"-"`
	CreatedAt       time.Time `gorm:"not null;index:idx_submissions_pincode_created,priority:2;index:idx_submissions_fingerprint_created,priority:2;index:idx_submissions_ip_created,priority:2" json:"created_at"`
}

// Percentage is the submission's score as a share of its own max score.
func (s Submission) Percentage() float64 {
	if s.MaxScore <= 0 {
		return 0
	}
	return s.Score / s.MaxScore * 100
}

// RegionAggregate is derived from the submissions for one pincode and is
// only ever written by a full recompute.
type RegionAggregate struct {
	Pincode          string    `gorm:"type:varchar(6);primaryKey" json:"pincode"`
	TotalAssessments int       `gorm:"not null;default:0;index" json:"total_assessments"`
	AverageScore     float64   `gorm:"not null;default:0" json:"average_score"`
	ExcellentCount   int       `gorm:"not null;default:0" json:"excellent_count"`
	GoodCount        int       `gorm:"not null;default:0" json:"good_count"`
	ModerateCount    int       `gorm:"not null;default:0" json:"moderate_count"`
	ConcerningCount  int       `gorm:"not null;default:0" json:"concerning_count"`
	LastUpdated      time.Time `gorm:"not null" json:"last_updated"`
}

// StressLevel grades the aggregate's average on the 400-point reference scale.
func (a RegionAggregate) StressLevel() (Level, string) {
	return StressLevel(a.AverageScore)
}

func (Submission) TableName() string      { return "assessment.submissions" }
func (RegionAggregate) TableName() string { return "assessment.region_aggregates" }
