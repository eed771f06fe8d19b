package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistence the assessment service needs.
type Repository interface {
	// LatestSubmission returns the most recent submission created after since
	// whose fingerprint hash or IP hash matches, or nil if there is none.
	LatestSubmission(ctx context.Context, fingerprintHash, ipHash string, since time.Time) (*Submission, error)
	CreateSubmission(ctx context.Context, s *Submission) error
	SubmissionsByPincode(ctx context.Context, pincode string) ([]Submission, error)
	SubmittedPincodes(ctx context.Context) ([]string, error)

	UpsertAggregate(ctx context.Context, a *RegionAggregate) error
	// FindAggregate returns nil, nil when the pincode has no aggregate row.
	FindAggregate(ctx context.Context, pincode string) (*RegionAggregate, error)
	ListAggregates(ctx context.Context, minAssessments int) ([]RegionAggregate, error)
}

// GormRepository stores submissions and aggregates in Postgres.
type GormRepository struct {
	DB *gorm.DB
}

func NewGormRepository(d *gorm.DB) *GormRepository {
	return &GormRepository{DB: d}
}

func (r *GormRepository) LatestSubmission(ctx context.Context, fingerprintHash, ipHash string, since time.Time) (*Submission, error) {
	q := r.DB.WithContext(ctx).Where("created_at > ?", since)
	if ipHash != "" {
		q = q.Where("(fingerprint_hash = ? OR ip_hash = ?)", fingerprintHash, ipHash)
	} else {
		q = q.Where("fingerprint_hash = ?", fingerprintHash)
	}

	var s Submission
	err := q.Order("created_at DESC").Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.Store("find latest submission", err)
	}
	return &s, nil
}

func (r *GormRepository) CreateSubmission(ctx context.Context, s *Submission) error {
	return utils.Store("create submission", r.DB.WithContext(ctx).Create(s).Error)
}

func (r *GormRepository) SubmissionsByPincode(ctx context.Context, pincode string) ([]Submission, error) {
	var subs []Submission
	err := r.DB.WithContext(ctx).
		Select("score", "max_score").
		Where("pincode = ?", pincode).
		Find(&subs).Error
	if err != nil {
		return nil, utils.Store("list submissions", err)
	}
	return subs, nil
}

func (r *GormRepository) SubmittedPincodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.DB.WithContext(ctx).
		Model(&Submission{}).
		Distinct("pincode").
		Order("pincode").
		Pluck("pincode", &codes).Error
	if err != nil {
		return nil, utils.Store("list submitted pincodes", err)
	}
	return codes, nil
}

func (r *GormRepository) UpsertAggregate(ctx context.Context, a *RegionAggregate) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pincode"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_assessments",
			"average_score",
			"excellent_count",
			"good_count",
			"moderate_count",
			"concerning_count",
			"last_updated",
		}),
	}).Create(a).Error
	return utils.Store("upsert region aggregate", err)
}

func (r *GormRepository) FindAggregate(ctx context.Context, pincode string) (*RegionAggregate, error) {
	var a RegionAggregate
	err := r.DB.WithContext(ctx).Where("pincode = ?", pincode).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.Store("find region aggregate", err)
	}
	return &a, nil
}

func (r *GormRepository) ListAggregates(ctx context.Context, minAssessments int) ([]RegionAggregate, error) {
	var out []RegionAggregate
	q := r.DB.WithContext(ctx)
	if minAssessments > 0 {
		q = q.Where("total_assessments >= ?", minAssessments)
	}
	if err := q.Order("pincode").Find(&out).Error; err != nil {
		return nil, utils.Store("list region aggregates", err)
	}
	return out, nil
}
