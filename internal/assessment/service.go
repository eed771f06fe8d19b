package assessment

import (
	"context"
	"math"
	"time"

	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	// CooldownDays is how long a fingerprint or IP must wait between submissions.
	CooldownDays = 3
	Cooldown     = CooldownDays * 24 * time.Hour
)

// RegionChecker reports whether a pincode is a known region.
type RegionChecker interface {
	RegionExists(ctx context.Context, pincode string) (bool, error)
}

type Service struct {
	Repo    Repository
	Regions RegionChecker
	Now     func() time.Time
}

func NewService(repo Repository, regions RegionChecker) *Service {
	return &Service{Repo: repo, Regions: regions, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Eligibility is the outcome of the cooldown gate.
type Eligibility struct {
	Allowed       bool `json:"can_submit"`
	DaysRemaining int  `json:"days_remaining"`
}

// CheckEligibility applies the cooldown to the most recent submission that
// shares either the fingerprint hash or the IP hash.
func (s *Service) CheckEligibility(ctx context.Context, fingerprintHash, ipHash string) (Eligibility, error) {
	now := s.now()
	latest, err := s.Repo.LatestSubmission(ctx, fingerprintHash, ipHash, now.Add(-Cooldown))
	if err != nil {
		return Eligibility{}, err
	}
	if latest == nil {
		return Eligibility{Allowed: true}, nil
	}
	return Eligibility{DaysRemaining: daysRemaining(now.Sub(latest.CreatedAt))}, nil
}

// daysRemaining is CooldownDays minus whole days elapsed, kept within
// [1, CooldownDays] so a clock-skewed timestamp never reads as eligible.
func daysRemaining(elapsed time.Duration) int {
	n := CooldownDays - int(elapsed/(24*time.Hour))
	if n < 1 {
		return 1
	}
	if n > CooldownDays {
		return CooldownDays
	}
	return n
}

// AppendInput is a submission whose identity fields are already hashed.
type AppendInput struct {
	Pincode         string
	Score           float64
	MaxScore        float64
	FingerprintHash string
	IPHash          string
	UserAgentHash   *string
}

func validateScores(pincode string, score, maxScore float64) error {
	if !utils.IsPincode(pincode) {
		return utils.Invalid("pincode", "Invalid pincode format. Must be 6 digits.")
	}
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return utils.Invalid("score", "Invalid score value")
	}
	if math.IsNaN(maxScore) || math.IsInf(maxScore, 0) || maxScore <= 0 {
		return utils.Invalid("max_score", "Invalid max_score value")
	}
	return nil
}

func (s *Service) ensureRegion(ctx context.Context, pincode string) error {
	ok, err := s.Regions.RegionExists(ctx, pincode)
	if err != nil {
		return err
	}
	if !ok {
		return utils.NotFound("pincode", pincode)
	}
	return nil
}

// Append validates and stores one submission. It does not touch aggregates.
func (s *Service) Append(ctx context.Context, in AppendInput) (*Submission, error) {
	if err := validateScores(in.Pincode, in.Score, in.MaxScore); err != nil {
		return nil, err
	}
	if err := s.ensureRegion(ctx, in.Pincode); err != nil {
		return nil, err
	}
	return s.insert(ctx, in)
}

func (s *Service) insert(ctx context.Context, in AppendInput) (*Submission, error) {
	sub := &Submission{
		ID:              utils.GenerateUUID(),
		Pincode:         in.Pincode,
		Score:           in.Score,
		MaxScore:        in.MaxScore,
		FingerprintHash: in.FingerprintHash,
		IPHash:          in.IPHash,
		UserAgentHash:   in.UserAgentHash,
		CreatedAt:       s.now(),
	}
	if err := s.Repo.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// SubmitRequest carries the raw identity values; Submit hashes them.
type SubmitRequest struct {
	Pincode     string
	Score       float64
	MaxScore    float64
	Fingerprint string
	IP          string
	UserAgent   string
}

type SubmitResult struct {
	Submission *Submission
	Aggregate  *RegionAggregate
}

// Submit runs the full submission flow: validate, confirm the region, gate on
// cooldown, append, then recompute the region aggregate.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.Pincode == "" || req.Fingerprint == "" {
		return nil, utils.Invalid("", "Pincode and fingerprint are required")
	}
	if err := validateScores(req.Pincode, req.Score, req.MaxScore); err != nil {
		return nil, err
	}
	if err := s.ensureRegion(ctx, req.Pincode); err != nil {
		return nil, err
	}

	in := AppendInput{
		Pincode:         req.Pincode,
		Score:           req.Score,
		MaxScore:        req.MaxScore,
		FingerprintHash: HashValue(req.Fingerprint),
		IPHash:          HashValue(req.IP),
	}
	if req.UserAgent != "" {
		ua := HashValue(req.UserAgent)
		in.UserAgentHash = &ua
	}

	elig, err := s.CheckEligibility(ctx, in.FingerprintHash, in.IPHash)
	if err != nil {
		return nil, err
	}
	if !elig.Allowed {
		return nil, &utils.RateLimitedError{DaysRemaining: elig.DaysRemaining}
	}

	sub, err := s.insert(ctx, in)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"pincode": sub.Pincode,
		"score":   sub.Score,
		"max":     sub.MaxScore,
	}).Info("assessment submitted")

	agg, err := s.Recompute(ctx, sub.Pincode)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Submission: sub, Aggregate: agg}, nil
}

// Summarize derives an aggregate from the full submission set of one pincode.
func Summarize(pincode string, subs []Submission, now time.Time) RegionAggregate {
	agg := RegionAggregate{Pincode: pincode, LastUpdated: now}
	if len(subs) == 0 {
		return agg
	}

	var total float64
	for _, sub := range subs {
		total += sub.Score
		switch Classify(sub.Percentage()) {
		case LevelExcellent:
			agg.ExcellentCount++
		case LevelGood:
			agg.GoodCount++
		case LevelModerate:
			agg.ModerateCount++
		default:
			agg.ConcerningCount++
		}
	}
	agg.TotalAssessments = len(subs)
	agg.AverageScore = total / float64(len(subs))
	return agg
}

// Recompute rebuilds the aggregate for pincode from every stored submission
// and upserts it.
func (s *Service) Recompute(ctx context.Context, pincode string) (*RegionAggregate, error) {
	if !utils.IsPincode(pincode) {
		return nil, utils.Invalid("pincode", "Invalid pincode format")
	}
	subs, err := s.Repo.SubmissionsByPincode(ctx, pincode)
	if err != nil {
		return nil, err
	}
	agg := Summarize(pincode, subs, s.now())
	if err := s.Repo.UpsertAggregate(ctx, &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// RecomputeAll rebuilds the aggregate of every pincode that has submissions.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	codes, err := s.Repo.SubmittedPincodes(ctx)
	if err != nil {
		return 0, err
	}
	for i, code := range codes {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := s.Recompute(ctx, code); err != nil {
			return i, err
		}
	}
	return len(codes), nil
}

// RegionStats returns the aggregate for pincode. It returns nil, nil when the
// region exists but nobody has submitted for it yet.
func (s *Service) RegionStats(ctx context.Context, pincode string) (*RegionAggregate, error) {
	if !utils.IsPincode(pincode) {
		return nil, utils.Invalid("pincode", "Invalid pincode format")
	}
	agg, err := s.Repo.FindAggregate(ctx, pincode)
	if err != nil {
		return nil, err
	}
	if agg != nil {
		return agg, nil
	}
	if err := s.ensureRegion(ctx, pincode); err != nil {
		return nil, err
	}
	return nil, nil
}

// ListStats returns aggregates with at least minAssessments submissions,
// optionally narrowed to one stress level.
func (s *Service) ListStats(ctx context.Context, minAssessments int, level Level) ([]RegionAggregate, error) {
	if minAssessments < 0 {
		return nil, utils.Invalid("min_assessments", "must not be negative")
	}
	if level != "" && !level.Valid() {
		return nil, utils.Invalid("stress_level", "must be one of excellent, good, moderate, concerning")
	}
	aggs, err := s.Repo.ListAggregates(ctx, minAssessments)
	if err != nil {
		return nil, err
	}
	if level == "" {
		return aggs, nil
	}
	out := aggs[:0]
	for _, a := range aggs {
		if l, _ := a.StressLevel(); l == level {
			out = append(out, a)
		}
	}
	return out, nil
}

// Round2 rounds to two decimal places for responses.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
