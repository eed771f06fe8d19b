package assessment_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mindbloom/mindbloom-backend/internal/assessment"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
)

// memRepo is an in-memory assessment.Repository.
type memRepo struct {
	mu         sync.Mutex
	subs       []assessment.Submission
	aggregates map[string]assessment.RegionAggregate
	failCreate bool
}

func newMemRepo() *memRepo {
	return &memRepo{aggregates: map[string]assessment.RegionAggregate{}}
}

func (m *memRepo) LatestSubmission(_ context.Context, fp, ip string, since time.Time) (*assessment.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *assessment.Submission
	for i := range m.subs {
		s := m.subs[i]
		if !s.CreatedAt.After(since) {
			continue
		}
		if s.FingerprintHash != fp && (ip == "" || s.IPHash != ip) {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = &s
		}
	}
	return latest, nil
}

func (m *memRepo) CreateSubmission(_ context.Context, s *assessment.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return utils.Store("create submission", errors.New("connection reset by peer"))
	}
	m.subs = append(m.subs, *s)
	return nil
}

func (m *memRepo) SubmissionsByPincode(_ context.Context, pincode string) ([]assessment.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []assessment.Submission
	for _, s := range m.subs {
		if s.Pincode == pincode {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memRepo) SubmittedPincodes(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, s := range m.subs {
		if !seen[s.Pincode] {
			seen[s.Pincode] = true
			out = append(out, s.Pincode)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memRepo) UpsertAggregate(_ context.Context, a *assessment.RegionAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregates[a.Pincode] = *a
	return nil
}

func (m *memRepo) FindAggregate(_ context.Context, pincode string) (*assessment.RegionAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.aggregates[pincode]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memRepo) ListAggregates(_ context.Context, min int) ([]assessment.RegionAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []assessment.RegionAggregate
	for _, a := range m.aggregates {
		if a.TotalAssessments >= min {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pincode < out[j].Pincode })
	return out, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// regionSet is a fixed set of known pincodes.
type regionSet map[string]bool

func (r regionSet) RegionExists(_ context.Context, pincode string) (bool, error) {
	if pincode == "500500" {
		return false, errors.New("boundary table unavailable")
	}
	return r[pincode], nil
}

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func newService(repo *memRepo, c *clock) *assessment.Service {
	svc := assessment.NewService(repo, regionSet{"110001": true, "400001": true, "560001": true})
	svc.Now = c.Now
	return svc
}
