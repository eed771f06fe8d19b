package assessment_test

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/mindbloom/mindbloom-backend/internal/assessment"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func submitReq(pincode string, score float64, fp, ip string) assessment.SubmitRequest {
	return assessment.SubmitRequest{
		Pincode:     pincode,
		Score:       score,
		MaxScore:    400,
		Fingerprint: fp,
		IP:          ip,
		UserAgent:   "Mozilla/5.0",
	}
}

var _ = Describe("HashValue", func() {
	It("returns the lowercase hex SHA-256 digest", func() {
		Expect(assessment.HashValue("abc")).To(Equal("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"))
	})

	It("is deterministic and 64 characters long", func() {
		h := assessment.HashValue("203.0.113.5")
		Expect(h).To(HaveLen(64))
		Expect(assessment.HashValue("203.0.113.5")).To(Equal(h))
		Expect(assessment.HashValue("203.0.113.6")).NotTo(Equal(h))
	})
})

var _ = Describe("Classify", func() {
	DescribeTable("maps percentages onto levels",
		func(pct float64, want assessment.Level) {
			Expect(assessment.Classify(pct)).To(Equal(want))
		},
		Entry("zero", 0.0, assessment.LevelExcellent),
		Entry("30 is still excellent", 30.0, assessment.LevelExcellent),
		Entry("just above 30", 30.01, assessment.LevelGood),
		Entry("50 is still good", 50.0, assessment.LevelGood),
		Entry("75 is still moderate", 75.0, assessment.LevelModerate),
		Entry("just above 75", 75.01, assessment.LevelConcerning),
		Entry("above max", 120.0, assessment.LevelConcerning),
	)

	It("grades region averages against the 400 reference", func() {
		level, color := assessment.StressLevel(183.33)
		Expect(level).To(Equal(assessment.LevelGood))
		Expect(color).To(Equal("#fbbf24"))

		level, color = assessment.StressLevel(120)
		Expect(level).To(Equal(assessment.LevelExcellent))
		Expect(color).To(Equal("#10b981"))

		level, color = assessment.StressLevel(301)
		Expect(level).To(Equal(assessment.LevelConcerning))
		Expect(color).To(Equal("#ef4444"))
	})
})

var _ = Describe("Service", func() {
	var (
		ctx  context.Context
		repo *memRepo
		clk  *clock
		svc  *assessment.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMemRepo()
		clk = newClock()
		svc = newService(repo, clk)
	})

	Describe("Submit", func() {
		It("recomputes the aggregate after every submission", func() {
			_, err := svc.Submit(ctx, submitReq("110001", 50, "fp-a", "198.51.100.1"))
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Submit(ctx, submitReq("110001", 150, "fp-b", "198.51.100.2"))
			Expect(err).NotTo(HaveOccurred())
			res, err := svc.Submit(ctx, submitReq("110001", 350, "fp-c", "198.51.100.3"))
			Expect(err).NotTo(HaveOccurred())

			agg := res.Aggregate
			Expect(agg.TotalAssessments).To(Equal(3))
			Expect(assessment.Round2(agg.AverageScore)).To(Equal(183.33))
			Expect(agg.ExcellentCount).To(Equal(1))
			Expect(agg.GoodCount).To(Equal(1))
			Expect(agg.ModerateCount).To(Equal(0))
			Expect(agg.ConcerningCount).To(Equal(1))

			level, _ := agg.StressLevel()
			Expect(level).To(Equal(assessment.LevelGood))
		})

		It("stores only hashes of the identity values", func() {
			res, err := svc.Submit(ctx, submitReq("400001", 100, "device-123", "203.0.113.7"))
			Expect(err).NotTo(HaveOccurred())

			sub := res.Submission
			Expect(sub.ID).NotTo(BeEmpty())
			Expect(sub.FingerprintHash).To(Equal(assessment.HashValue("device-123")))
			Expect(sub.IPHash).To(Equal(assessment.HashValue("203.0.113.7")))
			Expect(sub.UserAgentHash).NotTo(BeNil())
			Expect(*sub.UserAgentHash).To(Equal(assessment.HashValue("Mozilla/5.0")))
			Expect(sub.CreatedAt).To(Equal(clk.Now()))
		})

		It("leaves the user agent hash empty when no user agent was sent", func() {
			req := submitReq("400001", 100, "device-123", "203.0.113.7")
			req.UserAgent = ""
			res, err := svc.Submit(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Submission.UserAgentHash).To(BeNil())
		})

		DescribeTable("rejects malformed input without storing anything",
			func(req assessment.SubmitRequest, field string) {
				_, err := svc.Submit(ctx, req)
				var ve *utils.ValidationError
				Expect(errors.As(err, &ve)).To(BeTrue(), "got %v", err)
				Expect(ve.Field).To(Equal(field))
				Expect(repo.count()).To(BeZero())
			},
			Entry("missing fingerprint", submitReq("110001", 10, "", "1.1.1.1"), ""),
			Entry("five digits", submitReq("11000", 10, "fp", "1.1.1.1"), "pincode"),
			Entry("letters", submitReq("11000a", 10, "fp", "1.1.1.1"), "pincode"),
			Entry("negative score", submitReq("110001", -1, "fp", "1.1.1.1"), "score"),
			Entry("zero max score", assessment.SubmitRequest{Pincode: "110001", Score: 1, Fingerprint: "fp", IP: "1.1.1.1"}, "max_score"),
		)

		It("reports unknown regions as not found", func() {
			_, err := svc.Submit(ctx, submitReq("999999", 10, "fp", "1.1.1.1"))
			var nf *utils.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(repo.count()).To(BeZero())
		})

		It("surfaces region lookup failures as server errors", func() {
			_, err := svc.Submit(ctx, submitReq("500500", 10, "fp", "1.1.1.1"))
			Expect(err).To(HaveOccurred())
			Expect(utils.StatusFor(err)).To(Equal(500))
		})

		It("propagates store failures", func() {
			repo.failCreate = true
			_, err := svc.Submit(ctx, submitReq("110001", 10, "fp", "1.1.1.1"))
			var se *utils.StoreError
			Expect(errors.As(err, &se)).To(BeTrue())
		})

		It("accepts a score above max_score and buckets it as concerning", func() {
			req := submitReq("110001", 50, "fp", "1.1.1.1")
			req.MaxScore = 40
			res, err := svc.Submit(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Aggregate.ConcerningCount).To(Equal(1))
		})
	})

	Describe("cooldown", func() {
		BeforeEach(func() {
			_, err := svc.Submit(ctx, submitReq("110001", 100, "fp-1", "10.0.0.1"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("blocks a second submission from the same fingerprint", func() {
			clk.Advance(time.Hour)
			_, err := svc.Submit(ctx, submitReq("110001", 100, "fp-1", "10.0.0.99"))
			var rl *utils.RateLimitedError
			Expect(errors.As(err, &rl)).To(BeTrue())
			Expect(rl.DaysRemaining).To(Equal(3))
			Expect(repo.count()).To(Equal(1))
		})

		It("blocks a different fingerprint from the same IP", func() {
			clk.Advance(time.Hour)
			_, err := svc.Submit(ctx, submitReq("400001", 100, "fp-2", "10.0.0.1"))
			var rl *utils.RateLimitedError
			Expect(errors.As(err, &rl)).To(BeTrue())
		})

		It("lets unrelated users through", func() {
			_, err := svc.Submit(ctx, submitReq("110001", 100, "fp-2", "10.0.0.2"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("counts down whole days and reopens at exactly three days", func() {
			fp := assessment.HashValue("fp-1")
			ip := assessment.HashValue("10.0.0.1")

			steps := []struct {
				after time.Duration
				want  int
			}{
				{time.Minute, 3},
				{24*time.Hour + time.Minute, 2},
				{48*time.Hour + time.Minute, 1},
				{72*time.Hour - time.Second, 1},
			}
			start := clk.Now()
			prev := 4
			for _, step := range steps {
				clk.t = start.Add(step.after)
				elig, err := svc.CheckEligibility(ctx, fp, ip)
				Expect(err).NotTo(HaveOccurred())
				Expect(elig.Allowed).To(BeFalse())
				Expect(elig.DaysRemaining).To(Equal(step.want))
				Expect(elig.DaysRemaining).To(BeNumerically("<=", prev))
				prev = elig.DaysRemaining
			}

			clk.t = start.Add(72 * time.Hour)
			elig, err := svc.CheckEligibility(ctx, fp, ip)
			Expect(err).NotTo(HaveOccurred())
			Expect(elig.Allowed).To(BeTrue())
			Expect(elig.DaysRemaining).To(BeZero())
		})

		It("uses the most recent matching submission", func() {
			clk.Advance(72 * time.Hour)
			_, err := svc.Submit(ctx, submitReq("110001", 100, "fp-1", "10.0.0.1"))
			Expect(err).NotTo(HaveOccurred())

			clk.Advance(25 * time.Hour)
			elig, err := svc.CheckEligibility(ctx, assessment.HashValue("fp-1"), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(elig.DaysRemaining).To(Equal(2))
		})
	})

	Describe("Append", func() {
		It("stores without touching the aggregate", func() {
			sub, err := svc.Append(ctx, assessment.AppendInput{
				Pincode:         "560001",
				Score:           200,
				MaxScore:        400,
				FingerprintHash: assessment.HashValue("x"),
				IPHash:          assessment.HashValue("y"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.Pincode).To(Equal("560001"))

			agg, err := svc.RegionStats(ctx, "560001")
			Expect(err).NotTo(HaveOccurred())
			Expect(agg).To(BeNil())
		})
	})

	Describe("Recompute", func() {
		It("produces zeros for a region without submissions", func() {
			agg, err := svc.Recompute(ctx, "560001")
			Expect(err).NotTo(HaveOccurred())
			Expect(agg.TotalAssessments).To(BeZero())
			Expect(agg.AverageScore).To(BeZero())
			Expect(agg.ExcellentCount + agg.GoodCount + agg.ModerateCount + agg.ConcerningCount).To(BeZero())
		})

		It("keeps bucket counts summing to the total", func() {
			rng := rand.New(rand.NewSource(42))
			var sum float64
			for i := 0; i < 200; i++ {
				score := float64(rng.Intn(401))
				sum += score
				_, err := svc.Append(ctx, assessment.AppendInput{
					Pincode:         "110001",
					Score:           score,
					MaxScore:        400,
					FingerprintHash: assessment.HashValue("fp"),
					IPHash:          assessment.HashValue("ip"),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			agg, err := svc.Recompute(ctx, "110001")
			Expect(err).NotTo(HaveOccurred())
			Expect(agg.TotalAssessments).To(Equal(200))
			Expect(agg.ExcellentCount + agg.GoodCount + agg.ModerateCount + agg.ConcerningCount).To(Equal(200))
			Expect(agg.AverageScore).To(BeNumerically("~", sum/200, 1e-9))
		})

		It("recomputes every submitted region", func() {
			_, err := svc.Submit(ctx, submitReq("110001", 10, "a", "1.1.1.1"))
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Submit(ctx, submitReq("400001", 390, "b", "2.2.2.2"))
			Expect(err).NotTo(HaveOccurred())

			n, err := svc.RecomputeAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})
	})

	Describe("RegionStats", func() {
		It("returns nil for a known region with no aggregate", func() {
			agg, err := svc.RegionStats(ctx, "400001")
			Expect(err).NotTo(HaveOccurred())
			Expect(agg).To(BeNil())
		})

		It("returns not found for an unknown region", func() {
			_, err := svc.RegionStats(ctx, "999999")
			var nf *utils.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
		})
	})

	Describe("ListStats", func() {
		BeforeEach(func() {
			_, err := svc.Submit(ctx, submitReq("110001", 40, "a", "1.1.1.1"))
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Submit(ctx, submitReq("400001", 380, "b", "2.2.2.2"))
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Submit(ctx, submitReq("400001", 390, "c", "3.3.3.3"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("filters by minimum count", func() {
			aggs, err := svc.ListStats(ctx, 2, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(aggs).To(HaveLen(1))
			Expect(aggs[0].Pincode).To(Equal("400001"))
		})

		It("filters by stress level", func() {
			aggs, err := svc.ListStats(ctx, 0, assessment.LevelExcellent)
			Expect(err).NotTo(HaveOccurred())
			Expect(aggs).To(HaveLen(1))
			Expect(aggs[0].Pincode).To(Equal("110001"))
		})

		It("rejects unknown levels", func() {
			_, err := svc.ListStats(ctx, 0, assessment.Level("calm"))
			Expect(utils.StatusFor(err)).To(Equal(400))
		})
	})
})
