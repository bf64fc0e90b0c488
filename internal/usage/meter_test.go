package usage

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deflect.app/relay/internal/deflection"
)

var _ = Describe("RedisMeter", func() {
	Describe("evaluate", func() {
		It("allows usage below the limit", func() {
			Expect(evaluate(99, 100)).To(Equal(deflection.QuotaStatus{Allowed: true, Used: 99, Limit: 100}))
		})

		It("blocks at the limit", func() {
			Expect(evaluate(100, 100).Allowed).To(BeFalse())
		})

		It("treats a non-positive limit as unlimited", func() {
			Expect(evaluate(1_000_000, 0).Allowed).To(BeTrue())
		})
	})

	Describe("keys", func() {
		t := time.Date(2026, 3, 31, 23, 30, 0, 0, time.FixedZone("PDT", -7*3600))

		It("buckets by UTC month", func() {
			Expect(counterKey(42, "ai_responses", t)).To(Equal("usage:{42}:ai_responses:202604"))
		})

		It("shares the hash tag between counter and dedupe keys", func() {
			Expect(dedupeKey(42, "ai_responses", t, "1001")).To(Equal("usage:{42}:ai_responses:202604:seen:1001"))
		})
	})
})
