package worker_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deflect.app/relay/internal/queue"
	"deflect.app/relay/internal/worker"
)

var _ = Describe("Reclaimer", func() {
	var (
		ctx     context.Context
		claimer *mockClaimer
		handled []string
		cfg     worker.ReclaimerConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		handled = nil
		cfg = worker.ReclaimerConfig{MinIdle: time.Minute, Interval: time.Second, BatchSize: 10}
		claimer = &mockClaimer{claimFn: func(_ context.Context, minIdle time.Duration, count int64) ([]queue.Message, error) {
			Expect(minIdle).To(Equal(time.Minute))
			Expect(count).To(Equal(int64(10)))
			return []queue.Message{{ID: "1-0"}, {ID: "2-0"}}, nil
		}}
	})

	processor := func(_ context.Context, msg queue.Message) error {
		handled = append(handled, msg.ID)
		if msg.ID == "1-0" {
			return errors.New("still failing")
		}
		return nil
	}

	It("hands every claimed message to the processor", func() {
		n, err := worker.NewReclaimer(claimer, cfg, processor).ReclaimOnce(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
		Expect(handled).To(Equal([]string{"1-0", "2-0"}))
	})

	It("surfaces claim errors", func() {
		claimer.claimFn = func(context.Context, time.Duration, int64) ([]queue.Message, error) {
			return nil, errors.New("NOGROUP")
		}

		_, err := worker.NewReclaimer(claimer, cfg, processor).ReclaimOnce(ctx)
		Expect(err).To(MatchError(ContainSubstring("claiming stale messages")))
	})
})
