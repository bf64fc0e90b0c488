package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/segmentio/kafka-go"

	"deflect.app/relay/internal/model"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("KafkaPublisher", func() {
	var (
		responses *fakeWriter
		insights  *fakeWriter
		publisher *KafkaPublisher
		now       time.Time
	)

	BeforeEach(func() {
		responses = &fakeWriter{}
		insights = &fakeWriter{}
		publisher = newKafkaPublisher(responses, insights)
		now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		publisher.now = func() time.Time { return now }
	})

	It("publishes responses keyed by ticket id", func() {
		channel := "email:thread-9"
		ticket := &model.Ticket{ID: 1001, AccountID: 42, CustomerContact: "jane@example.com", ChannelRef: &channel}
		resp := &model.CandidateResponse{ID: 7, Content: "Use the reset link.", Confidence: 0.93}

		Expect(publisher.Deliver(context.Background(), ticket, resp)).To(Succeed())
		Expect(responses.messages).To(HaveLen(1))
		Expect(string(responses.messages[0].Key)).To(Equal("1001"))

		var out OutboundMessage
		Expect(json.Unmarshal(responses.messages[0].Value, &out)).To(Succeed())
		Expect(out.ResponseID).To(Equal(int64(7)))
		Expect(*out.ChannelRef).To(Equal("email:thread-9"))
		Expect(out.QueuedAt).To(Equal(now))
	})

	It("wraps broker errors", func() {
		responses.err = errors.New("leader not available")
		err := publisher.Deliver(context.Background(), &model.Ticket{ID: 1}, &model.CandidateResponse{ID: 2})
		Expect(err).To(MatchError(ContainSubstring("leader not available")))
	})

	It("publishes analysis events keyed by account", func() {
		run := &model.AnalysisRun{ID: 5, AccountID: 42, TicketCount: 120, ClusterCount: 9}
		Expect(publisher.PublishAnalysis(context.Background(), run, []model.DeflectionInsight{{ClusterID: 1}})).To(Succeed())
		Expect(string(insights.messages[0].Key)).To(Equal("42"))

		var ev AnalysisEvent
		Expect(json.Unmarshal(insights.messages[0].Value, &ev)).To(Succeed())
		Expect(ev.Insights).To(HaveLen(1))
		Expect(ev.TicketCount).To(Equal(120))
	})

	It("closes both writers", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(responses.closed).To(BeTrue())
		Expect(insights.closed).To(BeTrue())
	})
})
