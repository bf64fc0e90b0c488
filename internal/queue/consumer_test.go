package queue_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"deflect.app/relay/internal/queue"
)

var _ = Describe("ParseMessage", func() {
	It("parses a ticket deflection task", func() {
		msg, err := queue.ParseMessage(redis.XMessage{
			ID: "1-0",
			Values: map[string]any{
				"task_type":  "ticket_deflection",
				"account_id": "42",
				"ticket_id":  "1001",
				"attempt":    "2",
				"trace_id":   "abc",
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.TaskType).To(Equal(queue.TaskTypeTicketDeflection))
		Expect(msg.AccountID).To(Equal(int64(42)))
		Expect(*msg.TicketID).To(Equal(int64(1001)))
		Expect(msg.Attempt).To(Equal(2))
		Expect(msg.TraceID).To(Equal("abc"))
	})

	It("parses a pattern analysis task and defaults the attempt", func() {
		msg, err := queue.ParseMessage(redis.XMessage{
			ID: "2-0",
			Values: map[string]any{
				"task_type":   "pattern_analysis",
				"account_id":  "42",
				"run_id":      "7",
				"window_days": "30",
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(*msg.RunID).To(Equal(int64(7)))
		Expect(msg.WindowDays).To(Equal(30))
		Expect(msg.Attempt).To(Equal(1))
	})

	DescribeTable("rejects malformed messages",
		func(values map[string]any, want string) {
			_, err := queue.ParseMessage(redis.XMessage{ID: "3-0", Values: values})
			Expect(err).To(MatchError(ContainSubstring(want)))
		},
		Entry("no task type", map[string]any{"account_id": "1"}, "missing task_type"),
		Entry("no account", map[string]any{"task_type": "ticket_deflection", "ticket_id": "1"}, "missing account_id"),
		Entry("deflection without ticket", map[string]any{"task_type": "ticket_deflection", "account_id": "1"}, "missing ticket_id"),
		Entry("analysis without run", map[string]any{"task_type": "pattern_analysis", "account_id": "1"}, "missing run_id"),
		Entry("unknown type", map[string]any{"task_type": "repo_sync", "account_id": "1"}, "unknown task_type"),
		Entry("bad number", map[string]any{"task_type": "ticket_deflection", "account_id": "x"}, "parsing account_id"),
	)
})

var _ = Describe("Task", func() {
	It("defaults the attempt and omits unset ids", func() {
		ticketID := int64(9)
		fields := queue.Task{TaskType: queue.TaskTypeTicketDeflection, AccountID: 3, TicketID: &ticketID}.Fields()

		Expect(fields).To(Equal(map[string]any{
			"task_type":  "ticket_deflection",
			"account_id": int64(3),
			"attempt":    1,
			"ticket_id":  int64(9),
		}))
	})

	It("survives a requeue with the next attempt", func() {
		original, err := queue.ParseMessage(redis.XMessage{ID: "4-0", Values: map[string]any{
			"task_type":  "ticket_deflection",
			"account_id": "5",
			"ticket_id":  "77",
			"trace_id":   "4bf92f3577b34da6a3ce929d0e0e4736",
		}})
		Expect(err).NotTo(HaveOccurred())

		requeued, err := queue.DecodeTask(original.Task(original.Attempt + 1).Fields())

		Expect(err).NotTo(HaveOccurred())
		Expect(requeued.Attempt).To(Equal(2))
		Expect(*requeued.TicketID).To(Equal(int64(77)))
		Expect(*requeued.TraceID).To(Equal(original.TraceID))
	})

	It("refuses to enqueue an incomplete task", func() {
		Expect(queue.Task{TaskType: queue.TaskTypePatternAnalysis, AccountID: 1}.Validate()).
			To(MatchError("missing run_id"))
	})
})
