package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deflect.app/relay/core/config"
)

var _ = Describe("TraceHandler", func() {
	var (
		buf *bytes.Buffer
		log *slog.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log = slog.New(newHandler(config.Config{Env: "production"}, buf))
	})

	decode := func() map[string]any {
		var out map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &out)).To(Succeed())
		return out
	}

	It("adds context log fields to every record", func() {
		ctx := WithLogFields(context.Background(), LogFields{
			TicketID:  Ptr(int64(42)),
			AccountID: Ptr(int64(7)),
			Component: "deflect.pipeline",
		})

		log.InfoContext(ctx, "routed")

		line := decode()
		Expect(line["msg"]).To(Equal("routed"))
		Expect(line["ticket_id"]).To(BeNumerically("==", 42))
		Expect(line["account_id"]).To(BeNumerically("==", 7))
		Expect(line["component"]).To(Equal("deflect.pipeline"))
		Expect(line).NotTo(HaveKey("run_id"))
	})

	It("omits trace ids without an active span", func() {
		log.InfoContext(context.Background(), "plain")

		Expect(decode()).NotTo(HaveKey("trace_id"))
	})

	It("drops debug records in production", func() {
		log.DebugContext(context.Background(), "noise")

		Expect(buf.Len()).To(BeZero())
	})
})

var _ = DescribeTable("level",
	func(cfg config.Config, expected slog.Level) {
		Expect(level(cfg)).To(Equal(expected))
	},
	Entry("development defaults to debug", config.Config{Env: "development"}, slog.LevelDebug),
	Entry("production defaults to info", config.Config{Env: "production"}, slog.LevelInfo),
	Entry("explicit level wins", config.Config{Env: "development", LogLevel: "WARN"}, slog.LevelWarn),
	Entry("unknown level falls back", config.Config{Env: "production", LogLevel: "loud"}, slog.LevelInfo),
)

var _ = Describe("WithLogFields", func() {
	It("merges newer values over older ones", func() {
		ctx := WithLogFields(context.Background(), LogFields{AccountID: Ptr(int64(1)), Component: "a"})
		ctx = WithLogFields(ctx, LogFields{TicketID: Ptr(int64(2)), Component: "b"})

		fields := GetLogFields(ctx)
		Expect(*fields.AccountID).To(Equal(int64(1)))
		Expect(*fields.TicketID).To(Equal(int64(2)))
		Expect(fields.Component).To(Equal("b"))
	})
})
