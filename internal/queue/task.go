package queue

import (
	"errors"
	"fmt"
	"strconv"
)

type TaskType string

const (
	// TaskTypeTicketDeflection runs the deflection pipeline for one ticket.
	TaskTypeTicketDeflection TaskType = "ticket_deflection"
	// TaskTypePatternAnalysis clusters an account's recent tickets into insights.
	TaskTypePatternAnalysis TaskType = "pattern_analysis"
)

type Task struct {
	TaskType  TaskType
	AccountID int64
	TicketID  *int64
	RunID     *int64

	// WindowDays bounds the ticket history a pattern analysis reads.
	WindowDays int

	TraceID *string
	Attempt int
}

// Validate checks the ids each task type needs.
func (t Task) Validate() error {
	if t.AccountID == 0 {
		return errors.New("missing account_id")
	}
	switch t.TaskType {
	case TaskTypeTicketDeflection:
		if t.TicketID == nil {
			return errors.New("missing ticket_id")
		}
	case TaskTypePatternAnalysis:
		if t.RunID == nil {
			return errors.New("missing run_id")
		}
	case "":
		return errors.New("missing task_type")
	default:
		return fmt.Errorf("unknown task_type %q", t.TaskType)
	}
	return nil
}

// Fields encodes the task as stream entry values. Unset optional ids are
// omitted and the attempt counter starts at 1.
func (t Task) Fields() map[string]any {
	attempt := t.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	values := map[string]any{
		"task_type":  string(t.TaskType),
		"account_id": t.AccountID,
		"attempt":    attempt,
	}
	if t.TicketID != nil {
		values["ticket_id"] = *t.TicketID
	}
	if t.RunID != nil {
		values["run_id"] = *t.RunID
	}
	if t.WindowDays > 0 {
		values["window_days"] = t.WindowDays
	}
	if t.TraceID != nil && *t.TraceID != "" {
		values["trace_id"] = *t.TraceID
	}
	return values
}

// DecodeTask is the inverse of Fields and validates the result.
func DecodeTask(values map[string]any) (Task, error) {
	r := fieldReader{values: values}
	t := Task{
		TaskType:   TaskType(r.string("task_type")),
		TicketID:   r.int64("ticket_id"),
		RunID:      r.int64("run_id"),
		WindowDays: int(r.int64Value("window_days")),
		Attempt:    int(r.int64Value("attempt")),
	}
	if id := r.int64("account_id"); id != nil {
		t.AccountID = *id
	}
	if trace := r.string("trace_id"); trace != "" {
		t.TraceID = &trace
	}
	if r.err != nil {
		return Task{}, r.err
	}
	if t.Attempt <= 0 {
		t.Attempt = 1
	}
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// fieldReader parses stream values, keeping the first error.
type fieldReader struct {
	values map[string]any
	err    error
}

func (r *fieldReader) string(key string) string {
	raw, ok := r.values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}

func (r *fieldReader) int64(key string) *int64 {
	raw, ok := r.values[key]
	if !ok || r.err != nil {
		return nil
	}
	n, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
	if err != nil {
		r.err = fmt.Errorf("parsing %s: %w", key, err)
		return nil
	}
	return &n
}

func (r *fieldReader) int64Value(key string) int64 {
	if n := r.int64(key); n != nil {
		return *n
	}
	return 0
}
