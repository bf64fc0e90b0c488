package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deflect.app/relay/internal/model"
)

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

type fakeQuerier struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	sql        string
	args       []any
}

func (q *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql, q.args = sql, args
	return q.execFn(ctx, sql, args...)
}

func (q *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.sql, q.args = sql, args
	return q.queryRowFn(ctx, sql, args...)
}

var _ = Describe("analysisRunStore", func() {
	var (
		ctx context.Context
		q   *fakeQuerier
		s   AnalysisRunStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		q = &fakeQuerier{}
		s = newAnalysisRunStore(q)
	})

	Describe("Claim", func() {
		It("takes pending runs and expired leases only", func() {
			q.queryRowFn = func(context.Context, string, ...any) pgx.Row {
				return rowFunc(func(dest ...any) error {
					*dest[0].(*int64) = 500
					*dest[4].(*string) = "running"
					return nil
				})
			}

			run, ok, err := s.Claim(ctx, 500, 10*time.Minute)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(run.ID).To(Equal(int64(500)))
			Expect(run.Status).To(Equal(model.AnalysisStatusRunning))
			Expect(q.sql).To(ContainSubstring("status = $4 OR (status = $2 AND (lease_until IS NULL OR lease_until < now()))"))
			Expect(q.args).To(Equal([]any{int64(500), "running", float64(600), "pending"}))
		})

		It("reports a run held by another worker as not claimed", func() {
			q.queryRowFn = func(context.Context, string, ...any) pgx.Row {
				return rowFunc(func(...any) error { return pgx.ErrNoRows })
			}

			run, ok, err := s.Claim(ctx, 500, time.Minute)

			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(run).To(BeNil())
		})

		It("wraps database errors", func() {
			q.queryRowFn = func(context.Context, string, ...any) pgx.Row {
				return rowFunc(func(...any) error { return errors.New("connection reset") })
			}

			_, ok, err := s.Claim(ctx, 500, time.Minute)

			Expect(ok).To(BeFalse())
			Expect(err).To(MatchError(ContainSubstring("claiming analysis run")))
		})
	})

	Describe("Renew", func() {
		It("returns ErrNotFound once the run is no longer running", func() {
			q.execFn = func(context.Context, string, ...any) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("UPDATE 0"), nil
			}

			Expect(s.Renew(ctx, 500, time.Minute)).To(MatchError(ErrNotFound))
			Expect(q.args).To(Equal([]any{int64(500), float64(60), "running"}))
		})
	})
})
