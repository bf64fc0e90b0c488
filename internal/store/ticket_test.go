package store

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/jackc/pgx/v5"

	"deflect.app/relay/internal/model"
)

var _ = Describe("embedding conversion", func() {
	It("round-trips through pgvector", func() {
		in := []float64{0.5, -0.25, 1}
		Expect(fromVector(toVector(in))).To(Equal(in))
	})

	It("stores absent embeddings as NULL", func() {
		Expect(toVector(nil)).To(BeNil())
		Expect(fromVector(nil)).To(BeNil())
	})
})

var _ = Describe("notFound", func() {
	It("maps pgx.ErrNoRows to ErrNotFound", func() {
		Expect(notFound(fmt.Errorf("scan: %w", pgx.ErrNoRows))).To(Equal(ErrNotFound))
	})

	It("passes other errors through", func() {
		boom := errors.New("boom")
		Expect(notFound(boom)).To(Equal(boom))
	})
})

var _ = Describe("sentimentValue", func() {
	It("converts to a nullable string", func() {
		s := model.SentimentNegative
		Expect(*sentimentValue(&s)).To(Equal("negative"))
		Expect(sentimentValue(nil)).To(BeNil())
	})
})
