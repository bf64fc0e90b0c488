package cluster_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deflect.app/relay/internal/cluster"
)

var _ = Describe("CosineSimilarity", func() {
	It("is 0 for orthogonal vectors", func() {
		Expect(cluster.CosineSimilarity([]float64{1, 0}, []float64{0, 1})).To(BeZero())
	})

	It("is 1 for identical vectors", func() {
		v := []float64{0.3, -1.2, 4}
		Expect(cluster.CosineSimilarity(v, v)).To(BeNumerically("~", 1, 1e-12))
	})

	It("ignores magnitude", func() {
		Expect(cluster.CosineSimilarity([]float64{1, 2}, []float64{2, 4})).To(BeNumerically("~", 1, 1e-12))
	})

	It("is -1 for opposite vectors", func() {
		Expect(cluster.CosineSimilarity([]float64{1, 1}, []float64{-1, -1})).To(BeNumerically("~", -1, 1e-12))
	})

	It("is 0 against a zero vector", func() {
		Expect(cluster.CosineSimilarity([]float64{0, 0, 0}, []float64{1, 2, 3})).To(BeZero())
		Expect(cluster.CosineSimilarity([]float64{0, 0}, []float64{0, 0})).To(BeZero())
	})

	It("is 0 for mismatched or empty vectors", func() {
		Expect(cluster.CosineSimilarity([]float64{1}, []float64{1, 0})).To(BeZero())
		Expect(cluster.CosineSimilarity(nil, nil)).To(BeZero())
	})
})

var _ = Describe("NewCentroid", func() {
	It("weights the new member by 1/n", func() {
		Expect(cluster.NewCentroid([]float64{1, 1}, []float64{4, 7}, 3)).To(Equal([]float64{2, 3}))
	})

	It("starts from the first member", func() {
		next := []float64{0.5, 0.25}
		c := cluster.NewCentroid(nil, next, 1)
		Expect(c).To(Equal(next))
		c[0] = 9
		Expect(next[0]).To(Equal(0.5))
	})

	It("does not modify the old centroid", func() {
		old := []float64{1, 1}
		cluster.NewCentroid(old, []float64{3, 3}, 2)
		Expect(old).To(Equal([]float64{1, 1}))
	})

	It("equals the arithmetic mean after sequential updates", func() {
		points := [][]float64{{1, 0}, {0, 1}, {1, 1}, {2, 2}}
		var c []float64
		for i, p := range points {
			c = cluster.NewCentroid(c, p, i+1)
		}
		Expect(c[0]).To(BeNumerically("~", 1.0, 1e-12))
		Expect(c[1]).To(BeNumerically("~", 1.0, 1e-12))
	})
})
