package insight_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deflect.app/relay/internal/insight"
	"deflect.app/relay/internal/model"
)

var _ = Describe("Summary helpers", func() {
	insights := []model.DeflectionInsight{
		{ClusterID: 0, AnnualCost: 20000, TicketCount: 100, DeflectionPotential: 80, ImplementationDifficulty: model.DifficultyEasy, Priority: model.InsightPriorityHigh, MonthlyCost: 1667},
		{ClusterID: 1, AnnualCost: 5000, TicketCount: 40, DeflectionPotential: 60, ImplementationDifficulty: model.DifficultyEasy, Priority: model.InsightPriorityMedium, MonthlyCost: 417},
		{ClusterID: 2, AnnualCost: 1000, TicketCount: 10, DeflectionPotential: 70, ImplementationDifficulty: model.DifficultyHard, Priority: model.InsightPriorityLow, MonthlyCost: 83},
	}

	It("sums annual cost weighted by potential", func() {
		// 16000 + 3000 + 700
		Expect(insight.TotalPotentialSavings(insights)).To(Equal(19700.0))
	})

	It("selects easy insights above 60% potential as quick wins", func() {
		wins := insight.QuickWins(insights)
		Expect(wins).To(HaveLen(1))
		Expect(wins[0].ClusterID).To(Equal(0))
	})

	It("selects insights above a tenth of total savings as big impact", func() {
		big := insight.BigImpact(insights)
		Expect(big).To(HaveLen(2))
		Expect(big[1].ClusterID).To(Equal(1))
	})

	It("returns empty lists for no insights", func() {
		Expect(insight.QuickWins(nil)).To(BeEmpty())
		Expect(insight.BigImpact(nil)).To(BeEmpty())
	})

	It("summarises totals", func() {
		s := insight.Summarize(insights)
		Expect(s).To(Equal(insight.Summary{
			Insights:              3,
			Tickets:               150,
			AnnualCost:            26000,
			MonthlyCost:           2167,
			TotalPotentialSavings: 19700,
			QuickWins:             1,
			BigImpact:             2,
			HighPriority:          1,
		}))
	})
})
