package insight

import (
	"deflect.app/relay/internal/cost"
	"deflect.app/relay/internal/model"
)

// TotalPotentialSavings is the sum over insights of annual cost scaled by
// deflection potential.
func TotalPotentialSavings(insights []model.DeflectionInsight) float64 {
	var total float64
	for i := range insights {
		total += cost.AnnualizedSavings(insights[i].AnnualCost, insights[i].DeflectionPotential)
	}
	return total
}

// QuickWins are easy to build and likely to deflect most of their volume.
func QuickWins(insights []model.DeflectionInsight) []model.DeflectionInsight {
	out := make([]model.DeflectionInsight, 0)
	for _, in := range insights {
		if in.ImplementationDifficulty == model.DifficultyEasy && in.DeflectionPotential > quickWinPotential {
			out = append(out, in)
		}
	}
	return out
}

// BigImpact are insights whose annual cost exceeds a tenth of the total
// potential savings.
func BigImpact(insights []model.DeflectionInsight) []model.DeflectionInsight {
	cutoff := TotalPotentialSavings(insights) * bigImpactShare
	out := make([]model.DeflectionInsight, 0)
	for _, in := range insights {
		if in.AnnualCost > cutoff {
			out = append(out, in)
		}
	}
	return out
}

type Summary struct {
	Insights              int     `json:"insights"`
	Tickets               int     `json:"tickets"`
	AnnualCost            float64 `json:"annual_cost"`
	MonthlyCost           float64 `json:"monthly_cost"`
	TotalPotentialSavings float64 `json:"total_potential_savings"`
	QuickWins             int     `json:"quick_wins"`
	BigImpact             int     `json:"big_impact"`
	HighPriority          int     `json:"high_priority"`
}

func Summarize(insights []model.DeflectionInsight) Summary {
	s := Summary{
		Insights:              len(insights),
		TotalPotentialSavings: TotalPotentialSavings(insights),
		QuickWins:             len(QuickWins(insights)),
		BigImpact:             len(BigImpact(insights)),
	}
	for _, in := range insights {
		s.Tickets += in.TicketCount
		s.AnnualCost += in.AnnualCost
		s.MonthlyCost += in.MonthlyCost
		if in.Priority == model.InsightPriorityHigh {
			s.HighPriority++
		}
	}
	return s
}
