// Package insight turns ticket clusters into deflection opportunities with an
// estimated cost, priority and implementation effort.
package insight

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"deflect.app/relay/common/logger"
	"deflect.app/relay/internal/cost"
	"deflect.app/relay/internal/model"
)

const (
	DefaultMinClusterSize  = 5
	DefaultAgentHourlyCost = 30.0

	highPriorityCost   = 10000
	mediumPriorityCost = 3000

	maxConfidence        = 0.9
	confidenceSaturation = 50

	faqPronePotential   = 80
	otherPotential      = 60
	negativePenalty     = 20
	minPotential        = 30
	maxPotential        = 95
	quickWinPotential   = 60
	bigImpactShare      = 0.1
	exampleQuestions    = 3
	exampleQuestionSize = 200
)

// DefaultFAQProneCategories are categories that self-service content tends to
// deflect well.
var DefaultFAQProneCategories = []string{"how-to", "billing", "account", "technical"}

var (
	easyCategories = []string{"billing", "account", "how-to"}
	hardKeywords   = []string{"integration", "api", "custom", "advanced"}
)

// BuildOptions are applied as given: a zero MinClusterSize keeps every
// cluster and a zero AgentHourlyCost prices every insight at zero. Callers
// fill in DefaultMinClusterSize and DefaultAgentHourlyCost themselves. Only a
// nil FAQProneCategories and a zero Now fall back to defaults.
type BuildOptions struct {
	MinClusterSize     int
	AgentHourlyCost    float64
	FAQProneCategories []string

	AccountID int64
	RunID     int64
	Now       time.Time
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.FAQProneCategories == nil {
		o.FAQProneCategories = DefaultFAQProneCategories
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

// Build derives one insight per cluster with at least MinClusterSize members,
// sorted by annual cost, highest first.
func Build(clusters []model.Cluster, opts BuildOptions) []model.DeflectionInsight {
	opts = opts.withDefaults()

	insights := make([]model.DeflectionInsight, 0, len(clusters))
	for i := range clusters {
		c := &clusters[i]
		if c.Size() < opts.MinClusterSize {
			continue
		}
		insights = append(insights, build(c, opts))
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].AnnualCost > insights[j].AnnualCost
	})
	return insights
}

func build(c *model.Cluster, opts BuildOptions) model.DeflectionInsight {
	count := c.Size()
	avgHandle := averageHandleTime(c.Members)
	annual := cost.AnnualCost(count, avgHandle, opts.AgentHourlyCost)
	difficulty := implementationDifficulty(c.Category, c.Keywords)

	return model.DeflectionInsight{
		AccountID:                opts.AccountID,
		RunID:                    opts.RunID,
		ClusterID:                c.ID,
		Category:                 c.Category,
		Keywords:                 c.Keywords,
		TicketCount:              count,
		AvgHandleTimeMinutes:     avgHandle,
		AnnualCost:               annual,
		MonthlyCost:              cost.MonthlyCost(annual),
		ExampleQuestions:         examples(c.Members),
		RecommendedAction:        recommendedAction(c.Category, difficulty, count),
		Confidence:               math.Min(maxConfidence, float64(count)/confidenceSaturation),
		Priority:                 priority(annual),
		DeflectionPotential:      deflectionPotential(c, opts.FAQProneCategories),
		CustomerImpact:           customerImpact(c.Members),
		ImplementationDifficulty: difficulty,
		CreatedAt:                opts.Now,
	}
}

func averageHandleTime(members []model.Ticket) float64 {
	if len(members) == 0 {
		return model.DefaultHandleTimeMinutes
	}
	var total float64
	for i := range members {
		total += members[i].HandleTime()
	}
	return total / float64(len(members))
}

func priority(annualCost float64) model.InsightPriority {
	switch {
	case annualCost > highPriorityCost:
		return model.InsightPriorityHigh
	case annualCost > mediumPriorityCost:
		return model.InsightPriorityMedium
	default:
		return model.InsightPriorityLow
	}
}

func deflectionPotential(c *model.Cluster, faqProne []string) int {
	potential := otherPotential
	if slices.Contains(faqProne, c.Category) {
		potential = faqPronePotential
	}
	if slices.ContainsFunc(c.Members, func(t model.Ticket) bool { return t.IsNegative() }) {
		potential -= negativePenalty
	}
	return min(maxPotential, max(minPotential, potential))
}

// customerImpact grows with the share of tickets raised by repeat customers.
func customerImpact(members []model.Ticket) model.ImpactLevel {
	if len(members) == 0 {
		return model.ImpactLow
	}
	unique := make(map[string]struct{}, len(members))
	for i := range members {
		unique[strings.ToLower(strings.TrimSpace(members[i].CustomerContact))] = struct{}{}
	}
	repeat := 1 - float64(len(unique))/float64(len(members))

	switch {
	case repeat > 0.5:
		return model.ImpactHigh
	case repeat > 0.3:
		return model.ImpactMedium
	default:
		return model.ImpactLow
	}
}

func implementationDifficulty(category string, keywords []string) model.ImplementationDifficulty {
	if slices.Contains(easyCategories, category) {
		return model.DifficultyEasy
	}
	for _, kw := range keywords {
		if slices.Contains(hardKeywords, strings.ToLower(kw)) {
			return model.DifficultyHard
		}
	}
	return model.DifficultyMedium
}

func examples(members []model.Ticket) []string {
	out := make([]string, 0, exampleQuestions)
	for i := range members {
		if len(out) == exampleQuestions {
			break
		}
		t := &members[i]
		q := t.Content
		if t.Subject != nil && strings.TrimSpace(*t.Subject) != "" {
			q = *t.Subject
		}
		out = append(out, logger.Truncate(strings.TrimSpace(q), exampleQuestionSize))
	}
	return out
}

func recommendedAction(category string, difficulty model.ImplementationDifficulty, count int) string {
	switch difficulty {
	case model.DifficultyEasy:
		return fmt.Sprintf("Publish a help-center article answering the %d recurring %s questions", count, category)
	case model.DifficultyHard:
		return fmt.Sprintf("Write a step-by-step guide with examples for the %s setup issues behind %d tickets", category, count)
	default:
		return fmt.Sprintf("Add an FAQ entry and saved reply for the %d recurring %s tickets", count, category)
	}
}
