// Package cost holds the numeric helpers shared by the deflection router and
// the pattern insight builder: token pricing, agent time cost, annualisation
// and peer benchmarking.
package cost

import (
	"math"
	"sort"
)

// AnnualizationFactor converts a per-window cost into the annual figure used
// by insights (4.33 weeks per month, twelve months, over 52 weeks).
const AnnualizationFactor = 4.33 * 12 / 52

// inputShare is the fraction of a response's total tokens billed at the input
// rate. Providers report a single total for some calls, so the split is
// estimated.
const (
	inputShareNum = 7
	inputShareDen = 10
)

// Rates are prices in dollars per 1000 tokens.
type Rates struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// DefaultRates match gpt-4o-mini list pricing.
var DefaultRates = Rates{InputPer1K: 0.00015, OutputPer1K: 0.0006}

// SplitTokens estimates input and output tokens from a total.
func SplitTokens(total int) (input, output int) {
	if total <= 0 {
		return 0, 0
	}
	input = total * inputShareNum / inputShareDen
	return input, total - input
}

// TokenCost prices total tokens at the given rates.
func TokenCost(total int, r Rates) float64 {
	in, out := SplitTokens(total)
	return float64(in)/1000*r.InputPer1K + float64(out)/1000*r.OutputPer1K
}

// PerTicketCost is the agent labour cost of handling one ticket.
func PerTicketCost(handleMinutes, hourlyRate float64) float64 {
	if handleMinutes <= 0 || hourlyRate <= 0 {
		return 0
	}
	return handleMinutes / 60 * hourlyRate
}

// AnnualCost is the rounded annualised agent cost of count tickets with the
// given average handle time.
func AnnualCost(count int, avgHandleMinutes, hourlyRate float64) float64 {
	return math.Round(float64(count) * PerTicketCost(avgHandleMinutes, hourlyRate) * AnnualizationFactor)
}

// MonthlyCost is the rounded monthly share of an annual cost.
func MonthlyCost(annual float64) float64 {
	return math.Round(annual / 12)
}

// AnnualizedSavings is the portion of annualCost recoverable at the given
// deflection potential (0-100).
func AnnualizedSavings(annualCost float64, potentialPct int) float64 {
	p := math.Max(0, math.Min(100, float64(potentialPct)))
	return annualCost * p / 100
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. Empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// BenchmarkResult places one value inside a peer distribution.
type BenchmarkResult struct {
	Value  float64 `json:"value"`
	Rank   float64 `json:"percentile_rank"` // share of peers strictly below Value, 0-100
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Peers  int     `json:"peers"`
}

// Benchmark ranks value against peers. Lower per-ticket cost is better, so a
// low Rank means the account is cheaper than most of its peers.
func Benchmark(value float64, peers []float64) BenchmarkResult {
	res := BenchmarkResult{
		Value:  value,
		P25:    Percentile(peers, 25),
		Median: Percentile(peers, 50),
		P75:    Percentile(peers, 75),
		Peers:  len(peers),
	}
	if len(peers) == 0 {
		return res
	}

	below := 0
	for _, v := range peers {
		if v < value {
			below++
		}
	}
	res.Rank = float64(below) / float64(len(peers)) * 100
	return res
}
