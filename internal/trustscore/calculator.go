// Package trustscore computes the bounded weighted trust score of a user.
//
// Everything here is pure domain logic: no I/O, no clock, no side effects
// beyond the explicit write in Apply.
package trustscore

import (
	"sort"

	"github.com/shopspring/decimal"

	"trustcore/internal/identity/models"
)

// MaxScore is the upper bound of the trust score; weights sum to it.
const MaxScore = 5.0

var (
	minScore = decimal.Zero
	maxScore = decimal.NewFromFloat(MaxScore)
)

// CriterionResult is one line of the score breakdown.
type CriterionResult struct {
	Criterion       Criterion `json:"criterion"`
	Satisfied       bool      `json:"satisfied"`
	PointsAvailable float64   `json:"points_available"`
	PointsEarned    float64   `json:"points_earned"`
}

// NextStep is an unmet criterion presented as an action the user can take.
type NextStep struct {
	Action      Action    `json:"action"`
	Criterion   Criterion `json:"criterion"`
	Description string    `json:"description"`
	Points      float64   `json:"points"`
}

// Breakdown explains a score. Unmet is sorted by points descending with the
// criteria order as tie-break.
type Breakdown struct {
	Criteria []CriterionResult `json:"criteria"`
	Unmet    []NextStep        `json:"unmet"`
}

// Result is the output of Calculate.
type Result struct {
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Calculate derives the score from the user's current flags. The score is
// clamped to [0, MaxScore] and rounded half away from zero to one decimal.
func Calculate(u *models.User) Result {
	earned := decimal.Zero
	breakdown := Breakdown{
		Criteria: make([]CriterionResult, 0, len(rules)),
		Unmet:    []NextStep{},
	}

	for _, r := range rules {
		ok := r.satisfied(u)
		points := decimal.Zero
		if ok {
			points = r.weight
			earned = earned.Add(r.weight)
		} else {
			breakdown.Unmet = append(breakdown.Unmet, NextStep{
				Action:      r.action,
				Criterion:   r.criterion,
				Description: r.description,
				Points:      r.weight.InexactFloat64(),
			})
		}
		breakdown.Criteria = append(breakdown.Criteria, CriterionResult{
			Criterion:       r.criterion,
			Satisfied:       ok,
			PointsAvailable: r.weight.InexactFloat64(),
			PointsEarned:    points.InexactFloat64(),
		})
	}

	sort.SliceStable(breakdown.Unmet, func(i, j int) bool {
		return breakdown.Unmet[i].Points > breakdown.Unmet[j].Points
	})

	return Result{
		Score:     round(earned).InexactFloat64(),
		Breakdown: breakdown,
	}
}

// NextSteps lists the unmet criteria, highest value first.
func NextSteps(u *models.User) []NextStep {
	return Calculate(u).Breakdown.Unmet
}

// Change describes the effect of Apply.
type Change struct {
	Old       float64 `json:"old"`
	New       float64 `json:"new"`
	Changed   bool    `json:"changed"`
	Increased bool    `json:"increased"`
}

// Apply recomputes the score and writes it to the user when it differs from
// the stored value. Applying twice with unchanged flags reports no change.
func Apply(u *models.User) Change {
	old := round(decimal.NewFromFloat(u.TrustScore))
	next := round(decimal.NewFromFloat(Calculate(u).Score))

	change := Change{
		Old: old.InexactFloat64(),
		New: next.InexactFloat64(),
	}
	if next.Equal(old) {
		return change
	}
	change.Changed = true
	change.Increased = next.GreaterThan(old)
	u.TrustScore = change.New
	return change
}

func round(d decimal.Decimal) decimal.Decimal {
	return decimal.Min(maxScore, decimal.Max(minScore, d)).Round(1)
}
