// Package rules holds the heuristic evaluators that turn a snapshot of
// financial rows into candidate insights. Every evaluator is a pure
// function of its snapshot: the same snapshot always yields the same ids,
// and missing or partial data means "no signal", never a panic.
package rules

import (
	"sort"
	"strings"
	"time"

	"github.com/hyperengineering/finsight/internal/types"
	"github.com/shopspring/decimal"
)

// Snapshot is the set of rows one evaluation pass reads. It is captured
// once and shared by every evaluator so they observe a consistent view.
type Snapshot struct {
	Now         time.Time
	Current     []types.Transaction // current calendar month
	Prior       []types.Transaction // previous calendar month
	Budgets     []types.Budget
	Goals       []types.Goal
	Investments []types.Investment
}

// Evaluator derives zero or more insights from a snapshot.
type Evaluator func(s Snapshot) []types.Insight

// Run evaluates each evaluator in order over the same snapshot.
func Run(s Snapshot, evaluators []Evaluator) []types.Insight {
	var out []types.Insight
	for _, eval := range evaluators {
		out = append(out, eval(s)...)
	}
	return out
}

// AlertEvaluators returns the evaluators behind the alert feed.
func AlertEvaluators() []Evaluator {
	return []Evaluator{
		BudgetThreshold,
		SpendingSpike,
		GoalDeadline,
		EmergencyFund,
		SavingsRate,
	}
}

// TipEvaluators returns the stateless tip evaluators.
func TipEvaluators() []Evaluator {
	return []Evaluator{
		CategoryConcentration,
		Overspending,
		MissingBudgets,
		StartInvesting,
		ReviewReturns,
	}
}

// ChallengeEvaluators returns the challenge auto-suggestion evaluators.
func ChallengeEvaluators() []Evaluator {
	return []Evaluator{
		ReduceTopCategory,
		NoDelivery,
		ImpulseCooldown,
		SaveTenPercent,
		SeedEmergencyFund,
	}
}

// totals returns income and expense sums.
func totals(txs []types.Transaction) (income, expenses decimal.Decimal) {
	for _, t := range txs {
		switch {
		case t.IsIncome():
			income = income.Add(t.Amount)
		case t.IsExpense():
			expenses = expenses.Add(t.Amount)
		}
	}
	return income, expenses
}

// expensesByCategory sums expenses per category name.
func expensesByCategory(txs []types.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.IsExpense() {
			out[t.Category] = out[t.Category].Add(t.Amount)
		}
	}
	return out
}

// categorySpent sums expenses whose category matches name, ignoring case
// and surrounding whitespace.
func categorySpent(txs []types.Transaction, name string) decimal.Decimal {
	name = strings.TrimSpace(name)
	var spent decimal.Decimal
	for _, t := range txs {
		if t.IsExpense() && strings.EqualFold(strings.TrimSpace(t.Category), name) {
			spent = spent.Add(t.Amount)
		}
	}
	return spent
}

// topCategory returns the category with the largest expense total.
// Ties resolve to the alphabetically first name so the result is stable.
func topCategory(txs []types.Transaction) (string, decimal.Decimal, bool) {
	byCat := expensesByCategory(txs)
	if len(byCat) == 0 {
		return "", decimal.Zero, false
	}
	names := make([]string, 0, len(byCat))
	for name := range byCat {
		names = append(names, name)
	}
	sort.Strings(names)

	best := names[0]
	for _, name := range names[1:] {
		if byCat[name].GreaterThan(byCat[best]) {
			best = name
		}
	}
	if !byCat[best].IsPositive() {
		return "", decimal.Zero, false
	}
	return best, byCat[best], true
}

// keywordSpend sums expenses whose description or category contains any
// of the keywords, case-insensitively.
func keywordSpend(txs []types.Transaction, keywords []string) decimal.Decimal {
	var spent decimal.Decimal
	for _, t := range txs {
		if !t.IsExpense() {
			continue
		}
		text := strings.ToLower(t.Description + " " + t.Category)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				spent = spent.Add(t.Amount)
				break
			}
		}
	}
	return spent
}

var emergencyFundNames = []string{
	"emergência",
	"emergencia",
	"emergency",
	"reserva",
	"reserve",
	"rainy day",
	"colchão",
}

// hasEmergencyFund reports whether any goal looks like an emergency fund.
func hasEmergencyFund(goals []types.Goal) bool {
	for _, g := range goals {
		name := strings.ToLower(g.Name)
		for _, kw := range emergencyFundNames {
			if strings.Contains(name, kw) {
				return true
			}
		}
	}
	return false
}

// averageMonthlyExpense averages expenses over the months in the snapshot
// that have any. Returns false when neither month has expenses.
func averageMonthlyExpense(s Snapshot) (decimal.Decimal, bool) {
	var sum decimal.Decimal
	var months int64
	for _, txs := range [][]types.Transaction{s.Current, s.Prior} {
		_, exp := totals(txs)
		if exp.IsPositive() {
			sum = sum.Add(exp)
			months++
		}
	}
	if months == 0 {
		return decimal.Zero, false
	}
	return sum.Div(decimal.NewFromInt(months)), true
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

func pctString(d decimal.Decimal) string {
	return d.Round(0).String() + "%"
}
