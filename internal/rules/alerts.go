package rules

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/hyperengineering/finsight/internal/types"
	"github.com/shopspring/decimal"
)

var (
	budgetWarningPct   = decimal.NewFromInt(80)
	budgetExceededPct  = decimal.NewFromInt(100)
	spikeFactor        = decimal.RequireFromString("1.3")
	goalUrgentProgress = decimal.NewFromInt(70)
	lowSavingsPct      = decimal.NewFromInt(10)
	greatSavingsPct    = decimal.NewFromInt(20)
	reserveMonths      = decimal.NewFromInt(6)
)

const (
	goalDeadlineWindowDays = 30
	goalStagnantAfter      = 30 * 24 * time.Hour
)

func alert(id string, cat types.Category, prio types.Priority, title, msg, url string, now time.Time) types.Insight {
	return types.Insight{
		ID:          id,
		Kind:        types.KindAlert,
		Category:    cat,
		Priority:    prio,
		Title:       title,
		Message:     msg,
		IsAutomatic: true,
		CreatedAt:   now,
		ActionURL:   url,
	}
}

// BudgetThreshold emits one insight per budget whose spending is above 100%
// of its limit ("exceeded") or strictly between 80% and 100% ("warning").
// A budget at exactly 80% or exactly 100% yields nothing.
func BudgetThreshold(s Snapshot) []types.Insight {
	var out []types.Insight
	for _, b := range s.Budgets {
		if !b.AmountLimit.IsPositive() {
			continue
		}
		spent := categorySpent(s.Current, b.Category)
		pct, ok := types.Percent(spent, b.AmountLimit)
		if !ok {
			continue
		}

		switch {
		case pct.GreaterThan(budgetExceededPct):
			over := spent.Sub(b.AmountLimit)
			out = append(out, alert(
				"budget-exceeded-"+b.ID,
				types.CategoryBudget,
				types.PriorityHigh,
				"Budget exceeded: "+b.Category,
				fmt.Sprintf("You spent %s of your %s budget for %s (%s). Over by %s.",
					types.FormatMoney(spent), types.FormatMoney(b.AmountLimit), b.Category,
					pctString(pct), types.FormatMoney(over)),
				"/budgets",
				s.Now,
			))
		case pct.GreaterThan(budgetWarningPct) && pct.LessThan(budgetExceededPct):
			out = append(out, alert(
				"budget-warning-"+b.ID,
				types.CategoryBudget,
				types.PriorityMedium,
				"Budget almost used: "+b.Category,
				fmt.Sprintf("You already used %s of your %s budget for %s (%s spent).",
					pctString(pct), types.FormatMoney(b.AmountLimit), b.Category, types.FormatMoney(spent)),
				"/budgets",
				s.Now,
			))
		}
	}
	return out
}

// SpendingSpike flags a month whose expenses exceed the prior month's by
// more than 30%. No prior spending means no baseline, so no insight.
func SpendingSpike(s Snapshot) []types.Insight {
	_, current := totals(s.Current)
	_, prior := totals(s.Prior)
	if !prior.IsPositive() {
		return nil
	}
	if !current.GreaterThan(prior.Mul(spikeFactor)) {
		return nil
	}

	increase, _ := types.Percent(current.Sub(prior), prior)
	return []types.Insight{alert(
		"spending-spike-"+strconv.Itoa(types.MonthIndex(s.Now)),
		types.CategorySpending,
		types.PriorityMedium,
		"Spending is up this month",
		fmt.Sprintf("Your expenses this month (%s) are %s higher than last month (%s).",
			types.FormatMoney(current), pctString(increase), types.FormatMoney(prior)),
		"/transactions",
		s.Now,
	)}
}

// GoalDeadline flags goals due within 30 days that are under 70% funded,
// and goals older than 30 days that never received a contribution.
func GoalDeadline(s Snapshot) []types.Insight {
	var out []types.Insight
	for _, g := range s.Goals {
		if g.TargetDate != nil && g.TargetAmount.IsPositive() {
			days := daysUntil(s.Now, *g.TargetDate)
			progress, _ := types.Percent(g.CurrentAmount, g.TargetAmount)
			if days > 0 && days <= goalDeadlineWindowDays && progress.LessThan(goalUrgentProgress) {
				missing := g.TargetAmount.Sub(g.CurrentAmount)
				out = append(out, alert(
					"goal-deadline-"+g.ID,
					types.CategoryGoal,
					types.PriorityHigh,
					"Goal deadline approaching: "+g.Name,
					fmt.Sprintf("%d days left and only %s reached. You still need %s; consider an extra contribution.",
						days, pctString(progress), types.FormatMoney(missing)),
					"/goals",
					s.Now,
				))
			}
		}

		if g.CurrentAmount.IsZero() && !g.CreatedAt.IsZero() && s.Now.Sub(g.CreatedAt) > goalStagnantAfter {
			age := int(s.Now.Sub(g.CreatedAt).Hours() / 24)
			out = append(out, alert(
				"goal-stagnant-"+g.ID,
				types.CategoryGoal,
				types.PriorityMedium,
				"Goal without progress: "+g.Name,
				fmt.Sprintf("This goal was created %d days ago and has not received any contribution yet.", age),
				"/goals",
				s.Now,
			))
		}
	}
	return out
}

// EmergencyFund suggests building a reserve of six months of expenses when
// no goal looks like an emergency fund and there is spending this month.
func EmergencyFund(s Snapshot) []types.Insight {
	if hasEmergencyFund(s.Goals) {
		return nil
	}
	_, expenses := totals(s.Current)
	if !expenses.IsPositive() {
		return nil
	}
	avg, ok := averageMonthlyExpense(s)
	if !ok {
		return nil
	}

	return []types.Insight{alert(
		"tip-emergency-fund",
		types.CategoryTip,
		types.PriorityHigh,
		"Create an emergency fund",
		fmt.Sprintf("You have no emergency reserve. Aim for %s, six times your average monthly expense of %s.",
			types.FormatMoney(avg.Mul(reserveMonths)), types.FormatMoney(avg)),
		"/goals",
		s.Now,
	)}
}

// SavingsRate comments on the share of this month's income left over.
// Months without income are skipped.
func SavingsRate(s Snapshot) []types.Insight {
	income, expenses := totals(s.Current)
	rate, ok := types.Percent(income.Sub(expenses), income)
	if !ok {
		return nil
	}
	month := strconv.Itoa(types.MonthIndex(s.Now))

	switch {
	case rate.LessThan(lowSavingsPct) && income.GreaterThan(expenses):
		return []types.Insight{alert(
			"savings-low-"+month,
			types.CategoryTip,
			types.PriorityMedium,
			"Your savings rate is low",
			fmt.Sprintf("You are saving %s of your income this month. Try to reach at least 10%%.", pctString(rate)),
			"/transactions",
			s.Now,
		)}
	case rate.GreaterThanOrEqual(greatSavingsPct):
		return []types.Insight{alert(
			"savings-great-"+month,
			types.CategoryTip,
			types.PriorityLow,
			"Great savings rate",
			fmt.Sprintf("You are saving %s of your income this month. Keep it up!", pctString(rate)),
			"/investments",
			s.Now,
		)}
	}
	return nil
}

// daysUntil returns whole days from now until target, rounding up partial days.
func daysUntil(now, target time.Time) int {
	return int(math.Ceil(target.Sub(now).Hours() / 24))
}
