package rules

import (
	"fmt"
	"strconv"

	"github.com/hyperengineering/finsight/internal/types"
	"github.com/shopspring/decimal"
)

var (
	concentrationPct = decimal.NewFromInt(40)
	minHealthyReturn = decimal.NewFromInt(6)
)

func tip(id string, cat types.Category, prio types.Priority, title, msg, url string, s Snapshot) types.Insight {
	return types.Insight{
		ID:          id,
		Kind:        types.KindTip,
		Category:    cat,
		Priority:    prio,
		Title:       title,
		Message:     msg,
		IsAutomatic: true,
		CreatedAt:   s.Now,
		ActionURL:   url,
	}
}

// CategoryConcentration flags a month where one category takes more than
// 40% of all expenses.
func CategoryConcentration(s Snapshot) []types.Insight {
	_, expenses := totals(s.Current)
	name, spent, ok := topCategory(s.Current)
	if !ok {
		return nil
	}
	share, ok := types.Percent(spent, expenses)
	if !ok || !share.GreaterThan(concentrationPct) {
		return nil
	}
	return []types.Insight{tip(
		"tip-concentration-"+strconv.Itoa(types.MonthIndex(s.Now)),
		types.CategorySpending,
		types.PriorityMedium,
		"Spending concentrated in "+name,
		fmt.Sprintf("%s accounts for %s of your expenses this month (%s). Review whether it fits your plan.",
			name, pctString(share), types.FormatMoney(spent)),
		"/transactions",
		s,
	)}
}

// Overspending warns when this month's expenses are above its income.
func Overspending(s Snapshot) []types.Insight {
	income, expenses := totals(s.Current)
	if !income.IsPositive() || !expenses.GreaterThan(income) {
		return nil
	}
	return []types.Insight{tip(
		"tip-overspending-"+strconv.Itoa(types.MonthIndex(s.Now)),
		types.CategorySpending,
		types.PriorityHigh,
		"You are spending more than you earn",
		fmt.Sprintf("Expenses of %s exceed income of %s by %s this month.",
			types.FormatMoney(expenses), types.FormatMoney(income), types.FormatMoney(expenses.Sub(income))),
		"/transactions",
		s,
	)}
}

// MissingBudgets nudges users with expenses but no budget for the month.
func MissingBudgets(s Snapshot) []types.Insight {
	if len(s.Budgets) > 0 {
		return nil
	}
	_, expenses := totals(s.Current)
	if !expenses.IsPositive() {
		return nil
	}
	return []types.Insight{tip(
		"tip-create-budgets-"+strconv.Itoa(types.MonthIndex(s.Now)),
		types.CategoryBudget,
		types.PriorityMedium,
		"Set up monthly budgets",
		"You have expenses this month but no budgets. Budgets let you know before a category gets out of hand.",
		"/budgets",
		s,
	)}
}

// StartInvesting suggests investing when money is left over and nothing is invested.
func StartInvesting(s Snapshot) []types.Insight {
	if len(s.Investments) > 0 {
		return nil
	}
	income, expenses := totals(s.Current)
	balance := income.Sub(expenses)
	if !balance.IsPositive() {
		return nil
	}
	return []types.Insight{tip(
		"tip-start-investing",
		types.CategoryInvestment,
		types.PriorityLow,
		"Put your surplus to work",
		fmt.Sprintf("You have %s left this month and no investments. Even a small recurring amount adds up.",
			types.FormatMoney(balance)),
		"/investments",
		s,
	)}
}

// ReviewReturns flags a portfolio whose amount-weighted expected return is
// below 6% a year.
func ReviewReturns(s Snapshot) []types.Insight {
	var total, weighted decimal.Decimal
	for _, inv := range s.Investments {
		if !inv.Amount.IsPositive() {
			continue
		}
		total = total.Add(inv.Amount)
		weighted = weighted.Add(inv.Amount.Mul(inv.ExpectedReturn))
	}
	if !total.IsPositive() {
		return nil
	}
	avg := weighted.Div(total)
	if !avg.LessThan(minHealthyReturn) {
		return nil
	}
	return []types.Insight{tip(
		"tip-review-returns",
		types.CategoryInvestment,
		types.PriorityLow,
		"Review your investment returns",
		fmt.Sprintf("Your portfolio of %s has an average expected return of %s%% a year. Compare it with other options.",
			types.FormatMoney(total), avg.StringFixed(1)),
		"/investments",
		s,
	)}
}
