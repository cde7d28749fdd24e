package rules

import (
	"fmt"
	"strconv"

	"github.com/hyperengineering/finsight/internal/types"
	"github.com/shopspring/decimal"
)

var (
	deliveryKeywords = []string{"ifood", "delivery", "rappi", "uber eats", "restaurante", "restaurant", "lanchonete"}
	impulseKeywords  = []string{"shopee", "amazon", "mercado livre", "aliexpress", "shein", "magalu", "shopping", "compras"}

	deliveryThreshold   = decimal.NewFromInt(200)
	impulseThreshold    = decimal.NewFromInt(300)
	reserveSeedMinimum  = decimal.NewFromInt(500)
	reductionShare      = decimal.RequireFromString("0.2")
	deliverySavingShare = decimal.RequireFromString("0.5")
	impulseSavingShare  = decimal.RequireFromString("0.3")
	saveShare           = decimal.RequireFromString("0.1")
	reserveSeedShare    = decimal.RequireFromString("0.5")
)

func suggestion(id string, prio types.Priority, sug types.ChallengeSuggestion, s Snapshot) types.Insight {
	sug.TargetAmount = sug.TargetAmount.Round(2)
	sug.SourceKey = id
	return types.Insight{
		ID:          id,
		Kind:        types.KindChallenge,
		Category:    types.CategoryChallenge,
		Priority:    prio,
		Title:       sug.Title,
		Message:     sug.Description,
		IsAutomatic: true,
		CreatedAt:   s.Now,
		ActionURL:   "/challenges",
		Suggestion:  &sug,
	}
}

// ReduceTopCategory suggests cutting the largest expense category by 20%.
func ReduceTopCategory(s Snapshot) []types.Insight {
	name, spent, ok := topCategory(s.Current)
	if !ok {
		return nil
	}
	target := spent.Mul(reductionShare)
	return []types.Insight{suggestion(
		"challenge-reduce-"+slug(name)+"-"+strconv.Itoa(types.MonthIndex(s.Now)),
		types.PriorityMedium,
		types.ChallengeSuggestion{
			Title:        "Cut " + name + " by 20%",
			Description:  fmt.Sprintf("Spend %s less on %s over the next 30 days.", types.FormatMoney(target), name),
			TargetAmount: target,
			DurationDays: 30,
			Reason:       fmt.Sprintf("%s is your largest expense category this month with %s.", name, types.FormatMoney(spent)),
		},
		s,
	)}
}

// NoDelivery suggests a delivery-free fortnight when delivery and
// restaurant spending reaches the threshold.
func NoDelivery(s Snapshot) []types.Insight {
	spent := keywordSpend(s.Current, deliveryKeywords)
	if spent.LessThan(deliveryThreshold) {
		return nil
	}
	target := spent.Mul(deliverySavingShare)
	return []types.Insight{suggestion(
		"challenge-no-delivery-"+strconv.Itoa(types.MonthIndex(s.Now)),
		types.PriorityMedium,
		types.ChallengeSuggestion{
			Title:        "Two weeks without delivery",
			Description:  fmt.Sprintf("Cook at home for 14 days and keep %s in your pocket.", types.FormatMoney(target)),
			TargetAmount: target,
			DurationDays: 14,
			Reason:       fmt.Sprintf("You spent %s on delivery and restaurants this month.", types.FormatMoney(spent)),
		},
		s,
	)}
}

// ImpulseCooldown suggests a seven-day purchase cooldown when online
// shopping spending reaches the threshold.
func ImpulseCooldown(s Snapshot) []types.Insight {
	spent := keywordSpend(s.Current, impulseKeywords)
	if spent.LessThan(impulseThreshold) {
		return nil
	}
	target := spent.Mul(impulseSavingShare)
	return []types.Insight{suggestion(
		"challenge-impulse-cooldown-"+strconv.Itoa(types.MonthIndex(s.Now)),
		types.PriorityLow,
		types.ChallengeSuggestion{
			Title:        "7-day shopping cooldown",
			Description:  fmt.Sprintf("Wait seven days before any non-essential purchase and save %s.", types.FormatMoney(target)),
			TargetAmount: target,
			DurationDays: 7,
			Reason:       fmt.Sprintf("Online shopping added up to %s this month.", types.FormatMoney(spent)),
		},
		s,
	)}
}

// SaveTenPercent suggests setting aside 10% of income when the savings
// rate is below 10%. Months without income are skipped.
func SaveTenPercent(s Snapshot) []types.Insight {
	income, expenses := totals(s.Current)
	rate, ok := types.Percent(income.Sub(expenses), income)
	if !ok || !rate.LessThan(lowSavingsPct) {
		return nil
	}
	target := income.Mul(saveShare)
	return []types.Insight{suggestion(
		"challenge-save-10-"+strconv.Itoa(types.MonthIndex(s.Now)),
		types.PriorityHigh,
		types.ChallengeSuggestion{
			Title:        "Save 10% of your income",
			Description:  fmt.Sprintf("Set aside %s over the next 30 days.", types.FormatMoney(target)),
			TargetAmount: target,
			DurationDays: 30,
			Reason:       fmt.Sprintf("Your savings rate this month is %s.", pctString(rate)),
		},
		s,
	)}
}

// SeedEmergencyFund suggests starting a reserve when there is no emergency
// goal and the month's balance is large enough to seed one.
func SeedEmergencyFund(s Snapshot) []types.Insight {
	if hasEmergencyFund(s.Goals) {
		return nil
	}
	income, expenses := totals(s.Current)
	balance := income.Sub(expenses)
	if balance.LessThan(reserveSeedMinimum) {
		return nil
	}
	target := balance.Mul(reserveSeedShare)
	return []types.Insight{suggestion(
		"challenge-emergency-seed",
		types.PriorityHigh,
		types.ChallengeSuggestion{
			Title:        "Seed your emergency fund",
			Description:  fmt.Sprintf("Move %s into an emergency reserve within 30 days.", types.FormatMoney(target)),
			TargetAmount: target,
			DurationDays: 30,
			Reason:       fmt.Sprintf("You have %s left this month and no emergency fund.", types.FormatMoney(balance)),
		},
		s,
	)}
}
