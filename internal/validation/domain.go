package validation

import (
	"fmt"

	"github.com/hyperengineering/finsight/internal/types"
)

const (
	MaxNameLength        = 200
	MaxDescriptionLength = 2000
	MaxChallengeDays     = 365
)

// ValidateScope checks the user and workspace ids of a request.
func ValidateScope(scope types.Scope) []ValidationError {
	var c Collector
	c.Add(ValidateIdentifier("user_id", scope.UserID))
	c.Add(ValidateIdentifier("workspace_id", scope.WorkspaceID))
	return c.Errors()
}

func validateText(c *Collector, field, value string, max int) {
	c.Add(ValidateUTF8(field, value))
	c.Add(ValidateNoNullBytes(field, value))
	c.Add(ValidateMaxLength(field, value, max))
}

// ValidateTransaction checks one transaction at index i of a batch.
func ValidateTransaction(i int, t types.Transaction) []ValidationError {
	var c Collector
	prefix := fmt.Sprintf("transactions[%d]", i)

	c.Add(ValidateEnum(prefix+".type", string(t.Type),
		[]string{string(types.TransactionIncome), string(types.TransactionExpense)}))
	c.Add(ValidatePositive(prefix+".amount", t.Amount))
	validateText(&c, prefix+".category", t.Category, MaxNameLength)
	validateText(&c, prefix+".description", t.Description, MaxDescriptionLength)
	if t.Date.IsZero() {
		c.Add(&ValidationError{Field: prefix + ".date", Message: "is required"})
	}
	return c.Errors()
}

// ValidateBudget checks one budget at index i of a batch.
func ValidateBudget(i int, b types.Budget) []ValidationError {
	var c Collector
	prefix := fmt.Sprintf("budgets[%d]", i)

	c.Add(ValidateRequired(prefix+".category", b.Category))
	validateText(&c, prefix+".category", b.Category, MaxNameLength)
	c.Add(ValidatePositive(prefix+".amount_limit", b.AmountLimit))
	c.Add(ValidateIntRange(prefix+".year", b.Year, 1970, 9999))
	c.Add(ValidateIntRange(prefix+".month", int(b.Month), 1, 12))
	return c.Errors()
}

// ValidateGoal checks one goal at index i of a batch.
func ValidateGoal(i int, g types.Goal) []ValidationError {
	var c Collector
	prefix := fmt.Sprintf("goals[%d]", i)

	c.Add(ValidateRequired(prefix+".name", g.Name))
	validateText(&c, prefix+".name", g.Name, MaxNameLength)
	c.Add(ValidateNonNegative(prefix+".current_amount", g.CurrentAmount))
	c.Add(ValidatePositive(prefix+".target_amount", g.TargetAmount))
	return c.Errors()
}

// ValidateInvestment checks one investment at index i of a batch.
func ValidateInvestment(i int, inv types.Investment) []ValidationError {
	var c Collector
	prefix := fmt.Sprintf("investments[%d]", i)

	c.Add(ValidateRequired(prefix+".name", inv.Name))
	validateText(&c, prefix+".name", inv.Name, MaxNameLength)
	c.Add(ValidateNonNegative(prefix+".amount", inv.Amount))
	return c.Errors()
}

// ValidateManualAlert checks one manual alert at index i of a batch.
// AlertType and Priority are not checked: unknown values are normalized
// when the alert is read.
func ValidateManualAlert(i int, a types.ManualAlert) []ValidationError {
	var c Collector
	prefix := fmt.Sprintf("alerts[%d]", i)

	c.Add(ValidateRequired(prefix+".title", a.Title))
	validateText(&c, prefix+".title", a.Title, MaxNameLength)
	validateText(&c, prefix+".message", a.Message, MaxDescriptionLength)
	return c.Errors()
}
