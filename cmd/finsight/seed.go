package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperengineering/finsight/internal/types"
	"github.com/hyperengineering/finsight/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML fixture format accepted by the seed command.
type seedFile struct {
	Transactions []types.Transaction `yaml:"transactions"`
	Budgets      []types.Budget      `yaml:"budgets"`
	Goals        []types.Goal        `yaml:"goals"`
	Investments  []types.Investment  `yaml:"investments"`
	Alerts       []types.ManualAlert `yaml:"alerts"`
}

func (f *seedFile) validate() []validation.ValidationError {
	var errs []validation.ValidationError
	for i, t := range f.Transactions {
		errs = append(errs, validation.ValidateTransaction(i, t)...)
	}
	for i, b := range f.Budgets {
		errs = append(errs, validation.ValidateBudget(i, b)...)
	}
	for i, g := range f.Goals {
		errs = append(errs, validation.ValidateGoal(i, g)...)
	}
	for i, inv := range f.Investments {
		errs = append(errs, validation.ValidateInvestment(i, inv)...)
	}
	for i, a := range f.Alerts {
		errs = append(errs, validation.ValidateManualAlert(i, a)...)
	}
	return errs
}

var seedScope scopeFlags

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load financial rows from a YAML fixture",
	Long:  "Validates every row of the fixture and, only if all are valid, writes them into the workspace.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	seedScope.register(seedCmd)
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	scope, err := seedScope.scope()
	if err != nil {
		return err
	}

	f, err := loadSeedFile(args[0])
	if err != nil {
		return err
	}
	if errs := f.validate(); len(errs) > 0 {
		return fmt.Errorf("fixture has %d invalid fields: %w", len(errs), validationError(errs))
	}

	_, svc, err := openLocal()
	if err != nil {
		return err
	}
	defer svc.store.Close()
	db := svc.store

	for _, t := range f.Transactions {
		if _, err := db.CreateTransaction(ctx, scope, t); err != nil {
			return err
		}
	}
	for _, b := range f.Budgets {
		if _, err := db.CreateBudget(ctx, scope, b); err != nil {
			return err
		}
	}
	for _, g := range f.Goals {
		if _, err := db.CreateGoal(ctx, scope, g); err != nil {
			return err
		}
	}
	for _, inv := range f.Investments {
		if _, err := db.CreateInvestment(ctx, scope, inv); err != nil {
			return err
		}
	}
	for _, a := range f.Alerts {
		a.WorkspaceID = scope.WorkspaceID
		if _, err := db.CreateManualAlert(ctx, scope.UserID, a); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Seeded %s: %d transactions, %d budgets, %d goals, %d investments, %d alerts\n",
		scope, len(f.Transactions), len(f.Budgets), len(f.Goals), len(f.Investments), len(f.Alerts))
	return nil
}
