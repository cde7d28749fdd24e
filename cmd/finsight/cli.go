package main

import (
	"encoding/json"
	"errors"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hyperengineering/finsight/internal/config"
	"github.com/hyperengineering/finsight/internal/store"
	"github.com/hyperengineering/finsight/internal/types"
	"github.com/hyperengineering/finsight/internal/validation"
	"github.com/spf13/cobra"
)

// scopeFlags are shared by commands that act on one user's workspace.
type scopeFlags struct {
	user      string
	workspace string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "User id (required)")
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "Workspace id (required)")
}

func (f *scopeFlags) scope() (types.Scope, error) {
	scope := types.Scope{UserID: f.user, WorkspaceID: f.workspace}
	if errs := validation.ValidateScope(scope); len(errs) > 0 {
		return types.Scope{}, validationError(errs)
	}
	return scope, nil
}

func validationError(errs []validation.ValidationError) error {
	joined := make([]error, len(errs))
	for i := range errs {
		joined[i] = &errs[i]
	}
	return errors.Join(joined...)
}

// dbPathOverride is bound to the persistent --db flag.
var dbPathOverride string

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"Database path (overrides config and FINSIGHT_DB_PATH)")
}

// openLocal loads CLI configuration and opens the store it points at.
func openLocal() (*config.Config, *services, error) {
	cfg, err := config.LoadLocal()
	if err != nil {
		return nil, nil, err
	}
	if dbPathOverride != "" {
		cfg.Database.Path = dbPathOverride
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, newServices(db, cfg, time.Now), nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
