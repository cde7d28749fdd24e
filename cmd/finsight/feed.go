package main

import (
	"context"
	"fmt"

	"github.com/hyperengineering/finsight/internal/insight"
	"github.com/spf13/cobra"
)

var (
	feedScope  scopeFlags
	feedFilter string
	feedJSON   bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the insight feed of a workspace",
	Long:  "Evaluates every rule against the local database and prints the unified feed, highest priority first.",
	Args:  cobra.NoArgs,
	RunE:  runFeed,
}

func init() {
	feedScope.register(feedCmd)
	feedCmd.Flags().StringVar(&feedFilter, "filter", "all", "One of all, alert, tip, challenge")
	feedCmd.Flags().BoolVar(&feedJSON, "json", false, "Output in JSON format")
}

func runFeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	scope, err := feedScope.scope()
	if err != nil {
		return err
	}
	filter, err := insight.ParseFilter(feedFilter)
	if err != nil {
		return fmt.Errorf("%w: %q", err, feedFilter)
	}

	_, svc, err := openLocal()
	if err != nil {
		return err
	}
	defer svc.store.Close()

	feed, err := svc.unified.Feed(ctx, scope, filter)
	if err != nil {
		return fmt.Errorf("build feed: %w", err)
	}

	if feedJSON {
		return printJSON(cmd.OutOrStdout(), feed)
	}

	if len(feed.Items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No insights.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "PRIORITY\tKIND\tCATEGORY\tREAD\tID\tTITLE")
	for _, in := range feed.Items {
		read := "-"
		if in.HasReadState() {
			read = "no"
			if in.IsRead {
				read = "yes"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			in.Priority, in.Kind, in.Category, read, in.ID, in.Title)
	}
	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d shown, %d total, %d unread\n",
		len(feed.Items), feed.Counts.Total, feed.UnreadCount)
	return nil
}
