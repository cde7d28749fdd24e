package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperengineering/finsight/internal/snapshot"
	"github.com/hyperengineering/finsight/internal/worker"
	"github.com/spf13/cobra"
)

var snapshotDir string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy the database to the snapshot directory and upload it",
	Long: "Takes one snapshot immediately, the same one the server takes every snapshot.interval. " +
		"When snapshot.bucket is set the copy is uploaded and a download link is printed.",
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotDir, "dir", "", "Snapshot directory (defaults to snapshot.dir)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, svc, err := openLocal()
	if err != nil {
		return err
	}
	defer svc.store.Close()

	dir := cfg.Snapshot.Dir
	if snapshotDir != "" {
		dir = snapshotDir
	}
	uploader, err := snapshot.NewUploader(cfg.Snapshot)
	if err != nil {
		return err
	}

	ctx := context.Background()
	coordinator := worker.NewSnapshotCoordinator(svc.store, uploader, dir, time.Duration(cfg.Snapshot.Interval), time.Now)
	res, err := coordinator.RunOnce(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Snapshot written to %s\n", res.Path)
	if !uploader.Remote() {
		return nil
	}
	if !res.Uploaded {
		return fmt.Errorf("upload of %s failed; the local copy was kept", res.Name)
	}
	link, expiry, err := uploader.PresignedURL(ctx, res.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Uploaded as %s\nDownload (expires %s): %s\n", res.Name, expiry.Format(time.RFC3339), link)
	return nil
}
