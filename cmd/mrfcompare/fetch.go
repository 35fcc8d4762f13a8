package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danishbarkat/mrfcompare/internal/fetch"
)

// newFetchCmd implements spec §6 operation 3, fetch_and_ingest_url: download
// (or reuse a cached copy of) url, then load it the same way "load" would.
func newFetchCmd(c *core) *cobra.Command {
	var (
		sourceName  string
		cacheDir    string
		outputFile  string
		noProgress  bool
		logProgress bool
	)

	cmd := &cobra.Command{
		Use:   "fetch-url <url>",
		Short: "Fetch a URL through the content-addressed cache and load it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourceName == "" {
				return fmt.Errorf("--source is required")
			}
			if cacheDir == "" {
				cacheDir = filepath.Join(os.TempDir(), "mrfcompare-cache")
			}

			// First ^C cancels the in-flight fetch; a second force-exits.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 2)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				fmt.Fprintf(os.Stderr, "\nreceived %s, cancelling fetch... (^C again to force quit)\n", sig)
				cancel()
				sig = <-sigCh
				fmt.Fprintf(os.Stderr, "\nreceived %s, force quit.\n", sig)
				os.Exit(1)
			}()

			cache, err := fetch.NewCache(cacheDir)
			if err != nil {
				return err
			}

			mgr := resolveManager(noProgress, logProgress)
			tracker := mgr.NewTracker(0, 1, args[0])
			defer func() {
				tracker.Done()
				mgr.Wait()
			}()

			tracker.SetStage("fetching")
			path, err := cache.FetchWithProgress(ctx, args[0], func(downloaded, total int64) {
				tracker.SetProgress(downloaded, total)
			})
			if err != nil {
				return err
			}

			return runLoad(c, sourceName, []string{path}, outputFile, tracker)
		},
	}
	cmd.Flags().StringVar(&sourceName, "source", "", "Name to register the fetched source under")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default: $TMPDIR/mrfcompare-cache)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Write the load/index report here, or \"-\" for stdout")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
	cmd.Flags().BoolVar(&logProgress, "log-progress", false, "Use line-based progress logging (for non-TTY environments)")
	return cmd
}
