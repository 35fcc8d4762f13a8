package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danishbarkat/mrfcompare/internal/compare"
	"github.com/danishbarkat/mrfcompare/internal/store"
)

// core holds the process-wide state shared by every subcommand: the Source
// Store and the incremental session manager built on top of it (spec §5:
// "one Store, any number of independent sessions").
type core struct {
	store   *store.Store
	manager *compare.Manager
}

func main() {
	st := store.New()
	c := &core{store: st, manager: compare.NewManager(st)}

	rootCmd := &cobra.Command{
		Use:   "mrfcompare",
		Short: "Compare negotiated CPT rates across two machine-readable price transparency files",
	}

	rootCmd.AddCommand(newLoadCmd(c))
	rootCmd.AddCommand(newLoadPartsCmd(c))
	rootCmd.AddCommand(newSourcesCmd(c))
	rootCmd.AddCommand(newFetchCmd(c))
	rootCmd.AddCommand(newCompareCmd(c))
	rootCmd.AddCommand(newSessionCmd(c))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
