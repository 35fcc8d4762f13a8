package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/danishbarkat/mrfcompare/internal/output"
)

// newSourcesCmd implements spec §6 operation 4, list_sources.
func newSourcesCmd(c *core) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the names of every loaded source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := c.store.ListNames()
			sort.Strings(names)
			return output.Write(outputFile, names)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Write the source list here, or \"-\" for stdout")
	return cmd
}
