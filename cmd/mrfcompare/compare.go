package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danishbarkat/mrfcompare/internal/compare"
	"github.com/danishbarkat/mrfcompare/internal/output"
)

// newCompareCmd implements spec §6 operation 5, compare (the Batch
// Comparator, spec §4.6).
func newCompareCmd(c *core) *cobra.Command {
	var (
		source1        string
		source2        string
		rule           string
		negotiatedType string
		excludeExpired bool
		asOf           string
		outputFile     string
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two loaded sources under an aggregation rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if source1 == "" || source2 == "" {
				return fmt.Errorf("--source1 and --source2 are required")
			}
			opts, err := buildOptions(rule, negotiatedType, excludeExpired, asOf)
			if err != nil {
				return err
			}
			report, err := compare.Batch(c.store, source1, source2, opts)
			if err != nil {
				return err
			}
			return output.Write(outputFile, report)
		},
	}
	cmd.Flags().StringVar(&source1, "source1", "", "Name of the first loaded source (required)")
	cmd.Flags().StringVar(&source2, "source2", "", "Name of the second loaded source / baseline (required)")
	cmd.Flags().StringVar(&rule, "rule", "max", "Aggregation rule: max, min, avg, median, max_avg_by_billing_class, all_classes, per_occurrence, context")
	cmd.Flags().StringVar(&negotiatedType, "negotiated-type", "", "Restrict to this negotiated_type, or all types if empty")
	cmd.Flags().BoolVar(&excludeExpired, "exclude-expired", false, "Exclude rates with an expiration_date before --as-of")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date (YYYY-MM-DD) for --exclude-expired")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Write the comparison report here, or \"-\" for stdout")
	return cmd
}

// buildOptions parses the flags shared by "compare" and "session
// process-part" into a compare.Options.
func buildOptions(rule, negotiatedType string, excludeExpired bool, asOf string) (compare.Options, error) {
	opts := compare.Options{
		Rule:           rule,
		NegotiatedType: negotiatedType,
		ExcludeExpired: excludeExpired,
	}
	if asOf != "" {
		t, err := time.Parse("2006-01-02", asOf)
		if err != nil {
			return opts, err
		}
		opts.AsOf = t
	}
	return opts, nil
}
