package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/danishbarkat/mrfcompare/internal/output"
)

// newSessionCmd groups the four incremental-comparison operations (spec §6
// operations 6-9) under one subcommand, mirroring the teacher's
// subcommand-per-operation CLI shape.
func newSessionCmd(c *core) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run an incremental comparison session against a fixed baseline",
	}
	cmd.AddCommand(newSessionBeginCmd(c))
	cmd.AddCommand(newSessionProcessPartCmd(c))
	cmd.AddCommand(newSessionStatusCmd(c))
	cmd.AddCommand(newSessionFinalizeCmd(c))
	return cmd
}

// newSessionBeginCmd implements session_begin_or_resume (spec §4.7
// operation 6).
func newSessionBeginCmd(c *core) *cobra.Command {
	var (
		sessionID  string
		source1    string
		baseline   string
		outputFile string
	)
	cmd := &cobra.Command{
		Use:   "begin",
		Short: "Begin a new incremental session, or resume an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.manager.BeginOrResume(sessionID, source1, baseline)
			if err != nil {
				return err
			}
			return output.Write(outputFile, map[string]string{"session_id": sess.ID})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Existing session ID to resume, or empty to create one")
	cmd.Flags().StringVar(&source1, "source1-name", "", "Name Source 1's parts will be recorded under (required)")
	cmd.Flags().StringVar(&baseline, "baseline", "", "Name of the already-loaded baseline source (required)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Write the session ID here, or \"-\" for stdout")
	cmd.MarkFlagRequired("source1-name")
	cmd.MarkFlagRequired("baseline")
	return cmd
}

// newSessionProcessPartCmd implements session_process_part (spec §4.7
// operation 7).
func newSessionProcessPartCmd(c *core) *cobra.Command {
	var (
		sessionID      string
		rule           string
		negotiatedType string
		excludeExpired bool
		asOf           string
		outputFile     string
	)
	cmd := &cobra.Command{
		Use:   "process-part <path>",
		Short: "Feed one part into a session and report the updated incremental snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(rule, negotiatedType, excludeExpired, asOf)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			snap, err := c.manager.ProcessPart(sessionID, f, args[0], opts)
			if err != nil {
				return err
			}
			return output.Write(outputFile, snap)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID (required)")
	cmd.Flags().StringVar(&rule, "rule", "max", "Aggregation rule (must match every prior part in this session)")
	cmd.Flags().StringVar(&negotiatedType, "negotiated-type", "", "Restrict to this negotiated_type, or all types if empty")
	cmd.Flags().BoolVar(&excludeExpired, "exclude-expired", false, "Exclude rates with an expiration_date before --as-of")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date (YYYY-MM-DD) for --exclude-expired")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Write the snapshot here, or \"-\" for stdout")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

// newSessionStatusCmd implements session_status (spec §4.7 operation 8).
func newSessionStatusCmd(c *core) *cobra.Command {
	var (
		sessionID  string
		outputFile string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report a session's current incremental snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := c.manager.Status(sessionID)
			if err != nil {
				return err
			}
			return output.Write(outputFile, snap)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID (required)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Write the snapshot here, or \"-\" for stdout")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

// newSessionFinalizeCmd implements session_finalize (spec §4.7 operation 9):
// a full-stream re-comparison of every part this session has accumulated,
// for verification against the incremental running state.
func newSessionFinalizeCmd(c *core) *cobra.Command {
	var (
		sessionID  string
		baseline   string
		outputFile string
	)
	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Re-run a full-stream comparison of a session's accumulated parts against its baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.manager.Finalize(sessionID, baseline)
			if err != nil {
				return err
			}
			return output.Write(outputFile, report)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID (required)")
	cmd.Flags().StringVar(&baseline, "baseline", "", "Baseline source name, must match the session's (required)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Write the comparison report here, or \"-\" for stdout")
	cmd.MarkFlagRequired("session-id")
	cmd.MarkFlagRequired("baseline")
	return cmd
}
