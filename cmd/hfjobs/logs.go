package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/byte4ever/hfjobs/jobs"
)

func newLogsCmd(a *app) *cobra.Command {
	var timestamps bool

	cmd := &cobra.Command{
		Use:   "logs <job_id>",
		Short: "Fetch the logs of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const errCtx = "fetching logs"

			ctx := cmd.Context()

			s, err := a.connect(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			ref := jobs.Ref{
				Owner: s.identity.Username,
				ID:    args[0],
			}

			if _, err := s.client.GetJob(ctx, ref); err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			return a.followLogs(ctx, s, ref.ID, timestamps)
		},
	}

	cmd.Flags().BoolVarP(
		&timestamps, "timestamps", "t", false,
		"show timestamps (overrides log_format)",
	)

	return cmd
}
