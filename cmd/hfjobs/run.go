package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/byte4ever/hfjobs/submit"
)

type runFlags struct {
	env        []string
	envFile    string
	flavor     string
	timeout    string
	detach     bool
	timestamps bool
}

func newRunCmd(a *app) *cobra.Command {
	var rf runFlags

	cmd := &cobra.Command{
		Use:   "run [flags] <image> [flags] <command...>",
		Short: "Run a job",
		Long: "Run a job from a Docker image or a Hub Space " +
			"(https://huggingface.co/spaces/<id>) and stream " +
			"its logs. Flags may be given before or after the " +
			"image; everything from the first argument after " +
			"the image on is the command.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const errCtx = "running job"

			// Flags between the image and the command.
			if err := cmd.Flags().Parse(args[1:]); err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			image := args[0]
			command := cmd.Flags().Args()

			return runJob(cmd, a, &rf, image, command)
		},
	}

	f := cmd.Flags()
	f.SetInterspersed(false)
	f.StringArrayVarP(
		&rf.env, "env", "e", nil,
		"set an environment variable (KEY=VALUE), repeatable",
	)
	f.StringVar(
		&rf.envFile, "env-file", "",
		"read environment variables from a dotenv file",
	)
	f.StringVar(
		&rf.flavor, "flavor", "",
		"hardware flavor, as in Hub Spaces (default from config)",
	)
	f.StringVar(
		&rf.timeout, "timeout", "",
		"max duration: int/float with s (default), m, h or d",
	)
	f.BoolVarP(
		&rf.detach, "detach", "d", false,
		"print the job ID and do not stream logs",
	)
	f.BoolVarP(
		&rf.timestamps, "timestamps", "t", false,
		"show timestamps (overrides log_format)",
	)

	return cmd
}

func runJob(
	cmd *cobra.Command,
	a *app,
	rf *runFlags,
	image string,
	command []string,
) error {
	const errCtx = "running job"

	ctx := cmd.Context()

	env, err := submit.ParseEnv(rf.env, rf.envFile)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	timeout, err := submit.ParseTimeout(rf.timeout)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	s, err := a.connect(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	flavor := rf.flavor
	if flavor == "" {
		flavor = s.cfg.Flavor
	}

	sr, err := submit.BuildRequest(submit.Options{
		Image:   image,
		Command: command,
		Env:     env,
		Flavor:  flavor,
		Timeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	id, err := s.client.SubmitJob(ctx, s.identity.Username, sr)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := fmt.Fprintf(
		a.stdout, "Job started with ID: %s\n", id,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if rf.detach {
		return nil
	}

	return a.followLogs(ctx, s, id, rf.timestamps)
}
