package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibecli/vibe/internal/engine/executor"
)

func newExecCmd(flags *rootFlags) *cobra.Command {
	var (
		directory string
		timeout   time.Duration
		retry     int
		stream    bool
	)

	cmd := &cobra.Command{
		Use:   "exec -- <command> [args...]",
		Short: "Validate and execute a single shell command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			opts := executor.Options{
				Directory:    directory,
				Timeout:      timeout,
				RetryCount:   retry,
				StreamOutput: stream,
			}
			if stream {
				opts.OnStdout = func(chunk []byte) { fmt.Fprint(os.Stdout, eng.Mask(string(chunk))) }
				opts.OnStderr = func(chunk []byte) { fmt.Fprint(os.Stderr, eng.Mask(string(chunk))) }
			}

			result, err := eng.Execute(cmd.Context(), strings.Join(args, " "), opts)
			if err != nil {
				return err
			}
			if !stream {
				if result.Stdout != "" {
					fmt.Fprint(os.Stdout, eng.Mask(result.Stdout))
				}
				if result.Stderr != "" {
					fmt.Fprint(os.Stderr, eng.Mask(result.Stderr))
				}
			}
			if !result.Success {
				os.Exit(exitCode(result.ExitCode))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&directory, "directory", "C", "", "working directory for the command")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "per-attempt timeout (default from config)")
	cmd.Flags().IntVar(&retry, "retry", 0, "number of retries after a failed attempt")
	cmd.Flags().BoolVar(&stream, "stream", true, "stream output as it is produced")
	return cmd
}

func exitCode(code int) int {
	if code <= 0 {
		return 1
	}
	return code
}
