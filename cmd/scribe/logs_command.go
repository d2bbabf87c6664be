package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/ipc"
	"scribe/internal/logging"
	"scribe/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			client, dialErr := ipc.Dial(ctx.socketPath())
			if dialErr != nil {
				if !isDaemonUnavailable(dialErr) {
					return wrapDialError(dialErr, ctx.socketPath())
				}
				return tailLocalLog(cmd, ctx, lines, follow)
			}
			defer client.Close()

			offset := int64(-1)
			for {
				req := ipc.LogTailRequest{Offset: offset, Limit: lines, Follow: follow}
				if follow && offset >= 0 {
					req.WaitMillis = int((10 * time.Second).Milliseconds())
				}
				resp, err := client.LogTail(req)
				if err != nil {
					return err
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(out, line)
				}
				offset = resp.Offset
				if !follow {
					return nil
				}
				if err := cmd.Context().Err(); err != nil {
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	return cmd
}

// tailLocalLog reads today's daily log file directly when the daemon is down.
func tailLocalLog(cmd *cobra.Command, ctx *commandContext, lines int, follow bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Paths.LogDir, logging.DailyFileName(time.Now()))
	out := cmd.OutOrStdout()

	result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
	if err != nil {
		return err
	}
	for _, line := range result.Lines {
		fmt.Fprintln(out, line)
	}
	if !follow {
		return nil
	}

	offset := result.Offset
	for {
		if err := cmd.Context().Err(); err != nil {
			return nil
		}
		next, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
			Offset: offset,
			Follow: true,
			Wait:   2 * time.Second,
		})
		if err != nil {
			return err
		}
		for _, line := range next.Lines {
			fmt.Fprintln(out, line)
		}
		offset = next.Offset
	}
}
