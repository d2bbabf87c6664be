package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/ipc"
	"scribe/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Add an audio file to the transcription queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}

			cfg := ctx.configValue()
			if cfg != nil && !cfg.WatchesExtension(info.Name()) {
				return fmt.Errorf("unsupported file extension %q", filepath.Ext(info.Name()))
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var item ipc.QueueItem
				if client != nil {
					resp, addErr := client.QueueAdd(absPath)
					if addErr != nil {
						return addErr
					}
					item = resp.Item
				} else {
					dedup := time.Duration(cfg.Workflow.DedupWindowSeconds) * time.Second
					record, created, addErr := store.Enqueue(cmd.Context(), absPath, info.Size(), dedup)
					if addErr != nil {
						return addErr
					}
					if !created {
						return fmt.Errorf("file already queued as item %d", record.ID)
					}
					item = api.FromQueueItem(record)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as item #%d\n", filepath.Base(absPath), item.ID)
				return nil
			})
		},
	}
}
