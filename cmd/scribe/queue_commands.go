package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/ipc"
	"scribe/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the transcription queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				stats := make(map[string]int)
				if client != nil {
					status, err := client.Status()
					if err != nil {
						return err
					}
					stats = status.QueueStats
				} else {
					raw, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					for status, count := range raw {
						stats[string(status)] = count
					}
				}

				if ctx.jsonMode() {
					return writeJSON(cmd, stats)
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var items []ipc.QueueItem
				if client != nil {
					resp, err := client.QueueList(listStatuses)
					if err != nil {
						return err
					}
					items = resp.Items
				} else {
					var statuses []queue.Status
					for _, raw := range listStatuses {
						status, ok := queue.ParseStatus(raw)
						if !ok {
							return fmt.Errorf("unknown queue status %q", raw)
						}
						statuses = append(statuses, status)
					}
					records, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					items = api.FromQueueItems(records)
				}

				if ctx.jsonMode() {
					return writeJSON(cmd, ipc.QueueListResponse{Items: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "File", "Status", "Stage", "Attempts", "Created"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show details for a single queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid item id %q", args[0])
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var item ipc.QueueItem
				if client != nil {
					resp, descErr := client.QueueDescribe(id)
					if descErr != nil {
						return descErr
					}
					item = resp.Item
				} else {
					record, getErr := store.GetByID(cmd.Context(), id)
					if getErr != nil {
						return getErr
					}
					if record == nil {
						return fmt.Errorf("queue item %d not found", id)
					}
					item = api.FromQueueItem(record)
				}

				if ctx.jsonMode() {
					return writeJSON(cmd, item)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item #%d\n", item.ID)
				fmt.Fprintf(out, "  File:        %s\n", item.FileName)
				fmt.Fprintf(out, "  Source:      %s\n", item.SourcePath)
				fmt.Fprintf(out, "  Status:      %s\n", formatStatusLabel(item.Status))
				if item.Progress.Stage != "" {
					fmt.Fprintf(out, "  Stage:       %s (%s)\n", item.Progress.Stage, item.Progress.Message)
				}
				fmt.Fprintf(out, "  Attempts:    %d\n", item.Attempts)
				fmt.Fprintf(out, "  Size:        %d bytes\n", item.FileSize)
				if item.TranscriptPath != "" {
					fmt.Fprintf(out, "  Transcript:  %s\n", item.TranscriptPath)
				}
				if item.ArchivedPath != "" {
					fmt.Fprintf(out, "  Archived:    %s\n", item.ArchivedPath)
				}
				if item.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:       %s\n", item.ErrorMessage)
				}
				fmt.Fprintf(out, "  Created:     %s\n", item.CreatedAt)
				fmt.Fprintf(out, "  Updated:     %s\n", item.UpdatedAt)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				var removed int64
				var label string
				var err error

				switch {
				case clearCompleted:
					label = "completed items"
					if client != nil {
						var resp *ipc.QueueClearCompletedResponse
						resp, err = client.QueueClearCompleted()
						if err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearCompleted(cmd.Context())
					}
				case clearFailed:
					label = "failed items"
					if client != nil {
						var resp *ipc.QueueClearFailedResponse
						resp, err = client.QueueClearFailed()
						if err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearFailed(cmd.Context())
					}
				default:
					label = "queue items"
					if client != nil {
						var resp *ipc.QueueClearResponse
						resp, err = client.QueueClear()
						if err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.Clear(cmd.Context())
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight items to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				var err error
				if client != nil {
					var resp *ipc.QueueResetResponse
					resp, err = client.QueueReset()
					if err == nil {
						updated = resp.Updated
					}
				} else {
					updated, err = store.ResetStuckTranscribing(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid item id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				var err error
				if client != nil {
					var resp *ipc.QueueRetryResponse
					resp, err = client.QueueRetry(ids)
					if err == nil {
						updated = resp.Updated
					}
				} else {
					updated, err = store.RetryFailed(cmd.Context(), ids...)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed items\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var health ipc.QueueHealthResponse
				if client != nil {
					resp, err := client.QueueHealth()
					if err != nil {
						return err
					}
					health = *resp
				} else {
					summary, err := store.Health(cmd.Context())
					if err != nil {
						return err
					}
					health = ipc.QueueHealthResponse{
						Total:        summary.Total,
						Pending:      summary.Pending,
						Transcribing: summary.Processing,
						Failed:       summary.Failed,
						Completed:    summary.Completed,
					}
				}

				if ctx.jsonMode() {
					return writeJSON(cmd, health)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nTranscribing: %d\nFailed: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Transcribing,
					health.Failed,
					health.Completed,
				)
				return nil
			})
		},
	}
}

func newDatabaseHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *ipc.Client, store *queue.Store) error {
				var resp ipc.DatabaseHealthResponse
				if client != nil {
					remote, err := client.DatabaseHealth()
					if err != nil {
						return err
					}
					resp = *remote
				} else {
					health, err := store.CheckHealth(cmd.Context())
					if err != nil && health.Error == "" {
						return err
					}
					resp = ipc.DatabaseHealthResponse{
						DBPath:           health.DBPath,
						DatabaseExists:   health.DatabaseExists,
						DatabaseReadable: health.DatabaseReadable,
						SchemaVersion:    health.SchemaVersion,
						TableExists:      health.TableExists,
						ColumnsPresent:   health.ColumnsPresent,
						MissingColumns:   health.MissingColumns,
						IntegrityCheck:   health.IntegrityCheck,
						TotalItems:       health.TotalItems,
						Error:            health.Error,
					}
				}

				if ctx.jsonMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %s\n", resp.SchemaVersion)
				fmt.Fprintf(out, "queue_items table present: %s\n", yesNo(resp.TableExists))
				if len(resp.ColumnsPresent) > 0 {
					cols := append([]string(nil), resp.ColumnsPresent...)
					sort.Strings(cols)
					fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
				}
				if len(resp.MissingColumns) > 0 {
					missing := append([]string(nil), resp.MissingColumns...)
					sort.Strings(missing)
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
				fmt.Fprintf(out, "Total items: %d\n", resp.TotalItems)
				if resp.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", resp.Error)
				}
				return nil
			})
		},
	}
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func itoa64(v int64) string {
	return strconv.FormatInt(v, 10)
}
