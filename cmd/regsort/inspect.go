package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fortiblox/regsort/pkg/sink"
	"github.com/fortiblox/regsort/pkg/visited"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a visited store or a solution archive",
	}
	cmd.AddCommand(newInspectStoreCmd(), newInspectArchiveCmd())
	return cmd
}

func newInspectStoreCmd() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "store <path>",
		Short: "Print the metadata of an on-disk visited store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := setupLogger(f)
			if err != nil {
				return err
			}
			b, err := visited.ParseBackend(backend)
			if err != nil {
				return err
			}
			if b == visited.BackendMemory {
				return fmt.Errorf("inspect store: %s backend has nothing on disk", b)
			}

			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("inspect store: %w", err)
			}
			// A zero fingerprint opens any store without checking or
			// stamping it.
			store, err := visited.Open(visited.Config{Backend: b, Path: args[0], Logger: log})
			if err != nil {
				return fmt.Errorf("open visited store: %w", err)
			}
			defer store.Close()

			meta, err := store.Meta()
			if err != nil {
				return err
			}
			updated := "-"
			if !meta.UpdatedAt.IsZero() {
				updated = meta.UpdatedAt.Format(time.RFC3339)
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"field", "value"})
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.AppendBulk([][]string{
				{"backend", string(b)},
				{"fingerprint", meta.Fingerprint.String()},
				{"layout", meta.Layout},
				{"key mode", meta.KeyMode},
				{"outcome", meta.Outcome},
				{"best length", strconv.Itoa(meta.BestLength)},
				{"entries", strconv.FormatUint(store.Len(), 10)},
				{"updated", updated},
			})
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "store", string(visited.BackendBolt), "backend that wrote the store: bolt or badger")
	return cmd
}

func newInspectArchiveCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "archive <path>",
		Short: "Print the solutions in a zstd archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := sink.ParseFormat(format)
			if err != nil {
				return err
			}
			solutions, err := sink.ReadArchive(args[0])
			if err != nil {
				return err
			}
			w := sink.NewWriter(cmd.OutOrStdout(), fm)
			for _, s := range solutions {
				if err := w.Emit(s); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "; %d solutions\n", len(solutions))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(sink.FormatHuman), "solution format: human or asm")
	return cmd
}
