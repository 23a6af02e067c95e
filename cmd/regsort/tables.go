package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fortiblox/regsort/pkg/heuristic"
)

func newTablesCmd() *cobra.Command {
	var o searchOpts
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Print the swap-distance and min-instructions tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadConfig()
			if err != nil {
				return err
			}
			o.apply(cmd.Flags(), &f)
			if err := f.Validate(); err != nil {
				return err
			}
			log, err := setupLogger(f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			l := f.Layout()

			start := time.Now()
			swap := heuristic.NewSwapDistance(l.Values)
			fmt.Fprintf(out, "swap distance, %d permutations of %d values\n", swap.Len(), l.Values)
			printHistogram(out, "swaps", "permutations", swap.Histogram())

			minTable := heuristic.NewMinInstructions(l, f.Catalog(), heuristic.MinInstructionsOptions{})
			fmt.Fprintf(out, "\nmin instructions, %d states reach a sorted configuration (%s)\n", minTable.Len(), l)
			printHistogram(out, "instructions", "states", minTable.Histogram())

			log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debug("tables computed")
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&o.values, "values", "n", 0, "number of values to sort")
	fl.IntVarP(&o.scratch, "scratch", "s", 0, "number of scratch registers")
	fl.BoolVar(&o.vector, "vector", false, "add vector lanes and MIN/MAX/MOVD/MOVDQA")
	return cmd
}

func printHistogram(out io.Writer, key, count string, hist []int) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{key, count})
	for d, n := range hist {
		if n == 0 {
			continue
		}
		table.Append([]string{strconv.Itoa(d), strconv.Itoa(n)})
	}
	table.Render()
}
