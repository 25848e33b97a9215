package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported conversions",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newEngine(newLogger())

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tOUTPUT\tPIPELINE")
		for _, ri := range engine.Routes() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", ri.Source, ri.Output, ri.Pipeline)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
