package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wellb3tz/axiscore/internal/archive"
)

var toolsCMD = &cobra.Command{
	Use:   "tools",
	Short: "inspect external extraction tools",
}

var toolsCheckCMD = &cobra.Command{
	Use:   "check",
	Short: "report which archive CLI tools are on PATH",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL\tAVAILABLE\tPATH")
		for _, st := range archive.CheckTools() {
			fmt.Fprintf(w, "%s\t%t\t%s\n", st.Name, st.Available, st.Path)
		}
		if !cfg.Archive.UseCLI {
			fmt.Fprintln(w, "(CLI backends disabled by ARCHIVE_USE_CLI)")
		}
		return w.Flush()
	},
}

func init() {
	toolsCMD.AddCommand(toolsCheckCMD)
	rootCMD.AddCommand(toolsCMD)
}
