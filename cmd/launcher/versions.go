package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List every version in the manifest index",
	RunE: func(cmd *cobra.Command, cliArgs []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		eng, _ := newEngine(cfg)

		idx, err := eng.ListVersions(cmd.Context())
		if err != nil {
			return err
		}

		for _, v := range idx.Entries {
			marker := " "
			if v.ID == idx.LatestRelease {
				marker = color.GreenString("*")
			} else if v.ID == idx.LatestSnapshot {
				marker = color.YellowString("*")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-24s %-10s %s\n", marker, v.ID, v.Kind, v.PublishTime.Format("2006-01-02"))
		}
		return nil
	},
}
