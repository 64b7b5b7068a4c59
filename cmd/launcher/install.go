package main

import (
	"context"
	"fmt"

	"github.com/cheggaaa/pb"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/voxelforge/launcher-core/internal/engine"
	"github.com/voxelforge/launcher-core/internal/launchererr"
	"github.com/voxelforge/launcher-core/internal/manifest"
)

var installCmd = &cobra.Command{
	Use:   "install <version-id>",
	Short: "Install a version into the local store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, cliArgs []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		eng, _ := newEngine(cfg)
		ctx := cmd.Context()

		id := manifest.VersionID(cliArgs[0])
		entry, err := lookupEntry(ctx, eng, id)
		if err != nil {
			return err
		}

		detail, err := eng.Inspect(ctx, id, entry.DetailURL, "")
		if err != nil {
			return err
		}

		bar := pb.New(100)
		bar.ShowCounters = false
		bar.ShowTimeLeft = true
		bar.Output = cmd.OutOrStderr()
		bar.Start()
		defer bar.Finish()

		result, err := eng.Install(ctx, detail, func(done, total int64) {
			if total > 0 {
				bar.Set(int(done * 100 / total))
			}
		})
		if err != nil {
			return err
		}
		bar.Set(100)

		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("installed %s", id))
		for _, w := range result.Warnings {
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("warning: %s", w))
		}
		return nil
	},
}

// lookupEntry finds id in the manifest index, since internal/engine's
// Inspect needs the detail URL the index entry carries rather than
// guessing one from the id.
func lookupEntry(ctx context.Context, eng *engine.Engine, id manifest.VersionID) (manifest.IndexEntry, error) {
	idx, err := eng.ListVersions(ctx)
	if err != nil {
		return manifest.IndexEntry{}, err
	}
	for _, entry := range idx.Entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return manifest.IndexEntry{}, launchererr.New(launchererr.KindBadArgument, string(id)+" not found in manifest index")
}
