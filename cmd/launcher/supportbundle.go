package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archiver/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var supportBundleCmd = &cobra.Command{
	Use:   "support-bundle <output.tar.gz>",
	Short: "Package store-root version metadata into a single archive for bug reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, cliArgs []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		versionsDir := filepath.Join(cfg.StoreRoot, "versions")
		entries, err := os.ReadDir(versionsDir)
		if err != nil {
			return errors.Wrap(err, "reading versions directory")
		}

		var files []string
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			detailPath := filepath.Join(versionsDir, e.Name(), e.Name()+".json")
			if _, err := os.Stat(detailPath); err == nil {
				files = append(files, detailPath)
			}
		}
		if len(files) == 0 {
			return errors.New("no installed version metadata found under " + versionsDir)
		}

		dest := cliArgs[0]
		if err := archiver.Archive(files, dest); err != nil {
			return errors.Wrap(err, "archiving support bundle")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote support bundle with %d version manifest(s) to %s\n", len(files), dest)
		return nil
	},
}
