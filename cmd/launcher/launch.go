package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/voxelforge/launcher-core/internal/args"
	"github.com/voxelforge/launcher-core/internal/events"
	"github.com/voxelforge/launcher-core/internal/manifest"
)

var launchFlags struct {
	playerName  string
	playerUUID  string
	accessToken string
	gameDir     string
	maxHeapMB   int
	width       int
	height      int
	userKind    string
	javaHome    string
}

var launchCmd = &cobra.Command{
	Use:   "launch <version-id>",
	Short: "Launch an installed version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, cliArgs []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		eng, bus := newEngine(cfg)
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

		playerUUID := launchFlags.playerUUID
		if playerUUID == "" {
			// Offline-mode UUID: deterministic per player name, same
			// convention as a vanilla launcher's cracked-auth fallback.
			playerUUID = uuid.NewMD5(uuid.NameSpaceOID, []byte("OfflinePlayer:"+launchFlags.playerName)).String()
		}

		gameDir := launchFlags.gameDir
		if gameDir == "" {
			gameDir = cfg.StoreRoot
		}

		subscribeStdioAndExit(bus, cmd)

		p := args.Params{
			PlayerName:       launchFlags.playerName,
			PlayerUUID:       playerUUID,
			AccessToken:      launchFlags.accessToken,
			GameDir:          gameDir,
			AssetsDir:        eng.AssetsDir(),
			ClasspathEntries: eng.ClasspathEntries(detail),
			VersionType:      string(detail.Kind),
			MaxHeapMB:        launchFlags.maxHeapMB,
			Width:            launchFlags.width,
			Height:           launchFlags.height,
			UserKind:         launchFlags.userKind,
			ClientID:         "voxelforge-launcher-cli",
		}

		handle, err := eng.Launch(ctx, detail, p, launchFlags.javaHome)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), color.CyanString("launched %s (pid %d)", id, handle.PID()))
		code := handle.Wait()
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	flags := launchCmd.Flags()
	flags.StringVar(&launchFlags.playerName, "player-name", "Player", "player display name")
	flags.StringVar(&launchFlags.playerUUID, "player-uuid", "", "player UUID (offline UUID derived from player-name if omitted)")
	flags.StringVar(&launchFlags.accessToken, "access-token", "0", "session access token")
	flags.StringVar(&launchFlags.gameDir, "game-dir", "", "working directory for the launched process (defaults to store-root)")
	flags.IntVar(&launchFlags.maxHeapMB, "max-heap-mb", 2048, "JVM max heap size in MB")
	flags.IntVar(&launchFlags.width, "width", 854, "window width")
	flags.IntVar(&launchFlags.height, "height", 480, "window height")
	flags.StringVar(&launchFlags.userKind, "user-type", "legacy", "account type: msa or legacy")
	flags.StringVar(&launchFlags.javaHome, "java-home", "", "Java home searched first, before the JAVA_HOME env and PATH")
}

// subscribeStdioAndExit mirrors the launched process's stdio and
// lifecycle events onto the CLI's own stdout, colorized by kind.
func subscribeStdioAndExit(bus *events.Bus, cmd *cobra.Command) {
	bus.Subscribe(func(evt events.Event) {
		switch evt.Kind {
		case events.KindStdio:
			fmt.Fprintln(cmd.OutOrStdout(), evt.Stdio.Line)
		case events.KindExited:
			fmt.Fprintln(cmd.OutOrStdout(), color.MagentaString("[exit %d]", evt.Exited.Code))
		case events.KindError:
			fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("[%s] %s", evt.Error.Kind, evt.Error.Detail))
		}
	})
}
