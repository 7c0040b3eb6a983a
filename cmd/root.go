package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oshokin/tidal-grabber/internal/app"
	"github.com/oshokin/tidal-grabber/internal/config"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/version"
)

// dumpConfigEnv makes the root command print the effective configuration as JSON and exit.
const dumpConfigEnv = "TIDAL_GRABBER_DUMP_CONFIG"

var (
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Config

	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "tidal-grabber [flags] {urls}",
		Short: "Download tracks, albums, playlists, or an entire artist's catalog from TIDAL.",
		Long: `TIDAL Grabber is a CLI tool for downloading audio content from TIDAL URLs.
It supports downloading:
- Individual tracks
- Full albums
- Playlists
- Complete catalogs of an artist

Arguments ending with .txt are read as files with one URL per line.
Interrupted downloads are resumed from their .part files on the next run.

The application provides flexible naming templates, quality selection, ZIP packing and download speed limits.`,
		Version:          version.Full(),
		Args:             cobra.MinimumNArgs(1),
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, urls []string) {
			if err := bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
				logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
			}

			if os.Getenv(dumpConfigEnv) != "" {
				if err := dumpConfig(cmd.OutOrStdout(), appConfig); err != nil {
					logger.Fatalf(cmd.Context(), "Failed to dump configuration: %v", err)
				}

				return
			}

			app.ExecuteRootCommand(cmd.Context(), appConfig, urls)
		},
	}
)

// Execute executes the root command.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	defer func() {
		_ = logger.Logger().Sync()
	}()

	defer stop()

	go func() {
		defer stop()

		err := rootCmd.ExecuteContext(ctx)
		cobra.CheckErr(err)
	}()

	<-ctx.Done()
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFilenameFromFlag,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			config.DefaultConfigFilename))

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	registerDownloadFlags(rootCmd.Flags())
}

// registerDownloadFlags adds the flags that override download settings of the configuration.
func registerDownloadFlags(flags *pflag.FlagSet) {
	flags.StringP(
		"quality",
		"q",
		"",
		"preferred audio quality: "+strings.Join(config.QualityLevels, ", ")+".")

	flags.StringP(
		"min-quality",
		"m",
		"",
		"skip tracks not available in at least this quality, 'none' disables filtering.")

	flags.StringP(
		"output",
		"o",
		"",
		"directory to save downloaded files (the path will be created if it doesn’t exist).")

	flags.BoolP(
		"lyrics",
		"l",
		false,
		"include lyrics if available.")

	flags.StringP(
		"speed-limit",
		"s",
		"",
		"set download speed limit, for example: 500 kbps, 1 mbps, 1.5 mbps.")

	flags.BoolP(
		"zip",
		"z",
		false,
		"pack every album and playlist into a ZIP archive instead of a folder.")

	flags.BoolP(
		"dry-run",
		"n",
		false,
		"preview what would be downloaded without writing any files.")

	flags.Int64P(
		"concurrency",
		"j",
		0,
		"maximum number of tracks downloaded at the same time.")
}

func initConfig(cmd *cobra.Command, _ []string) {
	var err error

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	if level, ok := logger.ParseLogLevel(appConfig.LogLevel); ok {
		logger.SetLevel(level)
	}
}

func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	if flag := flags.Lookup("quality"); flag != nil && flag.Changed {
		cfg.Quality, _ = flags.GetString("quality")
	}

	if flag := flags.Lookup("min-quality"); flag != nil && flag.Changed {
		cfg.MinQuality, _ = flags.GetString("min-quality")
		if strings.EqualFold(cfg.MinQuality, "none") {
			cfg.MinQuality = ""
		}
	}

	if flag := flags.Lookup("output"); flag != nil && flag.Changed {
		cfg.OutputPath, _ = flags.GetString("output")
	}

	if flag := flags.Lookup("lyrics"); flag != nil && flag.Changed {
		cfg.DownloadLyrics, _ = flags.GetBool("lyrics")
	}

	if flag := flags.Lookup("speed-limit"); flag != nil && flag.Changed {
		cfg.DownloadSpeedLimit, _ = flags.GetString("speed-limit")
	}

	if flag := flags.Lookup("zip"); flag != nil && flag.Changed {
		cfg.PackToZip, _ = flags.GetBool("zip")
	}

	if flag := flags.Lookup("dry-run"); flag != nil && flag.Changed {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}

	if flag := flags.Lookup("concurrency"); flag != nil && flag.Changed {
		cfg.MaxConcurrentDownloads, _ = flags.GetInt64("concurrency")
	}

	return config.ValidateConfig(cfg)
}

// configDump is the part of the configuration that command-line flags can change.
type configDump struct {
	// Quality is the preferred audio quality.
	Quality string `json:"quality"`
	// MinQuality is the minimum acceptable audio quality.
	MinQuality string `json:"min_quality"`
	// OutputPath is the directory path for downloads.
	OutputPath string `json:"output_path"`
	// DownloadLyrics indicates whether lyrics should be downloaded.
	DownloadLyrics bool `json:"download_lyrics"`
	// DownloadSpeedLimit is the speed limit for downloads.
	DownloadSpeedLimit string `json:"download_speed_limit"`
	// PackToZip indicates whether collections are packed into ZIP archives.
	PackToZip bool `json:"pack_to_zip"`
	// DryRun indicates a preview run.
	DryRun bool `json:"dry_run"`
	// MaxConcurrentDownloads is the maximum number of parallel track downloads.
	MaxConcurrentDownloads int64 `json:"max_concurrent_downloads"`
}

func dumpConfig(w io.Writer, cfg *config.Config) error {
	return json.NewEncoder(w).Encode(configDump{
		Quality:                cfg.Quality,
		MinQuality:             cfg.MinQuality,
		OutputPath:             cfg.OutputPath,
		DownloadLyrics:         cfg.DownloadLyrics,
		DownloadSpeedLimit:     cfg.DownloadSpeedLimit,
		PackToZip:              cfg.PackToZip,
		DryRun:                 cfg.DryRun,
		MaxConcurrentDownloads: cfg.MaxConcurrentDownloads,
	})
}
