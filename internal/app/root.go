package app

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/config"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/service/catalog"
	"github.com/oshokin/tidal-grabber/internal/service/download"
)

// ExecuteRootCommand is the entry point for the application.
// It initializes the TIDAL client, sets up the necessary service components,
// and starts the download process for the provided URLs.
func ExecuteRootCommand(ctx context.Context, cfg *config.Config, urls []string) {
	tidalClient, err := tidal.NewClient(ctx, cfg,
		tidal.WithTokenRefreshHandler(func(token *oauth2.Token) {
			applyToken(cfg, token)

			if saveErr := config.SaveConfig(cfg); saveErr != nil {
				logger.Errorf(ctx, "Failed to save refreshed token: %v", saveErr)

				return
			}

			logger.Debug(ctx, "Refreshed access token saved to configuration")
		}))
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize TIDAL client: %v", err)
	}

	session := catalog.NewSession(tidalClient, int(cfg.PageSize))
	urlProcessor := download.NewURLProcessor()
	templateManager := download.NewTemplateManager(ctx, cfg)

	s := download.NewService(cfg, session, tidalClient, urlProcessor, templateManager)

	// Ensure statistics are ALWAYS printed, even on panic or os.Exit bypass.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "Panic recovered: %v", r)
		}

		s.PrintDownloadSummary(ctx)
	}()

	s.DownloadURLs(ctx, urls)
}
