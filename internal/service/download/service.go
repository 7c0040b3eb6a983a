package download

//go:generate $MOCKGEN -source=service.go -destination=mocks/service_mock.go

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/config"
	"github.com/oshokin/tidal-grabber/internal/constants"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/service/catalog"
)

// Service provides methods for downloading audio content from TIDAL URLs.
type Service interface {
	// DownloadURLs orchestrates the full download pipeline, from URL processing to file creation.
	DownloadURLs(ctx context.Context, urls []string)
	// PrintDownloadSummary prints a formatted summary of download statistics.
	PrintDownloadSummary(ctx context.Context)
}

// ServiceImpl implements the download service on top of a catalog session.
type ServiceImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// session resolves and memoizes catalog objects.
	session *catalog.Session
	// client opens stream files and downloads images.
	client tidal.Client
	// urlProcessor handles URL parsing and categorization.
	urlProcessor URLProcessor
	// templateManager generates filenames and folder names.
	templateManager TemplateManager
	// requiredQuality is the lowest acceptable stream quality.
	requiredQuality tidal.AudioQuality
	// preferredQuality is the quality requested from the API.
	preferredQuality tidal.AudioQuality
	// audioCollections stores album collections registered for standalone tracks.
	audioCollections map[ShortDownloadItem]*audioCollection
	// audioCollectionsMutex protects concurrent access to audioCollections.
	audioCollectionsMutex *sync.Mutex
	// stats tracks download statistics for the current session.
	stats *DownloadStatistics
	// statsMutex protects concurrent access to statistics.
	statsMutex *sync.Mutex
}

// NewService creates a download service.
// An empty or unknown configured quality selects LOSSLESS; an empty minimum quality disables filtering.
func NewService(
	cfg *config.Config,
	session *catalog.Session,
	client tidal.Client,
	urlProcessor URLProcessor,
	templateManager TemplateManager,
) Service {
	preferred, err := tidal.ParseAudioQuality(cfg.Quality)
	if err != nil {
		preferred = tidal.AudioQualityLossless
	}

	required, err := tidal.ParseAudioQuality(cfg.MinQuality)
	if err != nil {
		required = tidal.AudioQualityLow
	}

	return &ServiceImpl{
		cfg:                   cfg,
		session:               session,
		client:                client,
		urlProcessor:          urlProcessor,
		templateManager:       templateManager,
		requiredQuality:       required,
		preferredQuality:      preferred,
		audioCollections:      make(map[ShortDownloadItem]*audioCollection),
		audioCollectionsMutex: new(sync.Mutex),
		stats:                 new(DownloadStatistics),
		statsMutex:            new(sync.Mutex),
	}
}

// DownloadURLs orchestrates the full download pipeline, from URL processing to file creation.
func (s *ServiceImpl) DownloadURLs(ctx context.Context, urls []string) {
	s.statsMutex.Lock()
	s.stats.StartTime = time.Now()
	s.stats.IsDryRun = s.cfg.DryRun
	s.statsMutex.Unlock()

	defer func() {
		s.statsMutex.Lock()
		s.stats.EndTime = time.Now()
		s.statsMutex.Unlock()
	}()

	if !s.cfg.DryRun {
		if err := os.MkdirAll(s.cfg.OutputPath, constants.DefaultFolderPermissions); err != nil {
			logger.Errorf(ctx, "Failed to create output path: %v", err)

			return
		}
	} else {
		logger.Infof(ctx, "[DRY-RUN] Would create output directory: %s", s.cfg.OutputPath)
	}

	downloadItemsByCategories, err := s.urlProcessor.ExtractDownloadItems(ctx, urls)
	if err != nil {
		logger.Errorf(ctx, "Failed to extract items to download: %v", err)

		return
	}

	logger.Info(ctx, "Starting download process")

	// Collections go first so that standalone tracks land in folders that already exist.
	standaloneItems := s.fetchAndDeduplicateStandaloneItems(ctx, downloadItemsByCategories)
	if len(standaloneItems) > 0 {
		s.downloadStandaloneItems(ctx, standaloneItems)
	}

	if len(downloadItemsByCategories.Tracks) > 0 {
		s.downloadTrackItems(ctx, downloadItemsByCategories.Tracks)
	}

	logger.Info(ctx, "Download process completed")
}

// fetchAndDeduplicateStandaloneItems expands artists into their albums and removes duplicate entries.
func (s *ServiceImpl) fetchAndDeduplicateStandaloneItems(
	ctx context.Context,
	items *ExtractDownloadItemsResponse,
) []*DownloadItem {
	standaloneItems := items.StandaloneItems

	if len(items.Artists) > 0 {
		standaloneItems = append(standaloneItems, s.fetchArtistAlbums(ctx, items.Artists)...)
		standaloneItems = s.urlProcessor.DeduplicateDownloadItems(standaloneItems)
	}

	return standaloneItems
}

// fetchArtistAlbums lists the albums of every artist as download items.
func (s *ServiceImpl) fetchArtistAlbums(ctx context.Context, artists []*DownloadItem) []*DownloadItem {
	var result []*DownloadItem

	for _, item := range artists {
		errCtx := &ErrorContext{
			Category: DownloadCategoryArtist,
			ItemID:   item.ItemID,
			ItemURL:  item.URL,
			Phase:    "fetching artist albums",
		}

		artist, err := s.session.Artist(ctx, item.ItemID)
		if err != nil {
			logger.Errorf(ctx, "Failed to get artist with ID '%s': %v", item.ItemID, err)
			s.recordError(errCtx, err)

			continue
		}

		errCtx.ItemTitle = artist.Name

		var albumsCount int

		for album, albumErr := range s.session.ArtistAlbums(ctx, item.ItemID) {
			if albumErr != nil {
				logger.Errorf(ctx, "Failed to list albums of artist '%s': %v", artist.Name, albumErr)
				s.recordError(errCtx, albumErr)

				break
			}

			albumsCount++

			result = append(result, &DownloadItem{
				Category: DownloadCategoryAlbum,
				URL:      album.URL,
				ItemID:   album.Key(),
			})
		}

		logger.Infof(ctx, "Found %d album(s) of artist '%s'", albumsCount, artist.Name)
	}

	return result
}

// downloadStandaloneItems handles the download of albums and playlists.
func (s *ServiceImpl) downloadStandaloneItems(ctx context.Context, items []*DownloadItem) {
	logger.Info(ctx, "Downloading albums and playlists")

	itemsCount := len(items)

	for index, item := range items {
		if ctx.Err() != nil {
			return
		}

		//nolint:exhaustive // Only collections reach this point; default covers the rest.
		switch item.Category {
		case DownloadCategoryAlbum:
			logger.Infof(ctx, "Downloading item: %v (%d / %d)", item, index+1, itemsCount)
			s.downloadAlbum(ctx, item)
		case DownloadCategoryPlaylist:
			logger.Infof(ctx, "Downloading item: %v (%d / %d)", item, index+1, itemsCount)
			s.downloadPlaylist(ctx, item)
		default:
			logger.Errorf(ctx, "Unknown URL category: %d", item.Category)
		}
	}
}

// downloadTrackItems downloads individual tracks into the folders of their albums.
func (s *ServiceImpl) downloadTrackItems(ctx context.Context, items []*DownloadItem) {
	logger.Info(ctx, "Downloading tracks")

	var (
		albumIDs      []string
		tracksByAlbum = make(map[string][]*collectionTrack)
	)

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}

		errCtx := &ErrorContext{
			Category: DownloadCategoryTrack,
			ItemID:   item.ItemID,
			ItemURL:  item.URL,
			Phase:    "fetching track metadata",
		}

		track, err := s.session.Track(ctx, item.ItemID)
		if err == nil && track.Album == nil {
			err = ErrTrackAlbumNotFound
		}

		if err != nil {
			logger.Errorf(ctx, "Failed to get track with ID '%s': %v", item.ItemID, err)
			s.recordError(errCtx, err)
			s.incrementTrackFailed()

			continue
		}

		albumID := track.Album.Key()
		if _, ok := tracksByAlbum[albumID]; !ok {
			albumIDs = append(albumIDs, albumID)
		}

		tracksByAlbum[albumID] = append(tracksByAlbum[albumID], &collectionTrack{
			track:    track,
			position: track.TrackNumber,
		})
	}

	for _, albumID := range albumIDs {
		if ctx.Err() != nil {
			return
		}

		tracks := tracksByAlbum[albumID]

		collection, err := s.getOrRegisterAlbumCollection(ctx, albumID)
		if err != nil {
			for _, t := range tracks {
				s.recordError(&ErrorContext{
					Category:  DownloadCategoryTrack,
					ItemID:    t.track.Key(),
					ItemTitle: catalog.FormatTrackTitle(t.track),
					ItemURL:   t.track.URL,
					Phase:     "preparing album",
				}, err)
				s.incrementTrackFailed()
			}

			continue
		}

		s.downloadTracks(ctx, collection, tracks)
	}
}
