package download

//go:generate $MOCKGEN -source=url_processor.go -destination=mocks/url_processor_mock.go

import (
	"context"
	"strings"

	"github.com/oshokin/tidal-grabber/internal/constants"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/service/catalog"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

// URLProcessor defines the interface for processing URLs and extracting downloadable items.
type URLProcessor interface {
	// ExtractDownloadItems processes a list of URLs and categorizes them into tracks, standalone items, and artists.
	ExtractDownloadItems(ctx context.Context, urls []string) (*ExtractDownloadItemsResponse, error)
	// DeduplicateDownloadItems removes duplicate DownloadItems based on their category and ItemID.
	DeduplicateDownloadItems(items []*DownloadItem) []*DownloadItem
}

// ExtractDownloadItemsResponse represents the result of processing URLs.
type ExtractDownloadItemsResponse struct {
	// Tracks contains individual track download items.
	Tracks []*DownloadItem
	// StandaloneItems contains album and playlist download items.
	StandaloneItems []*DownloadItem
	// Artists contains artist discography download items.
	Artists []*DownloadItem
}

// URLProcessorImpl implements the URLProcessor interface.
type URLProcessorImpl struct{}

// NewURLProcessor creates and returns a new instance of URLProcessorImpl.
func NewURLProcessor() URLProcessor {
	return &URLProcessorImpl{}
}

// ExtractDownloadItems processes a list of URLs and categorizes them into tracks, standalone items, and artists.
// Arguments ending with .txt are read as files holding one URL per line.
func (up *URLProcessorImpl) ExtractDownloadItems(
	ctx context.Context,
	urls []string,
) (*ExtractDownloadItemsResponse, error) {
	urls, err := up.processAndFlattenURLs(urls)
	if err != nil {
		return nil, err
	}

	var (
		result = new(ExtractDownloadItemsResponse)
		seen   = make(map[ShortDownloadItem]struct{}, len(urls))
	)

	for _, rawURL := range urls {
		refs := catalog.ParseURLs(rawURL)
		if len(refs) == 0 {
			logger.Warnf(ctx, "Unknown URL: %s", rawURL)

			continue
		}

		for _, ref := range refs {
			item := &DownloadItem{
				Category: categoryFromKind(ref.Kind),
				URL:      ref.URL,
				ItemID:   ref.ID,
			}

			key := item.GetShortVersion()
			if _, ok := seen[key]; ok {
				continue
			}

			seen[key] = struct{}{}

			//nolint:exhaustive // Unknown kinds are never produced by the URL parser.
			switch item.Category {
			case DownloadCategoryTrack:
				result.Tracks = append(result.Tracks, item)
			case DownloadCategoryAlbum, DownloadCategoryPlaylist:
				result.StandaloneItems = append(result.StandaloneItems, item)
			case DownloadCategoryArtist:
				result.Artists = append(result.Artists, item)
			}
		}
	}

	return result, nil
}

// DeduplicateDownloadItems removes duplicate DownloadItems based on their category and ItemID.
// The first occurrence wins and the order is preserved.
func (up *URLProcessorImpl) DeduplicateDownloadItems(items []*DownloadItem) []*DownloadItem {
	uniqueItems := make(map[ShortDownloadItem]struct{}, len(items))
	result := make([]*DownloadItem, 0, len(items))

	for _, item := range items {
		key := item.GetShortVersion()
		if _, ok := uniqueItems[key]; ok {
			continue
		}

		uniqueItems[key] = struct{}{}

		result = append(result, item)
	}

	return result
}

func (up *URLProcessorImpl) processAndFlattenURLs(urls []string) ([]string, error) {
	var (
		processedSet       = make(map[string]struct{})
		processedTextFiles = make(map[string]struct{})
		processedURLs      []string
	)

	add := func(rawURL string) {
		rawURL = strings.TrimSpace(rawURL)
		if rawURL == "" {
			return
		}

		if _, ok := processedSet[rawURL]; ok {
			return
		}

		processedSet[rawURL] = struct{}{}

		processedURLs = append(processedURLs, rawURL)
	}

	for _, rawURL := range urls {
		if !strings.HasSuffix(strings.ToLower(rawURL), constants.ExtensionTXT) {
			add(rawURL)

			continue
		}

		if _, exists := processedTextFiles[rawURL]; exists {
			continue
		}

		lines, err := utils.ReadUniqueLinesFromFile(rawURL)
		if err != nil {
			return nil, err
		}

		for _, line := range lines {
			add(line)
		}

		processedTextFiles[rawURL] = struct{}{}
	}

	return processedURLs, nil
}
