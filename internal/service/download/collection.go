package download

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"

	"github.com/oshokin/tidal-grabber/internal/client/tidal"
	"github.com/oshokin/tidal-grabber/internal/constants"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/service/catalog"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

func (s *ServiceImpl) downloadAlbum(ctx context.Context, item *DownloadItem) {
	errCtx := &ErrorContext{
		Category: DownloadCategoryAlbum,
		ItemID:   item.ItemID,
		ItemURL:  item.URL,
		Phase:    "fetching album metadata",
	}

	album, err := s.session.Album(ctx, item.ItemID)
	if err != nil {
		logger.Errorf(ctx, "Failed to get album with ID '%s': %v", item.ItemID, err)
		s.recordError(errCtx, err)

		return
	}

	collection := s.newAlbumCollection(ctx, album, item.URL)

	tracks, err := collectTracks(s.session.AlbumTracks(ctx, album.Key()), false)
	if err != nil {
		logger.Errorf(ctx, "Failed to list tracks of album '%s': %v", collection.title, err)
		s.recordError(collection.errorContext("fetching album tracks"), err)

		return
	}

	s.downloadCollection(ctx, collection, tracks)
}

func (s *ServiceImpl) downloadPlaylist(ctx context.Context, item *DownloadItem) {
	errCtx := &ErrorContext{
		Category: DownloadCategoryPlaylist,
		ItemID:   item.ItemID,
		ItemURL:  item.URL,
		Phase:    "fetching playlist metadata",
	}

	playlist, err := s.session.Playlist(ctx, item.ItemID)
	if err != nil {
		logger.Errorf(ctx, "Failed to get playlist with ID '%s': %v", item.ItemID, err)
		s.recordError(errCtx, err)

		return
	}

	collection := s.newPlaylistCollection(ctx, playlist, item.URL)

	tracks, err := collectTracks(s.session.PlaylistTracks(ctx, playlist.Key()), true)
	if err != nil {
		logger.Errorf(ctx, "Failed to list tracks of playlist '%s': %v", collection.title, err)
		s.recordError(collection.errorContext("fetching playlist tracks"), err)

		return
	}

	s.downloadCollection(ctx, collection, tracks)
}

// downloadCollection writes a collection either into its folder or into a ZIP archive.
func (s *ServiceImpl) downloadCollection(ctx context.Context, collection *audioCollection, tracks []*collectionTrack) {
	if len(tracks) == 0 {
		logger.Warnf(ctx, "The %s '%s' has no tracks", collection.category, collection.title)

		return
	}

	if s.cfg.PackToZip && !collection.isSingleWithoutFolder {
		s.packCollection(ctx, collection, tracks)

		return
	}

	if !s.prepareCollectionFolder(ctx, collection) {
		return
	}

	s.downloadCollectionCover(ctx, collection)
	s.downloadTracks(ctx, collection, tracks)
}

// collectTracks drains a track sequence. Playlist positions follow the playlist order,
// album positions are the track numbers.
func collectTracks(seq iter.Seq2[*tidal.Track, error], isPlaylist bool) ([]*collectionTrack, error) {
	var result []*collectionTrack

	for track, err := range seq {
		if err != nil {
			return nil, err
		}

		position := int64(len(result) + 1)
		if !isPlaylist && track.TrackNumber > 0 {
			position = track.TrackNumber
		}

		result = append(result, &collectionTrack{track: track, position: position})
	}

	return result, nil
}

// getOrRegisterAlbumCollection returns the collection of an album, preparing its folder and cover once.
func (s *ServiceImpl) getOrRegisterAlbumCollection(ctx context.Context, albumID string) (*audioCollection, error) {
	key := ShortDownloadItem{Category: DownloadCategoryAlbum, ItemID: albumID}

	s.audioCollectionsMutex.Lock()
	defer s.audioCollectionsMutex.Unlock()

	if collection, ok := s.audioCollections[key]; ok {
		return collection, nil
	}

	album, err := s.session.Album(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to get album with ID '%s': %w", albumID, err)
	}

	collection := s.newAlbumCollection(ctx, album, album.URL)

	if !s.prepareCollectionFolder(ctx, collection) {
		return nil, fmt.Errorf("failed to create folder '%s'", collection.tracksPath)
	}

	s.downloadCollectionCover(ctx, collection)

	s.audioCollections[key] = collection

	return collection, nil
}

func (s *ServiceImpl) newAlbumCollection(ctx context.Context, album *tidal.Album, albumURL string) *audioCollection {
	if albumURL == "" {
		albumURL = album.URL
	}

	tags := fillAlbumTagsForTemplating(album)
	collection := &audioCollection{
		category:    DownloadCategoryAlbum,
		id:          album.Key(),
		title:       catalog.FormatAlbumTitle(album),
		url:         albumURL,
		tags:        tags,
		tracksCount: album.NumberOfTracks,
	}

	if album.Cover != "" {
		collection.coverURL = album.Cover.URL(constants.DefaultCoverDim)
	}

	if !s.cfg.CreateFolderForSingles && album.NumberOfTracks == 1 {
		collection.isSingleWithoutFolder = true
		collection.tracksPath = s.cfg.OutputPath

		return collection
	}

	folderName := s.templateManager.GetAlbumFolderName(ctx, tags)
	folderName = s.truncateFolderName(ctx, "Album", utils.SanitizeFilename(folderName))
	collection.tracksPath = filepath.Join(s.cfg.OutputPath, folderName)

	return collection
}

func (s *ServiceImpl) newPlaylistCollection(
	ctx context.Context,
	playlist *tidal.Playlist,
	playlistURL string,
) *audioCollection {
	if playlistURL == "" {
		playlistURL = playlist.URL
	}

	collection := &audioCollection{
		category: DownloadCategoryPlaylist,
		id:       playlist.Key(),
		title:    playlist.Title,
		url:      playlistURL,
		tags: map[string]string{
			"playlistID":    playlist.UUID,
			"playlistTitle": playlist.Title,
		},
		tracksCount: playlist.NumberOfTracks,
	}

	switch {
	case playlist.SquareImage != "":
		collection.coverURL = playlist.SquareImage.URL(tidal.CoverSize640)
	case playlist.Image != "":
		collection.coverURL = playlist.Image.URL(tidal.CoverSize640)
	}

	folderName := s.truncateFolderName(ctx, "Playlist", utils.SanitizeFilename(playlist.Title))
	collection.tracksPath = filepath.Join(s.cfg.OutputPath, folderName)

	return collection
}

// prepareCollectionFolder creates the folder of a collection. It reports false on failure.
func (s *ServiceImpl) prepareCollectionFolder(ctx context.Context, collection *audioCollection) bool {
	if s.cfg.DryRun {
		logger.Infof(ctx, "[DRY-RUN] Would create folder: %s", collection.tracksPath)

		return true
	}

	if err := os.MkdirAll(collection.tracksPath, constants.DefaultFolderPermissions); err != nil {
		logger.Errorf(ctx, "Failed to create folder '%s': %v", collection.tracksPath, err)
		s.recordError(collection.errorContext("creating folder"), err)

		return false
	}

	return true
}

// downloadCollectionCover saves the collection cover into its folder.
// Singles saved without a folder get their cover next to the track instead.
func (s *ServiceImpl) downloadCollectionCover(ctx context.Context, collection *audioCollection) {
	if collection.coverURL == "" || collection.isSingleWithoutFolder {
		return
	}

	s.downloadCover(ctx, collection, filepath.Join(collection.tracksPath, constants.CoverFilename))
}

func (s *ServiceImpl) downloadCover(ctx context.Context, collection *audioCollection, coverPath string) {
	if s.cfg.DryRun {
		if isExist, _ := utils.IsFileExist(coverPath); isExist && !s.cfg.ReplaceCovers {
			logger.Infof(ctx, "[DRY-RUN] Cover '%s' already exists, would skip", coverPath)
			s.incrementCoverSkipped()
		} else {
			logger.Infof(ctx, "[DRY-RUN] Would save cover to: %s", coverPath)
			s.incrementCoverDownloaded()
		}

		return
	}

	isExist, err := s.downloadAndSaveFile(ctx, collection.coverURL, coverPath, s.cfg.ReplaceCovers)
	if err != nil {
		logger.Errorf(ctx, "Failed to download cover of '%s': %v", collection.title, err)
		s.recordError(collection.errorContext("downloading cover"), err)

		return
	}

	if isExist {
		s.incrementCoverSkipped()

		return
	}

	logger.Infof(ctx, "Cover saved to file: %s", coverPath)
	s.incrementCoverDownloaded()
}

func fillAlbumTagsForTemplating(album *tidal.Album) map[string]string {
	releaseYear := album.ReleaseYear()
	if releaseYear == "" {
		releaseYear = defaultUnknownYear
	}

	return map[string]string{
		"albumID":      album.Key(),
		"albumTitle":   catalog.FormatAlbumTitle(album),
		"albumArtist":  catalog.MainArtist(album.Artists),
		"albumArtists": catalog.FormatArtists(album.Artists),
		"albumType":    album.Type,
		"releaseDate":  album.ReleaseDate,
		"releaseYear":  releaseYear,
		"upc":          album.UPC,
	}
}

// fillTrackTagsForTemplating merges the track values over the collection tags.
func fillTrackTagsForTemplating(
	collection *audioCollection,
	item *collectionTrack,
	quality tidal.AudioQuality,
) map[string]string {
	track := item.track
	tags := make(map[string]string, len(collection.tags)+10)

	for k, v := range collection.tags {
		tags[k] = v
	}

	width := max(trackNumberPaddingWidth, len(strconv.FormatInt(collection.tracksCount, 10)))
	trackNumberPad := fmt.Sprintf("%0*d", width, item.position)

	// Track numbers restart on every disc.
	if collection.category == DownloadCategoryAlbum && track.VolumeNumber > 1 {
		trackNumberPad = fmt.Sprintf("%d-%s", track.VolumeNumber, trackNumberPad)
	}

	tags["trackID"] = track.Key()
	tags["trackNumber"] = strconv.FormatInt(item.position, 10)
	tags["trackNumberPad"] = trackNumberPad
	tags["volumeNumber"] = strconv.FormatInt(track.VolumeNumber, 10)
	tags["trackTitle"] = catalog.FormatTrackTitle(track)
	tags["trackArtist"] = catalog.FormatArtists(track.Artists)
	tags["isrc"] = track.ISRC
	tags["quality"] = quality.String()

	if track.Album != nil {
		if _, ok := tags["albumTitle"]; !ok || collection.category == DownloadCategoryPlaylist {
			tags["albumTitle"] = track.Album.Title
		}
	}

	return tags
}
