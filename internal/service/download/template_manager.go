package download

//go:generate $MOCKGEN -source=template_manager.go -destination=mocks/template_manager_mock.go

import (
	"bytes"
	"context"
	"html"
	"html/template"

	"github.com/oshokin/tidal-grabber/internal/config"
	"github.com/oshokin/tidal-grabber/internal/logger"
)

// TemplateManager generates filenames and folder names from templates.
type TemplateManager interface {
	// GetTrackFilename generates a filename for a track based on its tags and context.
	// Playlist tracks and singles saved without a folder use the playlist template.
	GetTrackFilename(ctx context.Context, isPlaylist bool, trackTags map[string]string, tracksCount int64) string
	// GetAlbumFolderName generates a folder name for an album based on its tags.
	GetAlbumFolderName(ctx context.Context, tags map[string]string) string
}

// TemplateManagerImpl implements the TemplateManager interface.
type TemplateManagerImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// trackFilename renders album track filenames.
	trackFilename templatePair
	// albumFolder renders album folder names.
	albumFolder templatePair
	// playlistFilename renders playlist track filenames.
	playlistFilename templatePair
}

// templatePair is a configured template with its built-in fallback.
type templatePair struct {
	// custom is the template from the configuration, nil if it failed to parse.
	custom *template.Template
	// fallback is the default template, always valid.
	fallback *template.Template
}

// NewTemplateManager creates a TemplateManagerImpl.
// Templates that fail to parse are logged and replaced by the defaults.
func NewTemplateManager(ctx context.Context, cfg *config.Config) TemplateManager {
	return &TemplateManagerImpl{
		cfg: cfg,
		trackFilename: newTemplatePair(ctx, "track filename",
			cfg.TrackFilenameTemplate, config.DefaultTrackFilenameTemplate),
		albumFolder: newTemplatePair(ctx, "album folder",
			cfg.AlbumFolderTemplate, config.DefaultAlbumFolderTemplate),
		playlistFilename: newTemplatePair(ctx, "playlist filename",
			cfg.PlaylistFilenameTemplate, config.DefaultPlaylistFilenameTemplate),
	}
}

func newTemplatePair(ctx context.Context, name, text, defaultText string) templatePair {
	pair := templatePair{
		fallback: template.Must(template.New("default " + name).Parse(defaultText)),
	}

	if text == "" {
		return pair
	}

	custom, err := template.New(name).Parse(text)
	if err != nil {
		logger.Errorf(ctx, "Failed to parse %s template, using default: %v", name, err)

		return pair
	}

	pair.custom = custom

	return pair
}

// GetTrackFilename generates a filename for a track based on its tags and context.
func (s *TemplateManagerImpl) GetTrackFilename(
	ctx context.Context,
	isPlaylist bool,
	trackTags map[string]string,
	tracksCount int64,
) string {
	isSingleWithoutFolder := !s.cfg.CreateFolderForSingles && tracksCount == 1

	pair := s.trackFilename
	if isPlaylist || isSingleWithoutFolder {
		pair = s.playlistFilename
	}

	return pair.execute(ctx, trackTags)
}

// GetAlbumFolderName generates a folder name for an album based on its tags.
func (s *TemplateManagerImpl) GetAlbumFolderName(ctx context.Context, tags map[string]string) string {
	return s.albumFolder.execute(ctx, tags)
}

func (p templatePair) execute(ctx context.Context, tags map[string]string) string {
	var buffer bytes.Buffer

	if p.custom != nil {
		err := p.custom.Execute(&buffer, tags)
		if err == nil {
			return html.UnescapeString(buffer.String())
		}

		logger.Errorf(ctx, "Failed to execute template %q, using default: %v", p.custom.Name(), err)
		buffer.Reset()
	}

	_ = p.fallback.Execute(&buffer, tags) //nolint:errcheck // Default template is always valid.

	// Unescape HTML entities in the generated name.
	return html.UnescapeString(buffer.String())
}
