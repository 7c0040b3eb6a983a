package download

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/tidal-grabber/internal/logger"
)

const (
	// unknownParentKey groups track errors whose collection is unknown.
	unknownParentKey = "unknown"
	// applicationName is the command printed in retry suggestions.
	applicationName = "tidal-grabber"
	// summarySeparator frames the download summary.
	summarySeparator = "═══════════════════════════════════════════════════════════════"
	// minReportedDuration hides the timing of runs that did nothing noticeable.
	minReportedDuration = 100 * time.Millisecond
)

// summaryLine is a labeled counter of the summary. Lines with a zero value are not printed.
type summaryLine struct {
	label string
	value int64
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	d = d.Round(time.Second)

	var (
		hours   = int(d.Hours())
		minutes = int(d.Minutes()) % 60
		seconds = int(d.Seconds()) % 60
	)

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

func (s *ServiceImpl) incrementTrackDownloaded(bytes int64) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TracksDownloaded++
	s.stats.TotalTracksProcessed++
	s.stats.TotalBytesDownloaded += bytes
}

func (s *ServiceImpl) incrementTrackSkipped(reason SkipReason) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TracksSkipped++
	s.stats.TotalTracksProcessed++

	switch reason {
	case SkipReasonExists:
		s.stats.TracksSkippedExists++
	case SkipReasonQuality:
		s.stats.TracksSkippedQuality++
	}
}

func (s *ServiceImpl) incrementTrackFailed() {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TracksFailed++
	s.stats.TotalTracksProcessed++
}

func (s *ServiceImpl) incrementTrackResumed() {
	s.statsMutex.Lock()
	s.stats.TracksResumed++
	s.statsMutex.Unlock()
}

func (s *ServiceImpl) incrementArchiveCreated() {
	s.statsMutex.Lock()
	s.stats.ArchivesCreated++
	s.statsMutex.Unlock()
}

func (s *ServiceImpl) incrementLyricsDownloaded() {
	s.statsMutex.Lock()
	s.stats.LyricsDownloaded++
	s.statsMutex.Unlock()
}

func (s *ServiceImpl) incrementLyricsSkipped() {
	s.statsMutex.Lock()
	s.stats.LyricsSkipped++
	s.statsMutex.Unlock()
}

func (s *ServiceImpl) incrementMetadataSaved() {
	s.statsMutex.Lock()
	s.stats.MetadataSaved++
	s.statsMutex.Unlock()
}

func (s *ServiceImpl) incrementMetadataSkipped() {
	s.statsMutex.Lock()
	s.stats.MetadataSkipped++
	s.statsMutex.Unlock()
}

func (s *ServiceImpl) incrementCoverDownloaded() {
	s.statsMutex.Lock()
	s.stats.CoversDownloaded++
	s.statsMutex.Unlock()
}

func (s *ServiceImpl) incrementCoverSkipped() {
	s.statsMutex.Lock()
	s.stats.CoversSkipped++
	s.statsMutex.Unlock()
}

// Statistics returns a copy of the current statistics.
func (s *ServiceImpl) Statistics() DownloadStatistics {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	stats := *s.stats
	stats.Errors = slices.Clone(s.stats.Errors)

	return stats
}

// PrintDownloadSummary prints a formatted summary of download statistics.
// Nothing is printed when no track was processed.
func (s *ServiceImpl) PrintDownloadSummary(ctx context.Context) {
	stats := s.Statistics()
	if stats.TotalTracksProcessed == 0 {
		return
	}

	// The context is canceled on CTRL+C or timeout.
	wasInterrupted := ctx.Err() != nil

	printSummaryHeader(ctx, wasInterrupted, stats.IsDryRun)
	printTrackStatistics(ctx, &stats)
	printDataTransferStatistics(ctx, &stats)
	printExtrasStatistics(ctx, "Lyrics", stats.LyricsDownloaded, stats.LyricsSkipped)
	printExtrasStatistics(ctx, "Metadata", stats.MetadataSaved, stats.MetadataSkipped)
	printExtrasStatistics(ctx, "Cover Art", stats.CoversDownloaded, stats.CoversSkipped)
	logger.Info(ctx, summarySeparator)
	printErrorDetails(ctx, stats.Errors)
	printFinalMessage(ctx, wasInterrupted, &stats)
}

func printSummaryHeader(ctx context.Context, wasInterrupted, isDryRun bool) {
	title := "                     DOWNLOAD SUMMARY"

	switch {
	case isDryRun:
		title = "                  DRY-RUN PREVIEW"
	case wasInterrupted:
		title = "           DOWNLOAD SUMMARY (Interrupted)"
	}

	logger.Info(ctx, "")
	logger.Info(ctx, summarySeparator)
	logger.Info(ctx, title)
	logger.Info(ctx, summarySeparator)
}

func printSummaryLines(ctx context.Context, indent string, lines []summaryLine) {
	for _, line := range lines {
		if line.value > 0 {
			logger.Infof(ctx, "%s%-16s %d", indent, line.label+":", line.value)
		}
	}
}

func printTrackStatistics(ctx context.Context, stats *DownloadStatistics) {
	if stats.IsDryRun {
		logger.Infof(ctx, "Tracks:           %d total", stats.TotalTracksProcessed)
		printSummaryLines(ctx, "  ", []summaryLine{
			{"Would Download", stats.TracksDownloaded},
			{"Would Resume", stats.TracksResumed},
			{"Already Have", stats.TracksSkippedExists},
			{"Quality Filter", stats.TracksSkippedQuality},
			{"Unavailable", stats.TracksFailed},
		})

		return
	}

	logger.Infof(ctx, "Tracks:           %d total processed", stats.TotalTracksProcessed)
	printSummaryLines(ctx, "  ", []summaryLine{
		{"Downloaded", stats.TracksDownloaded},
		{"Resumed", stats.TracksResumed},
	})

	if stats.TracksSkipped > 0 {
		logger.Infof(ctx, "  Skipped:         %d total", stats.TracksSkipped)
		printSummaryLines(ctx, "    ", []summaryLine{
			{"Already Exist", stats.TracksSkippedExists},
			{"Quality", stats.TracksSkippedQuality},
		})
	}

	printSummaryLines(ctx, "  ", []summaryLine{
		{"Failed", stats.TracksFailed},
		{"Archives", stats.ArchivesCreated},
	})

	successCount := stats.TracksDownloaded + stats.TracksSkipped
	logger.Infof(ctx, "  Success Rate:    %.1f%%", float64(successCount)/float64(stats.TotalTracksProcessed)*100)
}

func printDataTransferStatistics(ctx context.Context, stats *DownloadStatistics) {
	if stats.TotalBytesDownloaded > 0 {
		label := "Data Downloaded:"
		if stats.IsDryRun {
			label = "Estimated Size:"
		}

		logger.Info(ctx, "")
		//nolint:gosec // TotalBytesDownloaded is never negative.
		logger.Infof(ctx, "%-17s %s", label, humanize.Bytes(uint64(stats.TotalBytesDownloaded)))
	}

	if stats.IsDryRun || stats.StartTime.IsZero() || stats.EndTime.IsZero() {
		return
	}

	duration := stats.EndTime.Sub(stats.StartTime)
	if duration <= minReportedDuration {
		return
	}

	logger.Infof(ctx, "Duration:         %s", formatDuration(duration))

	if stats.TotalBytesDownloaded > 0 {
		bytesPerSecond := float64(stats.TotalBytesDownloaded) / duration.Seconds()
		logger.Infof(ctx, "Average Speed:    %s/s", humanize.Bytes(uint64(bytesPerSecond)))
	}
}

func printExtrasStatistics(ctx context.Context, title string, downloaded, skipped int64) {
	if downloaded+skipped == 0 {
		return
	}

	logger.Info(ctx, "")
	logger.Infof(ctx, "%-17s %d total", title+":", downloaded+skipped)
	printSummaryLines(ctx, "  ", []summaryLine{
		{"Downloaded", downloaded},
		{"Skipped", skipped},
	})
}

// groupErrors separates track errors from collection errors.
func groupErrors(errs []DownloadError) (trackErrors, collectionErrors []DownloadError) {
	for i := range errs {
		if errs[i].Category == DownloadCategoryTrack {
			trackErrors = append(trackErrors, errs[i])
		} else {
			collectionErrors = append(collectionErrors, errs[i])
		}
	}

	return trackErrors, collectionErrors
}

func printErrorDetails(ctx context.Context, errs []DownloadError) {
	if len(errs) == 0 {
		return
	}

	logger.Info(ctx, "")
	logger.Errorf(ctx, "ERRORS ENCOUNTERED: %d", len(errs))

	trackErrors, collectionErrors := groupErrors(errs)

	if len(collectionErrors) > 0 {
		logger.Info(ctx, "")
		logger.Error(ctx, "COLLECTION ERRORS:")

		for i, e := range collectionErrors {
			logger.Info(ctx, "")
			logger.Errorf(ctx, "  [%d] %s: %s", i+1, e.Category, cmp.Or(e.ItemTitle, e.ItemID))

			if e.ItemURL != "" {
				logger.Errorf(ctx, "      URL: %s", e.ItemURL)
			}

			logger.Errorf(ctx, "      ID: %s", e.ItemID)
			logger.Errorf(ctx, "      Phase: %s", e.Phase)
			logger.Errorf(ctx, "      Error: %s", e.ErrorMessage)
		}
	}

	if len(trackErrors) > 0 {
		logger.Info(ctx, "")
		logger.Error(ctx, "TRACK ERRORS:")
		printTrackErrorsByParent(ctx, trackErrors)
	}

	logger.Info(ctx, "")
	logger.Info(ctx, summarySeparator)

	printRetryCommand(ctx, errs)
}

// printTrackErrorsByParent prints track errors grouped by their collection, in order of first appearance.
func printTrackErrorsByParent(ctx context.Context, trackErrors []DownloadError) {
	var (
		parentKeys []string
		groups     = make(map[string][]DownloadError)
	)

	for _, e := range trackErrors {
		key := cmp.Or(e.ParentID, unknownParentKey)
		if _, ok := groups[key]; !ok {
			parentKeys = append(parentKeys, key)
		}

		groups[key] = append(groups[key], e)
	}

	for _, key := range parentKeys {
		errs := groups[key]
		first := errs[0]

		logger.Info(ctx, "")

		if first.ParentTitle != "" {
			logger.Errorf(ctx, "  From %s: %s (ID: %s)", first.ParentCategory, first.ParentTitle, first.ParentID)
		} else {
			logger.Error(ctx, "  From unknown collection:")
		}

		for i, e := range errs {
			logger.Info(ctx, "")
			logger.Errorf(ctx, "    [%d] %s", i+1, cmp.Or(e.ItemTitle, e.ItemID))
			logger.Errorf(ctx, "        Track ID: %s", e.ItemID)
			logger.Errorf(ctx, "        Phase: %s", e.Phase)
			logger.Errorf(ctx, "        Error: %s", e.ErrorMessage)
		}
	}
}

// retryURLs returns the unique URLs of failed items in order of first failure.
// Failed tracks are retried by their own URL, which lands them in their album folder again.
func retryURLs(errs []DownloadError) []string {
	var (
		seen = make(map[string]struct{}, len(errs))
		urls []string
	)

	for _, e := range errs {
		if e.ItemURL == "" {
			continue
		}

		if _, ok := seen[e.ItemURL]; ok {
			continue
		}

		seen[e.ItemURL] = struct{}{}

		urls = append(urls, e.ItemURL)
	}

	return urls
}

func printRetryCommand(ctx context.Context, errs []DownloadError) {
	urls := retryURLs(errs)
	if len(urls) == 0 {
		return
	}

	logger.Info(ctx, "")
	logger.Info(ctx, "To retry only failed downloads, run:")
	logger.Info(ctx, "")
	logger.Infof(ctx, "  %s %s", applicationName, strings.Join(urls, " "))
}

func printFinalMessage(ctx context.Context, wasInterrupted bool, stats *DownloadStatistics) {
	if stats.IsDryRun {
		switch {
		case stats.TracksDownloaded > 0:
			logger.Info(ctx, "")
			logger.Info(ctx, "To proceed with actual download, remove the --dry-run flag:")
			logger.Infof(ctx, "  %s <same command without --dry-run>", applicationName)
		case stats.TracksSkipped > 0:
			logger.Info(ctx, "")
			logger.Info(ctx, "All tracks already exist - nothing to download.")
		}

		return
	}

	switch {
	case wasInterrupted:
		logger.Info(ctx, "")
		logger.Warn(ctx, "Download interrupted by user (CTRL+C).")

		if stats.TracksDownloaded > 0 {
			logger.Infof(ctx, "Successfully downloaded %d track(s) before interruption.", stats.TracksDownloaded)
		}
	case len(stats.Errors) > 0:
		logger.Info(ctx, "")
		logger.Warnf(ctx, "%d error(s) occurred during download. See detailed error log above.", len(stats.Errors))
	case stats.TracksDownloaded > 0:
		logger.Info(ctx, "")
		logger.Info(ctx, "All downloads completed successfully!")
	case stats.TracksSkipped > 0:
		logger.Info(ctx, "")
		logger.Info(ctx, "All tracks already exist in the output directory.")
	}
}
