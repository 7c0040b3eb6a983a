package download

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/tidal-grabber/internal/constants"
	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

const (
	// File options for overwriting an existing file.
	overwriteFileOptions = os.O_CREATE | os.O_TRUNC | os.O_WRONLY

	// File options for creating a new file (fails if the file already exists).
	createNewFileOptions = os.O_CREATE | os.O_EXCL | os.O_WRONLY

	// File options for continuing a partial file.
	appendFileOptions = os.O_CREATE | os.O_APPEND | os.O_WRONLY
)

// downloadAndSaveFile downloads url into destinationPath. It reports true when the file
// already existed and overwrite is not set.
// The content goes to a uniquely named temporary file first, so concurrent downloads of the
// same file never see each other's partial writes.
func (s *ServiceImpl) downloadAndSaveFile(
	ctx context.Context,
	url, destinationPath string,
	overwrite bool,
) (bool, error) {
	if !overwrite {
		if isExist, _ := utils.IsFileExist(destinationPath); isExist {
			logger.Infof(ctx, "File '%s' already exists, skipping download", destinationPath)

			return true, nil
		}
	}

	tempPath := destinationPath + "." + uuid.NewString() + constants.ExtensionPart

	file, err := os.OpenFile(filepath.Clean(tempPath), createNewFileOptions, constants.DefaultFilePermissions)
	if err != nil {
		return false, err
	}

	defer os.Remove(tempPath) //nolint:errcheck // The file is gone after a successful rename.

	reader, err := s.client.DownloadFromURL(ctx, url)
	if err != nil {
		_ = file.Close()

		return false, err
	}

	defer reader.Close() //nolint:errcheck // Error on close is not critical here.

	if _, err = io.Copy(file, reader); err != nil {
		_ = file.Close()

		return false, err
	}

	if err = file.Close(); err != nil {
		return false, err
	}

	return false, os.Rename(tempPath, destinationPath)
}

// writeTextFile writes content into destinationPath. It reports true when the file
// already existed and overwrite is not set.
func writeTextFile(ctx context.Context, content, destinationPath string, overwrite bool) (bool, error) {
	fileOptions := overwriteFileOptions
	if !overwrite {
		fileOptions = createNewFileOptions
	}

	file, err := os.OpenFile(filepath.Clean(destinationPath), fileOptions, constants.DefaultFilePermissions)
	if err != nil {
		if os.IsExist(err) && !overwrite {
			logger.Infof(ctx, "File '%s' already exists, skipping download", destinationPath)

			return true, nil
		}

		return false, err
	}

	if _, err = file.WriteString(content); err != nil {
		_ = file.Close()

		return false, err
	}

	return false, file.Close()
}

func (s *ServiceImpl) truncateFolderName(ctx context.Context, pattern, name string) string {
	truncated := utils.TruncateName(name, s.cfg.MaxFolderNameLength)
	if truncated != name {
		logger.Infof(ctx, "%s folder name was truncated to %d characters", pattern, s.cfg.MaxFolderNameLength)
	}

	return truncated
}

// copyWithSpeedLimit copies src into dst. A positive limit caps the transfer at limit bytes per second.
func copyWithSpeedLimit(ctx context.Context, dst io.Writer, src io.Reader, limit int64) (int64, error) {
	if limit <= 0 {
		return io.Copy(dst, src)
	}

	var written int64

	for {
		n, err := io.CopyN(dst, src, limit)
		written += n

		if errors.Is(err, io.EOF) {
			return written, nil
		}

		if err != nil {
			return written, err
		}

		// Throttle to respect speed limit.
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
