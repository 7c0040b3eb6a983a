package remotefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/oshokin/tidal-grabber/internal/logger"
	"github.com/oshokin/tidal-grabber/internal/utils"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// File is a remote HTTP resource presented as a read-only io.ReadSeekCloser.
type File struct {
	// ctx is used for every request issued by the file, including lazy reopens.
	ctx context.Context //nolint:containedctx // Reads implement io.Reader and cannot take a context.
	// doer sends the probe and stream requests.
	doer Doer
	// url is the resource locator.
	url string
	// header holds extra headers sent with every request.
	header http.Header
	// name is the file name advertised by the server, or the last URL path segment.
	name string
	// length is the resource size discovered by the probe.
	length int64
	// seekable reports whether the server honors byte-range requests.
	seekable bool
	// pos is the current read offset.
	pos int64
	// body is the open response body positioned at pos, or nil if none is open.
	body io.ReadCloser
	// closed is set once Close was called.
	closed bool
}

// Option configures a File before it is probed.
type Option func(*File)

const (
	rangeHeader              = "Range"
	contentRangeHeader       = "Content-Range"
	acceptRangesHeader       = "Accept-Ranges"
	contentLengthHeader      = "Content-Length"
	contentDispositionHeader = "Content-Disposition"
)

// Compile-time interface satisfaction checks.
var (
	_ io.ReadSeekCloser = (*File)(nil)
	_ io.Writer         = (*File)(nil)
)

// WithHeader adds a header to every request issued by the file.
func WithHeader(key, value string) Option {
	return func(f *File) {
		f.header.Add(key, value)
	}
}

// Open probes url and returns a File positioned at offset zero with no stream open yet.
// It fails with ErrProbeFailure when the server does not report the content length.
func Open(ctx context.Context, doer Doer, url string, opts ...Option) (*File, error) {
	f := &File{
		ctx:    ctx,
		doer:   doer,
		url:    url,
		header: make(http.Header),
	}

	for _, opt := range opts {
		opt(f)
	}

	if err := f.probe(); err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Opened remote file",
		"url", url, "length", f.length, "seekable", f.seekable, "name", f.name)

	return f, nil
}

func (f *File) probe() error {
	req, resp, err := f.sendProbe(http.MethodHead)
	if err != nil {
		return err
	}

	// Some CDNs reject HEAD, a ranged GET carries the same headers.
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		logger.DebugKV(f.ctx, "HEAD is not supported, probing with GET", "url", f.url, "status", resp.StatusCode)

		if req, resp, err = f.sendProbe(http.MethodGet); err != nil {
			return err
		}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("%w: status %d", ErrProbeFailure, resp.StatusCode)
	}

	length, err := strconv.ParseInt(strings.TrimSpace(resp.Header.Get(contentLengthHeader)), 10, 64)
	if err != nil || length < 0 {
		return fmt.Errorf("%w: missing or invalid %s %q",
			ErrProbeFailure, contentLengthHeader, resp.Header.Get(contentLengthHeader))
	}

	f.length = length
	f.seekable = isRangeSupported(resp)

	f.name = utils.ContentDispositionFilename(resp.Header.Get(contentDispositionHeader))
	if f.name == "" && req.URL.Path != "" && req.URL.Path != "/" {
		f.name = path.Base(req.URL.Path)
	}

	return nil
}

// sendProbe requests the full range with method and releases the body at once.
// Only the status and headers of the returned response are usable.
func (f *File) sendProbe(method string) (*http.Request, *http.Response, error) {
	req, err := f.newRequest(method)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrProbeFailure, err)
	}

	req.Header.Set(rangeHeader, "bytes=0-")

	resp, err := f.doer.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrProbeFailure, err)
	}

	// A HEAD body is empty, a GET body is abandoned unread.
	if method == http.MethodHead {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	_ = resp.Body.Close()

	return req, resp, nil
}

// isRangeSupported reports whether a probe response signals byte-range support.
func isRangeSupported(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusPartialContent:
		return resp.Header.Get(contentRangeHeader) != ""
	case http.StatusOK:
		acceptRanges := strings.TrimSpace(resp.Header.Get(acceptRangesHeader))

		return acceptRanges != "" && !strings.EqualFold(acceptRanges, "none")
	default:
		return false
	}
}

// URL returns the resource locator.
func (f *File) URL() string {
	return f.url
}

// Name returns the file name advertised by the server, or the last URL path segment.
func (f *File) Name() string {
	return f.name
}

// Seekable reports whether the file supports Seek.
func (f *File) Seekable() bool {
	return f.seekable
}

// Length returns the size of the resource in bytes.
func (f *File) Length() int64 {
	return f.length
}

// Tell returns the current read offset.
func (f *File) Tell() int64 {
	return f.pos
}

// Read reads up to len(p) bytes from the current position.
// At the end of the resource it returns 0, io.EOF without issuing any request.
// If the underlying stream breaks, the error is returned and the stream is dropped
// so that the next Read reopens it.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}

	if f.pos >= f.length {
		return 0, io.EOF
	}

	if len(p) == 0 {
		return 0, nil
	}

	if f.body == nil {
		if err := f.reopen(); err != nil {
			return 0, err
		}
	}

	if remaining := f.length - f.pos; int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := f.body.Read(p)
	f.pos += int64(n)

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		f.release()

		if f.pos < f.length {
			return n, fmt.Errorf("stream ended at %d of %d bytes: %w", f.pos, f.length, io.ErrUnexpectedEOF)
		}

		return n, nil
	default:
		f.release()

		return n, err
	}
}

// ReadN reads up to n bytes, or everything that remains when n is negative.
// It returns an empty slice and no error at the end of the resource.
func (f *File) ReadN(n int) ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}

	remaining := f.length - f.pos
	if n < 0 || int64(n) > remaining {
		n = int(remaining)
	}

	buf := make([]byte, n)

	read, err := io.ReadFull(f, buf)
	if err != nil {
		return buf[:read], err
	}

	return buf, nil
}

// Seek sets the offset for the next Read according to whence, as io.Seeker does.
// It fails with ErrNotSeekable when the server lacks range support and with ErrInvalidSeek
// when the resulting position falls outside [0, Length]; the position is unchanged on failure.
// The open stream is released and reopened lazily by the next Read.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}

	if !f.seekable {
		return 0, ErrNotSeekable
	}

	var target int64

	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.pos + offset
	case io.SeekEnd:
		target = f.length + offset
	default:
		return 0, fmt.Errorf("%w: unknown whence %d", ErrInvalidSeek, whence)
	}

	if target < 0 || target > f.length {
		return 0, fmt.Errorf("%w: position %d outside [0, %d]", ErrInvalidSeek, target, f.length)
	}

	// The open stream is already positioned correctly.
	if target == f.pos {
		return target, nil
	}

	f.release()
	f.pos = target

	return target, nil
}

// Write always fails with ErrReadOnly.
func (f *File) Write(_ []byte) (int, error) {
	return 0, ErrReadOnly
}

// Close releases the open stream. Closing an already closed file is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}

	f.closed = true

	if f.body == nil {
		return nil
	}

	err := f.body.Close()
	f.body = nil

	return err
}

// reopen opens a stream at the current position, or at zero when the server lacks range support.
func (f *File) reopen() error {
	req, err := f.newRequest(http.MethodGet)
	if err != nil {
		return err
	}

	start := f.pos
	if f.seekable {
		req.Header.Set(rangeHeader, "bytes="+strconv.FormatInt(start, 10)+"-")
	} else {
		start = 0
	}

	resp, err := f.doer.Do(req)
	if err != nil {
		return err
	}

	acceptable := resp.StatusCode == http.StatusPartialContent ||
		(resp.StatusCode == http.StatusOK && start == 0)
	if !acceptable {
		_ = resp.Body.Close()

		return fmt.Errorf("%w: %d for offset %d", ErrUnexpectedStatus, resp.StatusCode, start)
	}

	// A partial response must begin exactly at the requested offset.
	if resp.StatusCode == http.StatusPartialContent {
		contentRange := resp.Header.Get(contentRangeHeader)
		if first, ok := contentRangeStart(contentRange); !ok || first != start {
			_ = resp.Body.Close()

			return fmt.Errorf("%w: content range %q for offset %d", ErrUnexpectedStatus, contentRange, start)
		}
	}

	if start != f.pos {
		logger.DebugKV(f.ctx, "Restarting non-seekable remote file from the beginning",
			"url", f.url, "position", f.pos)
	}

	f.body = resp.Body
	f.pos = start

	return nil
}

// contentRangeStart returns the first byte position of a "bytes <first>-<last>/<total>" header.
func contentRangeStart(contentRange string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(contentRange), "bytes ")
	if !ok {
		return 0, false
	}

	first, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}

	value, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || value < 0 {
		return 0, false
	}

	return value, true
}

// release closes the open stream, if any.
func (f *File) release() {
	if f.body == nil {
		return
	}

	_ = f.body.Close()
	f.body = nil
}

func (f *File) newRequest(method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(f.ctx, method, f.url, nil)
	if err != nil {
		return nil, err
	}

	for key, values := range f.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	return req, nil
}
