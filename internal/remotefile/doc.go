// Package remotefile exposes a remote HTTP resource as a seekable, read-only byte stream.
//
// A File probes the resource once when it is opened to learn its length and whether the
// server honors byte-range requests. Reads stream the body lazily: the first read, and the
// first read after every seek, opens a new response starting at the current position with a
// "Range: bytes=<pos>-" header. Servers without range support can only be read forward
// from the start: Seek fails with ErrNotSeekable and any reopen restarts at offset zero.
//
// A File is owned by a single reader and is not safe for concurrent use.
// Independent Files for the same URL may be used concurrently.
package remotefile
