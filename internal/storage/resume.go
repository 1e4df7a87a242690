// Package storage persists uploaded resumes as flat files under one root directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"

	"github.com/campusjobs/jobboard/internal/apperror"
)

const (
	// DefaultContentType is served when the content type cannot be determined.
	DefaultContentType = "application/octet-stream"

	// maxOriginalNameLen bounds the uploader-supplied part of a stored name.
	maxOriginalNameLen = 128

	// fallbackName replaces original names that reduce to nothing.
	fallbackName = "resume"

	// ReasonResumeNotFound is reported for any name that does not resolve to a stored file.
	ReasonResumeNotFound = "resume not found or not accessible"

	// sniffLen is how many leading bytes are read for content detection.
	sniffLen = 3072

	filePerm = 0o640
	dirPerm  = 0o750
)

// Resume is a stored resume opened for reading. Callers must close Content.
type Resume struct {
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
	Content     io.ReadSeekCloser
}

// ResumeStore writes and serves resume files under a fixed root.
// Stored names are unique per upload, so concurrent writes never share a path.
type ResumeStore struct {
	root   string
	logger *slog.Logger
}

// NewResumeStore creates the root directory (and parents) if missing.
func NewResumeStore(root string, logger *slog.Logger) (*ResumeStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve resume dir: %w", err)
	}
	abs = filepath.Clean(abs)

	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create resume dir: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &ResumeStore{
		root:   abs,
		logger: logger.With("component", "storage.resumes"),
	}, nil
}

// Root returns the absolute root directory.
func (s *ResumeStore) Root() string {
	return s.root
}

// Ping reports whether the root directory is still present.
func (s *ResumeStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("stat resume dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("resume dir %s is not a directory", s.root)
	}
	return nil
}

// Store writes content under a freshly generated name and returns that name.
// The name is a ULID token followed by the base of originalName.
func (s *ResumeStore) Store(ctx context.Context, originalName string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperror.Wrap(apperror.KindIOFailure, "failed to store resume file", err)
	}

	storedName := ulid.Make().String() + "_" + sanitizeName(originalName)

	dest, err := s.resolve(storedName)
	if err != nil {
		s.logger.Warn("rejected resume path",
			slog.String("stored_name", storedName),
		)
		return "", apperror.Wrap(apperror.KindSecurityViolation, "attempted to store file outside of configured directory", err)
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return "", apperror.Wrap(apperror.KindIOFailure, "failed to store resume file", err)
	}

	written, copyErr := io.Copy(f, content)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		// Remove partial file; it was never published.
		_ = os.Remove(dest)
		return "", apperror.Wrap(apperror.KindIOFailure, "failed to store resume file", errors.Join(copyErr, closeErr))
	}

	s.logger.Debug("resume stored",
		slog.String("stored_name", storedName),
		slog.Int64("bytes", written),
	)

	return storedName, nil
}

// Retrieve opens a stored resume. Any name that does not denote a readable
// file directly under the root is reported as NotFound.
func (s *ResumeStore) Retrieve(ctx context.Context, storedName string) (*Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Wrap(apperror.KindIOFailure, "failed to read resume file", err)
	}

	path, err := s.resolve(storedName)
	if err != nil {
		return nil, apperror.NotFound(ReasonResumeNotFound)
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, apperror.NotFound(ReasonResumeNotFound)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperror.NotFound(ReasonResumeNotFound)
	}

	contentType, err := sniff(f)
	if err != nil {
		_ = f.Close()
		return nil, apperror.Wrap(apperror.KindIOFailure, "failed to read resume file", err)
	}

	return &Resume{
		Name:        storedName,
		ContentType: contentType,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Content:     f,
	}, nil
}

// resolve joins name to the root and verifies the result is a direct child of it.
func (s *ResumeStore) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid name %q", name)
	}

	path := filepath.Clean(filepath.Join(s.root, name))
	if filepath.Dir(path) != s.root {
		return "", fmt.Errorf("path %q escapes root", name)
	}

	return path, nil
}

// sanitizeName reduces an uploader-supplied name to a bare file name.
func sanitizeName(name string) string {
	// Treat both separators as path separators regardless of platform.
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if name == "" || name == "." || name == ".." {
		return fallbackName
	}
	if len(name) > maxOriginalNameLen {
		name = truncateKeepExt(name, maxOriginalNameLen)
	}

	return name
}

// truncateKeepExt shortens name to at most max bytes, keeping its extension.
// Cuts fall on rune boundaries so the result stays valid UTF-8.
func truncateKeepExt(name string, max int) string {
	ext := filepath.Ext(name)
	if len(ext) >= max {
		return name[:runeBoundary(name, max)]
	}
	base := strings.TrimSuffix(name, ext)
	return base[:runeBoundary(base, max-len(ext))] + ext
}

// runeBoundary returns the largest n <= max at which s can be cut
// without splitting a rune.
func runeBoundary(s string, max int) int {
	if max >= len(s) {
		return len(s)
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return max
}

// sniff detects the content type from the leading bytes and rewinds f.
func sniff(f io.ReadSeeker) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if n == 0 {
		return DefaultContentType, nil
	}

	mtype := mimetype.Detect(head[:n])
	if mtype == nil || mtype.String() == "" {
		return DefaultContentType, nil
	}
	return mtype.String(), nil
}
