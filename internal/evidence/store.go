// Package evidence stores captured alert frames on disk and keeps only the
// most recent ones.
package evidence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxImages is the number of evidence images kept on disk.
const DefaultMaxImages = 20

// namePattern matches files written by Save. Only these are ever evicted.
var namePattern = regexp.MustCompile(`^[a-z]+_[0-9]+\.jpg$`)

// ErrInvalidCategory is returned for category names that would break the
// file naming convention.
var ErrInvalidCategory = errors.New("invalid evidence category")

var categoryPattern = regexp.MustCompile(`^[a-z]+$`)

// File describes one stored evidence image.
type File struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// Store writes evidence images into a directory and evicts the oldest once
// there are more than maxImages.
type Store struct {
	dir       string
	maxImages int
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewStore creates the directory if needed and returns a Store for it.
func NewStore(dir string, maxImages int, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("evidence directory is required")
	}
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence directory: %w", err)
	}

	return &Store{
		dir:       dir,
		maxImages: maxImages,
		logger:    logger.Named("evidence"),
	}, nil
}

// FileName returns the conventional name for an image of category taken at t.
func FileName(category string, t time.Time) string {
	return fmt.Sprintf("%s_%d.jpg", category, t.Unix())
}

// Save writes a JPEG image for category and enforces the retention limit.
// Eviction problems are logged, not returned: the new image is already safe.
func (s *Store) Save(category string, jpeg []byte, at time.Time) (string, error) {
	if !categoryPattern.MatchString(category) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, FileName(category, at))
	if err := os.WriteFile(path, jpeg, 0o644); err != nil {
		return "", fmt.Errorf("write evidence %s: %w", path, err)
	}

	if _, err := s.enforce(); err != nil {
		s.logger.Warn("evidence retention failed", zap.Error(err))
	}

	return path, nil
}

// Enforce deletes the oldest images until at most maxImages remain and
// returns the paths it removed.
func (s *Store) Enforce() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enforce()
}

func (s *Store) enforce() ([]string, error) {
	files, err := s.list()
	if err != nil {
		return nil, err
	}

	var removed []string
	for len(files) > s.maxImages {
		oldest := files[0]
		files = files[1:]

		if err := os.Remove(oldest.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to evict evidence image",
				zap.String("path", oldest.Path),
				zap.Error(err),
			)
			continue
		}
		removed = append(removed, oldest.Path)
	}

	if len(removed) > 0 {
		s.logger.Debug("evicted evidence images", zap.Int("count", len(removed)))
	}

	return removed, nil
}

// List returns the stored images, oldest first.
func (s *Store) List() ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

// list returns convention-matching files sorted by modification time, with
// the name as tie-breaker.
func (s *Store) list() ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read evidence directory: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !namePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, File{
			Name:    entry.Name(),
			Path:    filepath.Join(s.dir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.Before(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// Dir returns the evidence directory.
func (s *Store) Dir() string {
	return s.dir
}

// MaxImages returns the retention limit.
func (s *Store) MaxImages() int {
	return s.maxImages
}
