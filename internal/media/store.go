package media

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inklet/inklet/pkg/config"
	"github.com/inklet/inklet/pkg/logging"
)

// subdir is where post images live under the media root; the stored path on
// the post row is relative to the root ("posts/<name>").
const subdir = "posts"

// Store is a filesystem-backed media store for uploaded post images
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates the media store, creating the root directory if needed
func NewStore(cfg *config.MediaConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(cfg.Root, subdir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &Store{
		root:   cfg.Root,
		logger: logging.WithComponent("media"),
	}, nil
}

// Save stores an uploaded file under a generated name and returns the
// relative path to reference from the post row.
func (s *Store) Save(r io.Reader, origName string) (string, error) {
	ext := strings.ToLower(path.Ext(origName))
	rel := path.Join(subdir, uuid.NewString()+ext)

	full, err := s.fullPath(rel)
	if err != nil {
		return "", err
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}

	s.logger.Debug("Stored media file", zap.String("path", rel))
	return rel, nil
}

// Remove deletes a stored file. A file that never existed is not an error;
// any other failure is reported so the caller can abort its own cleanup.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	full, err := s.fullPath(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove media file: %w", err)
	}
	return nil
}

// Exists reports whether a stored file is present
func (s *Store) Exists(rel string) (bool, error) {
	if rel == "" {
		return false, nil
	}
	full, err := s.fullPath(rel)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// fullPath resolves a relative media path, rejecting anything that would
// escape the media root.
func (s *Store) fullPath(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid media path: %s", rel)
	}
	return filepath.Join(s.root, clean), nil
}
