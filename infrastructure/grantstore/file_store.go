// Package grant_store persists native grants as YAML files.
package grant_store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/domain/ports"
)

// DefaultFileName is the grants file created under the user config directory.
const DefaultFileName = "grants.yaml"

type fileStoreConfig struct {
	logger   *zap.Logger
	path     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

func defaultFileStoreConfig() fileStoreConfig {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return fileStoreConfig{
		logger:   zap.NewNop(),
		path:     filepath.Join(dir, "oscall", DefaultFileName),
		dirPerm:  0o755,
		filePerm: 0o600,
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the grants file.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		if path != "" {
			c.path = path
		}
	}
}

// WithFilePermissions sets the file permissions for the grants file.
// Default is 0o600.
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the permissions of created directories.
// Default is 0o755.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) FileStoreOption {
	return func(c *fileStoreConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

var _ ports.GrantStore = (*FileStore)(nil)

// FileStore keeps a GrantSet in one YAML file. Saves replace the file
// atomically.
type FileStore struct {
	config fileStoreConfig
	mu     sync.Mutex
}

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg}
}

// Load returns the stored grants, or an empty set when the file does not exist.
func (s *FileStore) Load() (*entities.GrantSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() (*entities.GrantSet, error) {
	data, err := os.ReadFile(s.config.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &entities.GrantSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read grant store: %w", err)
	}

	var grants entities.GrantSet
	if err := yaml.Unmarshal(data, &grants); err != nil {
		return nil, fmt.Errorf("parse grant store %s: %w", s.config.path, err)
	}
	return &grants, nil
}

// Save replaces the stored grants.
func (s *FileStore) Save(grants *entities.GrantSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(grants)
}

func (s *FileStore) saveLocked(grants *entities.GrantSet) error {
	if grants == nil {
		grants = &entities.GrantSet{}
	}
	data, err := yaml.Marshal(grants)
	if err != nil {
		return fmt.Errorf("marshal grants: %w", err)
	}

	dir := filepath.Dir(s.config.path)
	if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
		return fmt.Errorf("create grant store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".grants-*.yaml")
	if err != nil {
		return fmt.Errorf("write grant store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write grant store: %w", err)
	}
	if err := tmp.Chmod(s.config.filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("write grant store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write grant store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.config.path); err != nil {
		return fmt.Errorf("write grant store: %w", err)
	}

	rules := 0
	if grants.Native != nil {
		rules = len(grants.Native.Rules)
	}
	s.config.logger.Info("grants saved", zap.String("path", s.config.path), zap.Int("rules", rules))
	return nil
}

// Add merges grants into the stored set and returns the result.
func (s *FileStore) Add(grants *entities.GrantSet) (*entities.GrantSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	current.Merge(grants)
	if err := s.saveLocked(current); err != nil {
		return nil, err
	}
	return current, nil
}

// ConfigPath returns the path to the backing store.
func (s *FileStore) ConfigPath() string {
	return s.config.path
}
