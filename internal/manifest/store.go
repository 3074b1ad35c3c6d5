package manifest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/internal/compress"
)

// VersionsDir is the directory holding a table's manifests.
const VersionsDir = "_versions"

const suffix = ".manifest"

// Store reads and commits the manifests of one table.
type Store struct {
	store blobstore.Store
	root  string
	codec compress.Codec
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the compression codec for new manifests. Default is ZSTD.
func WithCodec(c compress.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithClock overrides the clock used to stamp committed manifests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store for the table rooted at root.
func NewStore(store blobstore.Store, root string, opts ...Option) *Store {
	s := &Store{
		store: store,
		root:  strings.TrimSuffix(root, "/"),
		codec: compress.ZSTD,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the blob name of a version's manifest.
func (s *Store) Path(version uint64) string {
	return path.Join(s.root, VersionsDir, fmt.Sprintf("%020d%s", version, suffix))
}

// ListVersions returns the committed versions in ascending order.
func (s *Store) ListVersions(ctx context.Context) ([]uint64, error) {
	infos, err := s.store.List(ctx, path.Join(s.root, VersionsDir)+"/")
	if err != nil {
		return nil, err
	}
	versions := make([]uint64, 0, len(infos))
	for _, info := range infos {
		base := path.Base(info.Name)
		if !strings.HasSuffix(base, suffix) {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSuffix(base, suffix), 10, 64)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions, nil
}

// Latest loads the highest committed version.
func (s *Store) Latest(ctx context.Context) (*Manifest, error) {
	versions, err := s.ListVersions(ctx)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	return s.Load(ctx, versions[len(versions)-1])
}

// Load reads a specific version.
func (s *Store) Load(ctx context.Context, version uint64) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, s.store, s.Path(version))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: version %d", ErrNotFound, version)
		}
		return nil, err
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("version %d: %w", version, err)
	}
	return m, nil
}

// Commit writes m as version m.Version. It fails with ErrConflict if that
// version already exists.
func (s *Store) Commit(ctx context.Context, m *Manifest) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	data, err := Encode(m, s.codec)
	if err != nil {
		return err
	}
	if err := s.store.PutIfAbsent(ctx, s.Path(m.Version), data); err != nil {
		if errors.Is(err, blobstore.ErrAlreadyExists) {
			return fmt.Errorf("%w: version %d", ErrConflict, m.Version)
		}
		return err
	}
	return nil
}

// DeleteVersion removes the manifest of a version.
func (s *Store) DeleteVersion(ctx context.Context, version uint64) error {
	return s.store.Delete(ctx, s.Path(version))
}
