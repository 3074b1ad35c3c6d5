// Package badger stores vectable tables in an embedded badger database.
//
// Each blob is one key. Values carry an eight-byte modification timestamp
// ahead of the content so cleanup can age unreferenced files.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/internal/logging"
)

const headerSize = 8

// Options configures the badger store.
type Options struct {
	// Dir is the directory for badger data files. Required unless InMemory.
	Dir string

	// InMemory runs badger without disk persistence.
	InMemory bool

	// Logger receives badger warnings and errors. Defaults to no-op.
	Logger *logging.Logger
}

// Store implements blobstore.Store on badger.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

var _ blobstore.Store = (*Store)(nil)

// Open opens or creates a badger store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logging.OrNoop(opts.Logger)})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, blobstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("badger: blob %q is corrupt", name)
	}
	return blobstore.NewBytesBlob(data[headerSize:]), nil
}

func (s *Store) encode(data []byte) []byte {
	v := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint64(v, uint64(s.now().UnixNano()))
	copy(v[headerSize:], data)
	return v
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := s.encode(data)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), v)
	})
}

// PutIfAbsent relies on badger's optimistic transactions: of two writers
// that both saw the key missing, the second commit fails with ErrConflict
// and the retry observes the key.
func (s *Store) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	v := s.encode(data)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get([]byte(name))
			switch {
			case err == nil:
				return blobstore.ErrAlreadyExists
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			return txn.Set([]byte(name), v)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(name))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *Store) List(ctx context.Context, prefix string) ([]blobstore.Info, error) {
	var infos []blobstore.Info
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(prefix)
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(iterOpts.Prefix); it.ValidForPrefix(iterOpts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			info := blobstore.Info{
				Name: string(item.KeyCopy(nil)),
				Size: item.ValueSize() - headerSize,
			}
			err := item.Value(func(v []byte) error {
				if len(v) < headerSize {
					return fmt.Errorf("badger: blob %q is corrupt", info.Name)
				}
				info.ModTime = time.Unix(0, int64(binary.BigEndian.Uint64(v)))
				return nil
			})
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Badger iterates keys in byte order, which is name order.
	return infos, nil
}

// badgerLogger forwards badger warnings and errors to slog.
type badgerLogger struct {
	l *logging.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{}) {
	b.l.Error(fmt.Sprintf(f, v...), "component", "badger")
}

func (b badgerLogger) Warningf(f string, v ...interface{}) {
	b.l.Warn(fmt.Sprintf(f, v...), "component", "badger")
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
