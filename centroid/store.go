package centroid

import "context"
import "errors"
import "fmt"
import "strconv"
import "strings"

import badger "github.com/dgraph-io/badger/v4"
import "github.com/vmihailenco/msgpack/v5"
import "go.uber.org/zap"

const keyPrefix = "centroid:"

// ErrStore is returned for a store opened without a directory.
var ErrStore = errors.New("centroid: store needs a directory")

// StoreOptions configures OpenStore.
type StoreOptions struct {
	// Dir holds the badger files. Required unless InMemory.
	Dir string
	// InMemory keeps everything in memory, for tests.
	InMemory bool
	// Logger receives badger's messages. Nil silences them.
	Logger *zap.Logger
}

// Store persists a centroid table in badger, one msgpack row per speaker.
type Store struct {
	db *badger.DB
}

type row struct {
	ID     int       `msgpack:"id"`
	Vector []float64 `msgpack:"v"`
}

type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(strings.TrimSpace(f), v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(strings.TrimSpace(f), v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Infof(strings.TrimSpace(f), v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(strings.TrimSpace(f), v...) }

// OpenStore opens or creates a store.
func OpenStore(opts StoreOptions) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, ErrStore
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{log.Named("badger").Sugar()})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("centroid: open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes every centroid of t, replacing stored rows with the same id.
func (s *Store) Save(ctx context.Context, t *Table) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, id := range t.IDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := msgpack.Marshal(row{ID: id, Vector: t.rows[id]})
		if err != nil {
			return fmt.Errorf("centroid: encode %d: %w", id, err)
		}
		if err := wb.Set([]byte(keyPrefix+strconv.Itoa(id)), data); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Load reads every stored centroid into a new table of length dim.
func (s *Store) Load(ctx context.Context, dim int) (*Table, error) {
	t := NewTable(dim)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r row
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &r)
			})
			if err != nil {
				return fmt.Errorf("centroid: decode %s: %w", it.Item().Key(), err)
			}
			if err := t.Set(r.ID, r.Vector); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
