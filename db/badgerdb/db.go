package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/badger/v2/options"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/log"
)

const (
	badgerDbDiscardRatio   = 0.5 // run gc when 50% of samples can be collected
	badgerDbGcInterval     = 10 * time.Minute
	badgerDbGcSize         = 1 << 20 // 1 MB
	badgerValueLogFileSize = 1<<26 - 1
)

var logger = &extendedLog{Logger: log.NewLogger("db")}

// extendedLog adapts the module logger to badger.Logger.
type extendedLog struct {
	*log.Logger
}

func (l *extendedLog) Errorf(f string, v ...interface{}) {
	l.Error().Msg(fmt.Sprintf(f, v...))
}

func (l *extendedLog) Warningf(f string, v ...interface{}) {
	l.Warn().Msg(fmt.Sprintf(f, v...))
}

func (l *extendedLog) Infof(f string, v ...interface{}) {
	l.Info().Msg(fmt.Sprintf(f, v...))
}

func (l *extendedLog) Debugf(f string, v ...interface{}) {
	l.Debug().Msg(fmt.Sprintf(f, v...))
}

// Enforce database implements interface
var _ provernetdb.DB = (*DB)(nil)

// DB is the persistent ledger backend.
type DB struct {
	db         *badger.DB
	ctx        context.Context
	cancelFunc context.CancelFunc
	name       string
	gcDone     chan struct{}
}

// NewDB creates new database or load existing database in the directory
func NewDB(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create badger dir %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir)

	// keep RAM bounded on large state
	opts.ValueLogLoadingMode = options.FileIO
	opts.TableLoadingMode = options.FileIO
	opts.ValueThreshold = 1024
	opts.ValueLogFileSize = badgerValueLogFileSize
	opts.Logger = logger

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	database := &DB{
		db:         bdb,
		ctx:        ctx,
		cancelFunc: cancelFunc,
		name:       dir,
		gcDone:     make(chan struct{}),
	}
	go database.runBadgerGC()
	return database, nil
}

func (db *DB) runBadgerGC() {
	defer close(db.gcDone)
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	lastGcT := time.Now()
	_, lastDbVlogSize := db.db.Size()
	for {
		select {
		case <-ticker.C:
			currentDblsmSize, currentDbVlogSize := db.db.Size()

			// exceed badgerDbGcInterval time or vlog grows slowly (resource is free)
			if time.Since(lastGcT) > badgerDbGcInterval || lastDbVlogSize+badgerDbGcSize > currentDbVlogSize {
				startGcT := time.Now()
				logger.Debug().Str("name", db.name).Int64("lsmSize", currentDblsmSize).Int64("vlogSize", currentDbVlogSize).Msg("Start to GC at badger")
				err := db.db.RunValueLogGC(badgerDbDiscardRatio)
				if err != nil {
					if errors.Is(err, badger.ErrNoRewrite) {
						logger.Debug().Str("name", db.name).Msg("Nothing to GC at badger")
					} else {
						logger.Error().Str("name", db.name).Err(err).Msg("Fail to GC at badger")
					}
					lastDbVlogSize = currentDbVlogSize
				} else {
					_, afterGcDbVlogSize := db.db.Size()
					logger.Debug().Str("name", db.name).Int64("vlogSize", afterGcDbVlogSize).
						Dur("takenTime", time.Since(startGcT)).Msg("Finish to GC at badger")
					lastDbVlogSize = afterGcDbVlogSize
				}
				lastGcT = time.Now()
			}
		case <-db.ctx.Done():
			return
		}
	}
}

func (db *DB) Type() string {
	return "badgerdb"
}

func (db *DB) Set(namespace []byte, key []byte, value []byte) error {
	key = provernetdb.ConvNilToBytes(provernetdb.PrependNamespace(namespace, key))
	value = provernetdb.ConvNilToBytes(value)

	return db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (db *DB) Delete(namespace []byte, key []byte) error {
	key = provernetdb.ConvNilToBytes(provernetdb.PrependNamespace(namespace, key))

	return db.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (db *DB) Get(namespace []byte, key []byte) ([]byte, bool, error) {
	key = provernetdb.ConvNilToBytes(provernetdb.PrependNamespace(namespace, key))

	var val []byte
	err := db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (db *DB) Exist(namespace []byte, key []byte) (bool, error) {
	_, exists, err := db.Get(namespace, key)
	return exists, err
}

// Close stops the gc goroutine and closes badger.
func (db *DB) Close() error {
	db.cancelFunc()
	<-db.gcDone
	return db.db.Close()
}

func (db *DB) NewTx() provernetdb.Transaction {
	return &Transaction{
		db:      db,
		tx:      db.db.NewTransaction(true),
		createT: time.Now(),
	}
}

func (db *DB) NewBulk() provernetdb.Bulk {
	return &Bulk{
		db:      db,
		bulk:    db.db.NewWriteBatch(),
		createT: time.Now(),
	}
}
