package engine_util

import (
	"os"

	"github.com/Connor1996/badger"
	"github.com/ngaut/log"

	"github.com/feedkv/feedkv/kv/config"
)

// Engines keeps a reference to and data for the badger engine backing a
// feed store. The Path field is the filesystem path the data is stored at.
type Engines struct {
	Kv     *badger.DB
	KvPath string
}

func NewEngines(kvEngine *badger.DB, kvPath string) *Engines {
	return &Engines{
		Kv:     kvEngine,
		KvPath: kvPath,
	}
}

func (en *Engines) Close() error {
	return en.Kv.Close()
}

func (en *Engines) Destroy() error {
	if err := en.Close(); err != nil {
		return err
	}
	return os.RemoveAll(en.KvPath)
}

// CreateDB creates a new badger DB on disk at path.
func CreateDB(path string, conf *config.Engine) *badger.DB {
	opts := badger.DefaultOptions
	opts.NumCompactors = conf.NumCompactors
	opts.ValueThreshold = conf.ValueThreshold
	opts.ValueLogFileSize = conf.VlogFileSize
	opts.MaxTableSize = conf.MaxTableSize
	opts.NumMemtables = conf.NumMemTables
	opts.NumLevelZeroTables = conf.NumL0Tables
	opts.NumLevelZeroTablesStall = conf.NumL0TablesStall
	opts.SyncWrites = conf.SyncWrites
	opts.Dir = path
	opts.ValueDir = path
	if err := os.MkdirAll(opts.Dir, os.ModePerm); err != nil {
		log.Fatal(err)
	}
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal(err)
	}
	return db
}
