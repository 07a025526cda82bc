package standalone_storage

import (
	"sync"

	"github.com/Connor1996/badger"
	"github.com/pingcap/errors"

	"github.com/feedkv/feedkv/kv/config"
	"github.com/feedkv/feedkv/kv/storage"
	"github.com/feedkv/feedkv/kv/util/engine_util"
)

// StandAloneStorage is an implementation of `Storage` backed by a single
// badger instance. Guard versions are badger commit versions; the guard
// check and the batch application run inside one update transaction, and a
// store-level commit mutex makes the pair atomic with respect to other
// writers of this storage. That mutex belongs to the store primitive itself
// (the moral equivalent of the backing server serializing its transactions),
// not to the mutation protocol built on top.
type StandAloneStorage struct {
	engines *engine_util.Engines
	config  *config.Config

	commitMu sync.Mutex
}

func NewStandAloneStorage(conf *config.Config) *StandAloneStorage {
	return &StandAloneStorage{config: conf}
}

func (s *StandAloneStorage) Start() error {
	db := engine_util.CreateDB(s.config.DBPath, &s.config.Engine)
	s.engines = engine_util.NewEngines(db, s.config.DBPath)
	return nil
}

func (s *StandAloneStorage) Stop() error {
	return s.engines.Close()
}

// Destroy stops the storage and removes its data directory.
func (s *StandAloneStorage) Destroy() error {
	return s.engines.Destroy()
}

func (s *StandAloneStorage) Write(batch []storage.Modify, guards []storage.Guard) error {
	wb := new(engine_util.WriteBatch)
	for _, m := range batch {
		switch data := m.Data.(type) {
		case storage.Put:
			wb.SetCF(data.Cf, data.Key, data.Value)
		case storage.Delete:
			wb.DeleteCF(data.Cf, data.Key)
		}
	}
	if wb.Len() == 0 && len(guards) == 0 {
		return nil
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	err := s.engines.Kv.Update(func(txn *badger.Txn) error {
		for _, g := range guards {
			current, err := engine_util.VersionCFFromTxn(txn, g.Cf, g.Key)
			if err != nil {
				return err
			}
			if current != g.Version {
				return storage.ErrConflict
			}
		}
		return wb.WriteToTxn(txn)
	})
	if err != nil && !storage.IsConflict(err) {
		return errors.WithStack(err)
	}
	return err
}

func (s *StandAloneStorage) Reader() (storage.StorageReader, error) {
	return &badgerReader{s.engines.Kv.NewTransaction(false)}, nil
}

// badgerReader holds a read-only transaction open until Close, giving all
// reads through it one consistent snapshot.
type badgerReader struct {
	txn *badger.Txn
}

func (br *badgerReader) GetCF(cf string, key []byte) ([]byte, error) {
	return engine_util.GetCFFromTxn(br.txn, cf, key)
}

func (br *badgerReader) VersionCF(cf string, key []byte) (uint64, error) {
	return engine_util.VersionCFFromTxn(br.txn, cf, key)
}

func (br *badgerReader) IterCF(cf string) engine_util.DBIterator {
	return engine_util.NewCFIterator(cf, br.txn)
}

func (br *badgerReader) Close() {
	br.txn.Discard()
}
