package storage

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/Connor1996/badger/y"
	"github.com/petar/GoLLRB/llrb"
	"github.com/pingcap/errors"

	"github.com/feedkv/feedkv/kv/util/engine_util"
)

// MemStorage is a Storage backed by memory for testing. Data is not written
// to disk. It implements the same guard contract as the badger-backed
// storage: every committed write bumps a store-wide tick, and each written
// key records the tick as its version.
type MemStorage struct {
	mu      sync.RWMutex
	tick    uint64
	CfOrder *llrb.LLRB
	CfItem  *llrb.LLRB
	CfMeta  *llrb.LLRB
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		CfOrder: llrb.New(),
		CfItem:  llrb.New(),
		CfMeta:  llrb.New(),
	}
}

func (s *MemStorage) Start() error {
	return nil
}

func (s *MemStorage) Stop() error {
	return nil
}

func (s *MemStorage) Reader() (StorageReader, error) {
	s.mu.RLock()
	return &memReader{inner: s}, nil
}

func (s *MemStorage) Write(batch []Modify, guards []Guard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range guards {
		tree, err := s.tree(g.Cf)
		if err != nil {
			return err
		}
		var current uint64
		if found := tree.Get(memItem{key: g.Key}); found != nil {
			current = found.(memItem).version
		}
		if current != g.Version {
			return errors.WithStack(ErrConflict)
		}
	}

	s.tick++
	for _, m := range batch {
		switch data := m.Data.(type) {
		case Put:
			tree, err := s.tree(data.Cf)
			if err != nil {
				return err
			}
			tree.ReplaceOrInsert(memItem{data.Key, data.Value, s.tick})
		case Delete:
			tree, err := s.tree(data.Cf)
			if err != nil {
				return err
			}
			tree.Delete(memItem{key: data.Key})
		}
	}
	return nil
}

func (s *MemStorage) tree(cf string) (*llrb.LLRB, error) {
	switch cf {
	case engine_util.CfOrder:
		return s.CfOrder, nil
	case engine_util.CfItem:
		return s.CfItem, nil
	case engine_util.CfMeta:
		return s.CfMeta, nil
	}
	return nil, fmt.Errorf("mem-storage: bad CF %s", cf)
}

// Get reads a value directly, bypassing the reader. Test helper.
func (s *MemStorage) Get(cf string, key []byte) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, err := s.tree(cf)
	if err != nil {
		return nil
	}
	result := tree.Get(memItem{key: key})
	if result == nil {
		return nil
	}
	return result.(memItem).value
}

// Set writes a value directly, bypassing guards. Test helper.
func (s *MemStorage) Set(cf string, key []byte, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, err := s.tree(cf)
	if err != nil {
		return
	}
	s.tick++
	tree.ReplaceOrInsert(memItem{key, value, s.tick})
}

func (s *MemStorage) Len(cf string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, err := s.tree(cf)
	if err != nil {
		return -1
	}
	return tree.Len()
}

// memReader is a StorageReader which reads from a MemStorage. It holds the
// storage read lock from creation until Close, so everything read through
// one reader is a single consistent snapshot; writers block while a reader
// is open. A leaked reader therefore wedges the storage.
type memReader struct {
	inner  *MemStorage
	closed bool
}

func (mr *memReader) GetCF(cf string, key []byte) ([]byte, error) {
	tree, err := mr.inner.tree(cf)
	if err != nil {
		return nil, err
	}
	result := tree.Get(memItem{key: key})
	if result == nil {
		return nil, nil
	}
	return result.(memItem).value, nil
}

func (mr *memReader) VersionCF(cf string, key []byte) (uint64, error) {
	tree, err := mr.inner.tree(cf)
	if err != nil {
		return 0, err
	}
	result := tree.Get(memItem{key: key})
	if result == nil {
		return 0, nil
	}
	return result.(memItem).version, nil
}

func (mr *memReader) IterCF(cf string) engine_util.DBIterator {
	tree, err := mr.inner.tree(cf)
	if err != nil {
		return nil
	}
	min := tree.Min()
	if min == nil {
		return &memIter{tree, memItem{}}
	}
	return &memIter{tree, min.(memItem)}
}

func (mr *memReader) Close() {
	if !mr.closed {
		mr.closed = true
		mr.inner.mu.RUnlock()
	}
}

type memIter struct {
	data *llrb.LLRB
	item memItem
}

func (it *memIter) Item() engine_util.DBItem {
	return it.item
}

func (it *memIter) Valid() bool {
	return it.item.key != nil
}

func (it *memIter) Next() {
	first := true
	oldItem := it.item
	it.item = memItem{}
	it.data.AscendGreaterOrEqual(oldItem, func(item llrb.Item) bool {
		// Skip the first item, which will be it.item
		if first {
			first = false
			return true
		}

		it.item = item.(memItem)
		return false
	})
}

func (it *memIter) Seek(key []byte) {
	it.item = memItem{}
	it.data.AscendGreaterOrEqual(memItem{key: key}, func(item llrb.Item) bool {
		it.item = item.(memItem)

		return false
	})
}

func (it *memIter) ValidForPrefix(prefix []byte) bool {
	return it.item.key != nil && bytes.HasPrefix(it.item.key, prefix)
}

func (it *memIter) Close() {}

type memItem struct {
	key     []byte
	value   []byte
	version uint64
}

func (it memItem) Key() []byte {
	return it.key
}

func (it memItem) KeyCopy(dst []byte) []byte {
	return y.SafeCopy(dst, it.key)
}

func (it memItem) Value() ([]byte, error) {
	return it.value, nil
}

func (it memItem) ValueSize() int {
	return len(it.value)
}

func (it memItem) ValueCopy(dst []byte) ([]byte, error) {
	return y.SafeCopy(dst, it.value), nil
}

func (it memItem) Less(than llrb.Item) bool {
	other := than.(memItem)
	return bytes.Compare(it.key, other.key) < 0
}
