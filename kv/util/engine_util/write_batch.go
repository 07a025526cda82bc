package engine_util

import (
	"github.com/Connor1996/badger"
)

// Column families of the feed store. CfOrder holds the per-feed id
// sequence, CfItem the id to content mapping, CfMeta the counters.
const (
	CfOrder string = "order"
	CfItem  string = "item"
	CfMeta  string = "meta"
)

var CFs [3]string = [3]string{CfOrder, CfItem, CfMeta}

type batchEntry struct {
	key    []byte
	value  []byte
	delete bool
}

// WriteBatch collects CF-addressed puts and deletes for application in one
// badger transaction. Puts and deletes are explicit; an empty value is a
// legal value, not a delete.
type WriteBatch struct {
	entries []batchEntry
}

func (wb *WriteBatch) Len() int {
	return len(wb.entries)
}

func (wb *WriteBatch) SetCF(cf string, key, val []byte) {
	wb.entries = append(wb.entries, batchEntry{
		key:   KeyWithCF(cf, key),
		value: val,
	})
}

func (wb *WriteBatch) DeleteCF(cf string, key []byte) {
	wb.entries = append(wb.entries, batchEntry{
		key:    KeyWithCF(cf, key),
		delete: true,
	})
}

// WriteToTxn applies the batch inside an already open update transaction.
func (wb *WriteBatch) WriteToTxn(txn *badger.Txn) error {
	for _, entry := range wb.entries {
		var err error
		if entry.delete {
			err = txn.Delete(entry.key)
		} else {
			err = txn.Set(entry.key, entry.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
