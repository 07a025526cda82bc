package engine_util

import (
	"github.com/Connor1996/badger"
)

func KeyWithCF(cf string, key []byte) []byte {
	return append([]byte(cf+"_"), key...)
}

// GetCFFromTxn returns the value at key in cf. Absent keys yield (nil, nil);
// present keys always read back non-nil, even when the stored value is empty.
func GetCFFromTxn(txn *badger.Txn, cf string, key []byte) (val []byte, err error) {
	item, err := txn.Get(KeyWithCF(cf, key))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	val, err = item.ValueCopy(val)
	if err != nil {
		return nil, err
	}
	if val == nil {
		// A present key with an empty value must stay distinguishable
		// from an absent key.
		val = []byte{}
	}
	return val, nil
}

// VersionCFFromTxn returns the commit version of key in cf, or 0 when the
// key is absent.
func VersionCFFromTxn(txn *badger.Txn, cf string, key []byte) (uint64, error) {
	item, err := txn.Get(KeyWithCF(cf, key))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return item.Version(), nil
}
