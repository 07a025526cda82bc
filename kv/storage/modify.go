package storage

// ModifyType is the smallest unit of mutation of the feed store's underlying
// storage (i.e., raw key/values on disk).
type ModifyType int64

const (
	ModifyTypePut    ModifyType = 1
	ModifyTypeDelete ModifyType = 2
)

type Put struct {
	Key   []byte
	Value []byte
	Cf    string
}

type Delete struct {
	Key []byte
	Cf  string
}

type Modify struct {
	Type ModifyType
	Data interface{}
}

func PutModify(cf string, key, value []byte) Modify {
	return Modify{Type: ModifyTypePut, Data: Put{Cf: cf, Key: key, Value: value}}
}

func DeleteModify(cf string, key []byte) Modify {
	return Modify{Type: ModifyTypeDelete, Data: Delete{Cf: cf, Key: key}}
}
