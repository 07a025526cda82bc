package feed

import (
	"github.com/feedkv/feedkv/kv/util/codec"
)

// Key schema, all scoped by feed name:
//
//	CfOrder  <feed>            uvarint-encoded id sequence
//	CfItem   <feed>/<id>       raw item content, id as 8-byte big-endian
//	CfMeta   <feed>/idincr     id counter
//	CfMeta   <feed>/publishes  publish counter
//
// Item keys sort in id order within a feed because ids are big-endian.

func orderKey(feed string) []byte {
	return []byte(feed)
}

func itemKeyPrefix(feed string) []byte {
	return []byte(feed + "/")
}

func itemKey(feed string, id uint64) []byte {
	return append(itemKeyPrefix(feed), codec.EncodeUint64(id)...)
}

func idIncrKey(feed string) []byte {
	return []byte(feed + "/idincr")
}

func publishesKey(feed string) []byte {
	return []byte(feed + "/publishes")
}
