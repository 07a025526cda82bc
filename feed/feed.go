package feed

import (
	"github.com/pingcap/errors"

	"github.com/feedkv/feedkv/kv/storage"
	"github.com/feedkv/feedkv/kv/util/codec"
	"github.com/feedkv/feedkv/kv/util/engine_util"
)

// Position says where an inserted item lands relative to its anchor.
type Position int

const (
	Before Position = iota
	After
)

// Feed is a handle on one named, manually ordered collection. It holds no
// feed state of its own: every mutation runs against the shared storage, so
// any number of Feed handles (in any number of processes sharing the store)
// may mutate the same feed concurrently. Serialization between writers is
// delegated entirely to the storage guard check; conditional mutations run
// a read-validate-build-commit loop and restart on conflict.
type Feed struct {
	name    string
	storage storage.Storage
	sink    Sink
	retry   RetryPolicy
}

// Open returns a handle on the named feed. It does not create anything in
// the store; a feed exists once something is published to it. A nil sink
// discards events.
func Open(name string, s storage.Storage, sink Sink, retry RetryPolicy) *Feed {
	if sink == nil {
		sink = Discard
	}
	return &Feed{name: name, storage: s, sink: sink, retry: retry}
}

func (f *Feed) Name() string {
	return f.name
}

// NextID allocates the next id for this feed. Ids strictly increase over
// the feed's lifetime and are never handed out twice. An allocated id
// cannot be returned: a caller that ends up not using it leaves a permanent
// gap in the sequence.
func (f *Feed) NextID() (uint64, error) {
	key := idIncrKey(f.name)
	for attempt := 0; ; attempt++ {
		cur, ver, err := f.readCounter(key)
		if err != nil {
			return 0, err
		}
		next := cur + 1
		err = f.storage.Write(
			[]storage.Modify{storage.PutModify(engine_util.CfMeta, key, codec.EncodeUint64(next))},
			[]storage.Guard{{Cf: engine_util.CfMeta, Key: key, Version: ver}},
		)
		if err == nil {
			idGauge.WithLabelValues(f.name).Set(float64(next))
			return next, nil
		}
		if !storage.IsConflict(err) {
			return 0, err
		}
		conflictCounter.WithLabelValues("next_id").Inc()
		if err := f.retry.Backoff(attempt); err != nil {
			return 0, err
		}
	}
}

// Publish adds an item to the end of the feed and returns its id.
func (f *Feed) Publish(content []byte) (uint64, error) {
	return f.push(content, false)
}

// Append adds an item to the end of the feed. Same as Publish.
func (f *Feed) Append(content []byte) (uint64, error) {
	return f.Publish(content)
}

// Prepend adds an item to the beginning of the feed and returns its id.
func (f *Feed) Prepend(content []byte) (uint64, error) {
	return f.push(content, true)
}

func (f *Feed) push(content []byte, head bool) (uint64, error) {
	id, err := f.NextID()
	if err != nil {
		return 0, err
	}
	op := "publish"
	if head {
		op = "prepend"
	}
	for attempt := 0; ; attempt++ {
		reader, err := f.storage.Reader()
		if err != nil {
			return 0, err
		}
		ids, orderVer, err := readOrder(reader, f.name)
		if err != nil {
			reader.Close()
			return 0, err
		}
		pubs, pubVer, err := readCounter(reader, publishesKey(f.name))
		reader.Close()
		if err != nil {
			return 0, err
		}

		if head {
			ids = append([]uint64{id}, ids...)
		} else {
			ids = append(ids, id)
		}
		batch := []storage.Modify{
			storage.PutModify(engine_util.CfOrder, orderKey(f.name), codec.EncodeSeq(ids)),
			storage.PutModify(engine_util.CfMeta, publishesKey(f.name), codec.EncodeUint64(pubs+1)),
			storage.PutModify(engine_util.CfItem, itemKey(f.name, id), content),
		}
		guards := []storage.Guard{
			{Cf: engine_util.CfOrder, Key: orderKey(f.name), Version: orderVer},
			{Cf: engine_util.CfMeta, Key: publishesKey(f.name), Version: pubVer},
		}
		err = f.storage.Write(batch, guards)
		if err == nil {
			mutationCounter.WithLabelValues(op).Inc()
			f.sink.Emit(Event{Feed: f.name, Type: EventPublish, ID: id, Content: content})
			return id, nil
		}
		if !storage.IsConflict(err) {
			return 0, err
		}
		conflictCounter.WithLabelValues(op).Inc()
		if err := f.retry.Backoff(attempt); err != nil {
			return 0, err
		}
	}
}

// PublishBefore adds an item immediately before an existing item. It
// returns ErrNoSuchItem when anchor is not in the feed; the id allocated
// for the attempt is discarded in that case.
func (f *Feed) PublishBefore(anchor uint64, content []byte) (uint64, error) {
	return f.insert(anchor, content, Before)
}

// PublishAfter adds an item immediately after an existing item. It returns
// ErrNoSuchItem when anchor is not in the feed; the id allocated for the
// attempt is discarded in that case.
func (f *Feed) PublishAfter(anchor uint64, content []byte) (uint64, error) {
	return f.insert(anchor, content, After)
}

func (f *Feed) insert(anchor uint64, content []byte, pos Position) (uint64, error) {
	// The id is allocated before the anchor check. The counter never moves
	// backwards, so a missing anchor leaves a gap in the id sequence.
	id, err := f.NextID()
	if err != nil {
		return 0, err
	}
	for attempt := 0; ; attempt++ {
		reader, err := f.storage.Reader()
		if err != nil {
			return 0, err
		}
		anchorVal, err := reader.GetCF(engine_util.CfItem, itemKey(f.name, anchor))
		if err != nil {
			reader.Close()
			return 0, err
		}
		if anchorVal == nil {
			reader.Close()
			return 0, errors.WithStack(ErrNoSuchItem)
		}
		anchorVer, err := reader.VersionCF(engine_util.CfItem, itemKey(f.name, anchor))
		if err != nil {
			reader.Close()
			return 0, err
		}
		ids, orderVer, err := readOrder(reader, f.name)
		reader.Close()
		if err != nil {
			return 0, err
		}

		// Anchor on the first occurrence. Duplicates are not expected in
		// the sequence, but nothing structurally prevents them.
		idx := indexOf(ids, anchor)
		if idx < 0 {
			return 0, errors.WithStack(ErrNoSuchItem)
		}
		if pos == After {
			idx++
		}
		ids = append(ids, 0)
		copy(ids[idx+1:], ids[idx:])
		ids[idx] = id

		batch := []storage.Modify{
			storage.PutModify(engine_util.CfOrder, orderKey(f.name), codec.EncodeSeq(ids)),
			storage.PutModify(engine_util.CfItem, itemKey(f.name, id), content),
		}
		guards := []storage.Guard{
			{Cf: engine_util.CfItem, Key: itemKey(f.name, anchor), Version: anchorVer},
			{Cf: engine_util.CfOrder, Key: orderKey(f.name), Version: orderVer},
		}
		err = f.storage.Write(batch, guards)
		if err == nil {
			mutationCounter.WithLabelValues("insert").Inc()
			f.sink.Emit(Event{Feed: f.name, Type: EventPublish, ID: id, Content: content})
			return id, nil
		}
		if !storage.IsConflict(err) {
			return 0, err
		}
		conflictCounter.WithLabelValues("insert").Inc()
		if err := f.retry.Backoff(attempt); err != nil {
			return 0, err
		}
	}
}

// Edit replaces the content of an existing item in place. It returns
// ErrNoSuchItem when id is not in the feed. A committed edit counts as a
// publish: the publish counter advances and subscribers receive an event
// indistinguishable from a fresh publish.
func (f *Feed) Edit(id uint64, content []byte) error {
	for attempt := 0; ; attempt++ {
		reader, err := f.storage.Reader()
		if err != nil {
			return err
		}
		cur, err := reader.GetCF(engine_util.CfItem, itemKey(f.name, id))
		if err != nil {
			reader.Close()
			return err
		}
		if cur == nil {
			reader.Close()
			return errors.WithStack(ErrNoSuchItem)
		}
		itemVer, err := reader.VersionCF(engine_util.CfItem, itemKey(f.name, id))
		if err != nil {
			reader.Close()
			return err
		}
		pubs, pubVer, err := readCounter(reader, publishesKey(f.name))
		reader.Close()
		if err != nil {
			return err
		}

		batch := []storage.Modify{
			storage.PutModify(engine_util.CfItem, itemKey(f.name, id), content),
			storage.PutModify(engine_util.CfMeta, publishesKey(f.name), codec.EncodeUint64(pubs+1)),
		}
		guards := []storage.Guard{
			{Cf: engine_util.CfItem, Key: itemKey(f.name, id), Version: itemVer},
			{Cf: engine_util.CfMeta, Key: publishesKey(f.name), Version: pubVer},
		}
		err = f.storage.Write(batch, guards)
		if err == nil {
			mutationCounter.WithLabelValues("edit").Inc()
			f.sink.Emit(Event{Feed: f.name, Type: EventPublish, ID: id, Content: content})
			return nil
		}
		if !storage.IsConflict(err) {
			return err
		}
		conflictCounter.WithLabelValues("edit").Inc()
		if err := f.retry.Backoff(attempt); err != nil {
			return err
		}
	}
}

// Retract removes an item from the feed. It returns ErrNoSuchItem when id
// is not in the feed. The order entry and the content are removed together;
// no committed state ever holds one without the other.
func (f *Feed) Retract(id uint64) error {
	for attempt := 0; ; attempt++ {
		reader, err := f.storage.Reader()
		if err != nil {
			return err
		}
		cur, err := reader.GetCF(engine_util.CfItem, itemKey(f.name, id))
		if err != nil {
			reader.Close()
			return err
		}
		if cur == nil {
			reader.Close()
			return errors.WithStack(ErrNoSuchItem)
		}
		itemVer, err := reader.VersionCF(engine_util.CfItem, itemKey(f.name, id))
		if err != nil {
			reader.Close()
			return err
		}
		ids, orderVer, err := readOrder(reader, f.name)
		reader.Close()
		if err != nil {
			return err
		}

		if idx := indexOf(ids, id); idx >= 0 {
			ids = append(ids[:idx], ids[idx+1:]...)
		}
		batch := []storage.Modify{
			storage.PutModify(engine_util.CfOrder, orderKey(f.name), codec.EncodeSeq(ids)),
			storage.DeleteModify(engine_util.CfItem, itemKey(f.name, id)),
		}
		guards := []storage.Guard{
			{Cf: engine_util.CfItem, Key: itemKey(f.name, id), Version: itemVer},
			{Cf: engine_util.CfOrder, Key: orderKey(f.name), Version: orderVer},
		}
		err = f.storage.Write(batch, guards)
		if err == nil {
			mutationCounter.WithLabelValues("retract").Inc()
			f.sink.Emit(Event{Feed: f.name, Type: EventRetract, ID: id})
			return nil
		}
		if !storage.IsConflict(err) {
			return err
		}
		conflictCounter.WithLabelValues("retract").Inc()
		if err := f.retry.Backoff(attempt); err != nil {
			return err
		}
	}
}

// GetIDs returns a snapshot of the feed's current ordering.
func (f *Feed) GetIDs() ([]uint64, error) {
	reader, err := f.storage.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	ids, _, err := readOrder(reader, f.name)
	return ids, err
}

// GetItem returns the content of one item, or ErrNoSuchItem. GetItem and
// GetIDs are not jointly atomic: a concurrent retract may remove an id
// between the two calls.
func (f *Feed) GetItem(id uint64) ([]byte, error) {
	reader, err := f.storage.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	val, err := reader.GetCF(engine_util.CfItem, itemKey(f.name, id))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, errors.WithStack(ErrNoSuchItem)
	}
	return val, nil
}

// GetItems returns a snapshot of all items keyed by id.
func (f *Feed) GetItems() (map[uint64][]byte, error) {
	reader, err := f.storage.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	prefix := itemKeyPrefix(f.name)
	items := make(map[uint64][]byte)
	it := reader.IterCF(engine_util.CfItem)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		// Item keys of a feed named "a/b" also carry the prefix of a feed
		// named "a"; only exact prefix-plus-id keys belong to this feed.
		if len(key) != len(prefix)+8 {
			continue
		}
		id, err := codec.DecodeUint64(key[len(prefix):])
		if err != nil {
			return nil, err
		}
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		items[id] = val
	}
	return items, nil
}

// Publishes returns the advisory publish counter.
func (f *Feed) Publishes() (uint64, error) {
	count, _, err := f.readCounter(publishesKey(f.name))
	return count, err
}

func (f *Feed) readCounter(key []byte) (uint64, uint64, error) {
	reader, err := f.storage.Reader()
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()
	return readCounter(reader, key)
}

func readCounter(reader storage.StorageReader, key []byte) (value uint64, version uint64, err error) {
	val, err := reader.GetCF(engine_util.CfMeta, key)
	if err != nil {
		return 0, 0, err
	}
	version, err = reader.VersionCF(engine_util.CfMeta, key)
	if err != nil {
		return 0, 0, err
	}
	if val == nil {
		return 0, version, nil
	}
	value, err = codec.DecodeUint64(val)
	return value, version, err
}

func readOrder(reader storage.StorageReader, name string) ([]uint64, uint64, error) {
	val, err := reader.GetCF(engine_util.CfOrder, orderKey(name))
	if err != nil {
		return nil, 0, err
	}
	version, err := reader.VersionCF(engine_util.CfOrder, orderKey(name))
	if err != nil {
		return nil, 0, err
	}
	ids, err := codec.DecodeSeq(val)
	if err != nil {
		return nil, 0, err
	}
	return ids, version, nil
}

func indexOf(ids []uint64, id uint64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
