package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedkv/feedkv/kv/util/engine_util"
)

func TestMemStorageWriteAndRead(t *testing.T) {
	s := NewMemStorage()
	batch := []Modify{
		PutModify(engine_util.CfItem, []byte("a"), []byte("x")),
		PutModify(engine_util.CfMeta, []byte("b"), []byte("y")),
	}
	require.NoError(t, s.Write(batch, nil))

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()

	val, err := r.GetCF(engine_util.CfItem, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), val)

	val, err = r.GetCF(engine_util.CfItem, []byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestMemStorageGuardOnAbsentKey(t *testing.T) {
	s := NewMemStorage()

	// Version 0 guards that the key is still absent.
	err := s.Write(
		[]Modify{PutModify(engine_util.CfItem, []byte("a"), []byte("x"))},
		[]Guard{{Cf: engine_util.CfItem, Key: []byte("a"), Version: 0}},
	)
	require.NoError(t, err)

	// The same guard no longer holds.
	err = s.Write(
		[]Modify{PutModify(engine_util.CfItem, []byte("a"), []byte("y"))},
		[]Guard{{Cf: engine_util.CfItem, Key: []byte("a"), Version: 0}},
	)
	assert.True(t, IsConflict(err))
	assert.Equal(t, []byte("x"), s.Get(engine_util.CfItem, []byte("a")))
}

func TestMemStorageGuardTracksVersion(t *testing.T) {
	s := NewMemStorage()
	require.NoError(t, s.Write([]Modify{PutModify(engine_util.CfItem, []byte("a"), []byte("x"))}, nil))

	r, err := s.Reader()
	require.NoError(t, err)
	ver, err := r.VersionCF(engine_util.CfItem, []byte("a"))
	require.NoError(t, err)
	r.Close()
	require.NotZero(t, ver)

	// A write guarded on the observed version commits once...
	err = s.Write(
		[]Modify{PutModify(engine_util.CfItem, []byte("a"), []byte("y"))},
		[]Guard{{Cf: engine_util.CfItem, Key: []byte("a"), Version: ver}},
	)
	require.NoError(t, err)

	// ...and conflicts when replayed against the moved version.
	err = s.Write(
		[]Modify{PutModify(engine_util.CfItem, []byte("a"), []byte("z"))},
		[]Guard{{Cf: engine_util.CfItem, Key: []byte("a"), Version: ver}},
	)
	assert.True(t, IsConflict(err))
	assert.Equal(t, []byte("y"), s.Get(engine_util.CfItem, []byte("a")))
}

func TestMemStorageConflictAbortsWholeBatch(t *testing.T) {
	s := NewMemStorage()
	require.NoError(t, s.Write([]Modify{PutModify(engine_util.CfItem, []byte("a"), []byte("x"))}, nil))

	err := s.Write(
		[]Modify{
			PutModify(engine_util.CfItem, []byte("b"), []byte("y")),
			DeleteModify(engine_util.CfItem, []byte("a")),
		},
		[]Guard{{Cf: engine_util.CfItem, Key: []byte("a"), Version: 0}},
	)
	require.True(t, IsConflict(err))

	// Nothing from the batch landed.
	assert.Nil(t, s.Get(engine_util.CfItem, []byte("b")))
	assert.Equal(t, []byte("x"), s.Get(engine_util.CfItem, []byte("a")))
}

func TestMemStorageDelete(t *testing.T) {
	s := NewMemStorage()
	require.NoError(t, s.Write([]Modify{PutModify(engine_util.CfItem, []byte("a"), []byte("x"))}, nil))
	require.NoError(t, s.Write([]Modify{DeleteModify(engine_util.CfItem, []byte("a"))}, nil))

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()
	val, err := r.GetCF(engine_util.CfItem, []byte("a"))
	require.NoError(t, err)
	assert.Nil(t, val)
	ver, err := r.VersionCF(engine_util.CfItem, []byte("a"))
	require.NoError(t, err)
	assert.Zero(t, ver)
}

func TestMemStorageIterCF(t *testing.T) {
	s := NewMemStorage()
	require.NoError(t, s.Write([]Modify{
		PutModify(engine_util.CfItem, []byte("b"), []byte("2")),
		PutModify(engine_util.CfItem, []byte("a"), []byte("1")),
		PutModify(engine_util.CfItem, []byte("c"), []byte("3")),
		PutModify(engine_util.CfMeta, []byte("other"), []byte("x")),
	}, nil))

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()

	it := r.IterCF(engine_util.CfItem)
	defer it.Close()
	var keys []string
	for it.Seek([]byte("a")); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().Key()))
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestMemStorageBadCF(t *testing.T) {
	s := NewMemStorage()
	err := s.Write([]Modify{PutModify("nope", []byte("a"), []byte("x"))}, nil)
	assert.Error(t, err)
}
