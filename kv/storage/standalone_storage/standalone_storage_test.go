package standalone_storage

import (
	"io/ioutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedkv/feedkv/kv/config"
	"github.com/feedkv/feedkv/kv/storage"
	"github.com/feedkv/feedkv/kv/util/engine_util"
)

func newTestStorage(t *testing.T) (*StandAloneStorage, func()) {
	dir, err := ioutil.TempDir("", "feedkv-standalone")
	require.NoError(t, err)

	conf := config.NewTestConfig()
	conf.DBPath = dir
	s := NewStandAloneStorage(conf)
	require.NoError(t, s.Start())

	return s, func() {
		s.Destroy()
	}
}

func TestEmptyValueIsPresent(t *testing.T) {
	s, cleanup := newTestStorage(t)
	defer cleanup()

	require.NoError(t, s.Write([]storage.Modify{
		storage.PutModify(engine_util.CfItem, []byte("a"), []byte{}),
	}, nil))

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()

	val, err := r.GetCF(engine_util.CfItem, []byte("a"))
	require.NoError(t, err)
	assert.NotNil(t, val)
	assert.Len(t, val, 0)

	ver, err := r.VersionCF(engine_util.CfItem, []byte("a"))
	require.NoError(t, err)
	assert.NotZero(t, ver)
}

func TestWriteAndRead(t *testing.T) {
	s, cleanup := newTestStorage(t)
	defer cleanup()

	batch := []storage.Modify{
		storage.PutModify(engine_util.CfItem, []byte("a"), []byte("x")),
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

func TestGuardedWrite(t *testing.T) {
	s, cleanup := newTestStorage(t)
	defer cleanup()

	require.NoError(t, s.Write([]storage.Modify{
		storage.PutModify(engine_util.CfItem, []byte("a"), []byte("x")),
	}, nil))

	r, err := s.Reader()
	require.NoError(t, err)
	ver, err := r.VersionCF(engine_util.CfItem, []byte("a"))
	require.NoError(t, err)
	r.Close()
	require.NotZero(t, ver)

	err = s.Write(
		[]storage.Modify{storage.PutModify(engine_util.CfItem, []byte("a"), []byte("y"))},
		[]storage.Guard{{Cf: engine_util.CfItem, Key: []byte("a"), Version: ver}},
	)
	require.NoError(t, err)

	// The key moved; the old guard now conflicts.
	err = s.Write(
		[]storage.Modify{storage.PutModify(engine_util.CfItem, []byte("a"), []byte("z"))},
		[]storage.Guard{{Cf: engine_util.CfItem, Key: []byte("a"), Version: ver}},
	)
	assert.True(t, storage.IsConflict(err))

	r, err = s.Reader()
	require.NoError(t, err)
	defer r.Close()
	val, err := r.GetCF(engine_util.CfItem, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), val)
}

func TestGuardOnAbsentKey(t *testing.T) {
	s, cleanup := newTestStorage(t)
	defer cleanup()

	err := s.Write(
		[]storage.Modify{storage.PutModify(engine_util.CfItem, []byte("a"), []byte("x"))},
		[]storage.Guard{{Cf: engine_util.CfItem, Key: []byte("a"), Version: 0}},
	)
	require.NoError(t, err)

	err = s.Write(
		[]storage.Modify{storage.PutModify(engine_util.CfItem, []byte("a"), []byte("y"))},
		[]storage.Guard{{Cf: engine_util.CfItem, Key: []byte("a"), Version: 0}},
	)
	assert.True(t, storage.IsConflict(err))
}

func TestDelete(t *testing.T) {
	s, cleanup := newTestStorage(t)
	defer cleanup()

	require.NoError(t, s.Write([]storage.Modify{
		storage.PutModify(engine_util.CfItem, []byte("a"), []byte("x")),
	}, nil))
	require.NoError(t, s.Write([]storage.Modify{
		storage.DeleteModify(engine_util.CfItem, []byte("a")),
	}, nil))

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()
	val, err := r.GetCF(engine_util.CfItem, []byte("a"))
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestIterCF(t *testing.T) {
	s, cleanup := newTestStorage(t)
	defer cleanup()

	require.NoError(t, s.Write([]storage.Modify{
		storage.PutModify(engine_util.CfItem, []byte("a"), []byte("1")),
		storage.PutModify(engine_util.CfItem, []byte("b"), []byte("2")),
		storage.PutModify(engine_util.CfMeta, []byte("c"), []byte("3")),
	}, nil))

	r, err := s.Reader()
	require.NoError(t, err)
	defer r.Close()

	it := r.IterCF(engine_util.CfItem)
	defer it.Close()
	var keys []string
	for it.Seek([]byte("a")); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	assert.Equal(t, []string{"a", "b"}, keys)
}
