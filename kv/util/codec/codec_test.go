package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 1 << 32, ^uint64(0)} {
		got, err := DecodeUint64(EncodeUint64(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestUint64Ordering(t *testing.T) {
	// Encoded ids must sort bytewise in allocation order; item keys rely
	// on this for in-order iteration.
	prev := EncodeUint64(0)
	for _, v := range []uint64{1, 2, 300, 1 << 20, 1 << 40} {
		cur := EncodeUint64(v)
		assert.True(t, string(prev) < string(cur))
		prev = cur
	}
}

func TestUint64Truncated(t *testing.T) {
	_, err := DecodeUint64([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSeqRoundTrip(t *testing.T) {
	ids := []uint64{10, 12, 11, 1 << 50, 0}
	got, err := DecodeSeq(EncodeSeq(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, got)
}

func TestSeqEmpty(t *testing.T) {
	assert.Empty(t, EncodeSeq(nil))
	got, err := DecodeSeq(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSeqTruncated(t *testing.T) {
	// A dangling continuation byte cannot be decoded.
	_, err := DecodeSeq([]byte{0x80})
	assert.Error(t, err)
}
