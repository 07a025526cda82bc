package codec

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

var ErrTruncated = errors.New("codec: insufficient bytes to decode value")

// EncodeUint64 encodes v in big-endian order, so that encoded ids sort
// bytewise in allocation order.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func DecodeUint64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, errors.WithStack(ErrTruncated)
	}
	return binary.BigEndian.Uint64(b), nil
}

// EncodeSeq encodes a sequence of ids as consecutive uvarints. The empty
// sequence encodes to an empty slice.
func EncodeSeq(ids []uint64) []byte {
	buf := make([]byte, 0, len(ids)*binary.MaxVarintLen64/4)
	var tmp [binary.MaxVarintLen64]byte
	for _, id := range ids {
		n := binary.PutUvarint(tmp[:], id)
		buf = append(buf, tmp[:n]...)
	}
	return buf
}

// DecodeSeq decodes a sequence encoded by EncodeSeq. A nil or empty input
// yields an empty sequence.
func DecodeSeq(data []byte) ([]uint64, error) {
	ids := make([]uint64, 0, len(data))
	for len(data) > 0 {
		id, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, errors.WithStack(ErrTruncated)
		}
		ids = append(ids, id)
		data = data[n:]
	}
	return ids, nil
}
