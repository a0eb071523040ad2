// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procps

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

func TestDecodePair(t *testing.T) {
	tests := []struct {
		name string
		pair Pair[uint64]
		want *uint64
	}{
		{name: "both nil", pair: Pair[uint64]{nil, nil}, want: nil},
		{name: "second slot only", pair: Pair[uint64]{nil, u64(5)}, want: u64(5)},
		{name: "first slot only", pair: Pair[uint64]{u64(7), nil}, want: u64(7)},
		{name: "first non-zero wins", pair: Pair[uint64]{u64(3), u64(9)}, want: u64(3)},
		{name: "zero then value", pair: Pair[uint64]{u64(0), u64(9)}, want: u64(9)},
		{name: "legitimate zero", pair: Pair[uint64]{u64(0), u64(0)}, want: u64(0)},
		{name: "single live zero", pair: Pair[uint64]{nil, u64(0)}, want: u64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodePair(tt.pair)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestDecodePairCopies(t *testing.T) {
	var scratch [2]uint64
	pair := NewPair(&scratch)
	scratch[0] = 42

	got := DecodePair(pair)
	require.NotNil(t, got)
	scratch[0] = 1
	assert.Equal(t, uint64(42), *got, "decoded value must not alias the scratch buffer")
}

func TestDecodePairUint32(t *testing.T) {
	v := uint32(11)
	got := DecodePair(Pair[uint32]{nil, &v})
	require.NotNil(t, got)
	assert.Equal(t, uint32(11), *got)
}

func TestDecodeScalar(t *testing.T) {
	assert.Nil(t, DecodeScalar[uint64](nil))

	v := uint64(0)
	got := DecodeScalar(&v)
	require.NotNil(t, got)
	assert.Equal(t, uint64(0), *got)
}

func TestDecodeName(t *testing.T) {
	t.Run("terminated", func(t *testing.T) {
		var buf [NameLen]byte
		PutString(buf[:], "nvme0n1p1")
		name, err := DecodeName("disk", 0, buf[:])
		require.NoError(t, err)
		assert.Equal(t, "nvme0n1p1", name)
	})

	t.Run("empty", func(t *testing.T) {
		var buf [NameLen]byte
		name, err := DecodeName("disk", 0, buf[:])
		require.NoError(t, err)
		assert.Equal(t, "", name)
	})

	t.Run("missing terminator", func(t *testing.T) {
		var buf [NameLen]byte
		for i := range buf {
			buf[i] = 'a'
		}
		_, err := DecodeName("partition", 3, buf[:])
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDecode))

		var decodeErr *DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, "partition", decodeErr.Field)
		assert.Equal(t, 3, decodeErr.Index)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		var buf [NameLen]byte
		copy(buf[:], []byte{'s', 'd', 0xff, 0xfe})
		_, err := DecodeName("disk", 1, buf[:])
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDecode)
		assert.Contains(t, err.Error(), "invalid UTF-8")
	})
}

func TestPutStringTruncates(t *testing.T) {
	var buf [4]byte
	PutString(buf[:], "abcdef")
	assert.Equal(t, [4]byte{'a', 'b', 'c', 0}, buf)

	name, err := DecodeName("disk", 0, buf[:])
	require.NoError(t, err)
	assert.Equal(t, "abc", name)
}
