// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package batch

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var (
	bucket1 = "test_ns1"
	testK1  = [3][]byte{[]byte("key_1"), []byte("key_2"), []byte("key_3")}
	testV1  = [3][]byte{[]byte("value_1"), []byte("value_2"), []byte("value_3")}
	testK2  = [3][]byte{[]byte("key_4"), []byte("key_5"), []byte("key_6")}
	testV2  = [3][]byte{[]byte("value_4"), []byte("value_5"), []byte("value_6")}
)

func TestBaseKVStoreBatch(t *testing.T) {
	require := require.New(t)

	b := NewBatch()
	require.Equal(0, b.Size())
	b.Put(bucket1, testK1[0], testV1[0], "failed to put %x", testK1[0])
	b.Put(bucket1, testK1[1], testV1[1], "")
	b.Delete(bucket1, testK2[0], "failed to delete %s", "key_4")
	require.Equal(3, b.Size())

	w, err := b.Entry(0)
	require.NoError(err)
	require.Equal(Put, w.WriteType())
	require.Equal(bucket1, w.Namespace())
	require.Equal(testK1[0], w.Key())
	require.Equal(testV1[0], w.Value())
	err = w.Wrap(errors.New("disk full"))
	require.Equal(fmt.Sprintf("failed to put %x: disk full", testK1[0]), err.Error())

	w, err = b.Entry(2)
	require.NoError(err)
	require.Equal(Delete, w.WriteType())
	require.Equal(testK2[0], w.Key())
	require.Empty(w.Value())

	_, err = b.Entry(3)
	require.Equal(ErrOutOfBound, errors.Cause(err))
	_, err = b.Entry(-1)
	require.Equal(ErrOutOfBound, errors.Cause(err))

	b.Lock()
	b.ClearAndUnlock()
	require.Equal(0, b.Size())
}

func TestAppend(t *testing.T) {
	require := require.New(t)

	b1 := NewBatch()
	b1.Put(bucket1, testK1[0], testV1[0], "")
	b2 := NewBatch()
	b2.Put(bucket1, testK2[1], testV2[1], "")
	b2.Delete(bucket1, testK1[0], "")

	b1.Append(b2)
	b1.Append(nil)
	require.Equal(3, b1.Size())
	require.Equal(2, b2.Size())
	w, err := b1.Entry(1)
	require.NoError(err)
	require.Equal(testK2[1], w.Key())
	w, err = b1.Entry(2)
	require.NoError(err)
	require.Equal(Delete, w.WriteType())

	b1.Clear()
	require.Equal(0, b1.Size())
}

func TestWriteInfoCopies(t *testing.T) {
	require := require.New(t)

	key, value := []byte("k"), []byte("v")
	wi := NewWriteInfo(Put, bucket1, key, value, "")
	k := wi.Key()
	k[0] = 'x'
	v := wi.Value()
	v[0] = 'y'
	require.Equal([]byte("k"), wi.Key())
	require.Equal([]byte("v"), wi.Value())

	cause := errors.New("disk full")
	require.Equal(cause, wi.Wrap(cause))
}
