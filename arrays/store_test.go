package arrays

import (
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *pebble.DB {
	t.Helper()
	db, err := pebble.Open(t.TempDir(), &pebble.Options{})
	require.Nil(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPutGetRoundTrip(t *testing.T) {
	db := openDB(t)
	prefix := []byte("Aslot\x00")

	w := NewWriter(db, prefix)
	a := Of([]float64{1.5, -2.25, 3.125, 0}, 2, 2)
	b := Of([]float64{42})

	ida, err := w.Put(a)
	assert.Nil(t, err)
	idb, err := w.Put(b)
	assert.Nil(t, err)
	// ids start at zero and strictly increase
	assert.Equal(t, int64(0), ida)
	assert.Equal(t, int64(1), idb)

	r := NewReader(db, prefix)
	got, err := r.Get(ida)
	require.Nil(t, err)
	assert.True(t, a.Equal(got))
	assert.Equal(t, []int64{2, 2}, got.Shape)

	got, err = r.Get(idb)
	require.Nil(t, err)
	assert.True(t, b.Equal(got))
}

func TestGetMissing(t *testing.T) {
	db := openDB(t)
	r := NewReader(db, []byte("Ax\x00"))
	_, err := r.Get(17)
	assert.True(t, errors.Is(err, ErrArrayMissing))
}

func TestChecksumDetectsCorruption(t *testing.T) {
	db := openDB(t)
	prefix := []byte("Ac\x00")

	w := NewWriter(db, prefix)
	id, err := w.Put(Of([]float64{1, 2, 3}))
	require.Nil(t, err)

	// flip one payload byte behind the store's back
	key := w.key(id)
	val, clo, err := db.Get(key)
	require.Nil(t, err)
	bad := make([]byte, len(val))
	copy(bad, val)
	_ = clo.Close()
	bad[len(bad)/2] ^= 0xff
	require.Nil(t, db.Set(key, bad, pebble.Sync))

	r := NewReader(db, prefix)
	_, err = r.Get(id)
	assert.NotNil(t, err)
}

func TestDirectionalStores(t *testing.T) {
	db := openDB(t)
	_, err := NewReader(db, []byte("Ar\x00")).Put(Of([]float64{1}))
	assert.NotNil(t, err)
	_, err = NewWriter(db, []byte("Aw\x00")).Get(0)
	assert.NotNil(t, err)
}

func TestArrayEqual(t *testing.T) {
	assert.True(t, Of([]float64{1, 2}).Equal(Of([]float64{1, 2})))
	assert.False(t, Of([]float64{1, 2}).Equal(Of([]float64{2, 1})))
	assert.False(t, Of([]float64{1, 2}, 2).Equal(Of([]float64{1, 2}, 1, 2)))
	var empty *Array
	assert.True(t, empty.Equal(&Array{}))
	assert.Equal(t, 0, empty.Len())
}
