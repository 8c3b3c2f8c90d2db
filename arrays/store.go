package arrays

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash"
	"github.com/cockroachdb/pebble"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"
	"github.com/pkg/errors"
)

var (
	ErrArrayMissing = errors.New("pyemma: array not found")
	ErrArrayCorrupt = errors.New("pyemma: array record corrupt")
	ErrBadRecord    = errors.New("pyemma: bad array record")
)

// Store is one slot's array region. Ids start at 0 and strictly
// increase for the duration of one save; the reading side addresses
// the same key space. Not safe for concurrent use, like the container
// itself.
type Store struct {
	w      pebble.Writer
	r      pebble.Reader
	prefix []byte
	next   int64
}

// NewWriter binds a store to a batch (or DB) for one save call.
func NewWriter(w pebble.Writer, prefix []byte) *Store {
	return &Store{w: w, prefix: prefix}
}

// NewReader binds a store to a snapshot (or DB) for one load call.
func NewReader(r pebble.Reader, prefix []byte) *Store {
	return &Store{r: r, prefix: prefix}
}

func (s *Store) key(id int64) []byte {
	key := make([]byte, 0, len(s.prefix)+8)
	key = append(key, s.prefix...)
	return binary.BigEndian.AppendUint64(key, uint64(id))
}

// Put appends one array and returns its id.
func (s *Store) Put(a *Array) (id int64, err error) {
	if s.w == nil {
		return 0, errors.Wrap(ErrBadRecord, "store opened read-only")
	}
	id = s.next
	err = s.w.Set(s.key(id), appendTLV(nil, a), pebble.NoSync)
	if err != nil {
		return 0, err
	}
	s.next++
	return id, nil
}

// Get reads one array back, verifying the payload checksum.
func (s *Store) Get(id int64) (a *Array, err error) {
	if s.r == nil {
		return nil, errors.Wrap(ErrBadRecord, "store opened write-only")
	}
	val, clo, err := s.r.Get(s.key(id))
	if err == pebble.ErrNotFound {
		return nil, errors.Wrapf(ErrArrayMissing, "id %d", id)
	}
	if err != nil {
		return nil, err
	}
	a, err = parseTLV(val)
	_ = clo.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "id %d", id)
	}
	return a, nil
}

// Record layout: A( S(shape uvarints) D(little-endian float64 bits) H(xxhash of D) )
func appendTLV(into []byte, a *Array) []byte {
	shape := make([]byte, 0, len(a.Shape)*2)
	for _, dim := range a.Shape {
		shape = binary.AppendUvarint(shape, uint64(dim))
	}
	data := make([]byte, 0, len(a.Data)*8)
	for _, f := range a.Data {
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(f))
	}
	sum := binary.BigEndian.AppendUint64(nil, xxhash.Sum64(data))
	recs := toyqueue.Records{
		toytlv.Record('S', shape),
		toytlv.Record('D', data),
		toytlv.Record('H', sum),
	}
	return append(into, toytlv.Record('A', toytlv.Concat(recs...))...)
}

func parseTLV(rec []byte) (*Array, error) {
	body, _ := toytlv.Take('A', rec)
	if body == nil {
		return nil, ErrBadRecord
	}
	shape, rest := toytlv.Take('S', body)
	if shape == nil {
		return nil, ErrBadRecord
	}
	data, rest := toytlv.Take('D', rest)
	if data == nil || len(data)%8 != 0 {
		return nil, ErrBadRecord
	}
	sum, _ := toytlv.Take('H', rest)
	if len(sum) != 8 {
		return nil, ErrBadRecord
	}
	if binary.BigEndian.Uint64(sum) != xxhash.Sum64(data) {
		return nil, ErrArrayCorrupt
	}
	a := &Array{}
	for len(shape) > 0 {
		dim, n := binary.Uvarint(shape)
		if n <= 0 {
			return nil, ErrBadRecord
		}
		a.Shape = append(a.Shape, int64(dim))
		shape = shape[n:]
	}
	a.Data = make([]float64, len(data)/8)
	for i := range a.Data {
		a.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return a, nil
}
