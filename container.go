package pyemma

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/goldstar111/PyEMMA/arrays"
	"github.com/goldstar111/PyEMMA/codec"
	"github.com/goldstar111/PyEMMA/schema"
	"github.com/goldstar111/PyEMMA/utils"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

var (
	ErrModelNotFound = errors.New("pyemma: model not found")
	ErrTypeMismatch  = errors.New("pyemma: file did not contain the requested type")
	ErrClosed        = errors.New("pyemma: no container open")
	ErrBadModelName  = errors.New("pyemma: bad model name")
)

type Options struct {
	Logger        utils.Logger
	Renames       *schema.Renames
	MetaCacheSize int
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if o.Renames == nil {
		o.Renames = schema.DefaultRenames
	}
	if o.MetaCacheSize == 0 {
		o.MetaCacheSize = 128
	}
}

// ModelInfo is the per-slot metadata, stored beside the document so
// listing never decodes anything.
type ModelInfo struct {
	Class               string `json:"classString"`
	Repr                string `json:"classRepr"`
	Created             string `json:"createdReadable"`
	CreatedEpoch        int64  `json:"createdEpoch"`
	SavedStreamingChain bool   `json:"savedStreamingChain"`
	SaveID              string `json:"saveId"`
}

// Container wraps one pebble database holding named model slots.
// Single writer, single reader per file at a time; no internal
// locking beyond what pebble provides for its own structures.
type Container struct {
	db   *pebble.DB
	path string
	opts Options
	meta *lru.Cache[string, ModelInfo]
}

// Key layout: 'M'+name metadata, 'D'+name document,
// 'A'+name+0x00+bigendian(id) the slot's array region.
func metaKey(name string) []byte {
	return append([]byte{'M'}, name...)
}

func docKey(name string) []byte {
	return append([]byte{'D'}, name...)
}

func arrayPrefix(name string) []byte {
	key := append([]byte{'A'}, name...)
	return append(key, 0)
}

func validModelName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for _, l := range name {
		if l < ' ' {
			return false
		}
	}
	return true
}

// OpenContainer opens (or creates) the container file at path.
func OpenContainer(path string, opts *Options) (c *Container, err error) {
	if opts == nil {
		opts = &Options{}
	}
	opts.SetDefaults()
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open container %s", path)
	}
	cache, err := lru.New[string, ModelInfo](opts.MetaCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Container{db: db, path: path, opts: *opts, meta: cache}, nil
}

func (c *Container) Close() error {
	if c.db == nil {
		return ErrClosed
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Save encodes obj and writes the slot atomically: document, metadata
// and the rewritten array region land in one batch. An existing slot
// of the same name is overwritten, other slots stay untouched.
func (c *Container) Save(obj schema.Saveable, name string, withChain bool) error {
	if c.db == nil {
		return ErrClosed
	}
	if !validModelName(name) {
		return errors.Wrapf(ErrBadModelName, "%q", name)
	}
	cls := obj.Class()
	if cls == nil {
		return errors.Wrapf(schema.ErrNotSaveable, "%T", obj)
	}
	if cls.Version < 0 {
		return errors.Wrapf(schema.ErrNoVersion, "class %s", cls.Name)
	}

	batch := c.db.NewBatch()
	defer batch.Close()

	fro := arrayPrefix(name)
	til := arrayPrefix(name)
	til[len(til)-1] = 1
	if err := batch.DeleteRange(fro, til, pebble.NoSync); err != nil {
		return err
	}

	enc := codec.Encoder{
		Store:    arrays.NewWriter(batch, fro),
		Software: Version,
		Log:      c.opts.Logger,
	}
	doc, err := enc.Encode(obj, withChain)
	if err != nil {
		return errors.Wrapf(err, "save %q to %s", name, c.path)
	}
	raw, err := doc.Marshal()
	if err != nil {
		return err
	}

	now := time.Now()
	info := ModelInfo{
		Class:               fmt.Sprintf("%v", obj),
		Repr:                fmt.Sprintf("%#v", obj),
		Created:             now.Format(time.ANSIC),
		CreatedEpoch:        now.Unix(),
		SavedStreamingChain: withChain,
		SaveID:              uuid.NewString(),
	}
	mraw, err := json.Marshal(&info)
	if err != nil {
		return err
	}
	if err = batch.Set(docKey(name), raw, pebble.NoSync); err != nil {
		return err
	}
	if err = batch.Set(metaKey(name), mraw, pebble.NoSync); err != nil {
		return err
	}
	if err = c.db.Apply(batch, pebble.Sync); err != nil {
		return errors.Wrapf(err, "save %q to %s", name, c.path)
	}
	c.meta.Add(name, info)
	saveCount.WithLabelValues(cls.Name).Inc()
	return nil
}

// Load restores the model stored under name. Historical class names in
// the raw document are upgraded before parsing, so decode-side lookups
// only ever see current identifiers.
func (c *Container) Load(name string) (schema.Saveable, error) {
	if c.db == nil {
		return nil, ErrClosed
	}
	val, clo, err := c.db.Get(docKey(name))
	if err == pebble.ErrNotFound {
		return nil, errors.Wrapf(ErrModelNotFound, "model %q in %s", name, c.path)
	}
	if err != nil {
		return nil, err
	}
	raw := make([]byte, len(val))
	copy(raw, val)
	_ = clo.Close()

	raw = c.opts.Renames.UpgradeJSON(raw)
	doc, err := codec.ParseDocument(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "model %q in %s", name, c.path)
	}

	snap := c.db.NewSnapshot()
	defer snap.Close()
	dec := codec.Decoder{
		Store:   arrays.NewReader(snap, arrayPrefix(name)),
		Renames: c.opts.Renames,
		Log:     c.opts.Logger,
	}
	obj, err := dec.Decode(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "model %q in %s", name, c.path)
	}
	loadCount.WithLabelValues(doc.Class).Inc()
	return obj, nil
}

// ListModels returns the metadata of every slot, cached per name.
func (c *Container) ListModels() (map[string]ModelInfo, error) {
	if c.db == nil {
		return nil, ErrClosed
	}
	it, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{'M'},
		UpperBound: []byte{'N'},
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := make(map[string]ModelInfo)
	for it.First(); it.Valid(); it.Next() {
		name := string(it.Key()[1:])
		if info, ok := c.meta.Get(name); ok {
			out[name] = info
			continue
		}
		var info ModelInfo
		if err := json.Unmarshal(it.Value(), &info); err != nil {
			c.opts.Logger.Warn("bad slot metadata", "model", name, "error", err)
			continue
		}
		c.meta.Add(name, info)
		out[name] = info
	}
	return out, nil
}
