package codec

import (
	"fmt"
	"reflect"

	"github.com/goldstar111/PyEMMA/arrays"
	"github.com/goldstar111/PyEMMA/schema"
	"github.com/goldstar111/PyEMMA/utils"
	"github.com/pkg/errors"
)

// Encoder walks one object graph per save. Array identity is preserved
// within the session: the same *arrays.Array encoded twice reuses one
// store id, keyed by pointer, not by value.
type Encoder struct {
	Store    ArrayStore
	Software string
	Log      utils.Logger

	ids map[*arrays.Array]int64
}

// Encode captures obj into a document, stamping the version manifest of
// its full ancestry. With withChain set, the producer reference is
// followed recursively and the flag propagates down the whole chain.
func (enc *Encoder) Encode(obj schema.Saveable, withChain bool) (doc *Document, err error) {
	defer func() {
		if err != nil && enc.Log != nil {
			enc.Log.Error("encoding failed", "object", fmt.Sprint(obj), "error", err)
		}
	}()

	cls := obj.Class()
	if cls == nil {
		return nil, errors.Wrapf(schema.ErrNotSaveable, "%T", obj)
	}
	if cls.Version < 0 {
		return nil, errors.Wrapf(schema.ErrNoVersion, "class %s", cls.Name)
	}
	if enc.ids == nil {
		enc.ids = make(map[*arrays.Array]int64)
	}

	doc = &Document{
		Class:    cls.Name,
		Versions: schema.NewManifest(cls),
		State:    make(map[string]any),
		Software: enc.Software,
	}

	if withChain {
		if link, ok := obj.(schema.ChainLink); ok {
			if err = enc.encodeChain(link, doc.State); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range schema.ClassesToInspect(cls) {
		for _, field := range c.Fields {
			if err = enc.captureField(obj, field, doc.State); err != nil {
				return nil, err
			}
		}
		for _, param := range c.Params {
			if err = enc.captureField(obj, param, doc.State); err != nil {
				return nil, err
			}
		}
	}

	if est, ok := obj.(schema.Estimator); ok {
		doc.State[KeyEstimated] = est.Estimated()
		if m := est.Model(); m != nil {
			ms, ok := m.(schema.Saveable)
			if !ok {
				return nil, errors.Wrapf(schema.ErrNotSaveable, "model %T", m)
			}
			sub, suberr := enc.Encode(ms, false)
			if suberr != nil {
				return nil, suberr
			}
			doc.State[KeyModel] = sub
		}
	}
	if holder, ok := obj.(schema.ModelHolder); ok {
		for name, v := range holder.ModelParams() {
			ev, everr := enc.encodeValue(v)
			if everr != nil {
				return nil, errors.Wrapf(everr, "model param %q", name)
			}
			doc.State[name] = ev
		}
	}
	if rd, ok := obj.(schema.Reader); ok {
		doc.State[KeyIsReader] = rd.IsReader()
	}
	return doc, nil
}

// encodeChain follows the producer reference. Every producer must speak
// the protocol; a chain member without a registered versioned class is
// an authoring mistake, not a data problem.
func (enc *Encoder) encodeChain(link schema.ChainLink, state map[string]any) error {
	prod := link.DataProducer()
	if prod == nil || prod == any(link) {
		return nil
	}
	ps, ok := prod.(schema.Saveable)
	if !ok || ps.Class() == nil || ps.Class().Version < 0 {
		return errors.Wrapf(schema.ErrNotSaveable, "producer %T of %T", prod, link)
	}
	sub, err := enc.Encode(ps, true)
	if err != nil {
		return err
	}
	state[KeyProducer] = sub
	return nil
}

// captureField copies one declared attribute into the state, skipping
// names the current struct does not carry. Duplicate declarations
// across the hierarchy collapse onto one key.
func (enc *Encoder) captureField(obj schema.Saveable, field string, state map[string]any) error {
	v, ok := fieldValue(obj, field)
	if !ok {
		return nil
	}
	ev, err := enc.encodeValue(v)
	if err != nil {
		return errors.Wrapf(err, "field %q", field)
	}
	state[field] = ev
	return nil
}

func (enc *Encoder) encodeValue(v any) (any, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case *arrays.Array:
		if tv == nil {
			return nil, nil
		}
		id, ok := enc.ids[tv]
		if !ok {
			var err error
			id, err = enc.Store.Put(tv)
			if err != nil {
				return nil, err
			}
			enc.ids[tv] = id
		}
		return map[string]any{keyArray: id}, nil
	case schema.Saveable:
		return enc.Encode(tv, false)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := enc.encodeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errors.Wrapf(schema.ErrNotSaveable, "map keyed by %s", rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			ev, err := enc.encodeValue(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = ev
		}
		return out, nil
	}
	return v, nil
}
