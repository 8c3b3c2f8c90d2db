package codec

import (
	"sort"

	"github.com/goldstar111/PyEMMA/arrays"
	"github.com/goldstar111/PyEMMA/schema"
	"github.com/goldstar111/PyEMMA/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var residualKeys = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pyemma",
	Subsystem: "codec",
	Name:      "residual_keys",
}, []string{"class"})

// Collectors exposes this package's metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{residualKeys}
}

// Decoder rebuilds objects from documents. Array references are
// resolved eagerly against the store before any field is assigned.
type Decoder struct {
	Store   ArrayStore
	Renames *schema.Renames
	Log     utils.Logger

	ids map[int64]*arrays.Array
}

// Decode allocates a bare instance of the document's class, migrates
// the recorded state through the class's migration script, and assigns
// the declared fields back. Keys left over after every known consumer
// ran indicate schema drift: they are reported, not fatal.
func (dec *Decoder) Decode(doc *Document) (schema.Saveable, error) {
	name := doc.Class
	if dec.Renames != nil {
		if current, ok := dec.Renames.CurrentName(name); ok {
			name = current
		}
	}
	cls, ok := schema.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrClassUnknown, "%q", name)
	}
	if cls.New == nil {
		return nil, errors.Wrapf(schema.ErrNoFactory, "class %s", cls.Name)
	}

	state := make(map[string]any, len(doc.State))
	for k, v := range doc.State {
		rv, err := dec.resolveArrays(v)
		if err != nil {
			return nil, errors.Wrapf(err, "class %s key %q", cls.Name, k)
		}
		state[k] = rv
	}

	obj := cls.New()
	if err := dec.restore(obj, cls, doc, state); err != nil {
		return nil, errors.Wrapf(err, "class %s", cls.Name)
	}

	if len(state) > 0 {
		left := make([]string, 0, len(state))
		for k := range state {
			left = append(left, k)
		}
		sort.Strings(left)
		residualKeys.WithLabelValues(cls.Name).Add(float64(len(left)))
		if dec.Log != nil {
			dec.Log.Error("left-over state after decode", "class", cls.Name, "keys", left)
		}
	}
	return obj, nil
}

func (dec *Decoder) restore(obj schema.Saveable, cls *schema.Class, doc *Document, state map[string]any) error {
	if est, ok := obj.(schema.Estimator); ok {
		if v, found := state[KeyEstimated]; found {
			flag, _ := v.(bool)
			est.SetEstimated(flag)
			delete(state, KeyEstimated)
		}
		if v, found := state[KeyModel]; found {
			sub, ok := asDocument(v)
			if !ok {
				return errors.Wrap(ErrBadDocument, "model is not a document")
			}
			model, err := dec.Decode(sub)
			if err != nil {
				return errors.Wrap(err, "model")
			}
			est.SetModel(model)
			delete(state, KeyModel)
		}
	}

	for _, c := range schema.ClassesToInspect(cls) {
		if err := schema.Interpolate(state, c, doc.Versions, dec.Renames); err != nil {
			return err
		}
		for _, param := range c.Params {
			if err := dec.assign(obj, param, state); err != nil {
				return err
			}
		}
		for _, field := range c.Fields {
			if err := dec.assign(obj, field, state); err != nil {
				return err
			}
		}
	}

	if holder, ok := obj.(schema.ModelHolder); ok {
		params := make(map[string]any)
		for _, name := range holder.ModelParamNames() {
			if v, found := state[name]; found {
				dv, err := dec.decodeValue(v)
				if err != nil {
					return errors.Wrapf(err, "model param %q", name)
				}
				params[name] = dv
				delete(state, name)
			}
		}
		if len(params) > 0 {
			holder.SetModelParams(params)
		}
	}

	if link, ok := obj.(schema.ChainLink); ok {
		if v, found := state[KeyProducer]; found {
			sub, ok := asDocument(v)
			if !ok {
				return errors.Wrap(ErrBadDocument, "producer is not a document")
			}
			prod, err := dec.Decode(sub)
			if err != nil {
				return errors.Wrap(err, "producer")
			}
			link.SetDataProducer(prod)
			delete(state, KeyProducer)
		}
	}

	if rd, ok := obj.(schema.Reader); ok {
		if v, found := state[KeyIsReader]; found {
			flag, _ := v.(bool)
			rd.SetIsReader(flag)
			delete(state, KeyIsReader)
		}
	}
	return nil
}

// assign pops one key out of the state and sets the matching struct
// field, if the current layout still has it.
func (dec *Decoder) assign(obj schema.Saveable, name string, state map[string]any) error {
	v, found := state[name]
	if !found {
		return nil
	}
	dv, err := dec.decodeValue(v)
	if err != nil {
		return errors.Wrapf(err, "field %q", name)
	}
	if err := setField(obj, name, dv); err != nil {
		return errors.Wrapf(err, "field %q", name)
	}
	delete(state, name)
	return nil
}

// decodeValue rebuilds nested sub-documents; everything else passed
// through the JSON layer untouched.
func (dec *Decoder) decodeValue(v any) (any, error) {
	if sub, ok := asDocument(v); ok {
		return dec.Decode(sub)
	}
	switch tv := v.(type) {
	case []any:
		for i, e := range tv {
			de, err := dec.decodeValue(e)
			if err != nil {
				return nil, err
			}
			tv[i] = de
		}
		return tv, nil
	case map[string]any:
		for k, e := range tv {
			de, err := dec.decodeValue(e)
			if err != nil {
				return nil, err
			}
			tv[k] = de
		}
		return tv, nil
	}
	return v, nil
}

// resolveArrays swaps {"$array": id} placeholders for the stored
// payloads, recursing through collections.
func (dec *Decoder) resolveArrays(v any) (any, error) {
	if id, ok := arrayRef(v); ok {
		if a, ok := dec.ids[id]; ok {
			return a, nil
		}
		a, err := dec.Store.Get(id)
		if err != nil {
			return nil, errors.Wrapf(err, "array %d", id)
		}
		if dec.ids == nil {
			dec.ids = make(map[int64]*arrays.Array)
		}
		dec.ids[id] = a
		return a, nil
	}
	switch tv := v.(type) {
	case []any:
		for i, e := range tv {
			re, err := dec.resolveArrays(e)
			if err != nil {
				return nil, err
			}
			tv[i] = re
		}
	case map[string]any:
		if raw, found := tv[keyArray]; found && len(tv) == 1 {
			return nil, errors.Wrapf(ErrBadArrayRef, "id %v", raw)
		}
		for k, e := range tv {
			re, err := dec.resolveArrays(e)
			if err != nil {
				return nil, err
			}
			tv[k] = re
		}
	case *Document:
		for k, e := range tv.State {
			re, err := dec.resolveArrays(e)
			if err != nil {
				return nil, err
			}
			tv.State[k] = re
		}
	}
	return v, nil
}
