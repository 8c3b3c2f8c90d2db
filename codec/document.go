// Package codec turns registered objects into self-describing JSON
// documents and back, delegating bulk numeric payloads to an array
// store keyed by a per-session counter.
package codec

import (
	"encoding/json"

	"github.com/goldstar111/PyEMMA/arrays"
	"github.com/goldstar111/PyEMMA/schema"
	"github.com/pkg/errors"
)

// Reserved state keys. They mirror the on-disk document layout and are
// consumed before the residual-state check runs.
const (
	KeyProducer  = "data_producer"
	KeyEstimated = "_estimated"
	KeyModel     = "model"
	KeyIsReader  = "_is_reader"
	keyArray     = "$array"
	keyClass     = "class"
	keyVersions  = "classTreeVersions"
)

var (
	ErrClassUnknown = errors.New("pyemma: class not registered")
	ErrBadDocument  = errors.New("pyemma: malformed document")
	ErrBadArrayRef  = errors.New("pyemma: malformed array reference")
)

// ArrayStore is the bulk payload collaborator: append-only ids from 0,
// strictly increasing, scoped to one save or load.
type ArrayStore interface {
	Put(a *arrays.Array) (int64, error)
	Get(id int64) (*arrays.Array, error)
}

// Document is the serialized form of one object: its class, the version
// manifest of its whole ancestry, the captured state, and the software
// version that wrote it.
type Document struct {
	Class    string          `json:"class"`
	Versions schema.Manifest `json:"classTreeVersions"`
	State    map[string]any  `json:"state"`
	Software string          `json:"pyemmaVersion"`
}

func (doc *Document) Marshal() ([]byte, error) {
	raw, err := json.Marshal(doc)
	return raw, errors.Wrap(err, "marshal document")
}

func ParseDocument(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(ErrBadDocument, err.Error())
	}
	if doc.Class == "" {
		return nil, errors.Wrap(ErrBadDocument, "no class recorded")
	}
	return &doc, nil
}

// asDocument recognizes a nested sub-document, either still typed (as
// produced by the encoder) or as a plain map after a JSON round trip.
func asDocument(v any) (*Document, bool) {
	switch d := v.(type) {
	case *Document:
		return d, true
	case map[string]any:
		name, ok := d[keyClass].(string)
		if !ok {
			return nil, false
		}
		if _, ok := d[keyVersions]; !ok {
			return nil, false
		}
		doc := Document{Class: name, Versions: make(schema.Manifest)}
		if vs, ok := d[keyVersions].(map[string]any); ok {
			for k, raw := range vs {
				if f, ok := raw.(float64); ok {
					doc.Versions[k] = int64(f)
				}
			}
		}
		if st, ok := d["state"].(map[string]any); ok {
			doc.State = st
		}
		if sw, ok := d["pyemmaVersion"].(string); ok {
			doc.Software = sw
		}
		return &doc, true
	}
	return nil, false
}

// arrayRef recognizes the {"$array": id} placeholder.
func arrayRef(v any) (int64, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return 0, false
	}
	switch id := m[keyArray].(type) {
	case int64:
		return id, true
	case float64:
		return int64(id), true
	}
	return 0, false
}
