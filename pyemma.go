// Package pyemma persists versioned, schema-evolving model objects.
//
// A container is a pebble database holding named model slots. Each
// slot stores one encoded object graph: a JSON document describing the
// state, a class-version manifest for every ancestor of the saved
// type, slot metadata, and a bulk region for the large numeric arrays
// the document references by id. On load the recorded state is
// migrated through the per-class migration scripts before the fields
// are assigned back, so models saved by older releases keep loading
// under current class layouts and names.
package pyemma

import (
	"github.com/goldstar111/PyEMMA/schema"
	"github.com/pkg/errors"
)

// Version is the software version stamped into every saved document.
const Version = "0.2.0"

// DefaultModel is the slot used when no name is given.
const DefaultModel = "latest"

// Save encodes obj into the container at path under the given model
// name, overwriting only that slot. With withChain set, the producer
// chain of obj is saved along.
func Save(obj schema.Saveable, path, name string, withChain bool) error {
	c, err := OpenContainer(path, nil)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Save(obj, name, withChain)
}

// Load restores a previously saved model.
func Load(path, name string) (schema.Saveable, error) {
	c, err := OpenContainer(path, nil)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Load(name)
}

// LoadAs restores a model and requires its exact type.
func LoadAs[T schema.Saveable](path, name string) (T, error) {
	var desired T
	obj, err := Load(path, name)
	if err != nil {
		return desired, err
	}
	t, ok := obj.(T)
	if !ok {
		return desired, errors.Wrapf(ErrTypeMismatch,
			"file %s: desired %T, actual %T", path, desired, obj)
	}
	return t, nil
}

// ListModels reads the metadata of every slot in the container without
// decoding any document.
func ListModels(path string) (map[string]ModelInfo, error) {
	c, err := OpenContainer(path, nil)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.ListModels()
}
