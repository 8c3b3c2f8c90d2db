// Package schema holds the static side of the persistence protocol:
// class descriptors with versions and field lists, the process-wide
// class registry, the rename registry for classes that moved between
// releases, and the migration machinery that bridges old saved state
// to the current class layout.
package schema

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// Developer defects: protocol misuse by the class author, never by the
// data. These are surfaced immediately and must not be retried.
var (
	ErrDeveloper      = errors.New("pyemma: developer defect")
	ErrNoVersion      = fmt.Errorf("%w: class declares no version", ErrDeveloper)
	ErrNoFactory      = fmt.Errorf("%w: concrete class declares no factory", ErrDeveloper)
	ErrBadClassName   = fmt.Errorf("%w: bad class name", ErrDeveloper)
	ErrClassRedefined = fmt.Errorf("%w: class registered twice", ErrDeveloper)
	ErrBadMigration   = fmt.Errorf("%w: bad migration action", ErrDeveloper)
	ErrMoveMissing    = fmt.Errorf("%w: migration moves a missing field", ErrDeveloper)
	ErrMapMissing     = fmt.Errorf("%w: migration maps a missing field", ErrDeveloper)
	ErrNotSaveable    = fmt.Errorf("%w: object does not declare a class", ErrDeveloper)
)

// Unversioned marks mixin base classes that never declared a version.
const Unversioned int64 = -1

// A Saveable is any object participating in the persistence protocol.
// The returned class must be registered.
type Saveable interface {
	Class() *Class
}

// Estimator is the capability of objects that run an estimation and may
// hold a fitted model. The model, when set, must itself be a Saveable.
type Estimator interface {
	Saveable
	Estimated() bool
	SetEstimated(bool)
	Model() any
	SetModel(any)
}

// Reader marks primary data sources.
type Reader interface {
	Saveable
	IsReader() bool
	SetIsReader(bool)
}

// ModelHolder exposes model parameters by name. On restore only the
// names the current class declares are applied, obsolete ones are dropped.
type ModelHolder interface {
	Saveable
	ModelParamNames() []string
	ModelParams() map[string]any
	SetModelParams(map[string]any)
}

// ChainLink points at the upstream producer of a processing stage.
// The chain is a singly linked list, saved only on request.
type ChainLink interface {
	Saveable
	DataProducer() any
	SetDataProducer(any)
}

// Class is the static descriptor of one persisted type. Version and
// field set are fixed at registration time and never mutated.
type Class struct {
	// Fully qualified name, e.g. "pyemma/examples.KMeans".
	Name string
	// Non-negative for concrete classes, Unversioned for mixin bases.
	Version int64
	// Field names owned by this exact class, not inherited ones.
	Fields []string
	// Estimation parameter names, captured across the whole hierarchy.
	Params []string
	// Ordered ancestor descriptors, nearest first.
	Bases []*Class
	// Version-keyed migration script, see migrate.go.
	Migrations Migrations
	// Zero-value factory; bypasses any constructor arguments so that
	// migrated state older than the current signature still loads.
	New func() Saveable
}

var classes = xsync.NewMapOf[string, *Class]()

func hasUnsafeChars(text string) bool {
	for _, l := range text {
		if l < ' ' {
			return true
		}
	}
	return false
}

// Register validates a class descriptor and publishes it process-wide.
// The registry is append-only; redefinition is a developer defect.
func Register(cls *Class) error {
	if cls == nil || len(cls.Name) == 0 || hasUnsafeChars(cls.Name) {
		return ErrBadClassName
	}
	if cls.Version < 0 && (cls.New != nil || cls.Version != Unversioned) {
		return errors.Wrapf(ErrNoVersion, "class %s", cls.Name)
	}
	if cls.New == nil && cls.Version == Unversioned && len(cls.Fields) == 0 && len(cls.Params) == 0 {
		return errors.Wrapf(ErrBadClassName, "class %s declares nothing to persist", cls.Name)
	}
	if err := cls.Migrations.Validate(); err != nil {
		return errors.Wrapf(err, "class %s", cls.Name)
	}
	if _, loaded := classes.LoadOrStore(cls.Name, cls); loaded {
		return errors.Wrapf(ErrClassRedefined, "class %s", cls.Name)
	}
	return nil
}

// MustRegister is Register for package-level declarations.
func MustRegister(cls *Class) *Class {
	if err := Register(cls); err != nil {
		panic(err)
	}
	return cls
}

// Lookup resolves a registered class by its current name.
func Lookup(name string) (*Class, bool) {
	return classes.Load(name)
}

// Ancestry returns the full ancestor chain of cls: the class itself,
// then its bases depth-first, deduplicated.
func Ancestry(cls *Class) []*Class {
	seen := make(map[*Class]bool)
	var out []*Class
	var walk func(c *Class)
	walk = func(c *Class) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
		for _, b := range c.Bases {
			walk(b)
		}
	}
	walk(cls)
	return out
}
