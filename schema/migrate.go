package schema

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var migrationActions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pyemma",
	Subsystem: "schema",
	Name:      "migration_actions",
}, []string{"class", "op"})

// MigrationCollectors exposes this package's metrics for registration.
func MigrationCollectors() []prometheus.Collector {
	return []prometheus.Collector{migrationActions}
}

type Op string

const (
	OpSet Op = "set" // set a field to a fixed value
	OpRm  Op = "rm"  // drop a field, tolerant of absence
	OpMv  Op = "mv"  // rename a field, source must exist
	OpMap Op = "map" // transform a field value in place
)

// Action is one step of a migration script. Func values stay purely
// code-defined: they are applied in process and never serialized.
type Action struct {
	Op    Op
	Field string
	To    string
	Value any
	Func  func(any) any
}

// Migrations maps a version threshold to the actions bridging state
// saved before that version. Actions for key k run when
// savedVersion <= k < currentVersion, keys ascending, actions in order.
type Migrations map[int64][]Action

// Validate checks verbs and action shapes. Violations are authoring
// mistakes, not data problems.
func (m Migrations) Validate() error {
	for key, actions := range m {
		if len(actions) == 0 {
			return errors.Wrapf(ErrBadMigration, "version %d has no actions", key)
		}
		for _, a := range actions {
			switch a.Op {
			case OpSet, OpRm:
				if a.Field == "" {
					return errors.Wrapf(ErrBadMigration, "version %d: %s needs a field", key, a.Op)
				}
			case OpMv:
				if a.Field == "" || a.To == "" {
					return errors.Wrapf(ErrBadMigration, "version %d: mv needs a source and a target", key)
				}
			case OpMap:
				if a.Field == "" || a.Func == nil {
					return errors.Wrapf(ErrBadMigration, "version %d: map needs a field and a function", key)
				}
			default:
				return errors.Wrapf(ErrBadMigration, "version %d: unknown op %q", key, a.Op)
			}
		}
	}
	return nil
}

// Interpolate replays the migration script of cls onto state, bridging
// the version recorded in the manifest to the current class version.
// The state map is mutated in place.
func Interpolate(state map[string]any, cls *Class, m Manifest, renames *Renames) error {
	if len(cls.Migrations) == 0 {
		return nil
	}
	saved := m.VersionFor(cls, renames)
	if saved > cls.Version {
		return nil
	}
	if err := cls.Migrations.Validate(); err != nil {
		return errors.Wrapf(err, "class %s", cls.Name)
	}
	keys := make([]int64, 0, len(cls.Migrations))
	for k := range cls.Migrations {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		if key < saved || key >= cls.Version {
			continue
		}
		for _, a := range cls.Migrations[key] {
			if err := apply(state, a); err != nil {
				return errors.Wrapf(err, "class %s version %d", cls.Name, key)
			}
			migrationActions.WithLabelValues(cls.Name, string(a.Op)).Inc()
		}
	}
	return nil
}

func apply(state map[string]any, a Action) error {
	switch a.Op {
	case OpSet:
		state[a.Field] = a.Value
	case OpRm:
		delete(state, a.Field)
	case OpMv:
		v, ok := state[a.Field]
		if !ok {
			return errors.Wrapf(ErrMoveMissing, "field %q", a.Field)
		}
		delete(state, a.Field)
		state[a.To] = v
	case OpMap:
		v, ok := state[a.Field]
		if !ok {
			return errors.Wrapf(ErrMapMissing, "field %q", a.Field)
		}
		state[a.Field] = a.Func(v)
	}
	return nil
}
