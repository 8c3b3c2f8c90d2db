package schema

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestInterpolateWindow(t *testing.T) {
	cls := &Class{
		Name:    "migrate_test.Window",
		Version: 3,
		Migrations: Migrations{
			0: {{Op: OpSet, Field: "v0", Value: "yes"}},
			1: {{Op: OpSet, Field: "v1", Value: "yes"}},
			2: {{Op: OpSet, Field: "v2", Value: "yes"}},
		},
	}
	state := map[string]any{}
	m := Manifest{cls.Name: 1}
	err := Interpolate(state, cls, m, nil)
	assert.Nil(t, err)
	assert.NotContains(t, state, "v0")
	assert.Equal(t, "yes", state["v1"])
	assert.Equal(t, "yes", state["v2"])
}

func TestInterpolateOrder(t *testing.T) {
	cls := &Class{
		Name:    "migrate_test.Order",
		Version: 2,
		Migrations: Migrations{
			1: {{Op: OpMv, Field: "tmp", To: "b"}},
			0: {{Op: OpMv, Field: "a", To: "tmp"}},
		},
	}
	state := map[string]any{"a": 5}
	err := Interpolate(state, cls, Manifest{cls.Name: 0}, nil)
	assert.Nil(t, err)
	assert.Equal(t, map[string]any{"b": 5}, state)
}

func TestInterpolateRenameScenario(t *testing.T) {
	// v0 stored field a, v1 calls it b.
	cls := &Class{
		Name:       "migrate_test.C",
		Version:    1,
		Migrations: Migrations{0: {{Op: OpMv, Field: "a", To: "b"}}},
	}
	state := map[string]any{"a": 5}
	err := Interpolate(state, cls, Manifest{cls.Name: 0}, nil)
	assert.Nil(t, err)
	assert.Equal(t, 5, state["b"])
	assert.NotContains(t, state, "a")
}

func TestInterpolateIdempotentOps(t *testing.T) {
	cls := &Class{
		Name:    "migrate_test.Idem",
		Version: 1,
		Migrations: Migrations{
			0: {
				{Op: OpSet, Field: "n", Value: 7},
				{Op: OpRm, Field: "gone"},
			},
		},
	}
	state := map[string]any{"gone": true}
	m := Manifest{cls.Name: 0}
	assert.Nil(t, Interpolate(state, cls, m, nil))
	first := map[string]any{"n": 7}
	assert.Equal(t, first, state)

	// second replay of the same window changes nothing
	assert.Nil(t, Interpolate(state, cls, m, nil))
	assert.Equal(t, first, state)
}

func TestInterpolateMigratedStateIsCurrent(t *testing.T) {
	cls := &Class{
		Name:       "migrate_test.Current",
		Version:    1,
		Migrations: Migrations{0: {{Op: OpMv, Field: "a", To: "b"}}},
	}
	state := map[string]any{"b": 5}
	// manifest already records the current version: nothing runs
	assert.Nil(t, Interpolate(state, cls, Manifest{cls.Name: 1}, nil))
	assert.Equal(t, map[string]any{"b": 5}, state)
}

func TestInterpolateFutureVersionNoop(t *testing.T) {
	cls := &Class{
		Name:       "migrate_test.Future",
		Version:    1,
		Migrations: Migrations{0: {{Op: OpSet, Field: "x", Value: 1}}},
	}
	state := map[string]any{}
	assert.Nil(t, Interpolate(state, cls, Manifest{cls.Name: 9}, nil))
	assert.Empty(t, state)
}

func TestInterpolateUnknownClassSkipsAll(t *testing.T) {
	cls := &Class{
		Name:       "migrate_test.Unknown",
		Version:    5,
		Migrations: Migrations{0: {{Op: OpSet, Field: "x", Value: 1}}},
	}
	state := map[string]any{}
	// absent from the manifest: version resolves unknown, nothing runs
	assert.Nil(t, Interpolate(state, cls, Manifest{}, nil))
	assert.Empty(t, state)
}

func TestInterpolateMoveMissing(t *testing.T) {
	cls := &Class{
		Name:       "migrate_test.MvMissing",
		Version:    1,
		Migrations: Migrations{0: {{Op: OpMv, Field: "nope", To: "b"}}},
	}
	err := Interpolate(map[string]any{}, cls, Manifest{cls.Name: 0}, nil)
	assert.True(t, errors.Is(err, ErrMoveMissing))
	assert.True(t, errors.Is(err, ErrDeveloper))
}

func TestInterpolateMapMissing(t *testing.T) {
	cls := &Class{
		Name:       "migrate_test.MapMissing",
		Version:    1,
		Migrations: Migrations{0: {{Op: OpMap, Field: "nope", Func: func(v any) any { return v }}}},
	}
	err := Interpolate(map[string]any{}, cls, Manifest{cls.Name: 0}, nil)
	assert.True(t, errors.Is(err, ErrMapMissing))
}

func TestInterpolateMapTransforms(t *testing.T) {
	cls := &Class{
		Name:    "migrate_test.MapOk",
		Version: 1,
		Migrations: Migrations{0: {{Op: OpMap, Field: "n", Func: func(v any) any {
			return v.(int) * 2
		}}}},
	}
	state := map[string]any{"n": 21}
	assert.Nil(t, Interpolate(state, cls, Manifest{cls.Name: 0}, nil))
	assert.Equal(t, 42, state["n"])
}

func TestValidateRejectsBadActions(t *testing.T) {
	for name, m := range map[string]Migrations{
		"unknown op":   {0: {{Op: "add", Field: "x"}}},
		"empty list":   {0: {}},
		"rm no field":  {0: {{Op: OpRm}}},
		"mv no target": {0: {{Op: OpMv, Field: "a"}}},
		"map no func":  {0: {{Op: OpMap, Field: "a"}}},
	} {
		err := m.Validate()
		assert.True(t, errors.Is(err, ErrBadMigration), name)
		assert.True(t, errors.Is(err, ErrDeveloper), name)
	}
}
