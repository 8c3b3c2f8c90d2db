package schema

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type dummy struct{ X int64 }

func (d *dummy) Class() *Class { return nil }

func TestRegisterRequiresVersion(t *testing.T) {
	err := Register(&Class{
		Name:    "class_test.NoVersion",
		Version: -5,
		New:     func() Saveable { return &dummy{} },
	})
	assert.True(t, errors.Is(err, ErrNoVersion))
	assert.True(t, errors.Is(err, ErrDeveloper))
}

func TestRegisterRejectsBadName(t *testing.T) {
	err := Register(&Class{Name: "bad\nname", Version: 0})
	assert.True(t, errors.Is(err, ErrBadClassName))
	assert.True(t, errors.Is(errors.Cause(Register(nil)), ErrBadClassName))
}

func TestRegisterOnce(t *testing.T) {
	cls := &Class{
		Name:    "class_test.Once",
		Version: 0,
		New:     func() Saveable { return &dummy{} },
	}
	assert.Nil(t, Register(cls))
	err := Register(cls)
	assert.True(t, errors.Is(err, ErrClassRedefined))

	got, ok := Lookup(cls.Name)
	assert.True(t, ok)
	assert.Same(t, cls, got)
}

func TestRegisterValidatesMigrations(t *testing.T) {
	err := Register(&Class{
		Name:       "class_test.BadMigrations",
		Version:    1,
		New:        func() Saveable { return &dummy{} },
		Migrations: Migrations{0: {{Op: "frobnicate", Field: "x"}}},
	})
	assert.True(t, errors.Is(err, ErrBadMigration))
}

func TestAncestryDeduplicates(t *testing.T) {
	root := &Class{Name: "class_test.Root", Version: 0, Fields: []string{"R"}}
	left := &Class{Name: "class_test.Left", Version: 0, Fields: []string{"L"}, Bases: []*Class{root}}
	right := &Class{Name: "class_test.Right", Version: 0, Fields: []string{"Rt"}, Bases: []*Class{root}}
	leaf := &Class{Name: "class_test.Leaf", Version: 1, Fields: []string{"F"}, Bases: []*Class{left, right}}

	anc := Ancestry(leaf)
	assert.Equal(t, []*Class{leaf, left, root, right}, anc)
}

func TestManifestStampsWholeAncestry(t *testing.T) {
	mixin := &Class{Name: "class_test.Mixin", Version: Unversioned, Fields: []string{"Tag"}}
	base := &Class{Name: "class_test.Base", Version: 2, Fields: []string{"B"}}
	leaf := &Class{Name: "class_test.ManifestLeaf", Version: 4, Fields: []string{"F"}, Bases: []*Class{base, mixin}}

	m := NewManifest(leaf)
	assert.Equal(t, Manifest{
		"class_test.ManifestLeaf": 4,
		"class_test.Base":         2,
		"class_test.Mixin":        Unversioned,
	}, m)
}

func TestClassesToInspect(t *testing.T) {
	mixin := &Class{Name: "class_test.I.Mixin", Version: Unversioned, Params: []string{"P"}}
	silent := &Class{Name: "class_test.I.Silent", Version: 0, Params: []string{"Q"}}
	fields := &Class{Name: "class_test.I.Fields", Version: 0, Fields: []string{"A"}}
	leaf := &Class{
		Name: "class_test.I.Leaf", Version: 1,
		Fields: []string{"B"}, Params: []string{"K"},
		Bases: []*Class{fields, silent, mixin},
	}

	got := ClassesToInspect(leaf)
	// field owners first, then versioned parameter owners; the
	// unversioned mixin's params never qualify
	assert.Equal(t, []*Class{leaf, fields, silent}, got)
}
