package schema

import (
	"bytes"

	"github.com/puzpuzpuz/xsync/v3"
)

// Renames keeps the historical-to-current class name mapping, with a
// reverse index for interpolation lookups. Populated at startup,
// read-only during a session.
type Renames struct {
	fwd *xsync.MapOf[string, string]
	rev *xsync.MapOf[string, []string]
}

func NewRenames() *Renames {
	return &Renames{
		fwd: xsync.NewMapOf[string, string](),
		rev: xsync.NewMapOf[string, []string](),
	}
}

// DefaultRenames is the process-wide registry the container uses unless
// told otherwise.
var DefaultRenames = NewRenames()

// Add records that the class once called old is now called current.
func (r *Renames) Add(old, current string) {
	r.fwd.Store(old, current)
	r.rev.Compute(current, func(olds []string, _ bool) ([]string, bool) {
		for _, o := range olds {
			if o == old {
				return olds, false
			}
		}
		return append(olds, old), false
	})
}

// CurrentName maps a historical name to the current one, if any.
func (r *Renames) CurrentName(old string) (string, bool) {
	return r.fwd.Load(old)
}

// OldNames lists every historical name now handled by current.
func (r *Renames) OldNames(current string) []string {
	olds, _ := r.rev.Load(current)
	return olds
}

// UpgradeJSON rewrites historical class names inside a raw document so
// that lookups downstream only ever see current identifiers. Names are
// matched as whole JSON strings, quotes included.
func (r *Renames) UpgradeJSON(raw []byte) []byte {
	r.fwd.Range(func(old, current string) bool {
		from := []byte(`"` + old + `"`)
		if bytes.Contains(raw, from) {
			raw = bytes.ReplaceAll(raw, from, []byte(`"`+current+`"`))
		}
		return true
	})
	return raw
}
