package schema

import "math"

// VersionUnknown is resolved for classes absent from a manifest. It
// compares greater than any declared version, so every migration is
// skipped: with no reliable lower bound there is nothing safe to replay.
const VersionUnknown int64 = math.MaxInt64

// Manifest records, per saved instance, the version every class in its
// ancestry had at save time. Written once by the encoder, consumed once
// per class while interpolating on load.
type Manifest map[string]int64

// NewManifest stamps the full ancestor chain of cls, not just the
// classes that contribute fields. Version-less bases get Unversioned.
func NewManifest(cls *Class) Manifest {
	m := make(Manifest)
	for _, c := range Ancestry(cls) {
		m[c.Name] = c.Version
	}
	return m
}

// VersionFor resolves the saved version of cls, trying its current name
// first and then every historical name the rename registry maps to it.
func (m Manifest) VersionFor(cls *Class, renames *Renames) int64 {
	if v, ok := m[cls.Name]; ok {
		return v
	}
	if renames != nil {
		for _, old := range renames.OldNames(cls.Name) {
			if v, ok := m[old]; ok {
				return v
			}
		}
	}
	return VersionUnknown
}
