package schema

// ClassesToInspect returns the ancestors of cls that contribute to
// persistence: classes declaring their own fields, then versioned
// classes declaring estimation parameters. Pure query over static
// class metadata; the order only matters for field provenance.
func ClassesToInspect(cls *Class) []*Class {
	anc := Ancestry(cls)
	seen := make(map[*Class]bool)
	var out []*Class
	for _, c := range anc {
		if len(c.Fields) > 0 {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range anc {
		if !seen[c] && c.Version != Unversioned && len(c.Params) > 0 {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
