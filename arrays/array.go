// Package arrays is the bulk numeric region of a container: an
// append-only blob store addressed by a per-session counter, holding
// the large payloads that documents only reference by id.
package arrays

import "math"

// Array is a shaped block of float64s. Documents never embed one;
// they carry an id pointing into the store instead.
type Array struct {
	Shape []int64
	Data  []float64
}

// Of wraps flat data with a shape. A nil shape means one dimension.
func Of(data []float64, shape ...int64) *Array {
	if len(shape) == 0 {
		shape = []int64{int64(len(data))}
	}
	return &Array{Shape: shape, Data: data}
}

func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// Equal compares element-wise, NaNs equal to NaNs.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a.Len() == 0 && b.Len() == 0
	}
	if len(a.Shape) != len(b.Shape) || len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] && !(math.IsNaN(a.Data[i]) && math.IsNaN(b.Data[i])) {
			return false
		}
	}
	return true
}
