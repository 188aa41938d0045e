package freq

import "math"

// Resize maps v onto size slots. Shrinking integrates v as a step density
// over equal-width bins; expanding interpolates linearly. Either way the
// result is renormalized and rounded to 2 decimals, so the sum may miss 1.0
// by a rounding step. Resizing to the same length returns an unchanged copy.
func Resize(v []float64, size int) []float64 {
	switch {
	case size <= 0:
		return []float64{}
	case len(v) == 0:
		return Uniform(size)
	case len(v) == size:
		return append([]float64(nil), v...)
	case size < len(v):
		return normalize(shrink(v, size))
	}
	return normalize(expand(v, size))
}

func shrink(v []float64, size int) []float64 {
	out := make([]float64, size)
	width := float64(len(v)) / float64(size)
	for j := range out {
		lo, hi := float64(j)*width, float64(j+1)*width
		for i, x := range v {
			overlap := math.Min(hi, float64(i+1)) - math.Max(lo, float64(i))
			if overlap > 0 {
				out[j] += x * overlap
			}
		}
	}
	return out
}

func expand(v []float64, size int) []float64 {
	out := make([]float64, size)
	if len(v) == 1 {
		for i := range out {
			out[i] = v[0]
		}
		return out
	}
	last := len(v) - 1
	for i := range out {
		pos := float64(i) / float64(size-1) * float64(last)
		lo := int(math.Floor(pos))
		if lo >= last {
			out[i] = v[last]
			continue
		}
		frac := pos - float64(lo)
		out[i] = v[lo]*(1-frac) + v[lo+1]*frac
	}
	return out
}

func normalize(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return Uniform(len(v))
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = round2(x / sum)
	}
	return out
}

// Uniform returns size slots of 1/size rounded to 2 decimals.
func Uniform(size int) []float64 {
	switch {
	case size <= 0:
		return []float64{}
	case size == 1:
		return []float64{1.0}
	}
	out := make([]float64, size)
	for i := range out {
		out[i] = round2(1 / float64(size))
	}
	return out
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
