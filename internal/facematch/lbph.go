package facematch

import (
	"gonum.org/v1/gonum/floats"
)

// Local binary pattern histogram parameters: radius 1, 8 neighbours, 8x8 grid.
const (
	lbphGridX = 8
	lbphGridY = 8
	lbphBins  = 256
)

// Histogram is a spatially concatenated LBP histogram, one normalized
// 256-bin block per grid cell.
type Histogram []float64

// neighbours lists the 8 sampling offsets clockwise from the top-left corner.
var neighbours = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1}, {1, 0},
	{1, 1}, {0, 1}, {-1, 1}, {-1, 0},
}

// lbp computes the radius-1 local binary pattern image of s, which is two
// pixels narrower and shorter than s.
func lbp(s Sample) (codes []uint8, width, height int) {
	width, height = s.Width-2, s.Height-2
	if width <= 0 || height <= 0 {
		return nil, 0, 0
	}
	codes = make([]uint8, width*height)
	for y := 1; y <= height; y++ {
		for x := 1; x <= width; x++ {
			center := s.At(x, y)
			var code uint8
			for bit, off := range neighbours {
				if s.At(x+off[0], y+off[1]) >= center {
					code |= 1 << (7 - bit)
				}
			}
			codes[(y-1)*width+(x-1)] = code
		}
	}
	return codes, width, height
}

// Describe computes the LBPH descriptor of a sample.
func Describe(s Sample) Histogram {
	hist := make(Histogram, lbphGridX*lbphGridY*lbphBins)
	codes, width, height := lbp(s)
	cellW, cellH := width/lbphGridX, height/lbphGridY
	if cellW == 0 || cellH == 0 {
		return hist
	}

	for gy := range lbphGridY {
		for gx := range lbphGridX {
			cell := hist[(gy*lbphGridX+gx)*lbphBins : (gy*lbphGridX+gx+1)*lbphBins]
			for y := gy * cellH; y < (gy+1)*cellH; y++ {
				row := codes[y*width : (y+1)*width]
				for x := gx * cellW; x < (gx+1)*cellW; x++ {
					cell[row[x]]++
				}
			}
			floats.Scale(1/float64(cellW*cellH), cell)
		}
	}
	return hist
}

// ChiSquare returns the alternative chi-square distance 2 * sum((a-b)^2 / (a+b)).
// Identical histograms have distance 0; lower is a better fit.
func ChiSquare(a, b Histogram) float64 {
	var d float64
	for i := range a {
		sum := a[i] + b[i]
		if sum <= 0 {
			continue
		}
		diff := a[i] - b[i]
		d += diff * diff / sum
	}
	return 2 * d
}

// float32s converts a histogram for the candidate index.
func (h Histogram) float32s() []float32 {
	out := make([]float32, len(h))
	for i, v := range h {
		out[i] = float32(v)
	}
	return out
}

func chiSquare32(a, b []float32) float32 {
	var d float32
	for i := range a {
		sum := a[i] + b[i]
		if sum <= 0 {
			continue
		}
		diff := a[i] - b[i]
		d += diff * diff / sum
	}
	return 2 * d
}
