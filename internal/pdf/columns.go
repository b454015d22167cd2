package pdf

import (
	"sort"

	"github.com/ledongthuc/pdf"
)

// tableRegion is the bounding box of a group of drawn rectangles, together
// with the x positions of the vertical edges its members contribute.
type tableRegion struct {
	x0, y0, x1, y1 float64
	xs             []float64
}

func (r tableRegion) area() float64 {
	return (r.x1 - r.x0) * (r.y1 - r.y0)
}

func (r tableRegion) touches(other tableRegion, tolerance float64) bool {
	return r.x0-tolerance <= other.x1 && other.x0-tolerance <= r.x1 &&
		r.y0-tolerance <= other.y1 && other.y0-tolerance <= r.y1
}

func (r tableRegion) merge(other tableRegion) tableRegion {
	out := r
	if other.x0 < out.x0 {
		out.x0 = other.x0
	}
	if other.y0 < out.y0 {
		out.y0 = other.y0
	}
	if other.x1 > out.x1 {
		out.x1 = other.x1
	}
	if other.y1 > out.y1 {
		out.y1 = other.y1
	}
	out.xs = append(out.xs, other.xs...)
	return out
}

// clusterRegions groups the page's rectangles into connected regions. Ruled
// tables are drawn as many touching rectangles and lines, so the table
// surfaces as one region; unrelated boxes elsewhere on the page stay
// separate.
func clusterRegions(rects []pdf.Rect, tolerance float64) []tableRegion {
	regions := make([]tableRegion, 0, len(rects))
	for _, r := range rects {
		x0, x1 := r.Min.X, r.Max.X
		if x1 < x0 {
			x0, x1 = x1, x0
		}
		y0, y1 := r.Min.Y, r.Max.Y
		if y1 < y0 {
			y0, y1 = y1, y0
		}
		regions = append(regions, tableRegion{
			x0: x0, y0: y0, x1: x1, y1: y1,
			xs: []float64{x0, x1},
		})
	}

	for {
		merged := false
		for i := 0; i < len(regions) && !merged; i++ {
			for j := i + 1; j < len(regions); j++ {
				if regions[i].touches(regions[j], tolerance) {
					regions[i] = regions[i].merge(regions[j])
					regions = append(regions[:j], regions[j+1:]...)
					merged = true
					break
				}
			}
		}
		if !merged {
			return regions
		}
	}
}

// largestRegion picks the region with the biggest area. Returns nil when
// there are no regions.
func largestRegion(regions []tableRegion) *tableRegion {
	var best *tableRegion
	for i := range regions {
		if best == nil || regions[i].area() > best.area() {
			best = &regions[i]
		}
	}
	return best
}

// snapPositions collapses positions within the tolerance of each other into
// one boundary at their mean, returning the boundaries in ascending order.
func snapPositions(xs []float64, tolerance float64) []float64 {
	if len(xs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	var out []float64
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i]-sorted[i-1] > tolerance {
			sum := 0.0
			for _, v := range sorted[start:i] {
				sum += v
			}
			out = append(out, sum/float64(i-start))
			start = i
		}
	}
	return out
}

// latticeGrid builds a cell grid from the page's ruling lines. The biggest
// connected rectangle region is taken as the table; its snapped vertical
// edges become column boundaries and only words inside the region are kept.
// Returns nil when the page's rectangles do not describe at least two
// columns.
func (e *Extractor) latticeGrid(lines []line, rects []pdf.Rect) [][]string {
	if len(rects) == 0 {
		return nil
	}

	region := largestRegion(clusterRegions(rects, e.joinTolerance))
	if region == nil {
		return nil
	}
	edges := snapPositions(region.xs, e.snapTolerance)
	if len(edges) < minTableColumns+1 {
		return nil
	}

	numColumns := len(edges) - 1
	var grid [][]string
	for _, ln := range lines {
		cells := make([]string, numColumns)
		used := false
		for _, w := range ln {
			cx := w.x + w.w/2
			if cx < edges[0] || cx > edges[len(edges)-1] {
				continue
			}
			if w.y < region.y0 || w.y > region.y1 {
				continue
			}
			col := sort.SearchFloat64s(edges, cx) - 1
			if col < 0 {
				col = 0
			}
			if col >= numColumns {
				col = numColumns - 1
			}
			if cells[col] != "" {
				cells[col] += " "
			}
			cells[col] += w.text
			used = true
		}
		if used {
			grid = append(grid, cells)
		}
	}
	return grid
}

// textColumns finds column positions from word alignment alone: word left
// edges are clustered, and a cluster only counts as a column when at least
// half the lines start a word there.
func textColumns(lines []line, clusterWidth float64) []float64 {
	var xs []float64
	for _, ln := range lines {
		for _, w := range ln {
			xs = append(xs, w.x)
		}
	}
	if len(xs) == 0 {
		return nil
	}
	sort.Float64s(xs)

	minSupport := len(lines) / 2
	if minSupport < 2 {
		minSupport = 2
	}

	var centers []float64
	start := 0
	for i := 1; i <= len(xs); i++ {
		if i == len(xs) || xs[i]-xs[i-1] > clusterWidth {
			if n := i - start; n >= minSupport {
				centers = append(centers, xs[start+n/2])
			}
			start = i
		}
	}
	return centers
}

// columnIndex maps a word's left edge to the rightmost column starting at
// or before it, with a little slack for ragged alignment.
func columnIndex(x float64, centers []float64, slack float64) int {
	idx := 0
	for j, c := range centers {
		if x >= c-slack {
			idx = j
		} else {
			break
		}
	}
	return idx
}

// textGrid builds a cell grid from word alignment when the page has no
// usable ruling lines. Every line becomes a row; words land in the column
// whose start position they sit at. Returns nil when fewer than two aligned
// columns exist.
func (e *Extractor) textGrid(lines []line) [][]string {
	centers := textColumns(lines, e.clusterWidth)
	if len(centers) < minTableColumns {
		return nil
	}

	var grid [][]string
	for _, ln := range lines {
		if len(ln) == 0 {
			continue
		}
		cells := make([]string, len(centers))
		for _, w := range ln {
			col := columnIndex(w.x, centers, e.clusterWidth)
			if cells[col] != "" {
				cells[col] += " "
			}
			cells[col] += w.text
		}
		grid = append(grid, cells)
	}
	return grid
}
