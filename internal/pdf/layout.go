package pdf

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// word is a horizontal run of text fragments merged along one baseline.
type word struct {
	text string
	x    float64
	y    float64
	w    float64
	size float64
}

// line is one horizontal band of words, ordered left to right.
type line []word

// band collects the raw fragments that share a baseline within the row
// tolerance. The y range grows as members are added so slightly wavy
// baselines still land in one band.
type band struct {
	yMin, yMax float64
	texts      []pdf.Text
}

// extractLines groups a page's text fragments into rows and merges each
// row's fragments into words. Rows are ordered top to bottom, words left to
// right.
func extractLines(texts []pdf.Text, rowTolerance, spaceFactor float64) []line {
	bands := groupBands(texts, rowTolerance)

	lines := make([]line, 0, len(bands))
	for _, b := range bands {
		words := mergeBandWords(b.texts, spaceFactor)
		if len(words) > 0 {
			lines = append(lines, words)
		}
	}
	return lines
}

// groupBands buckets fragments by baseline. A fragment joins the first band
// whose y range it falls within (expanded by the tolerance); otherwise it
// starts a new band. Bands are sorted top to bottom, members left to right.
func groupBands(texts []pdf.Text, tolerance float64) []band {
	var bands []band

	for _, t := range texts {
		if t.S == "" {
			continue
		}

		placed := false
		for i := range bands {
			if t.Y >= bands[i].yMin-tolerance && t.Y <= bands[i].yMax+tolerance {
				bands[i].texts = append(bands[i].texts, t)
				if t.Y < bands[i].yMin {
					bands[i].yMin = t.Y
				}
				if t.Y > bands[i].yMax {
					bands[i].yMax = t.Y
				}
				placed = true
				break
			}
		}
		if !placed {
			bands = append(bands, band{yMin: t.Y, yMax: t.Y, texts: []pdf.Text{t}})
		}
	}

	// PDF y coordinates grow upward, so the top row has the largest y.
	sort.Slice(bands, func(i, j int) bool {
		return bands[i].yMax > bands[j].yMax
	})
	for i := range bands {
		members := bands[i].texts
		sort.Slice(members, func(a, b int) bool {
			return members[a].X < members[b].X
		})
	}
	return bands
}

// mergeBandWords joins a band's fragments into words. Fragments closer than
// spaceFactor times the font size continue the current word; wider gaps and
// whitespace fragments end it.
func mergeBandWords(texts []pdf.Text, spaceFactor float64) []word {
	var words []word
	var cur *word

	flush := func() {
		if cur != nil && strings.TrimSpace(cur.text) != "" {
			words = append(words, *cur)
		}
		cur = nil
	}
	start := func(t pdf.Text) {
		cur = &word{text: t.S, x: t.X, y: t.Y, w: t.W, size: t.FontSize}
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}
		if cur == nil {
			start(t)
			continue
		}

		gap := t.X - (cur.x + cur.w)
		threshold := spaceFactor * t.FontSize
		if threshold <= 0 {
			threshold = spaceFactor * cur.size
		}
		if threshold <= 0 {
			threshold = 1.0
		}

		if gap <= threshold {
			cur.text += t.S
			if end := t.X + t.W; end > cur.x+cur.w {
				cur.w = end - cur.x
			}
			if t.FontSize > cur.size {
				cur.size = t.FontSize
			}
			continue
		}

		flush()
		start(t)
	}
	flush()

	return words
}
