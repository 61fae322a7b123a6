package font

import (
	"sort"

	"golang.org/x/image/font/sfnt"
)

// probeLimit bounds the code points checked during metadata extraction.
// Scripts below it (Latin through CJK punctuation) are what family
// fallback decisions need; full cmap coverage is available on a loaded Font.
const probeLimit rune = 0x3000

// RuneRange is an inclusive range of code points.
type RuneRange struct {
	Lo, Hi rune
}

// Coverage is a sorted, non-overlapping set of rune ranges a face maps.
type Coverage struct {
	Ranges []RuneRange
}

// Contains reports whether r falls into one of the ranges.
func (c Coverage) Contains(r rune) bool {
	i := sort.Search(len(c.Ranges), func(i int) bool { return c.Ranges[i].Hi >= r })
	return i < len(c.Ranges) && c.Ranges[i].Lo <= r
}

// Count returns the number of covered code points.
func (c Coverage) Count() int {
	n := 0
	for _, rr := range c.Ranges {
		n += int(rr.Hi-rr.Lo) + 1
	}
	return n
}

func probeCoverage(f *sfnt.Font, buf *sfnt.Buffer) (Coverage, error) {
	var cov Coverage
	open := false
	for r := rune(0x20); r < probeLimit; r++ {
		if r >= 0xD800 && r <= 0xDFFF {
			continue
		}
		gi, err := f.GlyphIndex(buf, r)
		if err != nil {
			return Coverage{}, err
		}
		if gi == 0 {
			open = false
			continue
		}
		if open {
			cov.Ranges[len(cov.Ranges)-1].Hi = r
			continue
		}
		cov.Ranges = append(cov.Ranges, RuneRange{Lo: r, Hi: r})
		open = true
	}
	return cov, nil
}
