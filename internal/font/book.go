package font

import (
	"sort"
	"strings"
)

// Book is the ordered catalog of faces the compiler may select from.
// Entry i corresponds to descriptor i of whatever loads the fonts.
type Book struct {
	infos    []Info
	byFamily map[string][]int
}

// NewBook returns an empty catalog.
func NewBook() *Book {
	return &Book{byFamily: make(map[string][]int)}
}

// Push appends info and returns its index.
func (b *Book) Push(info Info) int {
	if b.byFamily == nil {
		b.byFamily = make(map[string][]int)
	}
	idx := len(b.infos)
	b.infos = append(b.infos, info)
	key := familyKey(info.Family)
	b.byFamily[key] = append(b.byFamily[key], idx)
	return idx
}

// Len returns the number of entries.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.infos)
}

// Info returns the entry at index i.
func (b *Book) Info(i int) (Info, bool) {
	if b == nil || i < 0 || i >= len(b.infos) {
		return Info{}, false
	}
	return b.infos[i], true
}

// Families lists the distinct family names in sorted order, spelled as
// first seen.
func (b *Book) Families() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.byFamily))
	for _, idxs := range b.byFamily {
		out = append(out, b.infos[idxs[0]].Family)
	}
	sort.Strings(out)
	return out
}

// Select finds the face of family closest to want. Family matching ignores
// case. Style is matched first, then weight distance, then stretch distance;
// ties keep the earlier entry.
func (b *Book) Select(family string, want Variant) (int, bool) {
	if b == nil {
		return 0, false
	}
	idxs := b.byFamily[familyKey(family)]
	if len(idxs) == 0 {
		return 0, false
	}
	best := idxs[0]
	bestScore := variantDistance(b.infos[best].Variant, want)
	for _, i := range idxs[1:] {
		if s := variantDistance(b.infos[i].Variant, want); s < bestScore {
			best, bestScore = i, s
		}
	}
	return best, true
}

// SelectFallback returns the face whose coverage contains r and whose
// variant is nearest to want; ties keep the earlier entry.
func (b *Book) SelectFallback(r rune, want Variant) (int, bool) {
	if b == nil {
		return 0, false
	}
	found := -1
	bestScore := 0
	for i := range b.infos {
		if !b.infos[i].Coverage.Contains(r) {
			continue
		}
		s := variantDistance(b.infos[i].Variant, want)
		if found < 0 || s < bestScore {
			found, bestScore = i, s
		}
	}
	return found, found >= 0
}

func variantDistance(have, want Variant) int {
	style := 0
	if have.Style != want.Style {
		style = 2
		// italic и oblique взаимозаменяемы лучше, чем normal
		if have.Style != StyleNormal && want.Style != StyleNormal {
			style = 1
		}
	}
	return style<<24 | absDiff(int(have.Weight), int(want.Weight))<<12 | absDiff(int(have.Stretch), int(want.Stretch))
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func familyKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
