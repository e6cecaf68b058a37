package pdfstamp

import (
	"sort"
	"strings"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/label"
)

// ResolvePages turns a target_pages selector into sorted, distinct 0-based
// page indexes. "first" and "all" are keywords; anything else is read as a
// comma-separated list of 1-based page numbers, and tokens that are not
// numbers or fall outside the document are dropped.
func ResolvePages(selector string, pageCount int) []int {
	if pageCount <= 0 {
		return nil
	}

	sel := strings.ToLower(strings.TrimSpace(selector))
	switch sel {
	case entity.TargetPagesFirst:
		return []int{0}
	case entity.TargetPagesAll:
		pages := make([]int, pageCount)
		for i := range pages {
			pages[i] = i
		}
		return pages
	}

	seen := make(map[int]struct{})
	var pages []int
	for _, tok := range strings.FieldsFunc(sel, func(r rune) bool { return r == ',' || r == '、' || r == '，' }) {
		n, ok := label.ParseNumber(tok)
		if !ok {
			continue
		}
		idx := n - 1
		if idx < 0 || idx >= pageCount {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		pages = append(pages, idx)
	}
	sort.Ints(pages)
	return pages
}
