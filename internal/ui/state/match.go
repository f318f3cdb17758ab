package state

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FilterItems returns the items matching query together with the frames
// that enclose them, in their original order.
func FilterItems(items []Item, query string) []Item {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return CloneItems(items)
	}
	matched := matchItems(items, trimmed)
	if len(matched) == 0 {
		return []Item{}
	}
	keep := withAncestors(items, matched)
	filtered := make([]Item, 0, len(keep))
	for i, item := range items {
		if _, ok := keep[i]; ok {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func matchItems(items []Item, query string) map[int]struct{} {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.searchText()
	}
	matched := make(map[int]struct{})
	for _, rank := range fuzzy.RankFindNormalizedFold(query, texts) {
		matched[rank.OriginalIndex] = struct{}{}
	}
	if len(matched) > 0 {
		return matched
	}
	lower := strings.ToLower(query)
	for i, item := range items {
		if strings.Contains(strings.ToLower(item.ID), lower) {
			matched[i] = struct{}{}
		}
	}
	return matched
}

// withAncestors extends matched with every parent row of a match.
func withAncestors(items []Item, matched map[int]struct{}) map[int]struct{} {
	index := make(map[string]int, len(items))
	for i, item := range items {
		if _, dup := index[item.ID]; !dup {
			index[item.ID] = i
		}
	}
	keep := make(map[int]struct{}, len(matched))
	for i := range matched {
		for j := i; ; {
			if _, seen := keep[j]; seen {
				break
			}
			keep[j] = struct{}{}
			if items[j].Parent == "" {
				break
			}
			parent, ok := index[items[j].Parent]
			if !ok {
				break
			}
			j = parent
		}
	}
	return keep
}

// BestMatchIndex returns the index of the row the cursor should land on for
// query. Exact matches win over label prefixes, then term prefixes, then
// substrings, then the closest fuzzy match.
func BestMatchIndex(items []Item, query string) int {
	if len(items) == 0 {
		return -1
	}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return 0
	}
	lower := strings.ToLower(trimmed)
	stages := []func(Item) bool{
		func(item Item) bool {
			return strings.EqualFold(item.Label, trimmed) || strings.EqualFold(item.ID, trimmed) || anyTerm(item, func(term string) bool {
				return strings.EqualFold(term, trimmed)
			})
		},
		func(item Item) bool {
			return strings.HasPrefix(strings.ToLower(item.Label), lower)
		},
		func(item Item) bool {
			return strings.HasPrefix(strings.ToLower(item.ID), lower) || anyTerm(item, func(term string) bool {
				return strings.HasPrefix(strings.ToLower(term), lower)
			})
		},
		func(item Item) bool {
			return strings.Contains(strings.ToLower(item.searchText()), lower) || strings.Contains(strings.ToLower(item.ID), lower)
		},
	}
	for _, stage := range stages {
		for i, item := range items {
			if stage(item) {
				return i
			}
		}
	}
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.searchText()
	}
	ranks := fuzzy.RankFindNormalizedFold(trimmed, texts)
	if len(ranks) == 0 {
		return 0
	}
	best := ranks[0]
	for _, rank := range ranks[1:] {
		if rank.Distance < best.Distance || (rank.Distance == best.Distance && rank.OriginalIndex < best.OriginalIndex) {
			best = rank
		}
	}
	return best.OriginalIndex
}

func anyTerm(item Item, fn func(string) bool) bool {
	for _, term := range item.Terms {
		if fn(term) {
			return true
		}
	}
	return false
}
