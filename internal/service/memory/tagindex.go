package memory

import (
	"sync"

	"github.com/sandevgo/recalld/internal/core"
)

// TagIndex is the in-memory tag -> entry IDs index. It is derived state:
// rebuilt from the entry table at startup and maintained on every write.
type TagIndex struct {
	mu      sync.RWMutex
	byTag   map[string]map[string]struct{}
	byEntry map[string][]string
}

func NewTagIndex() *TagIndex {
	return &TagIndex{
		byTag:   make(map[string]map[string]struct{}),
		byEntry: make(map[string][]string),
	}
}

func (idx *TagIndex) AddTags(entryID string, tags []string) {
	if len(tags) == 0 {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, tag := range tags {
		set, ok := idx.byTag[tag]
		if !ok {
			set = make(map[string]struct{})
			idx.byTag[tag] = set
		}
		if _, dup := set[entryID]; dup {
			continue
		}
		set[entryID] = struct{}{}
		idx.byEntry[entryID] = append(idx.byEntry[entryID], tag)
	}
}

func (idx *TagIndex) RemoveEntry(entryID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, tag := range idx.byEntry[entryID] {
		if set, ok := idx.byTag[tag]; ok {
			delete(set, entryID)
			if len(set) == 0 {
				delete(idx.byTag, tag)
			}
		}
	}
	delete(idx.byEntry, entryID)
}

// EntriesForTags returns the union (MatchAny) or intersection (MatchAll)
// of the ID sets for the given tags.
func (idx *TagIndex) EntriesForTags(tags []string, match core.TagMatch) map[string]struct{} {
	result := make(map[string]struct{})
	if len(tags) == 0 {
		return result
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if match == core.MatchAll {
		first, ok := idx.byTag[tags[0]]
		if !ok {
			return result
		}
		for id := range first {
			result[id] = struct{}{}
		}
		for _, tag := range tags[1:] {
			set, ok := idx.byTag[tag]
			if !ok {
				return make(map[string]struct{})
			}
			for id := range result {
				if _, in := set[id]; !in {
					delete(result, id)
				}
			}
		}
		return result
	}

	for _, tag := range tags {
		for id := range idx.byTag[tag] {
			result[id] = struct{}{}
		}
	}
	return result
}

func (idx *TagIndex) TagsOf(entryID string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tags := make([]string, len(idx.byEntry[entryID]))
	copy(tags, idx.byEntry[entryID])
	return tags
}
