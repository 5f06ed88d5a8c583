package k8s

import (
	"sort"
	"sync"

	"github.com/canonical/mlops-libs/relation"
)

// CachedRelation - relation with the last seen data bags of both members
type CachedRelation struct {
	relation.Relation

	LocalData  map[string]string `json:"localData"`
	RemoteData map[string]string `json:"remoteData"`
}

// DeepCopy returns a copy sharing no maps with c.
func (c *CachedRelation) DeepCopy() *CachedRelation {
	return &CachedRelation{
		Relation:   c.Relation,
		LocalData:  relation.CopyBag(c.LocalData),
		RemoteData: relation.CopyBag(c.RemoteData),
	}
}

type cachedRelations []*CachedRelation

func (c cachedRelations) Len() int           { return len(c) }
func (c cachedRelations) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
func (c cachedRelations) Less(i, j int) bool { return c[i].ID < c[j].ID }

// RelationCache - storage for the relations the local application is a member of
type RelationCache struct {
	mu     sync.Mutex
	values cachedRelations
}

// Values returns a copy of the contents of the cache, ordered by relation ID.
func (rc *RelationCache) Values() []*CachedRelation {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	r := make([]*CachedRelation, 0, len(rc.values))
	for _, v := range rc.values {
		r = append(r, v.DeepCopy())
	}
	return r
}

// Get returns a copy of the relation with id, nil if absent.
func (rc *RelationCache) Get(id string) *CachedRelation {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if i, ok := rc.search(id); ok {
		return rc.values[i].DeepCopy()
	}
	return nil
}

// Add adds an entry to the cache. If a relation with the same
// ID exists, it is replaced and the previous value returned.
func (rc *RelationCache) Add(c *CachedRelation) (previous *CachedRelation) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	i, ok := rc.search(c.ID)
	if ok {
		previous = rc.values[i]
		rc.values[i] = c
		return previous
	}
	rc.values = append(rc.values, c)
	// resort to convert append into insert
	sort.Sort(rc.values)
	return nil
}

// Remove removes the relation from the cache. If the relation is not
// present in the cache, the operation is a no-op.
func (rc *RelationCache) Remove(id string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if i, ok := rc.search(id); ok {
		rc.values = append(rc.values[:i], rc.values[i+1:]...)
	}
}

// invariant: rc.values should be sorted on entry.
func (rc *RelationCache) search(id string) (int, bool) {
	i := sort.Search(len(rc.values), func(i int) bool { return rc.values[i].ID >= id })
	return i, i < len(rc.values) && rc.values[i].ID == id
}
