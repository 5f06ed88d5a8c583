package k8s

import (
	"testing"

	"github.com/canonical/mlops-libs/relation"
)

func TestAddGet(t *testing.T) {
	cc := &RelationCache{}

	cc.Add(&CachedRelation{
		Relation:   relation.Relation{ID: "b", Name: "k8s-svc-info", App: "mlmd"},
		RemoteData: map[string]string{"name": "svc"},
	})
	cc.Add(&CachedRelation{
		Relation: relation.Relation{ID: "a", Name: "k8s-svc-info", App: "other"},
	})

	values := cc.Values()
	if len(values) != 2 {
		t.Fatalf("expected 2 relations, got: %d", len(values))
	}
	if values[0].ID != "a" || values[1].ID != "b" {
		t.Errorf("expected relations sorted by id, got: %s, %s", values[0].ID, values[1].ID)
	}

	// updating a copy
	values[1].RemoteData["name"] = "changed"

	// getting again
	stored := cc.Get("b")
	if stored.RemoteData["name"] != "svc" {
		t.Errorf("cached entry got modified: %s", stored.RemoteData["name"])
	}
}

func TestAddReplaces(t *testing.T) {
	cc := &RelationCache{}

	first := &CachedRelation{Relation: relation.Relation{ID: "a"}, RemoteData: map[string]string{"port": "80"}}
	if previous := cc.Add(first); previous != nil {
		t.Errorf("expected no previous value")
	}

	previous := cc.Add(&CachedRelation{Relation: relation.Relation{ID: "a"}, RemoteData: map[string]string{"port": "81"}})
	if previous == nil || previous.RemoteData["port"] != "80" {
		t.Errorf("expected previous value to be returned, got: %v", previous)
	}
	if len(cc.Values()) != 1 {
		t.Errorf("expected 1 relation, got: %d", len(cc.Values()))
	}
}

func TestRemove(t *testing.T) {
	cc := &RelationCache{}
	cc.Add(&CachedRelation{Relation: relation.Relation{ID: "a"}})
	cc.Add(&CachedRelation{Relation: relation.Relation{ID: "b"}})

	cc.Remove("a")
	// no-op
	cc.Remove("missing")

	if cc.Get("a") != nil {
		t.Errorf("expected relation to be removed")
	}
	if cc.Get("b") == nil {
		t.Errorf("expected relation b to be kept")
	}
}
