package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeBag(t *testing.T) {
	bag := map[string]string{"name": "old", "extra": "kept"}

	merged := MergeBag(bag, map[string]string{"name": "new", "port": "80"})

	assert.Equal(t, map[string]string{"name": "new", "port": "80", "extra": "kept"}, merged)
}

func TestMergeNilBag(t *testing.T) {
	merged := MergeBag(nil, map[string]string{"name": "svc"})
	assert.Equal(t, map[string]string{"name": "svc"}, merged)
}

func TestCopyBag(t *testing.T) {
	bag := map[string]string{"name": "svc"}
	c := CopyBag(bag)
	c["name"] = "changed"

	assert.Equal(t, "svc", bag["name"])
	assert.NotNil(t, CopyBag(nil))
}

func TestHandlers(t *testing.T) {
	var got []string
	hs := Handlers{
		EventHandlerFunc(func(ev *Event) { got = append(got, "a:"+ev.Type.String()) }),
		EventHandlerFunc(func(ev *Event) { got = append(got, "b:"+ev.Type.String()) }),
	}

	hs.OnRelationEvent(&Event{Type: EventCreated, Relation: &Relation{Name: "k8s-svc-info"}})

	assert.Equal(t, []string{"a:created", "b:created"}, got)
}

func TestTooManyRelatedAppsError(t *testing.T) {
	err := &TooManyRelatedAppsError{Name: "k8s-svc-info", Apps: []string{"app", "app2"}}
	assert.Equal(t, "too many remote applications on relation k8s-svc-info: [app app2]", err.Error())
}
