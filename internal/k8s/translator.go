package k8s

import (
	"reflect"

	"github.com/sirupsen/logrus"

	core_v1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/cache"

	"github.com/canonical/mlops-libs/relation"
	relk8s "github.com/canonical/mlops-libs/relation/kubernetes"
	"github.com/canonical/mlops-libs/types"
	"github.com/canonical/mlops-libs/util/codecs"
)

// Translator turns relation ConfigMap events into relation events for the
// local application, keeping RelationCache up to date.
type Translator struct {
	logrus.FieldLogger

	RelationCache

	App     string
	Role    types.Role
	Handler relation.EventHandler
}

var _ cache.ResourceEventHandler = &Translator{}

func (t *Translator) toCached(obj interface{}) (*CachedRelation, bool) {
	cm, ok := obj.(*core_v1.ConfigMap)
	if !ok {
		t.Errorf("unsupported resource type %T", obj)
		return nil, false
	}

	rel, ok := relk8s.RelationFor(cm, t.App, t.Role)
	if !ok {
		return nil, false
	}

	serializer := codecs.DefaultSerializer()
	local, err := codecs.DecodeBag(serializer, cm.Data[t.App])
	if err != nil {
		t.Warnf("failed to decode local data bag of relation %s: %s", rel.ID, err)
	}
	remote, err := codecs.DecodeBag(serializer, cm.Data[rel.App])
	if err != nil {
		t.Warnf("failed to decode remote data bag of relation %s: %s", rel.ID, err)
	}

	return &CachedRelation{Relation: *rel, LocalData: local, RemoteData: remote}, true
}

func (t *Translator) dispatch(typ relation.EventType, c *CachedRelation) {
	if t.Handler == nil {
		return
	}
	rel := c.Relation
	t.Handler.OnRelationEvent(&relation.Event{Type: typ, Relation: &rel})
}

func (t *Translator) OnAdd(obj interface{}, isInInitialList bool) {
	c, ok := t.toCached(obj)
	if !ok {
		return
	}
	t.Debugf("relation %s created with %s", c.Name, c.App)
	t.RelationCache.Add(c)
	t.dispatch(relation.EventCreated, c)
	if len(c.RemoteData) > 0 {
		t.dispatch(relation.EventChanged, c)
	}
}

func (t *Translator) OnUpdate(oldObj, newObj interface{}) {
	c, ok := t.toCached(newObj)
	if !ok {
		return
	}

	previous := t.RelationCache.Add(c)
	if previous == nil {
		t.dispatch(relation.EventCreated, c)
		t.dispatch(relation.EventChanged, c)
		return
	}

	// writes of the local application are not events for it
	if reflect.DeepEqual(previous.RemoteData, c.RemoteData) {
		return
	}
	t.Debugf("relation %s data changed by %s", c.Name, c.App)
	t.dispatch(relation.EventChanged, c)
}

func (t *Translator) OnDelete(obj interface{}) {
	if tombstone, ok := obj.(cache.DeletedFinalStateUnknown); ok {
		obj = tombstone.Obj
	}
	c, ok := t.toCached(obj)
	if !ok {
		return
	}
	t.Debugf("relation %s with %s broken", c.Name, c.App)
	t.RelationCache.Remove(c.ID)
	t.dispatch(relation.EventBroken, c)
}
