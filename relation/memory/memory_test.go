package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/mlops-libs/relation"
)

func TestRelationsForBothSides(t *testing.T) {
	m := NewModel()
	id := m.Link("k8s-svc-info", "k8s-service", "mlmd", "kfp-api")

	ctx := context.Background()

	rels, err := m.Registry("mlmd").Relations(ctx, "k8s-svc-info")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, id, rels[0].ID)
	assert.Equal(t, "kfp-api", rels[0].App)
	assert.Equal(t, "k8s-service", rels[0].Interface)

	rel, err := m.Registry("kfp-api").Relation(ctx, "k8s-svc-info")
	require.NoError(t, err)
	assert.Equal(t, "mlmd", rel.App)

	rels, err = m.Registry("other").Relations(ctx, "k8s-svc-info")
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRelationNotFound(t *testing.T) {
	m := NewModel()

	_, err := m.Registry("app").Relation(context.Background(), "k8s-svc-info")
	if !errors.Is(err, relation.ErrRelationNotFound) {
		t.Errorf("expected relation not found, got: %v", err)
	}
}

func TestRelationTooMany(t *testing.T) {
	m := NewModel()
	m.Link("k8s-svc-info", "k8s-service", "app", "local")
	m.Link("k8s-svc-info", "k8s-service", "app2", "local")

	_, err := m.Registry("local").Relation(context.Background(), "k8s-svc-info")

	var tooMany *relation.TooManyRelatedAppsError
	require.True(t, errors.As(err, &tooMany))
	assert.ElementsMatch(t, []string{"app", "app2"}, tooMany.Apps)
}

func TestUpdateBagOwnership(t *testing.T) {
	m := NewModel()
	m.Link("k8s-svc-info", "k8s-service", "provider", "requirer")
	ctx := context.Background()
	reg := m.Registry("provider")

	rel, err := reg.Relation(ctx, "k8s-svc-info")
	require.NoError(t, err)

	err = reg.UpdateBag(ctx, rel, "requirer", map[string]string{"name": "x"})
	assert.True(t, errors.Is(err, relation.ErrNotOwner))

	require.NoError(t, reg.UpdateBag(ctx, rel, "provider", map[string]string{"name": "svc"}))
	require.NoError(t, reg.UpdateBag(ctx, rel, "provider", map[string]string{"port": "80"}))

	bag, err := m.Registry("requirer").Bag(ctx, &relation.Relation{ID: rel.ID}, "provider")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "svc", "port": "80"}, bag)

	// returned bag is a copy
	bag["name"] = "changed"
	again, _ := reg.Bag(ctx, rel, "provider")
	assert.Equal(t, "svc", again["name"])
}

func TestBagAbsent(t *testing.T) {
	m := NewModel()
	m.Link("k8s-svc-info", "k8s-service", "provider", "requirer")
	ctx := context.Background()
	reg := m.Registry("requirer")

	rel, err := reg.Relation(ctx, "k8s-svc-info")
	require.NoError(t, err)

	bag, err := reg.Bag(ctx, rel, rel.App)
	require.NoError(t, err)
	assert.Empty(t, bag)
}

func TestUnlinked(t *testing.T) {
	m := NewModel()
	id := m.Link("k8s-svc-info", "k8s-service", "provider", "requirer")
	m.Unlink(id)
	// second unlink is a no-op
	m.Unlink(id)

	_, err := m.Registry("requirer").Bag(context.Background(), &relation.Relation{ID: id}, "provider")
	assert.True(t, errors.Is(err, relation.ErrRelationGone))
}

func TestEvents(t *testing.T) {
	m := NewModel()

	var providerEvents, requirerEvents []relation.EventType
	m.Subscribe("provider", relation.EventHandlerFunc(func(ev *relation.Event) {
		providerEvents = append(providerEvents, ev.Type)
	}))
	m.Subscribe("requirer", relation.EventHandlerFunc(func(ev *relation.Event) {
		requirerEvents = append(requirerEvents, ev.Type)
		assert.Equal(t, "provider", ev.Relation.App)
	}))

	id := m.Link("k8s-svc-info", "k8s-service", "provider", "requirer")
	require.NoError(t, m.SetBag(id, "provider", map[string]string{"name": "svc"}))
	m.Unlink(id)

	assert.Equal(t, []relation.EventType{relation.EventCreated, relation.EventBroken}, providerEvents)
	assert.Equal(t, []relation.EventType{relation.EventCreated, relation.EventChanged, relation.EventBroken}, requirerEvents)
}
