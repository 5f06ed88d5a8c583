// Package memory implements an in-memory relation registry. A Model holds
// every relation of a simulated deployment, each application gets its own
// Registry view on it.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/canonical/mlops-libs/relation"
)

type entry struct {
	id       string
	name     string
	iface    string
	provider string
	requirer string
	bags     map[string]map[string]string
}

// remote returns the counterpart of app, empty if app is not a member
func (e *entry) remote(app string) string {
	switch app {
	case e.provider:
		return e.requirer
	case e.requirer:
		return e.provider
	}
	return ""
}

func (e *entry) relationFor(app string) *relation.Relation {
	return &relation.Relation{
		ID:        e.id,
		Name:      e.name,
		Interface: e.iface,
		App:       e.remote(app),
	}
}

type entries []*entry

func (c entries) Len() int           { return len(c) }
func (c entries) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
func (c entries) Less(i, j int) bool { return c[i].id < c[j].id }

type subscription struct {
	app     string
	handler relation.EventHandler
}

// Model - storage for relations and their data bags, shared by
// all application registries created from it
type Model struct {
	mu            sync.Mutex
	values        entries
	subscriptions []subscription
}

// NewModel - creates an empty model
func NewModel() *Model {
	return &Model{}
}

// Registry - returns a registry view for application app
func (m *Model) Registry(app string) *Registry {
	return &Registry{model: m, app: app}
}

// Subscribe registers h to receive events of relations app is a member of.
func (m *Model) Subscribe(app string, h relation.EventHandler) {
	m.mu.Lock()
	m.subscriptions = append(m.subscriptions, subscription{app: app, handler: h})
	m.mu.Unlock()
}

// Link creates a relation between provider and requirer and returns its ID.
func (m *Model) Link(name, iface, provider, requirer string) string {
	e := &entry{
		id:       uuid.New().String(),
		name:     name,
		iface:    iface,
		provider: provider,
		requirer: requirer,
		bags:     make(map[string]map[string]string),
	}

	m.mu.Lock()
	m.add(e)
	m.mu.Unlock()

	m.notify(relation.EventCreated, e, provider, requirer)
	return e.id
}

// Unlink removes the relation. If the relation is not present the
// operation is a no-op.
func (m *Model) Unlink(id string) {
	m.mu.Lock()
	e := m.get(id)
	if e == nil {
		m.mu.Unlock()
		return
	}
	m.remove(id)
	m.mu.Unlock()

	m.notify(relation.EventBroken, e, e.provider, e.requirer)
}

// SetBag merges data into the bag of app without ownership checks, the way
// the host runtime seeds remote data.
func (m *Model) SetBag(id, app string, data map[string]string) error {
	m.mu.Lock()
	e := m.get(id)
	if e == nil {
		m.mu.Unlock()
		return relation.ErrRelationGone
	}
	e.bags[app] = relation.MergeBag(e.bags[app], data)
	m.mu.Unlock()

	m.notify(relation.EventChanged, e, e.remote(app))
	return nil
}

// get returns the entry with id or nil.
// invariant: m.mu is held and m.values is sorted.
func (m *Model) get(id string) *entry {
	i := sort.Search(len(m.values), func(i int) bool { return m.values[i].id >= id })
	if i < len(m.values) && m.values[i].id == id {
		return m.values[i]
	}
	return nil
}

// add inserts e keeping m.values sorted, replacing an entry with the same id.
func (m *Model) add(e *entry) {
	i := sort.Search(len(m.values), func(i int) bool { return m.values[i].id >= e.id })
	if i < len(m.values) && m.values[i].id == e.id {
		m.values[i] = e
		return
	}
	m.values = append(m.values, e)
	sort.Sort(m.values)
}

func (m *Model) remove(id string) {
	i := sort.Search(len(m.values), func(i int) bool { return m.values[i].id >= id })
	if i < len(m.values) && m.values[i].id == id {
		m.values = append(m.values[:i], m.values[i+1:]...)
	}
}

func (m *Model) notify(t relation.EventType, e *entry, apps ...string) {
	m.mu.Lock()
	var targets []subscription
	for _, s := range m.subscriptions {
		for _, app := range apps {
			if s.app == app && app != "" {
				targets = append(targets, s)
			}
		}
	}
	m.mu.Unlock()

	for _, s := range targets {
		s.handler.OnRelationEvent(&relation.Event{Type: t, Relation: e.relationFor(s.app)})
	}
}

// Registry - relation.Registry view of a Model for a single application
type Registry struct {
	model *Model
	app   string
}

var _ relation.Registry = &Registry{}

// LocalApp returns the application this view belongs to.
func (r *Registry) LocalApp() string {
	return r.app
}

// Relations returns all relations named name the application is a member of.
func (r *Registry) Relations(ctx context.Context, name string) ([]*relation.Relation, error) {
	r.model.mu.Lock()
	defer r.model.mu.Unlock()

	var rels []*relation.Relation
	for _, e := range r.model.values {
		if e.name != name || e.remote(r.app) == "" {
			continue
		}
		rels = append(rels, e.relationFor(r.app))
	}
	return rels, nil
}

// Relation returns the single relation named name.
func (r *Registry) Relation(ctx context.Context, name string) (*relation.Relation, error) {
	rels, err := r.Relations(ctx, name)
	if err != nil {
		return nil, err
	}
	switch len(rels) {
	case 0:
		return nil, relation.ErrRelationNotFound
	case 1:
		return rels[0], nil
	}

	apps := make([]string, 0, len(rels))
	for _, rel := range rels {
		apps = append(apps, rel.App)
	}
	return nil, &relation.TooManyRelatedAppsError{Name: name, Apps: apps}
}

// Bag returns a copy of app's bag in rel.
func (r *Registry) Bag(ctx context.Context, rel *relation.Relation, app string) (map[string]string, error) {
	r.model.mu.Lock()
	defer r.model.mu.Unlock()

	e := r.model.get(rel.ID)
	if e == nil {
		return nil, relation.ErrRelationGone
	}
	return relation.CopyBag(e.bags[app]), nil
}

// UpdateBag merges data into the application's own bag in rel.
func (r *Registry) UpdateBag(ctx context.Context, rel *relation.Relation, app string, data map[string]string) error {
	if app != r.app {
		return relation.ErrNotOwner
	}
	return r.model.SetBag(rel.ID, app, data)
}
