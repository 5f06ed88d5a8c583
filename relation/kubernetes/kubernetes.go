// Package kubernetes implements a relation registry on top of Kubernetes
// ConfigMaps. Every relation is a single ConfigMap labelled with the relation
// name, interface and the two member applications. Each application's data
// bag is stored JSON encoded under the application's name.
package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	core_v1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	meta_v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/util/retry"

	"github.com/canonical/mlops-libs/relation"
	"github.com/canonical/mlops-libs/types"
	"github.com/canonical/mlops-libs/util/codecs"

	log "github.com/sirupsen/logrus"
)

// ConfigMap labels
const (
	LabelRelation   = "svcinfo.mlops/relation"
	LabelInterface  = "svcinfo.mlops/interface"
	LabelProvider   = "svcinfo.mlops/provider"
	LabelRequirer   = "svcinfo.mlops/requirer"
	LabelRelationID = "svcinfo.mlops/relation-id"
)

// errors
var (
	ErrNamespaceNotSpecified = errors.New("namespace not specified")
	ErrAppNotSpecified       = errors.New("application not specified")
	ErrInvalidRole           = errors.New("role must be provider or requirer")
)

// Opts - registry options
type Opts struct {
	Namespace string
	// App - local application name
	App  string
	Role types.Role
}

// Registry - ConfigMap backed relation registry for a single application
type Registry struct {
	client     kubernetes.Interface
	namespace  string
	app        string
	role       types.Role
	serializer codecs.Serializer
}

var _ relation.Registry = &Registry{}

// New - creates a registry for opts.App acting as opts.Role
func New(client kubernetes.Interface, opts *Opts) (*Registry, error) {
	if opts.Namespace == "" {
		return nil, ErrNamespaceNotSpecified
	}
	if opts.App == "" {
		return nil, ErrAppNotSpecified
	}
	if roleLabel(opts.Role) == "" {
		return nil, ErrInvalidRole
	}

	return &Registry{
		client:     client,
		namespace:  opts.Namespace,
		app:        opts.App,
		role:       opts.Role,
		serializer: codecs.DefaultSerializer(),
	}, nil
}

func roleLabel(role types.Role) string {
	switch role {
	case types.RoleProvider:
		return LabelProvider
	case types.RoleRequirer:
		return LabelRequirer
	}
	return ""
}

func remoteRoleLabel(role types.Role) string {
	switch role {
	case types.RoleProvider:
		return LabelRequirer
	case types.RoleRequirer:
		return LabelProvider
	}
	return ""
}

// RelationFor converts a relation ConfigMap into the relation as seen by app
// acting as role. It returns false when the ConfigMap is not a relation app
// is a member of.
func RelationFor(cm *core_v1.ConfigMap, app string, role types.Role) (*relation.Relation, bool) {
	lbs := cm.GetLabels()
	if lbs[LabelRelation] == "" || lbs[roleLabel(role)] != app || roleLabel(role) == "" {
		return nil, false
	}
	return &relation.Relation{
		ID:        cm.GetName(),
		Name:      lbs[LabelRelation],
		Interface: lbs[LabelInterface],
		App:       lbs[remoteRoleLabel(role)],
	}, true
}

// Namespace returns the namespace relation ConfigMaps live in.
func (r *Registry) Namespace() string {
	return r.namespace
}

// Role returns the role of the local application.
func (r *Registry) Role() types.Role {
	return r.role
}

// LocalApp returns the local application name.
func (r *Registry) LocalApp() string {
	return r.app
}

// Relations returns every relation named name the local application is a
// member of, ordered by ID.
func (r *Registry) Relations(ctx context.Context, name string) ([]*relation.Relation, error) {
	selector := labels.SelectorFromSet(labels.Set{
		LabelRelation:     name,
		roleLabel(r.role): r.app,
	})

	list, err := r.client.CoreV1().ConfigMaps(r.namespace).List(ctx, meta_v1.ListOptions{
		LabelSelector: selector.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list relations %s: %w", name, err)
	}

	var rels []*relation.Relation
	for i := range list.Items {
		rel, ok := RelationFor(&list.Items[i], r.app, r.role)
		if !ok {
			continue
		}
		rels = append(rels, rel)
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].ID < rels[j].ID })
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

func (r *Registry) getConfigMap(ctx context.Context, id string) (*core_v1.ConfigMap, error) {
	cm, err := r.client.CoreV1().ConfigMaps(r.namespace).Get(ctx, id, meta_v1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, relation.ErrRelationGone
		}
		return nil, err
	}
	return cm, nil
}

// Bag returns a copy of app's data bag in rel.
func (r *Registry) Bag(ctx context.Context, rel *relation.Relation, app string) (map[string]string, error) {
	cm, err := r.getConfigMap(ctx, rel.ID)
	if err != nil {
		return nil, err
	}

	bag, err := codecs.DecodeBag(r.serializer, cm.Data[app])
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s data bag in relation %s: %w", app, rel.ID, err)
	}
	return bag, nil
}

// UpdateBag merges data into the local application's bag in rel. Conflicting
// concurrent writes are retried with the latest ConfigMap version.
func (r *Registry) UpdateBag(ctx context.Context, rel *relation.Relation, app string, data map[string]string) error {
	if app != r.app {
		return relation.ErrNotOwner
	}

	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		cm, err := r.getConfigMap(ctx, rel.ID)
		if err != nil {
			return err
		}

		bag, err := codecs.DecodeBag(r.serializer, cm.Data[app])
		if err != nil {
			return fmt.Errorf("failed to decode %s data bag in relation %s: %w", app, rel.ID, err)
		}

		encoded, err := codecs.EncodeBag(r.serializer, relation.MergeBag(bag, data))
		if err != nil {
			return err
		}

		if cm.Data == nil {
			cm.Data = make(map[string]string)
		}
		cm.Data[app] = encoded

		_, err = r.client.CoreV1().ConfigMaps(r.namespace).Update(ctx, cm, meta_v1.UpdateOptions{})
		if apierrors.IsConflict(err) {
			log.WithFields(log.Fields{
				"relation": rel.ID,
				"app":      app,
			}).Debug("relation.kubernetes: conflict while updating data bag, retrying")
		}
		return err
	})
}

// LinkOpts - relation to create
type LinkOpts struct {
	Namespace string
	Name      string
	Interface string
	Provider  string
	Requirer  string
}

// Link creates the relation ConfigMap binding provider and requirer and
// returns the relation ID.
func Link(ctx context.Context, client kubernetes.Interface, opts *LinkOpts) (string, error) {
	if opts.Namespace == "" {
		return "", ErrNamespaceNotSpecified
	}
	if opts.Provider == "" || opts.Requirer == "" {
		return "", ErrAppNotSpecified
	}

	relationID := uuid.New().String()
	cm := &core_v1.ConfigMap{
		ObjectMeta: meta_v1.ObjectMeta{
			Name: fmt.Sprintf("%s-%s", strings.ToLower(opts.Name), relationID[:8]),
			Labels: map[string]string{
				LabelRelation:   opts.Name,
				LabelInterface:  opts.Interface,
				LabelProvider:   opts.Provider,
				LabelRequirer:   opts.Requirer,
				LabelRelationID: relationID,
			},
		},
		Data: map[string]string{},
	}

	created, err := client.CoreV1().ConfigMaps(opts.Namespace).Create(ctx, cm, meta_v1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create relation %s: %w", opts.Name, err)
	}

	log.WithFields(log.Fields{
		"relation":  opts.Name,
		"id":        created.Name,
		"provider":  opts.Provider,
		"requirer":  opts.Requirer,
		"namespace": opts.Namespace,
	}).Info("relation.kubernetes: relation created")

	return created.Name, nil
}

// Unlink removes the relation ConfigMap. Removing a relation that does not
// exist is not an error.
func Unlink(ctx context.Context, client kubernetes.Interface, namespace, id string) error {
	err := client.CoreV1().ConfigMaps(namespace).Delete(ctx, id, meta_v1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to remove relation %s: %w", id, err)
	}
	return nil
}
