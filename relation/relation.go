// Package relation describes the registry a host runtime provides to the
// service info library: named relations between the local application and
// remote applications, and the per application data bags exchanged through them.
package relation

import (
	"context"
	"errors"
	"fmt"
)

// errors
var (
	ErrRelationNotFound = errors.New("relation not found")
	ErrNotOwner         = errors.New("application does not own this data bag")
	ErrRelationGone     = errors.New("relation no longer exists")
)

// TooManyRelatedAppsError - returned by a registry when a single relation
// was requested but more than one remote application is bound under the name
type TooManyRelatedAppsError struct {
	Name string
	Apps []string
}

func (e *TooManyRelatedAppsError) Error() string {
	return fmt.Sprintf("too many remote applications on relation %s: %v", e.Name, e.Apps)
}

// Relation - binding between the local application and one remote application
type Relation struct {
	// ID - unique relation identifier, assigned by the registry
	ID        string `json:"id"`
	Name      string `json:"name"`
	Interface string `json:"interface"`
	// App - remote application name
	App string `json:"app"`
}

func (r *Relation) String() string {
	return fmt.Sprintf("%s:%s/%s", r.Name, r.ID, r.App)
}

// Registry - relation and data bag access the host runtime provides.
// Registries serialize concurrent writers themselves.
type Registry interface {
	// LocalApp returns the local application name, the owner of the
	// bags it may write.
	LocalApp() string

	// Relation returns the single relation bound under name. It returns
	// ErrRelationNotFound when there is none and *TooManyRelatedAppsError
	// when there is more than one.
	Relation(ctx context.Context, name string) (*Relation, error)

	// Relations returns every relation bound under name, possibly none.
	Relations(ctx context.Context, name string) ([]*Relation, error)

	// Bag returns a copy of the data bag app holds in rel. An absent bag
	// is returned as an empty map.
	Bag(ctx context.Context, rel *Relation, app string) (map[string]string, error)

	// UpdateBag merges data into the bag app holds in rel. Only the local
	// application may update its bag.
	UpdateBag(ctx context.Context, rel *Relation, app string, data map[string]string) error
}

// MergeBag - merges update into bag, replacing existing keys and leaving
// the rest untouched. A nil bag is allocated.
func MergeBag(bag, update map[string]string) map[string]string {
	if bag == nil {
		bag = make(map[string]string, len(update))
	}
	for k, v := range update {
		bag[k] = v
	}
	return bag
}

// CopyBag - returns a copy of the bag, never nil
func CopyBag(bag map[string]string) map[string]string {
	c := make(map[string]string, len(bag))
	for k, v := range bag {
		c[k] = v
	}
	return c
}
