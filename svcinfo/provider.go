package svcinfo

import (
	"context"
	"errors"
	"fmt"

	"github.com/canonical/mlops-libs/relation"
	"github.com/canonical/mlops-libs/types"
)

// Provider - provider end of the relation
type Provider struct {
	registry     relation.Registry
	relationName string
	schema       Schema
}

// NewProvider - creates a provider writing through registry, opts may be nil
func NewProvider(registry relation.Registry, opts *Opts) *Provider {
	return &Provider{
		registry:     registry,
		relationName: opts.relationName(),
		schema:       opts.schema(),
	}
}

// RelationName returns the relation name the provider publishes to.
func (p *Provider) RelationName() string {
	return p.relationName
}

// PublishServiceInfo writes name and port into the local application's data
// bag of every relation bound under the relation name. Existing keys are
// overwritten, other keys are left untouched. It succeeds without effect
// when nothing is bound.
func (p *Provider) PublishServiceInfo(ctx context.Context, name, port string) error {
	return p.SendData(ctx, types.ServiceInfo{Name: name, Port: port})
}

// SendData - same as PublishServiceInfo
func (p *Provider) SendData(ctx context.Context, info types.ServiceInfo) error {
	rels, err := p.registry.Relations(ctx, p.relationName)
	if err != nil {
		return err
	}

	data := p.schema.Encode(info)
	app := p.registry.LocalApp()
	for _, rel := range rels {
		err := p.registry.UpdateBag(ctx, rel, app, data)
		if err != nil {
			// removed after listing, same as never bound
			if errors.Is(err, relation.ErrRelationGone) {
				continue
			}
			return fmt.Errorf("failed to update relation %s data: %w", rel, err)
		}
	}
	return nil
}

// AutoProvider - publishes a fixed Service whenever a relation is created
type AutoProvider struct {
	*Provider

	info types.ServiceInfo

	// OnError, if set, receives publishing errors of event driven publishes
	OnError func(ev *relation.Event, err error)
}

// NewAutoProvider - creates an auto provider publishing info, opts may be nil
func NewAutoProvider(registry relation.Registry, info types.ServiceInfo, opts *Opts) *AutoProvider {
	return &AutoProvider{
		Provider: NewProvider(registry, opts),
		info:     info,
	}
}

// ServiceInfo returns the published Service.
func (a *AutoProvider) ServiceInfo() types.ServiceInfo {
	return a.info
}

// Publish writes the configured Service into every bound relation.
func (a *AutoProvider) Publish(ctx context.Context) error {
	return a.SendData(ctx, a.info)
}

// OnRelationEvent publishes on relation creation under the provider's
// relation name, other events are ignored.
func (a *AutoProvider) OnRelationEvent(ev *relation.Event) {
	if ev.Type != relation.EventCreated || ev.Relation == nil || ev.Relation.Name != a.relationName {
		return
	}
	if err := a.Publish(context.Background()); err != nil && a.OnError != nil {
		a.OnError(ev, err)
	}
}
