package svcinfo

import (
	"context"
	"errors"

	"github.com/canonical/mlops-libs/relation"
	"github.com/canonical/mlops-libs/types"
)

// Opts - requirer and provider options
type Opts struct {
	// RelationName defaults to types.DefaultRelationName
	RelationName string
	// Schema defaults to DefaultSchema
	Schema *Schema
}

func (o *Opts) relationName() string {
	if o == nil || o.RelationName == "" {
		return types.DefaultRelationName
	}
	return o.RelationName
}

func (o *Opts) schema() Schema {
	if o == nil || o.Schema == nil {
		return DefaultSchema
	}
	return *o.Schema
}

// Requirer - requirer end of the relation
type Requirer struct {
	registry     relation.Registry
	relationName string
	schema       Schema
}

// NewRequirer - creates a requirer reading from registry, opts may be nil
func NewRequirer(registry relation.Registry, opts *Opts) *Requirer {
	return &Requirer{
		registry:     registry,
		relationName: opts.relationName(),
		schema:       opts.schema(),
	}
}

// RelationName returns the relation name the requirer reads from.
func (r *Requirer) RelationName() string {
	return r.relationName
}

// GetData returns the validated remote data bag, holding exactly the
// schema's required attributes.
//
// It returns *RelationMissingError when no application is bound,
// *RelationDataMissingError when the bag is empty or incomplete, and the
// registry's *relation.TooManyRelatedAppsError unmodified when more than one
// application is bound.
func (r *Requirer) GetData(ctx context.Context) (map[string]string, error) {
	rel, err := r.registry.Relation(ctx, r.relationName)
	if err != nil {
		if errors.Is(err, relation.ErrRelationNotFound) {
			return nil, &RelationMissingError{Relation: r.relationName}
		}
		return nil, err
	}

	bag, err := r.registry.Bag(ctx, rel, rel.App)
	if err != nil {
		if errors.Is(err, relation.ErrRelationGone) {
			return nil, &RelationMissingError{Relation: r.relationName}
		}
		return nil, err
	}

	if err := r.schema.Validate(r.relationName, bag); err != nil {
		return nil, err
	}

	data := make(map[string]string, 2)
	for _, attr := range r.schema.RequiredAttributes() {
		data[attr] = bag[attr]
	}
	return data, nil
}

// GetServiceInfo returns the Service name and port published by the
// remote application. Errors are the same as for GetData.
func (r *Requirer) GetServiceInfo(ctx context.Context) (*types.ServiceInfo, error) {
	data, err := r.GetData(ctx)
	if err != nil {
		return nil, err
	}
	info := r.schema.Decode(data)
	return &info, nil
}
