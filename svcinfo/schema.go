package svcinfo

import (
	"sort"

	"github.com/canonical/mlops-libs/types"
)

// Schema - data bag field naming convention. Field set identity is checked
// by exact key match.
type Schema struct {
	Version string
	NameKey string
	PortKey string
}

// Available schemas
var (
	LegacySchema  = Schema{Version: "v0-legacy", NameKey: "svc_name", PortKey: "svc_port"}
	RevisedSchema = Schema{Version: "v0", NameKey: "name", PortKey: "port"}
)

// DefaultSchema - schema used when none is configured
var DefaultSchema = RevisedSchema

// ParseSchema returns the schema with the given version name.
func ParseSchema(version string) (Schema, bool) {
	switch version {
	case LegacySchema.Version, "legacy":
		return LegacySchema, true
	case RevisedSchema.Version, "revised":
		return RevisedSchema, true
	}
	return Schema{}, false
}

// RequiredAttributes returns the keys a complete data bag holds.
func (s Schema) RequiredAttributes() []string {
	return []string{s.NameKey, s.PortKey}
}

// Encode returns the data bag fields for info.
func (s Schema) Encode(info types.ServiceInfo) map[string]string {
	return map[string]string{
		s.NameKey: info.Name,
		s.PortKey: info.Port,
	}
}

// Decode reads service info from a data bag, missing keys decode as empty
// values. Use Validate first.
func (s Schema) Decode(bag map[string]string) types.ServiceInfo {
	return types.ServiceInfo{
		Name: bag[s.NameKey],
		Port: bag[s.PortKey],
	}
}

// Missing returns the required attributes absent from bag, sorted.
func (s Schema) Missing(bag map[string]string) []string {
	var missing []string
	for _, attr := range s.RequiredAttributes() {
		if _, ok := bag[attr]; !ok {
			missing = append(missing, attr)
		}
	}
	sort.Strings(missing)
	return missing
}

// Validate checks that bag, read from relation relationName, holds the
// complete attribute set.
func (s Schema) Validate(relationName string, bag map[string]string) error {
	if len(bag) == 0 {
		return &RelationDataMissingError{Relation: relationName}
	}

	if missing := s.Missing(bag); len(missing) > 0 {
		return &RelationDataMissingError{Relation: relationName, Missing: missing}
	}
	return nil
}
