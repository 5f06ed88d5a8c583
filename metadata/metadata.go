// Package metadata reads application metadata: the application name and the
// relations it provides and requires.
//
//	name: requirer-test-charm
//	requires:
//	  k8s-svc-info:
//	    interface: k8s-service
//	    limit: 1
package metadata

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/canonical/mlops-libs/types"
)

// errors
var (
	ErrNameMissing      = errors.New("application name missing")
	ErrRelationNotFound = errors.New("relation not declared in metadata")
)

// Endpoint - declared relation endpoint
type Endpoint struct {
	Interface string `json:"interface"`
	// Limit - maximum number of remote applications, 0 means unlimited
	Limit int `json:"limit,omitempty"`
}

// Metadata - application metadata
type Metadata struct {
	Name     string              `json:"name"`
	Summary  string              `json:"summary,omitempty"`
	Provides map[string]Endpoint `json:"provides,omitempty"`
	Requires map[string]Endpoint `json:"requires,omitempty"`
}

// Parse parses and validates YAML metadata.
func Parse(data []byte) (*Metadata, error) {
	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := md.Validate(); err != nil {
		return nil, err
	}
	return &md, nil
}

// Load reads metadata from a file.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Validate checks the name is set, every endpoint names an interface and no
// relation is both provided and required.
func (m *Metadata) Validate() error {
	if m.Name == "" {
		return ErrNameMissing
	}
	for name, ep := range m.Provides {
		if ep.Interface == "" {
			return fmt.Errorf("provided relation %s has no interface", name)
		}
		if _, ok := m.Requires[name]; ok {
			return fmt.Errorf("relation %s is both provided and required", name)
		}
	}
	for name, ep := range m.Requires {
		if ep.Interface == "" {
			return fmt.Errorf("required relation %s has no interface", name)
		}
		if ep.Limit < 0 {
			return fmt.Errorf("required relation %s has a negative limit", name)
		}
	}
	return nil
}

// Endpoint returns the declared endpoint of relation name and the role the
// application plays in it.
func (m *Metadata) Endpoint(name string) (Endpoint, types.Role, error) {
	if ep, ok := m.Provides[name]; ok {
		return ep, types.RoleProvider, nil
	}
	if ep, ok := m.Requires[name]; ok {
		return ep, types.RoleRequirer, nil
	}
	return Endpoint{}, types.RoleUnknown, fmt.Errorf("%w: %s", ErrRelationNotFound, name)
}

// Relations returns the names of every declared relation, sorted.
func (m *Metadata) Relations() []string {
	names := make([]string, 0, len(m.Provides)+len(m.Requires))
	for name := range m.Provides {
		names = append(names, name)
	}
	for name := range m.Requires {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal encodes metadata as YAML.
func (m *Metadata) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}
