// Package types holds most of the types shared between the library, the
// relation registries and the host application
package types

import (
	"fmt"
	"strings"
)

// DefaultPort - default port for the host application HTTP server
const DefaultPort = 9310

// DefaultRelationName - default relation name, consistency must be kept
// across the provider and requirer
const DefaultRelationName = "k8s-svc-info"

// DefaultInterfaceName - default interface name of the relation
const DefaultInterfaceName = "k8s-service"

// ServiceInfo - name and port of a Kubernetes Service, as shared
// between provider and requirer
type ServiceInfo struct {
	Name string `json:"name"`
	Port string `json:"port"`
}

func (s ServiceInfo) String() string {
	return s.Name + ":" + s.Port
}

// Role - side of the relation an application is on
type Role int

// Available roles
const (
	RoleUnknown Role = iota
	RoleProvider
	RoleRequirer
)

func (r Role) String() string {
	switch r {
	case RoleProvider:
		return "provider"
	case RoleRequirer:
		return "requirer"
	default:
		return "unknown"
	}
}

// ParseRole - parses role string, returns RoleUnknown and an error for
// anything other than provider/requirer
func ParseRole(role string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "provider", "provides":
		return RoleProvider, nil
	case "requirer", "requires":
		return RoleRequirer, nil
	}
	return RoleUnknown, fmt.Errorf("not a valid role: %q", role)
}

// StatusType - application status, mirrors the statuses a workload
// reports to its operator
type StatusType int

// Available statuses
const (
	StatusUnknown StatusType = iota
	StatusMaintenance
	StatusWaiting
	StatusBlocked
	StatusActive
)

func (s StatusType) String() string {
	switch s {
	case StatusMaintenance:
		return "maintenance"
	case StatusWaiting:
		return "waiting"
	case StatusBlocked:
		return "blocked"
	case StatusActive:
		return "active"
	default:
		return "unknown"
	}
}

// MarshalJSON - status is encoded as its string name
func (s StatusType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Status - current application status together with a message
type Status struct {
	Type    StatusType `json:"type"`
	Message string     `json:"message,omitempty"`
}

func (s Status) String() string {
	if s.Message == "" {
		return s.Type.String()
	}
	return s.Type.String() + ": " + s.Message
}

// VersionInfo describes version and runtime info.
type VersionInfo struct {
	Name       string `json:"name"`
	BuildDate  string `json:"buildDate"`
	Revision   string `json:"revision"`
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
	LibVersion string `json:"libVersion"`
	GoVersion  string `json:"goVersion"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
}
