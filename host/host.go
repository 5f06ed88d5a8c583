// Package host is the tester application exercising the service info
// library. Depending on its metadata it either publishes a configured
// Kubernetes Service to every related application or reads the Service
// published by its single related application, and reports a status.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/canonical/mlops-libs/metadata"
	"github.com/canonical/mlops-libs/relation"
	"github.com/canonical/mlops-libs/svcinfo"
	"github.com/canonical/mlops-libs/types"
)

var publishCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "svcinfo_publish_total",
		Help: "How many times Service info was published, partitioned by relation name and result.",
	},
	[]string{"relation", "result"},
)

var readCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "svcinfo_read_total",
		Help: "How many times Service info was read, partitioned by relation name and result.",
	},
	[]string{"relation", "result"},
)

func init() {
	prometheus.MustRegister(publishCounter)
	prometheus.MustRegister(readCounter)
}

// errors
var (
	ErrNotProvider = errors.New("application does not provide the relation")
	ErrNotRequirer = errors.New("application does not require the relation")

	ErrIncompleteServiceInfo = errors.New("service name and port are required")
)

// Opts - host options
type Opts struct {
	Metadata *metadata.Metadata
	Registry relation.Registry

	// RelationName defaults to types.DefaultRelationName
	RelationName string
	Schema       *svcinfo.Schema

	// ServiceInfo - Service to publish, providers only
	ServiceInfo types.ServiceInfo

	Log logrus.FieldLogger
}

// Host - tester application
type Host struct {
	name         string
	relationName string
	role         types.Role
	endpoint     metadata.Endpoint

	registry relation.Registry
	libOpts  *svcinfo.Opts
	requirer *svcinfo.Requirer

	log logrus.FieldLogger

	mu       sync.RWMutex
	provider *svcinfo.AutoProvider
	status   types.Status
	remote   *types.ServiceInfo
}

// New - creates a host, the role is taken from the metadata declaration of
// the relation
func New(opts *Opts) (*Host, error) {
	relationName := opts.RelationName
	if relationName == "" {
		relationName = types.DefaultRelationName
	}

	endpoint, role, err := opts.Metadata.Endpoint(relationName)
	if err != nil {
		return nil, err
	}

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	h := &Host{
		name:         opts.Metadata.Name,
		relationName: relationName,
		role:         role,
		endpoint:     endpoint,
		registry:     opts.Registry,
		libOpts:      &svcinfo.Opts{RelationName: relationName, Schema: opts.Schema},
		log: log.WithFields(logrus.Fields{
			"app":      opts.Metadata.Name,
			"relation": relationName,
			"role":     role.String(),
		}),
		status: types.Status{Type: types.StatusMaintenance, Message: "starting"},
	}

	switch role {
	case types.RoleProvider:
		if opts.ServiceInfo.Name == "" || opts.ServiceInfo.Port == "" {
			return nil, fmt.Errorf("%w to provide %s", ErrIncompleteServiceInfo, relationName)
		}
		h.provider = svcinfo.NewAutoProvider(opts.Registry, opts.ServiceInfo, h.libOpts)
	case types.RoleRequirer:
		h.requirer = svcinfo.NewRequirer(opts.Registry, h.libOpts)
	}

	return h, nil
}

// Name returns the application name.
func (h *Host) Name() string {
	return h.name
}

// Role returns the role the application plays in the relation.
func (h *Host) Role() types.Role {
	return h.role
}

// RelationName returns the relation the host exchanges Service info through.
func (h *Host) RelationName() string {
	return h.relationName
}

// Limit returns the maximum number of remote applications declared for the
// relation, 0 when unlimited.
func (h *Host) Limit() int {
	return h.endpoint.Limit
}

// Status returns the current application status.
func (h *Host) Status() types.Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *Host) setStatus(s types.Status) {
	h.mu.Lock()
	previous := h.status
	h.status = s
	h.mu.Unlock()

	if previous != s {
		h.log.WithField("status", s.String()).Info("host: status changed")
	}
}

// Start brings the application up. Providers publish to every already bound
// relation, requirers read the current remote Service.
func (h *Host) Start(ctx context.Context) error {
	switch h.role {
	case types.RoleProvider:
		if err := h.publish(ctx); err != nil {
			return err
		}
		h.setStatus(types.Status{Type: types.StatusActive})
	case types.RoleRequirer:
		h.refresh(ctx)
	}
	return nil
}

// OnRelationEvent reacts to relation events of the host's relation.
func (h *Host) OnRelationEvent(ev *relation.Event) {
	if ev.Relation == nil || ev.Relation.Name != h.relationName {
		return
	}

	h.log.WithFields(logrus.Fields{
		"event":  ev.Type.String(),
		"remote": ev.Relation.App,
		"id":     ev.Relation.ID,
	}).Debug("host: relation event")

	switch h.role {
	case types.RoleProvider:
		// new relations start with an empty bag
		if ev.Type != relation.EventCreated {
			return
		}
		if err := h.publish(context.Background()); err != nil {
			h.log.WithFields(logrus.Fields{
				"error":  err,
				"remote": ev.Relation.App,
			}).Error("host: failed to publish service info")
		}
	case types.RoleRequirer:
		h.refresh(context.Background())
	}
}

func (h *Host) currentProvider() *svcinfo.AutoProvider {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.provider
}

func (h *Host) publish(ctx context.Context) error {
	err := h.currentProvider().Publish(ctx)
	if err != nil {
		publishCounter.WithLabelValues(h.relationName, "error").Inc()
		h.setStatus(types.Status{Type: types.StatusBlocked, Message: "failed to publish service info"})
		return err
	}
	publishCounter.WithLabelValues(h.relationName, "ok").Inc()
	return nil
}

// Publish replaces the provided Service and publishes it to every bound relation.
func (h *Host) Publish(ctx context.Context, info types.ServiceInfo) error {
	if h.role != types.RoleProvider {
		return ErrNotProvider
	}

	if info.Name == "" || info.Port == "" {
		return ErrIncompleteServiceInfo
	}

	h.mu.Lock()
	h.provider = svcinfo.NewAutoProvider(h.registry, info, h.libOpts)
	h.mu.Unlock()

	if err := h.publish(ctx); err != nil {
		return err
	}
	h.setStatus(types.Status{Type: types.StatusActive})
	return nil
}

// ProvidedServiceInfo returns the Service a provider publishes.
func (h *Host) ProvidedServiceInfo() (types.ServiceInfo, error) {
	if h.role != types.RoleProvider {
		return types.ServiceInfo{}, ErrNotProvider
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.provider.ServiceInfo(), nil
}

// ServiceInfo reads the Service published by the related application.
func (h *Host) ServiceInfo(ctx context.Context) (*types.ServiceInfo, error) {
	if h.role != types.RoleRequirer {
		return nil, ErrNotRequirer
	}
	return h.refresh(ctx)
}

// refresh reads the remote Service and updates the status accordingly.
func (h *Host) refresh(ctx context.Context) (*types.ServiceInfo, error) {
	info, err := h.requirer.GetServiceInfo(ctx)

	var (
		relMissing  *svcinfo.RelationMissingError
		dataMissing *svcinfo.RelationDataMissingError
		tooMany     *relation.TooManyRelatedAppsError
	)

	result := "ok"
	status := types.Status{Type: types.StatusActive}
	switch {
	case err == nil:
	case errors.As(err, &relMissing):
		result = "relation_missing"
		status = types.Status{Type: types.StatusBlocked, Message: "missing relation " + h.relationName}
	case errors.As(err, &dataMissing):
		result = "data_missing"
		status = types.Status{Type: types.StatusWaiting, Message: err.Error()}
	case errors.As(err, &tooMany):
		result = "too_many"
		status = types.Status{Type: types.StatusBlocked, Message: err.Error()}
	default:
		result = "error"
		status = types.Status{Type: types.StatusBlocked, Message: "failed to read service info"}
		h.log.WithFields(logrus.Fields{
			"error": err,
		}).Error("host: failed to read service info")
	}
	readCounter.WithLabelValues(h.relationName, result).Inc()

	h.mu.Lock()
	h.remote = info
	h.mu.Unlock()
	h.setStatus(status)

	if info != nil {
		h.log.WithField("service", info.String()).Debug("host: service info read")
	}
	return info, err
}

// LastServiceInfo returns the remote Service from the last successful read,
// nil if the last read failed.
func (h *Host) LastServiceInfo() *types.ServiceInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.remote == nil {
		return nil
	}
	info := *h.remote
	return &info
}
