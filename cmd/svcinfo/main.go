package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	kingpin "github.com/alecthomas/kingpin/v2"
	kube "k8s.io/client-go/kubernetes"

	"github.com/canonical/mlops-libs/constants"
	"github.com/canonical/mlops-libs/host"
	"github.com/canonical/mlops-libs/internal/k8s"
	"github.com/canonical/mlops-libs/internal/workgroup"
	"github.com/canonical/mlops-libs/metadata"
	"github.com/canonical/mlops-libs/pkg/http"
	"github.com/canonical/mlops-libs/relation"
	relk8s "github.com/canonical/mlops-libs/relation/kubernetes"
	"github.com/canonical/mlops-libs/svcinfo"
	"github.com/canonical/mlops-libs/types"
	"github.com/canonical/mlops-libs/util/timeutil"
	libversion "github.com/canonical/mlops-libs/util/version"
	"github.com/canonical/mlops-libs/version"

	log "github.com/sirupsen/logrus"
)

func main() {
	ver := version.GetVersion()

	inCluster := kingpin.Flag("incluster", "use in cluster configuration (defaults to 'true'), use '--no-incluster' if running outside of the cluster").Default("true").Bool()
	kubeconfig := kingpin.Flag("kubeconfig", "path to kubeconfig (if not in running inside a cluster)").Default(filepath.Join(os.Getenv("HOME"), ".kube", "config")).Envar(constants.EnvKubernetesConfig).String()
	namespace := kingpin.Flag("namespace", "namespace holding relation configmaps").Default(constants.DefaultNamespace).Envar(constants.EnvNamespace).String()
	metadataPath := kingpin.Flag("metadata", "path to application metadata").Default(constants.DefaultMetadataPath).Envar(constants.EnvMetadata).ExistingFile()
	appName := kingpin.Flag("app", "application name, defaults to the metadata name").Envar(constants.EnvAppName).String()
	relationName := kingpin.Flag("relation", "relation name").Default(types.DefaultRelationName).Envar(constants.EnvRelationName).String()
	schemaName := kingpin.Flag("schema", "relation data schema, 'v0' or 'v0-legacy'").Default(svcinfo.DefaultSchema.Version).Envar(constants.EnvSchema).String()
	serviceName := kingpin.Flag("service-name", "published Service name (providers only)").Envar(constants.EnvServiceName).String()
	servicePort := kingpin.Flag("service-port", "published Service port (providers only)").Envar(constants.EnvServicePort).String()
	libConstraint := kingpin.Flag("lib-constraint", "semver constraint the service info library version must satisfy").Envar(constants.EnvLibConstraint).String()
	link := kingpin.Flag("link", "remote application to create the relation with if not yet related").String()
	port := kingpin.Flag("port", "http server port").Default("9310").Envar(constants.EnvPort).Int()
	debug := kingpin.Flag("debug", "enable debug logging").Envar(constants.EnvDebug).Bool()

	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version(ver.Version)
	kingpin.CommandLine.Help = "Shares Kubernetes Service info between related applications."
	kingpin.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	log.WithFields(log.Fields{
		"os":          ver.OS,
		"build_date":  ver.BuildDate,
		"revision":    ver.Revision,
		"version":     ver.Version,
		"lib_version": ver.LibVersion,
		"go_version":  ver.GoVersion,
		"arch":        ver.Arch,
	}).Info("svcinfo starting...")

	if err := libversion.CheckLib(*libConstraint); err != nil {
		log.WithFields(log.Fields{
			"error":      err,
			"constraint": *libConstraint,
		}).Fatal("main: library version check failed")
	}

	md, err := metadata.Load(*metadataPath)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
			"path":  *metadataPath,
		}).Fatal("main: failed to load metadata")
	}
	if *appName != "" {
		md.Name = *appName
	}

	endpoint, role, err := md.Endpoint(*relationName)
	if err != nil {
		log.WithFields(log.Fields{
			"error":    err,
			"relation": *relationName,
		}).Fatal("main: relation is not declared")
	}

	schema, ok := svcinfo.ParseSchema(*schemaName)
	if !ok {
		log.WithFields(log.Fields{
			"schema": *schemaName,
		}).Fatal("main: unknown schema")
	}

	client, _, err := relk8s.NewClient(&relk8s.ClientOpts{
		InCluster:  *inCluster,
		ConfigPath: *kubeconfig,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("main: failed to create kubernetes client")
	}

	registry, err := relk8s.New(client, &relk8s.Opts{
		Namespace: *namespace,
		App:       md.Name,
		Role:      role,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("main: failed to create relation registry")
	}

	h, err := host.New(&host.Opts{
		Metadata:     md,
		Registry:     registry,
		RelationName: *relationName,
		Schema:       &schema,
		ServiceInfo:  types.ServiceInfo{Name: *serviceName, Port: *servicePort},
		Log:          log.WithField("context", "host"),
	})
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("main: failed to create host")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *link != "" {
		// API server may not be reachable yet
		err := timeutil.Retry(ctx, 5, time.Second, 10*time.Second, func() error {
			return ensureLinked(ctx, client, registry, &relk8s.LinkOpts{
				Namespace: *namespace,
				Name:      *relationName,
				Interface: endpoint.Interface,
			}, role, *link)
		})
		if err != nil {
			log.WithFields(log.Fields{
				"error":  err,
				"remote": *link,
			}).Fatal("main: failed to link applications")
		}
	}

	var g workgroup.Group

	t := &k8s.Translator{
		FieldLogger: log.WithField("context", "translator"),
		App:         md.Name,
		Role:        role,
		Handler:     h,
	}

	buf := k8s.NewBuffer(&g, t, log.WithField("context", "buffer"), 128)
	if err := k8s.WatchRelations(&g, client, *namespace, log.WithField("context", "watch"), buf); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("main: failed to watch relations")
	}

	if err := h.Start(ctx); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("main: host failed to start")
	}

	srv := http.NewServer(&http.Opts{
		Port:      *port,
		Host:      h,
		Relations: t,
	})
	g.Add(func(stop <-chan struct{}) error {
		go func() {
			<-stop
			srv.Stop()
		}()
		return srv.Start()
	})

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	g.AddFunc(func(stop <-chan struct{}) {
		select {
		case <-signalChan:
			log.Info("received an interrupt, shutting down...")
		case <-stop:
		}
		cancel()
	})

	if err := g.Run(); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("main: stopped with an error")
	}
}

// ensureLinked creates the relation with remote unless the local application
// is already related to it.
func ensureLinked(ctx context.Context, client kube.Interface, registry relation.Registry, opts *relk8s.LinkOpts, role types.Role, remote string) error {
	rels, err := registry.Relations(ctx, opts.Name)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if rel.App == remote {
			log.WithFields(log.Fields{
				"relation": rel.String(),
			}).Info("main: applications already related")
			return nil
		}
	}

	switch role {
	case types.RoleProvider:
		opts.Provider, opts.Requirer = registry.LocalApp(), remote
	case types.RoleRequirer:
		opts.Provider, opts.Requirer = remote, registry.LocalApp()
	}
	_, err = relk8s.Link(ctx, client, opts)
	return err
}
