package kubernetes

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	log "github.com/sirupsen/logrus"
)

// ClientOpts - client options, when running inside a cluster
// it's best to use InCluster option
type ClientOpts struct {
	// if set - kube config options will be ignored
	InCluster  bool
	ConfigPath string
	Master     string
}

// NewClient - creates a kubernetes client from in-cluster or kubeconfig configuration
func NewClient(opts *ClientOpts) (*kubernetes.Clientset, *rest.Config, error) {
	var cfg *rest.Config

	if opts.InCluster {
		var err error
		cfg, err = rest.InClusterConfig()
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("relation.kubernetes: failed to get kubernetes config")
			return nil, nil, err
		}
		log.Info("relation.kubernetes: using in-cluster configuration")
	} else if opts.ConfigPath != "" {
		var err error
		cfg, err = clientcmd.BuildConfigFromFlags(opts.Master, opts.ConfigPath)
		if err != nil {
			log.WithFields(log.Fields{
				"error": err,
				"path":  opts.ConfigPath,
			}).Error("relation.kubernetes: failed to get cmd kubernetes config")
			return nil, nil, err
		}
	} else {
		return nil, nil, fmt.Errorf("kubernetes config is missing")
	}

	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("relation.kubernetes: failed to create kubernetes client")
		return nil, nil, err
	}

	return client, cfg, nil
}
