package constants

// DefaultNamespace - namespace holding relation configmaps when none is set
const DefaultNamespace = "kubeflow"

// DefaultMetadataPath - default application metadata location
const DefaultMetadataPath = "metadata.yaml"

// EnvDebug - set to "true" to enable debug logging
const EnvDebug = "DEBUG"

// kubernetes config, if empty - will default to InCluster
const EnvKubernetesConfig = "KUBERNETES_CONFIG"

// application config
const (
	EnvNamespace     = "NAMESPACE"
	EnvAppName       = "APP_NAME"
	EnvMetadata      = "METADATA"
	EnvRelationName  = "RELATION_NAME"
	EnvSchema        = "SCHEMA"
	EnvServiceName   = "SERVICE_NAME"
	EnvServicePort   = "SERVICE_PORT"
	EnvLibConstraint = "LIB_CONSTRAINT"
	EnvPort          = "PORT"
)
