// Package svcinfo shares Kubernetes Service information (name and port)
// between two applications through a relation data bag.
//
// The provider publishes the Service it knows about into its own data bag of
// every relation bound under the relation name:
//
//	provider := svcinfo.NewProvider(registry, nil)
//	err := provider.PublishServiceInfo(ctx, "metadata-grpc-service", "8080")
//
// The requirer reads and validates the counterpart's data bag:
//
//	requirer := svcinfo.NewRequirer(registry, nil)
//	info, err := requirer.GetServiceInfo(ctx)
//	var missing *svcinfo.RelationDataMissingError
//	if errors.As(err, &missing) {
//		// provider has not published yet
//	}
//
// The default relation name is "k8s-svc-info" with interface "k8s-service".
// If changed, the same name must be used on both ends.
//
// Two data bag schemas exist. RevisedSchema uses "name" and "port" keys and
// is the default, LegacySchema uses "svc_name" and "svc_port". Both ends must
// agree on the schema, mixing them is a deployment error which is reported
// as missing attributes.
package svcinfo

// LibID - unique library identifier, never change it
const LibID = "f5c3f6cc023e40468d6f9a871e8afcd0"

// LibAPI - incremented when introducing breaking changes
const LibAPI = 0

// LibPatch - incremented on every published change, reset when LibAPI changes
const LibPatch = 1
