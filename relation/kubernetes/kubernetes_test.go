package kubernetes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core_v1 "k8s.io/api/core/v1"
	meta_v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/canonical/mlops-libs/relation"
	"github.com/canonical/mlops-libs/svcinfo"
	"github.com/canonical/mlops-libs/types"
)

const testNamespace = "kubeflow"

func mustRegistry(t *testing.T, client *fake.Clientset, app string, role types.Role) *Registry {
	reg, err := New(client, &Opts{Namespace: testNamespace, App: app, Role: role})
	require.NoError(t, err)
	return reg
}

func mustLink(t *testing.T, client *fake.Clientset, provider, requirer string) string {
	id, err := Link(context.Background(), client, &LinkOpts{
		Namespace: testNamespace,
		Name:      types.DefaultRelationName,
		Interface: types.DefaultInterfaceName,
		Provider:  provider,
		Requirer:  requirer,
	})
	require.NoError(t, err)
	return id
}

func TestNewValidatesOpts(t *testing.T) {
	client := fake.NewSimpleClientset()

	_, err := New(client, &Opts{App: "app", Role: types.RoleProvider})
	assert.Equal(t, ErrNamespaceNotSpecified, err)

	_, err = New(client, &Opts{Namespace: testNamespace, Role: types.RoleProvider})
	assert.Equal(t, ErrAppNotSpecified, err)

	_, err = New(client, &Opts{Namespace: testNamespace, App: "app"})
	assert.Equal(t, ErrInvalidRole, err)
}

func TestLinkCreatesLabelledConfigMap(t *testing.T) {
	client := fake.NewSimpleClientset()
	id := mustLink(t, client, "mlmd", "kfp-api")

	cm, err := client.CoreV1().ConfigMaps(testNamespace).Get(context.Background(), id, meta_v1.GetOptions{})
	require.NoError(t, err)

	assert.Equal(t, types.DefaultRelationName, cm.Labels[LabelRelation])
	assert.Equal(t, types.DefaultInterfaceName, cm.Labels[LabelInterface])
	assert.Equal(t, "mlmd", cm.Labels[LabelProvider])
	assert.Equal(t, "kfp-api", cm.Labels[LabelRequirer])
	assert.NotEmpty(t, cm.Labels[LabelRelationID])
}

func TestRelationsBothSides(t *testing.T) {
	client := fake.NewSimpleClientset()
	id := mustLink(t, client, "mlmd", "kfp-api")
	ctx := context.Background()

	rels, err := mustRegistry(t, client, "mlmd", types.RoleProvider).Relations(ctx, types.DefaultRelationName)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, id, rels[0].ID)
	assert.Equal(t, "kfp-api", rels[0].App)

	rel, err := mustRegistry(t, client, "kfp-api", types.RoleRequirer).Relation(ctx, types.DefaultRelationName)
	require.NoError(t, err)
	assert.Equal(t, "mlmd", rel.App)

	// requirer label does not match a provider registry for the same app
	rels, err = mustRegistry(t, client, "kfp-api", types.RoleProvider).Relations(ctx, types.DefaultRelationName)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRelationNotFoundAndTooMany(t *testing.T) {
	client := fake.NewSimpleClientset()
	ctx := context.Background()
	reg := mustRegistry(t, client, "kfp-api", types.RoleRequirer)

	_, err := reg.Relation(ctx, types.DefaultRelationName)
	assert.True(t, errors.Is(err, relation.ErrRelationNotFound))

	mustLink(t, client, "app", "kfp-api")
	mustLink(t, client, "app2", "kfp-api")

	_, err = reg.Relation(ctx, types.DefaultRelationName)
	var tooMany *relation.TooManyRelatedAppsError
	require.True(t, errors.As(err, &tooMany))
	assert.ElementsMatch(t, []string{"app", "app2"}, tooMany.Apps)
}

func TestUpdateBag(t *testing.T) {
	client := fake.NewSimpleClientset()
	mustLink(t, client, "mlmd", "kfp-api")
	ctx := context.Background()
	reg := mustRegistry(t, client, "mlmd", types.RoleProvider)

	rel, err := reg.Relation(ctx, types.DefaultRelationName)
	require.NoError(t, err)

	err = reg.UpdateBag(ctx, rel, "kfp-api", map[string]string{"name": "x"})
	assert.True(t, errors.Is(err, relation.ErrNotOwner))

	require.NoError(t, reg.UpdateBag(ctx, rel, "mlmd", map[string]string{"name": "svc", "extra": "kept"}))
	require.NoError(t, reg.UpdateBag(ctx, rel, "mlmd", map[string]string{"name": "metadata-grpc-service", "port": "8080"}))

	cm, err := client.CoreV1().ConfigMaps(testNamespace).Get(ctx, rel.ID, meta_v1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, `{"extra":"kept","name":"metadata-grpc-service","port":"8080"}`, cm.Data["mlmd"])

	bag, err := reg.Bag(ctx, rel, "kfp-api")
	require.NoError(t, err)
	assert.Empty(t, bag)
}

func TestBagRelationGone(t *testing.T) {
	client := fake.NewSimpleClientset()
	id := mustLink(t, client, "mlmd", "kfp-api")
	ctx := context.Background()
	reg := mustRegistry(t, client, "kfp-api", types.RoleRequirer)

	require.NoError(t, Unlink(ctx, client, testNamespace, id))
	// removing twice is fine
	require.NoError(t, Unlink(ctx, client, testNamespace, id))

	_, err := reg.Bag(ctx, &relation.Relation{ID: id}, "mlmd")
	assert.True(t, errors.Is(err, relation.ErrRelationGone))
}

func TestBagInvalidData(t *testing.T) {
	client := fake.NewSimpleClientset(&core_v1.ConfigMap{
		ObjectMeta: meta_v1.ObjectMeta{
			Name:      "broken",
			Namespace: testNamespace,
			Labels: map[string]string{
				LabelRelation: types.DefaultRelationName,
				LabelProvider: "mlmd",
				LabelRequirer: "kfp-api",
			},
		},
		Data: map[string]string{"mlmd": "not-json"},
	})
	reg := mustRegistry(t, client, "kfp-api", types.RoleRequirer)

	_, err := reg.Bag(context.Background(), &relation.Relation{ID: "broken"}, "mlmd")
	assert.Error(t, err)
}

func TestRelationFor(t *testing.T) {
	cm := &core_v1.ConfigMap{
		ObjectMeta: meta_v1.ObjectMeta{
			Name: "k8s-svc-info-1234",
			Labels: map[string]string{
				LabelRelation:  "k8s-svc-info",
				LabelInterface: "k8s-service",
				LabelProvider:  "mlmd",
				LabelRequirer:  "kfp-api",
			},
		},
	}

	rel, ok := RelationFor(cm, "mlmd", types.RoleProvider)
	require.True(t, ok)
	assert.Equal(t, &relation.Relation{ID: "k8s-svc-info-1234", Name: "k8s-svc-info", Interface: "k8s-service", App: "kfp-api"}, rel)

	_, ok = RelationFor(cm, "other", types.RoleRequirer)
	assert.False(t, ok)

	_, ok = RelationFor(&core_v1.ConfigMap{}, "mlmd", types.RoleProvider)
	assert.False(t, ok)
}

func TestServiceInfoRoundTrip(t *testing.T) {
	client := fake.NewSimpleClientset()
	ctx := context.Background()

	provider := svcinfo.NewProvider(mustRegistry(t, client, "mlmd", types.RoleProvider), nil)
	requirer := svcinfo.NewRequirer(mustRegistry(t, client, "kfp-api", types.RoleRequirer), nil)

	_, err := requirer.GetServiceInfo(ctx)
	var relMissing *svcinfo.RelationMissingError
	require.True(t, errors.As(err, &relMissing))

	// nothing bound yet, publishing is a no-op
	require.NoError(t, provider.PublishServiceInfo(ctx, "metadata-grpc-service", "8080"))

	mustLink(t, client, "mlmd", "kfp-api")

	_, err = requirer.GetServiceInfo(ctx)
	var dataMissing *svcinfo.RelationDataMissingError
	require.True(t, errors.As(err, &dataMissing))

	require.NoError(t, provider.PublishServiceInfo(ctx, "metadata-grpc-service", "8080"))

	info, err := requirer.GetServiceInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, &types.ServiceInfo{Name: "metadata-grpc-service", Port: "8080"}, info)
}
