package k8s

import (
	"time"

	"github.com/sirupsen/logrus"

	meta_v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/cache"

	"github.com/canonical/mlops-libs/internal/workgroup"
	relk8s "github.com/canonical/mlops-libs/relation/kubernetes"
)

const resyncPeriod = 30 * time.Minute

// WatchRelations creates a SharedInformer for relation ConfigMaps in namespace
// and registers it with g.
func WatchRelations(g *workgroup.Group, client kubernetes.Interface, namespace string, log logrus.FieldLogger, rs ...cache.ResourceEventHandler) error {
	factory := informers.NewSharedInformerFactoryWithOptions(client, resyncPeriod,
		informers.WithNamespace(namespace),
		informers.WithTweakListOptions(func(opts *meta_v1.ListOptions) {
			opts.LabelSelector = relk8s.LabelRelation
		}),
	)

	sw := factory.Core().V1().ConfigMaps().Informer()
	for _, r := range rs {
		if _, err := sw.AddEventHandler(r); err != nil {
			return err
		}
	}

	g.AddFunc(func(stop <-chan struct{}) {
		log := log.WithFields(logrus.Fields{
			"resource":  "configmaps",
			"namespace": namespace,
		})
		log.Println("started")
		defer log.Println("stopped")
		sw.Run(stop)
	})
	return nil
}

type buffer struct {
	ev chan interface{}
	logrus.StdLogger
	rh cache.ResourceEventHandler
}

type addEvent struct {
	obj             interface{}
	isInInitialList bool
}

type updateEvent struct {
	oldObj, newObj interface{}
}

type deleteEvent struct {
	obj interface{}
}

// NewBuffer returns a ResourceEventHandler which buffers and serialises
// ResourceEventHandler events, so rh never runs concurrently with itself.
func NewBuffer(g *workgroup.Group, rh cache.ResourceEventHandler, log logrus.FieldLogger, size int) cache.ResourceEventHandler {
	buf := &buffer{
		ev:        make(chan interface{}, size),
		StdLogger: log.WithField("context", "buffer"),
		rh:        rh,
	}
	g.AddFunc(buf.loop)
	return buf
}

func (b *buffer) loop(stop <-chan struct{}) {
	b.Println("started")
	defer b.Println("stopped")

	for {
		select {
		case ev := <-b.ev:
			b.dispatch(ev)
		case <-stop:
			return
		}
	}
}

func (b *buffer) dispatch(ev interface{}) {
	switch ev := ev.(type) {
	case *addEvent:
		b.rh.OnAdd(ev.obj, ev.isInInitialList)
	case *updateEvent:
		b.rh.OnUpdate(ev.oldObj, ev.newObj)
	case *deleteEvent:
		b.rh.OnDelete(ev.obj)
	default:
		b.Printf("unhandled event type: %T: %v", ev, ev)
	}
}

func (b *buffer) OnAdd(obj interface{}, isInInitialList bool) {
	b.send(&addEvent{obj: obj, isInInitialList: isInInitialList})
}

func (b *buffer) OnUpdate(oldObj, newObj interface{}) {
	b.send(&updateEvent{oldObj, newObj})
}

func (b *buffer) OnDelete(obj interface{}) {
	b.send(&deleteEvent{obj})
}

func (b *buffer) send(ev interface{}) {
	select {
	case b.ev <- ev:
		// all good
	default:
		b.Printf("event channel is full, len: %v, cap: %v", len(b.ev), cap(b.ev))
		b.ev <- ev
	}
}
