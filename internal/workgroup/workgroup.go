package workgroup

import "sync"

// Group manages a set of goroutines with related lifetimes.
type Group struct {
	fn []func(<-chan struct{}) error
}

// Add adds a function to the Group. Must be called before Run.
func (g *Group) Add(fn func(<-chan struct{}) error) {
	g.fn = append(g.fn, fn)
}

// AddFunc adds a function that cannot fail.
func (g *Group) AddFunc(fn func(<-chan struct{})) {
	g.Add(func(stop <-chan struct{}) error {
		fn(stop)
		return nil
	})
}

// Run executes each function registered with Add in its own goroutine.
// Run blocks until each function has returned.
// The first function to return will trigger the closure of the channel
// passed to each function, who should in turn, return. The error of the
// first function is returned.
func (g *Group) Run() error {
	if len(g.fn) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(len(g.fn))

	stop := make(chan struct{})
	result := make(chan error, len(g.fn))
	for _, fn := range g.fn {
		go func(fn func(<-chan struct{}) error) {
			defer wg.Done()
			result <- fn(stop)
		}(fn)
	}

	err := <-result
	close(stop)
	wg.Wait()
	return err
}
