package workgroup

import (
	"errors"
	"testing"
)

func TestGroupRunWithNoFunctions(t *testing.T) {
	var g Group
	if err := g.Run(); err != nil {
		t.Errorf("expected nil error, got: %s", err)
	}
}

func TestGroupFirstReturnStopsOthers(t *testing.T) {
	var g Group

	stopped := make(chan struct{})
	g.AddFunc(func(stop <-chan struct{}) {
		<-stop
		close(stopped)
	})
	g.Add(func(stop <-chan struct{}) error {
		return errors.New("first")
	})

	err := g.Run()
	if err == nil || err.Error() != "first" {
		t.Errorf("expected first error, got: %v", err)
	}

	select {
	case <-stopped:
	default:
		t.Errorf("expected blocking function to be stopped")
	}
}
