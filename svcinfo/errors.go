package svcinfo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRelation matches every relation error returned by this package:
//
//	if errors.Is(err, svcinfo.ErrRelation) { ... }
var ErrRelation = errors.New("k8s service info relation error")

// RelationMissingError - no remote application is bound under the relation name
type RelationMissingError struct {
	Relation string
}

func (e *RelationMissingError) Error() string {
	return fmt.Sprintf("no relation present under name %s", e.Relation)
}

// Is reports whether target is ErrRelation.
func (e *RelationMissingError) Is(target error) bool {
	return target == ErrRelation
}

// RelationDataMissingError - the remote data bag is empty or incomplete
type RelationDataMissingError struct {
	Relation string
	// Missing - sorted missing attributes, empty when the whole bag is
	Missing []string
}

func (e *RelationDataMissingError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("no data found in relation %s data bag.", e.Relation)
	}
	return fmt.Sprintf("missing attributes: ['%s'] in relation %s", strings.Join(e.Missing, "', '"), e.Relation)
}

// Is reports whether target is ErrRelation.
func (e *RelationDataMissingError) Is(target error) bool {
	return target == ErrRelation
}
