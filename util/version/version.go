package version

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver"

	"github.com/canonical/mlops-libs/svcinfo"
)

// ErrIncompatible - library version does not satisfy the constraint
var ErrIncompatible = errors.New("incompatible library version")

// LibVersion returns the service info library version, LibAPI is the major
// and LibPatch the minor version.
func LibVersion() *semver.Version {
	v, err := semver.NewVersion(fmt.Sprintf("%d.%d.0", svcinfo.LibAPI, svcinfo.LibPatch))
	if err != nil {
		// constants always form a valid version
		panic(err)
	}
	return v
}

// Check returns ErrIncompatible if version does not satisfy constraint, an
// empty constraint accepts every version.
func Check(version, constraint string) error {
	if constraint == "" {
		return nil
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid constraint %q: %w", constraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatible, v, constraint)
	}
	return nil
}

// CheckLib checks the library version against constraint.
func CheckLib(constraint string) error {
	return Check(LibVersion().String(), constraint)
}
