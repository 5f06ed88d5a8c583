package version

import (
	"fmt"
	"runtime"

	"github.com/canonical/mlops-libs/svcinfo"
	"github.com/canonical/mlops-libs/types"
)

// Generic tool info
const (
	ProductName string = "svcinfo"
	APIVersion         = "1"
)

// Revision that was compiled. This will be filled in by the compiler.
var Revision string

// BuildDate is when the binary was compiled.  This will be filled in by the
// compiler.
var BuildDate string

// Version number that is being run at the moment.  Version should use semver.
var Version string

// GetVersion returns version info.
func GetVersion() types.VersionInfo {
	return types.VersionInfo{
		Name:       ProductName,
		Revision:   Revision,
		BuildDate:  BuildDate,
		Version:    Version,
		APIVersion: APIVersion,
		LibVersion: fmt.Sprintf("%d.%d", svcinfo.LibAPI, svcinfo.LibPatch),
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}
