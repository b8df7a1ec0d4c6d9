package meta

import (
	"fmt"
	"runtime"
	"strings"
)

// Info describes the build context of the sci binary. The values are set at
// build time by the Go linker, see the vars below.
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
	GoTag     string
}

// These will be filled in using the linker -X flag
var (
	// Version as an arbitrary string
	Version = "dev"

	// Build is the Git sha from when we are building
	Build string

	// Branch is the Git branch that we are building from
	Branch string

	// BuildTimeUTC is the build time in UTC (year/month/day hour:min:sec)
	BuildTimeUTC string

	// GoTag is the Go build tags, see https://golang.org/pkg/go/build/#hdr-Build_Constraints
	GoTag string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   Version,
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		GoTag:     GoTag,
		Platform:  platform,
	}
}

// String renders the info as the one line printed by `sci version`.
func (i Info) String() string {
	fields := []string{"sci " + i.Version}

	if i.Build != "" {
		fields = append(fields, fmt.Sprintf("(%s@%s)", i.Build, i.Branch))
	}

	if i.BuildTime != "" {
		fields = append(fields, "built "+i.BuildTime)
	}

	fields = append(fields, i.Platform, i.GoVersion)

	if i.GoTag != "" {
		fields = append(fields, "tags:"+i.GoTag)
	}

	return strings.Join(fields, " ")
}
