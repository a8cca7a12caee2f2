package version

import "fmt"

// BuildDate is the date when the binary was built
var BuildDate string

// GitCommit is the commit hash when the binary was built
var GitCommit string

// Version is the version of the binary
var Version string

// String renders the build information on one line.
func String() string {
	return fmt.Sprintf("Version: %s - Commit: %s - Date: %s", Version, GitCommit, BuildDate)
}
