// Package version holds build metadata set with
// -ldflags "-X github.com/PoYaSharonLin/Sparko-api/internal/version.Version=...".
package version

import "fmt"

//nolint:revive // overwritten by the linker
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for logs and `sparko version`.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
