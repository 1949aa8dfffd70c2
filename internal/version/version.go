package version

import "fmt"

// Set at build time via -ldflags "-X github.com/tiroq/screenrec/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func Full() string {
	return fmt.Sprintf("screenrec %s, commit %s, built at %s", Version, Commit, Date)
}
