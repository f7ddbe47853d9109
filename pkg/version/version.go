package version

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/switchtrace/switchtrace/pkg/version.Version=v1.0.0 \
//	  -X github.com/switchtrace/switchtrace/pkg/version.GitCommit=abc1234 \
//	  -X github.com/switchtrace/switchtrace/pkg/version.BuildDate=2026-01-01T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string for display.
func Info() string {
	return Version + " (" + GitCommit + ") built " + BuildDate
}

// String returns the one-line version banner for tool.
func String(tool string) string {
	if Version == "dev" {
		return tool + " dev build (set version via -ldflags, see pkg/version)"
	}
	return tool + " " + Info()
}
