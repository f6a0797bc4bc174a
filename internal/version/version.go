// Package version provides centralized version information for doccov and
// the versions of the artifact formats it writes.
package version

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X doccov/internal/version.Version=1.0.0 -X doccov/internal/version.Commit=abc123"
var (
	// Version is the semantic version of doccov
	Version = "0.6.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Artifact format versions. Bump when the shape of the written JSON changes.
const (
	OpenPkgFormat = "0.4.0"
	DoccovFormat  = "1.0.0"
	CacheFormat   = "3"
)

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "doccov version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Formats: openpkg " + OpenPkgFormat + ", doccov " + DoccovFormat + ", cache " + CacheFormat
}
