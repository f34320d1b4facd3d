// Package buildinfo carries the version stamp injected at build time:
//
//	-X 'github.com/m3rciful/meetbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/meetbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/meetbot/core/buildinfo.Date=2026-08-30T12:00:00Z'
//
// Unstamped binaries report "dev (local)".
package buildinfo

var (
	// Version is the semantic version or tag of the build.
	Version = "dev"
	// Commit is the source control revision of the build.
	Commit = "local"
	// Date is the build timestamp in RFC3339 format.
	Date = ""
)

// String renders the stamp in one line for startup output.
func String() string {
	s := Version + " (" + Commit + ")"
	if Date != "" {
		s += " built " + Date
	}
	return s
}
