// Package version exposes build metadata injected at link time:
//
//	-X 'github.com/DavinciDreams/agents-of-empires-sub001/pkg/version.Version=v1.0.0'
//	-X 'github.com/DavinciDreams/agents-of-empires-sub001/pkg/version.CommitHash=abc123'
//	-X 'github.com/DavinciDreams/agents-of-empires-sub001/pkg/version.BuildDate=2026-01-01T00:00:00Z'
package version

import "runtime/debug"

const unknown = "unknown"

var (
	Version    = unknown
	CommitHash = unknown
	BuildDate  = unknown
)

type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

// Get returns the injected build information, falling back to the module
// and VCS data embedded by the Go toolchain.
func Get() Info {
	info := Info{Version: Version, CommitHash: CommitHash, BuildDate: BuildDate}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == unknown && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.CommitHash == unknown {
				info.CommitHash = setting.Value
			}
		case "vcs.time":
			if info.BuildDate == unknown {
				info.BuildDate = setting.Value
			}
		}
	}
	return info
}
