package version

import "runtime/debug"

// version is overridden with -ldflags "-X github.com/vinodismyname/salespulse/pkg/version.version=v1.2.3".
var version = "dev"

// Version returns the module version from build info when the binary was
// built from a tagged module, otherwise the ldflags value.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	return version
}

// Revision returns the VCS commit embedded by the go tool, or "".
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// Set assigns the version when ldflags are not provided.
func Set(v string) {
	if v != "" {
		version = v
	}
}
