package version

import "runtime/debug"

// Version is the module version of the running binary
var Version string = "unable to get version"

func init() {
	inf, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	Version = inf.Main.Version
}
