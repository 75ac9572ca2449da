// Package config loads acfgen settings from a YAML file and ACFGEN_ environment
// variables.
package config

// Default configuration values for acfgen.
const (
	// DefaultCommand is the SteamCMD command line, split with shell rules.
	DefaultCommand = "steamcmd"

	// DefaultReferenceApp is the always-available app updated by the priming pass.
	DefaultReferenceApp = "4"

	// DefaultSteamappsDir is where manifests are written when none is configured.
	DefaultSteamappsDir = "."

	// DefaultPlatform is the OS depots are filtered against.
	DefaultPlatform = "windows"

	// DefaultBranch selects build and depot manifests.
	DefaultBranch = "public"

	// DefaultWorkers bounds parallel manifest writes.
	DefaultWorkers = 4

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"
)

// DefaultCacheDirs are removed from the SteamCMD install dir before each run.
var DefaultCacheDirs = []string{"appcache"}
