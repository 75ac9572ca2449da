// Package manifest derives Steam appmanifest records from decoded app info
// and persists them as appmanifest_<id>.acf files.
package manifest

import (
	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
)

// Fixed administrative values written into every manifest.
const (
	Universe   = 1
	StateFlags = 4
	LastOwner  = 2009
)

// DefaultPlatform is the target OS used when Options.Platform is empty.
const DefaultPlatform = "windows"

// InstalledDepot is one entry of the InstalledDepots block.
type InstalledDepot struct {
	ID       string
	Manifest string
	Size     uint64
	DLCAppID string
}

// SharedDepot is one entry of the SharedDepots block.
type SharedDepot struct {
	ID string
	// FromApp is the app whose install provides the depot.
	FromApp string
}

// Record is the derived AppState of one app.
type Record struct {
	AppID      appinfo.AppID
	Name       string
	InstallDir string
	BuildID    string
	SizeOnDisk uint64
	Language   string

	Installed []InstalledDepot
	Shared    []SharedDepot
}

// Options controls manifest derivation and layout.
type Options struct {
	// Platform filters depots by their OS list. Empty means DefaultPlatform.
	Platform string

	// Indent is the nesting indent. Empty means a tab.
	Indent string
}
