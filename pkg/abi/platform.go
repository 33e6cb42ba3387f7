package abi

import (
	"fmt"
	"runtime"
	"sort"
)

// Platform is a host operating system a native provider can be built for.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformWindows
	PlatformLinux
	PlatformDarwin
)

// platformInfo is the artifact naming rule of one platform.
type platformInfo struct {
	name      string // GOOS value
	extension string
}

var platforms = map[Platform]platformInfo{
	PlatformWindows: {name: "windows", extension: ".dll"},
	PlatformLinux:   {name: "linux", extension: ".so"},
	PlatformDarwin:  {name: "darwin", extension: ".dylib"},
}

// ParsePlatform maps a GOOS-style name to a Platform.
func ParsePlatform(name string) (Platform, error) {
	for p, info := range platforms {
		if info.name == name {
			return p, nil
		}
	}
	return PlatformUnknown, fmt.Errorf("unsupported platform: %q", name)
}

// CurrentPlatform returns the platform of the running process,
// or PlatformUnknown when native providers cannot be built for it.
func CurrentPlatform() Platform {
	p, err := ParsePlatform(runtime.GOOS)
	if err != nil {
		return PlatformUnknown
	}
	return p
}

// Platforms returns every known platform ordered by name.
func Platforms() []Platform {
	result := make([]Platform, 0, len(platforms))
	for p := range platforms {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result
}

// String returns the GOOS name of the platform.
func (p Platform) String() string {
	if info, ok := platforms[p]; ok {
		return info.name
	}
	return "unknown"
}

// Extension returns the shared library file extension, including the dot.
func (p Platform) Extension() string {
	return platforms[p].extension
}

// ArtifactName appends the platform's shared library extension to base,
// e.g. "libgreet" -> "libgreet.so" on linux.
func (p Platform) ArtifactName(base string) string {
	return base + p.Extension()
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	_, ok := platforms[p]
	return ok
}
