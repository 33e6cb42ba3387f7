// Package build compiles the reference greeting providers into loadable
// artifacts, one target per platform.
package build

import (
	"fmt"
	"sort"
	"strings"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// ArtifactBase is the base name every target's output is derived from.
const ArtifactBase = "libgreet"

const (
	nativePackage = "./cmd/libgreet"
	wasmPackage   = "./cmd/libgreet-wasm"
)

// Target describes one provider build.
type Target struct {
	Name       string
	Label      string
	CC         string
	GOOS       string
	GOARCH     string
	CGOEnabled bool
	Output     string
	Package    string
}

// Env returns the environment overrides for go build.
func (t Target) Env() []string {
	cgo := "0"
	if t.CGOEnabled {
		cgo = "1"
	}
	env := []string{
		"GOOS=" + t.GOOS,
		"GOARCH=" + t.GOARCH,
		"CGO_ENABLED=" + cgo,
	}
	if t.CC != "" {
		env = append(env, "CC="+t.CC)
	}
	return env
}

func nativeTarget(p abi.Platform, label, cc string) Target {
	return Target{
		Name:       p.String(),
		Label:      label,
		CC:         cc,
		GOOS:       p.String(),
		GOARCH:     "amd64",
		CGOEnabled: true,
		Output:     p.ArtifactName(ArtifactBase),
		Package:    nativePackage,
	}
}

var targets = map[string]Target{
	"windows": nativeTarget(abi.PlatformWindows, "Windows", "gcc"),
	"linux":   nativeTarget(abi.PlatformLinux, "Linux", "gcc"),
	"darwin":  nativeTarget(abi.PlatformDarwin, "macOS", "clang"),
	"wasip1": {
		Name:    "wasip1",
		Label:   "WebAssembly (wasip1)",
		GOOS:    "wasip1",
		GOARCH:  "wasm",
		Output:  ArtifactBase + ".wasm",
		Package: wasmPackage,
	},
}

// targetOrder is the order targets are offered in.
var targetOrder = []string{"windows", "linux", "darwin", "wasip1"}

// Targets returns every known target in display order.
func Targets() []Target {
	out := make([]Target, 0, len(targetOrder))
	for _, name := range targetOrder {
		out = append(out, targets[name])
	}
	return out
}

// LookupTarget returns the target called name.
func LookupTarget(name string) (Target, error) {
	t, ok := targets[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(targets))
		for n := range targets {
			names = append(names, n)
		}
		sort.Strings(names)
		return Target{}, fmt.Errorf("unknown target %q (must be one of: %s)", name, strings.Join(names, ", "))
	}
	return t, nil
}
