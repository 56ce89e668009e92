// Package platform defines the target platforms and build modes a bundle can be built for.
package platform

import (
	"fmt"
	"runtime"
	"sort"
)

// TargetPlatform identifies the platform a bundle is compiled for.
type TargetPlatform string

// Known target platforms.
const (
	AndroidArm   TargetPlatform = "android-arm"
	AndroidArm64 TargetPlatform = "android-arm64"
	AndroidX64   TargetPlatform = "android-x64"
	AndroidX86   TargetPlatform = "android-x86"
	IOS          TargetPlatform = "ios"
	DarwinX64    TargetPlatform = "darwin-x64"
	LinuxX64     TargetPlatform = "linux-x64"
	LinuxArm64   TargetPlatform = "linux-arm64"
	WindowsX64   TargetPlatform = "windows-x64"
)

// Family groups target platforms that share an availability gate.
type Family string

// Platform families.
const (
	FamilyAndroid Family = "android"
	FamilyIOS     Family = "ios"
	FamilyMacOS   Family = "macos"
	FamilyLinux   Family = "linux"
	FamilyWindows Family = "windows"
)

//nolint:gochecknoglobals // Fixed lookup table.
var families = map[TargetPlatform]Family{
	AndroidArm:   FamilyAndroid,
	AndroidArm64: FamilyAndroid,
	AndroidX64:   FamilyAndroid,
	AndroidX86:   FamilyAndroid,
	IOS:          FamilyIOS,
	DarwinX64:    FamilyMacOS,
	LinuxX64:     FamilyLinux,
	LinuxArm64:   FamilyLinux,
	WindowsX64:   FamilyWindows,
}

// HostID is the pseudo platform id that selects the host's desktop platform.
const HostID = "host"

// ParseTargetPlatform converts a platform id into a TargetPlatform.
func ParseTargetPlatform(id string) (TargetPlatform, error) {
	p := TargetPlatform(id)
	if _, ok := families[p]; !ok {
		return "", fmt.Errorf("unknown platform: %s", id)
	}
	return p, nil
}

// All returns every known target platform in id order.
func All() []TargetPlatform {
	all := make([]TargetPlatform, 0, len(families))
	for p := range families {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// String returns the platform id.
func (p TargetPlatform) String() string {
	return string(p)
}

// Family returns the family the platform belongs to.
func (p TargetPlatform) Family() Family {
	return families[p]
}

// HostPlatform infers the desktop target platform for the running host.
func HostPlatform() (TargetPlatform, error) {
	return hostPlatform(runtime.GOOS, runtime.GOARCH)
}

func hostPlatform(goos, goarch string) (TargetPlatform, error) {
	switch {
	case goos == "darwin":
		return DarwinX64, nil
	case goos == "linux" && goarch == "arm64":
		return LinuxArm64, nil
	case goos == "linux":
		return LinuxX64, nil
	case goos == "windows":
		return WindowsX64, nil
	}
	return "", fmt.Errorf("no target platform for host %s/%s", goos, goarch)
}

// BuildMode selects the compilation mode.
type BuildMode string

// Build modes.
const (
	Debug   BuildMode = "debug"
	Profile BuildMode = "profile"
	Release BuildMode = "release"
)

// String returns the mode id.
func (m BuildMode) String() string {
	return string(m)
}

// IsRelease reports whether the mode produces AOT-style output.
func (m BuildMode) IsRelease() bool {
	return m == Release || m == Profile
}
