//go:build windows

package server

import "testing"

// absConfigPath is an absolute nginx config path on this platform.
func absConfigPath() string { return `C:\nginx\conf\nginx.conf` }

func addPlatformSpecificSeeds(f *testing.F) {
	f.Add(`C:\nginx\conf\nginx.conf`)
	f.Add(`C:\nginx\conf\..\nginx.conf`)
}
