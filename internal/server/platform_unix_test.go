//go:build !windows

package server

import "testing"

// absConfigPath is an absolute nginx config path on this platform.
func absConfigPath() string { return "/etc/nginx/nginx.conf" }

func addPlatformSpecificSeeds(f *testing.F) {
	f.Add("/opt/nginx/conf/nginx.conf")
	f.Add("/opt/nginx/conf/../nginx.conf")
}
