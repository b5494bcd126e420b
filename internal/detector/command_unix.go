//go:build !windows

package detector

func trueCommand() (string, []string) { return "/bin/true", nil }

func shellCommand(s string) (string, []string) { return "/bin/sh", []string{"-c", s} }
