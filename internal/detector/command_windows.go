//go:build windows

package detector

func trueCommand() (string, []string) { return "cmd", []string{"/C", "exit 0"} }

func shellCommand(s string) (string, []string) { return "cmd", []string{"/C", s} }
