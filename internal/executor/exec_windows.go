//go:build windows

package executor

import "os/exec"

func configureDetached(cmd *exec.Cmd) {}
