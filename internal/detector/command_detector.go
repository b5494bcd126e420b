package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/loykin/ngxvisor/internal/executor"
)

// CommandDetector runs a command that should succeed if the process is running.
type CommandDetector struct {
	Command string
	Runner  executor.Runner
}

// shellAwareCommand splits cmdStr into program and args.
// Avoids invoking a shell unless obvious shell metacharacters are present (G204 mitigation).
func shellAwareCommand(cmdStr string) (string, []string) {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return trueCommand()
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		return shellCommand(cmdStr)
	}
	parts := strings.Fields(cmdStr)
	return parts[0], parts[1:]
}

func (d CommandDetector) Alive(ctx context.Context) (bool, error) {
	program, args := shellAwareCommand(d.Command)
	res, err := d.Runner.Run(ctx, program, args, "")
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProcessCheck, err)
	}
	// non-zero exit code means not alive
	return res.Success, nil
}

func (d CommandDetector) Describe() string { return "cmd:" + d.Command }
