package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/loykin/ngxvisor/internal/executor"
)

// ListingDetector runs the OS process-listing utility and reports the binary
// alive when its name appears anywhere in the listing.
//
// This is a name heuristic: an unrelated process with the same name is a false
// positive. No PID is retained between calls, so there is nothing stronger to
// compare against. Linux cuts comm to 15 bytes, so only that prefix of a
// longer binary name is matched.
type ListingDetector struct {
	Binary string
	Runner executor.Runner
}

func (d ListingDetector) Alive(ctx context.Context) (bool, error) {
	program, args := listingCommand(d.Binary)
	res, err := d.Runner.Run(ctx, program, args, "")
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProcessCheck, err)
	}
	if !res.Success && len(res.Stdout) == 0 {
		return false, fmt.Errorf("%w: %s exited with code %d: %s",
			ErrProcessCheck, program, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return strings.Contains(string(res.Stdout), listingName(d.Binary)), nil
}

func (d ListingDetector) Describe() string { return "listing:" + d.Binary }
