//go:build !windows

package detector

// commLen is the longest name Linux reports for comm; longer names are cut.
const commLen = 15

func listingCommand(string) (string, []string) {
	return "ps", []string{"-A", "-o", "comm="}
}

// listingName is the part of binary that is guaranteed to appear in the listing.
func listingName(binary string) string {
	if len(binary) > commLen {
		return binary[:commLen]
	}
	return binary
}
