//go:build windows

package detector

func listingCommand(binary string) (string, []string) {
	// CSV keeps image names longer than the table column intact
	return "tasklist", []string{"/FI", "IMAGENAME eq " + binary, "/FO", "CSV", "/NH"}
}

func listingName(binary string) string { return binary }
