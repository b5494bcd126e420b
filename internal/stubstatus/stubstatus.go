// Package stubstatus reads the plain-text connection counters exposed by the
// server's stub status module.
//
// A typical page looks like:
//
//	Active connections: 291
//	server accepts handled requests
//	 16630948 16630948 31070465
//	Reading: 6 Writing: 179 Waiting: 106
package stubstatus

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrPageAbsent means the page could not be fetched at all.
	ErrPageAbsent = errors.New("status page unavailable")
	// ErrPageMalformed means the page was fetched but none of the known lines were found.
	ErrPageMalformed = errors.New("status page malformed")
)

// Field identifies a value family found on the page.
type Field uint8

const (
	FieldActive Field = 1 << iota
	FieldAccepts
	FieldRequests
)

// RateWindow is the fixed divisor used to turn the cumulative request counter
// into a per-second figure. The result is an approximation, not a measured rate.
const RateWindow = 60

// Sample is one parse of the status page.
type Sample struct {
	Active   uint64
	Accepts  uint64
	Handled  uint64
	Requests uint64
	// RequestsPerSecond is Requests / RateWindow.
	RequestsPerSecond uint64
	Fields            Field
}

// Has reports whether f was found on the page.
func (s Sample) Has(f Field) bool { return s.Fields&f != 0 }

// Parse extracts the counters from body. Missing families leave their fields at
// zero and unset in Fields; ErrPageMalformed is returned only when nothing was found.
func Parse(body string) (Sample, error) {
	var s Sample
	var rowAccepts uint64
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if !s.Has(FieldActive) {
			if v, ok := strings.CutPrefix(line, "Active connections:"); ok {
				if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
					s.Active = n
					s.Fields |= FieldActive
					continue
				}
			}
		}
		fields := strings.Fields(line)
		if !s.Has(FieldAccepts) && strings.Contains(line, "accepts") && len(fields) > 1 {
			if n, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				s.Accepts = n
				s.Fields |= FieldAccepts
			}
		}
		if !s.Has(FieldRequests) && len(fields) == 3 {
			if n, err := strconv.ParseUint(fields[2], 10, 64); err == nil {
				s.Requests = n
				s.RequestsPerSecond = n / RateWindow
				s.Fields |= FieldRequests
				rowAccepts, _ = strconv.ParseUint(fields[0], 10, 64)
				s.Handled, _ = strconv.ParseUint(fields[1], 10, 64)
			}
		}
	}
	// the stock page puts the labels on one line and the numbers on the next
	if !s.Has(FieldAccepts) && s.Has(FieldRequests) {
		s.Accepts = rowAccepts
		s.Fields |= FieldAccepts
	}
	if s.Fields == 0 {
		return s, ErrPageMalformed
	}
	return s, nil
}
