package pipeline

import (
	"sort"
	"strconv"
	"strings"
)

// sortSegments orders segment filenames by their parsed (effective date,
// hour) tuple so assembly order is chronological by contract, not by the
// accident of string formatting. Unparseable names sort last,
// lexicographically. For the fixed-width CODE-yy-mm-dd-HH-00.mp3 scheme
// the result coincides with plain lexicographic order, which is covered
// by a test.
func sortSegments(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		di, hi, oki := segmentSortKey(names[i])
		dj, hj, okj := segmentSortKey(names[j])
		if oki != okj {
			return oki
		}
		if !oki {
			return names[i] < names[j]
		}
		if di != dj {
			return di < dj
		}
		if hi != hj {
			return hi < hj
		}
		return names[i] < names[j]
	})
}

// segmentSortKey extracts the yy-mm-dd date and the hour from a segment
// filename, reading the fixed fields from the end so a station code may
// contain any characters.
func segmentSortKey(name string) (date string, hour int, ok bool) {
	base := strings.TrimSuffix(name, ".mp3")
	if base == name {
		return "", 0, false
	}
	parts := strings.Split(base, "-")
	// ... CODE, yy, mm, dd, HH, 00
	if len(parts) < 6 {
		return "", 0, false
	}
	yy, mm, dd, hh := parts[len(parts)-5], parts[len(parts)-4], parts[len(parts)-3], parts[len(parts)-2]
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", 0, false
	}
	return yy + "-" + mm + "-" + dd, hour, true
}
