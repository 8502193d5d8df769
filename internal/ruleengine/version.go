package ruleengine

import (
	"strconv"
	"strings"
)

// CompareVersions orders two dotted version strings, returning -1, 0 or 1.
//
// Segments are compared pairwise: numerically when both sides parse as
// integers, lexically otherwise. A missing trailing segment counts as "0",
// so "1.2" equals "1.2.0" but sorts below "1.2.1". This mirrors the
// Maven-style comparable-version behavior the persisted ranges were written
// against; semver libraries reject non-semver inputs like "1.2" or
// four-segment versions, which must keep working here.
func CompareVersions(a, b string) int {
	segsA := strings.Split(a, ".")
	segsB := strings.Split(b, ".")

	length := len(segsA)
	if len(segsB) > length {
		length = len(segsB)
	}

	for i := 0; i < length; i++ {
		segA := "0"
		if i < len(segsA) {
			segA = segsA[i]
		}
		segB := "0"
		if i < len(segsB) {
			segB = segsB[i]
		}

		if c := compareSegment(segA, segB); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(a, b string) int {
	numA, errA := strconv.Atoi(a)
	numB, errB := strconv.Atoi(b)

	if errA == nil && errB == nil {
		switch {
		case numA < numB:
			return -1
		case numA > numB:
			return 1
		default:
			return 0
		}
	}

	// At least one side is non-numeric: fall back to lexical ordering.
	return strings.Compare(a, b)
}
