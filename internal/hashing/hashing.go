// Package hashing provides the deterministic identifier hashing that every
// percentage-based targeting decision is built on.
//
// The hash must be stable across processes and hosts (no randomized seed),
// so that a given user lands in the same rollout bucket no matter which
// instance served the request. We use Murmur3 (x64, 128-bit) for its
// avalanche behavior and speed; cryptographic strength is not required.
package hashing

import "github.com/spaolacci/murmur3"

// SignedHash returns the first 64 bits of the 128-bit Murmur3 digest of the
// identifier, as a non-negative signed integer. It is the raw magnitude used
// by formulas that apply their own reduction.
func SignedHash(identifier string) int64 {
	h1, _ := murmur3.Sum128([]byte(identifier))

	v := int64(h1)
	if v < 0 {
		v = -v
	}
	return v
}

// Bucket reduces the identifier's hash to a stable bucket index in [0, 99].
func Bucket(identifier string) int {
	b := int(SignedHash(identifier) % 100)
	// Two's-complement edge: -MinInt64 is still negative, so the modulo can
	// come out below zero. Fold it back into the valid bucket range.
	if b < 0 {
		b += 100
	}
	return b
}

// AdmittedInclusive reports whether the identifier is inside a rollout of
// the given percentage using the 1-indexed comparison: bucket+1 <= pct.
// At pct=0 nobody is admitted; at pct=100 everybody is.
//
// Used by user and group targeting. This intentionally differs from
// AdmittedExclusive at interior percentages for the same identifier; the two
// conventions must never be merged because persisted rollouts depend on the
// exact per-identifier assignment.
func AdmittedInclusive(identifier string, percentage float64) bool {
	return float64(Bucket(identifier)+1) <= percentage
}

// AdmittedExclusive reports whether the identifier is inside a rollout of
// the given percentage using the 0-indexed comparison: bucket < pct.
// Same boundary behavior as AdmittedInclusive (0 => nobody, 100 => everybody)
// but a different interior assignment.
//
// Used by gradual rollouts and A/B distribution.
func AdmittedExclusive(identifier string, percentage float64) bool {
	return float64(Bucket(identifier)) < percentage
}
