// Package star is the transformation core of the warehouse loader. It derives
// the four dimension tables from their source record sets, assembles the fact
// table by resolving natural keys to dimension surrogate ids, and drives the
// chunked fact pipeline so memory stays bounded regardless of source volume.
package star

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedKey marks a record whose natural key has a null or empty field.
// Such a record cannot participate in de-duplication or lookup; the policy is
// to reject it (count and skip), or to fail the batch when strict mode is on.
var ErrMalformedKey = errors.New("malformed natural key")

// KeyFunc extracts the normalized natural key of a record. Implementations
// must return an ErrMalformedKey-wrapped error when a key field is null/empty.
type KeyFunc[T any] func(T) (string, error)

// SeenSet tracks natural keys already observed. The chunk pipeline keeps one
// SeenSet alive across chunk invocations so a logical transaction spanning a
// chunk boundary cannot produce duplicate fact rows.
type SeenSet struct {
	m map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{m: make(map[string]struct{})}
}

// Add records k and reports whether it was new.
func (s *SeenSet) Add(k string) bool {
	if _, ok := s.m[k]; ok {
		return false
	}
	s.m[k] = struct{}{}
	return true
}

func (s *SeenSet) Len() int { return len(s.m) }

// DedupeStats summarizes one Dedupe call.
type DedupeStats struct {
	Input      int
	Kept       int
	Duplicates int
	Malformed  int
}

// Dedupe returns one record per distinct natural key, first occurrence wins,
// preserving input order. seen carries the keys observed so far; pass a fresh
// set for whole-table operation or a retained one for cross-chunk operation.
//
// Records with a malformed key are skipped and counted. When strict is true
// the first malformed record aborts the call instead.
func Dedupe[T any](recs []T, key KeyFunc[T], seen *SeenSet, strict bool) ([]T, DedupeStats, error) {
	if seen == nil {
		seen = NewSeenSet()
	}

	st := DedupeStats{Input: len(recs)}
	out := make([]T, 0, len(recs))

	for _, r := range recs {
		k, err := key(r)
		if err != nil {
			if strict {
				return nil, st, err
			}
			st.Malformed++
			continue
		}
		if !seen.Add(k) {
			st.Duplicates++
			continue
		}
		out = append(out, r)
	}

	st.Kept = len(out)
	return out, st, nil
}

// Number assigns dense 1-based surrogate ids in slice order. The caller is
// responsible for sorting first when the id order must follow something other
// than arrival order (dim_tiempo sorts by calendar date before numbering).
// Ids are positional: they are only stable across runs if the input order is.
func Number[T any](rows []T, set func(row *T, id int64)) {
	for i := range rows {
		set(&rows[i], int64(i+1))
	}
}

// keyPart normalizes one natural-key field, failing with ErrMalformedKey when
// the field is empty after trimming.
func keyPart(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: field %s is null or empty", ErrMalformedKey, field)
	}
	return v, nil
}

// compositeKey joins normalized parts with a separator that cannot occur in
// the data, so ("a","bc") and ("ab","c") key differently.
func compositeKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }
