// Package paramstore provides typed, path-keyed parameter accessors
// against the external parameter store. The store
// itself — file/archive ingestion into values — is out of scope; this
// package only resolves registered setter callbacks against incoming keys
// and hands the render core typed values.
package paramstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kunquatgo/kunquat/pkg/kunquat/stats"
)

// ValueKind mirrors a key-suffix type tag
// (jsonb/jsoni/jsonf/jsont/jsonsm/jsonsh/jsone/jsonln/wv/json).
type ValueKind int

const (
	KindBool ValueKind = iota
	KindInt
	KindFloat
	KindTimestamp
	KindSampleMap
	KindHitMap
	KindEnvelope
	KindNumList
	KindSample
	KindComposite
)

// KeyIndicesMax bounds how many hex-index wildcards a single key pattern
// may carry; unused slots are set to -1.
const KeyIndicesMax = 4

// Setter is invoked when a key matching its pattern is set in the store.
// indices holds the decoded hex-wildcard values in pattern order, padded
// with -1 up to KeyIndicesMax.
type Setter func(indices [KeyIndicesMax]int, raw []byte) error

var keySyntax = regexp.MustCompile(
	`^[a-z_]+(_[0-9a-f]+)?(/[a-z_]+(_[0-9a-f]+)?)*/p_[a-z_]+\.(jsonb|jsoni|jsonf|jsont|jsonsm|jsonsh|jsone|jsonln|json|wv)$`)

type pattern struct {
	segments []segment
	kind     ValueKind
	setter   Setter
}

type segment struct {
	literal  string // "" if wildcard
	wildcard bool
}

// Registry is a collection of key patterns with registered setters,
// keyed by hierarchical wildcard path rather than a flat id. A linear
// scan over registered patterns is used rather than a trie: compositions
// register on the order of tens to low hundreds of patterns, well within
// what a scan resolves in microseconds, and a scan keeps wildcard-segment
// matching simple to verify.
type Registry struct {
	patterns []*pattern
	counters *stats.Counters
}

// New creates an empty registry. counters may be nil in tests.
func New(counters *stats.Counters) *Registry {
	return &Registry{counters: counters}
}

// Register adds a setter for all keys matching pat, a key pattern using
// "XX" as the 2-hex-digit wildcard fragment (e.g. "voice_XX/p_delay.jsonf").
func (r *Registry) Register(pat string, kind ValueKind, setter Setter) error {
	segs := make([]segment, 0, 8)
	for _, part := range strings.Split(pat, "/") {
		if strings.Contains(part, "XX") {
			segs = append(segs, segment{wildcard: true})
		} else {
			segs = append(segs, segment{literal: part})
		}
	}
	r.patterns = append(r.patterns, &pattern{segments: segs, kind: kind, setter: setter})
	return nil
}

// Set parses key against every registered pattern; on the first structural
// match it extracts indices and invokes the setter. If key matches no
// pattern's syntax at all, UnknownKey is counted and Set returns nil (not
// an error: unknown keys are silently ignored for forward compatibility).
// If key is syntactically a parameter path but fails
// validation inside the setter, MalformedParameter is counted and the
// error is returned to the caller, who is expected to apply the
// registered default and continue.
func (r *Registry) Set(key string, raw []byte) error {
	if !keySyntax.MatchString(key) {
		if r.counters != nil {
			r.counters.UnknownKey.Inc()
		}
		return nil
	}

	parts := strings.Split(key, "/")

	for _, p := range r.patterns {
		indices, ok := match(p.segments, parts)
		if !ok {
			continue
		}
		if err := p.setter(indices, raw); err != nil {
			if r.counters != nil {
				r.counters.MalformedParameter.Inc()
			}
			return fmt.Errorf("paramstore: %s: %w", key, err)
		}
		return nil
	}

	if r.counters != nil {
		r.counters.UnknownKey.Inc()
	}
	return nil
}

func match(segs []segment, parts []string) ([KeyIndicesMax]int, bool) {
	var indices [KeyIndicesMax]int
	for i := range indices {
		indices[i] = -1
	}

	if len(segs) != len(parts) {
		return indices, false
	}

	idxSlot := 0
	for i, seg := range segs {
		if seg.wildcard {
			// Only the hex index after the last "_" is checked; the text
			// before "_XX" in the pattern (e.g. "voice") is not stored or
			// compared, so any "name_<hex>" component matches here.
			hex, ok := extractHexIndex(parts[i])
			if !ok {
				return indices, false
			}
			if idxSlot >= KeyIndicesMax {
				return indices, false
			}
			indices[idxSlot] = hex
			idxSlot++
			continue
		}
		if seg.literal != partPrefix(parts[i]) && seg.literal != parts[i] {
			return indices, false
		}
	}
	return indices, true
}

// partPrefix strips a trailing "_<hex>" suffix so a literal pattern
// segment like "voice" can match a concrete "voice_1a" path component when
// the pattern segment itself is the wildcard marker's sibling literal.
func partPrefix(part string) string {
	if i := strings.LastIndexByte(part, '_'); i >= 0 {
		if _, err := strconv.ParseInt(part[i+1:], 16, 64); err == nil {
			return part[:i]
		}
	}
	return part
}

func extractHexIndex(part string) (int, bool) {
	i := strings.LastIndexByte(part, '_')
	if i < 0 {
		return 0, false
	}
	// Strip a trailing ".p_xxx.jsonX" suffix if present (last path segment).
	hexPart := part[i+1:]
	if j := strings.IndexByte(hexPart, '.'); j >= 0 {
		hexPart = hexPart[:j]
	}
	v, err := strconv.ParseInt(hexPart, 16, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
