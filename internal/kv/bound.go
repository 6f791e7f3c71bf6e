package kv

import (
	"fmt"
	"strings"
)

// BoundKind says how a Bound treats its key.
type BoundKind uint8

const (
	// Unbounded means the range extends forever in that direction.
	Unbounded BoundKind = iota
	// Included means the bound key itself is part of the range.
	Included
	// Excluded means the range stops just short of the bound key.
	Excluded
)

func (b BoundKind) String() string {
	switch b {
	case Unbounded:
		return "unbounded"
	case Included:
		return "included"
	case Excluded:
		return "excluded"
	}
	return fmt.Sprintf("BoundKind(%d)", uint8(b))
}

// Bound is one end of a BoundRange.
type Bound struct {
	Kind BoundKind `json:"kind"`
	Key  Key       `json:"key,omitempty"`
}

// IncludedBound returns an inclusive bound at key.
func IncludedBound(key Key) Bound { return Bound{Kind: Included, Key: key} }

// ExcludedBound returns an exclusive bound at key.
func ExcludedBound(key Key) Bound { return Bound{Kind: Excluded, Key: key} }

// UnboundedBound returns an open bound.
func UnboundedBound() Bound { return Bound{Kind: Unbounded} }

// BoundRange is an interval over the keyspace. Inverted or empty ranges are
// legal and simply match no keys.
type BoundRange struct {
	Start Bound `json:"start"`
	End   Bound `json:"end"`
}

// NewRange returns the half-open range [start, end).
func NewRange(start, end Key) BoundRange {
	return BoundRange{Start: IncludedBound(start), End: ExcludedBound(end)}
}

// RangeInclusive returns the closed range [start, end].
func RangeInclusive(start, end Key) BoundRange {
	return BoundRange{Start: IncludedBound(start), End: IncludedBound(end)}
}

// RangeExclusiveStart returns the range (start, end].
func RangeExclusiveStart(start, end Key) BoundRange {
	return BoundRange{Start: ExcludedBound(start), End: IncludedBound(end)}
}

// RangeFrom returns [start, +inf).
func RangeFrom(start Key) BoundRange {
	return BoundRange{Start: IncludedBound(start), End: UnboundedBound()}
}

// RangeTo returns (-inf, end).
func RangeTo(end Key) BoundRange {
	return BoundRange{Start: UnboundedBound(), End: ExcludedBound(end)}
}

// RangeToInclusive returns (-inf, end].
func RangeToInclusive(end Key) BoundRange {
	return BoundRange{Start: UnboundedBound(), End: IncludedBound(end)}
}

// FullRange matches every key.
func FullRange() BoundRange {
	return BoundRange{Start: UnboundedBound(), End: UnboundedBound()}
}

// IntoKeys converts the range to a half-open [start, end) pair of keys.
//
// An excluded start or an included end is moved to the next key, so callers
// only ever deal with inclusive starts and exclusive ends. An empty end key
// means the range has no upper bound.
func (r BoundRange) IntoKeys() (start Key, end Key) {
	switch r.Start.Kind {
	case Included:
		start = r.Start.Key.Clone()
	case Excluded:
		start = r.Start.Key.Next()
	default:
		start = Key{}
	}
	switch r.End.Kind {
	case Included:
		end = r.End.Key.Next()
	case Excluded:
		end = r.End.Key.Clone()
	default:
		end = nil
	}
	return start, end
}

// Contains reports whether key falls inside the range.
func (r BoundRange) Contains(key Key) bool {
	switch r.Start.Kind {
	case Included:
		if key.Less(r.Start.Key) {
			return false
		}
	case Excluded:
		if key.Compare(r.Start.Key) <= 0 {
			return false
		}
	}
	switch r.End.Kind {
	case Included:
		if key.Compare(r.End.Key) > 0 {
			return false
		}
	case Excluded:
		if key.Compare(r.End.Key) >= 0 {
			return false
		}
	}
	return true
}

func (r BoundRange) String() string {
	var sb strings.Builder
	switch r.Start.Kind {
	case Included:
		fmt.Fprintf(&sb, "[%s", r.Start.Key)
	case Excluded:
		fmt.Fprintf(&sb, "(%s", r.Start.Key)
	default:
		sb.WriteString("(-inf")
	}
	sb.WriteString(", ")
	switch r.End.Kind {
	case Included:
		fmt.Fprintf(&sb, "%s]", r.End.Key)
	case Excluded:
		fmt.Fprintf(&sb, "%s)", r.End.Key)
	default:
		sb.WriteString("+inf)")
	}
	return sb.String()
}

// ClampKeys intersects the half-open interval [start, end) with
// [lower, upper). Empty end or upper means +inf. ok is false when the
// intersection is empty.
func ClampKeys(start, end, lower, upper Key) (Key, Key, bool) {
	if start.Less(lower) {
		start = lower
	}
	if len(upper) > 0 && (len(end) == 0 || upper.Less(end)) {
		end = upper
	}
	if len(end) > 0 && start.Compare(end) >= 0 {
		return nil, nil, false
	}
	return start, end, true
}

// RangeFromKeys is the inverse of IntoKeys: it builds [start, end) where an
// empty end means no upper bound.
func RangeFromKeys(start, end Key) BoundRange {
	if len(end) == 0 {
		return RangeFrom(start)
	}
	return NewRange(start, end)
}
