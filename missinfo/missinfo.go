// Package missinfo implements MissInfo (a compact run of recorded successor
// addresses) and MissTableEntry, which holds a bounded set of MissInfo
// slots under either RDIP's insert-or-touch-with-LRU-eviction policy or
// D-JOLT's insert-but-do-not-evict policy. A miss table itself needs no
// dedicated type: it is just an lru.SetAssociative keyed by signature whose
// value is a *MissTableEntry, keeping the table substrate generic instead
// of specialized per use-site.
package missinfo

import "github.com/tomokinex/ChampSim/lru"

// VectorSize is the number of successor-offset bits every MissInfo slot
// tracks: 8, for every table in both prefetchers.
const VectorSize = 8

// Addr is the address type a MissInfo slot stores: either a LineAddress
// (RDIP) or a CompressedLineAddress (D-JOLT). The zero value of T must be
// the "invalid/empty" sentinel.
type Addr[T any] interface {
	comparable
	// Valid reports whether this value is a real recorded address (the
	// zero value is never valid).
	Valid() bool
	// SameRegion reports whether other could share a slot with this base
	// (D-JOLT requires matching upper address bits; RDIP imposes no such
	// constraint and always returns true).
	SameRegion(other T) bool
	// DiffTo returns other's line offset from this base, in the units the
	// VectorSize window is measured in.
	DiffTo(other T) int64
	// Plus returns the address delta lines after this one.
	Plus(delta int) T
}

// LineAddress is a full byte address right-shifted by the cache's
// log2(block size). Zero is the invalid/empty sentinel.
type LineAddress uint64

func (a LineAddress) Valid() bool { return a != 0 }

func (a LineAddress) SameRegion(_ LineAddress) bool { return true }

func (a LineAddress) DiffTo(b LineAddress) int64 {
	return int64(b) - int64(a)
}

func (a LineAddress) Plus(delta int) LineAddress {
	return LineAddress(int64(a) + int64(delta))
}

// CompressedLineAddress is D-JOLT's (upper_id, lower_bits) pair. UpperID==0
// is the invalid sentinel (1-based ids, matching upperbits.Table).
type CompressedLineAddress struct {
	UpperID uint8
	Lower   uint32
}

func (a CompressedLineAddress) Valid() bool { return a.UpperID != 0 }
func (a CompressedLineAddress) SameRegion(b CompressedLineAddress) bool {
	return a.UpperID == b.UpperID
}
func (a CompressedLineAddress) DiffTo(b CompressedLineAddress) int64 {
	return int64(b.Lower) - int64(a.Lower)
}
func (a CompressedLineAddress) Plus(delta int) CompressedLineAddress {
	return CompressedLineAddress{UpperID: a.UpperID, Lower: uint32(int64(a.Lower) + int64(delta))}
}

// MissInfo is a compact descriptor covering up to 1+VectorSize contiguous
// line addresses: a base plus a bit-vector of recorded positive offsets.
type MissInfo[T Addr[T]] struct {
	Base T
	Bits [VectorSize]bool
}

// Empty reports whether this slot holds no recorded address.
func (m *MissInfo[T]) Empty() bool {
	return !m.Base.Valid()
}

// Add attempts to record addr in this slot:
//   - empty slot: becomes the base, always succeeds;
//   - same region, diff==0: already recorded, succeeds as a no-op;
//   - same region, 0<diff<=VectorSize: sets the bit, succeeds;
//   - otherwise: refused.
func (m *MissInfo[T]) Add(addr T) bool {
	if m.Empty() {
		m.Base = addr
		return true
	}
	if !m.Base.SameRegion(addr) {
		return false
	}
	diff := m.Base.DiffTo(addr)
	switch {
	case diff < 0:
		return false
	case diff == 0:
		return true
	case diff <= VectorSize:
		m.Bits[diff-1] = true
		return true
	default:
		return false
	}
}

// Addresses yields the base first, then every recorded successor in
// ascending offset order. Returns nil for an empty slot.
//
// This allocates a slice per call; a production integration would replace
// it with a visitor callback to avoid per-prefetch-event allocation, which
// this implementation does not do for clarity.
func (m *MissInfo[T]) Addresses() []T {
	if m.Empty() {
		return nil
	}
	out := make([]T, 1, 1+VectorSize)
	out[0] = m.Base
	for i := 0; i < VectorSize; i++ {
		if m.Bits[i] {
			out = append(out, m.Base.Plus(i+1))
		}
	}
	return out
}

// MissTableEntry is a bounded collection of MissInfo slots: nVectors slots,
// tried in index order, with either an LRU-eviction policy (RDIP) or a
// first-fit-no-eviction policy (D-JOLT). Both policies are offered; each
// caller uses the one its design calls for.
type MissTableEntry[T Addr[T]] struct {
	slots []MissInfo[T]
	ranks lru.Ranks
}

// NewMissTableEntry builds an entry with nVectors slots, all empty.
func NewMissTableEntry[T Addr[T]](nVectors int) *MissTableEntry[T] {
	return &MissTableEntry[T]{
		slots: make([]MissInfo[T], nVectors),
		ranks: lru.NewRanks(nVectors),
	}
}

// InsertOrTouch is RDIP's policy: try each slot in index order; the first
// to accept addr becomes most-recently-used. If every slot refuses, evict
// the max-rank slot, reset it empty, add addr (which must now succeed
// since the slot is empty), and touch it.
func (e *MissTableEntry[T]) InsertOrTouch(addr T) {
	for i := range e.slots {
		if e.slots[i].Add(addr) {
			e.ranks.Touch(i)
			return
		}
	}
	victim := e.ranks.Victim()
	e.slots[victim] = MissInfo[T]{}
	if !e.slots[victim].Add(addr) {
		panic("missinfo: freshly cleared slot refused its seed address")
	}
	e.ranks.Touch(victim)
}

// InsertButDoNotEvict is D-JOLT's policy: try each slot in index order,
// stop on first success. Returns false (no eviction) if every slot
// refuses, leaving the caller to redirect the update elsewhere (the extra
// table).
func (e *MissTableEntry[T]) InsertButDoNotEvict(addr T) bool {
	for i := range e.slots {
		if e.slots[i].Add(addr) {
			return true
		}
	}
	return false
}

// ValidEntries returns the slots whose base is valid, in slot-index order.
func (e *MissTableEntry[T]) ValidEntries() []*MissInfo[T] {
	var out []*MissInfo[T]
	for i := range e.slots {
		if !e.slots[i].Empty() {
			out = append(out, &e.slots[i])
		}
	}
	return out
}
