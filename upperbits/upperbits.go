// Package upperbits implements D-JOLT's upper-address dictionary: a small
// fully-associative table mapping up to 31 distinct upper address regions
// to stable 1-based ids, compressing a full address into an (id,
// lower_bits) pair a MissInfo slot can store cheaply.
//
// Grounded on proto/tage.TAGEEntry's Tag field plus the linear
// valid-bit-gated tag search tage.go's Predict/Update loops perform;
// repurposed from "does any slot hold this 13-bit PC tag" to "does any
// slot hold this upper-address value", with insert-on-miss and no
// eviction — entries live for the table's lifetime.
package upperbits

import "github.com/tomokinex/ChampSim/missinfo"

// PtrBits and the derived slot count: a 5-bit pointer gives 2^5-1=31 usable
// ids (0 reserved for invalid).
const (
	PtrBits    = 5
	MaxEntries = (1 << PtrBits) - 1 // 31

	// UpperBitMask isolates bit 21 and every bit above it.
	UpperBitMask uint64 = 0xFFFFFFFFFFE00000
)

// Table is the fully-associative upper-address dictionary. Entries are
// never evicted; compression fails once all 31 slots hold distinct
// regions.
type Table struct {
	upper [MaxEntries]uint64
	valid [MaxEntries]bool
}

// New builds an empty UpperBitTable.
func New() *Table {
	return &Table{}
}

// Compress splits fullAddress into (upper, lower), finds or claims a slot
// for upper, and returns the compressed form. ok is false only once all 31
// slots are claimed by distinct regions and fullAddress's region is new;
// callers treat that as a hard invariant violation rather than a routine
// failure, since the design asserts 31 live regions are never exceeded in
// practice.
func (t *Table) Compress(fullAddress uint64, log2BlockSize uint) (missinfo.CompressedLineAddress, bool) {
	upper := fullAddress & UpperBitMask
	lower := uint32((fullAddress &^ UpperBitMask) >> log2BlockSize)

	for i := 0; i < MaxEntries; i++ {
		if t.valid[i] && t.upper[i] == upper {
			return missinfo.CompressedLineAddress{UpperID: uint8(i + 1), Lower: lower}, true
		}
	}
	for i := 0; i < MaxEntries; i++ {
		if !t.valid[i] {
			t.upper[i] = upper
			t.valid[i] = true
			return missinfo.CompressedLineAddress{UpperID: uint8(i + 1), Lower: lower}, true
		}
	}
	return missinfo.CompressedLineAddress{}, false
}

// Decompress reconstructs the full byte address from a compressed
// (id, lower) pair: table[id-1].upper + (lower << log2BlockSize).
func (t *Table) Decompress(c missinfo.CompressedLineAddress, log2BlockSize uint) uint64 {
	if c.UpperID == 0 || int(c.UpperID) > MaxEntries {
		panic("upperbits: Decompress on invalid id")
	}
	return t.upper[c.UpperID-1] + (uint64(c.Lower) << log2BlockSize)
}
