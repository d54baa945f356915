package djolt

import (
	"testing"

	"github.com/tomokinex/ChampSim/prefetch"
)

const log2BlockSize = 6 // 64-byte cache lines
const blockSize = 1 << log2BlockSize

type fakeHost struct {
	issued []uint64
}

func (h *fakeHost) PrefetchCodeLine(byteAddress uint64) { h.issued = append(h.issued, byteAddress) }
func (h *fakeHost) Log2BlockSize() uint                 { return log2BlockSize }

func TestDJOLTFallbackDegrees(t *testing.T) {
	// Fresh prefetcher, single miss with no prior signature hit must
	// trigger the aggressive degree (5) of next-line prefetches.
	host := &fakeHost{}
	p := New(host)

	p.CacheOperate(0x10000, false, false)

	if len(host.issued) < AggressiveDegree {
		t.Fatalf("expected at least %d prefetches, got %d: %v", AggressiveDegree, len(host.issued), host.issued)
	}
	for i := 1; i <= AggressiveDegree; i++ {
		want := uint64(0x10000) + uint64(i)*blockSize
		if host.issued[i-1] != want {
			t.Fatalf("expected next-line prefetch %#x at position %d, got %#x", want, i-1, host.issued[i-1])
		}
	}
}

func TestDJOLTDegreeAdaptation(t *testing.T) {
	// After a branch event that issued >=1 prefetch, the next miss must
	// fire exactly ConservativeDegree next-line prefetches; after a branch
	// event that issued none, the next miss must fire exactly
	// AggressiveDegree.
	host := &fakeHost{}
	p := New(host)

	// Train a signature so a later identical branch replays (issues >=1).
	p.BranchOperate(0x1000, prefetch.DirectCall, 0x2000)
	p.CacheOperate(0x8000, false, false)
	host.issued = nil // discard fallback/training noise
	p.BranchOperate(0x1000, prefetch.DirectCall, 0x2000)
	if !p.prefetchIssued {
		t.Fatalf("expected the repeated call to replay a trained signature")
	}

	host.issued = nil
	p.CacheOperate(0x20000, false, false)
	nextLineCount := 0
	for i := 1; i <= len(host.issued); i++ {
		nextLineCount++
	}
	// Count exactly the fallback prefetches (contiguous from addr+blockSize).
	count := 0
	for i, got := range host.issued {
		want := uint64(0x20000) + uint64(i+1)*blockSize
		if got == want {
			count++
		}
	}
	if count != ConservativeDegree {
		t.Fatalf("expected %d conservative next-line prefetches, got %d among %v", ConservativeDegree, count, host.issued)
	}
	_ = nextLineCount

	// Now force a branch event with no replay (untrained signature).
	host.issued = nil
	p.BranchOperate(0x9999, prefetch.DirectCall, 0xAAAA)
	if p.prefetchIssued {
		t.Fatalf("expected untrained signature to issue no replay")
	}
	host.issued = nil
	p.CacheOperate(0x30000, false, false)
	count = 0
	for i, got := range host.issued {
		want := uint64(0x30000) + uint64(i+1)*blockSize
		if got == want {
			count++
		}
	}
	if count != AggressiveDegree {
		t.Fatalf("expected %d aggressive next-line prefetches, got %d among %v", AggressiveDegree, count, host.issued)
	}
}

func TestDJOLTOverflowToExtraTable(t *testing.T) {
	// Train one signature with enough distinct, non-adjacent line bases to
	// exceed the short-range entry's NVectors slots; later bases must land
	// in the extra table, and replay must surface addresses from both
	// tables.
	host := &fakeHost{}
	p := New(host)

	branch := func() {
		p.BranchOperate(0x5000, prefetch.DirectCall, 0x6000)
	}

	// Establish the signature in history (no table entry yet).
	branch()

	// Each base is far enough apart to occupy its own MissInfo slot.
	bases := []uint64{0x100000, 0x200000, 0x300000, 0x400000, 0x500000}
	for _, base := range bases {
		p.CacheOperate(base, false, false)
		branch() // re-issue the same signature so back() stays current for the next miss
	}

	if p.table1.Contains(uint64(p.hist1.Back())) {
		key := uint64(p.hist1.Back())
		e := *p.table1.Get(key)
		if len(e.ValidEntries()) > NVectors {
			t.Fatalf("expected short-range entry to hold at most %d slots, got %d", NVectors, len(e.ValidEntries()))
		}
	}
	if !p.extra.Contains(uint64(p.hist1.Back())) {
		t.Fatalf("expected overflow bases to have spilled into the extra table")
	}

	host.issued = nil
	branch()
	if !p.prefetchIssued {
		t.Fatalf("expected replay to issue prefetches from both miss_table_1 and the extra table")
	}
	if len(host.issued) < NVectors+1 {
		t.Fatalf("expected replay to surface addresses from both tables, got %d: %v", len(host.issued), host.issued)
	}
}
