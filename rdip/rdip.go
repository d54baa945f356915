// Package rdip implements Return-address-stack Directed Instruction
// Prefetching: a signature generator folding shadow-RAS history, a
// signature history queue, and a single set-associative miss table
// replayed on signature recurrence.
//
// Grounded on proto/tage.TAGEPredictor's top-level Predict/Update shape
// (hash -> table lookup -> replay-on-hit or train-on-miss) and
// proto/ooo.OoOScheduler's thin-dispatch-method-over-pure-components
// style.
package rdip

import (
	"github.com/tomokinex/ChampSim/histqueue"
	"github.com/tomokinex/ChampSim/lru"
	"github.com/tomokinex/ChampSim/missinfo"
	"github.com/tomokinex/ChampSim/prefetch"
	"github.com/tomokinex/ChampSim/sig"
)

// Tuning parameters for the shadow-RAS signature and its miss table.
const (
	HistLen  = 4
	Distance = 2
	Sets     = 2048
	Ways     = 4
	NVectors = 3
	SigBits  = 32
)

type entry = *missinfo.MissTableEntry[missinfo.LineAddress]

// Prefetcher is RDIP's per-CPU instance. Create one per simulated core;
// no state is shared across instances.
type Prefetcher struct {
	host   prefetch.Host
	siggen *sig.RASGenerator
	hist   *histqueue.Queue
	table  *lru.SetAssociative[entry]
}

// New builds a fresh RDIP prefetcher bound to host.
func New(host prefetch.Host) *Prefetcher {
	return &Prefetcher{
		host:   host,
		siggen: sig.NewRASGenerator(HistLen),
		hist:   histqueue.New(Distance),
		table:  lru.NewSetAssociative[entry](Sets, Ways),
	}
}

// BranchOperate computes a signature for call/return branches only,
// suppresses replay when the signature equals the oldest queued signature
// (compared against Front, not Back — repeating the same short loop body
// should not keep re-triggering the same replay), and otherwise enqueues
// the new signature and replays on a table hit.
func (p *Prefetcher) BranchOperate(ip uint64, branchType prefetch.BranchType, target uint64) {
	var s uint32
	switch {
	case branchType.IsCall():
		s = p.siggen.OnCallInstruction(ip, target)
	case branchType == prefetch.Return:
		s = p.siggen.OnReturnInstruction(ip, target)
	default:
		return
	}

	if s == p.hist.Front() {
		return // suppressed: no prefetch, queue unchanged
	}
	p.hist.Push(s)

	key := uint64(s)
	if !p.table.Contains(key) {
		return
	}
	e := *p.table.Get(key) // read-only lookup: no touch
	log2 := p.host.Log2BlockSize()
	for _, mi := range e.ValidEntries() {
		for _, addr := range mi.Addresses() {
			p.host.PrefetchCodeLine(prefetch.ByteAddress(uint64(addr), log2))
		}
	}
}

// CacheOperate trains the miss table entry for the most recently enqueued
// signature on a cache miss.
func (p *Prefetcher) CacheOperate(addr uint64, hit bool, prefetchHit bool) {
	_ = prefetchHit
	if hit {
		return
	}
	log2 := p.host.Log2BlockSize()
	line := prefetch.Line(addr, log2)
	key := uint64(p.hist.Back())

	if !p.table.Contains(key) {
		p.table.Insert(key, missinfo.NewMissTableEntry[missinfo.LineAddress](NVectors))
	} else {
		p.table.Touch(key)
	}
	e := *p.table.Get(key)
	e.InsertOrTouch(missinfo.LineAddress(line))
}

// CacheFill, CycleOperate, and FinalStats are no-ops: the simulator host
// owns fill bookkeeping, cycle timing, and statistics aggregation.
func (p *Prefetcher) CacheFill(addr uint64, set, way int, isPrefetch bool, evictedAddr uint64) {}
func (p *Prefetcher) CycleOperate()                                                           {}
func (p *Prefetcher) FinalStats()                                                              {}

var _ prefetch.Prefetcher = (*Prefetcher)(nil)
