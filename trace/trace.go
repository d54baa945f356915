// Package trace decodes JSON-lines instruction traces and drives a
// prefetch.Prefetcher over them, recording every issued prefetch for later
// comparison against expectations.
//
// Grounded on oisee-z80-optimizer/cmd/z80opt/main.go's verifyJSONL function:
// a bufio.Scanner over a JSONL file, one json.Unmarshal per line into a
// small struct. Unlike verifyJSONL, a parse error is not skipped: decoding
// stops at the first malformed line and reports its line number.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tomokinex/ChampSim/pq"
	"github.com/tomokinex/ChampSim/prefetch"
)

// Event is one decoded trace line: either a branch-retirement event or an
// L1I access event, distinguished by Kind.
type Event struct {
	Kind string `json:"kind"` // "branch" or "access"

	// Branch event fields.
	IP         uint64 `json:"ip,omitempty"`
	BranchType string `json:"branch_type,omitempty"` // "call", "indirect_call", "return", "other"
	Target     uint64 `json:"target,omitempty"`

	// Access event fields.
	Addr        uint64 `json:"addr,omitempty"`
	Hit         bool   `json:"hit,omitempty"`
	PrefetchHit bool   `json:"prefetch_hit,omitempty"`
}

func (e Event) branchType() prefetch.BranchType {
	switch e.BranchType {
	case "call":
		return prefetch.DirectCall
	case "indirect_call":
		return prefetch.IndirectCall
	case "return":
		return prefetch.Return
	default:
		return prefetch.Other
	}
}

// ReadEvents decodes a JSON-lines trace, one Event per non-blank line,
// stopping at the first malformed line with a wrapped error naming its
// line number. Callers that want skip-and-continue semantics instead
// should scan and decode lines themselves.
func ReadEvents(r io.Reader) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var events []Event
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("trace: line %d: %w", lineNo, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: scanning: %w", err)
	}
	return events, nil
}

// RecordingHost is a prefetch.Host that appends every requested line to
// Issued instead of driving a real cache, for use in harnesses and tests.
// If Queue is set, requests are admitted into it instead of landing in
// Issued immediately; the Harness drains it on a per-event cadence, gating
// dispatch to a bounded issue width.
type RecordingHost struct {
	Log2BlockSizeValue uint
	Issued             []uint64
	Queue              *pq.Queue
}

func (h *RecordingHost) PrefetchCodeLine(byteAddress uint64) {
	if h.Queue != nil {
		h.Queue.Enqueue(byteAddress)
		return
	}
	h.Issued = append(h.Issued, byteAddress)
}

func (h *RecordingHost) Log2BlockSize() uint { return h.Log2BlockSizeValue }

var _ prefetch.Host = (*RecordingHost)(nil)

// Stats summarizes one Harness run.
type Stats struct {
	BranchEvents int
	AccessEvents int
	Misses       int
	Issued       int
}

// Harness drives a prefetch.Prefetcher over a decoded trace, recording
// every prefetch the core issues along the way. IssueWidth, when non-zero,
// routes the host's PrefetchCodeLine calls through a pq.Queue and drains up
// to IssueWidth of them after every event — modeling a host whose prefetch
// port can only accept a bounded number of lines per cycle, with one trace
// event standing in for one cycle tick. Zero means dispatch immediately,
// unbounded, as a real host with no such port limit would.
type Harness struct {
	Prefetcher prefetch.Prefetcher
	Host       *RecordingHost
	IssueWidth int
	Stats      Stats
}

// NewHarness builds a harness around an already-constructed prefetcher and
// the RecordingHost it was built against (the two must share the same
// log2BlockSize). Prefetches dispatch immediately, with no issue-width cap.
func NewHarness(p prefetch.Prefetcher, host *RecordingHost) *Harness {
	return &Harness{Prefetcher: p, Host: host}
}

// NewHarnessWithIssueWidth is like NewHarness but arbitrates host dispatch
// through a pq.Queue, draining at most width requests per trace event.
func NewHarnessWithIssueWidth(p prefetch.Prefetcher, host *RecordingHost, width int) *Harness {
	host.Queue = pq.New()
	return &Harness{Prefetcher: p, Host: host, IssueWidth: width}
}

// Replay feeds every event to the prefetcher in order, updating Stats.
func (h *Harness) Replay(events []Event) {
	for _, ev := range events {
		switch ev.Kind {
		case "branch":
			h.Stats.BranchEvents++
			h.Prefetcher.BranchOperate(ev.IP, ev.branchType(), ev.Target)
		case "access":
			h.Stats.AccessEvents++
			if !ev.Hit {
				h.Stats.Misses++
			}
			h.Prefetcher.CacheOperate(ev.Addr, ev.Hit, ev.PrefetchHit)
		}
		if h.Host.Queue != nil {
			h.Host.Issued = append(h.Host.Issued, h.Host.Queue.Drain(h.IssueWidth)...)
		}
	}
	h.Prefetcher.FinalStats()
	h.Stats.Issued = len(h.Host.Issued)
}
