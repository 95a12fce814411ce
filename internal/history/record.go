// Package history keeps a capacity-bounded log of generated artifacts per
// user in a kv.Substrate.
//
// Each user's log lives under a namespace key derived from their handle, or
// from their id when no handle is known yet (see package identity). Logs
// written under the id-only legacy namespace are merged into the handle
// namespace as soon as both are known.
//
// Store operations never surface substrate failures to callers: a failed
// read or write is logged, counted and reported as "no history".
package history

import (
	"encoding/json"
	"time"
)

// DefaultCapacity is the maximum number of records kept per namespace.
const DefaultCapacity = 50

// Kind is the visualisation type of a record.
type Kind string

const (
	KindMindmap   Kind = "mindmap"
	KindFlowchart Kind = "flowchart"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindMindmap || k == KindFlowchart
}

// Record is one generated artifact.
//
// Fields missing from persisted data decode to their zero values. Fields this
// package does not know about are kept in extras and written back unchanged.
type Record struct {
	ID          string
	Kind        Kind
	Prompt      string
	Image       string // encoded rendering, may be empty
	CreatedAt   time.Time
	OwnerID     string
	OwnerHandle string

	extras map[string]json.RawMessage
}

// Extra returns the raw JSON of an unrecognised persisted field.
func (r Record) Extra(name string) (json.RawMessage, bool) {
	v, ok := r.extras[name]
	return v, ok
}

func (r Record) clone() Record {
	if r.extras != nil {
		extras := make(map[string]json.RawMessage, len(r.extras))
		for k, v := range r.extras {
			extras[k] = v
		}
		r.extras = extras
	}
	return r
}

func cloneLog(log []Record) []Record {
	out := make([]Record, len(log))
	for i, r := range log {
		out[i] = r.clone()
	}
	return out
}
