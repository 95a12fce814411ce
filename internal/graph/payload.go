package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	"golang.org/x/text/unicode/norm"
)

// ErrMalformedPayload is returned when a payload is not structurally a
// node/edge document. Value-level oddities (unknown edge ids, bad depths,
// mistyped labels or estimates) are not errors.
var ErrMalformedPayload = errors.New("malformed graph payload")

// payloadSchema checks structure only. Every struct stays open so fields the
// generator adds later do not break decoding.
const payloadSchema = `
#Node: {
	id:            string
	label?:        _
	depth?:        _
	timeEstimate?: _
	...
}

#Edge: {
	from?: string | null
	to?:   string | null
	...
}

#Payload: {
	nodes?: [...#Node] | null
	edges?: [...#Edge] | null
	...
}
`

type wireNode struct {
	ID           string          `json:"id"`
	Label        json.RawMessage `json:"label"`
	Depth        json.RawMessage `json:"depth"`
	TimeEstimate json.RawMessage `json:"timeEstimate"`
}

type wireEdge struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

type wirePayload struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

// DecodePayload validates and normalises a generator response.
func DecodePayload(data []byte) (Payload, error) {
	if err := validatePayload(data); err != nil {
		return Payload{}, err
	}

	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	p := Payload{
		Nodes: make([]Node, 0, len(w.Nodes)),
		Edges: make([]Edge, 0, len(w.Edges)),
	}
	for _, n := range w.Nodes {
		p.Nodes = append(p.Nodes, normalizeNode(n))
	}
	for _, e := range w.Edges {
		p.Edges = append(p.Edges, Edge{From: deref(e.From), To: deref(e.To)})
	}
	return p, nil
}

func validatePayload(data []byte) error {
	expr, err := cuejson.Extract("payload.json", data)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedPayload, cueerrors.Details(err, nil))
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(payloadSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile payload schema: %w", err)
	}

	v := ctx.BuildExpr(expr)
	unified := schema.LookupPath(cue.ParsePath("#Payload")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedPayload, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// maxDepth caps advisory depths so the float to int conversion stays in range.
const maxDepth = math.MaxInt32

// normalizeNode maps label, depth and timeEstimate of any JSON type onto
// Node. Values of the wrong type read as absent.
func normalizeNode(n wireNode) Node {
	node := Node{
		ID:    n.ID,
		Label: CleanLabel(rawString(n.Label)),
	}
	if d, ok := rawNumber(n.Depth); ok && d > 0 {
		node.Depth = int(min(d, maxDepth))
	}
	if v, ok := rawNumber(n.TimeEstimate); ok && v > 0 {
		node.TimeEstimate = &v
	}
	return node
}

func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// rawNumber reports false for null, non-numbers and numbers outside float64.
func rawNumber(raw json.RawMessage) (float64, bool) {
	var f *float64
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil || f == nil {
		return 0, false
	}
	return *f, true
}

// CleanLabel collapses runs of whitespace, trims the ends and applies NFC
// normalisation.
func CleanLabel(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
