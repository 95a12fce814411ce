package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// TimeLayout is the persisted createdAt format (ISO-8601, UTC, milliseconds).
const TimeLayout = "2006-01-02T15:04:05.000Z"

// DecodeState tells an absent log apart from a corrupted one.
type DecodeState int

const (
	Absent DecodeState = iota
	Loaded
	Corrupted
)

func (s DecodeState) String() string {
	switch s {
	case Absent:
		return "absent"
	case Loaded:
		return "loaded"
	case Corrupted:
		return "corrupted"
	default:
		return fmt.Sprintf("DecodeState(%d)", int(s))
	}
}

// Decoded is the result of decoding a stored log.
type Decoded struct {
	Log     []Record // never nil
	State   DecodeState
	Skipped int   // array elements that were not objects
	Err     error // set when State is Corrupted
}

var errNotArray = errors.New("stored log is not a JSON array")

var knownFields = map[string]bool{
	"id": true, "type": true, "prompt": true, "image": true,
	"createdAt": true, "userId": true, "userEmail": true,
}

// Decode parses stored log text. present is false when the key was missing.
func Decode(raw string, present bool) Decoded {
	if !present {
		return Decoded{Log: []Record{}, State: Absent}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return Decoded{Log: []Record{}, State: Corrupted, Err: fmt.Errorf("decode log: %w", err)}
	}
	if elems == nil {
		// JSON null
		return Decoded{Log: []Record{}, State: Corrupted, Err: errNotArray}
	}

	d := Decoded{Log: make([]Record, 0, len(elems)), State: Loaded}
	for _, elem := range elems {
		rec, ok := decodeRecord(elem)
		if !ok {
			d.Skipped++
			continue
		}
		d.Log = append(d.Log, rec)
	}
	return d
}

func decodeRecord(data json.RawMessage) (Record, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Record{}, false
	}

	var rec Record
	for name, value := range fields {
		switch name {
		case "id":
			rec.ID = decodeID(value)
		case "type":
			rec.Kind = Kind(decodeString(value))
		case "prompt":
			rec.Prompt = decodeString(value)
		case "image":
			rec.Image = decodeString(value)
		case "createdAt":
			rec.CreatedAt = decodeTime(value)
		case "userId":
			rec.OwnerID = decodeString(value)
		case "userEmail":
			rec.OwnerHandle = decodeString(value)
		default:
			if rec.extras == nil {
				rec.extras = make(map[string]json.RawMessage)
			}
			rec.extras[name] = append(json.RawMessage(nil), value...)
		}
	}
	return rec, true
}

func decodeString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// decodeID accepts numeric ids as well as strings.
func decodeID(v json.RawMessage) string {
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return decodeString(v)
}

func decodeTime(v json.RawMessage) time.Time {
	s := decodeString(v)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{TimeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Encode renders log as stored text.
func Encode(log []Record) (string, error) {
	elems := make([]json.RawMessage, 0, len(log))
	for _, rec := range log {
		data, err := encodeRecord(rec)
		if err != nil {
			return "", fmt.Errorf("encode record %q: %w", rec.ID, err)
		}
		elems = append(elems, data)
	}
	out, err := json.Marshal(elems)
	if err != nil {
		return "", fmt.Errorf("encode log: %w", err)
	}
	return string(out), nil
}

type field struct {
	name  string
	value any
}

func encodeRecord(rec Record) (json.RawMessage, error) {
	fields := []field{
		{"id", rec.ID},
		{"type", string(rec.Kind)},
		{"prompt", rec.Prompt},
	}
	if rec.Image != "" {
		fields = append(fields, field{"image", rec.Image})
	}
	var created string
	if !rec.CreatedAt.IsZero() {
		created = rec.CreatedAt.UTC().Format(TimeLayout)
	}
	fields = append(fields,
		field{"createdAt", created},
		field{"userId", rec.OwnerID},
	)
	if rec.OwnerHandle == "" {
		fields = append(fields, field{"userEmail", nil})
	} else {
		fields = append(fields, field{"userEmail", rec.OwnerHandle})
	}

	extraNames := make([]string, 0, len(rec.extras))
	for name := range rec.extras {
		if !knownFields[name] {
			extraNames = append(extraNames, name)
		}
	}
	sort.Strings(extraNames)
	for _, name := range extraNames {
		fields = append(fields, field{name, rec.extras[name]})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
