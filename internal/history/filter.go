package history

// FilterKind returns the records of the given kind, in log order.
func FilterKind(log []Record, kind Kind) []Record {
	out := make([]Record, 0, len(log))
	for _, rec := range log {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// CountByKind tallies records per kind.
func CountByKind(log []Record) map[Kind]int {
	counts := make(map[Kind]int)
	for _, rec := range log {
		counts[rec.Kind]++
	}
	return counts
}

// NewestFirst returns a reversed copy of log.
func NewestFirst(log []Record) []Record {
	out := make([]Record, len(log))
	for i, rec := range log {
		out[len(log)-1-i] = rec
	}
	return out
}

// Recent returns up to n of the newest records, newest first.
func Recent(log []Record, n int) []Record {
	if n <= 0 {
		return []Record{}
	}
	out := NewestFirst(log)
	if len(out) > n {
		out = out[:n]
	}
	return out
}
