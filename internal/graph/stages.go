package graph

import (
	"regexp"
	"strconv"
)

// placeholderLabel matches the key-like labels some generator responses leak
// into node text ("label", "Label3", "label2.").
var placeholderLabel = regexp.MustCompile(`(?i)^label\d*\.?$`)

// Stage is one top-level step of a flowchart: a child of the root.
type Stage struct {
	Index   int         `json:"index"` // 1-based
	ID      string      `json:"id"`
	Label   string      `json:"label"`
	Minutes *float64    `json:"minutes,omitempty"`
	Steps   []*TreeNode `json:"steps"`
}

// Flowchart is the staged view of a resolved tree.
type Flowchart struct {
	Title        string  `json:"title"`
	Stages       []Stage `json:"stages"`
	TotalMinutes float64 `json:"totalMinutes"`
}

// BuildFlowchart lays a tree out as a title and stages. A placeholder root
// label is replaced by the prompt and a placeholder stage label by
// "Stage N". The root's own time estimate is not part of the total.
func BuildFlowchart(root *TreeNode, prompt string) Flowchart {
	fc := Flowchart{Stages: []Stage{}}
	if root == nil {
		fc.Title = prompt
		return fc
	}

	fc.Title = root.Label
	if IsPlaceholder(root.Label) && prompt != "" {
		fc.Title = prompt
	}

	for i, child := range root.Children {
		st := Stage{
			Index:   i + 1,
			ID:      child.ID,
			Label:   child.Label,
			Minutes: cloneFloat(child.TimeEstimate),
			Steps:   child.Children,
		}
		if IsPlaceholder(child.Label) {
			st.Label = "Stage " + strconv.Itoa(i+1)
		}
		if st.Minutes != nil {
			fc.TotalMinutes += *st.Minutes
		}
		fc.Stages = append(fc.Stages, st)
	}
	return fc
}

// IsPlaceholder reports whether a label is a leaked key name rather than
// real text.
func IsPlaceholder(label string) bool {
	return placeholderLabel.MatchString(label)
}
