package graph

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// WriteOutline writes root as an indented bullet list, one node per line:
//
//	- Central Topic [0]
//	  - Subtopic [1] (~30 min)
//
// The output depends only on the tree, so it is suitable for golden files.
func WriteOutline(w io.Writer, root *TreeNode) error {
	bw := bufio.NewWriter(w)
	root.Walk(func(n *TreeNode, level int) bool {
		bw.WriteString(strings.Repeat("  ", level))
		bw.WriteString("- ")
		bw.WriteString(n.Label)
		bw.WriteString(" [")
		bw.WriteString(n.ID)
		bw.WriteString("]")
		if n.TimeEstimate != nil {
			bw.WriteString(" (~" + formatMinutes(*n.TimeEstimate) + " min)")
		}
		bw.WriteByte('\n')
		return true
	})
	return bw.Flush()
}

// WriteFlowchart writes the staged view of a flowchart.
func WriteFlowchart(w io.Writer, fc Flowchart) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(fc.Title)
	bw.WriteByte('\n')
	for _, st := range fc.Stages {
		bw.WriteString(strconv.Itoa(st.Index) + ". " + st.Label)
		if st.Minutes != nil {
			bw.WriteString(" (~" + formatMinutes(*st.Minutes) + " min)")
		}
		bw.WriteByte('\n')
		for _, step := range st.Steps {
			step.Walk(func(n *TreeNode, level int) bool {
				bw.WriteString(strings.Repeat("  ", level+1))
				bw.WriteString("- " + n.Label + "\n")
				return true
			})
		}
	}
	bw.WriteString("Total: ~" + formatMinutes(fc.TotalMinutes) + " min\n")
	return bw.Flush()
}

func formatMinutes(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}
