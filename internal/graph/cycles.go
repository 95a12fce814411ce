package graph

import "sort"

// stronglyConnected returns the cycles among the retained edges: strongly
// connected components with more than one member, plus single nodes with a
// self-loop. Members are listed in input order and components are ordered by
// their first member, so the result is deterministic.
//
// Tarjan's algorithm, visiting nodes in input order and successors in edge
// order. The depth-first search keeps its own frame stack so long chains do
// not grow the goroutine stack.
func stronglyConnected(ix *index) [][]string {
	type frame struct {
		id   string
		next int // index of the next child to visit
	}

	var (
		counter int
		stack   []string
		calls   []frame
		indices = make(map[string]int, len(ix.order))
		lowlink = make(map[string]int, len(ix.order))
		onStack = make(map[string]bool, len(ix.order))
		sccs    [][]string
	)

	visit := func(v string) {
		indices[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		calls = append(calls, frame{id: v})
	}

	for _, id := range ix.order {
		if _, visited := indices[id]; visited {
			continue
		}
		visit(id)

		for len(calls) > 0 {
			top := &calls[len(calls)-1]
			v := top.id
			if kids := ix.children[v]; top.next < len(kids) {
				w := kids[top.next]
				top.next++
				if _, visited := indices[w]; !visited {
					visit(w)
				} else if onStack[w] {
					lowlink[v] = min(lowlink[v], indices[w])
				}
				continue
			}

			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				parent := calls[len(calls)-1].id
				lowlink[parent] = min(lowlink[parent], lowlink[v])
			}

			if lowlink[v] == indices[v] {
				var scc []string
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				if len(scc) > 1 || hasSelfLoop(ix, scc[0]) {
					sccs = append(sccs, scc)
				}
			}
		}
	}

	position := make(map[string]int, len(ix.order))
	for i, id := range ix.order {
		position[id] = i
	}
	for _, scc := range sccs {
		sort.Slice(scc, func(i, j int) bool { return position[scc[i]] < position[scc[j]] })
	}
	sort.Slice(sccs, func(i, j int) bool { return position[sccs[i][0]] < position[sccs[j][0]] })
	return sccs
}

func hasSelfLoop(ix *index, id string) bool {
	for _, child := range ix.children[id] {
		if child == id {
			return true
		}
	}
	return false
}
