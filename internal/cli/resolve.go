package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/text2visuals/internal/graph"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Stages bool
	Prompt string
}

// ResolveResult is the JSON payload of the resolve command.
type ResolveResult struct {
	*graph.Tree
	Nodes     int              `json:"nodes"`
	Flowchart *graph.Flowchart `json:"flowchart,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve [payload.json|-]",
		Short: "Resolve a generated node/edge graph into a tree",
		Long: `Resolve a generator payload {nodes, edges} into a single rooted tree.

The root is the first node nobody points at, or the first node when every
node has a parent. Edges to unknown ids are dropped. Nodes with several
parents appear once under each; edges back to an ancestor are cut.

Reads the payload from the named file, or from stdin when the argument is
"-" or omitted.

Examples:
  t2v resolve payload.json
  t2v resolve payload.json --stages --prompt "Plan a product launch"
  cat payload.json | t2v resolve --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Stages, "stages", false, "render the tree as flowchart stages")
	cmd.Flags().StringVar(&opts.Prompt, "prompt", "", "prompt used as the flowchart title")

	return cmd
}

func runResolve(opts *ResolveOptions, cmd *cobra.Command, args []string) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	data, source, err := readPayload(cmd, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeBadInput, "failed to read payload", err)
	}
	formatter.VerboseLog("read %d bytes from %s", len(data), source)

	payload, err := graph.DecodePayload(data)
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeBadInput, "malformed payload", err)
	}

	tree := graph.Resolve(payload.Nodes, payload.Edges)
	if tree == nil {
		return formatter.Success(ResolveResult{Tree: &graph.Tree{}}, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, "(empty graph)")
			return err
		})
	}

	opts.logger.Debug("graph resolved",
		"trace_id", opts.traceID,
		"nodes", len(payload.Nodes),
		"edges", len(payload.Edges),
		"appearances", tree.Root.Count(),
		"shared", len(tree.Shared),
		"dropped", len(tree.Dropped),
		"cut", len(tree.Cut),
		"cycles", len(tree.Cycles))
	if tree.Truncated {
		opts.logger.Warn("tree expansion truncated", "limit", graph.MaxAppearances)
	}

	result := ResolveResult{Tree: tree, Nodes: tree.Root.Count()}
	if opts.Stages {
		fc := graph.BuildFlowchart(tree.Root, opts.Prompt)
		result.Flowchart = &fc
	}

	return formatter.Success(result, func(w io.Writer) error {
		if result.Flowchart != nil {
			return graph.WriteFlowchart(w, *result.Flowchart)
		}
		if err := graph.WriteOutline(w, tree.Root); err != nil {
			return err
		}
		return writeDiagnostics(w, tree)
	})
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, "stdin", err
	}
	data, err := os.ReadFile(args[0])
	return data, args[0], err
}

func writeDiagnostics(w io.Writer, tree *graph.Tree) error {
	if len(tree.Shared) > 0 {
		if _, err := fmt.Fprintf(w, "shared: %v\n", tree.Shared); err != nil {
			return err
		}
	}
	for _, e := range tree.Cut {
		if _, err := fmt.Fprintf(w, "cut: %s -> %s\n", e.From, e.To); err != nil {
			return err
		}
	}
	for _, e := range tree.Dropped {
		if _, err := fmt.Fprintf(w, "dropped: %q -> %q\n", e.From, e.To); err != nil {
			return err
		}
	}
	for _, c := range tree.Cycles {
		if _, err := fmt.Fprintf(w, "cycle: %v\n", c); err != nil {
			return err
		}
	}
	if tree.Truncated {
		if _, err := fmt.Fprintln(w, "truncated: true"); err != nil {
			return err
		}
	}
	return nil
}
