package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/text2visuals/internal/history"
	"github.com/roach88/text2visuals/internal/identity"
	"github.com/roach88/text2visuals/internal/kv"
)

// HistoryOptions holds flags shared by the history subcommands.
type HistoryOptions struct {
	*RootOptions
	UserID string
	Handle string
}

func (o *HistoryOptions) owner() identity.Owner {
	return identity.Owner{ID: o.UserID, Handle: o.Handle}
}

// RecordView is the output form of a history record.
type RecordView struct {
	ID        string `json:"id"`
	Kind      string `json:"type"`
	Prompt    string `json:"prompt"`
	Image     string `json:"image,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UserID    string `json:"userId,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

func viewOf(rec history.Record) RecordView {
	v := RecordView{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		Prompt:    rec.Prompt,
		Image:     rec.Image,
		UserID:    rec.OwnerID,
		UserEmail: rec.OwnerHandle,
	}
	if !rec.CreatedAt.IsZero() {
		v.CreatedAt = rec.CreatedAt.UTC().Format(history.TimeLayout)
	}
	return v
}

func viewsOf(log []history.Record) []RecordView {
	out := make([]RecordView, len(log))
	for i, rec := range log {
		out[i] = viewOf(rec)
	}
	return out
}

// ListResult is the JSON payload of history list and watch.
type ListResult struct {
	Namespace string         `json:"namespace"`
	Total     int            `json:"total"`
	Counts    map[string]int `json:"counts"`
	Records   []RecordView   `json:"records"`
}

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the local history of generated visuals",
		Long: `Manage the per-user history log.

Each user's log holds the 50 most recent records (configurable). Logs are
keyed by --handle when given, else by --user. A log written under --user
alone is merged into the --handle log the next time both are given.

Examples:
  t2v history save --user u1 --handle u1@example.com --kind mindmap --prompt "Plan a trip"
  t2v history list --user u1 --handle u1@example.com --kind flowchart --newest-first
  t2v history delete --user u1 1714564800000
  t2v history clear --user u1 --handle u1@example.com`,
	}

	cmd.PersistentFlags().StringVar(&opts.UserID, "user", "", "durable user identifier")
	cmd.PersistentFlags().StringVar(&opts.Handle, "handle", "", "human-readable user handle (e.g. email)")

	cmd.AddCommand(newHistorySaveCommand(opts))
	cmd.AddCommand(newHistoryListCommand(opts))
	cmd.AddCommand(newHistoryDeleteCommand(opts))
	cmd.AddCommand(newHistoryClearCommand(opts))
	cmd.AddCommand(newHistoryWatchCommand(opts))

	return cmd
}

// begin prepares configuration, checks the identity flags and opens the
// store.
func (o *HistoryOptions) begin(cmd *cobra.Command) (*OutputFormatter, *session, error) {
	if err := o.prepare(cmd); err != nil {
		return nil, nil, err
	}
	formatter := o.formatter(cmd)

	if !o.owner().Valid() {
		return formatter, nil, formatter.Fail(ExitCommandError, CodeNoIdentity, "one of --user or --handle is required", nil)
	}

	sess, err := openSession(o.RootOptions)
	if err != nil {
		return formatter, nil, formatter.Fail(ExitCommandError, CodeStoreFailure, "failed to open history store", err)
	}
	formatter.VerboseLog("namespace: %s", o.owner().Namespace())
	return formatter, sess, nil
}

type saveOptions struct {
	*HistoryOptions
	Kind   string
	Prompt string
	Image  string
}

func newHistorySaveCommand(hopts *HistoryOptions) *cobra.Command {
	opts := &saveOptions{HistoryOptions: hopts}

	cmd := &cobra.Command{
		Use:           "save",
		Short:         "Append a record to the history log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistorySave(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "visual type (mindmap|flowchart) (required)")
	_ = cmd.MarkFlagRequired("kind")
	cmd.Flags().StringVar(&opts.Prompt, "prompt", "", "prompt the visual was generated from (required)")
	_ = cmd.MarkFlagRequired("prompt")
	cmd.Flags().StringVar(&opts.Image, "image", "", "encoded rendering, e.g. a data URL")

	return cmd
}

func runHistorySave(opts *saveOptions, cmd *cobra.Command) error {
	formatter, sess, err := opts.begin(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	kind := history.Kind(strings.ToLower(opts.Kind))
	if !kind.Valid() {
		return formatter.Fail(ExitCommandError, CodeBadInput,
			fmt.Sprintf("invalid kind %q: must be mindmap or flowchart", opts.Kind), nil)
	}

	rec, ok := sess.store.Save(commandContext(cmd), opts.owner(), kind, opts.Prompt, opts.Image)
	if !ok {
		return formatter.Fail(ExitFailure, CodeStoreFailure, "history record not saved", nil)
	}

	view := viewOf(rec)
	return formatter.Success(view, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Saved %s %s\n", view.Kind, view.ID)
		return err
	})
}

type listOptions struct {
	*HistoryOptions
	Kind        string
	Limit       int
	NewestFirst bool
}

func newHistoryListCommand(hopts *HistoryOptions) *cobra.Command {
	opts := &listOptions{HistoryOptions: hopts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "Show the history log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show this visual type")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most N records (0 = all)")
	cmd.Flags().BoolVar(&opts.NewestFirst, "newest-first", false, "show the newest record first")

	return cmd
}

func runHistoryList(opts *listOptions, cmd *cobra.Command) error {
	formatter, sess, err := opts.begin(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if opts.Kind != "" && !history.Kind(opts.Kind).Valid() {
		return formatter.Fail(ExitCommandError, CodeBadInput,
			fmt.Sprintf("invalid kind %q: must be mindmap or flowchart", opts.Kind), nil)
	}

	log := sess.store.Load(commandContext(cmd), opts.owner())
	result := opts.listResult(log)
	return formatter.Success(result, func(w io.Writer) error {
		return writeList(w, result)
	})
}

func (o *listOptions) listResult(log []history.Record) ListResult {
	counts := make(map[string]int)
	for kind, n := range history.CountByKind(log) {
		counts[string(kind)] = n
	}

	view := log
	if o.Kind != "" {
		view = history.FilterKind(view, history.Kind(o.Kind))
	}
	switch {
	case o.Limit > 0:
		view = history.Recent(view, o.Limit)
		if !o.NewestFirst {
			view = history.NewestFirst(view)
		}
	case o.NewestFirst:
		view = history.NewestFirst(view)
	}

	return ListResult{
		Namespace: o.owner().Namespace(),
		Total:     len(log),
		Counts:    counts,
		Records:   viewsOf(view),
	}
}

func writeList(w io.Writer, result ListResult) error {
	if len(result.Records) == 0 {
		_, err := fmt.Fprintf(w, "No history in %s\n", result.Namespace)
		return err
	}
	for _, r := range result.Records {
		if _, err := fmt.Fprintf(w, "%s  %-9s  %s  %s\n", r.ID, r.Kind, r.CreatedAt, r.Prompt); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d of %d records (mindmap: %d, flowchart: %d)\n",
		len(result.Records), result.Total,
		result.Counts[string(history.KindMindmap)], result.Counts[string(history.KindFlowchart)])
	return err
}

func newHistoryDeleteCommand(opts *HistoryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete ITEM_ID",
		Short:         "Remove one record from the history log",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, sess, err := opts.begin(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			if !sess.store.DeleteOne(commandContext(cmd), opts.owner(), args[0]) {
				return formatter.Fail(ExitFailure, CodeStoreFailure, "history record not deleted", nil)
			}
			return formatter.Success(map[string]string{"deleted": args[0]}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted %s\n", args[0])
				return err
			})
		},
	}
}

func newHistoryClearCommand(opts *HistoryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Remove the whole history log, including any legacy log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, sess, err := opts.begin(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			owner := opts.owner()
			if !sess.store.Clear(commandContext(cmd), owner) {
				return formatter.Fail(ExitFailure, CodeStoreFailure, "history not fully cleared", nil)
			}
			return formatter.Success(map[string]string{"cleared": owner.Namespace()}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Cleared %s\n", owner.Namespace())
				return err
			})
		},
	}
}

type watchOptions struct {
	*HistoryOptions
	Debounce time.Duration
}

func newHistoryWatchCommand(hopts *HistoryOptions) *cobra.Command {
	opts := &watchOptions{HistoryOptions: hopts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-list the history log whenever it changes",
		Long: `Print the history log, then print it again every time it changes,
including changes made by other t2v processes. Requires the file driver.

Runs until interrupted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryWatch(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 50*time.Millisecond, "wait this long for a burst of changes to settle")

	return cmd
}

func runHistoryWatch(opts *watchOptions, cmd *cobra.Command) error {
	formatter, sess, err := opts.begin(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	file, ok := sess.sub.(*kv.File)
	if !ok {
		return formatter.Fail(ExitCommandError, CodeBadInput,
			fmt.Sprintf("watch requires the file driver, not %s", sess.sub.Driver()), nil)
	}

	ctx := commandContext(cmd)

	external, err := file.Watch(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, CodeStoreFailure, "failed to watch history directory", err)
	}
	local := sess.store.Watch(ctx)

	owner := opts.owner()
	relevant := map[string]bool{owner.Namespace(): true}
	if legacy := owner.LegacyNamespace(); legacy != "" {
		relevant[legacy] = true
	}

	lister := &listOptions{HistoryOptions: opts.HistoryOptions}
	emit := func() error {
		result := lister.listResult(sess.store.Load(ctx, owner))
		return formatter.Success(result, func(w io.Writer) error {
			return writeList(w, result)
		})
	}

	if err := emit(); err != nil {
		return err
	}

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case key, ok := <-external:
			if !ok {
				return nil
			}
			if relevant[key] && settle == nil {
				settle = time.After(opts.Debounce)
			}
		case <-local:
			if settle == nil {
				settle = time.After(opts.Debounce)
			}
		case <-settle:
			settle = nil
			opts.logger.Debug("history changed", "trace_id", opts.traceID, "namespace", owner.Namespace())
			if err := emit(); err != nil {
				return err
			}
		}
	}
}
