package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/roach88/text2visuals/internal/history"
	"github.com/roach88/text2visuals/internal/kv"
)

// session is one opened history store plus the substrate and metrics
// registry behind it.
type session struct {
	store    *history.Store
	sub      kv.Substrate
	registry *prometheus.Registry
	opts     *RootOptions
}

func openSession(opts *RootOptions) (*session, error) {
	kvOpts := opts.config.KVOptions()
	if kvOpts.Driver == kv.DriverSQLite {
		if dir := filepath.Dir(kvOpts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	sub, err := kv.Open(kvOpts)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	store := history.New(sub,
		history.WithCapacity(opts.config.Store.Capacity),
		history.WithLogger(opts.logger),
		history.WithMetrics(history.NewMetrics(reg)),
	)

	opts.logger.Debug("history store opened",
		"trace_id", opts.traceID,
		"driver", sub.Driver(),
		"capacity", store.Capacity())

	return &session{store: store, sub: sub, registry: reg, opts: opts}, nil
}

// Close logs the counters gathered during the command and closes the
// substrate.
func (s *session) Close() {
	s.logMetrics()
	if err := s.sub.Close(); err != nil {
		s.opts.logger.Error("error closing history substrate", "error", err)
	}
}

func (s *session) logMetrics() {
	families, err := s.registry.Gather()
	if err != nil {
		s.opts.logger.Debug("metrics gather failed", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter().GetValue() == 0 {
				continue
			}
			args := []any{"trace_id", s.opts.traceID, "metric", mf.GetName(), "value", m.GetCounter().GetValue()}
			args = append(args, labelArgs(m.GetLabel())...)
			s.opts.logger.Debug("history metric", args...)
		}
	}
}

func labelArgs(labels []*dto.LabelPair) []any {
	args := make([]any, 0, 2*len(labels))
	for _, lp := range labels {
		args = append(args, lp.GetName(), lp.GetValue())
	}
	return args
}
