package testutil

import (
	"context"
	"sync"

	"github.com/roach88/text2visuals/internal/kv"
)

// HookSubstrate wraps a kv.Substrate with failure injection and hooks.
//
// Fail* fields make the matching operation return the error instead of
// reaching the wrapped substrate. BeforeSet runs before every Set and may
// itself touch the substrate, which is how tests interleave two stores.
type HookSubstrate struct {
	kv.Substrate

	mu         sync.Mutex
	FailGet    error
	FailSet    error
	FailRemove error
	BeforeSet  func(key, value string)

	Sets    int
	Removes int
}

// NewHookSubstrate wraps inner.
func NewHookSubstrate(inner kv.Substrate) *HookSubstrate {
	return &HookSubstrate{Substrate: inner}
}

// Get fails with FailGet when set, otherwise delegates.
func (h *HookSubstrate) Get(ctx context.Context, key string) (string, bool, error) {
	h.mu.Lock()
	err := h.FailGet
	h.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return h.Substrate.Get(ctx, key)
}

// Set counts the call, runs BeforeSet, then fails with FailSet when set or
// delegates.
func (h *HookSubstrate) Set(ctx context.Context, key, value string) error {
	h.mu.Lock()
	err, hook := h.FailSet, h.BeforeSet
	h.Sets++
	h.mu.Unlock()
	if hook != nil {
		hook(key, value)
	}
	if err != nil {
		return err
	}
	return h.Substrate.Set(ctx, key, value)
}

// Remove counts the call, then fails with FailRemove when set or delegates.
func (h *HookSubstrate) Remove(ctx context.Context, key string) error {
	h.mu.Lock()
	err := h.FailRemove
	h.Removes++
	h.mu.Unlock()
	if err != nil {
		return err
	}
	return h.Substrate.Remove(ctx, key)
}

// SetCount returns how many Set calls were attempted.
func (h *HookSubstrate) SetCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Sets
}
