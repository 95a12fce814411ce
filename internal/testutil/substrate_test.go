package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/text2visuals/internal/kv"
)

func TestHookSubstrate_InjectsFailures(t *testing.T) {
	ctx := context.Background()
	h := NewHookSubstrate(kv.NewMemory(0))
	boom := errors.New("boom")

	require.NoError(t, h.Set(ctx, "k", "v"))

	h.FailGet = boom
	_, _, err := h.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	h.FailGet = nil

	h.FailSet = boom
	assert.ErrorIs(t, h.Set(ctx, "k", "other"), boom)
	h.FailSet = nil

	h.FailRemove = boom
	assert.ErrorIs(t, h.Remove(ctx, "k"), boom)

	v, ok, err := h.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, 2, h.SetCount())
}

func TestHookSubstrate_BeforeSet(t *testing.T) {
	ctx := context.Background()
	h := NewHookSubstrate(kv.NewMemory(0))

	var keys []string
	h.BeforeSet = func(key, _ string) { keys = append(keys, key) }

	require.NoError(t, h.Set(ctx, "a", "1"))
	require.NoError(t, h.Set(ctx, "b", "2"))
	assert.Equal(t, []string{"a", "b"}, keys)
}
