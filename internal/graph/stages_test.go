package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minutes(v float64) *float64 { return &v }

func TestBuildFlowchart(t *testing.T) {
	tree := Resolve([]Node{
		{ID: "0", Label: "label"},
		{ID: "1", Label: "Gather requirements", TimeEstimate: minutes(30)},
		{ID: "2", Label: "LABEL2."},
		{ID: "3", Label: "Interview users", TimeEstimate: minutes(15)},
	}, []Edge{
		{From: "0", To: "1"},
		{From: "0", To: "2"},
		{From: "1", To: "3"},
	})
	require.NotNil(t, tree)

	fc := BuildFlowchart(tree.Root, "Plan a product launch")

	assert.Equal(t, "Plan a product launch", fc.Title)
	require.Len(t, fc.Stages, 2)
	assert.Equal(t, "Gather requirements", fc.Stages[0].Label)
	assert.Equal(t, 1, fc.Stages[0].Index)
	require.Len(t, fc.Stages[0].Steps, 1)
	assert.Equal(t, "Interview users", fc.Stages[0].Steps[0].Label)

	assert.Equal(t, "Stage 2", fc.Stages[1].Label)
	assert.Nil(t, fc.Stages[1].Minutes)
	assert.Equal(t, 30.0, fc.TotalMinutes, "only stage estimates are summed")
}

func TestBuildFlowchart_NilRoot(t *testing.T) {
	fc := BuildFlowchart(nil, "prompt")
	assert.Equal(t, "prompt", fc.Title)
	assert.Empty(t, fc.Stages)
	assert.Zero(t, fc.TotalMinutes)
}

func TestBuildFlowchart_PlaceholderRootWithoutPrompt(t *testing.T) {
	fc := BuildFlowchart(&TreeNode{ID: "0", Label: "Label"}, "")
	assert.Equal(t, "Label", fc.Title)
}

func TestIsPlaceholder(t *testing.T) {
	for _, s := range []string{"label", "Label", "label3", "LABEL12.", "label."} {
		assert.True(t, IsPlaceholder(s), s)
	}
	for _, s := range []string{"Labeling data", "relabel", "Step 1", "", "label 1"} {
		assert.False(t, IsPlaceholder(s), s)
	}
}

func TestRoleForDepth(t *testing.T) {
	assert.Equal(t, RoleMain, RoleForDepth(0))
	assert.Equal(t, RoleSub, RoleForDepth(1))
	assert.Equal(t, RoleContent, RoleForDepth(2))
	assert.Equal(t, RoleContent, RoleForDepth(7))
}
