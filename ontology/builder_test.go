package ontology

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseRows() []Row {
	return []Row{
		{ID: "1", Name: "BASE"},
		{ID: "2", Parents: []string{"1"}, Name: "RESPONSE_INHIBITION"},
		{ID: "3", Parents: []string{"1"}, Name: "RISK_SEEKING"},
		{ID: "4", Parents: []string{"2"}, Name: "DS000009"},
	}
}

func TestBuild(t *testing.T) {
	t.Run("CollectNamesFromRoot", func(t *testing.T) {
		tree, err := Build(baseRows())
		require.NoError(t, err)

		names := tree.CollectNames(tree.Root())
		assert.ElementsMatch(t, []string{"BASE", "RESPONSE_INHIBITION", "RISK_SEEKING", "DS000009"}, names)
	})

	t.Run("RowOrderDoesNotMatter", func(t *testing.T) {
		rows := baseRows()
		reversed := []Row{rows[3], rows[2], rows[1], rows[0]}

		tree, err := Build(reversed)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"BASE", "RESPONSE_INHIBITION", "RISK_SEEKING", "DS000009"}, tree.CollectNames("1"))
		assert.Equal(t, []string{"4"}, tree.Children("2"))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		rows := []Row{
			{ID: "1", Name: "BASE"},
			{ID: "2", Parents: []string{"1"}, Name: "A"},
			{ID: "3", Parents: []string{"1"}, Name: "B"},
			{ID: "4", Parents: []string{"2", "3"}, Name: "SHARED"},
			{ID: "5", Parents: []string{"4"}, Name: "LEAF"},
			{ID: "6", Parents: []string{"1"}, Name: "LONELY"},
		}
		tree, err := Build(rows)
		require.NoError(t, err)

		var want []Edge
		for _, r := range rows {
			if len(r.Parents) == 0 {
				want = append(want, Edge{ID: r.ID, Name: r.Name})
			}
			for _, p := range r.Parents {
				want = append(want, Edge{ID: r.ID, Parent: p, Name: r.Name})
			}
		}
		assert.ElementsMatch(t, want, tree.Edges())
	})

	t.Run("MultiParentMergedAcrossRows", func(t *testing.T) {
		rows := []Row{
			{ID: "1", Name: "BASE"},
			{ID: "2", Parents: []string{"1"}, Name: "A"},
			{ID: "3", Parents: []string{"1"}, Name: "B"},
			{ID: "4", Parents: []string{"2"}, Name: "X"},
			{ID: "4", Parents: []string{"3"}, Name: "X"},
		}
		tree, err := Build(rows)
		require.NoError(t, err)

		n, ok := tree.Node("4")
		require.True(t, ok)
		assert.Equal(t, []string{"2", "3"}, n.Parents)
		assert.Equal(t, []string{"A", "X"}, tree.CollectNames("2"))
		assert.Equal(t, []string{"B", "X"}, tree.CollectNames("3"))
		assert.Equal(t, 1, strings.Count(strings.Join(tree.CollectNames("1"), ","), "X"))
	})

	t.Run("RootWithoutConventionalID", func(t *testing.T) {
		tree, err := Build([]Row{
			{ID: "root", Parents: []string{"None"}, Name: "BASE"},
			{ID: "a", Parents: []string{"root"}, Name: "A"},
		})
		require.NoError(t, err)
		assert.Equal(t, "root", tree.Root())
	})
}

func TestBuildErrors(t *testing.T) {
	t.Run("TwoNodeCycle", func(t *testing.T) {
		_, err := Build([]Row{
			{ID: "1", Name: "BASE"},
			{ID: "2", Parents: []string{"1", "3"}, Name: "A"},
			{ID: "3", Parents: []string{"2"}, Name: "B"},
		})
		var cre *CircularReferenceError
		require.ErrorAs(t, err, &cre)
		assert.ElementsMatch(t, []string{"2", "3"}, []string{cre.A, cre.B})
	})

	t.Run("LongCycle", func(t *testing.T) {
		_, err := Build([]Row{
			{ID: "1", Name: "BASE"},
			{ID: "a", Parents: []string{"1", "c"}, Name: "A"},
			{ID: "b", Parents: []string{"a"}, Name: "B"},
			{ID: "c", Parents: []string{"b"}, Name: "C"},
		})
		var cre *CircularReferenceError
		require.ErrorAs(t, err, &cre)
		assert.Equal(t, "a", cre.A)
		assert.Equal(t, "c", cre.B)
	})

	t.Run("SelfParent", func(t *testing.T) {
		_, err := Build([]Row{
			{ID: "1", Name: "BASE"},
			{ID: "2", Parents: []string{"2"}, Name: "A"},
		})
		var cre *CircularReferenceError
		require.ErrorAs(t, err, &cre)
		assert.Equal(t, "2", cre.A)
		assert.Equal(t, "2", cre.B)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		_, err := Build([]Row{
			{ID: "1", Name: "BASE"},
			{ID: "2", Parents: []string{"1"}, Name: "A"},
			{ID: "2", Parents: []string{"1"}, Name: "B"},
		})
		var dne *DuplicateNodeError
		require.ErrorAs(t, err, &dne)
		assert.Equal(t, "2", dne.ID)
	})

	t.Run("UnknownParent", func(t *testing.T) {
		_, err := Build([]Row{
			{ID: "1", Name: "BASE"},
			{ID: "2", Parents: []string{"9"}, Name: "A"},
		})
		require.ErrorIs(t, err, ErrUnknownParent)
	})

	t.Run("MissingName", func(t *testing.T) {
		_, err := Build([]Row{{ID: "1"}})
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, FieldName, se.Column)
	})

	t.Run("NoRoot", func(t *testing.T) {
		_, err := Build([]Row{
			{ID: "a", Name: "A"},
			{ID: "b", Name: "B"},
		})
		require.ErrorIs(t, err, ErrNoRoot)
	})

	t.Run("ExplicitRootMissing", func(t *testing.T) {
		_, err := Build(baseRows(), WithRootID("nope"))
		require.ErrorIs(t, err, ErrNoRoot)
	})
}

func TestNested(t *testing.T) {
	t.Run("PrunesChildlessFirstLevel", func(t *testing.T) {
		tree, err := Build(baseRows())
		require.NoError(t, err)
		assert.Equal(t, []string{"3"}, tree.Pruned())

		n, err := tree.Nested(tree.Root())
		require.NoError(t, err)
		require.Len(t, n.Children, 1)
		assert.Equal(t, "RESPONSE_INHIBITION", n.Children[0].Name)
		assert.Equal(t, "DS000009", n.Children[0].Children[0].Name)
	})

	t.Run("WithoutPruning", func(t *testing.T) {
		tree, err := Build(baseRows(), WithoutPruning())
		require.NoError(t, err)

		n, err := tree.Nested(tree.Root())
		require.NoError(t, err)
		assert.Len(t, n.Children, 2)
	})

	t.Run("CategoryGrouping", func(t *testing.T) {
		rows := []Row{
			{ID: "1", Name: "BASE"},
			{ID: "a", Parents: []string{"1"}, Name: "ATTN"},
			{ID: "b", Parents: []string{"1"}, Name: "PLAIN"},
			{ID: "a1", Parents: []string{"a"}, Name: "IMG1"},
			{ID: "b1", Parents: []string{"b"}, Name: "IMG2"},
		}
		meta := map[string]Meta{"a": {Category: "ctp_C2"}}

		tree, err := Build(rows, WithMeta(meta), WithCategories(CognitiveAtlasCategories()))
		require.NoError(t, err)

		n, err := tree.Nested(tree.Root())
		require.NoError(t, err)
		require.Len(t, n.Children, 2)
		assert.Equal(t, "PLAIN", n.Children[0].Name)
		assert.Equal(t, "ctp_C2", n.Children[1].ID)
		assert.Equal(t, "Attention", n.Children[1].Name)
		require.Len(t, n.Children[1].Children, 1)
		assert.Equal(t, "ATTN", n.Children[1].Children[0].Name)

		// Grouping is presentation only.
		assert.Equal(t, []string{"a", "b"}, tree.Children("1"))
	})

	t.Run("JSON", func(t *testing.T) {
		tree, err := Build(baseRows(), WithMeta(map[string]Meta{
			"2": {Category: "ctp_C4", Extra: map[string]any{"score": 0.7}},
		}))
		require.NoError(t, err)

		data, err := json.Marshal(tree)
		require.NoError(t, err)

		var decoded Nested
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "BASE", decoded.Name)
		require.Len(t, decoded.Children, 1)
		assert.Equal(t, "ctp_C4", decoded.Children[0].Meta.Category)
		assert.InDelta(t, 0.7, decoded.Children[0].Meta.Extra["score"], 1e-12)
	})
}
