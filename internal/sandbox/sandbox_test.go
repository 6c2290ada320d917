package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/datareadygo/internal/dataset"
)

func mustDataset(t *testing.T, columns ...dataset.Column) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(columns...)
	require.NoError(t, err)
	return ds
}

func people(t *testing.T) *dataset.Dataset {
	t.Helper()
	return mustDataset(t,
		dataset.Column{Name: "age", Kind: dataset.KindNumber, Cells: []any{30.0, nil, 45.0, 22.0}},
		dataset.Column{Name: "name", Kind: dataset.KindString, Cells: []any{"ann", "bob", "cid", "dee"}},
		dataset.Column{Name: "active", Kind: dataset.KindBool, Cells: []any{true, false, true, nil}},
	)
}

func TestApply_RejectsDisallowedConstructs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		op        Op
		expr      string
		construct string
	}{
		{"member access", OpFilter, "age.value > 1", "member access"},
		{"for expression", OpFilter, "[for v in age: v]", "for expression"},
		{"conditional", OpFilter, "active ? age : 0", "conditional expression"},
		{"unknown function", OpFilter, "length(name) > 2", "function call"},
		{"string interpolation", OpFilter, "name == \"x${name}\"", "string interpolation"},
		{"object outside mutation", OpFilter, "{age = 1}", "object constructor"},
		{"tuple outside select", OpFilter, "[1, 2]", "tuple constructor"},
		{"nested tuple in select", OpSelect, "[age, [name]]", "select expression"},
		{"computed select item", OpSelect, "[age + 1]", "select expression"},
		{"bare value for select", OpSelect, "age", "select expression"},
		{"bare value for impute", OpImpute, "coalesce(age, 0)", "mutation expression"},
		{"disallowed value in mutation", OpCast, "{age = [1]}", "tuple constructor"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Apply(context.Background(), Request{
				Source:     people(t),
				Op:         tc.op,
				Expression: tc.expr,
			})
			require.Error(t, err)

			var disallowed *DisallowedExpressionError
			require.ErrorAs(t, err, &disallowed, "error was: %v", err)
			assert.Equal(t, tc.construct, disallowed.Construct)
		})
	}
}

func TestApply_Filter(t *testing.T) {
	t.Parallel()
	src := people(t)

	out, summary, err := Apply(context.Background(), Request{
		Source:     src,
		Op:         OpFilter,
		Expression: "age >= 30",
	})
	require.NoError(t, err)

	// Rows: 30 kept, missing dropped, 45 kept, 22 dropped.
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, src.NumColumns(), out.NumColumns(), "filtering never changes the schema")
	assert.Equal(t, src.Names(), out.Names())

	names, _ := out.Column("name")
	assert.Equal(t, []any{"ann", "cid"}, names.Cells)

	assert.Equal(t, 2, summary.RowsAffected)
	assert.Equal(t, 4, summary.RowsBefore)
	assert.Equal(t, 2, summary.RowsAfter)
	assert.NotEqual(t, summary.SourceID, summary.ResultID)
	assert.Equal(t, string(src.ID()), summary.SourceID)
	assert.NotEmpty(t, summary.RunID)
}

func TestApply_FilterMissingComparesFalse(t *testing.T) {
	t.Parallel()

	// Every comparison against a missing cell is false, so the two
	// complementary filters never cover the missing row.
	src := people(t)

	older, _, err := Apply(context.Background(), Request{Source: src, Op: OpFilter, Expression: "age > 25"})
	require.NoError(t, err)
	younger, _, err := Apply(context.Background(), Request{Source: src, Op: OpFilter, Expression: "age <= 25"})
	require.NoError(t, err)

	assert.Equal(t, 2, older.NumRows())
	assert.Equal(t, 1, younger.NumRows())
	assert.Equal(t, 3, older.NumRows()+younger.NumRows(), "the missing-age row appears in neither half")
}

func TestApply_FilterErrors(t *testing.T) {
	t.Parallel()

	t.Run("non-boolean result", func(t *testing.T) {
		t.Parallel()
		_, _, err := Apply(context.Background(), Request{Source: people(t), Op: OpFilter, Expression: "age + 1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "want bool")
	})

	t.Run("unknown column", func(t *testing.T) {
		t.Parallel()
		_, _, err := Apply(context.Background(), Request{Source: people(t), Op: OpFilter, Expression: "salary > 10"})
		require.Error(t, err)
	})
}

func TestApply_Select(t *testing.T) {
	t.Parallel()
	src := people(t)

	out, summary, err := Apply(context.Background(), Request{
		Source:     src,
		Op:         OpSelect,
		Expression: "[name, age]",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, out.Names(), "selection order is the tuple order")
	assert.Equal(t, src.NumRows(), out.NumRows())
	assert.Equal(t, 1, summary.ColumnsAffected, "one column was dropped")
	assert.Equal(t, 2, summary.ColumnsAfter)

	_, _, err = Apply(context.Background(), Request{Source: src, Op: OpSelect, Expression: "[ghost]"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestApply_Impute(t *testing.T) {
	t.Parallel()
	src := people(t)

	out, summary, err := Apply(context.Background(), Request{
		Source:     src,
		Op:         OpImpute,
		Expression: "{age = coalesce(age, 0)}",
	})
	require.NoError(t, err)

	age, ok := out.Column("age")
	require.True(t, ok)
	assert.Equal(t, dataset.KindNumber, age.Kind)
	assert.Equal(t, []any{30.0, 0.0, 45.0, 22.0}, age.Cells)

	assert.Equal(t, 1, summary.RowsAffected, "only the missing row changed")
	assert.Equal(t, 1, summary.ColumnsAffected)
	assert.Equal(t, src.NumColumns(), out.NumColumns())
	// Replaced columns keep their position.
	assert.Equal(t, src.Names(), out.Names())
}

func TestApply_MutationAddsColumn(t *testing.T) {
	t.Parallel()
	src := people(t)

	out, summary, err := Apply(context.Background(), Request{
		Source:     src,
		Op:         OpImpute,
		Expression: "{senior = coalesce(age, 0) >= 40}",
	})
	require.NoError(t, err)

	senior, ok := out.Column("senior")
	require.True(t, ok)
	assert.Equal(t, dataset.KindBool, senior.Kind)
	assert.Equal(t, src.NumColumns()+1, out.NumColumns())
	assert.Equal(t, "senior", out.Names()[len(out.Names())-1], "new columns append at the end")
	assert.Equal(t, src.NumRows(), summary.RowsAffected)
}

func TestApply_Cast(t *testing.T) {
	t.Parallel()

	src := mustDataset(t,
		dataset.Column{Name: "amount", Kind: dataset.KindString, Cells: []any{"1.5", "2", nil}},
	)

	out, _, err := Apply(context.Background(), Request{
		Source:     src,
		Op:         OpCast,
		Expression: "{amount = tonumber(amount)}",
	})
	require.NoError(t, err)

	amount, _ := out.Column("amount")
	assert.Equal(t, dataset.KindNumber, amount.Kind)
	assert.Equal(t, []any{1.5, 2.0, nil}, amount.Cells, "casting a missing cell keeps it missing")
}

func TestApply_CastFailureSurfaces(t *testing.T) {
	t.Parallel()

	src := mustDataset(t,
		dataset.Column{Name: "amount", Kind: dataset.KindString, Cells: []any{"1.5", "not a number"}},
	)

	_, _, err := Apply(context.Background(), Request{
		Source:     src,
		Op:         OpCast,
		Expression: "{amount = tonumber(amount)}",
	})
	require.Error(t, err, "an uncastable value fails the whole transformation")
}

func TestApply_DropDuplicates(t *testing.T) {
	t.Parallel()

	src := mustDataset(t,
		dataset.Column{Name: "a", Kind: dataset.KindNumber, Cells: []any{1.0, 1.0, 2.0, nil, nil}},
		dataset.Column{Name: "b", Kind: dataset.KindString, Cells: []any{"x", "x", "y", "z", "z"}},
	)

	out, summary, err := Apply(context.Background(), Request{Source: src, Op: OpDropDuplicates})
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumRows())
	assert.Equal(t, 2, summary.RowsAffected)

	// Idempotent: a second application removes nothing.
	again, summary2, err := Apply(context.Background(), Request{Source: out, Op: OpDropDuplicates})
	require.NoError(t, err)
	assert.Equal(t, out.ID(), again.ID())
	assert.Equal(t, 0, summary2.RowsAffected)

	_, _, err = Apply(context.Background(), Request{Source: src, Op: OpDropDuplicates, Expression: "a > 1"})
	require.Error(t, err, "drop_duplicates takes no expression")
}

func TestApply_UnknownOp(t *testing.T) {
	t.Parallel()

	_, _, err := Apply(context.Background(), Request{Source: people(t), Op: Op("pivot")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operation")
}

func TestApply_AllowedFunctions(t *testing.T) {
	t.Parallel()

	src := mustDataset(t,
		dataset.Column{Name: "v", Kind: dataset.KindNumber, Cells: []any{-2.5, 3.0}},
		dataset.Column{Name: "s", Kind: dataset.KindString, Cells: []any{"Hi", "lo"}},
	)

	out, _, err := Apply(context.Background(), Request{
		Source:     src,
		Op:         OpCast,
		Expression: "{v = abs(v), s = upper(s), f = floor(v)}",
	})
	require.NoError(t, err)

	v, _ := out.Column("v")
	assert.Equal(t, []any{2.5, 3.0}, v.Cells)
	s, _ := out.Column("s")
	assert.Equal(t, []any{"HI", "LO"}, s.Cells)
	f, _ := out.Column("f")
	assert.Equal(t, []any{-3.0, 3.0}, f.Cells)
}
