package catalog_test

import (
	"testing"

	"github.com/ChiaYuChang/hydrosearch/internal/catalog"
	"github.com/ChiaYuChang/hydrosearch/internal/models"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestBuildQueryUnknownComponentTypeYieldsNoQuery(t *testing.T) {
	_, _, ok := catalog.BuildQuery(models.ComponentUnknown, &models.FittingAttrs{}, "", 10)
	require.False(t, ok)
}

func TestBuildQueryAppliesKnownEnumFilters(t *testing.T) {
	attrs := &models.FittingAttrs{
		Standard: ptr("BSP"),
		Angle:    ptr(90),
	}
	sql, args, ok := catalog.BuildQuery(models.ComponentFittings, attrs, "", 10)
	require.True(t, ok)
	require.Contains(t, sql, "standard = $1")
	require.Contains(t, sql, "angle = $2")
	require.Equal(t, []any{"BSP", "90"}, args)
}

func TestBuildQuerySkipsUnknownEnumValue(t *testing.T) {
	attrs := &models.FittingAttrs{Standard: ptr("NOT_A_REAL_STANDARD")}
	sql, args, ok := catalog.BuildQuery(models.ComponentFittings, attrs, "", 10)
	require.True(t, ok)
	require.NotContains(t, sql, "standard =")
	require.Empty(t, args)
}

func TestBuildQueryBooleanFilterOnlyWhenNonNil(t *testing.T) {
	attrs := &models.FittingAttrs{Usit: ptr(true)}
	sql, args, ok := catalog.BuildQuery(models.ComponentFittings, attrs, "", 10)
	require.True(t, ok)
	require.Contains(t, sql, "usit = $1")
	require.Equal(t, []any{true}, args)
}

func TestBuildQueryBooleanFilterSkippedWhenSchemaLacksField(t *testing.T) {
	// banjo has no usit/o_ring columns; FittingAttrs is the wrong shape
	// here but BuildQuery must still ignore fields the schema doesn't carry.
	attrs := &models.FittingAttrs{Usit: ptr(true)}
	sql, _, ok := catalog.BuildQuery(models.ComponentBanjo, attrs, "", 10)
	require.True(t, ok)
	require.NotContains(t, sql, "usit")
}

func TestBuildQueryDyNumericFilter(t *testing.T) {
	attrs := &models.FittingAttrs{Dy: ptr(12)}
	sql, args, ok := catalog.BuildQuery(models.ComponentFittings, attrs, "", 10)
	require.True(t, ok)
	require.Contains(t, sql, `"Dy" = $1`)
	require.Equal(t, []any{12}, args)
}

func TestBuildQueryTextSearchTokensAreOred(t *testing.T) {
	sql, args, ok := catalog.BuildQuery(models.ComponentFittings, &models.FittingAttrs{}, "BSP 3/4", 10)
	require.True(t, ok)
	require.Contains(t, sql, "article ILIKE")
	require.Contains(t, sql, " OR ")
	require.Contains(t, sql, ") OR (")
	require.Len(t, args, 6) // 3 columns (article, name, s_key) x 2 tokens
}

func TestBuildQueryAppliesLimit(t *testing.T) {
	sql, _, ok := catalog.BuildQuery(models.ComponentFittings, &models.FittingAttrs{}, "", 7)
	require.True(t, ok)
	require.Contains(t, sql, "LIMIT 7")
}

func TestBuildQueryNilExtractedDataProducesUnfilteredQuery(t *testing.T) {
	sql, args, ok := catalog.BuildQuery(models.ComponentFittings, nil, "", 10)
	require.True(t, ok)
	require.Contains(t, sql, "WHERE 1=1")
	require.Empty(t, args)
}
