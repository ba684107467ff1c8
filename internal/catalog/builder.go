package catalog

import (
	"fmt"
	"strings"

	"github.com/ChiaYuChang/hydrosearch/internal/models"
)

// entitySchema names the table and which columns it carries, so the
// per-entity builder below knows which attributes apply (spec §4.3
// step 2/3: "resolve the component-type to its entity schema").
type entitySchema struct {
	table      string
	hasDOut    bool
	hasSKey    bool
	hasUsit    bool
	hasORing   bool
	hasCounter bool
	hasLockNut bool
}

var schemas = map[models.ComponentType]entitySchema{
	models.ComponentFittings:   {table: "fittings", hasDOut: true, hasSKey: true, hasUsit: true, hasORing: true},
	models.ComponentAdapters:   {table: "adapters", hasDOut: true, hasSKey: true},
	models.ComponentPlugs:      {table: "plugs", hasSKey: true},
	models.ComponentAdapterTee: {table: "adapter_tee", hasDOut: true, hasSKey: true},
	models.ComponentBrs:        {table: "brs", hasCounter: true, hasLockNut: true},
	models.ComponentCoupling:   {table: "coupling", hasDOut: true},
	models.ComponentBanjo:      {table: "banjo"},
	models.ComponentBanjoBolt:  {table: "banjo_bolt"},
}

// queryArgs accumulates a parameterized WHERE clause (pgx-style $N
// placeholders) and its positional arguments.
type queryArgs struct {
	clauses []string
	args    []any
}

func (q *queryArgs) addEq(column string, value any) {
	q.args = append(q.args, value)
	q.clauses = append(q.clauses, fmt.Sprintf("%s = $%d", column, len(q.args)))
}

// BuildQuery implements spec §4.3's algorithm. It returns the full,
// limit-bounded SELECT statement and its parameter slice, or
// ("", nil, false) when componentType is not in the closed set (step
// 1: "empty result, no error").
func BuildQuery(componentType models.ComponentType, extracted models.ExtractedData, originalQuery string, limit int) (string, []any, bool) {
	schema, ok := schemas[componentType]
	if !ok {
		return "", nil, false
	}

	q := &queryArgs{}

	fields := map[string]any{}
	if extracted != nil {
		fields = extracted.Fields()
	}

	// Step 3: enumerated exact filters, resolved through closed-set
	// lookup tables; unmatched values are skipped rather than failing.
	for _, enumAttr := range []string{"standard", "armature", "thread", "angle", "series"} {
		raw, present := fields[enumAttr]
		if !present || raw == nil {
			continue
		}
		rawStr := fmt.Sprintf("%v", raw)
		if resolved, ok := resolveEnum(enumAttr, rawStr); ok {
			q.addEq(enumAttr, resolved)
		}
	}

	// Step 4: boolean filters, only when non-null, schema-gated.
	if schema.hasUsit {
		if v, present := fields["usit"]; present && v != nil {
			q.addEq("usit", truthy(v))
		}
	}
	if schema.hasORing {
		if v, present := fields["o_ring"]; present && v != nil {
			q.addEq("o_ring", truthy(v))
		}
	}
	if schema.hasCounter {
		if v, present := fields["counter_nut"]; present && v != nil {
			q.addEq("counter_nut", truthy(v))
		}
	}
	if schema.hasLockNut {
		if v, present := fields["locknut"]; present && v != nil {
			q.addEq("locknut", truthy(v))
		}
	}

	// Step 5: numeric Dy filter.
	if v, present := fields["Dy"]; present && v != nil {
		q.addEq(`"Dy"`, v)
	}

	// Step 6: tokenized text search across article, name, and s_key
	// (if present), OR-ed within a token and OR-ed across tokens; the
	// whole text group is AND-ed with the attribute filters above.
	tokens := strings.Fields(originalQuery)
	tokenGroups := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		textCols := []string{"article", "name"}
		if schema.hasSKey {
			textCols = append(textCols, "s_key")
		}
		ors := make([]string, 0, len(textCols))
		for _, col := range textCols {
			q.args = append(q.args, "%"+tok+"%")
			ors = append(ors, fmt.Sprintf("%s ILIKE $%d", col, len(q.args)))
		}
		tokenGroups = append(tokenGroups, "("+strings.Join(ors, " OR ")+")")
	}
	if len(tokenGroups) > 0 {
		q.clauses = append(q.clauses, "("+strings.Join(tokenGroups, " OR ")+")")
	}

	where := "1=1"
	if len(q.clauses) > 0 {
		where = strings.Join(q.clauses, " AND ")
	}

	sql := fmt.Sprintf("SELECT name, article FROM %s WHERE %s LIMIT %d", schema.table, where, limit)
	return sql, q.args, true
}
