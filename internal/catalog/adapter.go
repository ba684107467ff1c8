package catalog

import (
	"context"

	"github.com/ChiaYuChang/hydrosearch/internal/models"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/ChiaYuChang/hydrosearch/pkgs/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultLimit is the default result cap when the caller does not
// configure one (spec §4.3 step 7: "Limit results to 10 (default)").
const DefaultLimit = 10

// Adapter is the CatalogAdapter component (spec §4.3).
type Adapter struct {
	pool  *pgxpool.Pool
	limit int
}

func New(pool *pgxpool.Pool, limit int) *Adapter {
	return &Adapter{pool: pool, limit: utils.IfElse(limit <= 0, DefaultLimit, limit)}
}

// Search executes the parameterized query built from componentType,
// extracted, and originalQuery, returning the matched catalog rows.
// componentType outside the closed set returns an empty slice, no
// error (step 1).
func (a *Adapter) Search(ctx context.Context, componentType models.ComponentType, extracted models.ExtractedData, originalQuery string) ([]models.Match, error) {
	sql, args, ok := BuildQuery(componentType, extracted, originalQuery, a.limit)
	if !ok {
		return nil, nil
	}

	rows, err := a.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapPgErr(err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var name, article string
		if err := rows.Scan(&name, &article); err != nil {
			return nil, wrapPgErr(err)
		}
		matches = append(matches, models.Match{Name: name, Article: article})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr(err)
	}
	return matches, nil
}

// wrapPgErr mirrors the teacher's storage.handlePgxErr: a no-rows
// condition is not a catalog failure (an empty result is a legitimate
// outcome handled by the caller), everything else is.
func wrapPgErr(err error) *ec.Error {
	if err == pgx.ErrNoRows {
		return nil
	}
	return ec.ErrCatalogFailure.Clone().
		WithDetails(err.Error()).
		Warp(err)
}
