package engine

import (
	"context"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/query"
)

// FindByID returns the entity with key id.
func (r *Repository[E, K]) FindByID(ctx context.Context, id K) (E, error) {
	var zero E
	cond, err := r.keyFilter("find", id)
	if err != nil {
		return zero, err
	}
	e, err := r.Query().Where(cond).First(ctx, r.engine.db)
	if typedsql.IsNotFound(err) {
		return zero, typedsql.NewNotFoundErrorWithID(r.mapping.TableName(), id)
	}
	return e, err
}

// Find returns every entity matching cond.
func (r *Repository[E, K]) Find(ctx context.Context, cond query.Condition[E], orders ...query.Order[E]) ([]E, error) {
	q := r.Query().Where(cond)
	if len(orders) > 0 {
		q = q.Order(orders...)
	}
	return q.All(ctx, r.engine.db)
}

// First returns the first entity matching cond, or a NotFoundError.
func (r *Repository[E, K]) First(ctx context.Context, cond query.Condition[E], orders ...query.Order[E]) (E, error) {
	q := r.Query().Where(cond)
	if len(orders) > 0 {
		q = q.Order(orders...)
	}
	return q.First(ctx, r.engine.db)
}

func (r *Repository[E, K]) Count(ctx context.Context, cond query.Condition[E]) (int64, error) {
	return r.Query().Where(cond).Count(ctx, r.engine.db)
}

func (r *Repository[E, K]) Exists(ctx context.Context, cond query.Condition[E]) (bool, error) {
	return r.Query().Where(cond).Exists(ctx, r.engine.db)
}
