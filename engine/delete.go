package engine

import (
	"context"
	"time"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/query"
)

// Remove deletes the row of e. With soft delete enabled the row is stamped
// instead and the stamp is copied into e.
func (r *Repository[E, K]) Remove(ctx context.Context, e *E) error {
	k, err := r.entityKey("delete", e)
	if err != nil {
		return err
	}
	if r.softDelete == "" {
		return r.Purge(ctx, k)
	}

	now := r.engine.now()
	if err := r.stamp(ctx, k, now); err != nil {
		return err
	}
	for _, f := range r.mapping.Fields() {
		if f.Name != r.softDelete {
			continue
		}
		switch p := f.Ptr(e).(type) {
		case *time.Time:
			*p = now
		case **time.Time:
			*p = &now
		}
	}
	return nil
}

// RemoveByID deletes, or with soft delete stamps, the row identified by id.
func (r *Repository[E, K]) RemoveByID(ctx context.Context, id K) error {
	if r.softDelete == "" {
		return r.Purge(ctx, id)
	}
	return r.stamp(ctx, id, r.engine.now())
}

// Purge deletes the row identified by id regardless of soft delete.
func (r *Repository[E, K]) Purge(ctx context.Context, id K) error {
	cond, err := r.keyFilter("delete", id)
	if err != nil {
		return err
	}
	n, err := query.DeleteFrom[E](r.mapping).
		Where(cond).
		WithDialect(r.engine.dialect).
		Exec(ctx, r.engine.db)
	if err != nil {
		return err
	}
	if n == 0 {
		return typedsql.NewNotFoundErrorWithID(r.mapping.TableName(), id)
	}
	r.log(ctx, "entity deleted", id)
	return nil
}

func (r *Repository[E, K]) stamp(ctx context.Context, id K, now time.Time) error {
	cond, err := r.keyFilter("delete", id)
	if err != nil {
		return err
	}
	n, err := query.Update[E](r.mapping, query.Assign[E](r.softDelete, now)).
		Where(cond).
		Where(r.live()).
		WithDialect(r.engine.dialect).
		Exec(ctx, r.engine.db)
	if err != nil {
		return err
	}
	if n == 0 {
		return typedsql.NewNotFoundErrorWithID(r.mapping.TableName(), id)
	}
	r.log(ctx, "entity soft deleted", id)
	return nil
}
