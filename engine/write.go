package engine

import (
	"context"
	"fmt"

	"github.com/Konsultn-Engineering/typedsql"
	"github.com/Konsultn-Engineering/typedsql/query"
)

// Insert stores e. A key left unset is generated by the mapping's
// generator, or read back from the database through RETURNING when the
// mapping has none.
func (r *Repository[E, K]) Insert(ctx context.Context, e *E) error {
	m := r.mapping
	if _, err := m.GenerateKey(e); err != nil {
		return err
	}

	_, set := m.Key(e)
	if !m.HasKey() || set {
		_, err := query.InsertInto[E](m, m.Assignments(e, true)...).
			WithDialect(r.engine.dialect).
			Exec(ctx, r.engine.db)
		if err != nil {
			return err
		}
		r.log(ctx, "entity created", r.keyOf(e))
		return nil
	}

	col, err := m.KeyColumn()
	if err != nil {
		return err
	}
	var k K
	err = query.InsertInto[E](m, m.Assignments(e, false)...).
		Returning(col).
		WithDialect(r.engine.dialect).
		ExecReturning(ctx, r.engine.db, &k)
	if err != nil {
		return err
	}
	if err := m.SetKey(e, k); err != nil {
		return err
	}
	r.log(ctx, "entity created", k)
	return nil
}

// InsertMany inserts every entity in order and stops at the first failure.
func (r *Repository[E, K]) InsertMany(ctx context.Context, es []*E) error {
	for i, e := range es {
		if err := r.Insert(ctx, e); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", r.mapping.TableName(), i, err)
		}
	}
	return nil
}

// Upsert inserts e or, when a row with the same key exists, overwrites its
// non-key columns.
func (r *Repository[E, K]) Upsert(ctx context.Context, e *E) error {
	m := r.mapping
	if _, err := m.GenerateKey(e); err != nil {
		return err
	}
	k, err := r.entityKey("upsert", e)
	if err != nil {
		return err
	}
	col, err := m.KeyColumn()
	if err != nil {
		return err
	}

	sets := m.Assignments(e, false)
	update := make([]string, len(sets))
	for i, s := range sets {
		update[i] = s.Column()
	}
	_, err = query.InsertInto[E](m, m.Assignments(e, true)...).
		OnConflict([]string{col.Name()}, update...).
		WithDialect(r.engine.dialect).
		Exec(ctx, r.engine.db)
	if err != nil {
		return err
	}
	r.log(ctx, "entity upserted", k)
	return nil
}

// Update writes every non-key column of e to the row with e's key.
func (r *Repository[E, K]) Update(ctx context.Context, e *E) error {
	k, err := r.entityKey("update", e)
	if err != nil {
		return err
	}
	return r.UpdateColumns(ctx, k, r.mapping.Assignments(e, false)...)
}

// UpdateColumns applies sets to the row identified by id.
func (r *Repository[E, K]) UpdateColumns(ctx context.Context, id K, sets ...query.Assignment[E]) error {
	cond, err := r.keyFilter("update", id)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return typedsql.NewPreconditionError("update", r.mapping.TableName(), "no columns to set")
	}

	n, err := query.Update[E](r.mapping, sets...).
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
	r.log(ctx, "entity updated", id)
	return nil
}

func (r *Repository[E, K]) keyOf(e *E) any {
	if k, set := r.mapping.Key(e); set {
		return k
	}
	return nil
}
