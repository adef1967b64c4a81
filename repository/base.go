/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"sync"

	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type binding struct {
	table    *schema.Table
	pk       *schema.Field
	relation *schema.Field
}

type baseRepositoryImpl[T any] struct {
	uow     database.UnitOfWork
	opts    options
	name    string
	once    sync.Once
	binding *binding
	bindErr error
}

// NewRepository returns a generic repository for T whose sessions come
// from uow.
func NewRepository[T any](uow database.UnitOfWork, opts ...Option) Repository[T] {
	r := &baseRepositoryImpl[T]{uow: uow, name: reflect.TypeOf((*T)(nil)).Elem().Name()}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r
}

func (r *baseRepositoryImpl[T]) EntityName() string { return r.name }

func (r *baseRepositoryImpl[T]) Bind() error {
	_, err := r.bind()
	return err
}

func (r *baseRepositoryImpl[T]) Table() *schema.Table {
	b, err := r.bind()
	if err != nil {
		return nil
	}
	return b.table
}

func (r *baseRepositoryImpl[T]) bind() (*binding, error) {
	r.once.Do(func() {
		r.binding, r.bindErr = r.resolve()
	})
	return r.binding, r.bindErr
}

func (r *baseRepositoryImpl[T]) resolve() (*binding, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, types.NewIllegalStateError("bind", "%s is not a struct model", typ)
	}
	if r.uow == nil {
		return nil, types.NewIllegalStateError("bind", "no unit of work for %s", r.name)
	}
	table := r.uow.Table(typ)
	if len(table.PKs) != 1 {
		return nil, types.NewIllegalStateError("bind", "%s must declare exactly one primary key, found %d", r.name, len(table.PKs))
	}
	b := &binding{table: table, pk: table.PKs[0]}
	if r.opts.relation != "" {
		if !table.HasField(r.opts.relation) {
			return nil, types.NewIllegalStateError("bind", "%s has no relation column %q", r.name, r.opts.relation)
		}
		b.relation = table.FieldMap[r.opts.relation]
	}
	for _, order := range r.opts.defaultOrder {
		if !table.HasField(order.Field) {
			return nil, types.NewIllegalStateError("bind", "%s has no order column %q", r.name, order.Field)
		}
	}
	return b, nil
}

// writableSession returns the caller's session after checking it may write.
func (r *baseRepositoryImpl[T]) writableSession(ctx context.Context, op string) (database.Session, error) {
	session := r.uow.CurrentSession(ctx)
	if err := session.Writable(op); err != nil {
		var pe *types.PersistenceError
		if errors.As(err, &pe) {
			pe.Entity = r.name
		}
		return session, err
	}
	return session, nil
}

func (r *baseRepositoryImpl[T]) identity(b *binding, entity *T) reflect.Value {
	return reflect.ValueOf(entity).Elem().FieldByIndex(b.pk.Index)
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity *T) error {
	b, err := r.bind()
	if err != nil {
		return err
	}
	if entity == nil {
		return types.NewIllegalStateError("save", "nil %s", r.name)
	}
	session, err := r.writableSession(ctx, "save")
	if err != nil {
		return err
	}

	id := r.identity(b, entity)
	if id.IsZero() {
		if _, err := session.NewInsert().Model(entity).Exec(ctx); err != nil {
			return database.Translate("insert", r.name, err)
		}
		return nil
	}

	res, err := session.NewUpdate().Model(entity).WherePK().Exec(ctx)
	if err != nil {
		return database.Translate("update", r.name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &types.NotFoundError{Entity: r.name, ID: id.Interface()}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, error) {
	b, err := r.bind()
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, nil
	}
	entity := new(T)
	err = r.uow.CurrentSession(ctx).NewSelect().
		Model(entity).
		Where("? = ?", bun.Ident(b.pk.Name), id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.Translate("find", r.name, err)
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.List(ctx, nil)
}

func (r *baseRepositoryImpl[T]) FindByRelation(ctx context.Context, parentID any) ([]*T, error) {
	b, err := r.bind()
	if err != nil {
		return nil, err
	}
	if b.relation == nil {
		return nil, types.NewIllegalStateError("find_by_relation", "%s declares no relation column", r.name)
	}
	if parentID == nil {
		return make([]*T, 0), nil
	}
	return r.List(ctx, types.NewQueryFilter(types.Eq(b.relation.Name, parentID)))
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	b, err := r.bind()
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	query := r.uow.CurrentSession(ctx).NewSelect().Model(&entities)
	if query, err = r.applyFilter(b, query, filter); err != nil {
		return nil, err
	}
	if query, err = r.applyOrders(b, query, nil); err != nil {
		return nil, err
	}
	if err := query.Scan(ctx); err != nil {
		return nil, database.Translate("list", r.name, err)
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	b, err := r.bind()
	if err != nil {
		return 0, err
	}
	query := r.uow.CurrentSession(ctx).NewSelect().Model((*T)(nil))
	if query, err = r.applyFilter(b, query, filter); err != nil {
		return 0, err
	}
	total, err := query.Count(ctx)
	if err != nil {
		return 0, database.Translate("count", r.name, err)
	}
	return total, nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	b, err := r.bind()
	if err != nil {
		return nil, err
	}
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(1, 0)
	}
	var entities []*T
	query := r.uow.CurrentSession(ctx).NewSelect().Model(&entities)
	if query, err = r.applyFilter(b, query, pageRequest.GetFilter()); err != nil {
		return nil, err
	}
	if query, err = r.applyOrders(b, query, pageRequest.GetOrders()); err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil {
		return nil, database.Translate("page", r.name, err)
	}
	if total == 0 {
		return pagination, nil
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Scan(ctx)
	if err != nil {
		return nil, database.Translate("page", r.name, err)
	}
	pagination.Total = total
	if entities != nil {
		pagination.Items = entities
	}
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, entity *T) error {
	b, err := r.bind()
	if err != nil {
		return err
	}
	if entity == nil {
		return types.NewIllegalStateError("delete", "nil %s", r.name)
	}
	session, err := r.writableSession(ctx, "delete")
	if err != nil {
		return err
	}
	id := r.identity(b, entity)
	if id.IsZero() {
		return &types.NotFoundError{Entity: r.name, ID: id.Interface()}
	}

	res, err := session.NewDelete().Model(entity).WherePK().Exec(ctx)
	if err != nil {
		return database.Translate("delete", r.name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &types.NotFoundError{Entity: r.name, ID: id.Interface()}
	}
	return nil
}

// applyFilter adds one WHERE clause per predicate. Columns must exist on the
// bound table.
func (r *baseRepositoryImpl[T]) applyFilter(b *binding, query *bun.SelectQuery, filter *types.QueryFilter) (*bun.SelectQuery, error) {
	if filter.IsEmpty() {
		return query, nil
	}
	for _, p := range filter.Predicates {
		if !b.table.HasField(p.Field) {
			return nil, types.NewIllegalStateError("filter", "%s has no column %q", r.name, p.Field)
		}
		switch p.Operator {
		case types.OpIn:
			query = query.Where("? IN (?)", bun.Ident(p.Field), bun.In(p.Value))
		case types.OpEq, types.OpNe, types.OpGt, types.OpLt, types.OpLike:
			query = query.Where("? "+p.Operator.String()+" ?", bun.Ident(p.Field), p.Value)
		default:
			return nil, types.NewIllegalStateError("filter", "unsupported operator %d on %s.%s", p.Operator, r.name, p.Field)
		}
	}
	return query, nil
}

func (r *baseRepositoryImpl[T]) applyOrders(b *binding, query *bun.SelectQuery, orders []types.Order) (*bun.SelectQuery, error) {
	if len(orders) == 0 {
		orders = r.opts.defaultOrder
	}
	if len(orders) == 0 {
		orders = []types.Order{types.Asc(b.pk.Name)}
	}
	for _, order := range orders {
		if !b.table.HasField(order.Field) {
			return nil, types.NewIllegalStateError("order", "%s has no column %q", r.name, order.Field)
		}
		if order.Desc {
			query = query.OrderExpr("? DESC", bun.Ident(order.Field))
		} else {
			query = query.OrderExpr("? ASC", bun.Ident(order.Field))
		}
	}
	return query, nil
}
