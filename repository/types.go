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

	"github.com/tomoncle/postboard/types"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	// Save inserts entity when its primary key is zero and updates it
	// otherwise. The primary key is populated on insert.
	Save(ctx context.Context, entity *T) error

	// FindByID returns (nil, nil) when no row matches.
	FindByID(ctx context.Context, id any) (*T, error)

	FindAll(ctx context.Context) ([]*T, error)

	Delete(ctx context.Context, entity *T) error
}

// QueryRepository defines predicate and relation scoped reads.
type QueryRepository[T any] interface {
	// FindByRelation returns every entity whose relation column equals parentID.
	FindByRelation(ctx context.Context, parentID any) ([]*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Count(ctx context.Context, filter *types.QueryFilter) (int, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD, query and pagination operations over one
// entity type.
type Repository[T any] interface {
	CrudRepository[T]
	QueryRepository[T]
	PageQueryRepository[T]

	// Bind resolves and validates the table binding. Operations bind
	// lazily; calling Bind at startup surfaces mapping errors early.
	Bind() error
	Table() *schema.Table
	EntityName() string
}

// Option configures a repository at construction.
type Option func(*options)

type options struct {
	relation     string
	defaultOrder []types.Order
}

// WithRelation declares the column that references the parent entity,
// enabling FindByRelation.
func WithRelation(column string) Option {
	return func(o *options) {
		o.relation = column
	}
}

// WithDefaultOrder sets the ordering of FindAll, FindByRelation, List and
// Page requests without explicit orders. The default is primary key ascending.
func WithDefaultOrder(orders ...types.Order) Option {
	return func(o *options) {
		o.defaultOrder = orders
	}
}
