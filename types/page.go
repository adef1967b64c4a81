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

package types

// Predicate compares one column of the entity with a value.
// Field is the column name as declared in the bun model.
type Predicate struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// Eq returns a "field = value" predicate.
func Eq(field string, value interface{}) Predicate {
	return Predicate{Field: field, Operator: OpEq, Value: value}
}

// Ne returns a "field <> value" predicate.
func Ne(field string, value interface{}) Predicate {
	return Predicate{Field: field, Operator: OpNe, Value: value}
}

// Gt returns a "field > value" predicate.
func Gt(field string, value interface{}) Predicate {
	return Predicate{Field: field, Operator: OpGt, Value: value}
}

// Lt returns a "field < value" predicate.
func Lt(field string, value interface{}) Predicate {
	return Predicate{Field: field, Operator: OpLt, Value: value}
}

// Like returns a "field LIKE pattern" predicate.
func Like(field string, pattern string) Predicate {
	return Predicate{Field: field, Operator: OpLike, Value: pattern}
}

// In returns a "field IN (values)" predicate.
func In(field string, values ...interface{}) Predicate {
	return Predicate{Field: field, Operator: OpIn, Value: values}
}

// QueryFilter is a conjunction of predicates.
type QueryFilter struct {
	Predicates []Predicate
}

// NewQueryFilter creates a filter matching all of the given predicates.
func NewQueryFilter(predicates ...Predicate) *QueryFilter {
	return &QueryFilter{Predicates: predicates}
}

// And appends a predicate and returns the filter for chaining.
func (f *QueryFilter) And(p Predicate) *QueryFilter {
	f.Predicates = append(f.Predicates, p)
	return f
}

// IsEmpty reports whether the filter has no predicates.
func (f *QueryFilter) IsEmpty() bool {
	return f == nil || len(f.Predicates) == 0
}

// Order sorts by a single column.
type Order struct {
	Field string
	Desc  bool
}

// Asc orders by field ascending.
func Asc(field string) Order { return Order{Field: field} }

// Desc orders by field descending.
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// PageRequest describes pagination, optional filter, and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []Order
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = 10
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrders() []Order {
	return p.orders
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []Order) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter *QueryFilter) *PageRequest {
	return NewPageRequest(page, pageSize, filter, nil)
}

// NewPageRequestWithOrders constructs a PageRequest with ordering only.
func NewPageRequestWithOrders(page int, pageSize int, orders ...Order) *PageRequest {
	return NewPageRequest(page, pageSize, nil, orders)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, nil)
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// Pages returns the number of pages needed for Total items.
func (p *Pagination[T]) Pages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
