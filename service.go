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

package postboard

import (
	"context"
	"database/sql"
	"sync"

	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/repository"
	"github.com/tomoncle/postboard/types"
)

// Service is a transactional facade over a Repository. Writes run in a
// read-write transaction, reads in a read-only one; both join a transaction
// already carried by ctx. Registered callbacks run before per-call ones.
type Service[T any] interface {
	// Save inserts or updates entity: BeforeSave, persist, AfterSave.
	Save(ctx context.Context, entity *T, callbacks ...Callback[T]) error

	// Delete removes entity: BeforeDelete, remove, AfterDelete.
	Delete(ctx context.Context, entity *T, callbacks ...Callback[T]) error

	// FindByID returns (nil, nil) when absent. AfterFind runs only on a hit.
	FindByID(ctx context.Context, id any, callbacks ...Callback[T]) (*T, error)

	FindAll(ctx context.Context, callbacks ...Callback[T]) ([]*T, error)

	// FindByRelation returns the children of parentID, then runs AfterFind.
	FindByRelation(ctx context.Context, parentID any, callbacks ...Callback[T]) ([]*T, error)

	Page(ctx context.Context, page *types.PageRequest, callbacks ...Callback[T]) (*types.Pagination[T], error)

	// Repository returns the underlying repository for direct access.
	Repository() repository.Repository[T]
}

// Option configures a service at construction.
type Option[T any] func(*baseServiceImpl[T])

// WithCallbacks registers callbacks that run on every operation.
func WithCallbacks[T any](callbacks ...Callback[T]) Option[T] {
	return func(s *baseServiceImpl[T]) {
		s.callbacks = append(s.callbacks, callbacks...)
	}
}

// WithIsolation overrides the store default isolation for transactions the
// service starts.
func WithIsolation[T any](level sql.IsolationLevel) Option[T] {
	return func(s *baseServiceImpl[T]) {
		s.isolation = level
	}
}

// WithPropagation sets whether operations may start a transaction
// (PropagationRequired, the default) or must join one.
func WithPropagation[T any](p database.Propagation) Option[T] {
	return func(s *baseServiceImpl[T]) {
		s.propagation = p
	}
}

// WithRepositoryOptions configures the repository of NewDefaultService.
func WithRepositoryOptions[T any](opts ...repository.Option) Option[T] {
	return func(s *baseServiceImpl[T]) {
		s.repoOpts = append(s.repoOpts, opts...)
	}
}

type baseServiceImpl[T any] struct {
	repo        repository.Repository[T]
	tx          database.Transactor
	callbacks   []Callback[T]
	isolation   sql.IsolationLevel
	propagation database.Propagation
	repoOpts    []repository.Option

	mu sync.Mutex
}

// NewService returns a service over repo whose transactions come from tx.
func NewService[T any](repo repository.Repository[T], tx database.Transactor, opts ...Option[T]) Service[T] {
	s := &baseServiceImpl[T]{repo: repo, tx: tx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDefaultService returns a service over a generic repository bound to the
// global database. The binding is resolved on first use after InitDB; calls
// made before that fail without poisoning later ones.
func NewDefaultService[T any](opts ...Option[T]) Service[T] {
	s := &baseServiceImpl[T]{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *baseServiceImpl[T]) components() (repository.Repository[T], database.Transactor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo != nil && s.tx != nil {
		return s.repo, s.tx, nil
	}
	tm := database.GetTxManager()
	if tm == nil {
		return nil, nil, types.NewIllegalStateError("service", "database not initialized")
	}
	if s.repo == nil {
		s.repo = repository.NewRepository[T](tm, s.repoOpts...)
	}
	if s.tx == nil {
		s.tx = tm
	}
	return s.repo, s.tx, nil
}

func (s *baseServiceImpl[T]) Repository() repository.Repository[T] {
	repo, _, _ := s.components()
	return repo
}

func (s *baseServiceImpl[T]) definition(readOnly bool) database.TxDefinition {
	return database.TxDefinition{Propagation: s.propagation, Isolation: s.isolation, ReadOnly: readOnly}
}

func (s *baseServiceImpl[T]) chain(repo repository.Repository[T], perCall []Callback[T]) callbackChain[T] {
	return newCallbackChain(repo.EntityName(), s.callbacks, perCall)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, entity *T, callbacks ...Callback[T]) error {
	repo, tx, err := s.components()
	if err != nil {
		return err
	}
	if entity == nil {
		return types.NewIllegalStateError("save", "nil %s", repo.EntityName())
	}
	chain := s.chain(repo, callbacks)
	return tx.Execute(ctx, s.definition(false), func(ctx context.Context) error {
		if err := chain.beforeSave(ctx, entity); err != nil {
			return err
		}
		if err := repo.Save(ctx, entity); err != nil {
			return err
		}
		return chain.afterSave(ctx, entity)
	})
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, entity *T, callbacks ...Callback[T]) error {
	repo, tx, err := s.components()
	if err != nil {
		return err
	}
	if entity == nil {
		return types.NewIllegalStateError("delete", "nil %s", repo.EntityName())
	}
	chain := s.chain(repo, callbacks)
	return tx.Execute(ctx, s.definition(false), func(ctx context.Context) error {
		if err := chain.beforeDelete(ctx, entity); err != nil {
			return err
		}
		if err := repo.Delete(ctx, entity); err != nil {
			return err
		}
		return chain.afterDelete(ctx, entity)
	})
}

func (s *baseServiceImpl[T]) FindByID(ctx context.Context, id any, callbacks ...Callback[T]) (*T, error) {
	repo, tx, err := s.components()
	if err != nil {
		return nil, err
	}
	var found *T
	err = tx.Execute(ctx, s.definition(true), func(ctx context.Context) error {
		entity, err := repo.FindByID(ctx, id)
		if err != nil || entity == nil {
			return err
		}
		if err := s.chain(repo, callbacks).afterFind(ctx, []*T{entity}); err != nil {
			return err
		}
		found = entity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *baseServiceImpl[T]) FindAll(ctx context.Context, callbacks ...Callback[T]) ([]*T, error) {
	return s.findMany(ctx, callbacks, func(ctx context.Context, repo repository.Repository[T]) ([]*T, error) {
		return repo.FindAll(ctx)
	})
}

func (s *baseServiceImpl[T]) FindByRelation(ctx context.Context, parentID any, callbacks ...Callback[T]) ([]*T, error) {
	return s.findMany(ctx, callbacks, func(ctx context.Context, repo repository.Repository[T]) ([]*T, error) {
		return repo.FindByRelation(ctx, parentID)
	})
}

func (s *baseServiceImpl[T]) findMany(ctx context.Context, callbacks []Callback[T], query func(context.Context, repository.Repository[T]) ([]*T, error)) ([]*T, error) {
	repo, tx, err := s.components()
	if err != nil {
		return nil, err
	}
	var result []*T
	err = tx.Execute(ctx, s.definition(true), func(ctx context.Context) error {
		entities, err := query(ctx, repo)
		if err != nil {
			return err
		}
		if err := s.chain(repo, callbacks).afterFind(ctx, entities); err != nil {
			return err
		}
		result = entities
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest, callbacks ...Callback[T]) (*types.Pagination[T], error) {
	repo, tx, err := s.components()
	if err != nil {
		return nil, err
	}
	var result *types.Pagination[T]
	err = tx.Execute(ctx, s.definition(true), func(ctx context.Context) error {
		pagination, err := repo.Page(ctx, page)
		if err != nil {
			return err
		}
		if err := s.chain(repo, callbacks).afterFind(ctx, pagination.Items); err != nil {
			return err
		}
		result = pagination
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
