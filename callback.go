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

	"github.com/tomoncle/postboard/types"
)

const (
	HookBeforeSave   = "before_save"
	HookAfterSave    = "after_save"
	HookBeforeDelete = "before_delete"
	HookAfterDelete  = "after_delete"
	HookAfterFind    = "after_find"
)

// Callback is invoked around service operations, inside the operation's
// transaction. A hook error aborts the operation and rolls back a
// transaction the operation started.
type Callback[T any] interface {
	BeforeSave(ctx context.Context, entity *T) error
	AfterSave(ctx context.Context, entity *T) error
	BeforeDelete(ctx context.Context, entity *T) error
	AfterDelete(ctx context.Context, entity *T) error
	AfterFind(ctx context.Context, entities []*T) error
}

// NopCallback implements every hook as a no-op. Embed it to implement only
// the hooks a callback cares about.
type NopCallback[T any] struct{}

func (NopCallback[T]) BeforeSave(context.Context, *T) error   { return nil }
func (NopCallback[T]) AfterSave(context.Context, *T) error    { return nil }
func (NopCallback[T]) BeforeDelete(context.Context, *T) error { return nil }
func (NopCallback[T]) AfterDelete(context.Context, *T) error  { return nil }
func (NopCallback[T]) AfterFind(context.Context, []*T) error  { return nil }

// CallbackFuncs adapts plain functions to a Callback. Nil funcs are skipped.
type CallbackFuncs[T any] struct {
	OnBeforeSave   func(ctx context.Context, entity *T) error
	OnAfterSave    func(ctx context.Context, entity *T) error
	OnBeforeDelete func(ctx context.Context, entity *T) error
	OnAfterDelete  func(ctx context.Context, entity *T) error
	OnAfterFind    func(ctx context.Context, entities []*T) error
}

var _ Callback[struct{}] = CallbackFuncs[struct{}]{}

func (f CallbackFuncs[T]) BeforeSave(ctx context.Context, entity *T) error {
	return callOne(f.OnBeforeSave, ctx, entity)
}

func (f CallbackFuncs[T]) AfterSave(ctx context.Context, entity *T) error {
	return callOne(f.OnAfterSave, ctx, entity)
}

func (f CallbackFuncs[T]) BeforeDelete(ctx context.Context, entity *T) error {
	return callOne(f.OnBeforeDelete, ctx, entity)
}

func (f CallbackFuncs[T]) AfterDelete(ctx context.Context, entity *T) error {
	return callOne(f.OnAfterDelete, ctx, entity)
}

func (f CallbackFuncs[T]) AfterFind(ctx context.Context, entities []*T) error {
	if f.OnAfterFind == nil {
		return nil
	}
	return f.OnAfterFind(ctx, entities)
}

func callOne[T any](fn func(context.Context, *T) error, ctx context.Context, entity *T) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, entity)
}

// callbackChain runs hooks in order and stops at the first failure.
type callbackChain[T any] struct {
	entity    string
	callbacks []Callback[T]
}

func newCallbackChain[T any](entity string, registered, perCall []Callback[T]) callbackChain[T] {
	callbacks := make([]Callback[T], 0, len(registered)+len(perCall))
	for _, group := range [][]Callback[T]{registered, perCall} {
		for _, cb := range group {
			if cb != nil {
				callbacks = append(callbacks, cb)
			}
		}
	}
	return callbackChain[T]{entity: entity, callbacks: callbacks}
}

func (c callbackChain[T]) run(hook string, fn func(cb Callback[T]) error) error {
	for _, cb := range c.callbacks {
		if err := fn(cb); err != nil {
			if types.IsClassified(err) {
				return err
			}
			return &types.ValidationError{Entity: c.entity, Hook: hook, Err: err}
		}
	}
	return nil
}

func (c callbackChain[T]) beforeSave(ctx context.Context, entity *T) error {
	return c.run(HookBeforeSave, func(cb Callback[T]) error { return cb.BeforeSave(ctx, entity) })
}

func (c callbackChain[T]) afterSave(ctx context.Context, entity *T) error {
	return c.run(HookAfterSave, func(cb Callback[T]) error { return cb.AfterSave(ctx, entity) })
}

func (c callbackChain[T]) beforeDelete(ctx context.Context, entity *T) error {
	return c.run(HookBeforeDelete, func(cb Callback[T]) error { return cb.BeforeDelete(ctx, entity) })
}

func (c callbackChain[T]) afterDelete(ctx context.Context, entity *T) error {
	return c.run(HookAfterDelete, func(cb Callback[T]) error { return cb.AfterDelete(ctx, entity) })
}

func (c callbackChain[T]) afterFind(ctx context.Context, entities []*T) error {
	return c.run(HookAfterFind, func(cb Callback[T]) error { return cb.AfterFind(ctx, entities) })
}
