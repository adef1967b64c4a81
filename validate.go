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
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/postboard/types"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidationCallback checks `validate` struct tags before an entity is saved.
type ValidationCallback[T any] struct {
	NopCallback[T]
	validate *validator.Validate
}

// NewValidationCallback returns a callback using the shared validator.
func NewValidationCallback[T any]() *ValidationCallback[T] {
	return &ValidationCallback[T]{validate: structValidator}
}

func (c *ValidationCallback[T]) BeforeSave(ctx context.Context, entity *T) error {
	if err := c.validate.StructCtx(ctx, entity); err != nil {
		return &types.ValidationError{
			Entity: reflect.TypeOf((*T)(nil)).Elem().Name(),
			Hook:   HookBeforeSave,
			Err:    err,
		}
	}
	return nil
}
