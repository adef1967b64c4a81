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

import (
	"errors"
	"fmt"
)

// Sentinel errors of the persistence taxonomy. Every typed error below
// matches exactly one of them with errors.Is.
var (
	// ErrValidation is returned when a before hook rejects an entity.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence is returned when the store or the unit of work fails.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound is returned by operations that require the entity to exist.
	ErrNotFound = errors.New("entity not found")
	// ErrIllegalState is returned on programming-contract violations.
	ErrIllegalState = errors.New("illegal state")
)

// ValidationError reports an entity rejected by a hook.
type ValidationError struct {
	Entity string
	Hook   string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Hook == "" {
		return fmt.Sprintf("validation failed for %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("validation failed for %s in %s: %v", e.Entity, e.Hook, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PersistenceError reports a failure of the backing store. Reason carries the
// classified cause (duplicate_key, foreign_key_violation, ...).
type PersistenceError struct {
	Op     string
	Entity string
	Reason string
	Err    error
}

func (e *PersistenceError) Error() string {
	msg := "persistence failure"
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Entity != "" {
		msg += " of " + e.Entity
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// NotFoundError reports a missing entity for an operation that requires it.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s with id %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IllegalStateError reports a violated usage contract, such as a write
// attempted inside a read-only transaction.
type IllegalStateError struct {
	Op     string
	Reason string
}

func (e *IllegalStateError) Error() string {
	if e.Op == "" {
		return "illegal state: " + e.Reason
	}
	return fmt.Sprintf("illegal state in %s: %s", e.Op, e.Reason)
}

func (e *IllegalStateError) Is(target error) bool { return target == ErrIllegalState }

// NewIllegalStateError builds an IllegalStateError with a formatted reason.
func NewIllegalStateError(op string, format string, args ...interface{}) error {
	return &IllegalStateError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// IsClassified reports whether err already belongs to the taxonomy.
func IsClassified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrIllegalState)
}
