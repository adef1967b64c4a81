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

package database

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"sync"

	"github.com/tomoncle/postboard/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

// Propagation decides whether an operation joins the caller's transaction.
type Propagation int

const (
	// PropagationRequired joins an existing transaction or starts a new one.
	PropagationRequired Propagation = iota
	// PropagationMandatory joins an existing transaction and fails without one.
	PropagationMandatory
)

func (p Propagation) String() string {
	switch p {
	case PropagationRequired:
		return "REQUIRED"
	case PropagationMandatory:
		return "MANDATORY"
	default:
		return "UNKNOWN"
	}
}

// TxDefinition parameterizes a transaction boundary. The zero value is
// REQUIRED propagation, store default isolation and read-write access.
type TxDefinition struct {
	Propagation Propagation
	Isolation   sql.IsolationLevel
	ReadOnly    bool
}

// ReadOnlyTx is the definition used by query operations.
func ReadOnlyTx() TxDefinition {
	return TxDefinition{Propagation: PropagationRequired, Isolation: sql.LevelDefault, ReadOnly: true}
}

// ReadWriteTx is the definition used by write operations.
func ReadWriteTx() TxDefinition {
	return TxDefinition{Propagation: PropagationRequired, Isolation: sql.LevelDefault}
}

// Session is the handle repositories use to reach the store. Inside a
// transaction it wraps the bun.Tx, outside it wraps the pooled bun.DB.
type Session struct {
	bun.IDB
	active   bool
	readOnly bool
}

// Active reports whether the session is bound to a transaction.
func (s Session) Active() bool { return s.active }

// ReadOnly reports whether the enclosing operation declared itself read-only.
func (s Session) ReadOnly() bool { return s.readOnly }

// Writable returns nil when a write may be issued through the session.
func (s Session) Writable(op string) error {
	if s.readOnly {
		return types.NewIllegalStateError(op, "write attempted inside a read-only transaction")
	}
	if !s.active {
		return &types.PersistenceError{Op: op, Reason: "no_transaction", Err: ErrNoTransaction}
	}
	return nil
}

// ErrNoTransaction is wrapped when a write runs outside any unit of work.
var ErrNoTransaction = errors.New("unit of work is not active")

// UnitOfWork supplies the session bound to the caller's transaction.
type UnitOfWork interface {
	CurrentSession(ctx context.Context) Session
	Table(typ reflect.Type) *schema.Table
}

// Transactor runs a function inside a transaction boundary.
type Transactor interface {
	Execute(ctx context.Context, def TxDefinition, fn func(ctx context.Context) error) error
}

type txScopeKey struct{}

type txScope struct {
	tx       bun.Tx
	readOnly bool
	depth    int
}

func scopeFrom(ctx context.Context) (*txScope, bool) {
	scope, ok := ctx.Value(txScopeKey{}).(*txScope)
	return scope, ok && scope != nil
}

// InTransaction reports whether ctx carries an active transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := scopeFrom(ctx)
	return ok
}

// TxManager binds transactions to contexts. It implements both UnitOfWork
// and Transactor. The database handle may be swapped on reconnect, so
// repositories and services holding the manager follow the live pool.
type TxManager struct {
	mu     sync.RWMutex
	db     *bun.DB
	logger Logger
}

var (
	_ UnitOfWork = (*TxManager)(nil)
	_ Transactor = (*TxManager)(nil)
)

// NewTxManager returns a transaction manager over db using the global logger.
func NewTxManager(db *bun.DB) *TxManager {
	return &TxManager{db: db, logger: GetLogger()}
}

// SetLogger replaces the logger used for transaction tracing.
func (m *TxManager) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// DB returns the underlying database handle.
func (m *TxManager) DB() *bun.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// rebind points the manager at a new connection. Transactions already
// begun keep their own bun.Tx.
func (m *TxManager) rebind(db *bun.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = db
}

// Table resolves the bun table metadata of a model type.
func (m *TxManager) Table(typ reflect.Type) *schema.Table {
	return m.DB().Table(typ)
}

func (m *TxManager) CurrentSession(ctx context.Context) Session {
	if scope, ok := scopeFrom(ctx); ok {
		return Session{IDB: scope.tx, active: true, readOnly: scope.readOnly}
	}
	return Session{IDB: m.DB()}
}

// Execute runs fn inside a transaction described by def.
//
// A transaction already carried by ctx is joined: fn sees the same bun.Tx and
// the joiner never commits or rolls it back. A read-only definition narrows a
// joined read-write transaction for the duration of fn; a read-write
// definition cannot join a read-only transaction.
//
// A transaction started here commits when fn returns nil and rolls back when
// fn returns an error or panics.
func (m *TxManager) Execute(ctx context.Context, def TxDefinition, fn func(ctx context.Context) error) error {
	if scope, ok := scopeFrom(ctx); ok {
		if scope.readOnly && !def.ReadOnly {
			return types.NewIllegalStateError("transaction", "read-write operation cannot join a read-only transaction")
		}
		if def.Isolation != sql.LevelDefault {
			m.logger.Debug("Isolation ignored for joined transaction", "isolation", def.Isolation.String())
		}
		joined := &txScope{tx: scope.tx, readOnly: scope.readOnly || def.ReadOnly, depth: scope.depth + 1}
		return fn(context.WithValue(ctx, txScopeKey{}, joined))
	}

	if def.Propagation == PropagationMandatory {
		return types.NewIllegalStateError("transaction", "propagation %s requires an existing transaction", def.Propagation)
	}

	tx, err := m.DB().BeginTx(ctx, m.txOptions(def))
	if err != nil {
		return Translate("begin", "", err)
	}
	m.logger.Debug("Transaction started", "read_only", def.ReadOnly, "isolation", def.Isolation.String())

	committed := false
	defer func() {
		if committed {
			return
		}
		p := recover()
		switch rbErr := tx.Rollback(); {
		case rbErr == nil:
			m.logger.Debug("Transaction rolled back")
		case !errors.Is(rbErr, sql.ErrTxDone):
			m.logger.Error("Failed to rollback transaction", "error", rbErr)
		}
		if p != nil {
			panic(p)
		}
	}()

	scope := &txScope{tx: tx, readOnly: def.ReadOnly}
	if err := fn(context.WithValue(ctx, txScopeKey{}, scope)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return Translate("commit", "", err)
	}
	committed = true
	m.logger.Debug("Transaction committed")
	return nil
}

// ReadOnly runs fn in a read-only REQUIRED transaction.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Execute(ctx, ReadOnlyTx(), fn)
}

// ReadWrite runs fn in a read-write REQUIRED transaction.
func (m *TxManager) ReadWrite(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Execute(ctx, ReadWriteTx(), fn)
}

// txOptions maps def onto driver options. SQLite drivers reject read-only and
// non-default isolation flags, so there the read-only guarantee is enforced
// by Session.Writable alone.
func (m *TxManager) txOptions(def TxDefinition) *sql.TxOptions {
	if m.DB().Dialect().Name() == dialect.SQLite {
		return &sql.TxOptions{}
	}
	return &sql.TxOptions{Isolation: def.Isolation, ReadOnly: def.ReadOnly}
}
