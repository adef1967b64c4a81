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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/postboard/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func newMockTxManager(t *testing.T) (*TxManager, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return NewTxManager(db), mock
}

func TestTxManager_MockCommit(t *testing.T) {
	tm, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := tm.ReadWrite(context.Background(), func(ctx context.Context) error {
		return tm.ReadOnly(ctx, func(context.Context) error { return nil })
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "a joined transaction must not begin or commit again")
}

func TestTxManager_MockRollback(t *testing.T) {
	tm, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := tm.ReadWrite(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_MockBeginFailure(t *testing.T) {
	tm, mock := newMockTxManager(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err := tm.ReadWrite(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, types.ErrPersistence)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_MockCommitFailure(t *testing.T) {
	tm, mock := newMockTxManager(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("could not serialize access due to concurrent update"))

	err := tm.ReadWrite(context.Background(), func(context.Context) error { return nil })
	var pe *types.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "commit", pe.Op)
	assert.Equal(t, ConflictErr.String(), pe.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_MockConcurrentWriteConflict(t *testing.T) {
	tm, mock := newMockTxManager(t)
	conflict := errors.New(`pq: could not serialize access due to concurrent update`)
	for _, commitErr := range []error{nil, conflict} {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "notes"`).WillReturnResult(sqlmock.NewResult(0, 1))
		if commitErr == nil {
			mock.ExpectCommit()
		} else {
			mock.ExpectCommit().WillReturnError(commitErr)
		}
	}

	update := func(title string) error {
		return tm.ReadWrite(context.Background(), func(ctx context.Context) error {
			_, err := tm.CurrentSession(ctx).NewUpdate().
				Table("notes").
				Set("title = ?", title).
				Where("id = ?", 1).
				Exec(ctx)
			return err
		})
	}

	require.NoError(t, update("left"))
	err := update("right")
	assert.ErrorIs(t, err, types.ErrPersistence)
	assert.ErrorIs(t, err, conflict)
	assert.NotErrorIs(t, err, types.ErrValidation)
	assert.NotErrorIs(t, err, types.ErrIllegalState)

	var pe *types.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "commit", pe.Op)
	assert.Equal(t, ConflictErr.String(), pe.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_TxOptions(t *testing.T) {
	tm, _ := newMockTxManager(t)
	opts := tm.txOptions(TxDefinition{Isolation: sql.LevelSerializable, ReadOnly: true})
	assert.Equal(t, sql.LevelSerializable, opts.Isolation)
	assert.True(t, opts.ReadOnly)

	sqldb, _, err := sqlmock.New()
	require.NoError(t, err)
	lite := NewTxManager(bun.NewDB(sqldb, sqlitedialect.New()))
	defer func() { _ = lite.DB().Close() }()
	assert.Equal(t, &sql.TxOptions{}, lite.txOptions(TxDefinition{Isolation: sql.LevelSerializable, ReadOnly: true}))
}

func TestPropagationString(t *testing.T) {
	assert.Equal(t, "REQUIRED", PropagationRequired.String())
	assert.Equal(t, "MANDATORY", PropagationMandatory.String())
}
