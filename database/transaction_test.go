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

package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/internal/testdb"
	"github.com/tomoncle/postboard/types"
	"github.com/uptrace/bun"
)

type account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

func insertAccount(ctx context.Context, t *testing.T, tm *database.TxManager, name string) {
	t.Helper()
	session := tm.CurrentSession(ctx)
	require.NoError(t, session.Writable("insert"))
	_, err := session.NewInsert().Model(&account{Name: name}).Exec(ctx)
	require.NoError(t, err)
}

func countAccounts(t *testing.T, db *bun.DB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*account)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestTxManager_CommitOnSuccess(t *testing.T) {
	db, tm := testdb.OpenWithModels(t, (*account)(nil))
	ctx := context.Background()

	err := tm.ReadWrite(ctx, func(ctx context.Context) error {
		assert.True(t, database.InTransaction(ctx))
		insertAccount(ctx, t, tm, "alice")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, database.InTransaction(ctx))
	assert.Equal(t, 1, countAccounts(t, db))
}

func TestTxManager_RollbackOnError(t *testing.T) {
	db, tm := testdb.OpenWithModels(t, (*account)(nil))
	boom := errors.New("boom")

	err := tm.ReadWrite(context.Background(), func(ctx context.Context) error {
		insertAccount(ctx, t, tm, "alice")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countAccounts(t, db))
}

func TestTxManager_RollbackOnPanic(t *testing.T) {
	db, tm := testdb.OpenWithModels(t, (*account)(nil))

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = tm.ReadWrite(context.Background(), func(ctx context.Context) error {
			insertAccount(ctx, t, tm, "alice")
			panic("kaboom")
		})
	})
	assert.Equal(t, 0, countAccounts(t, db))
}

func TestTxManager_JoinSharesTransaction(t *testing.T) {
	db, tm := testdb.OpenWithModels(t, (*account)(nil))
	boom := errors.New("outer failed")

	err := tm.ReadWrite(context.Background(), func(ctx context.Context) error {
		insertAccount(ctx, t, tm, "outer")
		err := tm.ReadWrite(ctx, func(ctx context.Context) error {
			insertAccount(ctx, t, tm, "inner")
			n, err := tm.CurrentSession(ctx).NewSelect().Model((*account)(nil)).Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			return nil
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countAccounts(t, db), "inner work must roll back with the outer transaction")
}

func TestTxManager_ReadOnlyJoinerNarrowsScope(t *testing.T) {
	db, tm := testdb.OpenWithModels(t, (*account)(nil))

	err := tm.ReadWrite(context.Background(), func(ctx context.Context) error {
		err := tm.ReadOnly(ctx, func(ctx context.Context) error {
			session := tm.CurrentSession(ctx)
			assert.True(t, session.Active())
			assert.True(t, session.ReadOnly())
			return session.Writable("save")
		})
		assert.ErrorIs(t, err, types.ErrIllegalState)

		assert.NoError(t, tm.CurrentSession(ctx).Writable("save"))
		insertAccount(ctx, t, tm, "after")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countAccounts(t, db))
}

func TestTxManager_ReadWriteCannotJoinReadOnly(t *testing.T) {
	_, tm := testdb.OpenWithModels(t, (*account)(nil))
	called := false

	err := tm.ReadOnly(context.Background(), func(ctx context.Context) error {
		return tm.ReadWrite(ctx, func(ctx context.Context) error {
			called = true
			return nil
		})
	})
	assert.ErrorIs(t, err, types.ErrIllegalState)
	assert.False(t, called)
}

func TestTxManager_MandatoryPropagation(t *testing.T) {
	_, tm := testdb.OpenWithModels(t, (*account)(nil))
	mandatory := database.TxDefinition{Propagation: database.PropagationMandatory}
	noop := func(context.Context) error { return nil }

	err := tm.Execute(context.Background(), mandatory, noop)
	assert.ErrorIs(t, err, types.ErrIllegalState)

	err = tm.ReadWrite(context.Background(), func(ctx context.Context) error {
		return tm.Execute(ctx, mandatory, noop)
	})
	assert.NoError(t, err)
}

func TestSession_OutsideTransaction(t *testing.T) {
	_, tm := testdb.OpenWithModels(t, (*account)(nil))

	session := tm.CurrentSession(context.Background())
	assert.False(t, session.Active())
	assert.False(t, session.ReadOnly())

	err := session.Writable("save")
	assert.ErrorIs(t, err, types.ErrPersistence)
	assert.ErrorIs(t, err, database.ErrNoTransaction)
}
