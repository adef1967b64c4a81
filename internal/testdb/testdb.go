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

// Package testdb opens isolated in-memory SQLite databases for tests.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/postboard/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Open returns a fresh in-memory database closed at test cleanup. The pool
// holds a single connection so every query sees the same memory database
// and concurrent transactions serialize.
func Open(t testing.TB) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// OpenWithModels opens a database and creates the tables of models in order.
func OpenWithModels(t testing.TB, models ...interface{}) (*bun.DB, *database.TxManager) {
	t.Helper()
	db := Open(t)
	registry := database.NewModelRegistry()
	for i, m := range models {
		registry.Register(database.NewModelAdapter(m, i))
	}
	require.NoError(t, database.NewSchemaManager(db, registry, nil).CreateTables(context.Background(), nil))
	return db, database.NewTxManager(db)
}

// OpenWithRegistry opens a database and bootstraps the schema of registry.
func OpenWithRegistry(t testing.TB, registry database.ModelRegistry) (*bun.DB, *database.TxManager) {
	t.Helper()
	db := Open(t)
	cfg := &database.SchemaConfig{CreateTablesOnStartup: true, EnableForeignKey: true}
	require.NoError(t, database.NewSchemaManager(db, registry, nil).Bootstrap(context.Background(), cfg))
	return db, database.NewTxManager(db)
}
