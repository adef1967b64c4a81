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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/internal/testdb"
	"github.com/uptrace/bun"
)

type shelf struct {
	bun.BaseModel `bun:"table:shelves,alias:sh"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID      int64  `bun:"id,pk,autoincrement"`
	ShelfID int64  `bun:"shelf_id,notnull"`
	Title   string `bun:"title,notnull"`
}

func shelfRegistry() database.ModelRegistry {
	registry := database.NewModelRegistry()
	registry.Register(database.NewModelAdapter((*book)(nil), 20))
	registry.Register(database.NewModelAdapter((*shelf)(nil), 10))
	return registry
}

func tableSQL(t *testing.T, db *bun.DB, name string) string {
	t.Helper()
	var ddl string
	err := db.NewSelect().TableExpr("sqlite_master").Column("sql").Where("name = ?", name).Scan(context.Background(), &ddl)
	require.NoError(t, err)
	return ddl
}

func TestSchemaManager_BootstrapInlinesForeignKeysOnSQLite(t *testing.T) {
	registry := shelfRegistry()
	registry.RegisterForeignKey(database.ForeignKeyConstraint{
		Table: "books", Column: "shelf_id", ReferenceTable: "shelves", ReferenceColumn: "id", OnDelete: "CASCADE",
	})

	db, _ := testdb.OpenWithRegistry(t, registry)
	assert.Contains(t, tableSQL(t, db, "books"), "REFERENCES shelves (id) ON DELETE CASCADE")
	assert.NotContains(t, tableSQL(t, db, "shelves"), "REFERENCES")
}

func TestSchemaManager_BootstrapMergesForeignKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fk.yaml")
	require.NoError(t, database.ExportForeignKeyFile(path, []database.ForeignKeyConstraint{
		{Table: "books", Column: "shelf_id", ReferenceTable: "shelves", ReferenceColumn: "id", OnDelete: "RESTRICT"},
	}))

	db := testdb.Open(t)
	sm := database.NewSchemaManager(db, shelfRegistry(), nil)
	cfg := &database.SchemaConfig{CreateTablesOnStartup: true, EnableForeignKey: true, ForeignKeyFile: path}
	require.NoError(t, sm.Bootstrap(context.Background(), cfg))
	assert.Contains(t, tableSQL(t, db, "books"), "REFERENCES shelves (id) ON DELETE RESTRICT")

	// Existing tables are left untouched.
	require.NoError(t, sm.Bootstrap(context.Background(), cfg))
}

func TestSchemaManager_BootstrapRejectsInvalidConstraints(t *testing.T) {
	registry := shelfRegistry()
	registry.RegisterForeignKey(database.ForeignKeyConstraint{
		Table: "books", Column: "shelf_id", ReferenceTable: "shelves", ReferenceColumn: "id", OnDelete: "EXPLODE",
	})
	db := testdb.Open(t)
	cfg := &database.SchemaConfig{CreateTablesOnStartup: true, EnableForeignKey: true}
	assert.Error(t, database.NewSchemaManager(db, registry, nil).Bootstrap(context.Background(), cfg))
}

func TestSchemaManager_DisabledAndDrop(t *testing.T) {
	db := testdb.Open(t)
	sm := database.NewSchemaManager(db, shelfRegistry(), nil)
	ctx := context.Background()

	require.NoError(t, sm.Bootstrap(ctx, &database.SchemaConfig{CreateTablesOnStartup: false}))
	n, err := db.NewSelect().TableExpr("sqlite_master").Where("type = 'table' AND name NOT LIKE 'sqlite_%'").Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, sm.Bootstrap(ctx, nil))
	require.NoError(t, sm.DropTables(ctx))
	n, err = db.NewSelect().TableExpr("sqlite_master").Where("type = 'table' AND name NOT LIKE 'sqlite_%'").Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
