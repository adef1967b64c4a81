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
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/postboard/database"
)

func memoryConfig(t *testing.T) *database.Config {
	t.Helper()
	conn := database.DefaultConnectionConfig()
	conn.Type = "sqlite"
	conn.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn.MaxOpenConns = 1
	conn.MaxIdleConns = 1
	conn.ConnMaxLifetime = 0
	conn.ConnMaxIdleTime = 0
	conn.HealthCheckInterval = 0
	return &database.Config{ConnectionConfig: *conn}
}

func TestInitDB_BootstrapsAndSeeds(t *testing.T) {
	database.RegisteredModel(database.NewModelAdapter((*shelf)(nil), 10))

	root := t.TempDir()
	writeSQL(t, root, "common/001_shelves.sql", "INSERT INTO shelves (name) VALUES ('fiction');\n")

	cfg := memoryConfig(t)
	cfg.SchemaConfig = database.SchemaConfig{CreateTablesOnStartup: true, EnableForeignKey: true}
	cfg.DataInitConfig = database.DataInitConfig{AutoInitOnStartup: true, Filepath: root, Environment: "test"}

	ctx := context.Background()
	db, err := database.InitDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	assert.Same(t, db, database.GetDB())
	require.NotNil(t, database.GetTxManager())
	require.NotNil(t, database.GetDatabaseManager())

	n, err := db.NewSelect().Model((*shelf)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	health := database.GetHealthStatus(ctx)
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, database.GetDatabaseStats().MaxOpenConns)

	require.NoError(t, database.CloseDB())
	assert.Nil(t, database.GetTxManager())
	assert.False(t, database.GetHealthStatus(ctx).Healthy)
}

func TestInitDB_TxManagerSurvivesReconnect(t *testing.T) {
	database.RegisteredModel(database.NewModelAdapter((*shelf)(nil), 10))

	cfg := memoryConfig(t)
	cfg.ConnectionConfig.DBName = "file:" + filepath.Join(t.TempDir(), "shelves.db")
	cfg.SchemaConfig = database.SchemaConfig{CreateTablesOnStartup: true}

	ctx := context.Background()
	_, err := database.InitDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })

	tm := database.GetTxManager()
	require.NotNil(t, tm)
	insert := func(name string) error {
		return tm.ReadWrite(ctx, func(ctx context.Context) error {
			_, err := tm.CurrentSession(ctx).NewInsert().Model(&shelf{Name: name}).Exec(ctx)
			return err
		})
	}
	require.NoError(t, insert("before"))

	require.NoError(t, database.GetDatabaseManager().Reconnect(ctx))
	assert.Same(t, tm, database.GetTxManager())
	assert.Same(t, database.GetDatabaseManager().GetDB(), tm.DB())

	require.NoError(t, insert("after"))
	n, err := tm.DB().NewSelect().Model((*shelf)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInitDB_InvalidConfig(t *testing.T) {
	_, err := database.InitDB(context.Background(), nil)
	assert.Error(t, err)

	cfg := memoryConfig(t)
	cfg.ConnectionConfig.Type = "oracle"
	_, err = database.InitDB(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, database.GetTxManager())
}

func TestIsSupportedType(t *testing.T) {
	assert.True(t, database.IsSupportedType("SQLite"))
	assert.True(t, database.IsSupportedType("postgres"))
	assert.False(t, database.IsSupportedType("oracle"))
}
