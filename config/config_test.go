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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
database:
  type: postgres
  host: db.internal
  port: 5432
  username: board
  dbname: postboard
  max_open_conns: 20
  slow_query_time: 250ms
  schema:
    create_tables: true
    foreign_keys: false
  data:
    auto_init: true
    path: seeds
    environment: staging
log:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "postboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.SlowQueryTime)
	assert.False(t, cfg.Database.Schema.ForeignKeys)
	assert.Equal(t, "staging", cfg.Database.Data.Environment)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep their defaults")
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POSTBOARD_DATABASE_HOST", "10.0.0.5")
	t.Setenv("POSTBOARD_DATABASE_SCHEMA_CREATE_TABLES", "false")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", cfg.Database.Host)
	assert.False(t, cfg.Database.Schema.CreateTables)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "postboard", cfg.Database.DBName)
	assert.True(t, cfg.Database.Schema.CreateTables)
	assert.Equal(t, "prod", cfg.Database.Data.Environment)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigLoader(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	dbCfg := cfg.ConfigLoader()
	assert.Equal(t, "postgres", dbCfg.ConnectionConfig.Type)
	assert.Equal(t, 20, dbCfg.ConnectionConfig.MaxOpenConns)
	assert.Equal(t, 10, dbCfg.ConnectionConfig.MaxIdleConns)
	assert.Equal(t, 250*time.Millisecond, dbCfg.ConnectionConfig.SlowQueryTime)
	assert.True(t, dbCfg.SchemaConfig.CreateTablesOnStartup)
	assert.False(t, dbCfg.SchemaConfig.EnableForeignKey)
	assert.True(t, dbCfg.DataInitConfig.AutoInitOnStartup)
	assert.Equal(t, "seeds", dbCfg.DataInitConfig.Filepath)
}
