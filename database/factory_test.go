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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_OverrideFromEnv(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90")
	t.Setenv("DB_SLOW_QUERY_MS", "250")
	t.Setenv("DB_ENABLE_RECONNECT", "false")

	cfg := DefaultConnectionConfig()
	cfg.Type = "sqlite"
	manager, err := NewDatabaseFactory().CreateFromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, manager)

	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, 100, cfg.MaxOpenConns)
	assert.Equal(t, 90*time.Second, cfg.ConnMaxLifetime)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowQueryTime)
	assert.False(t, cfg.EnableReconnect)
	assert.Nil(t, manager.TxManager())
}

func TestFactory_RejectsUnknownType(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Type = "oracle"
	_, err := NewDatabaseFactory().CreateFromConfig(cfg)
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestDriverSpecs_DSN(t *testing.T) {
	cfg := &ConnectionConfig{Host: "db", Port: 5432, Username: "u", Password: "p", DBName: "board", ConnectTimeout: 3 * time.Second}
	assert.Equal(t, "postgres://u:p@db:5432/board?sslmode=disable&connect_timeout=3", drivers["postgresql"].dsn(cfg))
	assert.Contains(t, drivers["mysql"].dsn(cfg), "u:p@tcp(db:5432)/board?")
	assert.Contains(t, drivers["mysql"].dsn(cfg), "clientFoundRows=true")
	assert.Equal(t, "file:board.db?cache=shared", drivers["sqlite3"].dsn(cfg))

	cfg.DBName = ":memory:"
	assert.Equal(t, ":memory:", drivers["sqlite"].dsn(cfg))
}
