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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// SupportedTypes lists the accepted ConnectionConfig.Type values.
var SupportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

func IsSupportedType(t string) bool {
	_, ok := drivers[strings.ToLower(t)]
	return ok
}

// BaseDatabaseFactory creates and manages a configured database manager and
// provides helpers for initialization, health checks, and statistics.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// CreateFromConfig constructs a database manager from the given connection
// configuration, applying environment overrides and setting the factory logger.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	f.overrideFromEnv(cfg)
	if !IsSupportedType(cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, SupportedTypes)
	}

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

// envOverrides maps DB_* variables onto connection settings. Values that
// fail to parse are ignored.
var envOverrides = map[string]func(cfg *ConnectionConfig, v string){
	"DB_TYPE":     func(c *ConnectionConfig, v string) { c.Type = v },
	"DB_HOST":     func(c *ConnectionConfig, v string) { c.Host = v },
	"DB_PORT":     func(c *ConnectionConfig, v string) { setInt(&c.Port, v) },
	"DB_USERNAME": func(c *ConnectionConfig, v string) { c.Username = v },
	"DB_PASSWORD": func(c *ConnectionConfig, v string) { c.Password = v },
	"DB_NAME":     func(c *ConnectionConfig, v string) { c.DBName = v },
	"DB_SSLMODE":  func(c *ConnectionConfig, v string) { c.SSLMode = v },

	"DB_MAX_IDLE_CONNS":    func(c *ConnectionConfig, v string) { setInt(&c.MaxIdleConns, v) },
	"DB_MAX_OPEN_CONNS":    func(c *ConnectionConfig, v string) { setInt(&c.MaxOpenConns, v) },
	"DB_CONN_MAX_LIFETIME": func(c *ConnectionConfig, v string) { setDuration(&c.ConnMaxLifetime, v, time.Second) },

	"DB_ENABLE_RECONNECT":   func(c *ConnectionConfig, v string) { c.EnableReconnect = v == "true" },
	"DB_RECONNECT_INTERVAL": func(c *ConnectionConfig, v string) { setDuration(&c.ReconnectInterval, v, time.Second) },
	"DB_ENABLE_QUERY_LOG":   func(c *ConnectionConfig, v string) { c.EnableQueryLog = v == "true" },
	"DB_SLOW_QUERY_MS":      func(c *ConnectionConfig, v string) { setDuration(&c.SlowQueryTime, v, time.Millisecond) },
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setDuration(dst *time.Duration, v string, unit time.Duration) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * unit
	}
}

func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	for key, apply := range envOverrides {
		if v := os.Getenv(key); v != "" {
			apply(cfg, v)
		}
	}
}

// InitializeDatabase connects, then bootstraps the schema and seeds data
// when the respective configs ask for it.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, schemaCfg *SchemaConfig, dataCfg *DataInitConfig) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if schemaCfg != nil && schemaCfg.CreateTablesOnStartup {
		if err := f.manager.InitSchema(ctx, schemaCfg); err != nil {
			return fmt.Errorf("failed to initialize database schema: %w", err)
		}
	}
	if dataCfg != nil && dataCfg.AutoInitOnStartup {
		if err := f.manager.InitData(ctx, dataCfg); err != nil {
			return fmt.Errorf("failed to initialize database data: %w", err)
		}
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// GetTxManager returns the transaction manager, or nil before the first connect.
func (f *BaseDatabaseFactory) GetTxManager() *TxManager {
	if f.manager == nil {
		return nil
	}
	return f.manager.TxManager()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the database connection managed by the factory.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			Healthy:       false,
			Connected:     false,
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns database connection statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
