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
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

// driverSpec knows how to open one kind of store.
type driverSpec struct {
	driver  string
	dialect func() schema.Dialect
	dsn     func(cfg *ConnectionConfig) string
}

var (
	mysqlSpec = driverSpec{
		driver:  "mysql",
		dialect: func() schema.Dialect { return mysqldialect.New() },
		// clientFoundRows makes an UPDATE that changes nothing still report
		// the matched row; the repository relies on it to detect missing rows.
		dsn: func(c *ConnectionConfig) string {
			return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true&timeout=%s&readTimeout=%s&writeTimeout=%s",
				c.Username, c.Password, c.Host, c.Port, c.DBName, c.ConnectTimeout, c.ReadTimeout, c.WriteTimeout)
		},
	}
	postgresSpec = driverSpec{
		driver:  "postgres",
		dialect: func() schema.Dialect { return pgdialect.New() },
		dsn: func(c *ConnectionConfig) string {
			sslMode := c.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
				c.Username, c.Password, c.Host, c.Port, c.DBName, sslMode, int(c.ConnectTimeout.Seconds()))
		},
	}
	sqliteSpec = driverSpec{
		driver:  sqliteshim.ShimName,
		dialect: func() schema.Dialect { return sqlitedialect.New() },
		dsn: func(c *ConnectionConfig) string {
			if strings.HasPrefix(c.DBName, "file:") || c.DBName == ":memory:" {
				return c.DBName
			}
			return fmt.Sprintf("file:%s.db?cache=shared", c.DBName)
		},
	}

	drivers = map[string]driverSpec{
		"mysql":      mysqlSpec,
		"postgres":   postgresSpec,
		"postgresql": postgresSpec,
		"sqlite":     sqliteSpec,
		"sqlite3":    sqliteSpec,
	}
)

type defaultDatabaseManager struct {
	config *ConnectionConfig
	logger Logger

	mu        sync.RWMutex
	db        *bun.DB
	sqlDB     *sql.DB
	txManager *TxManager
	connected bool
	stop      chan struct{}
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// A nil config falls back to DefaultConnectionConfig.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	return &defaultDatabaseManager{config: config, logger: GetLogger()}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}
	sqlDB, db, err := dm.dial(ctx)
	if err != nil {
		return err
	}
	dm.install(sqlDB, db)
	dm.logger.Info("Database connected successfully", "type", dm.config.Type, "host", dm.config.Host)
	return nil
}

// Reconnect opens a fresh pool and swaps it in before closing the old one.
// The TxManager is kept and rebound, so holders of it follow the new pool.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.logger.Info("Attempting to reconnect to the database")
	sqlDB, db, err := dm.dial(ctx)
	if err != nil {
		return err
	}

	dm.mu.Lock()
	old := dm.db
	dm.install(sqlDB, db)
	dm.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			dm.logger.Warn("Error closing previous connection", "error", err)
		}
	}
	return nil
}

// dial opens and pings a new pool without touching the manager state.
func (dm *defaultDatabaseManager) dial(ctx context.Context) (*sql.DB, *bun.DB, error) {
	spec, ok := drivers[strings.ToLower(dm.config.Type)]
	if !ok {
		return nil, nil, fmt.Errorf("failed to create database connection: unsupported database type: %s", dm.config.Type)
	}
	sqlDB, err := sql.Open(spec.driver, spec.dsn(dm.config))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, spec.dialect())
	db.RegisterModel(RegisteredModelInstances()...)
	if dm.config.EnableQueryLog {
		db.AddQueryHook(NewQueryHook("DB_QUERY_LOG"))
	} else {
		// BUNDEBUG=1 logs failed queries, BUNDEBUG=2 logs all of them.
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(dm.config.SlowQueryTime, dm.logger))
	}

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("database connection test failed: %w", err)
	}
	return sqlDB, db, nil
}

// install makes db the live pool. Callers hold dm.mu.
func (dm *defaultDatabaseManager) install(sqlDB *sql.DB, db *bun.DB) {
	dm.sqlDB, dm.db = sqlDB, db
	dm.connected = true
	if dm.txManager == nil {
		dm.txManager = NewTxManager(db)
		dm.txManager.SetLogger(dm.logger)
	} else {
		dm.txManager.rebind(db)
	}
	if dm.stop == nil && dm.config.HealthCheckInterval > 0 {
		dm.stop = make(chan struct{})
		go dm.watch(dm.config.HealthCheckInterval, dm.stop)
	}
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.stop != nil {
		close(dm.stop)
		dm.stop = nil
	}
	if dm.db == nil {
		return nil
	}

	err := dm.db.Close()
	dm.db, dm.sqlDB, dm.connected = nil, nil, false
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
	} else {
		dm.logger.Info("Database connection closed")
	}
	return err
}

// watch pings the store every interval and, when reconnect is enabled,
// swaps in a new pool after a failed check. It gives up after
// MaxReconnectTries consecutive failed reconnects until a check passes.
func (dm *defaultDatabaseManager) watch(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tries := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		status := dm.HealthCheck(ctx)
		cancel()
		if status.Healthy {
			tries = 0
			continue
		}
		if !dm.config.EnableReconnect {
			continue
		}
		if tries >= dm.config.MaxReconnectTries {
			dm.logger.Error("Max reconnect attempts reached", "tries", tries, "error", status.LastError)
			continue
		}

		tries++
		dm.logger.Warn("Database unhealthy, reconnecting", "try", tries, "error", status.LastError)
		select {
		case <-stop:
			return
		case <-time.After(dm.config.ReconnectInterval):
		}

		ctx, cancel = context.WithTimeout(context.Background(), dm.config.ConnectTimeout)
		err := dm.Reconnect(ctx)
		cancel()
		if err != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", tries)
			continue
		}
		tries = 0
		dm.logger.Info("Reconnect succeeded")
	}
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}

	dm.mu.RLock()
	db, sqlDB := dm.db, dm.sqlDB
	dm.mu.RUnlock()
	if db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	status.Healthy = err == nil
	status.Connected = err == nil
	if err != nil {
		status.LastError = err.Error()
	}

	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	return status
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}

	s := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      s.MaxOpenConnections,
		OpenConns:         s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

// TxManager returns the transaction manager of this manager, or nil before
// the first Connect. The same instance survives Reconnect.
func (dm *defaultDatabaseManager) TxManager() *TxManager {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.txManager
}

func (dm *defaultDatabaseManager) InitSchema(ctx context.Context, cfg *SchemaConfig) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	db.RegisterModel(RegisteredModelInstances()...)
	return NewSchemaManager(db, defaultRegistry, dm.logger).Bootstrap(ctx, cfg)
}

func (dm *defaultDatabaseManager) InitData(ctx context.Context, cfg *DataInitConfig) error {
	tx := dm.TxManager()
	if tx == nil {
		return fmt.Errorf("database not initialized")
	}
	env := "prod"
	root := ""
	if cfg != nil {
		if cfg.Environment != "" {
			env = cfg.Environment
		}
		root = cfg.Filepath
	}
	sqlManager := NewSQLInitManager(tx, env)
	sqlManager.SetSQLRootPath(root)
	sqlManager.SetLogger(dm.logger)
	_, err := sqlManager.ExecuteInitialization(ctx)
	return err
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
	if dm.txManager != nil {
		dm.txManager.SetLogger(logger)
	}
}
