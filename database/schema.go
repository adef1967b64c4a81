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
	"reflect"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// SchemaManager creates the tables of registered models. It does not alter
// existing tables: a table that already exists is left untouched.
type SchemaManager struct {
	db       *bun.DB
	registry ModelRegistry
	logger   Logger
}

// NewSchemaManager returns a schema manager over registry. A nil registry
// uses the default registry.
func NewSchemaManager(db *bun.DB, registry ModelRegistry, logger Logger) *SchemaManager {
	if registry == nil {
		registry = defaultRegistry
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &SchemaManager{db: db, registry: registry, logger: logger}
}

// Bootstrap creates missing tables and, when cfg enables them, the foreign
// keys declared by the registry and by cfg.ForeignKeyFile.
func (sm *SchemaManager) Bootstrap(ctx context.Context, cfg *SchemaConfig) error {
	if sm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if cfg == nil {
		cfg = &SchemaConfig{CreateTablesOnStartup: true}
	}
	if !cfg.CreateTablesOnStartup {
		return nil
	}
	if _, ok := os.LookupEnv("BUNDEBUG_SCHEMA"); !ok {
		SilenceQueryHooks(true)
		defer SilenceQueryHooks(false)
	}

	var fkm *ForeignKeyManager
	if cfg.EnableForeignKey {
		constraints, err := sm.constraints(cfg.ForeignKeyFile)
		if err != nil {
			return err
		}
		fkm = NewForeignKeyManager(sm.logger, constraints)
		if errs := fkm.ValidateConstraints(); len(errs) > 0 {
			for _, err := range errs {
				sm.logger.Debug("Foreign key constraint validation failed", "error", err.Error())
			}
			return fmt.Errorf("foreign key constraint validation failed, %d errors in total", len(errs))
		}
	}

	if err := sm.CreateTables(ctx, fkm); err != nil {
		return err
	}
	if fkm != nil {
		if err := fkm.AddAllForeignKeys(ctx, sm.db); err != nil {
			return err
		}
	}
	sm.logger.Info("Database schema ready", "tables", len(sm.registry.Models()))
	return nil
}

// CreateTables creates every registered model table in priority order.
// SQLite cannot add constraints after the fact, so there the constraints of
// fkm are declared inline.
func (sm *SchemaManager) CreateTables(ctx context.Context, fkm *ForeignKeyManager) error {
	inline := fkm != nil && sm.db.Dialect().Name() == dialect.SQLite
	for _, model := range ModelInstances(sm.registry) {
		q := sm.db.NewCreateTable().Model(model).IfNotExists()
		if inline {
			table := sm.db.Table(reflect.TypeOf(model))
			for _, fk := range fkm.GetConstraintsByTable(table.Name) {
				q = q.ForeignKey(fk.InlineSQL())
			}
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

// DropTables drops every registered model table in reverse priority order.
func (sm *SchemaManager) DropTables(ctx context.Context) error {
	models := ModelInstances(sm.registry)
	for i := len(models) - 1; i >= 0; i-- {
		if _, err := sm.db.NewDropTable().Model(models[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table %T: %w", models[i], err)
		}
	}
	return nil
}

func (sm *SchemaManager) constraints(path string) ([]ForeignKeyConstraint, error) {
	constraints := sm.registry.ForeignKeys()
	if path == "" {
		return constraints, nil
	}
	fromFile, err := LoadForeignKeyFile(path)
	if err != nil {
		return nil, err
	}
	sm.logger.Debug("Loaded foreign keys from file", "path", path, "count", len(fromFile))
	seen := make(map[string]struct{}, len(constraints))
	for _, c := range constraints {
		seen[c.GenerateConstraintName()] = struct{}{}
	}
	for _, c := range fromFile {
		if _, ok := seen[c.GenerateConstraintName()]; !ok {
			constraints = append(constraints, c)
		}
	}
	return constraints, nil
}
