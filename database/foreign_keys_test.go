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
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

var commentFK = ForeignKeyConstraint{
	Table:           "comments",
	Column:          "post_id",
	ReferenceTable:  "posts",
	ReferenceColumn: "id",
	OnDelete:        "CASCADE",
}

func TestForeignKeyConstraint_SQL(t *testing.T) {
	fk := commentFK
	assert.Equal(t, "fk_comments_post_id", fk.GenerateConstraintName())
	assert.Equal(t,
		"ALTER TABLE comments ADD CONSTRAINT fk_comments_post_id FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE",
		fk.GenerateSQL())
	assert.Equal(t, "(post_id) REFERENCES posts (id) ON DELETE CASCADE", fk.InlineSQL())

	fk.ConstraintName = "comments_post"
	fk.OnUpdate = "RESTRICT"
	assert.Equal(t, "comments_post", fk.GenerateConstraintName())
	assert.Contains(t, fk.GenerateSQL(), "ADD CONSTRAINT comments_post ")
	assert.Contains(t, fk.InlineSQL(), "ON UPDATE RESTRICT")
}

func TestForeignKeyManager_ValidateConstraints(t *testing.T) {
	fkm := NewForeignKeyManager(GetLogger(), []ForeignKeyConstraint{
		commentFK,
		{Table: "files", Column: "post_id", ReferenceTable: "posts", ReferenceColumn: "id", OnDelete: "set null"},
	})
	assert.Empty(t, fkm.ValidateConstraints())
	assert.Len(t, fkm.GetConstraintsByTable("COMMENTS"), 1)
	assert.Len(t, fkm.ListAllConstraints(), 2)

	fkm = NewForeignKeyManager(GetLogger(), []ForeignKeyConstraint{
		{Table: "files", Column: "post_id", OnDelete: "EXPLODE"},
	})
	assert.Len(t, fkm.ValidateConstraints(), 3)
}

func TestForeignKeyManager_AddAllForeignKeys(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	defer func() { _ = db.Close() }()

	filesFK := ForeignKeyConstraint{Table: "files", Column: "post_id", ReferenceTable: "posts", ReferenceColumn: "id"}
	mock.ExpectExec(commentFK.GenerateSQL()).WillReturnError(errors.New(`constraint "fk_comments_post_id" already exists`))
	mock.ExpectExec(filesFK.GenerateSQL()).WillReturnResult(sqlmock.NewResult(0, 0))

	fkm := NewForeignKeyManager(GetLogger(), []ForeignKeyConstraint{commentFK, filesFK})
	assert.NoError(t, fkm.AddAllForeignKeys(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForeignKeyManager_SkipsSQLite(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer func() { _ = db.Close() }()

	fkm := NewForeignKeyManager(GetLogger(), []ForeignKeyConstraint{commentFK})
	assert.NoError(t, fkm.AddAllForeignKeys(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
