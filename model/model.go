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

// Package model declares the board's bun models.
package model

import (
	"time"

	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/types"
	"github.com/uptrace/bun"
)

// Post is a board entry.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID        int64            `bun:"id,pk,autoincrement" json:"id"`
	Name      string           `bun:"name,notnull" json:"name" validate:"min=1,max=100"`
	Email     string           `bun:"email,notnull" json:"email" validate:"min=1,max=100,email"`
	IPAddress string           `bun:"ip_addr" json:"ip_addr" validate:"omitempty,ip"`
	Title     string           `bun:"title,notnull" json:"title" validate:"min=1,max=120"`
	Web       string           `bun:"web" json:"web" validate:"max=250"`
	Text      string           `bun:"text,type:text" json:"text"`
	Metadata  types.JsonObject `bun:"metadata,type:text" json:"metadata,omitempty"`
	CreatedAt time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Comment belongs to a Post through PostID.
type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:c"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	PostID    int64     `bun:"post_id,notnull" json:"post_id" validate:"gt=0"`
	Name      string    `bun:"name,notnull" json:"name" validate:"min=1,max=100"`
	Email     string    `bun:"email" json:"email" validate:"omitempty,max=100,email"`
	Text      string    `bun:"text,type:text,notnull" json:"text" validate:"min=1"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// UserMessage is a contact form submission.
type UserMessage struct {
	bun.BaseModel `bun:"table:user_messages,alias:um"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name" validate:"min=1,max=100"`
	Email     string    `bun:"email,notnull" json:"email" validate:"min=1,max=100,email"`
	Text      string    `bun:"text,type:text,notnull" json:"text" validate:"min=1"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// FileEntity is an attachment of a Post. StoredName is the generated name
// the content is stored under; OriginalName is what the client sent.
type FileEntity struct {
	bun.BaseModel `bun:"table:files,alias:f"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	PostID       int64     `bun:"post_id,notnull" json:"post_id" validate:"gt=0"`
	OriginalName string    `bun:"original_name,notnull" json:"original_name" validate:"min=1,max=255"`
	StoredName   string    `bun:"stored_name,notnull,unique" json:"stored_name" validate:"required"`
	ContentType  string    `bun:"content_type" json:"content_type" validate:"max=100"`
	Size         int64     `bun:"size" json:"size" validate:"gte=0"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// ForeignKeys returns the references between board tables.
func ForeignKeys() []database.ForeignKeyConstraint {
	return []database.ForeignKeyConstraint{
		{Table: "comments", Column: "post_id", ReferenceTable: "posts", ReferenceColumn: "id", OnDelete: "CASCADE"},
		{Table: "files", Column: "post_id", ReferenceTable: "posts", ReferenceColumn: "id", OnDelete: "CASCADE"},
	}
}

// Register adds the board models and their foreign keys to registry.
// Referenced tables get the lower priority so they are created first.
func Register(registry database.ModelRegistry) {
	registry.Register(database.NewModelAdapter((*Post)(nil), 10))
	registry.Register(database.NewModelAdapter((*UserMessage)(nil), 10))
	registry.Register(database.NewModelAdapter((*Comment)(nil), 20))
	registry.Register(database.NewModelAdapter((*FileEntity)(nil), 20))
	for _, fk := range ForeignKeys() {
		registry.RegisterForeignKey(fk)
	}
}
