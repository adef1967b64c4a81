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

	"github.com/stretchr/testify/assert"
)

type registryParent struct{ ID int64 }
type registryChild struct{ ID int64 }

func TestModelRegistry_OrdersByPriority(t *testing.T) {
	registry := NewModelRegistry()
	registry.Register(NewModelAdapter((*registryChild)(nil), 20))
	registry.Register(NewModelAdapter((*registryParent)(nil), 10))
	registry.Register(NewModelAdapter((*registryChild)(nil), 5))

	models := registry.Models()
	assert.Len(t, models, 2)
	assert.IsType(t, (*registryParent)(nil), models[0].Instance())
	assert.IsType(t, (*registryChild)(nil), models[1].Instance())
	assert.Equal(t, 20, models[1].Priority(), "the first registration of a type wins")

	instances := ModelInstances(registry)
	assert.Equal(t, []interface{}{(*registryParent)(nil), (*registryChild)(nil)}, instances)
}

func TestModelRegistry_ForeignKeysDeduplicated(t *testing.T) {
	registry := NewModelRegistry()
	registry.RegisterForeignKey(commentFK)
	registry.RegisterForeignKey(commentFK)
	registry.RegisterForeignKey(ForeignKeyConstraint{Table: "files", Column: "post_id", ReferenceTable: "posts", ReferenceColumn: "id"})

	fks := registry.ForeignKeys()
	assert.Len(t, fks, 2)
	fks[0].Table = "mutated"
	assert.Equal(t, "comments", registry.ForeignKeys()[0].Table)
}
