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

func TestSplitSQLStatements(t *testing.T) {
	content := `
-- seed posts
INSERT INTO posts (name, title)
VALUES ('admin', 'hello');

INSERT INTO posts (name, title) VALUES ('admin', 'second');
UPDATE posts SET web = '' WHERE web IS NULL
`
	assert.Equal(t, []string{
		"INSERT INTO posts (name, title) VALUES ('admin', 'hello');",
		"INSERT INTO posts (name, title) VALUES ('admin', 'second');",
		"UPDATE posts SET web = '' WHERE web IS NULL",
	}, splitSQLStatements(content))
	assert.Empty(t, splitSQLStatements("-- only a comment\n\n"))
}

func TestParseFileOrder(t *testing.T) {
	assert.Equal(t, 1, parseFileOrder("001_welcome.sql"))
	assert.Equal(t, 20, parseFileOrder("20_users.sql"))
	assert.Equal(t, unorderedFile, parseFileOrder("seed.sql"))
}
