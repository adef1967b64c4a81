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

package utils

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerIsRegistered(t *testing.T) {
	a := NewLogger("REGISTRY_TEST")
	assert.Same(t, a, NewLogger("REGISTRY_TEST"))
	assert.True(t, SetLoggerLevel("REGISTRY_TEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("NEVER_CREATED", "debug"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" WARNING "))
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("verbose"))
}

func TestLog4jFormatter(t *testing.T) {
	var buf bytes.Buffer
	lg := logrus.New()
	lg.SetOutput(&buf)
	lg.SetFormatter(&Log4jFormatter{LoggerName: "DATABASE_LONG_NAME", NameWidth: 8})

	lg.WithFields(logrus.Fields{"table": "posts", "count": 2}).Warn("created")
	out := buf.String()
	assert.Contains(t, out, " WARNING ")
	assert.Contains(t, out, "[DATABASE]")
	assert.Contains(t, out, ": created count=2 table=posts\n")
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("POSTBOARD_TEST_FLAG", "true")
	t.Setenv("POSTBOARD_TEST_BAD_FLAG", "maybe")
	assert.True(t, EnvDefaultBool("POSTBOARD_TEST_FLAG", false))
	assert.False(t, EnvDefaultBool("POSTBOARD_TEST_BAD_FLAG", false))
	assert.Equal(t, "fallback", EnvDefaultString("POSTBOARD_TEST_UNSET", "fallback"))
}
