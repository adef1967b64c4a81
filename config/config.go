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

// Package config loads the application configuration from YAML and
// POSTBOARD_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/utils"
)

const (
	DefaultConfigFile = "configs/postboard.yaml"
	EnvPrefix         = "POSTBOARD"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Type                string        `mapstructure:"type"`
	Host                string        `mapstructure:"host"`
	Port                int           `mapstructure:"port"`
	Username            string        `mapstructure:"username"`
	Password            string        `mapstructure:"password"`
	DBName              string        `mapstructure:"dbname"`
	SSLMode             string        `mapstructure:"sslmode"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxOpenConns        int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime     time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	EnableQueryLog      bool          `mapstructure:"enable_query_log"`
	SlowQueryTime       time.Duration `mapstructure:"slow_query_time"`
	Schema              SchemaConfig  `mapstructure:"schema"`
	Data                DataConfig    `mapstructure:"data"`
}

type SchemaConfig struct {
	CreateTables   bool   `mapstructure:"create_tables"`
	ForeignKeys    bool   `mapstructure:"foreign_keys"`
	ForeignKeyFile string `mapstructure:"foreign_key_file"`
}

type DataConfig struct {
	AutoInit    bool   `mapstructure:"auto_init"`
	Path        string `mapstructure:"path"`
	Environment string `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var _ database.AbstractDatabaseConfigProvider = (*Config)(nil)

func setDefaults(v *viper.Viper) {
	def := database.DefaultConnectionConfig()
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "postboard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", def.MaxIdleConns)
	v.SetDefault("database.max_open_conns", def.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", def.ConnMaxLifetime)
	v.SetDefault("database.connect_timeout", def.ConnectTimeout)
	v.SetDefault("database.health_check_interval", def.HealthCheckInterval)
	v.SetDefault("database.enable_query_log", false)
	v.SetDefault("database.slow_query_time", def.SlowQueryTime)
	v.SetDefault("database.schema.create_tables", true)
	v.SetDefault("database.schema.foreign_keys", true)
	v.SetDefault("database.schema.foreign_key_file", "")
	v.SetDefault("database.data.auto_init", false)
	v.SetDefault("database.data.path", "configs/sql")
	v.SetDefault("database.data.environment", "prod")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads path, or DefaultConfigFile when path is empty. A missing
// default file is not an error; a missing explicit file is. Environment
// variables such as POSTBOARD_DATABASE_HOST override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := path
	if file == "" {
		file = DefaultConfigFile
		if _, err := os.Stat(file); err != nil {
			file = ""
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// ConfigLoader converts the database section into database.Config.
func (c *Config) ConfigLoader() *database.Config {
	conn := database.DefaultConnectionConfig()
	d := c.Database
	conn.Type = d.Type
	conn.Host = d.Host
	conn.Port = d.Port
	conn.Username = d.Username
	conn.Password = d.Password
	conn.DBName = d.DBName
	conn.SSLMode = d.SSLMode
	conn.EnableQueryLog = d.EnableQueryLog
	conn.HealthCheckInterval = d.HealthCheckInterval
	if d.MaxIdleConns > 0 {
		conn.MaxIdleConns = d.MaxIdleConns
	}
	if d.MaxOpenConns > 0 {
		conn.MaxOpenConns = d.MaxOpenConns
	}
	if d.ConnMaxLifetime > 0 {
		conn.ConnMaxLifetime = d.ConnMaxLifetime
	}
	if d.ConnectTimeout > 0 {
		conn.ConnectTimeout = d.ConnectTimeout
	}
	if d.SlowQueryTime > 0 {
		conn.SlowQueryTime = d.SlowQueryTime
	}
	return &database.Config{
		ConnectionConfig: *conn,
		SchemaConfig: database.SchemaConfig{
			CreateTablesOnStartup: d.Schema.CreateTables,
			EnableForeignKey:      d.Schema.ForeignKeys,
			ForeignKeyFile:        d.Schema.ForeignKeyFile,
		},
		DataInitConfig: database.DataInitConfig{
			AutoInitOnStartup: d.Data.AutoInit,
			Filepath:          d.Data.Path,
			Environment:       d.Data.Environment,
		},
	}
}

// ApplyLogging configures the console log level and format.
func (c *Config) ApplyLogging() {
	if c.Log.Format != "" {
		utils.ConfigureConsoleLogFormat(c.Log.Format)
	}
	if c.Log.Level != "" {
		utils.ConfigureLogLevel(c.Log.Level)
	}
}
