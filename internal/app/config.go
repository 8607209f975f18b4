package app

import (
	"time"

	"github.com/ranne1/guitar-codes/internal/game"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	HTTPAddr string

	StoreDriver string
	ScoresFile  string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string

	LedgerCap    int
	RoundTime    time.Duration
	SessionGrace time.Duration

	LogLevel string
	LogFile  string
}

func (c Config) withDefaults() Config {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":3001"
	}
	if c.StoreDriver == "" {
		c.StoreDriver = DriverFile
	}
	if c.ScoresFile == "" {
		c.ScoresFile = "data/scores.json"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/scores.db"
	}
	if c.SessionGrace <= 0 {
		c.SessionGrace = game.DefaultAttachGrace
	}
	return c
}
