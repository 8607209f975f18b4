package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/ranne1/guitar-codes/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg := app.Config{
		HTTPAddr: getenv("HTTP_ADDR", ":3001"),

		StoreDriver: getenv("STORE_DRIVER", app.DriverFile),
		ScoresFile:  getenv("SCORES_FILE", "data/scores.json"),
		SQLitePath:  getenv("SQLITE_PATH", "data/scores.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		LedgerCap:    getenvInt("LEDGER_CAP", 100),
		RoundTime:    time.Duration(getenvInt("ROUND_SECONDS", 10)) * time.Second,
		SessionGrace: time.Duration(getenvInt("SESSION_GRACE_SECONDS", 120)) * time.Second,

		LogLevel: getenv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}

	a, err := app.New(cfg)
	if err != nil {
		panic(err)
	}
	defer a.Close()

	if err := a.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
