package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(Config{StoreDriver: "tape", LogFile: filepath.Join(t.TempDir(), "app.log")})
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestNew_PostgresNeedsURL(t *testing.T) {
	_, err := New(Config{StoreDriver: DriverPostgres, LogFile: filepath.Join(t.TempDir(), "app.log")})
	require.Error(t, err)
}

func TestApp_SubmitThenLeaderboard(t *testing.T) {
	for _, driver := range []string{DriverMemory, DriverFile, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			a, err := New(Config{
				StoreDriver: driver,
				ScoresFile:  filepath.Join(dir, "scores.json"),
				SQLitePath:  filepath.Join(dir, "scores.db"),
				LogFile:     filepath.Join(dir, "app.log"),
			})
			require.NoError(t, err)
			t.Cleanup(a.Close)

			h := a.Handler()
			for _, body := range []string{
				`{"gameMode":"chord-input","playerName":"Ann","score":300}`,
				`{"gameMode":"chord-input","playerName":"Bo","score":450}`,
			} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scores", bytes.NewBufferString(body)))
				require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			}

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scores?gameMode=chord-input", nil))
			require.JSONEq(t, `{"bestScore":450}`, w.Body.String())

			w = httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scores/chord-input/leaderboard", nil))
			require.Equal(t, http.StatusOK, w.Code)

			var resp struct {
				Leaderboard []struct {
					Rank       int    `json:"rank"`
					PlayerName string `json:"playerName"`
					Score      int    `json:"score"`
				} `json:"leaderboard"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Len(t, resp.Leaderboard, 2)
			require.Equal(t, "Bo", resp.Leaderboard[0].PlayerName)
			require.Equal(t, 2, resp.Leaderboard[1].Rank)
		})
	}
}
