package roster

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := Default(DefaultTeamCount)
	require.Len(t, r.Teams, 50)
	assert.Equal(t, Team{ID: "1", Password: "team1", Name: "Team 1"}, r.Teams[0])
	assert.Equal(t, Team{ID: "50", Password: "team50", Name: "Team 50"}, r.Teams[49])
}

func TestParse(t *testing.T) {
	r, err := Parse([]byte(`{"teams":[{"id":7,"password":"x","name":"Seven"},{"id":"8","password":"y"}]}`))
	require.NoError(t, err)
	require.Len(t, r.Teams, 2)
	assert.Equal(t, "7", r.Teams[0].ID)
	assert.Equal(t, "Team 8", r.Teams[1].Name)

	_, err = Parse([]byte("teams:\n  - id: 1\n  - id: 1\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("teams:\n  - name: nobody\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), 0)
	require.NoError(t, err)
	assert.Len(t, r.Teams, DefaultTeamCount)

	r, err = Load("", 4)
	require.NoError(t, err)
	assert.Len(t, r.Teams, 4)

	path := filepath.Join(t.TempDir(), "teams.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams:\n  - id: \"3\"\n    password: pw\n    name: Hawks\n"), 0o644))
	r, err = Load(path, 3)
	require.NoError(t, err)
	team, ok := r.Lookup("3")
	require.True(t, ok)
	assert.Equal(t, "Hawks", team.Name)
}

func TestHandler(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(Default(2)).Mount(router)

	for _, path := range []string{"/api/credentials", "/credentials.json"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body Roster
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, Default(2), body)
	}
}
