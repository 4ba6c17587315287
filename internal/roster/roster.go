// Package roster serves the team list used by the login page.
package roster

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTeamCount is how many teams Default synthesizes.
const DefaultTeamCount = 50

// Team is one login entry. The service only reads ID and Name; passwords are
// handed to the login page as-is.
type Team struct {
	ID       string `json:"id" yaml:"id"`
	Password string `json:"password" yaml:"password"`
	Name     string `json:"name" yaml:"name"`
}

// Roster is the document served at /api/credentials.
type Roster struct {
	Teams []Team `json:"teams" yaml:"teams"`
}

// Default builds n teams: "Team 1" with password "team1" and so on.
func Default(n int) Roster {
	teams := make([]Team, n)
	for i := range teams {
		id := strconv.Itoa(i + 1)
		teams[i] = Team{ID: id, Password: "team" + id, Name: "Team " + id}
	}
	return Roster{Teams: teams}
}

// Parse decodes a YAML or JSON roster.
func Parse(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	seen := make(map[string]bool, len(r.Teams))
	for i, t := range r.Teams {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return Roster{}, fmt.Errorf("roster team %d has no id", i+1)
		}
		if seen[id] {
			return Roster{}, fmt.Errorf("roster team id %q listed twice", id)
		}
		seen[id] = true
		r.Teams[i].ID = id
		if r.Teams[i].Name == "" {
			r.Teams[i].Name = "Team " + id
		}
	}
	if r.Teams == nil {
		r.Teams = []Team{}
	}
	return r, nil
}

// Load reads path, or falls back to Default(fallback) when path is empty or
// missing. A non-positive fallback means DefaultTeamCount.
func Load(path string, fallback int) (Roster, error) {
	if fallback <= 0 {
		fallback = DefaultTeamCount
	}
	if path == "" {
		return Default(fallback), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(fallback), nil
	}
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return Roster{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Lookup returns the team with id.
func (r Roster) Lookup(id string) (Team, bool) {
	for _, t := range r.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}
