package content

import (
	"fmt"
	"regexp"
)

const (
	PackKind               = "content_pack"
	SupportedSchemaVersion = 1
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,63}$`)

// Pack is a self-contained bundle of demo content: rooms with scripted lab
// shells, plus code challenges. Demo mode serves these instead of talking to
// a real backend.
type Pack struct {
	Kind          string         `yaml:"kind"`
	SchemaVersion int            `yaml:"schema_version"`
	PackID        string         `yaml:"pack_id"`
	Name          string         `yaml:"name"`
	Version       string         `yaml:"version"`
	Rooms         []RoomDef      `yaml:"rooms"`
	Challenges    []ChallengeDef `yaml:"challenges"`

	Path string `yaml:"-"`
}

type RoomDef struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Difficulty  string       `yaml:"difficulty"`
	Category    string       `yaml:"category"`
	ContentMD   string       `yaml:"content_md"`
	XPReward    int          `yaml:"xp_reward"`
	HasLab      bool         `yaml:"has_lab"`
	Tasks       []TaskDef    `yaml:"tasks"`
	Shell       []ShellEntry `yaml:"shell"`
	Flag        string       `yaml:"flag"`
}

type TaskDef struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// ShellEntry scripts one command of a room's fake lab shell.
type ShellEntry struct {
	Command  string `yaml:"command"`
	Output   string `yaml:"output"`
	ExitCode int    `yaml:"exit_code"`
}

type ChallengeDef struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Difficulty  string `yaml:"difficulty"`
	Language    string `yaml:"language"`
	StarterCode string `yaml:"starter_code"`
	XPReward    int    `yaml:"xp_reward"`
}

func validDifficulty(d string) bool {
	switch d {
	case "", "easy", "medium", "hard":
		return true
	}
	return false
}

func (p *Pack) Validate() error {
	if p.Kind != PackKind {
		return fmt.Errorf("kind must be %q, got %q", PackKind, p.Kind)
	}
	if p.SchemaVersion != SupportedSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d", p.SchemaVersion)
	}
	if !idPattern.MatchString(p.PackID) {
		return fmt.Errorf("invalid pack_id %q", p.PackID)
	}
	if p.Name == "" {
		return fmt.Errorf("pack %s: name is required", p.PackID)
	}

	seen := map[string]bool{}
	for i, room := range p.Rooms {
		if !idPattern.MatchString(room.ID) {
			return fmt.Errorf("room %d: invalid id %q", i, room.ID)
		}
		if seen[room.ID] {
			return fmt.Errorf("duplicate room id %q", room.ID)
		}
		seen[room.ID] = true
		if room.Title == "" {
			return fmt.Errorf("room %s: title is required", room.ID)
		}
		if !validDifficulty(room.Difficulty) {
			return fmt.Errorf("room %s: invalid difficulty %q", room.ID, room.Difficulty)
		}
		if room.HasLab && len(room.Shell) == 0 {
			return fmt.Errorf("room %s: has_lab requires a scripted shell", room.ID)
		}
		for j, entry := range room.Shell {
			if entry.Command == "" {
				return fmt.Errorf("room %s: shell entry %d has no command", room.ID, j)
			}
		}
	}
	for i, ch := range p.Challenges {
		if !idPattern.MatchString(ch.ID) {
			return fmt.Errorf("challenge %d: invalid id %q", i, ch.ID)
		}
		if seen[ch.ID] {
			return fmt.Errorf("duplicate id %q", ch.ID)
		}
		seen[ch.ID] = true
		if ch.Title == "" || ch.Language == "" {
			return fmt.Errorf("challenge %s: title and language are required", ch.ID)
		}
		if !validDifficulty(ch.Difficulty) {
			return fmt.Errorf("challenge %s: invalid difficulty %q", ch.ID, ch.Difficulty)
		}
	}
	return nil
}
