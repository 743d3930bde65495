package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"hackterm/internal/api"
)

// LoadPacks reads every *.yaml pack in root. Files that fail validation abort
// the load; a half-usable demo catalog is worse than an error at startup.
func LoadPacks(root string) ([]Pack, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	packs := make([]Pack, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(root, entry.Name())
		pack, err := readPack(path)
		if err != nil {
			return nil, fmt.Errorf("load pack %s: %w", path, err)
		}
		pack.Path = path
		packs = append(packs, pack)
	}

	sort.Slice(packs, func(i, j int) bool { return packs[i].PackID < packs[j].PackID })
	return packs, nil
}

func readPack(path string) (Pack, error) {
	var pack Pack
	b, err := os.ReadFile(path)
	if err != nil {
		return pack, err
	}
	if err := yaml.Unmarshal(b, &pack); err != nil {
		return pack, err
	}
	if err := pack.Validate(); err != nil {
		return pack, err
	}
	return pack, nil
}

// Rooms flattens the packs into API room records for the demo transport.
func Rooms(packs []Pack) []api.Room {
	rooms := make([]api.Room, 0)
	for _, pack := range packs {
		for _, def := range pack.Rooms {
			rooms = append(rooms, api.Room{
				ID:          def.ID,
				Title:       def.Title,
				Description: def.Description,
				Difficulty:  def.Difficulty,
				Category:    def.Category,
				RoomType:    "cybersecurity",
				Content:     def.ContentMD,
				Tasks:       tasks(def.Tasks),
				XPReward:    def.XPReward,
				HasLab:      def.HasLab,
				LabType:     "terminal",
			})
		}
	}
	return rooms
}

func tasks(defs []TaskDef) []api.Task {
	out := make([]api.Task, 0, len(defs))
	for _, d := range defs {
		out = append(out, api.Task{Title: d.Title, Description: d.Description})
	}
	return out
}

func Challenges(packs []Pack) []api.Challenge {
	challenges := make([]api.Challenge, 0)
	for _, pack := range packs {
		for _, def := range pack.Challenges {
			challenges = append(challenges, api.Challenge{
				ID:          def.ID,
				Title:       def.Title,
				Description: def.Description,
				Difficulty:  def.Difficulty,
				Language:    def.Language,
				StarterCode: def.StarterCode,
				XPReward:    def.XPReward,
			})
		}
	}
	return challenges
}

// Shell merges every room's scripted commands into one lookup for the demo
// lab executor.
func Shell(packs []Pack) map[string]api.ExecResult {
	shell := map[string]api.ExecResult{}
	for _, pack := range packs {
		for _, room := range pack.Rooms {
			for _, entry := range room.Shell {
				shell[entry.Command] = api.ExecResult{Output: entry.Output, ExitCode: entry.ExitCode}
			}
		}
	}
	return shell
}

// Flags collects accepted flag strings across all rooms.
func Flags(packs []Pack) []string {
	flags := make([]string, 0)
	for _, pack := range packs {
		for _, room := range pack.Rooms {
			if room.Flag != "" {
				flags = append(flags, room.Flag)
			}
		}
	}
	return flags
}
