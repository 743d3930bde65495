package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MockTransport is an in-process stand-in for the backend, used by demo mode
// and tests so the TUI can run without a reachable platform. It implements
// just enough of the API surface for browsing and a fake lab shell.
type MockTransport struct {
	mu         sync.Mutex
	user       User
	rooms      []Room
	challenges []Challenge
	shell      map[string]ExecResult
	flags      map[string]bool
	sessions   map[string]string // session id -> room id
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		user: User{
			ID: "demo-user", Email: "demo@hacklido.local", Username: "demo",
			Role: "user", XP: 420, Level: 3, Badges: []string{"First Blood"},
		},
		rooms: []Room{
			{
				ID: "room-linux-basics", Title: "Linux Basics", Difficulty: "easy",
				Category: "fundamentals", RoomType: "cybersecurity",
				Content: "# Linux Basics\n\nLearn your way around a shell.",
				Tasks: []Task{
					{Title: "List files", Description: "Find the hidden flag file."},
				},
				XPReward: 100, HasLab: true, LabType: "terminal",
			},
			{
				ID: "room-web-recon", Title: "Web Recon", Difficulty: "medium",
				Category: "web", RoomType: "cybersecurity",
				Content:  "# Web Recon\n\nEnumerate before you exploit.",
				XPReward: 150, HasLab: true, LabType: "terminal",
			},
		},
		challenges: []Challenge{
			{ID: "ch-hello", Title: "Hello, stdout", Difficulty: "easy", Language: "python",
				StarterCode: "print(\"hello\")", XPReward: 50},
		},
		shell:    map[string]ExecResult{},
		flags:    map[string]bool{"FLAG{demo}": true},
		sessions: map[string]string{},
	}
}

// Seed replaces the built-in catalog with loaded content. Empty slices keep
// the defaults.
func (m *MockTransport) Seed(rooms []Room, challenges []Challenge, shell map[string]ExecResult, flags []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(rooms) > 0 {
		m.rooms = rooms
	}
	if len(challenges) > 0 {
		m.challenges = challenges
	}
	for command, result := range shell {
		m.shell[command] = result
	}
	for _, flag := range flags {
		m.flags[flag] = true
	}
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := strings.TrimPrefix(req.URL.Path, "/api")
	switch {
	case path == "/auth/login" || path == "/auth/register":
		return respond(http.StatusOK, AuthResponse{Token: "demo-token", User: m.user})
	case path == "/auth/me":
		return respond(http.StatusOK, m.user)
	case path == "/roadmaps":
		return respond(http.StatusOK, []Roadmap{
			{ID: "rm-foundations", Title: "Foundations", Difficulty: "easy", Icon: ">", Rooms: []string{m.rooms[0].ID}},
		})
	case path == "/rooms" && req.Method == http.MethodGet:
		return respond(http.StatusOK, m.rooms)
	case strings.HasPrefix(path, "/rooms/") && req.Method == http.MethodGet:
		id := strings.TrimPrefix(path, "/rooms/")
		for _, room := range m.rooms {
			if room.ID == id {
				return respond(http.StatusOK, room)
			}
		}
		return respondDetail(http.StatusNotFound, "Room not found")
	case path == "/labs/start":
		var body struct {
			RoomID string `json:"room_id"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		id := "demo-" + uuid.NewString()[:8]
		m.sessions[id] = body.RoomID
		return respond(http.StatusOK, LabSession{ID: id, RoomID: body.RoomID, Status: "running"})
	case strings.HasPrefix(path, "/labs/") && strings.HasSuffix(path, "/execute"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/labs/"), "/execute")
		if _, ok := m.sessions[id]; !ok {
			return respondDetail(http.StatusNotFound, "Session not found")
		}
		var body struct {
			Command string `json:"command"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		return respond(http.StatusOK, m.exec(body.Command))
	case strings.HasPrefix(path, "/labs/") && strings.HasSuffix(path, "/stop"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/labs/"), "/stop")
		if _, ok := m.sessions[id]; !ok {
			return respondDetail(http.StatusNotFound, "Session not found")
		}
		delete(m.sessions, id)
		return respond(http.StatusOK, map[string]string{"message": "Lab stopped"})
	case path == "/challenges":
		return respond(http.StatusOK, m.challenges)
	case path == "/challenges/execute":
		return respond(http.StatusOK, CodeRunResult{Output: "hello\n", ExitCode: 0})
	case path == "/flags/submit":
		var body struct {
			Flag string `json:"flag"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		if m.flags[body.Flag] {
			return respond(http.StatusOK, FlagResult{Correct: true, Message: "Flag correct! Room completed!", XPEarned: 100})
		}
		return respond(http.StatusOK, FlagResult{Correct: false, Message: "Incorrect flag. Try again!"})
	case path == "/leaderboard":
		return respond(http.StatusOK, []LeaderboardEntry{
			{ID: "u-1", Username: "trinity", XP: 9001, Level: 12},
			{ID: m.user.ID, Username: m.user.Username, XP: m.user.XP, Level: m.user.Level},
		})
	case strings.HasPrefix(path, "/profile/"):
		return respond(http.StatusOK, Profile{User: m.user, CompletedRoomsCount: 1})
	case path == "/progress":
		return respond(http.StatusOK, []Progress{{RoomID: m.rooms[0].ID, Completed: true}})
	case path == "/admin/stats":
		return respond(http.StatusOK, AdminStats{TotalUsers: 2, TotalRooms: len(m.rooms), ActiveSessions: len(m.sessions)})
	case path == "/admin/users":
		return respond(http.StatusOK, []User{m.user})
	}
	return respondDetail(http.StatusNotFound, "Not found")
}

// exec fakes a tiny shell so the lab screen is usable offline. Seeded
// content overrides the built-ins per full command line.
func (m *MockTransport) exec(command string) ExecResult {
	if result, ok := m.shell[strings.TrimSpace(command)]; ok {
		return result
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ExecResult{Output: "", ExitCode: 0}
	}
	switch fields[0] {
	case "ls":
		return ExecResult{Output: "flag.txt\nnotes.md", ExitCode: 0}
	case "cat":
		if len(fields) > 1 && fields[1] == "flag.txt" {
			return ExecResult{Output: "FLAG{demo}", ExitCode: 0}
		}
		return ExecResult{Output: "cat: no such file", ExitCode: 1}
	case "whoami":
		return ExecResult{Output: "hacker", ExitCode: 0}
	case "help":
		return ExecResult{Output: "available: ls, cat, whoami, echo, help", ExitCode: 0}
	case "echo":
		return ExecResult{Output: strings.Join(fields[1:], " "), ExitCode: 0}
	default:
		return ExecResult{Output: fmt.Sprintf("%s: command not found", fields[0]), ExitCode: 127}
	}
}

func respond(status int, body any) (*http.Response, error) {
	raw, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}, nil
}

func respondDetail(status int, detail string) (*http.Response, error) {
	return respond(status, map[string]string{"detail": detail})
}
