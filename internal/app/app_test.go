package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hackterm/internal/api"
	"hackterm/internal/term"
	"hackterm/internal/ui"
)

// fakeView records controller pushes so tests can assert on them without a
// terminal.
type fakeView struct {
	mu          sync.Mutex
	screens     []ui.Screen
	user        api.User
	authErrors  []string
	flashes     []string
	dashboard   ui.DashboardState
	rooms       []api.Room
	roomDetail  ui.RoomDetailState
	flagResult  ui.FlagResultState
	lab         ui.LabState
	challenges  []api.Challenge
	leaderboard []api.LeaderboardEntry
	adminUsers  []api.User
	stopped     bool
}

func (f *fakeView) Run() error                 { return nil }
func (f *fakeView) Stop()                      { f.mu.Lock(); f.stopped = true; f.mu.Unlock() }
func (f *fakeView) SetController(ui.Controller) {}
func (f *fakeView) SetScreen(s ui.Screen) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.screens = append(f.screens, s)
}
func (f *fakeView) SetAuthBusy(bool) {}
func (f *fakeView) SetAuthError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authErrors = append(f.authErrors, msg)
}
func (f *fakeView) SetUser(u api.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = u
}
func (f *fakeView) SetDashboard(d ui.DashboardState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dashboard = d
}
func (f *fakeView) SetRoadmaps([]api.Roadmap) {}
func (f *fakeView) SetRooms(rooms []api.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = rooms
}
func (f *fakeView) SetRoomDetail(d ui.RoomDetailState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomDetail = d
}
func (f *fakeView) SetFlagResult(r ui.FlagResultState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flagResult = r
}
func (f *fakeView) SetLab(l ui.LabState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lab = l
}
func (f *fakeView) SetChallenges(c []api.Challenge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenges = c
}
func (f *fakeView) SetChallengeOutput(string, int, bool) {}
func (f *fakeView) SetLeaderboard(e []api.LeaderboardEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaderboard = e
}
func (f *fakeView) SetProfile(api.Profile)     {}
func (f *fakeView) SetAdminUsers(u []api.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminUsers = u
}
func (f *fakeView) SetAdminStats(api.AdminStats) {}
func (f *fakeView) SetLoading(bool)              {}
func (f *fakeView) FlashStatus(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flashes = append(f.flashes, msg)
}
func (f *fakeView) RequestDraw() {}

func (f *fakeView) lastScreen() ui.Screen {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.screens) == 0 {
		return ui.ScreenBoot
	}
	return f.screens[len(f.screens)-1]
}

func newTestApp(t *testing.T, handler http.Handler) (*App, *fakeView) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.RequestTimeout = 2 * time.Second
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		cfg.ServerURL = srv.URL
	} else {
		cfg.Demo = true
	}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	fv := &fakeView{}
	a.view = fv
	a.ctx, a.cancel = context.WithCancel(context.Background())
	if err := a.store.EnsureSchema(a.ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return a, fv
}

func jsonOK(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func TestLoginSuccessLandsOnDashboard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, api.AuthResponse{Token: "t-1", User: api.User{ID: "u1", Username: "neo", XP: 10}})
	})
	mux.HandleFunc("/api/roadmaps", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, []api.Roadmap{{ID: "rm-1", Title: "Foundations"}})
	})
	mux.HandleFunc("/api/progress", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, []api.Progress{{RoomID: "r1", Completed: true}, {RoomID: "r2"}})
	})

	a, fv := newTestApp(t, mux)
	a.OnLoginSubmit("neo@zion.io", "trinity")

	if got := fv.lastScreen(); got != ui.ScreenDashboard {
		t.Fatalf("expected dashboard, got %v", got)
	}
	fv.mu.Lock()
	defer fv.mu.Unlock()
	if fv.user.Username != "neo" {
		t.Fatalf("expected user pushed to view, got %+v", fv.user)
	}
	if fv.dashboard.CompletedCount != 1 {
		t.Fatalf("expected 1 completed room, got %d", fv.dashboard.CompletedCount)
	}
}

func TestLoginFailureSurfacesServerDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Incorrect email or password"})
	})

	a, fv := newTestApp(t, mux)
	a.OnLoginSubmit("neo@zion.io", "wrong")

	fv.mu.Lock()
	defer fv.mu.Unlock()
	if len(fv.authErrors) == 0 || fv.authErrors[len(fv.authErrors)-1] != "Incorrect email or password" {
		t.Fatalf("expected server detail surfaced, got %v", fv.authErrors)
	}
}

func TestLoginRejectsEmptyFieldsLocally(t *testing.T) {
	a, fv := newTestApp(t, http.NewServeMux())
	a.OnLoginSubmit("", "")

	fv.mu.Lock()
	defer fv.mu.Unlock()
	if len(fv.authErrors) != 1 {
		t.Fatalf("expected local validation error, got %v", fv.authErrors)
	}
}

func TestRegisterValidatesPasswordLength(t *testing.T) {
	a, fv := newTestApp(t, http.NewServeMux())
	a.OnRegisterSubmit("a@b.io", "neo", "123")

	fv.mu.Lock()
	defer fv.mu.Unlock()
	if len(fv.authErrors) != 1 {
		t.Fatalf("expected password validation error, got %v", fv.authErrors)
	}
}

func TestDemoLabRoundTrip(t *testing.T) {
	a, fv := newTestApp(t, nil)
	a.OnLoginSubmit("demo@hacklido.local", "demo")

	a.OnNavigate(ui.ScreenRooms)
	fv.mu.Lock()
	if len(fv.rooms) == 0 {
		fv.mu.Unlock()
		t.Fatalf("expected demo rooms")
	}
	roomID := fv.rooms[0].ID
	fv.mu.Unlock()

	a.OnOpenRoom(roomID)
	a.OnStartLab(roomID)
	fv.mu.Lock()
	console := fv.lab.Console
	fv.mu.Unlock()
	if console == nil {
		t.Fatalf("expected live console")
	}

	for _, b := range []byte("cat flag.txt\r") {
		a.OnLabInput([]byte{b})
	}
	deadline := time.Now().Add(2 * time.Second)
	for console.Busy() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	found := false
	for _, line := range console.Snapshot().Lines {
		if line == "FLAG{demo}" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected flag output in console, got %v", console.Snapshot().Lines)
	}

	a.OnSubmitFlag(roomID, "FLAG{demo}")
	fv.mu.Lock()
	defer fv.mu.Unlock()
	if !fv.flagResult.Visible || !fv.flagResult.Correct || fv.flagResult.XPEarned != 100 {
		t.Fatalf("unexpected flag result %+v", fv.flagResult)
	}
}

func TestLabHistoryPersistsAcrossSessions(t *testing.T) {
	a, fv := newTestApp(t, nil)
	a.OnLoginSubmit("demo@hacklido.local", "demo")
	a.OnNavigate(ui.ScreenRooms)
	fv.mu.Lock()
	roomID := fv.rooms[0].ID
	fv.mu.Unlock()

	a.OnOpenRoom(roomID)
	a.OnStartLab(roomID)
	fv.mu.Lock()
	console := fv.lab.Console
	fv.mu.Unlock()

	for _, b := range []byte("whoami\r") {
		a.OnLabInput([]byte{b})
	}
	deadline := time.Now().Add(2 * time.Second)
	for console.Busy() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	a.OnStopLab()
	if console.Status() != term.StatusStopped {
		t.Fatalf("expected stopped console")
	}

	a.OnStartLab(roomID)
	fv.mu.Lock()
	next := fv.lab.Console
	fv.mu.Unlock()
	if next == console {
		t.Fatalf("expected a fresh console")
	}
	history := next.History()
	if len(history) == 0 || history[len(history)-1] != "whoami" {
		t.Fatalf("expected persisted history, got %v", history)
	}
}

func TestFailedStopKeepsSessionActive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, api.AuthResponse{Token: "t-1", User: api.User{ID: "u1", Username: "neo"}})
	})
	mux.HandleFunc("/api/roadmaps", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, []api.Roadmap{})
	})
	mux.HandleFunc("/api/progress", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, []api.Progress{})
	})
	mux.HandleFunc("/api/labs/start", func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, api.LabSession{ID: "s1", RoomID: "r1", Status: "running"})
	})
	stopFails := true
	mux.HandleFunc("/api/labs/s1/stop", func(w http.ResponseWriter, r *http.Request) {
		if stopFails {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "executor unavailable"})
			return
		}
		jsonOK(w, map[string]string{"status": "stopped"})
	})

	a, fv := newTestApp(t, mux)
	a.OnLoginSubmit("neo@zion.io", "trinity")
	a.OnStartLab("r1")

	fv.mu.Lock()
	console := fv.lab.Console
	fv.mu.Unlock()
	if console == nil {
		t.Fatalf("expected live console")
	}

	// A failed remote stop must leave the session usable and re-triable.
	a.OnStopLab()
	if console.Status() != term.StatusActive {
		t.Fatalf("expected console still active after failed stop, got %v", console.Status())
	}
	fv.mu.Lock()
	if len(fv.flashes) == 0 || !strings.Contains(fv.flashes[len(fv.flashes)-1], "stop lab") {
		fv.mu.Unlock()
		t.Fatalf("expected stop failure surfaced, got %v", fv.flashes)
	}
	fv.mu.Unlock()

	stopFails = false
	a.OnStopLab()
	if console.Status() != term.StatusStopped {
		t.Fatalf("expected console stopped after retry, got %v", console.Status())
	}
}

func TestStopLabClosesOpenSessionRecord(t *testing.T) {
	a, fv := newTestApp(t, nil)
	a.OnLoginSubmit("demo@hacklido.local", "demo")
	a.OnNavigate(ui.ScreenRooms)
	fv.mu.Lock()
	roomID := fv.rooms[0].ID
	fv.mu.Unlock()

	a.OnOpenRoom(roomID)
	a.OnStartLab(roomID)

	open, err := a.store.OpenSessions(context.Background())
	if err != nil || len(open) != 1 {
		t.Fatalf("expected one open session, got %v (%v)", open, err)
	}

	a.OnStopLab()
	open, err = a.store.OpenSessions(context.Background())
	if err != nil || len(open) != 0 {
		t.Fatalf("expected no open sessions after stop, got %v (%v)", open, err)
	}
}

func TestDeleteOwnAccountBlocked(t *testing.T) {
	a, fv := newTestApp(t, nil)
	a.OnLoginSubmit("demo@hacklido.local", "demo")

	a.OnDeleteUser(a.auth.User().ID)
	fv.mu.Lock()
	defer fv.mu.Unlock()
	if len(fv.flashes) == 0 || fv.flashes[len(fv.flashes)-1] != "You cannot delete your own account" {
		t.Fatalf("expected self-delete rejection, got %v", fv.flashes)
	}
}

func TestQuitStopsView(t *testing.T) {
	a, fv := newTestApp(t, nil)
	a.OnQuit()
	fv.mu.Lock()
	defer fv.mu.Unlock()
	if !fv.stopped {
		t.Fatalf("expected view stopped")
	}
}
