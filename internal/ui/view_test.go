package ui

import (
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"hackterm/internal/api"
)

type mockController struct {
	mu           sync.Mutex
	loginCalls   [][2]string
	logoutCalls  int
	quitCalls    int
	navCalls     []Screen
	labInputs    [][]byte
	stopLabCalls int
	flags        [][2]string
	runCalls     [][3]string
	openedRooms  []string
	profiles     []string
	roleCalls    [][2]string
	deleted      []string
	filters      []string
}

func (m *mockController) OnLoginSubmit(email, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginCalls = append(m.loginCalls, [2]string{email, password})
}
func (m *mockController) OnRegisterSubmit(string, string, string) {}
func (m *mockController) OnLogout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutCalls++
}
func (m *mockController) OnNavigate(screen Screen) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navCalls = append(m.navCalls, screen)
}
func (m *mockController) OnSelectRoadmap(string) {}
func (m *mockController) OnFilterRooms(category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, category)
}
func (m *mockController) OnOpenRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openedRooms = append(m.openedRooms, roomID)
}
func (m *mockController) OnStartLab(string) {}
func (m *mockController) OnLabInput(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), data...)
	m.labInputs = append(m.labInputs, cp)
}
func (m *mockController) OnStopLab() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLabCalls++
}
func (m *mockController) OnSubmitFlag(roomID, flag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags = append(m.flags, [2]string{roomID, flag})
}
func (m *mockController) OnAskQuestion(string, string) {}
func (m *mockController) OnSelectChallenge(string)     {}
func (m *mockController) OnRunCode(challengeID, language, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCalls = append(m.runCalls, [3]string{challengeID, language, code})
}
func (m *mockController) OnOpenProfile(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = append(m.profiles, userID)
}
func (m *mockController) OnSetUserRole(userID, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleCalls = append(m.roleCalls, [2]string{userID, role})
}
func (m *mockController) OnDeleteUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, userID)
}
func (m *mockController) OnQuit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quitCalls++
}

func press(v *Root, code rune, mod tea.KeyMod, text string) {
	_, _ = v.Update(tea.KeyPressMsg{Code: code, Mod: mod, Text: text})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(300 * time.Millisecond)
	for !cond() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within deadline")
	}
}

func newTestView(ctrl Controller) *Root {
	v := New(Options{})
	v.SetController(ctrl)
	return v
}

func TestLoginEnterSubmitsCredentials(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenLogin)

	for _, r := range "a@b.io" {
		press(v, r, 0, string(r))
	}
	press(v, tea.KeyTab, 0, "")
	for _, r := range "hunter2" {
		press(v, r, 0, string(r))
	}
	press(v, tea.KeyEnter, 0, "")

	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return len(ctrl.loginCalls) == 1
	})
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.loginCalls[0] != [2]string{"a@b.io", "hunter2"} {
		t.Fatalf("unexpected credentials: %v", ctrl.loginCalls[0])
	}
}

func TestCtrlQQuitsFromAnyScreen(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenDashboard)

	press(v, 'q', tea.ModCtrl, "")

	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return ctrl.quitCalls == 1
	})
}

func TestLogoutOnlyFromDashboard(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenLeaderboard)

	press(v, 'q', 0, "q")
	time.Sleep(50 * time.Millisecond)
	ctrl.mu.Lock()
	logouts := ctrl.logoutCalls
	ctrl.mu.Unlock()
	if logouts != 0 {
		t.Fatalf("expected no logout outside dashboard")
	}

	v.SetScreen(ScreenDashboard)
	press(v, 'q', 0, "q")
	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return ctrl.logoutCalls == 1
	})
}

func TestLabKeysForwardToConsoleBytes(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenLab)

	press(v, 'l', 0, "l")
	press(v, 's', 0, "s")
	press(v, tea.KeyEnter, 0, "")
	press(v, tea.KeyUp, 0, "")

	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return len(ctrl.labInputs) == 4
	})
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	got := ""
	for _, in := range ctrl.labInputs {
		got += string(in)
	}
	if got != "ls\r\x1b[A" {
		t.Fatalf("unexpected forwarded bytes %q", got)
	}
}

func TestLabCtrlXStopsSession(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenLab)

	press(v, 'x', tea.ModCtrl, "")

	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return ctrl.stopLabCalls == 1
	})
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.labInputs) != 0 {
		t.Fatalf("stop chord must not reach the console")
	}
}

func TestFlagOverlaySubmitsTrimmedFlag(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenRoomDetail)
	v.SetRoomDetail(RoomDetailState{Room: api.Room{ID: "room-1", Title: "Intro"}})

	press(v, 'f', 0, "f")
	if !v.flagOpen {
		t.Fatalf("expected flag overlay to open")
	}
	for _, r := range "FLAG{x} " {
		press(v, r, 0, string(r))
	}
	press(v, tea.KeyEnter, 0, "")

	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return len(ctrl.flags) == 1
	})
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.flags[0] != [2]string{"room-1", "FLAG{x}"} {
		t.Fatalf("unexpected flag submission %v", ctrl.flags[0])
	}
}

func TestOverlayEscClosesWithoutSubmit(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenRoomDetail)
	v.SetRoomDetail(RoomDetailState{Room: api.Room{ID: "room-1"}})

	press(v, 'f', 0, "f")
	press(v, tea.KeyEsc, 0, "")
	if v.flagOpen {
		t.Fatalf("expected overlay closed on escape")
	}
	time.Sleep(50 * time.Millisecond)
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.flags) != 0 {
		t.Fatalf("escape must not submit")
	}
}

func TestFlagResultDismissesOnEnter(t *testing.T) {
	v := newTestView(&mockController{})
	v.SetScreen(ScreenRoomDetail)
	v.SetFlagResult(FlagResultState{Visible: true, Correct: true, XPEarned: 100})

	press(v, tea.KeyEnter, 0, "")
	if v.flagResult.Visible {
		t.Fatalf("expected flag result dismissed")
	}
}

func TestRoomsEnterOpensSelection(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenRooms)
	v.SetRooms([]api.Room{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	press(v, tea.KeyDown, 0, "")
	press(v, tea.KeyEnter, 0, "")

	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return len(ctrl.openedRooms) == 1
	})
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.openedRooms[0] != "b" {
		t.Fatalf("expected room b, got %s", ctrl.openedRooms[0])
	}
}

func TestRoomsCategoryCycleDispatchesFilter(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenRooms)

	press(v, tea.KeyRight, 0, "")

	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return len(ctrl.filters) == 1
	})
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.filters[0] != "fundamentals" {
		t.Fatalf("expected fundamentals filter, got %q", ctrl.filters[0])
	}
}

func TestChallengeCtrlRRunsEditorContents(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenChallenges)
	v.SetChallenges([]api.Challenge{{ID: "ch-1", Language: "python", StarterCode: "print(1)"}})

	press(v, tea.KeyEnter, 0, "") // focus editor
	press(v, 'r', tea.ModCtrl, "")

	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return len(ctrl.runCalls) == 1
	})
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.runCalls[0] != [3]string{"ch-1", "python", "print(1)"} {
		t.Fatalf("unexpected run call %v", ctrl.runCalls[0])
	}
}

func TestAdminDeleteRequiresConfirm(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenAdminUsers)
	v.SetAdminUsers([]api.User{{ID: "u1", Username: "alice"}})

	press(v, 'x', 0, "x")
	if !v.confirmOpen {
		t.Fatalf("expected confirm overlay")
	}
	time.Sleep(50 * time.Millisecond)
	ctrl.mu.Lock()
	deleted := len(ctrl.deleted)
	ctrl.mu.Unlock()
	if deleted != 0 {
		t.Fatalf("delete must wait for confirmation")
	}

	press(v, tea.KeyRight, 0, "")
	press(v, tea.KeyEnter, 0, "")
	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return len(ctrl.deleted) == 1 && ctrl.deleted[0] == "u1"
	})
}

func TestAdminToggleRole(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenAdminUsers)
	v.SetAdminUsers([]api.User{{ID: "u1", Role: "admin"}})

	press(v, 't', 0, "t")
	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return len(ctrl.roleCalls) == 1
	})
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.roleCalls[0] != [2]string{"u1", "user"} {
		t.Fatalf("expected demotion to user, got %v", ctrl.roleCalls[0])
	}
}

func TestLeaderboardEnterOpensProfile(t *testing.T) {
	ctrl := &mockController{}
	v := newTestView(ctrl)
	v.SetScreen(ScreenLeaderboard)
	v.SetLeaderboard([]api.LeaderboardEntry{{ID: "p1", Username: "alice"}})

	press(v, tea.KeyEnter, 0, "")
	waitFor(t, func() bool {
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		return len(ctrl.profiles) == 1 && ctrl.profiles[0] == "p1"
	})
}

func TestViewImplementsInterfaceCompileTime(t *testing.T) {
	var _ View = New(Options{})
}
