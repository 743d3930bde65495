package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hackterm/internal/api"
	"hackterm/internal/auth"
	"hackterm/internal/content"
	"hackterm/internal/runner"
	"hackterm/internal/state"
	"hackterm/internal/telemetry"
	"hackterm/internal/term"
	"hackterm/internal/ui"
)

const labHistoryDepth = 50

var dashboardTips = []string{
	"Labs keep per-room command history. Press ↑ inside a lab to recall.",
	"Flags look like FLAG{...}. Submit them from the room screen with f.",
	"Code challenges run server-side. Ctrl+R executes the editor buffer.",
	"Streaks count consecutive days with at least one completed task.",
}

type labSession struct {
	sessionID string
	roomID    string
	roomTitle string
	console   *term.Console
}

// App is the controller between the REST client and the view. View callbacks
// arrive on their own goroutines, so every handler is safe to block.
type App struct {
	cfg    Config
	logger *telemetry.JSONLogger
	client *api.Client
	auth   *auth.Store
	store  state.Store
	runner *runner.Runner
	view   ui.View

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	lab        *labSession
	room       api.Room
	roomFilter api.RoomFilter
	tipIndex   int
}

func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logger, err := telemetry.NewJSONLogger(cfg.LogPath)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger}
	a.auth = auth.NewStore(cfg.DataDir, logger)

	clientOpts := api.Options{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.RequestTimeout,
		Token:   a.auth.Token,
		Logger:  logger,
		OnUnauthorized: func() {
			wasSigned := a.auth.SignedIn()
			a.auth.HandleUnauthorized()
			if wasSigned {
				a.onSessionExpired()
			}
		},
	}
	if cfg.Demo {
		mock := api.NewMockTransport()
		if cfg.ContentDir != "" {
			packs, err := content.LoadPacks(cfg.ContentDir)
			if err != nil {
				logger.Close()
				return nil, fmt.Errorf("load demo content: %w", err)
			}
			mock.Seed(content.Rooms(packs), content.Challenges(packs), content.Shell(packs), content.Flags(packs))
			logger.Info("demo.content_loaded", map[string]any{"packs": len(packs)})
		}
		clientOpts.Transport = mock
	}
	a.client = api.NewClient(clientOpts)
	a.auth.Bind(a.client)

	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("open state store: %w", err)
	}
	a.store = store

	a.runner = runner.New(a.client, logger)
	a.view = ui.New(ui.Options{StyleVariant: cfg.UI.StyleVariant, Debug: cfg.UI.Debug})
	a.view.SetController(a)
	return a, nil
}

// Run restores any stored session, then blocks in the view's event loop
// until the user quits.
func (a *App) Run(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	schemaCtx, cancel := a.reqCtx()
	err := a.store.EnsureSchema(schemaCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("state schema: %w", err)
	}

	go a.restoreSession()

	err = a.view.Run()
	a.stopLabQuietly()
	return err
}

func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = err
	}
	if err := a.logger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *App) restoreSession() {
	a.view.SetScreen(ui.ScreenBoot)

	ctx, cancel := a.reqCtx()
	defer cancel()
	if err := a.auth.Load(ctx); err != nil {
		a.logger.Warn("session.restore_failed", map[string]any{"error": err.Error()})
	}

	a.reapOpenSessions()

	if a.auth.SignedIn() {
		a.view.SetUser(a.auth.User())
		a.showDashboard()
		return
	}
	a.view.SetScreen(ui.ScreenLogin)
}

// reapOpenSessions stops lab sessions a previous run left behind. The
// backend expires them on its own eventually; this just keeps the slot
// count honest.
func (a *App) reapOpenSessions() {
	ctx, cancel := a.reqCtx()
	defer cancel()
	open, err := a.store.OpenSessions(ctx)
	if err != nil || len(open) == 0 {
		return
	}
	for _, rec := range open {
		if a.auth.SignedIn() {
			if err := a.client.StopLab(ctx, rec.SessionID); err != nil && !api.IsNotFound(err) {
				a.logger.Warn("lab.reap_failed", map[string]any{"session_id": rec.SessionID, "error": err.Error()})
			}
		}
		_ = a.store.RecordSessionStop(ctx, rec.SessionID, time.Now())
	}
	a.logger.Info("lab.reaped_stale_sessions", map[string]any{"count": len(open)})
}

// --- auth ---

func (a *App) OnLoginSubmit(email, password string) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		a.view.SetAuthError("email and password are required")
		return
	}
	a.view.SetAuthBusy(true)
	ctx, cancel := a.reqCtx()
	defer cancel()
	user, err := a.auth.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		a.view.SetAuthError(errMessage(err))
		return
	}
	a.view.SetAuthBusy(false)
	a.view.SetUser(user)
	a.showDashboard()
}

func (a *App) OnRegisterSubmit(email, username, password string) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	switch {
	case email == "" || username == "" || password == "":
		a.view.SetAuthError("all fields are required")
		return
	case !strings.Contains(email, "@"):
		a.view.SetAuthError("invalid email address")
		return
	case len(password) < 6:
		a.view.SetAuthError("password must be at least 6 characters")
		return
	}
	a.view.SetAuthBusy(true)
	ctx, cancel := a.reqCtx()
	defer cancel()
	user, err := a.auth.Register(ctx, api.Registration{Email: email, Username: username, Password: password})
	if err != nil {
		a.view.SetAuthError(errMessage(err))
		return
	}
	a.view.SetAuthBusy(false)
	a.view.SetUser(user)
	a.showDashboard()
}

func (a *App) OnLogout() {
	a.stopLabQuietly()
	a.auth.Logout()
	a.view.SetUser(api.User{})
	a.view.SetScreen(ui.ScreenLogin)
	a.view.FlashStatus("Signed out")
}

func (a *App) onSessionExpired() {
	a.stopLabQuietly()
	a.view.SetUser(api.User{})
	a.view.SetScreen(ui.ScreenLogin)
	a.view.SetAuthError("session expired, sign in again")
}

// --- navigation ---

func (a *App) OnNavigate(screen ui.Screen) {
	switch guardScreen(screen, a.auth.Loading(), a.auth.SignedIn(), a.auth.User().IsAdmin()) {
	case GuardWait:
		return
	case GuardRedirectLogin:
		a.view.SetScreen(ui.ScreenLogin)
		return
	case GuardRedirectDashboard:
		a.showDashboard()
		return
	}

	switch screen {
	case ui.ScreenDashboard:
		a.showDashboard()
	case ui.ScreenRoadmaps:
		a.showRoadmaps()
	case ui.ScreenRooms:
		a.showRooms()
	case ui.ScreenChallenges:
		a.showChallenges()
	case ui.ScreenLeaderboard:
		a.showLeaderboard()
	case ui.ScreenAdminUsers:
		a.showAdminUsers()
	case ui.ScreenAdminStats:
		a.showAdminStats()
	default:
		a.view.SetScreen(screen)
	}
}

func (a *App) showDashboard() {
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)

	ctx, cancel := a.reqCtx()
	defer cancel()
	roadmaps, err := a.client.Roadmaps(ctx)
	if err != nil {
		a.flashError("load roadmaps", err)
	}
	progress, err := a.client.Progress(ctx)
	if err != nil {
		a.flashError("load progress", err)
	}
	completed := 0
	for _, p := range progress {
		if p.Completed {
			completed++
		}
	}

	a.mu.Lock()
	tip := dashboardTips[a.tipIndex%len(dashboardTips)]
	a.tipIndex++
	a.mu.Unlock()
	if settings, err := a.store.LoadSettings(ctx); err == nil {
		if title := settings["last_room_title"]; title != "" {
			tip = "Pick up where you left off: " + title
		}
	}

	a.view.SetDashboard(ui.DashboardState{
		User:           a.auth.User(),
		Roadmaps:       roadmaps,
		Progress:       progress,
		CompletedCount: completed,
		Tip:            tip,
	})
	a.view.SetScreen(ui.ScreenDashboard)
}

func (a *App) showRoadmaps() {
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)
	ctx, cancel := a.reqCtx()
	defer cancel()
	roadmaps, err := a.client.Roadmaps(ctx)
	if err != nil {
		a.flashError("load roadmaps", err)
		return
	}
	a.view.SetRoadmaps(roadmaps)
	a.view.SetScreen(ui.ScreenRoadmaps)
}

func (a *App) showRooms() {
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)
	a.mu.Lock()
	filter := a.roomFilter
	a.mu.Unlock()

	ctx, cancel := a.reqCtx()
	defer cancel()
	rooms, err := a.client.Rooms(ctx, filter)
	if err != nil {
		a.flashError("load rooms", err)
		return
	}
	a.view.SetRooms(rooms)
	a.view.SetScreen(ui.ScreenRooms)
}

func (a *App) OnSelectRoadmap(roadmapID string) {
	a.mu.Lock()
	a.roomFilter = api.RoomFilter{RoadmapID: roadmapID}
	a.mu.Unlock()
	a.showRooms()
}

func (a *App) OnFilterRooms(category string) {
	a.mu.Lock()
	a.roomFilter.Category = category
	a.mu.Unlock()
	a.showRooms()
}

func (a *App) OnOpenRoom(roomID string) {
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)

	ctx, cancel := a.reqCtx()
	defer cancel()
	room, err := a.client.Room(ctx, roomID)
	if err != nil {
		a.flashError("load room", err)
		return
	}
	questions, err := a.client.Questions(ctx, roomID)
	if err != nil {
		questions = nil
	}
	completed := false
	for _, id := range a.auth.User().CompletedRooms {
		if id == roomID {
			completed = true
			break
		}
	}

	a.mu.Lock()
	a.room = room
	a.mu.Unlock()

	if err := a.store.SaveSettings(ctx, map[string]string{
		"last_room_id":    room.ID,
		"last_room_title": room.Title,
	}); err != nil {
		a.logger.Warn("state.settings_save_failed", map[string]any{"error": err.Error()})
	}

	a.view.SetRoomDetail(ui.RoomDetailState{Room: room, Completed: completed, Questions: questions})
	a.view.SetScreen(ui.ScreenRoomDetail)
}

// --- lab sessions ---

func (a *App) OnStartLab(roomID string) {
	a.mu.Lock()
	if a.lab != nil && a.lab.roomID == roomID && a.lab.console.Status() == term.StatusActive {
		a.mu.Unlock()
		a.view.SetScreen(ui.ScreenLab)
		return
	}
	roomTitle := a.room.Title
	a.mu.Unlock()

	a.stopLabQuietly()
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)

	ctx, cancel := a.reqCtx()
	defer cancel()
	session, err := a.client.StartLab(ctx, roomID)
	if err != nil {
		a.flashError("start lab", err)
		return
	}

	history := a.loadHistory(roomID)
	console := term.NewConsole(term.ConsoleOptions{
		Banner: []string{
			"Connected to " + roomTitle + " lab.",
			"Type commands below. Ctrl+X ends the session.",
			"",
		},
		History: history,
	})

	lab := &labSession{
		sessionID: session.ID,
		roomID:    roomID,
		roomTitle: roomTitle,
		console:   console,
	}
	a.mu.Lock()
	a.lab = lab
	a.mu.Unlock()

	if err := a.store.RecordSessionStart(ctx, session.ID, roomID, time.Now()); err != nil {
		a.logger.Warn("state.session_start_failed", map[string]any{"error": err.Error()})
	}
	a.logger.Info("lab.started", map[string]any{"room_id": roomID, "session_id": session.ID})

	a.view.SetLab(ui.LabState{
		RoomID:    roomID,
		RoomTitle: roomTitle,
		SessionID: session.ID,
		Console:   console,
	})
	a.view.SetScreen(ui.ScreenLab)
}

// loadHistory returns the room's persisted commands oldest-first, ready to
// seed console recall.
func (a *App) loadHistory(roomID string) []string {
	ctx, cancel := a.reqCtx()
	defer cancel()
	entries, err := a.store.RecentHistory(ctx, roomID, labHistoryDepth)
	if err != nil {
		return nil
	}
	history := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		history = append(history, entries[i].Command)
	}
	return history
}

func (a *App) OnLabInput(data []byte) {
	a.mu.Lock()
	lab := a.lab
	a.mu.Unlock()
	if lab == nil {
		return
	}

	command, submitted := lab.console.HandleKey(data)
	a.view.RequestDraw()
	if !submitted {
		return
	}
	if command == "" {
		lab.console.FinishCommand("", 0, nil)
		a.view.RequestDraw()
		return
	}

	go a.executeLabCommand(lab, command)
}

func (a *App) executeLabCommand(lab *labSession, command string) {
	ctx, cancel := a.reqCtx()
	defer cancel()

	if err := a.store.AppendHistory(ctx, state.HistoryEntry{
		RoomID:    lab.roomID,
		SessionID: lab.sessionID,
		Command:   command,
		RunTS:     time.Now(),
	}); err != nil {
		a.logger.Warn("state.history_append_failed", map[string]any{"error": err.Error()})
	}

	result, err := a.client.ExecuteCommand(ctx, lab.sessionID, command)
	if err != nil {
		if api.IsNotFound(err) {
			lab.console.SetStopped("Session expired on the server.")
			a.markSessionStopped(lab.sessionID)
		} else {
			lab.console.FinishCommand("", 0, err)
		}
		a.view.RequestDraw()
		return
	}
	lab.console.FinishCommand(result.Output, result.ExitCode, nil)
	a.view.RequestDraw()
}

func (a *App) OnStopLab() {
	a.mu.Lock()
	lab := a.lab
	a.mu.Unlock()
	if lab == nil {
		return
	}

	ctx, cancel := a.reqCtx()
	defer cancel()
	if err := a.client.StopLab(ctx, lab.sessionID); err != nil && !api.IsNotFound(err) {
		// The session is still live on the server; keep the console active
		// so the stop can be retried.
		a.flashError("stop lab", err)
		return
	}
	lab.console.SetStopped("Session stopped.")
	a.markSessionStopped(lab.sessionID)
	a.logger.Info("lab.stopped", map[string]any{"session_id": lab.sessionID})
	a.view.RequestDraw()
}

func (a *App) markSessionStopped(sessionID string) {
	ctx, cancel := a.reqCtx()
	defer cancel()
	_ = a.store.RecordSessionStop(ctx, sessionID, time.Now())
}

// stopLabQuietly ends the current session without surfacing errors. Used on
// logout, quit, and when a new lab replaces an old one.
func (a *App) stopLabQuietly() {
	a.mu.Lock()
	lab := a.lab
	a.lab = nil
	a.mu.Unlock()
	if lab == nil {
		return
	}
	if lab.console.Status() == term.StatusActive {
		ctx, cancel := a.reqCtx()
		_ = a.client.StopLab(ctx, lab.sessionID)
		cancel()
		lab.console.SetStopped("Session stopped.")
	}
	a.markSessionStopped(lab.sessionID)
}

// --- flags and questions ---

func (a *App) OnSubmitFlag(roomID, flag string) {
	ctx, cancel := a.reqCtx()
	defer cancel()
	result, err := a.client.SubmitFlag(ctx, roomID, flag)
	if err != nil {
		a.flashError("submit flag", err)
		return
	}
	a.view.SetFlagResult(ui.FlagResultState{
		Visible:  true,
		Correct:  result.Correct,
		Message:  result.Message,
		XPEarned: result.XPEarned,
	})
	a.logger.Info("flag.submitted", map[string]any{"room_id": roomID, "correct": result.Correct})
	if result.Correct {
		a.refreshUser()
	}
}

func (a *App) refreshUser() {
	ctx, cancel := a.reqCtx()
	defer cancel()
	user, err := a.client.Me(ctx)
	if err != nil {
		return
	}
	a.view.SetUser(user)
}

func (a *App) OnAskQuestion(roomID, question string) {
	ctx, cancel := a.reqCtx()
	defer cancel()
	if _, err := a.client.AskQuestion(ctx, roomID, question); err != nil {
		a.flashError("post question", err)
		return
	}
	a.view.FlashStatus("Question posted")

	questions, err := a.client.Questions(ctx, roomID)
	if err != nil {
		return
	}
	a.mu.Lock()
	room := a.room
	a.mu.Unlock()
	if room.ID == roomID {
		a.view.SetRoomDetail(ui.RoomDetailState{Room: room, Questions: questions})
	}
}

// --- code challenges ---

func (a *App) showChallenges() {
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)
	ctx, cancel := a.reqCtx()
	defer cancel()
	challenges, err := a.client.Challenges(ctx, "")
	if err != nil {
		a.flashError("load challenges", err)
		return
	}
	a.view.SetChallenges(challenges)
	a.view.SetScreen(ui.ScreenChallenges)
}

func (a *App) OnSelectChallenge(challengeID string) {
	a.logger.Info("challenge.selected", map[string]any{"challenge_id": challengeID})
}

func (a *App) OnRunCode(challengeID, language, code string) {
	if strings.TrimSpace(code) == "" {
		a.view.FlashStatus("Nothing to run")
		return
	}
	a.view.SetChallengeOutput("", 0, true)

	ctx, cancel := a.reqCtx()
	defer cancel()
	result, err := a.runner.Run(ctx, language, code)
	if err != nil {
		if errors.Is(err, runner.ErrBusy) {
			a.view.FlashStatus("A run is already in progress")
			return
		}
		a.view.SetChallengeOutput(errMessage(err), 1, false)
		return
	}
	output := result.CombinedOutput()
	if result.Stderr != "" && result.Output == "" {
		if output != "" {
			output += "\n"
		}
		output += result.Stderr
	}
	a.view.SetChallengeOutput(output, result.ExitCode, false)
	a.logger.Info("challenge.ran", map[string]any{"challenge_id": challengeID, "exit_code": result.ExitCode})
}

// --- profiles and leaderboard ---

func (a *App) showLeaderboard() {
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)
	ctx, cancel := a.reqCtx()
	defer cancel()
	entries, err := a.client.Leaderboard(ctx, 25)
	if err != nil {
		a.flashError("load leaderboard", err)
		return
	}
	a.view.SetLeaderboard(entries)
	a.view.SetScreen(ui.ScreenLeaderboard)
}

func (a *App) OnOpenProfile(userID string) {
	if userID == "" {
		return
	}
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)
	ctx, cancel := a.reqCtx()
	defer cancel()
	profile, err := a.client.Profile(ctx, userID)
	if err != nil {
		a.flashError("load profile", err)
		return
	}
	a.view.SetProfile(profile)
	a.view.SetScreen(ui.ScreenProfile)
}

// --- admin ---

func (a *App) showAdminUsers() {
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)
	ctx, cancel := a.reqCtx()
	defer cancel()
	users, err := a.client.AdminUsers(ctx)
	if err != nil {
		a.flashError("load users", err)
		return
	}
	a.view.SetAdminUsers(users)
	a.view.SetScreen(ui.ScreenAdminUsers)
}

func (a *App) showAdminStats() {
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)
	ctx, cancel := a.reqCtx()
	defer cancel()
	stats, err := a.client.AdminStats(ctx)
	if err != nil {
		a.flashError("load stats", err)
		return
	}
	a.view.SetAdminStats(stats)
	a.view.SetScreen(ui.ScreenAdminStats)
}

func (a *App) OnSetUserRole(userID, role string) {
	ctx, cancel := a.reqCtx()
	defer cancel()
	if err := a.client.UpdateUserRole(ctx, userID, role); err != nil {
		a.flashError("update role", err)
		return
	}
	a.view.FlashStatus("Role updated")
	a.showAdminUsers()
}

func (a *App) OnDeleteUser(userID string) {
	if userID == a.auth.User().ID {
		a.view.FlashStatus("You cannot delete your own account")
		return
	}
	ctx, cancel := a.reqCtx()
	defer cancel()
	if err := a.client.DeleteUser(ctx, userID); err != nil {
		a.flashError("delete user", err)
		return
	}
	a.view.FlashStatus("User deleted")
	a.showAdminUsers()
}

func (a *App) OnQuit() {
	a.stopLabQuietly()
	a.view.Stop()
}

// --- helpers ---

func (a *App) reqCtx() (context.Context, context.CancelFunc) {
	parent := a.ctx
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, a.cfg.RequestTimeout)
}

func (a *App) flashError(action string, err error) {
	a.logger.Error("app."+strings.ReplaceAll(action, " ", "_")+"_failed", map[string]any{"error": err.Error()})
	a.view.FlashStatus("Failed to " + action + ": " + errMessage(err))
}

func errMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

var _ ui.Controller = (*App)(nil)
