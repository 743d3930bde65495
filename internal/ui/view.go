package ui

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hackterm/internal/api"
	"hackterm/internal/term"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
)

type applyMsg struct {
	fn func(*Root)
}

type drawMsg struct{}
type clockMsg time.Time
type animateMsg time.Time

type navKeyMap struct {
	Roadmaps    key.Binding
	Rooms       key.Binding
	Challenges  key.Binding
	Leaderboard key.Binding
	Profile     key.Binding
	Admin       key.Binding
	Logout      key.Binding
	Quit        key.Binding
}

func (k navKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Roadmaps, k.Rooms, k.Challenges, k.Leaderboard, k.Profile, k.Logout}
}

func (k navKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Roadmaps, k.Rooms, k.Challenges, k.Leaderboard},
		{k.Profile, k.Admin, k.Logout, k.Quit},
	}
}

// roomCategories drives the left/right filter on the rooms screen. The empty
// entry means "all".
var roomCategories = []string{"", "fundamentals", "web", "network", "crypto", "forensics", "pwn"}

type Root struct {
	theme        Theme
	styleVariant string
	ctrl         Controller

	mu      sync.Mutex
	program *tea.Program
	running bool

	screen Screen
	layout LayoutMode
	cols   int
	rows   int

	authBusy  bool
	authError string
	user      api.User

	loading     bool
	statusFlash string

	dashboard     DashboardState
	roadmaps      []api.Roadmap
	rooms         []api.Room
	roomDetail    RoomDetailState
	flagResult    FlagResultState
	lab           LabState
	challenges    []api.Challenge
	challengeOut  string
	challengeExit int
	challengeRun  bool
	leaderboard   []api.LeaderboardEntry
	profile       api.Profile
	adminUsers    []api.User
	adminStats    api.AdminStats

	roadmapIndex  int
	roomIndex     int
	categoryIndex int
	challengeIdx  int
	leaderIndex   int
	adminIndex    int
	contentScroll int

	loginEmail    *textField
	loginPassword *textField
	loginFocus    int
	regEmail      *textField
	regUsername   *textField
	regPassword   *textField
	regFocus      int

	flagOpen      bool
	flagField     *textField
	questionOpen  bool
	questionField *textField
	confirmOpen   bool
	confirmIndex  int
	confirmUserID string

	codeField *codeField
	codeFocus bool

	help     help.Model
	keymap   navKeyMap
	spin     spinner.Model
	markdown *glamour.TermRenderer
	logger   *clog.Logger

	overlayPos float64
	overlayVel float64
	spring     harmonica.Spring

	drawPending atomic.Bool

	termCursorX    int
	termCursorY    int
	termCursorShow bool

	lastInputEvent string
}

type Options struct {
	StyleVariant string
	Debug        bool
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "hackterm-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(78),
	)
	if err != nil {
		renderer = nil
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	styleVariant := normalizeStyleVariant(opts.StyleVariant)
	theme := ThemeForVariant(styleVariant)

	r := &Root{
		theme:         theme,
		styleVariant:  styleVariant,
		screen:        ScreenBoot,
		layout:        LayoutWide,
		cols:          120,
		rows:          30,
		help:          h,
		markdown:      renderer,
		logger:        logger,
		spring:        harmonica.NewSpring(harmonica.FPS(60), 10.0, 0.8),
		spin:          spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(theme.Accent)),
		loginEmail:    newTextField("Email   ", false),
		loginPassword: newTextField("Password", true),
		regEmail:      newTextField("Email   ", false),
		regUsername:   newTextField("Username", false),
		regPassword:   newTextField("Password", true),
		flagField:     newTextField("Flag", false),
		questionField: newTextField("Question", false),
		codeField:     newCodeField(""),
	}
	r.keymap = navKeyMap{
		Roadmaps:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "Roadmaps")),
		Rooms:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "Rooms")),
		Challenges:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "Challenges")),
		Leaderboard: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "Leaderboard")),
		Profile:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "Profile")),
		Admin:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "Admin")),
		Logout:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "Logout")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("ctrl+q", "Quit")),
	}
	return r
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(clockTickCmd(), spinnerTickCmd(r.spin))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.animateIfNeeded()
	case drawMsg:
		r.drawPending.Store(false)
		return r, nil
	case clockMsg:
		return r, clockTickCmd()
	case animateMsg:
		target := 0.0
		if r.flagResult.Visible {
			target = 1.0
		}
		r.overlayPos, r.overlayVel = r.spring.Update(r.overlayPos, r.overlayVel, target)
		if r.shouldAnimate(target) {
			return r, animateTickCmd()
		}
		if target == 0 {
			r.overlayPos, r.overlayVel = 0, 0
		} else {
			r.overlayPos, r.overlayVel = 1, 0
		}
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			if r.statusFlash == "" {
				r.statusFlash = "Recovered UI panic"
			}
			view = tea.NewView(r.theme.Fail.Width(width).Render("UI recovered from a rendering panic. Check logs."))
		}
	}()

	if r.cols < 1 {
		r.cols = 120
	}
	if r.rows < 1 {
		r.rows = 30
	}
	r.termCursorShow = false

	var base string
	if r.layout == LayoutTooSmall {
		base = r.renderTooSmall()
	} else {
		switch r.screen {
		case ScreenBoot:
			base = r.renderBoot()
		case ScreenLogin:
			base = r.renderLogin()
		case ScreenRegister:
			base = r.renderRegister()
		case ScreenDashboard:
			base = r.renderDashboard()
		case ScreenRoadmaps:
			base = r.renderRoadmaps()
		case ScreenRooms:
			base = r.renderRooms()
		case ScreenRoomDetail:
			base = r.renderRoomDetail()
		case ScreenLab:
			base = r.renderLab()
		case ScreenChallenges:
			base = r.renderChallenges()
		case ScreenLeaderboard:
			base = r.renderLeaderboard()
		case ScreenProfile:
			base = r.renderProfile()
		case ScreenAdminUsers:
			base = r.renderAdminUsers()
		case ScreenAdminStats:
			base = r.renderAdminStats()
		default:
			base = r.renderBoot()
		}
	}

	if overlay := r.renderOverlay(); overlay != "" {
		base = composeOverlay(base, overlay, r.cols, r.rows)
	}
	v := tea.NewView(base)
	v.AltScreen = true
	if r.termCursorShow && !r.overlayActive() && r.screen == ScreenLab {
		v.Cursor = tea.NewCursor(r.termCursorX, r.termCursorY)
	}
	return v
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetScreen(screen Screen) {
	r.apply(func(m *Root) {
		m.screen = screen
		m.contentScroll = 0
		m.statusFlash = ""
		if screen != ScreenLogin && screen != ScreenRegister {
			m.authError = ""
		}
	})
}

func (r *Root) SetAuthBusy(busy bool) {
	r.apply(func(m *Root) {
		m.authBusy = busy
	})
}

func (r *Root) SetAuthError(msg string) {
	r.apply(func(m *Root) {
		m.authError = msg
		m.authBusy = false
	})
}

func (r *Root) SetUser(user api.User) {
	r.apply(func(m *Root) {
		m.user = user
	})
}

func (r *Root) SetDashboard(state DashboardState) {
	r.apply(func(m *Root) {
		m.dashboard = state
		m.user = state.User
	})
}

func (r *Root) SetRoadmaps(roadmaps []api.Roadmap) {
	r.apply(func(m *Root) {
		m.roadmaps = append([]api.Roadmap(nil), roadmaps...)
		if m.roadmapIndex >= len(m.roadmaps) {
			m.roadmapIndex = max(0, len(m.roadmaps)-1)
		}
	})
}

func (r *Root) SetRooms(rooms []api.Room) {
	r.apply(func(m *Root) {
		m.rooms = append([]api.Room(nil), rooms...)
		if m.roomIndex >= len(m.rooms) {
			m.roomIndex = max(0, len(m.rooms)-1)
		}
	})
}

func (r *Root) SetRoomDetail(state RoomDetailState) {
	r.apply(func(m *Root) {
		m.roomDetail = state
		m.contentScroll = 0
	})
}

func (r *Root) SetFlagResult(state FlagResultState) {
	r.apply(func(m *Root) {
		m.flagResult = state
	})
}

func (r *Root) SetLab(state LabState) {
	r.apply(func(m *Root) {
		m.lab = state
	})
}

func (r *Root) SetChallenges(challenges []api.Challenge) {
	r.apply(func(m *Root) {
		m.challenges = append([]api.Challenge(nil), challenges...)
		if m.challengeIdx >= len(m.challenges) {
			m.challengeIdx = max(0, len(m.challenges)-1)
		}
		if len(m.challenges) > 0 && strings.TrimSpace(m.codeField.String()) == "" {
			m.codeField.SetText(m.challenges[m.challengeIdx].StarterCode)
		}
	})
}

func (r *Root) SetChallengeOutput(output string, exitCode int, running bool) {
	r.apply(func(m *Root) {
		m.challengeOut = output
		m.challengeExit = exitCode
		m.challengeRun = running
	})
}

func (r *Root) SetLeaderboard(entries []api.LeaderboardEntry) {
	r.apply(func(m *Root) {
		m.leaderboard = append([]api.LeaderboardEntry(nil), entries...)
		if m.leaderIndex >= len(m.leaderboard) {
			m.leaderIndex = max(0, len(m.leaderboard)-1)
		}
	})
}

func (r *Root) SetProfile(profile api.Profile) {
	r.apply(func(m *Root) {
		m.profile = profile
	})
}

func (r *Root) SetAdminUsers(users []api.User) {
	r.apply(func(m *Root) {
		m.adminUsers = append([]api.User(nil), users...)
		if m.adminIndex >= len(m.adminUsers) {
			m.adminIndex = max(0, len(m.adminUsers)-1)
		}
	})
}

func (r *Root) SetAdminStats(stats api.AdminStats) {
	r.apply(func(m *Root) {
		m.adminStats = stats
	})
}

func (r *Root) SetLoading(loading bool) {
	r.apply(func(m *Root) {
		m.loading = loading
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
	})
}

func (r *Root) RequestDraw() {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return
	}
	if !r.drawPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(16*time.Millisecond, func() {
		r.mu.Lock()
		p := r.program
		running := r.running
		r.mu.Unlock()
		if !running || p == nil {
			r.drawPending.Store(false)
			return
		}
		p.Send(drawMsg{})
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

func (r *Root) overlayActive() bool {
	return r.flagOpen || r.questionOpen || r.confirmOpen || r.flagResult.Visible
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%v mod:%v text:%q", msg.Code, msg.Mod, msg.Text))

	if key.Matches(msg, r.keymap.Quit) {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}

	if r.overlayActive() {
		return r.handleOverlayKey(msg)
	}

	switch r.screen {
	case ScreenLogin:
		return r.handleLoginKey(msg)
	case ScreenRegister:
		return r.handleRegisterKey(msg)
	case ScreenLab:
		return r.handleLabKey(msg)
	case ScreenChallenges:
		return r.handleChallengesKey(msg)
	case ScreenBoot:
		return r, nil
	default:
		return r.handleBrowseKey(msg)
	}
}

func (r *Root) handleOverlayKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.Code == tea.KeyEsc || msg.Code == tea.KeyEscape {
		r.flagOpen = false
		r.questionOpen = false
		r.confirmOpen = false
		r.flagResult = FlagResultState{}
		return r, r.animateIfNeeded()
	}

	switch {
	case r.flagResult.Visible:
		if msg.Code == tea.KeyEnter {
			r.flagResult = FlagResultState{}
			return r, r.animateIfNeeded()
		}
	case r.flagOpen:
		if msg.Code == tea.KeyEnter {
			flag := strings.TrimSpace(r.flagField.String())
			r.flagOpen = false
			if flag != "" {
				roomID := r.roomDetail.Room.ID
				r.dispatchController(func(c Controller) { c.OnSubmitFlag(roomID, flag) })
			}
			r.flagField.Clear()
			return r, nil
		}
		r.flagField.HandleKey(msg)
	case r.questionOpen:
		if msg.Code == tea.KeyEnter {
			question := strings.TrimSpace(r.questionField.String())
			r.questionOpen = false
			if question != "" {
				roomID := r.roomDetail.Room.ID
				r.dispatchController(func(c Controller) { c.OnAskQuestion(roomID, question) })
			}
			r.questionField.Clear()
			return r, nil
		}
		r.questionField.HandleKey(msg)
	case r.confirmOpen:
		switch msg.Code {
		case tea.KeyLeft, tea.KeyUp:
			r.confirmIndex = 0
		case tea.KeyRight, tea.KeyDown, tea.KeyTab:
			r.confirmIndex = 1
		case tea.KeyEnter:
			r.confirmOpen = false
			if r.confirmIndex == 1 {
				userID := r.confirmUserID
				r.dispatchController(func(c Controller) { c.OnDeleteUser(userID) })
			}
			r.confirmIndex = 0
		}
	}
	return r, nil
}

func (r *Root) handleLoginKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if r.authBusy {
		return r, nil
	}
	switch msg.Code {
	case tea.KeyTab, tea.KeyDown:
		r.loginFocus = wrapIndex(r.loginFocus+1, 2)
		return r, nil
	case tea.KeyUp:
		r.loginFocus = wrapIndex(r.loginFocus-1, 2)
		return r, nil
	case tea.KeyEnter:
		email := strings.TrimSpace(r.loginEmail.String())
		password := r.loginPassword.String()
		r.dispatchController(func(c Controller) { c.OnLoginSubmit(email, password) })
		return r, nil
	}
	if msg.Mod&tea.ModCtrl != 0 && msg.Code == 'n' {
		r.dispatchController(func(c Controller) { c.OnNavigate(ScreenRegister) })
		return r, nil
	}
	if r.loginFocus == 0 {
		r.loginEmail.HandleKey(msg)
	} else {
		r.loginPassword.HandleKey(msg)
	}
	return r, nil
}

func (r *Root) handleRegisterKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if r.authBusy {
		return r, nil
	}
	switch msg.Code {
	case tea.KeyEsc:
		r.dispatchController(func(c Controller) { c.OnNavigate(ScreenLogin) })
		return r, nil
	case tea.KeyTab, tea.KeyDown:
		r.regFocus = wrapIndex(r.regFocus+1, 3)
		return r, nil
	case tea.KeyUp:
		r.regFocus = wrapIndex(r.regFocus-1, 3)
		return r, nil
	case tea.KeyEnter:
		email := strings.TrimSpace(r.regEmail.String())
		username := strings.TrimSpace(r.regUsername.String())
		password := r.regPassword.String()
		r.dispatchController(func(c Controller) { c.OnRegisterSubmit(email, username, password) })
		return r, nil
	}
	fields := []*textField{r.regEmail, r.regUsername, r.regPassword}
	fields[r.regFocus].HandleKey(msg)
	return r, nil
}

// handleLabKey forwards everything to the remote console except the two
// chords that control the session itself.
func (r *Root) handleLabKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.Mod&tea.ModCtrl != 0 {
		switch msg.Code {
		case 'x':
			r.dispatchController(func(c Controller) { c.OnStopLab() })
			return r, nil
		case 'b':
			r.dispatchController(func(c Controller) { c.OnNavigate(ScreenRoomDetail) })
			return r, nil
		}
	}
	data := term.EncodeKeyPressToBytes(msg)
	if len(data) == 0 {
		return r, nil
	}
	r.dispatchController(func(c Controller) { c.OnLabInput(data) })
	return r, nil
}

func (r *Root) handleChallengesKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if r.codeFocus {
		switch {
		case msg.Code == tea.KeyEsc || msg.Code == tea.KeyEscape:
			r.codeFocus = false
			return r, nil
		case msg.Mod&tea.ModCtrl != 0 && msg.Code == 'r':
			r.runSelectedChallenge()
			return r, nil
		}
		r.codeField.HandleKey(msg)
		return r, nil
	}

	switch msg.Code {
	case tea.KeyUp:
		r.moveChallengeSelection(-1)
		return r, nil
	case tea.KeyDown:
		r.moveChallengeSelection(+1)
		return r, nil
	case tea.KeyEnter:
		if len(r.challenges) > 0 {
			r.codeFocus = true
		}
		return r, nil
	case tea.KeyEsc:
		r.dispatchController(func(c Controller) { c.OnNavigate(ScreenDashboard) })
		return r, nil
	}
	if msg.Mod&tea.ModCtrl != 0 && msg.Code == 'r' {
		r.runSelectedChallenge()
		return r, nil
	}
	return r, nil
}

func (r *Root) moveChallengeSelection(delta int) {
	if len(r.challenges) == 0 {
		return
	}
	r.challengeIdx = wrapIndex(r.challengeIdx+delta, len(r.challenges))
	ch := r.challenges[r.challengeIdx]
	r.codeField.SetText(ch.StarterCode)
	r.challengeOut = ""
	r.dispatchController(func(c Controller) { c.OnSelectChallenge(ch.ID) })
}

func (r *Root) runSelectedChallenge() {
	if len(r.challenges) == 0 || r.challengeRun {
		return
	}
	ch := r.challenges[r.challengeIdx]
	code := r.codeField.String()
	r.dispatchController(func(c Controller) { c.OnRunCode(ch.ID, ch.Language, code) })
}

func (r *Root) handleBrowseKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	// Screen-local list movement first, then the shared navigation keys.
	switch r.screen {
	case ScreenRoadmaps:
		switch msg.Code {
		case tea.KeyUp:
			r.roadmapIndex = wrapIndex(r.roadmapIndex-1, len(r.roadmaps))
			return r, nil
		case tea.KeyDown:
			r.roadmapIndex = wrapIndex(r.roadmapIndex+1, len(r.roadmaps))
			return r, nil
		case tea.KeyEnter:
			if len(r.roadmaps) > 0 {
				id := r.roadmaps[r.roadmapIndex].ID
				r.dispatchController(func(c Controller) { c.OnSelectRoadmap(id) })
			}
			return r, nil
		}
	case ScreenRooms:
		switch msg.Code {
		case tea.KeyUp:
			r.roomIndex = wrapIndex(r.roomIndex-1, len(r.rooms))
			return r, nil
		case tea.KeyDown:
			r.roomIndex = wrapIndex(r.roomIndex+1, len(r.rooms))
			return r, nil
		case tea.KeyLeft:
			r.cycleCategory(-1)
			return r, nil
		case tea.KeyRight:
			r.cycleCategory(+1)
			return r, nil
		case tea.KeyEnter:
			if len(r.rooms) > 0 {
				id := r.rooms[r.roomIndex].ID
				r.dispatchController(func(c Controller) { c.OnOpenRoom(id) })
			}
			return r, nil
		}
	case ScreenRoomDetail:
		switch msg.Code {
		case tea.KeyUp:
			r.contentScroll = max(0, r.contentScroll-1)
			return r, nil
		case tea.KeyDown:
			r.contentScroll++
			return r, nil
		case tea.KeyEsc:
			r.dispatchController(func(c Controller) { c.OnNavigate(ScreenRooms) })
			return r, nil
		}
		if msg.Mod == 0 {
			switch msg.Code {
			case 's':
				roomID := r.roomDetail.Room.ID
				r.dispatchController(func(c Controller) { c.OnStartLab(roomID) })
				return r, nil
			case 'f':
				r.flagOpen = true
				return r, nil
			case 'a':
				r.questionOpen = true
				return r, nil
			}
		}
		return r, nil
	case ScreenLeaderboard:
		switch msg.Code {
		case tea.KeyUp:
			r.leaderIndex = wrapIndex(r.leaderIndex-1, len(r.leaderboard))
			return r, nil
		case tea.KeyDown:
			r.leaderIndex = wrapIndex(r.leaderIndex+1, len(r.leaderboard))
			return r, nil
		case tea.KeyEnter:
			if len(r.leaderboard) > 0 {
				id := r.leaderboard[r.leaderIndex].ID
				r.dispatchController(func(c Controller) { c.OnOpenProfile(id) })
			}
			return r, nil
		}
	case ScreenAdminUsers:
		switch msg.Code {
		case tea.KeyUp:
			r.adminIndex = wrapIndex(r.adminIndex-1, len(r.adminUsers))
			return r, nil
		case tea.KeyDown:
			r.adminIndex = wrapIndex(r.adminIndex+1, len(r.adminUsers))
			return r, nil
		}
		if msg.Mod == 0 && len(r.adminUsers) > 0 {
			target := r.adminUsers[r.adminIndex]
			switch msg.Code {
			case 't':
				role := "admin"
				if target.IsAdmin() {
					role = "user"
				}
				r.dispatchController(func(c Controller) { c.OnSetUserRole(target.ID, role) })
				return r, nil
			case 'x':
				r.confirmOpen = true
				r.confirmIndex = 0
				r.confirmUserID = target.ID
				return r, nil
			case 's':
				r.dispatchController(func(c Controller) { c.OnNavigate(ScreenAdminStats) })
				return r, nil
			}
		}
	case ScreenAdminStats:
		if msg.Code == tea.KeyEsc || msg.Code == tea.KeyEscape {
			r.dispatchController(func(c Controller) { c.OnNavigate(ScreenAdminUsers) })
			return r, nil
		}
	}

	if msg.Code == tea.KeyEsc || msg.Code == tea.KeyEscape {
		if r.screen != ScreenDashboard {
			r.dispatchController(func(c Controller) { c.OnNavigate(ScreenDashboard) })
		}
		return r, nil
	}

	switch {
	case key.Matches(msg, r.keymap.Roadmaps):
		r.dispatchController(func(c Controller) { c.OnNavigate(ScreenRoadmaps) })
	case key.Matches(msg, r.keymap.Rooms):
		r.dispatchController(func(c Controller) { c.OnNavigate(ScreenRooms) })
	case key.Matches(msg, r.keymap.Challenges):
		r.dispatchController(func(c Controller) { c.OnNavigate(ScreenChallenges) })
	case key.Matches(msg, r.keymap.Leaderboard):
		r.dispatchController(func(c Controller) { c.OnNavigate(ScreenLeaderboard) })
	case key.Matches(msg, r.keymap.Profile):
		userID := r.user.ID
		r.dispatchController(func(c Controller) { c.OnOpenProfile(userID) })
	case key.Matches(msg, r.keymap.Admin):
		r.dispatchController(func(c Controller) { c.OnNavigate(ScreenAdminUsers) })
	case key.Matches(msg, r.keymap.Logout):
		if r.screen == ScreenDashboard {
			r.dispatchController(func(c Controller) { c.OnLogout() })
		}
	}
	return r, nil
}

func (r *Root) cycleCategory(delta int) {
	r.categoryIndex = wrapIndex(r.categoryIndex+delta, len(roomCategories))
	category := roomCategories[r.categoryIndex]
	r.dispatchController(func(c Controller) { c.OnFilterRooms(category) })
}

func (r *Root) animateIfNeeded() tea.Cmd {
	target := 0.0
	if r.flagResult.Visible {
		target = 1.0
	}
	if r.shouldAnimate(target) {
		return animateTickCmd()
	}
	return nil
}

func (r *Root) shouldAnimate(target float64) bool {
	if target > 0 {
		return r.overlayPos < 0.999 || abs(r.overlayVel) > 0.001
	}
	return r.overlayPos > 0.001 || abs(r.overlayVel) > 0.001
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		i = n - 1
	}
	if i >= n {
		i = 0
	}
	return i
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func padRune(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(s, "\t", "    "))
	if len(r) > width {
		r = r[:width]
	}
	if len(r) < width {
		r = append(r, []rune(strings.Repeat(" ", width-len(r)))...)
	}
	return string(r)
}

func composeOverlay(base, overlay string, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	base = ansi.Strip(base)
	overlay = ansi.Strip(overlay)
	baseLines := strings.Split(base, "\n")
	if len(baseLines) < rows {
		pad := make([]string, rows-len(baseLines))
		baseLines = append(baseLines, pad...)
	}
	for i := 0; i < rows; i++ {
		baseLines[i] = padRune(baseLines[i], cols)
	}

	overlayLines := strings.Split(strings.TrimRight(overlay, "\n"), "\n")
	if len(overlayLines) == 0 {
		return strings.Join(baseLines[:rows], "\n")
	}
	ow := 1
	for _, line := range overlayLines {
		lw := len([]rune(line))
		if lw > ow {
			ow = lw
		}
	}
	if ow > cols {
		ow = cols
	}
	oh := len(overlayLines)
	if oh > rows {
		oh = rows
	}
	startRow := (rows - oh) / 2
	startCol := (cols - ow) / 2
	if startCol < 0 {
		startCol = 0
	}

	for i := 0; i < oh; i++ {
		row := startRow + i
		if row < 0 || row >= rows {
			continue
		}
		dst := []rune(baseLines[row])
		src := []rune(overlayLines[i])
		if len(src) > ow {
			src = src[:ow]
		}
		for j := 0; j < ow && startCol+j < len(dst); j++ {
			dst[startCol+j] = ' '
		}
		for j := 0; j < len(src) && startCol+j < len(dst); j++ {
			dst[startCol+j] = src[j]
		}
		baseLines[row] = string(dst)
	}
	return strings.Join(baseLines[:rows], "\n")
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(r) <= width {
		return string(r)
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}

	message := fmt.Sprintf("%v", recovered)
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered", map[string]any{
		"where":       where,
		"panic":       message,
		"messageType": msgType,
		"screen":      r.screen.String(),
		"cols":        r.cols,
		"rows":        r.rows,
		"last_input":  r.lastInputEvent,
		"stack":       string(debug.Stack()),
	})
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
