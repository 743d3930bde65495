package ui

import (
	"hackterm/internal/api"
	"hackterm/internal/term"
)

// Controller receives user intents from the view. Implementations run the
// slow parts (network, disk) on their own goroutines and push results back
// through the View's Set* methods.
type Controller interface {
	OnLoginSubmit(email, password string)
	OnRegisterSubmit(email, username, password string)
	OnLogout()

	OnNavigate(screen Screen)
	OnSelectRoadmap(roadmapID string)
	OnFilterRooms(category string)
	OnOpenRoom(roomID string)

	OnStartLab(roomID string)
	OnLabInput(data []byte)
	OnStopLab()
	OnSubmitFlag(roomID, flag string)
	OnAskQuestion(roomID, question string)

	OnSelectChallenge(challengeID string)
	OnRunCode(challengeID, language, code string)

	OnOpenProfile(userID string)
	OnSetUserRole(userID, role string)
	OnDeleteUser(userID string)

	OnQuit()
}

// View is the render surface the controller pushes state into. All Set*
// methods are safe to call from any goroutine.
type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(Screen)

	SetAuthBusy(busy bool)
	SetAuthError(msg string)
	SetUser(user api.User)

	SetDashboard(DashboardState)
	SetRoadmaps(roadmaps []api.Roadmap)
	SetRooms(rooms []api.Room)
	SetRoomDetail(RoomDetailState)
	SetFlagResult(FlagResultState)
	SetLab(LabState)
	SetChallenges(challenges []api.Challenge)
	SetChallengeOutput(output string, exitCode int, running bool)
	SetLeaderboard(entries []api.LeaderboardEntry)
	SetProfile(profile api.Profile)
	SetAdminUsers(users []api.User)
	SetAdminStats(stats api.AdminStats)

	SetLoading(loading bool)
	FlashStatus(msg string)

	// RequestDraw coalesces externally-driven repaints, e.g. when the lab
	// console mutates outside the update loop.
	RequestDraw()
}

type Screen int

const (
	ScreenBoot Screen = iota
	ScreenLogin
	ScreenRegister
	ScreenDashboard
	ScreenRoadmaps
	ScreenRooms
	ScreenRoomDetail
	ScreenLab
	ScreenChallenges
	ScreenLeaderboard
	ScreenProfile
	ScreenAdminUsers
	ScreenAdminStats
)

func (s Screen) String() string {
	switch s {
	case ScreenBoot:
		return "boot"
	case ScreenLogin:
		return "login"
	case ScreenRegister:
		return "register"
	case ScreenDashboard:
		return "dashboard"
	case ScreenRoadmaps:
		return "roadmaps"
	case ScreenRooms:
		return "rooms"
	case ScreenRoomDetail:
		return "room_detail"
	case ScreenLab:
		return "lab"
	case ScreenChallenges:
		return "challenges"
	case ScreenLeaderboard:
		return "leaderboard"
	case ScreenProfile:
		return "profile"
	case ScreenAdminUsers:
		return "admin_users"
	case ScreenAdminStats:
		return "admin_stats"
	default:
		return "unknown"
	}
}

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutCompact
	LayoutTooSmall
)

type DashboardState struct {
	User           api.User
	Roadmaps       []api.Roadmap
	Progress       []api.Progress
	CompletedCount int
	Tip            string
}

type RoomDetailState struct {
	Room      api.Room
	Completed bool
	Questions []api.Question
}

type FlagResultState struct {
	Visible  bool
	Correct  bool
	Message  string
	XPEarned int
}

// LabState carries the active lab session. Console is shared with the
// controller: the view snapshots it per frame, the controller feeds it
// command results.
type LabState struct {
	RoomID    string
	RoomTitle string
	SessionID string
	Console   *term.Console
}
