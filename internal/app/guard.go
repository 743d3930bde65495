package app

import "hackterm/internal/ui"

// GuardDecision says what navigation should do with a screen request given
// the current session state.
type GuardDecision int

const (
	GuardAllow GuardDecision = iota
	GuardWait
	GuardRedirectLogin
	GuardRedirectDashboard
)

func screenRequiresAuth(screen ui.Screen) bool {
	switch screen {
	case ui.ScreenBoot, ui.ScreenLogin, ui.ScreenRegister:
		return false
	}
	return true
}

func screenRequiresAdmin(screen ui.Screen) bool {
	return screen == ui.ScreenAdminUsers || screen == ui.ScreenAdminStats
}

// guardScreen decides whether a navigation target is reachable. While the
// stored session is still being validated, protected screens wait instead
// of bouncing to login.
func guardScreen(screen ui.Screen, authLoading, signedIn, admin bool) GuardDecision {
	if screenRequiresAuth(screen) {
		if authLoading {
			return GuardWait
		}
		if !signedIn {
			return GuardRedirectLogin
		}
	}
	if screenRequiresAdmin(screen) && !admin {
		return GuardRedirectDashboard
	}
	if !screenRequiresAuth(screen) && signedIn && screen != ui.ScreenBoot {
		// Signed-in users have no business on the auth forms.
		return GuardRedirectDashboard
	}
	return GuardAllow
}
