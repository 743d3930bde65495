package app

import (
	"testing"

	"hackterm/internal/ui"
)

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	if got := guardScreen(ui.ScreenDashboard, false, false, false); got != GuardRedirectLogin {
		t.Fatalf("expected login redirect, got %v", got)
	}
	if got := guardScreen(ui.ScreenLab, false, false, false); got != GuardRedirectLogin {
		t.Fatalf("expected login redirect for lab, got %v", got)
	}
}

func TestGuardWaitsWhileSessionLoads(t *testing.T) {
	if got := guardScreen(ui.ScreenDashboard, true, false, false); got != GuardWait {
		t.Fatalf("expected wait during session restore, got %v", got)
	}
}

func TestGuardBlocksNonAdminFromAdminScreens(t *testing.T) {
	if got := guardScreen(ui.ScreenAdminUsers, false, true, false); got != GuardRedirectDashboard {
		t.Fatalf("expected dashboard redirect, got %v", got)
	}
	if got := guardScreen(ui.ScreenAdminStats, false, true, true); got != GuardAllow {
		t.Fatalf("expected admin allowed, got %v", got)
	}
}

func TestGuardBouncesSignedInUsersOffAuthForms(t *testing.T) {
	if got := guardScreen(ui.ScreenLogin, false, true, false); got != GuardRedirectDashboard {
		t.Fatalf("expected dashboard redirect from login, got %v", got)
	}
	if got := guardScreen(ui.ScreenLogin, false, false, false); got != GuardAllow {
		t.Fatalf("expected anonymous login allowed, got %v", got)
	}
}
