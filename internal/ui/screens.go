package ui

import (
	"fmt"
	"strings"

	"hackterm/internal/term"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

func (r *Root) bodyRows() int {
	return max(1, r.rows-2)
}

func (r *Root) renderHeader() string {
	left := " HACKTERM"
	right := ""
	if r.user.ID != "" {
		right = fmt.Sprintf("%s  lvl %d  %d xp ", r.user.Username, r.user.Level, r.user.XP)
		if r.user.Streak > 0 {
			right = fmt.Sprintf("%s  %dd streak ", strings.TrimRight(right, " "), r.user.Streak)
		}
	}
	gap := r.cols - runewidth.StringWidth(left) - runewidth.StringWidth(right)
	if gap < 1 {
		gap = 1
	}
	return r.theme.Header.Width(r.cols).Render(left + strings.Repeat(" ", gap) + right)
}

func (r *Root) renderStatusBar(hint string) string {
	parts := make([]string, 0, 3)
	if r.loading {
		parts = append(parts, r.spin.View()+" loading")
	}
	if r.statusFlash != "" {
		parts = append(parts, r.statusFlash)
	}
	if hint != "" {
		parts = append(parts, hint)
	}
	return r.theme.Status.Width(r.cols).Render(trimForWidth(strings.Join(parts, "  ·  "), max(1, r.cols-2)))
}

// frame stacks header, a body clamped to the available rows, and the status
// bar into a full-screen string.
func (r *Root) frame(body, hint string) string {
	lines := strings.Split(body, "\n")
	rows := r.bodyRows()
	if len(lines) > rows {
		lines = lines[:rows]
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return r.renderHeader() + "\n" + strings.Join(lines, "\n") + "\n" + r.renderStatusBar(hint)
}

func (r *Root) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small (%dx%d). Need at least 60x18.", r.cols, r.rows)
	pad := max(0, r.rows/2-1)
	return strings.Repeat("\n", pad) + r.theme.Fail.Render(msg)
}

func (r *Root) renderBoot() string {
	body := "\n\n  " + r.spin.View() + " " + r.theme.Accent.Render("connecting…")
	return r.frame(body, "")
}

func (r *Root) renderLogin() string {
	var b strings.Builder
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Sign in") + "\n\n")
	width := min(r.cols-6, 56)
	b.WriteString("  " + r.loginEmail.Render(r.theme, width, r.loginFocus == 0) + "\n")
	b.WriteString("  " + r.loginPassword.Render(r.theme, width, r.loginFocus == 1) + "\n\n")
	if r.authBusy {
		b.WriteString("  " + r.spin.View() + " signing in…\n")
	} else if r.authError != "" {
		b.WriteString("  " + r.theme.Fail.Render(r.authError) + "\n")
	}
	return r.frame(b.String(), "enter sign in · tab next field · ctrl+n register · ctrl+q quit")
}

func (r *Root) renderRegister() string {
	var b strings.Builder
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Create account") + "\n\n")
	width := min(r.cols-6, 56)
	b.WriteString("  " + r.regEmail.Render(r.theme, width, r.regFocus == 0) + "\n")
	b.WriteString("  " + r.regUsername.Render(r.theme, width, r.regFocus == 1) + "\n")
	b.WriteString("  " + r.regPassword.Render(r.theme, width, r.regFocus == 2) + "\n\n")
	if r.authBusy {
		b.WriteString("  " + r.spin.View() + " creating account…\n")
	} else if r.authError != "" {
		b.WriteString("  " + r.theme.Fail.Render(r.authError) + "\n")
	}
	return r.frame(b.String(), "enter register · tab next field · esc back to sign in")
}

func (r *Root) renderDashboard() string {
	var b strings.Builder
	d := r.dashboard
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Welcome back, "+d.User.Username) + "\n\n")
	b.WriteString(fmt.Sprintf("  %s  %s\n",
		r.theme.Accent.Render(fmt.Sprintf("Level %d", d.User.Level)),
		r.theme.Info.Render(fmt.Sprintf("%d XP · %d rooms completed · %d day streak", d.User.XP, d.CompletedCount, d.User.Streak))))
	if len(d.User.Badges) > 0 {
		b.WriteString("  " + r.theme.Pending.Render("Badges: "+strings.Join(d.User.Badges, " · ")) + "\n")
	}
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Roadmaps") + "\n")
	if len(d.Roadmaps) == 0 {
		b.WriteString("  " + r.theme.Muted.Render("No roadmaps yet.") + "\n")
	}
	for _, rm := range d.Roadmaps {
		line := fmt.Sprintf("  %s %s  %s", rm.Icon, rm.Title, r.theme.Muted.Render(rm.Difficulty))
		b.WriteString(trimForWidth(line, r.cols-2) + "\n")
	}
	if d.Tip != "" {
		b.WriteString("\n  " + r.theme.Info.Render("Tip: "+d.Tip) + "\n")
	}
	return r.frame(b.String(), r.help.View(r.keymap))
}

func (r *Root) renderRoadmaps() string {
	var b strings.Builder
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Roadmaps") + "\n\n")
	if len(r.roadmaps) == 0 {
		b.WriteString("  " + r.theme.Muted.Render("Nothing here yet.") + "\n")
	}
	for i, rm := range r.roadmaps {
		line := fmt.Sprintf(" %s %s — %s [%s]", rm.Icon, rm.Title, rm.Description, rm.Difficulty)
		line = trimForWidth(line, r.cols-4)
		if i == r.roadmapIndex {
			b.WriteString("  " + r.theme.Selected.Render("▸"+line) + "\n")
		} else {
			b.WriteString("   " + r.theme.PanelBody.Render(line) + "\n")
		}
	}
	return r.frame(b.String(), "↑/↓ select · enter open · esc dashboard")
}

func (r *Root) renderRooms() string {
	var b strings.Builder
	category := roomCategories[r.categoryIndex]
	if category == "" {
		category = "all"
	}
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Rooms") + "  " +
		r.theme.Muted.Render("category: ") + r.theme.Accent.Render(category) + "\n\n")
	if len(r.rooms) == 0 {
		b.WriteString("  " + r.theme.Muted.Render("No rooms match this filter.") + "\n")
	}
	visible := r.bodyRows() - 4
	start := 0
	if visible > 0 && r.roomIndex >= visible {
		start = r.roomIndex - visible + 1
	}
	for i := start; i < len(r.rooms) && (visible <= 0 || i-start < visible); i++ {
		room := r.rooms[i]
		marker := " "
		if room.HasLab {
			marker = "⚑"
		}
		line := fmt.Sprintf(" %s %-30s %-12s %-10s %4d xp", marker,
			trimForWidth(room.Title, 30), room.Category, room.Difficulty, room.XPReward)
		line = trimForWidth(line, r.cols-4)
		if i == r.roomIndex {
			b.WriteString("  " + r.theme.Selected.Render("▸"+line) + "\n")
		} else {
			b.WriteString("   " + r.theme.PanelBody.Render(line) + "\n")
		}
	}
	return r.frame(b.String(), "↑/↓ select · ←/→ category · enter open · esc dashboard")
}

func (r *Root) renderRoomDetail() string {
	var b strings.Builder
	room := r.roomDetail.Room
	title := room.Title
	if r.roomDetail.Completed {
		title += "  " + r.theme.Pass.Render("✓ completed")
	}
	b.WriteString("\n  " + r.theme.PanelTitle.Render(title) + "\n")
	b.WriteString("  " + r.theme.Muted.Render(fmt.Sprintf("%s · %s · %d xp", room.Category, room.Difficulty, room.XPReward)) + "\n\n")

	content := room.Content
	if r.markdown != nil {
		if rendered, err := r.markdown.Render(room.Content); err == nil {
			content = rendered
		}
	}
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(room.Tasks) > 0 {
		lines = append(lines, "", r.theme.PanelTitle.Render("Tasks"))
		for i, task := range room.Tasks {
			lines = append(lines, fmt.Sprintf("  %d. %s — %s", i+1, task.Title, task.Description))
		}
	}
	if len(r.roomDetail.Questions) > 0 {
		lines = append(lines, "", r.theme.PanelTitle.Render("Questions"))
		for _, q := range r.roomDetail.Questions {
			lines = append(lines, "  "+q.Username+": "+q.Question)
			if q.Reply != "" {
				lines = append(lines, "    ↳ "+r.theme.Info.Render(q.Reply))
			}
		}
	}

	visible := r.bodyRows() - 5
	if visible < 1 {
		visible = 1
	}
	maxScroll := max(0, len(lines)-visible)
	if r.contentScroll > maxScroll {
		r.contentScroll = maxScroll
	}
	end := min(len(lines), r.contentScroll+visible)
	for _, line := range lines[r.contentScroll:end] {
		b.WriteString("  " + trimForWidth(line, r.cols-4) + "\n")
	}

	hint := "f submit flag · a ask · ↑/↓ scroll · esc back"
	if room.HasLab {
		hint = "s start lab · " + hint
	}
	return r.frame(b.String(), hint)
}

func (r *Root) renderLab() string {
	var b strings.Builder
	title := r.lab.RoomTitle
	if title == "" {
		title = "Lab"
	}
	b.WriteString(" " + r.theme.PanelTitle.Render(title))

	var snap term.Snapshot
	if r.lab.Console != nil {
		snap = r.lab.Console.Snapshot()
	}
	switch snap.Status {
	case term.StatusStopped:
		b.WriteString("  " + r.theme.Fail.Render("[stopped]"))
	case term.StatusErrored:
		b.WriteString("  " + r.theme.Fail.Render("[errored]"))
	default:
		if snap.Busy {
			b.WriteString("  " + r.spin.View())
		} else {
			b.WriteString("  " + r.theme.Pass.Render("[active]"))
		}
	}
	b.WriteString("\n")

	// Terminal area: scrollback tail plus the live input line.
	termRows := r.bodyRows() - 2
	if termRows < 1 {
		termRows = 1
	}
	lines := snap.Lines
	inputRow := -1
	if snap.Input != "" || snap.Status == term.StatusActive {
		inputRow = 1
	}
	visible := termRows
	if inputRow > 0 {
		visible--
	}
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	row := 2 // header + title line
	for _, line := range lines {
		b.WriteString(" " + r.theme.PanelBody.Render(trimForWidth(line, r.cols-2)) + "\n")
		row++
	}
	if inputRow > 0 {
		b.WriteString(" " + r.theme.Prompt.Render(trimForWidth(snap.Input, r.cols-2)) + "\n")
		if !snap.Busy && snap.Status == term.StatusActive {
			r.termCursorShow = true
			r.termCursorX = 1 + snap.CursorCol
			r.termCursorY = row
		}
	}
	return r.frame(b.String(), "ctrl+x stop lab · ctrl+b back · ↑/↓ history")
}

func (r *Root) renderChallenges() string {
	var b strings.Builder
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Code Challenges") + "\n\n")
	if len(r.challenges) == 0 {
		b.WriteString("  " + r.theme.Muted.Render("No challenges available.") + "\n")
		return r.frame(b.String(), "esc dashboard")
	}

	listWidth := 34
	if r.layout == LayoutCompact {
		listWidth = 24
	}
	editorWidth := max(20, r.cols-listWidth-8)
	editorRows := max(4, r.bodyRows()-10)

	listLines := make([]string, 0, len(r.challenges))
	for i, ch := range r.challenges {
		line := trimForWidth(fmt.Sprintf("%s (%s)", ch.Title, ch.Language), listWidth-2)
		if i == r.challengeIdx {
			listLines = append(listLines, r.theme.Selected.Render("▸"+line))
		} else {
			listLines = append(listLines, " "+r.theme.PanelBody.Render(line))
		}
	}

	ch := r.challenges[r.challengeIdx]
	b.WriteString("  " + strings.Join(listLines, "\n  ") + "\n\n")
	b.WriteString("  " + r.theme.Muted.Render(trimForWidth(ch.Description, r.cols-4)) + "\n\n")
	editorTitle := "Editor"
	if r.codeFocus {
		editorTitle = "Editor (editing)"
	}
	b.WriteString("  " + r.theme.PanelTitle.Render(editorTitle) + "\n")
	for _, line := range strings.Split(r.codeField.Render(r.theme, editorWidth, editorRows, r.codeFocus), "\n") {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n  " + r.theme.PanelTitle.Render("Output") + "\n")
	switch {
	case r.challengeRun:
		b.WriteString("  " + r.spin.View() + " running…\n")
	case r.challengeOut != "":
		style := r.theme.PanelBody
		if r.challengeExit != 0 {
			style = r.theme.Fail
		}
		for _, line := range strings.Split(strings.TrimRight(ansi.Strip(r.challengeOut), "\n"), "\n") {
			b.WriteString("  " + style.Render(trimForWidth(line, r.cols-4)) + "\n")
		}
		if r.challengeExit != 0 {
			b.WriteString("  " + r.theme.Fail.Render(fmt.Sprintf("exit %d", r.challengeExit)) + "\n")
		}
	}

	hint := "↑/↓ select · enter edit · ctrl+r run · esc dashboard"
	if r.codeFocus {
		hint = "ctrl+r run · esc stop editing"
	}
	return r.frame(b.String(), hint)
}

func (r *Root) renderLeaderboard() string {
	var b strings.Builder
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Leaderboard") + "\n\n")
	if len(r.leaderboard) == 0 {
		b.WriteString("  " + r.theme.Muted.Render("Nobody has scored yet.") + "\n")
	}
	for i, entry := range r.leaderboard {
		line := fmt.Sprintf(" %3d. %-20s lvl %-3d %6d xp", i+1, trimForWidth(entry.Username, 20), entry.Level, entry.XP)
		if entry.Username == r.user.Username {
			line += "  " + "(you)"
		}
		line = trimForWidth(line, r.cols-4)
		if i == r.leaderIndex {
			b.WriteString("  " + r.theme.Selected.Render("▸"+line) + "\n")
		} else {
			b.WriteString("   " + r.theme.PanelBody.Render(line) + "\n")
		}
	}
	return r.frame(b.String(), "↑/↓ select · enter profile · esc dashboard")
}

func (r *Root) renderProfile() string {
	var b strings.Builder
	p := r.profile
	b.WriteString("\n  " + r.theme.PanelTitle.Render(p.Username) + "\n\n")
	b.WriteString(fmt.Sprintf("  %s\n", r.theme.Info.Render(fmt.Sprintf("Level %d · %d XP · %d rooms completed", p.Level, p.XP, p.CompletedRoomsCount))))
	if p.Streak > 0 {
		b.WriteString("  " + r.theme.Pending.Render(fmt.Sprintf("%d day streak", p.Streak)) + "\n")
	}
	if len(p.Badges) > 0 {
		b.WriteString("\n  " + r.theme.PanelTitle.Render("Badges") + "\n")
		for _, badge := range p.Badges {
			b.WriteString("   · " + r.theme.PanelBody.Render(badge) + "\n")
		}
	}
	if p.CreatedAt != "" {
		b.WriteString("\n  " + r.theme.Muted.Render("member since "+p.CreatedAt) + "\n")
	}
	return r.frame(b.String(), "esc back")
}

func (r *Root) renderAdminUsers() string {
	var b strings.Builder
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Admin · Users") + "\n\n")
	if len(r.adminUsers) == 0 {
		b.WriteString("  " + r.theme.Muted.Render("No users.") + "\n")
	}
	for i, u := range r.adminUsers {
		role := u.Role
		if u.IsAdmin() {
			role = r.theme.Accent.Render(role)
		}
		line := fmt.Sprintf(" %-20s %-28s %s  lvl %d", trimForWidth(u.Username, 20), trimForWidth(u.Email, 28), role, u.Level)
		line = trimForWidth(line, r.cols-4)
		if i == r.adminIndex {
			b.WriteString("  " + r.theme.Selected.Render("▸"+line) + "\n")
		} else {
			b.WriteString("   " + r.theme.PanelBody.Render(line) + "\n")
		}
	}
	return r.frame(b.String(), "↑/↓ select · t toggle role · x delete · s stats · esc dashboard")
}

func (r *Root) renderAdminStats() string {
	var b strings.Builder
	s := r.adminStats
	b.WriteString("\n  " + r.theme.PanelTitle.Render("Admin · Platform Stats") + "\n\n")
	b.WriteString(fmt.Sprintf("  %-18s %d\n", "Users", s.TotalUsers))
	b.WriteString(fmt.Sprintf("  %-18s %d\n", "Rooms", s.TotalRooms))
	b.WriteString(fmt.Sprintf("  %-18s %d\n", "Lab sessions", s.TotalSessions))
	b.WriteString(fmt.Sprintf("  %-18s %s\n", "Active sessions", r.theme.Accent.Render(fmt.Sprintf("%d", s.ActiveSessions))))
	return r.frame(b.String(), "esc users")
}

// renderOverlay builds whichever modal is open, or returns "" when none is.
func (r *Root) renderOverlay() string {
	width := min(max(40, r.cols/2), r.cols-4)
	switch {
	case r.flagResult.Visible:
		var body strings.Builder
		if r.flagResult.Correct {
			body.WriteString(r.theme.Pass.Render("✓ Correct!") + "\n\n")
			if r.flagResult.XPEarned > 0 {
				body.WriteString(fmt.Sprintf("+%d XP\n", r.flagResult.XPEarned))
			}
		} else {
			body.WriteString(r.theme.Fail.Render("✗ Incorrect") + "\n\n")
		}
		if r.flagResult.Message != "" {
			body.WriteString(r.flagResult.Message + "\n")
		}
		body.WriteString("\n" + r.theme.Muted.Render("enter to dismiss"))
		return r.theme.Overlay.Width(width).Render(
			r.theme.OverlayTitle.Render("Flag submission") + "\n\n" + body.String())
	case r.flagOpen:
		return r.theme.Overlay.Width(width).Render(
			r.theme.OverlayTitle.Render("Submit flag") + "\n\n" +
				r.flagField.Render(r.theme, width-8, true) + "\n\n" +
				r.theme.Muted.Render("enter submit · esc cancel"))
	case r.questionOpen:
		return r.theme.Overlay.Width(width).Render(
			r.theme.OverlayTitle.Render("Ask a question") + "\n\n" +
				r.questionField.Render(r.theme, width-8, true) + "\n\n" +
				r.theme.Muted.Render("enter send · esc cancel"))
	case r.confirmOpen:
		username := r.confirmUserID
		for _, u := range r.adminUsers {
			if u.ID == r.confirmUserID {
				username = u.Username
				break
			}
		}
		cancel := " Cancel "
		confirm := " Delete "
		if r.confirmIndex == 0 {
			cancel = r.theme.Selected.Render(cancel)
			confirm = r.theme.PanelBody.Render(confirm)
		} else {
			cancel = r.theme.PanelBody.Render(cancel)
			confirm = r.theme.Fail.Render("▸" + confirm)
		}
		return r.theme.Overlay.Width(width).Render(
			r.theme.OverlayTitle.Render("Delete user") + "\n\n" +
				fmt.Sprintf("Permanently delete %q?\n\n", username) +
				cancel + "    " + confirm)
	}
	return ""
}
