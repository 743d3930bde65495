package ui

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-runewidth"
)

// textField is a minimal single-line input. Forms hold several and move
// focus between them with Tab.
type textField struct {
	label  string
	value  []rune
	secret bool
}

func newTextField(label string, secret bool) *textField {
	return &textField{label: label, secret: secret}
}

func (f *textField) String() string { return string(f.value) }

func (f *textField) Clear() { f.value = nil }

// HandleKey consumes one key event. It returns true when the event edited
// the field so callers can stop routing it elsewhere.
func (f *textField) HandleKey(msg tea.KeyPressMsg) bool {
	key := msg.Key()
	if key.Text != "" && msg.Mod&tea.ModCtrl == 0 && msg.Mod&tea.ModAlt == 0 {
		for _, r := range key.Text {
			if r >= 0x20 && r != 0x7f {
				f.value = append(f.value, r)
			}
		}
		return true
	}
	switch key.Code {
	case tea.KeyBackspace:
		if len(f.value) > 0 {
			f.value = f.value[:len(f.value)-1]
		}
		return true
	}
	if msg.Mod&tea.ModCtrl != 0 && key.Code == 'u' {
		f.value = nil
		return true
	}
	return false
}

func (f *textField) Render(theme Theme, width int, focused bool) string {
	display := string(f.value)
	if f.secret {
		display = strings.Repeat("*", len(f.value))
	}
	cursor := " "
	if focused {
		cursor = "_"
	}
	line := display + cursor
	inner := width - runewidth.StringWidth(f.label) - 4
	if inner > 0 {
		line = runewidth.FillRight(runewidth.Truncate(line, inner, ""), inner)
	}
	labelStyle := theme.Muted
	if focused {
		labelStyle = theme.Accent
	}
	return labelStyle.Render(f.label) + "  " + theme.PanelBody.Render(line)
}

// codeField is a plain multi-line editor for challenge submissions. Cursor
// stays at the end of the buffer; Enter inserts newlines, so running the code
// is bound to a control chord instead.
type codeField struct {
	value []rune
}

func newCodeField(initial string) *codeField {
	return &codeField{value: []rune(initial)}
}

func (f *codeField) String() string { return string(f.value) }

func (f *codeField) SetText(text string) { f.value = []rune(text) }

func (f *codeField) HandleKey(msg tea.KeyPressMsg) bool {
	key := msg.Key()
	if key.Text != "" && msg.Mod&tea.ModCtrl == 0 && msg.Mod&tea.ModAlt == 0 {
		f.value = append(f.value, []rune(key.Text)...)
		return true
	}
	switch key.Code {
	case tea.KeyEnter:
		f.value = append(f.value, '\n')
		return true
	case tea.KeyTab:
		f.value = append(f.value, ' ', ' ', ' ', ' ')
		return true
	case tea.KeyBackspace:
		if len(f.value) > 0 {
			f.value = f.value[:len(f.value)-1]
		}
		return true
	}
	return false
}

// Render shows the last lines that fit in the given height, cursor appended.
func (f *codeField) Render(theme Theme, width, height int, focused bool) string {
	text := string(f.value)
	if focused {
		text += "_"
	}
	lines := strings.Split(text, "\n")
	if height > 0 && len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if width > 0 {
			line = runewidth.Truncate(line, width, "")
		}
		out = append(out, theme.PanelBody.Render(line))
	}
	return strings.Join(out, "\n")
}
