package term

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tea "charm.land/bubbletea/v2"
)

// EncodeKeyPressToBytes converts a Bubble Tea key event to the xterm byte
// sequence a terminal would emit. The console consumes these bytes, so every
// key funnels through one codec regardless of how the event arrived.
func EncodeKeyPressToBytes(ev tea.KeyPressMsg) []byte {
	key := ev.Key()

	if key.Text != "" {
		// Some transports surface escape fragments as text ("[A" for
		// cursor-up). Restore the ESC prefix so history recall still works.
		if looksLikeEscFragment(key.Text) {
			return append([]byte{0x1b}, []byte(key.Text)...)
		}
		out := []byte(key.Text)
		if key.Mod&tea.ModAlt != 0 {
			return append([]byte{0x1b}, out...)
		}
		return out
	}
	if key.Code == tea.KeyEsc || key.Code == tea.KeyEscape {
		return []byte{0x1b}
	}

	switch key.Code {
	case tea.KeyEnter:
		return []byte("\r")
	case tea.KeyTab:
		if key.Mod&tea.ModShift != 0 {
			return []byte("\x1b[Z")
		}
		return []byte("\t")
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyUp:
		return csiWithModifier("A", key.Mod)
	case tea.KeyDown:
		return csiWithModifier("B", key.Mod)
	case tea.KeyRight:
		return csiWithModifier("C", key.Mod)
	case tea.KeyLeft:
		return csiWithModifier("D", key.Mod)
	case tea.KeyHome:
		return csiWithModifier("H", key.Mod)
	case tea.KeyEnd:
		return csiWithModifier("F", key.Mod)
	case tea.KeyPgUp:
		return []byte("\x1b[5~")
	case tea.KeyPgDown:
		return []byte("\x1b[6~")
	case tea.KeyDelete:
		return []byte("\x1b[3~")
	}

	if key.Mod&tea.ModCtrl != 0 && key.Code != 0 && utf8.ValidRune(key.Code) {
		if c := ctrlRuneCode(key.Code); c != 0 {
			return []byte{c}
		}
	}
	return nil
}

func looksLikeEscFragment(s string) bool {
	if len(s) < 2 || len(s) > 16 {
		return false
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}

	if strings.HasPrefix(s, "[") {
		last := s[len(s)-1]
		if !((last >= 'A' && last <= 'Z') || last == '~') {
			return false
		}
		for i := 1; i < len(s)-1; i++ {
			ch := s[i]
			if (ch >= '0' && ch <= '9') || ch == ';' || ch == '?' {
				continue
			}
			return false
		}
		return true
	}

	if strings.HasPrefix(s, "O") && len(s) == 2 {
		switch s[1] {
		case 'A', 'B', 'C', 'D', 'H', 'F', 'P', 'Q', 'R', 'S':
			return true
		}
	}
	return false
}

func csiWithModifier(final string, mods tea.KeyMod) []byte {
	mod := xtermModifier(mods)
	if mod == 1 {
		return []byte("\x1b[" + final)
	}
	return []byte(fmt.Sprintf("\x1b[1;%d%s", mod, final))
}

func xtermModifier(mods tea.KeyMod) int {
	mod := 1
	if mods&tea.ModShift != 0 {
		mod += 1
	}
	if mods&tea.ModAlt != 0 {
		mod += 2
	}
	if mods&tea.ModCtrl != 0 {
		mod += 4
	}
	return mod
}

func ctrlRuneCode(r rune) byte {
	if r >= 'a' && r <= 'z' {
		return byte(r-'a') + 1
	}
	if r >= 'A' && r <= 'Z' {
		return byte(r-'A') + 1
	}
	switch r {
	case ' ':
		return 0x00
	case '\\':
		return 0x1c
	case ']':
		return 0x1d
	case '^':
		return 0x1e
	case '_':
		return 0x1f
	default:
		return 0
	}
}
