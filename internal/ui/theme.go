package ui

import lipgloss "charm.land/lipgloss/v2"

type Theme struct {
	Header         lipgloss.Style
	Status         lipgloss.Style
	PanelTitle     lipgloss.Style
	PanelBorder    lipgloss.Style
	PanelBody      lipgloss.Style
	Overlay        lipgloss.Style
	OverlayTitle   lipgloss.Style
	Accent         lipgloss.Style
	Pass           lipgloss.Style
	Fail           lipgloss.Style
	Pending        lipgloss.Style
	Muted          lipgloss.Style
	Info           lipgloss.Style
	Selected       lipgloss.Style
	Prompt         lipgloss.Style
	TerminalBorder lipgloss.Style
}

func DefaultTheme() Theme {
	return ThemeForVariant("matrix")
}

func ThemeForVariant(variant string) Theme {
	switch variant {
	case "midnight":
		return midnightTheme()
	case "amber":
		return amberTheme()
	default:
		return matrixTheme()
	}
}

// matrixTheme is the default hacker-green palette.
func matrixTheme() Theme {
	green := lipgloss.Color("#00FF41")
	dimGreen := lipgloss.Color("#2E8B57")
	red := lipgloss.Color("#FF4D4D")
	gold := lipgloss.Color("#FFD700")
	black := lipgloss.Color("#0A0E0A")
	panel := lipgloss.Color("#101810")
	fog := lipgloss.Color("#C8E6C9")
	border := lipgloss.Color("#1F5C2E")

	return Theme{
		Header: lipgloss.NewStyle().
			Background(black).
			Foreground(green).
			Bold(true).
			Padding(0, 1),
		Status: lipgloss.NewStyle().
			Background(panel).
			Foreground(fog).
			Padding(0, 1),
		PanelTitle: lipgloss.NewStyle().
			Foreground(green).
			Bold(true),
		PanelBorder: lipgloss.NewStyle().
			Foreground(border),
		PanelBody: lipgloss.NewStyle().
			Foreground(fog),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(green).
			Background(black).
			Foreground(fog).
			Padding(1, 2),
		OverlayTitle: lipgloss.NewStyle().
			Foreground(green).
			Bold(true),
		Accent: lipgloss.NewStyle().
			Foreground(green).
			Bold(true),
		Pass: lipgloss.NewStyle().
			Foreground(green).
			Bold(true),
		Fail: lipgloss.NewStyle().
			Foreground(red).
			Bold(true),
		Pending: lipgloss.NewStyle().
			Foreground(gold),
		Muted: lipgloss.NewStyle().
			Foreground(dimGreen),
		Info: lipgloss.NewStyle().
			Foreground(fog),
		Selected: lipgloss.NewStyle().
			Background(dimGreen).
			Foreground(black).
			Bold(true),
		Prompt: lipgloss.NewStyle().
			Foreground(green),
		TerminalBorder: lipgloss.NewStyle().
			Foreground(border),
	}
}

func midnightTheme() Theme {
	blue := lipgloss.Color("#5EEBFF")
	mint := lipgloss.Color("#67F0A8")
	brick := lipgloss.Color("#FF6F91")
	amber := lipgloss.Color("#FFC857")
	ink := lipgloss.Color("#0E1420")
	slate := lipgloss.Color("#1B2740")
	powder := lipgloss.Color("#EAF2FF")
	border := lipgloss.Color("#4B5F8A")

	return Theme{
		Header:      lipgloss.NewStyle().Background(ink).Foreground(powder).Bold(true).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(slate).Foreground(powder).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(blue).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(border),
		PanelBody:   lipgloss.NewStyle().Foreground(powder),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Background(ink).
			Foreground(powder).
			Padding(1, 2),
		OverlayTitle:   lipgloss.NewStyle().Foreground(blue).Bold(true),
		Accent:         lipgloss.NewStyle().Foreground(blue).Bold(true),
		Pass:           lipgloss.NewStyle().Foreground(mint).Bold(true),
		Fail:           lipgloss.NewStyle().Foreground(brick).Bold(true),
		Pending:        lipgloss.NewStyle().Foreground(amber),
		Muted:          lipgloss.NewStyle().Foreground(lipgloss.Color("#9CAAC6")),
		Info:           lipgloss.NewStyle().Foreground(blue),
		Selected:       lipgloss.NewStyle().Background(border).Foreground(powder).Bold(true),
		Prompt:         lipgloss.NewStyle().Foreground(blue),
		TerminalBorder: lipgloss.NewStyle().Foreground(border),
	}
}

func amberTheme() Theme {
	amber := lipgloss.Color("#FFB000")
	dim := lipgloss.Color("#8A6200")
	red := lipgloss.Color("#FF5C33")
	black := lipgloss.Color("#121008")

	return Theme{
		Header:      lipgloss.NewStyle().Background(black).Foreground(amber).Bold(true).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(black).Foreground(amber).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(amber).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(dim),
		PanelBody:   lipgloss.NewStyle().Foreground(amber),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(amber).
			Background(black).
			Foreground(amber).
			Padding(1, 2),
		OverlayTitle:   lipgloss.NewStyle().Foreground(amber).Bold(true),
		Accent:         lipgloss.NewStyle().Foreground(amber).Bold(true),
		Pass:           lipgloss.NewStyle().Foreground(amber).Bold(true),
		Fail:           lipgloss.NewStyle().Foreground(red).Bold(true),
		Pending:        lipgloss.NewStyle().Foreground(dim),
		Muted:          lipgloss.NewStyle().Foreground(dim),
		Info:           lipgloss.NewStyle().Foreground(amber),
		Selected:       lipgloss.NewStyle().Background(dim).Foreground(black).Bold(true),
		Prompt:         lipgloss.NewStyle().Foreground(amber),
		TerminalBorder: lipgloss.NewStyle().Foreground(dim),
	}
}

func normalizeStyleVariant(v string) string {
	switch v {
	case "matrix", "midnight", "amber":
		return v
	default:
		return "matrix"
	}
}
