package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme 汇总转录区使用的样式。SuppressBubbles 为真的主题不绘制说话气泡。
type Theme struct {
	Name            string
	SuppressBubbles bool

	Text      lipgloss.Style
	Echo      lipgloss.Style
	System    lipgloss.Style
	Error     lipgloss.Style
	Link      lipgloss.Style
	StaleLink lipgloss.Style
	Divider   lipgloss.Style
	Inset     lipgloss.Style
	InsetHead lipgloss.Style
	Bubble    lipgloss.Style
	Speaker   lipgloss.Style
	Hint      lipgloss.Style
	Expired   lipgloss.Style
	Preview   lipgloss.Style
	Focus     lipgloss.Style
}

// ThemeNames lists the built-in themes.
var ThemeNames = []string{"dark", "light", "plain"}

// ThemeByName 返回内置主题，未知名称回落到 dark。
func ThemeByName(name string) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light":
		return lightTheme()
	case "plain":
		return plainTheme()
	default:
		return darkTheme()
	}
}

func darkTheme() Theme {
	accent := lipgloss.Color("#7D56F4")
	return Theme{
		Name:      "dark",
		Text:      lipgloss.NewStyle(),
		Echo:      lipgloss.NewStyle().Faint(true).Bold(true),
		System:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F2C94C")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626")),
		Link:      lipgloss.NewStyle().Foreground(lipgloss.Color("#38bdf8")).Underline(true),
		StaleLink: lipgloss.NewStyle().Foreground(lipgloss.Color("#5E6472")).Faint(true),
		Divider:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85")),
		Inset:     lipgloss.NewStyle().Foreground(accent).Faint(true),
		InsetHead: lipgloss.NewStyle().Foreground(accent).Bold(true),
		Bubble:    lipgloss.NewStyle().Foreground(accent),
		Speaker:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		Hint:      lipgloss.NewStyle().Faint(true).Italic(true),
		Expired:   lipgloss.NewStyle().Faint(true).Strikethrough(true),
		Preview:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85")).Italic(true),
		Focus:     lipgloss.NewStyle().Foreground(accent),
	}
}

func lightTheme() Theme {
	t := darkTheme()
	t.Name = "light"
	accent := lipgloss.Color("#5B21B6")
	t.System = lipgloss.NewStyle().Foreground(lipgloss.Color("#92400E"))
	t.Link = lipgloss.NewStyle().Foreground(lipgloss.Color("#1D4ED8")).Underline(true)
	t.Inset = lipgloss.NewStyle().Foreground(accent)
	t.InsetHead = lipgloss.NewStyle().Foreground(accent).Bold(true)
	t.Bubble = lipgloss.NewStyle().Foreground(accent)
	t.Speaker = lipgloss.NewStyle().Foreground(accent).Bold(true)
	t.Focus = lipgloss.NewStyle().Foreground(accent)
	return t
}

// plainTheme 不使用颜色，也不绘制气泡。
func plainTheme() Theme {
	none := lipgloss.NewStyle()
	return Theme{
		Name:            "plain",
		SuppressBubbles: true,
		Text:            none,
		Echo:            none,
		System:          none,
		Error:           none,
		Link:            none,
		StaleLink:       none,
		Divider:         none,
		Inset:           none,
		InsetHead:       none,
		Bubble:          none,
		Speaker:         none,
		Hint:            none,
		Expired:         none,
		Preview:         none,
		Focus:           none,
	}
}
