package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/artifex-eng/opm500/internal/opm"
)

// InstrumentCard renders the identity and active configuration of a
// connected instrument as a bordered card.
type InstrumentCard struct {
	Identity opm.Identity
	Config   opm.Config
	Nickname string // Optional user-defined nickname from the registry
	Port     string // Port or descriptor the instrument was opened on
	Width    int    // Terminal width for responsive rendering
}

// NewInstrumentCard creates a card for the given session
func NewInstrumentCard(identity opm.Identity, cfg opm.Config, port string) *InstrumentCard {
	return &InstrumentCard{
		Identity: identity,
		Config:   cfg,
		Port:     port,
		Width:    GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (c *InstrumentCard) SetWidth(width int) *InstrumentCard {
	c.Width = width
	return c
}

// Render returns the styled card as a string
func (c *InstrumentCard) Render() string {
	width := c.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	title := "OPM500"
	if c.Identity.SerialNumber != "" {
		title += " " + c.Identity.SerialNumber
	}
	if c.Nickname != "" {
		title += fmt.Sprintf(" (%s)", c.Nickname)
	}

	titleLine := TitleStyle.Render(title)
	portLine := SubtitleStyle.Render(c.Port)
	topSection := lipgloss.JoinVertical(lipgloss.Left, titleLine, portLine)

	// Divider line
	dividerWidth := width - 6
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", dividerWidth))

	detailLines := c.detailLines()
	detailsSection := strings.Join(detailLines, "\n")

	content := lipgloss.JoinVertical(lipgloss.Left, topSection, divider, detailsSection)

	return CardBorderStyle(width).Render(content)
}

// detailLines builds the aligned key-value rows of the card
func (c *InstrumentCard) detailLines() []string {
	detector := "unknown"
	if c.Identity.DetectorRangeKnown() {
		detector = fmt.Sprintf("%d–%d nm", c.Identity.MinWavelengthNM, c.Identity.MaxWavelengthNM)
	}

	polarity := "normal"
	if c.Config.PolarityInverted {
		polarity = "inverted"
	}

	rows := []struct {
		key   string
		value string
	}{
		{"Firmware", orUnknown(c.Identity.FirmwareVersion)},
		{"Manufactured", orUnknown(c.Identity.ManufactureDate)},
		{"Detector", detector},
		{"Unit", c.Config.Unit.Description()},
		{"Wavelength", fmt.Sprintf("%d nm (KF %g)", c.Config.WavelengthNM, c.Config.CorrectionFactor)},
		{"Bandwidth", c.Config.Bandwidth.String()},
		{"Gain", c.Config.Gain.String()},
		{"Polarity", polarity},
		{"Filter", fmt.Sprintf("%g", c.Config.FilterFactor)},
		{"Aperture", fmt.Sprintf("%g mm", c.Config.ApertureMM)},
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		key := KeyStyle.Render("  " + row.key + ":")
		value := ValueStyle.Render(row.value)
		lines = append(lines, key+" "+value)
	}
	return lines
}

// String implements fmt.Stringer
func (c *InstrumentCard) String() string {
	return c.Render()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
