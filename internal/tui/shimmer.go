package tui

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// shimmerInterval is the animation frame period
const shimmerInterval = 90 * time.Millisecond

// shimmerTickMsg advances the thinking indicator one frame
type shimmerTickMsg struct{}

// shimmer sweeps a soft highlight across a label while the companion is thinking
type shimmer struct {
	center    float64
	width     float64 // highlight width as a share of the label
	step      float64 // glyphs advanced per frame
	trueColor bool
	static    bool // reduced motion: plain accent text
}

func newShimmer() *shimmer {
	return &shimmer{
		width:     0.3,
		step:      0.8,
		trueColor: os.Getenv("COLORTERM") == "truecolor",
		static:    os.Getenv("EMOLYZER_REDUCE_MOTION") != "",
	}
}

// tick schedules the next frame
func (s *shimmer) tick() tea.Cmd {
	if s.static {
		return nil
	}
	return tea.Tick(shimmerInterval, func(time.Time) tea.Msg { return shimmerTickMsg{} })
}

// advance moves the highlight, wrapping after it has passed the end of a label of n glyphs
func (s *shimmer) advance(n int) {
	if n <= 0 {
		return
	}
	s.center += s.step
	margin := float64(n) * s.width
	if s.center > float64(n)+margin {
		s.center = -margin
	}
}

func (s *shimmer) reset() {
	s.center = 0
}

// render paints text with the highlight at its current position
func (s *shimmer) render(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	if s.static {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Render(text)
	}

	sigma := math.Max(1, s.width*float64(len(runes))/2)
	var b strings.Builder
	for i, r := range runes {
		dx := float64(i) - s.center
		weight := math.Exp(-(dx * dx) / (2 * sigma * sigma))
		b.WriteString(lipgloss.NewStyle().Foreground(s.color(weight)).Render(string(r)))
	}
	return b.String()
}

// color blends base toward peak by weight; 256-color terminals get a two-step approximation
func (s *shimmer) color(weight float64) lipgloss.Color {
	if !s.trueColor {
		if weight > 0.5 {
			return lipgloss.Color("147") // Light purple
		}
		return lipgloss.Color("250") // Light grey
	}

	base := hexRGB(ColorShimmerBase)
	peak := hexRGB(ColorShimmerPeak)
	var out [3]int
	for i := range out {
		out[i] = int(base[i]*(1-weight) + peak[i]*weight)
	}
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", out[0], out[1], out[2]))
}

// hexRGB splits a #RRGGBB color into its channels
func hexRGB(hex string) [3]float64 {
	var r, g, b int
	if _, err := fmt.Sscanf(strings.TrimPrefix(hex, "#"), "%02x%02x%02x", &r, &g, &b); err != nil {
		return [3]float64{}
	}
	return [3]float64{float64(r), float64(g), float64(b)}
}
