package render

import (
	"fmt"
	"image/color"

	"github.com/sweeney/agent-panel/internal/logic"
	"github.com/sweeney/agent-panel/internal/status"
)

// Palette.
var (
	ColorBackground = color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
	ColorCard       = color.RGBA{R: 0x16, G: 0x21, B: 0x3e, A: 0xff}
	ColorHeader     = color.RGBA{R: 0x0f, G: 0x34, B: 0x60, A: 0xff}
	ColorText       = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	ColorDim        = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	ColorAccent     = color.RGBA{R: 0x4a, G: 0x9e, B: 0xff, A: 0xff}

	ColorNominal  = color.RGBA{R: 0x00, G: 0xff, B: 0x88, A: 0xff}
	ColorCaution  = color.RGBA{R: 0xff, G: 0xd7, B: 0x00, A: 0xff}
	ColorCritical = color.RGBA{R: 0xff, G: 0x44, B: 0x44, A: 0xff}
	ColorOffline  = ColorCritical
)

// Band classifies memory utilization.
type Band uint8

const (
	BandNominal Band = iota
	BandCaution
	BandCritical
)

func (b Band) String() string {
	switch b {
	case BandNominal:
		return "nominal"
	case BandCaution:
		return "caution"
	case BandCritical:
		return "critical"
	}
	return "unknown"
}

// Color is the indicator colour for the band.
func (b Band) Color() color.RGBA {
	switch b {
	case BandCaution:
		return ColorCaution
	case BandCritical:
		return ColorCritical
	}
	return ColorNominal
}

// MemoryBand buckets a utilization percentage: up to 60 is nominal, up to 80
// caution, anything above critical.
func MemoryBand(utilization uint32) Band {
	switch {
	case utilization > 80:
		return BandCritical
	case utilization > 60:
		return BandCaution
	default:
		return BandNominal
	}
}

func indicator(ok bool) color.RGBA {
	if ok {
		return ColorNominal
	}
	return ColorOffline
}

// FormatUptime renders seconds as "Hh Mm".
func FormatUptime(seconds uint32) string {
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}

// FormatMemory renders free/total in kilobytes.
func FormatMemory(free, total uint32) string {
	return fmt.Sprintf("%d/%d KB", free/1024, total/1024)
}

// FormatSignal renders the RSSI or a dash when unknown.
func FormatSignal(snap status.Snapshot) string {
	if !snap.HasSignal {
		return "--"
	}
	return fmt.Sprintf("%d dBm", snap.LinkSignal)
}

// Layout geometry.
const (
	margin     = 4
	cardW      = (Width - 3*margin) / 2
	cardH      = (Height - 3*margin) / 2
	dotRadius  = 5
	headerH    = 30
	footerH    = 30
	largeScale = 3
)

// BuildScene lays out a snapshot for the given mode. Unknown modes fall back
// to the dashboard.
func BuildScene(mode logic.Mode, snap status.Snapshot, title string) *Scene {
	switch mode {
	case logic.ModeDetail:
		return detailScene(snap)
	case logic.ModeLargeAddress:
		return largeAddressScene(snap)
	case logic.ModeBanner:
		return bannerScene(snap, title)
	default:
		return dashboardScene(snap)
	}
}

// card draws a titled region with a status dot and up to two text lines.
func card(s *Scene, x, y int, title string, dot color.RGBA, line1 string, line1Color color.RGBA, line2 string) {
	s.Add(
		Rect{X: x, Y: y, W: cardW, H: cardH, Color: ColorCard},
		Circle{X: x + 10, Y: y + 12, R: dotRadius, Color: dot},
		Text{X: x + 20, Y: y + 6, S: title, Color: ColorAccent, MaxWidth: cardW - 24},
		Text{X: x + 8, Y: y + 30, S: line1, Color: line1Color, MaxWidth: cardW - 12},
		Text{X: x + 8, Y: y + 52, S: line2, Color: ColorDim, MaxWidth: cardW - 12},
	)
}

func dashboardScene(snap status.Snapshot) *Scene {
	s := &Scene{Background: ColorBackground}
	left := margin
	right := 2*margin + cardW
	top := margin
	bottom := 2*margin + cardH

	linkText := "Disconnected"
	if snap.LinkConnected {
		linkText = "Connected"
	}
	card(s, left, top, "Network", indicator(snap.LinkConnected),
		linkText, indicator(snap.LinkConnected), snap.IPAddress)

	botText, botDetail := "Offline", "Waiting..."
	if snap.BotConnected {
		botText, botDetail = "Active", snap.BotState.Label()
	}
	card(s, right, top, "Bot", indicator(snap.BotConnected),
		botText, indicator(snap.BotConnected), botDetail)

	sysColor := ColorCaution
	switch {
	case snap.LinkConnected && snap.BotConnected:
		sysColor = ColorNominal
	case !snap.LinkConnected:
		sysColor = ColorOffline
	}
	card(s, left, bottom, "System", sysColor,
		snap.StateLabel, sysColor, "Up: "+FormatUptime(snap.UptimeSeconds))

	util := snap.MemoryUtilization()
	band := MemoryBand(util)
	memUsed := "--"
	if snap.TotalMemoryBytes > 0 {
		memUsed = fmt.Sprintf("%d%% Used", util)
	}
	card(s, right, bottom, "Memory", band.Color(),
		fmt.Sprintf("%d KB Free", snap.FreeMemoryBytes/1024), ColorText, memUsed)

	return s
}

func detailScene(snap status.Snapshot) *Scene {
	s := &Scene{Background: ColorBackground}
	rows := []struct{ key, val string }{
		{"Signal", FormatSignal(snap)},
		{"Address", snap.IPAddress},
		{"Uptime", FormatUptime(snap.UptimeSeconds)},
		{"Memory", FormatMemory(snap.FreeMemoryBytes, snap.TotalMemoryBytes)},
		{"State", snap.StateLabel},
	}
	const rowH = 2*lineHeight + 6
	top := (Height - len(rows)*rowH) / 2
	for i, r := range rows {
		y := top + i*rowH
		s.Add(
			Text{X: 12, Y: y, S: r.key, Color: ColorDim, Scale: 2},
			Text{X: Width - 12, Y: y, S: r.val, Color: ColorText, Scale: 2, Align: AlignRight, MaxWidth: Width - 120},
		)
	}
	return s
}

func largeAddressScene(snap status.Snapshot) *Scene {
	s := &Scene{Background: ColorBackground}
	scale := largeScale
	for scale > 1 && TextWidth(snap.IPAddress, scale) > Width-2*margin {
		scale--
	}
	y := (Height - lineHeight*scale) / 2
	s.Add(
		Rect{X: 0, Y: y - 8, W: Width, H: lineHeight*scale + 16, Color: ColorCard},
		Text{X: Width / 2, Y: y, S: snap.IPAddress, Color: indicator(snap.LinkConnected), Scale: scale, Align: AlignCenter},
		Text{X: Width / 2, Y: Height - lineHeight - margin, S: snap.StateLabel, Color: ColorDim, Align: AlignCenter},
	)
	return s
}

func bannerScene(snap status.Snapshot, title string) *Scene {
	s := &Scene{Background: ColorBackground}
	s.Add(
		Rect{X: 0, Y: 0, W: Width, H: headerH, Color: ColorHeader},
		Text{X: 10, Y: 3, S: title, Color: ColorText, Scale: 2, MaxWidth: Width - 90},
		Circle{X: Width - 60, Y: headerH / 2, R: 8, Color: indicator(snap.LinkConnected)},
		Text{X: Width - 60, Y: headerH/2 - 5, S: "W", Color: ColorBackground, Align: AlignCenter},
		Circle{X: Width - 30, Y: headerH / 2, R: 8, Color: indicator(snap.BotConnected)},
		Text{X: Width - 30, Y: headerH/2 - 5, S: "B", Color: ColorBackground, Align: AlignCenter},
		Text{X: Width / 2, Y: Height/2 - lineHeight, S: snap.StateLabel, Color: ColorText, Scale: 2, Align: AlignCenter, MaxWidth: Width - 20},
		Rect{X: 0, Y: Height - footerH, W: Width, H: 1, Color: ColorText},
	)

	linkText := "Link: --"
	if snap.LinkConnected {
		linkText = "Link: OK"
	}
	botText := "Bot: Offline"
	if snap.BotConnected {
		botText = "Bot: Active"
	}
	footerY := Height - footerH/2 - lineHeight/2
	s.Add(
		Text{X: 10, Y: footerY, S: linkText, Color: ColorText},
		Text{X: Width/2 + 10, Y: footerY, S: botText, Color: ColorText},
	)
	return s
}
