package infra

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[92m"
	ColorYellow = "\033[93m"
	ColorCyan   = "\033[36m"
)

var ansiEscape = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// StripANSI removes terminal escape sequences and stray control characters.
// Newlines and tabs are kept.
func StripANSI(s string) string {
	s = ansiEscape.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// Success decorates a trading success message for the terminal.
func Success(msg string) string {
	return fmt.Sprintf("%s💰 SUCCESS: %s%s", ColorGreen, msg, ColorReset)
}

// PrintBanner displays the startup banner with mode-specific warnings
func PrintBanner(cfg *Config, instruments []domain.Instrument) {
	mode := strings.ToUpper(cfg.Trading.Mode)

	color := ColorCyan
	modeDesc := "DRY RUN (NO ORDERS SENT)"
	if cfg.Trading.Mode == ModeLive {
		color = ColorRed
		modeDesc = "LIVE ORDERS ON CHAINFLIP"
	}

	pairs := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		pairs = append(pairs, inst.Pair())
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#               🚀 Chainflip LP Market Maker              #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   MODE:    %-44s #%s\n", color, mode, ColorReset)
	fmt.Printf("%s#   TYPE:    %-44s #%s\n", color, modeDesc, ColorReset)
	fmt.Printf("%s#   VERSION: %-44s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#   PAIRS:   %-44s #%s\n", color, strings.Join(pairs, ", "), ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)

	if cfg.Trading.Mode == ModeLive {
		fmt.Printf("%s#   ⚠️  WARNING: ORDERS ARE PLACED WITH REAL FUNDS  ⚠️     #%s\n", ColorRed, ColorReset)
	}

	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
