package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"hermes/pkg/models"
)

// ASCIILogo is printed at the top of interactive commands
const ASCIILogo = `
    ╔══════════════════════════════════════════════════╗
    ║ ██╗  ██╗███████╗██████╗ ███╗   ███╗███████╗███████╗ ║
    ║ ██║  ██║██╔════╝██╔══██╗████╗ ████║██╔════╝██╔════╝ ║
    ║ ███████║█████╗  ██████╔╝██╔████╔██║█████╗  ███████╗ ║
    ║ ██╔══██║██╔══╝  ██╔══██╗██║╚██╔╝██║██╔══╝  ╚════██║ ║
    ║ ██║  ██║███████╗██║  ██║██║ ╚═╝ ██║███████╗███████║ ║
    ║ ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═╝     ╚═╝╚══════╝╚══════╝ ║
    ║          TIKTOK USERNAME DISCOVERY MONITOR          ║
    ╚══════════════════════════════════════════════════╝
`

// ANSI wrappers shared by the console helpers, the plain display and the notifier
var (
	Cyan    = ansi("36")
	Yellow  = ansi("33")
	Red     = ansi("31")
	Green   = ansi("32")
	Magenta = ansi("35")
	Dim     = ansi("2")
)

func ansi(code string) func(string) string {
	return func(text string) string {
		return "\033[" + code + "m" + text + "\033[0m"
	}
}

var (
	consoleOut   io.Writer = os.Stdout
	consoleColor           = true
)

// SetConsole redirects the Print helpers to w. With color false they write
// plain text, which is what pipes and log files want.
func SetConsole(w io.Writer, color bool) {
	consoleOut = w
	consoleColor = color
}

func tint(fn func(string) string, s string) string {
	if !consoleColor {
		return s
	}
	return fn(s)
}

// PrintLogo prints the banner
func PrintLogo() {
	fmt.Fprint(consoleOut, tint(Cyan, ASCIILogo))
}

// PrintError prints msg in red, followed by any detail separated by ": "
func PrintError(msg string, detail ...string) {
	parts := append([]string{msg}, detail...)
	fmt.Fprintln(consoleOut, tint(Red, strings.Join(parts, ": ")))
}

func PrintSuccess(msg string) {
	fmt.Fprintln(consoleOut, tint(Green, msg))
}

func PrintWarning(msg string) {
	fmt.Fprintln(consoleOut, tint(Yellow, msg))
}

// PrintInfo prints a "label: value" pair
func PrintInfo(label, value string) {
	fmt.Fprintf(consoleOut, "%s: %s\n", tint(Cyan, label), tint(Yellow, value))
}

func PrintHeading(msg string) {
	fmt.Fprintln(consoleOut, tint(Magenta, msg))
}

// PrintAccounts prints a heading with the count and one detail block per
// account, in the order given
func PrintAccounts(accounts []models.UserAccount) {
	PrintHeading(fmt.Sprintf("Found usernames (%d)", len(accounts)))
	for _, a := range accounts {
		fmt.Fprintln(consoleOut, FormatAccount(a, consoleColor))
		fmt.Fprintln(consoleOut, Separator)
	}
}

// PrintProxies lists proxies with their credentials masked
func PrintProxies(proxies []models.Proxy) {
	for i, px := range proxies {
		fmt.Fprintf(consoleOut, "  %2d. %s\n", i+1, tint(Dim, px.String()))
	}
}
