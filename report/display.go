package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = pterm.FgLightCyan
	InfoStyleBG    = pterm.NewStyle(pterm.BgLightCyan, pterm.FgBlack)
)

// displayICE displays an internal compiler error message.
func displayICE(message string) {
	ErrorStyleBG.Print("internal compiler error")
	ErrorColorFG.Println(" " + message)
	fmt.Print("This error was not supposed to happen: please open an issue.\n\n")
}

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	ErrorStyleBG.Print("fatal error")
	ErrorColorFG.Println(" " + message)
	fmt.Println()
}

// displayLowerError displays a lowering error with a banner naming its kind
// and the program it occurred in.
func displayLowerError(program string, le *LowerError) {
	displayBanner(ErrorStyleBG, le.Kind.String()+" error", program)

	if le.Func != "" {
		InfoColorFG.Print("function ")
		fmt.Println(le.Func)
	}

	if le.Construct != "" {
		InfoColorFG.Print("at ")
		fmt.Println(le.Construct)
	}

	if le.Message != "" {
		fmt.Println(le.Message)
	}

	fmt.Println()
}

// displayStdError displays a standard Go error.
func displayStdError(program string, err error) {
	ErrorStyleBG.Print(program)
	ErrorColorFG.Println(" error: " + err.Error())
}

// displayWarning displays a warning message.
func displayWarning(program, message string) {
	WarnStyleBG.Print(program)
	WarnColorFG.Println(" warning: " + message)
}

// displayInfo prints an informational message to the user.
func displayInfo(tag, message string) {
	InfoStyleBG.Print(tag)
	InfoColorFG.Println(" " + message)
}

// displayBanner displays the banner on top of error messages.
func displayBanner(style *pterm.Style, label, program string) {
	fmt.Print("\n-- ")
	style.Print(label)
	fmt.Print(" ")

	bannerLen := terminalWidth() / 2
	if bannerLen > 50 {
		bannerLen = 50
	}

	dashCount := bannerLen - len(label) - len(program) - 1
	if dashCount < 2 {
		dashCount = 2
	}

	fmt.Print(strings.Repeat("-", dashCount) + " ")
	InfoColorFG.Println(program)
}

// terminalWidth returns the width of the terminal attached to standard out or
// a sensible default if there is no terminal.
func terminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}

	return pterm.GetTerminalWidth()
}

// -----------------------------------------------------------------------------

// displayBeginPhase displays the start of a compilation phase.
func displayBeginPhase(name string) {
	InfoColorFG.Print(name + "...")
	fmt.Println()
}

// displayEndPhase displays the end of a compilation phase.
func displayEndPhase(name string, elapsed time.Duration, ok bool) {
	if ok {
		SuccessColorFG.Printf("%s done ", name)
	} else {
		ErrorColorFG.Printf("%s failed ", name)
	}

	fmt.Printf("(%.3fs)\n", elapsed.Seconds())
}

// displayCompilationFinished displays the concluding compilation message.
func displayCompilationFinished(errorCount, warnCount int, outputPath string) {
	fmt.Println()

	if errorCount == 0 {
		SuccessStyleBG.Print("success")
	} else {
		ErrorStyleBG.Print("failed")
	}

	fmt.Printf(" %d error(s), %d warning(s)\n", errorCount, warnCount)

	if errorCount == 0 && outputPath != "" {
		InfoColorFG.Print("output written to ")
		fmt.Println(outputPath)
	}
}
