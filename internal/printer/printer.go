package printer

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow to stderr
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Fprintf(os.Stderr, "⚠️  %s", msg)
	} else {
		yellow.Fprint(os.Stderr, msg)
	}
}

// Step prints a step message with emphasis
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Error prints a title, explanation and suggestions to stderr and returns an
// error carrying only the title, for cobra with SilenceErrors set.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	fmt.Fprintf(os.Stderr, "%s\n", explanation)
	printSuggestions(suggestions)

	return &reportedError{title: title}
}

// reportedError is returned by Error and ErrorWithContext once the details
// have been written.
type reportedError struct {
	title string
}

func (e *reportedError) Error() string {
	return e.title
}

// IsReported checks if err was already printed by Error or ErrorWithContext.
func IsReported(err error) bool {
	var reported *reportedError
	return errors.As(err, &reported)
}

// ErrorWithContext is Error with key/value details printed after the
// explanation, sorted by key.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(os.Stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for key := range context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(os.Stderr, "\n")
		for _, key := range keys {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", key, context[key])
		}
	}
	printSuggestions(suggestions)

	return &reportedError{title: title}
}

func printSuggestions(suggestions []string) {
	switch len(suggestions) {
	case 0:
		return
	case 1:
		fmt.Fprintf(os.Stderr, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(os.Stderr, "\nEither:\n")
		for i, suggestion := range suggestions {
			fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
		}
	}
}
