package magetasks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrToolMissing is wrapped by Run when the executable is not installed.
var ErrToolMissing = errors.New("tool not installed")

// PrintH1Header prints a top-level header with decoration.
func PrintH1Header(title string) {
	width := 80
	fmt.Println()
	fmt.Println(strings.Repeat("=", width))
	padding := max((width-len(title))/2, 0)
	fmt.Printf("%s%s\n", strings.Repeat(" ", padding), title)
	fmt.Println(strings.Repeat("=", width))
	fmt.Println()
}

// PrintH2Header prints a section header.
func PrintH2Header(title string) {
	fmt.Println()
	fmt.Printf("=== %s ===\n", title)
	fmt.Println()
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Printf("✅ %s\n", msg)
}

// PrintWarning prints a warning message.
func PrintWarning(msg string) {
	fmt.Printf("⚠️  %s\n", msg)
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Printf("❌ %s\n", msg)
}

// PrintInfo prints an info message.
func PrintInfo(msg string) {
	fmt.Printf("ℹ️  %s\n", msg)
}

// Run executes a tool with its output attached to the console and reports
// how it went under label. A missing executable, looked up in PATH or given
// as a path, yields an error wrapping ErrToolMissing.
func Run(label, name string, args ...string) error {
	fmt.Printf("▶ %s\n", label)
	start := time.Now()
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		PrintError(fmt.Sprintf("%s failed (%s)", label, elapsed(start)))
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", ErrToolMissing, err)
		}
		return err
	}
	PrintSuccess(fmt.Sprintf("%s (%s)", label, elapsed(start)))
	return nil
}

func elapsed(start time.Time) string {
	return time.Since(start).Round(10 * time.Millisecond).String()
}
