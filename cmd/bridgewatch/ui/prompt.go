package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Confirm asks a yes/no question on stderr and reads the answer from stdin.
// Defaults to no. Non-interactive terminals always answer no.
func Confirm(question string) bool {
	if IsNoInteraction() {
		return false
	}

	fmt.Fprintf(os.Stderr, "%s %s ", WarnStyle.Render("?"), question+" [y/N]")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
