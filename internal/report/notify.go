package report

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Notifier pipes the plain text report into a shell command's stdin.
type Notifier struct {
	Command string
	// Always notifies even when nothing is available.
	Always bool
}

func (n Notifier) Enabled() bool {
	return strings.TrimSpace(n.Command) != ""
}

// Send runs the command with text on stdin. It is a no-op when the notifier
// is disabled, or when available is false and Always is unset.
func (n Notifier) Send(ctx context.Context, text string, available bool) error {
	if !n.Enabled() || (!available && !n.Always) {
		return nil
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", n.Command)
	cmd.Stdin = strings.NewReader(text + "\n")
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			return fmt.Errorf("notify command failed: %w", err)
		}
		return fmt.Errorf("notify command failed: %w: %s", err, detail)
	}
	return nil
}
