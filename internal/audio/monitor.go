package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultMonitorSource asks PulseAudio for the default sink and returns the
// name of its monitor source, which is what the assistant-playback capture
// stream should open.
func DefaultMonitorSource(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "pactl", "get-default-sink").Output()
	if err != nil {
		return "", fmt.Errorf("pactl get-default-sink: %w", err)
	}

	sink := strings.TrimSpace(string(out))
	if sink == "" {
		return "", fmt.Errorf("pactl returned no default sink")
	}

	monitor := sink + ".monitor"
	if err := sourceExists(ctx, monitor); err != nil {
		return "", err
	}
	return monitor, nil
}

func sourceExists(ctx context.Context, name string) error {
	out, err := exec.CommandContext(ctx, "pactl", "list", "short", "sources").Output()
	if err != nil {
		return fmt.Errorf("pactl list sources: %w", err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return nil
		}
	}
	return fmt.Errorf("monitor source %q not present", name)
}
