package device

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial"
)

var ErrNoPort = errors.New("no matching serial port")

// ResolvePort returns configured when set. Otherwise it picks the first
// attached port whose name contains one of hints and is not already taken by
// another lane.
func ResolvePort(configured string, hints []string, taken map[string]bool) (string, error) {
	if configured != "" {
		return configured, nil
	}

	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	return pickPort(ports, hints, taken)
}

func pickPort(ports, hints []string, taken map[string]bool) (string, error) {
	for _, hint := range hints {
		for _, p := range ports {
			if taken[p] {
				continue
			}
			if strings.Contains(p, hint) {
				return p, nil
			}
		}
	}
	return "", ErrNoPort
}
