package bot

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultCodeLimit = 10
	maxCodeLimit     = 50
)

// ParseCodesArgs parses the arguments of /codes.
// Format: <game> [limit]
func ParseCodesArgs(args string) (string, int, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return "", 0, fmt.Errorf("usage: /codes <game> [n]")
	}
	if len(parts) > 2 {
		return "", 0, fmt.Errorf("usage: /codes <game> [n]")
	}

	limit := defaultCodeLimit
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 || n > maxCodeLimit {
			return "", 0, fmt.Errorf("n must be between 1 and %d", maxCodeLimit)
		}
		limit = n
	}
	return strings.ToLower(parts[0]), limit, nil
}
