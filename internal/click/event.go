// Package click reads swaybar/i3bar click events from stdin and dispatches
// them to the clicked module's action.
package click

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed click event")

// Event is one click as sent by the bar. Only Instance is used for routing.
type Event struct {
	Name      string   `json:"name"`
	Instance  string   `json:"instance"`
	Button    int      `json:"button"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	RelativeX int      `json:"relative_x"`
	RelativeY int      `json:"relative_y"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// Decode parses one line of the click stream. The bar prefixes every event
// after the first with a comma; it is stripped along with surrounding space.
func Decode(line []byte) (Event, error) {
	line = bytes.TrimSpace(line)
	line = bytes.TrimSpace(bytes.TrimPrefix(line, []byte(",")))
	if len(line) == 0 || line[0] != '{' {
		return Event{}, fmt.Errorf("%w: %q", ErrMalformed, truncate(line, 64))
	}
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ev, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
