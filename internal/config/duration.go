package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Duration is a time.Duration that decodes from integer milliseconds or a Go
// duration string. It encodes back as a duration string.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseDurationField("duration", s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}

	var ms json.Number
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("duration: expected milliseconds or string, got %s", string(b))
	}
	n, err := ms.Int64()
	if err != nil {
		f, ferr := ms.Float64()
		if ferr != nil {
			return fmt.Errorf("duration: invalid number %s", string(b))
		}
		n = int64(f)
	}
	if n < 0 {
		return fmt.Errorf("duration: must be >= 0")
	}
	*d = Duration(time.Duration(n) * time.Millisecond)
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
