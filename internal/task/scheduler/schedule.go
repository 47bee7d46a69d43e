package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Gate decides whether a module is due for a new probe. start and now are
// offsets from the Unix epoch; start is zero for a module that never ran.
type Gate interface {
	Due(start, now time.Duration) bool
	String() string
}

// TTL gates on a minimum interval: due once now is strictly past start+ttl.
type TTL time.Duration

func (t TTL) Due(start, now time.Duration) bool { return now > start+time.Duration(t) }
func (t TTL) String() string                    { return "ttl " + time.Duration(t).String() }

type cronGate struct {
	expr  string
	sched cron.Schedule
}

// Due reports whether the first activation after start has been reached.
func (c cronGate) Due(start, now time.Duration) bool {
	next := c.sched.Next(epoch(start))
	return !epoch(now).Before(next)
}

func (c cronGate) String() string { return "cron " + c.expr }

func epoch(d time.Duration) time.Time { return time.Unix(0, int64(d)) }

// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseGate builds a module's gate: the schedule when set, the TTL otherwise.
func ParseGate(ttl time.Duration, schedule string) (Gate, error) {
	if strings.TrimSpace(schedule) == "" {
		return TTL(ttl), nil
	}
	spec, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}
	if spec.Kind == SpecInterval {
		return TTL(spec.Every), nil
	}
	s, err := cronParser.Parse(spec.Cron)
	if err != nil {
		return nil, fmt.Errorf("invalid cron %q: %w", spec.Cron, err)
	}
	return cronGate{expr: spec.Cron, sched: s}, nil
}

// SpecKind is the normalized kind of a schedule string.
type SpecKind int

const (
	SpecCron SpecKind = iota
	SpecInterval
)

// ParsedSpec is a parsed schedule string.
//
// Supported forms:
//   - Cron: "*/5 * * * *", "0 */10 * * * *", "@hourly", "@every 55m"
//   - Interval duration: "55m", "2h30m"
//   - Interval HH:MM: "00:50" (50 minutes)
//
// "cron:" forces cron parsing; "every:" forces interval parsing.
type ParsedSpec struct {
	Kind  SpecKind
	Cron  string
	Every time.Duration
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

func ParseSchedule(raw string) (ParsedSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedSpec{}, fmt.Errorf("schedule required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return ParsedSpec{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		return ParsedSpec{Kind: SpecCron, Cron: expr}, nil
	case strings.HasPrefix(low, "every:"):
		d, err := parseInterval(s[len("every:"):])
		if err != nil {
			return ParsedSpec{}, err
		}
		return ParsedSpec{Kind: SpecInterval, Every: d}, nil
	case strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@"):
		return ParsedSpec{Kind: SpecCron, Cron: s}, nil
	}

	d, err := parseInterval(s)
	if err != nil {
		return ParsedSpec{}, fmt.Errorf("invalid schedule %q (use cron like '*/5 * * * *', HH:MM like '00:30', or a duration like '10m')", raw)
	}
	return ParsedSpec{Kind: SpecInterval, Every: d}, nil
}

func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return 0, fmt.Errorf("invalid minutes in %q", v)
		}
		d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if d <= 0 {
			return 0, fmt.Errorf("interval must be > 0")
		}
		return d, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}
