package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Instant is the single internal representation of a point in time:
// milliseconds since the Unix epoch (UTC).
//
// Catalog data arrives with dates in several shapes (epoch numbers, RFC 3339
// strings, plain "YYYY-MM-DD" dates, and structured {seconds, nanoseconds}
// timestamp objects). All of them are converted to an Instant when decoded,
// so ordering and expiry checks only ever compare Instants.
type Instant int64

const dateOnly = "2006-01-02"

// InstantOf converts a time.Time into an Instant.
func InstantOf(t time.Time) Instant {
	if t.IsZero() {
		return 0
	}
	return Instant(t.UnixMilli())
}

// Now returns the current wall-clock Instant.
func Now() Instant { return InstantOf(time.Now()) }

// IsZero reports whether the instant is unset.
func (i Instant) IsZero() bool { return i == 0 }

// Time converts the instant back to a UTC time.Time.
func (i Instant) Time() time.Time {
	if i == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(i)).UTC()
}

// Before reports whether i is strictly before o.
func (i Instant) Before(o Instant) bool { return i < o }

// After reports whether i is strictly after o.
func (i Instant) After(o Instant) bool { return i > o }

func (i Instant) String() string {
	if i == 0 {
		return ""
	}
	return i.Time().Format(time.RFC3339)
}

// MarshalJSON writes the instant as epoch milliseconds so the durable mirror
// round-trips without loss.
func (i Instant) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(i), 10)), nil
}

// structuredTimestamp is the object form some backends emit for timestamps.
type structuredTimestamp struct {
	Seconds      *int64 `json:"seconds"`
	Nanoseconds  int64  `json:"nanoseconds"`
	USeconds     *int64 `json:"_seconds"`
	UNanoseconds int64  `json:"_nanoseconds"`
}

func (i *Instant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid instant: %w", err)
		}
		v, err := ParseInstant(s)
		if err != nil {
			return err
		}
		*i = v
		return nil

	case '{':
		var ts structuredTimestamp
		if err := json.Unmarshal(data, &ts); err != nil {
			return fmt.Errorf("invalid timestamp object: %w", err)
		}
		switch {
		case ts.Seconds != nil:
			*i = fromSeconds(*ts.Seconds, ts.Nanoseconds)
		case ts.USeconds != nil:
			*i = fromSeconds(*ts.USeconds, ts.UNanoseconds)
		default:
			return fmt.Errorf("timestamp object without seconds: %s", data)
		}
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid instant %s: %w", data, err)
	}
	*i = Instant(int64(ms))
	return nil
}

// MarshalYAML writes the instant as an RFC 3339 timestamp.
func (i Instant) MarshalYAML() (interface{}, error) {
	if i == 0 {
		return nil, nil
	}
	return i.Time().Format(time.RFC3339), nil
}

func (i *Instant) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: instant must be a scalar", value.Line)
	}
	if value.Tag == "!!null" || value.Value == "" {
		*i = 0
		return nil
	}
	if value.Tag == "!!int" {
		ms, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*i = Instant(ms)
		return nil
	}
	v, err := ParseInstant(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*i = v
	return nil
}

// ParseInstant accepts RFC 3339 timestamps, plain dates and epoch
// milliseconds written as a string.
func ParseInstant(s string) (Instant, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return InstantOf(t), nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return InstantOf(t), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Instant(ms), nil
	}
	return 0, fmt.Errorf("unrecognized instant %q", s)
}

func fromSeconds(sec, nsec int64) Instant {
	return Instant(sec*1000 + nsec/int64(time.Millisecond))
}
