package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Weekdays is a set of weekday indices, 0 = Sunday ... 6 = Saturday.
// It is stored as JSON text ("[1,3,5]"); an empty set is stored as NULL.
type Weekdays []int

// ParseWeekdays parses a comma separated list such as "1,3,5".
func ParseWeekdays(raw string) (Weekdays, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var days Weekdays
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, n)
	}
	return days, days.Validate()
}

// Validate checks that every index is within 0..6.
func (w Weekdays) Validate() error {
	for _, d := range w {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekday %d out of range 0-6", d)
		}
	}
	return nil
}

// Contains reports whether day is in the set.
func (w Weekdays) Contains(day int) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}

// Equal compares two sets ignoring order and duplicates.
func (w Weekdays) Equal(other Weekdays) bool {
	a, b := w.normalized(), other.normalized()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (w Weekdays) normalized() []int {
	seen := make(map[int]struct{}, len(w))
	out := make([]int, 0, len(w))
	for _, d := range w {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// String renders the set as "1,3,5".
func (w Weekdays) String() string {
	parts := make([]string, len(w))
	for i, d := range w {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// GormDataType keeps the column as text across dialects.
func (Weekdays) GormDataType() string {
	return "text"
}

// Value implements driver.Valuer.
func (w Weekdays) Value() (driver.Value, error) {
	if len(w) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]int(w))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (w *Weekdays) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan weekdays: unsupported type %T", src)
	}
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		*w = nil
		return nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		return fmt.Errorf("scan weekdays: %w", err)
	}
	if len(days) == 0 {
		*w = nil
		return nil
	}
	*w = days
	return nil
}
