// Package workflow implements the assessment status lifecycle.
package workflow

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Status is the lifecycle state of an assessment. It is stored and
// serialized by name.
type Status string

const (
	Draft      Status = "Draft"
	InProgress Status = "InProgress"
	Submitted  Status = "Submitted"
	Assigned   Status = "Assigned"
	Approved   Status = "Approved"
	Rejected   Status = "Rejected"
	SentBack   Status = "SentBack"
)

var statuses = []Status{Draft, InProgress, Submitted, Assigned, Approved, Rejected, SentBack}

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

// ParseStatus resolves a status name, ignoring case and separators.
func ParseStatus(s string) (Status, error) {
	norm := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range statuses {
		if strings.ToLower(string(st)) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown assessment status %q", s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

// EditableByAssessor reports whether the owning assessor may save or submit.
func (s Status) EditableByAssessor() bool {
	switch s {
	case Draft, InProgress, Assigned, SentBack, Rejected:
		return true
	default:
		return false
	}
}

// Label is the human readable form used in reports.
func (s Status) Label() string {
	switch s {
	case InProgress:
		return "In Progress"
	case SentBack:
		return "Sent Back"
	case "":
		return "-"
	default:
		return string(s)
	}
}

// Value implements driver.Valuer so gorm stores the name.
func (s Status) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = Status(v)
	case []byte:
		*s = Status(v)
	case nil:
		*s = Draft
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	return nil
}
