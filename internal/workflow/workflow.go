package workflow

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized is returned when the actor may not perform the action
	// on the assessment in its current state. Callers treat it as an access
	// failure, not a lifecycle error.
	ErrUnauthorized = errors.New("not authorized to modify assessment")

	// ErrInvalidTransition is returned when an authorized actor asks for a
	// transition the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Role is the staff role of an actor.
type Role string

const (
	RoleAssessor Role = "assessor"
	RoleLead     Role = "lead"
)

// Actor is the staff member performing an action.
type Actor struct {
	ID   uint
	Name string
	Role Role
}

// IsLead reports whether the actor holds the lead role.
func (a Actor) IsLead() bool { return a.Role == RoleLead }

// Action is a lifecycle operation.
type Action string

const (
	Save     Action = "save"
	Submit   Action = "submit"
	Approve  Action = "approve"
	Reject   Action = "reject"
	SendBack Action = "send_back"
	Assign   Action = "assign"
	LeadEdit Action = "lead_edit"
)

// ParseDecision maps a review decision to its action.
func ParseDecision(s string) (Action, error) {
	switch Action(s) {
	case Approve, Reject, SendBack:
		return Action(s), nil
	case "sendback", "send-back":
		return SendBack, nil
	}
	return "", fmt.Errorf("unknown review decision %q", s)
}

// State is the part of an assessment the lifecycle reads and writes.
type State struct {
	Status      Status
	AssessorID  uint
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
}

// Request carries an action and its arguments.
type Request struct {
	Action Action
	Actor  Actor
	// NewAssessorID is the assignee for Assign.
	NewAssessorID uint
	At            time.Time
}

// Apply performs req on st. On error st is left unchanged.
func Apply(st *State, req Request) error {
	next := *st
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	switch req.Action {
	case Save, Submit:
		// Submit carries the final answer update, so it is accepted from every
		// editable status as an implicit save, not only from InProgress.
		if !canEdit(*st, req.Actor) {
			return fmt.Errorf("%w: %s while %s", ErrUnauthorized, req.Action, st.Status.Label())
		}
		next.Status = InProgress
		if req.Action == Submit {
			next.Status = Submitted
			next.SubmittedAt = &at
		}

	case Approve, Reject, SendBack:
		if !req.Actor.IsLead() {
			return fmt.Errorf("%w: %s requires the lead role", ErrUnauthorized, req.Action)
		}
		if st.Status != Submitted {
			return fmt.Errorf("%w: cannot %s an assessment that is %s", ErrInvalidTransition, req.Action, st.Status.Label())
		}
		next.Status = reviewTarget(req.Action)
		next.ReviewedAt = &at

	case Assign:
		if !req.Actor.IsLead() {
			return fmt.Errorf("%w: assign requires the lead role", ErrUnauthorized)
		}
		if req.NewAssessorID == 0 {
			return fmt.Errorf("%w: assign without an assessor", ErrInvalidTransition)
		}
		next.Status = Assigned
		next.AssessorID = req.NewAssessorID

	case LeadEdit:
		if !req.Actor.IsLead() {
			return fmt.Errorf("%w: lead edit requires the lead role", ErrUnauthorized)
		}
		next.Status = InProgress
		next.AssessorID = req.Actor.ID

	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, req.Action)
	}

	*st = next
	return nil
}

// canEdit allows the owning assessor, or a lead who has taken over the
// assessment, to change answers while the status permits it.
func canEdit(st State, actor Actor) bool {
	if !st.Status.EditableByAssessor() {
		return false
	}
	return actor.ID != 0 && actor.ID == st.AssessorID
}

func reviewTarget(a Action) Status {
	switch a {
	case Approve:
		return Approved
	case Reject:
		return Rejected
	default:
		return SentBack
	}
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsInvalidTransition reports whether err is a lifecycle failure.
func IsInvalidTransition(err error) bool { return errors.Is(err, ErrInvalidTransition) }
