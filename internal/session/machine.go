// Package session holds the state machine that walks a session's reason slots.
//
// A Machine owns one models.Session and is the only code allowed to flip slot
// flags or the session status. It does no I/O; callers load a session, drive
// the machine and persist the result.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/balkashynov/emolyzer/internal/models"
	"github.com/balkashynov/emolyzer/internal/oracle"
)

// ErrInvariantViolation marks an illegal transition or corrupted slot state
var ErrInvariantViolation = errors.New("session invariant violation")

// NoReasonsMessage is sent when a session is opened without any candidate reasons
const NoReasonsMessage = "Thanks for checking in. Nothing stands out that we need to talk through right now, but I'm here whenever you want to chat."

// Resolution is what close writes onto a session
type Resolution struct {
	Status           models.SessionStatus
	Title            string
	Summary          string
	IdentifiedReason string
	SeverityScore    *int
}

// Machine drives a single session
type Machine struct {
	s *models.Session
}

// Open creates an active session with one slot per reason in the given order and
// activates the first. It returns the first assistant message: the first slot's
// probe question, or NoReasonsMessage when reasons is empty, in which case the
// session is already completed.
func Open(employeeID string, reasons []oracle.Candidate, now time.Time) (*Machine, string) {
	now = now.UTC()
	s := &models.Session{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Status:     models.StatusActive,
		StartedAt:  now,
		Slots:      make([]models.ReasonSlot, 0, len(reasons)),
	}
	for i, r := range reasons {
		s.Slots = append(s.Slots, models.ReasonSlot{
			SessionID:     s.ID,
			Rank:          i + 1,
			Reason:        strings.TrimSpace(r.Reason),
			ProbeQuestion: strings.TrimSpace(r.ProbeQuestion),
		})
	}

	m := &Machine{s: s}
	if len(s.Slots) == 0 {
		// Never leave a session active with nothing to explore
		m.mustClose(Resolution{Status: models.StatusCompleted}, now)
		return m, NoReasonsMessage
	}

	s.Slots[0].Active = true
	return m, s.Slots[0].ProbeQuestion
}

// Load wraps a stored session after checking that its slot state is coherent
func Load(s *models.Session) (*Machine, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil session", ErrInvariantViolation)
	}
	sort.SliceStable(s.Slots, func(i, j int) bool { return s.Slots[i].Rank < s.Slots[j].Rank })

	m := &Machine{s: s}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// check verifies the structural invariants: ended_at iff terminal, at most one
// active slot, active slots never asked, and asked slots form a rank-ordered prefix.
func (m *Machine) check() error {
	s := m.s
	if s.Status.IsTerminal() != (s.EndedAt != nil) {
		return m.violation("status %s with ended_at set=%t", s.Status, s.EndedAt != nil)
	}
	if s.Status != models.StatusActive && !s.Status.IsTerminal() {
		return m.violation("unknown status %q", s.Status)
	}

	active := 0
	seenOpen := false
	for i, slot := range s.Slots {
		if slot.Active {
			active++
			if slot.Asked {
				return m.violation("slot %d is both asked and active", slot.Rank)
			}
			if s.Status.IsTerminal() {
				return m.violation("terminal session has active slot %d", slot.Rank)
			}
		}
		if !slot.Asked {
			seenOpen = true
		} else if seenOpen {
			return m.violation("slot %d asked after an unasked slot", slot.Rank)
		}
		if i > 0 && slot.Rank <= s.Slots[i-1].Rank {
			return m.violation("duplicate rank %d", slot.Rank)
		}
	}
	if active > 1 {
		return m.violation("%d active slots", active)
	}

	// An active session must be probing the first unasked slot, or have none left
	if s.Status == models.StatusActive {
		if next := m.nextUnasked(); next >= 0 && !s.Slots[next].Active {
			return m.violation("slot %d is next but not active", s.Slots[next].Rank)
		}
	}
	return nil
}

// Session exposes the underlying record for persistence
func (m *Machine) Session() *models.Session {
	return m.s
}

// ID returns the session id
func (m *Machine) ID() string {
	return m.s.ID
}

// Status returns the current lifecycle status
func (m *Machine) Status() models.SessionStatus {
	return m.s.Status
}

// Active returns the slot currently being probed
func (m *Machine) Active() (models.ReasonSlot, bool) {
	if i := m.activeIndex(); i >= 0 {
		return m.s.Slots[i], true
	}
	return models.ReasonSlot{}, false
}

// CandidateReasons lists every reason in rank order
func (m *Machine) CandidateReasons() []string {
	out := make([]string, 0, len(m.s.Slots))
	for _, slot := range m.s.Slots {
		out = append(out, slot.Reason)
	}
	return out
}

// Advance concludes the active slot and activates the next unasked one.
// more is false when no slot remains and the session is ready to finalize.
func (m *Machine) Advance() (question string, more bool, err error) {
	if m.s.Status.IsTerminal() {
		return "", false, m.violation("advance on %s session", m.s.Status)
	}
	cur := m.activeIndex()
	if cur < 0 {
		return "", false, m.violation("advance with no active slot")
	}

	m.s.Slots[cur].Active = false
	m.s.Slots[cur].Asked = true

	next := m.nextUnasked()
	if next < 0 {
		return "", false, nil
	}
	m.s.Slots[next].Active = true
	return m.s.Slots[next].ProbeQuestion, true, nil
}

// NoteFollowup records one more continue judgment against the active slot
func (m *Machine) NoteFollowup() error {
	cur := m.activeIndex()
	if cur < 0 || m.s.Status.IsTerminal() {
		return m.violation("follow-up with no active slot")
	}
	m.s.Slots[cur].Followups++
	return nil
}

// FollowupsExhausted reports whether the active slot hit the follow-up cap
func (m *Machine) FollowupsExhausted(limit int) bool {
	slot, ok := m.Active()
	return ok && limit > 0 && slot.Followups >= limit
}

// Exhausted reports that no slot is active and every slot has been asked
func (m *Machine) Exhausted() bool {
	return m.activeIndex() < 0 && m.nextUnasked() < 0
}

// Close moves the session to a terminal status. Closing an already-terminal
// session changes nothing and reports changed=false.
func (m *Machine) Close(res Resolution, now time.Time) (changed bool, err error) {
	if m.s.Status.IsTerminal() {
		return false, nil
	}
	if !res.Status.IsTerminal() {
		return false, m.violation("close with non-terminal status %q", res.Status)
	}
	if res.SeverityScore != nil && (*res.SeverityScore < 1 || *res.SeverityScore > 10) {
		return false, m.violation("severity %d outside [1,10]", *res.SeverityScore)
	}

	m.mustClose(res, now)
	return true, nil
}

func (m *Machine) mustClose(res Resolution, now time.Time) {
	ended := now.UTC()
	s := m.s

	// An early close ends exploration of whatever was being probed
	if cur := m.activeIndex(); cur >= 0 {
		s.Slots[cur].Active = false
		s.Slots[cur].Asked = true
	}

	s.Status = res.Status
	s.EndedAt = &ended
	s.Title = optional(res.Title)
	if s.Title == nil {
		title := DefaultTitle(s.StartedAt)
		s.Title = &title
	}
	s.Summary = optional(res.Summary)
	s.IdentifiedReason = optional(res.IdentifiedReason)
	s.SeverityScore = res.SeverityScore
	s.IsEscalated = res.Status == models.StatusEscalated
}

func (m *Machine) activeIndex() int {
	for i, slot := range m.s.Slots {
		if slot.Active {
			return i
		}
	}
	return -1
}

func (m *Machine) nextUnasked() int {
	for i, slot := range m.s.Slots {
		if !slot.Asked && !slot.Active {
			return i
		}
		if slot.Active {
			// Slots after the active one are not next yet
			return -1
		}
	}
	return -1
}

func (m *Machine) violation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: session %s: %s", ErrInvariantViolation, m.s.ID, fmt.Sprintf(format, args...))
}

// DefaultTitle names a session that was closed without a generated title
func DefaultTitle(started time.Time) string {
	return "Wellness Check - " + started.UTC().Format("2006-01-02")
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
