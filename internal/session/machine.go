// Package session implements the client workflow state machine: a strict
// linear progression from sign-in through data load, with one backward edge
// and one global reset edge.
package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/greenatlas/wastemap/internal/model"
)

// Stage identifies the active step of the client workflow.
type Stage int

const (
	// StageUnauthenticated is the initial state, before sign-in.
	StageUnauthenticated Stage = iota
	// StageInforming collects the sector selection and phone number.
	StageInforming
	// StageInputting collects the vehicle and efficiency parameters.
	StageInputting
	// StageDataLoaded means an enrichment response has been rendered.
	StageDataLoaded
)

func (s Stage) String() string {
	switch s {
	case StageUnauthenticated:
		return "unauthenticated"
	case StageInforming:
		return "informing"
	case StageInputting:
		return "inputting"
	case StageDataLoaded:
		return "data-loaded"
	default:
		return "unknown"
	}
}

var (
	// ErrValidation is returned when the inform step is submitted with both
	// sector and phone empty.
	ErrValidation = eris.New("session: sector or phone number required")

	// ErrInvalidTransition is returned for any edge the workflow does not
	// permit.
	ErrInvalidTransition = eris.New("session: invalid transition")

	// ErrBusy is returned when a submission is attempted while another
	// request is in flight.
	ErrBusy = eris.New("session: request already in flight")

	// ErrStale is returned when an async result carries a generation older
	// than the current one; the result landed after a reset and must be
	// discarded.
	ErrStale = eris.New("session: result predates session reset")
)

// Machine owns the single active SessionStage and its session-scoped data.
// All mutations go through the mutex; one in-flight flag serializes
// submissions.
type Machine struct {
	mu         sync.Mutex
	stage      Stage
	generation uint64
	sessionID  string
	inFlight   bool
	lastError  string

	params   *model.QueryParameters
	report   *model.WasteReport
	nearest  *model.NearestResult
	location *model.Coordinate

	onTransition func(from, to Stage)
}

// Snapshot is a read-only view of the machine for display surfaces.
type Snapshot struct {
	Stage      Stage                  `json:"stage"`
	SessionID  string                 `json:"session_id,omitempty"`
	Generation uint64                 `json:"generation"`
	InFlight   bool                   `json:"in_flight"`
	LastError  string                 `json:"last_error,omitempty"`
	Params     *model.QueryParameters `json:"params,omitempty"`
	Report     *model.WasteReport     `json:"report,omitempty"`
	Nearest    *model.NearestResult   `json:"nearest,omitempty"`
	Location   *model.Coordinate      `json:"location,omitempty"`
}

// NewMachine creates a machine in StageUnauthenticated.
func NewMachine() *Machine {
	return &Machine{stage: StageUnauthenticated}
}

// OnTransition registers a hook fired on every stage change.
func (m *Machine) OnTransition(fn func(from, to Stage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = fn
}

// Stage returns the active stage.
func (m *Machine) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// Generation returns the current reset generation. Async completions capture
// it before suspending and present it back on completion.
func (m *Machine) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// SessionID returns the identifier assigned at sign-in.
func (m *Machine) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// LastError returns the most recent user-visible error message.
func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// SignIn moves Unauthenticated to Informing and assigns a session ID.
func (m *Machine) SignIn() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stage != StageUnauthenticated {
		return eris.Wrapf(ErrInvalidTransition, "sign-in from %s", m.stage)
	}
	m.sessionID = uuid.NewString()
	m.lastError = ""
	m.transition(StageInforming)
	return nil
}

// SubmitInform moves Informing to Inputting when at least one of sector or
// phone is non-empty. Otherwise the stage is unchanged and a validation
// message is attached.
func (m *Machine) SubmitInform(sector, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stage != StageInforming {
		return eris.Wrapf(ErrInvalidTransition, "inform from %s", m.stage)
	}
	if strings.TrimSpace(sector) == "" && strings.TrimSpace(phone) == "" {
		m.lastError = "please select a sector or enter a phone number"
		return ErrValidation
	}
	m.lastError = ""
	m.transition(StageInputting)
	return nil
}

// SetParams records the parameters entered during the input stage.
func (m *Machine) SetParams(p *model.QueryParameters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = p
}

// SetLocation records a device-acquired coordinate for the session.
func (m *Machine) SetLocation(c model.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.location = &c
}

// Back moves Inputting to Informing, discarding entered parameters.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stage != StageInputting {
		return eris.Wrapf(ErrInvalidTransition, "back from %s", m.stage)
	}
	m.params = nil
	m.lastError = ""
	m.transition(StageInforming)
	return nil
}

// BeginOp claims the in-flight slot and returns the generation the operation
// belongs to. ErrBusy when a request is already pending.
func (m *Machine) BeginOp() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlight {
		return 0, ErrBusy
	}
	m.inFlight = true
	return m.generation, nil
}

// EndOp releases the in-flight slot.
func (m *Machine) EndOp() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false
}

// CompleteLoad moves Inputting to DataLoaded with the enrichment result.
// Results whose generation predates the current one are rejected with
// ErrStale so a response resolving after sign-out cannot repopulate cleared
// state.
func (m *Machine) CompleteLoad(gen uint64, report *model.WasteReport, nearest *model.NearestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return ErrStale
	}
	if m.stage != StageInputting {
		return eris.Wrapf(ErrInvalidTransition, "load from %s", m.stage)
	}
	m.report = report
	m.nearest = nearest
	m.lastError = ""
	m.transition(StageDataLoaded)
	return nil
}

// Fail attaches a user-visible error message to the current stage without
// advancing it or discarding already loaded data.
func (m *Machine) Fail(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = msg
}

// SignOut resets to Unauthenticated from any stage, bumps the generation so
// pending results become stale, and clears all session-scoped data.
func (m *Machine) SignOut() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.sessionID = ""
	m.params = nil
	m.report = nil
	m.nearest = nil
	m.location = nil
	m.lastError = ""
	if m.stage != StageUnauthenticated {
		m.transition(StageUnauthenticated)
	}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Stage:      m.stage,
		SessionID:  m.sessionID,
		Generation: m.generation,
		InFlight:   m.inFlight,
		LastError:  m.lastError,
		Params:     m.params,
		Report:     m.report,
		Nearest:    m.nearest,
		Location:   m.location,
	}
}

// transition changes the stage and fires the hook. Callers hold mu.
func (m *Machine) transition(to Stage) {
	from := m.stage
	m.stage = to
	if m.onTransition != nil {
		m.onTransition(from, to)
	}
}
