// Package location acquires the host's current coordinates through a chain
// of providers, classifying failures so a submission can proceed without a
// device location.
package location

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenatlas/wastemap/internal/model"
)

// Classified failures. All are non-fatal: the caller submits without a
// device location and the backend falls back to the sector centroid.
var (
	ErrPermissionDenied = eris.New("location: permission denied")
	ErrUnavailable      = eris.New("location: position unavailable")
	ErrUnsupported      = eris.New("location: no provider on this platform")
)

// Status tracks the lifecycle of a location request.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RequestState is the observable state of the most recent request.
type RequestState struct {
	Status     Status            `json:"status"`
	Fix        *model.Coordinate `json:"fix,omitempty"`
	ErrMessage string            `json:"error,omitempty"`
}

// Provider is a single source of host coordinates.
type Provider interface {
	Name() string
	Available() bool
	Locate(ctx context.Context) (model.Coordinate, error)
}

// Acquirer tries providers in order and keeps the last good fix. A failed
// request records its classified message but never erases a previously
// successful fix.
type Acquirer struct {
	mu        sync.Mutex
	providers []Provider
	status    Status
	fix       *model.Coordinate
	errMsg    string
}

// NewAcquirer creates an Acquirer over the given provider chain.
func NewAcquirer(providers ...Provider) *Acquirer {
	return &Acquirer{providers: providers}
}

// Request asks each available provider for a position until one succeeds.
// On success the fix is stored and any prior error cleared. On failure the
// classified error is recorded and the prior fix, if any, is left untouched.
func (a *Acquirer) Request(ctx context.Context) (model.Coordinate, error) {
	a.mu.Lock()
	a.status = StatusPending
	providers := a.providers
	a.mu.Unlock()

	var lastErr error
	anyAvailable := false
	for _, p := range providers {
		if !p.Available() {
			continue
		}
		anyAvailable = true

		fix, err := p.Locate(ctx)
		if err != nil {
			zap.L().Debug("location: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if err := fix.Validate(); err != nil {
			lastErr = eris.Wrapf(ErrUnavailable, "provider %s: %v", p.Name(), err)
			continue
		}

		a.mu.Lock()
		a.status = StatusSucceeded
		a.fix = &fix
		a.errMsg = ""
		a.mu.Unlock()
		return fix, nil
	}

	if !anyAvailable {
		lastErr = ErrUnsupported
	} else if lastErr == nil {
		lastErr = ErrUnavailable
	}

	a.mu.Lock()
	a.status = StatusFailed
	a.errMsg = lastErr.Error()
	a.mu.Unlock()
	return model.Coordinate{}, lastErr
}

// Fix returns the last successful fix, if any.
func (a *Acquirer) Fix() (model.Coordinate, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fix == nil {
		return model.Coordinate{}, false
	}
	return *a.fix, true
}

// State returns a copy of the observable request state.
func (a *Acquirer) State() RequestState {
	a.mu.Lock()
	defer a.mu.Unlock()
	state := RequestState{Status: a.status, ErrMessage: a.errMsg}
	if a.fix != nil {
		fix := *a.fix
		state.Fix = &fix
	}
	return state
}

// Reset drops the fix and request state, for session sign-out.
func (a *Acquirer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = StatusIdle
	a.fix = nil
	a.errMsg = ""
}

// StaticProvider serves coordinates pinned in configuration. It stands in
// for a device position on hosts without a location service.
type StaticProvider struct {
	fix model.Coordinate
	set bool
}

// NewStaticProvider creates a StaticProvider; a zero coordinate pair means
// no position is configured and the provider reports itself unavailable.
func NewStaticProvider(lat, lon float64) *StaticProvider {
	return &StaticProvider{
		fix: model.Coordinate{Lat: lat, Lon: lon},
		set: lat != 0 || lon != 0,
	}
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return "static" }

// Available implements Provider.
func (p *StaticProvider) Available() bool { return p.set }

// Locate implements Provider.
func (p *StaticProvider) Locate(_ context.Context) (model.Coordinate, error) {
	if err := p.fix.Validate(); err != nil {
		return model.Coordinate{}, eris.Wrapf(ErrUnavailable, "static: %v", err)
	}
	return p.fix, nil
}
