// Package flow orchestrates the client session: sign-in, the inform and
// parameter-input steps, backend submission, and route rendering.
package flow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenatlas/wastemap/internal/location"
	"github.com/greenatlas/wastemap/internal/maprender"
	"github.com/greenatlas/wastemap/internal/model"
	"github.com/greenatlas/wastemap/internal/session"
	"github.com/greenatlas/wastemap/pkg/enrich"
	"github.com/greenatlas/wastemap/pkg/identity"

	sectorcat "github.com/greenatlas/wastemap/internal/sector"
)

// Flow drives one client session end to end.
type Flow struct {
	identity identity.Client
	enrich   enrich.Client
	acquirer *location.Acquirer
	renderer *maprender.Renderer
	machine  *session.Machine
	catalog  *sectorcat.Catalog
	zoom     int
}

// New creates a Flow over the given collaborators and logs auth-state
// changes for the life of the session.
func New(
	idClient identity.Client,
	enrichClient enrich.Client,
	acquirer *location.Acquirer,
	renderer *maprender.Renderer,
	machine *session.Machine,
	catalog *sectorcat.Catalog,
	zoom int,
) *Flow {
	f := &Flow{
		identity: idClient,
		enrich:   enrichClient,
		acquirer: acquirer,
		renderer: renderer,
		machine:  machine,
		catalog:  catalog,
		zoom:     zoom,
	}
	idClient.Subscribe(func(u *identity.User) {
		if u != nil {
			zap.L().Info("auth state changed", zap.String("user", u.Email))
		} else {
			zap.L().Info("auth state changed", zap.String("user", "none"))
		}
	})
	return f
}

// Machine exposes the state machine for display surfaces.
func (f *Flow) Machine() *session.Machine { return f.machine }

// Acquirer exposes the location acquirer state.
func (f *Flow) Acquirer() *location.Acquirer { return f.acquirer }

// SignIn authenticates and advances the session to the informing stage. A
// provider failure attaches a message and leaves the stage unchanged.
func (f *Flow) SignIn(ctx context.Context, email, password string) error {
	user, err := f.identity.SignIn(ctx, email, password)
	if err != nil {
		f.machine.Fail("sign-in failed: " + eris.Cause(err).Error())
		return err
	}
	if err := f.machine.SignIn(); err != nil {
		return err
	}
	zap.L().Info("signed in",
		zap.String("user", user.Email),
		zap.String("session", f.machine.SessionID()),
	)
	return nil
}

// Inform submits the inform step: at least one of sector or phone must be
// non-empty to advance to parameter input.
func (f *Flow) Inform(sector, phone string) error {
	if err := f.machine.SubmitInform(sector, phone); err != nil {
		return err
	}
	zap.L().Info("inform step accepted", zap.String("sector", sector))
	return nil
}

// Back returns from parameter input to the informing stage.
func (f *Flow) Back() error {
	return f.machine.Back()
}

// AcquireLocation requests the host position. Failures are classified and
// non-fatal: submission proceeds without a device location.
func (f *Flow) AcquireLocation(ctx context.Context) (model.Coordinate, error) {
	fix, err := f.acquirer.Request(ctx)
	if err != nil {
		zap.L().Warn("location acquisition failed", zap.Error(err))
		return model.Coordinate{}, err
	}
	f.machine.SetLocation(fix)
	zap.L().Info("location acquired",
		zap.Float64("lat", fix.Lat),
		zap.Float64("lon", fix.Lon),
	)
	return fix, nil
}

// Submit sends the assembled query to the backend and, on success, renders
// the nearest-facility route. Only one submission may be in flight; a result
// that resolves after sign-out is discarded.
func (f *Flow) Submit(ctx context.Context, params model.QueryParameters) (*maprender.Instructions, error) {
	log := zap.L().With(zap.String("sector", params.Sector))

	if err := params.Validate(); err != nil {
		f.machine.Fail(eris.Cause(err).Error())
		return nil, err
	}

	gen, err := f.machine.BeginOp()
	if err != nil {
		return nil, err
	}
	defer f.machine.EndOp()

	// Precedence: a device fix present at submission time is sent as the
	// user location; otherwise the backend falls back to the centroid.
	if fix, ok := f.acquirer.Fix(); ok {
		params.Location = &fix
		f.machine.SetLocation(fix)
	}
	f.machine.SetParams(&params)

	req := enrich.Request{
		State:                params.Sector,
		Country:              params.Country,
		CollectionEfficiency: params.CollectionEfficiency,
		Mileage:              params.MileageKmPerLiter,
		PetrolLeft:           params.PetrolLeftPercent,
	}
	if params.Location != nil {
		req.UserLocation = &enrich.UserLocation{
			Latitude:  params.Location.Lat,
			Longitude: params.Location.Lon,
		}
	}

	report, err := f.enrich.FetchWasteData(ctx, req)
	if err != nil {
		log.Error("backend fetch failed", zap.Error(err))
		f.machine.Fail("could not load waste data: " + eris.Cause(err).Error())
		return nil, err
	}

	ref, refOK := f.referencePoint(report, params)
	var ins *maprender.Instructions
	var nearest *model.NearestResult
	if refOK {
		built, buildErr := maprender.Build(ref, f.catalog.DisplayName(params.Sector), report.Data.Coordinates.Facilities(), f.zoom)
		if buildErr != nil {
			// Defensive: bad backend geometry kills this render cycle
			// only. The data still loads; the route is skipped.
			log.Warn("route rendering skipped", zap.Error(buildErr))
		} else {
			ins = built
			n := built.Nearest
			nearest = &n
		}
	} else {
		log.Warn("no reference point available, route rendering skipped")
	}

	if err := f.machine.CompleteLoad(gen, report, nearest); err != nil {
		if eris.Is(err, session.ErrStale) {
			log.Info("discarding response that arrived after session reset")
		}
		return nil, err
	}

	if ins != nil {
		f.renderer.Show(ins)
	} else {
		f.machine.Fail("no disposal facilities could be placed on the map")
	}

	log.Info("waste data loaded",
		zap.Int("facilities", len(report.Data.Coordinates.Landfills)),
		zap.Int("routes", len(report.RouteDetails)),
	)
	return ins, nil
}

// SignOut ends the session and clears all session-scoped state. A provider
// failure attaches a message and leaves the session intact.
func (f *Flow) SignOut(ctx context.Context) error {
	if err := f.identity.SignOut(ctx); err != nil {
		f.machine.Fail("sign-out failed: " + eris.Cause(err).Error())
		return err
	}
	f.machine.SignOut()
	f.acquirer.Reset()
	f.renderer.Clear()
	zap.L().Info("signed out")
	return nil
}

// referencePoint picks the map reference: the backend's state center first,
// then the catalog centroid, then the device fix.
func (f *Flow) referencePoint(report *model.WasteReport, params model.QueryParameters) (model.Coordinate, bool) {
	if center, ok := report.Data.Coordinates.StateCenter(); ok {
		return center, true
	}
	if entry, ok := f.catalog.Lookup(params.Sector); ok {
		return model.Coordinate{Lat: entry.Lat, Lon: entry.Lon}, true
	}
	if params.Location != nil {
		return *params.Location, true
	}
	return model.Coordinate{}, false
}
