package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/greenatlas/wastemap/internal/flow"
	"github.com/greenatlas/wastemap/internal/location"
	"github.com/greenatlas/wastemap/internal/maprender"
	"github.com/greenatlas/wastemap/internal/model"
	"github.com/greenatlas/wastemap/internal/sector"
	"github.com/greenatlas/wastemap/internal/session"
	"github.com/greenatlas/wastemap/pkg/enrich"
	"github.com/greenatlas/wastemap/pkg/identity"
)

// logSurface is the headless map surface: render passes are logged instead
// of drawn, and the instruction set stays retrievable through the renderer.
type logSurface struct{}

func (logSurface) Init(center model.Coordinate, zoom int) {
	zap.L().Info("map surface mounted",
		zap.Float64("lat", center.Lat),
		zap.Float64("lon", center.Lon),
		zap.Int("zoom", zoom),
	)
}

func (logSurface) Render(ins *maprender.Instructions) {
	zap.L().Info("map rendered",
		zap.Int("markers", len(ins.Markers)),
		zap.String("nearest", ins.Nearest.Facility.Name),
		zap.Float64("distance_km", ins.Nearest.DistanceKm),
	)
}

// buildFlow wires the session collaborators from configuration.
func buildFlow() (*flow.Flow, *maprender.Renderer, error) {
	catalog, err := sector.Load(cfg.Sector.CatalogPath)
	if err != nil {
		return nil, nil, err
	}

	idClient := identity.NewClient(cfg.Auth.BaseURL, cfg.Auth.APIKey)

	enrichClient := enrich.NewClient(cfg.API.BaseURL,
		enrich.WithCacheTTL(time.Duration(cfg.API.CacheTTLSecs)*time.Second),
		enrich.WithRateLimit(time.Duration(cfg.API.RateLimitSecs)*time.Second),
	)

	var providers []location.Provider
	providers = append(providers, location.NewStaticProvider(cfg.Location.StaticLat, cfg.Location.StaticLon))
	if cfg.Location.UseIP {
		var ipOpts []location.IPOption
		if cfg.Location.IPBaseURL != "" {
			ipOpts = append(ipOpts, location.WithIPBaseURL(cfg.Location.IPBaseURL))
		}
		providers = append(providers, location.NewIPProvider(ipOpts...))
	}

	renderer := maprender.NewRenderer(logSurface{})
	machine := session.NewMachine()
	machine.OnTransition(func(from, to session.Stage) {
		zap.L().Debug("session transition",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	})

	f := flow.New(idClient, enrichClient, location.NewAcquirer(providers...), renderer, machine, catalog, cfg.Map.Zoom)
	return f, renderer, nil
}
