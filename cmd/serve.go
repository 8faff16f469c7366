package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/greenatlas/wastemap/internal/flow"
	"github.com/greenatlas/wastemap/internal/maprender"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session viewer server",
	Long:  "Exposes the live session state and the latest rendered route as JSON and KML, for a browser map viewer.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, renderer, err := buildFlow()
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           viewerRouter(f, renderer),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting viewer server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down viewer server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// viewerRouter serves the session snapshot and the latest rendered route.
// The map surface signals readiness by POSTing /ready once it has mounted.
func viewerRouter(f *flow.Flow, renderer *maprender.Renderer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/session", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, f.Machine().Snapshot())
	})

	r.Get("/location", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, f.Acquirer().State())
	})

	r.Post("/ready", func(w http.ResponseWriter, _ *http.Request) {
		renderer.Ready()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/map.json", func(w http.ResponseWriter, _ *http.Request) {
		ins := renderer.Latest()
		if ins == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no route rendered yet"})
			return
		}
		writeJSON(w, http.StatusOK, ins)
	})

	r.Get("/map.kml", func(w http.ResponseWriter, _ *http.Request) {
		ins := renderer.Latest()
		if ins == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no route rendered yet"})
			return
		}
		data, err := maprender.KML(ins)
		if err != nil {
			zap.L().Error("kml encode failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "kml encoding failed"})
			return
		}
		w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
		_, _ = w.Write(data)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
