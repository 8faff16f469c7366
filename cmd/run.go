package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenatlas/wastemap/internal/maprender"
	"github.com/greenatlas/wastemap/internal/model"
)

var (
	runEmail      string
	runPassword   string
	runSector     string
	runPhone      string
	runCountry    string
	runEfficiency int
	runMileage    float64
	runPetrol     int
	runLocate     bool
	runOut        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full session: sign in, submit a query, render the route",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}
		ctx := cmd.Context()

		f, renderer, err := buildFlow()
		if err != nil {
			return err
		}
		renderer.Ready()

		if err := f.SignIn(ctx, runEmail, runPassword); err != nil {
			return eris.Wrap(err, "sign in")
		}
		defer func() {
			if err := f.SignOut(ctx); err != nil {
				zap.L().Warn("sign-out failed", zap.Error(err))
			}
		}()

		if err := f.Inform(runSector, runPhone); err != nil {
			return eris.Wrap(err, "inform step")
		}

		if runLocate {
			// Location failures are non-fatal; the query proceeds without
			// a device fix and the backend uses the sector centroid.
			if _, err := f.AcquireLocation(ctx); err != nil {
				zap.L().Warn("continuing without device location", zap.Error(err))
			}
		}

		ins, err := f.Submit(ctx, model.QueryParameters{
			Sector:               runSector,
			Country:              runCountry,
			Phone:                runPhone,
			CollectionEfficiency: runEfficiency,
			MileageKmPerLiter:    runMileage,
			PetrolLeftPercent:    runPetrol,
		})
		if err != nil {
			return eris.Wrap(err, "submit query")
		}

		snap := f.Machine().Snapshot()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap.Report); err != nil {
			return eris.Wrap(err, "encode report")
		}

		if runOut != "" && ins != nil {
			if err := writeRoute(runOut, ins); err != nil {
				return err
			}
			zap.L().Info("route written", zap.String("path", runOut))
		}

		return nil
	},
}

// writeRoute saves the rendered route as KML or JSON, by extension.
func writeRoute(path string, ins *maprender.Instructions) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".kml") {
		data, err = maprender.KML(ins)
	} else {
		data, err = ins.Encode()
	}
	if err != nil {
		return eris.Wrapf(err, "encode route %s", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return eris.Wrapf(err, "write route %s", path)
	}
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runEmail, "email", "", "account email")
	runCmd.Flags().StringVar(&runPassword, "password", "", "account password")
	runCmd.Flags().StringVar(&runSector, "sector", "", "sector or state to query")
	runCmd.Flags().StringVar(&runPhone, "phone", "", "contact phone number")
	runCmd.Flags().StringVar(&runCountry, "country", "India", "country of the sector")
	runCmd.Flags().IntVar(&runEfficiency, "efficiency", 90, "collection efficiency percent (0-100)")
	runCmd.Flags().Float64Var(&runMileage, "mileage", 12, "vehicle mileage, km per liter")
	runCmd.Flags().IntVar(&runPetrol, "petrol", 50, "petrol left percent (0-100)")
	runCmd.Flags().BoolVar(&runLocate, "locate", false, "acquire device location before submitting")
	runCmd.Flags().StringVar(&runOut, "out", "", "write the rendered route to this file (.kml or .json)")

	_ = runCmd.MarkFlagRequired("email")
	_ = runCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(runCmd)
}
