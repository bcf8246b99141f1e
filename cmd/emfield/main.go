// Command emfield runs field-strength computations from the command line:
// it reads a compute request from JSON, prints per-band coverage statistics,
// and optionally writes the raster and Top-K outputs.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/signalsfoundry/emfield/core"
	"github.com/signalsfoundry/emfield/internal/columnar"
	"github.com/signalsfoundry/emfield/internal/logging"
	"github.com/signalsfoundry/emfield/internal/raster"
	"github.com/signalsfoundry/emfield/internal/service"
	"github.com/signalsfoundry/emfield/model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "emfield",
		Short:         "EM field-strength estimation over a geographic grid",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newComputeCmd(), newValidateCmd())
	return root
}

func newComputeCmd() *cobra.Command {
	var (
		requestPath string
		outDir      string
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Run a compute request and print per-band statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := loadRequest(requestPath)
			if err != nil {
				return err
			}

			svc := service.New(service.Config{}, logging.NewFromEnv(), nil,
				raster.NewGeoTIFFWriter(), columnar.NewParquetTopKWriter())

			jobID, res, err := svc.Compute(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job %s: %dx%d grid, %d cells inside, %d sources kept (%d filtered)\n",
				jobID, res.Grid.Width, res.Grid.Height, res.Grid.InsideCount,
				len(res.SourceIDs), res.FilteredSources)
			for i := range res.Bands {
				printBandStats(out, &res.Bands[i])
			}

			if outDir != "" {
				if err := svc.WriteOutputs(cmd.Context(), jobID, outDir); err != nil {
					return err
				}
				fmt.Fprintf(out, "outputs written under %s\n", outDir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&requestPath, "request", "", "Path to a compute request JSON file")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write per-band rasters and Top-K tables")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var requestPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a compute request file without running it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := loadRequest(requestPath)
			if err != nil {
				return err
			}
			req.ApplyDefaults()
			if err := req.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d sources, %d bands)\n",
				requestPath, len(req.Sources), len(req.Bands))
			return nil
		},
	}
	cmd.Flags().StringVar(&requestPath, "request", "", "Path to a compute request JSON file")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func loadRequest(path string) (*model.ComputeRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request %s: %w", path, err)
	}
	var req model.ComputeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse request %s: %w", path, err)
	}
	return &req, nil
}

// printBandStats summarises one band raster over its covered cells.
func printBandStats(out io.Writer, band *core.BandResult) {
	covered := make([]float64, 0, len(band.FieldDBuVPerM))
	for _, v := range band.FieldDBuVPerM {
		if !math.IsNaN(v) {
			covered = append(covered, v)
		}
	}
	if len(covered) == 0 {
		fmt.Fprintf(out, "band %s (%.3f MHz): no covered cells\n", band.Name, band.CenterFreqMHz)
		return
	}
	fmt.Fprintf(out, "band %s (%.3f MHz): %d covered cells, field dBuV/m min %.2f max %.2f mean %.2f\n",
		band.Name, band.CenterFreqMHz, len(covered),
		floats.Min(covered), floats.Max(covered), stat.Mean(covered, nil))
}
