package main

import (
	"fmt"
	"os"
	"time"

	"backend-voltride/internal/archive"
	"backend-voltride/internal/ride"
	"backend-voltride/internal/track"

	"github.com/spf13/cobra"
)

var dbPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "trackctl",
		Short: "Offline ride analysis and archive tool",
		Long: `trackctl runs the ride pipeline over GPS dump files: compression,
driving analysis and eco scoring, with a local sqlite archive.`,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "voltride.db", "Path to the sqlite ride archive")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(compressCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func analyzeCmd() *cobra.Command {
	var batteryWhPerKm float64

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze one ride dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := archive.LoadPoints(args[0])
			if err != nil {
				return err
			}

			res, err := ride.Finalize(points, batteryFlag(cmd, batteryWhPerKm))
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}

			printResult(args[0], res)
			return nil
		},
	}

	cmd.Flags().Float64Var(&batteryWhPerKm, "battery", 0, "Measured consumption in Wh/km")
	return cmd
}

func compressCmd() *cobra.Command {
	var epsilonM float64
	var output string

	cmd := &cobra.Command{
		Use:   "compress [file]",
		Short: "Compress one ride dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := archive.LoadPoints(args[0])
			if err != nil {
				return err
			}

			compressed, stats := track.Compress(points, track.Options{EpsilonM: epsilonM})

			fmt.Printf("%s\n", args[0])
			fmt.Printf("  Points:   %d -> %d (%.1f%%)\n",
				stats.OriginalCount, stats.CompressedCount, stats.Ratio*100)
			fmt.Printf("  Epsilon:  %.1f m\n", stats.EpsilonM)

			if output != "" {
				if err := archive.WritePoints(output, compressed); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Printf("  Written:  %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().Float64VarP(&epsilonM, "epsilon", "e", 0, "Tolerance in meters (0 picks by distance)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the compressed track to a file")
	return cmd
}

func ingestCmd() *cobra.Command {
	var batteryWhPerKm float64

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Analyze ride dumps and archive the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := archive.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			battery := batteryFlag(cmd, batteryWhPerKm)
			archived := 0
			failed := 0

			for _, file := range args {
				start := time.Now()
				points, err := archive.LoadPoints(file)
				if err != nil {
					fmt.Printf("%s: %v\n", file, err)
					failed++
					continue
				}

				res, err := ride.Finalize(points, battery)
				if err != nil {
					fmt.Printf("%s: %v\n", file, err)
					failed++
					continue
				}

				entry := archive.Entry{Ride: ride.RideFromResult("", "", res), Source: file}
				if _, err := store.InsertRide(entry); err != nil {
					fmt.Printf("%s: archive failed: %v\n", file, err)
					failed++
					continue
				}

				fmt.Printf("%s: %.2f km, eco %d (%s), %d -> %d points in %v\n",
					file, res.Analysis.DistanceM/1000, res.Eco.Total, res.Eco.Grade,
					res.Stats.OriginalCount, res.Stats.CompressedCount, time.Since(start).Round(time.Millisecond))
				archived++
			}

			fmt.Printf("\nArchived %d rides", archived)
			if failed > 0 {
				fmt.Printf(", %d failed", failed)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Float64Var(&batteryWhPerKm, "battery", 0, "Measured consumption in Wh/km")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show archive totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := archive.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Stats()
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			fmt.Println("Ride archive")
			fmt.Printf("  Rides:      %d\n", st.TotalRides)
			fmt.Printf("  Distance:   %.2f km\n", st.TotalDistanceM/1000)
			fmt.Printf("  Duration:   %s\n", time.Duration(st.TotalDurationS*float64(time.Second)).Round(time.Second))
			fmt.Printf("  CO2 saved:  %.2f kg\n", st.TotalCO2SavedKg)
			fmt.Printf("  Avg eco:    %.1f\n", st.AvgEcoScore)
			fmt.Printf("  Database:   %s\n", dbPath)
			return nil
		},
	}
}

// batteryFlag maps an unset --battery to nil so unknown consumption scores
// neutral instead of zero Wh/km.
func batteryFlag(cmd *cobra.Command, value float64) *float64 {
	if !cmd.Flags().Changed("battery") {
		return nil
	}
	return &value
}

func printResult(file string, res ride.Result) {
	fmt.Printf("%s\n", file)
	fmt.Printf("  Distance:     %.2f km\n", res.Analysis.DistanceM/1000)
	fmt.Printf("  Duration:     %s\n", time.Duration(res.Summary.DurationSec*float64(time.Second)).Round(time.Second))
	fmt.Printf("  Speed:        avg %.1f km/h, max %.1f km/h\n", res.Summary.AvgSpeedKmh, res.Summary.MaxSpeedKmh)
	fmt.Printf("  Events:       %d accel, %d brake, %d stops\n",
		res.Analysis.SuddenAccelCount, res.Analysis.SuddenBrakeCount, res.Analysis.StopCount)
	fmt.Printf("  Elevation:    +%.1f m / -%.1f m (grade %.1f%%)\n",
		res.Analysis.ElevationGainM, res.Analysis.ElevationLossM, res.Analysis.AvgGradientPct)
	fmt.Printf("  Compression:  %d -> %d points (eps %.1f m)\n",
		res.Stats.OriginalCount, res.Stats.CompressedCount, res.Stats.EpsilonM)
	fmt.Printf("  Eco score:    %d (%s), %.2f kg CO2 saved\n", res.Eco.Total, res.Eco.Grade, res.Eco.CO2SavedKg)
	for _, tip := range res.Eco.Tips {
		fmt.Printf("    - %s\n", tip)
	}
}
