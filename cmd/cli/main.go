// Command m3pack runs cab-signal and train-protection scenarios from the
// command line.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/YoRyan/dtg-m3-pack/internal/sim"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "m3pack",
		Short: "Cab signaling and train protection simulator",
		Long: `m3pack simulates an M3 electric multiple unit's protection stack
(ASC cab-signal enforcement, ACSES civil speed enforcement, and the
vigilance alerter) against a scripted scenario, and writes a tick-by-tick
run log.`,
	}

	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress progress logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newShowCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("m3pack version %s\n", version)
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario file (YAML or JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			quiet, _ := cmd.Flags().GetBool("quiet")

			sc, err := sim.Load(args[0])
			if err != nil {
				return err
			}

			logger := logrus.New()
			if quiet {
				logger.SetLevel(logrus.WarnLevel)
			}

			log := sim.NewRunner(sc, logger).Run()

			if out == "" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(log)
			}
			if err := log.WriteFile(out); err != nil {
				return err
			}
			logger.WithField("path", out).Info("run log written")
			return nil
		},
	}

	cmd.Flags().String("out", "", "Write the run log to this file instead of stdout (.zst compresses)")

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <log>",
		Short: "Summarize a previously written run log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := sim.ReadLogFile(args[0])
			if err != nil {
				return err
			}
			if len(log.Rows) == 0 {
				return fmt.Errorf("%s: empty run log", args[0])
			}

			first, last := log.Rows[0], log.Rows[len(log.Rows)-1]
			maxSpeed := 0.0
			alarms, latched := 0, false
			for _, r := range log.Rows {
				if r.SpeedMph > maxSpeed {
					maxSpeed = r.SpeedMph
				}
				if r.Alarm {
					alarms++
				}
				latched = latched || r.Latched
			}

			fmt.Printf("Run %s\n", log.RunID)
			fmt.Printf("  Duration:   %.1f s (%d ticks)\n", last.Time-first.Time, len(log.Rows))
			fmt.Printf("  Distance:   %.1f m\n", last.Position-first.Position)
			fmt.Printf("  Max speed:  %.1f mph\n", maxSpeed)
			fmt.Printf("  Alarm ticks: %d\n", alarms)
			fmt.Printf("  Final modes: asc=%s acses=%s alerter=%s\n",
				last.AscMode, last.AcsesMode, last.AlerterMode)
			if latched {
				fmt.Println("  Emergency brake latched during this run")
			}
			return nil
		},
	}
}
