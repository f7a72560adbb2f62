package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mlantern/camtest/harness"
	"github.com/mlantern/camtest/harness/definitions"
	"github.com/mlantern/camtest/utils"
)

// Config holds all the configuration values from command line arguments
type Config struct {
	QemuDir       string  `json:"qemu_dir"`
	RomDir        string  `json:"rom_dir"`
	OutputDir     string  `json:"output_dir"`
	ExpectedDir   string  `json:"expected_dir"`
	RegistryPath  string  `json:"registry"`
	SequencesPath string  `json:"sequences"`
	JobID         int     `json:"job_id"`
	Tolerance     float64 `json:"tolerance"`
	Boot          bool    `json:"boot"`
	ForceContinue bool    `json:"force_continue"`
	NoFailEarly   bool    `json:"no_fail_early"`
	ListCams      bool    `json:"list_cams"`
	Debug         bool    `json:"debug"`
}

var config = &Config{}

var rootCmd = &cobra.Command{
	Use:   "camtest [models...]",
	Short: "Regression tests for Canon firmware under qemu-eos",
	Long: `camtest boots Canon firmware images inside the qemu-eos emulator,
replays a per-ROM key sequence over the emulator's display and checks every
resulting screen against known-good captures. Without model arguments it
runs all models from the registry.`,
	Example: `  # Test two cams against roms in the default location
  camtest 50D 60D

  # Generate candidate expected output for a new rom
  camtest --force-continue 700D

  # List supported models
  camtest --list-cams`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args)
	},
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&config.QemuDir, "qemu-dir", "q",
		getEnv("CAMTEST_QEMU_DIR", "../qemu-eos-build"),
		"Location of the qemu-eos build dir")

	rootCmd.PersistentFlags().StringVarP(&config.RomDir, "rom-dir", "r",
		getEnv("CAMTEST_ROM_DIR", "../roms"),
		"Location of dir holding rom subdirs")

	rootCmd.PersistentFlags().StringVarP(&config.OutputDir, "output-dir", "o",
		getEnv("CAMTEST_OUTPUT_DIR", "test_output"),
		"Where per-cam test artifacts are written")

	rootCmd.PersistentFlags().StringVar(&config.ExpectedDir, "expected-dir",
		getEnv("CAMTEST_EXPECTED_DIR", "expected_test_output"),
		"Root of the known-good screen captures")

	rootCmd.PersistentFlags().StringVar(&config.RegistryPath, "registry",
		getEnv("CAMTEST_REGISTRY", "config/cams.json"),
		"Known-cams registry file")

	rootCmd.PersistentFlags().StringVar(&config.SequencesPath, "sequences",
		getEnv("CAMTEST_SEQUENCES", "config/key_sequences.json"),
		"Per-rom key sequence table")

	rootCmd.PersistentFlags().IntVar(&config.JobID, "job-id",
		getEnvInt("CAMTEST_JOB_ID", 0),
		"Job number, offsets the display number and socket names for parallel runs")

	rootCmd.PersistentFlags().Float64Var(&config.Tolerance, "tolerance", 0.0,
		"RMS pixel difference allowed between capture and reference")

	rootCmd.PersistentFlags().BoolVar(&config.Boot, "boot", false,
		"Boot with the firmware boot flag set")

	rootCmd.PersistentFlags().BoolVar(&config.ForceContinue, "force-continue", false,
		"Push past failures to capture as much as possible; the run always fails")

	rootCmd.PersistentFlags().BoolVar(&config.NoFailEarly, "no-fail-early", false,
		"Keep testing remaining cams after a failure")

	rootCmd.PersistentFlags().BoolVar(&config.ListCams, "list-cams", false,
		"List supported camera models and exit")

	rootCmd.PersistentFlags().BoolVar(&config.Debug, "debug", false,
		"Enable debug logging")
}

func run(ctx context.Context, models []string) error {
	// Diagnostic output from parallel jobs shares one writer, so keep the
	// log lines serialized.
	log.Logger = log.Output(zerolog.SyncWriter(os.Stderr))
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Str("config", utils.JsonString(config)).Msg("configuration")
	}

	registry, err := harness.LoadRegistry(config.RegistryPath)
	if err != nil {
		return err
	}

	if config.ListCams {
		for _, model := range registry.Models() {
			fmt.Println(model)
		}
		return nil
	}

	sequences, err := harness.LoadSequences(config.SequencesPath)
	if err != nil {
		return err
	}

	if len(models) == 0 {
		models = registry.Models()
	}

	reporter := harness.NewReporter("")
	failed := 0
	for _, model := range models {
		result, err := runCam(ctx, model, registry, sequences)
		if err != nil {
			return err
		}
		reporter.Report(result)
		if !result.Passed {
			failed++
			if !config.NoFailEarly {
				break
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d cam(s) failed", failed)
	}
	return nil
}

func runCam(ctx context.Context, model string, registry harness.Registry, sequences harness.SequenceTable) (definitions.Result, error) {
	cam, err := harness.NewCam(model, config.RomDir, registry)
	if err != nil {
		// A bad model name or missing rom is a failed run, not a harness
		// error: the remaining cams should still get their turn.
		if errors.Is(err, harness.ErrUnknownModel) || config.NoFailEarly {
			return definitions.Result{
				Model:  model,
				Test:   harness.TestName,
				Passed: false,
				Reason: err.Error(),
			}, nil
		}
		return definitions.Result{}, err
	}

	cfg := harness.DefaultConfig()
	cfg.QemuDir = config.QemuDir
	cfg.RomDir = config.RomDir
	cfg.OutputDir = filepath.Join(config.OutputDir, model, harness.TestName)
	cfg.ExpectedDir = filepath.Join(config.ExpectedDir, model, harness.TestName)
	cfg.JobID = config.JobID
	cfg.Boot = config.Boot
	cfg.ForceContinue = config.ForceContinue
	cfg.Tolerance = config.Tolerance

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return definitions.Result{}, err
	}

	runner := harness.NewRunner(cfg, cam, registry, sequences)
	return runner.Run(ctx), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("camtest failed")
		os.Exit(1)
	}
}
