package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vk/datareadygo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// envOr returns the environment value when set, the fallback otherwise.
// A .env file loaded at startup feeds these.
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// transformList collects repeated -transform flags in order.
type transformList []app.Transform

func (t *transformList) String() string {
	parts := make([]string, len(*t))
	for i, tr := range *t {
		parts[i] = string(tr.Op)
	}
	return strings.Join(parts, ",")
}

func (t *transformList) Set(raw string) error {
	tr, err := app.ParseTransform(raw)
	if err != nil {
		return err
	}
	*t = append(*t, tr)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an
// ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("datareadygo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
DataReadyGo - dataset readiness scoring and stage orchestration.

Usage:
  datareadygo [options] [INPUT_PATH]

Arguments:
  INPUT_PATH
    Path to a normalized dataset document (JSON).

Options:
`)
		flagSet.PrintDefaults()
	}

	inputFlag := flagSet.String("input", "", "Path to the dataset document.")
	iFlag := flagSet.String("i", "", "Path to the dataset document (shorthand).")
	stagesFlag := flagSet.String("stages", "summary", "Comma-separated stages to run: ingestion, quality, describe, viz, summary.")
	configFlag := flagSet.String("config", envOr("DATAREADY_CONFIG", ""), "Path to a YAML file overriding thresholds and weights. Env: DATAREADY_CONFIG.")
	storeFlag := flagSet.String("store", envOr("DATAREADY_STORE", ""), "Path to a SQLite artifact store. Empty keeps artifacts in memory. Env: DATAREADY_STORE.")
	logFormatFlag := flagSet.String("log-format", envOr("DATAREADY_LOG_FORMAT", "text"), "Log output format. Options: 'text' or 'json'. Env: DATAREADY_LOG_FORMAT.")
	logLevelFlag := flagSet.String("log-level", envOr("DATAREADY_LOG_LEVEL", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. Env: DATAREADY_LOG_LEVEL.")

	var transforms transformList
	flagSet.Var(&transforms, "transform", "Transformation to apply before the stages, as op=expression. Repeatable.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *inputFlag != "" {
		path = *inputFlag
	} else if *iFlag != "" {
		path = *iFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		slog.Debug("No input path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	stages, err := app.ParseStages(*stagesFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	config, err := app.NewConfig(app.Config{
		InputPath:  path,
		ConfigPath: *configFlag,
		StorePath:  *storeFlag,
		Stages:     stages,
		Transforms: transforms,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
