package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/datareadygo/internal/sandbox"
	"github.com/vk/datareadygo/internal/stage"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	InputPath  string // normalized dataset document (JSON)
	ConfigPath string // optional thresholds/weights overrides (YAML)
	StorePath  string // optional SQLite artifact store; empty means in-memory

	Stages     []stage.Kind
	Transforms []Transform

	LogFormat string
	LogLevel  string
}

// Transform is one sandboxed transformation request from the command
// line, applied in order before the stages run.
type Transform struct {
	Op         sandbox.Op
	Expression string
}

// NewConfig validates the raw configuration and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.InputPath == "" {
		return nil, errors.New("InputPath is a required configuration field and cannot be empty")
	}
	if len(cfg.Stages) == 0 {
		cfg.Stages = []stage.Kind{stage.Summary}
	}
	return &cfg, nil
}

// ParseStages converts a comma-separated stage list into stage kinds.
func ParseStages(raw string) ([]stage.Kind, error) {
	var out []stage.Kind
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := stage.Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// ParseTransform parses an "op=expression" argument. The expression may
// be empty for operations that take none.
func ParseTransform(raw string) (Transform, error) {
	op, expr, found := strings.Cut(raw, "=")
	if !found {
		op = raw
	}
	op = strings.TrimSpace(op)
	switch sandbox.Op(op) {
	case sandbox.OpFilter, sandbox.OpSelect, sandbox.OpImpute, sandbox.OpCast, sandbox.OpDropDuplicates:
		return Transform{Op: sandbox.Op(op), Expression: expr}, nil
	default:
		return Transform{}, fmt.Errorf("unknown transformation op %q", op)
	}
}
