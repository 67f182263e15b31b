// Package config loads the board configuration: frontend, frame rate, simulated kernel
// sizing and an optional script of timed input stimuli.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Frontends.
const (
	FrontendHeadless = "headless"
	FrontendWindow   = "window"
	FrontendTerminal = "terminal"
)

// Stimulus kinds.
const (
	StimulusPress   = "press"
	StimulusRelease = "release"
	StimulusInput   = "input"
)

type Config struct {
	Frontend  string       `yaml:"frontend" validate:"oneof=headless window terminal"`
	Hz        int          `yaml:"hz" validate:"gte=1,lte=1000"`
	Ticks     uint64       `yaml:"ticks"`
	EchoStdin bool         `yaml:"echo_stdin"`
	Kernel    KernelConfig `yaml:"kernel"`
	Script    []Stimulus   `yaml:"script" validate:"dive"`
}

type KernelConfig struct {
	AlarmFrequency uint32 `yaml:"alarm_frequency" validate:"gte=1,lte=10000"`
	ConsoleChunk   int    `yaml:"console_chunk" validate:"gte=1,lte=64"`
	Buttons        int    `yaml:"buttons" validate:"gte=1,lte=4"`
}

// Stimulus is one scripted input, applied once At has elapsed on the board clock.
type Stimulus struct {
	At     time.Duration `yaml:"at" validate:"gte=0"`
	Type   string        `yaml:"type" validate:"oneof=press release input"`
	Button int           `yaml:"button" validate:"gte=0"`
	Text   string        `yaml:"text" validate:"required_if=Type input"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Frontend:  FrontendHeadless,
		Hz:        60,
		EchoStdin: true,
		Kernel: KernelConfig{
			AlarmFrequency: 1000,
			ConsoleChunk:   16,
			Buttons:        1,
		},
	}
}

// Load reads configuration from file, applies environment variable overrides and
// validates the result. An empty path loads the defaults.
func Load(configPath string) (*Config, error) {
	var data []byte
	if configPath != "" {
		var err error
		data, err = os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return parse(data, os.Getenv)
}

// Parse decodes YAML over the defaults and validates it. Environment overrides are not
// applied.
func Parse(data []byte) (*Config, error) {
	return parse(data, func(string) string { return "" })
}

func parse(data []byte, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg, getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	sort.SliceStable(cfg.Script, func(i, j int) bool { return cfg.Script[i].At < cfg.Script[j].At })
	return cfg, nil
}

// Validate checks struct tags and cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		out := &ValidationErrors{}
		for _, e := range verrs {
			out.Errors = append(out.Errors, ValidationError{
				Field:   fieldPath(e),
				Message: formatValidationMessage(e),
			})
		}
		return out
	}

	for i, s := range c.Script {
		if s.Type != StimulusInput && s.Button >= c.Kernel.Buttons {
			return &ValidationErrors{Errors: []ValidationError{{
				Field:   fmt.Sprintf("script[%d].button", i),
				Message: fmt.Sprintf("button %d out of range (board has %d)", s.Button, c.Kernel.Buttons),
			}}}
		}
	}
	return nil
}

// applyEnvOverrides checks for environment variables with the TOCK_ prefix.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	if v := getenv("TOCK_FRONTEND"); v != "" {
		cfg.Frontend = v
	}
	if v := getenv("TOCK_HZ"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TOCK_HZ: %w", err)
		}
		cfg.Hz = n
	}
	if v := getenv("TOCK_TICKS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TOCK_TICKS: %w", err)
		}
		cfg.Ticks = n
	}
	if v := getenv("TOCK_ECHO_STDIN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TOCK_ECHO_STDIN: %w", err)
		}
		cfg.EchoStdin = b
	}
	if v := getenv("TOCK_ALARM_FREQUENCY"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("TOCK_ALARM_FREQUENCY: %w", err)
		}
		cfg.Kernel.AlarmFrequency = uint32(n)
	}
	if v := getenv("TOCK_CONSOLE_CHUNK"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TOCK_CONSOLE_CHUNK: %w", err)
		}
		cfg.Kernel.ConsoleChunk = n
	}
	if v := getenv("TOCK_BUTTONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TOCK_BUTTONS: %w", err)
		}
		cfg.Kernel.Buttons = n
	}
	return nil
}

// AtTicks converts the stimulus time to board ticks at hz.
func (s Stimulus) AtTicks(hz uint32) uint64 {
	return uint64(s.At) * uint64(hz) / uint64(time.Second)
}

// ValidationError is a field-level validation error.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors holds multiple validation errors.
type ValidationErrors struct {
	Errors []ValidationError
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(messages, "; ")
}

// fieldPath turns "Config.Kernel.ConsoleChunk" into "kernel.console_chunk".
func fieldPath(e validator.FieldError) string {
	parts := strings.Split(e.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnakeCase(p)
	}
	return strings.Join(parts, ".")
}

func formatValidationMessage(e validator.FieldError) string {
	field := toSnakeCase(e.Field())
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

// toSnakeCase converts PascalCase to snake_case. Index suffixes like "[2]" are kept.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				result.WriteByte('_')
			}
			result.WriteByte(byte(r + 'a' - 'A'))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
