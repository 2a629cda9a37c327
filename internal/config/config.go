// Package config resolves and validates the immutable run configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"aircheck/internal/models"
)

const (
	// entryScript is the archive's single entry point; every request in
	// the wire protocol goes through it.
	entryScript = "index.php"

	// DefaultPrimeTimeout bounds the listing-page GET that precedes each
	// segment fetch.
	DefaultPrimeTimeout = 30 * time.Second
	// DefaultFetchTimeout bounds the segment download itself.
	DefaultFetchTimeout = 60 * time.Second
	// DefaultOutputCeiling caps the duration of an assembled show so
	// overlapping segment boundaries cannot produce runaway output.
	DefaultOutputCeiling = 9000 * time.Second
)

// Config is the resolved run configuration. It is built once before the
// pipeline starts and never mutated afterwards.
type Config struct {
	BaseURL      string
	OutputDir    string
	Username     string
	Password     string
	StationCode  string
	StartDate    time.Time
	Rules        []models.ScheduleRule
	PrimeTimeout time.Duration
	FetchTimeout time.Duration
	// OutputCeiling is the maximum duration of one assembled output file.
	OutputCeiling time.Duration
}

// Validate reports the first missing required field.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	if len(c.Rules) == 0 {
		return errors.New("no schedule rules configured")
	}
	return nil
}

// NormalizeBaseURL turns user input into the canonical archive entry URL:
// an https scheme when none is given, and a path ending in the fixed
// entry script.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("base URL is empty")
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	if !strings.HasSuffix(strings.ToLower(raw), entryScript) {
		raw = strings.TrimRight(raw, "/") + "/" + entryScript
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("base URL %q has no host", raw)
	}

	return raw, nil
}

// ResolveOutputDir expands a leading ~, resolves the path to an absolute
// one, and creates the directory when it does not yet exist.
func ResolveOutputDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("output directory is empty")
	}

	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, dir[1:])
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}

	return abs, nil
}

type scheduleFileYAML struct {
	Schedules []scheduleRuleYAML `yaml:"schedules"`
}

type scheduleRuleYAML struct {
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Weekday string `yaml:"weekday"`
	Hours   []int  `yaml:"hours"`
}

// LoadRules reads the YAML schedule file. Each entry carries an inclusive
// start/end date window (YYYY-MM-DD), a weekday name, and the hours of the
// show's segments in broadcast order.
func LoadRules(path string) ([]models.ScheduleRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}

	var file scheduleFileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schedule file: %w", err)
	}
	if len(file.Schedules) == 0 {
		return nil, fmt.Errorf("schedule file %s contains no schedules", path)
	}

	rules := make([]models.ScheduleRule, 0, len(file.Schedules))
	for i, entry := range file.Schedules {
		start, err := time.Parse("2006-01-02", strings.TrimSpace(entry.Start))
		if err != nil {
			return nil, fmt.Errorf("schedule %d: invalid start date %q", i+1, entry.Start)
		}
		end, err := time.Parse("2006-01-02", strings.TrimSpace(entry.End))
		if err != nil {
			return nil, fmt.Errorf("schedule %d: invalid end date %q", i+1, entry.End)
		}
		weekday, err := ParseWeekday(entry.Weekday)
		if err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i+1, err)
		}
		rules = append(rules, models.ScheduleRule{
			Start:   start,
			End:     end,
			Weekday: weekday,
			Hours:   entry.Hours,
		})
	}

	return rules, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a weekday name (case-insensitive, full or three-letter
// form) to its time.Weekday value.
func ParseWeekday(name string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if wd, ok := weekdays[key]; ok {
		return wd, nil
	}
	if len(key) == 3 {
		for full, wd := range weekdays {
			if strings.HasPrefix(full, key) {
				return wd, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// ParseDate parses a YYYY-MM-DD command-line date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", value)
	}
	return t, nil
}
