package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/Time0o/uartd/internal/domain/uart"
)

// PolicyRule maps a client identity label to session attributes. A rule
// matches either one exact label or a label prefix; when both exact and
// prefix rules apply, exact wins, then the longest prefix.
type PolicyRule struct {
	Label       string `yaml:"label" toml:"label"`
	LabelPrefix string `yaml:"label_prefix" toml:"label_prefix"`

	// UART is the physical line index. Required; a matching rule
	// without it refuses the session.
	UART *int `yaml:"uart" toml:"uart"`

	// Baudrate is the initial line rate; 0 or absent keeps the driver
	// default.
	Baudrate int `yaml:"baudrate" toml:"baudrate"`

	// DetectSize enables geometry detection when it is exactly "yes".
	// Any other value, including absence, disables it.
	DetectSize string `yaml:"detect_size" toml:"detect_size"`
}

// LineConfig binds a line index to a driver backend.
type LineConfig struct {
	Index   int    `yaml:"index" toml:"index"`
	Backend string `yaml:"backend" toml:"backend"`
	Device  string `yaml:"device" toml:"device"`
}

// Policy is the parsed policy file: the line table plus the per-client
// rules.
type Policy struct {
	Lines    []LineConfig `yaml:"lines" toml:"lines"`
	Policies []PolicyRule `yaml:"policies" toml:"policies"`
}

// LoadPolicy reads and parses a policy file. The format is chosen by
// extension: .toml is TOML, everything else is YAML.
func LoadPolicy(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(raw, filepath.Ext(path))
}

// ParsePolicy parses policy file contents. ext selects the format the
// way LoadPolicy does.
func ParsePolicy(raw []byte, ext string) (*Policy, error) {
	var p Policy
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to parse policy (toml): %w", err)
		}
	default:
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to parse policy (yaml): %w", err)
		}
	}
	return &p, nil
}

// Resolve finds the rule governing a client identity label. An exact
// label match wins over any prefix match; among prefix matches the
// longest prefix wins.
func (p *Policy) Resolve(label string) (uart.PolicyRule, bool) {
	var best *PolicyRule
	bestPrefix := -1

	for i := range p.Policies {
		rule := &p.Policies[i]
		if rule.Label != "" && rule.Label == label {
			best = rule
			break
		}
		if rule.LabelPrefix != "" && strings.HasPrefix(label, rule.LabelPrefix) {
			if len(rule.LabelPrefix) > bestPrefix {
				best = rule
				bestPrefix = len(rule.LabelPrefix)
			}
		}
	}
	if best == nil {
		return uart.PolicyRule{}, false
	}

	return uart.PolicyRule{
		Line:       best.UART,
		Baudrate:   best.Baudrate,
		DetectSize: best.DetectSize == "yes",
	}, true
}

// Line looks up the backend binding for a line index.
func (p *Policy) Line(index int) (LineConfig, bool) {
	for _, l := range p.Lines {
		if l.Index == index {
			return l, true
		}
	}
	return LineConfig{}, false
}
