// Package promotion resolves, per (signal, key, value-type), whether an
// OTLP attribute is promoted to a typed column, dropped entirely, or left
// for the JSONB catch-all. The decision function is pure and immutable
// once loaded, built from a required base document and an optional
// operator override (merged as described on Load).
package promotion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Decision is the outcome of classifying one (signal, key, value type).
type Decision string

const (
	Promote Decision = "PROMOTE"
	Drop    Decision = "DROP"
	Other   Decision = "OTHER"
)

// document is the on-disk shape of both the base config and the override.
type document struct {
	Promote map[string]map[string][]string `yaml:"promote"`
	Drop    map[string][]string            `yaml:"drop"`
}

// Policy is the loaded, immutable promotion policy.
type Policy struct {
	// promoted[signal+"."+valueType] is the set of promoted keys.
	promoted map[string]map[string]struct{}
	// dropped is signal-agnostic: a key in the override's drop list is
	// dropped for every signal, matching the original implementation.
	dropped map[string]struct{}
}

// Load reads the required base document and the optional override
// document, merging them per the additive-promote/override-only-drop
// rule. A missing base path is fatal; a missing override path is not.
func Load(basePath, overridePath string) (*Policy, error) {
	base, err := loadDocument(basePath, true)
	if err != nil {
		return nil, fmt.Errorf("loading base promotion config: %w", err)
	}

	override, err := loadDocument(overridePath, false)
	if err != nil {
		return nil, fmt.Errorf("loading override promotion config: %w", err)
	}

	p := &Policy{
		promoted: make(map[string]map[string]struct{}),
		dropped:  make(map[string]struct{}),
	}
	p.mergePromote(base)
	p.mergePromote(override)
	for _, keys := range override.Drop {
		for _, k := range keys {
			p.dropped[k] = struct{}{}
		}
	}
	return p, nil
}

func loadDocument(path string, required bool) (document, error) {
	if path == "" {
		if required {
			return document{}, fmt.Errorf("base promotion config path is required")
		}
		return document{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return document{}, nil
		}
		return document{}, err
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return document{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

func (p *Policy) mergePromote(doc document) {
	for signal, byType := range doc.Promote {
		for valueType, keys := range byType {
			bucket := signal + "." + valueType
			set, ok := p.promoted[bucket]
			if !ok {
				set = make(map[string]struct{})
				p.promoted[bucket] = set
			}
			for _, k := range keys {
				set[k] = struct{}{}
			}
		}
	}
}

// ShouldDrop reports whether key is in the operator drop list, regardless
// of signal.
func (p *Policy) ShouldDrop(key string) bool {
	_, ok := p.dropped[key]
	return ok
}

// Classify returns the decision for one (signal, key, value type). Drop
// always wins over promote.
func (p *Policy) Classify(signal, key, valueType string) Decision {
	if p.ShouldDrop(key) {
		return Drop
	}
	if set, ok := p.promoted[signal+"."+valueType]; ok {
		if _, ok := set[key]; ok {
			return Promote
		}
	}
	return Other
}

// PromotedKeys returns the promoted key set for one (signal, value type),
// mainly for tests and observability.
func (p *Policy) PromotedKeys(signal, valueType string) []string {
	set := p.promoted[signal+"."+valueType]
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
