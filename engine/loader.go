// engine/loader.go
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dev-mohitbeniwal/boundary/model"
)

// Ruleset is the parsed access rule file plus the content hash of the
// exact bytes it was loaded from. The hash is immutable input to every
// decision made from this ruleset.
type Ruleset struct {
	Rules                  []model.Rule
	GlobalMaxDurationHours float64
	Hash                   string
}

type ruleFile struct {
	Global struct {
		MaxDurationHours float64 `yaml:"max_duration_hours"`
	} `yaml:"global"`
	Rules []model.Rule `yaml:"rules"`
}

// LoadRules reads and validates the rule configuration file. A rule
// file that fails validation is rejected wholesale; a configuration
// defect must never become an authorization grant.
func LoadRules(path string) (*Ruleset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}

	sum := sha256.Sum256(raw)

	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing rule file %s: %w", path, err)
	}

	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rule file %s contains no rules", path)
	}

	seen := make(map[string]bool, len(file.Rules))
	for i, rule := range file.Rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule at index %d has no id", i)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		seen[rule.ID] = true

		if rule.Effect != model.EffectAllow && rule.Effect != model.EffectDeny {
			return nil, fmt.Errorf("rule %q: effect must be 'allow' or 'deny', got %q", rule.ID, rule.Effect)
		}
		if rule.Constraints != nil && rule.Constraints.MaxDurationHours < 0 {
			return nil, fmt.Errorf("rule %q: max_duration_hours cannot be negative", rule.ID)
		}
	}

	if file.Global.MaxDurationHours < 0 {
		return nil, fmt.Errorf("global.max_duration_hours cannot be negative")
	}

	return &Ruleset{
		Rules:                  file.Rules,
		GlobalMaxDurationHours: file.Global.MaxDurationHours,
		Hash:                   hex.EncodeToString(sum[:]),
	}, nil
}
