// Package trust maps URLs to static domain reputation weights.
package trust

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Tier weights.
const (
	HighWeight    = 0.95
	MediumWeight  = 0.75
	LowWeight     = 0.4
	NeutralWeight = 0.5
)

// Tier names reported by Classifier.Tier.
const (
	TierHigh    = "high"
	TierMedium  = "medium"
	TierLow     = "low"
	TierNeutral = "neutral"
)

// Tiers holds the domain substrings for each trust tier.
type Tiers struct {
	High   []string `yaml:"high" mapstructure:"high"`
	Medium []string `yaml:"medium" mapstructure:"medium"`
	Low    []string `yaml:"low" mapstructure:"low"`
}

// DefaultTiers returns the built-in reputation tables.
func DefaultTiers() Tiers {
	return Tiers{
		High: []string{
			"wikipedia.org", "britannica.com", ".edu", ".gov", "who.int", "un.org", "nih.gov",
		},
		Medium: []string{
			"medium.com", "github.com", "stackoverflow.com", "bbc.com", "reuters.com",
			"nytimes.com", "wsj.com", "techcrunch.com",
		},
		Low: []string{
			"blogspot.com", "wordpress.com",
		},
	}
}

// LoadTiers reads tier tables from a YAML file. Tiers left empty in the
// file keep their defaults.
func LoadTiers(path string) (Tiers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tiers{}, eris.Wrapf(err, "trust: read tiers file %s", path)
	}

	var fromFile Tiers
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Tiers{}, eris.Wrapf(err, "trust: parse tiers file %s", path)
	}

	tiers := DefaultTiers()
	if len(fromFile.High) > 0 {
		tiers.High = fromFile.High
	}
	if len(fromFile.Medium) > 0 {
		tiers.Medium = fromFile.Medium
	}
	if len(fromFile.Low) > 0 {
		tiers.Low = fromFile.Low
	}
	return tiers, nil
}

type tier struct {
	name    string
	weight  float64
	domains []string
}

// Classifier assigns a trust weight to a URL. Safe for concurrent use.
type Classifier struct {
	tiers []tier
}

// NewClassifier builds a Classifier from tier tables. Entries are lowercased.
func NewClassifier(t Tiers) *Classifier {
	return &Classifier{
		tiers: []tier{
			{name: TierHigh, weight: HighWeight, domains: lowerAll(t.High)},
			{name: TierMedium, weight: MediumWeight, domains: lowerAll(t.Medium)},
			{name: TierLow, weight: LowWeight, domains: lowerAll(t.Low)},
		},
	}
}

// Default returns a Classifier over DefaultTiers.
func Default() *Classifier {
	return NewClassifier(DefaultTiers())
}

// Trust returns the weight of the first tier with a matching substring,
// or NeutralWeight.
func (c *Classifier) Trust(rawURL string) float64 {
	_, w := c.match(rawURL)
	return w
}

// Tier returns the name of the matching tier.
func (c *Classifier) Tier(rawURL string) string {
	name, _ := c.match(rawURL)
	return name
}

func (c *Classifier) match(rawURL string) (string, float64) {
	lower := strings.ToLower(rawURL)
	for _, t := range c.tiers {
		for _, d := range t.domains {
			if d != "" && strings.Contains(lower, d) {
				return t.name, t.weight
			}
		}
	}
	return TierNeutral, NeutralWeight
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
