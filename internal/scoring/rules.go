package scoring

import (
	"fmt"

	"github.com/spf13/viper"
)

// Band is one tier of a tiered scoring table. UpTo is the inclusive upper
// bound of the raw statistic priced at Rate; an UpTo of 0 marks the unbounded
// remainder band.
type Band struct {
	UpTo int     `mapstructure:"up_to" json:"up_to"`
	Rate float64 `mapstructure:"rate" json:"rate"`
}

// RuleSet is the externally supplied scoring configuration. It ships as a
// versioned YAML/JSON file so scoring changes never require a redeploy.
type RuleSet struct {
	Version string `mapstructure:"version" json:"version"`

	RunBands            []Band  `mapstructure:"run_bands" json:"run_bands"`
	ReferenceStrikeRate float64 `mapstructure:"reference_strike_rate" json:"reference_strike_rate"`

	WicketBands      []Band  `mapstructure:"wicket_bands" json:"wicket_bands"`
	ReferenceEconomy float64 `mapstructure:"reference_economy" json:"reference_economy"`
	MaxEconomyFactor float64 `mapstructure:"max_economy_factor" json:"max_economy_factor"`
	MaidenPoints     float64 `mapstructure:"maiden_points" json:"maiden_points"`

	CatchPoints      float64 `mapstructure:"catch_points" json:"catch_points"`
	RunOutPoints     float64 `mapstructure:"run_out_points" json:"run_out_points"`
	StumpingPoints   float64 `mapstructure:"stumping_points" json:"stumping_points"`
	KeeperDoubleRate bool    `mapstructure:"keeper_double_rate" json:"keeper_double_rate"`

	HalfCenturyBonus float64 `mapstructure:"half_century_bonus" json:"half_century_bonus"`
	CenturyBonus     float64 `mapstructure:"century_bonus" json:"century_bonus"`
	DuckPenalty      float64 `mapstructure:"duck_penalty" json:"duck_penalty"`

	// AllowNegativeTotal lets the duck penalty push a performance's total
	// below FloorPoints. Off by default: the total is clamped.
	AllowNegativeTotal bool    `mapstructure:"allow_negative_total" json:"allow_negative_total"`
	FloorPoints        float64 `mapstructure:"floor_points" json:"floor_points"`
}

// DefaultRules returns the rule set used when no rules file is configured.
func DefaultRules() RuleSet {
	return RuleSet{
		Version:             "default",
		RunBands:            []Band{{UpTo: 20, Rate: 1.0}, {UpTo: 50, Rate: 1.3}, {UpTo: 0, Rate: 1.6}},
		ReferenceStrikeRate: 100,
		WicketBands:         []Band{{UpTo: 4, Rate: 22}, {UpTo: 0, Rate: 32}},
		ReferenceEconomy:    5.0,
		MaxEconomyFactor:    3.0,
		MaidenPoints:        4,
		CatchPoints:         8,
		RunOutPoints:        10,
		StumpingPoints:      10,
		KeeperDoubleRate:    true,
		HalfCenturyBonus:    10,
		CenturyBonus:        25,
		DuckPenalty:         10,
		AllowNegativeTotal:  false,
		FloorPoints:         0,
	}
}

// LoadRules reads a rule set from a versioned config file (YAML or JSON,
// decided by extension) and validates it.
func LoadRules(path string) (RuleSet, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return RuleSet{}, fmt.Errorf("error reading rules file: %w", err)
	}

	rules := DefaultRules()
	if err := v.Unmarshal(&rules); err != nil {
		return RuleSet{}, fmt.Errorf("unable to decode rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return RuleSet{}, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks the structural invariants a rule set must satisfy before
// the calculator will accept it.
func (r RuleSet) Validate() error {
	if err := validateBands("run_bands", r.RunBands); err != nil {
		return err
	}
	if err := validateBands("wicket_bands", r.WicketBands); err != nil {
		return err
	}
	if r.ReferenceStrikeRate <= 0 {
		return fmt.Errorf("reference_strike_rate must be positive")
	}
	if r.ReferenceEconomy <= 0 {
		return fmt.Errorf("reference_economy must be positive")
	}
	if r.MaxEconomyFactor < 1 {
		return fmt.Errorf("max_economy_factor must be at least 1")
	}
	if r.DuckPenalty < 0 {
		return fmt.Errorf("duck_penalty is subtracted and must not be negative")
	}
	return nil
}

func validateBands(name string, bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("%s must have at least one band", name)
	}
	prev := 0
	for i, b := range bands {
		if b.Rate < 0 {
			return fmt.Errorf("%s[%d]: rate must not be negative", name, i)
		}
		if b.UpTo == 0 {
			if i != len(bands)-1 {
				return fmt.Errorf("%s[%d]: unbounded band must come last", name, i)
			}
			continue
		}
		if b.UpTo <= prev {
			return fmt.Errorf("%s[%d]: bands must ascend", name, i)
		}
		prev = b.UpTo
	}
	return nil
}
