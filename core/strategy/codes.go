package strategy

import (
	"fmt"
	"strings"
)

// Strategy is the coarse operating mode sent to the battery inverter.
type Strategy int

const (
	StrategyTargetSoC       Strategy = iota // unclassified: follow the target SoC
	StrategySelfConsumption                 // cover load from the battery
	StrategyProBattery                      // hold or store energy in the battery
	StrategyProGrid                         // favour exporting to the grid
	strategyCount
)

var strategyNames = [...]string{
	StrategyTargetSoC:       "target_soc",
	StrategySelfConsumption: "self_consumption",
	StrategyProBattery:      "pro_battery",
	StrategyProGrid:         "pro_grid",
}

func (s Strategy) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// IsValid reports whether s is a declared strategy.
func (s Strategy) IsValid() bool { return s >= StrategyTargetSoC && s < strategyCount }

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid strategy %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStrategy maps a name back to its strategy.
func ParseStrategy(name string) (Strategy, error) {
	return parseCode[Strategy](name, strategyNames[:], "strategy")
}

// Restrictions lists the grid/battery directions disallowed in a slot.
type Restrictions int

const (
	RestrictNone          Restrictions = iota
	RestrictBatteryToGrid              // battery may not export
	RestrictGridToBattery              // grid may not charge the battery
	RestrictBoth
	restrictionsCount
)

var restrictionNames = [...]string{
	RestrictNone:          "none",
	RestrictBatteryToGrid: "battery_to_grid_blocked",
	RestrictGridToBattery: "grid_to_battery_blocked",
	RestrictBoth:          "both_blocked",
}

func (r Restrictions) String() string {
	if !r.IsValid() {
		return fmt.Sprintf("Restrictions(%d)", int(r))
	}
	return restrictionNames[r]
}

// IsValid reports whether r is a declared restriction code.
func (r Restrictions) IsValid() bool { return r >= RestrictNone && r < restrictionsCount }

// MarshalText implements encoding.TextMarshaler.
func (r Restrictions) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid restrictions %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Restrictions) UnmarshalText(b []byte) error {
	v, err := ParseRestrictions(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseRestrictions maps a name back to its restriction code.
func ParseRestrictions(name string) (Restrictions, error) {
	return parseCode[Restrictions](name, restrictionNames[:], "restrictions")
}

// FeedIn tells whether the site may export into the grid during a slot.
type FeedIn int

const (
	FeedInBlocked FeedIn = iota
	FeedInAllowed
	feedInCount
)

var feedInNames = [...]string{
	FeedInBlocked: "blocked",
	FeedInAllowed: "allowed",
}

func (f FeedIn) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("FeedIn(%d)", int(f))
	}
	return feedInNames[f]
}

// IsValid reports whether f is a declared feed-in code.
func (f FeedIn) IsValid() bool { return f >= FeedInBlocked && f < feedInCount }

// MarshalText implements encoding.TextMarshaler.
func (f FeedIn) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("invalid feed-in %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FeedIn) UnmarshalText(b []byte) error {
	v, err := ParseFeedIn(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFeedIn maps a name back to its feed-in code.
func ParseFeedIn(name string) (FeedIn, error) {
	return parseCode[FeedIn](name, feedInNames[:], "feed-in")
}

func parseCode[T ~int](name string, names []string, kind string) (T, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range names {
		if n == name {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, name)
}
