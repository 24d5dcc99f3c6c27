// Package payout holds the tiered payout policy: write-time schedule
// validation and read-time amount resolution.
package payout

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidSchedule = errors.New("invalid payout schedule")

// DefaultAmount is the last-resort payout when a campaign has neither a
// matching tier nor a fallback amount configured.
const DefaultAmount int64 = 1

// Tier bounds the payout for one redemption position.
type Tier struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
	Avg int64 `json:"avg"`
}

// Schedule maps a redemption position (1-based) to its payout tier.
type Schedule map[int]Tier

// ParseSchedule converts a stored JSONB schedule into a validated Schedule.
// Keys must be positive integers and every tier must satisfy min <= avg <= max
// with non-negative amounts. Validation is strict here so resolution never
// has to fail.
func ParseSchedule(raw map[string]interface{}) (Schedule, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("schedule is empty: %w", ErrInvalidSchedule)
	}

	schedule := make(Schedule, len(raw))
	for key, value := range raw {
		position, err := strconv.Atoi(key)
		if err != nil || position < 1 {
			return nil, fmt.Errorf("tier key %q is not a positive integer: %w", key, ErrInvalidSchedule)
		}

		tierMap, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("tier %q is not an object: %w", key, ErrInvalidSchedule)
		}

		tier, err := parseTier(tierMap)
		if err != nil {
			return nil, fmt.Errorf("tier %q: %w", key, err)
		}
		schedule[position] = tier
	}

	return schedule, nil
}

func parseTier(raw map[string]interface{}) (Tier, error) {
	min, err := intField(raw, "min")
	if err != nil {
		return Tier{}, err
	}
	max, err := intField(raw, "max")
	if err != nil {
		return Tier{}, err
	}
	avg, err := intField(raw, "avg")
	if err != nil {
		return Tier{}, err
	}

	tier := Tier{Min: min, Max: max, Avg: avg}
	if err := tier.Validate(); err != nil {
		return Tier{}, err
	}
	return tier, nil
}

func intField(raw map[string]interface{}, name string) (int64, error) {
	value, ok := raw[name]
	if !ok {
		return 0, fmt.Errorf("missing field %q: %w", name, ErrInvalidSchedule)
	}

	switch v := value.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("field %q is not an integer: %w", name, ErrInvalidSchedule)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("field %q has unsupported type %T: %w", name, value, ErrInvalidSchedule)
	}
}

// Validate checks tier bounds: amounts non-negative and min <= avg <= max.
func (t Tier) Validate() error {
	if t.Min < 0 {
		return fmt.Errorf("min is negative: %w", ErrInvalidSchedule)
	}
	if t.Min > t.Max {
		return fmt.Errorf("min %d exceeds max %d: %w", t.Min, t.Max, ErrInvalidSchedule)
	}
	if t.Avg < t.Min || t.Avg > t.Max {
		return fmt.Errorf("avg %d outside [%d, %d]: %w", t.Avg, t.Min, t.Max, ErrInvalidSchedule)
	}
	return nil
}

// ToJSONB converts the schedule back to its stored representation.
func (s Schedule) ToJSONB() map[string]interface{} {
	raw := make(map[string]interface{}, len(s))
	for position, tier := range s {
		raw[strconv.Itoa(position)] = map[string]interface{}{
			"min": tier.Min,
			"max": tier.Max,
			"avg": tier.Avg,
		}
	}
	return raw
}

// Resolve computes the payout for the next redemption given how many
// successful disbursements the campaign already has. It never fails: a
// matching tier yields its avg clamped into [min, max]; otherwise the
// campaign fallback applies, and failing that the minimal default.
func Resolve(schedule Schedule, priorSuccesses int, fallbackAmount *int64) int64 {
	if tier, ok := schedule[priorSuccesses+1]; ok {
		return clamp(tier.Avg, tier.Min, tier.Max)
	}
	if fallbackAmount != nil && *fallbackAmount > 0 {
		return *fallbackAmount
	}
	return DefaultAmount
}

func clamp(value, min, max int64) int64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
