package bookshelf

import "time"

// ActivationCooldownPeriod is the minimum interval between successive
// activation code issuances for the same user, measured from the previous
// record's creation time.
const ActivationCooldownPeriod = "24h"

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	return IsWithinThresholdPeriodAt(time.Now(), t, pattern)
}

// IsWithinThresholdPeriodAt is the clock-injected variant used by handlers
// so the cooldown check is testable.
func IsWithinThresholdPeriodAt(now, t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	threshold := now.Add(-duration)
	if t.After(threshold) {
		return true, nil
	}

	return false, nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}
