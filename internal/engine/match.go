package engine

import (
	"fmt"
	"strings"
	"time"

	"vidria/internal/constants"
	"vidria/internal/rules"
	"vidria/pkg/models"
)

// MatchResult explains a rule evaluation, with one reason per failed
// predicate for the evaluation log.
type MatchResult struct {
	Matched bool
	Reasons []string
}

// MatchRule evaluates every declarative predicate of a rule against an
// event. Predicates on nil fields are unconstrained. A malformed time window
// degrades to unconstrained rather than blocking the rule; the caller logs
// the parse failure separately via TimeWindowError.
func MatchRule(rule *rules.Rule, event *models.DetectionEvent, now time.Time) MatchResult {
	result := MatchResult{Matched: true}

	fail := func(reason string) {
		result.Matched = false
		result.Reasons = append(result.Reasons, reason)
	}

	if rule.Camera != nil && !strings.EqualFold(*rule.Camera, event.Camera) {
		fail(fmt.Sprintf("camera mismatch (want %q, got %q)", *rule.Camera, event.Camera))
	}

	if rule.Label != nil && !labelMatches(*rule.Label, event.Label) {
		fail(fmt.Sprintf("label mismatch (want one of %q, got %q)", *rule.Label, event.Label))
	}

	if rule.FrigateType != nil {
		if *rule.FrigateType != event.Type {
			fail(fmt.Sprintf("type mismatch (want %q, got %q)", *rule.FrigateType, event.Type))
		}
	} else if event.Type == models.EventTypeUpdate {
		// Unconstrained rules skip mid-lifecycle updates so one detection
		// does not fire the same rule on every refinement.
		fail("update events need an explicit frigate_type predicate")
	}

	if rule.MinScore != nil && event.EffectiveScore() < *rule.MinScore {
		fail(fmt.Sprintf("score too low (min=%.2f, actual=%.2f)", *rule.MinScore, event.EffectiveScore()))
	}

	if rule.MinDurationSeconds != nil {
		if event.DurationSeconds == nil {
			fail(fmt.Sprintf("duration missing (min=%.1fs)", *rule.MinDurationSeconds))
		} else if *event.DurationSeconds < *rule.MinDurationSeconds {
			fail(fmt.Sprintf("duration too short (min=%.1fs, actual=%.1fs)", *rule.MinDurationSeconds, *event.DurationSeconds))
		}
	}

	if ok, reason := inTimeWindow(rule, now); !ok {
		fail(reason)
	}

	return result
}

// labelMatches checks the event label against a comma separated list of
// accepted labels, case-insensitively.
func labelMatches(ruleLabel, eventLabel string) bool {
	if eventLabel == "" {
		return false
	}

	want := strings.ToLower(eventLabel)
	for _, candidate := range strings.Split(ruleLabel, ",") {
		if strings.ToLower(strings.TrimSpace(candidate)) == want {
			return true
		}
	}
	return false
}

// TimeWindowError reports whether a rule's time window failed to parse, so
// the engine can log it. Parsing failures never block the rule.
func TimeWindowError(rule *rules.Rule) error {
	if rule.TimeStart != nil {
		if _, err := time.Parse(constants.TimeLayoutHHMM, *rule.TimeStart); err != nil {
			return fmt.Errorf("invalid time_start %q: %w", *rule.TimeStart, err)
		}
	}
	if rule.TimeEnd != nil {
		if _, err := time.Parse(constants.TimeLayoutHHMM, *rule.TimeEnd); err != nil {
			return fmt.Errorf("invalid time_end %q: %w", *rule.TimeEnd, err)
		}
	}
	return nil
}

func inTimeWindow(rule *rules.Rule, now time.Time) (bool, string) {
	if rule.TimeStart == nil && rule.TimeEnd == nil {
		return true, ""
	}

	// Bounds compare as minutes since midnight so an unpadded "9:30"
	// behaves the same as "09:30".
	nowUTC := now.UTC()
	current := nowUTC.Hour()*60 + nowUTC.Minute()
	currentStr := nowUTC.Format(constants.TimeLayoutHHMM)

	start, hasStart := minuteOfDay(rule.TimeStart)
	end, hasEnd := minuteOfDay(rule.TimeEnd)

	switch {
	case hasStart && !hasEnd:
		if current < start {
			return false, fmt.Sprintf("time before window (current=%s, start=%s)", currentStr, *rule.TimeStart)
		}
	case hasEnd && !hasStart:
		if current > end {
			return false, fmt.Sprintf("time after window (current=%s, end=%s)", currentStr, *rule.TimeEnd)
		}
	case hasStart && hasEnd:
		if start <= end {
			if current < start || current > end {
				return false, fmt.Sprintf("time outside window (current=%s, window=%s-%s)", currentStr, *rule.TimeStart, *rule.TimeEnd)
			}
		} else {
			// Window wraps midnight, e.g. 22:00-06:00.
			if current < start && current > end {
				return false, fmt.Sprintf("time outside window (current=%s, window=%s-%s)", currentStr, *rule.TimeStart, *rule.TimeEnd)
			}
		}
	}

	return true, ""
}

// minuteOfDay parses an optional "HH:MM" bound into minutes since midnight.
// Absent or malformed bounds report false and stay unconstrained.
func minuteOfDay(hhmm *string) (int, bool) {
	if hhmm == nil {
		return 0, false
	}
	parsed, err := time.Parse(constants.TimeLayoutHHMM, *hhmm)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}
