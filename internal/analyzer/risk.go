package analyzer

import (
	"errors"
	"fmt"
	"math"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

// UnavailableMessage is the sole recommendation of an assessment that could
// not be computed.
const UnavailableMessage = "Unable to assess burnout risk at this time."

// Combined risk thresholds over the mean factor score.
const (
	highRiskScore   = 2.5
	mediumRiskScore = 1.5
)

// Analyze scores a snapshot. It never fails: any internal error or panic
// degrades to an unknown assessment carrying UnavailableMessage.
//
// Risk components:
//   - Continuous work: minutes since the last break against the threshold
//   - Activity: hourly click and key rates over the snapshot's screen time
//   - Pattern: trend of the last three snapshots in history
//
// The factor scores (low=1, medium=2, high=3) are averaged: >=2.5 is high,
// >=1.5 is medium, anything lower is low.
func (a *Analyzer) Analyze(s activity.Snapshot) activity.Assessment {
	result, _, _ := a.Evaluate(s)
	return result
}

// Evaluate is Analyze that also returns the factors behind the assessment.
// On failure the assessment is the unknown one and the error says why.
func (a *Analyzer) Evaluate(s activity.Snapshot) (result activity.Assessment, f Factors, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Errorf("risk analysis panicked: %v", r)
			result, f, err = unavailable(), Factors{}, fmt.Errorf("risk analysis panicked: %v", r)
		}
	}()

	f, err = a.Factors(s)
	if err != nil {
		a.log.Errorf("risk analysis failed: %v", err)
		return unavailable(), Factors{}, err
	}

	return activity.Assessment{
		RiskLevel:       Combine(f),
		Recommendations: recommendations(f),
	}, f, nil
}

// Factors evaluates the three risk factors for s. It fails only when the
// snapshot itself is unusable.
func (a *Analyzer) Factors(s activity.Snapshot) (Factors, error) {
	if err := validateSnapshot(s); err != nil {
		return Factors{}, err
	}

	t := a.Thresholds()
	return Factors{
		ContinuousWork: assessContinuousWork(a.MinutesSinceBreak(), t.ContinuousWorkMinutes),
		Activity:       assessActivity(s, t),
		Pattern:        a.analyzePatterns(),
	}, nil
}

// Combine averages the factor scores into an overall level. Boundaries are
// compared directly rather than rounded.
func Combine(f Factors) activity.RiskLevel {
	total := f.ContinuousWork.Score() + f.Activity.Score() + f.Pattern.Score()
	avg := float64(total) / 3

	if avg >= highRiskScore {
		return activity.RiskHigh
	} else if avg >= mediumRiskScore {
		return activity.RiskMedium
	}
	return activity.RiskLow
}

// assessContinuousWork compares uninterrupted work time against the
// threshold: above it is high, above half of it is medium. Both comparisons
// are strict.
func assessContinuousWork(minutes, threshold float64) activity.RiskLevel {
	if minutes > threshold {
		return activity.RiskHigh
	} else if minutes > threshold/2 {
		return activity.RiskMedium
	}
	return activity.RiskLow
}

// assessActivity normalizes the counters to hourly rates. Zero screen time
// has no meaningful rate and reports low.
func assessActivity(s activity.Snapshot, t Thresholds) activity.RiskLevel {
	hours := s.ScreenTimeMinutes / 60
	if hours <= 0 {
		return activity.RiskLow
	}

	clickRate := float64(s.Clicks) / hours
	keyRate := float64(s.KeyPresses) / hours

	if clickRate > t.HighClickRatePerHour || keyRate > t.HighKeyRatePerHour {
		return activity.RiskHigh
	} else if clickRate > t.HighClickRatePerHour/2 || keyRate > t.HighKeyRatePerHour/2 {
		return activity.RiskMedium
	}
	return activity.RiskLow
}

// analyzePatterns fits a linear trend to the clicks and key presses of the
// most recent snapshots. Fit errors are logged and reported as low.
func (a *Analyzer) analyzePatterns() activity.RiskLevel {
	if a.history == nil {
		return activity.RiskLow
	}

	recent := a.history.Window(TrendWindow)
	if len(recent) < 2 {
		return activity.RiskLow
	}

	clicks := make([]float64, len(recent))
	keys := make([]float64, len(recent))
	for i, s := range recent {
		clicks[i] = float64(s.Clicks)
		keys[i] = float64(s.KeyPresses)
	}

	clickSlope, err := Slope(clicks)
	if err != nil {
		a.log.Warnf("pattern analysis skipped: clicks: %v", err)
		return activity.RiskLow
	}
	keySlope, err := Slope(keys)
	if err != nil {
		a.log.Warnf("pattern analysis skipped: key presses: %v", err)
		return activity.RiskLow
	}

	switch {
	case clickSlope > 0 && keySlope > 0:
		return activity.RiskHigh
	case clickSlope > 0 || keySlope > 0:
		return activity.RiskMedium
	default:
		return activity.RiskLow
	}
}

func validateSnapshot(s activity.Snapshot) error {
	if s.Clicks < 0 || s.KeyPresses < 0 {
		return fmt.Errorf("negative counters (clicks=%d, keypresses=%d)", s.Clicks, s.KeyPresses)
	}
	if math.IsNaN(s.ScreenTimeMinutes) || math.IsInf(s.ScreenTimeMinutes, 0) {
		return errors.New("screen time is not a finite number")
	}
	return nil
}

func unavailable() activity.Assessment {
	return activity.Assessment{
		RiskLevel:       activity.RiskUnknown,
		Recommendations: []string{UnavailableMessage},
	}
}
