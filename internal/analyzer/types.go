package analyzer

import (
	"errors"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

// Default risk thresholds.
const (
	// DefaultContinuousWorkMinutes is the uninterrupted work time after which
	// the continuous-work factor reports high. Half of it reports medium.
	DefaultContinuousWorkMinutes = 120

	// DefaultHighClickRatePerHour and DefaultHighKeyRatePerHour bound the
	// activity factor. Rates above half of either bound report medium.
	DefaultHighClickRatePerHour = 100
	DefaultHighKeyRatePerHour   = 1000

	// TrendWindow is the number of recent snapshots fitted by the pattern
	// factor.
	TrendWindow = 3
)

// Thresholds holds the tunable bounds of the risk model.
type Thresholds struct {
	ContinuousWorkMinutes float64 `json:"continuous_work_minutes"`
	HighClickRatePerHour  float64 `json:"high_click_rate_per_hour"`
	HighKeyRatePerHour    float64 `json:"high_key_rate_per_hour"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ContinuousWorkMinutes: DefaultContinuousWorkMinutes,
		HighClickRatePerHour:  DefaultHighClickRatePerHour,
		HighKeyRatePerHour:    DefaultHighKeyRatePerHour,
	}
}

// Validate rejects thresholds that would make a factor meaningless.
func (t Thresholds) Validate() error {
	if t.ContinuousWorkMinutes <= 0 {
		return errors.New("continuous work threshold must be positive")
	}
	if t.HighClickRatePerHour <= 0 {
		return errors.New("click rate threshold must be positive")
	}
	if t.HighKeyRatePerHour <= 0 {
		return errors.New("key rate threshold must be positive")
	}
	return nil
}

// Factors holds the three independent risk factor levels of one assessment.
type Factors struct {
	ContinuousWork activity.RiskLevel `json:"continuous_work"`
	Activity       activity.RiskLevel `json:"activity"`
	Pattern        activity.RiskLevel `json:"pattern"`
}
