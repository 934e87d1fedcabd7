package analyzer

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/blackwell-systems/burnwatch/internal/activity"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type fakeHistory []activity.Snapshot

func (h fakeHistory) Window(n int) []activity.Snapshot {
	if n <= 0 {
		return nil
	}
	if n > len(h) {
		n = len(h)
	}
	return h[len(h)-n:]
}

type panicHistory struct{}

func (panicHistory) Window(int) []activity.Snapshot {
	panic("history corrupted")
}

func historyOf(clicks, keys []int64) fakeHistory {
	h := make(fakeHistory, len(clicks))
	for i := range clicks {
		h[i] = activity.Snapshot{Clicks: clicks[i], KeyPresses: keys[i]}
	}
	return h
}

// newTestAnalyzer returns an analyzer whose clock is controlled by the
// returned pointer.
func newTestAnalyzer(t *testing.T, history HistoryReader) (*Analyzer, *time.Time, *logtest.Hook) {
	t.Helper()
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	logger, hook := logtest.NewNullLogger()

	a, err := New(DefaultThresholds(), history, Options{
		Clock:  func() time.Time { return now },
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return a, &now, hook
}

func TestAssessContinuousWork(t *testing.T) {
	tests := []struct {
		minutes float64
		want    activity.RiskLevel
	}{
		{0, activity.RiskLow},
		{60, activity.RiskLow},
		{61, activity.RiskMedium},
		{120, activity.RiskMedium},
		{121, activity.RiskHigh},
		{600, activity.RiskHigh},
	}

	for _, tt := range tests {
		if got := assessContinuousWork(tt.minutes, DefaultContinuousWorkMinutes); got != tt.want {
			t.Errorf("assessContinuousWork(%v) = %s, want %s", tt.minutes, got, tt.want)
		}
	}
}

func TestAssessActivity(t *testing.T) {
	tests := []struct {
		name string
		snap activity.Snapshot
		want activity.RiskLevel
	}{
		{"zero screen time ignores counts", activity.Snapshot{Clicks: 100000, KeyPresses: 100000}, activity.RiskLow},
		{"click rate exactly at threshold", activity.Snapshot{Clicks: 100, ScreenTimeMinutes: 60}, activity.RiskMedium},
		{"click rate above threshold", activity.Snapshot{Clicks: 101, ScreenTimeMinutes: 60}, activity.RiskHigh},
		{"click rate exactly at half threshold", activity.Snapshot{Clicks: 50, ScreenTimeMinutes: 60}, activity.RiskLow},
		{"key rate above threshold", activity.Snapshot{KeyPresses: 600, ScreenTimeMinutes: 30}, activity.RiskHigh},
		{"key rate above half threshold", activity.Snapshot{KeyPresses: 501, ScreenTimeMinutes: 60}, activity.RiskMedium},
		{"quiet session", activity.Snapshot{Clicks: 10, KeyPresses: 100, ScreenTimeMinutes: 60}, activity.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := assessActivity(tt.snap, DefaultThresholds()); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAnalyzePatterns(t *testing.T) {
	tests := []struct {
		name    string
		history HistoryReader
		want    activity.RiskLevel
	}{
		{"no history", nil, activity.RiskLow},
		{"single entry", historyOf([]int64{10}, []int64{10}), activity.RiskLow},
		{"clicks rising keys falling", historyOf([]int64{10, 20, 30}, []int64{5, 4, 3}), activity.RiskMedium},
		{"both rising", historyOf([]int64{10, 20, 30}, []int64{1, 2, 3}), activity.RiskHigh},
		{"both flat", historyOf([]int64{7, 7, 7}, []int64{3, 3, 3}), activity.RiskLow},
		{"two entries rising", historyOf([]int64{1, 2}, []int64{1, 2}), activity.RiskHigh},
		{"only last three count", historyOf([]int64{100, 90, 1, 2, 3}, []int64{100, 90, 3, 2, 1}), activity.RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newTestAnalyzer(t, tt.history)
			if got := a.analyzePatterns(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		f    Factors
		want activity.RiskLevel
	}{
		{Factors{activity.RiskHigh, activity.RiskMedium, activity.RiskLow}, activity.RiskMedium},
		{Factors{activity.RiskHigh, activity.RiskHigh, activity.RiskMedium}, activity.RiskHigh},
		{Factors{activity.RiskHigh, activity.RiskHigh, activity.RiskLow}, activity.RiskMedium},
		{Factors{activity.RiskMedium, activity.RiskLow, activity.RiskLow}, activity.RiskLow},
		{Factors{activity.RiskMedium, activity.RiskMedium, activity.RiskLow}, activity.RiskMedium},
		{Factors{activity.RiskLow, activity.RiskLow, activity.RiskLow}, activity.RiskLow},
		{Factors{activity.RiskHigh, activity.RiskHigh, activity.RiskHigh}, activity.RiskHigh},
	}

	for _, tt := range tests {
		if got := Combine(tt.f); got != tt.want {
			t.Errorf("Combine(%+v) = %s, want %s", tt.f, got, tt.want)
		}
	}
}

func TestAnalyze_RecommendationOrder(t *testing.T) {
	a, now, _ := newTestAnalyzer(t, historyOf([]int64{10, 20, 30}, []int64{5, 4, 3}))
	*now = now.Add(3 * time.Hour)

	got := a.Analyze(activity.Snapshot{Clicks: 500, ScreenTimeMinutes: 60})

	want := []string{MsgContinuousHigh, MsgActivityHigh, MsgPatternMedium}
	if !reflect.DeepEqual(got.Recommendations, want) {
		t.Errorf("expected recommendations %v, got %v", want, got.Recommendations)
	}
	if got.RiskLevel != activity.RiskHigh {
		t.Errorf("expected high risk, got %s", got.RiskLevel)
	}
}

func TestAnalyze_DefaultRecommendation(t *testing.T) {
	a, _, _ := newTestAnalyzer(t, nil)

	got := a.Analyze(activity.Snapshot{Clicks: 1, KeyPresses: 1, ScreenTimeMinutes: 10})

	if got.RiskLevel != activity.RiskLow {
		t.Errorf("expected low risk, got %s", got.RiskLevel)
	}
	if !reflect.DeepEqual(got.Recommendations, []string{MsgDefault}) {
		t.Errorf("expected default recommendation, got %v", got.Recommendations)
	}
}

func TestAnalyze_MessagesAreDistinct(t *testing.T) {
	msgs := []string{
		MsgContinuousHigh, MsgContinuousMedium,
		MsgActivityHigh, MsgActivityMedium,
		MsgPatternHigh, MsgPatternMedium,
		MsgDefault, UnavailableMessage,
	}
	seen := make(map[string]bool)
	for _, m := range msgs {
		if seen[m] {
			t.Errorf("duplicate message %q", m)
		}
		seen[m] = true
	}
}

func TestAnalyze_NeverFails(t *testing.T) {
	tests := []struct {
		name    string
		history HistoryReader
		snap    activity.Snapshot
	}{
		{"single history entry", historyOf([]int64{5}, []int64{5}), activity.Snapshot{}},
		{"zero elapsed time", historyOf([]int64{0, 0, 0}, []int64{0, 0, 0}), activity.Snapshot{Clicks: 10}},
		{"panicking history", panicHistory{}, activity.Snapshot{ScreenTimeMinutes: 5}},
		{"negative counters", nil, activity.Snapshot{Clicks: -1}},
		{"NaN screen time", nil, activity.Snapshot{ScreenTimeMinutes: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newTestAnalyzer(t, tt.history)
			got := a.Analyze(tt.snap)
			if got.RiskLevel == "" {
				t.Fatal("expected a risk level")
			}
			if len(got.Recommendations) == 0 {
				t.Fatal("expected at least one recommendation")
			}
		})
	}
}

func TestAnalyze_InternalErrorIsUnknown(t *testing.T) {
	a, _, hook := newTestAnalyzer(t, panicHistory{})

	got := a.Analyze(activity.Snapshot{ScreenTimeMinutes: 5})

	if got.RiskLevel != activity.RiskUnknown {
		t.Errorf("expected unknown risk, got %s", got.RiskLevel)
	}
	if !reflect.DeepEqual(got.Recommendations, []string{UnavailableMessage}) {
		t.Errorf("expected unavailable message, got %v", got.Recommendations)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.ErrorLevel {
		t.Error("expected an error to be logged")
	}
}

func TestEvaluate_ReturnsFactorsBehindAssessment(t *testing.T) {
	a, now, _ := newTestAnalyzer(t, nil)
	*now = now.Add(130 * time.Minute)

	got, f, err := a.Evaluate(activity.Snapshot{ScreenTimeMinutes: 60})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if f.ContinuousWork != activity.RiskHigh {
		t.Errorf("expected high continuous work, got %s", f.ContinuousWork)
	}
	if got.RiskLevel != Combine(f) {
		t.Errorf("expected risk %s from the factors, got %s", Combine(f), got.RiskLevel)
	}

	a, _, _ = newTestAnalyzer(t, panicHistory{})
	got, _, err = a.Evaluate(activity.Snapshot{ScreenTimeMinutes: 5})
	if err == nil {
		t.Error("expected an error when the factors cannot be computed")
	}
	if got.RiskLevel != activity.RiskUnknown {
		t.Errorf("expected unknown risk, got %s", got.RiskLevel)
	}
}

func TestRecordBreakTaken(t *testing.T) {
	a, now, _ := newTestAnalyzer(t, nil)

	*now = now.Add(130 * time.Minute)
	f, err := a.Factors(activity.Snapshot{})
	if err != nil {
		t.Fatalf("Factors() failed: %v", err)
	}
	if f.ContinuousWork != activity.RiskHigh {
		t.Errorf("expected high continuous work before break, got %s", f.ContinuousWork)
	}

	a.RecordBreakTaken()
	if !a.LastBreak().Equal(*now) {
		t.Errorf("expected last break %v, got %v", *now, a.LastBreak())
	}

	f, _ = a.Factors(activity.Snapshot{})
	if f.ContinuousWork != activity.RiskLow {
		t.Errorf("expected low continuous work after break, got %s", f.ContinuousWork)
	}
}

func TestSetThresholds(t *testing.T) {
	a, _, _ := newTestAnalyzer(t, nil)

	if err := a.SetThresholds(Thresholds{}); err == nil {
		t.Error("expected error for zero thresholds")
	}
	if got := a.Thresholds(); got != DefaultThresholds() {
		t.Errorf("rejected update changed thresholds: %+v", got)
	}

	strict := Thresholds{ContinuousWorkMinutes: 120, HighClickRatePerHour: 10, HighKeyRatePerHour: 1000}
	if err := a.SetThresholds(strict); err != nil {
		t.Fatalf("SetThresholds() failed: %v", err)
	}

	f, _ := a.Factors(activity.Snapshot{Clicks: 11, ScreenTimeMinutes: 60})
	if f.Activity != activity.RiskHigh {
		t.Errorf("expected high activity under strict thresholds, got %s", f.Activity)
	}
}

func TestNew_RejectsInvalidThresholds(t *testing.T) {
	if _, err := New(Thresholds{ContinuousWorkMinutes: -1}, nil, Options{}); err == nil {
		t.Error("expected error for invalid thresholds")
	}
}
