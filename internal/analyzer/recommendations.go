package analyzer

import "github.com/blackwell-systems/burnwatch/internal/activity"

// Recommendation messages, one per factor and level.
const (
	MsgContinuousHigh   = "Take a break! You've been working continuously for too long."
	MsgContinuousMedium = "Consider taking a short break in the next 30 minutes."
	MsgActivityHigh     = "Your activity level is very high. Try to pace yourself and take regular breaks."
	MsgActivityMedium   = "Your activity level is increasing. Remember to maintain a sustainable pace."
	MsgPatternHigh      = "Your work intensity has been increasing. Consider adjusting your workload."
	MsgPatternMedium    = "Part of your activity is trending upward. Keep an eye on your pace."
	MsgDefault          = "Maintain regular breaks and monitor your energy levels."
)

// recommendations lists advice in factor order: continuous work, activity,
// then pattern. Low factors contribute nothing; if nothing applies the
// generic message is returned.
func recommendations(f Factors) []string {
	var recs []string

	recs = appendFor(recs, f.ContinuousWork, MsgContinuousHigh, MsgContinuousMedium)
	recs = appendFor(recs, f.Activity, MsgActivityHigh, MsgActivityMedium)
	recs = appendFor(recs, f.Pattern, MsgPatternHigh, MsgPatternMedium)

	if len(recs) == 0 {
		recs = append(recs, MsgDefault)
	}
	return recs
}

func appendFor(recs []string, level activity.RiskLevel, high, medium string) []string {
	switch level {
	case activity.RiskHigh:
		return append(recs, high)
	case activity.RiskMedium:
		return append(recs, medium)
	}
	return recs
}
