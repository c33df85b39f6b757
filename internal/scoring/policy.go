package scoring

import (
	"strconv"
	"strings"
)

// PassThreshold is the fixed compliance bar: a session passes iff its
// score reaches this value. It is policy, not template data.
const PassThreshold = 80

// Passed reports whether a 0-100 score clears the pass threshold.
func Passed(score int) bool { return score >= PassThreshold }

// IsAnswered reports whether a stored value counts as an answer for
// progress and scoring. Nil never counts; for the free-text kinds an
// empty string does not count either (a record may still exist just to
// hold notes, photos or a flag).
func IsAnswered(qtype string, v interface{}) bool {
	if v == nil {
		return false
	}
	switch qtype {
	case "text", "textarea":
		if s, ok := v.(string); ok && s == "" {
			return false
		}
	}
	return true
}

// --- Strategies ---

// tokenStrategy handles the enumerated-answer types. Full credit for a
// pass token, a finding for the negative token, zero credit otherwise.
type tokenStrategy struct {
	pass     map[string]struct{}
	negative string
}

func (s tokenStrategy) Score(q Q, response interface{}) Result {
	res := Result{Weight: q.Weight}
	if !IsAnswered(q.Type, response) {
		return res
	}
	res.Answered = true
	tok, ok := response.(string)
	if !ok {
		return res
	}
	if _, hit := s.pass[tok]; hit {
		res.Achieved = q.Weight
		return res
	}
	if tok == s.negative {
		res.Negative = true
	}
	return res
}

// scaleStrategy grants fractional credit: weight x value/max. A partial
// score is not a failure. Values outside [0, max] or unparseable earn
// nothing.
type scaleStrategy struct {
	max float64
}

func (s scaleStrategy) Score(q Q, response interface{}) Result {
	res := Result{Weight: q.Weight}
	if !IsAnswered(q.Type, response) {
		return res
	}
	res.Answered = true
	v, ok := toFloat(response)
	if !ok || v < 0 || v > s.max {
		return res
	}
	res.Achieved = q.Weight * (v / s.max)
	return res
}

// answeredStrategy covers text, numeric and signature questions: full
// weight when answered at all. These normally carry weight 0, so the
// branch keeps the formula total without moving the aggregate.
type answeredStrategy struct{}

func (answeredStrategy) Score(q Q, response interface{}) Result {
	res := Result{Weight: q.Weight}
	if !IsAnswered(q.Type, response) {
		return res
	}
	res.Answered = true
	res.Achieved = q.Weight
	return res
}

// toFloat accepts JSON numbers plus lenient numeric strings.
func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
