package scoring

// Q is a minimal view of a question needed for scoring.
// Keep this in sync with whatever fields your store uses.
type Q struct {
	Type   string
	Weight float64
}

// Result is the outcome of scoring a single question response.
type Result struct {
	Achieved float64 // weight credited for this answer
	Weight   float64 // the question's full weight
	Answered bool    // counts toward progress/completion
	Negative bool    // surfaced as a finding in the final report
}

// Strategy scores a single question.
type Strategy interface {
	Score(q Q, response interface{}) Result
}

// Engine routes by question type to the correct Strategy. Scoring is
// total: any response value, well-formed or not, yields a Result and
// never an error. A malformed value counts as answered with zero
// credit, so it weighs against the score without crashing it.
type Engine interface {
	Score(q Q, response interface{}) Result
}

type defaultEngine struct {
	strategies map[string]Strategy
}

func (e *defaultEngine) Score(q Q, response interface{}) Result {
	s, ok := e.strategies[q.Type]
	if !ok {
		// unknown types score like informational fields
		s = answeredStrategy{}
	}
	return s.Score(q, response)
}

// NewEngine installs the built-in per-type strategies.
func NewEngine() Engine {
	return &defaultEngine{
		strategies: map[string]Strategy{
			"pass_fail": tokenStrategy{pass: set("pass"), negative: "fail"},
			"yes_no":    tokenStrategy{pass: set("yes"), negative: "no"},
			// "na" passes: the item is excluded from risk without
			// penalizing the score.
			"yes_no_na":  tokenStrategy{pass: set("yes", "na"), negative: "no"},
			"scale_1_5":  scaleStrategy{max: 5},
			"scale_1_10": scaleStrategy{max: 10},
			"text":       answeredStrategy{},
			"textarea":   answeredStrategy{},
			"numeric":    answeredStrategy{},
			"signature":  answeredStrategy{},
		},
	}
}

func set(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}
