package scoring

import (
	"math"
	"testing"
)

func TestTokenTypes(t *testing.T) {
	eng := NewEngine()
	cases := []struct {
		name     string
		qtype    string
		weight   float64
		response interface{}
		achieved float64
		answered bool
		negative bool
	}{
		{"pass earns full weight", "pass_fail", 2, "pass", 2, true, false},
		{"fail earns nothing and is a finding", "pass_fail", 2, "fail", 0, true, true},
		{"unknown token earns nothing", "pass_fail", 2, "maybe", 0, true, false},
		{"nil is unanswered", "pass_fail", 2, nil, 0, false, false},
		{"yes earns full weight", "yes_no", 3, "yes", 3, true, false},
		{"no is a finding", "yes_no", 3, "no", 0, true, true},
		{"na passes without penalty", "yes_no_na", 5, "na", 5, true, false},
		{"yes_no_na no is a finding", "yes_no_na", 5, "no", 0, true, true},
		{"non-string answer counts but earns nothing", "pass_fail", 2, 17.0, 0, true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := eng.Score(Q{Type: c.qtype, Weight: c.weight}, c.response)
			if res.Achieved != c.achieved || res.Answered != c.answered || res.Negative != c.negative {
				t.Fatalf("got %+v, want achieved=%v answered=%v negative=%v",
					res, c.achieved, c.answered, c.negative)
			}
			if res.Weight != c.weight {
				t.Fatalf("weight %v, want %v", res.Weight, c.weight)
			}
		})
	}
}

func TestScaleTypes(t *testing.T) {
	eng := NewEngine()
	cases := []struct {
		name     string
		qtype    string
		weight   float64
		response interface{}
		achieved float64
		answered bool
	}{
		{"scale_1_5 fractional credit", "scale_1_5", 5, 3.0, 3, true},
		{"scale_1_5 top of range", "scale_1_5", 2, 5.0, 2, true},
		{"scale_1_10 half credit", "scale_1_10", 4, 5.0, 2, true},
		{"numeric string is parsed", "scale_1_5", 5, "4", 4, true},
		{"out of range earns nothing", "scale_1_5", 5, 9.0, 0, true},
		{"negative value earns nothing", "scale_1_10", 5, -1.0, 0, true},
		{"garbage string earns nothing but is answered", "scale_1_5", 5, "banana", 0, true},
		{"nil is unanswered", "scale_1_5", 5, nil, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := eng.Score(Q{Type: c.qtype, Weight: c.weight}, c.response)
			if math.Abs(res.Achieved-c.achieved) > 1e-9 || res.Answered != c.answered {
				t.Fatalf("got %+v, want achieved=%v answered=%v", res, c.achieved, c.answered)
			}
			if res.Negative {
				t.Fatal("scale answers are never findings")
			}
		})
	}
}

func TestInformationalTypes(t *testing.T) {
	eng := NewEngine()
	cases := []struct {
		name     string
		qtype    string
		weight   float64
		response interface{}
		achieved float64
		answered bool
	}{
		{"text answered", "text", 0, "ok", 0, true},
		{"empty text is unanswered", "text", 0, "", 0, false},
		{"textarea answered with weight", "textarea", 1, "long note", 1, true},
		{"numeric answered", "numeric", 0, 42.0, 0, true},
		{"signature answered", "signature", 0, "blob-key", 0, true},
		{"unknown type falls back to answered rule", "polaroid", 2, "x", 2, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := eng.Score(Q{Type: c.qtype, Weight: c.weight}, c.response)
			if res.Achieved != c.achieved || res.Answered != c.answered {
				t.Fatalf("got %+v, want achieved=%v answered=%v", res, c.achieved, c.answered)
			}
		})
	}
}

func TestIsAnswered(t *testing.T) {
	if IsAnswered("pass_fail", nil) {
		t.Fatal("nil must never count as answered")
	}
	if IsAnswered("text", "") {
		t.Fatal("empty string is unanswered for text")
	}
	if !IsAnswered("pass_fail", "") {
		t.Fatal("empty string counts for non-text types")
	}
	if !IsAnswered("text", "note") || !IsAnswered("scale_1_5", 1.0) {
		t.Fatal("real values must count")
	}
}

func TestPassed(t *testing.T) {
	if Passed(79) {
		t.Fatal("79 must not pass")
	}
	if !Passed(80) || !Passed(100) {
		t.Fatal("scores at or above the threshold must pass")
	}
}
