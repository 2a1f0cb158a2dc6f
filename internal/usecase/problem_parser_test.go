package usecase

import (
	"errors"
	"testing"

	"fermi-notifier/internal/domain"
)

func TestParseProblem_JSON(t *testing.T) {
	p, err := parseProblem(validJSON)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.Question != "Estimate the number of stars visible to the naked eye from a dark site" {
		t.Errorf("unexpected question %q", p.Question)
	}
	if p.Answer != "~2500-5000" {
		t.Errorf("unexpected answer %q", p.Answer)
	}
	if p.Estimate != 2500 {
		t.Errorf("expected estimate 2500, got %v", p.Estimate)
	}
	if p.Reasoning == "" {
		t.Error("expected reasoning")
	}
}

func TestParseProblem_FencedJSONAndNumericAnswer(t *testing.T) {
	text := "```json\n{\"problem\": \"How many bathtubs of water fall on London each year?\", " +
		"\"solution\": \"1500 km^2 times 0.6 m of rain over 0.2 m^3 per tub.\", \"answer\": 4500000000}\n```"
	p, err := parseProblem(text)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.Question == "" || p.Reasoning == "" {
		t.Fatalf("aliases not honored: %+v", p)
	}
	if p.Answer != "4.5e+09" || p.Estimate != 4.5e9 {
		t.Errorf("numeric answer mishandled: %q / %v", p.Answer, p.Estimate)
	}
}

func TestParseProblem_MarkerFormat(t *testing.T) {
	text := `**Problem:** How many heartbeats does a hummingbird have in its lifetime?
---SOLUTION_SEPARATOR---
**Solution:** A hummingbird's heart beats about 1,200 times per minute.
It lives about 4 years, or roughly 2 million minutes.
**Answer:** about 2.5 billion heartbeats`

	p, err := parseProblem(text)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.Question != "How many heartbeats does a hummingbird have in its lifetime?" {
		t.Errorf("unexpected question %q", p.Question)
	}
	if p.Answer != "about 2.5 billion heartbeats" {
		t.Errorf("unexpected answer %q", p.Answer)
	}
	if p.Estimate != 2.5e9 {
		t.Errorf("unexpected estimate %v", p.Estimate)
	}
	if p.Reasoning != "A hummingbird's heart beats about 1,200 times per minute.\nIt lives about 4 years, or roughly 2 million minutes." {
		t.Errorf("unexpected reasoning %q", p.Reasoning)
	}
}

func TestParseProblem_MarkerFormatUnlabelledAnswer(t *testing.T) {
	text := "**Problem:** Q?\n---SOLUTION_SEPARATOR---\n**Solution:** step one\nstep two\n~10^6 grains"
	p, err := parseProblem(text)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.Answer != "~10^6 grains" || p.Estimate != 1e6 {
		t.Errorf("unexpected answer %q (%v)", p.Answer, p.Estimate)
	}
	if p.Reasoning != "step one\nstep two" {
		t.Errorf("unexpected reasoning %q", p.Reasoning)
	}
}

func TestParseProblem_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":             "   ",
		"prose":             "Here is a fun problem about cats!",
		"bad json":          `{"question": "q", `,
		"missing question":  `{"reasoning":"r","answer":"5"}`,
		"missing reasoning": `{"question":"q","answer":"5"}`,
		"missing answer":    `{"question":"q","reasoning":"r"}`,
		"answer no number":  `{"question":"q","reasoning":"r","answer":"a great many"}`,
		"answer wrong type": `{"question":"q","reasoning":"r","answer":[1,2]}`,
		"three parts":       "**Problem:** a\n---SOLUTION_SEPARATOR---\nb\n---SOLUTION_SEPARATOR---\nc",
		"missing markers":   "a\n---SOLUTION_SEPARATOR---\nb",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseProblem(text)
			if !errors.Is(err, domain.ErrGenerationInvalid) {
				t.Fatalf("expected ErrGenerationInvalid, got %v", err)
			}
		})
	}
}

func TestParseEstimate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"~2500-5000", 2500},
		{"2,500 stars", 2500},
		{"about 3 million", 3e6},
		{"1.2 x 10^9 liters", 1.2e9},
		{"1.2 × 10^9", 1.2e9},
		{"10^6 people", 1e6},
		{"≈ 4.5e7 kg", 4.5e7},
		{"roughly 50k", 5e4},
		{"5 km", 5},
		{"CO2 output of 7 tonnes", 7},
		{"2 trillion", 2e12},
	}
	for _, tc := range cases {
		got, err := ParseEstimate(tc.in)
		if err != nil {
			t.Errorf("ParseEstimate(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseEstimate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "many", "a few dozen"} {
		if _, err := ParseEstimate(bad); err == nil {
			t.Errorf("ParseEstimate(%q) expected error", bad)
		}
	}
}
