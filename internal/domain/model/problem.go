package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// GenerationRequest is everything a TextGenerator needs for one attempt.
// Deadlines travel on the context, not here.
type GenerationRequest struct {
	Domain            string
	Difficulty        Difficulty
	SystemInstruction string
	Prompt            string
	Temperature       float32
	MaxOutputTokens   int
}

// EstimationProblem is a parsed and validated Fermi problem. It is never mutated after creation.
type EstimationProblem struct {
	ID          string
	Domain      string
	Difficulty  Difficulty
	Question    string
	Reasoning   string
	Answer      string
	Estimate    float64 // leading numeric value of Answer
	GeneratedAt time.Time
}

func NewEstimationProblem(req GenerationRequest, question, reasoning, answer string, estimate float64) *EstimationProblem {
	return &EstimationProblem{
		ID:          NewID(),
		Domain:      req.Domain,
		Difficulty:  req.Difficulty,
		Question:    question,
		Reasoning:   reasoning,
		Answer:      answer,
		Estimate:    estimate,
		GeneratedAt: time.Now().UTC(),
	}
}

// NewID returns a lexically sortable identifier for runs and problems.
func NewID() string {
	return ulid.Make().String()
}
