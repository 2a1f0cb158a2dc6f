package usecase

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"fermi-notifier/internal/config"
	"fermi-notifier/internal/domain"
	"fermi-notifier/internal/domain/model"
)

const systemInstruction = "You write Fermi estimation problems: order-of-magnitude questions that can be " +
	"answered by chaining a few reasonable assumptions from everyday knowledge, without looking up a dataset. " +
	"Every problem you write is new and specific."

var difficultyGuidance = map[model.Difficulty]string{
	model.DifficultyEasy:   "Keep it to two or three estimation steps using familiar quantities.",
	model.DifficultyMedium: "Use three to five estimation steps that combine independent assumptions.",
	model.DifficultyHard:   "Use five or more estimation steps; at least one quantity must itself be estimated indirectly.",
}

var rotation = []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}

// PromptBuilder turns configuration into GenerationRequests. Build has no side effects.
type PromptBuilder struct {
	domains     []string
	difficulty  string // fixed difficulty or "rotate"
	avoid       []string
	temperature float32
	maxOut      int
}

// NewPromptBuilder validates the prompt policy; errors wrap domain.ErrConfiguration.
func NewPromptBuilder(p config.PromptConfig, ai config.AIConfig) (*PromptBuilder, error) {
	domains := make([]string, 0, len(p.Domains))
	for _, d := range p.Domains {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("%w: prompt.domains must not be empty", domain.ErrConfiguration)
	}

	difficulty := strings.ToLower(strings.TrimSpace(p.Difficulty))
	if difficulty == "" {
		difficulty = string(model.DifficultyMedium)
	}
	if _, ok := difficultyGuidance[model.Difficulty(difficulty)]; !ok && difficulty != "rotate" {
		return nil, fmt.Errorf("%w: prompt.difficulty %q must be easy, medium, hard or rotate", domain.ErrConfiguration, p.Difficulty)
	}
	temp := ai.EffectiveTemperature()
	if temp < 0 || temp > 2 {
		return nil, fmt.Errorf("%w: ai.temperature %.2f must be within [0, 2]", domain.ErrConfiguration, temp)
	}
	if ai.MaxOutputTokens <= 0 {
		return nil, fmt.Errorf("%w: ai.max_output_tokens must be positive", domain.ErrConfiguration)
	}

	return &PromptBuilder{
		domains:     domains,
		difficulty:  difficulty,
		avoid:       p.Avoid,
		temperature: temp,
		maxOut:      ai.MaxOutputTokens,
	}, nil
}

// Build returns the request for runID. The same inputs always give the same request.
func (b *PromptBuilder) Build(runID string, now time.Time) model.GenerationRequest {
	topic := b.pickDomain(runID)
	difficulty := b.pickDifficulty(now)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create one novel Fermi estimation problem about %s at %s difficulty.\n", topic, difficulty)
	sb.WriteString(difficultyGuidance[difficulty])
	sb.WriteString("\n")
	if len(b.avoid) > 0 {
		fmt.Fprintf(&sb, "Do not reuse well-known examples such as: %s.\n", strings.Join(b.avoid, "; "))
	}
	sb.WriteString("Respond with only a JSON object with three string fields:\n")
	sb.WriteString(`"question": the problem statement in one or two sentences,` + "\n")
	sb.WriteString(`"reasoning": a brief step-by-step estimate listing each assumption and the arithmetic,` + "\n")
	sb.WriteString(`"answer": the final approximate answer, starting with a number (for example "~3 x 10^6 liters").`)

	return model.GenerationRequest{
		Domain:            topic,
		Difficulty:        difficulty,
		SystemInstruction: systemInstruction,
		Prompt:            sb.String(),
		Temperature:       b.temperature,
		MaxOutputTokens:   b.maxOut,
	}
}

func (b *PromptBuilder) pickDomain(runID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(runID))
	return b.domains[h.Sum32()%uint32(len(b.domains))]
}

func (b *PromptBuilder) pickDifficulty(now time.Time) model.Difficulty {
	if b.difficulty != "rotate" {
		return model.Difficulty(b.difficulty)
	}
	return rotation[now.YearDay()%len(rotation)]
}
