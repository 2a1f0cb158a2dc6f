package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fermi-notifier/internal/domain"
)

// Marker format used by earlier prompt versions, still accepted as a fallback.
const (
	problemMarker   = "**Problem:**"
	solutionMarker  = "**Solution:**"
	separatorMarker = "---SOLUTION_SEPARATOR---"
)

type parsedProblem struct {
	Question  string
	Reasoning string
	Answer    string
	Estimate  float64
}

type jsonProblem struct {
	Question  string `json:"question"`
	Problem   string `json:"problem"`
	Reasoning string `json:"reasoning"`
	Solution  string `json:"solution"`
	Answer    any    `json:"answer"`
}

// parseProblem extracts and validates question, reasoning and answer from model output.
// Any failure wraps domain.ErrGenerationInvalid.
func parseProblem(text string) (*parsedProblem, error) {
	body := stripFences(strings.TrimSpace(text))
	if body == "" {
		return nil, fmt.Errorf("%w: empty output", domain.ErrGenerationInvalid)
	}

	var p *parsedProblem
	var err error
	switch {
	case strings.HasPrefix(body, "{"):
		p, err = parseJSONProblem(body)
	case strings.Contains(body, separatorMarker):
		p, err = parseMarkerProblem(body)
	default:
		return nil, fmt.Errorf("%w: unrecognized output format", domain.ErrGenerationInvalid)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case p.Question == "":
		return nil, fmt.Errorf("%w: empty question", domain.ErrGenerationInvalid)
	case p.Reasoning == "":
		return nil, fmt.Errorf("%w: empty reasoning", domain.ErrGenerationInvalid)
	case p.Answer == "":
		return nil, fmt.Errorf("%w: empty answer", domain.ErrGenerationInvalid)
	}
	est, err := ParseEstimate(p.Answer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationInvalid, err)
	}
	p.Estimate = est
	return p, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func parseJSONProblem(body string) (*parsedProblem, error) {
	var jp jsonProblem
	if err := json.Unmarshal([]byte(body), &jp); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", domain.ErrGenerationInvalid, err)
	}
	p := &parsedProblem{
		Question:  firstNonEmpty(jp.Question, jp.Problem),
		Reasoning: firstNonEmpty(jp.Reasoning, jp.Solution),
	}
	switch v := jp.Answer.(type) {
	case string:
		p.Answer = strings.TrimSpace(v)
	case float64:
		p.Answer = strconv.FormatFloat(v, 'g', -1, 64)
	case nil:
	default:
		return nil, fmt.Errorf("%w: answer has unexpected type %T", domain.ErrGenerationInvalid, v)
	}
	return p, nil
}

func parseMarkerProblem(body string) (*parsedProblem, error) {
	parts := strings.Split(body, separatorMarker)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: expected 2 parts, found %d", domain.ErrGenerationInvalid, len(parts))
	}
	problem := strings.TrimSpace(parts[0])
	solution := strings.TrimSpace(parts[1])
	if !strings.HasPrefix(problem, problemMarker) || !strings.HasPrefix(solution, solutionMarker) {
		return nil, fmt.Errorf("%w: missing expected marker(s)", domain.ErrGenerationInvalid)
	}
	problem = strings.TrimSpace(strings.TrimPrefix(problem, problemMarker))
	solution = strings.TrimSpace(strings.TrimPrefix(solution, solutionMarker))

	lines := strings.Split(solution, "\n")
	answerAt := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			answerAt = i
			break
		}
	}
	if answerAt < 0 {
		return &parsedProblem{Question: problem}, nil
	}
	for i := answerAt; i >= 0; i-- {
		if _, ok := cutAnswerLabel(lines[i]); ok {
			answerAt = i
			break
		}
	}
	answer, _ := cutAnswerLabel(lines[answerAt])
	reasoning := strings.TrimSpace(strings.Join(lines[:answerAt], "\n"))
	if reasoning == "" {
		reasoning = solution
	}
	return &parsedProblem{Question: problem, Reasoning: reasoning, Answer: answer}, nil
}

var answerLabelRe = regexp.MustCompile(`(?i)^\s*[*_]*\s*(?:final\s+)?(?:approximate\s+)?answer\s*[*_]*\s*:\s*[*_]*\s*`)

// cutAnswerLabel strips a leading "Answer:" label; ok reports whether one was present.
func cutAnswerLabel(line string) (string, bool) {
	loc := answerLabelRe.FindStringIndex(line)
	if loc == nil {
		return strings.TrimSpace(line), false
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line[loc[1]:]), "*_")), true
}

var (
	sciTimesRe = regexp.MustCompile(`(?i)(\d(?:[\d,]*\d)?(?:\.\d+)?)\s*(?:x|×|\*|·)\s*10\s*\^\s*\(?([-+]?\d+)\)?`)
	powTenRe   = regexp.MustCompile(`(^|[^\d.])10\s*\^\s*\(?([-+]?\d+)\)?`)
	numberRe   = regexp.MustCompile(`(?i)(?:^|[^a-z0-9.])(\d(?:[\d,]*\d)?(?:\.\d+)?(?:e[-+]?\d+)?)(?:\s*(thousand|million|billion|trillion|bn|k)\b)?`)
)

var magnitudeWords = map[string]float64{
	"k":        1e3,
	"thousand": 1e3,
	"million":  1e6,
	"bn":       1e9,
	"billion":  1e9,
	"trillion": 1e12,
}

// ParseEstimate returns the leading numeric value of a free-form answer such as
// "~2500-5000", "about 3 million", "1.2 x 10^9" or "10^6 liters".
func ParseEstimate(answer string) (float64, error) {
	s := sciTimesRe.ReplaceAllString(answer, "${1}e${2}")
	s = powTenRe.ReplaceAllString(s, "${1}1e${2}")

	m := numberRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("answer %q contains no number", answer)
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("answer %q: %v", answer, err)
	}
	if mult, ok := magnitudeWords[strings.ToLower(m[2])]; ok {
		v *= mult
	}
	return v, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
