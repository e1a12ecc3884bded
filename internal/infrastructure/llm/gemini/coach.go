package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

// Strict tasks copy or score existing text; creative tasks compose new text.
const (
	strictTemperature   float32 = 0
	creativeTemperature float32 = 0.7
)

type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Classify(ctx context.Context, modelID, question string) (domain.QuestionAnalysis, error) {
	respText, err := c.client.generateJSON(ctx, "gemini.classify", modelID, buildIntentPrompt(question), strictTemperature)
	if err != nil {
		return domain.QuestionAnalysis{}, err
	}

	var result domain.QuestionAnalysis
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.QuestionAnalysis{}, fmt.Errorf("parse intent json: %w", err)
	}
	result.Character = cleanEntity(result.Character)
	result.Move = cleanEntity(result.Move)
	return result, nil
}

// cleanEntity drops the placeholder words models emit for an unknown entity.
func cleanEntity(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "none", "null", "unknown", "n/a":
		return ""
	}
	return value
}

type Expander struct {
	client *Client
}

func NewExpander(client *Client) *Expander {
	return &Expander{client: client}
}

func (e *Expander) Expand(ctx context.Context, modelID, question string, max int) ([]string, error) {
	respText, err := e.client.generateText(ctx, "gemini.expand", modelID, buildExpansionPrompt(question, max), creativeTemperature)
	if err != nil {
		return nil, err
	}
	return parseExpansionLines(respText, max), nil
}

func parseExpansionLines(respText string, max int) []string {
	var queries []string
	for _, line := range strings.Split(respText, "\n") {
		query := stripListMarker(line)
		if query == "" {
			continue
		}
		queries = append(queries, query)
		if len(queries) == max {
			break
		}
	}
	return queries
}

// stripListMarker removes leading bullets and "1." / "2)" numbering the model
// adds despite instructions.
func stripListMarker(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimSpace(strings.TrimLeft(line, "-*•"))
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if (r == '.' || r == ')') && i > 0 {
			return strings.TrimSpace(line[i+1:])
		}
		break
	}
	return line
}

type Judge struct {
	client *Client
}

func NewJudge(client *Client) *Judge {
	return &Judge{client: client}
}

var judgmentPattern = regexp.MustCompile(`\d+`)

func (j *Judge) Judge(ctx context.Context, modelID, question string, chunk domain.RetrievedChunk) (int, error) {
	respText, err := j.client.generateText(ctx, "gemini.judge", modelID, buildJudgmentPrompt(question, chunk), strictTemperature)
	if err != nil {
		return 0, err
	}
	return parseJudgment(respText)
}

func parseJudgment(respText string) (int, error) {
	match := judgmentPattern.FindString(respText)
	if match == "" {
		return 0, fmt.Errorf("parse relevance judgment: no integer in %q", clip(respText, 40))
	}
	judgment, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("parse relevance judgment: %w", err)
	}
	return judgment, nil
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateGrounded(ctx context.Context, modelID, question, facts, history string) (string, error) {
	return g.client.generateText(ctx, "gemini.grounded", modelID, buildGroundedPrompt(question, facts, history), strictTemperature)
}

func (g *Generator) GenerateAnalysis(ctx context.Context, modelID, question, contextBlock, history string) (string, error) {
	return g.client.generateText(ctx, "gemini.analysis", modelID, buildAnalysisPrompt(question, contextBlock, history), creativeTemperature)
}

func (g *Generator) GenerateAdvice(ctx context.Context, modelID, question, contextBlock, analysis, history string) (string, error) {
	return g.client.generateText(ctx, "gemini.advice", modelID, buildAdvicePrompt(question, contextBlock, analysis, history), creativeTemperature)
}

type Summarizer struct {
	client *Client
}

func NewSummarizer(client *Client) *Summarizer {
	return &Summarizer{client: client}
}

func (s *Summarizer) SummarizeHistory(ctx context.Context, modelID, history, question string) (string, error) {
	return s.client.generateText(ctx, "gemini.summary", modelID, buildSummaryPrompt(history, question), strictTemperature)
}
