package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// AnswerSynthesisUseCase produces the final answer in one of two exclusive
// modes: a grounded paraphrase over exact lookup records, or a two-phase
// analysis-then-advice chain over retrieved context.
type AnswerSynthesisUseCase struct {
	generator ports.AnswerGenerator
}

func NewAnswerSynthesisUseCase(generator ports.AnswerGenerator) *AnswerSynthesisUseCase {
	return &AnswerSynthesisUseCase{generator: generator}
}

// Grounded restates lookup records in prose. The generated text is validated
// afterwards: numbers absent from the facts block are recorded as violations
// so fabrication is observable, but the answer is still returned since the
// validator cannot distinguish a lie from a harmless count.
func (uc *AnswerSynthesisUseCase) Grounded(ctx context.Context, thinkingModel, question string, records []domain.MoveRecord, history string) (*domain.CoachingAnswer, error) {
	facts := FormatMoveRecords(records)

	answer, err := uc.generator.GenerateGrounded(ctx, thinkingModel, question, facts, history)
	if err != nil {
		return nil, fmt.Errorf("generate grounded answer: %w", err)
	}

	violations := GroundingViolations(answer, facts)
	if len(violations) > 0 {
		slog.Error("grounding_violation", "question", question, "numbers", violations)
	}

	return &domain.CoachingAnswer{
		Mode:       domain.ModeGrounded,
		Advice:     strings.TrimSpace(answer),
		Context:    facts,
		Violations: violations,
	}, nil
}

// AnalysisAdvice runs the two-phase chain. The analysis output feeds the
// advice prompt verbatim; a failed or empty first phase aborts the chain
// because advice without analysis is exactly the unstructured rambling the
// split exists to prevent.
func (uc *AnswerSynthesisUseCase) AnalysisAdvice(ctx context.Context, thinkingModel, question, contextBlock, history string) (*domain.CoachingAnswer, error) {
	analysis, err := uc.generator.GenerateAnalysis(ctx, thinkingModel, question, contextBlock, history)
	if err != nil {
		return nil, fmt.Errorf("analysis phase: %w", err)
	}
	analysis = strings.TrimSpace(analysis)
	if analysis == "" {
		return nil, domain.WrapError(domain.ErrTemporary, "analysis phase", errors.New("model returned empty analysis"))
	}

	advice, err := uc.generator.GenerateAdvice(ctx, thinkingModel, question, contextBlock, analysis, history)
	if err != nil {
		return nil, fmt.Errorf("advice phase: %w", err)
	}

	return &domain.CoachingAnswer{
		Mode:     domain.ModeAnalysis,
		Analysis: analysis,
		Advice:   strings.TrimSpace(advice),
		Context:  contextBlock,
	}, nil
}

// DeclinedAnswer is the terminal answer when nothing verifiable survives
// filtering. Stating the miss beats fabricating content, and it needs no
// model call.
func DeclinedAnswer() *domain.CoachingAnswer {
	return &domain.CoachingAnswer{
		Mode: domain.ModeDeclined,
		Advice: "No information available for this question in the current knowledge base. " +
			"Try naming the character, the exact move, or the situation you want to improve.",
	}
}

// FormatMoveRecords renders lookup records as labeled fields. Absent values
// are rendered as "no data" so the model has nothing to fill in.
func FormatMoveRecords(records []domain.MoveRecord) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] character=%s move=%s", i+1, r.Character, r.Move)
		if r.Category != "" {
			fmt.Fprintf(&b, " category=%s", r.Category)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "startup_frames: %s\n", fmtIntField(r.Startup))
		fmt.Fprintf(&b, "active_frames: %s\n", fmtIntField(r.Active))
		fmt.Fprintf(&b, "total_frames: %s\n", fmtIntField(r.Total))
		fmt.Fprintf(&b, "landing_lag: %s\n", fmtIntField(r.LandingLag))
		fmt.Fprintf(&b, "shield_stun: %s\n", fmtIntField(r.ShieldStun))
		fmt.Fprintf(&b, "shield_advantage: %s\n", fmtIntField(r.ShieldAdvantage))
		fmt.Fprintf(&b, "damage_pct: %s\n", fmtFloatField(r.Damage))
		fmt.Fprintf(&b, "damage_1v1_pct: %s\n", fmtFloatField(r.Damage1v1))
		if r.Note != "" {
			fmt.Fprintf(&b, "note: %s\n", r.Note)
		}
	}
	return strings.TrimSpace(b.String())
}

func fmtIntField(v *int) string {
	if v == nil {
		return "no data"
	}
	return strconv.Itoa(*v)
}

func fmtFloatField(v *float64) string {
	if v == nil {
		return "no data"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// BuildSynthesisContext concatenates chunks whose similarity meets the
// threshold, each block tagged with its source title, and returns the kept
// chunks for source attribution.
func BuildSynthesisContext(ranked []domain.RankedChunk, threshold float64) (string, []domain.RetrievedChunk) {
	var b strings.Builder
	kept := make([]domain.RetrievedChunk, 0, len(ranked))
	for _, c := range ranked {
		if c.Score < threshold {
			continue
		}
		title := c.Title
		if title == "" {
			title = c.Source
		}
		fmt.Fprintf(&b, "[%s]\n%s\n\n", title, strings.TrimSpace(c.Text))
		kept = append(kept, c.RetrievedChunk)
	}
	if len(kept) == 0 {
		return "", nil
	}
	return strings.TrimSpace(b.String()), kept
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// GroundingViolations returns the numbers present in answer that never occur
// in the facts block. Grounded answers may only restate source numbers, so a
// novel one means the prompt contract was broken.
func GroundingViolations(answer, facts string) []string {
	allowed := make(map[string]struct{})
	for _, n := range numberPattern.FindAllString(facts, -1) {
		allowed[canonicalNumber(n)] = struct{}{}
	}

	var violations []string
	seen := make(map[string]struct{})
	for _, n := range numberPattern.FindAllString(answer, -1) {
		key := canonicalNumber(n)
		if _, ok := allowed[key]; ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		violations = append(violations, n)
	}
	return violations
}

// canonicalNumber makes "7.0" and "7" compare equal.
func canonicalNumber(n string) string {
	f, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return n
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
