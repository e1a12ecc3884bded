package gemini

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

func buildIntentPrompt(question string) string {
	return `You route questions for a competitive Smash Bros. coach.
Return strict JSON object with keys:
intent (string, "frame_data" or "theory"), character (string), move (string).
Use "frame_data" only when the player asks for exact move numbers: startup,
endlag, shield advantage, damage. Use "theory" for neutral game, matchups,
edgeguarding, psychology, combos and everything else.
character and move are the fighter and move the question is about; use ""
when unclear. No markdown, no extra keys.

Question:
` + question
}

func buildExpansionPrompt(question string, max int) string {
	return fmt.Sprintf(`Rewrite the player's question as up to %d alternative search queries
for a Smash Bros. strategy knowledge base. Cover different facets: the
matchup, the specific situation, the underlying mechanic. One query per
line, plain text only, no numbering, no commentary.

Question:
%s
`, max, question)
}

func buildJudgmentPrompt(question string, chunk domain.RetrievedChunk) string {
	const maxExcerpt = 800
	excerpt := chunk.Text
	if len(excerpt) > maxExcerpt {
		cut := maxExcerpt
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}

	return fmt.Sprintf(`Rate how well this passage answers the player's question.
Reply with a single integer from 1 (irrelevant) to 10 (directly answers it).
No words, no punctuation, just the number.

Question:
%s

Passage (%s):
%s
`, question, chunk.Title, excerpt)
}

func buildGroundedPrompt(question, facts, history string) string {
	return fmt.Sprintf(`You are a Smash Bros. coach answering from verified frame data.
Rules:
- Copy every numeric value exactly as written in the records below.
- If a field the player asks about says "no data", answer "no data" for it.
- Never estimate, average, or invent a number that is not in the records.
Explain what the numbers mean for the player's gameplay in two or three
sentences after stating them.
%s
Records:
%s

Question:
%s
`, historySection(history), facts, question)
}

func buildAnalysisPrompt(question, contextBlock, history string) string {
	return fmt.Sprintf(`You are a top-level Smash Bros. coach. Diagnose the player's situation
using the reference material below. Cover the frame situation, the
opponent's likely options and psychology, and the risk/reward of the
player's choices. Write 3 to 5 sentences, logical and concrete. Do not
give action items yet.
%s
Reference material:
%s

Question:
%s
`, historySection(history), contextBlock, question)
}

func buildAdvicePrompt(question, contextBlock, analysis, history string) string {
	return fmt.Sprintf(`You are a top-level Smash Bros. coach. Turn the diagnosis below into
concrete practice advice. Answer as a numbered list of actions. Each item
names the technique, the frame window or timing when known, and the
situation where it applies. Stay consistent with the diagnosis and the
reference material.
%s
Reference material:
%s

Diagnosis:
%s

Question:
%s
`, historySection(history), contextBlock, analysis, question)
}

func buildSummaryPrompt(history, question string) string {
	return fmt.Sprintf(`Compress this coaching conversation into only the parts needed to
understand the player's next question. Keep named fighters, moves, and any
advice already given. A few sentences, plain text.

Conversation:
%s

Next question:
%s
`, history, question)
}

func historySection(history string) string {
	if strings.TrimSpace(history) == "" {
		return ""
	}
	return "\nConversation so far:\n" + history + "\n"
}
