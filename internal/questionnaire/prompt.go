package questionnaire

import (
	"fmt"
	"strings"
)

// HistoryEntry is one answered question in the running conversation.
type HistoryEntry struct {
	QuestionNumber int    `json:"question_number"`
	AnswerText     string `json:"answer_text"`
	AnswerValue    int    `json:"answer_value"`
}

// Answers at or above this value are flagged for follow-up.
const followUpThreshold = 30

const (
	PhaseBroad    = "initial_broad_assessment"
	PhaseDeepDive = "deep_dive"
	PhaseWrapUp   = "wrap_up"
)

var phaseInstructions = map[string]string{
	PhaseBroad:    "Ask a general question to understand their overall mental state and identify key areas of concern.",
	PhaseDeepDive: "Based on their previous answers, dive deeper into the specific areas showing stress or concern.",
	PhaseWrapUp:   "Ask about coping mechanisms, support systems, or any remaining important aspects not yet covered.",
}

func Phase(questionNumber int) string {
	switch {
	case questionNumber <= 3:
		return PhaseBroad
	case questionNumber <= 7:
		return PhaseDeepDive
	default:
		return PhaseWrapUp
	}
}

func BuildConversationContext(history []HistoryEntry) string {
	if len(history) == 0 {
		return "This is the first question. Start with a broad assessment."
	}

	lines := make([]string, 0, len(history))
	var followUp []string
	for _, e := range history {
		if e.AnswerValue >= followUpThreshold {
			followUp = append(followUp, "- High stress in area related to: "+e.AnswerText)
		}
		lines = append(lines, fmt.Sprintf("Q%d: User responded with '%s' (stress level: %d/40)",
			e.QuestionNumber, e.AnswerText, e.AnswerValue))
	}

	out := strings.Join(lines, "\n")
	if len(followUp) > 0 {
		out += "\n\nAreas requiring follow-up:\n" + strings.Join(followUp, "\n")
	}
	return out
}

const systemPrompt = `You are a compassionate mental health assessment assistant. Your role is to generate personalized, empathetic questions that help understand someone's mental wellness and stress levels.

Guidelines:
- Be warm, non-judgmental, and supportive
- Ask one clear question at a time
- Build naturally on previous responses
- Focus on actionable areas: sleep, work stress, relationships, self-care, emotions, physical symptoms
- Match the assessment phase (broad → deep dive → wrap-up)`

const userPromptTemplate = `Generate the next question for a mental wellness assessment.

Assessment Progress: Question %d of %d
Phase: %s

Previous Conversation:
%s

Instructions: %s

Return ONLY a valid JSON object in this exact format (no markdown, no explanation):
{
    "question": "Your empathetic question here",
    "type": "scale",
    "options": [
        {"value": 10, "text": "😊 [Positive/low stress response]"},
        {"value": 20, "text": "😌 [Moderate/manageable response]"},
        {"value": 30, "text": "😕 [High stress/concerning response]"},
        {"value": 40, "text": "😔 [Severe/overwhelming response]"}
    ],
    "follow_up_areas": ["area1", "area2"]
}

Important:
- Use emojis that match the sentiment
- Make option texts specific to the question
- Ensure options progress from low stress (10) to high stress (40)
- Return ONLY the JSON, no additional text`

func buildUserPrompt(questionNumber, total int, conversation string) string {
	phase := Phase(questionNumber)
	return fmt.Sprintf(userPromptTemplate, questionNumber, total, phase, conversation, phaseInstructions[phase])
}
