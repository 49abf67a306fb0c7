package inference

import (
	"fmt"
	"strings"

	"ai-reading-be/pkg/reading"
)

const diagnosisInstruction = `You are a study planner. Read the attached document and decide what a learner must already know to understand it.
Return ONLY a JSON object, no markdown:
{
  "topic": "short name of the document's subject",
  "prerequisites": [
    {"id": "p1", "concept": "name of one prerequisite concept"}
  ],
  "initial_briefing": "two or three sentences introducing the document"
}
Rules:
- list between 3 and 6 prerequisites, most fundamental first
- prerequisites are background knowledge, never topics the document itself teaches
- ids are p1, p2, p3 in order`

const classifyInstruction = `Classify the attached document.
STEM: mathematics, science, engineering, computing, medicine, quantitative economics.
HUMANITIES: history, philosophy, literature, law, arts, social commentary.
Return ONLY a JSON object: {"doc_type": "STEM"} or {"doc_type": "HUMANITIES"}`

const quizInstruction = `You write a single gatekeeper question that checks whether a learner is ready to read the attached document about %q.
Return ONLY a JSON object, no markdown:
{
  "question": "one multiple-choice question",
  "options": ["option A", "option B", "option C", "option D"],
  "correct_index": 0,
  "explanation": "why the correct option is right"
}
Rules:
- exactly four options, exactly one correct
- correct_index is zero based
- test understanding of the prerequisites, not trivia from the document`

const tutoringInstruction = `You are a patient tutor preparing a learner to read a document.
Teach ONLY the prerequisite concepts the learner asks about. Do not summarise or explain the document itself.
Teach one concept at a time, use a short example, then ask one question to check understanding.`

const stemReadingInstruction = `You are a reading guide for a technical document.
Lead the learner through the document itself. Start from its logic map: the structure, the dependencies between parts and where the key results are.
Quote the document when it helps. Keep answers focused and structured.`

const humanitiesReadingInstruction = `You are a reading guide for a humanities text.
Lead the learner through the document itself. Start from a deep skim report: the central argument, how each section supports it and which passages reward close reading.
Quote the document when it helps. Keep answers focused.`

func tutorInstruction(req reading.TutorRequest) string {
	if req.Mode == reading.ModeTutoring {
		if len(req.Concepts) == 0 {
			return tutoringInstruction
		}
		return tutoringInstruction + "\nConcepts to teach: " + strings.Join(req.Concepts, ", ") + "."
	}
	if req.DocType == reading.DocTypeHumanities {
		return humanitiesReadingInstruction
	}
	return stemReadingInstruction
}

func quizPrompt(topic string) string {
	return fmt.Sprintf(quizInstruction, topic)
}
