package studyai

import (
	"fmt"
	"strings"
)

const notesPrompt = `You are an expert tutor. Read the attached study material and write
comprehensive study notes in Markdown using exactly this structure:

# <Topic title>

## Overview
A short paragraph describing what the material covers.

## Key Concepts
A bulleted list of the most important terms, each with a one-line definition.

## Detailed Notes
Section-by-section explanations. Use sub-headings, bullet points, tables and
LaTeX ($...$) where they help.

## Examples
Worked examples or applications drawn from the material.

## Summary
Five to ten bullet points a student should remember.

Only use information from the material. Do not wrap the answer in a code block.`

const flashcardsPrompt = `Create between 10 and 20 flashcards from the study material.
Each flashcard has a short, specific question and a concise answer.
Avoid duplicating these existing notes verbatim; use them only as context.
Respond with JSON: {"flashcards":[{"question":"...","answer":"..."}]}`

const quizPrompt = `Create a multiple choice quiz of 10 questions from the study material.
Difficulty: %s
Every question has exactly 4 options and one correct answer.
Respond with JSON: {"questions":[{"question":"...","options":["a","b","c","d"],"correctAnswerIndex":0}]}`

const motivationPrompt = `A student just scored %d out of %d on a practice quiz.
Write one or two short, warm, encouraging sentences for them. No emojis, no lists.`

const chatPreamble = `You are StudyBuddy, a friendly study assistant. Answer the student's
questions using the study context below when it is relevant. Be concise and
accurate, use Markdown, and say so when the context does not cover a question.`

// MotivationFallback is shown when the provider can't produce a message.
const MotivationFallback = "Great effort! Every quiz brings you closer to mastering the material. Keep going!"

// Context budgets for chat. Truncation is silent.
const (
	chatNotesBudget      = 8000 // characters
	chatFlashcardsBudget = 5    // cards
)

// Difficulty controls quiz prompt wording only.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps user input to a Difficulty, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

func (d Difficulty) describe() string {
	switch d {
	case DifficultyEasy:
		return "easy. Test recall of basic definitions and facts."
	case DifficultyHard:
		return "hard. Test application, analysis and subtle distinctions."
	default:
		return "medium. Mix recall with understanding of how concepts relate."
	}
}

func quizInstruction(d Difficulty) string { return fmt.Sprintf(quizPrompt, d.describe()) }

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// buildChatSystem condenses the study context into the system instruction.
func buildChatSystem(sc StudyContext) string {
	var b strings.Builder
	b.WriteString(chatPreamble)

	if notes := strings.TrimSpace(sc.Notes); notes != "" {
		b.WriteString("\n\n## Study notes\n")
		b.WriteString(truncateRunes(notes, chatNotesBudget))
	}

	if len(sc.Flashcards) > 0 {
		b.WriteString("\n\n## Sample flashcards\n")
		for i, c := range sc.Flashcards {
			if i == chatFlashcardsBudget {
				break
			}
			fmt.Fprintf(&b, "- Q: %s\n  A: %s\n", c.Question, c.Answer)
		}
	}

	if len(sc.QuizResults) > 0 {
		b.WriteString("\n\n## Quiz results\n")
		for i, r := range sc.QuizResults {
			fmt.Fprintf(&b, "- Attempt %d: %d/%d\n", i+1, r.Score, r.Total)
		}
	}
	return b.String()
}
