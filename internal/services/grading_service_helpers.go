package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/classpulse/quiz-session-engine/internal/models"
)

// ===== PER-KIND GRADERS =====

func (s *gradingService) gradeMultipleChoice(question *models.Question, answer json.RawMessage, result *models.QuestionResult) (*models.QuestionResult, error) {
	var content models.MultipleChoiceContent
	if err := question.DecodeContent(&content); err != nil {
		return nil, err
	}
	if content.CorrectIndex < 0 || content.CorrectIndex >= len(content.Options) {
		return nil, fmt.Errorf("question %s: correct index %d out of range", question.ID, content.CorrectIndex)
	}
	result.CorrectAnswer = content.Options[content.CorrectIndex]

	if len(answer) == 0 {
		return result, nil
	}

	var selected int
	if err := json.Unmarshal(answer, &selected); err != nil {
		return nil, fmt.Errorf("question %s: invalid multiple-choice answer: %w", question.ID, err)
	}
	if selected < 0 || selected >= len(content.Options) {
		result.UserAnswer = strconv.Itoa(selected)
		return result, nil
	}

	result.UserAnswer = content.Options[selected]
	if result.UserAnswer == result.CorrectAnswer {
		result.IsCorrect = true
		result.Score = float64(result.Points)
	}
	return result, nil
}

func (s *gradingService) gradeTrueFalse(question *models.Question, answer json.RawMessage, result *models.QuestionResult) (*models.QuestionResult, error) {
	var content models.TrueFalseContent
	if err := question.DecodeContent(&content); err != nil {
		return nil, err
	}
	result.CorrectAnswer = strconv.FormatBool(content.CorrectAnswer)

	if len(answer) == 0 {
		return result, nil
	}

	var selected bool
	if err := json.Unmarshal(answer, &selected); err != nil {
		return nil, fmt.Errorf("question %s: invalid true-false answer: %w", question.ID, err)
	}

	result.UserAnswer = strconv.FormatBool(selected)
	if selected == content.CorrectAnswer {
		result.IsCorrect = true
		result.Score = float64(result.Points)
	}
	return result, nil
}

func (s *gradingService) gradeTextAnswer(question *models.Question, answer json.RawMessage, result *models.QuestionResult) (*models.QuestionResult, error) {
	var content models.TextAnswerContent
	if err := question.DecodeContent(&content); err != nil {
		return nil, err
	}
	result.CorrectAnswer = content.CorrectAnswer

	if len(answer) == 0 {
		return result, nil
	}

	var given string
	if err := json.Unmarshal(answer, &given); err != nil {
		return nil, fmt.Errorf("question %s: invalid text answer: %w", question.ID, err)
	}

	result.UserAnswer = given
	if normalizeAnswer(given) != "" && normalizeAnswer(given) == normalizeAnswer(content.CorrectAnswer) {
		result.IsCorrect = true
		result.Score = float64(result.Points)
	}
	return result, nil
}

func (s *gradingService) gradeMatching(question *models.Question, answer json.RawMessage, result *models.QuestionResult) (*models.QuestionResult, error) {
	var content models.MatchingContent
	if err := question.DecodeContent(&content); err != nil {
		return nil, err
	}
	if len(content.Prompts) == 0 {
		return nil, fmt.Errorf("question %s: matching question has no prompts", question.ID)
	}

	selected := map[string]string{}
	if len(answer) > 0 {
		if err := json.Unmarshal(answer, &selected); err != nil {
			return nil, fmt.Errorf("question %s: invalid matching answer: %w", question.ID, err)
		}
	}

	optionText := make(map[string]string, len(content.Options))
	for _, opt := range content.Options {
		optionText[opt.ID] = opt.Text
	}

	pointsPerPair := float64(result.Points) / float64(len(content.Prompts))
	correctCount := 0

	for _, prompt := range content.Prompts {
		correctOptionID := content.CorrectPairs[prompt.ID]
		selectedOptionID := selected[prompt.ID]
		pair := models.MatchingPairResult{
			PromptID:      prompt.ID,
			PromptText:    prompt.Text,
			UserAnswer:    optionText[selectedOptionID],
			CorrectAnswer: optionText[correctOptionID],
			IsCorrect:     selectedOptionID != "" && selectedOptionID == correctOptionID,
		}
		if pair.IsCorrect {
			correctCount++
		}
		result.Pairs = append(result.Pairs, pair)
	}

	result.CorrectCount = correctCount
	result.UserAnswer = fmt.Sprintf("%d/%d pairs", correctCount, len(content.Prompts))
	result.CorrectAnswer = fmt.Sprintf("%d pairs", len(content.Prompts))

	if correctCount == len(content.Prompts) {
		// Full marks stay exact, avoiding float drift on the total.
		result.Score = float64(result.Points)
		result.IsCorrect = true
	} else {
		result.Score = roundTo2(pointsPerPair * float64(correctCount))
	}
	return result, nil
}

func (s *gradingService) gradeEssay(question *models.Question, answer json.RawMessage, result *models.QuestionResult) (*models.QuestionResult, error) {
	result.PendingReview = true

	if len(answer) > 0 {
		var text string
		if err := json.Unmarshal(answer, &text); err != nil {
			return nil, fmt.Errorf("question %s: invalid essay answer: %w", question.ID, err)
		}
		result.UserAnswer = text
	}
	return result, nil
}

// ===== HELPERS =====

const strippedPunctuation = ".,/#!$%^&*;:{}=-_`~()"

// normalizeAnswer lowercases, strips punctuation and trims whitespace so
// "  Mitochondria. " and "mitochondria" compare equal.
func normalizeAnswer(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedPunctuation, r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
