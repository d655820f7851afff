package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/classpulse/quiz-session-engine/internal/models"
)

type gradingService struct {
	logger *slog.Logger
}

// NewGradingService creates the deterministic grading engine. It holds no
// state: identical questions and answers always grade identically.
func NewGradingService(logger *slog.Logger) GradingService {
	return &gradingService{logger: logger}
}

// GradeQuestion grades one question. Essay answers are never auto-graded;
// the result carries PendingReview with a zero score instead.
func (s *gradingService) GradeQuestion(question *models.Question, answer json.RawMessage, startNumber int) (*models.QuestionResult, error) {
	result := &models.QuestionResult{
		QuestionID:   question.ID,
		Kind:         question.Kind,
		QuestionText: question.Text,
		Points:       question.EffectivePoints(),
		StartNumber:  startNumber,
	}

	switch question.Kind {
	case models.MultipleChoice:
		return s.gradeMultipleChoice(question, answer, result)
	case models.TrueFalse:
		return s.gradeTrueFalse(question, answer, result)
	case models.Identification, models.ExactAnswer:
		return s.gradeTextAnswer(question, answer, result)
	case models.MatchingType:
		return s.gradeMatching(question, answer, result)
	case models.Essay:
		return s.gradeEssay(question, answer, result)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuestionKind, question.Kind)
	}
}

// CheckAnswer reports whether an in-progress answer is correct without
// building a full result. Essay returns ErrGradingNotAllowed.
func (s *gradingService) CheckAnswer(question *models.Question, answer json.RawMessage) (bool, error) {
	if question.Kind == models.Essay {
		return false, ErrGradingNotAllowed
	}

	result, err := s.GradeQuestion(question, answer, 0)
	if err != nil {
		return false, err
	}
	return result.IsCorrect, nil
}

// ConfirmMatching grades a matching answer mid-session and reports how many
// pairs are correct out of the total.
func (s *gradingService) ConfirmMatching(question *models.Question, answer json.RawMessage) (int, int, error) {
	if question.Kind != models.MatchingType {
		return 0, 0, fmt.Errorf("%w: expected %s, got %s", ErrUnknownQuestionKind, models.MatchingType, question.Kind)
	}

	result, err := s.GradeQuestion(question, answer, 0)
	if err != nil {
		return 0, 0, err
	}

	var content models.MatchingContent
	if err := question.DecodeContent(&content); err != nil {
		return 0, 0, err
	}
	return result.CorrectCount, len(content.Prompts), nil
}

// GradeAttempt grades every question of a quiz in presentation order.
// positions index into quiz.Questions; answers are keyed by display
// position. The headline score rounds the fractional sum half away from
// zero.
func (s *gradingService) GradeAttempt(quiz *models.Quiz, positions []int, answers map[int]json.RawMessage) (*AttemptGrade, error) {
	grade := &AttemptGrade{
		TotalItems: quiz.TotalItems(),
	}

	startNumber := 1
	for displayIndex, questionIndex := range positions {
		if questionIndex < 0 || questionIndex >= len(quiz.Questions) {
			return nil, fmt.Errorf("question position %d out of range", questionIndex)
		}
		question := &quiz.Questions[questionIndex]

		result, err := s.GradeQuestion(question, answers[displayIndex], startNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to grade question %s: %w", question.ID, err)
		}
		startNumber += question.EffectivePoints()

		grade.Results = append(grade.Results, *result)
		grade.RawScore += result.Score
		if result.IsCorrect {
			grade.CorrectCount++
		}
		if result.PendingReview {
			grade.HasPendingEssays = true
		}
	}

	grade.FinalScore = int(math.Round(grade.RawScore))

	s.logger.Debug("attempt graded",
		"quiz_id", quiz.ID,
		"raw_score", grade.RawScore,
		"final_score", grade.FinalScore,
		"total_items", grade.TotalItems,
		"pending_essays", grade.HasPendingEssays)

	return grade, nil
}
