package validator

import (
	"strings"

	"github.com/classpulse/quiz-session-engine/internal/models"
)

// ValidateSubmissionCritical checks the fields without which a submission
// cannot be attributed or graded. A failure here must reject the enqueue;
// nothing invalid may enter the outbox.
func (v *Validator) ValidateSubmissionCritical(sub *models.Submission) ValidationErrors {
	var errors ValidationErrors

	if strings.TrimSpace(sub.StudentID) == "" {
		errors = append(errors, ValidationError{
			Field:   "student_id",
			Message: "is required",
			Rule:    "critical",
		})
	}
	if strings.TrimSpace(sub.QuizID) == "" {
		errors = append(errors, ValidationError{
			Field:   "quiz_id",
			Message: "is required",
			Rule:    "critical",
		})
	}
	if strings.TrimSpace(sub.ClassID) == "" {
		errors = append(errors, ValidationError{
			Field:   "class_id",
			Message: "is required",
			Rule:    "critical",
		})
	}
	if len(sub.Answers) == 0 {
		errors = append(errors, ValidationError{
			Field:   "answers",
			Message: "must not be empty",
			Value:   len(sub.Answers),
			Rule:    "critical",
		})
	}

	return errors
}

// SubmissionOptionalOmissions lists recommended fields that are missing.
// These never block an enqueue; callers log them for follow-up.
func (v *Validator) SubmissionOptionalOmissions(sub *models.Submission) []string {
	var missing []string

	if strings.TrimSpace(sub.QuizTitle) == "" {
		missing = append(missing, "quiz_title")
	}
	if strings.TrimSpace(sub.StudentName) == "" {
		missing = append(missing, "student_name")
	}
	if strings.TrimSpace(sub.Quarter) == "" {
		missing = append(missing, "quarter")
	}
	if strings.TrimSpace(sub.Difficulty) == "" {
		missing = append(missing, "difficulty")
	}

	return missing
}
