package validator

import (
	"testing"
	"time"

	"github.com/classpulse/quiz-session-engine/internal/models"
)

func validSubmission() *models.Submission {
	return &models.Submission{
		QuizID:      "quiz-1",
		QuizTitle:   "Photosynthesis Basics",
		StudentID:   "s1",
		StudentName: "Alice Reyes",
		ClassID:     "class-1",
		Quarter:     "Q2",
		Difficulty:  "medium",
		Answers: []models.QuestionResult{
			{QuestionID: "q1", Kind: models.TrueFalse, Score: 1, IsCorrect: true},
		},
		SubmittedAt: time.Now(),
	}
}

func TestValidateSubmissionCritical(t *testing.T) {
	v := New()

	t.Run("complete submission passes", func(t *testing.T) {
		if errs := v.ValidateSubmissionCritical(validSubmission()); errs.HasErrors() {
			t.Fatalf("expected no errors, got %v", errs)
		}
	})

	cases := []struct {
		name      string
		mutate    func(*models.Submission)
		wantField string
	}{
		{"missing student id", func(s *models.Submission) { s.StudentID = "" }, "student_id"},
		{"whitespace student id", func(s *models.Submission) { s.StudentID = "   " }, "student_id"},
		{"missing quiz id", func(s *models.Submission) { s.QuizID = "" }, "quiz_id"},
		{"missing class id", func(s *models.Submission) { s.ClassID = "" }, "class_id"},
		{"no answers", func(s *models.Submission) { s.Answers = nil }, "answers"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := validSubmission()
			tc.mutate(sub)

			errs := v.ValidateSubmissionCritical(sub)
			if !errs.HasErrors() {
				t.Fatal("expected a critical validation error")
			}
			found := false
			for _, e := range errs {
				if e.Field == tc.wantField && e.Rule == "critical" {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected a critical error on %s, got %v", tc.wantField, errs)
			}
		})
	}

	t.Run("multiple failures aggregate", func(t *testing.T) {
		sub := validSubmission()
		sub.StudentID = ""
		sub.QuizID = ""

		if errs := v.ValidateSubmissionCritical(sub); len(errs) != 2 {
			t.Fatalf("expected 2 errors, got %v", errs)
		}
	})
}

func TestSubmissionOptionalOmissions(t *testing.T) {
	v := New()

	t.Run("complete submission has none", func(t *testing.T) {
		if missing := v.SubmissionOptionalOmissions(validSubmission()); len(missing) != 0 {
			t.Fatalf("expected no omissions, got %v", missing)
		}
	})

	t.Run("omissions listed without failing", func(t *testing.T) {
		sub := validSubmission()
		sub.QuizTitle = ""
		sub.Quarter = " "

		missing := v.SubmissionOptionalOmissions(sub)
		if len(missing) != 2 || missing[0] != "quiz_title" || missing[1] != "quarter" {
			t.Fatalf("unexpected omissions: %v", missing)
		}
		if errs := v.ValidateSubmissionCritical(sub); errs.HasErrors() {
			t.Fatalf("optional omissions must not fail critical validation, got %v", errs)
		}
	})
}

func TestValidate_StructTags(t *testing.T) {
	v := New()

	type request struct {
		QuizID    string `validate:"required"`
		StudentID string `validate:"required"`
	}

	errs := v.Validate(&request{QuizID: "quiz-1"})
	if len(errs) != 1 || errs[0].Field != "StudentID" || errs[0].Rule != "required" {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if errs[0].Message != "is required" {
		t.Errorf("unexpected message %q", errs[0].Message)
	}
}

func TestBusinessRules(t *testing.T) {
	v := New()

	t.Run("max_attempts", func(t *testing.T) {
		if err := v.Var(3, "max_attempts"); err != nil {
			t.Errorf("3 attempts should pass: %v", err)
		}
		if err := v.Var(0, "max_attempts"); err == nil {
			t.Error("0 attempts should fail")
		}
		if err := v.Var(11, "max_attempts"); err == nil {
			t.Error("11 attempts should fail")
		}
	})

	t.Run("quiz_title", func(t *testing.T) {
		if err := v.Var("Photosynthesis Basics", "quiz_title"); err != nil {
			t.Errorf("valid title should pass: %v", err)
		}
		if err := v.Var("   ", "quiz_title"); err == nil {
			t.Error("blank title should fail")
		}
	})
}
