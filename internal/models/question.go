package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// QuestionKind is the closed set of supported question kinds. Adding a kind
// means touching the grading switch, the content schemas below and the
// session question view builder.
type QuestionKind string

const (
	MultipleChoice QuestionKind = "multiple-choice"
	TrueFalse      QuestionKind = "true-false"
	Identification QuestionKind = "identification"
	ExactAnswer    QuestionKind = "exactAnswer"
	MatchingType   QuestionKind = "matching-type"
	Essay          QuestionKind = "essay"
)

// ValidQuestionKinds returns all supported question kinds
func ValidQuestionKinds() []QuestionKind {
	return []QuestionKind{MultipleChoice, TrueFalse, Identification, ExactAnswer, MatchingType, Essay}
}

// IsValid checks if the question kind is supported
func (k QuestionKind) IsValid() bool {
	for _, valid := range ValidQuestionKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

// Question is one item of a quiz. Content carries the kind-specific payload
// as JSON; decode it with the matching *Content struct.
type Question struct {
	ID      string         `json:"id"`
	Kind    QuestionKind   `json:"kind"`
	Text    string         `json:"text"`
	Points  int            `json:"points"`
	Content datatypes.JSON `json:"content"`
}

// EffectivePoints returns the item slots this question occupies (at least 1).
func (q *Question) EffectivePoints() int {
	if q.Points < 1 {
		return 1
	}
	return q.Points
}

// MultipleChoiceContent holds options and the index of the correct one
type MultipleChoiceContent struct {
	Options      []string `json:"options" validate:"required,min=2"`
	CorrectIndex int      `json:"correct_index" validate:"min=0"`
}

// TrueFalseContent holds the correct boolean answer
type TrueFalseContent struct {
	CorrectAnswer bool `json:"correct_answer"`
}

// TextAnswerContent holds the expected free-text answer for identification
// and exact-answer questions. Comparison is normalized (case, whitespace,
// punctuation) by the grading engine.
type TextAnswerContent struct {
	CorrectAnswer string `json:"correct_answer" validate:"required"`
}

// MatchingPrompt is one left-column item of a matching question
type MatchingPrompt struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MatchingOption is one right-column item of a matching question
type MatchingOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MatchingContent holds prompts, options and the correct prompt→option pairs
type MatchingContent struct {
	Prompts      []MatchingPrompt  `json:"prompts" validate:"required,min=1"`
	Options      []MatchingOption  `json:"options" validate:"required,min=1"`
	CorrectPairs map[string]string `json:"correct_pairs" validate:"required"`
}

// EssayContent holds grading guidance for deferred review
type EssayContent struct {
	MinWords int    `json:"min_words,omitempty"`
	MaxWords int    `json:"max_words,omitempty"`
	Rubric   string `json:"rubric,omitempty"`
}

// DecodeContent unmarshals the kind-specific payload into target
func (q *Question) DecodeContent(target interface{}) error {
	if len(q.Content) == 0 {
		return fmt.Errorf("question %s has no content", q.ID)
	}
	if err := json.Unmarshal(q.Content, target); err != nil {
		return fmt.Errorf("failed to decode %s content for question %s: %w", q.Kind, q.ID, err)
	}
	return nil
}

// EncodeContent marshals a kind-specific payload for storage in a Question
func EncodeContent(content interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode question content: %w", err)
	}
	return datatypes.JSON(data), nil
}

// MustContent is EncodeContent for fixtures; panics on marshal failure.
func MustContent(content interface{}) datatypes.JSON {
	data, err := EncodeContent(content)
	if err != nil {
		panic(err)
	}
	return data
}
