package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/localstore"
	"github.com/classpulse/quiz-session-engine/internal/models"
	"github.com/classpulse/quiz-session-engine/internal/repositories/memory"
	"github.com/classpulse/quiz-session-engine/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordedToast is one notification captured by the recording notifier
type recordedToast struct {
	Level events.ToastLevel
	Text  string
}

// recordingNotifier captures toasts for assertions
type recordingNotifier struct {
	mu     sync.Mutex
	toasts []recordedToast
}

func (n *recordingNotifier) Toast(ctx context.Context, level events.ToastLevel, text string, durationMs int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, recordedToast{Level: level, Text: text})
}

func (n *recordingNotifier) all() []recordedToast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedToast(nil), n.toasts...)
}

func (n *recordingNotifier) containing(substr string) []recordedToast {
	var out []recordedToast
	for _, t := range n.all() {
		if strings.Contains(t.Text, substr) {
			out = append(out, t)
		}
	}
	return out
}

// testEnv wires every service against in-memory backends
type testEnv struct {
	store    *localstore.MemoryStore
	repo     *memory.Repository
	conn     *events.Connectivity
	notifier *recordingNotifier
	bus      *events.MockEventPublisher
	audit    *events.MockEventPublisher

	grading GradingService
	shuffle ShuffleService
	monitor InfractionMonitor
	outbox  OutboxService
	rewards RewardService
	session SessionService
}

func newTestEnv(online bool) *testEnv {
	return newTestEnvConfig(online, SessionConfig{TickInterval: 10 * time.Millisecond})
}

func newTestEnvConfig(online bool, config SessionConfig) *testEnv {
	logger := testLogger()

	env := &testEnv{
		store:    localstore.NewMemoryStore(),
		repo:     memory.NewRepository(),
		notifier: &recordingNotifier{},
		bus:      events.NewMockEventPublisher(logger),
		audit:    events.NewMockEventPublisher(logger),
	}
	env.conn = events.NewConnectivity(env.bus, logger, online)

	v := validator.New()
	env.grading = NewGradingService(logger)
	env.shuffle = NewShuffleService(env.store, logger)
	env.monitor = NewInfractionMonitor(env.store, env.repo, env.conn, env.notifier, env.audit, logger, InfractionConfig{})
	env.outbox = NewOutboxService(env.store, env.repo, v, env.bus, logger)
	env.rewards = NewRewardService(env.repo, env.notifier, logger)
	env.session = NewSessionService(
		env.repo, env.store,
		env.grading, env.shuffle, env.monitor, env.outbox, env.rewards,
		env.conn, env.notifier, logger, v,
		config,
	)
	return env
}

// ===== FIXTURES =====

func mcQuestion(id string, points int, options []string, correct int) models.Question {
	return models.Question{
		ID: id, Kind: models.MultipleChoice, Text: "Pick one", Points: points,
		Content: models.MustContent(models.MultipleChoiceContent{Options: options, CorrectIndex: correct}),
	}
}

func tfQuestion(id string, answer bool) models.Question {
	return models.Question{
		ID: id, Kind: models.TrueFalse, Text: "True or false", Points: 1,
		Content: models.MustContent(models.TrueFalseContent{CorrectAnswer: answer}),
	}
}

func idQuestion(id string, points int, answer string) models.Question {
	return models.Question{
		ID: id, Kind: models.Identification, Text: "Identify", Points: points,
		Content: models.MustContent(models.TextAnswerContent{CorrectAnswer: answer}),
	}
}

func matchingQuestion(id string, points int, pairs map[string]string) models.Question {
	content := models.MatchingContent{CorrectPairs: pairs}
	for prompt, option := range pairs {
		content.Prompts = append(content.Prompts, models.MatchingPrompt{ID: prompt, Text: "prompt " + prompt})
		content.Options = append(content.Options, models.MatchingOption{ID: option, Text: "option " + option})
	}
	return models.Question{
		ID: id, Kind: models.MatchingType, Text: "Match", Points: points,
		Content: models.MustContent(content),
	}
}

func essayQuestion(id string, points int) models.Question {
	return models.Question{
		ID: id, Kind: models.Essay, Text: "Discuss", Points: points,
		Content: models.MustContent(models.EssayContent{Rubric: "depth of reasoning"}),
	}
}

func testQuiz(id string, questions ...models.Question) *models.Quiz {
	return &models.Quiz{
		ID:          id,
		Title:       "Photosynthesis Basics",
		ClassID:     "class-1",
		Questions:   questions,
		MaxAttempts: 3,
	}
}

func seedQuiz(env *testEnv, quiz *models.Quiz) {
	if err := env.repo.Quiz().Create(context.Background(), quiz); err != nil {
		panic(err)
	}
}

func openRequest(quizID, studentID string) OpenSessionRequest {
	return OpenSessionRequest{
		QuizID:    quizID,
		StudentID: studentID,
		ClassID:   "class-1",
	}
}

func rawJSON(s string) []byte {
	return []byte(s)
}
