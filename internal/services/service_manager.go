package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/localstore"
	"github.com/classpulse/quiz-session-engine/internal/repositories"
	"github.com/classpulse/quiz-session-engine/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	MaxWarnings       int
	SignalDedupWindow time.Duration
	RewarnInterval    time.Duration
	TickInterval      time.Duration
}

// ServiceManagerDeps carries every shared dependency the services need
type ServiceManagerDeps struct {
	Repo      repositories.Repository
	Store     localstore.Store
	Validator *validator.Validator
	Conn      *events.Connectivity
	Notifier  events.Notifier

	// Bus carries sync results; Audit (optional) receives integrity events.
	Bus   events.Publisher
	Audit events.Publisher

	Logger *slog.Logger
}

// serviceManager implements ServiceManager
type serviceManager struct {
	deps   ServiceManagerDeps
	config ServiceManagerConfig

	grading GradingService
	shuffle ShuffleService
	monitor InfractionMonitor
	outbox  OutboxService
	rewards RewardService
	session SessionService

	closed bool
	mu     sync.Mutex
}

// NewServiceManager wires all services with shared dependencies
func NewServiceManager(deps ServiceManagerDeps, config ServiceManagerConfig) ServiceManager {
	sm := &serviceManager{deps: deps, config: config}

	sm.grading = NewGradingService(deps.Logger)
	sm.shuffle = NewShuffleService(deps.Store, deps.Logger)
	sm.monitor = NewInfractionMonitor(
		deps.Store, deps.Repo, deps.Conn, deps.Notifier, deps.Audit, deps.Logger,
		InfractionConfig{DedupWindow: config.SignalDedupWindow},
	)
	sm.outbox = NewOutboxService(deps.Store, deps.Repo, deps.Validator, deps.Bus, deps.Logger)
	sm.rewards = NewRewardService(deps.Repo, deps.Notifier, deps.Logger)
	sm.session = NewSessionService(
		deps.Repo, deps.Store,
		sm.grading, sm.shuffle, sm.monitor, sm.outbox, sm.rewards,
		deps.Conn, deps.Notifier, deps.Logger, deps.Validator,
		SessionConfig{
			MaxWarnings:    config.MaxWarnings,
			RewarnInterval: config.RewarnInterval,
			TickInterval:   config.TickInterval,
		},
	)

	deps.Logger.Info("service manager initialized",
		"max_warnings", config.MaxWarnings,
		"dedup_window", config.SignalDedupWindow,
		"audit_enabled", deps.Audit != nil)

	return sm
}

func (sm *serviceManager) Session() SessionService    { return sm.session }
func (sm *serviceManager) Grading() GradingService    { return sm.grading }
func (sm *serviceManager) Shuffle() ShuffleService    { return sm.shuffle }
func (sm *serviceManager) Monitor() InfractionMonitor { return sm.monitor }
func (sm *serviceManager) Outbox() OutboxService      { return sm.outbox }
func (sm *serviceManager) Rewards() RewardService     { return sm.rewards }

// Close stops session timers. The bus, stores and repositories are owned by
// the caller and closed there.
func (sm *serviceManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.closed {
		return nil
	}
	sm.session.Shutdown()
	sm.closed = true

	sm.deps.Logger.Info("service manager closed")
	return nil
}
