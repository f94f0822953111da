package engine

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"go-leadflow/internal/config"
	"go-leadflow/internal/features/capability"
	"go-leadflow/internal/features/execution"
	"go-leadflow/internal/features/rule"
	"go-leadflow/internal/features/settings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	eventBuffer  = 256
	eventSeenTTL = time.Hour
)

type EngineService interface {
	// HandleEvent accepts a domain event for matching. Safe for concurrent
	// callers; matching and scheduling happen on a single consumer so a rule
	// fires exactly once per qualifying event.
	HandleEvent(ctx context.Context, ev Event) error
	Start(ctx context.Context) error
	Stop() error
}

type EngineServiceImpl struct {
	ruleRepo        rule.RuleRepository
	execRepo        execution.ExecutionRepository
	dispatcher      capability.Dispatcher
	settingsService settings.SettingsService
	notifier        ExecutionNotifier
	logger          *zap.Logger

	workers           int
	capabilityTimeout time.Duration
	retryBackoff      time.Duration

	events chan Event
	wake   chan struct{}
	stop   chan struct{}
	wg     sync.WaitGroup
	sem    chan struct{}

	mu    sync.Mutex
	queue dispatchHeap
	armed map[string]struct{}
	seq   uint64

	seen      map[string]time.Time
	lastPrune time.Time

	capMu           sync.Mutex
	dispatchDay     string
	dispatchedToday int

	sweeper *cron.Cron
}

func NewEngineService(
	cfg *config.Config,
	ruleRepo rule.RuleRepository,
	execRepo execution.ExecutionRepository,
	dispatcher capability.Dispatcher,
	settingsService settings.SettingsService,
	notifier ExecutionNotifier,
	logger *zap.Logger,
) EngineService {
	workers := cfg.DispatchWorkers
	if workers < 1 {
		workers = 1
	}
	return &EngineServiceImpl{
		ruleRepo:          ruleRepo,
		execRepo:          execRepo,
		dispatcher:        dispatcher,
		settingsService:   settingsService,
		notifier:          notifier,
		logger:            logger,
		workers:           workers,
		capabilityTimeout: time.Duration(cfg.CapabilityTimeoutSec) * time.Second,
		retryBackoff:      time.Duration(cfg.RetryBackoffSec) * time.Second,
		events:            make(chan Event, eventBuffer),
		wake:              make(chan struct{}, 1),
		stop:              make(chan struct{}),
		sem:               make(chan struct{}, workers),
		armed:             make(map[string]struct{}),
		seen:              make(map[string]time.Time),
	}
}

func (s *EngineServiceImpl) HandleEvent(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	select {
	case s.events <- ev:
		return nil
	case <-s.stop:
		return fmt.Errorf("engine stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start re-arms every pending action execution found in the ledger, then
// launches the intake loop, the dispatch loop and the periodic ledger sweep.
func (s *EngineServiceImpl) Start(ctx context.Context) error {
	s.logger.Info("Starting automation engine", zap.Int("workers", s.workers))

	s.reconcileCounters(ctx)

	// In-memory scheduling is an optimization; the ledger is the durable
	// queue. Anything pending from before the restart gets re-armed here.
	pending, err := s.execRepo.ListPending(ctx, time.Now().AddDate(10, 0, 0))
	if err != nil {
		return fmt.Errorf("failed to load pending executions: %w", err)
	}
	rearmed := 0
	for i := range pending {
		rearmed += s.armPending(&pending[i])
	}
	if rearmed > 0 {
		s.logger.Info("Re-armed pending action executions", zap.Int("count", rearmed))
	}

	s.wg.Add(2)
	go s.intakeLoop()
	go s.dispatchLoop()

	s.sweeper = cron.New()
	if _, err := s.sweeper.AddFunc("@every 1m", s.sweep); err != nil {
		return fmt.Errorf("failed to schedule ledger sweep: %w", err)
	}
	s.sweeper.Start()

	return nil
}

// reconcileCounters repairs rules whose execution_count drifted from the
// ledger. The append and the increment are separate writes, so a crash or a
// failed increment between them leaves the counter behind; the ledger is the
// source of truth.
func (s *EngineServiceImpl) reconcileCounters(ctx context.Context) {
	rules, err := s.ruleRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list rules for counter reconciliation", zap.Error(err))
		return
	}
	for _, r := range rules {
		n, err := s.execRepo.CountByRule(ctx, r.ID)
		if err != nil {
			s.logger.Error("Failed to count ledger entries",
				zap.String("rule", r.Name), zap.Error(err))
			continue
		}
		if n == r.ExecutionCount {
			continue
		}
		s.logger.Warn("Execution counter diverged from ledger, repairing",
			zap.String("rule", r.Name),
			zap.Int64("counter", r.ExecutionCount),
			zap.Int64("ledger", n))
		if err := s.ruleRepo.SetExecutionCount(ctx, r.ID, n); err != nil {
			s.logger.Error("Failed to repair execution counter",
				zap.String("rule", r.Name), zap.Error(err))
		}
	}
}

func (s *EngineServiceImpl) Stop() error {
	close(s.stop)
	if s.sweeper != nil {
		ctx := s.sweeper.Stop()
		<-ctx.Done()
	}
	s.wg.Wait()
	return nil
}

func (s *EngineServiceImpl) intakeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case ev := <-s.events:
			if err := s.processEvent(context.Background(), ev); err != nil {
				s.logger.Error("Failed to process event",
					zap.String("kind", string(ev.Kind)), zap.Error(err))
			}
		}
	}
}

// processEvent runs the matcher and scheduler for one event. It only ever
// runs on the intake goroutine, which is what makes match+schedule atomic
// with respect to duplicate delivery. Dedup is two-layered: the seen set
// absorbs repeats within this process, the ledger lookup absorbs redelivery
// across restarts.
func (s *EngineServiceImpl) processEvent(ctx context.Context, ev Event) error {
	if ev.ID != "" {
		if _, dup := s.seen[ev.ID]; dup {
			return nil
		}
	}

	rules, err := s.ruleRepo.ListByTrigger(ctx, ev.Kind, true)
	if err != nil {
		// Fail closed: without the rule set we schedule nothing. The event
		// stays unseen so a redelivery can retry.
		return fmt.Errorf("failed to load rules for trigger %s: %w", ev.Kind, err)
	}

	clean := true
	for _, r := range MatchRules(rules, ev) {
		if ev.ID != "" {
			fired, err := s.execRepo.HasForEvent(ctx, ev.ID, r.ID)
			if err != nil {
				clean = false
				s.logger.Error("Failed to check ledger for prior firing",
					zap.String("rule", r.Name), zap.Error(err))
				continue
			}
			if fired {
				continue
			}
		}
		if err := s.schedule(ctx, r, ev); err != nil {
			clean = false
			s.logger.Error("Failed to schedule rule execution",
				zap.String("rule", r.Name), zap.Error(err))
		}
	}

	// Only a fully processed event enters the seen set. A partial failure
	// leaves redelivery as the retry path, and the per-rule ledger check
	// keeps that retry from double-firing the rules that did schedule.
	if ev.ID != "" && clean {
		s.seen[ev.ID] = time.Now()
		s.pruneSeen()
	}
	return nil
}

// schedule snapshots one RuleExecution with all its ActionExecutions, appends
// the whole batch to the ledger in a single write and arms the dispatch
// entries. Ledger failure leaves no partial state and arms nothing.
func (s *EngineServiceImpl) schedule(ctx context.Context, r rule.AutomationRule, ev Event) error {
	exec := &execution.RuleExecution{
		EventID:     ev.ID,
		RuleID:      r.ID,
		RuleName:    r.Name,
		SubjectID:   ev.SubjectID(),
		Subject:     ev.Subject,
		TriggeredAt: ev.OccurredAt,
		Actions:     make([]execution.ActionExecution, len(r.Actions)),
	}
	for i, action := range r.Actions {
		exec.Actions[i] = execution.ActionExecution{
			ActionIndex: i,
			Type:        action.Type,
			Config:      action.Config,
			Status:      execution.ActionPending,
			EligibleAt:  ev.OccurredAt.Add(time.Duration(action.DelayMinutes) * time.Minute),
		}
	}

	if err := s.execRepo.Append(ctx, exec); err != nil {
		return fmt.Errorf("ledger append failed, scheduling halted: %w", err)
	}

	if err := s.ruleRepo.IncrementExecution(ctx, r.ID, ev.OccurredAt); err != nil {
		s.logger.Error("Failed to increment rule execution counter",
			zap.String("rule", r.Name), zap.Error(err))
	}

	for _, a := range exec.Actions {
		s.arm(exec, a.ActionIndex, a.EligibleAt)
	}

	s.logger.Info("Scheduled rule execution",
		zap.String("rule", r.Name),
		zap.String("subject", exec.SubjectID),
		zap.Int("actions", len(exec.Actions)))
	return nil
}

func (s *EngineServiceImpl) armPending(exec *execution.RuleExecution) int {
	armed := 0
	for _, a := range exec.Actions {
		if a.Status == execution.ActionPending {
			if s.arm(exec, a.ActionIndex, a.EligibleAt) {
				armed++
			}
		}
	}
	return armed
}

// arm queues one action for dispatch. Idempotent per (execution, action): the
// periodic sweep may rediscover work that is already armed.
func (s *EngineServiceImpl) arm(exec *execution.RuleExecution, actionIndex int, eligibleAt time.Time) bool {
	item := dispatchItem{
		executionID: exec.ID,
		actionIndex: actionIndex,
		eligibleAt:  eligibleAt,
	}

	s.mu.Lock()
	if _, exists := s.armed[item.key()]; exists {
		s.mu.Unlock()
		return false
	}
	s.armed[item.key()] = struct{}{}
	s.seq++
	item.seq = s.seq
	heap.Push(&s.queue, item)
	s.mu.Unlock()

	s.kick()
	return true
}

// rearm pushes an already-armed item back with a later eligible time, used
// when the dispatch window or the daily cap defers it.
func (s *EngineServiceImpl) rearm(item dispatchItem, at time.Time) {
	s.mu.Lock()
	s.seq++
	item.seq = s.seq
	item.eligibleAt = at
	heap.Push(&s.queue, item)
	s.mu.Unlock()
}

func (s *EngineServiceImpl) disarm(item dispatchItem) {
	s.mu.Lock()
	delete(s.armed, item.key())
	s.mu.Unlock()
}

func (s *EngineServiceImpl) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *EngineServiceImpl) dispatchLoop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if s.queue.Len() == 0 {
			s.mu.Unlock()
			select {
			case <-s.stop:
				return
			case <-s.wake:
				continue
			}
		}

		next := s.queue[0]
		now := time.Now()
		if next.eligibleAt.After(now) {
			s.mu.Unlock()
			timer := time.NewTimer(time.Until(next.eligibleAt))
			select {
			case <-s.stop:
				timer.Stop()
				return
			case <-s.wake:
				timer.Stop()
				continue
			case <-timer.C:
				continue
			}
		}

		item := heap.Pop(&s.queue).(dispatchItem)
		s.mu.Unlock()

		if deferred := s.deferFor(item, now); deferred {
			continue
		}

		select {
		case s.sem <- struct{}{}:
		case <-s.stop:
			return
		}
		s.wg.Add(1)
		go func(it dispatchItem) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			s.runAction(context.Background(), it)
		}(item)
	}
}

// deferFor re-arms the item for later when it falls outside the configured
// working window or the daily cap is exhausted. Deferred work is never
// dropped.
func (s *EngineServiceImpl) deferFor(item dispatchItem, now time.Time) bool {
	cfg, err := s.settingsService.GetSchedulerConfig(context.Background())
	if err != nil {
		s.logger.Warn("Failed to load scheduler config, using defaults", zap.Error(err))
		cfg = settings.DefaultSchedulerConfig()
	}

	if !cfg.Allows(now) {
		next := cfg.NextEligible(now)
		s.logger.Info("Deferring action outside working window",
			zap.String("execution", item.executionID.Hex()),
			zap.Int("action", item.actionIndex),
			zap.Time("next", next))
		s.rearm(item, next)
		return true
	}

	if cfg.DailyExecutionCap > 0 && !s.underDailyCap(now, cfg.DailyExecutionCap) {
		next := cfg.NextDayStart(now)
		s.logger.Info("Daily execution cap reached, deferring action",
			zap.String("execution", item.executionID.Hex()),
			zap.Time("next", next))
		s.rearm(item, next)
		return true
	}

	return false
}

func (s *EngineServiceImpl) underDailyCap(now time.Time, limit int) bool {
	s.capMu.Lock()
	defer s.capMu.Unlock()

	day := now.Format("2006-01-02")
	if day != s.dispatchDay {
		s.dispatchDay = day
		s.dispatchedToday = 0
	}
	if s.dispatchedToday >= limit {
		return false
	}
	s.dispatchedToday++
	return true
}

// runAction resolves the capability for one due action, applying the single
// automatic retry for transient failures, then settles the ledger entry.
// Capability errors never propagate: one failing action cannot take down
// siblings or other rules' executions.
func (s *EngineServiceImpl) runAction(ctx context.Context, item dispatchItem) {
	defer s.disarm(item)

	exec, err := s.execRepo.GetByID(ctx, item.executionID)
	if err != nil || exec == nil {
		s.logger.Error("Failed to load execution for dispatch",
			zap.String("execution", item.executionID.Hex()), zap.Error(err))
		return
	}
	if item.actionIndex >= len(exec.Actions) {
		return
	}
	action := exec.Actions[item.actionIndex]
	if action.Status != execution.ActionPending {
		return
	}

	invokeErr := s.invoke(ctx, exec, action)
	if invokeErr != nil && capability.IsTransient(invokeErr) {
		s.logger.Warn("Transient capability failure, retrying once",
			zap.String("execution", exec.ID.Hex()),
			zap.Int("action", item.actionIndex),
			zap.Error(invokeErr))
		select {
		case <-time.After(s.retryBackoff):
		case <-s.stop:
		}
		invokeErr = s.invoke(ctx, exec, action)
	}

	status := execution.ActionCompleted
	errMsg := ""
	if invokeErr != nil {
		status = execution.ActionFailed
		errMsg = invokeErr.Error()
	}
	executedAt := time.Now()

	applied, markErr := s.execRepo.MarkAction(ctx, exec.ID, item.actionIndex, status, errMsg, executedAt)
	if markErr != nil {
		s.logger.Error("Failed to record action outcome",
			zap.String("execution", exec.ID.Hex()),
			zap.Int("action", item.actionIndex),
			zap.Error(markErr))
		return
	}
	if !applied {
		// Someone already settled it; nothing to broadcast.
		return
	}

	s.notifier.BroadcastActionUpdate(ActionUpdate{
		ExecutionID: exec.ID.Hex(),
		RuleID:      exec.RuleID.Hex(),
		RuleName:    exec.RuleName,
		SubjectID:   exec.SubjectID,
		ActionIndex: item.actionIndex,
		Type:        action.Type,
		Status:      status,
		Error:       errMsg,
		ExecutedAt:  executedAt,
	})
}

func (s *EngineServiceImpl) invoke(ctx context.Context, exec *execution.RuleExecution, action execution.ActionExecution) error {
	invokeCtx, cancel := context.WithTimeout(ctx, s.capabilityTimeout)
	defer cancel()
	return s.dispatcher.Invoke(invokeCtx, action.Type, action.Config, exec.SubjectID)
}

// sweep re-discovers due-but-unexecuted actions from the ledger. It covers
// anything lost from the in-memory queue and is what makes the engine safe
// across restarts mid-delay.
func (s *EngineServiceImpl) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pending, err := s.execRepo.ListPending(ctx, time.Now())
	if err != nil {
		s.logger.Error("Ledger sweep failed", zap.Error(err))
		return
	}
	for i := range pending {
		s.armPending(&pending[i])
	}
}

func (s *EngineServiceImpl) pruneSeen() {
	now := time.Now()
	if now.Sub(s.lastPrune) < eventSeenTTL {
		return
	}
	for id, at := range s.seen {
		if now.Sub(at) > eventSeenTTL {
			delete(s.seen, id)
		}
	}
	s.lastPrune = now
}
