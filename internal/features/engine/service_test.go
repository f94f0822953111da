package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-leadflow/internal/config"
	"go-leadflow/internal/features/capability"
	"go-leadflow/internal/features/execution"
	"go-leadflow/internal/features/rule"
	"go-leadflow/internal/features/settings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules []rule.AutomationRule
	incs  map[string]int
}

func newFakeRuleRepo(rules ...rule.AutomationRule) *fakeRuleRepo {
	for i := range rules {
		if rules[i].ID.IsZero() {
			rules[i].ID = primitive.NewObjectID()
		}
	}
	return &fakeRuleRepo{rules: rules, incs: make(map[string]int)}
}

func (f *fakeRuleRepo) Create(ctx context.Context, r *rule.AutomationRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = primitive.NewObjectID()
	f.rules = append(f.rules, *r)
	return nil
}

func (f *fakeRuleRepo) GetByID(ctx context.Context, id string) (*rule.AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rules {
		if r.ID.Hex() == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRuleRepo) List(ctx context.Context) ([]rule.AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rule.AutomationRule(nil), f.rules...), nil
}

func (f *fakeRuleRepo) ListByTrigger(ctx context.Context, trigger rule.TriggerKind, activeOnly bool) ([]rule.AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rule.AutomationRule
	for _, r := range f.rules {
		if r.Trigger != trigger {
			continue
		}
		if activeOnly && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRuleRepo) Update(ctx context.Context, r *rule.AutomationRule) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID == r.ID {
			f.rules[i] = *r
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRuleRepo) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeRuleRepo) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID.Hex() == id {
			f.rules[i].IsActive = active
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRuleRepo) IncrementExecution(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incs[id.Hex()]++
	return nil
}

func (f *fakeRuleRepo) SetExecutionCount(ctx context.Context, id primitive.ObjectID, count int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rules {
		if f.rules[i].ID == id {
			f.rules[i].ExecutionCount = count
			return nil
		}
	}
	return nil
}

func (f *fakeRuleRepo) executionCount(id primitive.ObjectID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rules {
		if r.ID == id {
			return r.ExecutionCount
		}
	}
	return 0
}

func (f *fakeRuleRepo) increments(id primitive.ObjectID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.incs[id.Hex()]
}

type fakeExecRepo struct {
	mu        sync.Mutex
	execs     map[primitive.ObjectID]*execution.RuleExecution
	appendErr error
}

func newFakeExecRepo() *fakeExecRepo {
	return &fakeExecRepo{execs: make(map[primitive.ObjectID]*execution.RuleExecution)}
}

func (f *fakeExecRepo) Append(ctx context.Context, exec *execution.RuleExecution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	exec.ID = primitive.NewObjectID()
	cp := *exec
	cp.Actions = append([]execution.ActionExecution(nil), exec.Actions...)
	f.execs[exec.ID] = &cp
	return nil
}

func (f *fakeExecRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*execution.RuleExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exec, ok := f.execs[id]
	if !ok {
		return nil, nil
	}
	cp := *exec
	cp.Actions = append([]execution.ActionExecution(nil), exec.Actions...)
	return &cp, nil
}

func (f *fakeExecRepo) MarkAction(ctx context.Context, executionID primitive.ObjectID, actionIndex int, status execution.ActionStatus, errMsg string, executedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exec, ok := f.execs[executionID]
	if !ok || actionIndex >= len(exec.Actions) {
		return false, nil
	}
	if exec.Actions[actionIndex].Status != execution.ActionPending {
		return false, nil
	}
	exec.Actions[actionIndex].Status = status
	exec.Actions[actionIndex].Error = errMsg
	exec.Actions[actionIndex].ExecutedAt = &executedAt
	return true, nil
}

func (f *fakeExecRepo) ListByRule(ctx context.Context, ruleID string, limit int64) ([]execution.RuleExecution, error) {
	return nil, nil
}

func (f *fakeExecRepo) ListRecent(ctx context.Context, limit int64) ([]execution.RuleExecution, error) {
	return nil, nil
}

func (f *fakeExecRepo) ListPending(ctx context.Context, until time.Time) ([]execution.RuleExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []execution.RuleExecution
	for _, exec := range f.execs {
		for _, a := range exec.Actions {
			if a.Status == execution.ActionPending && !a.EligibleAt.After(until) {
				cp := *exec
				cp.Actions = append([]execution.ActionExecution(nil), exec.Actions...)
				out = append(out, cp)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeExecRepo) HasForEvent(ctx context.Context, eventID string, ruleID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, exec := range f.execs {
		if exec.EventID == eventID && exec.RuleID == ruleID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeExecRepo) CountByRule(ctx context.Context, ruleID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, exec := range f.execs {
		if exec.RuleID == ruleID {
			n++
		}
	}
	return n, nil
}

func (f *fakeExecRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeExecRepo) all() []execution.RuleExecution {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []execution.RuleExecution
	for _, exec := range f.execs {
		cp := *exec
		cp.Actions = append([]execution.ActionExecution(nil), exec.Actions...)
		out = append(out, cp)
	}
	return out
}

type invokeCall struct {
	actionType rule.ActionType
	subjectID  string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []invokeCall
	// errs is consumed front to back across all invocations.
	errs []error
}

func (f *fakeDispatcher) Invoke(ctx context.Context, actionType rule.ActionType, config map[string]interface{}, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invokeCall{actionType: actionType, subjectID: subjectID})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSettings struct {
	mu  sync.Mutex
	cfg settings.SchedulerConfig
}

func (f *fakeSettings) GetSchedulerConfig(ctx context.Context) (settings.SchedulerConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg, nil
}

func (f *fakeSettings) UpdateSchedulerConfig(ctx context.Context, cfg settings.SchedulerConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []ActionUpdate
}

func (n *recordingNotifier) BroadcastActionUpdate(u ActionUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, u)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates)
}

type engineFixture struct {
	engine     EngineService
	ruleRepo   *fakeRuleRepo
	execRepo   *fakeExecRepo
	dispatcher *fakeDispatcher
	settings   *fakeSettings
	notifier   *recordingNotifier
}

func newEngineFixture(t *testing.T, rules ...rule.AutomationRule) *engineFixture {
	t.Helper()
	fx := &engineFixture{
		ruleRepo:   newFakeRuleRepo(rules...),
		execRepo:   newFakeExecRepo(),
		dispatcher: &fakeDispatcher{},
		settings:   &fakeSettings{cfg: settings.DefaultSchedulerConfig()},
		notifier:   &recordingNotifier{},
	}
	cfg := &config.Config{
		DispatchWorkers:      2,
		CapabilityTimeoutSec: 5,
		RetryBackoffSec:      0,
	}
	fx.engine = NewEngineService(cfg, fx.ruleRepo, fx.execRepo, fx.dispatcher, fx.settings, fx.notifier, zap.NewNop())
	if err := fx.engine.Start(context.Background()); err != nil {
		t.Fatalf("engine start failed: %v", err)
	}
	t.Cleanup(func() {
		if err := fx.engine.Stop(); err != nil {
			t.Errorf("engine stop failed: %v", err)
		}
	})
	return fx
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func immediateRule(name string) rule.AutomationRule {
	return rule.AutomationRule{
		Name:     name,
		Trigger:  rule.TriggerLeadCreated,
		IsActive: true,
		Actions: []rule.Action{
			{Type: rule.ActionCreateTask, Config: map[string]interface{}{"title": "Call"}},
		},
	}
}

func leadEvent(id string) Event {
	return Event{
		ID:         id,
		Kind:       rule.TriggerLeadCreated,
		Subject:    map[string]interface{}{"id": "lead-1", "source": "website"},
		OccurredAt: time.Now(),
	}
}

func TestMatchingEventSchedulesAndRuns(t *testing.T) {
	fx := newEngineFixture(t, immediateRule("welcome"))

	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-1")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	waitFor(t, "action completion", func() bool { return fx.notifier.count() == 1 })

	execs := fx.execRepo.all()
	if len(execs) != 1 {
		t.Fatalf("got %d executions, want 1", len(execs))
	}
	exec := execs[0]
	if exec.RuleName != "welcome" || exec.SubjectID != "lead-1" {
		t.Errorf("unexpected execution snapshot: %+v", exec)
	}
	if got := exec.Actions[0].Status; got != execution.ActionCompleted {
		t.Errorf("action status = %s, want completed", got)
	}
	if exec.Actions[0].ExecutedAt == nil {
		t.Error("action ExecutedAt not recorded")
	}
	if got := fx.ruleRepo.increments(exec.RuleID); got != 1 {
		t.Errorf("execution counter incremented %d times, want 1", got)
	}
	if got := fx.dispatcher.callCount(); got != 1 {
		t.Errorf("dispatcher invoked %d times, want 1", got)
	}
}

func TestDuplicateEventDeliveryRunsOnce(t *testing.T) {
	fx := newEngineFixture(t, immediateRule("welcome"))

	ev := leadEvent("ev-dup")
	for i := 0; i < 3; i++ {
		if err := fx.engine.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("HandleEvent failed: %v", err)
		}
	}

	waitFor(t, "action completion", func() bool { return fx.notifier.count() >= 1 })
	time.Sleep(50 * time.Millisecond)

	if got := len(fx.execRepo.all()); got != 1 {
		t.Fatalf("got %d executions for duplicate event, want 1", got)
	}
	if got := fx.dispatcher.callCount(); got != 1 {
		t.Errorf("dispatcher invoked %d times, want 1", got)
	}
}

func TestNonMatchingEventSchedulesNothing(t *testing.T) {
	r := immediateRule("qualified only")
	r.Trigger = rule.TriggerLeadQualified
	fx := newEngineFixture(t, r)

	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-miss")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if got := len(fx.execRepo.all()); got != 0 {
		t.Fatalf("got %d executions, want 0", got)
	}
}

func TestDelayedActionEligibleAtArithmetic(t *testing.T) {
	r := immediateRule("two step")
	r.Actions = []rule.Action{
		{Type: rule.ActionCreateTask, Config: map[string]interface{}{"title": "Now"}},
		{Type: rule.ActionSendEmail, Config: map[string]interface{}{"subject": "Later"}, DelayMinutes: 60},
	}
	fx := newEngineFixture(t, r)

	ev := leadEvent("ev-delay")
	if err := fx.engine.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	waitFor(t, "immediate action completion", func() bool { return fx.notifier.count() == 1 })

	exec := fx.execRepo.all()[0]
	if got := exec.Actions[0].Status; got != execution.ActionCompleted {
		t.Errorf("immediate action status = %s, want completed", got)
	}
	if got := exec.Actions[1].Status; got != execution.ActionPending {
		t.Errorf("delayed action status = %s, want pending", got)
	}
	want := ev.OccurredAt.Add(60 * time.Minute)
	if !exec.Actions[1].EligibleAt.Equal(want) {
		t.Errorf("delayed action eligible at %v, want %v", exec.Actions[1].EligibleAt, want)
	}
	if got := fx.dispatcher.callCount(); got != 1 {
		t.Errorf("dispatcher invoked %d times, want 1", got)
	}
}

func TestTransientFailureRetriesOnce(t *testing.T) {
	fx := newEngineFixture(t, immediateRule("flaky"))
	fx.dispatcher.errs = []error{capability.Transient("send_email", errors.New("gateway unavailable"))}

	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-retry")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	waitFor(t, "action completion", func() bool { return fx.notifier.count() == 1 })

	exec := fx.execRepo.all()[0]
	if got := exec.Actions[0].Status; got != execution.ActionCompleted {
		t.Errorf("action status = %s, want completed after retry", got)
	}
	if got := fx.dispatcher.callCount(); got != 2 {
		t.Errorf("dispatcher invoked %d times, want 2", got)
	}
}

func TestPermanentFailureIsTerminal(t *testing.T) {
	fx := newEngineFixture(t, immediateRule("broken"))
	fx.dispatcher.errs = []error{capability.Permanent("create_task", errors.New("unknown template"))}

	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-perm")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	waitFor(t, "action settlement", func() bool { return fx.notifier.count() == 1 })

	exec := fx.execRepo.all()[0]
	if got := exec.Actions[0].Status; got != execution.ActionFailed {
		t.Errorf("action status = %s, want failed", got)
	}
	if exec.Actions[0].Error == "" {
		t.Error("failure reason not recorded")
	}
	if got := fx.dispatcher.callCount(); got != 1 {
		t.Errorf("dispatcher invoked %d times, want 1 (no retry for permanent)", got)
	}
}

func TestFailedActionDoesNotBlockSiblings(t *testing.T) {
	r := immediateRule("siblings")
	r.Actions = []rule.Action{
		{Type: rule.ActionCreateTask, Config: map[string]interface{}{"title": "A"}},
		{Type: rule.ActionCreateTask, Config: map[string]interface{}{"title": "B"}},
	}
	fx := newEngineFixture(t, r)
	fx.dispatcher.errs = []error{capability.Permanent("create_task", errors.New("boom"))}

	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-sib")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	waitFor(t, "both actions settled", func() bool { return fx.notifier.count() == 2 })

	exec := fx.execRepo.all()[0]
	failed, completed := 0, 0
	for _, a := range exec.Actions {
		switch a.Status {
		case execution.ActionFailed:
			failed++
		case execution.ActionCompleted:
			completed++
		}
	}
	if failed != 1 || completed != 1 {
		t.Errorf("got %d failed / %d completed, want 1 / 1", failed, completed)
	}
	if got := exec.Status(); got != execution.ExecutionFailed {
		t.Errorf("execution status = %s, want failed", got)
	}
}

func TestDisablingRuleDoesNotCancelArmedActions(t *testing.T) {
	fx := newEngineFixture(t, immediateRule("disable me"))

	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-dis")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	// Wait for the ledger entry, then disable the rule. The armed action must
	// still run: the cut-off is the match, not the dispatch.
	waitFor(t, "ledger append", func() bool { return len(fx.execRepo.all()) == 1 })
	exec := fx.execRepo.all()[0]
	if _, err := fx.ruleRepo.SetActive(context.Background(), exec.RuleID.Hex(), false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	waitFor(t, "action completion", func() bool { return fx.notifier.count() == 1 })

	if got := fx.execRepo.all()[0].Actions[0].Status; got != execution.ActionCompleted {
		t.Errorf("action status = %s, want completed despite disabled rule", got)
	}

	// New events after the disable no longer match.
	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-dis-2")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := len(fx.execRepo.all()); got != 1 {
		t.Errorf("got %d executions, want 1 (disabled rule must not fire)", got)
	}
}

func TestLedgerFailureHaltsScheduling(t *testing.T) {
	fx := newEngineFixture(t, immediateRule("unwritable"))
	fx.execRepo.mu.Lock()
	fx.execRepo.appendErr = errors.New("ledger down")
	fx.execRepo.mu.Unlock()

	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-led")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if got := fx.dispatcher.callCount(); got != 0 {
		t.Errorf("dispatcher invoked %d times, want 0 when the ledger write fails", got)
	}
}

func TestDailyCapDefersOverflow(t *testing.T) {
	r := immediateRule("capped")
	r.Actions = []rule.Action{
		{Type: rule.ActionCreateTask, Config: map[string]interface{}{"title": "A"}},
		{Type: rule.ActionCreateTask, Config: map[string]interface{}{"title": "B"}},
	}
	fx := newEngineFixture(t, r)
	cfg := settings.DefaultSchedulerConfig()
	cfg.DailyExecutionCap = 1
	if err := fx.settings.UpdateSchedulerConfig(context.Background(), cfg); err != nil {
		t.Fatalf("UpdateSchedulerConfig failed: %v", err)
	}

	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-cap")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	waitFor(t, "first action completion", func() bool { return fx.notifier.count() == 1 })
	time.Sleep(50 * time.Millisecond)

	if got := fx.dispatcher.callCount(); got != 1 {
		t.Errorf("dispatcher invoked %d times, want 1 under cap", got)
	}
	exec := fx.execRepo.all()[0]
	pending := 0
	for _, a := range exec.Actions {
		if a.Status == execution.ActionPending {
			pending++
		}
	}
	if pending != 1 {
		t.Errorf("got %d pending actions, want 1 deferred past the cap", pending)
	}
}

func TestOutsideWorkingWindowDefers(t *testing.T) {
	fx := newEngineFixture(t, immediateRule("after hours"))

	// A one-hour window that excludes the current hour. Due work must be
	// re-armed for the window start, not dropped and not dispatched now.
	hour := time.Now().Hour()
	cfg := settings.SchedulerConfig{RunOnWeekends: true}
	if hour < 12 {
		cfg.WorkingHoursStart, cfg.WorkingHoursEnd = hour+2, hour+3
	} else {
		cfg.WorkingHoursStart, cfg.WorkingHoursEnd = hour-3, hour-2
	}
	if err := fx.settings.UpdateSchedulerConfig(context.Background(), cfg); err != nil {
		t.Fatalf("UpdateSchedulerConfig failed: %v", err)
	}

	if err := fx.engine.HandleEvent(context.Background(), leadEvent("ev-win")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	waitFor(t, "ledger append", func() bool { return len(fx.execRepo.all()) == 1 })
	time.Sleep(50 * time.Millisecond)

	if got := fx.dispatcher.callCount(); got != 0 {
		t.Errorf("dispatcher invoked %d times, want 0 outside the window", got)
	}
	if got := fx.execRepo.all()[0].Actions[0].Status; got != execution.ActionPending {
		t.Errorf("action status = %s, want pending while deferred", got)
	}
}

func TestStartRearmsPendingActions(t *testing.T) {
	execRepo := newFakeExecRepo()
	past := time.Now().Add(-time.Hour)
	seed := &execution.RuleExecution{
		RuleID:      primitive.NewObjectID(),
		RuleName:    "left behind",
		SubjectID:   "lead-9",
		TriggeredAt: past,
		Actions: []execution.ActionExecution{
			{
				ActionIndex: 0,
				Type:        rule.ActionCreateTask,
				Config:      map[string]interface{}{"title": "Resume"},
				Status:      execution.ActionPending,
				EligibleAt:  past,
			},
		},
	}
	if err := execRepo.Append(context.Background(), seed); err != nil {
		t.Fatalf("seed append failed: %v", err)
	}

	dispatcher := &fakeDispatcher{}
	notifier := &recordingNotifier{}
	cfg := &config.Config{DispatchWorkers: 1, CapabilityTimeoutSec: 5}
	eng := NewEngineService(cfg, newFakeRuleRepo(), execRepo, dispatcher,
		&fakeSettings{cfg: settings.DefaultSchedulerConfig()}, notifier, zap.NewNop())

	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("engine start failed: %v", err)
	}
	defer eng.Stop()

	waitFor(t, "re-armed action completion", func() bool { return notifier.count() == 1 })

	exec := execRepo.all()[0]
	if got := exec.Actions[0].Status; got != execution.ActionCompleted {
		t.Errorf("re-armed action status = %s, want completed", got)
	}
}

func TestEventRedeliveryAfterRestartRunsOnce(t *testing.T) {
	ruleRepo := newFakeRuleRepo(immediateRule("welcome"))
	execRepo := newFakeExecRepo()
	cfg := &config.Config{DispatchWorkers: 1, CapabilityTimeoutSec: 5}

	first := NewEngineService(cfg, ruleRepo, execRepo, &fakeDispatcher{},
		&fakeSettings{cfg: settings.DefaultSchedulerConfig()}, &recordingNotifier{}, zap.NewNop())
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("engine start failed: %v", err)
	}
	if err := first.HandleEvent(context.Background(), leadEvent("ev-restart")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	waitFor(t, "first delivery completion", func() bool {
		execs := execRepo.all()
		return len(execs) == 1 && execs[0].Actions[0].Status == execution.ActionCompleted
	})
	if err := first.Stop(); err != nil {
		t.Fatalf("engine stop failed: %v", err)
	}

	// A second engine over the same ledger, as after a process restart. Its
	// in-memory dedup starts empty; the ledger lookup has to carry it.
	dispatcher := &fakeDispatcher{}
	restarted := NewEngineService(cfg, ruleRepo, execRepo, dispatcher,
		&fakeSettings{cfg: settings.DefaultSchedulerConfig()}, &recordingNotifier{}, zap.NewNop())
	if err := restarted.Start(context.Background()); err != nil {
		t.Fatalf("engine restart failed: %v", err)
	}
	defer restarted.Stop()

	if err := restarted.HandleEvent(context.Background(), leadEvent("ev-restart")); err != nil {
		t.Fatalf("HandleEvent after restart failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if got := len(execRepo.all()); got != 1 {
		t.Fatalf("same event ID delivered across a restart produced %d executions, want 1", got)
	}
	if got := dispatcher.callCount(); got != 0 {
		t.Errorf("redelivered event invoked the dispatcher %d times, want 0", got)
	}
}

func TestLedgerFailureDoesNotSwallowRedelivery(t *testing.T) {
	fx := newEngineFixture(t, immediateRule("flaky ledger"))
	fx.execRepo.mu.Lock()
	fx.execRepo.appendErr = errors.New("ledger down")
	fx.execRepo.mu.Unlock()

	ev := leadEvent("ev-redeliver")
	if err := fx.engine.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := len(fx.execRepo.all()); got != 0 {
		t.Fatalf("got %d executions while the ledger is down, want 0", got)
	}

	fx.execRepo.mu.Lock()
	fx.execRepo.appendErr = nil
	fx.execRepo.mu.Unlock()

	// The failed attempt must not have claimed the event ID.
	if err := fx.engine.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	waitFor(t, "redelivered event completion", func() bool { return fx.notifier.count() == 1 })

	if got := len(fx.execRepo.all()); got != 1 {
		t.Fatalf("got %d executions after redelivery, want 1", got)
	}
}

func TestStartRepairsExecutionCounter(t *testing.T) {
	r := immediateRule("drifted")
	r.ID = primitive.NewObjectID()
	r.ExecutionCount = 7
	ruleRepo := newFakeRuleRepo(r)

	execRepo := newFakeExecRepo()
	for i := 0; i < 2; i++ {
		seed := &execution.RuleExecution{
			RuleID:   r.ID,
			RuleName: r.Name,
			Actions: []execution.ActionExecution{
				{ActionIndex: 0, Status: execution.ActionCompleted},
			},
		}
		if err := execRepo.Append(context.Background(), seed); err != nil {
			t.Fatalf("seed append failed: %v", err)
		}
	}

	cfg := &config.Config{DispatchWorkers: 1, CapabilityTimeoutSec: 5}
	eng := NewEngineService(cfg, ruleRepo, execRepo, &fakeDispatcher{},
		&fakeSettings{cfg: settings.DefaultSchedulerConfig()}, &recordingNotifier{}, zap.NewNop())
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("engine start failed: %v", err)
	}
	defer eng.Stop()

	if got := ruleRepo.executionCount(r.ID); got != 2 {
		t.Errorf("execution counter = %d after reconciliation, want the ledger's 2", got)
	}
}
