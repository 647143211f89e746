package agent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/reqpilot/reqpilot/internal/observability"
	"github.com/reqpilot/reqpilot/internal/store"
)

// Orchestrator is the turn dispatcher: it classifies each incoming turn as a
// control command or free text, routes to the wizard or approval gate when
// one is active, and otherwise runs the planner/executor pipeline. Pending
// state is keyed by conversation id; turns within one conversation are
// assumed to arrive in order (single caller per conversation).
type Orchestrator struct {
	provider ToolProvider
	planner  *LLMPlanner
	history  *store.HistoryStore
	logger   *observability.Logger
	metrics  telemetry
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewOrchestrator(provider ToolProvider, planner *LLMPlanner, history *store.HistoryStore, logger *observability.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		planner:  planner,
		history:  history,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

var resetTokens = map[string]bool{
	"start over": true, "reset": true, "restart": true, "begin again": true, "discard": true,
}

var approveTokens = map[string]bool{
	"approve": true, "yes": true, "y": true, "ok": true, "okay": true,
	"confirm": true, "apply": true, "go ahead": true, "looks good": true,
}

var cancelTokens = map[string]bool{
	"cancel": true, "no": true, "n": true, "reject": true, "stop": true,
}

func controlToken(raw string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), ".!? ")
}

func isApproveToken(raw string) bool { return approveTokens[controlToken(raw)] }
func isCancelToken(raw string) bool  { return cancelTokens[controlToken(raw)] }
func isResetToken(raw string) bool   { return resetTokens[controlToken(raw)] }

// Chat handles one user turn and always resolves to a user-facing string;
// planning failures, tool errors and approval conflicts are all reported
// inline rather than returned as errors.
func (o *Orchestrator) Chat(ctx context.Context, chatID string, text string) (string, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return "(empty)", nil
	}

	s := o.session(chatID)
	reply := o.route(ctx, chatID, s, raw)

	if o.history != nil {
		if err := o.history.AddMessage(chatID, "human", raw); err != nil {
			log.Printf("Warning: failed to record message: %v", err)
		}
		if err := o.history.AddMessage(chatID, "ai", reply); err != nil {
			log.Printf("Warning: failed to record reply: %v", err)
		}
	}
	return reply, nil
}

func (o *Orchestrator) session(chatID string) *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[chatID]
	if !ok {
		s = &Session{}
		o.sessions[chatID] = s
	}
	return s
}

func (o *Orchestrator) route(ctx context.Context, chatID string, s *Session, raw string) string {
	// 1. Reset wins over everything and starts a fresh wizard.
	if isResetToken(raw) {
		s.clearPending()
		s.Draft = &RequirementDraft{Stage: AwaitingTitle}
		return "Okay, starting a new requirement from scratch. What should the title be?"
	}

	// 2. Outstanding approval: only explicit tokens consume it.
	if s.Approval != nil {
		if isApproveToken(raw) {
			return o.approve(ctx, chatID, s)
		}
		if isCancelToken(raw) {
			name := s.Approval.Name
			s.clearPending()
			if o.logger != nil {
				o.logger.LogApproval(chatID, "cancelled", name)
			}
			return "Cancelled. Nothing was written."
		}
	}

	// 3. Active wizard consumes the turn.
	if s.Draft != nil {
		return o.wizardTurn(ctx, chatID, s, raw)
	}

	// 4. Legacy deferred step awaiting confirmation.
	if s.Deferred != nil {
		if isApproveToken(raw) {
			step := *s.Deferred
			s.Deferred = nil
			return o.runSteps(ctx, chatID, s, []PlanStep{step})
		}
		if isCancelToken(raw) {
			s.Deferred = nil
			return "Cancelled."
		}
	}

	// 5. A create request bypasses the planner and starts the wizard.
	if createIntent.MatchString(raw) {
		s.clearPending()
		s.Draft = &RequirementDraft{Stage: AwaitingTitle}
		return "Let's draft a new requirement. What should the title be?"
	}

	// 6. Plan and execute.
	observability.SetStatus(observability.RolePlanning, raw)
	defer func() {
		if s.Approval != nil {
			observability.SetStatus(observability.RoleAwaiting, "")
		} else {
			observability.SetStatus(observability.RoleIdle, "")
		}
	}()

	plan := o.planner.Plan(ctx, chatID, raw)
	if o.logger != nil {
		o.logger.LogPlan(chatID, planSource(o.planner), plan.Tools())
	}
	if len(plan.Steps) == 0 {
		return "[answer] " + raw
	}
	return o.runSteps(ctx, chatID, s, plan.Steps)
}

var createIntent = regexp.MustCompile(`(?i)\b(create|add|new requirement|draft requirement|scribe)\b`)

// runSteps executes plan steps strictly in order, joining each step's
// labeled output with newlines. A mutating step parks in the approval gate
// and pauses the steps after it; they resume on approve.
func (o *Orchestrator) runSteps(ctx context.Context, chatID string, s *Session, steps []PlanStep) string {
	observability.SetStatus(observability.RoleExecuting, "")
	var results []string
	for i, step := range steps {
		start := o.now()
		out, handoff, err := o.executeStep(ctx, chatID, s, step)
		elapsed := o.now().Sub(start)
		if err != nil {
			o.metrics.stepError()
			if o.logger != nil {
				o.logger.LogStep(chatID, step.Tool, "error", elapsed)
			}
			results = append(results, fmt.Sprintf("[%s] error: %v", step.Tool, err))
			continue
		}
		o.metrics.stepDone(elapsed)
		if o.logger != nil {
			o.logger.LogStep(chatID, step.Tool, "ok", elapsed)
		}
		results = append(results, fmt.Sprintf("[%s] %s", step.Tool, out))
		if handoff {
			observability.SetStatus(observability.RoleAwaiting, step.Tool)
			if rest := steps[i+1:]; len(rest) > 0 && s.Approval != nil {
				s.Approval.Remaining = append([]PlanStep(nil), rest...)
				results = append(results, fmt.Sprintf("(%d more step(s) paused until you approve or cancel)", len(rest)))
			}
			break
		}
	}
	return strings.Join(results, "\n")
}

func planSource(p *LLMPlanner) string {
	if p == nil || p.Model == nil {
		return "heuristic"
	}
	return "llm"
}

// telemetry funnels step outcomes into the Prometheus counters; each
// outcome increments exactly once.
type telemetry struct{}

func (telemetry) stepDone(d time.Duration) {
	observability.StepsExecuted.Inc()
	observability.StepDuration.Observe(d.Seconds())
}
func (telemetry) stepError()    { observability.StepErrors.Inc() }
func (telemetry) blockedWrite() { observability.BlockedWrites.Inc() }
