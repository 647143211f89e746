package agent

import "context"

// Agent is the conversational entry point. One call handles one user turn
// and always resolves to a user-facing reply; nothing in the core is fatal.
type Agent interface {
	Chat(ctx context.Context, chatID string, text string) (string, error)
}

// ToolProvider is the fixed capability set the orchestrator may call. It is
// consumed over a request/response transport and never owned by the core.
type ToolProvider interface {
	List(ctx context.Context, root string, exts []string) ([]string, error)
	ReadText(ctx context.Context, root, name string) (string, error)
	Count(ctx context.Context, root string) (int, error)
	NextID(ctx context.Context) (string, error)
	PreviewCreate(ctx context.Context, title string) (name, content string, err error)
	Diff(ctx context.Context, root, name, content string) (string, error)
	ApplyWrite(ctx context.Context, root, name, content, expectedDiff string) error
}

// requirementsRoot is the provider root all five domain tools operate on.
const requirementsRoot = "requirements"

// WizardStage is the linear progress of the requirement wizard.
type WizardStage int

const (
	AwaitingTitle WizardStage = iota
	AwaitingDescription
	AwaitingCriteria
)

// PendingApproval is the one outstanding proposed mutation of a
// conversation: the target, the full proposed content, and the diff captured
// at preview time, used as an expected-state fingerprint when applying.
// Remaining carries plan steps paused behind the approval; they run only
// after a successful apply.
type PendingApproval struct {
	Root      string
	Name      string
	Content   string
	Diff      string
	Remaining []PlanStep
}

// RequirementDraft is the wizard's working state, collected across turns.
type RequirementDraft struct {
	Stage       WizardStage
	Title       string
	Description string
	Criteria    []string
}

// Session holds the per-conversation pending state. At most one of the three
// pointers is non-nil at a time; every install path clears the others first.
// All of it lives in process memory only.
type Session struct {
	Approval *PendingApproval
	Draft    *RequirementDraft
	// Deferred is the legacy single-step confirmation: one plan step held
	// back until the user approves it.
	Deferred *PlanStep
}

func (s *Session) clearPending() {
	s.Approval = nil
	s.Draft = nil
	s.Deferred = nil
}
