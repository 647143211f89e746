package agent

import (
	"context"
	"fmt"
	"strings"
)

// executeStep dispatches one plan step to the Tool Provider. The returned
// handoff flag is true when the step was mutating and has been parked in the
// approval gate instead of executed; the caller must pause the remaining
// plan steps.
func (o *Orchestrator) executeStep(ctx context.Context, chatID string, s *Session, step PlanStep) (out string, handoff bool, err error) {
	switch step.Tool {
	case ToolList:
		files, err := o.provider.List(ctx, requirementsRoot, []string{".md"})
		if err != nil {
			return "", false, err
		}
		if step.List != nil && step.List.Limit > 0 && len(files) > step.List.Limit {
			files = files[:step.List.Limit]
		}
		if len(files) == 0 {
			return "(none)", false, nil
		}
		return strings.Join(files, "\n"), false, nil

	case ToolCount:
		n, err := o.provider.Count(ctx, requirementsRoot)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("%d requirements", n), false, nil

	case ToolRead:
		if step.Read == nil || step.Read.Name == "" {
			return "", false, fmt.Errorf("read step missing document name")
		}
		body, err := o.provider.ReadText(ctx, requirementsRoot, step.Read.Name)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("--- %s ---\n%s", step.Read.Name, body), false, nil

	case ToolReadLast:
		files, err := o.provider.List(ctx, requirementsRoot, []string{".md"})
		if err != nil {
			return "", false, err
		}
		name := highestDoc(files)
		if name == "" {
			return "No requirements found.", false, nil
		}
		body, err := o.provider.ReadText(ctx, requirementsRoot, name)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("--- %s ---\n%s", name, body), false, nil

	case ToolCreate:
		title := "New Requirement"
		if step.Create != nil && strings.TrimSpace(step.Create.Title) != "" {
			title = step.Create.Title
		}
		name, content, err := o.provider.PreviewCreate(ctx, title)
		if err != nil {
			return "", false, err
		}
		msg, err := o.requestApproval(ctx, chatID, s, requirementsRoot, name, content)
		if err != nil {
			return "", false, err
		}
		return msg, true, nil

	default:
		// Unreachable given allowlist filtering upstream.
		return "", false, fmt.Errorf("unknown tool: %s", step.Tool)
	}
}

// highestDoc picks the document whose embedded number is largest.
func highestDoc(names []string) string {
	best, bestN := "", -1
	for _, n := range names {
		digits := keepDigits(strings.TrimSuffix(n, ".md"))
		if digits == "" {
			continue
		}
		v := 0
		fmt.Sscanf(digits, "%d", &v)
		if v > bestN {
			best, bestN = n, v
		}
	}
	return best
}

// requestApproval obtains a diff for the proposed write and installs it as
// the session's pending approval. Nothing is written until the user approves.
func (o *Orchestrator) requestApproval(ctx context.Context, chatID string, s *Session, root, name, content string) (string, error) {
	diff, err := o.provider.Diff(ctx, root, name, content)
	if err != nil {
		return "", err
	}
	s.clearPending()
	s.Approval = &PendingApproval{Root: root, Name: name, Content: content, Diff: diff}
	o.metrics.blockedWrite()
	if o.logger != nil {
		o.logger.LogApproval(chatID, "requested", name)
	}
	return fmt.Sprintf("Proposed %s. Review the diff and reply \"approve\" to write it, or \"cancel\":\n%s", name, diff), nil
}

// approve applies the pending write, guarded by the diff captured at preview
// time. On success any paused plan steps resume. On conflict or provider
// error the diff is recomputed and the pending approval is replaced with the
// refreshed one; the write is never silently retried with unreviewed content.
func (o *Orchestrator) approve(ctx context.Context, chatID string, s *Session) string {
	a := s.Approval
	err := o.provider.ApplyWrite(ctx, a.Root, a.Name, a.Content, a.Diff)
	if err == nil {
		remaining := a.Remaining
		s.clearPending()
		if o.logger != nil {
			o.logger.LogApproval(chatID, "applied", a.Name)
		}
		reply := fmt.Sprintf("Created %s.", a.Name)
		if len(remaining) > 0 {
			reply += "\n" + o.runSteps(ctx, chatID, s, remaining)
		}
		return reply
	}

	fresh, derr := o.provider.Diff(ctx, a.Root, a.Name, a.Content)
	if derr != nil {
		return fmt.Sprintf("Could not apply the write (%v) and re-checking the document also failed (%v). Approve to retry or cancel.", err, derr)
	}
	s.Approval = &PendingApproval{Root: a.Root, Name: a.Name, Content: a.Content, Diff: fresh, Remaining: a.Remaining}
	if o.logger != nil {
		o.logger.LogApproval(chatID, "conflict", a.Name)
	}
	return fmt.Sprintf("%s changed since the preview and was not written. Review the updated diff and reply \"approve\" again, or \"cancel\":\n%s", a.Name, fresh)
}
