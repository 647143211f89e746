package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// wizardTurn advances the requirement wizard one stage. The wizard collects
// a title, a description, and acceptance criteria across turns, then hands a
// fully-formed document to the approval gate.
func (o *Orchestrator) wizardTurn(ctx context.Context, chatID string, s *Session, raw string) string {
	d := s.Draft
	switch d.Stage {
	case AwaitingTitle:
		d.Title = DeriveTitle(raw)
		d.Stage = AwaitingDescription
		return fmt.Sprintf("Title: %q. Now give me a short description (or send an empty-ish line to skip).", d.Title)

	case AwaitingDescription:
		d.Description = strings.TrimSpace(raw)
		d.Criteria = suggestCriteria(d.Title, d.Description)
		d.Stage = AwaitingCriteria
		var b strings.Builder
		b.WriteString("Suggested acceptance criteria:\n")
		for _, c := range d.Criteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("Reply \"approve\" to use these, or send your own criteria (one per line).")
		return b.String()

	case AwaitingCriteria:
		// Any non-approve text is read as replacement criteria; either way
		// the draft moves on to preview and approval.
		if !isApproveToken(raw) {
			if lines := parseCriteriaLines(raw); len(lines) > 0 {
				d.Criteria = lines
			}
		}
		return o.previewDraft(ctx, chatID, s)
	}
	return "I lost track of the requirement draft. Say \"start over\" to begin again."
}

// previewDraft assembles the final document, asks the provider for a diff,
// and installs the pending approval. The wizard is cleared either way.
func (o *Orchestrator) previewDraft(ctx context.Context, chatID string, s *Session) string {
	d := s.Draft
	id, err := o.provider.NextID(ctx)
	if err != nil {
		return fmt.Sprintf("Could not allocate a requirement id: %v. Try again, or say \"cancel\".", err)
	}
	name := id + ".md"
	content := renderRequirement(id, d, o.now())
	msg, err := o.requestApproval(ctx, chatID, s, requirementsRoot, name, content)
	if err != nil {
		return fmt.Sprintf("Could not prepare the document preview: %v. Try again, or say \"cancel\".", err)
	}
	return msg
}

// renderRequirement assembles the document: a front-matter block, the
// description, and an Acceptance section with at least one checklist item.
func renderRequirement(id string, d *RequirementDraft, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\nid: %s\ntitle: %s\nstatus: draft\ncreated: %s\n---\n\n", id, d.Title, now.Format("2006-01-02"))
	if d.Description != "" {
		b.WriteString(d.Description)
		b.WriteString("\n\n")
	}
	b.WriteString("## Acceptance\n\n")
	criteria := d.Criteria
	if len(criteria) == 0 {
		criteria = []string{"Behavior is verified end to end"}
	}
	for _, c := range criteria {
		fmt.Fprintf(&b, "- [ ] %s\n", c)
	}
	return b.String()
}

// suggestCriteria proposes 3-4 acceptance criteria. With a description the
// suggestions lean on its content; without one they fall back to generic
// discoverability/happy-path/negative-path checks.
func suggestCriteria(title, description string) []string {
	desc := strings.TrimSpace(description)
	if desc == "" {
		return []string{
			"The capability is discoverable from the main flow",
			"The happy path completes without errors",
			"Invalid input is rejected with a clear message",
		}
	}
	subject := title
	if subject == "" || subject == "New Requirement" {
		subject = "The feature"
	}
	return []string{
		fmt.Sprintf("\"%s\" behaves as described: %s", subject, firstClause(desc)),
		fmt.Sprintf("%s handles invalid input with a clear error message", subject),
		"The change shows up when requirements are listed",
		"Existing requirements are unaffected",
	}
}

// firstClause trims the description to its first sentence, capped for use
// inside a criterion line.
func firstClause(desc string) string {
	if i := strings.IndexAny(desc, ".;\n"); i > 0 {
		desc = desc[:i]
	}
	if len(desc) > 80 {
		desc = desc[:77] + "..."
	}
	return strings.TrimSpace(desc)
}

var bulletPrefix = regexp.MustCompile(`^([-*•]|\d+[.)])\s*`)

// parseCriteriaLines splits user text into criteria: one per line, leading
// bullet markers stripped, empty lines discarded.
func parseCriteriaLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = bulletPrefix.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
