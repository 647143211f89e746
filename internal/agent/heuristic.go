package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// HeuristicPlan maps normalized free text to a Plan using ordered pattern
// rules, first match wins. It is pure and fully deterministic: no I/O, no
// clock, no randomness. It is both the default planner and the fallback for
// the LLM planner.
func HeuristicPlan(input string) Plan {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Plan{}
	}
	norm := normalizeText(raw)

	// 1. create intent
	if createStart.MatchString(norm) {
		return Plan{Steps: []PlanStep{{
			Tool:   ToolCreate,
			Create: &CreateParams{Title: DeriveTitle(raw)},
		}}}
	}

	// 2. read the most recent requirement
	if strings.Contains(norm, "last") && reqNoun.MatchString(norm) {
		return Plan{Steps: []PlanStep{{Tool: ToolReadLast}}}
	}

	// 3. how many requirements
	if strings.Contains(norm, "how many") && pluralReq.MatchString(norm) {
		return Plan{Steps: []PlanStep{{Tool: ToolCount}}}
	}

	// 4. bounded listing: "top 2 requirements", "first two reqs"
	if pluralReq.MatchString(norm) && limitWord.MatchString(norm) {
		limit, ok := parseNumber(norm)
		if !ok {
			limit = 2
		}
		return Plan{Steps: []PlanStep{{Tool: ToolList, List: &ListParams{Limit: limit}}}}
	}

	// 5. read a single requirement by number
	if readVerb.MatchString(norm) && singularOnly(norm) {
		if n, ok := parseNumber(norm); ok {
			return Plan{Steps: []PlanStep{{Tool: ToolRead, Read: &ReadParams{Name: reqName(strconv.Itoa(n))}}}}
		}
	}

	// 6. plain listing
	if listStart.MatchString(norm) && pluralReq.MatchString(norm) {
		step := PlanStep{Tool: ToolList}
		if limitWord.MatchString(norm) {
			limit, ok := parseNumber(norm)
			if !ok {
				limit = 2
			}
			step.List = &ListParams{Limit: limit}
		}
		return Plan{Steps: []PlanStep{step}}
	}

	// 7. reordered read phrasing: "requirement 3 please"
	if singularOnly(norm) {
		if n, ok := parseNumber(norm); ok {
			return Plan{Steps: []PlanStep{{Tool: ToolRead, Read: &ReadParams{Name: reqName(strconv.Itoa(n))}}}}
		}
	}

	// 8. nothing matched: no tool call needed
	return Plan{}
}

var (
	createStart = regexp.MustCompile(`^(create|add)\b|new requirement|draft requirement`)
	reqNoun     = regexp.MustCompile(`\breq(uirement)?s?\b`)
	pluralReq   = regexp.MustCompile(`\b(reqs|requirements)\b`)
	singularReq = regexp.MustCompile(`\breq(uirement)?\b`)
	limitWord   = regexp.MustCompile(`\b(top|first|limit)\b`)
	readVerb    = regexp.MustCompile(`\b(read|show)\b`)
	listStart   = regexp.MustCompile(`^(list|show)\b`)
	digitRun    = regexp.MustCompile(`\d+`)
	recWord     = regexp.MustCompile(`\brec\b`)
)

// singularOnly reports a singular requirement phrase that is not the plural
// form ("requirement 3" yes, "requirements" no).
func singularOnly(norm string) bool {
	return singularReq.MatchString(norm) && !pluralReq.MatchString(norm)
}

// normalizeText lowercases, keeps alphanumerics/dashes/whitespace, fixes
// common speech-to-text mishearings, and collapses runs of spaces.
func normalizeText(input string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	s := b.String()
	s = strings.ReplaceAll(s, "wreck", "req")
	s = strings.ReplaceAll(s, "recs", "reqs")
	s = recWord.ReplaceAllString(s, "req")
	return strings.Join(strings.Fields(s), " ")
}

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// parseNumber prefers a literal digit run anywhere in the text; failing that
// it matches a spelled-out number zero through ten as a whole word.
func parseNumber(norm string) (int, bool) {
	if m := digitRun.FindString(norm); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return n, true
		}
	}
	for _, w := range strings.Fields(norm) {
		if n, ok := numberWords[w]; ok {
			return n, true
		}
	}
	return 0, false
}

// reqName formats a requirement identifier as the fixed-width zero-padded
// document name, e.g. "7" -> "REQ-007.md".
func reqName(digits string) string {
	n := 0
	if digits != "" {
		if v, err := strconv.Atoi(digits); err == nil {
			n = v
		}
	}
	return fmt.Sprintf("REQ-%03d.md", n)
}

var reqToken = regexp.MustCompile(`^req-?\d*$`)

// titleStopwords are dropped when deriving a title from a create request.
var titleStopwords = map[string]bool{
	"create": true, "add": true, "new": true,
	"requirement": true, "requirements": true, "req": true, "reqs": true,
	"a": true, "an": true, "the": true, "please": true,
}

// DeriveTitle strips command stopwords and requirement identifiers from a
// create request, keeping the remaining words with their original casing.
// "create REQ-000 Improve onboarding flow" -> "Improve onboarding flow".
func DeriveTitle(raw string) string {
	var kept []string
	for _, tok := range strings.Fields(raw) {
		trimmed := strings.Trim(tok, ".,!?;:\"'")
		lower := strings.ToLower(trimmed)
		if trimmed == "" || titleStopwords[lower] || reqToken.MatchString(lower) || isAllDigits(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	title := strings.TrimRight(strings.Join(kept, " "), ".,!?;: ")
	if title == "" {
		return "New Requirement"
	}
	return title
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
