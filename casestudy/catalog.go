package casestudy

import (
	"regexp"
	"strings"
)

// The section catalog: which titles are legitimate narrative content,
// which are reserved for the aside panels, and what seed content a newly
// added section starts with. Pure lookups, no state, unknown titles
// simply miss.

var sidebar1Aliases = []string{"sidebar 1", "at a glance", "tech stack", "tools"}

var sidebar2Aliases = []string{"sidebar 2", "impact"}

// narrativeTitles is the allow-list of recognized narrative section
// titles. A candidate matches when one of these appears in it
// (case-insensitive), which covers exact, prefix and suffix-extended
// variants like "The solution: A new direction" or "My role & impact".
var narrativeTitles = []string{
	"overview",
	"the challenge",
	"my role",
	"research insights",
	"research",
	"competitive analysis",
	"the solution",
	"solution cards",
	"key features",
	"project phases",
}

// decorativeTitles excludes post-anchor sections from the solution card
// grid. The list grew out of observed content rather than a clean rule,
// matching stays prefix-based so suffix-extended variants are covered.
var decorativeTitles = []string{
	"overview",
	"the challenge",
	"my role",
	"research insights",
	"competitive analysis",
	"solution highlights",
	"key contributions",
	"key features",
	"project phases",
}

var newCardRe = regexp.MustCompile(`^new card \d+$`)

const anchorTitle = "the solution"

func canonical(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// IsReservedSidebarTitle reports whether the title denotes aside panel
// content and, when it does, which slot it belongs to. Reserved titles
// must never appear in the rendered narrative body.
func IsReservedSidebarTitle(title string) (SidebarSlot, bool) {
	t := canonical(title)
	for _, alias := range sidebar1Aliases {
		if t == alias {
			return SidebarSlot1, true
		}
	}
	for _, alias := range sidebar2Aliases {
		if t == alias {
			return SidebarSlot2, true
		}
	}
	return 0, false
}

// IsWhitelistedNarrativeTitle reports whether the title is recognized
// narrative content.
func IsWhitelistedNarrativeTitle(title string) bool {
	t := canonical(title)
	if t == "" {
		return false
	}
	for _, w := range narrativeTitles {
		if strings.Contains(t, w) {
			return true
		}
	}
	return IsNewCardTitle(title)
}

// IsDecorativeTitle reports whether a post-anchor section stays
// standalone narrative instead of joining the solution card grid.
func IsDecorativeTitle(title string) bool {
	t := canonical(title)
	for _, w := range decorativeTitles {
		if strings.HasPrefix(t, w) {
			return true
		}
	}
	return false
}

// IsNewCardTitle matches the "New Card <n>" pattern used for freshly
// added solution cards.
func IsNewCardTitle(title string) bool {
	return newCardRe.MatchString(canonical(title))
}

// IsAnchorTitle matches "The solution" including suffix-extended
// variants. The solution card grid is positioned right after this
// section when present.
func IsAnchorTitle(title string) bool {
	return strings.HasPrefix(canonical(title), anchorTitle)
}

// DefaultBodyFor returns seed markdown for a newly added section of a
// known kind. Returns empty for unknown titles and is never consulted
// when parsing existing content.
func DefaultBodyFor(title string) string {
	t := canonical(title)
	switch {
	case strings.HasPrefix(t, "overview"):
		return "A short summary of the project: what it is, who it serves and what was delivered."
	case strings.HasPrefix(t, "the challenge"):
		return "What problem existed before this project and why it mattered."
	case strings.HasPrefix(t, "my role"):
		return "- Role: \n- Responsibilities: \n- Timeline: "
	case strings.HasPrefix(t, "research insights"), t == "research":
		return "## Insight 1\n\nWhat the research showed and how it shaped the direction."
	case strings.HasPrefix(t, "competitive analysis"):
		return "How existing solutions approach the problem and where they fall short."
	case strings.HasPrefix(t, "the solution"):
		return "The approach taken and why it works."
	case strings.HasPrefix(t, "key features"):
		return "## Feature 1\n\nWhat it does and why it matters."
	case strings.HasPrefix(t, "project phases"):
		return "## Phase 1\n\nWhat happened in this phase."
	case IsNewCardTitle(title):
		return "Describe this part of the solution."
	default:
		return ""
	}
}

// DefaultSidebarEntry returns the seed entry created when a sidebar slot
// is added for the first time.
func DefaultSidebarEntry(slot SidebarSlot, title string) *SidebarEntry {
	if strings.TrimSpace(title) == "" {
		if slot == SidebarSlot1 {
			title = "At a glance"
		} else {
			title = "Impact"
		}
	}
	content := "- Outcome: \n- Measure: "
	if slot == SidebarSlot1 {
		content = "- Role: \n- Timeline: \n- Tools: "
	}
	return &SidebarEntry{Title: title, Content: content}
}
