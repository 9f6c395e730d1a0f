// Package resolve computes the ordered slot list a renderer walks for a
// case study, together with the resolved aside panel contents. Resolution
// is a full recomputation from the current document, positions and
// sidebar store on every call, there is no incremental index. The single
// sanctioned state mutation is the solution card anchor correction, which
// is reported to the caller for persistence.
package resolve

import (
	"fmt"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"csb/casestudy"
)

// SlotKind discriminates the two entry kinds of the rendering sequence.
type SlotKind int

const (
	SlotSection SlotKind = iota
	SlotGallery
)

func (k SlotKind) String() string {
	if k == SlotSection {
		return "section"
	}
	return "gallery"
}

// Slot is one entry in the resolved rendering sequence, either a
// narrative section or a gallery instance. Section is set for section
// slots and carries the spans of the current document text.
type Slot struct {
	Kind     SlotKind
	Title    string
	Gallery  casestudy.GalleryKind
	Position int
	Section  *casestudy.Section
}

// SidebarSource tells where resolved aside content came from.
type SidebarSource int

const (
	SidebarAbsent SidebarSource = iota
	SidebarFromStore
	SidebarFromLegacy
)

// SidebarView is the resolved content of one aside panel. NeedsRestore is
// a migration signal: neither source yielded content and the user never
// explicitly hid the panel.
type SidebarView struct {
	Title        string
	Content      string
	Source       SidebarSource
	NeedsRestore bool
}

func (v SidebarView) Present() bool {
	return v.Source != SidebarAbsent
}

// Options control resolution behavior. EditMode keeps empty gallery slots
// visible so they can be edited. ManualMove suppresses the solution card
// anchor correction for the resolve immediately following a user move.
type Options struct {
	EditMode   bool
	ManualMove bool
}

// Resolution is the full resolver output for one project state.
type Resolution struct {
	Slots     []Slot
	Narrative []casestudy.Section
	Cards     []casestudy.Section
	Sidebar1  SidebarView
	Sidebar2  SidebarView

	// Corrected is set when the solution cards position was self-healed
	// against the anchor section and the new state needs persistence.
	Corrected bool
}

// Resolve computes the slot list and aside contents for the project.
// Malformed content degrades to fewer slots, never to a failure.
func Resolve(p *casestudy.Project, opts Options, log *zap.Logger) *Resolution {
	res := &Resolution{}

	raw := casestudy.ParseDocument(p.Document)

	narrative := admitNarrative(raw, !p.Sidebars.Empty(), log)
	narrative, res.Cards = extractCards(p, narrative)

	correctAnchor(p, narrative, opts, res, log)

	galleries := placeGalleries(p, len(narrative), len(res.Cards), opts, log)
	res.Narrative = narrative
	res.Slots = walkSlots(narrative, galleries)

	res.Sidebar1 = resolveSidebar(p, casestudy.SidebarSlot1, raw)
	res.Sidebar2 = resolveSidebar(p, casestudy.SidebarSlot2, raw)

	return res
}

// admitNarrative drops reserved sidebar sections always, and applies the
// allow-list when the sidebar store is authoritative. Past the anchor the
// allow-list is relaxed so arbitrary card titles survive, with the
// decorative exclusion list keeping structural titles out of the grid.
func admitNarrative(raw []casestudy.Section, authoritative bool, log *zap.Logger) []casestudy.Section {
	var (
		admitted   []casestudy.Section
		anchorSeen bool
	)
	for i := range raw {
		sec := raw[i]
		if _, reserved := casestudy.IsReservedSidebarTitle(sec.Title); reserved {
			continue
		}
		if authoritative {
			admit := casestudy.IsWhitelistedNarrativeTitle(sec.Title)
			if anchorSeen {
				admit = !casestudy.IsDecorativeTitle(sec.Title)
			}
			if !admit {
				log.Debug("Dropping section not admitted to narrative", zap.String("title", sec.Title))
				if casestudy.IsAnchorTitle(sec.Title) {
					anchorSeen = true
				}
				continue
			}
		}
		admitted = append(admitted, sec)
		if casestudy.IsAnchorTitle(sec.Title) {
			anchorSeen = true
		}
	}
	return admitted
}

// extractCards pulls post-anchor non-decorative sections out of the
// narrative into the solution card grid when the grid is present.
// Consecutive "New Card <n>" runs are kept in natural order so card 10
// does not sort before card 2.
func extractCards(p *casestudy.Project, narrative []casestudy.Section) (remaining, cards []casestudy.Section) {
	if _, present := p.Positions.Get(casestudy.GallerySolutionCards); !present {
		return narrative, nil
	}
	anchor := anchorIndex(narrative)
	if anchor < 0 {
		return narrative, nil
	}
	remaining = narrative[:anchor+1:anchor+1]
	for i := anchor + 1; i < len(narrative); i++ {
		if casestudy.IsDecorativeTitle(narrative[i].Title) {
			remaining = append(remaining, narrative[i])
			continue
		}
		cards = append(cards, narrative[i])
	}
	orderNewCardRuns(cards)
	return remaining, cards
}

func anchorIndex(sections []casestudy.Section) int {
	for i := range sections {
		if casestudy.IsAnchorTitle(sections[i].Title) {
			return i
		}
	}
	return -1
}

func orderNewCardRuns(cards []casestudy.Section) {
	start := -1
	flush := func(end int) {
		if start < 0 || end-start < 2 {
			start = -1
			return
		}
		run := cards[start:end]
		sort.SliceStable(run, func(i, j int) bool {
			return natural.Less(run[i].Title, run[j].Title)
		})
		start = -1
	}
	for i := range cards {
		if casestudy.IsNewCardTitle(cards[i].Title) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(cards))
}

// correctAnchor self-heals a stale solution cards position against the
// anchor section. This is the one sanctioned mutation of the resolve
// pass, skipped right after a manual move and when no anchor exists.
func correctAnchor(p *casestudy.Project, narrative []casestudy.Section, opts Options, res *Resolution, log *zap.Logger) {
	stored, present := p.Positions.Get(casestudy.GallerySolutionCards)
	if !present || opts.ManualMove {
		return
	}
	anchor := anchorIndex(narrative)
	if anchor < 0 {
		return
	}
	want := anchor + 1
	if stored == want {
		return
	}
	log.Info("Correcting solution cards position against anchor",
		zap.Int("stored", stored), zap.Int("corrected", want))
	p.Positions.Set(casestudy.GallerySolutionCards, want)
	res.Corrected = true
}

// placeGalleries maps slot indexes to gallery kinds. Empty galleries are
// skipped outside edit mode. Stored positions come from persisted state
// or imported bundles and are not trusted: values outside the slot walk
// are clamped so the walk stays bounded. Position collisions should not
// exist, when a persisted state carries one anyway the earlier kind in
// catalog order wins and the latter is shifted to the next free index.
func placeGalleries(p *casestudy.Project, narrativeLen, cardCount int, opts Options, log *zap.Logger) map[int]casestudy.GalleryKind {
	limit := narrativeLen + len(casestudy.AllGalleryKinds())
	byPos := make(map[int]casestudy.GalleryKind)
	for _, kind := range casestudy.AllGalleryKinds() {
		pos, ok := p.Positions.Get(kind)
		if !ok {
			continue
		}
		count := p.GalleryLen(kind)
		if kind == casestudy.GallerySolutionCards {
			count = cardCount
		}
		if count == 0 && !opts.EditMode {
			continue
		}
		if pos < 0 {
			log.Warn("Negative gallery position, clamping", zap.Stringer("kind", kind), zap.Int("position", pos))
			pos = 0
		}
		if pos > limit {
			log.Warn("Gallery position out of range, clamping", zap.Stringer("kind", kind), zap.Int("position", pos), zap.Int("limit", limit))
			pos = limit
		}
		for {
			if _, taken := byPos[pos]; !taken {
				break
			}
			log.Warn("Gallery position collision in stored state, shifting",
				zap.Stringer("kind", kind), zap.Int("position", pos))
			pos++
		}
		byPos[pos] = kind
	}
	return byPos
}

// walkSlots performs the zero-based slot walk: a gallery stored at the
// current index preempts the narrative pointer, otherwise the next
// unconsumed narrative section is emitted. Gaps advance the index without
// emitting.
func walkSlots(narrative []casestudy.Section, galleries map[int]casestudy.GalleryKind) []Slot {
	maxPos := -1
	for pos := range galleries {
		if pos > maxPos {
			maxPos = pos
		}
	}

	slots := make([]Slot, 0, len(narrative)+len(galleries))
	remaining := len(galleries)
	j := 0
	for i := 0; remaining > 0 || j < len(narrative); i++ {
		if kind, ok := galleries[i]; ok {
			slots = append(slots, Slot{
				Kind:     SlotGallery,
				Title:    kind.DisplayTitle(),
				Gallery:  kind,
				Position: i,
			})
			remaining--
			continue
		}
		if j < len(narrative) {
			sec := &narrative[j]
			slots = append(slots, Slot{
				Kind:     SlotSection,
				Title:    sec.Title,
				Position: i,
				Section:  sec,
			})
			j++
			continue
		}
		if i > maxPos {
			// nothing left to emit
			break
		}
	}
	return slots
}

func resolveSidebar(p *casestudy.Project, slot casestudy.SidebarSlot, raw []casestudy.Section) SidebarView {
	if e := p.Sidebars.Entry(slot); e != nil {
		if e.Hidden {
			return SidebarView{}
		}
		return SidebarView{Title: e.Title, Content: e.Content, Source: SidebarFromStore}
	}
	// legacy fallback: inline reserved-title section in the raw document
	for i := range raw {
		s, reserved := casestudy.IsReservedSidebarTitle(raw[i].Title)
		if reserved && s == slot {
			return SidebarView{
				Title:   raw[i].Title,
				Content: casestudy.RenderSectionContent(&raw[i]),
				Source:  SidebarFromLegacy,
			}
		}
	}
	if p.Positions.Flag(casestudy.HideFlagFor(slot)) {
		return SidebarView{}
	}
	return SidebarView{NeedsRestore: true}
}

// Describe renders the slot list as plain text, one slot per line. Used
// by the show command and in debug reports.
func (r *Resolution) Describe() string {
	out := ""
	for _, slot := range r.Slots {
		out += fmt.Sprintf("%3d  %-8s %s", slot.Position, slot.Kind, slot.Title)
		if slot.Kind == SlotGallery && slot.Gallery == casestudy.GallerySolutionCards {
			out += fmt.Sprintf(" (%d cards)", len(r.Cards))
		}
		out += "\n"
	}
	return out
}
