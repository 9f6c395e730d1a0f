// Package splice realizes user editing intents as concrete mutations of
// the document text, the gallery position integers and the sidebar
// store. All operations are total: lookup misses and boundary moves
// degrade to logged no-ops, nothing here returns an error or panics for
// content anomalies. Every operation reports whether the project changed
// so callers know when to persist.
package splice

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"csb/casestudy"
	"csb/resolve"
)

// Direction of a move operation. Up moves toward slot zero.
type Direction int

const (
	MoveUp Direction = iota
	MoveDown
)

func (d Direction) String() string {
	if d == MoveUp {
		return "up"
	}
	return "down"
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return MoveUp, nil
	case "down":
		return MoveDown, nil
	}
	return 0, fmt.Errorf("unknown move direction %q (supported: up, down)", s)
}

// AddNarrativeSection appends a new titled section with its catalog seed
// content. No-op when a section with the title is already present.
func AddNarrativeSection(p *casestudy.Project, title string, log *zap.Logger) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		log.Warn("Refusing to add section with empty title")
		return false
	}
	sections := casestudy.ParseDocument(p.Document)
	if casestudy.FindSection(sections, title) >= 0 {
		log.Debug("Section already present, not adding", zap.String("title", title))
		return false
	}

	block := "# " + title
	if body := casestudy.DefaultBodyFor(title); body != "" {
		block += "\n\n" + body
	}
	if strings.TrimSpace(p.Document) == "" {
		p.Document = block + "\n"
	} else {
		p.Document = strings.TrimRight(p.Document, "\n") + "\n\n---\n\n" + block + "\n"
	}
	log.Debug("Added section", zap.String("title", title))
	return true
}

// AddGallery gives the kind a slot. The next available position is the
// maximum of all defined positions and the narrative section count, plus
// one. For solution cards the anchor rule then snaps the grid right after
// "The solution" when that section exists.
func AddGallery(p *casestudy.Project, kind casestudy.GalleryKind, log *zap.Logger) bool {
	if _, ok := p.Positions.Get(kind); ok {
		log.Debug("Gallery already present, not adding", zap.Stringer("kind", kind))
		return false
	}

	res := resolve.Resolve(p, resolve.Options{EditMode: true, ManualMove: true}, log)
	next := len(res.Narrative)
	for _, pos := range p.Positions.Defined() {
		if pos > next {
			next = pos
		}
	}
	p.Positions.Set(kind, next+1)
	log.Debug("Added gallery", zap.Stringer("kind", kind), zap.Int("position", next+1))

	if kind == casestudy.GallerySolutionCards {
		// let the anchor rule place the grid
		resolve.Resolve(p, resolve.Options{EditMode: true}, log)
	}
	return true
}

// AddSidebar makes the slot visible: an existing entry is un-hidden with
// its content preserved, otherwise a new entry is created with seed
// content and any legacy inline copy is stripped from the document.
func AddSidebar(p *casestudy.Project, slot casestudy.SidebarSlot, title string, log *zap.Logger) bool {
	p.Positions.SetFlag(casestudy.HideFlagFor(slot), false)

	if e := p.Sidebars.Entry(slot); e != nil {
		if !e.Hidden {
			log.Debug("Sidebar already visible", zap.Stringer("slot", slot))
			return false
		}
		e.Hidden = false
		log.Debug("Restored hidden sidebar", zap.Stringer("slot", slot), zap.String("title", e.Title))
		return true
	}

	p.Sidebars.SetEntry(slot, casestudy.DefaultSidebarEntry(slot, title))
	p.StripLegacySidebarBlocks(log)
	log.Debug("Added sidebar", zap.Stringer("slot", slot))
	return true
}

// SetSidebarContent replaces the slot's title and content, creating the
// entry when absent. Hidden state is preserved.
func SetSidebarContent(p *casestudy.Project, slot casestudy.SidebarSlot, title, content string, log *zap.Logger) bool {
	e := p.Sidebars.Entry(slot)
	if e == nil {
		p.Sidebars.SetEntry(slot, &casestudy.SidebarEntry{Title: title, Content: content})
	} else {
		e.Title, e.Content = title, content
	}
	p.StripLegacySidebarBlocks(log)
	return true
}

// HideSidebar soft-removes the slot: content is retained so an add can
// restore it. A legacy inline copy is migrated into the store first so
// nothing is lost.
func HideSidebar(p *casestudy.Project, slot casestudy.SidebarSlot, log *zap.Logger) bool {
	p.StripLegacySidebarBlocks(log)
	e := p.Sidebars.Entry(slot)
	if e == nil {
		p.Positions.SetFlag(casestudy.HideFlagFor(slot), true)
		log.Debug("Hiding absent sidebar, flag only", zap.Stringer("slot", slot))
		return true
	}
	if e.Hidden {
		log.Debug("Sidebar already hidden", zap.Stringer("slot", slot))
		return false
	}
	e.Hidden = true
	return true
}

// RemoveNarrativeSection deletes the section's full text span, heading
// line through the line preceding the next top-level heading.
func RemoveNarrativeSection(p *casestudy.Project, title string, log *zap.Logger) bool {
	sections := casestudy.ParseDocument(p.Document)
	idx := casestudy.FindSection(sections, title)
	if idx < 0 {
		log.Warn("Section not found, nothing to remove", zap.String("title", title))
		return false
	}
	start, end := sections[idx].Span()
	p.Document = tidySeparators(casestudy.CutSpan(p.Document, start, end))
	log.Debug("Removed section", zap.String("title", title))
	return true
}

// RemoveGallery clears the kind's stored content and its slot. Removing
// the solution card grid additionally strips card headers from the
// document so they do not resurface as narrative sections.
func RemoveGallery(p *casestudy.Project, kind casestudy.GalleryKind, log *zap.Logger) bool {
	if _, ok := p.Positions.Get(kind); !ok {
		log.Debug("Gallery not present, nothing to remove", zap.Stringer("kind", kind))
		return false
	}
	p.Positions.Clear(kind)
	switch kind {
	case casestudy.GalleryProjectImages:
		p.Images = nil
	case casestudy.GalleryVideos:
		p.Videos = nil
	case casestudy.GalleryFlowDiagrams:
		p.Diagrams = nil
	case casestudy.GallerySolutionCards:
		stripCardHeaders(p, log)
	}
	log.Debug("Removed gallery", zap.Stringer("kind", kind))
	return true
}

func stripCardHeaders(p *casestudy.Project, log *zap.Logger) {
	for {
		sections := casestudy.ParseDocument(p.Document)
		idx := -1
		for i := range sections {
			t := strings.ToLower(strings.TrimSpace(sections[i].Title))
			if casestudy.IsNewCardTitle(sections[i].Title) || t == "solution cards" {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		start, end := sections[idx].Span()
		p.Document = casestudy.CutSpan(p.Document, start, end)
		log.Debug("Stripped card header", zap.String("title", sections[idx].Title))
	}
}

// MoveSection moves the titled section one slot in the direction. When
// the adjacent slot is a gallery the two trade position integers
// outright, keeping the total slot count stable. When it is another
// narrative section the two text spans are physically swapped within the
// document. Boundary moves are no-ops.
func MoveSection(p *casestudy.Project, title string, dir Direction, log *zap.Logger) bool {
	res := resolve.Resolve(p, resolve.Options{EditMode: true, ManualMove: true}, log)

	idx := -1
	for i := range res.Slots {
		if res.Slots[i].Kind == resolve.SlotSection && strings.EqualFold(strings.TrimSpace(res.Slots[i].Title), strings.TrimSpace(title)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		log.Warn("Section slot not found, move ignored", zap.String("title", title))
		return false
	}
	adj := adjacentIndex(idx, dir, len(res.Slots))
	if adj < 0 {
		log.Debug("Boundary move, nothing to do", zap.String("title", title), zap.Stringer("direction", dir))
		return false
	}

	target, other := res.Slots[idx], res.Slots[adj]
	if other.Kind == resolve.SlotGallery {
		// the gallery is displaced to the slot being vacated
		p.Positions.Set(other.Gallery, target.Position)
		return true
	}
	swapSpans(p, target.Section, other.Section)
	return true
}

// MoveGallery moves the gallery one slot in the direction by position
// arithmetic only, the document text never changes. Boundary moves are
// no-ops.
func MoveGallery(p *casestudy.Project, kind casestudy.GalleryKind, dir Direction, log *zap.Logger) bool {
	res := resolve.Resolve(p, resolve.Options{EditMode: true, ManualMove: true}, log)

	idx := -1
	for i := range res.Slots {
		if res.Slots[i].Kind == resolve.SlotGallery && res.Slots[i].Gallery == kind {
			idx = i
			break
		}
	}
	if idx < 0 {
		log.Warn("Gallery slot not found, move ignored", zap.Stringer("kind", kind))
		return false
	}
	adj := adjacentIndex(idx, dir, len(res.Slots))
	if adj < 0 {
		log.Debug("Boundary move, nothing to do", zap.Stringer("kind", kind), zap.Stringer("direction", dir))
		return false
	}

	target, other := res.Slots[idx], res.Slots[adj]
	if other.Kind == resolve.SlotGallery {
		p.Positions.Set(kind, other.Position)
		p.Positions.Set(other.Gallery, target.Position)
		return true
	}
	// moving past a narrative section: take its slot, the section shifts
	// into the vacated one on the next resolve
	p.Positions.Set(kind, other.Position)
	return true
}

func adjacentIndex(idx int, dir Direction, n int) int {
	adj := idx + 1
	if dir == MoveUp {
		adj = idx - 1
	}
	if adj < 0 || adj >= n {
		return -1
	}
	return adj
}

// swapSpans exchanges the text spans of two sections, leaving everything
// between them in place.
func swapSpans(p *casestudy.Project, a, b *casestudy.Section) {
	aStart, aEnd := a.Span()
	bStart, bEnd := b.Span()
	if aStart > bStart {
		aStart, aEnd, bStart, bEnd = bStart, bEnd, aStart, aEnd
	}
	if aEnd > bStart || bEnd > len(p.Document) {
		// stale spans, do not corrupt the document
		return
	}
	doc := p.Document
	p.Document = doc[:aStart] +
		ensureBlockEnd(doc[bStart:bEnd]) +
		doc[aEnd:bStart] +
		ensureBlockEnd(doc[aStart:aEnd]) +
		doc[bEnd:]
}

// ensureBlockEnd makes a relocated span end with a blank line so a span
// cut from the end of the document does not fuse with its new successor.
func ensureBlockEnd(span string) string {
	if strings.HasSuffix(span, "\n\n") {
		return span
	}
	return strings.TrimRight(span, "\n") + "\n\n"
}

// tidySeparators drops "---" lines left dangling at the document edges
// or doubled up after a section removal.
func tidySeparators(text string) string {
	lines := strings.Split(text, "\n")
	isSep := func(s string) bool { return strings.TrimSpace(s) == "---" }

	out := make([]string, 0, len(lines))
	sawContent := false
	for _, line := range lines {
		if isSep(line) {
			if !sawContent {
				continue
			}
			// look back past blank lines for another separator
			doubled := false
			for i := len(out) - 1; i >= 0; i-- {
				if strings.TrimSpace(out[i]) == "" {
					continue
				}
				doubled = isSep(out[i])
				break
			}
			if doubled {
				continue
			}
		} else if strings.TrimSpace(line) != "" {
			sawContent = true
		}
		out = append(out, line)
	}
	// trailing separator
	for i := len(out) - 1; i >= 0; i-- {
		if strings.TrimSpace(out[i]) == "" {
			continue
		}
		if isSep(out[i]) {
			out = append(out[:i], out[i+1:]...)
			continue
		}
		break
	}
	result := strings.Join(out, "\n")
	for strings.HasSuffix(result, "\n\n\n") {
		result = result[:len(result)-1]
	}
	return result
}
