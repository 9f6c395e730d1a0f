// Package casestudy defines the case study content model: the narrative
// document with its heading convention, gallery positions, the sidebar
// store and gallery content records, together with the section catalog
// and normalization passes run on load and before save.
package casestudy

import (
	"fmt"
	"strings"
	"time"
)

// GalleryKind identifies one of the special non-narrative content blocks
// a case study may contain. At most one instance of each kind exists per
// case study.
type GalleryKind int

const (
	GalleryProjectImages GalleryKind = iota
	GalleryVideos
	GalleryFlowDiagrams
	GallerySolutionCards
	galleryKindCount
)

var galleryKindNames = [...]string{"images", "videos", "diagrams", "cards"}

var galleryKindTitles = [...]string{"Project images", "Videos", "Flow diagrams", "Solution cards"}

func (k GalleryKind) String() string {
	if k < 0 || int(k) >= len(galleryKindNames) {
		return fmt.Sprintf("GalleryKind(%d)", int(k))
	}
	return galleryKindNames[k]
}

// DisplayTitle returns the title used for the gallery slot when rendered.
func (k GalleryKind) DisplayTitle() string {
	if k < 0 || int(k) >= len(galleryKindTitles) {
		return k.String()
	}
	return galleryKindTitles[k]
}

// AllGalleryKinds lists kinds in catalog precedence order.
func AllGalleryKinds() []GalleryKind {
	kinds := make([]GalleryKind, 0, galleryKindCount)
	for k := GalleryKind(0); k < galleryKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func ParseGalleryKind(s string) (GalleryKind, error) {
	for i, name := range galleryKindNames {
		if strings.EqualFold(s, name) {
			return GalleryKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown gallery kind %q (supported kinds: %s)", s, strings.Join(GalleryKindNames(), ", "))
}

func GalleryKindNames() []string {
	return append([]string{}, galleryKindNames[:]...)
}

// SidebarSlot identifies one of the two reserved aside panels.
type SidebarSlot int

const (
	SidebarSlot1 SidebarSlot = iota + 1
	SidebarSlot2
)

func (s SidebarSlot) String() string {
	switch s {
	case SidebarSlot1:
		return "sidebar1"
	case SidebarSlot2:
		return "sidebar2"
	default:
		return fmt.Sprintf("SidebarSlot(%d)", int(s))
	}
}

func ParseSidebarSlot(s string) (SidebarSlot, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "sidebar1", "sidebar 1", "atglance", "at a glance":
		return SidebarSlot1, nil
	case "2", "sidebar2", "sidebar 2", "impact":
		return SidebarSlot2, nil
	}
	return 0, fmt.Errorf("unknown sidebar slot %q", s)
}

// Positions holds the slot index of each gallery kind. A nil entry means
// the gallery is absent and contributes no slot. Flags carries open-ended
// boolean markers persisted alongside the positions (legacy hide flags of
// the pre-store sidebar representation among them).
type Positions struct {
	ProjectImages *int            `json:"projectImagesPosition,omitempty"`
	Videos        *int            `json:"videosPosition,omitempty"`
	FlowDiagrams  *int            `json:"flowDiagramsPosition,omitempty"`
	SolutionCards *int            `json:"solutionCardsPosition,omitempty"`
	Flags         map[string]bool `json:"sectionPositions,omitempty"`
}

func (p *Positions) field(kind GalleryKind) **int {
	switch kind {
	case GalleryProjectImages:
		return &p.ProjectImages
	case GalleryVideos:
		return &p.Videos
	case GalleryFlowDiagrams:
		return &p.FlowDiagrams
	case GallerySolutionCards:
		return &p.SolutionCards
	default:
		panic("unsupported gallery kind")
	}
}

// Get returns the stored position for the kind and whether it is defined.
func (p *Positions) Get(kind GalleryKind) (int, bool) {
	if v := *p.field(kind); v != nil {
		return *v, true
	}
	return 0, false
}

func (p *Positions) Set(kind GalleryKind, pos int) {
	v := pos
	*p.field(kind) = &v
}

func (p *Positions) Clear(kind GalleryKind) {
	*p.field(kind) = nil
}

// Defined returns all defined positions keyed by kind.
func (p *Positions) Defined() map[GalleryKind]int {
	out := make(map[GalleryKind]int)
	for _, k := range AllGalleryKinds() {
		if pos, ok := p.Get(k); ok {
			out[k] = pos
		}
	}
	return out
}

func (p *Positions) Flag(name string) bool {
	return p.Flags[name]
}

func (p *Positions) SetFlag(name string, value bool) {
	if p.Flags == nil {
		p.Flags = make(map[string]bool)
	}
	p.Flags[name] = value
}

// Legacy hide flag names kept for documents persisted before the sidebar
// store became authoritative.
const (
	FlagHideAtAGlance = "hideAtAGlance"
	FlagHideImpact    = "hideImpact"
)

// HideFlagFor maps a sidebar slot to its legacy hide flag name.
func HideFlagFor(slot SidebarSlot) string {
	if slot == SidebarSlot1 {
		return FlagHideAtAGlance
	}
	return FlagHideImpact
}

// SidebarEntry is the authoritative content of one aside panel. Hidden
// suppresses display but preserves content so the panel can be added back.
type SidebarEntry struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Hidden  bool   `json:"hidden"`
}

// SidebarStore is the single source of truth for the two aside panels
// once a document has been migrated off inline reserved-title sections.
// JSON field names match the persisted representation.
type SidebarStore struct {
	Sidebar1 *SidebarEntry `json:"atGlance,omitempty"`
	Sidebar2 *SidebarEntry `json:"impact,omitempty"`
}

// Entry returns the stored entry for the slot, nil when absent.
func (s *SidebarStore) Entry(slot SidebarSlot) *SidebarEntry {
	if slot == SidebarSlot1 {
		return s.Sidebar1
	}
	return s.Sidebar2
}

func (s *SidebarStore) SetEntry(slot SidebarSlot, e *SidebarEntry) {
	if slot == SidebarSlot1 {
		s.Sidebar1 = e
		return
	}
	s.Sidebar2 = e
}

// Empty reports whether no entry exists for either slot, hidden or not.
func (s *SidebarStore) Empty() bool {
	return s.Sidebar1 == nil && s.Sidebar2 == nil
}

// ImageRecord describes one image owned by a gallery. The reconciliation
// core never inspects URL or caption, only record counts and the gallery
// position integer.
type ImageRecord struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	Alt      string  `json:"alt,omitempty"`
	Caption  string  `json:"caption,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
	Position int     `json:"position"`
}

// VideoRecord describes one video owned by the video gallery.
type VideoRecord struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Type    string `json:"type,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Project is the full editable state of one case study. Document is the
// narrative text using the heading convention, everything else rides
// alongside it in the persisted project record.
type Project struct {
	ID        string
	Slug      string
	Title     string
	Document  string
	Positions Positions
	Sidebars  SidebarStore
	Images    []ImageRecord
	Videos    []VideoRecord
	Diagrams  []ImageRecord
	UpdatedAt time.Time
}

// GalleryLen returns the number of content records owned by the gallery.
// Solution cards have no records of their own, their content is derived
// from the document by the resolver, so the kind reports zero here and
// callers needing the derived count must consult a resolution.
func (p *Project) GalleryLen(kind GalleryKind) int {
	switch kind {
	case GalleryProjectImages:
		return len(p.Images)
	case GalleryVideos:
		return len(p.Videos)
	case GalleryFlowDiagrams:
		return len(p.Diagrams)
	default:
		return 0
	}
}
