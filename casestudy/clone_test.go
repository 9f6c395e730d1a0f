package casestudy

import (
	"testing"
)

func TestClone(t *testing.T) {
	pos := 2
	p := &Project{
		ID:       "id-1",
		Slug:     "study",
		Title:    "Study",
		Document: "# Overview\n\nIntro.\n",
		Images:   []ImageRecord{{ID: "img-1", URL: "a.png"}},
	}
	p.Positions.SolutionCards = &pos
	p.Positions.SetFlag(FlagHideImpact, true)
	p.Sidebars.SetEntry(SidebarSlot1, &SidebarEntry{Title: "At a glance", Content: "facts"})

	c := p.Clone()

	// mutating the clone must not leak into the original
	c.Positions.Set(GallerySolutionCards, 9)
	c.Positions.SetFlag(FlagHideImpact, false)
	c.Sidebars.Entry(SidebarSlot1).Content = "changed"
	c.Images[0].URL = "changed.png"
	c.Document = "# Replaced\n"

	if got, _ := p.Positions.Get(GallerySolutionCards); got != 2 {
		t.Errorf("original cards position = %d, want 2", got)
	}
	if !p.Positions.Flag(FlagHideImpact) {
		t.Error("original hide flag flipped by clone mutation")
	}
	if p.Sidebars.Entry(SidebarSlot1).Content != "facts" {
		t.Error("original sidebar content changed by clone mutation")
	}
	if p.Images[0].URL != "a.png" {
		t.Error("original image record changed by clone mutation")
	}
	if p.Document == c.Document {
		t.Error("documents should diverge after clone mutation")
	}
}

func TestClone_Nil(t *testing.T) {
	var p *Project
	if p.Clone() != nil {
		t.Error("Clone() of nil project should be nil")
	}
}

func TestClone_NilMembers(t *testing.T) {
	p := &Project{}
	c := p.Clone()

	if c.Positions.Flags != nil {
		t.Error("nil flags should stay nil")
	}
	if c.Sidebars.Sidebar1 != nil || c.Sidebars.Sidebar2 != nil {
		t.Error("nil sidebar entries should stay nil")
	}
	if _, ok := c.Positions.Get(GalleryProjectImages); ok {
		t.Error("undefined position should stay undefined")
	}
}
