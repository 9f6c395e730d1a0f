package splice

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"csb/casestudy"
	"csb/resolve"
)

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

func sectionTitles(doc string) []string {
	sections := casestudy.ParseDocument(doc)
	out := make([]string, len(sections))
	for i := range sections {
		out[i] = sections[i].Title
	}
	return out
}

// slotSignature renders the resolved slot walk as comparable strings.
func slotSignature(t *testing.T, p *casestudy.Project) []string {
	t.Helper()
	res := resolve.Resolve(p, resolve.Options{ManualMove: true}, testLogger(t))
	out := make([]string, len(res.Slots))
	for i, s := range res.Slots {
		out[i] = s.Kind.String() + " " + s.Title
	}
	return out
}

func requireSameSlots(t *testing.T, want, got []string) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("slot walk = %v, want %v", got, want)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("slot walk = %v, want %v", got, want)
		}
	}
}

func TestParseDirection(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"up", MoveUp, false},
		{"Down", MoveDown, false},
		{" UP ", MoveUp, false},
		{"sideways", 0, true},
		{"", 0, true},
	} {
		got, err := ParseDirection(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseDirection(%q) error = %v", tc.in, err)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseDirection(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAddNarrativeSection(t *testing.T) {
	log := testLogger(t)
	p := &casestudy.Project{}

	if !AddNarrativeSection(p, "Overview", log) {
		t.Fatal("first add on empty document must change the project")
	}
	if !strings.HasPrefix(p.Document, "# Overview\n") {
		t.Errorf("document = %q", p.Document)
	}
	if !strings.Contains(p.Document, "short summary") {
		t.Errorf("seed body missing: %q", p.Document)
	}

	if !AddNarrativeSection(p, "The challenge", log) {
		t.Fatal("second add must change the project")
	}
	if !strings.Contains(p.Document, "\n\n---\n\n# The challenge\n") {
		t.Errorf("separator missing before appended section: %q", p.Document)
	}

	if AddNarrativeSection(p, "the challenge", log) {
		t.Error("duplicate title must be a no-op, lookup is case-insensitive")
	}
	if AddNarrativeSection(p, "   ", log) {
		t.Error("blank title must be a no-op")
	}

	got := sectionTitles(p.Document)
	if len(got) != 2 || got[0] != "Overview" || got[1] != "The challenge" {
		t.Errorf("sections = %v", got)
	}
}

func TestAddNarrativeSection_UnknownTitleNoSeed(t *testing.T) {
	p := &casestudy.Project{}
	AddNarrativeSection(p, "Checkout flow", testLogger(t))
	if p.Document != "# Checkout flow\n" {
		t.Errorf("document = %q, want bare heading for unknown title", p.Document)
	}
}

func TestRemoveNarrativeSection(t *testing.T) {
	log := testLogger(t)

	t.Run("middle keeps single separator", func(t *testing.T) {
		p := &casestudy.Project{
			Document: "# A\n\nfirst\n\n---\n\n# B\n\nsecond\n\n---\n\n# C\n\nthird\n",
		}
		if !RemoveNarrativeSection(p, "B", log) {
			t.Fatal("remove reported no change")
		}
		got := sectionTitles(p.Document)
		if len(got) != 2 || got[0] != "A" || got[1] != "C" {
			t.Fatalf("sections = %v", got)
		}
		if strings.Count(p.Document, "---") != 1 {
			t.Errorf("separator count wrong: %q", p.Document)
		}
	})

	t.Run("last drops trailing separator", func(t *testing.T) {
		p := &casestudy.Project{
			Document: "# A\n\nbody a\n\n---\n\n# B\n\nbody b\n",
		}
		if !RemoveNarrativeSection(p, "B", log) {
			t.Fatal("remove reported no change")
		}
		if strings.Contains(p.Document, "---") {
			t.Errorf("dangling separator left behind: %q", p.Document)
		}
		if got := sectionTitles(p.Document); len(got) != 1 || got[0] != "A" {
			t.Errorf("sections = %v", got)
		}
	})

	t.Run("first drops leading separator", func(t *testing.T) {
		p := &casestudy.Project{
			Document: "# A\n\nbody a\n\n---\n\n# B\n\nbody b\n",
		}
		RemoveNarrativeSection(p, "A", log)
		if strings.Contains(p.Document, "---") {
			t.Errorf("dangling separator left behind: %q", p.Document)
		}
	})

	t.Run("missing title is a no-op", func(t *testing.T) {
		p := &casestudy.Project{Document: "# A\n\nbody\n"}
		before := p.Document
		if RemoveNarrativeSection(p, "Nope", log) {
			t.Error("missing section reported as removed")
		}
		if p.Document != before {
			t.Error("document changed on miss")
		}
	})
}

func TestAddGallery_NextPosition(t *testing.T) {
	log := testLogger(t)
	p := &casestudy.Project{
		Document: "# Overview\n\nIntro.\n\n# The challenge\n\nProblem.\n",
	}

	if !AddGallery(p, casestudy.GalleryProjectImages, log) {
		t.Fatal("add reported no change")
	}
	if pos, ok := p.Positions.Get(casestudy.GalleryProjectImages); !ok || pos != 3 {
		t.Errorf("position = %d (%v), want 3 past two sections", pos, ok)
	}

	if AddGallery(p, casestudy.GalleryProjectImages, log) {
		t.Error("adding an existing gallery must be a no-op")
	}

	if !AddGallery(p, casestudy.GalleryVideos, log) {
		t.Fatal("second kind add reported no change")
	}
	if pos, _ := p.Positions.Get(casestudy.GalleryVideos); pos != 4 {
		t.Errorf("videos position = %d, want 4 past the images slot", pos)
	}
}

func TestAddGallery_CardsSnapToAnchor(t *testing.T) {
	p := &casestudy.Project{
		Document: "# Overview\n\nIntro.\n\n# The solution\n\nApproach.\n",
	}

	AddGallery(p, casestudy.GallerySolutionCards, testLogger(t))

	if pos, ok := p.Positions.Get(casestudy.GallerySolutionCards); !ok || pos != 2 {
		t.Errorf("cards position = %d (%v), want 2 right after the anchor", pos, ok)
	}
}

func TestRemoveGallery(t *testing.T) {
	log := testLogger(t)

	t.Run("clears records and slot", func(t *testing.T) {
		p := &casestudy.Project{
			Document: "# Overview\n\nIntro.\n",
			Images:   []casestudy.ImageRecord{{ID: "i1", URL: "a.png"}},
		}
		p.Positions.Set(casestudy.GalleryProjectImages, 1)

		if !RemoveGallery(p, casestudy.GalleryProjectImages, log) {
			t.Fatal("remove reported no change")
		}
		if _, ok := p.Positions.Get(casestudy.GalleryProjectImages); ok {
			t.Error("position not cleared")
		}
		if p.Images != nil {
			t.Error("image records not cleared")
		}
	})

	t.Run("absent kind is a no-op", func(t *testing.T) {
		p := &casestudy.Project{Document: "# Overview\n\nIntro.\n"}
		if RemoveGallery(p, casestudy.GalleryVideos, log) {
			t.Error("absent gallery reported as removed")
		}
	})

	t.Run("cards strip headers", func(t *testing.T) {
		p := &casestudy.Project{
			Document: "# Overview\n\nIntro.\n\n# The solution\n\nApproach.\n\n" +
				"# New Card 1\n\nfirst.\n\n# New Card 2\n\nsecond.\n",
		}
		p.Positions.Set(casestudy.GallerySolutionCards, 2)

		if !RemoveGallery(p, casestudy.GallerySolutionCards, log) {
			t.Fatal("remove reported no change")
		}
		if strings.Contains(p.Document, "New Card") {
			t.Errorf("card headers survived removal: %q", p.Document)
		}
		got := sectionTitles(p.Document)
		if len(got) != 2 || got[0] != "Overview" || got[1] != "The solution" {
			t.Errorf("sections = %v", got)
		}
	})
}

func TestSidebarLifecycle(t *testing.T) {
	log := testLogger(t)
	p := &casestudy.Project{Document: "# Overview\n\nIntro.\n"}

	if !AddSidebar(p, casestudy.SidebarSlot1, "", log) {
		t.Fatal("add reported no change")
	}
	e := p.Sidebars.Entry(casestudy.SidebarSlot1)
	if e == nil || e.Title != "At a glance" || e.Hidden {
		t.Fatalf("seeded entry = %+v", e)
	}
	if AddSidebar(p, casestudy.SidebarSlot1, "", log) {
		t.Error("adding a visible sidebar must be a no-op")
	}

	e.Content = "- Role: Designer"
	if !HideSidebar(p, casestudy.SidebarSlot1, log) {
		t.Fatal("hide reported no change")
	}
	if !p.Sidebars.Entry(casestudy.SidebarSlot1).Hidden {
		t.Error("entry not hidden")
	}
	if HideSidebar(p, casestudy.SidebarSlot1, log) {
		t.Error("hiding twice must be a no-op")
	}

	// add restores the hidden entry with its content intact
	if !AddSidebar(p, casestudy.SidebarSlot1, "", log) {
		t.Fatal("restore reported no change")
	}
	e = p.Sidebars.Entry(casestudy.SidebarSlot1)
	if e.Hidden || e.Content != "- Role: Designer" {
		t.Errorf("restored entry = %+v", e)
	}
}

func TestHideSidebar_AbsentSetsFlagOnly(t *testing.T) {
	p := &casestudy.Project{Document: "# Overview\n\nIntro.\n"}

	if !HideSidebar(p, casestudy.SidebarSlot2, testLogger(t)) {
		t.Fatal("hide reported no change")
	}
	if p.Sidebars.Entry(casestudy.SidebarSlot2) != nil {
		t.Error("hide must not create an entry")
	}
	if !p.Positions.Flag(casestudy.FlagHideImpact) {
		t.Error("legacy hide flag not set")
	}
}

func TestHideSidebar_MigratesLegacyInlineFirst(t *testing.T) {
	p := &casestudy.Project{
		Document: "# Impact\n\nRevenue up.\n\n# Overview\n\nIntro.\n",
	}

	HideSidebar(p, casestudy.SidebarSlot2, testLogger(t))

	e := p.Sidebars.Entry(casestudy.SidebarSlot2)
	if e == nil || !e.Hidden {
		t.Fatalf("legacy content not migrated before hiding: %+v", e)
	}
	if !strings.Contains(e.Content, "Revenue up.") {
		t.Errorf("migrated content = %q", e.Content)
	}
	if strings.Contains(p.Document, "Revenue up.") {
		t.Errorf("inline block not stripped: %q", p.Document)
	}
}

func TestSetSidebarContent(t *testing.T) {
	log := testLogger(t)
	p := &casestudy.Project{Document: "# Overview\n\nIntro.\n"}

	SetSidebarContent(p, casestudy.SidebarSlot1, "Tech stack", "Go, SQLite", log)
	e := p.Sidebars.Entry(casestudy.SidebarSlot1)
	if e == nil || e.Title != "Tech stack" || e.Content != "Go, SQLite" {
		t.Fatalf("entry = %+v", e)
	}

	e.Hidden = true
	SetSidebarContent(p, casestudy.SidebarSlot1, "Tech stack", "Go only", log)
	e = p.Sidebars.Entry(casestudy.SidebarSlot1)
	if e.Content != "Go only" || !e.Hidden {
		t.Errorf("update must keep hidden state: %+v", e)
	}
}

func TestMoveSection_SwapWithSection(t *testing.T) {
	log := testLogger(t)
	p := &casestudy.Project{
		Document: "# Overview\n\nIntro.\n\n# The challenge\n\nProblem.\n",
	}

	if !MoveSection(p, "The challenge", MoveUp, log) {
		t.Fatal("move reported no change")
	}
	got := sectionTitles(p.Document)
	if len(got) != 2 || got[0] != "The challenge" || got[1] != "Overview" {
		t.Fatalf("sections after up = %v", got)
	}
	if !strings.Contains(p.Document, "Problem.") || !strings.Contains(p.Document, "Intro.") {
		t.Errorf("bodies lost in swap: %q", p.Document)
	}

	// moving back down restores the original order
	if !MoveSection(p, "The challenge", MoveDown, log) {
		t.Fatal("reverse move reported no change")
	}
	got = sectionTitles(p.Document)
	if got[0] != "Overview" || got[1] != "The challenge" {
		t.Errorf("sections after down = %v", got)
	}
}

func TestMoveSection_PastGallery(t *testing.T) {
	p := &casestudy.Project{
		Document: "# Overview\n\nIntro.\n\n# The challenge\n\nProblem.\n",
		Images:   []casestudy.ImageRecord{{ID: "i1", URL: "a.png"}},
	}
	p.Positions.Set(casestudy.GalleryProjectImages, 1)
	log := testLogger(t)
	before := slotSignature(t, p)

	if !MoveSection(p, "The challenge", MoveUp, log) {
		t.Fatal("move reported no change")
	}
	// the gallery is displaced into the vacated slot, the text is untouched
	if pos, _ := p.Positions.Get(casestudy.GalleryProjectImages); pos != 2 {
		t.Errorf("images position = %d, want 2", pos)
	}
	if !strings.HasPrefix(p.Document, "# Overview\n") {
		t.Errorf("document changed by a position-only move: %q", p.Document)
	}

	res := resolve.Resolve(p, resolve.Options{ManualMove: true}, log)
	want := []string{"Overview", "The challenge", "Project images"}
	for i, w := range want {
		if res.Slots[i].Title != w {
			t.Errorf("slot %d = %q, want %q", i, res.Slots[i].Title, w)
		}
	}

	// the reverse move restores the original slot walk
	if !MoveSection(p, "The challenge", MoveDown, log) {
		t.Fatal("reverse move reported no change")
	}
	requireSameSlots(t, before, slotSignature(t, p))
}

func TestMoveSection_Boundary(t *testing.T) {
	p := &casestudy.Project{
		Document: "# Overview\n\nIntro.\n\n# The challenge\n\nProblem.\n",
	}
	before := p.Document
	log := testLogger(t)

	if MoveSection(p, "Overview", MoveUp, log) {
		t.Error("moving the first slot up must be a no-op")
	}
	if MoveSection(p, "The challenge", MoveDown, log) {
		t.Error("moving the last slot down must be a no-op")
	}
	if MoveSection(p, "Nope", MoveUp, log) {
		t.Error("unknown section must be a no-op")
	}
	if p.Document != before {
		t.Error("document changed by a no-op move")
	}
}

func TestMoveGallery_PastSection(t *testing.T) {
	p := &casestudy.Project{
		Document: "# Overview\n\nIntro.\n\n# The challenge\n\nProblem.\n",
		Images:   []casestudy.ImageRecord{{ID: "i1", URL: "a.png"}},
	}
	p.Positions.Set(casestudy.GalleryProjectImages, 2)
	log := testLogger(t)
	before := slotSignature(t, p)

	if !MoveGallery(p, casestudy.GalleryProjectImages, MoveUp, log) {
		t.Fatal("move reported no change")
	}
	if pos, _ := p.Positions.Get(casestudy.GalleryProjectImages); pos != 1 {
		t.Errorf("images position = %d, want 1", pos)
	}

	res := resolve.Resolve(p, resolve.Options{ManualMove: true}, log)
	want := []string{"Overview", "Project images", "The challenge"}
	for i, w := range want {
		if res.Slots[i].Title != w {
			t.Errorf("slot %d = %q, want %q", i, res.Slots[i].Title, w)
		}
	}

	// the reverse move restores the original slot walk
	if !MoveGallery(p, casestudy.GalleryProjectImages, MoveDown, log) {
		t.Fatal("reverse move reported no change")
	}
	requireSameSlots(t, before, slotSignature(t, p))
}

func TestMoveGallery_SwapWithGallery(t *testing.T) {
	p := &casestudy.Project{
		Document: "# Overview\n\nIntro.\n",
		Images:   []casestudy.ImageRecord{{ID: "i1", URL: "a.png"}},
		Videos:   []casestudy.VideoRecord{{ID: "v1", URL: "v.mp4"}},
	}
	p.Positions.Set(casestudy.GalleryProjectImages, 1)
	p.Positions.Set(casestudy.GalleryVideos, 2)
	log := testLogger(t)
	before := slotSignature(t, p)

	if !MoveGallery(p, casestudy.GalleryVideos, MoveUp, log) {
		t.Fatal("move reported no change")
	}
	if pos, _ := p.Positions.Get(casestudy.GalleryVideos); pos != 1 {
		t.Errorf("videos position = %d, want 1", pos)
	}
	if pos, _ := p.Positions.Get(casestudy.GalleryProjectImages); pos != 2 {
		t.Errorf("images position = %d, want 2", pos)
	}

	// the reverse move restores the original slot walk
	if !MoveGallery(p, casestudy.GalleryVideos, MoveDown, log) {
		t.Fatal("reverse move reported no change")
	}
	if pos, _ := p.Positions.Get(casestudy.GalleryVideos); pos != 2 {
		t.Errorf("videos position after round trip = %d, want 2", pos)
	}
	if pos, _ := p.Positions.Get(casestudy.GalleryProjectImages); pos != 1 {
		t.Errorf("images position after round trip = %d, want 1", pos)
	}
	requireSameSlots(t, before, slotSignature(t, p))
}

func TestMoveGallery_Boundary(t *testing.T) {
	p := &casestudy.Project{
		Document: "# Overview\n\nIntro.\n",
		Images:   []casestudy.ImageRecord{{ID: "i1", URL: "a.png"}},
	}
	p.Positions.Set(casestudy.GalleryProjectImages, 1)
	log := testLogger(t)

	if MoveGallery(p, casestudy.GalleryProjectImages, MoveDown, log) {
		t.Error("moving the last slot down must be a no-op")
	}
	if MoveGallery(p, casestudy.GalleryVideos, MoveUp, log) {
		t.Error("absent gallery must be a no-op")
	}
	if pos, _ := p.Positions.Get(casestudy.GalleryProjectImages); pos != 1 {
		t.Errorf("position changed by a no-op move: %d", pos)
	}
}
