package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"csb/casestudy"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleProject() *casestudy.Project {
	p := &casestudy.Project{
		ID:       uuid.NewString(),
		Slug:     "redesign",
		Title:    "Checkout redesign",
		Document: "# Overview\n\nIntro.\n\n# The challenge\n\nProblem.\n",
		Images: []casestudy.ImageRecord{
			{ID: "i1", URL: "shot-1.png", Alt: "first", Scale: 0.5, Position: 0},
			{ID: "i2", URL: "shot-2.png", Caption: "flow", Position: 1},
		},
		Videos: []casestudy.VideoRecord{
			{ID: "v1", URL: "demo.mp4", Type: "video/mp4", Caption: "walkthrough"},
		},
		Diagrams: []casestudy.ImageRecord{
			{ID: "d1", URL: "flow.svg", Position: 0},
		},
		UpdatedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}
	p.Positions.Set(casestudy.GalleryProjectImages, 2)
	p.Positions.SetFlag(casestudy.FlagHideImpact, true)
	p.Sidebars.SetEntry(casestudy.SidebarSlot1, &casestudy.SidebarEntry{Title: "At a glance", Content: "- Role: Designer"})
	return p
}

func TestStore_RoundTrip(t *testing.T) {
	st := openTestStore(t)
	want := sampleProject()

	if err := st.Put(want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	for _, key := range []string{want.ID, want.Slug} {
		got, err := st.Get(key)
		if err != nil {
			t.Fatalf("Get(%q): %v", key, err)
		}
		if got.ID != want.ID || got.Slug != want.Slug || got.Title != want.Title {
			t.Errorf("Get(%q) identity = %s/%s/%s", key, got.ID, got.Slug, got.Title)
		}
		if got.Document != want.Document {
			t.Errorf("document = %q", got.Document)
		}
		if pos, ok := got.Positions.Get(casestudy.GalleryProjectImages); !ok || pos != 2 {
			t.Errorf("images position = %d (%v)", pos, ok)
		}
		if _, ok := got.Positions.Get(casestudy.GalleryVideos); ok {
			t.Error("undefined position came back defined")
		}
		if !got.Positions.Flag(casestudy.FlagHideImpact) {
			t.Error("section flag lost")
		}
		e := got.Sidebars.Entry(casestudy.SidebarSlot1)
		if e == nil || e.Content != "- Role: Designer" {
			t.Errorf("sidebar entry = %+v", e)
		}
		if len(got.Images) != 2 || got.Images[0].ID != "i1" || got.Images[1].Caption != "flow" {
			t.Errorf("images = %+v", got.Images)
		}
		if got.Images[0].Scale != 0.5 {
			t.Errorf("image scale = %v", got.Images[0].Scale)
		}
		if len(got.Videos) != 1 || got.Videos[0].Type != "video/mp4" {
			t.Errorf("videos = %+v", got.Videos)
		}
		if len(got.Diagrams) != 1 || got.Diagrams[0].URL != "flow.svg" {
			t.Errorf("diagrams = %+v", got.Diagrams)
		}
		if !got.UpdatedAt.Equal(want.UpdatedAt) {
			t.Errorf("updated at = %v, want %v", got.UpdatedAt, want.UpdatedAt)
		}
	}
}

func TestStore_PutReplaces(t *testing.T) {
	st := openTestStore(t)
	p := sampleProject()
	if err := st.Put(p); err != nil {
		t.Fatalf("Put: %v", err)
	}

	p.Title = "Checkout redesign v2"
	p.Images = p.Images[:1]
	p.Videos = nil
	p.Positions.Clear(casestudy.GalleryProjectImages)
	if err := st.Put(p); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, err := st.Get(p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Checkout redesign v2" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Images) != 1 || len(got.Videos) != 0 {
		t.Errorf("gallery records not replaced: %d images, %d videos", len(got.Images), len(got.Videos))
	}
	if _, ok := got.Positions.Get(casestudy.GalleryProjectImages); ok {
		t.Error("cleared position came back defined")
	}
}

func TestStore_PutDerivesMissingFields(t *testing.T) {
	st := openTestStore(t)
	p := &casestudy.Project{Title: "My Great Project", Document: "# Overview\n\nIntro.\n"}

	if err := st.Put(p); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := st.Get("my-great-project")
	if err != nil {
		t.Fatalf("Get by derived slug: %v", err)
	}
	if _, err := uuid.Parse(got.ID); err != nil {
		t.Errorf("generated id %q not a uuid: %v", got.ID, err)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("zero timestamp not stamped on put")
	}
}

func TestStore_PutDoesNotMutateCaller(t *testing.T) {
	st := openTestStore(t)
	p := &casestudy.Project{Title: "Snapshot Semantics", Document: "# Overview\n\nIntro.\n"}

	if err := st.Put(p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if p.ID != "" || p.Slug != "" {
		t.Errorf("caller's snapshot mutated: id=%q slug=%q", p.ID, p.Slug)
	}
}

func TestStore_LegacyInlineSidebarMigrated(t *testing.T) {
	st := openTestStore(t)
	p := sampleProject()
	p.Sidebars = casestudy.SidebarStore{}
	p.Document = "# Impact\n\nRevenue up.\n\n" + p.Document

	if err := st.Put(p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := st.Get(p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if strings.Contains(got.Document, "# Impact") {
		t.Errorf("legacy inline sidebar survived: %q", got.Document)
	}
	e := got.Sidebars.Entry(casestudy.SidebarSlot2)
	if e == nil || !strings.Contains(e.Content, "Revenue up.") {
		t.Errorf("migrated entry = %+v", e)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	st := openTestStore(t)
	_, err := st.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	st := openTestStore(t)
	for _, slug := range []string{"study-10", "study-2", "alpha"} {
		p := &casestudy.Project{ID: uuid.NewString(), Slug: slug, Title: slug, Document: "# Overview\n\nIntro.\n"}
		if err := st.Put(p); err != nil {
			t.Fatalf("Put(%s): %v", slug, err)
		}
	}

	got, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alpha", "study-2", "study-10"}
	if len(got) != len(want) {
		t.Fatalf("%d summaries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Slug != w {
			t.Errorf("summary %d = %q, want %q (natural order)", i, got[i].Slug, w)
		}
	}
}

func TestStore_ListEmpty(t *testing.T) {
	st := openTestStore(t)
	got, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("%d summaries in empty store", len(got))
	}
}

func TestStore_Delete(t *testing.T) {
	st := openTestStore(t)
	p := sampleProject()
	if err := st.Put(p); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := st.Delete(p.Slug); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Get(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := st.Delete(p.Slug); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestStore_CloseIdempotent(t *testing.T) {
	st, err := Open(":memory:", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
