// Package editor owns the single editing session for one case study. It
// applies user intents through the splicer, re-resolves the slot list
// synchronously after every change and hands full cloned snapshots to
// the save collaborator behind a trailing-edge debounce. Last-writer-wins
// is the only ordering discipline: one project, one session, one tab.
package editor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"csb/casestudy"
	"csb/resolve"
	"csb/splice"
)

// Saver persists full project snapshots. The session has no opinion on
// transport or batching, it hands over the complete current state.
type Saver interface {
	Save(ctx context.Context, p *casestudy.Project) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(ctx context.Context, p *casestudy.Project) error

func (f SaverFunc) Save(ctx context.Context, p *casestudy.Project) error {
	return f(ctx, p)
}

// Options control session behavior. AutosaveDelay throttles persistence,
// EditMode keeps empty gallery slots visible, Cleanup enables the
// best-effort corrupt section removal on load.
type Options struct {
	AutosaveDelay time.Duration
	EditMode      bool
	Cleanup       bool
}

// Session is the editing surface for one project. All methods execute
// synchronously, only persistence is deferred.
type Session struct {
	proj     *casestudy.Project
	saver    Saver
	deb      *debouncer
	log      *zap.Logger
	editMode bool
}

// NewSession prepares a session over a cloned copy of the project. Load
// normalization (ID repair, legacy sidebar migration and, when enabled,
// corruption cleanup) runs once here; if it changed anything a save is
// scheduled immediately so the migrated shape reaches the store.
func NewSession(p *casestudy.Project, saver Saver, opts Options, log *zap.Logger) *Session {
	s := &Session{
		proj:     p.Clone(),
		saver:    saver,
		deb:      newDebouncer(opts.AutosaveDelay),
		log:      log,
		editMode: opts.EditMode,
	}

	changed := s.proj.EnsureIDs(log)
	changed = s.proj.StripLegacySidebarBlocks(log) || changed
	if opts.Cleanup {
		changed = s.proj.CleanupCorruptSections(log) || changed
	}
	if changed {
		s.scheduleSave()
	}
	return s
}

// Project returns a snapshot of the current state.
func (s *Session) Project() *casestudy.Project {
	return s.proj.Clone()
}

// Resolution recomputes the slot list for the current state. A
// self-healed solution cards position schedules persistence.
func (s *Session) Resolution() *resolve.Resolution {
	res := resolve.Resolve(s.proj, resolve.Options{EditMode: s.editMode}, s.log)
	if res.Corrected {
		s.scheduleSave()
	}
	return res
}

func (s *Session) AddSection(title string) bool {
	return s.afterChange(splice.AddNarrativeSection(s.proj, title, s.log), false)
}

func (s *Session) RemoveSection(title string) bool {
	return s.afterChange(splice.RemoveNarrativeSection(s.proj, title, s.log), false)
}

func (s *Session) AddGallery(kind casestudy.GalleryKind) bool {
	return s.afterChange(splice.AddGallery(s.proj, kind, s.log), false)
}

func (s *Session) RemoveGallery(kind casestudy.GalleryKind) bool {
	return s.afterChange(splice.RemoveGallery(s.proj, kind, s.log), false)
}

func (s *Session) AddSidebar(slot casestudy.SidebarSlot, title string) bool {
	return s.afterChange(splice.AddSidebar(s.proj, slot, title, s.log), false)
}

func (s *Session) SetSidebar(slot casestudy.SidebarSlot, title, content string) bool {
	return s.afterChange(splice.SetSidebarContent(s.proj, slot, title, content, s.log), false)
}

func (s *Session) HideSidebar(slot casestudy.SidebarSlot) bool {
	return s.afterChange(splice.HideSidebar(s.proj, slot, s.log), false)
}

func (s *Session) MoveSection(title string, dir splice.Direction) bool {
	return s.afterChange(splice.MoveSection(s.proj, title, dir, s.log), true)
}

func (s *Session) MoveGallery(kind casestudy.GalleryKind, dir splice.Direction) bool {
	return s.afterChange(splice.MoveGallery(s.proj, kind, dir, s.log), true)
}

// SetDocument replaces the narrative text wholesale, the text-editing
// path. The strip pass keeps pasted reserved-title sections out.
func (s *Session) SetDocument(text string) bool {
	s.proj.Document = text
	return s.afterChange(true, false)
}

// afterChange runs the invariant-preserving passes and schedules
// persistence. manualMove suppresses anchor self-healing for the resolve
// that immediately follows a user-initiated move.
func (s *Session) afterChange(changed, manualMove bool) bool {
	if !changed {
		return false
	}
	s.proj.StripLegacySidebarBlocks(s.log)
	resolve.Resolve(s.proj, resolve.Options{EditMode: s.editMode, ManualMove: manualMove}, s.log)
	s.proj.UpdatedAt = time.Now().UTC()
	s.scheduleSave()
	return true
}

func (s *Session) scheduleSave() {
	if s.saver == nil {
		return
	}
	snapshot := s.proj.Clone()
	s.deb.schedule(func() {
		// fire and forget: persistence failures are logged, the editing
		// state itself is not lost
		if err := s.saver.Save(context.Background(), snapshot); err != nil {
			s.log.Error("Unable to persist project snapshot",
				zap.String("id", snapshot.ID), zap.Error(err))
		}
	})
}

// Flush forces any pending save out immediately. Call before exit.
func (s *Session) Flush(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	s.deb.cancel()
	return s.saver.Save(ctx, s.proj.Clone())
}

// Close flushes and releases the session.
func (s *Session) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.deb.cancel()
	return err
}
