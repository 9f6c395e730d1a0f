// Package store persists project records in a SQLite database. The
// reconciliation core treats persistence as an external collaborator:
// the store receives full snapshots and returns fully normalized
// projects, running the load-time passes (ID repair, legacy sidebar
// migration) so no caller ever sees a pre-migration shape.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"csb/casestudy"
)

// ErrNotFound is returned when no project matches the requested id or slug.
var ErrNotFound = errors.New("project not found")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	document TEXT NOT NULL,
	images_position INTEGER,
	videos_position INTEGER,
	diagrams_position INTEGER,
	cards_position INTEGER,
	section_flags TEXT NOT NULL DEFAULT '{}',
	sidebars TEXT NOT NULL DEFAULT '{}',
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS gallery_images (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	id TEXT NOT NULL,
	kind TEXT NOT NULL,
	url TEXT NOT NULL,
	alt TEXT NOT NULL DEFAULT '',
	caption TEXT NOT NULL DEFAULT '',
	scale REAL NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (project_id, kind, id)
);

CREATE TABLE IF NOT EXISTS gallery_videos (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	id TEXT NOT NULL,
	url TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	caption TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (project_id, id)
);
`

// Store wraps a single SQLite connection. Not safe for concurrent use,
// which matches the single editing session ownership model.
type Store struct {
	conn *sqlite.Conn
	log  *zap.Logger
}

// Open creates or opens the database at path. The special path
// ":memory:" opens a private in-memory database, used by tests.
func Open(path string, log *zap.Logger) (*Store, error) {
	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL}
	if path == ":memory:" {
		flags = []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenMemory}
	}
	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("unable to open project database %q: %w", path, err)
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = ON;", nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to enable foreign keys: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}
	return &Store{conn: conn, log: log}, nil
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Put writes the full project snapshot, replacing any previous state.
// A missing slug is derived from the title.
func (s *Store) Put(p *casestudy.Project) (err error) {
	defer sqlitex.Save(s.conn)(&err)

	p = p.Clone()
	p.EnsureIDs(s.log)
	p.StripLegacySidebarBlocks(s.log)
	if p.Slug == "" {
		p.Slug = slug.Make(p.Title)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	flags, err := json.Marshal(p.Positions.Flags)
	if err != nil {
		return fmt.Errorf("unable to marshal section flags: %w", err)
	}
	sidebars, err := json.Marshal(&p.Sidebars)
	if err != nil {
		return fmt.Errorf("unable to marshal sidebars: %w", err)
	}

	err = sqlitex.Execute(s.conn, `
		INSERT INTO projects (id, slug, title, document,
			images_position, videos_position, diagrams_position, cards_position,
			section_flags, sidebars, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			document = excluded.document,
			images_position = excluded.images_position,
			videos_position = excluded.videos_position,
			diagrams_position = excluded.diagrams_position,
			cards_position = excluded.cards_position,
			section_flags = excluded.section_flags,
			sidebars = excluded.sidebars,
			updated_at = excluded.updated_at;`,
		&sqlitex.ExecOptions{Args: []any{
			p.ID, p.Slug, p.Title, p.Document,
			positionArg(&p.Positions, casestudy.GalleryProjectImages),
			positionArg(&p.Positions, casestudy.GalleryVideos),
			positionArg(&p.Positions, casestudy.GalleryFlowDiagrams),
			positionArg(&p.Positions, casestudy.GallerySolutionCards),
			string(flags), string(sidebars), p.UpdatedAt.Format(time.RFC3339Nano),
		}})
	if err != nil {
		return fmt.Errorf("unable to store project %q: %w", p.ID, err)
	}

	if err = s.replaceGalleries(p); err != nil {
		return err
	}
	return nil
}

func positionArg(pos *casestudy.Positions, kind casestudy.GalleryKind) any {
	if v, ok := pos.Get(kind); ok {
		return int64(v)
	}
	return nil
}

func (s *Store) replaceGalleries(p *casestudy.Project) error {
	for _, q := range []string{
		"DELETE FROM gallery_images WHERE project_id = ?;",
		"DELETE FROM gallery_videos WHERE project_id = ?;",
	} {
		if err := sqlitex.Execute(s.conn, q, &sqlitex.ExecOptions{Args: []any{p.ID}}); err != nil {
			return fmt.Errorf("unable to clear galleries for %q: %w", p.ID, err)
		}
	}

	insertImage := func(kind string, rec *casestudy.ImageRecord) error {
		return sqlitex.Execute(s.conn, `
			INSERT INTO gallery_images (project_id, id, kind, url, alt, caption, scale, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
			&sqlitex.ExecOptions{Args: []any{
				p.ID, rec.ID, kind, rec.URL, rec.Alt, rec.Caption, rec.Scale, int64(rec.Position),
			}})
	}
	for i := range p.Images {
		if err := insertImage("images", &p.Images[i]); err != nil {
			return fmt.Errorf("unable to store image record: %w", err)
		}
	}
	for i := range p.Diagrams {
		if err := insertImage("diagrams", &p.Diagrams[i]); err != nil {
			return fmt.Errorf("unable to store diagram record: %w", err)
		}
	}
	for i := range p.Videos {
		rec := &p.Videos[i]
		if err := sqlitex.Execute(s.conn, `
			INSERT INTO gallery_videos (project_id, id, url, type, caption)
			VALUES (?, ?, ?, ?, ?);`,
			&sqlitex.ExecOptions{Args: []any{p.ID, rec.ID, rec.URL, rec.Type, rec.Caption}}); err != nil {
			return fmt.Errorf("unable to store video record: %w", err)
		}
	}
	return nil
}

// Get loads one project by id or slug and runs the load-time
// normalization passes. A project changed by normalization is written
// back so migrations stick.
func (s *Store) Get(key string) (*casestudy.Project, error) {
	var (
		p     *casestudy.Project
		stamp string
	)
	err := sqlitex.Execute(s.conn, `
		SELECT id, slug, title, document,
			images_position, videos_position, diagrams_position, cards_position,
			section_flags, sidebars, updated_at
		FROM projects WHERE id = ? OR slug = ? LIMIT 1;`,
		&sqlitex.ExecOptions{
			Args: []any{key, key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				p = &casestudy.Project{
					ID:       stmt.ColumnText(0),
					Slug:     stmt.ColumnText(1),
					Title:    stmt.ColumnText(2),
					Document: stmt.ColumnText(3),
				}
				for col, kind := range map[int]casestudy.GalleryKind{
					4: casestudy.GalleryProjectImages,
					5: casestudy.GalleryVideos,
					6: casestudy.GalleryFlowDiagrams,
					7: casestudy.GallerySolutionCards,
				} {
					if stmt.ColumnType(col) != sqlite.TypeNull {
						p.Positions.Set(kind, int(stmt.ColumnInt64(col)))
					}
				}
				if err := json.Unmarshal([]byte(stmt.ColumnText(8)), &p.Positions.Flags); err != nil {
					s.log.Warn("Corrupted section flags, ignoring", zap.String("id", p.ID), zap.Error(err))
					p.Positions.Flags = nil
				}
				if err := json.Unmarshal([]byte(stmt.ColumnText(9)), &p.Sidebars); err != nil {
					s.log.Warn("Corrupted sidebar store, ignoring", zap.String("id", p.ID), zap.Error(err))
					p.Sidebars = casestudy.SidebarStore{}
				}
				stamp = stmt.ColumnText(10)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to load project %q: %w", key, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if t, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
		p.UpdatedAt = t
	}

	if err := s.loadGalleries(p); err != nil {
		return nil, err
	}

	changed := p.EnsureIDs(s.log)
	changed = p.StripLegacySidebarBlocks(s.log) || changed
	if changed {
		s.log.Debug("Project normalized on load, writing back", zap.String("id", p.ID))
		if err := s.Put(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *Store) loadGalleries(p *casestudy.Project) error {
	err := sqlitex.Execute(s.conn, `
		SELECT id, kind, url, alt, caption, scale, position
		FROM gallery_images WHERE project_id = ? ORDER BY position, id;`,
		&sqlitex.ExecOptions{
			Args: []any{p.ID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rec := casestudy.ImageRecord{
					ID:       stmt.ColumnText(0),
					URL:      stmt.ColumnText(2),
					Alt:      stmt.ColumnText(3),
					Caption:  stmt.ColumnText(4),
					Scale:    stmt.ColumnFloat(5),
					Position: int(stmt.ColumnInt64(6)),
				}
				if stmt.ColumnText(1) == "diagrams" {
					p.Diagrams = append(p.Diagrams, rec)
				} else {
					p.Images = append(p.Images, rec)
				}
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("unable to load image records for %q: %w", p.ID, err)
	}

	err = sqlitex.Execute(s.conn, `
		SELECT id, url, type, caption FROM gallery_videos WHERE project_id = ? ORDER BY id;`,
		&sqlitex.ExecOptions{
			Args: []any{p.ID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				p.Videos = append(p.Videos, casestudy.VideoRecord{
					ID:      stmt.ColumnText(0),
					URL:     stmt.ColumnText(1),
					Type:    stmt.ColumnText(2),
					Caption: stmt.ColumnText(3),
				})
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("unable to load video records for %q: %w", p.ID, err)
	}
	return nil
}

// Summary is one row of the project listing.
type Summary struct {
	ID        string
	Slug      string
	Title     string
	UpdatedAt time.Time
}

// List returns all projects in natural slug order, so "study-10" sorts
// after "study-2".
func (s *Store) List() ([]Summary, error) {
	var out []Summary
	err := sqlitex.Execute(s.conn, `SELECT id, slug, title, updated_at FROM projects;`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				sum := Summary{
					ID:    stmt.ColumnText(0),
					Slug:  stmt.ColumnText(1),
					Title: stmt.ColumnText(2),
				}
				if t, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(3)); err == nil {
					sum.UpdatedAt = t
				}
				out = append(out, sum)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to list projects: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return natural.Less(out[i].Slug, out[j].Slug)
	})
	return out, nil
}

// Delete removes the project and its gallery records.
func (s *Store) Delete(key string) (err error) {
	defer sqlitex.Save(s.conn)(&err)

	p, err := s.Get(key)
	if err != nil {
		return err
	}
	err = sqlitex.Execute(s.conn, "DELETE FROM projects WHERE id = ?;",
		&sqlitex.ExecOptions{Args: []any{p.ID}})
	if err != nil {
		return fmt.Errorf("unable to delete project %q: %w", key, err)
	}
	return nil
}
