// Package bundle reads and writes case study bundles: zip archives
// carrying the narrative document, project metadata and gallery
// manifests. The bundle is the interchange format between installations,
// the SQLite store stays the working representation. Field naming inside
// bundles is snake_case, translation to the in-memory representation
// happens here and nowhere else.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"csb/archive"
	"csb/casestudy"
	"csb/config"
	"csb/resolve"
)

const (
	metaEntry     = "casestudy.yaml"
	documentEntry = "document.md"
	manifestEntry = "galleries/manifest.yaml"
	assetPrefix   = "assets/"
	renderEntry   = "render.txt"
)

// DefaultNameTemplate is used when the configuration does not override
// bundle naming.
const DefaultNameTemplate = "{{.Slug}}-{{.Date}}"

type sidebarMeta struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Hidden  bool   `yaml:"hidden"`
}

type positionsMeta struct {
	Images   *int `yaml:"images_position,omitempty"`
	Videos   *int `yaml:"videos_position,omitempty"`
	Diagrams *int `yaml:"diagrams_position,omitempty"`
	Cards    *int `yaml:"cards_position,omitempty"`
}

type bundleMeta struct {
	ID           string          `yaml:"id"`
	Slug         string          `yaml:"slug"`
	Title        string          `yaml:"title"`
	Positions    positionsMeta   `yaml:"positions"`
	SectionFlags map[string]bool `yaml:"section_flags,omitempty"`
	Sidebars     struct {
		AtGlance *sidebarMeta `yaml:"at_glance,omitempty"`
		Impact   *sidebarMeta `yaml:"impact,omitempty"`
	} `yaml:"sidebars"`
}

type imageMeta struct {
	ID       string  `yaml:"id"`
	URL      string  `yaml:"url"`
	Alt      string  `yaml:"alt,omitempty"`
	Caption  string  `yaml:"caption,omitempty"`
	Scale    float64 `yaml:"scale,omitempty"`
	Position int     `yaml:"position"`
}

type videoMeta struct {
	ID      string `yaml:"id"`
	URL     string `yaml:"url"`
	Type    string `yaml:"type,omitempty"`
	Caption string `yaml:"caption,omitempty"`
}

type galleryManifest struct {
	Images   []imageMeta `yaml:"images,omitempty"`
	Diagrams []imageMeta `yaml:"diagrams,omitempty"`
	Videos   []videoMeta `yaml:"videos,omitempty"`
}

// nameValues are the variables available to the bundle name template.
type nameValues struct {
	Title string
	Slug  string
	ID    string
	Date  string
}

// ExpandName expands the bundle name template for the project and cleans
// the result into a usable file name.
func ExpandName(p *casestudy.Project, nameTemplate string) (string, error) {
	if strings.TrimSpace(nameTemplate) == "" {
		nameTemplate = DefaultNameTemplate
	}
	tmpl, err := template.New("bundle_name").Funcs(sprig.FuncMap()).Parse(nameTemplate)
	if err != nil {
		return "", fmt.Errorf("unable to parse bundle name template: %w", err)
	}

	s := p.Slug
	if s == "" {
		s = slug.Make(p.Title)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, &nameValues{
		Title: p.Title,
		Slug:  s,
		ID:    p.ID,
		Date:  time.Now().Format("2006-01-02"),
	}); err != nil {
		return "", fmt.Errorf("unable to expand bundle name template: %w", err)
	}

	name := config.CleanFileName(strings.TrimSpace(buf.String()))
	return name + ".zip", nil
}

// Export writes the project as a bundle into dir and returns the bundle
// path. The resolution, when given, is included as a plain-text render
// of the slot list for quick inspection.
func Export(p *casestudy.Project, res *resolve.Resolution, dir, nameTemplate string, overwrite bool, log *zap.Logger) (out string, err error) {
	name, err := ExpandName(p, nameTemplate)
	if err != nil {
		return "", err
	}
	out = filepath.Join(dir, name)

	if !overwrite {
		if _, err := os.Stat(out); err == nil {
			return "", fmt.Errorf("destination %q already exists", out)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create destination directory: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("unable to create bundle: %w", err)
	}
	zw := zip.NewWriter(f)
	defer func() {
		err = multierr.Append(err, zw.Close())
		err = multierr.Append(err, f.Close())
		if err != nil {
			os.Remove(out)
			out = ""
		}
	}()

	meta := metaFromProject(p)
	if err = writeYAMLEntry(zw, metaEntry, &meta); err != nil {
		return
	}
	if err = writeEntry(zw, documentEntry, []byte(p.Document)); err != nil {
		return
	}
	manifest := manifestFromProject(p)
	if err = writeYAMLEntry(zw, manifestEntry, &manifest); err != nil {
		return
	}
	if res != nil {
		if err = writeEntry(zw, renderEntry, []byte(res.Describe())); err != nil {
			return
		}
	}

	log.Info("Exported bundle", zap.String("id", p.ID), zap.String("destination", out))
	return
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create bundle entry %q: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("unable to write bundle entry %q: %w", name, err)
	}
	return nil
}

func writeYAMLEntry(zw *zip.Writer, name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to marshal bundle entry %q: %w", name, err)
	}
	return writeEntry(zw, name, data)
}

func metaFromProject(p *casestudy.Project) bundleMeta {
	meta := bundleMeta{
		ID:           p.ID,
		Slug:         p.Slug,
		Title:        p.Title,
		SectionFlags: p.Positions.Flags,
	}
	meta.Positions.Images = p.Positions.ProjectImages
	meta.Positions.Videos = p.Positions.Videos
	meta.Positions.Diagrams = p.Positions.FlowDiagrams
	meta.Positions.Cards = p.Positions.SolutionCards
	meta.Sidebars.AtGlance = sidebarToMeta(p.Sidebars.Sidebar1)
	meta.Sidebars.Impact = sidebarToMeta(p.Sidebars.Sidebar2)
	return meta
}

func sidebarToMeta(e *casestudy.SidebarEntry) *sidebarMeta {
	if e == nil {
		return nil
	}
	return &sidebarMeta{Title: e.Title, Content: e.Content, Hidden: e.Hidden}
}

func sidebarFromMeta(m *sidebarMeta) *casestudy.SidebarEntry {
	if m == nil {
		return nil
	}
	return &casestudy.SidebarEntry{Title: m.Title, Content: m.Content, Hidden: m.Hidden}
}

func manifestFromProject(p *casestudy.Project) galleryManifest {
	var m galleryManifest
	for _, rec := range p.Images {
		m.Images = append(m.Images, imageMeta(rec))
	}
	for _, rec := range p.Diagrams {
		m.Diagrams = append(m.Diagrams, imageMeta(rec))
	}
	for _, rec := range p.Videos {
		m.Videos = append(m.Videos, videoMeta(rec))
	}
	return m
}

// Import reads a bundle back into a project. Missing optional entries
// are tolerated: a bundle with only a document still imports. Asset
// files under assets/ without a manifest row are classified by content
// sniffing and appended as gallery records in natural name order.
func Import(path string, log *zap.Logger) (*casestudy.Project, error) {
	p := &casestudy.Project{}

	data, err := archive.ReadEntry(path, metaEntry)
	if err != nil {
		return nil, err
	}
	if data != nil {
		var meta bundleMeta
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("unable to parse bundle metadata: %w", err)
		}
		p.ID, p.Slug, p.Title = meta.ID, meta.Slug, meta.Title
		p.Positions.ProjectImages = meta.Positions.Images
		p.Positions.Videos = meta.Positions.Videos
		p.Positions.FlowDiagrams = meta.Positions.Diagrams
		p.Positions.SolutionCards = meta.Positions.Cards
		p.Positions.Flags = meta.SectionFlags
		p.Sidebars.Sidebar1 = sidebarFromMeta(meta.Sidebars.AtGlance)
		p.Sidebars.Sidebar2 = sidebarFromMeta(meta.Sidebars.Impact)
	} else {
		log.Warn("Bundle has no metadata entry, importing bare document", zap.String("bundle", path))
	}

	if data, err = archive.ReadEntry(path, documentEntry); err != nil {
		return nil, err
	}
	p.Document = string(data)
	if p.Title == "" {
		p.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if data, err = archive.ReadEntry(path, manifestEntry); err != nil {
		return nil, err
	}
	if data != nil {
		var m galleryManifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unable to parse gallery manifest: %w", err)
		}
		for _, rec := range m.Images {
			p.Images = append(p.Images, casestudy.ImageRecord(rec))
		}
		for _, rec := range m.Diagrams {
			p.Diagrams = append(p.Diagrams, casestudy.ImageRecord(rec))
		}
		for _, rec := range m.Videos {
			p.Videos = append(p.Videos, casestudy.VideoRecord(rec))
		}
	}

	if err := importAssets(path, p, log); err != nil {
		return nil, err
	}

	p.EnsureIDs(log)
	p.StripLegacySidebarBlocks(log)
	return p, nil
}

// importAssets sniffs loose files under assets/ and appends gallery
// records for those not already present in the manifest.
func importAssets(path string, p *casestudy.Project, log *zap.Logger) error {
	type asset struct {
		name string
		head []byte
	}
	var assets []asset

	err := archive.Walk(path, assetPrefix, func(_ string, f *zip.File) error {
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("unable to open asset %q: %w", f.Name, err)
		}
		defer rc.Close()
		// filetype needs at most the first 262 bytes
		head := make([]byte, 262)
		n, err := io.ReadFull(rc, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return fmt.Errorf("unable to read asset %q: %w", f.Name, err)
		}
		assets = append(assets, asset{name: f.Name, head: head[:n]})
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(assets, func(i, j int) bool {
		return natural.Less(assets[i].name, assets[j].name)
	})

	known := make(map[string]bool)
	for _, rec := range p.Images {
		known[rec.URL] = true
	}
	for _, rec := range p.Diagrams {
		known[rec.URL] = true
	}
	for _, rec := range p.Videos {
		known[rec.URL] = true
	}

	for _, a := range assets {
		if known[a.name] {
			continue
		}
		switch {
		case filetype.IsImage(a.head):
			p.Images = append(p.Images, casestudy.ImageRecord{
				URL:      a.name,
				Position: len(p.Images),
			})
		case filetype.IsVideo(a.head):
			p.Videos = append(p.Videos, casestudy.VideoRecord{URL: a.name})
		default:
			log.Debug("Skipping unclassified asset", zap.String("name", a.name))
		}
	}
	return nil
}
