package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"csb/casestudy"
	"csb/editor"
	"csb/splice"
	"csb/state"
)

func sectionTitleArg(cmd *cli.Command) (string, error) {
	title := strings.TrimSpace(strings.Join(cmd.Args().Slice()[1:], " "))
	if title == "" {
		return "", errors.New("missing section title")
	}
	return title, nil
}

func galleryKindArg(cmd *cli.Command) (casestudy.GalleryKind, error) {
	name := cmd.Args().Get(1)
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("missing gallery kind")
	}
	return casestudy.ParseGalleryKind(name)
}

// RunAddSection appends a narrative section to the document.
func RunAddSection(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd.Args().Get(0), func(env *state.LocalEnv, ses *editor.Session) error {
		title, err := sectionTitleArg(cmd)
		if err != nil {
			return err
		}
		if !ses.AddSection(title) {
			env.Log.Warn("Section already present, nothing to do", zap.String("title", title))
		}
		return nil
	})
}

// RunRemoveSection removes a narrative section from the document.
func RunRemoveSection(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd.Args().Get(0), func(env *state.LocalEnv, ses *editor.Session) error {
		title, err := sectionTitleArg(cmd)
		if err != nil {
			return err
		}
		if !ses.RemoveSection(title) {
			env.Log.Warn("Section not found, nothing to do", zap.String("title", title))
		}
		return nil
	})
}

// RunAddGallery turns a gallery on and assigns it the next free slot.
func RunAddGallery(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd.Args().Get(0), func(env *state.LocalEnv, ses *editor.Session) error {
		kind, err := galleryKindArg(cmd)
		if err != nil {
			return err
		}
		if !ses.AddGallery(kind) {
			env.Log.Warn("Gallery already placed, nothing to do", zap.Stringer("kind", kind))
		}
		return nil
	})
}

// RunRemoveGallery takes a gallery out of the layout and drops its content.
func RunRemoveGallery(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd.Args().Get(0), func(env *state.LocalEnv, ses *editor.Session) error {
		kind, err := galleryKindArg(cmd)
		if err != nil {
			return err
		}
		if !ses.RemoveGallery(kind) {
			env.Log.Warn("Gallery not placed, nothing to do", zap.Stringer("kind", kind))
		}
		return nil
	})
}

// RunMove moves a section or gallery one slot up or down. The target is
// tried as a gallery kind first, anything else is treated as a section
// title.
func RunMove(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd.Args().Get(0), func(env *state.LocalEnv, ses *editor.Session) error {
		target := strings.TrimSpace(strings.Join(cmd.Args().Slice()[1:], " "))
		if target == "" {
			return errors.New("missing move target")
		}
		dir, err := splice.ParseDirection(cmd.String("dir"))
		if err != nil {
			return err
		}

		var moved bool
		if kind, kerr := casestudy.ParseGalleryKind(target); kerr == nil {
			moved = ses.MoveGallery(kind, dir)
		} else {
			moved = ses.MoveSection(target, dir)
		}
		if !moved {
			env.Log.Warn("Nothing moved, target absent or already at the edge", zap.String("target", target))
		}
		return nil
	})
}

// RunSidebar shows, fills or hides one of the two reserved sidebars.
func RunSidebar(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd.Args().Get(0), func(env *state.LocalEnv, ses *editor.Session) error {
		slotName := cmd.Args().Get(1)
		if strings.TrimSpace(slotName) == "" {
			return errors.New("missing sidebar slot")
		}
		slot, err := casestudy.ParseSidebarSlot(slotName)
		if err != nil {
			return err
		}

		switch {
		case cmd.Bool("hide"):
			ses.HideSidebar(slot)
		case cmd.IsSet("content"):
			ses.SetSidebar(slot, cmd.String("title"), cmd.String("content"))
		default:
			ses.AddSidebar(slot, cmd.String("title"))
		}
		return nil
	})
}

// RunSetDocument replaces the narrative document from a file, "-" reads
// standard input.
func RunSetDocument(ctx context.Context, cmd *cli.Command) error {
	return withSession(ctx, cmd.Args().Get(0), func(env *state.LocalEnv, ses *editor.Session) error {
		fname := cmd.Args().Get(1)
		if fname == "" {
			return errors.New("missing document file")
		}

		var (
			data []byte
			err  error
		)
		if fname == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(fname)
		}
		if err != nil {
			return fmt.Errorf("unable to read document: %w", err)
		}

		ses.SetDocument(string(data))
		return nil
	})
}
