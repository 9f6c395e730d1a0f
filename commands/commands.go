// Package commands implements the command line operations of the case
// study engine. Every action receives the shared environment through the
// command context and works against the configured project store.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"csb/casestudy"
	"csb/editor"
	"csb/resolve"
	"csb/state"
	"csb/store"
)

var errMissingProject = errors.New("missing case study id or slug")

func openStore(env *state.LocalEnv) (*store.Store, error) {
	return store.Open(env.Cfg.Storage.Path, env.Log)
}

// reportProjectState stores the document and its resolved slot render
// into the debug report, so before/after snapshots of an editing command
// end up in the archive.
func reportProjectState(env *state.LocalEnv, stage string, p *casestudy.Project) {
	if env.Rpt == nil {
		return
	}
	res := resolve.Resolve(p, resolve.Options{}, env.Log)
	env.Rpt.StoreData(fmt.Sprintf("projects/%s/%s/document.md", p.Slug, stage), []byte(p.Document))
	env.Rpt.StoreData(fmt.Sprintf("projects/%s/%s/render.txt", p.Slug, stage), []byte(res.Describe()))
}

// withSession opens the store, loads the requested project into an edit
// session and hands it to fn. Pending changes are flushed when fn
// returns without error.
func withSession(ctx context.Context, key string, fn func(env *state.LocalEnv, ses *editor.Session) error) (err error) {
	if strings.TrimSpace(key) == "" {
		return errMissingProject
	}

	env := state.EnvFromContext(ctx)
	st, err := openStore(env)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, st.Close())
	}()

	p, err := st.Get(key)
	if err != nil {
		return fmt.Errorf("unable to load case study %q: %w", key, err)
	}
	reportProjectState(env, "before", p)

	ses := editor.NewSession(p,
		editor.SaverFunc(func(_ context.Context, p *casestudy.Project) error {
			return st.Put(p)
		}),
		editor.Options{
			AutosaveDelay: env.Cfg.Editor.AutosaveDelay(),
			EditMode:      env.EditMode || env.Cfg.Editor.EditMode,
			Cleanup:       env.Cfg.Editor.Cleanup,
		},
		env.Log)
	defer func() {
		err = multierr.Append(err, ses.Close(ctx))
	}()

	if err = fn(env, ses); err != nil {
		return err
	}
	reportProjectState(env, "after", ses.Project())
	return nil
}
