package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"csb/bundle"
	"csb/resolve"
	"csb/state"
)

// RunExport writes a case study out as a bundle archive.
func RunExport(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	key := cmd.Args().Get(0)
	if strings.TrimSpace(key) == "" {
		return errMissingProject
	}

	dir := cmd.Args().Get(1)
	if dir == "" {
		dir = env.Cfg.Export.Destination
	}

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

	res := resolve.Resolve(p, resolve.Options{}, env.Log)
	overwrite := env.Overwrite || env.Cfg.Export.Overwrite

	if _, err = bundle.Export(p, res, dir, env.Cfg.Export.NameTemplate, overwrite, env.Log); err != nil {
		return fmt.Errorf("unable to export case study %q: %w", key, err)
	}
	return nil
}

// RunImport loads one or more bundle archives into the store.
func RunImport(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return errors.New("missing bundle path")
	}

	st, err := openStore(env)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, st.Close())
	}()

	for _, path := range cmd.Args().Slice() {
		p, er := bundle.Import(path, env.Log)
		if er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to import %q: %w", path, er))
			continue
		}
		if !env.Overwrite && p.ID != "" {
			if _, er := st.Get(p.ID); er == nil {
				err = multierr.Append(err, fmt.Errorf("case study %q already exists, use overwrite to replace", p.ID))
				continue
			}
		}
		if er := st.Put(p); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to store %q: %w", path, er))
			continue
		}
		env.Log.Info("Imported bundle", zap.String("bundle", path), zap.String("id", p.ID), zap.String("title", p.Title))
	}
	return err
}
