package commands

import (
	"context"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"csb/resolve"
	"csb/state"
)

// RunMigrate walks every stored case study and rewrites it through the
// current normalization passes. Loading alone migrates legacy sidebar
// blocks and repairs missing ids, resolving on top of that applies
// anchor corrections. Useful after upgrading over data written by older
// versions.
func RunMigrate(ctx context.Context, _ *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	st, err := openStore(env)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, st.Close())
	}()

	items, err := st.List()
	if err != nil {
		return err
	}

	var corrected int
	for _, it := range items {
		p, er := st.Get(it.ID)
		if er != nil {
			err = multierr.Append(err, er)
			continue
		}
		res := resolve.Resolve(p, resolve.Options{}, env.Log)
		if res.Corrected {
			if er := st.Put(p); er != nil {
				err = multierr.Append(err, er)
				continue
			}
			corrected++
		}
	}

	env.Log.Info("Migration pass complete", zap.Int("projects", len(items)), zap.Int("corrected", corrected))
	return err
}
