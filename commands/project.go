package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"csb/casestudy"
	"csb/resolve"
	"csb/state"
)

// RunNew creates an empty case study with the given title.
func RunNew(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	title := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if title == "" {
		return errors.New("missing case study title")
	}

	st, err := openStore(env)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, st.Close())
	}()

	p := &casestudy.Project{
		Title:    title,
		Document: "# Overview\n\nTell the story.\n",
	}
	p.EnsureIDs(env.Log)

	if err = st.Put(p); err != nil {
		return fmt.Errorf("unable to create case study: %w", err)
	}

	saved, err := st.Get(p.ID)
	if err != nil {
		return err
	}
	env.Log.Info("Created case study", zap.String("id", saved.ID), zap.String("slug", saved.Slug))
	return nil
}

// RunList prints a summary line per stored case study.
func RunList(ctx context.Context, _ *cli.Command) (err error) {
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
	if len(items) == 0 {
		env.Log.Info("No case studies stored yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tTITLE\tUPDATED")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", it.Slug, it.Title, it.UpdatedAt.Format(time.DateTime))
	}
	return w.Flush()
}

// RunShow prints the resolved slot layout of a case study.
func RunShow(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	key := cmd.Args().Get(0)
	if strings.TrimSpace(key) == "" {
		return errMissingProject
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

	res := resolve.Resolve(p, resolve.Options{EditMode: env.EditMode || env.Cfg.Editor.EditMode}, env.Log)
	fmt.Printf("%s (%s)\n\n%s", p.Title, p.Slug, res.Describe())
	return nil
}

// RunDelete removes a case study from the store.
func RunDelete(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	key := cmd.Args().Get(0)
	if strings.TrimSpace(key) == "" {
		return errMissingProject
	}

	st, err := openStore(env)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, st.Close())
	}()

	if err = st.Delete(key); err != nil {
		return fmt.Errorf("unable to delete case study %q: %w", key, err)
	}
	env.Log.Info("Deleted case study", zap.String("key", key))
	return nil
}
