package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"csb/casestudy"
	"csb/commands"
	"csb/config"
	"csb/misc"
	"csb/state"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.EditMode = cmd.Bool("edit-mode")
	env.Overwrite = cmd.Bool("overwrite")

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Ignore urfave/cli default error handling - cli.Exit() looks
// non-transparent and unnecessary, subcommands return regular errors.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func main() {

	// allow graceful shutdown on interrupt so pending autosaves get flushed
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	kinds := strings.Join(casestudy.GalleryKindNames(), ", ")

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "content engine for case study portfolios",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
			&cli.BoolFlag{Name: "edit-mode", Aliases: []string{"e"}, Usage: "resolve layouts in edit mode, empty galleries keep their slots"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exists, overwrite files"},
		},
		Commands: []*cli.Command{
			{
				Name:         "new",
				Usage:        "Creates an empty case study",
				OnUsageError: usageErrorHandler,
				Action:       commands.RunNew,
				ArgsUsage:    "TITLE",
			},
			{
				Name:         "list",
				Usage:        "Lists stored case studies",
				OnUsageError: usageErrorHandler,
				Action:       commands.RunList,
			},
			{
				Name:         "show",
				Usage:        "Prints the resolved section and gallery layout",
				OnUsageError: usageErrorHandler,
				Action:       commands.RunShow,
				ArgsUsage:    "PROJECT",
			},
			{
				Name:         "delete",
				Usage:        "Removes a case study from the store",
				OnUsageError: usageErrorHandler,
				Action:       commands.RunDelete,
				ArgsUsage:    "PROJECT",
			},
			{
				Name:            "edit",
				Usage:           "Edits case study content and layout",
				HideHelpCommand: true,
				OnUsageError:    usageErrorHandler,
				Commands: []*cli.Command{
					{
						Name:         "add-section",
						Usage:        "Appends a narrative section",
						OnUsageError: usageErrorHandler,
						Action:       commands.RunAddSection,
						ArgsUsage:    "PROJECT TITLE",
					},
					{
						Name:         "remove-section",
						Usage:        "Removes a narrative section",
						OnUsageError: usageErrorHandler,
						Action:       commands.RunRemoveSection,
						ArgsUsage:    "PROJECT TITLE",
					},
					{
						Name:         "add-gallery",
						Usage:        "Places a gallery (supported kinds: " + kinds + ")",
						OnUsageError: usageErrorHandler,
						Action:       commands.RunAddGallery,
						ArgsUsage:    "PROJECT KIND",
					},
					{
						Name:         "remove-gallery",
						Usage:        "Removes a gallery and its content",
						OnUsageError: usageErrorHandler,
						Action:       commands.RunRemoveGallery,
						ArgsUsage:    "PROJECT KIND",
					},
					{
						Name:         "move",
						Usage:        "Moves a section or gallery one slot up or down",
						OnUsageError: usageErrorHandler,
						Action:       commands.RunMove,
						ArgsUsage:    "PROJECT TARGET",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "dir", Value: "down", Usage: "move `DIRECTION`, up or down"},
						},
					},
					{
						Name:         "sidebar",
						Usage:        "Shows, fills or hides a reserved sidebar",
						OnUsageError: usageErrorHandler,
						Action:       commands.RunSidebar,
						ArgsUsage:    "PROJECT SLOT",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "hide", Usage: "hide the sidebar keeping its stored content"},
							&cli.StringFlag{Name: "title", Usage: "sidebar `TITLE`, defaults per slot"},
							&cli.StringFlag{Name: "content", Usage: "sidebar `CONTENT` markdown"},
						},
					},
					{
						Name:         "set-document",
						Usage:        "Replaces the narrative document from a file, - reads STDIN",
						OnUsageError: usageErrorHandler,
						Action:       commands.RunSetDocument,
						ArgsUsage:    "PROJECT FILE",
					},
				},
			},
			{
				Name:         "migrate",
				Usage:        "Rewrites all stored case studies through current normalization",
				OnUsageError: usageErrorHandler,
				Action:       commands.RunMigrate,
			},
			{
				Name:         "export",
				Usage:        "Exports a case study as a bundle archive",
				OnUsageError: usageErrorHandler,
				Action:       commands.RunExport,
				ArgsUsage:    "PROJECT [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
    directory to write the bundle to, if absent - export destination from configuration
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "import",
				Usage:        "Imports bundle archive(s) into the store",
				OnUsageError: usageErrorHandler,
				Action:       commands.RunImport,
				ArgsUsage:    "BUNDLE...",
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deferred functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()

	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
