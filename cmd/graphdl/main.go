// Command graphdl checks schemas, generates Go types and materializes
// entities into a store.
//
//	graphdl check --schema schema/
//	graphdl gen --out model/entities.go
//	graphdl create Post --data '{"title":"Hello"}'
//	graphdl seed Category --file categories.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/syssam/graphdl"
	"github.com/syssam/graphdl/compiler"
	"github.com/syssam/graphdl/compiler/load"
	"github.com/syssam/graphdl/contrib/idgen"
	"github.com/syssam/graphdl/dialect"
	"github.com/syssam/graphdl/dialect/memory"
	dsql "github.com/syssam/graphdl/dialect/sql"
	"github.com/syssam/graphdl/graph"
	"github.com/syssam/graphdl/schema"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// Exit statuses by error class.
const (
	exitFailure    = 1
	exitInvalid    = 2
	exitNotFound   = 3
	exitStoreError = 4
)

func exitCode(err error) int {
	var serr *schema.Error
	switch {
	case graphdl.IsNotFound(err):
		return exitNotFound
	case graphdl.IsValidationError(err), errors.As(err, &serr):
		return exitInvalid
	case graphdl.IsQueryError(err), graphdl.IsMutationError(err):
		return exitStoreError
	}
	return exitFailure
}

// app carries the state shared by all commands.
type app struct {
	cfgPath string
	flags   Config
	cfg     Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "graphdl <command>",
		Short:         "Compile graph schemas and materialize entities",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "config file (.yaml or .toml)")
	pf.StringVarP(&a.flags.Schema, "schema", "s", "", "schema file or directory")
	pf.StringVar(&a.flags.Driver, "driver", "", "storage driver: memory, sqlite, postgres or mysql")
	pf.StringVar(&a.flags.DSN, "dsn", "", "data source name of SQL drivers")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&a.flags.Debug, "debug", false, "log every SQL statement")

	root.AddCommand(
		a.checkCmd(),
		a.genCmd(),
		a.createCmd(),
		a.getCmd(),
		a.seedCmd(),
		a.watchCmd(),
	)
	return root
}

// setup loads the configuration and applies the flags set on the command line.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.cfgPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("schema") {
		cfg.Schema = a.flags.Schema
	}
	if flags.Changed("driver") {
		cfg.Driver = a.flags.Driver
	}
	if flags.Changed("dsn") {
		cfg.DSN = a.flags.DSN
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.LogLevel
	}
	if flags.Changed("debug") {
		cfg.Debug = a.flags.Debug
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// schema loads and compiles the configured schema.
func (a *app) schema() (*compiler.Schema, error) {
	raw, err := load.Load(a.cfg.Schema)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(raw, compiler.WithLogger(a.logger))
}

// provider opens the configured store allocating ids with newID. The
// returned closer releases it.
func (a *app) provider(ctx context.Context, newID idgen.Func) (graphdl.Provider, io.Closer, error) {
	switch a.cfg.Driver {
	case "memory":
		return memory.New(memory.WithIDFunc(newID)), closerFunc(func() error { return nil }), nil
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", a.cfg.Driver)
	}
	drv, err := dsql.Open(a.cfg.Driver, a.cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", a.cfg.Driver, err)
	}
	stats := dsql.NewStatsDriver(drv, dsql.WithStatsLogger(a.logger))
	var wrapped dialect.Driver = stats
	if a.cfg.Debug {
		wrapped = dsql.NewDebugDriver(stats, a.logger)
	}
	p := dsql.NewProvider(wrapped, dsql.WithIDFunc(newID), dsql.WithLogger(a.logger))
	if err := p.Migrate(ctx); err != nil {
		drv.Close()
		return nil, nil, err
	}
	return p, closerFunc(func() error {
		a.logger.Debug("sql stats", "stats", stats.QueryStats().Stats().String())
		return drv.Close()
	}), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// engine compiles the schema and opens an engine over the configured store.
func (a *app) engine(ctx context.Context) (*graph.Engine, io.Closer, error) {
	s, err := a.schema()
	if err != nil {
		return nil, nil, err
	}
	newID, err := idgen.ByName(a.cfg.IDStrategy)
	if err != nil {
		return nil, nil, err
	}
	p, closer, err := a.provider(ctx, newID)
	if err != nil {
		return nil, nil, err
	}
	e, err := graph.NewEngine(s, p,
		graph.WithIDFunc(newID),
		graph.WithMaxDepth(a.cfg.MaxDepth),
		graph.WithFuzzyThreshold(a.cfg.FuzzyThreshold),
		graph.WithArrayCount(a.cfg.ArrayCount),
		graph.WithLogger(a.logger),
	)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return e, closer, nil
}
