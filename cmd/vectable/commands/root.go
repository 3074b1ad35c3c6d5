// Package commands implements the vectable command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vectable"
)

// EnvURI is read when --uri is not given.
const EnvURI = "VECTABLE_URI"

// globals holds the persistent flags shared by all commands.
type globals struct {
	uri      string
	apiKey   string
	region   string
	host     string
	envFile  string
	asJSON   bool
	asYAML   bool
	verbose  bool
	out      io.Writer
	errOut   io.Writer
	connects []vectable.Option
}

// connect opens the database named by --uri or $VECTABLE_URI.
func (g *globals) connect(ctx context.Context) (*vectable.Connection, error) {
	uri := g.uri
	if uri == "" {
		uri = os.Getenv(EnvURI)
	}
	if uri == "" {
		return nil, fmt.Errorf("database URI is required, use --uri or $%s", EnvURI)
	}

	opts := []vectable.Option{}
	if g.apiKey != "" {
		opts = append(opts, vectable.WithAPIKey(g.apiKey))
	}
	if g.region != "" {
		opts = append(opts, vectable.WithRegion(g.region))
	}
	if g.host != "" {
		opts = append(opts, vectable.WithHostOverride(g.host))
	}
	if g.verbose {
		opts = append(opts, vectable.WithLogger(vectable.NewLogger(
			slog.NewTextHandler(g.errOut, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	opts = append(opts, g.connects...)

	g.verbosef("connecting to %s", uri)
	return vectable.Connect(ctx, uri, opts...)
}

// withTable opens the database, then the named table, and calls fn.
func (g *globals) withTable(cmd *cobra.Command, name string, fn func(vectable.Table) error) error {
	ctx := cmd.Context()
	db, err := g.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tbl, err := db.OpenTable(ctx, name)
	if err != nil {
		return err
	}
	return fn(tbl)
}

func (g *globals) verbosef(format string, args ...any) {
	if g.verbose {
		fmt.Fprintf(g.errOut, "[verbose] "+format+"\n", args...)
	}
}

// NewRootCommand returns the vectable command tree writing to out and errOut.
// Extra options are passed to every Connect.
func NewRootCommand(out, errOut io.Writer, opts ...vectable.Option) *cobra.Command {
	g := &globals{out: out, errOut: errOut, connects: opts}

	root := &cobra.Command{
		Use:   "vectable",
		Short: "Manage vectable databases",
		Long: `Manage vectable databases.

The database is selected with --uri:
  ./data                      local directory
  memory://                   in-process (useful for testing)
  s3://bucket/prefix          Amazon S3
  minio://host:9000/bucket    MinIO
  badger:///path              embedded badger store
  db://name                   remote database (needs --api-key)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.envFile == "" {
				_ = godotenv.Load()
				return nil
			}
			if err := godotenv.Load(g.envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", g.envFile, err)
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&g.uri, "uri", "", "database URI (default $"+EnvURI+")")
	pf.StringVar(&g.apiKey, "api-key", "", "API key of a remote database (default $"+vectable.EnvAPIKey+")")
	pf.StringVar(&g.region, "region", "", "region of a remote database or S3 bucket")
	pf.StringVar(&g.host, "host", "", "host override of a remote database")
	pf.StringVar(&g.envFile, "env-file", "", "load environment variables from this file instead of .env")
	pf.BoolVar(&g.asJSON, "json", false, "print JSON")
	pf.BoolVar(&g.asYAML, "yaml", false, "print YAML")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log operations to stderr")
	root.MarkFlagsMutuallyExclusive("json", "yaml")

	root.AddCommand(
		newTablesCmd(g),
		newImportCmd(g),
		newMergeCmd(g),
		newCountCmd(g),
		newDeleteCmd(g),
		newUpdateCmd(g),
		newDropCmd(g),
		newSearchCmd(g),
		newIndexCmd(g),
		newCompactCmd(g),
		newCleanupCmd(g),
		newVersionsCmd(g),
		newRestoreCmd(g),
	)
	return root
}

// Execute runs the command line against os.Args.
func Execute() error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(context.Background())
}
