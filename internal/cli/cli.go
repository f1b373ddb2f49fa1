// Package cli implements costctl, the command line front end of the
// analytics service
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"costlens/internal/app"
	"costlens/pkg/config"
	"costlens/pkg/logger"
	"costlens/pkg/service"
	"costlens/pkg/utils/dateutils"
)

// Output formats
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// CLIApp is the costctl command tree
type CLIApp struct {
	rootCmd *cobra.Command
	version string

	configPath string
	output     string
	logLevel   string

	app *app.App
}

// NewCLIApp builds the command tree
func NewCLIApp(version string) *CLIApp {
	c := &CLIApp{version: version}

	root := &cobra.Command{
		Use:               "costctl",
		Short:             "Multi-cloud billing analytics from the command line",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetVersionTemplate(`{{printf "costctl version: %s\n" .Version}}`)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "C", "", "Path to a YAML or JSON configuration file")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", OutputTable, "Output format: table or json")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(
		c.importCmd(),
		c.importsCmd(),
		c.deleteCmd(),
		c.bucketImportCmd(),
		c.summaryCmd(),
		c.rankingsCmd(),
		c.monthlyCmd(),
		c.forecastCmd(),
		c.anomaliesCmd(),
		c.recommendCmd(),
		c.insightsCmd(),
		c.chatCmd(),
		c.multiCloudCmd(),
	)
	c.rootCmd = root
	return c
}

// Execute runs the CLI
func (c *CLIApp) Execute() error {
	return c.ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI with ctx and releases the application
// resources afterwards, whether or not the command failed
func (c *CLIApp) ExecuteContext(ctx context.Context) error {
	err := c.rootCmd.ExecuteContext(ctx)
	if c.app != nil {
		err = errors.Join(err, c.app.Close())
		c.app = nil
	}
	return err
}

// Root exposes the root command for tests
func (c *CLIApp) Root() *cobra.Command {
	return c.rootCmd
}

func (c *CLIApp) setup(cmd *cobra.Command, _ []string) error {
	if c.output != OutputTable && c.output != OutputJSON {
		return fmt.Errorf("unknown output format %q", c.output)
	}
	if err := logger.InitLogger(true, "", c.logLevel); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *CLIApp) svc() *service.Service {
	return c.app.Service
}

// emit writes v as JSON, or calls table to render it
func (c *CLIApp) emit(cmd *cobra.Command, v interface{}, table func(w io.Writer) error) error {
	w := cmd.OutOrStdout()
	if c.output == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return table(w)
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func success(w io.Writer, format string, a ...interface{}) {
	fmt.Fprint(w, pterm.Success.Sprintfln(format, a...))
}

func warning(w io.Writer, format string, a ...interface{}) {
	fmt.Fprint(w, pterm.Warning.Sprintfln(format, a...))
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// queryFlags holds the filters shared by dataset commands
type queryFlags struct {
	start    string
	end      string
	services []string
}

func (q *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.start, "start", "", "Start date (inclusive)")
	cmd.Flags().StringVar(&q.end, "end", "", "End date (inclusive)")
	cmd.Flags().StringSliceVar(&q.services, "services", nil, "Services to keep (comma separated)")
}

func (q *queryFlags) query() (service.Query, error) {
	var out service.Query
	if s := strings.TrimSpace(q.start); s != "" {
		t, err := dateutils.ParseFlexibleDate(s)
		if err != nil {
			return out, fmt.Errorf("invalid --start %q: %w", s, err)
		}
		out.Start = &t
	}
	if s := strings.TrimSpace(q.end); s != "" {
		t, err := dateutils.ParseFlexibleDate(s)
		if err != nil {
			return out, fmt.Errorf("invalid --end %q: %w", s, err)
		}
		out.End = &t
	}
	out.Services = q.services
	return out, nil
}
