package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"costlens/internal/models"
	"costlens/pkg/analysis"
	"costlens/pkg/normalize"
	"costlens/pkg/service"
)

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid import id %q", raw)
	}
	return uint(id), nil
}

func (c *CLIApp) importCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import one or more billing CSV exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hint := normalize.ParseProvider(provider)
			var results []*service.ImportResult
			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := c.svc().Import(cmd.Context(), filepath.Base(path), content, hint, models.SourceCLI)
				if service.IsDuplicate(err) {
					warning(cmd.ErrOrStderr(), "%s: %v", path, err)
					continue
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				results = append(results, res)
			}
			return c.emit(cmd, results, func(w io.Writer) error {
				for _, r := range results {
					success(w, "Imported %s as #%d (%s, %s, %d rows)",
						r.Import.Name, r.Import.ID, r.Import.Provider, r.Import.Shape, r.Rows)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Provider hint: AWS, OCI, AZURE or GENERIC")
	return cmd
}

func (c *CLIApp) importsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "imports",
		Aliases: []string{"ls"},
		Short:   "List imported files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			imports, err := c.svc().ListImports(cmd.Context())
			if err != nil {
				return err
			}
			return c.emit(cmd, imports, func(w io.Writer) error {
				if len(imports) == 0 {
					warning(w, "No imports yet")
					return nil
				}
				rows := lo.Map(imports, func(imp models.FileImport, _ int) []string {
					return []string{
						strconv.FormatUint(uint64(imp.ID), 10), imp.Name, imp.Provider, imp.Shape,
						strconv.Itoa(imp.RowCount), imp.Source, imp.ImportedAt.Format(time.DateTime),
					}
				})
				return renderTable(w, []string{"ID", "Name", "Provider", "Shape", "Rows", "Source", "Imported"}, rows)
			})
		},
	}
}

func (c *CLIApp) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an import and its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.svc().DeleteImport(cmd.Context(), id); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Deleted import #%d", id)
			return nil
		},
	}
}

func (c *CLIApp) bucketImportCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "bucket-import",
		Short: "Import every CSV export of the configured object store bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if provider == "" && c.app.Config.ObjectStore != nil {
				provider = c.app.Config.ObjectStore.Provider
			}
			res, err := c.svc().ImportBucket(cmd.Context(), normalize.ParseProvider(provider))
			if err != nil {
				return err
			}
			return c.emit(cmd, res, func(w io.Writer) error {
				success(w, "%s: %d imported, %d skipped, %d failed in %s",
					res.Bucket, len(res.Imported), len(res.Skipped), len(res.Failed), res.Duration.Round(time.Millisecond))
				for key, msg := range res.Failed {
					warning(w, "%s: %s", key, msg)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Provider hint applied to every object")
	return cmd
}

// datasetCmd builds a command operating on one import
func (c *CLIApp) datasetCmd(use, short string, run func(cmd *cobra.Command, id uint, q service.Query) error) *cobra.Command {
	qf := &queryFlags{}
	cmd := &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			q, err := qf.query()
			if err != nil {
				return err
			}
			return run(cmd, id, q)
		},
	}
	qf.bind(cmd)
	return cmd
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func (c *CLIApp) summaryCmd() *cobra.Command {
	cmd := c.datasetCmd("summary", "Show the KPI summary of an import", func(cmd *cobra.Command, id uint, q service.Query) error {
		s, err := c.svc().Summary(cmd.Context(), id, q)
		if err != nil {
			return err
		}
		return c.emit(cmd, s, func(w io.Writer) error {
			return renderTable(w, []string{"Metric", "Value"}, [][]string{
				{"Total cost", money(s.TotalCost)},
				{"Average cost", money(s.AverageCost)},
				{"Max cost", money(s.MaxCost)},
				{"Min cost", money(s.MinCost)},
				{"Peak month", optional(s.PeakMonth)},
				{"Lowest month", optional(s.LowestMonth)},
				{"Peak service", optional(s.PeakService)},
				{"Lowest service", optional(s.LowestService)},
			})
		})
	})
	return cmd
}

func (c *CLIApp) rankingsCmd() *cobra.Command {
	var top int
	cmd := c.datasetCmd("rankings", "Rank services by total cost", func(cmd *cobra.Command, id uint, q service.Query) error {
		totals, err := c.svc().Rankings(cmd.Context(), id, q, top)
		if err != nil {
			return err
		}
		return c.emit(cmd, totals, func(w io.Writer) error {
			rows := lo.Map(totals, func(t analysis.ServiceTotal, i int) []string {
				return []string{strconv.Itoa(i + 1), t.Service, money(t.TotalCost)}
			})
			return renderTable(w, []string{"#", "Service", "Total"}, rows)
		})
	})
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of services")
	return cmd
}

func (c *CLIApp) monthlyCmd() *cobra.Command {
	cmd := c.datasetCmd("monthly", "Show monthly totals", func(cmd *cobra.Command, id uint, q service.Query) error {
		months, err := c.svc().Monthly(cmd.Context(), id, q)
		if err != nil {
			return err
		}
		return c.emit(cmd, months, func(w io.Writer) error {
			rows := lo.Map(months, func(m analysis.MonthlyAggregate, _ int) []string {
				return []string{m.Month, money(m.Total)}
			})
			return renderTable(w, []string{"Month", "Total"}, rows)
		})
	})
	return cmd
}

func (c *CLIApp) forecastCmd() *cobra.Command {
	var (
		horizon int
		svcName string
	)
	cmd := c.datasetCmd("forecast", "Project monthly costs", func(cmd *cobra.Command, id uint, q service.Query) error {
		res, err := c.svc().Forecast(cmd.Context(), id, q, horizon, svcName)
		if err != nil {
			return err
		}
		return c.emit(cmd, res, func(w io.Writer) error {
			if len(res.Points) == 0 {
				warning(w, "Not enough monthly history to forecast")
				return nil
			}
			rows := make([][]string, 0, len(res.Points))
			for _, p := range res.Points {
				rows = append(rows, []string{p.Label, money(p.Forecast), money(p.Lower), money(p.Upper)})
			}
			return renderTable(w, []string{"Month", "Forecast", "Lower", "Upper"}, rows)
		})
	})
	cmd.Flags().IntVar(&horizon, "horizon", 0, "Months to project (default from config)")
	cmd.Flags().StringVar(&svcName, "service", "", "Forecast a single service")
	return cmd
}

func (c *CLIApp) anomaliesCmd() *cobra.Command {
	var aq service.AnomalyQuery
	cmd := c.datasetCmd("anomalies", "Flag unusual months per service", func(cmd *cobra.Command, id uint, q service.Query) error {
		records, err := c.svc().Anomalies(cmd.Context(), id, q, aq)
		if err != nil {
			return err
		}
		return c.emit(cmd, records, func(w io.Writer) error {
			if len(records) == 0 {
				success(w, "No anomalies found")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					r.Month, r.Service, money(r.Cost),
					fmt.Sprintf("%+.1f%%", r.DeviationPct), fmt.Sprintf("%.2f", r.Score), optional(r.Explanation),
				})
			}
			return renderTable(w, []string{"Month", "Service", "Cost", "Deviation", "Score", "Explanation"}, rows)
		})
	})
	cmd.Flags().StringVar(&aq.Strategy, "strategy", "", "zscore or isolation_forest")
	cmd.Flags().Float64Var(&aq.Threshold, "threshold", 0, "Z-score threshold")
	cmd.Flags().BoolVar(&aq.Explain, "explain", false, "Attach explanations")
	return cmd
}

func (c *CLIApp) recommendCmd() *cobra.Command {
	cmd := c.datasetCmd("recommend", "Suggest cost optimizations", func(cmd *cobra.Command, id uint, q service.Query) error {
		recs, err := c.svc().Recommendations(cmd.Context(), id, q)
		if err != nil {
			return err
		}
		return c.emit(cmd, recs, func(w io.Writer) error {
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, []string{r.Title, r.Impact, fmt.Sprintf("%.0f%%", r.EstimatedSavingPercent), r.Service})
			}
			return renderTable(w, []string{"Recommendation", "Impact", "Saving", "Service"}, rows)
		})
	})
	return cmd
}

func (c *CLIApp) insightsCmd() *cobra.Command {
	cmd := c.datasetCmd("insights", "Summarize an import in a few sentences", func(cmd *cobra.Command, id uint, q service.Query) error {
		text, err := c.svc().Insights(cmd.Context(), id, q)
		if err != nil {
			return err
		}
		return c.emit(cmd, map[string]string{"insights": text}, func(w io.Writer) error {
			_, err := fmt.Fprintln(w, text)
			return err
		})
	})
	return cmd
}

func (c *CLIApp) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat ID QUESTION...",
		Short: "Ask a question about an import",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := c.svc().Chat(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return c.emit(cmd, resp, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, resp.Answer)
				return err
			})
		},
	}
}

func (c *CLIApp) multiCloudCmd() *cobra.Command {
	var (
		ids    []uint
		period string
		top    int
		qf     queryFlags
	)
	cmd := &cobra.Command{
		Use:   "multicloud",
		Short: "Compare costs across providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := qf.query()
			if err != nil {
				return err
			}
			q := service.MultiCloudQuery{IDs: ids, Period: period, Start: window.Start, End: window.End}
			view, err := c.svc().MultiCloud(cmd.Context(), q)
			if err != nil {
				return err
			}
			spikes, err := c.svc().MultiCloudAnomalies(cmd.Context(), q)
			if err != nil {
				return err
			}
			insights, err := c.svc().MultiCloudInsights(cmd.Context(), q)
			if err != nil {
				return err
			}

			report := map[string]interface{}{
				"window":       view.Window,
				"kpis":         view.KPIs(),
				"shares":       view.Shares(),
				"top_services": view.TopServices(top),
				"anomalies":    spikes,
				"insights":     insights,
			}
			return c.emit(cmd, report, func(w io.Writer) error {
				k := view.KPIs()
				if err := renderTable(w, []string{"Metric", "Value"}, [][]string{
					{"Total cost", money(k.TotalCost)},
					{"Average daily", money(k.AvgDaily)},
					{"Highest month", k.MaxMonth},
					{"Lowest month", k.MinMonth},
					{"Month over month", fmt.Sprintf("%+.2f%%", k.MoMDeltaPct)},
					{"Next month forecast", money(k.ForecastNextMonth)},
				}); err != nil {
					return err
				}
				shares := lo.Map(view.Shares(), func(s analysis.CloudShare, _ int) []string {
					return []string{s.Provider, money(s.Cost), fmt.Sprintf("%.2f%%", s.Pct)}
				})
				if err := renderTable(w, []string{"Provider", "Cost", "Share"}, shares); err != nil {
					return err
				}
				for _, s := range spikes {
					warning(w, "%s %s/%s: %s -> %s (%+.1f%%)", s.Month, s.Provider, s.Service, money(s.PrevCost), money(s.Cost), s.VariationPct)
				}
				for _, line := range insights {
					fmt.Fprintln(w, "- "+line)
				}
				return nil
			})
		},
	}
	cmd.Flags().UintSliceVar(&ids, "ids", nil, "Import IDs (default all)")
	cmd.Flags().StringVar(&period, "period", "", "Period: 30d, 3m, 6m or custom")
	cmd.Flags().StringVar(&qf.start, "start", "", "Start date of a custom period")
	cmd.Flags().StringVar(&qf.end, "end", "", "End date of a custom period")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of top services")
	return cmd
}
