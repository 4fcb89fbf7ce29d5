package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fmuoria/gems-hub/internal/export"
	"github.com/fmuoria/gems-hub/internal/ingestion"
	"github.com/fmuoria/gems-hub/internal/models"
	"github.com/fmuoria/gems-hub/internal/scoring"
)

func newScoreCmd() *cobra.Command {
	var (
		attrs  models.GemAttributes
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a gem from its attributes",
		Example: `  gemshub score --rarity "Singular Occurrence" --availability "Collectors Market" \
    --investment "Blue Chip Investment Gems" --hardness 8.2 --price "$30 per carat"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := scoring.ScoreAttributes(attrs)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			printBreakdown(cmd.OutOrStdout(), b)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&attrs.Rarity, "rarity", "", "geological rarity category")
	f.StringVar(&attrs.Availability, "availability", "", "market availability category")
	f.StringVar(&attrs.Investment, "investment", "", "investment appropriateness category")
	f.StringVar(&attrs.HardnessText, "hardness", "", `Mohs hardness, single value or range ("6.5-7")`)
	f.StringVar(&attrs.PriceText, "price", "", `price range text ("$100 - $500 per carat")`)
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printBreakdown(w io.Writer, b models.ScoreBreakdown) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Rarity\t%.0f\n", b.RarityPoints)
	fmt.Fprintf(tw, "Availability\t%.0f\n", b.AvailabilityPoints)
	fmt.Fprintf(tw, "Investment\t%.0f\n", b.InvestmentPoints)
	fmt.Fprintf(tw, "Hardness\t%.0f\t%s\n", b.HardnessPoints, b.HardnessCategory)
	fmt.Fprintf(tw, "Price\t%.0f\t%s\n", b.PricePoints, b.PriceBucket)
	fmt.Fprintf(tw, "Composite\t%.2f\t%s\n", b.Score, b.Tier)
	tw.Flush()
}

func newRankCmd(opts *rootOptions) *cobra.Command {
	var (
		refresh bool
		xlsx    string
		minTier string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank every gem type by investment score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minTier != "" && scoring.TierRank(minTier) < 0 {
				return fmt.Errorf("unknown tier %q", minTier)
			}

			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, log, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if refresh {
				rt.hub.SetProgressCallback(func(current, total int, message string) {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", current*100/total, message)
				})
				n, err := rt.hub.RefreshScores(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Refreshed %d cached scores\n", n)
			}

			report, err := rt.hub.Rankings(ctx)
			if err != nil {
				return err
			}

			if xlsx != "" {
				path, err := export.WriteRankingsFile(xlsx, report, export.Options{
					SiteName:      cfg.Site.Name,
					SearchBaseURL: cfg.Site.StoreSearchURL,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Rankings written to %s\n", path)
				return nil
			}

			printRankings(out, report, minTier, limit)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&refresh, "refresh", false, "recompute and store scores for every gem type")
	f.StringVar(&xlsx, "xlsx", "", "write the rankings workbook to this path")
	f.StringVar(&minTier, "min-tier", "", "only show gems at or above this tier")
	f.IntVar(&limit, "limit", 0, "show at most this many gems (0 = all)")
	return cmd
}

func printRankings(w io.Writer, report models.RankingReport, minTier string, limit int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tGEM\tSCORE\tTIER\tPRICE")
	shown := 0
	for _, g := range report.Gems {
		if !scoring.MeetsTier(g.Ranking.Tier, minTier) {
			continue
		}
		if limit > 0 && shown >= limit {
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\n", g.Rank, g.Name, g.Ranking.Score, g.Ranking.Tier, g.Ranking.PriceBucket)
		shown++
	}
	tw.Flush()
}

func newParseInvoiceCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse-invoice FILE.pdf|DIR",
		Short: "Extract line items from Gem Rock Auctions invoices",
		Long:  "Extract line items from one invoice PDF, or from every PDF in a directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := invoiceFiles(args[0])
			if err != nil {
				return err
			}

			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, log, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			invoices := make([]models.Invoice, 0, len(files))
			for _, f := range files {
				inv, err := rt.hub.ParseInvoice(ctx, f.Data)
				if err != nil {
					return fmt.Errorf("%s: %w", f.Name, err)
				}
				invoices = append(invoices, inv)
			}

			if asJSON {
				if len(invoices) == 1 {
					return writeJSON(out, invoices[0])
				}
				return writeJSON(out, invoices)
			}
			for i, inv := range invoices {
				if len(invoices) > 1 {
					fmt.Fprintf(out, "== %s\n", files[i].Name)
				}
				printInvoice(out, inv)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full invoice as JSON")
	return cmd
}

// invoiceFiles reads a single invoice or every PDF in a directory
func invoiceFiles(path string) ([]ingestion.InvoiceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []ingestion.InvoiceFile{{Name: filepath.Base(path), Path: path, Data: data}}, nil
	}

	files, err := ingestion.NewInvoiceArchive(path).LoadPDFs()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no PDF invoices in %s", path)
	}
	return files, nil
}

func printInvoice(w io.Writer, inv models.Invoice) {
	if inv.Number != "" {
		fmt.Fprintf(w, "Invoice #%s\n", inv.Number)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tCARATS\tPRICE\tGEM\tDESCRIPTION")
	for _, it := range inv.Items {
		carats := "-"
		if it.CaratWeight != nil {
			carats = fmt.Sprintf("%.2f", *it.CaratWeight)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", it.ProductID, carats, it.PriceUSD, it.GemTypeName, it.Description)
	}
	tw.Flush()
	if skipped := inv.Skipped(); skipped > 0 {
		fmt.Fprintf(w, "%d product block(s) could not be parsed\n", skipped)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
