package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/gems-hub/internal/catalog"
	"github.com/fmuoria/gems-hub/internal/models"
	"github.com/fmuoria/gems-hub/internal/scoring"
)

// Sheet names
const (
	SummarySheet    = "Summary"
	RankingsSheet   = "Rankings"
	AttributesSheet = "Attributes"
	HoldingsSheet   = "Holdings"
)

// tierFills colours ranking rows by tier
var tierFills = map[string]string{
	scoring.TierVeryBullish:       "C6EFCE",
	scoring.TierBullish:           "C6EFCE",
	scoring.TierModeratelyBullish: "FFEB9C",
	scoring.TierNeutral:           "FFEB9C",
	scoring.TierBearish:           "FFC7CE",
	scoring.TierVeryBearish:       "FF9999",
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// Options customise exported workbooks
type Options struct {
	SiteName      string
	SearchBaseURL string // when set, each gem links to a marketplace search
}

// WriteRankingsFile saves the rankings workbook to path, adding an .xlsx
// extension if missing
func WriteRankingsFile(path string, report models.RankingReport, opts Options) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path = path + ".xlsx"
	}
	path = filepath.Clean(path)

	var buf bytes.Buffer
	if err := WriteRankings(&buf, report, opts); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return path, nil
}

// WriteRankings writes the rankings workbook: a summary, the ranked gems
// colour-coded by tier, and their source attributes
func WriteRankings(w io.Writer, report models.RankingReport, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(RankingsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(AttributesSheet); err != nil {
		return err
	}

	if err := createRankingSummarySheet(f, report, opts); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := createRankingsSheet(f, report.Gems, opts); err != nil {
		return fmt.Errorf("failed to create rankings sheet: %w", err)
	}
	if err := createAttributesSheet(f, report.Gems); err != nil {
		return fmt.Errorf("failed to create attributes sheet: %w", err)
	}

	return f.Write(w)
}

func newHeaderStyle(f *excelize.File, size float64, align string, border bool) (int, error) {
	style := &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: size, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: align, Vertical: "center"},
	}
	if border {
		style.Border = thinBorder
	}
	return f.NewStyle(style)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// summaryWriter writes label/value rows down columns A and B
type summaryWriter struct {
	f          *excelize.File
	sheet      string
	row        int
	labelStyle int
	titleStyle int
}

func newSummaryWriter(f *excelize.File, sheet string) (*summaryWriter, error) {
	titleStyle, err := newHeaderStyle(f, 14, "left", false)
	if err != nil {
		return nil, err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", "B", 40)
	return &summaryWriter{f: f, sheet: sheet, row: 1, labelStyle: labelStyle, titleStyle: titleStyle}, nil
}

func (s *summaryWriter) title(text string) {
	a, b := cell(1, s.row), cell(2, s.row)
	s.f.SetCellValue(s.sheet, a, text)
	s.f.SetCellStyle(s.sheet, a, b, s.titleStyle)
	s.f.MergeCell(s.sheet, a, b)
	s.row++
}

func (s *summaryWriter) pair(label string, value interface{}) {
	a := cell(1, s.row)
	s.f.SetCellValue(s.sheet, a, label)
	s.f.SetCellStyle(s.sheet, a, a, s.labelStyle)
	s.f.SetCellValue(s.sheet, cell(2, s.row), value)
	s.row++
}

func (s *summaryWriter) skip() {
	s.row++
}

func createRankingSummarySheet(f *excelize.File, report models.RankingReport, opts Options) error {
	s, err := newSummaryWriter(f, SummarySheet)
	if err != nil {
		return err
	}

	name := opts.SiteName
	if name == "" {
		name = "Gems Hub"
	}
	s.title(name + " Investment Rankings")
	s.skip()

	generated := report.Timestamp
	if generated == "" {
		generated = time.Now().Format(time.RFC3339)
	}
	s.pair("Generated:", generated)
	s.pair("Gem Types Ranked:", len(report.Gems))
	s.skip()

	if len(report.Gems) == 0 {
		return nil
	}

	s.title("Tier Distribution:")
	counts := make(map[string]int, len(scoring.Tiers))
	for _, g := range report.Gems {
		counts[g.Ranking.Tier]++
	}
	for _, tier := range scoring.Tiers {
		s.pair(tier+":", counts[tier])
	}
	s.skip()

	var total float64
	highest, lowest := report.Gems[0], report.Gems[0]
	for _, g := range report.Gems {
		total += g.Ranking.Composite
		if g.Ranking.Composite > highest.Ranking.Composite {
			highest = g
		}
		if g.Ranking.Composite < lowest.Ranking.Composite {
			lowest = g
		}
	}

	s.title("Score Distribution Details:")
	s.pair("Average Score:", fmt.Sprintf("%.2f", total/float64(len(report.Gems))))
	s.pair("Highest Score:", fmt.Sprintf("%.2f (%s)", highest.Ranking.Score, highest.Name))
	s.pair("Lowest Score:", fmt.Sprintf("%.2f (%s)", lowest.Ranking.Score, lowest.Name))
	s.pair("Score Range:", fmt.Sprintf("%.2f", highest.Ranking.Composite-lowest.Ranking.Composite))

	return nil
}

// createRankingsSheet lists the ranked gems with tier colour-coding
func createRankingsSheet(f *excelize.File, gems []models.GemSummary, opts Options) error {
	sheet := RankingsSheet
	widths := []float64{8, 25, 12, 22, 10, 12, 12, 10, 10, 18, 16, 12}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	headerStyle, err := newHeaderStyle(f, 11, "center", true)
	if err != nil {
		return err
	}

	rowStyles := make(map[string]int, len(tierFills))
	linkStyles := make(map[string]int, len(tierFills))
	for tier, color := range tierFills {
		fill := excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
		if rowStyles[tier], err = f.NewStyle(&excelize.Style{Fill: fill, Border: thinBorder}); err != nil {
			return err
		}
		if linkStyles[tier], err = f.NewStyle(&excelize.Style{
			Font:   &excelize.Font{Color: "0563C1", Underline: "single"},
			Fill:   fill,
			Border: thinBorder,
		}); err != nil {
			return err
		}
	}

	headers := []string{"Rank", "Gem Type", "Score", "Tier", "Rarity", "Availability", "Investment", "Hardness", "Price", "Price Bucket", "Hardness Class", "Search"}
	for col, header := range headers {
		c := cell(col+1, 1)
		f.SetCellValue(sheet, c, header)
		f.SetCellStyle(sheet, c, c, headerStyle)
	}

	last := len(headers)
	for i, g := range gems {
		row := i + 2
		r := g.Ranking
		values := []interface{}{
			g.Rank, g.Name, r.Score, r.Tier,
			r.RarityPoints, r.AvailabilityPoints, r.InvestmentPoints, r.HardnessPoints, r.PricePoints,
			r.PriceBucket, r.HardnessCategory,
		}
		for col, v := range values {
			f.SetCellValue(sheet, cell(col+1, row), v)
		}

		style, ok := rowStyles[r.Tier]
		if !ok {
			style = rowStyles[scoring.TierVeryBearish]
		}
		f.SetCellStyle(sheet, cell(1, row), cell(last, row), style)

		if opts.SearchBaseURL != "" {
			link := cell(last, row)
			f.SetCellValue(sheet, link, "Search")
			f.SetCellHyperLink(sheet, link, catalog.SearchURL(opts.SearchBaseURL, catalog.SearchName(g.Name)), "External")
			if ls, ok := linkStyles[r.Tier]; ok {
				f.SetCellStyle(sheet, link, link, ls)
			}
		}
	}

	if len(gems) > 0 {
		ref := fmt.Sprintf("A1:%s", cell(last, len(gems)+1))
		if err := f.AutoFilter(sheet, ref, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}

	return freezeHeader(f, sheet)
}

// createAttributesSheet lists the source attributes behind each score
func createAttributesSheet(f *excelize.File, gems []models.GemSummary) error {
	sheet := AttributesSheet
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "C", 25)
	f.SetColWidth(sheet, "D", "F", 28)
	f.SetColWidth(sheet, "G", "G", 12)
	f.SetColWidth(sheet, "H", "H", 30)

	headerStyle, err := newHeaderStyle(f, 11, "center", true)
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	headers := []string{"Rank", "Gem Type", "Mineral Group", "Rarity", "Availability", "Investment", "Hardness", "Price Range"}
	for col, header := range headers {
		c := cell(col+1, 1)
		f.SetCellValue(sheet, c, header)
		f.SetCellStyle(sheet, c, c, headerStyle)
	}

	for i, g := range gems {
		row := i + 2
		values := []interface{}{g.Rank, g.Name, g.MineralGroup, g.Rarity, g.Availability, g.Investment, g.Hardness, g.PriceRange}
		for col, v := range values {
			f.SetCellValue(sheet, cell(col+1, row), v)
		}
		f.SetCellStyle(sheet, cell(1, row), cell(len(headers), row), wrapStyle)
	}

	return freezeHeader(f, sheet)
}

// WritePortfolio writes a user's holdings and their summary
func WritePortfolio(w io.Writer, holdings []models.Holding, stats models.PortfolioStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(HoldingsSheet); err != nil {
		return err
	}

	if err := createPortfolioSummarySheet(f, stats); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := createHoldingsSheet(f, holdings); err != nil {
		return fmt.Errorf("failed to create holdings sheet: %w", err)
	}

	return f.Write(w)
}

func createPortfolioSummarySheet(f *excelize.File, stats models.PortfolioStats) error {
	s, err := newSummaryWriter(f, SummarySheet)
	if err != nil {
		return err
	}

	s.title("Portfolio Summary")
	s.skip()
	s.pair("Generated:", time.Now().Format("2006-01-02 15:04:05"))
	s.pair("Total Items:", stats.TotalItems)
	s.pair("Total Invested (USD):", stats.TotalInvested)
	s.pair("Current Value (USD):", stats.TotalCurrentValue)
	s.pair("Unrealized Gain (USD):", stats.UnrealizedGain)
	s.pair("Total Carats:", stats.TotalCarats)
	s.skip()

	if len(stats.TopGems) == 0 {
		return nil
	}
	s.title("Top Gems by Value:")
	for _, g := range stats.TopGems {
		s.pair(g.GemTypeName, g.TotalValue)
	}
	return nil
}

func createHoldingsSheet(f *excelize.File, holdings []models.Holding) error {
	sheet := HoldingsSheet
	widths := []float64{8, 22, 10, 14, 14, 14, 12, 14, 40, 30}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	headerStyle, err := newHeaderStyle(f, 11, "center", true)
	if err != nil {
		return err
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder})
	if err != nil {
		return err
	}
	gainStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
		Border: thinBorder,
	})
	if err != nil {
		return err
	}
	lossStyle, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Border: thinBorder,
	})
	if err != nil {
		return err
	}

	headers := []string{"ID", "Gem Type", "Carats", "Purchase Price", "Current Value", "Gain", "Purchased", "Product ID", "Description", "Notes"}
	for col, header := range headers {
		c := cell(col+1, 1)
		f.SetCellValue(sheet, c, header)
		f.SetCellStyle(sheet, c, c, headerStyle)
	}

	for i, h := range holdings {
		row := i + 2
		gain := scoring.Round2(h.CurrentValue - h.PurchasePrice)
		values := []interface{}{
			h.ID, h.GemTypeName, h.WeightCarats, h.PurchasePrice, h.CurrentValue, gain,
			h.PurchaseDate, h.ProductID, h.Description, h.Notes,
		}
		for col, v := range values {
			f.SetCellValue(sheet, cell(col+1, row), v)
		}

		style := bodyStyle
		switch {
		case h.CurrentValue == 0:
		case gain > 0:
			style = gainStyle
		case gain < 0:
			style = lossStyle
		}
		f.SetCellStyle(sheet, cell(1, row), cell(len(headers), row), style)
	}

	if len(holdings) > 0 {
		ref := fmt.Sprintf("A1:%s", cell(len(headers), len(holdings)+1))
		if err := f.AutoFilter(sheet, ref, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}

	return freezeHeader(f, sheet)
}

func freezeHeader(f *excelize.File, sheet string) error {
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
