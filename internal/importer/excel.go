package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/diewo77/traceflow/internal/config"
)

// ArticleRow is one normalized BOM row. SortOrder is the zero-based position
// among the accepted rows (skipped rows leave no gap); the spreadsheet order
// is authoritative and is carried all the way to the database.
type ArticleRow struct {
	ArticleNumber string          `json:"article_number"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	Level         string          `json:"level"`
	ParentArticle string          `json:"parent_article,omitempty"`
	SortOrder     int             `json:"sort_order"`
}

// InventoryRow is one normalized inventory-log row. ChargeNumber may be empty
// (administrative rows, goods in receiving) and Quantity may be negative
// (withdrawals).
type InventoryRow struct {
	ArticleNumber string          `json:"article_number"`
	ChargeNumber  string          `json:"charge_number,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	BatchID       string          `json:"batch_id,omitempty"`
	Location      string          `json:"location,omitempty"`
	ReceivedAt    *time.Time      `json:"received_at,omitempty"`
}

// ValidationError reports a source file the importer refuses to process.
type ValidationError struct {
	Msg     string
	Details map[string]any
}

func (e *ValidationError) Error() string { return e.Msg }

// Column synonyms, tried exact first and then as substrings. The source
// spreadsheets come from Swedish ERP exports but English headers occur too.
var (
	articleCols  = []string{"Artikelnummer", "Art.nr", "Article Number"}
	descCols     = []string{"Benämning", "Beskrivning", "Description"}
	quantityCols = []string{"Antal", "Qty", "Quantity"}
	levelCols    = []string{"Nivå", "Level"}
	chargeCols   = []string{"Chargenr", "Charge", "Batch"}
	batchCols    = []string{"Batch-id", "Batch ID"}
	locationCols = []string{"Plats", "Location"}
	dateCols     = []string{"Mottaget", "Received", "Datum", "Date"}
)

const maxIdentifierLen = 50

// ReadArticleList parses a BOM/level-list sheet into ordered article rows.
// Invalid rows are skipped with a log entry; an empty result is an error.
func ReadArticleList(r io.Reader) ([]ArticleRow, error) {
	rows, headers, err := openFirstSheet(r)
	if err != nil {
		return nil, err
	}

	artIdx := findColumn(headers, articleCols)
	if artIdx < 0 {
		return nil, &ValidationError{Msg: "article number column not found", Details: map[string]any{"headers": headers}}
	}
	descIdx := findColumn(headers, descCols)
	qtyIdx := findColumn(headers, quantityCols)
	lvlIdx := findColumn(headers, levelCols)

	log := config.GetLogger()
	var articles []ArticleRow
	for i, row := range rows {
		number := strings.TrimSpace(cell(row, artIdx))
		if number == "" {
			continue
		}
		if len(number) > maxIdentifierLen {
			log.WithField("row", i).Warnf("skipping article with oversized number %q", number)
			continue
		}
		qty, err := parseQuantity(cell(row, qtyIdx))
		if err != nil || qty.IsNegative() {
			log.WithField("row", i).Warnf("skipping article %s: bad quantity %q", number, cell(row, qtyIdx))
			continue
		}
		articles = append(articles, ArticleRow{
			ArticleNumber: number,
			Description:   strings.TrimSpace(cell(row, descIdx)),
			Quantity:      qty,
			Level:         strings.TrimSpace(cell(row, lvlIdx)),
			SortOrder:     len(articles),
		})
	}
	if len(articles) == 0 {
		return nil, &ValidationError{Msg: "no valid articles found in article list"}
	}

	convertDepthToPath(articles)
	deriveParents(articles)
	log.WithField("count", len(articles)).Info("imported article list")
	return articles, nil
}

// ReadInventory parses an inventory-log sheet into ordered inventory rows.
func ReadInventory(r io.Reader) ([]InventoryRow, error) {
	rows, headers, err := openFirstSheet(r)
	if err != nil {
		return nil, err
	}

	artIdx := findColumn(headers, articleCols)
	if artIdx < 0 {
		return nil, &ValidationError{Msg: "article number column not found", Details: map[string]any{"headers": headers}}
	}
	chargeIdx := findColumn(headers, chargeCols)
	qtyIdx := findColumn(headers, quantityCols)
	batchIdx := findColumn(headers, batchCols)
	locIdx := findColumn(headers, locationCols)
	dateIdx := findColumn(headers, dateCols)

	log := config.GetLogger()
	var items []InventoryRow
	for i, row := range rows {
		number := strings.TrimSpace(cell(row, artIdx))
		if number == "" {
			continue
		}
		charge := strings.TrimSpace(cell(row, chargeIdx))
		if len(charge) > maxIdentifierLen {
			log.WithField("row", i).Warnf("skipping inventory row for %s: oversized charge %q", number, charge)
			continue
		}
		// Withdrawals are legitimate, so negative quantities pass here.
		qty, err := parseQuantity(cell(row, qtyIdx))
		if err != nil {
			log.WithField("row", i).Warnf("skipping inventory row for %s: bad quantity %q", number, cell(row, qtyIdx))
			continue
		}
		items = append(items, InventoryRow{
			ArticleNumber: number,
			ChargeNumber:  charge,
			Quantity:      qty,
			BatchID:       strings.TrimSpace(cell(row, batchIdx)),
			Location:      strings.TrimSpace(cell(row, locIdx)),
			ReceivedAt:    parseDate(cell(row, dateIdx)),
		})
	}
	if len(items) == 0 {
		return nil, &ValidationError{Msg: "no valid inventory rows found"}
	}
	log.WithField("count", len(items)).Info("imported inventory log")
	return items, nil
}

// openFirstSheet reads the first sheet and splits off the header row.
func openFirstSheet(r io.Reader) (rows [][]string, headers []string, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, &ValidationError{Msg: "could not read spreadsheet", Details: map[string]any{"error": err.Error()}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &ValidationError{Msg: "spreadsheet has no sheets"}
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, &ValidationError{Msg: fmt.Sprintf("could not read sheet %s", sheets[0]), Details: map[string]any{"error": err.Error()}}
	}
	if len(all) < 2 {
		return nil, nil, &ValidationError{Msg: "spreadsheet has no data rows"}
	}
	return all[1:], all[0], nil
}

// findColumn returns the index of the first header matching any search term,
// preferring exact matches over substring matches.
func findColumn(headers []string, terms []string) int {
	for _, term := range terms {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), term) {
				return i
			}
		}
	}
	for _, term := range terms {
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h), strings.ToLower(term)) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseQuantity(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, nil
	}
	// Swedish exports use a decimal comma and may group thousands with spaces.
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006",
	"01-02-06",
	"1/2/06 15:04",
}

func parseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// convertDepthToPath rewrites depth-style integer levels ("0", "1", "2") as
// path levels ("1", "1.1", "1.1.1"). Rows already in path notation (or with
// non-numeric levels) are kept as-is.
//
// The export encodes depth 0-indexed: 0 is a top-level assembly, 1 a child of
// the most recent depth-0 row, and so on.
func convertDepthToPath(articles []ArticleRow) {
	var stack []int
	for i := range articles {
		level := articles[i].Level
		if level == "" || strings.Contains(level, ".") {
			continue
		}
		var depth int
		if _, err := fmt.Sscanf(level, "%d", &depth); err != nil {
			continue
		}
		pathDepth := depth + 1
		if pathDepth < len(stack) {
			stack = stack[:pathDepth]
		}
		for len(stack) < pathDepth {
			stack = append(stack, 0)
		}
		stack[pathDepth-1]++
		parts := make([]string, len(stack))
		for j, n := range stack {
			parts[j] = fmt.Sprint(n)
		}
		articles[i].Level = strings.Join(parts, ".")
	}
}

// deriveParents fills ParentArticle from the level paths: the parent of the
// row at level "1.2.3" is the most recent row at level "1.2".
func deriveParents(articles []ArticleRow) {
	lastAtLevel := map[string]string{}
	for i := range articles {
		level := articles[i].Level
		if level == "" {
			continue
		}
		if dot := strings.LastIndex(level, "."); dot >= 0 {
			articles[i].ParentArticle = lastAtLevel[level[:dot]]
		}
		lastAtLevel[level] = articles[i].ArticleNumber
	}
}
