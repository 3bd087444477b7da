package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MeKo-Tech/pricetag/internal/pdf"
	"github.com/MeKo-Tech/pricetag/internal/testutil"
	"github.com/cucumber/godog"
)

// aCatalogWithPages writes a catalog PDF. Each table row is one page; its
// "text" cell holds the page lines separated by " / ".
func (testCtx *TestContext) aCatalogWithPages(name string, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return errors.New("catalog table needs a header and at least one page")
	}

	pages := make([]testutil.CatalogPage, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		var lines []string
		for _, l := range strings.Split(row.Cells[0].Value, " / ") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
		pages = append(pages, testutil.CatalogPage{Lines: lines})
	}

	path := testCtx.TempPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	if err := testutil.BuildCatalogPDF(path, pages); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	if testCtx.CatalogPath == "" {
		testCtx.CatalogPath = path
	}
	return nil
}

// aPriceTableWithRows writes the table as .xlsx or as semicolon separated
// .csv, depending on the file extension.
func (testCtx *TestContext) aPriceTableWithRows(name string, table *godog.Table) error {
	if len(table.Rows) < 1 {
		return errors.New("price table needs a header row")
	}

	cells := func(i int) []string {
		out := make([]string, len(table.Rows[i].Cells))
		for j, c := range table.Rows[i].Cells {
			out[j] = c.Value
		}
		return out
	}

	path := testCtx.TempPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		rows := make([][]any, 0, len(table.Rows)-1)
		for i := 1; i < len(table.Rows); i++ {
			var row []any
			for _, v := range cells(i) {
				row = append(row, v)
			}
			rows = append(rows, row)
		}
		if err := testutil.BuildPriceXLSX(path, cells(0), rows); err != nil {
			return fmt.Errorf("failed to write workbook %s: %w", path, err)
		}
	case ".csv":
		var b strings.Builder
		for i := range table.Rows {
			b.WriteString(strings.Join(cells(i), ";"))
			b.WriteString("\n")
		}
		if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported price table extension: %s", name)
	}

	testCtx.PricesPath = path
	return nil
}

// thePDFShouldHavePages opens a scenario PDF and counts its pages.
func (testCtx *TestContext) thePDFShouldHavePages(name string, want int) error {
	n, err := pdf.Verify(testCtx.TempPath(name))
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("%s has %d pages, expected %d", name, n, want)
	}
	return nil
}

// pageLabels returns the labels of a 1-based page from the JSON report.
func (testCtx *TestContext) pageLabels(page int) ([]string, error) {
	data, err := testCtx.lastJSON()
	if err != nil {
		return nil, err
	}
	pages, ok := data["page_reports"].([]any)
	if !ok {
		return nil, errors.New("report has no page_reports")
	}
	if page < 1 || page > len(pages) {
		return nil, fmt.Errorf("report has %d pages, page %d requested", len(pages), page)
	}
	entry, ok := pages[page-1].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("page %d is not an object", page)
	}
	raw, _ := entry["labels"].([]any)
	labels := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			labels = append(labels, s)
		}
	}
	return labels, nil
}

// pageShouldBeLabeled checks that page carries label in the report.
func (testCtx *TestContext) pageShouldBeLabeled(page int, label string) error {
	labels, err := testCtx.pageLabels(page)
	if err != nil {
		return err
	}
	if !slices.Contains(labels, label) {
		return fmt.Errorf("page %d labels %q do not include %q", page, labels, label)
	}
	return nil
}

// pageShouldHaveNoLabels checks that page was left without labels.
func (testCtx *TestContext) pageShouldHaveNoLabels(page int) error {
	labels, err := testCtx.pageLabels(page)
	if err != nil {
		return err
	}
	if len(labels) > 0 {
		return fmt.Errorf("page %d has labels %q", page, labels)
	}
	return nil
}

// RegisterCatalogSteps registers fixture and priced-output steps.
func (testCtx *TestContext) RegisterCatalogSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a catalog "([^"]*)" with pages:$`, testCtx.aCatalogWithPages)
	sc.Step(`^a price table "([^"]*)" with rows:$`, testCtx.aPriceTableWithRows)
	sc.Step(`^the PDF "([^"]*)" should have (\d+) pages?$`, testCtx.thePDFShouldHavePages)
	sc.Step(`^page (\d+) should be labeled "([^"]*)"$`, testCtx.pageShouldBeLabeled)
	sc.Step(`^page (\d+) should have no labels$`, testCtx.pageShouldHaveNoLabels)
}
