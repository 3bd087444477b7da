package pricing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrPriceSource is returned when a price source cannot be opened or parsed.
var ErrPriceSource = errors.New("price source unreadable")

// Sheet is a price source read into memory. The first source row is the
// column header row; Rows holds everything after it.
type Sheet struct {
	Header []string
	Rows   [][]Cell
}

// Columns returns the widest row width, header included.
func (s *Sheet) Columns() int {
	n := len(s.Header)
	for _, row := range s.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// At returns the cell at row r, column c, or an empty cell when the row is short.
func (s *Sheet) At(r, c int) Cell {
	if r < 0 || r >= len(s.Rows) || c < 0 || c >= len(s.Rows[r]) {
		return Cell{}
	}
	return s.Rows[r][c]
}

// ReadSheet reads a price source, choosing the reader by file extension.
// sheetName selects a workbook sheet; the first sheet is used when empty.
func ReadSheet(path, sheetName string) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path, sheetName)
	case ".xls":
		return readXLS(path, sheetName)
	case ".csv", ".txt":
		f, err := os.Open(path) //nolint:gosec // G304: price list path supplied by the operator
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPriceSource, err)
		}
		defer func() { _ = f.Close() }()
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrPriceSource, filepath.Ext(path))
	}
}

func readXLSX(path, sheetName string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceSource, err)
	}
	defer func() { _ = f.Close() }()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrPriceSource)
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrPriceSource, sheetName, err)
	}

	sheet := &Sheet{}
	for r, raw := range rows {
		if r == 0 {
			sheet.Header = raw
			continue
		}
		row := make([]Cell, len(raw))
		for c, value := range raw {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrPriceSource, err)
			}
			typ, err := f.GetCellType(sheetName, axis)
			if err != nil {
				return nil, fmt.Errorf("%w: cell %s: %w", ErrPriceSource, axis, err)
			}
			row[c] = xlsxCell(typ, value)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

// xlsxCell maps a stored cell to a Cell. Numeric cells are stored without a
// type attribute, so untyped values that parse as numbers are numbers.
func xlsxCell(typ excelize.CellType, value string) Cell {
	if value == "" {
		return Cell{}
	}
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return Number(v)
		}
	}
	return Text(value)
}

// ReadCSV reads a delimited price list. The delimiter is ';' when the first
// line has more semicolons than commas, otherwise ','.
func ReadCSV(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceSource, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceSource, err)
	}

	return textSheet(records), nil
}

// xlsCharset decodes the legacy workbook strings.
const xlsCharset = "utf-8"

// readXLS reads a legacy BIFF workbook. Its cells arrive as formatted text
// and are typed the way CSV cells are.
func readXLS(path, sheetName string) (sheet *Sheet, err error) {
	defer func() {
		if r := recover(); r != nil {
			sheet, err = nil, fmt.Errorf("%w: %s: %v", ErrPriceSource, path, r)
		}
	}()

	wb, err := xls.Open(path, xlsCharset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceSource, err)
	}

	ws := wb.GetSheet(0)
	if sheetName != "" {
		ws = nil
		for i := 0; i < wb.NumSheets(); i++ {
			if s := wb.GetSheet(i); s != nil && s.Name == sheetName {
				ws = s
				break
			}
		}
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrPriceSource, sheetName)
	}

	records := make([][]string, 0, int(ws.MaxRow)+1)
	for r := 0; r <= int(ws.MaxRow); r++ {
		row := ws.Row(r)
		if row == nil {
			records = append(records, nil)
			continue
		}
		rec := make([]string, row.LastCol())
		for c := range rec {
			rec[c] = row.Col(c)
		}
		records = append(records, rec)
	}
	return textSheet(records), nil
}

// textSheet builds a Sheet from untyped records; the first is the header.
func textSheet(records [][]string) *Sheet {
	sheet := &Sheet{}
	for i, rec := range records {
		if i == 0 {
			sheet.Header = rec
			continue
		}
		row := make([]Cell, len(rec))
		for c, value := range rec {
			row[c] = csvCell(value)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func csvCell(value string) Cell {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Cell{}
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Number(v)
	}
	return Text(value)
}

func sniffDelimiter(data []byte) rune {
	line, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}
