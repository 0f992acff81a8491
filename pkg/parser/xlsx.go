package parser

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/procmine/internal/model"
	"github.com/logflow/procmine/pkg/errors"
)

// XLSXRecords reads records from the first three columns of a worksheet:
// case id, activity, timestamp. An empty sheet name selects the first sheet.
// When the id cell of the first row is not an integer that row is a header
// and is skipped. Cell values are kept as displayed; timestamps stay opaque.
//
// The workbook is read eagerly; the returned sequence holds no open file.
func XLSXRecords(r io.Reader, sheet string) (iter.Seq[model.Record], error) {
	seq, _, err := ReadXLSX(r, sheet)
	return seq, err
}

// ReadXLSX is XLSXRecords that also returns the number of records the
// sequence yields.
func ReadXLSX(r io.Reader, sheet string) (iter.Seq[model.Record], int, error) {
	xlFile, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xlFile.Close()

	if sheet == "" {
		sheet = xlFile.GetSheetName(0)
		if sheet == "" {
			sheetList := xlFile.GetSheetList()
			if len(sheetList) == 0 {
				return nil, 0, ErrNoSheet
			}
			sheet = sheetList[0]
		}
	}

	rows, err := xlFile.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}

	type row struct {
		num  int
		cols []string
	}
	data := make([]row, 0, len(rows))
	for i, cols := range rows {
		if blankRow(cols) || (i == 0 && isHeader(cols)) {
			continue
		}
		data = append(data, row{num: i + 1, cols: cols})
	}

	return func(yield func(model.Record) bool) {
		for _, r := range data {
			if !yield(parseRow(r.cols, r.num)) {
				return
			}
		}
	}, len(data), nil
}

func parseRow(cols []string, rowNum int) model.Record {
	raw := strings.Join(cols, "\t")
	if len(cols) < 3 {
		return model.Malformed(rowNum, raw,
			errors.MalformedRecord(rowNum, "expected 3 columns").WithContext("columns", len(cols)))
	}

	idCell := strings.TrimSpace(cols[0])
	id, err := strconv.ParseInt(idCell, 10, 64)
	if err != nil {
		return model.Malformed(rowNum, raw,
			errors.MalformedRecord(rowNum, "case id is not an integer").WithContext("id", idCell))
	}

	activity := strings.TrimSpace(cols[1])
	timestamp := strings.TrimSpace(cols[2])
	if activity == "" || timestamp == "" {
		return model.Malformed(rowNum, raw, errors.MalformedRecord(rowNum, "empty activity or timestamp"))
	}

	return model.Record{
		CaseID:    id,
		Activity:  activity,
		Timestamp: timestamp,
		Line:      rowNum,
		Raw:       raw,
	}
}

func isHeader(cols []string) bool {
	if len(cols) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(cols[0]), 10, 64)
	return err != nil
}

func blankRow(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
