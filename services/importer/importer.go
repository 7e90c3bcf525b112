// Package importer reads quiz questions from spreadsheets.
//
// Expected layout, one question per row after a header row:
//
//	question | correct answer | option 1 | option 2 | ... | option N
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/elimu/core/quiz"
)

var ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")

// Result holds the valid questions of a file and the errors of the rejected rows.
type Result struct {
	Questions []quiz.NewQuestion
	Errors    []string
}

func (r Result) OK() bool { return len(r.Errors) == 0 }

// ImportFile reads the questions of an .xlsx (from sheet, or its first sheet) or .csv file.
func ImportFile(path, sheet string, validate *validator.Validate) (Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".csv" {
		return Result{}, ErrUnsupportedFormat
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, errors.Wrap(err, "opening file")
	}
	defer func() { _ = f.Close() }()

	if ext == ".xlsx" {
		return ImportXLSX(f, sheet, validate)
	}
	return ImportCSV(f, validate)
}

func ImportXLSX(r io.Reader, sheet string, validate *validator.Validate) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, errors.Wrap(err, "opening spreadsheet")
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, errors.Wrapf(err, "reading sheet %q", sheet)
	}
	return parseRows(rows, validate), nil
}

func ImportCSV(r io.Reader, validate *validator.Validate) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // variable number of options
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return Result{}, errors.Wrap(err, "reading csv")
	}
	return parseRows(rows, validate), nil
}

func parseRows(rows [][]string, validate *validator.Validate) Result {
	var res Result
	for i, row := range rows {
		if i == 0 || blank(row) { // header
			continue
		}
		nq, err := parseRow(row, validate)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		res.Questions = append(res.Questions, nq)
	}
	return res
}

func parseRow(row []string, validate *validator.Validate) (quiz.NewQuestion, error) {
	if len(row) < 4 {
		return quiz.NewQuestion{}, errors.New("expected a question, its answer and at least 2 options")
	}
	nq := quiz.NewQuestion{
		Text:          row[0],
		CorrectAnswer: row[1],
	}
	for _, opt := range row[2:] {
		if strings.TrimSpace(opt) != "" {
			nq.Options = append(nq.Options, opt)
		}
	}
	if err := nq.Validate(validate); err != nil {
		return quiz.NewQuestion{}, err
	}
	return nq, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
