// Package repository persists questions, answers and grading formulas to
// the Google Sheet backing a batch run. Layout: column A holds questions,
// B expected answers, C generated answers, D per-row grading formulas and
// E the aggregate results formula.
package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"google.golang.org/api/sheets/v4"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/domain"
)

const (
	sheetName        = "Sheet1"
	valueInputOption = "USER_ENTERED"
	// Data rows start at 2; row 1 is the header.
	firstDataRow = 2
)

var spreadsheetIDRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// ExtractSpreadsheetID pulls the opaque spreadsheet identifier out of a
// Google Sheets URL. A URL without the /spreadsheets/d/<id> segment is a
// configuration error.
func ExtractSpreadsheetID(url string) (string, error) {
	m := spreadsheetIDRe.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("repository: invalid spreadsheet URL %q", url)
	}
	return m[1], nil
}

// Client wraps the Sheets API for one spreadsheet.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New creates a Client for the spreadsheet addressed by the given URL.
func New(svc *sheets.Service, spreadsheetURL string) (*Client, error) {
	if svc == nil {
		return nil, errors.New("repository: sheets service must not be nil")
	}
	id, err := ExtractSpreadsheetID(spreadsheetURL)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, spreadsheetID: id}, nil
}

// Clear wipes the whole sheet.
func (c *Client) Clear(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheetName, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("repository: clear sheet: %w", err)
	}
	return nil
}

// SeedRows writes the header, the seed questions and expected answers, the
// per-row evaluation formulas and the aggregate results formula.
func (c *Client) SeedRows(ctx context.Context, records []domain.QuestionRow) error {
	header := [][]interface{}{{"Question", "Answer", "MathBot", "Evaluation", "Results"}}
	if err := c.update(ctx, fmt.Sprintf("%s!A1:E1", sheetName), header); err != nil {
		return fmt.Errorf("repository: write header: %w", err)
	}

	data := make([][]interface{}, 0, len(records))
	for _, r := range records {
		data = append(data, []interface{}{r.Question, r.ExpectedAnswer})
	}
	if err := c.update(ctx, fmt.Sprintf("%s!A2:B%d", sheetName, len(data)+1), data); err != nil {
		return fmt.Errorf("repository: write seed data: %w", err)
	}

	formulas := make([][]interface{}, 0, len(records))
	for i := range records {
		formulas = append(formulas, []interface{}{evaluationFormula(firstDataRow + i)})
	}
	if err := c.update(ctx, fmt.Sprintf("%s!D2:D%d", sheetName, len(formulas)+1), formulas); err != nil {
		return fmt.Errorf("repository: write evaluation formulas: %w", err)
	}

	if err := c.update(ctx, fmt.Sprintf("%s!E2", sheetName), [][]interface{}{{resultsFormula}}); err != nil {
		return fmt.Errorf("repository: write results formula: %w", err)
	}
	return nil
}

// Questions returns every value in the question column, starting at the
// first data row. Missing cells come back as empty strings.
func (c *Client) Questions(ctx context.Context) ([]string, error) {
	return c.column(ctx, "A")
}

// GeneratedAnswers returns every value in the generated-answer column.
func (c *Client) GeneratedAnswers(ctx context.Context) ([]string, error) {
	return c.column(ctx, "C")
}

// WriteAnswer stores the generated answer for the data row at the given
// zero-based index.
func (c *Client) WriteAnswer(ctx context.Context, index int, answer string) error {
	rng := fmt.Sprintf("%s!C%d", sheetName, firstDataRow+index)
	if err := c.update(ctx, rng, [][]interface{}{{answer}}); err != nil {
		return fmt.Errorf("repository: write answer %s: %w", rng, err)
	}
	return nil
}

func (c *Client) column(ctx context.Context, col string) ([]string, error) {
	rng := fmt.Sprintf("%s!%s%d:%s", sheetName, col, firstDataRow, col)
	out, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("repository: get range %s: %w", rng, err)
	}
	vals := make([]string, len(out.Values))
	for i, row := range out.Values {
		if len(row) > 0 {
			vals[i] = fmt.Sprint(row[0])
		}
	}
	return vals, nil
}

func (c *Client) update(ctx context.Context, rng string, values [][]interface{}) error {
	_, err := c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	return err
}

// evaluationFormula grades one row by comparing the numeral that follows the
// "#### " marker in the expected and generated answers, yielding Correct,
// Wrong, Error (marker or numeral missing on a filled row) or "" (row not
// answered yet).
func evaluationFormula(row int) string {
	return fmt.Sprintf(
		`=IF(OR(ISBLANK(B%[1]d), ISBLANK(C%[1]d)), "", IFERROR(IF(VALUE(SUBSTITUTE(MID(B%[1]d, FIND("#### ", B%[1]d) + 5, LEN(B%[1]d)), ",", "")) = VALUE(SUBSTITUTE(MID(C%[1]d, FIND("#### ", C%[1]d) + 5, LEN(C%[1]d)), ",", "")), "Correct", "Wrong"), "Error"))`,
		row,
	)
}

// resultsFormula aggregates counts and scores over the evaluation column.
// The valid score excludes Error rows from its denominator; the total score
// includes them.
const resultsFormula = `= "Total Count: " & (COUNTIF(D:D, "Correct") + COUNTIF(D:D, "Wrong") + COUNTIF(D:D, "Error")) & CHAR(10) &` +
	`"Correct Count: " & COUNTIF(D:D, "Correct") & CHAR(10) &` +
	`"Wrong Count: " & COUNTIF(D:D, "Wrong") & CHAR(10) &` +
	`"Error Count: " & COUNTIF(D:D, "Error") & CHAR(10) &` +
	`"Valid Score: " & IFERROR(ROUND((COUNTIF(D:D, "Correct") / (COUNTIF(D:D, "Correct") + COUNTIF(D:D, "Wrong"))*100), 2), 0) & "%" & CHAR(10) &` +
	`"Total Score: " & IFERROR(ROUND((COUNTIF(D:D, "Correct") / (COUNTIF(D:D, "Correct") + COUNTIF(D:D, "Wrong") + COUNTIF(D:D, "Error"))*100), 2), 0) & "%"`
