// Package csvimport turns raw intake CSVs into validated rows and applies
// them to the live collections with a restorable pre-import backup.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrMalformedCSV marks structural parse failures. No partial result is
// produced when it is returned.
var ErrMalformedCSV = errors.New("malformed CSV")

// Severity of a validation finding. Errors block the row; warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type ValidationError struct {
	RowNumber int      `json:"row_number"`
	Column    string   `json:"column"`
	Value     string   `json:"value"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
}

// ParsedRow is one data row with its raw cell values and findings attached.
// RowNumber is the 1-based file line, so the first data row is 2.
type ParsedRow struct {
	RowNumber int               `json:"row_number"`
	Data      map[string]string `json:"data"`
	Errors    []ValidationError `json:"errors"`
}

// HasBlockingErrors reports whether any finding has error severity.
func (r ParsedRow) HasBlockingErrors() bool {
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any finding has warning severity.
func (r ParsedRow) HasWarnings() bool {
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ErrorMessages joins every finding message for summary reporting.
func (r ParsedRow) ErrorMessages() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// ParseResult is the structured output of the pipeline. All rows are
// retained, including invalid ones, with their findings attached.
type ParseResult struct {
	ImportType ImportType `json:"import_type"`
	// TypeDetected is false when the header matched no known shape and the
	// pipeline fell back to the person type.
	TypeDetected bool              `json:"type_detected"`
	Header       []string          `json:"header"`
	Rows         []ParsedRow       `json:"rows"`
	HeaderErrors []ValidationError `json:"header_errors,omitempty"`
	TotalRows    int               `json:"total_rows"`
	ValidRows    int               `json:"valid_rows"`
	ErrorRows    int               `json:"error_rows"`
}

// Parse reads the whole CSV text into a header and header-keyed row maps.
// Empty lines are skipped; short records leave missing cells empty.
func Parse(text string) ([]string, []map[string]string, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, errors.Wrap(ErrMalformedCSV, "missing header")
		}
		return nil, nil, errors.Wrapf(ErrMalformedCSV, "header: %v", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	line := 1
	for {
		line++
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(ErrMalformedCSV, "line %d: %v", line, err)
		}
		if isEmptyRecord(rec) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// DetectImportType picks a type from distinguishing header columns. When no
// shape matches it falls back to person and reports detected=false, so
// callers can surface the ambiguity instead of silently misclassifying.
func DetectImportType(header []string) (ImportType, bool) {
	set := make(map[string]struct{}, len(header))
	for _, h := range header {
		set[strings.TrimSpace(h)] = struct{}{}
	}
	has := func(names ...string) bool {
		for _, n := range names {
			if _, ok := set[n]; !ok {
				return false
			}
		}
		return true
	}

	switch {
	case has(colPersonFullName, colFamilyName, colCategories):
		return TypePerson, true
	case has(colActivityName, colAttendeeNames, colActivityType):
		return TypeActivity, true
	case has(colLearningType, colBookNumber):
		return TypeLearning, true
	case has(colFamilyOrPerson, colVisitDate, colPurpose):
		return TypeHomeVisit, true
	}
	return TypePerson, false
}

// ValidateHeaders returns one error per missing required column.
func ValidateHeaders(header []string, importType ImportType) []ValidationError {
	set := make(map[string]struct{}, len(header))
	for _, h := range header {
		set[h] = struct{}{}
	}

	var errs []ValidationError
	for _, req := range requiredColumns[importType] {
		if _, ok := set[req]; !ok {
			errs = append(errs, ValidationError{
				RowNumber: 0,
				Column:    req,
				Severity:  SeverityError,
				Message:   fmt.Sprintf("required column %q not found in CSV", req),
			})
		}
	}
	return errs
}

var emailValidate = validator.New()

// ValidateRow applies the per-column rules for the import type. Coercion
// failures become findings, never panics or returned errors.
func ValidateRow(row map[string]string, rowNumber int, importType ImportType, header []string) []ValidationError {
	var errs []ValidationError

	required := make(map[string]struct{}, len(requiredColumns[importType]))
	for _, c := range requiredColumns[importType] {
		required[c] = struct{}{}
	}

	addErr := func(column, value, message string) {
		errs = append(errs, ValidationError{
			RowNumber: rowNumber, Column: column, Value: value,
			Severity: SeverityError, Message: message,
		})
	}
	addWarn := func(column, value, message string) {
		errs = append(errs, ValidationError{
			RowNumber: rowNumber, Column: column, Value: value,
			Severity: SeverityWarning, Message: message,
		})
	}

	for _, column := range header {
		value := strings.TrimSpace(row[column])

		if _, isRequired := required[column]; isRequired && value == "" {
			addErr(column, value, fmt.Sprintf("required field %q is empty", column))
			continue
		}
		if value == "" {
			continue
		}

		switch importType {
		case TypePerson:
			switch column {
			case colAgeGroup:
				if !validAgeGroup(value) {
					addErr(column, value, fmt.Sprintf("invalid age group %q", value))
				}
			case colEmploymentStatus:
				if !validEmploymentStatus(value) {
					addErr(column, value, fmt.Sprintf("invalid employment status %q", value))
				}
			case colRuhiLevel:
				if n, err := strconv.Atoi(value); err != nil || n < 0 || n > 12 {
					addErr(column, value, fmt.Sprintf("invalid Ruhi level %q: must be a number between 0 and 12", value))
				}
			case colCategories:
				for _, cat := range SplitPipe(value) {
					if !validCategory(cat) {
						addErr(column, cat, fmt.Sprintf("invalid category %q", cat))
					}
				}
			case colHomeVisitDate, colFollowUpDate:
				if _, err := ParseDate(value); err != nil {
					addErr(column, value, fmt.Sprintf("invalid date %q: use YYYY-MM-DD", value))
				}
			case colEmail:
				if emailValidate.Var(value, "email") != nil {
					addWarn(column, value, fmt.Sprintf("email %q appears to be invalid", value))
				}
			}

		case TypeActivity:
			switch column {
			case colActivityType:
				if !validActivityType(value) {
					addErr(column, value, fmt.Sprintf("invalid activity type %q", value))
				}
			case colDate:
				if _, err := ParseDate(value); err != nil {
					addErr(column, value, fmt.Sprintf("invalid date %q: use YYYY-MM-DD", value))
				}
			case colTotalAttendance:
				if n, err := strconv.Atoi(value); err != nil || n < 0 {
					addErr(column, value, fmt.Sprintf("invalid attendance number %q: must be a non-negative number", value))
				}
			}

		case TypeLearning:
			switch column {
			case colLearningType:
				if !validLearningType(value) {
					addErr(column, value, fmt.Sprintf("invalid learning type %q", value))
				}
			case colDateCompleted:
				if _, err := ParseDate(value); err != nil {
					addErr(column, value, fmt.Sprintf("invalid date %q: use YYYY-MM-DD", value))
				}
			}

		case TypeHomeVisit:
			switch column {
			case colPurpose:
				if !validVisitPurpose(value) {
					addErr(column, value, fmt.Sprintf("invalid purpose %q", value))
				}
			case colVisitDate, colFollowUpDate:
				if _, err := ParseDate(value); err != nil {
					addErr(column, value, fmt.Sprintf("invalid date %q: use YYYY-MM-DD", value))
				}
			case colFollowUpCompleted:
				if !validBoolean(value) {
					addErr(column, value, fmt.Sprintf("invalid boolean %q: must be Yes/No or TRUE/FALSE", value))
				}
			}
		}
	}

	return errs
}

func validBoolean(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	for _, b := range validBooleans {
		if b == lv {
			return true
		}
	}
	return false
}

// Structure runs the full pipeline: parse, resolve the import type, validate
// headers, then validate every row. explicitType overrides detection when
// non-empty. A missing required column short-circuits with zero processed
// rows and one header error per missing column.
func Structure(text string, explicitType ImportType) (*ParseResult, error) {
	header, rawRows, err := Parse(text)
	if err != nil {
		return nil, err
	}

	importType := explicitType
	detected := true
	if importType == "" {
		importType, detected = DetectImportType(header)
	}

	result := &ParseResult{
		ImportType:   importType,
		TypeDetected: detected,
		Header:       header,
	}

	if headerErrs := ValidateHeaders(header, importType); len(headerErrs) > 0 {
		result.HeaderErrors = headerErrs
		return result, nil
	}

	for i, raw := range rawRows {
		rowNumber := i + 2 // header occupies line 1
		row := ParsedRow{
			RowNumber: rowNumber,
			Data:      raw,
			Errors:    ValidateRow(raw, rowNumber, importType, header),
		}
		if row.HasBlockingErrors() {
			result.ErrorRows++
		} else {
			result.ValidRows++
		}
		result.Rows = append(result.Rows, row)
	}
	result.TotalRows = len(result.Rows)
	return result, nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate accepts ISO dates first and a few looser layouts, normalized to
// midnight UTC.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("missing date value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			y, m, d := t.UTC().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errors.Errorf("invalid date: %s", v)
}

// SplitPipe splits a pipe-delimited multi-value cell, dropping empties.
func SplitPipe(v string) []string {
	return splitList(v, "|")
}

// SplitComma splits a comma-delimited list cell, dropping empties.
func SplitComma(v string) []string {
	return splitList(v, ",")
}

func splitList(v, sep string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseBool maps the accepted vocabulary to a boolean; anything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1":
		return true
	}
	return false
}

// ParseInt returns the integer value and whether parsing succeeded.
func ParseInt(v string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}
