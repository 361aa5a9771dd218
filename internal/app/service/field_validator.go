package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/scoring"
	"github.com/ikkim/fleetverify-backend/pkg/ocr"
)

const dateLayout = "2006-01-02"

// FieldValidator cross-checks OCR-extracted fields against what the driver entered during KYC.
type FieldValidator struct{}

func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

// Validate scores each field that is present on both sides. Keys are "<field>:<document type>".
func (v *FieldValidator) Validate(driver *model.Driver, docs map[string]scoring.OCRDocument) scoring.ValidationResults {
	fields := make(map[string]float64)

	for docType, doc := range docs {
		if len(doc.Fields) == 0 {
			continue
		}
		if name := doc.Fields[ocr.FieldFullName]; name != "" && driver.FullName() != "" {
			fields[key(ocr.FieldFullName, docType)] = NameSimilarity(driver.FullName(), name)
		}
		if lic := doc.Fields[ocr.FieldLicenseNumber]; lic != "" && driver.LicenseNumber != nil {
			fields[key(ocr.FieldLicenseNumber, docType)] = exactScore(normalizeID(*driver.LicenseNumber), normalizeID(lic))
		}
		if dob := doc.Fields[ocr.FieldDateOfBirth]; dob != "" && driver.DateOfBirth != nil {
			fields[key(ocr.FieldDateOfBirth, docType)] = exactScore(driver.DateOfBirth.Format(dateLayout), dob)
		}
		if exp := doc.Fields[ocr.FieldExpiryDate]; exp != "" && driver.LicenseExpiryDate != nil {
			fields[key(ocr.FieldExpiryDate, docType)] = exactScore(driver.LicenseExpiryDate.Format(dateLayout), exp)
		}
		if iss := doc.Fields[ocr.FieldIssueDate]; iss != "" && driver.LicenseIssueDate != nil {
			fields[key(ocr.FieldIssueDate, docType)] = exactScore(driver.LicenseIssueDate.Format(dateLayout), iss)
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	scores := make([]float64, 0, len(keys))
	for _, k := range keys {
		scores = append(scores, fields[k])
	}
	return scoring.ValidationResults{Scores: scores, Fields: fields}
}

func key(field, docType string) string {
	return fmt.Sprintf("%s:%s", field, docType)
}

func exactScore(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

// normalizeID uppercases and drops separators OCR tends to mangle.
func normalizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NameSimilarity compares two person names ignoring case, punctuation and word order.
func NameSimilarity(a, b string) float64 {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	direct := levenshteinRatio(strings.Join(ta, " "), strings.Join(tb, " "))

	sort.Strings(ta)
	sort.Strings(tb)
	sorted := levenshteinRatio(strings.Join(ta, " "), strings.Join(tb, " "))

	if sorted > direct {
		return sorted
	}
	return direct
}

func nameTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func levenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
