package ocr

import (
	"regexp"
	"strings"
	"time"
)

const (
	FieldFullName      = "full_name"
	FieldLicenseNumber = "license_number"
	FieldDateOfBirth   = "date_of_birth"
	FieldExpiryDate    = "expiry_date"
	FieldIssueDate     = "issue_date"
	FieldIDNumber      = "id_number"
	FieldPlateNumber   = "plate_number"
	FieldPolicyNumber  = "policy_number"
)

var (
	nameRe     = regexp.MustCompile(`(?im)^\s*(?:full\s*name|name|surname\s*/\s*given\s*names?)\s*[:\-]?\s*([A-Z][A-Z' \-]{2,60})\s*$`)
	licenseRe  = regexp.MustCompile(`(?i)licen[cs]e\s*(?:no|number|#)?\.?\s*[:\-]?\s*([A-Z0-9\-/]{5,20})`)
	dobRe      = regexp.MustCompile(`(?i)(?:d\.?o\.?b\.?|date\s*of\s*birth|birth\s*date)\s*[:\-]?\s*([0-9]{1,4}[/\-.][0-9]{1,2}[/\-.][0-9]{1,4})`)
	expiryRe   = regexp.MustCompile(`(?i)(?:exp(?:iry|\.)?(?:\s*date)?|valid\s*until)\s*[:\-]?\s*([0-9]{1,4}[/\-.][0-9]{1,2}[/\-.][0-9]{1,4})`)
	issueRe    = regexp.MustCompile(`(?i)(?:issue(?:d)?(?:\s*date)?|date\s*of\s*issue)\s*[:\-]?\s*([0-9]{1,4}[/\-.][0-9]{1,2}[/\-.][0-9]{1,4})`)
	ninRe      = regexp.MustCompile(`(?i)(?:nin|national\s*id(?:entification)?\s*(?:no|number)?)\.?\s*[:\-]?\s*([0-9]{11})`)
	plateRe    = regexp.MustCompile(`(?i)(?:plate|reg(?:istration)?)\s*(?:no|number)?\.?\s*[:\-]?\s*([A-Z]{2,3}[\- ]?[0-9]{2,4}[\- ]?[A-Z]{0,3})`)
	policyRe   = regexp.MustCompile(`(?i)policy\s*(?:no|number)?\.?\s*[:\-]?\s*([A-Z0-9\-/]{5,30})`)
	dateLayout = []string{"02/01/2006", "2/1/2006", "02-01-2006", "02.01.2006", "2006-01-02", "2006/01/02"}
)

// ExtractFields pulls the fields each document type is cross-checked on. Unknown types yield no fields.
func ExtractFields(documentType, text string) map[string]string {
	fields := make(map[string]string)
	set := func(key string, re *regexp.Regexp) {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			fields[key] = strings.TrimSpace(m[1])
		}
	}
	setDate := func(key string, re *regexp.Regexp) {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			if d, ok := ParseDate(m[1]); ok {
				fields[key] = d.Format("2006-01-02")
			}
		}
	}

	switch documentType {
	case "driver_license_scan":
		set(FieldFullName, nameRe)
		set(FieldLicenseNumber, licenseRe)
		setDate(FieldDateOfBirth, dobRe)
		setDate(FieldIssueDate, issueRe)
		setDate(FieldExpiryDate, expiryRe)
	case "national_id":
		set(FieldFullName, nameRe)
		set(FieldIDNumber, ninRe)
		setDate(FieldDateOfBirth, dobRe)
	case "vehicle_registration":
		set(FieldPlateNumber, plateRe)
		set(FieldFullName, nameRe)
	case "insurance_certificate":
		set(FieldPolicyNumber, policyRe)
		setDate(FieldExpiryDate, expiryRe)
	}

	if v, ok := fields[FieldLicenseNumber]; ok {
		fields[FieldLicenseNumber] = strings.ToUpper(v)
	}
	return fields
}

// ParseDate accepts the day-first and ISO layouts printed on Nigerian documents.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayout {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
