package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ikkim/fleetverify-backend/config"
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

const batchSize = 500

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^(\+234|234|0)?[789][01]\d{8}$`)
)

// requiredColumns must appear in the header row; other known columns are optional.
var requiredColumns = []string{"first_name", "last_name", "email", "phone"}

// importReport summarises a sheet read.
type importReport struct {
	Drivers []model.Driver
	Skipped []string
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <drivers.xlsx>")
	}
	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	driverRepo := repository.NewDriverRepository(db.GetDB())

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer f.Close()

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	report, err := readDriversFromXLSX(f)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	for _, reason := range report.Skipped {
		fmt.Println("  skipped:", reason)
	}
	fmt.Printf("Drivers to import: %d (skipped %d)\n", len(report.Drivers), len(report.Skipped))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	if err := driverRepo.BulkCreate(report.Drivers, batchSize); err != nil {
		log.Fatal("Failed to bulk create drivers:", err)
	}
	fmt.Printf("Import completed successfully! Total drivers imported: %d\n", len(report.Drivers))
}

// readDriversFromXLSX reads the first sheet. Row 1 is a header naming the columns.
func readDriversFromXLSX(r io.Reader) (*importReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("missing required column %q", c)
		}
	}

	report := &importReport{}
	seenEmail := make(map[string]bool)
	seenPhone := make(map[string]bool)
	seenLicense := make(map[string]bool)

	for i, row := range rows[1:] {
		line := i + 2
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		d, reason := parseDriverRow(cell)
		if reason == "" {
			switch {
			case seenEmail[d.Email]:
				reason = "duplicate email " + d.Email
			case seenPhone[d.Phone]:
				reason = "duplicate phone " + d.Phone
			case d.LicenseNumber != nil && seenLicense[*d.LicenseNumber]:
				reason = "duplicate license " + *d.LicenseNumber
			}
		}
		if reason != "" {
			report.Skipped = append(report.Skipped, fmt.Sprintf("row %d: %s", line, reason))
			continue
		}

		seenEmail[d.Email] = true
		seenPhone[d.Phone] = true
		if d.LicenseNumber != nil {
			seenLicense[*d.LicenseNumber] = true
		}
		report.Drivers = append(report.Drivers, *d)
	}
	return report, nil
}

// parseDriverRow returns a driver or the reason the row was rejected.
func parseDriverRow(cell func(string) string) (*model.Driver, string) {
	d := &model.Driver{
		FirstName:             cell("first_name"),
		LastName:              cell("last_name"),
		Email:                 strings.ToLower(cell("email")),
		Phone:                 cell("phone"),
		Address:               cell("address"),
		EmergencyContactName:  cell("emergency_contact_name"),
		EmergencyContactPhone: cell("emergency_contact_phone"),
	}
	if d.FirstName == "" || d.LastName == "" {
		return nil, "missing name"
	}
	if !emailRe.MatchString(d.Email) {
		return nil, "invalid email " + d.Email
	}
	if !phoneRe.MatchString(d.Phone) {
		return nil, "invalid phone " + d.Phone
	}

	if v := strings.ToUpper(cell("license_number")); v != "" {
		d.LicenseNumber = &v
	}
	for name, dst := range map[string]**time.Time{
		"date_of_birth":       &d.DateOfBirth,
		"license_issue_date":  &d.LicenseIssueDate,
		"license_expiry_date": &d.LicenseExpiryDate,
	} {
		v := cell(name)
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Sprintf("invalid %s %q", name, v)
		}
		*dst = &t
	}
	return d, ""
}
