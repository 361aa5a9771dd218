package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		wantCode string
	}{
		{"Record not found for driver", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), "driver lookup", DriverNotFound},
		{"Record not found generic", gorm.ErrRecordNotFound, "document", ResourceNotFound},
		{"Postgres duplicate license", errors.New(`ERROR: duplicate key value violates unique constraint "idx_drivers_license_number" (SQLSTATE 23505)`), "kyc", DriverLicenseExists},
		{"SQLite duplicate email", errors.New("UNIQUE constraint failed: drivers.email"), "kyc", DriverEmailExists},
		{"Timeout", errors.New("dial tcp: i/o timeout"), "verification", InternalExternalAPI},
		{"Unknown", errors.New("boom"), "approve verification", InternalServerError},
		{"Nil", nil, "", InternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.wantCode, info.Code)
			assert.NotEmpty(t, info.Message)
			if tt.err != nil {
				assert.NotContains(t, info.Message, tt.err.Error())
			}
		})
	}
}
