package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/fleetverify-backend/config"
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/internal/app/service"
	"github.com/ikkim/fleetverify-backend/internal/db"
	"github.com/ikkim/fleetverify-backend/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var kycTestNow = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func setupKycControllerTest(t *testing.T, attemptsPerHour int) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	clock := ratelimit.NewFixedClock(kycTestNow)
	cfg := config.KYCConfig{
		MaxRetries:           3,
		RetryCooldown:        24 * time.Hour,
		StepAttemptsPerHour:  attemptsPerHour,
		RapidSubmissionLimit: 3,
	}
	svc := service.NewKycService(
		testDB,
		repository.NewDriverRepository(testDB),
		repository.NewDocumentRepository(testDB),
		repository.NewActivityLogRepository(testDB),
		ratelimit.NewHourlyLimiter(ratelimit.NewMemoryStore(clock), clock, "kyc:attempts", attemptsPerHour),
		clock,
		nil,
		cfg,
	)
	ctrl := NewKycController(svc)

	router := gin.New()
	router.GET("/kyc/:driver_id/steps/:step/check", ctrl.CheckStep)
	router.POST("/kyc/:driver_id/steps/:step", ctrl.SubmitStep)
	admin := router.Group("/admin", asAdmin)
	admin.POST("/drivers/:id/kyc/approve", ctrl.Approve)
	admin.POST("/drivers/:id/kyc/reject", ctrl.Reject)
	admin.GET("/drivers/:id/kyc", ctrl.Status)

	return router, testDB
}

func serve(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "fleetverify-test")
	req.Header.Set(TimezoneHeader, "Africa/Lagos")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestKycController_CheckStep(t *testing.T) {
	router, testDB := setupKycControllerTest(t, 5)

	fresh := seedDriver(t, testDB, "kyc-fresh@example.com", "08032220000", model.VerificationNotStarted)
	done := &model.Driver{FirstName: "Bola", LastName: "Ade", Email: "kyc-done@example.com", Phone: "08032220001", KycStatus: model.KycCompleted}
	require.NoError(t, testDB.Create(done).Error)

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantRedirect string
	}{
		{name: "first step allowed", path: fmt.Sprintf("/kyc/%d/steps/1/check", fresh.ID), wantStatus: http.StatusOK},
		{name: "skipping ahead", path: fmt.Sprintf("/kyc/%d/steps/3/check", fresh.ID), wantStatus: http.StatusForbidden, wantRedirect: "/kyc/step/1"},
		{name: "out of range step", path: fmt.Sprintf("/kyc/%d/steps/7/check", fresh.ID), wantStatus: http.StatusForbidden, wantRedirect: service.RedirectKycStatus},
		{name: "already completed", path: fmt.Sprintf("/kyc/%d/steps/1/check", done.ID), wantStatus: http.StatusForbidden, wantRedirect: service.RedirectDashboard},
		{name: "unknown driver", path: "/kyc/9999/steps/1/check", wantStatus: http.StatusNotFound},
		{name: "non numeric step", path: fmt.Sprintf("/kyc/%d/steps/two/check", fresh.ID), wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, "GET", tt.path, nil)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantRedirect != "" {
				decision := decode(t, w)["decision"].(map[string]interface{})
				assert.Equal(t, tt.wantRedirect, decision["redirect"])
			}
		})
	}
}

func TestKycController_CheckStep_RateLimited(t *testing.T) {
	router, testDB := setupKycControllerTest(t, 2)
	d := seedDriver(t, testDB, "kyc-rl@example.com", "08032220002", model.VerificationNotStarted)
	path := fmt.Sprintf("/kyc/%d/steps/1/check", d.ID)

	assert.Equal(t, http.StatusOK, serve(router, "GET", path, nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, "GET", path, nil).Code)

	w := serve(router, "GET", path, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "KYC_RATE_LIMITED", decode(t, w)["error"])
}

func TestKycController_SubmitStep(t *testing.T) {
	router, testDB := setupKycControllerTest(t, 20)
	d := seedDriver(t, testDB, "kyc-submit@example.com", "08032220003", model.VerificationNotStarted)
	path := fmt.Sprintf("/kyc/%d/steps/1", d.ID)

	w := serve(router, "POST", path, map[string]string{"license_number": "bad", "date_of_birth": "2015-01-01"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "KYC_VALIDATION_FAILED", body["error"])
	assert.Contains(t, body["errors"], "License number format is invalid.")
	assert.Contains(t, body["errors"], "You must be at least 18 years old.")

	w = serve(router, "POST", path, map[string]string{
		"license_number":      "LAG-12345-AB",
		"date_of_birth":       "1990-04-12",
		"license_issue_date":  "2020-01-10",
		"license_expiry_date": "2028-01-10",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	var reloaded model.Driver
	require.NoError(t, testDB.First(&reloaded, d.ID).Error)
	assert.Equal(t, model.KycInProgress, reloaded.KycStatus)
	assert.Equal(t, 1, reloaded.KycStep.Number())
	assert.Equal(t, "Africa/Lagos", reloaded.KycTimezone)

	w = serve(router, "POST", path, []string{"not", "an", "object"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKycController_Review(t *testing.T) {
	router, testDB := setupKycControllerTest(t, 5)

	pending := &model.Driver{FirstName: "Emeka", LastName: "Obi", Email: "kyc-review@example.com", Phone: "08032220004", KycStatus: model.KycPendingReview}
	require.NoError(t, testDB.Create(pending).Error)
	base := fmt.Sprintf("/admin/drivers/%d/kyc", pending.ID)

	w := serve(router, "POST", base+"/reject", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "KYC_REASON_REQUIRED", decode(t, w)["error"])

	w = serve(router, "POST", base+"/reject", map[string]string{"reason": "Passport photo is blurred"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// no longer pending review
	w = serve(router, "POST", base+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "KYC_NOT_PENDING_REVIEW", decode(t, w)["error"])

	w = serve(router, "GET", base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)["kyc"].(map[string]interface{})
	assert.Equal(t, "rejected", view["kyc_status"])
	assert.EqualValues(t, 1, view["retry_count"])
	assert.Equal(t, false, view["can_retry"])
	assert.Equal(t, "Passport photo is blurred", view["rejection_reason"])

	require.NoError(t, testDB.Model(&model.Driver{}).Where("id = ?", pending.ID).Update("kyc_status", model.KycPendingReview).Error)
	w = serve(router, "POST", base+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reloaded model.Driver
	require.NoError(t, testDB.First(&reloaded, pending.ID).Error)
	assert.Equal(t, model.KycCompleted, reloaded.KycStatus)

	assert.Equal(t, http.StatusNotFound, serve(router, "GET", "/admin/drivers/5555/kyc", nil).Code)
}
