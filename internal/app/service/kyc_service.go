package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ikkim/fleetverify-backend/config"
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/internal/ratelimit"
	"github.com/ikkim/fleetverify-backend/pkg/events"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidKycStep             = errors.New("invalid kyc step")
	ErrKycNotPendingReview        = errors.New("kyc submission is not pending review")
	ErrKycRejectionReasonRequired = errors.New("kyc rejection reason is required")
)

const (
	RedirectDashboard = "/dashboard"
	RedirectKycStatus = "/kyc/status"

	minDriverAge  = 18
	maxDriverAge  = 80
	minAddressLen = 10

	FlagRapidSubmissions = "rapid_submissions"
	FlagUserAgentChanged = "user_agent_changed"
	FlagTimezoneChanged  = "timezone_changed"
)

var (
	licenseNumberRe = regexp.MustCompile(`^[A-Z0-9\-\/]{5,20}$`)
	nigerianPhoneRe = regexp.MustCompile(`^(\+234|234|0)?[789][01]\d{8}$`)

	documentLabels = map[model.DocumentType]string{
		model.DocumentDriverLicenseScan: "Driver license scan",
		model.DocumentNationalID:        "National ID",
		model.DocumentPassportPhoto:     "Passport photo",
	}
)

// KycStepRedirect is the path of onboarding step n.
func KycStepRedirect(n int) string {
	return fmt.Sprintf("/kyc/step/%d", n)
}

// StepData is the raw form submission of one KYC step.
type StepData map[string]string

func (d StepData) get(key string) string {
	return strings.TrimSpace(d[key])
}

type StepDecision struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

type SuspiciousFlag struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

type StepResult struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Decision StepDecision     `json:"decision"`
	Errors   []string         `json:"errors,omitempty"`
	Flags    []SuspiciousFlag `json:"flags,omitempty"`
	Driver   *model.Driver    `json:"driver,omitempty"`
	Err      error            `json:"-"`
}

type KycStatusView struct {
	DriverID        uint            `json:"driver_id"`
	KycStatus       model.KycStatus `json:"kyc_status"`
	KycStep         model.KycStep   `json:"kyc_step"`
	CurrentStep     int             `json:"current_step"`
	NextStep        int             `json:"next_step"`
	RetryCount      int             `json:"retry_count"`
	CanRetry        bool            `json:"can_retry"`
	HoursUntilRetry int             `json:"hours_until_retry,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
}

type KycService interface {
	CanProceedToStep(ctx context.Context, driver *model.Driver, step int, rc RequestContext) StepDecision
	CheckStep(ctx context.Context, driverID uint, step int, rc RequestContext) (StepDecision, error)
	ValidateStepData(step int, data StepData, driver *model.Driver) ValidationResult
	DetectSuspiciousActivity(ctx context.Context, driver *model.Driver, rc RequestContext) []SuspiciousFlag
	SubmitStep(ctx context.Context, driverID uint, step int, data StepData, rc RequestContext) *StepResult
	ApproveKyc(ctx context.Context, driverID uint, actor Actor, rc RequestContext) *StepResult
	RejectKyc(ctx context.Context, driverID uint, reason string, actor Actor, rc RequestContext) *StepResult
	GetStatus(driverID uint) (*KycStatusView, error)
}

type kycService struct {
	db           *gorm.DB
	driverRepo   repository.DriverRepository
	documentRepo repository.DocumentRepository
	activityRepo repository.ActivityLogRepository
	limiter      *ratelimit.HourlyLimiter
	clock        ratelimit.Clock
	publisher    events.Publisher
	cfg          config.KYCConfig
	validate     *validator.Validate
}

func NewKycService(
	db *gorm.DB,
	driverRepo repository.DriverRepository,
	documentRepo repository.DocumentRepository,
	activityRepo repository.ActivityLogRepository,
	limiter *ratelimit.HourlyLimiter,
	clock ratelimit.Clock,
	publisher events.Publisher,
	cfg config.KYCConfig,
) KycService {
	if clock == nil {
		clock = ratelimit.SystemClock{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &kycService{
		db:           db,
		driverRepo:   driverRepo,
		documentRepo: documentRepo,
		activityRepo: activityRepo,
		limiter:      limiter,
		clock:        clock,
		publisher:    publisher,
		cfg:          cfg,
		validate:     validator.New(),
	}
}

// CanProceedToStep runs the gate checks in order and stops at the first denial.
func (s *kycService) CanProceedToStep(ctx context.Context, driver *model.Driver, step int, rc RequestContext) StepDecision {
	if step < 1 || step > 3 {
		return StepDecision{Reason: "Invalid KYC step.", Redirect: RedirectKycStatus}
	}

	if driver.KycStatus == model.KycCompleted {
		return StepDecision{Reason: "KYC verification is already completed.", Redirect: RedirectDashboard}
	}

	if driver.KycStatus == model.KycRejected {
		if ok, reason, _ := s.retryEligibility(driver); !ok {
			return StepDecision{Reason: reason, Redirect: RedirectKycStatus}
		}
	}

	if s.limiter != nil {
		decision, err := s.limiter.Hit(ctx, rc.IP)
		if err != nil {
			// counter store outage: let the driver through
			logger.Error("KYC rate limiter unavailable", err, map[string]interface{}{
				"driver_id": driver.ID,
				"ip":        rc.IP,
			})
		} else if !decision.Allowed {
			return StepDecision{Reason: "Too many attempts. Please try again later."}
		}
	}

	current := driver.KycStep.Number()
	if step > current+1 {
		next := current + 1
		if next > 3 {
			next = 3
		}
		return StepDecision{
			Reason:   fmt.Sprintf("Please complete step %d first.", next),
			Redirect: KycStepRedirect(next),
		}
	}

	return StepDecision{Allowed: true}
}

// CheckStep loads the driver and runs the gate for step.
func (s *kycService) CheckStep(ctx context.Context, driverID uint, step int, rc RequestContext) (StepDecision, error) {
	driver, err := s.driverRepo.FindByID(driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StepDecision{}, ErrDriverNotFound
		}
		return StepDecision{}, err
	}
	return s.CanProceedToStep(ctx, driver, step, rc), nil
}

// retryEligibility applies to rejected drivers only.
func (s *kycService) retryEligibility(driver *model.Driver) (bool, string, int) {
	if driver.KycRetryCount >= s.cfg.MaxRetries {
		return false, "Maximum KYC attempts reached. Please contact support.", 0
	}
	if driver.KycReviewedAt == nil {
		return true, "", 0
	}
	remaining := driver.KycReviewedAt.Add(s.cfg.RetryCooldown).Sub(s.clock.Now())
	if remaining > 0 {
		hours := int(math.Ceil(remaining.Hours()))
		return false, fmt.Sprintf("You can retry KYC verification in %d hour(s).", hours), hours
	}
	return true, "", 0
}

// ValidateStepData collects every problem with a step submission.
func (s *kycService) ValidateStepData(step int, data StepData, driver *model.Driver) ValidationResult {
	var errs []string
	switch step {
	case 1:
		errs = s.validateStep1(data, driver)
	case 2:
		errs = s.validateStep2(data, driver)
	case 3:
		errs = s.validateStep3(data, driver)
	default:
		errs = []string{"Invalid KYC step."}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func (s *kycService) validateStep1(data StepData, driver *model.Driver) []string {
	var errs []string

	license := data.get("license_number")
	switch {
	case license == "":
		errs = append(errs, "License number is required.")
	case !licenseNumberRe.MatchString(license):
		errs = append(errs, "License number format is invalid.")
	default:
		if exists, err := s.driverRepo.ExistsByLicenseNumber(license, driver.ID); err != nil {
			errs = append(errs, "Unable to verify license number. Please try again.")
		} else if exists {
			errs = append(errs, "This license number is already registered.")
		}
	}

	dobRaw := data.get("date_of_birth")
	if dobRaw == "" {
		errs = append(errs, "Date of birth is required.")
	} else if dob, err := time.Parse(dateLayout, dobRaw); err != nil {
		errs = append(errs, "Date of birth is invalid.")
	} else {
		age := ageOn(dob, s.clock.Now())
		if age < minDriverAge {
			errs = append(errs, fmt.Sprintf("You must be at least %d years old.", minDriverAge))
		} else if age > maxDriverAge {
			errs = append(errs, "Please verify your date of birth.")
		}
	}

	issueRaw, expiryRaw := data.get("license_issue_date"), data.get("license_expiry_date")
	if issueRaw != "" && expiryRaw != "" {
		issue, errIssue := time.Parse(dateLayout, issueRaw)
		expiry, errExpiry := time.Parse(dateLayout, expiryRaw)
		switch {
		case errIssue != nil:
			errs = append(errs, "License issue date is invalid.")
		case errExpiry != nil:
			errs = append(errs, "License expiry date is invalid.")
		default:
			if !expiry.After(issue) {
				errs = append(errs, "License expiry date must be after the issue date.")
			}
			if expiry.Before(s.clock.Now()) {
				errs = append(errs, "License has already expired.")
			}
		}
	}
	return errs
}

func (s *kycService) validateStep2(data StepData, driver *model.Driver) []string {
	var errs []string

	email := data.get("email")
	switch {
	case email == "":
		errs = append(errs, "Email address is required.")
	case s.validate.Var(email, "email") != nil:
		errs = append(errs, "Email address format is invalid.")
	default:
		if exists, err := s.driverRepo.ExistsByEmail(email, driver.ID); err != nil {
			errs = append(errs, "Unable to verify email address. Please try again.")
		} else if exists {
			errs = append(errs, "This email address is already registered.")
		}
	}

	phone := data.get("phone")
	switch {
	case phone == "":
		errs = append(errs, "Phone number is required.")
	case !nigerianPhoneRe.MatchString(phone):
		errs = append(errs, "Phone number must be a valid Nigerian mobile number.")
	default:
		if exists, err := s.driverRepo.ExistsByPhone(phone, driver.ID); err != nil {
			errs = append(errs, "Unable to verify phone number. Please try again.")
		} else if exists {
			errs = append(errs, "This phone number is already registered.")
		}
	}

	if emergency := data.get("emergency_contact_phone"); emergency != "" && phone != "" {
		if nationalNumber(emergency) == nationalNumber(phone) {
			errs = append(errs, "Emergency contact phone must be different from your phone number.")
		}
	}

	if address := data.get("address"); address != "" && len([]rune(address)) < minAddressLen {
		errs = append(errs, fmt.Sprintf("Address must be at least %d characters.", minAddressLen))
	}
	return errs
}

func (s *kycService) validateStep3(data StepData, driver *model.Driver) []string {
	var errs []string

	existing := make(map[model.DocumentType]bool)
	if driver.ID != 0 {
		docs, err := s.documentRepo.FindActiveByDriverID(driver.ID)
		if err != nil {
			return []string{"Unable to load uploaded documents. Please try again."}
		}
		for _, d := range docs {
			existing[d.DocumentType] = true
		}
	}

	for _, dt := range model.RequiredKycDocuments {
		if !existing[dt] && data.get(string(dt)) == "" {
			errs = append(errs, documentLabels[dt]+" is required.")
		}
	}

	if data["terms_accepted"] != "1" {
		errs = append(errs, "You must accept the terms and conditions.")
	}
	if data["data_consent"] != "1" {
		errs = append(errs, "You must consent to the processing of your data.")
	}
	return errs
}

// DetectSuspiciousActivity never blocks; flags are logged and recorded in the activity log.
func (s *kycService) DetectSuspiciousActivity(ctx context.Context, driver *model.Driver, rc RequestContext) []SuspiciousFlag {
	var flags []SuspiciousFlag

	if s.limiter != nil && rc.IP != "" {
		if count, err := s.limiter.Count(ctx, rc.IP); err == nil && count > int64(s.cfg.RapidSubmissionLimit) {
			flags = append(flags, SuspiciousFlag{
				Code:   FlagRapidSubmissions,
				Detail: fmt.Sprintf("%d attempts from %s this hour", count, rc.IP),
			})
		}
	}
	if driver.KycUserAgent != "" && rc.UserAgent != "" && driver.KycUserAgent != rc.UserAgent {
		flags = append(flags, SuspiciousFlag{Code: FlagUserAgentChanged, Detail: "user agent differs from previous KYC session"})
	}
	if driver.KycTimezone != "" && rc.Timezone != "" && driver.KycTimezone != rc.Timezone {
		flags = append(flags, SuspiciousFlag{
			Code:   FlagTimezoneChanged,
			Detail: fmt.Sprintf("timezone changed from %s to %s", driver.KycTimezone, rc.Timezone),
		})
	}

	if len(flags) == 0 {
		return nil
	}

	codes := make([]string, 0, len(flags))
	for _, f := range flags {
		codes = append(codes, f.Code)
	}
	logger.Warn("Suspicious KYC activity detected", map[string]interface{}{
		"driver_id": driver.ID,
		"ip":        rc.IP,
		"flags":     codes,
	})

	entry, err := newActivity(model.ActivityKycSuspicious, driver.ID, Actor{Name: "kyc-monitor"}, rc,
		"Suspicious KYC activity: "+strings.Join(codes, ", "),
		map[string]interface{}{"flags": flags})
	if err == nil {
		err = s.activityRepo.Create(entry)
	}
	if err != nil {
		logger.Warn("Failed to record suspicious KYC activity", map[string]interface{}{
			"driver_id": driver.ID,
			"error":     err.Error(),
		})
	}
	return flags
}

// SubmitStep gates, validates and stores one onboarding step.
func (s *kycService) SubmitStep(ctx context.Context, driverID uint, step int, data StepData, rc RequestContext) *StepResult {
	driver, err := s.driverRepo.FindByID(driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &StepResult{Message: ErrDriverNotFound.Error(), Err: ErrDriverNotFound}
		}
		return &StepResult{Message: "Failed to load driver", Err: err}
	}

	decision := s.CanProceedToStep(ctx, driver, step, rc)
	if !decision.Allowed {
		logger.Info("KYC step denied", map[string]interface{}{
			"driver_id": driverID,
			"step":      step,
			"reason":    decision.Reason,
		})
		return &StepResult{Message: decision.Reason, Decision: decision}
	}

	flags := s.DetectSuspiciousActivity(ctx, driver, rc)

	validation := s.ValidateStepData(step, data, driver)
	if !validation.Valid {
		return &StepResult{
			Message:  "Please correct the highlighted errors.",
			Decision: decision,
			Errors:   validation.Errors,
			Flags:    flags,
		}
	}

	updated, err := s.persistStep(driverID, step, data, rc)
	if err != nil {
		return &StepResult{Message: "Failed to save KYC step", Decision: decision, Flags: flags, Err: err}
	}

	if step == 3 {
		s.publish(ctx, events.TypeKycSubmitted, updated, nil)
	}

	return &StepResult{
		Success:  true,
		Message:  fmt.Sprintf("Step %d saved.", step),
		Decision: decision,
		Flags:    flags,
		Driver:   updated,
	}
}

func (s *kycService) persistStep(driverID uint, step int, data StepData, rc RequestContext) (*model.Driver, error) {
	now := s.clock.Now().UTC()

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during KYC step save, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"driver_id": driverID,
			})
		}
	}()

	var driver model.Driver
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&driver, driverID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	updates := map[string]interface{}{
		"kyc_last_activity_at": now,
		"kyc_user_agent":       rc.UserAgent,
		"kyc_timezone":         rc.Timezone,
		"kyc_ip_address":       rc.IP,
	}
	if step > driver.KycStep.Number() {
		updates["kyc_step"] = model.KycStepFromNumber(step)
	}
	if driver.KycStatus == model.KycNotStarted || driver.KycStatus == model.KycRejected {
		updates["kyc_status"] = model.KycInProgress
	}

	switch step {
	case 1:
		updates["license_number"] = data.get("license_number")
		dob, _ := time.Parse(dateLayout, data.get("date_of_birth"))
		updates["date_of_birth"] = dob
		if t, err := time.Parse(dateLayout, data.get("license_issue_date")); err == nil {
			updates["license_issue_date"] = t
		}
		if t, err := time.Parse(dateLayout, data.get("license_expiry_date")); err == nil {
			updates["license_expiry_date"] = t
		}
	case 2:
		updates["email"] = data.get("email")
		updates["phone"] = data.get("phone")
		for _, field := range []string{"first_name", "last_name", "address", "emergency_contact_name", "emergency_contact_phone"} {
			if v := data.get(field); v != "" {
				updates[field] = v
			}
		}
	case 3:
		for _, dt := range model.RequiredKycDocuments {
			key := data.get(string(dt))
			if key == "" {
				continue
			}
			var current []model.DriverDocument
			if err := tx.Where("driver_id = ? AND document_type = ? AND status NOT IN ?", driverID, dt, model.InactiveDocumentStatuses).
				Find(&current).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			unchanged := false
			var superseded []uint
			for _, d := range current {
				if d.FileKey == key {
					unchanged = true
					continue
				}
				superseded = append(superseded, d.ID)
			}
			if len(superseded) > 0 {
				if err := tx.Model(&model.DriverDocument{}).Where("id IN ?", superseded).
					Update("status", model.DocumentSuperseded).Error; err != nil {
					tx.Rollback()
					logger.Error("Failed to supersede KYC document", err, map[string]interface{}{
						"driver_id":     driverID,
						"document_type": dt,
					})
					return nil, err
				}
			}
			if unchanged {
				continue
			}
			doc := &model.DriverDocument{
				DriverID:     driverID,
				DocumentType: dt,
				FileKey:      key,
				Status:       model.DocumentPending,
			}
			if err := tx.Create(doc).Error; err != nil {
				tx.Rollback()
				logger.Error("Failed to store KYC document", err, map[string]interface{}{
					"driver_id":     driverID,
					"document_type": dt,
				})
				return nil, err
			}
		}
		updates["kyc_status"] = model.KycPendingReview
		updates["kyc_submitted_at"] = now
		updates["kyc_rejection_reason"] = ""
	}

	if err := tx.Model(&model.Driver{}).Where("id = ?", driverID).Updates(updates).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to update driver KYC step", err, map[string]interface{}{
			"driver_id": driverID,
			"step":      step,
		})
		return nil, err
	}

	entry, err := newActivity(model.ActivityKycStepSubmitted, driverID, Actor{Name: driver.FullName()}, rc,
		fmt.Sprintf("KYC step %d submitted", step), map[string]interface{}{"step": step})
	if err == nil {
		err = tx.Create(entry).Error
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.First(&driver, driverID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit KYC step", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return nil, err
	}

	logger.Info("KYC step saved", map[string]interface{}{
		"driver_id":  driverID,
		"step":       step,
		"kyc_status": driver.KycStatus,
	})
	return &driver, nil
}

func (s *kycService) ApproveKyc(ctx context.Context, driverID uint, actor Actor, rc RequestContext) *StepResult {
	return s.review(ctx, driverID, actor, rc, func(driver *model.Driver, now time.Time) (map[string]interface{}, *model.ActivityLog, error) {
		entry, err := newActivity(model.ActivityKycApproved, driverID, actor, rc, "KYC approved", nil)
		return map[string]interface{}{
			"kyc_status":           model.KycCompleted,
			"kyc_step":             model.KycStepCompleted,
			"kyc_reviewed_at":      now,
			"kyc_rejection_reason": "",
		}, entry, err
	})
}

func (s *kycService) RejectKyc(ctx context.Context, driverID uint, reason string, actor Actor, rc RequestContext) *StepResult {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return &StepResult{Message: ErrKycRejectionReasonRequired.Error(), Err: ErrKycRejectionReasonRequired}
	}
	return s.review(ctx, driverID, actor, rc, func(driver *model.Driver, now time.Time) (map[string]interface{}, *model.ActivityLog, error) {
		entry, err := newActivity(model.ActivityKycRejected, driverID, actor, rc, "KYC rejected: "+reason, map[string]interface{}{
			"retry_count": driver.KycRetryCount + 1,
		})
		return map[string]interface{}{
			"kyc_status":           model.KycRejected,
			"kyc_retry_count":      driver.KycRetryCount + 1,
			"kyc_reviewed_at":      now,
			"kyc_rejection_reason": reason,
		}, entry, err
	})
}

// review applies an admin decision to a submission that is pending review.
func (s *kycService) review(
	ctx context.Context,
	driverID uint,
	actor Actor,
	rc RequestContext,
	build func(driver *model.Driver, now time.Time) (map[string]interface{}, *model.ActivityLog, error),
) *StepResult {
	now := s.clock.Now().UTC()

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during KYC review, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"driver_id": driverID,
			})
		}
	}()

	var driver model.Driver
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&driver, driverID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &StepResult{Message: ErrDriverNotFound.Error(), Err: ErrDriverNotFound}
		}
		return &StepResult{Message: "Failed to load driver", Err: err}
	}

	if driver.KycStatus != model.KycPendingReview {
		tx.Rollback()
		logger.Warn("KYC review on submission not pending review", map[string]interface{}{
			"driver_id":  driverID,
			"kyc_status": driver.KycStatus,
		})
		return &StepResult{Message: ErrKycNotPendingReview.Error(), Err: ErrKycNotPendingReview}
	}

	updates, entry, err := build(&driver, now)
	if err != nil {
		tx.Rollback()
		logger.Error("Failed to build KYC review", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return &StepResult{Message: "Failed to save KYC review", Err: err}
	}
	if err := tx.Model(&model.Driver{}).Where("id = ?", driverID).Updates(updates).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to update KYC review", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return &StepResult{Message: "Failed to save KYC review", Err: err}
	}
	if err := tx.Create(entry).Error; err != nil {
		tx.Rollback()
		return &StepResult{Message: "Failed to save KYC review", Err: err}
	}
	if err := tx.First(&driver, driverID).Error; err != nil {
		tx.Rollback()
		return &StepResult{Message: "Failed to save KYC review", Err: err}
	}
	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit KYC review", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return &StepResult{Message: "Failed to save KYC review", Err: err}
	}

	logger.Info("KYC reviewed", map[string]interface{}{
		"driver_id":  driverID,
		"kyc_status": driver.KycStatus,
		"actor":      actor.Name,
	})
	s.publish(ctx, events.TypeKycReviewed, &driver, actor.ID)

	return &StepResult{Success: true, Message: "KYC " + string(driver.KycStatus), Decision: StepDecision{Allowed: true}, Driver: &driver}
}

func (s *kycService) publish(ctx context.Context, eventType string, driver *model.Driver, actorID *uint) {
	event := events.VerificationEvent{
		Type:       eventType,
		DriverID:   driver.ID,
		Status:     string(driver.KycStatus),
		ActorID:    actorID,
		OccurredAt: s.clock.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish KYC event", map[string]interface{}{
			"driver_id": driver.ID,
			"error":     err.Error(),
		})
	}
}

func (s *kycService) GetStatus(driverID uint) (*KycStatusView, error) {
	driver, err := s.driverRepo.FindByID(driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}

	current := driver.KycStep.Number()
	view := &KycStatusView{
		DriverID:        driver.ID,
		KycStatus:       driver.KycStatus,
		KycStep:         driver.KycStep,
		CurrentStep:     current,
		RetryCount:      driver.KycRetryCount,
		RejectionReason: driver.KycRejectionReason,
	}
	if current < 3 {
		view.NextStep = current + 1
	}
	if driver.KycStatus == model.KycRejected {
		view.CanRetry, _, view.HoursUntilRetry = s.retryEligibility(driver)
	}
	return view, nil
}

// ageOn is the number of full years between dob and now.
func ageOn(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// nationalNumber strips the +234/234/0 prefix so equivalent spellings compare equal.
func nationalNumber(phone string) string {
	p := strings.TrimSpace(phone)
	for _, prefix := range []string{"+234", "234", "0"} {
		if strings.HasPrefix(p, prefix) {
			return strings.TrimPrefix(p, prefix)
		}
	}
	return p
}
