package repository

import (
	"testing"
	"time"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAttemptTest(t *testing.T) (*gorm.DB, AttemptRepository, *model.Driver) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	driver := &model.Driver{FirstName: "Ngozi", LastName: "Eze", Email: "ngozi@example.com", Phone: "08031110000"}
	require.NoError(t, testDB.Create(driver).Error)

	return testDB, NewAttemptRepository(testDB), driver
}

func createAttempt(t *testing.T, testDB *gorm.DB, driverID uint, status model.VerificationStatus, at time.Time) *model.VerificationAttempt {
	a := &model.VerificationAttempt{
		DriverID:           driverID,
		VerificationType:   model.VerificationTypeComplete,
		Status:             model.AttemptCompleted,
		VerificationStatus: status,
		PerformedAt:        at,
		CreatedAt:          at,
	}
	require.NoError(t, testDB.Create(a).Error)
	return a
}

func TestAttemptRepository_LogOrder(t *testing.T) {
	testDB, repo, driver := setupAttemptTest(t)
	defer db.CleanupTestDB(testDB)

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	createAttempt(t, testDB, driver.ID, model.VerificationFailed, base.Add(time.Hour))
	createAttempt(t, testDB, driver.ID, model.VerificationPending, base)
	// same timestamp as the first one; id decides
	last := createAttempt(t, testDB, driver.ID, model.VerificationVerified, base.Add(time.Hour))

	attempts, err := repo.FindByDriverID(driver.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, model.VerificationPending, attempts[0].VerificationStatus)
	assert.Equal(t, model.VerificationFailed, attempts[1].VerificationStatus)
	assert.Equal(t, model.VerificationVerified, attempts[2].VerificationStatus)

	latest, err := repo.FindLatestByDriverID(driver.ID)
	require.NoError(t, err)
	assert.Equal(t, last.ID, latest.ID)

	byDriver, err := repo.FindLatestByDriverIDs([]uint{driver.ID})
	require.NoError(t, err)
	assert.Equal(t, last.ID, byDriver[driver.ID].ID)
}

func TestAttemptRepository_Immutable(t *testing.T) {
	testDB, _, driver := setupAttemptTest(t)
	defer db.CleanupTestDB(testDB)

	a := createAttempt(t, testDB, driver.ID, model.VerificationPending, time.Now())
	a.Notes = "tampered"

	err := testDB.Save(a).Error
	assert.ErrorIs(t, err, model.ErrAttemptImmutable)

	var stored model.VerificationAttempt
	require.NoError(t, testDB.First(&stored, a.ID).Error)
	assert.Empty(t, stored.Notes)
}

func TestAttemptRepository_DeleteOlderThanKeepsLatest(t *testing.T) {
	testDB, repo, driver := setupAttemptTest(t)
	defer db.CleanupTestDB(testDB)

	other := &model.Driver{FirstName: "Old", LastName: "Only", Email: "old@example.com", Phone: "08031110001"}
	require.NoError(t, testDB.Create(other).Error)

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	old1 := createAttempt(t, testDB, driver.ID, model.VerificationFailed, now.AddDate(-2, 0, 0))
	old2 := createAttempt(t, testDB, driver.ID, model.VerificationPending, now.AddDate(-1, -1, 0))
	recent := createAttempt(t, testDB, driver.ID, model.VerificationVerified, now.AddDate(0, 0, -1))
	onlyOld := createAttempt(t, testDB, other.ID, model.VerificationFailed, now.AddDate(-3, 0, 0))

	deleted, err := repo.DeleteOlderThan(now.AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining []uint
	require.NoError(t, testDB.Model(&model.VerificationAttempt{}).Order("id").Pluck("id", &remaining).Error)
	assert.ElementsMatch(t, []uint{recent.ID, onlyOld.ID}, remaining)
	assert.NotContains(t, remaining, old1.ID)
	assert.NotContains(t, remaining, old2.ID)
}
