package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/pkg/logger"
)

func setupTestDB(t *testing.T) *repository.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	db := &repository.DB{DB: gormDB}
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		_ = sqlDB.Close()
	})
	return db
}

func completedDonation(bankID uint, bloodType domain.BloodType, units int, date time.Time) *models.Donation {
	return &models.Donation{
		DonorID:      1,
		BloodBankID:  bankID,
		BloodType:    bloodType,
		Units:        units,
		DonationDate: date,
		Status:       models.DonationStatusCompleted,
	}
}

func TestAggregateDaily_NoDonations(t *testing.T) {
	db := setupTestDB(t)
	donationRepo := repository.NewDonationRepository(db)
	log := logger.New("error", "json", "stdout")
	service := NewService(donationRepo, log)

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	err := service.AggregateDaily(context.Background(), date)
	assert.NoError(t, err)

	var count int64
	db.Model(&models.DailyDonationStats{}).Count(&count)
	assert.Zero(t, count)
}

func TestAggregateDaily_GroupsByBankAndBloodType(t *testing.T) {
	db := setupTestDB(t)
	donationRepo := repository.NewDonationRepository(db)
	log := logger.New("error", "json", "stdout")
	service := NewService(donationRepo, log)

	day := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(completedDonation(1, domain.BloodOPos, 2, day)).Error)
	require.NoError(t, db.Create(completedDonation(1, domain.BloodOPos, 1, day.Add(2*time.Hour))).Error)
	require.NoError(t, db.Create(completedDonation(1, domain.BloodANeg, 3, day)).Error)
	require.NoError(t, db.Create(completedDonation(2, domain.BloodOPos, 1, day)).Error)
	// Donations outside the day or not completed are ignored.
	require.NoError(t, db.Create(completedDonation(1, domain.BloodOPos, 5, day.AddDate(0, 0, 1))).Error)
	pending := completedDonation(1, domain.BloodOPos, 5, day)
	pending.Status = models.DonationStatusPending
	require.NoError(t, db.Create(pending).Error)

	require.NoError(t, service.AggregateDaily(context.Background(), day))

	var rows []models.DailyDonationStats
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 3)

	byKey := make(map[statsKey]models.DailyDonationStats)
	for _, row := range rows {
		byKey[statsKey{bankID: row.BloodBankID, bloodType: row.BloodType}] = row
	}

	opos := byKey[statsKey{bankID: 1, bloodType: domain.BloodOPos}]
	assert.Equal(t, 2, opos.Donations)
	assert.Equal(t, 3, opos.Units)

	aneg := byKey[statsKey{bankID: 1, bloodType: domain.BloodANeg}]
	assert.Equal(t, 1, aneg.Donations)
	assert.Equal(t, 3, aneg.Units)
}

func TestAggregateDaily_RerunReplacesRows(t *testing.T) {
	db := setupTestDB(t)
	donationRepo := repository.NewDonationRepository(db)
	log := logger.New("error", "json", "stdout")
	service := NewService(donationRepo, log)

	day := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(completedDonation(1, domain.BloodOPos, 2, day)).Error)

	require.NoError(t, service.AggregateDaily(context.Background(), day))
	require.NoError(t, db.Create(completedDonation(1, domain.BloodOPos, 1, day.Add(time.Hour))).Error)
	require.NoError(t, service.AggregateDaily(context.Background(), day))

	var rows []models.DailyDonationStats
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Donations)
	assert.Equal(t, 3, rows[0].Units)
}
