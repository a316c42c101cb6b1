package plans

import (
	"context"
	"testing"

	"vaultyield-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPlansTest(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.InvestmentPlan{}))
	return &Service{DB: db}
}

func TestSeed_InsertsCatalogOnce(t *testing.T) {
	svc := setupPlansTest(t)

	require.NoError(t, Seed(svc.DB))
	require.NoError(t, Seed(svc.DB))

	catalog, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 3)

	assert.Equal(t, "Starter", catalog[0].Name)
	assert.Equal(t, 1, catalog[0].Level)
	assert.True(t, catalog[0].MinimumInvestment.Equal(decimal.NewFromInt(10)))
	assert.True(t, catalog[0].DailyReturn.Equal(decimal.RequireFromString("0.05")))

	assert.Equal(t, "Advanced", catalog[1].Name)
	assert.True(t, catalog[1].DailyReturn.Equal(decimal.RequireFromString("0.1")))

	assert.Equal(t, "Premium", catalog[2].Name)
	assert.Equal(t, 3, catalog[2].Level)
	assert.Nil(t, catalog[2].MaximumInvestment)
}

func TestList_SkipsInactivePlans(t *testing.T) {
	svc := setupPlansTest(t)
	require.NoError(t, Seed(svc.DB))
	require.NoError(t, svc.DB.Model(&domain.InvestmentPlan{}).
		Where("level = ?", 2).
		Update("is_active", false).Error)

	catalog, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, []int{1, 3}, []int{catalog[0].Level, catalog[1].Level})
}

func TestCreate_Validations(t *testing.T) {
	svc := setupPlansTest(t)

	_, err := svc.Create(context.Background(), CreateInput{
		Name:              "",
		MinimumInvestment: decimal.NewFromInt(10),
		DailyReturn:       decimal.RequireFromString("0.05"),
		Level:             1,
	})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = svc.Create(context.Background(), CreateInput{
		Name:              "Zero rate",
		MinimumInvestment: decimal.NewFromInt(10),
		DailyReturn:       decimal.Zero,
		Level:             1,
	})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	small := decimal.NewFromInt(5)
	_, err = svc.Create(context.Background(), CreateInput{
		Name:              "Max below min",
		MinimumInvestment: decimal.NewFromInt(10),
		MaximumInvestment: &small,
		DailyReturn:       decimal.RequireFromString("0.05"),
		Level:             1,
	})
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestCreate_RejectsDuplicateLevel(t *testing.T) {
	svc := setupPlansTest(t)
	require.NoError(t, Seed(svc.DB))

	_, err := svc.Create(context.Background(), CreateInput{
		Name:              "Shadow tier",
		MinimumInvestment: decimal.NewFromInt(100),
		DailyReturn:       decimal.RequireFromString("0.2"),
		Level:             3,
	})
	assert.ErrorIs(t, err, ErrDuplicateLevel)
}
