package quota

import (
	"testing"
	"time"

	"github.com/faridopz/repurpose-smart/internal/pkg/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/test"
	"github.com/faridopz/repurpose-smart/internal/pkg/test/mocks"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	dbMock *mocks.DB
	tr     *Tracker
)

func initTest(t *testing.T) {
	t.Helper()
	dbMock = &mocks.DB{}
	var err error
	tr, err = NewTracker(dbMock)
	require.Nil(t, err)
	tr.now = func() time.Time { return time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC) }
}

func TestNewTracker_Fails(t *testing.T) {
	_, err := NewTracker(nil)
	assert.NotNil(t, err)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, 5, Limit(api.TierFree))
	assert.Equal(t, 30, Limit(api.TierPro))
	assert.Equal(t, Unlimited, Limit(api.TierEnterprise))
	assert.Equal(t, 5, Limit("olia"))
}

func TestUse(t *testing.T) {
	initTest(t)
	dbMock.On("LoadQuota", mock.Anything, "u1").Return(
		&persistence.QuotaCounter{UserID: "u1", ClipsThisMonth: 2, LastReset: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}, nil)
	dbMock.On("AddQuotaUsage", mock.Anything, "u1", 3, 5).Return(true, nil)

	err := tr.Use(test.Ctx(t), "u1", api.TierFree, 3)

	assert.Nil(t, err)
	dbMock.AssertNotCalled(t, "ResetQuota", mock.Anything, mock.Anything, mock.Anything)
}

func TestUse_LimitReached(t *testing.T) {
	initTest(t)
	dbMock.On("LoadQuota", mock.Anything, "u1").Return(
		&persistence.QuotaCounter{UserID: "u1", ClipsThisMonth: 5, LastReset: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}, nil)
	dbMock.On("AddQuotaUsage", mock.Anything, "u1", 1, 5).Return(false, nil)

	err := tr.Use(test.Ctx(t), "u1", api.TierFree, 1)

	require.NotNil(t, err)
	var eq *utils.ErrQuotaLimit
	require.ErrorAs(t, err, &eq)
	assert.Equal(t, api.TierFree, eq.Tier)
	assert.Equal(t, 5, eq.Limit)
}

func TestUse_RollsOver(t *testing.T) {
	initTest(t)
	dbMock.On("LoadQuota", mock.Anything, "u1").Return(
		&persistence.QuotaCounter{UserID: "u1", ClipsThisMonth: 5, LastReset: time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)}, nil)
	dbMock.On("ResetQuota", mock.Anything, "u1", mock.Anything).Return(nil)
	dbMock.On("AddQuotaUsage", mock.Anything, "u1", 1, 5).Return(true, nil)

	err := tr.Use(test.Ctx(t), "u1", api.TierFree, 1)

	assert.Nil(t, err)
	dbMock.AssertCalled(t, "ResetQuota", mock.Anything, "u1", mock.Anything)
}

func TestUse_NoCounterYet(t *testing.T) {
	initTest(t)
	dbMock.On("LoadQuota", mock.Anything, "u1").Return(nil, nil)
	dbMock.On("AddQuotaUsage", mock.Anything, "u1", 4, 30).Return(true, nil)

	err := tr.Use(test.Ctx(t), "u1", api.TierPro, 4)

	assert.Nil(t, err)
	dbMock.AssertNotCalled(t, "ResetQuota", mock.Anything, mock.Anything, mock.Anything)
}

func TestUse_Unlimited(t *testing.T) {
	initTest(t)
	dbMock.On("LoadQuota", mock.Anything, "u1").Return(nil, nil)
	dbMock.On("AddQuotaUsage", mock.Anything, "u1", 100, Unlimited).Return(true, nil)

	err := tr.Use(test.Ctx(t), "u1", api.TierEnterprise, 100)

	assert.Nil(t, err)
}

func TestRemaining(t *testing.T) {
	initTest(t)
	dbMock.On("LoadQuota", mock.Anything, "u1").Return(
		&persistence.QuotaCounter{UserID: "u1", ClipsThisMonth: 3, LastReset: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}, nil)

	r, err := tr.Remaining(test.Ctx(t), "u1", api.TierFree)

	assert.Nil(t, err)
	assert.Equal(t, 2, r)
}

func TestRemaining_Unlimited(t *testing.T) {
	initTest(t)

	r, err := tr.Remaining(test.Ctx(t), "u1", api.TierEnterprise)

	assert.Nil(t, err)
	assert.Equal(t, Unlimited, r)
	dbMock.AssertNotCalled(t, "LoadQuota", mock.Anything, mock.Anything)
}

func TestRemaining_Exhausted(t *testing.T) {
	initTest(t)
	dbMock.On("LoadQuota", mock.Anything, "u1").Return(
		&persistence.QuotaCounter{UserID: "u1", ClipsThisMonth: 10, LastReset: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}, nil)

	r, err := tr.Remaining(test.Ctx(t), "u1", api.TierFree)

	assert.Nil(t, err)
	assert.Equal(t, 0, r)
}
