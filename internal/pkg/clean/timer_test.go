package clean

import (
	"context"
	"testing"
	"time"

	"github.com/faridopz/repurpose-smart/internal/pkg/test"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIDsProvider struct{ mock.Mock }

func (m *mockIDsProvider) GetExpired(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func initTimerTest(t *testing.T) (*TimerData, *mockIDsProvider, chan string) {
	prov := &mockIDsProvider{}
	prov.On("GetExpired", mock.Anything).Return([]string{"m1", "m2"}, nil)
	cleaned := make(chan string, 100)
	cl := &mockCleaner{}
	cl.On("Clean", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		cleaned <- args.String(1)
	})
	return &TimerData{RunEvery: 10 * time.Millisecond, IDsProvider: prov, Cleaner: cl}, prov, cleaned
}

func TestTimer_Cleans(t *testing.T) {
	data, _, cleaned := initTimerTest(t)
	ctx, cf := context.WithCancel(test.Ctx(t))
	done, err := StartCleanTimer(ctx, data)
	require.Nil(t, err)
	waitCleaned(t, cleaned, "m1")
	waitCleaned(t, cleaned, "m2")
	cf()
	select {
	case <-done:
	case <-test.Ctx(t).Done():
		require.Fail(t, "timer did not stop")
	}
}

func TestTimer_SurvivesProviderFailure(t *testing.T) {
	data, prov, cleaned := initTimerTest(t)
	prov.ExpectedCalls = nil
	prov.On("GetExpired", mock.Anything).Return(nil, errors.New("olia")).Once()
	prov.On("GetExpired", mock.Anything).Return([]string{"m1"}, nil)
	ctx, cf := context.WithCancel(test.Ctx(t))
	defer cf()
	_, err := StartCleanTimer(ctx, data)
	require.Nil(t, err)
	waitCleaned(t, cleaned, "m1")
}

func TestTimer_Validates(t *testing.T) {
	data, _, _ := initTimerTest(t)
	data.IDsProvider = nil
	_, err := StartCleanTimer(test.Ctx(t), data)
	assert.NotNil(t, err)

	data, _, _ = initTimerTest(t)
	data.Cleaner = nil
	_, err = StartCleanTimer(test.Ctx(t), data)
	assert.NotNil(t, err)

	data, _, _ = initTimerTest(t)
	data.RunEvery = 0
	_, err = StartCleanTimer(test.Ctx(t), data)
	assert.NotNil(t, err)
}

func waitCleaned(t *testing.T, cleaned <-chan string, id string) {
	t.Helper()
	ctx := test.Ctx(t)
	for {
		select {
		case got := <-cleaned:
			if got == id {
				return
			}
		case <-ctx.Done():
			require.Failf(t, "no call", "Clean(%s) not invoked", id)
		}
	}
}
