package clean

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/faridopz/repurpose-smart/internal/pkg/test"
	"github.com/faridopz/repurpose-smart/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

var (
	filerMock *mocks.Filer
	dbMock    *mocks.DB
	tData     *Data
	tEcho     *echo.Echo
)

func initTest(t *testing.T) {
	filerMock = &mocks.Filer{}
	dbMock = &mocks.DB{}
	tData = &Data{Cleaner: newCleanMock(false)}
	tEcho = initRoutes(tData)
}

func Test_Delete(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodDelete, "/delete/m1", nil)
	test.Code(t, tEcho, req, http.StatusOK)
	cm := tData.Cleaner.(*mockCleaner)
	cm.AssertCalled(t, "Clean", mock.Anything, "m1")
}

func Test_Delete_Fails(t *testing.T) {
	initTest(t)
	tData.Cleaner = newCleanMock(true)
	tEcho = initRoutes(tData)
	req := httptest.NewRequest(http.MethodDelete, "/delete/m1", nil)
	test.Code(t, tEcho, req, http.StatusInternalServerError)
}

func Test_Delete_WrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/delete/m1", nil)
	test.Code(t, tEcho, req, http.StatusMethodNotAllowed)
}

func Test_WrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, http.StatusOK)
}

func Test_validate(t *testing.T) {
	initTest(t)
	tests := []struct {
		name    string
		data    *Data
		wantErr bool
	}{
		{name: "OK", data: &Data{Cleaner: newCleanMock(false)}, wantErr: false},
		{name: "Fail Cleaner", data: &Data{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type mockCleaner struct{ mock.Mock }

func (m *mockCleaner) Clean(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newCleanMock(fail bool) *mockCleaner {
	res := &mockCleaner{}
	var err error
	if fail {
		err = errors.New("olia")
	}
	res.On("Clean", mock.Anything, mock.Anything).Return(err)
	return res
}
