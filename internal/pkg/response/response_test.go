package response

import (
	"ThinkSync/internal/api/dto"
	"ThinkSync/internal/service"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	pkgerrors "github.com/pkg/errors"
)

func run(t *testing.T, err error) dto.Response {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Error(c, err)

	var resp dto.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want dto.Response
	}{
		{"Sentinel", service.ErrNotConnected, dto.Response{Code: Forbidden, Message: service.ErrNotConnected.Error()}},
		{"WrappedSentinel", fmt.Errorf("send: %w", service.ErrMessageTooLong), dto.Response{Code: BadRequest, Message: service.ErrMessageTooLong.Error()}},
		{"PkgWrapped", pkgerrors.Wrap(service.ErrUserNotFound, "contacts"), dto.Response{Code: NotFound, Message: service.ErrUserNotFound.Error()}},
		{"Unknown", pkgerrors.New("dial tcp: refused"), dto.Response{Code: InternalServerError, Message: service.UnExpectedError.Error()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, run(t, tt.err)); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Success(c, map[string]int{"n": 1})

	var resp dto.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != Ok || resp.Message != "success" {
		t.Errorf("resp = %+v", resp)
	}
}
