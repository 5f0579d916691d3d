package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func callWithRoles(roles []string, required ...string) error {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate-report", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	req = req.WithContext(ctx)
	c := e.NewContext(req, httptest.NewRecorder())

	h := RequireRole(required...)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return h(c)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		roles    []string
		required []string
		allowed  bool
	}{
		{"matching role", []string{RoleHealthcareProfessional}, []string{RoleHealthcareProfessional}, true},
		{"one of several", []string{RoleHealthcareProfessional}, []string{RoleAdmin, RoleHealthcareProfessional}, true},
		{"admin passes everything", []string{RoleAdmin}, []string{RoleHealthcareProfessional}, true},
		{"viewer denied", []string{RoleViewer}, []string{RoleAdmin, RoleHealthcareProfessional}, false},
		{"no roles", nil, []string{RoleViewer}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := callWithRoles(tt.roles, tt.required...)
			if tt.allowed {
				if err != nil {
					t.Fatalf("expected access, got %v", err)
				}
				return
			}
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %v", err)
			}
		})
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleHealthcareProfessional, RoleViewer} {
		if !ValidRole(r) {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if ValidRole("superuser") || ValidRole("") {
		t.Error("expected unknown roles to be invalid")
	}
}
