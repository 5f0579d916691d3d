package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthreport/reportd/internal/platform/auth"
)

// SeedAccount is a demo account created by Seed.
type SeedAccount struct {
	Request RegisterRequest
	Role    string
}

// DemoAccounts are the accounts created by "report-server seed". They are
// meant for local development only.
var DemoAccounts = []SeedAccount{
	{
		Request: RegisterRequest{
			Username: "admin", Email: "admin@assessment.com", Password: "admin123",
			FirstName: "Admin", LastName: "User",
			Organization: "Assessment Management System", Department: "Administration",
		},
		Role: auth.RoleAdmin,
	},
	{
		Request: RegisterRequest{
			Username: "doctor_smith", Email: "doctor.smith@hospital.com", Password: "doctor123",
			FirstName: "John", LastName: "Smith",
			Organization: "City General Hospital", Department: "Cardiology",
		},
		Role: auth.RoleHealthcareProfessional,
	},
	{
		Request: RegisterRequest{
			Username: "nurse_johnson", Email: "nurse.johnson@clinic.com", Password: "nurse123",
			FirstName: "Sarah", LastName: "Johnson",
			Organization: "Health Clinic", Department: "General Medicine",
		},
		Role: auth.RoleHealthcareProfessional,
	},
}

// Seed creates accounts, skipping those whose email or username is taken.
// It returns the number of accounts created.
func Seed(ctx context.Context, svc *Service, accounts []SeedAccount) (int, error) {
	created := 0
	for _, a := range accounts {
		req := a.Request
		if err := validateRegistration(&req); err != nil {
			return created, fmt.Errorf("seed %s: %w", a.Request.Username, err)
		}
		if !auth.ValidRole(a.Role) {
			return created, fmt.Errorf("seed %s: %w: unknown role %q", req.Username, ErrInvalid, a.Role)
		}
		_, err := svc.create(ctx, req, a.Role)
		if errors.Is(err, ErrUserExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", req.Username, err)
		}
		created++
	}
	return created, nil
}
