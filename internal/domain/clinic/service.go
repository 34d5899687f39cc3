package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

// WelcomeNotice is sent after a new patient registers with an email address.
type WelcomeNotice struct {
	PatientID int64
	Name      string
	Email     string
}

// WelcomeSink delivers registration notices. Implementations must not block
// and must swallow their own failures.
type WelcomeSink interface {
	NotifyWelcome(ctx context.Context, n WelcomeNotice)
}

type Service struct {
	branches BranchRepository
	doctors  DoctorRepository
	patients PatientRepository
	tests    TestRepository
	welcome  WelcomeSink
	logger   zerolog.Logger
}

func NewService(b BranchRepository, d DoctorRepository, p PatientRepository, t TestRepository, welcome WelcomeSink, logger zerolog.Logger) *Service {
	return &Service{branches: b, doctors: d, patients: p, tests: t, welcome: welcome, logger: logger}
}

// -- Directory --

func (s *Service) ListBranches(ctx context.Context, limit, offset int) ([]*Branch, int, error) {
	items, total, err := s.branches.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, outcome.Storage(err)
	}
	return items, total, nil
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	f.Speciality = strings.TrimSpace(f.Speciality)
	items, total, err := s.doctors.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, outcome.Storage(err)
	}
	if items == nil {
		items = []*Doctor{}
	}
	return items, total, nil
}

// -- Patient --

func (s *Service) VerifyPatient(ctx context.Context, id int64) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, outcome.New(outcome.NotFound, "Patient ID invalid.")
	}
	if err != nil {
		return nil, outcome.Storage(err)
	}
	return p, nil
}

type RegisterInput struct {
	Name     string
	Phone    string
	Email    string
	GenderID int
	Audit    Audit
}

const (
	RegistrationCreated = "created"
	RegistrationExists  = "exists"
)

type Registration struct {
	Status    string `json:"status"`
	PatientID int64  `json:"patient_id"`
}

// RegisterPatient creates a patient keyed by phone number. A phone that is
// already registered returns the existing id and writes nothing.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterInput) (*Registration, error) {
	phone := strings.TrimSpace(in.Phone)
	name := strings.TrimSpace(in.Name)
	if name == "" || phone == "" {
		return nil, outcome.New(outcome.InvalidRequest, "I need the patient's name and phone number to register.")
	}

	existing, err := s.patients.GetByPhone(ctx, phone)
	if err == nil {
		return &Registration{Status: RegistrationExists, PatientID: existing.ID}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, outcome.Storage(err)
	}

	gender := in.GenderID
	if gender == 0 {
		gender = 1
	}
	actor := in.Audit.ActorID
	p := &Patient{
		Name:      name,
		Phone:     phone,
		Email:     strPtr(strings.TrimSpace(in.Email)),
		GenderID:  gender,
		CreatedBy: &actor,
		CreatedIP: strPtr(in.Audit.IP),
	}
	if err := s.patients.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicatePhone) {
			// Lost a race with a concurrent registration of the same phone.
			existing, getErr := s.patients.GetByPhone(ctx, phone)
			if getErr != nil {
				return nil, outcome.Storage(getErr)
			}
			return &Registration{Status: RegistrationExists, PatientID: existing.ID}, nil
		}
		return nil, outcome.Storage(err)
	}

	s.logger.Info().Int64("patient_id", p.ID).Msg("patient registered")
	if email := p.EmailAddress(); email != "" && s.welcome != nil {
		s.welcome.NotifyWelcome(ctx, WelcomeNotice{PatientID: p.ID, Name: p.Name, Email: email})
	}
	return &Registration{Status: RegistrationCreated, PatientID: p.ID}, nil
}

// -- Diagnostic tests --

const (
	TestAvailable   = "available"
	TestUnavailable = "unavailable"
)

type TestAvailability struct {
	Status   string `json:"status"`
	Test     string `json:"test"`
	Cost     string `json:"cost,omitempty"`
	Schedule string `json:"schedule,omitempty"`
	Referral string `json:"referral,omitempty"`
	Contact  string `json:"contact,omitempty"`
	Message  string `json:"message"`
}

// CheckTest looks a test up by name, preferring the given department.
func (s *Service) CheckTest(ctx context.Context, name, department string) (*TestAvailability, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, outcome.New(outcome.InvalidRequest, "Which test would you like to check?")
	}

	t, err := s.tests.FindByName(ctx, name, strings.ToLower(strings.TrimSpace(department)))
	if errors.Is(err, ErrNotFound) {
		return nil, outcome.New(outcome.NotFound, fmt.Sprintf("I couldn't find a test named '%s'.", name))
	}
	if err != nil {
		return nil, outcome.Storage(err)
	}

	if !t.Available {
		return &TestAvailability{
			Status:   TestUnavailable,
			Test:     t.Name,
			Referral: strVal(t.ReferralName),
			Contact:  strVal(t.ReferralContact),
			Message: fmt.Sprintf("We do not conduct %s here. We recommend contacting %s at %s.",
				t.Name, strVal(t.ReferralName), strVal(t.ReferralContact)),
		}, nil
	}
	return &TestAvailability{
		Status:   TestAvailable,
		Test:     t.Name,
		Cost:     t.Cost(),
		Schedule: strVal(t.Schedule),
		Message: fmt.Sprintf("Yes, the %s is available. It costs %s and the schedule is: %s.",
			t.Name, t.Cost(), strVal(t.Schedule)),
	}, nil
}
