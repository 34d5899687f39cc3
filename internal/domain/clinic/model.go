package clinic

import (
	"fmt"
	"time"
)

type Branch struct {
	ID       int64   `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	Location *string `db:"location" json:"location,omitempty"`
}

type Doctor struct {
	ID             int64   `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	Specialization *string `db:"specialization" json:"specialization,omitempty"`
	BranchID       int64   `db:"branch_id" json:"branch_id"`
	BranchName     string  `db:"branch_name" json:"branch_name,omitempty"`
}

type Patient struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	Email     *string   `db:"email" json:"email,omitempty"`
	GenderID  int       `db:"gender_id" json:"gender_id"`
	CreatedBy *int64    `db:"created_by" json:"created_by,omitempty"`
	CreatedIP *string   `db:"created_ip_address" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EmailAddress returns the patient's email or "" when none is on file.
func (p *Patient) EmailAddress() string {
	return strVal(p.Email)
}

type DiagnosticTest struct {
	ID              int64    `db:"id" json:"id"`
	Name            string   `db:"name" json:"name"`
	Department      *string  `db:"department" json:"department,omitempty"`
	Available       bool     `db:"is_available" json:"is_available"`
	Price           *float64 `db:"price" json:"price,omitempty"`
	Schedule        *string  `db:"schedule" json:"schedule,omitempty"`
	ReferralName    *string  `db:"referral_name" json:"referral_name,omitempty"`
	ReferralContact *string  `db:"referral_contact" json:"referral_contact,omitempty"`
}

// Cost renders the price in rupees, whole units.
func (t *DiagnosticTest) Cost() string {
	if t.Price == nil {
		return "₹0"
	}
	return fmt.Sprintf("₹%d", int64(*t.Price))
}

// DoctorFilter narrows a doctor listing. Zero values mean "any".
type DoctorFilter struct {
	BranchID     *int64
	NameContains string
	Speciality   string
}

// Audit identifies who made a change and from where.
type Audit struct {
	ActorID int64
	IP      string
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
