package clinic

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicatePhone = errors.New("phone number already registered")
)

type BranchRepository interface {
	List(ctx context.Context, limit, offset int) ([]*Branch, int, error)
}

// DoctorRepository lists doctors ordered by id. A limit of 0 returns every match.
type DoctorRepository interface {
	List(ctx context.Context, filter DoctorFilter, limit, offset int) ([]*Doctor, int, error)
	GetByID(ctx context.Context, id int64) (*Doctor, error)
}

type PatientRepository interface {
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
}

type TestRepository interface {
	// FindByName returns the first test whose name contains name. When
	// department is set, tests in that department are preferred.
	FindByName(ctx context.Context, name, department string) (*DiagnosticTest, error)
	GetByID(ctx context.Context, id int64) (*DiagnosticTest, error)
}
