package scheduling

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicare/voiceclinic/internal/domain/clinic"
	"github.com/medicare/voiceclinic/internal/platform/lock"
	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

// -- Mock Repositories --

type mockDoctorRepo struct {
	doctors []*clinic.Doctor
	err     error
}

func (m *mockDoctorRepo) List(_ context.Context, f clinic.DoctorFilter, limit, offset int) ([]*clinic.Doctor, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []*clinic.Doctor
	for _, d := range m.doctors {
		if f.BranchID != nil && d.BranchID != *f.BranchID {
			continue
		}
		if f.NameContains != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(f.NameContains)) {
			continue
		}
		out = append(out, d)
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id int64) (*clinic.Doctor, error) {
	for _, d := range m.doctors {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, clinic.ErrNotFound
}

type mockPatientRepo struct {
	patients map[int64]*clinic.Patient
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*clinic.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, clinic.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByPhone(_ context.Context, phone string) (*clinic.Patient, error) {
	for _, p := range m.patients {
		if p.Phone == phone {
			return p, nil
		}
	}
	return nil, clinic.ErrNotFound
}

func (m *mockPatientRepo) Create(_ context.Context, p *clinic.Patient) error {
	p.ID = int64(1001 + len(m.patients))
	m.patients[p.ID] = p
	return nil
}

type mockTestRepo struct {
	tests []*clinic.DiagnosticTest
}

func (m *mockTestRepo) FindByName(_ context.Context, name, _ string) (*clinic.DiagnosticTest, error) {
	for _, t := range m.tests {
		if strings.Contains(strings.ToLower(t.Name), strings.ToLower(name)) {
			return t, nil
		}
	}
	return nil, clinic.ErrNotFound
}

func (m *mockTestRepo) GetByID(_ context.Context, id int64) (*clinic.DiagnosticTest, error) {
	for _, t := range m.tests {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, clinic.ErrNotFound
}

// memAppointments stores copies and enforces one active appointment per
// doctor and instant the way the partial unique index does.
type memAppointments struct {
	mu     sync.Mutex
	rows   map[int64]*Appointment
	nextID int64
	err    error
}

func newMemAppointments() *memAppointments {
	return &memAppointments{rows: make(map[int64]*Appointment), nextID: 1}
}

func (m *memAppointments) sorted() []*Appointment {
	var out []*Appointment
	for _, a := range m.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memAppointments) FindActiveOn(_ context.Context, doctorID int64, from, to time.Time) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*Appointment
	for _, a := range m.sorted() {
		if a.DoctorID == doctorID && a.Status.Active() && !a.At.Before(from) && a.At.Before(to) {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memAppointments) FindActiveAt(_ context.Context, doctorID int64, at time.Time, excludeID int64) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.sorted() {
		if a.DoctorID == doctorID && a.At.Equal(at) && a.ID != excludeID && a.Status.Active() {
			c := *a
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAppointments) NextActive(_ context.Context, patientID int64, from time.Time) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.sorted() {
		if a.PatientID == patientID && a.Status.Active() && !a.At.Before(from) {
			c := *a
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAppointments) LatestActive(_ context.Context, patientID int64) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	rows := m.sorted()
	for i := len(rows) - 1; i >= 0; i-- {
		if a := rows[i]; a.PatientID == patientID && a.Status.Active() {
			c := *a
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAppointments) GetForUpdate(_ context.Context, id int64) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	return &c, nil
}

func (m *memAppointments) slotTaken(a *Appointment) bool {
	if !a.Status.Active() {
		return false
	}
	for _, o := range m.rows {
		if o.ID != a.ID && o.DoctorID == a.DoctorID && o.At.Equal(a.At) && o.Status.Active() {
			return true
		}
	}
	return false
}

func (m *memAppointments) Insert(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.slotTaken(a) {
		return ErrSlotTaken
	}
	a.ID = m.nextID
	m.nextID++
	c := *a
	m.rows[a.ID] = &c
	return nil
}

func (m *memAppointments) Update(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.rows[a.ID]; !ok {
		return ErrNotFound
	}
	if m.slotTaken(a) {
		return ErrSlotTaken
	}
	c := *a
	m.rows[a.ID] = &c
	return nil
}

// seed stores a without any checks and returns its id.
func (m *memAppointments) seed(a Appointment) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID
	m.nextID++
	m.rows[a.ID] = &a
	return a.ID
}

func (m *memAppointments) get(id int64) Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func (m *memAppointments) activeCount(doctorID int64, at time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.rows {
		if a.DoctorID == doctorID && a.At.Equal(at) && a.Status.Active() {
			n++
		}
	}
	return n
}

func (m *memAppointments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memTestAppointments struct {
	mu   sync.Mutex
	rows []*TestAppointment
}

func (m *memTestAppointments) Insert(_ context.Context, t *TestAppointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, t)
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// noLock lets every caller in at once so only the store's uniqueness check
// stands between concurrent bookings.
type noLock struct{}

func (noLock) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type failingLock struct{}

func (failingLock) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("redis: connection refused")
}

type recordingSink struct {
	mu          sync.Mutex
	booked      []AppointmentNotice
	rescheduled []AppointmentNotice
	cancelled   []AppointmentNotice
	tests       []TestNotice
}

func (r *recordingSink) NotifyBooked(_ context.Context, n AppointmentNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.booked = append(r.booked, n)
}

func (r *recordingSink) NotifyRescheduled(_ context.Context, n AppointmentNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rescheduled = append(r.rescheduled, n)
}

func (r *recordingSink) NotifyCancelled(_ context.Context, n AppointmentNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, n)
}

func (r *recordingSink) NotifyTestBooked(_ context.Context, n TestNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests = append(r.tests, n)
}

// -- Fixture --

var fixedNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func at(date, clock string) time.Time {
	t, err := time.Parse(stampLayout, date+" "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func strp(s string) *string { return &s }

func floatp(f float64) *float64 { return &f }

type fixture struct {
	doctors  *mockDoctorRepo
	patients *mockPatientRepo
	tests    *mockTestRepo
	appts    *memAppointments
	testApps *memTestAppointments
	sink     *recordingSink
	machine  *Machine
	svc      *Service
}

type fixtureOpts struct {
	locker lock.Locker
	sim    Similarity
}

func newFixture(opts ...func(*fixtureOpts)) *fixture {
	o := fixtureOpts{locker: lock.NewLocalLocker()}
	for _, fn := range opts {
		fn(&o)
	}

	f := &fixture{
		doctors: &mockDoctorRepo{doctors: []*clinic.Doctor{
			{ID: 1, Name: "Dr. Smith", Specialization: strp("Cardiologist"), BranchID: 1, BranchName: "Medicare Central"},
			{ID: 2, Name: "Dr. Smithson", Specialization: strp("Neurologist"), BranchID: 1, BranchName: "Medicare Central"},
			{ID: 3, Name: "Dr. Anita Rao", Specialization: strp("Pediatrician"), BranchID: 2, BranchName: "Medicare North"},
		}},
		patients: &mockPatientRepo{patients: map[int64]*clinic.Patient{
			1001: {ID: 1001, Name: "Asha Verma", Phone: "9000000001", Email: strp("asha@example.com")},
			1002: {ID: 1002, Name: "Ravi Kumar", Phone: "9000000002"},
		}},
		tests: &mockTestRepo{tests: []*clinic.DiagnosticTest{
			{ID: 1, Name: "ECG", Department: strp("cardiology"), Available: true, Price: floatp(500), Schedule: strp("Mon-Sat 9 AM to 1 PM")},
			{ID: 2, Name: "EEG", Department: strp("neurology"), Available: false, ReferralName: strp("City Neuro Lab"), ReferralContact: strp("080-5550100")},
		}},
		appts:    newMemAppointments(),
		testApps: &memTestAppointments{},
		sink:     &recordingSink{},
	}
	f.machine = NewMachine(MachineConfig{
		Tx:               passthroughTx{},
		Locker:           o.locker,
		Appointments:     f.appts,
		TestAppointments: f.testApps,
		Doctors:          f.doctors,
		Patients:         f.patients,
		Tests:            f.tests,
		Now:              func() time.Time { return fixedNow },
	})
	f.svc = NewService(
		NewResolver(f.doctors, o.sim),
		NewCalendar(f.appts, ClinicDay),
		f.machine,
		f.tests,
		f.sink,
		zerolog.Nop(),
	)
	return f
}

var testAudit = clinic.Audit{ActorID: 1, IP: "10.0.0.7"}

func (f *fixture) book(patientID int64, doctor, date, clock string) outcome.Outcome {
	return f.svc.Book(context.Background(), BookCommand{
		PatientID: patientID, DoctorName: doctor, At: at(date, clock), Audit: testAudit,
	})
}

func (f *fixture) reschedule(patientID int64, date, clock string) outcome.Outcome {
	return f.svc.Reschedule(context.Background(), RescheduleCommand{
		PatientID: patientID, At: at(date, clock), Audit: testAudit,
	})
}

func (f *fixture) cancel(patientID int64) outcome.Outcome {
	return f.svc.Cancel(context.Background(), CancelCommand{PatientID: patientID, Audit: testAudit})
}

func (f *fixture) slots(doctor, date string) *AvailabilityResult {
	d, _ := time.Parse(dateLayout, date)
	o := f.svc.Availability(context.Background(), AvailabilityQuery{DoctorName: doctor, Date: d})
	if !o.OK() {
		panic("availability failed: " + o.Message)
	}
	return o.Result.(*AvailabilityResult)
}

func withLocker(l lock.Locker) func(*fixtureOpts) {
	return func(o *fixtureOpts) { o.locker = l }
}

func withSimilarity(s Similarity) func(*fixtureOpts) {
	return func(o *fixtureOpts) { o.sim = s }
}

func containsSlot(slots []string, s string) bool {
	for _, x := range slots {
		if x == s {
			return true
		}
	}
	return false
}
