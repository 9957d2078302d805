package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/devcon26/registration-api/models"
	"github.com/devcon26/registration-api/repositories"
	"github.com/devcon26/registration-api/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTxMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

// --- participants ---

type fakeParticipantRepo struct {
	mu      sync.Mutex
	nextID  int
	byID    map[int]*models.Participant
	users   map[int]*models.User
	teams   *fakeTeamRepo
	pays    *fakePaymentRepo
	rows    []models.RegistrationRow
	created []*models.Participant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{byID: map[int]*models.Participant{}, users: map[int]*models.User{}}
}

func (r *fakeParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	cp := *p
	r.byID[p.ID] = &cp
	r.created = append(r.created, p)
	return nil
}

func (r *fakeParticipantRepo) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeParticipantRepo) FindByUserID(ctx context.Context, exec repositories.SQLExecutor, userID int) (*models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) AssignTeam(ctx context.Context, exec repositories.SQLExecutor, participantID, teamID int, isTeamLead bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[participantID]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	id := teamID
	p.TeamID = &id
	p.IsTeamLead = isTeamLead
	return nil
}

func (r *fakeParticipantRepo) GetWithDetails(ctx context.Context, participantID int) (*models.Participant, error) {
	p, err := r.FindByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	p.User = r.users[p.UserID]
	if p.TeamID != nil && r.teams != nil {
		p.Team, _ = r.teams.GetByID(ctx, *p.TeamID)
	}
	if r.pays != nil {
		p.Payment, _ = r.pays.FindByParticipantID(ctx, nil, p.ID)
	}
	return p, nil
}

func (r *fakeParticipantRepo) Search(ctx context.Context, email, studentID string, limit int) ([]models.ParticipantSearchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.ParticipantSearchResult{}
	for _, p := range r.byID {
		u := r.users[p.UserID]
		if u == nil {
			continue
		}
		match := (email != "" && strings.Contains(strings.ToLower(u.Email), strings.ToLower(email))) ||
			(studentID != "" && u.StudentID != nil && *u.StudentID == studentID)
		if match {
			out = append(out, models.ParticipantSearchResult{ParticipantID: p.ID, UserID: u.ID, FullName: u.FullName, Email: u.Email, Track: p.Track})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeParticipantRepo) ListRegistrationRows(ctx context.Context) ([]models.RegistrationRow, error) {
	return r.rows, nil
}

// --- teams ---

type fakeTeamRepo struct {
	mu         sync.Mutex
	nextID     int
	byID       map[int]*models.Team
	createErrs []error
	codes      []string
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{byID: map[int]*models.Team{}}
}

func (r *fakeTeamRepo) add(t models.Team) *models.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	r.byID[t.ID] = &t
	return &t
}

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, team.JoinCode)
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, t := range r.byID {
		if t.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
		if t.JoinCode == team.JoinCode {
			return repositories.ErrTeamJoinCodeConflict
		}
	}
	r.nextID++
	team.ID = r.nextID
	cp := *team
	r.byID[team.ID] = &cp
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTeamRepo) GetByJoinCodeForUpdate(ctx context.Context, exec repositories.SQLExecutor, joinCode string) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.JoinCode == joinCode {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) IncrementMemberCount(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.MemberCount++
	return nil
}

// --- payments ---

type fakePaymentRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: map[int]*models.Payment{}}
}

func (r *fakePaymentRepo) add(p models.Payment) *models.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	r.byID[p.ID] = &p
	cp := p
	return &cp
}

func (r *fakePaymentRepo) UpsertPending(ctx context.Context, exec repositories.SQLExecutor, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.ParticipantID == p.ParticipantID {
			if existing.Status != models.PaymentStatusPending {
				return repositories.ErrPaymentNotPending
			}
			p.ID = existing.ID
			p.Status = models.PaymentStatusPending
			cp := *p
			r.byID[p.ID] = &cp
			return nil
		}
	}
	r.nextID++
	p.ID = r.nextID
	p.Status = models.PaymentStatusPending
	p.CreatedAt = time.Now()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) FindByID(ctx context.Context, id int) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) FindByParticipantID(ctx context.Context, exec repositories.SQLExecutor, participantID int) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.ParticipantID == participantID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repositories.ErrPaymentNotFound
}

func (r *fakePaymentRepo) TransitionStatus(ctx context.Context, exec repositories.SQLExecutor, id int, to models.PaymentStatus, verifiedBy *int, method *models.PaymentMethod) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrPaymentNotFound
	}
	if p.Status != models.PaymentStatusPending {
		return nil, repositories.ErrPaymentNotPending
	}
	now := time.Now()
	p.Status = to
	p.VerifiedBy = verifiedBy
	p.VerifiedAt = &now
	if method != nil {
		p.Method = *method
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) ListByStatus(ctx context.Context, status *models.PaymentStatus, limit, offset int) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Payment{}
	for _, p := range r.byID {
		if status == nil || p.Status == *status {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []models.Payment{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- storage / events / hook ---

type memUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemUploader() *memUploader {
	return &memUploader{objects: map[string][]byte{}}
}

func (u *memUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: key}, nil
}

func (u *memUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *memUploader) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	data, ok := u.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (u *memUploader) GetPublicURL(key string) string { return "" }

type recordedEvent struct {
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingHook struct {
	approved []int
}

func (h *recordingHook) PaymentApproved(ctx context.Context, payment *models.Payment) error {
	h.approved = append(h.approved, payment.ID)
	return nil
}
