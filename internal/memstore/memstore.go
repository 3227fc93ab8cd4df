// Package memstore is an in-memory implementation of the application,
// exam configuration and user stores, used by tests and by the server's
// in-memory development mode.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/db"
	"github.com/jonathan/exam-automation/internal/types"
)

// Store keeps users, exam configurations and applications in memory with the
// same error contract as *db.DB. A single mutex makes every operation atomic,
// standing in for the partial unique index and row locks.
type Store struct {
	mu    sync.Mutex
	users map[uuid.UUID]*db.User
	exams map[uuid.UUID]*types.ExamConfig
	apps  map[uuid.UUID]*types.Application
	clock time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users: make(map[uuid.UUID]*db.User),
		exams: make(map[uuid.UUID]*types.ExamConfig),
		apps:  make(map[uuid.UUID]*types.Application),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so ordering is deterministic.
func (f *Store) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// AddUser inserts a student without a password and returns its id.
func (f *Store) AddUser(name string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	now := f.tick()
	f.users[id] = &db.User{
		ID:        id,
		Name:      name,
		Email:     id.String() + "@example.test",
		Role:      string(types.RoleStudent),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// AddExam inserts an exam configuration with default settings.
func (f *Store) AddExam(slug string, active bool) *types.ExamConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &types.ExamConfig{
		ID:                 uuid.New(),
		Slug:               slug,
		Name:               "Exam " + slug,
		URL:                "https://portal.example.com/" + slug,
		IsActive:           active,
		FieldMappings:      map[string]string{},
		AgentConfig:        types.DefaultAgentConfig(),
		NotificationEmails: []string{},
	}
	e.CreatedAt = f.tick()
	e.UpdatedAt = e.CreatedAt
	f.exams[e.ID] = e
	cp := *e
	return &cp
}

// ApplicationCount returns the number of stored applications.
func (f *Store) ApplicationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.apps)
}

func (f *Store) ListExamConfigs(_ context.Context, activeOnly bool) ([]types.ExamConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []types.ExamConfig{}
	for _, e := range f.exams {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Store) GetExamConfig(_ context.Context, id uuid.UUID) (*types.ExamConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *Store) GetExamConfigBySlug(_ context.Context, slug string) (*types.ExamConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.exams {
		if e.Slug == slug {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *Store) slugTaken(slug string, except uuid.UUID) bool {
	for id, e := range f.exams {
		if id != except && e.Slug == slug {
			return true
		}
	}
	return false
}

func (f *Store) referenced(examID uuid.UUID) bool {
	for _, a := range f.apps {
		if a.ExamConfigID == examID {
			return true
		}
	}
	return false
}

func (f *Store) CreateExamConfig(_ context.Context, in *types.ExamConfig) (*types.ExamConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slugTaken(in.Slug, uuid.Nil) {
		return nil, db.ErrDuplicateSlug
	}
	e := *in
	e.ID = uuid.New()
	if e.FieldMappings == nil {
		e.FieldMappings = map[string]string{}
	}
	if e.NotificationEmails == nil {
		e.NotificationEmails = []string{}
	}
	e.AgentConfig.Normalize()
	e.CreatedAt = f.tick()
	e.UpdatedAt = e.CreatedAt
	f.exams[e.ID] = &e
	cp := e
	return &cp, nil
}

func (f *Store) UpdateExamConfig(_ context.Context, id uuid.UUID, p db.ExamConfigPatch) (*types.ExamConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.IsEmpty() {
		return nil, db.ErrEmptyPatch
	}
	e, ok := f.exams[id]
	if !ok {
		return nil, db.ErrExamConfigNotFound
	}
	if p.Slug != nil && *p.Slug != e.Slug {
		if f.referenced(id) {
			return nil, db.ErrSlugInUse
		}
		if f.slugTaken(*p.Slug, id) {
			return nil, db.ErrDuplicateSlug
		}
	}

	updated := *e
	if p.Slug != nil {
		updated.Slug = *p.Slug
	}
	if p.Name != nil {
		updated.Name = *p.Name
	}
	if p.URL != nil {
		updated.URL = *p.URL
	}
	if p.IsActive != nil {
		updated.IsActive = *p.IsActive
	}
	if p.FieldMappings != nil {
		updated.FieldMappings = *p.FieldMappings
	}
	if p.AgentConfig != nil {
		updated.AgentConfig = *p.AgentConfig
		updated.AgentConfig.Normalize()
	}
	if p.NotifyOnComplete != nil {
		updated.NotifyOnComplete = *p.NotifyOnComplete
	}
	if p.NotifyOnFailure != nil {
		updated.NotifyOnFailure = *p.NotifyOnFailure
	}
	if p.NotificationEmails != nil {
		updated.NotificationEmails = *p.NotificationEmails
	}
	updated.UpdatedAt = f.tick()
	f.exams[id] = &updated
	cp := updated
	return &cp, nil
}

func (f *Store) DeleteExamConfig(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.exams[id]; !ok {
		return db.ErrExamConfigNotFound
	}
	if f.referenced(id) {
		return db.ErrExamConfigInUse
	}
	delete(f.exams, id)
	return nil
}

func isActive(s types.ApplicationStatus) bool {
	for _, a := range types.ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

func (f *Store) CreateApplication(_ context.Context, in db.ApplicationInput) (*types.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[in.ExamConfigID]
	if !ok || (in.RequireActiveExam && !exam.IsActive) {
		return nil, db.ErrExamConfigNotFound
	}
	if _, ok := f.users[in.UserID]; !ok {
		return nil, db.ErrUserNotFound
	}
	if isActive(in.Status) {
		for _, a := range f.apps {
			if a.UserID == in.UserID && a.ExamConfigID == in.ExamConfigID && isActive(a.Status) {
				return nil, db.ErrActiveApplicationExists
			}
		}
	}

	a := &types.Application{
		ID:           uuid.New(),
		UserID:       in.UserID,
		ExamConfigID: in.ExamConfigID,
		Status:       in.Status,
		AdminNotes:   in.AdminNotes,
	}
	a.CreatedAt = f.tick()
	a.UpdatedAt = a.CreatedAt
	f.apps[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *Store) detail(a *types.Application) types.ApplicationDetail {
	d := types.ApplicationDetail{Application: *a}
	if u, ok := f.users[a.UserID]; ok {
		d.UserName = u.Name
		d.UserEmail = u.Email
	}
	if e, ok := f.exams[a.ExamConfigID]; ok {
		d.ExamName = e.Name
		d.ExamSlug = e.Slug
	}
	return d
}

func (f *Store) GetApplication(_ context.Context, id uuid.UUID) (*types.ApplicationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[id]
	if !ok {
		return nil, nil
	}
	d := f.detail(a)
	return &d, nil
}

func (f *Store) ListApplications(_ context.Context, filter types.ApplicationFilter) ([]types.ApplicationDetail, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := []types.ApplicationDetail{}
	for _, a := range f.apps {
		if filter.UserID != nil && a.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		all = append(all, f.detail(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return all[start:end], total, nil
}

func (f *Store) UpdateApplication(_ context.Context, id uuid.UUID, mutate db.ApplicationMutator) (*types.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[id]
	if !ok {
		return nil, db.ErrApplicationNotFound
	}
	current := *a
	patch, err := mutate(&current)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return &current, nil
	}

	updated := *a
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.SessionID != nil {
		s := *patch.SessionID
		updated.SessionID = &s
	}
	if patch.AdminNotes != nil {
		n := *patch.AdminNotes
		updated.AdminNotes = &n
	}
	if patch.ApprovedBy != nil {
		if _, ok := f.users[*patch.ApprovedBy]; !ok {
			return nil, db.ErrUserNotFound
		}
		by := *patch.ApprovedBy
		updated.ApprovedBy = &by
	}
	if patch.ApprovedAt != nil {
		at := *patch.ApprovedAt
		updated.ApprovedAt = &at
	}
	updated.UpdatedAt = f.tick()
	f.apps[id] = &updated
	cp := updated
	return &cp, nil
}

func (f *Store) DeleteApplication(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.apps[id]; !ok {
		return db.ErrApplicationNotFound
	}
	delete(f.apps, id)
	return nil
}

// CreateUser inserts a user. Emails are stored lowercased and must be unique.
func (f *Store) CreateUser(_ context.Context, name, email, phone, role string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	if f.userByEmail(email) != nil {
		return uuid.Nil, db.ErrEmailAlreadyExists
	}
	now := f.tick()
	u := &db.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.users[u.ID] = u
	return u.ID, nil
}

func (f *Store) userByEmail(email string) *db.User {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *Store) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *Store) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userByEmail(strings.ToLower(strings.TrimSpace(email)))
	if u == nil {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *Store) CheckEmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userByEmail(strings.ToLower(strings.TrimSpace(email))) != nil, nil
}

func (f *Store) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return db.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordSet = true
	u.UpdatedAt = f.tick()
	return nil
}

// DeleteUser removes a user and their applications.
func (f *Store) DeleteUser(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return db.ErrUserNotFound
	}
	delete(f.users, id)
	for appID, a := range f.apps {
		if a.UserID == id {
			delete(f.apps, appID)
		}
	}
	return nil
}

// Ping always succeeds.
func (f *Store) Ping(context.Context) error { return nil }
