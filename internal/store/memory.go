package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fast-aid/triage-platform/internal/model"
)

// Memory is a mutex-guarded in-memory Store. It backs tests and runs without
// a database; semantics match the Postgres implementation.
type Memory struct {
	mu sync.RWMutex

	users         map[string]*model.User
	usersByEmail  map[string]string
	conversations map[string]*model.Conversation
	messages      map[string][]model.Message
	prediagnoses  map[string][]model.Prediagnosis
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]*model.User),
		usersByEmail:  make(map[string]string),
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
		prediagnoses:  make(map[string][]model.Prediagnosis),
	}
}

func (m *Memory) CreateUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.usersByEmail[strings.ToLower(u.Email)]; taken {
		return model.ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.Must(uuid.NewV7()).String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	m.users[u.ID] = &cp
	m.usersByEmail[strings.ToLower(u.Email)] = u.ID
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *Memory) UpdateMedicalHistory(ctx context.Context, userID string, history *model.MedicalHistory) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	u.MedicalHistory = history
	cp := *u
	return &cp, nil
}

func (m *Memory) CreateConversation(ctx context.Context, patientID, title string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		PatientID: patientID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.conversations[conv.ID] = conv
	cp := *conv
	return &cp, nil
}

func (m *Memory) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (m *Memory) ListConversationsForUser(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = capLimit(limit, DefaultConversationLimit)

	var convs []model.Conversation
	for _, conv := range m.conversations {
		if conv.PatientID == userID || (conv.DoctorID != nil && *conv.DoctorID == userID) {
			convs = append(convs, *conv)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	if len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (m *Memory) AssignDoctor(ctx context.Context, conversationID, doctorID string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, model.ErrNotFound
	}
	conv.DoctorID = &doctorID
	conv.UpdatedAt = bump(conv.UpdatedAt)
	cp := *conv
	return &cp, nil
}

func (m *Memory) RemoveDoctor(ctx context.Context, conversationID string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, model.ErrNotFound
	}
	conv.DoctorID = nil
	conv.UpdatedAt = bump(conv.UpdatedAt)
	cp := *conv
	return &cp, nil
}

func (m *Memory) UpdateConversationTitle(ctx context.Context, conversationID, title string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, model.ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = bump(conv.UpdatedAt)
	cp := *conv
	return &cp, nil
}

// DeleteConversation removes a conversation and all of its messages and
// prediagnoses, mirroring the FK cascade of the Postgres schema.
func (m *Memory) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	delete(m.prediagnoses, id)
	return nil
}

// AppendMessage inserts the message and bumps the parent UpdatedAt under a
// single lock acquisition, so readers never observe one without the other.
func (m *Memory) AppendMessage(ctx context.Context, conversationID, senderID string, role model.MessageRole, content string) (*model.Message, error) {
	if content == "" {
		return nil, model.ErrEmptyContent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, model.ErrNotFound
	}

	msg := model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Role:           role,
		CreatedAt:      time.Now(),
		Content:        content,
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	conv.UpdatedAt = bump(conv.UpdatedAt)
	return &msg, nil
}

func (m *Memory) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return nil, model.ErrNotFound
	}
	msgs := m.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *Memory) RecordPrediagnosis(ctx context.Context, p *model.Prediagnosis) (*model.Prediagnosis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[p.ConversationID]; !ok {
		return nil, model.ErrNotFound
	}
	rec := *p
	rec.ID = uuid.Must(uuid.NewV7()).String()
	rec.CreatedAt = time.Now()
	if prev := m.prediagnoses[p.ConversationID]; len(prev) > 0 {
		last := prev[len(prev)-1].CreatedAt
		if !rec.CreatedAt.After(last) {
			rec.CreatedAt = last.Add(time.Nanosecond)
		}
	}
	m.prediagnoses[p.ConversationID] = append(m.prediagnoses[p.ConversationID], rec)
	return &rec, nil
}

func (m *Memory) LatestPrediagnosis(ctx context.Context, conversationID string) (*model.Prediagnosis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return nil, model.ErrNotFound
	}
	recs := m.prediagnoses[conversationID]
	if len(recs) == 0 {
		return nil, model.ErrNotFound
	}
	latest := recs[0]
	for _, r := range recs[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return &latest, nil
}

func (m *Memory) ListPrediagnoses(ctx context.Context, conversationID string) ([]model.Prediagnosis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return nil, model.ErrNotFound
	}
	recs := m.prediagnoses[conversationID]
	out := make([]model.Prediagnosis, len(recs))
	copy(out, recs)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) ListPatientPrediagnoses(ctx context.Context, patientID string, limit int) ([]model.Prediagnosis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Prediagnosis
	for _, recs := range m.prediagnoses {
		for _, r := range recs {
			if r.PatientID == patientID {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// bump advances a conversation timestamp, staying strictly monotonic even
// when the wall clock has not ticked between two mutations.
func bump(prev time.Time) time.Time {
	now := time.Now()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}
