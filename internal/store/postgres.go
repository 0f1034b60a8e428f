package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fast-aid/triage-platform/internal/model"
)

// Postgres is the pgx-backed Store implementation.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool and verifies connectivity.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

const userColumns = `id, name, email, hashed_password, role, medical_history, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.Role, &u.MedicalHistory, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.Must(uuid.NewV7()).String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, hashed_password, role, medical_history, created_at)
		 VALUES ($1, $2, lower($3), $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.HashedPassword, u.Role, u.MedicalHistory, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
	return scanUser(row)
}

func (p *Postgres) UpdateMedicalHistory(ctx context.Context, userID string, history *model.MedicalHistory) (*model.User, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE users SET medical_history = $2 WHERE id = $1 RETURNING `+userColumns, userID, history)
	return scanUser(row)
}

const conversationColumns = `id, patient_id, doctor_id, title, created_at, updated_at`

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var c model.Conversation
	err := row.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return &c, nil
}

func (p *Postgres) CreateConversation(ctx context.Context, patientID, title string) (*model.Conversation, error) {
	now := time.Now()
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		PatientID: patientID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO conversations (id, patient_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		conv.ID, conv.PatientID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

func (p *Postgres) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (p *Postgres) ListConversationsForUser(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	limit = capLimit(limit, DefaultConversationLimit)

	rows, err := p.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE patient_id = $1 OR doctor_id = $1
		 ORDER BY updated_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (p *Postgres) AssignDoctor(ctx context.Context, conversationID, doctorID string) (*model.Conversation, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE conversations SET doctor_id = $2, updated_at = clock_timestamp()
		 WHERE id = $1 RETURNING `+conversationColumns, conversationID, doctorID)
	return scanConversation(row)
}

func (p *Postgres) RemoveDoctor(ctx context.Context, conversationID string) (*model.Conversation, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE conversations SET doctor_id = NULL, updated_at = clock_timestamp()
		 WHERE id = $1 RETURNING `+conversationColumns, conversationID)
	return scanConversation(row)
}

func (p *Postgres) UpdateConversationTitle(ctx context.Context, conversationID, title string) (*model.Conversation, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE conversations SET title = $2, updated_at = clock_timestamp()
		 WHERE id = $1 RETURNING `+conversationColumns, conversationID, title)
	return scanConversation(row)
}

// DeleteConversation removes the conversation; messages and prediagnoses go
// with it through the FK cascade.
func (p *Postgres) DeleteConversation(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// AppendMessage inserts the message and bumps the parent conversation's
// updated_at in a single transaction.
func (p *Postgres) AppendMessage(ctx context.Context, conversationID, senderID string, role model.MessageRole, content string) (*model.Message, error) {
	if content == "" {
		return nil, model.ErrEmptyContent
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = $2 WHERE id = $1`, conversationID, now)
	if err != nil {
		return nil, fmt.Errorf("bump conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, model.ErrNotFound
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return msg, nil
}

func (p *Postgres) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if _, err := p.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	query := `SELECT id, conversation_id, sender_id, role, content, created_at
	          FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

const prediagnosisColumns = `id, conversation_id, patient_id, doctor_id,
	potential_diseases, course_of_action, support_messages, recommended_practitioners, created_at`

func scanPrediagnosis(row pgx.Row) (*model.Prediagnosis, error) {
	var d model.Prediagnosis
	err := row.Scan(&d.ID, &d.ConversationID, &d.PatientID, &d.DoctorID,
		&d.PotentialDiseases, &d.CourseOfAction, &d.SupportMessages, &d.RecommendedPractitioners, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan prediagnosis: %w", err)
	}
	return &d, nil
}

func (p *Postgres) RecordPrediagnosis(ctx context.Context, rec *model.Prediagnosis) (*model.Prediagnosis, error) {
	if _, err := p.GetConversation(ctx, rec.ConversationID); err != nil {
		return nil, err
	}

	out := *rec
	out.ID = uuid.Must(uuid.NewV7()).String()
	out.CreatedAt = time.Now()

	_, err := p.pool.Exec(ctx,
		`INSERT INTO prediagnoses
		 (id, conversation_id, patient_id, doctor_id, potential_diseases, course_of_action,
		  support_messages, recommended_practitioners, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		out.ID, out.ConversationID, out.PatientID, out.DoctorID, out.PotentialDiseases,
		out.CourseOfAction, out.SupportMessages, out.RecommendedPractitioners, out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert prediagnosis: %w", err)
	}
	return &out, nil
}

func (p *Postgres) LatestPrediagnosis(ctx context.Context, conversationID string) (*model.Prediagnosis, error) {
	if _, err := p.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	row := p.pool.QueryRow(ctx,
		`SELECT `+prediagnosisColumns+` FROM prediagnoses
		 WHERE conversation_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, conversationID)
	return scanPrediagnosis(row)
}

func (p *Postgres) ListPrediagnoses(ctx context.Context, conversationID string) ([]model.Prediagnosis, error) {
	if _, err := p.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+prediagnosisColumns+` FROM prediagnoses
		 WHERE conversation_id = $1 ORDER BY created_at DESC, id DESC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list prediagnoses: %w", err)
	}
	defer rows.Close()
	return collectPrediagnoses(rows)
}

func (p *Postgres) ListPatientPrediagnoses(ctx context.Context, patientID string, limit int) ([]model.Prediagnosis, error) {
	limit = capLimit(limit, DefaultConversationLimit)

	rows, err := p.pool.Query(ctx,
		`SELECT `+prediagnosisColumns+` FROM prediagnoses
		 WHERE patient_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list patient prediagnoses: %w", err)
	}
	defer rows.Close()
	return collectPrediagnoses(rows)
}

func collectPrediagnoses(rows pgx.Rows) ([]model.Prediagnosis, error) {
	var out []model.Prediagnosis
	for rows.Next() {
		var d model.Prediagnosis
		if err := rows.Scan(&d.ID, &d.ConversationID, &d.PatientID, &d.DoctorID,
			&d.PotentialDiseases, &d.CourseOfAction, &d.SupportMessages, &d.RecommendedPractitioners, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediagnosis: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
