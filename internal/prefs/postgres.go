package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/helmholtz/pkg/provider/tts"
)

// Schema creates the preference table. Safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS voice_preferences (
	member_id   TEXT PRIMARY KEY,
	voice_gender TEXT,
	voice_pitch  DOUBLE PRECISION,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the subset of pgxpool.Pool used by the postgres backend.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres persists preferences in a voice_preferences table. Unset fields
// are stored as NULL so partial updates merge instead of overwrite.
type Postgres struct {
	db DB
}

// NewPostgres creates a backend over the given connection pool.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies the schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("prefs: migrate: %w", err)
	}
	return nil
}

// Get loads the member's stored preference, filling unset columns with
// defaults. Returns (nil, nil) when the member has no record.
func (p *Postgres) Get(ctx context.Context, memberID string) (*Preference, error) {
	var gender, pitch any
	row := p.db.QueryRow(ctx,
		`SELECT voice_gender, voice_pitch FROM voice_preferences WHERE member_id = $1`,
		memberID)
	if err := row.Scan(&gender, &pitch); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("prefs: get %q: %w", memberID, err)
	}

	pref := Default()
	if g, ok := gender.(string); ok {
		pref.Gender = toGender(g, pref.Gender)
	}
	if f, ok := pitch.(float64); ok {
		pref.Pitch = f
	}
	return &pref, nil
}

// Upsert merges the update into the member's record. COALESCE keeps columns
// the update leaves nil.
func (p *Postgres) Upsert(ctx context.Context, memberID string, u Update) error {
	var gender *string
	if u.Gender != nil {
		s := string(*u.Gender)
		gender = &s
	}
	_, err := p.db.Exec(ctx, `
INSERT INTO voice_preferences (member_id, voice_gender, voice_pitch)
VALUES ($1, $2, $3)
ON CONFLICT (member_id) DO UPDATE SET
	voice_gender = COALESCE(EXCLUDED.voice_gender, voice_preferences.voice_gender),
	voice_pitch  = COALESCE(EXCLUDED.voice_pitch, voice_preferences.voice_pitch),
	updated_at   = now()`,
		memberID, gender, u.Pitch)
	if err != nil {
		return fmt.Errorf("prefs: upsert %q: %w", memberID, err)
	}
	return nil
}

func toGender(s string, fallback tts.Gender) tts.Gender {
	g := tts.Gender(s)
	if g.IsValid() {
		return g
	}
	return fallback
}

// Compile-time interface assertion.
var _ Backend = (*Postgres)(nil)
