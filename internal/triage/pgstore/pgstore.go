// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/careline/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/careline/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage sessions in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store. The caller owns
// the pool and closes it.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const sessionColumns = `id, patient_id, symptoms, duration, severity, patient_age,
	urgency, confidence, recommended_action, next_steps, source, created_at`

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
		attribute.String("db.collection.name", "triage_sessions"),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.Session, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	query := `SELECT ` + sessionColumns + ` FROM triage_sessions WHERE id = $1`
	sess, err := scanSession(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fail(span, err)
	}
	return sess, true, nil
}

// Put inserts a session, replacing any existing row with the same ID.
func (s *Store) Put(ctx context.Context, sess *triage.Session) error {
	ctx, span := startSpan(ctx, "pgstore.Put", "UPSERT")
	defer span.End()

	symptomsJSON, err := json.Marshal(sess.Request.Symptoms)
	if err != nil {
		return fail(span, fmt.Errorf("marshal symptoms: %w", err))
	}
	stepsJSON, err := json.Marshal(sess.Assessment.NextSteps)
	if err != nil {
		return fail(span, fmt.Errorf("marshal next steps: %w", err))
	}

	query := `INSERT INTO triage_sessions (` + sessionColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (id) DO UPDATE SET
		patient_id         = EXCLUDED.patient_id,
		symptoms           = EXCLUDED.symptoms,
		duration           = EXCLUDED.duration,
		severity           = EXCLUDED.severity,
		patient_age        = EXCLUDED.patient_age,
		urgency            = EXCLUDED.urgency,
		confidence         = EXCLUDED.confidence,
		recommended_action = EXCLUDED.recommended_action,
		next_steps         = EXCLUDED.next_steps,
		source             = EXCLUDED.source`

	_, err = s.pool.Exec(ctx, query,
		sess.ID, sess.PatientID, symptomsJSON, sess.Request.Duration, string(sess.Request.Severity),
		sess.Request.PatientAge, string(sess.Assessment.Urgency), sess.Assessment.Confidence,
		sess.Assessment.RecommendedAction, stepsJSON, string(sess.Source), sess.CreatedAt,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert session: %w", err))
	}
	return nil
}

// ListByPatient returns up to limit sessions for a patient, newest first.
func (s *Store) ListByPatient(ctx context.Context, patientID string, limit int) ([]*triage.Session, error) {
	ctx, span := startSpan(ctx, "pgstore.ListByPatient", "SELECT")
	defer span.End()

	query := `SELECT ` + sessionColumns + ` FROM triage_sessions
	WHERE patient_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, patientID, limit)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query sessions: %w", err))
	}
	defer rows.Close()

	var out []*triage.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fail(span, err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate sessions: %w", err))
	}
	span.SetAttributes(attribute.Int("db.response.returned_rows", len(out)))
	return out, nil
}

// scanSession scans one row. pgx.ErrNoRows is returned unwrapped.
func scanSession(row pgx.Row) (*triage.Session, error) {
	var (
		sess         triage.Session
		symptomsJSON []byte
		stepsJSON    []byte
		severity     string
		urgency      string
		source       string
	)

	err := row.Scan(
		&sess.ID, &sess.PatientID, &symptomsJSON, &sess.Request.Duration, &severity,
		&sess.Request.PatientAge, &urgency, &sess.Assessment.Confidence,
		&sess.Assessment.RecommendedAction, &stepsJSON, &source, &sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	sess.Request.Severity = triage.Severity(severity)
	sess.Assessment.Urgency = triage.Urgency(urgency)
	sess.Source = triage.Source(source)

	if err := json.Unmarshal(symptomsJSON, &sess.Request.Symptoms); err != nil {
		return nil, fmt.Errorf("unmarshal symptoms: %w", err)
	}
	if err := json.Unmarshal(stepsJSON, &sess.Assessment.NextSteps); err != nil {
		return nil, fmt.Errorf("unmarshal next steps: %w", err)
	}
	return &sess, nil
}
