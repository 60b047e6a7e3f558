package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

var tracer = otel.Tracer("github.com/linnemanlabs/careline/internal/triage")

// FallbackUnderTriage is the fallback reason recorded when a remote answer
// ranked below the local engine.
const FallbackUnderTriage = "under_triage"

// DefaultSessionListLimit caps ListByPatient when the caller passes <= 0.
const DefaultSessionListLimit = 20

// Outcome is the result of a successful Assess call.
type Outcome struct {
	Assessment Assessment
	Source     Source
	SessionID  string
}

// ServiceOptions holds the optional collaborators of a Service.
type ServiceOptions struct {
	// Fallback classifies locally when the primary classifier fails.
	// Nil means failures surface as ErrServiceUnavailable.
	Fallback *Engine

	// Floor re-classifies every answer of a remote primary locally; when the
	// local tier is higher, the local assessment wins. Nil means Fallback.
	Floor *Engine

	// Notifier receives emergency escalations. Nil disables notification.
	Notifier Notifier

	// Hooks observe service events (metrics).
	Hooks Hooks

	// ClassifyTimeout bounds a single primary classifier call. Zero means no bound.
	ClassifyTimeout time.Duration
}

// Service is the business boundary for triage operations.
type Service struct {
	classifier Classifier
	source     Source
	store      Store
	logger     log.Logger
	fallback   *Engine
	floor      *Engine
	notifier   Notifier
	hooks      Hooks
	timeout    time.Duration
}

// NewService creates a triage service. store may be nil, in which case no
// sessions are kept.
func NewService(classifier Classifier, store Store, logger log.Logger, opts ServiceOptions) *Service {
	if classifier == nil {
		panic(xerrors.New("triage classifier is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	source := SourceRemote
	if _, ok := classifier.(*Engine); ok {
		source = SourceEngine
	}
	floor := opts.Floor
	if floor == nil {
		floor = opts.Fallback
	}
	if source == SourceEngine {
		floor = nil
	}
	return &Service{
		classifier: classifier,
		source:     source,
		store:      store,
		logger:     logger,
		fallback:   opts.Fallback,
		floor:      floor,
		notifier:   opts.Notifier,
		hooks:      opts.Hooks,
		timeout:    opts.ClassifyTimeout,
	}
}

// Assess validates a submission, classifies it and, when the submission
// names a patient, records the session.
func (s *Service) Assess(ctx context.Context, sub Submission) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "triage.Assess")
	defer span.End()

	req, err := ValidateSubmission(sub)
	if err != nil {
		if ve, ok := AsValidationError(err); ok {
			s.hooks.rejected(ve.Code)
			span.SetAttributes(attribute.String("careline.triage.rejected", ve.Code))
		}
		return nil, err
	}

	start := time.Now()
	a, source, err := s.classify(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.hooks.assessed(&AssessedEvent{
		Urgency:    a.Urgency,
		Confidence: a.Confidence,
		Source:     source,
		Duration:   time.Since(start).Seconds(),
	})
	span.SetAttributes(
		attribute.String("careline.triage.urgency", string(a.Urgency)),
		attribute.Float64("careline.triage.confidence", a.Confidence),
		attribute.String("careline.triage.source", string(source)),
		attribute.Int("careline.triage.symptoms", len(req.Symptoms)),
	)

	out := &Outcome{Assessment: a, Source: source}

	patientID := strings.TrimSpace(sub.PatientID)
	if patientID != "" && s.store != nil {
		sess := &Session{
			ID:         ulid.Make().String(),
			PatientID:  patientID,
			Request:    req,
			Assessment: a,
			Source:     source,
			CreatedAt:  time.Now().UTC(),
		}
		// the patient still gets their assessment if we fail to record it
		if err := s.store.Put(ctx, sess); err != nil {
			s.logger.Error(ctx, err, "failed to persist triage session", "patient_id", patientID)
			s.hooks.persisted(false)
		} else {
			out.SessionID = sess.ID
			s.hooks.persisted(true)
			span.SetAttributes(attribute.String("careline.triage.session_id", sess.ID))
		}
	}

	if a.Urgency == UrgencyEmergency && s.notifier != nil {
		esc := &Escalation{
			SessionID:  out.SessionID,
			PatientID:  patientID,
			Request:    req,
			Assessment: a,
			Source:     source,
		}
		go s.notify(context.WithoutCancel(ctx), esc)
	}

	return out, nil
}

// Get retrieves a stored session by ID.
func (s *Service) Get(ctx context.Context, id string) (*Session, bool, error) {
	if s.store == nil {
		return nil, false, nil
	}
	return s.store.Get(ctx, id)
}

// ListByPatient returns a patient's sessions, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID string, limit int) ([]*Session, error) {
	if s.store == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSessionListLimit
	}
	return s.store.ListByPatient(ctx, patientID, limit)
}

func (s *Service) classify(ctx context.Context, req Request) (Assessment, Source, error) {
	cctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	a, err := s.classifier.Assess(cctx, req)
	reason := "error"
	if err == nil {
		if cerr := a.Check(); cerr != nil {
			err = fmt.Errorf("classifier returned invalid assessment: %w", cerr)
			reason = "invalid"
		}
	} else if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	if err == nil {
		return s.applyFloor(ctx, req, a)
	}

	if s.fallback == nil {
		s.logger.Error(ctx, err, "classifier failed", "reason", reason)
		return Assessment{}, "", fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	s.logger.Warn(ctx, "classifier failed, using local engine", "reason", reason, "error", err)
	s.hooks.fellBack(reason)
	return s.fallback.Classify(req), SourceFallback, nil
}

// applyFloor never lets a remote answer rank below the local engine, so
// red-flag symptoms stay emergency whatever the remote classifier says.
func (s *Service) applyFloor(ctx context.Context, req Request, a Assessment) (Assessment, Source, error) {
	if s.floor == nil {
		return a, s.source, nil
	}
	local := s.floor.Classify(req)
	if local.Urgency.Rank() <= a.Urgency.Rank() {
		return a, s.source, nil
	}
	s.logger.Warn(ctx, "remote classifier under-triaged, using local engine",
		"remote_urgency", a.Urgency,
		"local_urgency", local.Urgency,
	)
	s.hooks.fellBack(FallbackUnderTriage)
	return local, SourceFallback, nil
}

func (s *Service) notify(ctx context.Context, e *Escalation) {
	L := s.logger.With("session_id", e.SessionID, "urgency", e.Assessment.Urgency)
	if err := s.notifier.Notify(ctx, e); err != nil {
		L.Error(ctx, err, "failed to send escalation")
		s.hooks.notified(false)
		return
	}
	s.hooks.notified(true)
	L.Info(ctx, "escalation sent")
}
