package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
	"gramothi-backend/internal/infra/metrics"
)

// MaxSyncRetries bounds re-attempts of failed (non-conflict) activities.
const MaxSyncRetries = 3

// ActivityInput is one device-recorded activity submitted for sync.
type ActivityInput struct {
	OfflineID  string         `json:"offline_id"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Outcomes of one activity within a batch.
const (
	OutcomeApplied   = "applied"
	OutcomeConflict  = "conflict"
	OutcomeError     = "error"
	OutcomeDuplicate = "duplicate"
)

type ActivityResult struct {
	OfflineID  string `json:"offline_id"`
	ActivityID string `json:"activity_id,omitempty"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
}

type SyncReport struct {
	SessionID  string              `json:"session_id"`
	Status     model.SessionStatus `json:"status"`
	Synced     int                 `json:"synced"`
	Conflicts  int                 `json:"conflicts"`
	Errors     int                 `json:"errors"`
	Duplicates int                 `json:"duplicates"`
	Results    []ActivityResult    `json:"results"`
}

// SyncStatusReport is the per-user dashboard view.
type SyncStatusReport struct {
	Pending     int                `json:"pending"`
	Synced      int                `json:"synced"`
	Conflicts   int                `json:"conflicts"`
	Failed      int                `json:"failed"`
	LastSession *model.SyncSession `json:"last_session,omitempty"`
}

// ServerActivity mirrors a server-side record change back to a device so it
// can refresh local state after reconnect.
type ServerActivity struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SyncUseCase reconciles device-recorded activity batches with server state.
// Each activity lands in exactly one of three buckets: applied, conflict
// (server diverged; held for explicit resolution) or error (payload invalid).
// A conflict never blocks the rest of the batch.
type SyncUseCase interface {
	SyncBatch(ctx context.Context, userID, deviceID string, items []ActivityInput) (*SyncReport, error)
	ResolveConflict(ctx context.Context, userID, activityID string, res model.Resolution, merged map[string]any) (*model.OfflineActivity, error)
	RetryFailed(ctx context.Context, userID string) (*SyncReport, error)
	Conflicts(ctx context.Context, userID string) ([]*model.OfflineActivity, error)
	Status(ctx context.Context, userID string) (*SyncStatusReport, error)
	// ServerActivities echoes slide and recording progress the server changed
	// after `since`, so a reconnecting device can pull what it missed.
	ServerActivities(ctx context.Context, userID string, since time.Time) ([]ServerActivity, error)
}

type syncUC struct {
	activities repository.OfflineActivityRepository
	sessions   repository.SyncSessionRepository
	slides     repository.SlideProgressRepository
	recordings repository.RecordingProgressRepository
	quizzes    repository.QuizResponseRepository
	progress   repository.StudentProgressRepository
	learning   repository.LearningSessionRepository
	tm         repository.TransactionManager
	clock      func() time.Time
	log        *zerolog.Logger
}

var _ SyncUseCase = (*syncUC)(nil)

func NewSyncUseCase(
	activities repository.OfflineActivityRepository,
	sessions repository.SyncSessionRepository,
	slides repository.SlideProgressRepository,
	recordings repository.RecordingProgressRepository,
	quizzes repository.QuizResponseRepository,
	progress repository.StudentProgressRepository,
	learning repository.LearningSessionRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) SyncUseCase {
	l := logger.With().Str("component", "SyncUseCase").Logger()
	return &syncUC{
		activities: activities,
		sessions:   sessions,
		slides:     slides,
		recordings: recordings,
		quizzes:    quizzes,
		progress:   progress,
		learning:   learning,
		tm:         tm,
		clock:      time.Now,
		log:        &l,
	}
}

func (u *syncUC) SyncBatch(ctx context.Context, userID, deviceID string, items []ActivityInput) (*SyncReport, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidArgument)
	}
	now := u.clock()
	session := &model.SyncSession{
		ID:        ulid.Make().String(),
		UserID:    userID,
		DeviceID:  deviceID,
		StartedAt: now,
		Status:    model.SessionStatusInProgress,
	}
	if err := u.sessions.Save(ctx, nil, session); err != nil {
		return nil, err
	}

	report := &SyncReport{SessionID: session.ID, Results: make([]ActivityResult, 0, len(items))}
	for _, item := range items {
		res := u.syncOne(ctx, userID, item)
		report.Results = append(report.Results, res)
		switch res.Outcome {
		case OutcomeApplied:
			report.Synced++
		case OutcomeConflict:
			report.Conflicts++
		case OutcomeError:
			report.Errors++
		case OutcomeDuplicate:
			report.Duplicates++
		}
		metrics.IncActivity(res.Outcome)
	}

	end := u.clock()
	session.EndedAt = &end
	session.SyncedCount = report.Synced
	session.ConflictCount = report.Conflicts
	switch {
	case report.Conflicts > 0:
		session.Status = model.SessionStatusCompletedWithConflict
	default:
		session.Status = model.SessionStatusCompleted
	}
	if err := u.sessions.Save(ctx, nil, session); err != nil {
		session.Status = model.SessionStatusFailed
		if saveErr := u.sessions.Save(ctx, nil, session); saveErr != nil {
			u.log.Error().Err(saveErr).Str("session_id", session.ID).Msg("failed to mark sync session failed")
		}
		metrics.IncSyncSession(string(session.Status))
		return nil, err
	}
	report.Status = session.Status
	metrics.IncSyncSession(string(session.Status))
	u.log.Info().Str("session_id", session.ID).Str("user_id", userID).
		Int("synced", report.Synced).Int("conflicts", report.Conflicts).
		Int("errors", report.Errors).Msg("sync batch done")
	return report, nil
}

func (u *syncUC) syncOne(ctx context.Context, userID string, item ActivityInput) ActivityResult {
	res := ActivityResult{OfflineID: item.OfflineID}

	if item.OfflineID == "" {
		res.Outcome = OutcomeError
		res.Error = "offline_id is required"
		return res
	}
	existing, err := u.activities.FindByOfflineID(ctx, nil, userID, item.OfflineID)
	if err == nil {
		res.ActivityID = existing.ID
		res.Outcome = OutcomeDuplicate
		return res
	}
	if !errors.Is(err, domain.ErrNotFound) {
		res.Outcome = OutcomeError
		res.Error = err.Error()
		return res
	}

	a := &model.OfflineActivity{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       model.ActivityType(item.Type),
		Payload:    item.Payload,
		OfflineID:  item.OfflineID,
		Status:     model.SyncStatusPending,
		Resolution: model.ResolutionPending,
		RecordedAt: item.RecordedAt,
		CreatedAt:  u.clock(),
	}
	res.ActivityID = a.ID

	if err := validateActivity(a); err != nil {
		a.Status = model.SyncStatusFailed
		a.Error = err.Error()
		if saveErr := u.activities.Save(ctx, nil, a); saveErr != nil {
			u.log.Error().Err(saveErr).Str("offline_id", a.OfflineID).Msg("failed to record invalid activity")
		}
		res.Outcome = OutcomeError
		res.Error = err.Error()
		return res
	}

	outcome := u.reconcile(ctx, a)
	if err := u.activities.Save(ctx, nil, a); err != nil {
		// another device raced this offline_id past the lookup above
		if errors.Is(err, domain.ErrAlreadyExists) {
			if existing, findErr := u.activities.FindByOfflineID(ctx, nil, userID, item.OfflineID); findErr == nil {
				res.ActivityID = existing.ID
			}
			res.Outcome = OutcomeDuplicate
			return res
		}
		res.Outcome = OutcomeError
		res.Error = err.Error()
		return res
	}
	res.Outcome = outcome
	res.Error = a.Error
	return res
}

// reconcile classifies one valid activity against server state and applies it
// when nothing diverged. It mutates the activity record accordingly.
func (u *syncUC) reconcile(ctx context.Context, a *model.OfflineActivity) string {
	serverSide, conflict, err := u.detectConflict(ctx, a)
	if err != nil {
		a.Status = model.SyncStatusFailed
		a.Error = err.Error()
		return OutcomeError
	}
	if conflict {
		a.Status = model.SyncStatusConflict
		a.ServerPayload = serverSide
		return OutcomeConflict
	}
	if err := u.apply(ctx, a); err != nil {
		a.Status = model.SyncStatusFailed
		a.Error = err.Error()
		return OutcomeError
	}
	now := u.clock()
	a.Status = model.SyncStatusSynced
	a.SyncedAt = &now
	return OutcomeApplied
}

// detectConflict reports whether the server-side record diverged after the
// activity was recorded on-device. Quiz responses are single-submission, so
// any existing response conflicts regardless of timestamps.
func (u *syncUC) detectConflict(ctx context.Context, a *model.OfflineActivity) (map[string]any, bool, error) {
	switch a.Type {
	case model.ActivitySlideProgress:
		cur, err := u.slides.FindByStudentAndSlide(ctx, nil, a.UserID, payloadString(a.Payload, "slide_id"))
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if cur.UpdatedAt.After(a.RecordedAt) {
			return map[string]any{
				"slide_id":   cur.SlideID,
				"status":     cur.Status,
				"time_spent": cur.TimeSpent,
				"updated_at": cur.UpdatedAt,
			}, true, nil
		}
		return nil, false, nil

	case model.ActivityRecordingProgress:
		cur, err := u.recordings.FindByStudentAndRecording(ctx, nil, a.UserID, payloadString(a.Payload, "recording_id"))
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if cur.UpdatedAt.After(a.RecordedAt) {
			return map[string]any{
				"recording_id":  cur.RecordingID,
				"status":        cur.Status,
				"time_listened": cur.TimeListened,
				"percentage":    cur.Percentage,
				"updated_at":    cur.UpdatedAt,
			}, true, nil
		}
		return nil, false, nil

	case model.ActivityQuizResponse:
		cur, err := u.quizzes.FindByQuizAndStudent(ctx, nil, payloadString(a.Payload, "quiz_id"), a.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return map[string]any{
			"quiz_id":       cur.QuizID,
			"answer":        cur.Answer,
			"is_correct":    cur.IsCorrect,
			"points_earned": cur.PointsEarned,
			"submitted_at":  cur.SubmittedAt,
		}, true, nil

	case model.ActivityStudentProgress:
		cur, err := u.progress.FindByStudentClassObjective(ctx, nil, a.UserID,
			payloadString(a.Payload, "class_id"), payloadString(a.Payload, "objective_id"))
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if cur.UpdatedAt.After(a.RecordedAt) {
			return map[string]any{
				"class_id":     cur.ClassID,
				"objective_id": cur.ObjectiveID,
				"status":       cur.Status,
				"percentage":   cur.Percentage,
				"updated_at":   cur.UpdatedAt,
			}, true, nil
		}
		return nil, false, nil

	case model.ActivityLearningSession:
		// sessions are append-only, nothing to diverge from
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("%w: unknown activity type %q", domain.ErrValidation, a.Type)
}

// apply writes the activity's payload into its subject record inside one
// transaction.
func (u *syncUC) apply(ctx context.Context, a *model.OfflineActivity) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		switch a.Type {
		case model.ActivitySlideProgress:
			return u.applySlideProgress(ctx, tx, a)
		case model.ActivityRecordingProgress:
			return u.applyRecordingProgress(ctx, tx, a)
		case model.ActivityQuizResponse:
			return u.applyQuizResponse(ctx, tx, a)
		case model.ActivityStudentProgress:
			return u.applyStudentProgress(ctx, tx, a)
		case model.ActivityLearningSession:
			return u.applyLearningSession(ctx, tx, a)
		}
		return fmt.Errorf("%w: unknown activity type %q", domain.ErrValidation, a.Type)
	})
}

func (u *syncUC) applySlideProgress(ctx context.Context, tx repository.Tx, a *model.OfflineActivity) error {
	cur, err := u.slides.FindByStudentAndSlide(ctx, tx, a.UserID, payloadString(a.Payload, "slide_id"))
	if errors.Is(err, domain.ErrNotFound) {
		cur = &model.SlideProgress{
			ID:        uuid.NewString(),
			StudentID: a.UserID,
			SlideID:   payloadString(a.Payload, "slide_id"),
		}
	} else if err != nil {
		return err
	}
	cur.Status = payloadString(a.Payload, "status")
	cur.TimeSpent = payloadInt(a.Payload, "time_spent")
	cur.UpdatedAt = a.RecordedAt
	return u.slides.Save(ctx, tx, cur)
}

func (u *syncUC) applyRecordingProgress(ctx context.Context, tx repository.Tx, a *model.OfflineActivity) error {
	cur, err := u.recordings.FindByStudentAndRecording(ctx, tx, a.UserID, payloadString(a.Payload, "recording_id"))
	if errors.Is(err, domain.ErrNotFound) {
		cur = &model.RecordingProgress{
			ID:          uuid.NewString(),
			StudentID:   a.UserID,
			RecordingID: payloadString(a.Payload, "recording_id"),
		}
	} else if err != nil {
		return err
	}
	cur.Status = payloadString(a.Payload, "status")
	cur.TimeListened = payloadInt(a.Payload, "time_listened")
	if total := payloadInt(a.Payload, "total_duration"); total > 0 {
		cur.TotalDuration = total
	}
	if cur.TotalDuration > 0 {
		cur.Percentage = float64(cur.TimeListened) / float64(cur.TotalDuration) * 100
		if cur.Percentage > 100 {
			cur.Percentage = 100
		}
	}
	cur.UpdatedAt = a.RecordedAt
	return u.recordings.Save(ctx, tx, cur)
}

func (u *syncUC) applyQuizResponse(ctx context.Context, tx repository.Tx, a *model.OfflineActivity) error {
	quizID := payloadString(a.Payload, "quiz_id")
	quiz, err := u.quizzes.FindQuiz(ctx, tx, quizID)
	if err != nil {
		return err
	}
	answer := payloadInt(a.Payload, "answer")
	r := &model.QuizResponse{
		ID:          uuid.NewString(),
		QuizID:      quizID,
		StudentID:   a.UserID,
		Answer:      answer,
		IsCorrect:   answer == quiz.CorrectOption,
		SubmittedAt: a.RecordedAt,
	}
	if r.IsCorrect {
		r.PointsEarned = quiz.Points
	}
	return u.quizzes.Save(ctx, tx, r)
}

func (u *syncUC) applyStudentProgress(ctx context.Context, tx repository.Tx, a *model.OfflineActivity) error {
	classID := payloadString(a.Payload, "class_id")
	objectiveID := payloadString(a.Payload, "objective_id")
	cur, err := u.progress.FindByStudentClassObjective(ctx, tx, a.UserID, classID, objectiveID)
	if errors.Is(err, domain.ErrNotFound) {
		cur = &model.StudentProgress{
			ID:          uuid.NewString(),
			StudentID:   a.UserID,
			ClassID:     classID,
			ObjectiveID: objectiveID,
		}
	} else if err != nil {
		return err
	}
	cur.Status = payloadString(a.Payload, "status")
	cur.Percentage = payloadFloat(a.Payload, "percentage")
	cur.UpdatedAt = a.RecordedAt
	return u.progress.Save(ctx, tx, cur)
}

func (u *syncUC) applyLearningSession(ctx context.Context, tx repository.Tx, a *model.OfflineActivity) error {
	s := &model.LearningSession{
		ID:          uuid.NewString(),
		StudentID:   a.UserID,
		ClassID:     payloadString(a.Payload, "class_id"),
		SessionType: payloadString(a.Payload, "session_type"),
		StartedAt:   a.RecordedAt,
		Minutes:     payloadInt(a.Payload, "minutes"),
		Activities:  payloadInt(a.Payload, "activities"),
		Engagement:  payloadFloat(a.Payload, "engagement"),
	}
	if s.Minutes > 0 {
		end := a.RecordedAt.Add(time.Duration(s.Minutes) * time.Minute)
		s.EndedAt = &end
	}
	return u.learning.Save(ctx, tx, s)
}

// ResolveConflict settles one conflicted activity. server_wins keeps the
// server record; client_wins applies the device payload; manual applies the
// caller-supplied merged payload.
func (u *syncUC) ResolveConflict(ctx context.Context, userID, activityID string, res model.Resolution, merged map[string]any) (*model.OfflineActivity, error) {
	a, err := u.activities.FindByID(ctx, nil, activityID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, fmt.Errorf("%w: activity %s", domain.ErrNotFound, activityID)
	}
	if a.Status != model.SyncStatusConflict {
		return nil, fmt.Errorf("%w: activity %s is %s, not in conflict", domain.ErrConflict, activityID, a.Status)
	}

	switch res {
	case model.ResolutionServerWins:
		// server state stands; nothing to write
	case model.ResolutionClientWins:
		if err := u.apply(ctx, a); err != nil {
			return nil, err
		}
	case model.ResolutionManual:
		if len(merged) == 0 {
			return nil, fmt.Errorf("%w: manual resolution requires a merged payload", domain.ErrInvalidArgument)
		}
		a.Payload = merged
		if err := validateActivity(a); err != nil {
			return nil, err
		}
		if err := u.apply(ctx, a); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown resolution %q", domain.ErrInvalidArgument, res)
	}

	now := u.clock()
	a.Status = model.SyncStatusResolved
	a.Resolution = res
	a.ServerPayload = nil
	a.SyncedAt = &now
	if err := u.activities.Save(ctx, nil, a); err != nil {
		return nil, err
	}
	u.log.Info().Str("activity_id", a.ID).Str("resolution", string(res)).Msg("conflict resolved")
	return a, nil
}

// RetryFailed re-runs reconciliation for a user's failed activities.
// Conflicted activities are excluded; they need an explicit resolution.
// An activity out of attempts is left failed with a terminal error.
func (u *syncUC) RetryFailed(ctx context.Context, userID string) (*SyncReport, error) {
	failed, err := u.activities.FindByStatus(ctx, nil, userID, model.SyncStatusFailed)
	if err != nil {
		return nil, err
	}
	report := &SyncReport{Results: make([]ActivityResult, 0, len(failed))}
	for _, a := range failed {
		res := ActivityResult{OfflineID: a.OfflineID, ActivityID: a.ID}
		if a.RetryCount >= MaxSyncRetries {
			a.Error = domain.ErrRetriesExhausted.Error()
			if err := u.activities.Save(ctx, nil, a); err != nil {
				return nil, err
			}
			res.Outcome = OutcomeError
			res.Error = a.Error
			report.Errors++
			report.Results = append(report.Results, res)
			continue
		}
		a.RetryCount++
		a.Error = ""
		if err := validateActivity(a); err != nil {
			a.Status = model.SyncStatusFailed
			a.Error = err.Error()
			res.Outcome = OutcomeError
			res.Error = err.Error()
			report.Errors++
		} else {
			res.Outcome = u.reconcile(ctx, a)
			res.Error = a.Error
			switch res.Outcome {
			case OutcomeApplied:
				report.Synced++
			case OutcomeConflict:
				report.Conflicts++
			default:
				report.Errors++
			}
		}
		if err := u.activities.Save(ctx, nil, a); err != nil {
			return nil, err
		}
		metrics.IncActivity("retry_" + res.Outcome)
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (u *syncUC) Conflicts(ctx context.Context, userID string) ([]*model.OfflineActivity, error) {
	return u.activities.FindByStatus(ctx, nil, userID, model.SyncStatusConflict)
}

func (u *syncUC) Status(ctx context.Context, userID string) (*SyncStatusReport, error) {
	rep := &SyncStatusReport{}
	counts := []struct {
		status model.SyncStatus
		dst    *int
	}{
		{model.SyncStatusPending, &rep.Pending},
		{model.SyncStatusSynced, &rep.Synced},
		{model.SyncStatusConflict, &rep.Conflicts},
		{model.SyncStatusFailed, &rep.Failed},
	}
	for _, c := range counts {
		n, err := u.activities.CountByStatus(ctx, nil, userID, c.status)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	last, err := u.sessions.FindLatestByUser(ctx, nil, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	rep.LastSession = last
	return rep, nil
}

func (u *syncUC) ServerActivities(ctx context.Context, userID string, since time.Time) ([]ServerActivity, error) {
	var out []ServerActivity
	slides, err := u.slides.FindUpdatedSince(ctx, nil, userID, since)
	if err != nil {
		return nil, err
	}
	for _, p := range slides {
		out = append(out, ServerActivity{
			Type: string(model.ActivitySlideProgress),
			Payload: map[string]any{
				"slide_id":   p.SlideID,
				"status":     p.Status,
				"time_spent": p.TimeSpent,
			},
			UpdatedAt: p.UpdatedAt,
		})
	}
	recordings, err := u.recordings.FindUpdatedSince(ctx, nil, userID, since)
	if err != nil {
		return nil, err
	}
	for _, p := range recordings {
		out = append(out, ServerActivity{
			Type: string(model.ActivityRecordingProgress),
			Payload: map[string]any{
				"recording_id":  p.RecordingID,
				"status":        p.Status,
				"time_listened": p.TimeListened,
				"percentage":    p.Percentage,
			},
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}

var (
	slideStatuses     = map[string]bool{"not_viewed": true, "viewed": true, "completed": true}
	recordingStatuses = map[string]bool{"not_listened": true, "listening": true, "completed": true}
	progressStatuses  = map[string]bool{"not_started": true, "in_progress": true, "completed": true, "failed": true}
	sessionTypes      = map[string]bool{"live": true, "recorded": true, "self_study": true}
)

func validateActivity(a *model.OfflineActivity) error {
	if a.RecordedAt.IsZero() {
		return fmt.Errorf("%w: recorded_at is required", domain.ErrValidation)
	}
	switch a.Type {
	case model.ActivitySlideProgress:
		if payloadString(a.Payload, "slide_id") == "" {
			return fmt.Errorf("%w: slide_id is required", domain.ErrValidation)
		}
		if !slideStatuses[payloadString(a.Payload, "status")] {
			return fmt.Errorf("%w: invalid slide status %q", domain.ErrValidation, payloadString(a.Payload, "status"))
		}
		if payloadInt(a.Payload, "time_spent") < 0 {
			return fmt.Errorf("%w: time_spent must not be negative", domain.ErrValidation)
		}
	case model.ActivityRecordingProgress:
		if payloadString(a.Payload, "recording_id") == "" {
			return fmt.Errorf("%w: recording_id is required", domain.ErrValidation)
		}
		if !recordingStatuses[payloadString(a.Payload, "status")] {
			return fmt.Errorf("%w: invalid recording status %q", domain.ErrValidation, payloadString(a.Payload, "status"))
		}
		if payloadInt(a.Payload, "time_listened") < 0 {
			return fmt.Errorf("%w: time_listened must not be negative", domain.ErrValidation)
		}
	case model.ActivityQuizResponse:
		if payloadString(a.Payload, "quiz_id") == "" {
			return fmt.Errorf("%w: quiz_id is required", domain.ErrValidation)
		}
		if _, ok := payloadNumber(a.Payload, "answer"); !ok {
			return fmt.Errorf("%w: answer is required", domain.ErrValidation)
		}
	case model.ActivityStudentProgress:
		if payloadString(a.Payload, "class_id") == "" || payloadString(a.Payload, "objective_id") == "" {
			return fmt.Errorf("%w: class_id and objective_id are required", domain.ErrValidation)
		}
		if !progressStatuses[payloadString(a.Payload, "status")] {
			return fmt.Errorf("%w: invalid progress status %q", domain.ErrValidation, payloadString(a.Payload, "status"))
		}
		if pct := payloadFloat(a.Payload, "percentage"); pct < 0 || pct > 100 {
			return fmt.Errorf("%w: percentage must be within [0, 100]", domain.ErrValidation)
		}
	case model.ActivityLearningSession:
		if payloadString(a.Payload, "class_id") == "" {
			return fmt.Errorf("%w: class_id is required", domain.ErrValidation)
		}
		if !sessionTypes[payloadString(a.Payload, "session_type")] {
			return fmt.Errorf("%w: invalid session type %q", domain.ErrValidation, payloadString(a.Payload, "session_type"))
		}
	default:
		return fmt.Errorf("%w: unknown activity type %q", domain.ErrValidation, a.Type)
	}
	return nil
}

// payload helpers: values arrive via JSON, so numbers are float64.

func payloadString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func payloadNumber(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func payloadFloat(m map[string]any, key string) float64 {
	v, _ := payloadNumber(m, key)
	return v
}

func payloadInt(m map[string]any, key string) int {
	v, _ := payloadNumber(m, key)
	return int(v)
}
