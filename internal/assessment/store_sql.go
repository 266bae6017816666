package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/grading"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	events *syncx.EventRepo
}

func NewSQLStore(db *sql.DB, driver string, events *syncx.EventRepo) *SQLStore {
	if events == nil {
		events = syncx.NewEventRepo(db, "")
	}
	return &SQLStore{db: db, driver: driver, events: events}
}

func (s *SQLStore) PutAssessment(ctx context.Context, a Assessment) error {
	qj, err := json.Marshal(a.Questions)
	if err != nil {
		return err
	}
	var limit sql.NullInt64
	if a.TimeLimitSeconds != nil {
		limit = sql.NullInt64{Int64: int64(*a.TimeLimitSeconds), Valid: true}
	}
	share := sql.NullString{String: a.ShareToken, Valid: a.ShareToken != ""}
	created := a.CreatedAt
	if created == 0 {
		created = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exist int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM assessments WHERE id=$1`, a.ID).Scan(&exist)
	switch {
	case err == nil:
		return ErrExists
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assessments (id,title,kind,time_limit_sec,creator_id,visibility,share_token,questions_json,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.Title, string(a.Kind), limit, a.CreatorID, string(a.Visibility), share, string(qj), created); err != nil {
		return err
	}
	return tx.Commit()
}

const assessmentCols = `id,title,kind,time_limit_sec,creator_id,visibility,share_token,questions_json,created_at`

func (s *SQLStore) GetAssessment(ctx context.Context, id string) (Assessment, error) {
	return scanAssessment(s.db.QueryRowContext(ctx,
		`SELECT `+assessmentCols+` FROM assessments WHERE id=$1`, id))
}

func (s *SQLStore) GetAssessmentByShareToken(ctx context.Context, token string) (Assessment, error) {
	if token == "" {
		return Assessment{}, ErrNotFound
	}
	return scanAssessment(s.db.QueryRowContext(ctx,
		`SELECT `+assessmentCols+` FROM assessments WHERE share_token=$1`, token))
}

func scanAssessment(row *sql.Row) (Assessment, error) {
	var (
		a     Assessment
		kind  string
		vis   string
		limit sql.NullInt64
		share sql.NullString
		qjson string
	)
	if err := row.Scan(&a.ID, &a.Title, &kind, &limit, &a.CreatorID, &vis, &share, &qjson, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assessment{}, ErrNotFound
		}
		return Assessment{}, err
	}
	a.Kind = grading.Kind(kind)
	a.Visibility = Visibility(vis)
	a.ShareToken = share.String
	if limit.Valid {
		v := int(limit.Int64)
		a.TimeLimitSeconds = &v
	}
	if err := json.Unmarshal([]byte(qjson), &a.Questions); err != nil {
		return Assessment{}, fmt.Errorf("decode questions: %w", err)
	}
	return a, nil
}

const submissionCols = `id,assessment_id,respondent_user_id,respondent_anon_id,attempt_token,answers_json,score,total,percentage,grade,remark,submitted_at`

func (s *SQLStore) CreateSubmission(ctx context.Context, sub Submission) (Submission, bool, error) {
	if sub.AttemptToken != "" {
		prev, err := s.submissionByToken(ctx, sub.AssessmentID, sub.AttemptToken)
		if err == nil {
			return prev, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Submission{}, false, err
		}
	}

	ansJSON, err := json.Marshal(sub.Answers)
	if err != nil {
		return Submission{}, false, err
	}
	evt, err := json.Marshal(struct {
		SubmissionID string        `json:"submission_id"`
		Respondent   string        `json:"respondent"`
		Score        int           `json:"score"`
		Total        int           `json:"total"`
		Grade        grading.Grade `json:"grade"`
	}{sub.ID, sub.Respondent.Key(), sub.Score, sub.Total, sub.Grade})
	if err != nil {
		return Submission{}, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Submission{}, false, err
	}
	defer tx.Rollback()

	var exist int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM assessments WHERE id=$1`, sub.AssessmentID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, false, ErrNotFound
		}
		return Submission{}, false, err
	}
	token := sql.NullString{String: sub.AttemptToken, Valid: sub.AttemptToken != ""}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO submissions (`+submissionCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		sub.ID, sub.AssessmentID, sub.Respondent.UserID, sub.Respondent.AnonymousID, token,
		string(ansJSON), sub.Score, sub.Total, sub.Percentage, string(sub.Grade), sub.Remark, sub.SubmittedAt)
	if err != nil {
		_ = tx.Rollback()
		// lost a race on the (assessment_id, attempt_token) unique index
		if sub.AttemptToken != "" {
			if prev, perr := s.submissionByToken(ctx, sub.AssessmentID, sub.AttemptToken); perr == nil {
				return prev, false, nil
			}
		}
		return Submission{}, false, err
	}
	if err := syncx.AppendTo(ctx, tx, syncx.Event{
		SiteID:   s.events.SiteID(),
		Type:     syncx.TypeSubmissionRecorded,
		Key:      sub.ID,
		DataJSON: string(evt),
	}); err != nil {
		return Submission{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return Submission{}, false, err
	}
	return sub, true, nil
}

func (s *SQLStore) submissionByToken(ctx context.Context, assessmentID, token string) (Submission, error) {
	return scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE assessment_id=$1 AND attempt_token=$2`,
		assessmentID, token))
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE id=$1`, id))
}

func (s *SQLStore) ListSubmissions(ctx context.Context, assessmentID string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE assessment_id=$1 ORDER BY submitted_at ASC, id ASC`,
		assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (Submission, error) {
	var (
		sub   Submission
		token sql.NullString
		ans   string
		grade string
	)
	err := row.Scan(&sub.ID, &sub.AssessmentID, &sub.Respondent.UserID, &sub.Respondent.AnonymousID, &token,
		&ans, &sub.Score, &sub.Total, &sub.Percentage, &grade, &sub.Remark, &sub.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	sub.AttemptToken = token.String
	sub.Grade = grading.Grade(grade)
	if err := json.Unmarshal([]byte(ans), &sub.Answers); err != nil {
		return Submission{}, fmt.Errorf("decode answers: %w", err)
	}
	return sub, nil
}
