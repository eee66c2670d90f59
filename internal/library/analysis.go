package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediascan/internal/pipeline"
)

// SaveAnalysis stores the outcome of kind for a file, replacing any earlier
// outcome. A non-nil analysisErr stores a failure and no payload.
func (s *Store) SaveAnalysis(ctx context.Context, fileID int64, kind string, payload any, analysisErr error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveAnalysisTx(ctx, tx, fileID, kind, payload, analysisErr)
	})
}

func saveAnalysisTx(ctx context.Context, tx *sql.Tx, fileID int64, kind string, payload any, analysisErr error) error {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return fmt.Errorf("save analysis for file %d: kind is required", fileID)
	}
	var (
		payloadJSON  any
		errorMessage any
		errorKind    any
	)
	if analysisErr != nil {
		errorMessage = analysisErr.Error()
		errorKind = ErrorKind(analysisErr)
	} else if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload for file %d: %w", kind, fileID, err)
		}
		payloadJSON = string(encoded)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO media_analysis (file_id, kind, payload_json, error_message, error_kind, analyzed_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (file_id, kind) DO UPDATE SET
            payload_json = excluded.payload_json,
            error_message = excluded.error_message,
            error_kind = excluded.error_kind,
            analyzed_at = excluded.analyzed_at`,
		fileID, kind, payloadJSON, errorMessage, errorKind, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("save %s analysis for file %d: %w", kind, fileID, err)
	}
	return nil
}

// AnalysisFor returns every stored outcome for a file ordered by kind.
func (s *Store) AnalysisFor(ctx context.Context, fileID int64) ([]AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT file_id, kind, payload_json, error_message, error_kind, analyzed_at
        FROM media_analysis WHERE file_id = ? ORDER BY kind`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list analysis: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var (
			record       AnalysisRecord
			payload      sql.NullString
			errorMessage sql.NullString
			errorKind    sql.NullString
			analyzedRaw  string
		)
		if err := rows.Scan(&record.FileID, &record.Kind, &payload, &errorMessage, &errorKind, &analyzedRaw); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		record.PayloadJSON = payload.String
		record.ErrorMessage = errorMessage.String
		record.ErrorKind = errorKind.String
		if analyzed, err := parseTimeString(analyzedRaw); err == nil {
			record.AnalyzedAt = analyzed
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list analysis: %w", err)
	}
	return records, nil
}

// AnalysisSink persists pipeline outcomes for one analysis kind.
type AnalysisSink struct {
	store *Store
	kind  string
}

var _ pipeline.ResultSink[MediaFile, Finding] = (*AnalysisSink)(nil)

// Sink returns a result sink storing outcomes under kind.
func (s *Store) Sink(kind string) *AnalysisSink {
	return &AnalysisSink{store: s, kind: kind}
}

// HandleResult stores the outcome. Successful findings carrying a duration or
// sample rate also update the catalogue row in the same transaction. Outcomes
// interrupted by cancellation are dropped so the file stays unanalyzed.
func (k *AnalysisSink) HandleResult(ctx context.Context, file MediaFile, outcome pipeline.Outcome[Finding]) error {
	if errors.Is(outcome.Err, pipeline.ErrInterrupted) || errors.Is(outcome.Err, context.Canceled) {
		return nil
	}
	kind := k.kind
	if !outcome.Failed() && outcome.Value.Kind != "" {
		kind = outcome.Value.Kind
	}
	return k.store.withTx(ctx, func(tx *sql.Tx) error {
		if outcome.Failed() {
			return saveAnalysisTx(ctx, tx, file.ID, kind, nil, outcome.Err)
		}
		finding := outcome.Value
		if err := saveAnalysisTx(ctx, tx, file.ID, kind, finding.Payload, nil); err != nil {
			return err
		}
		if finding.Duration <= 0 && finding.SampleRate <= 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE media_files SET
                duration = CASE WHEN ? > 0 THEN ? ELSE duration END,
                sample_rate = CASE WHEN ? > 0 THEN ? ELSE sample_rate END
            WHERE id = ?`,
			finding.Duration, finding.Duration, finding.SampleRate, finding.SampleRate, file.ID,
		); err != nil {
			return fmt.Errorf("update catalogue for file %d: %w", file.ID, err)
		}
		return nil
	})
}
