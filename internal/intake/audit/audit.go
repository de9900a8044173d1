// internal/intake/audit/audit.go

// Package audit records every submission attempt in Postgres so admin staff
// can reconcile the external record store against what agents actually
// submitted. Audit writes are non-critical: callers log failures and move on.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"transaction-intake/internal/common/logger"
	"transaction-intake/internal/intake/submit"

	"github.com/google/uuid"
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// RecordSubmission inserts one row per submission attempt, successful or not.
func (s *Store) RecordSubmission(ctx context.Context, res *submit.Result) error {
	warningsJSON, err := json.Marshal(res.Warnings)
	if err != nil {
		warningsJSON = []byte("[]")
	}
	errorsJSON, err := json.Marshal(res.Errors)
	if err != nil {
		errorsJSON = []byte("[]")
	}

	auditID := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submission_audit (
			id, external_record_id, success, warnings, errors, submitted_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		auditID,
		nullable(res.RecordID),
		res.Success,
		warningsJSON,
		errorsJSON,
		res.SubmittedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("audit insert failed: %w", err)
	}

	s.logger.Debug("submission audited", map[string]interface{}{
		"auditId":  auditID,
		"recordId": res.RecordID,
		"success":  res.Success,
	})
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
