package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/keyplan/keyplan/internal/derive"
	"github.com/keyplan/keyplan/internal/plan"
)

// BeginRun inserts a run record and returns its generated ID.
func (s *Store) BeginRun(ctx context.Context, source string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source) VALUES (?, ?)
	`, id, source)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// WritePlan stores a derived body and links it to a run. Returns the plan's
// content-addressed ID and whether a new plan row was inserted.
//
// Plans are idempotent: re-deriving an identical body hits ON CONFLICT DO
// NOTHING on the hash, and only the run link is added.
func (s *Store) WritePlan(ctx context.Context, runID string, body *plan.Body) (id string, inserted bool, err error) {
	canonical, err := plan.MarshalCanonical(body)
	if err != nil {
		return "", false, fmt.Errorf("write plan: %w", err)
	}
	id, err = plan.BodyID(body)
	if err != nil {
		return "", false, fmt.Errorf("write plan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write plan: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO plans (id, type_name, capability, canonical, rendered)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, body.TypeName, body.Capability.String(), string(canonical), plan.Render(body))
	if err != nil {
		return "", false, fmt.Errorf("write plan: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("write plan: rows affected: %w", err)
	}
	inserted = rows > 0

	_, err = tx.ExecContext(ctx, `
		INSERT INTO run_plans (run_id, plan_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, runID, id)
	if err != nil {
		return "", false, fmt.Errorf("write plan: link run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write plan: commit: %w", err)
	}
	return id, inserted, nil
}

// WriteDiagnostic stores one diagnostic under a run. Seq is the report
// order within the run; the (run, seq) pair is unique.
func (s *Store) WriteDiagnostic(ctx context.Context, runID string, seq int, d derive.Diagnostic) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnostics
		(run_id, seq, code, severity, type_name, capability, subject, message, advice, file, line, col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		seq,
		string(d.Code),
		d.Severity.String(),
		d.TypeName,
		d.Capability.String(),
		d.Subject,
		d.Message,
		d.Advice,
		d.Pos.File,
		d.Pos.Line,
		d.Pos.Col,
	)
	if err != nil {
		return fmt.Errorf("write diagnostic: %w", err)
	}
	return nil
}

// WriteDiagnostics stores a run's diagnostics in report order.
func (s *Store) WriteDiagnostics(ctx context.Context, runID string, diags []derive.Diagnostic) error {
	for i, d := range diags {
		if err := s.WriteDiagnostic(ctx, runID, i, d); err != nil {
			return err
		}
	}
	return nil
}
