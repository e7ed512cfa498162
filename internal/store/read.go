package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keyplan/keyplan/internal/derive"
	"github.com/keyplan/keyplan/internal/schema"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Run is one stored derivation run.
type Run struct {
	ID        string
	Source    string
	CreatedAt string
}

// StoredPlan is one content-addressed derived body.
type StoredPlan struct {
	ID         string
	TypeName   string
	Capability schema.Capability
	Canonical  string
	Rendered   string
}

// StoredDiagnostic is one diagnostic as persisted under a run.
type StoredDiagnostic struct {
	Seq        int
	Diagnostic derive.Diagnostic
}

// Runs returns all runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, created_at FROM runs
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetPlan returns one plan by its content hash.
func (s *Store) GetPlan(ctx context.Context, id string) (*StoredPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type_name, capability, canonical, rendered
		FROM plans WHERE id = ?
	`, id)

	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return p, err
}

// PlansForRun returns the plans a run produced, ordered by type name then
// capability.
func (s *Store) PlansForRun(ctx context.Context, runID string) ([]StoredPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.type_name, p.capability, p.canonical, p.rendered
		FROM plans p
		JOIN run_plans rp ON rp.plan_id = p.id
		WHERE rp.run_id = ?
		ORDER BY p.type_name, p.capability
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("plans for run: %w", err)
	}
	defer rows.Close()

	var plans []StoredPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("plans for run: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// PlansForType returns every stored plan for one type name.
func (s *Store) PlansForType(ctx context.Context, typeName string) ([]StoredPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type_name, capability, canonical, rendered
		FROM plans WHERE type_name = ?
		ORDER BY capability
	`, typeName)
	if err != nil {
		return nil, fmt.Errorf("plans for type: %w", err)
	}
	defer rows.Close()

	var plans []StoredPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("plans for type: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// DiagnosticsForRun returns a run's diagnostics in report order.
func (s *Store) DiagnosticsForRun(ctx context.Context, runID string) ([]StoredDiagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, code, severity, type_name, capability, subject, message, advice, file, line, col
		FROM diagnostics WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("diagnostics for run: %w", err)
	}
	defer rows.Close()

	var out []StoredDiagnostic
	for rows.Next() {
		var (
			sd       StoredDiagnostic
			code     string
			severity string
			cap      string
		)
		d := &sd.Diagnostic
		if err := rows.Scan(&sd.Seq, &code, &severity, &d.TypeName, &cap,
			&d.Subject, &d.Message, &d.Advice, &d.Pos.File, &d.Pos.Line, &d.Pos.Col); err != nil {
			return nil, fmt.Errorf("diagnostics for run: scan: %w", err)
		}
		d.Code = derive.Code(code)
		if severity == "warning" {
			d.Severity = derive.SeverityWarning
		}
		if d.Capability, err = schema.ParseCapability(cap); err != nil {
			return nil, fmt.Errorf("diagnostics for run: %w", err)
		}
		out = append(out, sd)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*StoredPlan, error) {
	var (
		p   StoredPlan
		cap string
	)
	if err := row.Scan(&p.ID, &p.TypeName, &cap, &p.Canonical, &p.Rendered); err != nil {
		return nil, err
	}
	c, err := schema.ParseCapability(cap)
	if err != nil {
		return nil, err
	}
	p.Capability = c
	return &p, nil
}
