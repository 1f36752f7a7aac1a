package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medgate/internal/patient/models"
	"medgate/pkg/domain"
	"medgate/pkg/platform/sentinel"
	txcontext "medgate/pkg/platform/tx"
)

// PostgresStore persists patients in the patients table. Ids come from a
// BIGSERIAL so they are unique and increasing across processes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunInTx runs fn in a database transaction carried by the context. Stores
// called with that context join the transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Patient) error {
	query := `
		INSERT INTO patients (name, contact, diagnosis, masked_name, masked_contact, date_added)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, query,
		p.Name, p.Contact, p.Diagnosis, p.MaskedName, p.MaskedContact, p.DateAdded,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	p.ID = domain.PatientID(id)
	return nil
}

// FindByID loads one patient. Inside a transaction the row is locked until
// commit so a read-modify-write cannot interleave with another edit.
func (s *PostgresStore) FindByID(ctx context.Context, id domain.PatientID) (*models.Patient, error) {
	query := `
		SELECT id, name, contact, diagnosis, masked_name, masked_contact, date_added
		FROM patients
		WHERE id = $1
	`
	if _, ok := txcontext.From(ctx); ok {
		query += " FOR UPDATE"
	}
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, query, int64(id))
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Patient, error) {
	query := `
		SELECT id, name, contact, diagnosis, masked_name, masked_contact, date_added
		FROM patients
		WHERE ($1 = '' OR diagnosis = $1)
		  AND ($2 = '' OR CAST(id AS TEXT) LIKE $3 ESCAPE '\' OR LOWER(masked_contact) LIKE LOWER($3) ESCAPE '\')
		ORDER BY id
	`
	pattern := "%" + likeEscaper.Replace(filter.Search) + "%"
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, query, filter.Diagnosis, filter.Search, pattern)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	out := []*models.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return out, nil
}

// Update rewrites every mutable column. date_added is never touched.
func (s *PostgresStore) Update(ctx context.Context, p *models.Patient) error {
	query := `
		UPDATE patients
		SET name = $2, contact = $3, diagnosis = $4, masked_name = $5, masked_contact = $6
		WHERE id = $1
	`
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, query,
		int64(p.ID), p.Name, p.Contact, p.Diagnosis, p.MaskedName, p.MaskedContact,
	)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.PatientID) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return requireOneRow(res)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*models.Patient, error) {
	var (
		p  models.Patient
		id int64
	)
	if err := row.Scan(&id, &p.Name, &p.Contact, &p.Diagnosis, &p.MaskedName, &p.MaskedContact, &p.DateAdded); err != nil {
		return nil, err
	}
	p.ID = domain.PatientID(id)
	p.DateAdded = p.DateAdded.UTC()
	return &p, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
