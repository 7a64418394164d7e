package database

import (
	"database/sql"
	"errors"
	"fmt"

	"knot-go/internal/knot"
	"knot-go/internal/model"
)

const dateColumns = `d.id, d.contact_id, d.kind, d.label, d.month, d.day, d.year,
	d.created_at, d.updated_at, d.source`

func scanDate(row scanner) (*model.ContactDate, error) {
	var (
		d                    model.ContactDate
		kind                 string
		label, source        sql.NullString
		year                 sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&d.ID, &d.ContactID, &kind, &label, &d.Month, &d.Day, &year,
		&createdAt, &updatedAt, &source); err != nil {
		return nil, err
	}
	d.Kind = model.DateKind(kind)
	d.Label = stringFromNull(label)
	d.Year = intFromNull(year)
	d.CreatedAt = fromUnix(createdAt)
	d.UpdatedAt = fromUnix(updatedAt)
	d.Source = stringFromNull(source)
	return &d, nil
}

func (s *SQLiteDatabase) CreateContactDate(d *model.ContactDate) error {
	_, err := s.db.Exec(`INSERT INTO contact_dates (id, contact_id, kind, label, month, day, year,
		created_at, updated_at, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ContactID, string(d.Kind), nullString(d.Label), d.Month, d.Day, nullInt(d.Year),
		toUnix(d.CreatedAt), toUnix(d.UpdatedAt), nullString(d.Source))
	if err != nil {
		return fmt.Errorf("inserting contact date: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindContactDate(id string) (*model.ContactDate, error) {
	d, err := scanDate(s.db.QueryRow(`SELECT `+dateColumns+` FROM contact_dates d WHERE d.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding contact date: %w", err)
	}
	return d, nil
}

func (s *SQLiteDatabase) ListContactDates(contactID string) ([]*model.ContactDate, error) {
	return s.queryDates(`SELECT `+dateColumns+` FROM contact_dates d
		WHERE d.contact_id = ? ORDER BY d.month, d.day, d.kind, d.id`, contactID)
}

func (s *SQLiteDatabase) ListActiveContactDates() ([]*model.ContactDate, error) {
	return s.queryDates(`SELECT ` + dateColumns + ` FROM contact_dates d
		JOIN contacts c ON c.id = d.contact_id
		WHERE c.archived_at IS NULL ORDER BY d.month, d.day, d.kind, d.id`)
}

func (s *SQLiteDatabase) DeleteContactDate(id string) error {
	res, err := s.db.Exec(`DELETE FROM contact_dates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting contact date: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("date %s: %w", id, knot.ErrNotFound)
	}
	return nil
}

func (s *SQLiteDatabase) queryDates(q string, args ...any) ([]*model.ContactDate, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing contact dates: %w", err)
	}
	defer rows.Close()

	var out []*model.ContactDate
	for rows.Next() {
		d, err := scanDate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contact date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
