package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"knot-go/internal/knot"
	"knot-go/internal/model"
	"knot-go/internal/query"
)

const contactColumns = `c.id, c.display_name, c.email, c.phone, c.handle, c.timezone,
	c.next_touchpoint_at, c.cadence_days, c.created_at, c.updated_at, c.archived_at`

func scanContact(row scanner) (*model.Contact, error) {
	var (
		c                        model.Contact
		email, phone, handle, tz sql.NullString
		next, cadence, archived  sql.NullInt64
		createdAt, updatedAt     int64
	)
	if err := row.Scan(&c.ID, &c.DisplayName, &email, &phone, &handle, &tz,
		&next, &cadence, &createdAt, &updatedAt, &archived); err != nil {
		return nil, err
	}
	c.Email = stringFromNull(email)
	c.Phone = stringFromNull(phone)
	c.Handle = stringFromNull(handle)
	c.Timezone = stringFromNull(tz)
	c.NextTouchpointAt = timeFromNull(next)
	c.CadenceDays = intFromNull(cadence)
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)
	c.ArchivedAt = timeFromNull(archived)
	return &c, nil
}

func (s *SQLiteDatabase) CreateContact(c *model.Contact, emails []model.ContactEmail, tags []string) error {
	return s.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO contacts (id, display_name, email, phone, handle, timezone,
			next_touchpoint_at, cadence_days, created_at, updated_at, archived_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.DisplayName, nullString(c.Email), nullString(c.Phone), nullString(c.Handle),
			nullString(c.Timezone), nullTime(c.NextTouchpointAt), nullInt(c.CadenceDays),
			toUnix(c.CreatedAt), toUnix(c.UpdatedAt), nullTime(c.ArchivedAt))
		if err != nil {
			return fmt.Errorf("inserting contact: %w", err)
		}

		for _, e := range emails {
			e.ContactID = c.ID
			if err := insertEmail(tx, e); err != nil {
				return err
			}
		}

		if err := linkTags(tx, c.ID, tags); err != nil {
			return err
		}
		return nil
	})
}

func (s *SQLiteDatabase) FindContact(id string) (*model.Contact, error) {
	row := s.db.QueryRow(`SELECT `+contactColumns+` FROM contacts c WHERE c.id = ?`, id)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding contact: %w", err)
	}
	return c, nil
}

func (s *SQLiteDatabase) UpdateContact(c *model.Contact) error {
	return s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE contacts SET display_name = ?, email = ?, phone = ?, handle = ?,
			timezone = ?, next_touchpoint_at = ?, cadence_days = ?, updated_at = ?, archived_at = ?
			WHERE id = ?`,
			c.DisplayName, nullString(c.Email), nullString(c.Phone), nullString(c.Handle),
			nullString(c.Timezone), nullTime(c.NextTouchpointAt), nullInt(c.CadenceDays),
			toUnix(c.UpdatedAt), nullTime(c.ArchivedAt), c.ID)
		if err != nil {
			return fmt.Errorf("updating contact: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("contact %s: %w", c.ID, knot.ErrNotFound)
		}

		if c.Email == nil {
			if _, err := tx.Exec(`UPDATE contact_emails SET is_primary = 0 WHERE contact_id = ?`, c.ID); err != nil {
				return fmt.Errorf("clearing primary email: %w", err)
			}
			return nil
		}
		return promoteEmail(tx, model.ContactEmail{
			ContactID: c.ID,
			Email:     *c.Email,
			IsPrimary: true,
			CreatedAt: c.UpdatedAt,
		})
	})
}

func (s *SQLiteDatabase) UpdateContacts(cs []*model.Contact) error {
	if len(cs) == 0 {
		return nil
	}
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`UPDATE contacts SET cadence_days = ?, next_touchpoint_at = ?, updated_at = ?
			WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("preparing update: %w", err)
		}
		defer stmt.Close()

		for _, c := range cs {
			if _, err := stmt.Exec(nullInt(c.CadenceDays), nullTime(c.NextTouchpointAt), toUnix(c.UpdatedAt), c.ID); err != nil {
				return fmt.Errorf("updating contact %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteDatabase) DeleteContact(id string) error {
	res, err := s.db.Exec(`DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting contact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("contact %s: %w", id, knot.ErrNotFound)
	}
	return nil
}

func (s *SQLiteDatabase) ListContacts(plan *query.Plan) ([]*model.Contact, error) {
	q, args := renderPlan(plan)
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	var out []*model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return out, nil
}

func newID() string {
	return uuid.New().String()
}
