package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"knot-go/internal/knot"
	"knot-go/internal/model"
)

func (s *SQLiteDatabase) ListEmails(contactID string) ([]model.ContactEmail, error) {
	rows, err := s.db.Query(`SELECT contact_id, email, is_primary, created_at, source
		FROM contact_emails WHERE contact_id = ?
		ORDER BY is_primary DESC, created_at, email`, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing emails: %w", err)
	}
	defer rows.Close()

	var out []model.ContactEmail
	for rows.Next() {
		var (
			e         model.ContactEmail
			createdAt int64
			source    sql.NullString
		)
		if err := rows.Scan(&e.ContactID, &e.Email, &e.IsPrimary, &createdAt, &source); err != nil {
			return nil, fmt.Errorf("scanning email: %w", err)
		}
		e.CreatedAt = fromUnix(createdAt)
		e.Source = stringFromNull(source)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteDatabase) AddEmail(e model.ContactEmail) error {
	return s.inTx(func(tx *sql.Tx) error {
		owner, err := emailOwner(tx, e.Email)
		if err != nil {
			return err
		}
		switch {
		case owner == "":
			var primaries int
			if err := tx.QueryRow(`SELECT COUNT(*) FROM contact_emails WHERE contact_id = ? AND is_primary = 1`,
				e.ContactID).Scan(&primaries); err != nil {
				return fmt.Errorf("counting primary emails: %w", err)
			}
			if primaries == 0 {
				e.IsPrimary = true
			}
		case owner != e.ContactID:
			return duplicateEmail(e.Email)
		case !e.IsPrimary:
			return nil
		}
		if e.IsPrimary {
			return promoteEmail(tx, e)
		}
		return insertEmail(tx, e)
	})
}

func (s *SQLiteDatabase) RemoveEmail(contactID, email string, now time.Time) error {
	return s.inTx(func(tx *sql.Tx) error {
		var primary bool
		err := tx.QueryRow(`SELECT is_primary FROM contact_emails WHERE contact_id = ? AND email = ?`,
			contactID, email).Scan(&primary)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("email %s: %w", email, knot.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("finding email: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM contact_emails WHERE contact_id = ? AND email = ?`, contactID, email); err != nil {
			return fmt.Errorf("removing email: %w", err)
		}
		if !primary {
			return touchContact(tx, contactID, now)
		}

		var next sql.NullString
		err = tx.QueryRow(`SELECT email FROM contact_emails WHERE contact_id = ?
			ORDER BY created_at, email LIMIT 1`, contactID).Scan(&next)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("finding next primary email: %w", err)
		}
		if next.Valid {
			if _, err := tx.Exec(`UPDATE contact_emails SET is_primary = 1 WHERE contact_id = ? AND email = ?`,
				contactID, next.String); err != nil {
				return fmt.Errorf("promoting email: %w", err)
			}
		}
		if _, err := tx.Exec(`UPDATE contacts SET email = ?, updated_at = ? WHERE id = ?`,
			next, toUnix(now), contactID); err != nil {
			return fmt.Errorf("updating primary email: %w", err)
		}
		return nil
	})
}

func (s *SQLiteDatabase) SetPrimaryEmail(contactID, email string, now time.Time) error {
	return s.inTx(func(tx *sql.Tx) error {
		owner, err := emailOwner(tx, email)
		if err != nil {
			return err
		}
		if owner != contactID {
			return fmt.Errorf("email %s: %w", email, knot.ErrNotFound)
		}
		if err := promoteEmail(tx, model.ContactEmail{ContactID: contactID, Email: email, CreatedAt: now}); err != nil {
			return err
		}
		return touchContact(tx, contactID, now)
	})
}

// emailOwner returns the id of the contact holding email, or "".
func emailOwner(tx *sql.Tx, email string) (string, error) {
	var owner string
	err := tx.QueryRow(`SELECT contact_id FROM contact_emails WHERE email = ?`, email).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("finding email owner: %w", err)
	}
	return owner, nil
}

func insertEmail(tx *sql.Tx, e model.ContactEmail) error {
	_, err := tx.Exec(`INSERT INTO contact_emails (contact_id, email, is_primary, created_at, source)
		VALUES (?, ?, ?, ?, ?)`,
		e.ContactID, e.Email, e.IsPrimary, toUnix(e.CreatedAt), nullString(e.Source))
	if isUniqueViolation(err) {
		return duplicateEmail(e.Email)
	}
	if err != nil {
		return fmt.Errorf("inserting email: %w", err)
	}
	return nil
}

// promoteEmail makes e the contact's only primary address, inserting it when
// missing, and mirrors it onto contacts.email.
func promoteEmail(tx *sql.Tx, e model.ContactEmail) error {
	owner, err := emailOwner(tx, e.Email)
	if err != nil {
		return err
	}
	if owner != "" && owner != e.ContactID {
		return duplicateEmail(e.Email)
	}

	if _, err := tx.Exec(`UPDATE contact_emails SET is_primary = 0 WHERE contact_id = ?`, e.ContactID); err != nil {
		return fmt.Errorf("clearing primary email: %w", err)
	}
	if owner == "" {
		e.IsPrimary = true
		if err := insertEmail(tx, e); err != nil {
			return err
		}
	} else if _, err := tx.Exec(`UPDATE contact_emails SET is_primary = 1 WHERE contact_id = ? AND email = ?`,
		e.ContactID, e.Email); err != nil {
		return fmt.Errorf("setting primary email: %w", err)
	}

	if _, err := tx.Exec(`UPDATE contacts SET email = ? WHERE id = ?`, e.Email, e.ContactID); err != nil {
		return fmt.Errorf("updating primary email: %w", err)
	}
	return nil
}

func touchContact(tx *sql.Tx, contactID string, now time.Time) error {
	if _, err := tx.Exec(`UPDATE contacts SET updated_at = ? WHERE id = ?`, toUnix(now), contactID); err != nil {
		return fmt.Errorf("updating contact: %w", err)
	}
	return nil
}

func duplicateEmail(email string) error {
	return &model.ValidationError{Field: "email", Value: email, Err: model.ErrDuplicateEmail}
}
