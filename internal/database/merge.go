package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"knot-go/internal/knot"
	"knot-go/internal/model"
)

const candidateColumns = `id, created_at, status, reason, source, contact_a_id, contact_b_id,
	preferred_contact_id, resolved_at`

func scanCandidate(row scanner) (*model.MergeCandidate, error) {
	var (
		m                 model.MergeCandidate
		createdAt         int64
		source, preferred sql.NullString
		resolved          sql.NullInt64
	)
	if err := row.Scan(&m.ID, &createdAt, &m.Status, &m.Reason, &source, &m.ContactAID, &m.ContactBID,
		&preferred, &resolved); err != nil {
		return nil, err
	}
	m.CreatedAt = fromUnix(createdAt)
	m.Source = stringFromNull(source)
	m.PreferredContactID = stringFromNull(preferred)
	m.ResolvedAt = timeFromNull(resolved)
	return &m, nil
}

// CreateMergeCandidates inserts cs in one transaction. A pair that already
// has an open candidate is skipped; the number of rows inserted is returned.
func (s *SQLiteDatabase) CreateMergeCandidates(cs []*model.MergeCandidate) (int, error) {
	created := 0
	err := s.inTx(func(tx *sql.Tx) error {
		for _, m := range cs {
			res, err := tx.Exec(`INSERT INTO merge_candidates (id, created_at, status, reason, source,
				contact_a_id, contact_b_id, preferred_contact_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (contact_a_id, contact_b_id) WHERE status = 'open' DO NOTHING`,
				m.ID, toUnix(m.CreatedAt), m.Status, m.Reason, nullString(m.Source),
				m.ContactAID, m.ContactBID, nullString(m.PreferredContactID))
			if err != nil {
				return fmt.Errorf("inserting merge candidate: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				created += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *SQLiteDatabase) FindMergeCandidate(id string) (*model.MergeCandidate, error) {
	m, err := scanCandidate(s.db.QueryRow(`SELECT `+candidateColumns+` FROM merge_candidates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding merge candidate: %w", err)
	}
	return m, nil
}

// ListMergeCandidates returns candidates newest first. An empty status
// lists every candidate.
func (s *SQLiteDatabase) ListMergeCandidates(status string) ([]*model.MergeCandidate, error) {
	q := `SELECT ` + candidateColumns + ` FROM merge_candidates`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	rows, err := s.db.Query(q+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing merge candidates: %w", err)
	}
	defer rows.Close()

	var out []*model.MergeCandidate
	for rows.Next() {
		m, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning merge candidate: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DismissMergeCandidate closes an open candidate without merging.
func (s *SQLiteDatabase) DismissMergeCandidate(id string, now time.Time) error {
	res, err := s.db.Exec(`UPDATE merge_candidates SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?`, model.MergeDismissed, toUnix(now), id, model.MergeOpen)
	if err != nil {
		return fmt.Errorf("dismissing merge candidate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("open merge candidate %s: %w", id, knot.ErrNotFound)
	}
	return nil
}

// MergeContacts folds secondaryID into merged.ID and writes merged's
// columns, all in one transaction. Interactions and emails move across, tags
// are unioned, dates the primary already has are dropped (keeping a known
// year), and open candidates for the secondary are resolved before it is
// deleted.
func (s *SQLiteDatabase) MergeContacts(merged *model.Contact, secondaryID string, now time.Time) error {
	primaryID := merged.ID
	return s.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE contacts SET display_name = ?, email = ?, phone = ?, handle = ?,
			timezone = ?, next_touchpoint_at = ?, cadence_days = ?, created_at = ?, updated_at = ?, archived_at = ?
			WHERE id = ?`,
			merged.DisplayName, nullString(merged.Email), nullString(merged.Phone), nullString(merged.Handle),
			nullString(merged.Timezone), nullTime(merged.NextTouchpointAt), nullInt(merged.CadenceDays),
			toUnix(merged.CreatedAt), toUnix(merged.UpdatedAt), nullTime(merged.ArchivedAt), primaryID)
		if err != nil {
			return fmt.Errorf("updating contact: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("contact %s: %w", primaryID, knot.ErrNotFound)
		}

		if _, err := tx.Exec(`UPDATE interactions SET contact_id = ? WHERE contact_id = ?`, primaryID, secondaryID); err != nil {
			return fmt.Errorf("moving interactions: %w", err)
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO contact_tags (contact_id, tag_id)
			SELECT ?, tag_id FROM contact_tags WHERE contact_id = ?`, primaryID, secondaryID); err != nil {
			return fmt.Errorf("merging tags: %w", err)
		}
		if _, err := tx.Exec(`UPDATE contact_emails SET contact_id = ?, is_primary = 0 WHERE contact_id = ?`,
			primaryID, secondaryID); err != nil {
			return fmt.Errorf("moving emails: %w", err)
		}
		if merged.Email != nil {
			if err := promoteEmail(tx, model.ContactEmail{ContactID: primaryID, Email: *merged.Email, CreatedAt: now}); err != nil {
				return err
			}
		}
		if err := mergeDates(tx, primaryID, secondaryID, now); err != nil {
			return err
		}

		if _, err := tx.Exec(`UPDATE merge_candidates SET status = ?, resolved_at = ?
			WHERE status = ? AND contact_a_id IN (?, ?) AND contact_b_id IN (?, ?)`,
			model.MergeMerged, toUnix(now), model.MergeOpen, primaryID, secondaryID, primaryID, secondaryID); err != nil {
			return fmt.Errorf("resolving merge candidates: %w", err)
		}
		if _, err := tx.Exec(`UPDATE merge_candidates SET status = ?, resolved_at = ?
			WHERE status = ? AND (contact_a_id = ? OR contact_b_id = ?)`,
			model.MergeDismissed, toUnix(now), model.MergeOpen, secondaryID, secondaryID); err != nil {
			return fmt.Errorf("dismissing merge candidates: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM contacts WHERE id = ?`, secondaryID); err != nil {
			return fmt.Errorf("deleting merged contact: %w", err)
		}
		return nil
	})
}

// mergeDates moves the secondary's dates to the primary. A date matching one
// the primary already has (same kind, month, day and label) is dropped, and
// its year fills a missing year on the kept date.
func mergeDates(tx *sql.Tx, primaryID, secondaryID string, now time.Time) error {
	kept, err := datesIn(tx, primaryID)
	if err != nil {
		return err
	}
	moved, err := datesIn(tx, secondaryID)
	if err != nil {
		return err
	}

	for _, d := range moved {
		dup := findSameDate(kept, d)
		if dup == nil {
			if _, err := tx.Exec(`UPDATE contact_dates SET contact_id = ? WHERE id = ?`, primaryID, d.ID); err != nil {
				return fmt.Errorf("moving contact date: %w", err)
			}
			kept = append(kept, d)
			continue
		}
		if dup.Year == nil && d.Year != nil {
			if _, err := tx.Exec(`UPDATE contact_dates SET year = ?, updated_at = ? WHERE id = ?`,
				*d.Year, toUnix(now), dup.ID); err != nil {
				return fmt.Errorf("updating contact date: %w", err)
			}
			dup.Year = d.Year
		}
		if _, err := tx.Exec(`DELETE FROM contact_dates WHERE id = ?`, d.ID); err != nil {
			return fmt.Errorf("deleting duplicate date: %w", err)
		}
	}
	return nil
}

func datesIn(tx *sql.Tx, contactID string) ([]*model.ContactDate, error) {
	rows, err := tx.Query(`SELECT `+dateColumns+` FROM contact_dates d WHERE d.contact_id = ? ORDER BY d.created_at, d.id`, contactID)
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

func findSameDate(dates []*model.ContactDate, d *model.ContactDate) *model.ContactDate {
	for _, k := range dates {
		if k.Kind == d.Kind && k.Month == d.Month && k.Day == d.Day && sameLabel(k.Label, d.Label) {
			return k
		}
	}
	return nil
}

func sameLabel(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
