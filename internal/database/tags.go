package database

import (
	"database/sql"
	"fmt"

	"knot-go/internal/model"
)

// tagBatch bounds the number of ids bound into one IN clause.
const tagBatch = 500

func (s *SQLiteDatabase) AddTags(contactID string, names []string, contact *model.Contact) error {
	return s.inTx(func(tx *sql.Tx) error {
		if err := linkTags(tx, contactID, names); err != nil {
			return err
		}
		return writeSchedule(tx, contact)
	})
}

func (s *SQLiteDatabase) RemoveTags(contactID string, names []string, contact *model.Contact) error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, name := range names {
			_, err := tx.Exec(`DELETE FROM contact_tags
				WHERE contact_id = ? AND tag_id IN (SELECT id FROM tags WHERE name = ?)`, contactID, name)
			if err != nil {
				return fmt.Errorf("removing tag %s: %w", name, err)
			}
		}
		return writeSchedule(tx, contact)
	})
}

func (s *SQLiteDatabase) SetContactTags(contactID string, names []string, contact *model.Contact) error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM contact_tags WHERE contact_id = ?`, contactID); err != nil {
			return fmt.Errorf("clearing tags: %w", err)
		}
		if err := linkTags(tx, contactID, names); err != nil {
			return err
		}
		return writeSchedule(tx, contact)
	})
}

func (s *SQLiteDatabase) ListContactTags(contactID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT t.name FROM tags t
		JOIN contact_tags ct ON ct.tag_id = t.id
		WHERE ct.contact_id = ? ORDER BY t.name`, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *SQLiteDatabase) ListTagsForContacts(ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	for start := 0; start < len(ids); start += tagBatch {
		end := min(start+tagBatch, len(ids))
		batch := ids[start:end]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		rows, err := s.db.Query(`SELECT ct.contact_id, t.name FROM contact_tags ct
			JOIN tags t ON t.id = ct.tag_id
			WHERE ct.contact_id IN (`+placeholders(len(batch))+`)
			ORDER BY ct.contact_id, t.name`, args...)
		if err != nil {
			return nil, fmt.Errorf("listing tags: %w", err)
		}
		for rows.Next() {
			var id, name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning tag: %w", err)
			}
			out[id] = append(out[id], name)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("listing tags: %w", err)
		}
	}
	return out, nil
}

func (s *SQLiteDatabase) ListTagCounts() ([]model.TagCount, error) {
	rows, err := s.db.Query(`SELECT t.id, t.name, COUNT(ct.contact_id) FROM tags t
		LEFT JOIN contact_tags ct ON ct.tag_id = t.id
		GROUP BY t.id, t.name ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("counting tags: %w", err)
	}
	defer rows.Close()

	var out []model.TagCount
	for rows.Next() {
		var tc model.TagCount
		if err := rows.Scan(&tc.ID, &tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("scanning tag count: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// linkTags upserts each name and links it to the contact. Names must already
// be normalized.
func linkTags(tx *sql.Tx, contactID string, names []string) error {
	for _, name := range names {
		if _, err := tx.Exec(`INSERT INTO tags (id, name) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
			newID(), name); err != nil {
			return fmt.Errorf("upserting tag %s: %w", name, err)
		}
		var tagID string
		if err := tx.QueryRow(`SELECT id FROM tags WHERE name = ?`, name).Scan(&tagID); err != nil {
			return fmt.Errorf("finding tag %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO contact_tags (contact_id, tag_id) VALUES (?, ?)`,
			contactID, tagID); err != nil {
			return fmt.Errorf("linking tag %s: %w", name, err)
		}
	}
	return nil
}
