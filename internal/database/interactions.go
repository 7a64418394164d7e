package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"knot-go/internal/model"
)

// otherKindPrefix marks free-form kinds in the interactions.kind column.
const otherKindPrefix = "other:"

func encodeKind(k model.InteractionKind) string {
	if k.Case == model.KindOther {
		return otherKindPrefix + k.Label
	}
	return k.String()
}

func decodeKind(raw string) (model.InteractionKind, error) {
	if label, ok := strings.CutPrefix(raw, otherKindPrefix); ok {
		return model.OtherKind(label)
	}
	return model.ParseInteractionKind(raw)
}

func (s *SQLiteDatabase) CreateInteraction(i *model.Interaction, contact *model.Contact) error {
	return s.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO interactions (id, contact_id, occurred_at, created_at, kind, note, follow_up_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i.ID, i.ContactID, toUnix(i.OccurredAt), toUnix(i.CreatedAt), encodeKind(i.Kind), i.Note,
			nullTime(i.FollowUpAt))
		if err != nil {
			return fmt.Errorf("inserting interaction: %w", err)
		}
		return writeSchedule(tx, contact)
	})
}

// writeSchedule stores c's cadence and touchpoint. A nil c is a no-op.
func writeSchedule(tx *sql.Tx, c *model.Contact) error {
	if c == nil {
		return nil
	}
	_, err := tx.Exec(`UPDATE contacts SET cadence_days = ?, next_touchpoint_at = ?, updated_at = ? WHERE id = ?`,
		nullInt(c.CadenceDays), nullTime(c.NextTouchpointAt), toUnix(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("rescheduling contact: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListInteractions(contactID string, limit int) ([]*model.Interaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT id, contact_id, occurred_at, created_at, kind, note, follow_up_at
		FROM interactions WHERE contact_id = ?
		ORDER BY occurred_at DESC, created_at DESC, id DESC LIMIT ?`, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	defer rows.Close()

	var out []*model.Interaction
	for rows.Next() {
		var (
			i                     model.Interaction
			occurredAt, createdAt int64
			kind                  string
			followUp              sql.NullInt64
		)
		if err := rows.Scan(&i.ID, &i.ContactID, &occurredAt, &createdAt, &kind, &i.Note, &followUp); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		if i.Kind, err = decodeKind(kind); err != nil {
			return nil, fmt.Errorf("interaction %s: %w", i.ID, err)
		}
		i.OccurredAt = fromUnix(occurredAt)
		i.CreatedAt = fromUnix(createdAt)
		i.FollowUpAt = timeFromNull(followUp)
		out = append(out, &i)
	}
	return out, rows.Err()
}

func (s *SQLiteDatabase) LatestInteractions(ids []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(ids))
	for start := 0; start < len(ids); start += tagBatch {
		end := min(start+tagBatch, len(ids))
		batch := ids[start:end]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		rows, err := s.db.Query(`SELECT contact_id, MAX(occurred_at) FROM interactions
			WHERE contact_id IN (`+placeholders(len(batch))+`) GROUP BY contact_id`, args...)
		if err != nil {
			return nil, fmt.Errorf("loading latest interactions: %w", err)
		}
		for rows.Next() {
			var (
				id string
				at int64
			)
			if err := rows.Scan(&id, &at); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning interaction: %w", err)
			}
			out[id] = fromUnix(at)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("loading latest interactions: %w", err)
		}
	}
	return out, nil
}
