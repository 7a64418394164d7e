package knot

import (
	"time"

	"knot-go/internal/model"
	"knot-go/internal/query"
)

// Database provides storage for contacts and their related records.
// Find methods return (nil, nil) when nothing matches. Methods that touch
// more than one table run in a single transaction.
type Database interface {
	// Contact operations

	// CreateContact inserts c together with its email rows and tag links.
	CreateContact(c *model.Contact, emails []model.ContactEmail, tags []string) error

	// FindContact returns the contact with the given id.
	FindContact(id string) (*model.Contact, error)

	// UpdateContact writes every column of c. A non-nil c.Email is added to
	// the contact's emails and marked primary; a nil c.Email clears the
	// primary flag. Returns a *model.ValidationError wrapping
	// model.ErrDuplicateEmail when the address belongs to another contact.
	UpdateContact(c *model.Contact) error

	// UpdateContacts writes several contacts' scheduling columns at once.
	UpdateContacts(cs []*model.Contact) error

	// DeleteContact removes the contact and everything attached to it.
	DeleteContact(id string) error

	// ListContacts returns the contacts matching plan in plan order.
	ListContacts(plan *query.Plan) ([]*model.Contact, error)

	// Email operations

	ListEmails(contactID string) ([]model.ContactEmail, error)

	// AddEmail attaches an address. Adding an address the contact already
	// has is a no-op unless e.IsPrimary promotes it.
	AddEmail(e model.ContactEmail) error

	// RemoveEmail detaches an address. When it was primary, the oldest
	// remaining address is promoted.
	RemoveEmail(contactID, email string, now time.Time) error

	// SetPrimaryEmail marks an existing address as the primary one.
	SetPrimaryEmail(contactID, email string, now time.Time) error

	// Tag operations

	// The tag writers below also store contact's cadence and touchpoint in
	// the same transaction when contact is non-nil.

	// AddTags upserts names and links them to the contact.
	AddTags(contactID string, names []string, contact *model.Contact) error

	// RemoveTags unlinks names from the contact. Unknown names are ignored.
	RemoveTags(contactID string, names []string, contact *model.Contact) error

	// SetContactTags replaces the contact's tag set.
	SetContactTags(contactID string, names []string, contact *model.Contact) error

	// ListContactTags returns the contact's tag names in name order.
	ListContactTags(contactID string) ([]string, error)

	// ListTagsForContacts returns tag names keyed by contact id.
	ListTagsForContacts(ids []string) (map[string][]string, error)

	// ListTagCounts returns every tag with the number of contacts using it.
	ListTagCounts() ([]model.TagCount, error)

	// Interaction operations

	// CreateInteraction inserts i. When contact is non-nil its scheduling
	// columns are written in the same transaction.
	CreateInteraction(i *model.Interaction, contact *model.Contact) error

	// ListInteractions returns the newest interactions first. limit <= 0
	// means no limit.
	ListInteractions(contactID string, limit int) ([]*model.Interaction, error)

	// LatestInteractions returns the newest occurred_at keyed by contact id.
	LatestInteractions(ids []string) (map[string]time.Time, error)

	// Contact date operations

	CreateContactDate(d *model.ContactDate) error
	FindContactDate(id string) (*model.ContactDate, error)
	ListContactDates(contactID string) ([]*model.ContactDate, error)

	// ListActiveContactDates returns the dates of every non-archived contact.
	ListActiveContactDates() ([]*model.ContactDate, error)

	DeleteContactDate(id string) error

	// Merge operations

	// MergeContacts folds secondaryID into merged.ID and stores merged's
	// columns. Interactions, emails, tags and dates move to the kept
	// contact, open candidates naming the secondary are resolved and the
	// secondary is deleted, all in one transaction.
	MergeContacts(merged *model.Contact, secondaryID string, now time.Time) error

	// CreateMergeCandidates inserts candidates, skipping pairs that already
	// have an open one, and returns how many were inserted.
	CreateMergeCandidates(cs []*model.MergeCandidate) (int, error)

	FindMergeCandidate(id string) (*model.MergeCandidate, error)

	// ListMergeCandidates returns candidates newest first. An empty status
	// lists all of them.
	ListMergeCandidates(status string) ([]*model.MergeCandidate, error)

	// DismissMergeCandidate closes an open candidate.
	DismissMergeCandidate(id string, now time.Time) error

	// Operation tracking

	// CreateOperation records the start of a mutating command and returns
	// its auto-increment id.
	CreateOperation(name, parameters string, startedAt time.Time) (int64, error)

	// FinishOperation records the outcome of an operation.
	FinishOperation(id int64, status string, finishedAt time.Time) error

	// ListOperations returns the most recent operations, newest first.
	// limit <= 0 means no limit.
	ListOperations(limit int) ([]*model.Operation, error)

	// MaxOperationID returns the highest operation id, or 0.
	MaxOperationID() (int64, error)

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(destPath string) error

	// Close closes the database connection.
	Close() error
}
