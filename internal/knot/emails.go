package knot

import (
	"fmt"

	"knot-go/internal/model"
)

// AddEmail attaches an address to a contact. An address already owned by
// another contact fails with model.ErrDuplicateEmail.
func (s *KnotService) AddEmail(id, email string, primary bool) ([]model.ContactEmail, error) {
	if _, err := s.mustContact(id); err != nil {
		return nil, err
	}
	norm, ok := model.NormalizeEmail(email)
	if !ok {
		return nil, &model.ValidationError{Field: "email", Value: email, Err: model.ErrInvalidEmail}
	}
	err := s.database.AddEmail(model.ContactEmail{
		ContactID: id,
		Email:     norm,
		IsPrimary: primary,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("adding email: %w", err)
	}
	s.logger.Info("email added", "id", id, "email", norm, "primary", primary)
	return s.database.ListEmails(id)
}

// RemoveEmail detaches an address from a contact.
func (s *KnotService) RemoveEmail(id, email string) ([]model.ContactEmail, error) {
	if _, err := s.mustContact(id); err != nil {
		return nil, err
	}
	norm, _ := model.NormalizeEmail(email)
	if err := s.database.RemoveEmail(id, norm, s.now()); err != nil {
		return nil, fmt.Errorf("removing email: %w", err)
	}
	s.logger.Info("email removed", "id", id, "email", norm)
	return s.database.ListEmails(id)
}

// SetPrimaryEmail marks one of a contact's addresses as primary.
func (s *KnotService) SetPrimaryEmail(id, email string) ([]model.ContactEmail, error) {
	if _, err := s.mustContact(id); err != nil {
		return nil, err
	}
	norm, _ := model.NormalizeEmail(email)
	if err := s.database.SetPrimaryEmail(id, norm, s.now()); err != nil {
		return nil, fmt.Errorf("setting primary email: %w", err)
	}
	s.logger.Info("primary email set", "id", id, "email", norm)
	return s.database.ListEmails(id)
}
