package store

import (
	"log"

	"github.com/google/uuid"

	"fleettrack/models"
)

// recordAudit appends one audit event for the current session. The trail is
// in-memory only; durable history is whatever the remote store retains.
func (s *Store) recordAudit(action, details string) {
	s.mu.Lock()
	login := ""
	if s.currentUser != nil {
		login = s.currentUser.Login
	}
	event := models.AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: s.now(),
		UserLogin: login,
		Action:    action,
		Details:   details,
	}
	s.audit = append(s.audit, event)
	s.mu.Unlock()
	log.Printf("AUDIT: %s %s (%s)", action, details, login)
}

// AuditTrail returns a copy of the session's audit events.
func (s *Store) AuditTrail() []models.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditEvent(nil), s.audit...)
}
