package store

import (
	"log"
	"strings"

	"fleettrack/auth"
	"fleettrack/models"
)

// AuthenticateLocally checks the login against the configured master
// credential first, then against the synced user list. Login comparison is
// case-insensitive. This is a local gate layered on top of the remote
// (Graph) authentication: it never calls the gateway and does not protect
// remote data.
//
// Stored passwords are bcrypt hashes for users created through this system;
// rows predating it may still hold plaintext, which falls back to exact
// comparison until re-provisioned.
func (s *Store) AuthenticateLocally(login, password string) (*models.User, bool) {
	login = strings.TrimSpace(login)

	if s.master.Login != "" && strings.EqualFold(login, s.master.Login) {
		if s.master.Password != "" && password == s.master.Password {
			master := &models.User{
				ID:          "master",
				Login:       s.master.Login,
				Name:        "Master",
				AccessLevel: models.RoleAdmin,
			}
			s.setCurrentUser(master)
			return master, true
		}
		return nil, false
	}

	s.mu.RLock()
	candidate := findUser(s.users, login)
	s.mu.RUnlock()
	if candidate == nil {
		return nil, false
	}

	if !auth.VerifyStoredPassword(password, candidate.Password) {
		return nil, false
	}
	s.setCurrentUser(candidate)
	return candidate, true
}

// CurrentUser returns the session's selected user, or nil.
func (s *Store) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentUser == nil {
		return nil
	}
	u := *s.currentUser
	return &u
}

// Logout clears the persisted session and resets all collection state.
func (s *Store) Logout() {
	if err := s.sessions.Clear(); err != nil {
		log.Printf("⚠️  Failed to clear session: %v", err)
	}
	s.mu.Lock()
	s.currentUser = nil
	s.plants = nil
	s.trucks = nil
	s.drivers = nil
	s.users = nil
	s.justifications = nil
	s.loads = nil
	s.mu.Unlock()
	log.Printf("👋 Session closed")
}

func (s *Store) setCurrentUser(user *models.User) {
	s.mu.Lock()
	s.currentUser = user
	s.mu.Unlock()
	if err := s.sessions.Save(*user); err != nil {
		log.Printf("⚠️  Failed to persist session: %v", err)
	}
	log.Printf("✅ Local login: %s (%s)", user.Login, user.AccessLevel)
}
