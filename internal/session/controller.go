package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/precrastine/internal/event"
	"github.com/dukerupert/precrastine/internal/model"
	"github.com/dukerupert/precrastine/internal/store"
)

// Controller composes identity-store operations with the session.
type Controller struct {
	identities *store.IdentityStore
	session    *Session
	bus        *event.Bus
	logger     *slog.Logger
}

func NewController(identities *store.IdentityStore, session *Session, bus *event.Bus, logger *slog.Logger) *Controller {
	return &Controller{identities: identities, session: session, bus: bus, logger: logger}
}

func (c *Controller) publish(entity, action, identityID string) {
	if c.bus != nil {
		c.bus.Publish(event.New(entity, action, identityID, identityID))
	}
}

// Current returns the active identity, or nil when signed out.
func (c *Controller) Current() *model.Identity {
	return c.session.Current()
}

// Register creates an identity and signs it in. It reports false when the
// email is already registered.
func (c *Controller) Register(email, password, name string) (bool, error) {
	existing, err := c.identities.GetByEmail(email)
	if err != nil {
		return false, fmt.Errorf("register: %w", err)
	}
	if existing != nil {
		c.logger.Debug("registration refused, email in use", "identity_id", existing.ID)
		return false, nil
	}

	id, err := c.identities.Create(email, password, name)
	if errors.Is(err, store.ErrEmailInUse) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("register: %w", err)
	}
	if err := c.session.set(*id); err != nil {
		return false, err
	}

	c.logger.Info("identity registered", "identity_id", id.ID)
	c.publish(event.EntityIdentity, event.ActionCreated, id.ID)
	c.publish(event.EntitySession, event.ActionLoggedIn, id.ID)
	return true, nil
}

// Login signs in the identity whose email and password match exactly.
func (c *Controller) Login(email, password string) (bool, error) {
	id, err := c.identities.Authenticate(email, password)
	if err != nil {
		return false, fmt.Errorf("login: %w", err)
	}
	if id == nil {
		return false, nil
	}
	if err := c.session.set(*id); err != nil {
		return false, err
	}

	c.publish(event.EntitySession, event.ActionLoggedIn, id.ID)
	return true, nil
}

// Logout clears the current identity. Registered identities are untouched.
func (c *Controller) Logout() error {
	prev := c.session.Current()
	if err := c.session.clear(); err != nil {
		return err
	}
	if prev != nil {
		c.publish(event.EntitySession, event.ActionLoggedOut, prev.ID)
	}
	return nil
}

// UpdateProfile merges u into the current identity and its registered record.
// It is a no-op when signed out and returns store.ErrEmailInUse when the new
// email belongs to another identity.
func (c *Controller) UpdateProfile(u model.ProfileUpdate) error {
	cur := c.session.Current()
	if cur == nil {
		return nil
	}

	updated, err := c.identities.Update(cur.ID, u)
	if err != nil {
		return err
	}
	if updated == nil {
		// Registered record is gone; keep the session copy consistent anyway.
		c.logger.Warn("current identity not registered", "identity_id", cur.ID)
		u.Apply(cur)
		updated = cur
	}
	if err := c.session.set(*updated); err != nil {
		return err
	}

	c.publish(event.EntityIdentity, event.ActionUpdated, updated.ID)
	return nil
}

// Restore makes id the current identity without checking credentials. A nil
// id signs out. Used by tooling that acts on behalf of another identity and
// then puts the previous one back.
func (c *Controller) Restore(id *model.Identity) error {
	if id == nil {
		return c.session.clear()
	}
	return c.session.set(*id)
}
