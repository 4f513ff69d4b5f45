package model

import "time"

type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Photo     string    `json:"photo,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Registration is the stored form of an identity. Password is kept in
// plaintext and must never leave the identity store.
type Registration struct {
	Identity
	Password string `json:"password"`
}

// ProfileUpdate holds the fields a profile update may change. Nil fields are left as is.
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Photo *string `json:"photo,omitempty"`
}

// Apply merges the set fields of u into id.
func (u ProfileUpdate) Apply(id *Identity) {
	if u.Name != nil {
		id.Name = *u.Name
	}
	if u.Email != nil {
		id.Email = *u.Email
	}
	if u.Photo != nil {
		id.Photo = *u.Photo
	}
}
