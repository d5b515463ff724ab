package domain

import "time"

// Identity is a user's record at the identity provider.
type Identity struct {
	ExternalID   string
	Email        string
	PasswordHash string
	Metadata     IdentityMetadata
	CreatedAt    time.Time
}

// IdentityMetadata is the profile blob kept on the identity. It is an
// advisory copy; the employee profile store is authoritative for Role.
// Writes merge: nil fields keep the stored value.
type IdentityMetadata struct {
	Role              *Role      `json:"role,omitempty"`
	RoleSetupComplete bool       `json:"roleSetupComplete"`
	IsFirstUser       *bool      `json:"isFirstUser,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
