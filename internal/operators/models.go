package operators

import "time"

// Operator is a person allowed to mutate content. Records live in the
// authorized_admins collection and are managed outside this service.
type Operator struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Email      string    `bson:"email" json:"email"`
	Name       string    `bson:"name,omitempty" json:"name,omitempty"`
	Sub        string    `bson:"sub,omitempty" json:"sub,omitempty"` // OIDC subject, recorded on first sign-in
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	LastSeenAt time.Time `bson:"lastSeenAt,omitempty" json:"lastSeenAt,omitempty"`
}
