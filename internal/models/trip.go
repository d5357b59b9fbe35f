package models

// Member roles within a trip.
const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

// Trip represents a shared journey whose participants record expenses
// against it. The trip owns its members, expenses and settlements.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string

	// Title is the human-readable name of the trip.
	Title string

	// Description is an optional free-form note.
	Description string

	// StartDate and EndDate bound the trip, formatted as YYYY-MM-DD.
	// Either may be empty.
	StartDate string
	EndDate   string

	// OwnerID is the user who created the trip.
	OwnerID string

	// CreatedAt is the Unix timestamp when the trip was created.
	CreatedAt int64
}

// TripMember is one user's participation record within a single trip.
// At most one membership exists per (trip, user) pair.
type TripMember struct {
	TripID string
	UserID string

	// Role is RoleOwner for the trip creator, RoleMember otherwise.
	Role string

	// JoinedAt is the Unix timestamp when the user joined the trip.
	JoinedAt int64
}

// TripInvite is a single-use token that lets a user join a trip.
type TripInvite struct {
	// ID is the unique identifier for the invite (UUID format).
	ID string

	TripID string

	// Token is the opaque UUID string shared with the invitee.
	Token string

	// CreatedBy is the member who issued the invite.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the invite was issued.
	CreatedAt int64

	// ExpiresAt is the Unix timestamp after which the invite is dead.
	// Zero means the invite never expires.
	ExpiresAt int64

	// IsUsed marks a consumed invite. Invites are single-use.
	IsUsed bool

	// UsedBy is the user who consumed the invite, if any.
	UsedBy string

	// UsedAt is the Unix timestamp of consumption, if any.
	UsedAt int64
}
