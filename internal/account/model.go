package account

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the identity record. The password hash and the reset ticket
// fields never reach a client: they are excluded from JSON and from the
// default list projection.
type Account struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name                   string     `gorm:"not null" json:"name"`
	Email                  string     `gorm:"uniqueIndex;not null" json:"email"`
	Photo                  string     `gorm:"default:default.jpg" json:"photo"`
	Role                   string     `gorm:"default:user" json:"role"`
	PasswordHash           string     `gorm:"not null" json:"-"`
	PasswordChangedAt      *time.Time `json:"-"`
	PasswordResetTokenHash *string    `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	Active                 bool       `gorm:"default:true" json:"-"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// PasswordChangedAfter reports whether the password changed after the given
// token issue time, which revokes every token issued before the change.
func (a *Account) PasswordChangedAfter(issuedAt time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	// JWT timestamps have second precision, so compare at that grain.
	return a.PasswordChangedAt.Unix() > issuedAt.Unix()
}

type Response struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Photo     string    `json:"photo"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Account) ToResponse() *Response {
	return &Response{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Photo:     a.Photo,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}
