// Package citizen は予約者である住民を扱う
package citizen

import (
	"net/mail"
	"strings"
	"time"
)

// Citizen は予約を行う住民
type Citizen struct {
	ID        string
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewCitizen(name string, email, phone *string, now time.Time) *Citizen {
	return &Citizen{
		Name:      strings.TrimSpace(name),
		Email:     trimmed(email),
		Phone:     trimmed(phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Citizen) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if c.Email == nil && c.Phone == nil {
		return ErrContactRequired
	}
	if c.Email != nil {
		if _, err := mail.ParseAddress(*c.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	return nil
}

// NotificationRecipient は通知先を返す（メール優先、なければ電話番号）
func (c *Citizen) NotificationRecipient() string {
	if c.Email != nil {
		return *c.Email
	}
	if c.Phone != nil {
		return *c.Phone
	}
	return ""
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
