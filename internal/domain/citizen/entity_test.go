package citizen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestCitizen_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cName   string
		email   *string
		phone   *string
		wantErr error
	}{
		{"メールのみ", "山田花子", ptr("hanako@example.jp"), nil, nil},
		{"電話のみ", "山田花子", nil, ptr("090-0000-0000"), nil},
		{"氏名なし", " ", ptr("hanako@example.jp"), nil, ErrNameRequired},
		{"連絡先なし", "山田花子", nil, ptr(""), ErrContactRequired},
		{"メール形式不正", "山田花子", ptr("not-an-email"), nil, ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCitizen(tt.cName, tt.email, tt.phone, time.Now())
			assert.ErrorIs(t, c.Validate(), tt.wantErr)
		})
	}
}

func TestCitizen_NotificationRecipient(t *testing.T) {
	both := NewCitizen("a", ptr("a@example.jp"), ptr("03-1234-5678"), time.Now())
	assert.Equal(t, "a@example.jp", both.NotificationRecipient())

	phoneOnly := NewCitizen("b", nil, ptr("03-1234-5678"), time.Now())
	assert.Equal(t, "03-1234-5678", phoneOnly.NotificationRecipient())

	none := &Citizen{Name: "c"}
	assert.Empty(t, none.NotificationRecipient())
}
