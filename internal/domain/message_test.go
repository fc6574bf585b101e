package domain_test

import (
	"testing"

	"msgboard/internal/domain"
)

func TestMessageOwnedBy(t *testing.T) {
	owner := int64(7)
	tests := []struct {
		name   string
		msg    domain.Message
		userID int64
		want   bool
	}{
		{"owner", domain.Message{UserID: &owner}, 7, true},
		{"other user", domain.Message{UserID: &owner}, 8, false},
		{"anonymous", domain.Message{}, 7, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.OwnedBy(tc.userID); got != tc.want {
				t.Errorf("OwnedBy(%d) = %v; want %v", tc.userID, got, tc.want)
			}
		})
	}
}

func TestReplyNotificationText(t *testing.T) {
	got := domain.ReplyNotificationText("alice", 3)
	if got != "alice replied to your message #3" {
		t.Errorf("ReplyNotificationText = %q", got)
	}
}
