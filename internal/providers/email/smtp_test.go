package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTemplateRendersApprovalRequest(t *testing.T) {
	var gotAddr string
	var gotTo []string
	var gotMsg string

	p := NewSMTP(Config{Host: "mail.test", Port: 2525, From: "billing@test"})
	p.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := p.SendTemplate(context.Background(), []string{"ops@acme.test"}, TemplateGccApprovalRequest, map[string]any{
		"customer_name": "Acme Steel",
		"site_name":     "Ikeja",
		"period":        "February 2024",
		"total_volume":  "2000.00",
		"approval_url":  "https://billing.test/approve?token=abc",
		"expires_at":    "2024-03-18",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.test:2525", gotAddr)
	assert.Equal(t, []string{"ops@acme.test"}, gotTo)
	assert.True(t, strings.Contains(gotMsg, "Subject: Gas consumption certificate awaiting your approval"))
	assert.True(t, strings.Contains(gotMsg, "https://billing.test/approve?token=abc"))
}

func TestSendRequiresRecipients(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.test", Port: 25})
	assert.ErrorIs(t, p.Send(context.Background(), nil, "hi", "body"), ErrNoRecipients)
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("missing", nil)
	assert.Error(t, err)
}
