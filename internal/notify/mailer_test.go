// ABOUTME: Tests for the email job queue: enqueue payloads and handler decoding.
// ABOUTME: Delivery itself is not exercised; EmailSend needs a live SMTP server.
package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantharshit007/pms/internal/testutil"
)

func TestMailer_EnqueueRoundTrip(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	m := NewMailer(db, SmtpConfig{})

	err := m.Enqueue(ctx, EmailJob{
		Kind:       KindOTP,
		To:         "alice@example.com",
		Username:   "alice",
		Code:       "042917",
		TTLMinutes: 10,
	})
	require.NoError(t, err)

	job, err := db.ClaimJob(ctx, EmailQueue, "test-worker")
	require.NoError(t, err)
	require.NotNil(t, job, "expected a claimed job")

	var decoded EmailJob
	require.NoError(t, json.Unmarshal(job.Payload, &decoded))
	assert.Equal(t, KindOTP, decoded.Kind)
	assert.Equal(t, "alice@example.com", decoded.To)
	assert.Equal(t, "042917", decoded.Code)
	assert.Equal(t, 10, decoded.TTLMinutes)
}

func TestMailer_HandleRejectsUnknownKind(t *testing.T) {
	t.Parallel()
	m := NewMailer(nil, SmtpConfig{})

	payload, err := json.Marshal(EmailJob{Kind: "newsletter", To: "x@example.com"})
	require.NoError(t, err)

	err = m.Handle(context.Background(), payload)
	assert.ErrorContains(t, err, "unknown email kind")
}

func TestMailer_HandleRejectsMalformedPayload(t *testing.T) {
	t.Parallel()
	m := NewMailer(nil, SmtpConfig{})

	err := m.Handle(context.Background(), json.RawMessage(`{not json`))
	assert.ErrorContains(t, err, "decode email job")
}
