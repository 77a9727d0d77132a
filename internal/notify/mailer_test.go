// Copyright (c) 2026 Sabaq. All rights reserved.
// Author: nurlan.bekov.dev@gmail.com

package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurlanbek/sabaq/internal/notify"
)

/*
TestSMTPSender_HonorsCancelledContext ensures a dead request context stops
the send before any SMTP dial is attempted — the error must be the context's,
not a network failure from the unreachable relay below.
*/
func TestSMTPSender_HonorsCancelledContext(t *testing.T) {
	sender := notify.NewSMTPSender("smtp.invalid", 587, "user", "password", "noreply@sabaq.app")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.Send(ctx, "jane@x.com", 482913, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
