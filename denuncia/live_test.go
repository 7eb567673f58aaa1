// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveFeed(t *testing.T) {
	f := setupTestAPI(t, nil)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx := context.Background()
	svc := NewService(f.repo, nil, nil, nil)

	_, err := svc.Create(ctx, spSubmission())
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/denunciations/live"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snapshot []Denunciation

	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Len(t, snapshot, 1)

	sub := spSubmission()
	sub.Description = "Outro buraco"

	id, err := svc.Create(ctx, sub)
	require.NoError(t, err)

	// intermediate snapshots may be skipped, wait for the newest
	for len(snapshot) != 2 {
		require.NoError(t, conn.ReadJSON(&snapshot))
	}

	assert.Equal(t, id, snapshot[0].ID)
	assert.Equal(t, "Outro buraco", snapshot[0].Description)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	assert.Eventually(t, func() bool { return !f.repo.feed.active() }, 2*time.Second, 10*time.Millisecond)
}
