// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	"context"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const liveWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// live streams the collection over a websocket: the current snapshot on
// connect and a new one after every change. Only the subscription goroutine
// writes to the connection.
func (s *Server) live(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")

		return
	}
	defer conn.Close()

	subCtx, stop := context.WithCancel(context.WithoutCancel(ctx.Request.Context()))
	defer stop()

	cancel, err := s.service.Subscribe(subCtx, func(records []*Denunciation) {
		if err := conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
			stop()

			return
		}

		if err := conn.WriteJSON(records); err != nil {
			log.WithError(err).Debug("live subscriber gone")
			stop()
		}
	})
	if err != nil {
		log.WithError(err).Error("subscribing live feed")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"))

		return
	}
	defer cancel()

	// The client only closes; reading detects it.
	go func() {
		defer stop()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	<-subCtx.Done()
}
