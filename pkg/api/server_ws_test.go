// Glance Core
// Copyright (c) 2025 The Glance Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Glance Core.
//
// Glance Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Glance Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Glance Core.  If not, see <http://www.gnu.org/licenses/>.

package api

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/api/models/requests"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/service/reconciler"
	"github.com/GlanceProject/glance-core/pkg/service/state"
	"github.com/GlanceProject/glance-core/pkg/testing/helpers"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// createTestWSServer builds a websocket test server wired to the real
// message handler.
func createTestWSServer(t *testing.T) *helpers.WebSocketTestServer {
	t.Helper()

	methodMap := NewMethodMap()

	err := methodMap.AddMethod("test.echo", func(env requests.RequestEnv) (any, error) {
		return map[string]string{"params": string(env.Params)}, nil
	})
	require.NoError(t, err)

	err = methodMap.AddMethod("test.error", func(_ requests.RequestEnv) (any, error) {
		return nil, errors.New("test error")
	})
	require.NoError(t, err)

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)

	st, _ := state.NewState(cfg)
	t.Cleanup(func() {
		st.StopService()
	})

	db, dbCleanup := helpers.NewTestDatabase(t)
	t.Cleanup(dbCleanup)

	rec := reconciler.New(cfg, st, db, clockwork.NewRealClock())

	server := helpers.NewWebSocketTestServer(t, handleWSMessage(methodMap, cfg, st, db, rec))
	t.Cleanup(server.Close)
	return server
}

func wsClient(t *testing.T, server *helpers.WebSocketTestServer) *websocket.Conn {
	t.Helper()

	conn, err := server.CreateWebSocketClient()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func TestHandleWSMessage_Echo(t *testing.T) {
	t.Parallel()

	server := createTestWSServer(t)
	conn := wsClient(t, server)

	resp, err := helpers.SendJSONRPCRequest(conn, "test.echo", map[string]string{"key": "value"})
	require.NoError(t, err)
	helpers.AssertJSONRPCSuccess(t, resp)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok, "result should be an object")
	require.Contains(t, result["params"], "value", "params should reach the handler")
}

func TestHandleWSMessage_PingPong(t *testing.T) {
	t.Parallel()

	server := createTestWSServer(t)
	conn := wsClient(t, server)

	err := conn.WriteMessage(websocket.TextMessage, []byte("ping"))
	require.NoError(t, err)

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "pong", string(msg))
}

func TestHandleWSMessage_ParseError(t *testing.T) {
	t.Parallel()

	server := createTestWSServer(t)
	conn := wsClient(t, server)

	err := conn.WriteMessage(websocket.TextMessage, []byte(`{invalid json`))
	require.NoError(t, err)

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var resp models.ResponseErrorObject
	require.NoError(t, json.Unmarshal(msg, &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, -32700, resp.Error.Code)
}

func TestHandleWSMessage_MethodNotFound(t *testing.T) {
	t.Parallel()

	server := createTestWSServer(t)
	conn := wsClient(t, server)

	resp, err := helpers.SendJSONRPCRequest(conn, "nonexistent.method", nil)
	require.NoError(t, err)
	helpers.AssertJSONRPCError(t, resp, -32601)
}

func TestHandleWSMessage_MethodError(t *testing.T) {
	t.Parallel()

	server := createTestWSServer(t)
	conn := wsClient(t, server)

	resp, err := helpers.SendJSONRPCRequest(conn, "test.error", nil)
	require.NoError(t, err)
	helpers.AssertJSONRPCError(t, resp, -32000)
	require.Contains(t, resp.Error.Message, "test error")
}

func TestHandleWSMessage_InvalidVersion(t *testing.T) {
	t.Parallel()

	server := createTestWSServer(t)
	conn := wsClient(t, server)

	body := `{"jsonrpc":"1.0","id":"` + uuid.New().String() + `","method":"test.echo"}`
	err := conn.WriteMessage(websocket.TextMessage, []byte(body))
	require.NoError(t, err)

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var resp models.ResponseErrorObject
	require.NoError(t, json.Unmarshal(msg, &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, -32600, resp.Error.Code)
}

// Websocket notifications are ignored: no reply, no execution. The next
// request on the same connection gets the next reply.
func TestHandleWSMessage_NotificationIgnored(t *testing.T) {
	t.Parallel()

	server := createTestWSServer(t)
	conn := wsClient(t, server)

	notif := `{"jsonrpc":"2.0","method":"test.echo"}`
	err := conn.WriteMessage(websocket.TextMessage, []byte(notif))
	require.NoError(t, err)

	// the only reply on the wire should be for this follow-up request
	resp, err := helpers.SendJSONRPCRequest(conn, "test.echo", nil)
	require.NoError(t, err)
	helpers.AssertJSONRPCSuccess(t, resp)
}
