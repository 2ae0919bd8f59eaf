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

// Package helpers provides testing utilities shared across packages:
// websocket test servers, config and database fixtures, and filesystem
// scaffolding for watch directories.
package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/olahol/melody"
	"github.com/stretchr/testify/require"
)

// WebSocketTestServer runs a melody instance behind httptest for exercising
// websocket message handlers without a full API server.
type WebSocketTestServer struct {
	Server   *httptest.Server
	Melody   *melody.Melody
	t        *testing.T
	Messages []WebSocketMessage
	mu       sync.RWMutex
}

// WebSocketMessage captures a message sent or received during testing.
type WebSocketMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Error     error     `json:"error,omitempty"`
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Data      []byte    `json:"data"`
}

// JSONRPCRequest is the request shape test clients send.
type JSONRPCRequest struct {
	Params  any       `json:"params,omitempty"`
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	ID      uuid.UUID `json:"id"`
}

// JSONRPCResponse is the response shape test clients decode into.
type JSONRPCResponse struct {
	Result any                 `json:"result,omitempty"`
	Error  *models.ErrorObject `json:"error,omitempty"`
	ID     uuid.UUID           `json:"id"`
}

// NewWebSocketTestServer creates a websocket test server routing messages to
// the given handler. Pass nil to only use the server for broadcasts.
func NewWebSocketTestServer(t *testing.T, handler func(*melody.Session, []byte)) *WebSocketTestServer {
	m := melody.New()

	wsts := &WebSocketTestServer{
		Melody:   m,
		Messages: make([]WebSocketMessage, 0),
		t:        t,
	}

	m.HandleConnect(func(session *melody.Session) {
		session.Keys = make(map[string]any)
		session.Keys["session_id"] = "test-session-" + session.Request.RemoteAddr
	})

	if handler != nil {
		m.HandleMessage(func(session *melody.Session, msg []byte) {
			sessionID := ""
			if id, ok := session.Keys["session_id"]; ok && id != nil {
				if s, ok := id.(string); ok {
					sessionID = s
				}
			}
			wsts.recordMessage("received", msg, sessionID, nil)
			handler(session, msg)
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0.1", func(w http.ResponseWriter, r *http.Request) {
		err := m.HandleRequest(w, r)
		if err != nil {
			wsts.recordMessage("error", nil, "", err)
		}
	})

	wsts.Server = httptest.NewServer(mux)

	// Brief wait to ensure server is fully ready for WebSocket connections.
	// This prevents "bad handshake" errors in CI environments with high load.
	time.Sleep(5 * time.Millisecond)

	return wsts
}

func (wsts *WebSocketTestServer) recordMessage(msgType string, data []byte, sessionID string, err error) {
	wsts.mu.Lock()
	defer wsts.mu.Unlock()

	wsts.Messages = append(wsts.Messages, WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Error:     err,
	})
}

// Close shuts down the test server.
func (wsts *WebSocketTestServer) Close() {
	wsts.Server.Close()
	_ = wsts.Melody.Close()
}

// GetMessages returns all recorded messages (thread-safe).
func (wsts *WebSocketTestServer) GetMessages() []WebSocketMessage {
	wsts.mu.RLock()
	defer wsts.mu.RUnlock()

	msgs := make([]WebSocketMessage, len(wsts.Messages))
	copy(msgs, wsts.Messages)
	return msgs
}

// ClearMessages clears all recorded messages (thread-safe).
func (wsts *WebSocketTestServer) ClearMessages() {
	wsts.mu.Lock()
	defer wsts.mu.Unlock()

	wsts.Messages = wsts.Messages[:0]
}

// WaitForMessages waits for a specific number of recorded messages.
func (wsts *WebSocketTestServer) WaitForMessages(count int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %d messages, got %d", count, len(wsts.GetMessages()))
		case <-ticker.C:
			if len(wsts.GetMessages()) >= count {
				return nil
			}
		}
	}
}

// CreateWebSocketClient dials a websocket connection to the test server.
func (wsts *WebSocketTestServer) CreateWebSocketClient() (*websocket.Conn, error) {
	u, err := url.Parse(wsts.Server.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}

	u.Scheme = "ws"
	u.Path = "/api/v0.1"

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial WebSocket: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return conn, nil
}

// SendJSONRPCRequest sends a JSON-RPC request and waits for the response.
func SendJSONRPCRequest(conn *websocket.Conn, method string, params any) (*JSONRPCResponse, error) {
	request := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.New(),
		Method:  method,
		Params:  params,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	err = conn.WriteMessage(websocket.TextMessage, requestData)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	_, responseData, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response JSONRPCResponse
	err = json.Unmarshal(responseData, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &response, nil
}

// AssertJSONRPCSuccess verifies a JSON-RPC response was successful.
func AssertJSONRPCSuccess(t *testing.T, response *JSONRPCResponse) {
	require.NotNil(t, response, "response should not be nil")
	require.Nil(t, response.Error, "response should not contain an error")
	require.NotNil(t, response.Result, "response should contain a result")
}

// AssertJSONRPCError verifies a JSON-RPC response contains an error.
func AssertJSONRPCError(t *testing.T, response *JSONRPCResponse, expectedCode int) {
	require.NotNil(t, response, "response should not be nil")
	require.NotNil(t, response.Error, "response should contain an error")
	require.Equal(t, expectedCode, response.Error.Code, "error code should match")
}

// HTTPTestHelper wraps httptest for exercising the POST transport.
type HTTPTestHelper struct {
	Server *httptest.Server
	Client *http.Client
}

// NewHTTPTestHelper creates an HTTP test helper with the given handler.
func NewHTTPTestHelper(handler http.Handler) *HTTPTestHelper {
	server := httptest.NewServer(handler)
	client := server.Client()

	return &HTTPTestHelper{
		Server: server,
		Client: client,
	}
}

// Close shuts down the test server.
func (h *HTTPTestHelper) Close() {
	h.Server.Close()
}

// PostJSONRPC sends a JSON-RPC request via HTTP POST.
func (h *HTTPTestHelper) PostJSONRPC(method string, params any) (*http.Response, error) {
	request := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.New(),
		Method:  method,
		Params:  params,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := h.Server.URL + "/api/v0.1"
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, apiURL,
		strings.NewReader(string(requestData)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send POST request: %w", err)
	}

	return resp, nil
}
