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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/api/models/requests"
	"github.com/GlanceProject/glance-core/pkg/api/validation"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/service/reconciler"
	"github.com/GlanceProject/glance-core/pkg/service/state"
	"github.com/GlanceProject/glance-core/pkg/testing/helpers"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// createTestPostHandler builds a POST handler around live dependencies and a
// method map preloaded with test methods.
func createTestPostHandler(t *testing.T) (http.HandlerFunc, *MethodMap) {
	t.Helper()

	methodMap := NewMethodMap()

	err := methodMap.AddMethod("test.echo", func(_ requests.RequestEnv) (any, error) {
		return map[string]string{"echo": "success"}, nil
	})
	require.NoError(t, err)

	err = methodMap.AddMethod("test.error", func(_ requests.RequestEnv) (any, error) {
		return nil, errors.New("test error")
	})
	require.NoError(t, err)

	err = methodMap.AddMethod("test.badparams", func(_ requests.RequestEnv) (any, error) {
		return nil, validation.ErrMissingParams
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

	handler := handlePostRequest(methodMap, cfg, st, db, rec)
	return handler, methodMap
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestHandlePostRequest_ValidRequest(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	id := uuid.New()
	rr := postJSON(t, handler, `{"jsonrpc":"2.0","id":"`+id.String()+`","method":"test.echo"}`)

	require.Equal(t, http.StatusOK, rr.Code, "successful request should return HTTP 200")

	var resp models.ResponseObject
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err, "response should be valid JSON")
	require.Equal(t, "2.0", resp.JSONRPC)
	require.Equal(t, id, resp.ID, "request id should be echoed back")
	require.NotNil(t, resp.Result, "successful response should have a result")
}

func TestHandlePostRequest_MethodCaseInsensitive(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, `{"jsonrpc":"2.0","id":"`+uuid.New().String()+`","method":"TEST.Echo"}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ResponseObject
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Result)
}

func TestHandlePostRequest_InvalidJSON(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, `{invalid json`)

	// JSON-RPC errors ride in a 200 body; only transport failures get
	// plain HTTP status codes
	require.Equal(t, http.StatusOK, rr.Code, "JSON-RPC error should still return HTTP 200")

	var resp models.ResponseErrorObject
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err, "response should be valid JSON")
	require.NotNil(t, resp.Error, "should contain error object")
	require.Equal(t, -32700, resp.Error.Code, "should be parse error code")
}

func TestHandlePostRequest_UnknownMethod(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, `{"jsonrpc":"2.0","id":"`+uuid.New().String()+`","method":"nonexistent.method"}`)

	require.Equal(t, http.StatusOK, rr.Code, "JSON-RPC error should still return HTTP 200")

	var resp models.ResponseErrorObject
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32601, resp.Error.Code, "should be method not found error code")
}

func TestHandlePostRequest_WrongContentType(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"test":"data"}`))
	req.Header.Set("Content-Type", "text/plain")

	rr := httptest.NewRecorder()
	handler(rr, req)

	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code, "wrong content-type should return 415")
}

func TestHandlePostRequest_MissingContentType(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"jsonrpc":"2.0","method":"test.echo"}`))

	rr := httptest.NewRecorder()
	handler(rr, req)

	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code, "missing content-type should return 415")
}

func TestHandlePostRequest_ContentTypeWithCharset(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	reqBody := `{"jsonrpc":"2.0","id":"` + uuid.New().String() + `","method":"test.echo"}`
	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	rr := httptest.NewRecorder()
	handler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, "content-type with charset should be accepted")
}

// Per JSON-RPC 2.0 spec: "The Server MUST NOT reply to a Notification". The
// method still runs, which is what fire-and-forget OCR producers rely on.
func TestHandlePostRequest_NotificationExecutes(t *testing.T) {
	t.Parallel()

	handler, methodMap := createTestPostHandler(t)

	called := make(chan struct{}, 1)
	err := methodMap.AddMethod("test.record", func(_ requests.RequestEnv) (any, error) {
		called <- struct{}{}
		return nil, nil
	})
	require.NoError(t, err)

	rr := postJSON(t, handler, `{"jsonrpc":"2.0","method":"test.record"}`)

	require.Equal(t, http.StatusNoContent, rr.Code, "notification should return HTTP 204 No Content")
	require.Empty(t, rr.Body.Bytes(), "notification should have empty response body")
	require.Len(t, called, 1, "notification method should have been executed")
}

func TestHandlePostRequest_NotificationUnknownMethod(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, `{"jsonrpc":"2.0","method":"nonexistent.method"}`)

	// nothing to reply to, even for errors
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Empty(t, rr.Body.Bytes())
}

func TestHandlePostRequest_NotificationMethodError(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, `{"jsonrpc":"2.0","method":"test.error"}`)

	require.Equal(t, http.StatusNoContent, rr.Code, "notification errors are logged, never returned")
	require.Empty(t, rr.Body.Bytes())
}

func TestHandlePostRequest_MethodError(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, `{"jsonrpc":"2.0","id":"`+uuid.New().String()+`","method":"test.error"}`)

	require.Equal(t, http.StatusOK, rr.Code, "method error should still return HTTP 200")

	var resp models.ResponseErrorObject
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32000, resp.Error.Code, "should be server error code")
	require.Contains(t, resp.Error.Message, "test error")
}

func TestHandlePostRequest_ValidationError(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, `{"jsonrpc":"2.0","id":"`+uuid.New().String()+`","method":"test.badparams"}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ResponseErrorObject
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32602, resp.Error.Code, "should be invalid params error code")
}

func TestHandlePostRequest_OversizedBody(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	largeBody := strings.Repeat("x", 2<<20) // 2MB
	rr := postJSON(t, handler, largeBody)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, "oversized body should return HTTP 413")
	require.Contains(t, rr.Body.String(), "Request body too large", "should indicate body size limit exceeded")
}

func TestHandlePostRequest_EmptyBody(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, "")

	require.Equal(t, http.StatusOK, rr.Code, "empty body should return HTTP 200 with JSON-RPC error")

	var resp models.ResponseErrorObject
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32700, resp.Error.Code)
}

func TestHandlePostRequest_InvalidJSONRPCVersion(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, `{"jsonrpc":"1.0","id":"`+uuid.New().String()+`","method":"test.echo"}`)

	require.Equal(t, http.StatusOK, rr.Code, "invalid version should return HTTP 200 with JSON-RPC error")

	var resp models.ResponseErrorObject
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32600, resp.Error.Code, "should be invalid request error code")
}

func TestHandlePostRequest_MissingMethod(t *testing.T) {
	t.Parallel()

	handler, _ := createTestPostHandler(t)

	rr := postJSON(t, handler, `{"jsonrpc":"2.0","id":"`+uuid.New().String()+`"}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ResponseErrorObject
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32600, resp.Error.Code)
}

// The registered version method end to end over POST, no fixture methods.
func TestHandlePostRequest_Version(t *testing.T) {
	t.Parallel()

	cfg, err := config.NewConfig(t.TempDir(), config.BaseDefaults)
	require.NoError(t, err)

	st, _ := state.NewState(cfg)
	t.Cleanup(func() {
		st.StopService()
	})

	db, dbCleanup := helpers.NewTestDatabase(t)
	t.Cleanup(dbCleanup)

	rec := reconciler.New(cfg, st, db, clockwork.NewRealClock())
	handler := handlePostRequest(defaultMethodMap(), cfg, st, db, rec)

	rr := postJSON(t, handler, `{"jsonrpc":"2.0","id":"`+uuid.New().String()+`","method":"version"}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Result models.VersionResponse `json:"result"`
	}
	err = json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.Equal(t, config.AppVersion, resp.Result.Version)
	require.NotEmpty(t, resp.Result.Platform)
}
