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

// Package api serves the JSON-RPC 2.0 API over websocket and HTTP POST.
// Websocket sessions additionally receive every service notification as a
// JSON-RPC notification broadcast.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/GlanceProject/glance-core/pkg/api/methods"
	"github.com/GlanceProject/glance-core/pkg/api/middleware"
	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/api/models/requests"
	"github.com/GlanceProject/glance-core/pkg/api/validation"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/database"
	"github.com/GlanceProject/glance-core/pkg/helpers/syncutil"
	"github.com/GlanceProject/glance-core/pkg/service/reconciler"
	"github.com/GlanceProject/glance-core/pkg/service/state"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

// maxRequestBody caps HTTP POST request bodies. OCR payloads for a full
// screen of text sit well under this.
const maxRequestBody = 1 << 20

var JSONRPCErrorParseError = models.ErrorObject{
	Code:    -32700,
	Message: "Parse error",
}
var JSONRPCErrorInvalidRequest = models.ErrorObject{
	Code:    -32600,
	Message: "Invalid Request",
}
var JSONRPCErrorMethodNotFound = models.ErrorObject{
	Code:    -32601,
	Message: "Method not found",
}
var JSONRPCErrorInvalidParams = models.ErrorObject{
	Code:    -32602,
	Message: "Invalid params",
}
var JSONRPCErrorInternalError = models.ErrorObject{
	Code:    -32603,
	Message: "Internal error",
}
var JSONRPCErrorServerError = models.ErrorObject{
	Code:    -32000,
	Message: "Server error",
}

func maybeUUID(req models.RequestObject) uuid.UUID {
	if req.ID == nil {
		return uuid.Nil
	}
	return *req.ID
}

// MethodMap is a concurrency-safe registry of JSON-RPC method handlers,
// keyed by lowercase method name.
type MethodMap struct {
	methods map[string]func(requests.RequestEnv) (any, error)
	mu      syncutil.RWMutex
}

// NewMethodMap creates an empty method registry.
func NewMethodMap() *MethodMap {
	return &MethodMap{
		methods: make(map[string]func(requests.RequestEnv) (any, error)),
	}
}

// AddMethod registers a handler under the given method name. Names are
// case-insensitive and must be unique.
func (m *MethodMap) AddMethod(name string, fn func(requests.RequestEnv) (any, error)) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return errors.New("method name is empty")
	}
	if fn == nil {
		return fmt.Errorf("method %s has no handler", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.methods[name]; exists {
		return fmt.Errorf("method %s is already registered", name)
	}
	m.methods[name] = fn
	return nil
}

// GetMethod looks up a handler by method name.
func (m *MethodMap) GetMethod(name string) (func(requests.RequestEnv) (any, error), bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn, ok := m.methods[strings.ToLower(name)]
	return fn, ok
}

func defaultMethodMap() *MethodMap {
	m := NewMethodMap()
	add := func(name string, fn func(requests.RequestEnv) (any, error)) {
		if err := m.AddMethod(name, fn); err != nil {
			log.Panic().Err(err).Str("method", name).Msg("registering API method")
		}
	}

	// library
	add(models.MethodLibrarySearch, methods.HandleSearch)
	add(models.MethodLibraryEntries, methods.HandleEntries)
	add(models.MethodLibraryDelete, methods.HandleDelete)
	add(models.MethodLibraryPin, methods.HandlePin)
	add(models.MethodLibraryCustomAdd, methods.HandleCustomTagAdd)
	add(models.MethodLibraryCustomRemove, methods.HandleCustomTagRemove)
	add(models.MethodLibraryCustomAll, methods.HandleCustomTags)
	add(models.MethodLibraryReclassify, methods.HandleReclassify)
	add(models.MethodLibraryHashesUpdate, methods.HandleUpdateHash)
	add(models.MethodLibraryStats, methods.HandleStats)
	// saved searches
	add(models.MethodSearchesSave, methods.HandleSaveSearch)
	add(models.MethodSearchesDelete, methods.HandleDeleteSearch)
	add(models.MethodSearchesAll, methods.HandleSearches)
	// duplicates
	add(models.MethodDuplicatesFind, methods.HandleFindDuplicates)
	add(models.MethodDuplicatesResolve, methods.HandleResolveDuplicates)
	// ocr producers
	add(models.MethodOcrEvent, methods.HandleOcrEvent)
	add(models.MethodOcrTags, methods.HandleOcrTags)
	add(models.MethodOcrBatch, methods.HandleOcrBatch)
	// utils
	add(models.MethodVersion, methods.HandleVersion)

	return m
}

// logSafeRequest logs an incoming request. OCR event params carry a full
// screen of recognized text, so for those only the method name is logged.
func logSafeRequest(req models.RequestObject) {
	if strings.EqualFold(req.Method, models.MethodOcrEvent) {
		log.Debug().Str("method", req.Method).Msg("received OCR event request")
		return
	}
	log.Debug().Interface("request", req).Msg("received request")
}

// logSafeResponse logs an outgoing result. Entry listings repeat the whole
// library including screen text, so those are logged as counts.
func logSafeResponse(result any) {
	switch resp := result.(type) {
	case models.SearchResults:
		log.Debug().
			Int("total", resp.Total).
			Int("groups", len(resp.Groups)).
			Msg("sending response (entries elided)")
	case models.EntriesResponse:
		log.Debug().
			Int("total", resp.Total).
			Msg("sending response (entries elided)")
	default:
		log.Debug().Interface("result", result).Msg("sending response")
	}
}

// methodErrorObject maps a handler error to the JSON-RPC error object
// reported to the client.
func methodErrorObject(err error) models.ErrorObject {
	var validationErr *validation.Error
	if errors.Is(err, validation.ErrMissingParams) ||
		errors.Is(err, validation.ErrInvalidParams) ||
		errors.As(err, &validationErr) {
		return models.ErrorObject{
			Code:    JSONRPCErrorInvalidParams.Code,
			Message: err.Error(),
		}
	}
	return models.ErrorObject{
		Code:    JSONRPCErrorServerError.Code,
		Message: err.Error(),
	}
}

func sendResponse(session *melody.Session, id uuid.UUID, result any) error {
	logSafeResponse(result)

	resp := models.ResponseObject{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("error marshalling response: %w", err)
	}

	if err := session.Write(data); err != nil {
		return fmt.Errorf("error writing response: %w", err)
	}
	return nil
}

func sendError(session *melody.Session, id uuid.UUID, errObj models.ErrorObject) error {
	log.Debug().Int("code", errObj.Code).Str("message", errObj.Message).Msg("sending error")

	resp := models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("error marshalling error response: %w", err)
	}

	if err := session.Write(data); err != nil {
		return fmt.Errorf("error writing error response: %w", err)
	}
	return nil
}

// handleResponse processes an incoming response object from a client. The
// server doesn't issue client-bound requests yet, so responses are only
// logged.
func handleResponse(resp models.ResponseObject) error {
	log.Debug().Interface("response", resp).Msg("received response")
	return nil
}

// requestEnv assembles the per-request handler environment.
func requestEnv(
	cfg *config.Instance,
	st *state.State,
	db *database.Database,
	rec *reconciler.Reconciler,
	isLocal bool,
) requests.RequestEnv {
	return requests.RequestEnv{
		Config:     cfg,
		State:      st,
		Database:   db,
		Reconciler: rec,
		IsLocal:    isLocal,
	}
}

func handleWSMessage(
	methodMap *MethodMap,
	cfg *config.Instance,
	st *state.State,
	db *database.Database,
	rec *reconciler.Reconciler,
) func(session *melody.Session, msg []byte) {
	return func(session *melody.Session, msg []byte) {
		// ping command for heartbeat operation
		if bytes.Equal(msg, []byte("ping")) {
			if err := session.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
			return
		}

		if !json.Valid(msg) {
			log.Error().Msg("data not valid json")
			if err := sendError(session, uuid.Nil, JSONRPCErrorParseError); err != nil {
				log.Error().Err(err).Msg("error sending error response")
			}
			return
		}

		// try parse a request first, which has a method field
		var req models.RequestObject
		err := json.Unmarshal(msg, &req)

		if err == nil && req.JSONRPC != "2.0" {
			log.Error().Str("jsonrpc", req.JSONRPC).Msg("unsupported payload version")
			if sendErr := sendError(session, maybeUUID(req), JSONRPCErrorInvalidRequest); sendErr != nil {
				log.Error().Err(sendErr).Msg("error sending error response")
			}
			return
		}

		if err == nil && req.Method != "" {
			if req.ID == nil {
				// request is notification
				log.Info().Interface("req", req).Msg("received notification, ignoring")
				return
			}

			logSafeRequest(req)

			fn, ok := methodMap.GetMethod(req.Method)
			if !ok {
				log.Error().Str("method", req.Method).Msg("unknown method")
				if sendErr := sendError(session, *req.ID, JSONRPCErrorMethodNotFound); sendErr != nil {
					log.Error().Err(sendErr).Msg("error sending error response")
				}
				return
			}

			env := requestEnv(cfg, st, db, rec, middleware.IsLoopbackAddr(session.Request.RemoteAddr))
			env.ID = *req.ID
			env.Params = req.Params

			resp, methodErr := fn(env)
			if methodErr != nil {
				log.Error().Err(methodErr).Str("method", req.Method).Msg("method returned error")
				if sendErr := sendError(session, *req.ID, methodErrorObject(methodErr)); sendErr != nil {
					log.Error().Err(sendErr).Msg("error sending error response")
				}
				return
			}

			if sendErr := sendResponse(session, *req.ID, resp); sendErr != nil {
				log.Error().Err(sendErr).Msg("error sending response")
			}
			return
		}

		// otherwise try parse a response, which has an id field
		var resp models.ResponseObject
		err = json.Unmarshal(msg, &resp)
		if err == nil && resp.ID != uuid.Nil {
			if respErr := handleResponse(resp); respErr != nil {
				log.Error().Err(respErr).Msg("error handling response")
			}
			return
		}

		log.Error().Err(err).Msg("message does not match known types")
		if sendErr := sendError(session, uuid.Nil, JSONRPCErrorInvalidRequest); sendErr != nil {
			log.Error().Err(sendErr).Msg("error sending error response")
		}
	}
}

func writePostResponse(w http.ResponseWriter, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("error writing POST response")
	}
}

func writePostError(w http.ResponseWriter, id uuid.UUID, errObj models.ErrorObject) {
	writePostResponse(w, models.ResponseErrorObject{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &errObj,
	})
}

// handlePostRequest serves single-shot JSON-RPC requests over HTTP POST.
// Producers that don't hold a websocket session, like a capture tool
// submitting one OCR result, post here. JSON-RPC errors are carried in a
// 200 body; transport problems use plain HTTP status codes. Notifications
// (no id) are executed but get an empty 204 reply.
func handlePostRequest(
	methodMap *MethodMap,
	cfg *config.Instance,
	st *state.State,
	db *database.Database,
	rec *reconciler.Reconciler,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || contentType != "application/json" {
			http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Error reading request body", http.StatusBadRequest)
			return
		}

		if !json.Valid(body) {
			writePostError(w, uuid.Nil, JSONRPCErrorParseError)
			return
		}

		var req models.RequestObject
		if err := json.Unmarshal(body, &req); err != nil {
			writePostError(w, uuid.Nil, JSONRPCErrorParseError)
			return
		}

		if req.JSONRPC != "2.0" || req.Method == "" {
			writePostError(w, maybeUUID(req), JSONRPCErrorInvalidRequest)
			return
		}

		logSafeRequest(req)

		fn, ok := methodMap.GetMethod(req.Method)
		if !ok {
			if req.ID == nil {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			writePostError(w, *req.ID, JSONRPCErrorMethodNotFound)
			return
		}

		env := requestEnv(cfg, st, db, rec, middleware.IsLoopbackAddr(r.RemoteAddr))
		env.Params = req.Params

		if req.ID == nil {
			// JSON-RPC notification: execute but never reply
			if _, methodErr := fn(env); methodErr != nil {
				log.Warn().Err(methodErr).Str("method", req.Method).Msg("notification method returned error")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		env.ID = *req.ID

		resp, methodErr := fn(env)
		if methodErr != nil {
			log.Error().Err(methodErr).Str("method", req.Method).Msg("method returned error")
			writePostError(w, *req.ID, methodErrorObject(methodErr))
			return
		}

		logSafeResponse(resp)
		writePostResponse(w, models.ResponseObject{
			JSONRPC: "2.0",
			ID:      *req.ID,
			Result:  resp,
		})
	}
}

// broadcastNotifications relays service notifications to every websocket
// session. Broadcasts run in their own goroutine so a slow session never
// stalls the notification channel consumer.
func broadcastNotifications(
	st *state.State,
	session *melody.Melody,
	notifications <-chan models.Notification,
) {
	for {
		select {
		case <-st.GetContext().Done():
			log.Debug().Msg("closing notification broadcaster via context cancellation")
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("notification channel closed, stopping broadcaster")
				return
			}
			req := models.RequestObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			}

			data, err := json.Marshal(req)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification request")
				continue
			}

			go func(data []byte) {
				if err := session.Broadcast(data); err != nil {
					log.Error().Err(err).Msg("broadcasting notification")
				}
			}(data)
		}
	}
}

// Start runs the API server until the service context is cancelled. It is
// blocking and expected to run in its own goroutine.
func Start(
	cfg *config.Instance,
	st *state.State,
	db *database.Database,
	rec *reconciler.Reconciler,
	notifications <-chan models.Notification,
) {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(chimiddleware.Timeout(config.APIRequestTimeout))

	allowedOrigins := cfg.AllowedOrigins()
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{},
	}))

	rateLimiter := middleware.NewIPRateLimiter()
	rateLimiter.StartCleanup(st.GetContext())

	methodMap := defaultMethodMap()

	session := melody.New()
	session.Upgrader.CheckOrigin = func(_ *http.Request) bool { return true }
	session.HandleMessage(middleware.WebSocketRateLimitHandler(
		rateLimiter,
		handleWSMessage(methodMap, cfg, st, db, rec),
	))
	go broadcastNotifications(st, session, notifications)

	handleWS := func(w http.ResponseWriter, r *http.Request) {
		if err := session.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	}
	handlePost := handlePostRequest(methodMap, cfg, st, db, rec)

	r.Group(func(r chi.Router) {
		r.Use(middleware.HTTPRateLimitMiddleware(rateLimiter))
		r.Get("/api", handleWS)
		r.Get("/api/v0.1", handleWS)
		r.Post("/api", handlePost)
		r.Post("/api/v0.1", handlePost)
	})

	srv := &http.Server{
		Addr:              cfg.APIListen(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-st.GetContext().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutting down API server")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("starting API server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("error starting API server")
	}
}
