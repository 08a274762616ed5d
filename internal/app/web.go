// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/estimator"
	"github.com/relabs-tech/sinefit/internal/fit"
	"github.com/relabs-tech/sinefit/internal/window"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// liveView is what the API reads between fit cycles.
type liveView interface {
	CurrentStatus() estimator.Status
	LatestFit() (fit.Result, bool)
	WindowSnapshot() window.Snapshot
}

// frameMessage is a frame plus its fitted curve, as sent on /ws.
type frameMessage struct {
	estimator.Frame
	Curve []float64 `json:"curve,omitempty"`
}

// WebPresenter serves the latest state over HTTP and pushes every frame to
// websocket clients.
type WebPresenter struct {
	live liveView
	log  *zap.SugaredLogger

	mu        sync.RWMutex
	lastFrame estimator.Frame
	haveFrame bool
	clients   map[chan estimator.Frame]struct{}

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewWebPresenter(live liveView, log *zap.SugaredLogger) *WebPresenter {
	return &WebPresenter{
		live:     live,
		log:      log,
		clients:  make(map[chan estimator.Frame]struct{}),
		shutdown: make(chan struct{}),
	}
}

// Present caches f and hands it to every websocket client. A client that
// has not taken the previous frame gets only the newest one.
func (w *WebPresenter) Present(_ context.Context, f estimator.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastFrame = f
	w.haveFrame = true
	for ch := range w.clients {
		select {
		case <-ch:
		default:
		}
		ch <- f
	}
	return nil
}

func (w *WebPresenter) subscribe() (chan estimator.Frame, estimator.Frame, bool) {
	ch := make(chan estimator.Frame, 1)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[ch] = struct{}{}
	return ch, w.lastFrame, w.haveFrame
}

func (w *WebPresenter) unsubscribe(ch chan estimator.Frame) {
	w.mu.Lock()
	delete(w.clients, ch)
	w.mu.Unlock()
}

// Handler returns the HTTP routes.
func (w *WebPresenter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/fit", w.handleFit)
	mux.HandleFunc("/api/status", w.handleStatus)
	mux.HandleFunc("/api/window", w.handleWindow)
	mux.HandleFunc("/api/frame", w.handleFrame)
	mux.HandleFunc("/ws", w.handleWS)
	return mux
}

func (w *WebPresenter) handleFit(rw http.ResponseWriter, r *http.Request) {
	res, ok := w.live.LatestFit()
	if !ok {
		http.Error(rw, "no fit yet", http.StatusServiceUnavailable)
		return
	}
	w.writeJSON(rw, struct {
		fit.Result
		Status estimator.Status `json:"status"`
	}{res, w.live.CurrentStatus()})
}

func (w *WebPresenter) handleStatus(rw http.ResponseWriter, r *http.Request) {
	w.writeJSON(rw, w.live.CurrentStatus())
}

func (w *WebPresenter) handleWindow(rw http.ResponseWriter, r *http.Request) {
	w.writeJSON(rw, w.live.WindowSnapshot())
}

func (w *WebPresenter) handleFrame(rw http.ResponseWriter, r *http.Request) {
	w.mu.RLock()
	f, ok := w.lastFrame, w.haveFrame
	w.mu.RUnlock()

	if !ok {
		http.Error(rw, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.writeJSON(rw, frameMessage{Frame: f, Curve: f.Curve()})
}

func (w *WebPresenter) writeJSON(rw http.ResponseWriter, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		w.log.Warnf("web: json encode error: %v", err)
	}
}

func (w *WebPresenter) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warnf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch, last, ok := w.subscribe()
	defer w.unsubscribe(ch)

	// the client only listens; reading detects when it goes away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if ok {
		if err := conn.WriteJSON(frameMessage{Frame: last, Curve: last.Curve()}); err != nil {
			w.log.Debugf("web: websocket write error: %v", err)
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-w.shutdown:
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case f := <-ch:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(frameMessage{Frame: f, Curve: f.Curve()}); err != nil {
				w.log.Debugf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

// Serve listens on addr until ctx is cancelled.
func (w *WebPresenter) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           w.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	// hijacked websocket connections are not closed by Shutdown
	srv.RegisterOnShutdown(func() {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	w.log.Infof("web: server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
