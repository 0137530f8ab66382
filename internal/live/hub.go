// Package live pushes map updates to connected viewers. Each map gets a
// room; when any member reports a completion the hub records it and sends
// every client in the room its own freshly personalized render.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/trailmap/trailmap/internal/engine"
	"github.com/trailmap/trailmap/internal/store"
)

// Renderer produces the personalized document for one viewer.
type Renderer interface {
	Render(ctx context.Context, mapID, userID, groupID string, editMode bool) (*engine.RenderResult, error)
}

// Recorder persists one completion state change.
type Recorder interface {
	SetCompletion(ctx context.Context, c store.Completion) error
}

type Room struct {
	mapID   string
	clients map[string]*Client // clientID -> client
}

func NewRoom(mapID string) *Room {
	return &Room{
		mapID:   mapID,
		clients: make(map[string]*Client),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // mapID -> room
	register   chan *Client
	unregister chan *Client

	renderer Renderer
	recorder Recorder
}

func NewHub(renderer Renderer, recorder Recorder) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		renderer:   renderer,
		recorder:   recorder,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.MapID]
	if !ok {
		room = NewRoom(client.MapID)
		h.rooms[client.MapID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	payload, _ := json.Marshal(WelcomePayload{ClientID: client.ClientID})
	client.Send(&Message{Type: TypeWelcome, Payload: payload})

	slog.Info("client joined", "user", client.UserID, "map", client.MapID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.MapID]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)

	if len(room.clients) == 0 {
		delete(h.rooms, client.MapID)
	}
	h.mu.Unlock()

	slog.Info("client left", "user", client.UserID, "map", client.MapID)
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	switch msg.Type {
	case TypeProgressUpdate:
		h.handleProgressUpdate(ctx, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handleProgressUpdate(ctx context.Context, sender *Client, msg *Message) {
	var progress ProgressUpdatePayload
	if err := json.Unmarshal(msg.Payload, &progress); err != nil {
		slog.Warn("invalid progress payload", "error", err)
		return
	}
	if progress.ModuleID == "" {
		h.sendError(sender, "moduleId is required")
		return
	}

	now := timeNow()
	err := h.recorder.SetCompletion(ctx, store.Completion{
		ModuleID:    progress.ModuleID,
		MemberID:    sender.UserID,
		State:       progress.State,
		CompletedAt: &now,
	})
	if err != nil {
		slog.Error("record completion failed", "error", err, "user", sender.UserID)
		h.sendError(sender, "could not record progress")
		return
	}

	h.mu.RLock()
	room, ok := h.rooms[sender.MapID]
	clients := make([]*Client, 0)
	if ok {
		for _, c := range room.clients {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	// Renders stay per recipient; every viewer sees their own map.
	for _, c := range clients {
		res, err := h.renderer.Render(ctx, c.MapID, c.UserID, "", false)
		if err != nil {
			slog.Error("render for broadcast failed", "error", err, "user", c.UserID)
			continue
		}

		payload, _ := json.Marshal(ProgressUpdatedPayload{
			ModuleID:  progress.ModuleID,
			UserID:    sender.UserID,
			State:     progress.State,
			SVG:       res.SVG,
			Active:    res.Active,
			Completed: res.Completed,
		})
		c.Send(&Message{
			Type:    TypeProgressUpdated,
			UserID:  sender.UserID,
			Payload: payload,
		})
	}
}

// Swapped out in tests.
var timeNow = time.Now

func (h *Hub) sendError(c *Client, reason string) {
	payload, _ := json.Marshal(ErrorPayload{Reason: reason})
	c.Send(&Message{Type: TypeError, Payload: payload})
}
