package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/az-funnel/conversation/domain"
	domainSession "github.com/AzielCF/az-funnel/domains/session"
	pkgError "github.com/AzielCF/az-funnel/pkg/error"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	CodeSessionSnapshot = "SESSION_SNAPSHOT"
	CodeEventIgnored    = "EVENT_IGNORED"
	CodeError           = "ERROR"

	CodeSubmitText    = "SUBMIT_TEXT"
	CodeSubmitChoice  = "SUBMIT_CHOICE"
	CodeMediaEnded    = "MEDIA_ENDED"
	CodeFetchSnapshot = "FETCH_SNAPSHOT"
)

const (
	broadcastBuffer = 256

	// DefaultSnapshotTTL bounds how long a shared snapshot outlives its last update.
	DefaultSnapshotTTL = 2 * time.Hour
)

// BroadcastMessage is the envelope for both directions. Inbound events fill Text or Label.
// SenderID, Target and ConnID only travel between server instances.
type BroadcastMessage struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Label     string `json:"label,omitempty"`
	Result    any    `json:"result,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
	Target    string `json:"target,omitempty"`
	ConnID    string `json:"conn_id,omitempty"`
}

// Broker connects hubs running on different server instances. The Valkey
// client satisfies it.
type Broker interface {
	Key(parts ...string) string
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, fn func(payload []byte)) error
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Load(ctx context.Context, key string) ([]byte, bool, error)
}

type subscription struct {
	conn      *websocket.Conn
	connID    string
	sessionID string
}

type directMessage struct {
	conn    *websocket.Conn
	message BroadcastMessage
}

// Hub owns every open connection, grouped by session. Only the Run goroutine touches rooms.
//
// Sessions live in the memory of the instance that created them. With a
// broker, every owned snapshot is published and stored, so a client connected
// to another instance still gets its room; its events are forwarded to the
// owner, which answers ignored events and errors back to that one connection.
type Hub struct {
	rooms map[string]map[*websocket.Conn]string

	register   chan subscription
	unregister chan subscription
	broadcast  chan BroadcastMessage
	remote     chan BroadcastMessage
	direct     chan directMessage
	quit       chan struct{}

	broker      Broker
	wsChan      string
	localID     string
	snapshotTTL time.Duration

	service domainSession.ISessionUsecase
}

// NewHub builds a hub. A nil broker keeps fan-out local to this instance.
func NewHub(broker Broker, serverID string, snapshotTTL time.Duration) *Hub {
	if snapshotTTL <= 0 {
		snapshotTTL = DefaultSnapshotTTL
	}
	h := &Hub{
		rooms:       make(map[string]map[*websocket.Conn]string),
		register:    make(chan subscription),
		unregister:  make(chan subscription),
		broadcast:   make(chan BroadcastMessage, broadcastBuffer),
		remote:      make(chan BroadcastMessage, broadcastBuffer),
		direct:      make(chan directMessage, broadcastBuffer),
		quit:        make(chan struct{}),
		broker:      broker,
		localID:     serverID,
		snapshotTTL: snapshotTTL,
	}
	if broker != nil {
		h.wsChan = broker.Key("ws", "broadcast")
	}
	return h
}

func (h *Hub) snapshotKey(sessionID string) string {
	return h.broker.Key("ws", "snapshot", sessionID)
}

// Publish queues a message for the session room. It never blocks the caller.
func (h *Hub) Publish(message BroadcastMessage) {
	select {
	case h.broadcast <- message:
	default:
		logrus.Warnf("[WS] Broadcast queue full, dropping %s for session %s", message.Code, message.SessionID)
	}
}

// Run processes hub traffic until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.quit)

	if h.broker != nil {
		go h.subscribe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for sessionID, room := range h.rooms {
				for conn := range room {
					closeConnection(conn)
				}
				delete(h.rooms, sessionID)
			}
			return

		case sub := <-h.register:
			room, ok := h.rooms[sub.sessionID]
			if !ok {
				room = make(map[*websocket.Conn]string)
				h.rooms[sub.sessionID] = room
			}
			room[sub.conn] = sub.connID
			logrus.Debugf("[WS] Connection registered for session %s (%d open)", sub.sessionID, len(room))

		case sub := <-h.unregister:
			h.remove(sub.sessionID, sub.conn)
			logrus.Debugf("[WS] Connection unregistered for session %s", sub.sessionID)

		case message := <-h.broadcast:
			h.broadcastToLocal(message)
			if h.broker != nil {
				h.share(ctx, message)
			}

		case message := <-h.remote:
			if message.Target != "" {
				h.deliverTargeted(message)
				continue
			}
			h.broadcastToLocal(message)

		case dm := <-h.direct:
			for sessionID, room := range h.rooms {
				if _, ok := room[dm.conn]; ok {
					h.write(sessionID, dm.conn, dm.message)
					break
				}
			}
		}
	}
}

func (h *Hub) remove(sessionID string, conn *websocket.Conn) {
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

func (h *Hub) broadcastToLocal(message BroadcastMessage) {
	room := h.rooms[message.SessionID]
	if len(room) == 0 {
		return
	}

	message.SenderID = ""
	payload, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn := range room {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			closeConnection(conn)
			h.remove(message.SessionID, conn)
		}
	}
}

func (h *Hub) deliverTargeted(message BroadcastMessage) {
	if message.Target != h.localID {
		return
	}
	connID := message.ConnID
	message.SenderID, message.Target, message.ConnID = "", "", ""
	for conn, id := range h.rooms[message.SessionID] {
		if id == connID {
			h.write(message.SessionID, conn, message)
			return
		}
	}
}

func (h *Hub) write(sessionID string, conn *websocket.Conn, message BroadcastMessage) {
	if err := conn.WriteJSON(message); err != nil {
		logrus.Errorf("[WS] Write error: %v", err)
		closeConnection(conn)
		h.remove(sessionID, conn)
	}
}

// share stores owned snapshots for the other instances and publishes the message.
func (h *Hub) share(ctx context.Context, message BroadcastMessage) {
	if message.Code == CodeSessionSnapshot && message.Result != nil {
		data, err := json.Marshal(message.Result)
		if err == nil {
			err = h.broker.Store(ctx, h.snapshotKey(message.SessionID), data, h.snapshotTTL)
		}
		if err != nil {
			logrus.Errorf("[WS] Failed to store snapshot of session %s: %v", message.SessionID, err)
		}
	}
	h.publishToBroker(ctx, message)
}

func (h *Hub) publishToBroker(ctx context.Context, message BroadcastMessage) {
	message.SenderID = h.localID

	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	if err := h.broker.Publish(ctx, h.wsChan, data); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func (h *Hub) subscribe(ctx context.Context) {
	logrus.Infof("[WS] Subscribed to %s for distributed snapshots", h.wsChan)
	err := h.broker.Subscribe(ctx, h.wsChan, func(payload []byte) {
		var message BroadcastMessage
		if err := json.Unmarshal(payload, &message); err != nil {
			return
		}
		// Our own publications come back through the channel too.
		if message.SenderID == h.localID {
			return
		}
		if isEvent(message.Code) {
			h.applyForwarded(ctx, message)
			return
		}
		select {
		case h.remote <- message:
		case <-ctx.Done():
		}
	})
	if err != nil && ctx.Err() == nil {
		logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
	}
}

// applyForwarded runs an event another instance received for a session it
// does not host. Every instance sees it; only the owner finds the session.
func (h *Hub) applyForwarded(ctx context.Context, message BroadcastMessage) {
	if h.service == nil {
		return
	}
	if _, err := h.service.Get(ctx, domainSession.SessionRequest{SessionID: message.SessionID}); err != nil {
		return
	}

	response, err := dispatch(ctx, h.service, message.SessionID, message)

	var answer BroadcastMessage
	switch {
	case err != nil:
		answer = errorMessage(message.SessionID, err)
	case !response.Accepted:
		answer = ignoredMessage(message.SessionID, message.Code, response.Snapshot)
	default:
		// The snapshot hook already published the new state.
		return
	}
	answer.Target = message.SenderID
	answer.ConnID = message.ConnID
	h.publishToBroker(ctx, answer)
}

func closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
}

// RegisterRoutes mounts GET /ws/:session_id and forwards every session snapshot to its room.
// Call it before Run.
func (h *Hub) RegisterRoutes(app fiber.Router, service domainSession.ISessionUsecase) {
	h.service = service
	service.OnSnapshot(func(snap domain.Snapshot) {
		h.Publish(BroadcastMessage{
			Code:      CodeSessionSnapshot,
			Message:   snap.Step.String(),
			SessionID: snap.SessionID,
			Result:    snap,
		})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws/:session_id", websocket.New(func(conn *websocket.Conn) {
		h.serve(conn, service)
	}))
}

// resolve finds the session locally, then among the snapshots other instances shared.
func (h *Hub) resolve(ctx context.Context, service domainSession.ISessionUsecase, sessionID string) (snap any, step domain.Step, owned bool, err error) {
	current, err := service.Get(ctx, domainSession.SessionRequest{SessionID: sessionID})
	if err == nil {
		return current, current.Step, true, nil
	}
	var notFound pkgError.NotFoundError
	if h.broker == nil || !errors.As(err, &notFound) {
		return nil, 0, false, err
	}

	data, found, loadErr := h.broker.Load(ctx, h.snapshotKey(sessionID))
	if loadErr != nil {
		logrus.Errorf("[WS] Failed to load shared snapshot of session %s: %v", sessionID, loadErr)
		return nil, 0, false, err
	}
	if !found {
		return nil, 0, false, err
	}
	var shared domain.Snapshot
	if json.Unmarshal(data, &shared) != nil || shared.Phase == domain.PhaseClosed {
		return nil, 0, false, err
	}
	return shared, shared.Step, false, nil
}

func (h *Hub) serve(conn *websocket.Conn, service domainSession.ISessionUsecase) {
	defer conn.Close()

	ctx := context.Background()
	sessionID := conn.Params("session_id")

	current, step, owned, err := h.resolve(ctx, service, sessionID)
	if err != nil {
		// Not registered yet, so writing from this goroutine is safe.
		_ = conn.WriteJSON(errorMessage(sessionID, err))
		return
	}

	sub := subscription{conn: conn, connID: uuid.NewString(), sessionID: sessionID}
	select {
	case h.register <- sub:
	case <-h.quit:
		return
	}
	defer func() {
		select {
		case h.unregister <- sub:
		case <-h.quit:
		}
	}()

	h.reply(conn, snapshotMessage(sessionID, step, current))

	for {
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Warnf("[WS] Read error on session %s: %v", sessionID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			logrus.Debugf("[WS] Unsupported message type %d", messageType)
			continue
		}

		var inbound BroadcastMessage
		if err := json.Unmarshal(raw, &inbound); err != nil {
			h.reply(conn, errorMessage(sessionID, pkgError.ValidationError("malformed message: "+err.Error())))
			continue
		}
		if owned {
			h.handle(ctx, conn, service, sessionID, inbound)
		} else {
			h.forward(ctx, conn, service, sub, inbound)
		}
	}
}

func (h *Hub) handle(ctx context.Context, conn *websocket.Conn, service domainSession.ISessionUsecase, sessionID string, inbound BroadcastMessage) {
	switch {
	case inbound.Code == CodeFetchSnapshot:
		current, getErr := service.Get(ctx, domainSession.SessionRequest{SessionID: sessionID})
		if getErr != nil {
			h.reply(conn, errorMessage(sessionID, getErr))
			return
		}
		h.reply(conn, snapshotMessage(sessionID, current.Step, current))
		return
	case !isEvent(inbound.Code):
		h.reply(conn, errorMessage(sessionID, pkgError.ValidationError("unsupported code "+inbound.Code)))
		return
	}

	response, err := dispatch(ctx, service, sessionID, inbound)
	if err != nil {
		h.reply(conn, errorMessage(sessionID, err))
		return
	}
	// Accepted events reach the room through the snapshot hook.
	if !response.Accepted {
		h.reply(conn, ignoredMessage(sessionID, inbound.Code, response.Snapshot))
	}
}

// forward hands events for a session hosted elsewhere to its owner.
func (h *Hub) forward(ctx context.Context, conn *websocket.Conn, service domainSession.ISessionUsecase, sub subscription, inbound BroadcastMessage) {
	switch {
	case inbound.Code == CodeFetchSnapshot:
		current, step, _, err := h.resolve(ctx, service, sub.sessionID)
		if err != nil {
			h.reply(conn, errorMessage(sub.sessionID, err))
			return
		}
		h.reply(conn, snapshotMessage(sub.sessionID, step, current))
	case isEvent(inbound.Code):
		h.publishToBroker(ctx, BroadcastMessage{
			Code:      inbound.Code,
			SessionID: sub.sessionID,
			Text:      inbound.Text,
			Label:     inbound.Label,
			ConnID:    sub.connID,
		})
	default:
		h.reply(conn, errorMessage(sub.sessionID, pkgError.ValidationError("unsupported code "+inbound.Code)))
	}
}

func isEvent(code string) bool {
	switch code {
	case CodeSubmitText, CodeSubmitChoice, CodeMediaEnded:
		return true
	}
	return false
}

func dispatch(ctx context.Context, service domainSession.ISessionUsecase, sessionID string, inbound BroadcastMessage) (domainSession.EventResponse, error) {
	switch inbound.Code {
	case CodeSubmitText:
		return service.SubmitText(ctx, domainSession.SubmitTextRequest{SessionID: sessionID, Text: inbound.Text})
	case CodeSubmitChoice:
		return service.SubmitChoice(ctx, domainSession.SubmitChoiceRequest{SessionID: sessionID, Label: inbound.Label})
	default:
		return service.MediaEnded(ctx, domainSession.SessionRequest{SessionID: sessionID})
	}
}

func (h *Hub) reply(conn *websocket.Conn, message BroadcastMessage) {
	select {
	case h.direct <- directMessage{conn: conn, message: message}:
	case <-h.quit:
	}
}

func snapshotMessage(sessionID string, step domain.Step, result any) BroadcastMessage {
	return BroadcastMessage{
		Code:      CodeSessionSnapshot,
		Message:   step.String(),
		SessionID: sessionID,
		Result:    result,
	}
}

func ignoredMessage(sessionID, code string, snap domain.Snapshot) BroadcastMessage {
	return BroadcastMessage{
		Code:      CodeEventIgnored,
		Message:   code + " ignored in current state",
		SessionID: sessionID,
		Result:    snap,
	}
}

func errorMessage(sessionID string, err error) BroadcastMessage {
	code := "INTERNAL_SERVER_ERROR"
	var generic pkgError.GenericError
	if errors.As(err, &generic) {
		code = generic.ErrCode()
	}
	return BroadcastMessage{
		Code:      CodeError,
		Message:   err.Error(),
		SessionID: sessionID,
		Result:    code,
	}
}
