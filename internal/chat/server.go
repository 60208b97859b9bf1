package chat

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/campuskit/campus-chat/internal/access"
	"github.com/campuskit/campus-chat/internal/rooms"
	"github.com/campuskit/campus-chat/internal/stats"
	"github.com/campuskit/campus-chat/internal/types"
)

// storeTimeout bounds every store call issued from the event loop. A
// timed-out call fails the one operation that issued it, nothing else.
const storeTimeout = 5 * time.Second

const (
	metricConnections   = "Connections"
	metricOnlineUsers   = "OnlineUsers"
	metricMessagesTotal = "MessagesTotal"
)

// ChatServer is the single owner of all connection, presence and typing
// state. Every register, deregister and inbound event is processed one
// at a time on the Run loop, so the maps below need no locking; nothing
// outside this loop may mutate them.
type ChatServer struct {
	log          *log.Logger
	store        *MessageStore
	access       *access.Evaluator
	stats        stats.StatsProvider
	historyLimit int

	RegisterChan   chan *Client
	deRegisterChan chan *Client
	inbound        chan *ClientEvent

	clients  map[*Client]struct{}
	roomSubs map[string]map[*Client]struct{}
	presence *presenceRegistry
	typing   *typingTracker

	stop chan struct{}
	done chan struct{}
}

func NewChatServer(logger *log.Logger, store *MessageStore, evaluator *access.Evaluator, statsProvider stats.StatsProvider, historyLimit int) (*ChatServer, error) {
	for _, m := range []string{metricConnections, metricOnlineUsers, metricMessagesTotal} {
		statsProvider.RegisterMetric(m)
	}

	return &ChatServer{
		log:            logger,
		store:          store,
		access:         evaluator,
		stats:          statsProvider,
		historyLimit:   historyLimit,
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		inbound:        make(chan *ClientEvent, 512),
		clients:        make(map[*Client]struct{}),
		roomSubs:       make(map[string]map[*Client]struct{}),
		presence:       newPresenceRegistry(),
		typing:         newTypingTracker(),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.addClient(client)
		case client := <-cs.deRegisterChan:
			cs.removeClient(client)
		case event := <-cs.inbound:
			cs.dispatch(event)
		case <-cs.stop:
			cs.log.Println("stopping chat server")
			for c := range cs.clients {
				c.stopClient()
			}

			close(cs.done)
			return
		}
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch fault-isolates one handler invocation: a panic is logged and
// answered with a scoped error event, never allowed to take down the
// loop and every other connection with it.
func (cs *ChatServer) dispatch(event *ClientEvent) {
	defer func() {
		if r := recover(); r != nil {
			cs.log.Printf("panic handling %q from %q: %v", event.Event, event.client.user.Id, r)
			event.client.queueEvent(errInternal())
		}
	}()

	switch event.Event {
	case EventJoinRoom:
		cs.handleJoin(event)
	case EventLeaveRoom:
		cs.handleLeave(event)
	case EventSendMessage:
		cs.handleSend(event)
	case EventTypingStart:
		cs.handleTyping(event, true)
	case EventTypingStop:
		cs.handleTyping(event, false)
	case EventGetOnlineUsers:
		cs.handleOnlineUsers(event)
	default:
		event.client.queueEvent(errEvent("unknown event"))
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.log.Printf("adding connection %q for user %q", c.connId, c.user.Id)
	cs.clients[c] = struct{}{}
	cs.stats.Incr(metricConnections)

	if cs.presence.addConnection(c.user, c.connId) {
		cs.stats.Incr(metricOnlineUsers)
		cs.broadcastAll(&ServerEvent{
			Event: EventUserStatusChanged,
			Data:  UserStatusChanged{UserId: c.user.Id, IsOnline: true},
		})
	}
}

// removeClient runs the full disconnect sweep: unsubscribe, clear
// typing flags everywhere, and fire a single offline broadcast if this
// was the user's last connection. No room-level user_left is emitted on
// an abrupt disconnect; the global status change is the only signal.
func (cs *ChatServer) removeClient(c *Client) {
	if _, ok := cs.clients[c]; !ok {
		return
	}

	cs.log.Printf("removing connection %q for user %q", c.connId, c.user.Id)
	delete(cs.clients, c)
	cs.stats.Decr(metricConnections)

	if c.room != nil {
		cs.unsubscribe(c)
	}

	for _, roomName := range cs.typing.clearUser(c.user.Id) {
		cs.broadcastRoom(roomName, &ServerEvent{
			Event: EventUserTyping,
			Data:  UserTyping{UserId: c.user.Id, DisplayName: c.user.DisplayName, IsTyping: false},
		}, c)
	}

	if cs.presence.removeConnection(c.user.Id, c.connId) {
		cs.stats.Decr(metricOnlineUsers)
		cs.broadcastAll(&ServerEvent{
			Event: EventUserStatusChanged,
			Data:  UserStatusChanged{UserId: c.user.Id, IsOnline: false},
		})
	}
}

func (cs *ChatServer) handleJoin(event *ClientEvent) {
	c := event.client
	desc, ok := cs.parseRoomRequest(event)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if !cs.access.CanAccess(ctx, c.user, desc) {
		// a denied join leaves the prior subscription untouched
		c.queueEvent(errEvent("access denied"))
		return
	}

	// at most one room per connection: joining supersedes the previous
	// subscription without a user_left broadcast
	if c.room != nil {
		prev := c.room.name
		cs.unsubscribe(c)
		cs.stopTypingIn(c, prev)
	}

	name := desc.CanonicalName()
	subs, ok := cs.roomSubs[name]
	if !ok {
		subs = make(map[*Client]struct{})
		cs.roomSubs[name] = subs
	}
	subs[c] = struct{}{}
	c.room = &subscription{desc: desc, name: name}

	c.queueEvent(&ServerEvent{
		Event: EventRoomJoined,
		Data: RoomJoined{
			RoomKind:      string(desc.Kind),
			RoomId:        desc.RoomId,
			CanonicalName: name,
			ChannelId:     desc.Channel,
		},
	})

	history, err := cs.store.Recent(ctx, desc, cs.historyLimit)
	if err != nil {
		cs.log.Printf("fetch history for %q (user %q): %v", name, c.user.Id, err)
		c.queueEvent(errInternal())
	} else {
		c.queueEvent(&ServerEvent{
			Event: EventMessageHistory,
			Data:  MessageHistory{ChannelId: desc.Channel, Messages: history},
		})
	}

	c.queueEvent(&ServerEvent{
		Event: EventRoomOnlineUsers,
		Data:  RoomOnlineUsers{Users: cs.roomRoster(name)},
	})

	cs.broadcastRoom(name, &ServerEvent{
		Event: EventUserJoined,
		Data:  UserPresence{UserId: c.user.Id, DisplayName: c.user.DisplayName},
	}, c)
}

func (cs *ChatServer) handleLeave(event *ClientEvent) {
	c := event.client
	desc, ok := cs.parseRoomRequest(event)
	if !ok {
		return
	}

	if c.room == nil || c.room.name != desc.CanonicalName() {
		c.queueEvent(errEvent("not joined to room"))
		return
	}

	name := c.room.name
	cs.unsubscribe(c)
	cs.stopTypingIn(c, name)

	cs.broadcastRoom(name, &ServerEvent{
		Event: EventUserLeft,
		Data:  UserPresence{UserId: c.user.Id, DisplayName: c.user.DisplayName},
	}, c)
}

func (cs *ChatServer) handleSend(event *ClientEvent) {
	c := event.client

	var req SendMessageRequest
	if err := json.Unmarshal(event.Data, &req); err != nil {
		c.queueEvent(errEvent("invalid event format"))
		return
	}

	kind := types.MessageKind(req.Kind)
	if kind == "" {
		kind = types.MessageKindPlain
	}
	if !types.ValidMessageKind(kind) {
		c.queueEvent(errEvent("invalid message kind"))
		return
	}

	roomKind, err := rooms.ParseKind(req.RoomKind)
	if err != nil {
		c.queueEvent(errEvent("unknown room kind"))
		return
	}

	// a client cannot send into a room it has not joined
	target := cs.descriptorFor(c, roomKind, req.RoomId)
	if c.room == nil || c.room.name != target.CanonicalName() {
		c.queueEvent(errEvent("not joined to room"))
		return
	}
	desc := c.room.desc

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	msgTarget, ok := cs.resolveTarget(ctx, c, desc)
	if !ok {
		return
	}

	record, err := cs.store.Save(ctx, c.user.Id, req.Content, kind, msgTarget, desc.Channel)
	if err != nil {
		cs.log.Printf("save message from %q to %q: %v", c.user.Id, c.room.name, err)
		c.queueEvent(errInternal())
		return
	}
	cs.stats.Incr(metricMessagesTotal)

	// every subscriber, sender included, sees the message through the
	// same broadcast; the sender's UI relies on the echo for ordering
	cs.broadcastRoom(c.room.name, &ServerEvent{
		Event: EventNewMessage,
		Data: types.Message{
			Id:         record.Id,
			AuthorId:   c.user.Id,
			AuthorName: c.user.DisplayName,
			Content:    record.Content,
			Kind:       kind,
			ChannelId:  desc.Channel,
			Timestamp:  record.CreatedAt,
		},
	}, nil)

	// sending clears the author's typing flag
	cs.stopTypingIn(c, c.room.name)
}

func (cs *ChatServer) handleTyping(event *ClientEvent, typing bool) {
	c := event.client
	desc, ok := cs.parseRoomRequest(event)
	if !ok {
		return
	}

	if c.room == nil || c.room.name != desc.CanonicalName() {
		c.queueEvent(errEvent("not joined to room"))
		return
	}

	if typing {
		cs.typing.start(c.room.name, c.user.Id)
	} else {
		cs.typing.stop(c.room.name, c.user.Id)
	}

	cs.broadcastRoom(c.room.name, &ServerEvent{
		Event: EventUserTyping,
		Data:  UserTyping{UserId: c.user.Id, DisplayName: c.user.DisplayName, IsTyping: typing},
	}, c)
}

func (cs *ChatServer) handleOnlineUsers(event *ClientEvent) {
	event.client.queueEvent(&ServerEvent{
		Event: EventOnlineUsers,
		Data:  cs.presence.listOnline(),
	})
}

// parseRoomRequest decodes the common room payload and normalizes it to
// a descriptor, answering the requester with a scoped error on bad
// input.
func (cs *ChatServer) parseRoomRequest(event *ClientEvent) (rooms.Descriptor, bool) {
	var req RoomRequest
	if err := json.Unmarshal(event.Data, &req); err != nil {
		event.client.queueEvent(errEvent("invalid event format"))
		return rooms.Descriptor{}, false
	}

	kind, err := rooms.ParseKind(req.RoomKind)
	if err != nil {
		event.client.queueEvent(errEvent("unknown room kind"))
		return rooms.Descriptor{}, false
	}

	if req.RoomId == "" {
		event.client.queueEvent(errEvent("missing room id"))
		return rooms.Descriptor{}, false
	}

	return cs.descriptorFor(event.client, kind, req.RoomId), true
}

func (cs *ChatServer) descriptorFor(c *Client, kind rooms.Kind, roomId string) rooms.Descriptor {
	if kind == rooms.KindDM {
		roomId = rooms.NormalizeDMId(c.user.Id, roomId)
	}
	return rooms.NewDescriptor(kind, roomId)
}

// resolveTarget maps the joined descriptor to the single foreign key
// the message is stored against, resolving private slugs first.
func (cs *ChatServer) resolveTarget(ctx context.Context, c *Client, desc rooms.Descriptor) (MessageTarget, bool) {
	switch desc.Kind {
	case rooms.KindCourse:
		return MessageTarget{CourseId: desc.RoomId}, true
	case rooms.KindLesson:
		return MessageTarget{LessonId: desc.RoomId}, true
	case rooms.KindDM:
		return MessageTarget{DmRoomId: desc.RoomId}, true
	case rooms.KindPrivate:
		room, err := cs.store.ResolvePrivateRoom(ctx, desc.RoomId)
		if err != nil {
			cs.log.Printf("resolve private room %q for %q: %v", desc.RoomId, c.user.Id, err)
			c.queueEvent(errEvent("room not found"))
			return MessageTarget{}, false
		}
		return MessageTarget{PrivateRoomId: room.Id}, true
	}

	c.queueEvent(errEvent("unknown room kind"))
	return MessageTarget{}, false
}

func (cs *ChatServer) unsubscribe(c *Client) {
	if c.room == nil {
		return
	}

	if subs, ok := cs.roomSubs[c.room.name]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(cs.roomSubs, c.room.name)
		}
	}

	c.room = nil
}

// stopTypingIn clears one user's typing flag in a room and notifies the
// room. The broadcast fires even when the flag was not set; stop is
// idempotent all the way to the wire.
func (cs *ChatServer) stopTypingIn(c *Client, roomName string) {
	cs.typing.stop(roomName, c.user.Id)
	cs.broadcastRoom(roomName, &ServerEvent{
		Event: EventUserTyping,
		Data:  UserTyping{UserId: c.user.Id, DisplayName: c.user.DisplayName, IsTyping: false},
	}, c)
}

// roomRoster snapshots the room's online users, deduplicated by user id
// across multiple connections.
func (cs *ChatServer) roomRoster(roomName string) []RoomUser {
	seen := make(map[string]struct{})
	var users []RoomUser
	for sub := range cs.roomSubs[roomName] {
		if _, ok := seen[sub.user.Id]; ok {
			continue
		}
		seen[sub.user.Id] = struct{}{}
		users = append(users, RoomUser{
			UserId:      sub.user.Id,
			DisplayName: sub.user.DisplayName,
			Role:        sub.user.Role,
		})
	}

	return users
}

func (cs *ChatServer) broadcastRoom(roomName string, event *ServerEvent, skip *Client) {
	for client := range cs.roomSubs[roomName] {
		if client == skip {
			continue
		}

		client.queueEvent(event)
	}
}

func (cs *ChatServer) broadcastAll(event *ServerEvent) {
	for client := range cs.clients {
		client.queueEvent(event)
	}
}
