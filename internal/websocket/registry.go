package websocket

import (
	"sync"

	"github.com/samber/lo"
)

// Registry хранит состав комнат: eventID -> множество клиентов.
// Множество комнат самого клиента меняется только под блокировкой реестра,
// поэтому обе стороны всегда согласованы.
type Registry struct {
	mu    sync.RWMutex
	rooms map[int64]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int64]map[*Client]struct{}),
	}
}

// Join добавляет клиента в комнату. Повторный вызов ничего не меняет.
// Закрывающийся клиент в комнату не попадает.
func (r *Registry) Join(roomID int64, client *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client.mu.Lock()
	defer client.mu.Unlock()

	if client.state >= StateClosing {
		return ErrClientClosed
	}

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[roomID] = room
	}
	room[client] = struct{}{}
	client.rooms[roomID] = struct{}{}
	return nil
}

// Leave удаляет клиента из комнаты. Пустая комната удаляется.
func (r *Registry) Leave(roomID int64, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	client.mu.Lock()
	defer client.mu.Unlock()

	return r.leaveLocked(roomID, client)
}

// RemoveEverywhere выводит клиента из всех его комнат и возвращает их список.
func (r *Registry) RemoveEverywhere(client *Client) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	client.mu.Lock()
	defer client.mu.Unlock()

	left := lo.Keys(client.rooms)
	for _, roomID := range left {
		r.leaveLocked(roomID, client)
	}
	return left
}

func (r *Registry) leaveLocked(roomID int64, client *Client) bool {
	delete(client.rooms, roomID)

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := room[client]; !ok {
		return false
	}
	delete(room, client)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	return true
}

// Members возвращает снимок участников комнаты.
func (r *Registry) Members(roomID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.rooms[roomID])
}

func (r *Registry) IsMember(roomID int64, client *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID][client]
	return ok
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
