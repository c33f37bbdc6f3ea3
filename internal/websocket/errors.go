package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrClientClosed    = errors.New("client is closed")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrInvalidEventID  = errors.New("invalid event id")
	ErrEmptyContent    = errors.New("content is empty")
	ErrHubStopped      = errors.New("hub is stopped")
)
