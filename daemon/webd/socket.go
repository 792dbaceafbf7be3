package webd

import (
	"context"
	"encoding/json"

	"github.com/olahol/melody"
	"github.com/rotblauer/trailhud/types"
)

type messageKind string

const (
	messageKindIncline  messageKind = "incline"
	messageKindLocation messageKind = "location"
)

type message struct {
	Kind messageKind `json:"kind"`
	Data any         `json:"data"`
}

func encodeIncline(in types.Incline) ([]byte, error) {
	return json.Marshal(message{Kind: messageKindIncline, Data: in})
}

func encodeLocation(l types.Location) ([]byte, error) {
	return json.Marshal(message{Kind: messageKindLocation, Data: l.View()})
}

// initMelody sets up the websocket handler.
// New clients are sent the latest readings, if fresh.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(sess *melody.Session) {
		s.logger.Info("Websocket connected", "remote", sess.Request.RemoteAddr)
		if in, ok := s.Latest.Incline(); ok {
			if b, err := encodeIncline(in); err == nil {
				_ = sess.Write(b)
			}
		}
		if l, ok := s.Latest.Location(); ok {
			if b, err := encodeLocation(l); err == nil {
				_ = sess.Write(b)
			}
		}
	})

	// Clients only listen. Log and drop anything they send.
	s.melodyInstance.HandleMessage(func(sess *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", sess.Request.RemoteAddr, "msg", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(sess *melody.Session) {
		s.logger.Info("Websocket disconnected", "remote", sess.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(sess *melody.Session, err error) {
		s.logger.Warn("Websocket error", "remote", sess.Request.RemoteAddr, "error", err)
	})
}

// broadcast relays bus events to every websocket client until ctx is done.
func (s *WebDaemon) broadcast(ctx context.Context) {
	inCh := make(chan types.Incline, 64)
	locCh := make(chan types.Location, 16)
	inSub := s.Bus.SubscribeInclines(inCh)
	defer inSub.Unsubscribe()
	locSub := s.Bus.SubscribeLocations(locCh)
	defer locSub.Unsubscribe()

	send := func(b []byte, err error) {
		if err != nil {
			s.logger.Error("Failed to encode websocket message", "error", err)
			return
		}
		if s.melodyInstance.Len() == 0 {
			return
		}
		if err := s.melodyInstance.Broadcast(b); err != nil {
			s.logger.Warn("Failed to broadcast", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-inSub.Err():
			return
		case <-locSub.Err():
			return
		case in := <-inCh:
			send(encodeIncline(in))
		case l := <-locCh:
			send(encodeLocation(l))
		}
	}
}
