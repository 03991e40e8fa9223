package statusservice

import (
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// WsConn is interface for websocket handling in status service
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// WSConnKeeper tracks websocket connections subscribed to media IDs.
// One media ID may have several listeners, a connection follows one media at a time.
type WSConnKeeper struct {
	lock        sync.Mutex
	subscribers map[string]map[WsConn]struct{}
	mediaOf     map[WsConn]string
	idleTimeout time.Duration
}

// NewWSConnKeeper creates manager
func NewWSConnKeeper() *WSConnKeeper {
	return &WSConnKeeper{
		subscribers: map[string]map[WsConn]struct{}{},
		mediaOf:     map[WsConn]string{},
		// drop connections silent for too long
		idleTimeout: time.Minute * 30,
	}
}

// HandleConnection reads media IDs from the connection and keeps it subscribed
// until the client disconnects or goes idle
func (kp *WSConnKeeper) HandleConnection(conn WsConn) error {
	defer kp.unsubscribe(conn)
	defer conn.Close()

	ids := make(chan string)
	go func() {
		defer close(ids)
		defer goapp.Log.Debug().Msg("ws read routine ended")
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				goapp.Log.Error().Err(err).Send()
				return
			}
			id := strings.TrimSpace(string(data))
			goapp.Log.Debug().Str("ID", goapp.Sanitize(id)).Msg("ws subscribe msg")
			if id != "" {
				ids <- id
			} else {
				time.Sleep(20 * time.Millisecond)
			}
		}
	}()

	deadline := time.After(kp.idleTimeout)
loop:
	for {
		select {
		case <-deadline:
			goapp.Log.Debug().Msg("ws conn timeouted")
			break loop
		case id, ok := <-ids:
			if !ok {
				break loop
			}
			kp.subscribe(conn, id)
			deadline = time.After(kp.idleTimeout)
		}
	}
	goapp.Log.Info().Msg("ws conn done")
	return nil
}

func (kp *WSConnKeeper) subscribe(conn WsConn, id string) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	kp.drop(conn)
	kp.mediaOf[conn] = id
	conns, ok := kp.subscribers[id]
	if !ok {
		conns = map[WsConn]struct{}{}
		kp.subscribers[id] = conns
	}
	conns[conn] = struct{}{}
	goapp.Log.Info().Str("ID", id).Int("active", len(kp.mediaOf)).Msg("ws subscribed")
}

func (kp *WSConnKeeper) unsubscribe(conn WsConn) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	kp.drop(conn)
	goapp.Log.Info().Int("active", len(kp.mediaOf)).Msg("ws conn dropped")
}

// drop removes the connection from both maps, caller holds the lock
func (kp *WSConnKeeper) drop(conn WsConn) {
	if id, ok := kp.mediaOf[conn]; ok {
		if conns, ok := kp.subscribers[id]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(kp.subscribers, id)
			}
		}
	}
	delete(kp.mediaOf, conn)
}

// GetConnections returns active connections subscribed to the media ID
func (kp *WSConnKeeper) GetConnections(id string) ([]WsConn, bool) {
	kp.lock.Lock()
	defer kp.lock.Unlock()
	conns, ok := kp.subscribers[id]
	if !ok {
		return nil, false
	}
	res := make([]WsConn, 0, len(conns))
	for c := range conns {
		res = append(res, c)
	}
	return res, true
}
