package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Engine.IO packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// Socket.IO packet types, carried inside an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioAck          = '3'
	sioConnectError = '4'
)

var ErrDisconnected = errors.New("server disconnected namespace")

type packet struct {
	eio  byte
	sio  byte
	ns   string
	ack  string
	data json.RawMessage
}

type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// decodePacket parses one websocket text message.
func decodePacket(msg string) (packet, error) {
	if msg == "" {
		return packet{}, errors.New("empty packet")
	}
	p := packet{eio: msg[0]}
	rest := msg[1:]
	if p.eio != eioMessage {
		p.data = json.RawMessage(rest)
		return p, nil
	}
	if rest == "" {
		return packet{}, errors.New("message packet without socket.io type")
	}
	p.sio = rest[0]
	rest = rest[1:]

	p.ns = "/"
	if strings.HasPrefix(rest, "/") {
		i := strings.IndexByte(rest, ',')
		if i < 0 {
			p.ns = rest
			return p, nil
		}
		p.ns = rest[:i]
		rest = rest[i+1:]
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	p.ack = rest[:i]
	if body := rest[i:]; body != "" {
		p.data = json.RawMessage(body)
	}
	return p, nil
}

func nsPrefix(ns string) string {
	if ns == "" || ns == "/" {
		return ""
	}
	return ns + ","
}

func encodeConnect(ns string) string {
	return string([]byte{eioMessage, sioConnect}) + nsPrefix(ns)
}

func encodeDisconnect(ns string) string {
	return string([]byte{eioMessage, sioDisconnect}) + nsPrefix(ns)
}

func encodeEvent(ns, name string, payload interface{}) (string, error) {
	args := []interface{}{name}
	if payload != nil {
		args = append(args, payload)
	}
	body, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return string([]byte{eioMessage, sioEvent}) + nsPrefix(ns) + string(body), nil
}

// eventFrame extracts name and first argument from an EVENT packet body.
func eventFrame(data json.RawMessage) (Frame, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(data, &args); err != nil {
		return Frame{}, fmt.Errorf("malformed event: %w", err)
	}
	if len(args) == 0 {
		return Frame{}, errors.New("event without name")
	}
	var f Frame
	if err := json.Unmarshal(args[0], &f.Name); err != nil {
		return Frame{}, fmt.Errorf("event name: %w", err)
	}
	if len(args) > 1 {
		f.Payload = args[1]
	}
	return f, nil
}

// SocketIOTransport speaks Socket.IO v5 over an Engine.IO v4 websocket.
type SocketIOTransport struct {
	baseURL string
	dialer  *websocket.Dialer
	token   func() string
	logger  logrus.FieldLogger
}

func NewSocketIOTransport(baseURL string, token func() string, logger logrus.FieldLogger) *SocketIOTransport {
	return &SocketIOTransport{
		baseURL: baseURL,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		token:   token,
		logger:  logger.WithField("transport", "socketio"),
	}
}

func (t *SocketIOTransport) endpoint() (string, error) {
	u, err := url.Parse(t.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	return u.String(), nil
}

func (t *SocketIOTransport) Dial(ctx context.Context, namespace string) (Stream, error) {
	endpoint, err := t.endpoint()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if t.token != nil {
		if tok := t.token(); tok != "" {
			header.Set("Authorization", "Bearer "+tok)
		}
	}

	conn, _, err := t.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	s := &socketStream{conn: conn, ns: namespace, logger: t.logger.WithField("namespace", namespace)}

	// The open packet and namespace ack are bounded by ctx and the
	// dialer's handshake timeout.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	if t.dialer.HandshakeTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.dialer.HandshakeTimeout))
	}
	err = s.handshake()
	if !stop() {
		return nil, fmt.Errorf("socket.io handshake: %w", ctx.Err())
	}
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})
	return s, nil
}

type socketStream struct {
	conn     *websocket.Conn
	ns       string
	deadline time.Duration
	logger   logrus.FieldLogger

	writeMu sync.Mutex
	once    sync.Once
}

func (s *socketStream) handshake() error {
	p, err := s.read()
	if err != nil {
		return fmt.Errorf("read open packet: %w", err)
	}
	if p.eio != eioOpen {
		return fmt.Errorf("expected open packet, got %q", p.eio)
	}
	var open openPayload
	if err := json.Unmarshal(p.data, &open); err != nil {
		return fmt.Errorf("decode open packet: %w", err)
	}
	if open.PingInterval > 0 {
		s.deadline = time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond
	}

	if err := s.write(encodeConnect(s.ns)); err != nil {
		return err
	}
	for {
		p, err := s.read()
		if err != nil {
			return fmt.Errorf("await namespace connect: %w", err)
		}
		switch {
		case p.eio == eioPing:
			if err := s.write(string(eioPong)); err != nil {
				return err
			}
		case p.eio == eioMessage && p.ns == s.ns && p.sio == sioConnect:
			return nil
		case p.eio == eioMessage && p.ns == s.ns && p.sio == sioConnectError:
			return fmt.Errorf("namespace %s refused: %s", s.ns, string(p.data))
		}
	}
}

func (s *socketStream) read() (packet, error) {
	if s.deadline > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.deadline))
	}
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		return packet{}, err
	}
	return decodePacket(string(msg))
}

func (s *socketStream) write(msg string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Recv answers pings and returns the next event for this namespace.
func (s *socketStream) Recv(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		p, err := s.read()
		if err != nil {
			return Frame{}, err
		}
		switch p.eio {
		case eioPing:
			if err := s.write(string(eioPong)); err != nil {
				return Frame{}, err
			}
			continue
		case eioClose:
			return Frame{}, ErrDisconnected
		case eioMessage:
		default:
			continue
		}
		if p.ns != s.ns {
			continue
		}
		switch p.sio {
		case sioEvent:
			f, err := eventFrame(p.data)
			if err != nil {
				s.logger.WithError(err).Warn("skipping malformed packet")
				continue
			}
			return f, nil
		case sioDisconnect:
			return Frame{}, ErrDisconnected
		case sioConnectError:
			return Frame{}, fmt.Errorf("namespace error: %s", string(p.data))
		}
	}
}

func (s *socketStream) Emit(_ context.Context, name string, payload interface{}) error {
	msg, err := encodeEvent(s.ns, name, payload)
	if err != nil {
		return err
	}
	return s.write(msg)
}

func (s *socketStream) Close() error {
	var err error
	s.once.Do(func() {
		_ = s.write(encodeDisconnect(s.ns))
		err = s.conn.Close()
	})
	return err
}
