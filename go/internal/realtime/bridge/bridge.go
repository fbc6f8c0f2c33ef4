package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingo/go/internal/bingo/protocol"
	"github.com/mcdev12/bingo/go/internal/realtime/effects"
)

// Config holds the NATS bridge settings
type Config struct {
	URL           string
	SubjectPrefix string
	IntentSubject string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the default bridge settings
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "bingo.ui",
		IntentSubject: "bingo.intents",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Conn is the part of a NATS connection the bridge uses
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Connect dials NATS with reconnect handling
func Connect(cfg Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("bingo-client"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Subjects under the bridge prefix
const (
	SubjectRender    = "render"
	SubjectSound     = "sound"
	SubjectWinCheck  = "win_check"
	SubjectNavigate  = "navigate"
	SubjectNotify    = "notify"
	SubjectGame      = "game"
	SubjectLifecycle = "lifecycle"
)

// Publisher forwards side-effect requests to an out-of-process UI over NATS.
// It implements every collaborator interface.
type Publisher struct {
	conn   Conn
	prefix string
}

// NewPublisher creates a publisher on conn using subjects under prefix
func NewPublisher(conn Conn, prefix string) *Publisher {
	return &Publisher{conn: conn, prefix: prefix}
}

// Collaborators returns the publisher in every collaborator slot
func (p *Publisher) Collaborators() effects.Collaborators {
	return effects.Collaborators{
		Renderer:   p,
		Sound:      p,
		WinChecker: p,
		Navigator:  p,
		Notifier:   p,
		Game:       p,
	}
}

// Subject returns the full subject for a bridge topic
func (p *Publisher) Subject(topic string) string {
	return p.prefix + "." + topic
}

func (p *Publisher) publish(topic string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to marshal bridge message")
		return
	}

	subject := p.Subject(topic)
	if err := p.conn.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish bridge message")
		return
	}

	log.Debug().Str("subject", subject).Msg("bridge message published")
}

func (p *Publisher) Render(req effects.Render) {
	p.publish(SubjectRender, req)
}

func (p *Publisher) Play(sound string) {
	p.publish(SubjectSound, effects.PlaySound{Sound: sound})
}

func (p *Publisher) CheckWin() {
	p.publish(SubjectWinCheck, struct{}{})
}

func (p *Publisher) Navigate(page int) {
	p.publish(SubjectNavigate, struct {
		Page int `json:"page"`
	}{page})
}

func (p *Publisher) Notify(n effects.Notify) {
	p.publish(SubjectNotify, n)
}

func (p *Publisher) StartGame() {
	p.publish(SubjectGame, gameCommand{Action: "start"})
}

func (p *Publisher) StopGame() {
	p.publish(SubjectGame, gameCommand{Action: "stop"})
}

type gameCommand struct {
	Action string `json:"action"`
}

// LifecycleMessage is published for every connection lifecycle event
type LifecycleMessage struct {
	Event   string `json:"event"`
	State   string `json:"state"`
	Attempt int    `json:"attempt,omitempty"`
	DelayMS int64  `json:"delay_ms,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PublishLifecycle forwards a lifecycle event
func (p *Publisher) PublishLifecycle(msg LifecycleMessage) {
	p.publish(SubjectLifecycle, msg)
}

// SubscribeIntents feeds intents published by the UI on subject into submit.
// Records that do not decode are logged and dropped.
func SubscribeIntents(conn Conn, subject string, submit func(protocol.Intent)) (*nats.Subscription, error) {
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		var intent protocol.Intent
		if err := json.Unmarshal(msg.Data, &intent); err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("discarding malformed intent")
			return
		}
		submit(intent)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}
