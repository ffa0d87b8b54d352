// Copyright (c) 2024 RoseLoverX

package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/amarnathcjd/waitfor/internal/utils"
)

const Version = "1.2.0"

// Sender delivers outgoing text messages, used by Ask and Conversation.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int32) (*Message, error)
}

// CallbackAnswerer answers callback queries, used for unallowed click alerts.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, queryID, text string, alert bool) error
}

// PeerResolver turns usernames given in listen options into ids.
type PeerResolver interface {
	ResolveUsername(ctx context.Context, username string) (int64, error)
}

// FileFetcher fetches one byte range of a file, used by StreamMedia.
type FileFetcher interface {
	FetchChunk(ctx context.Context, file FileInfo, offset int64, limit int) ([]byte, error)
}

// Client owns one listener registry and the dispatcher feeding it. Transports
// call Dispatch once per decoded update.
type Client struct {
	config     *ClientConfig
	registry   *ListenerRegistry
	dispatcher *Dispatcher
	stop       chan struct{}
	stopOnce   sync.Once

	sender   Sender
	answerer CallbackAnswerer
	resolver PeerResolver
	fetcher  FileFetcher

	Log *utils.Logger
}

// ClientConfig is the configuration struct for the client
type ClientConfig struct {
	// Set log level (trace, debug, info, warn, error, disable), default: info
	LogLevel string
	// Logger to use instead of a new one, LogLevel still applies when set
	Logger *utils.Logger
	// Timeout applied to listeners registered without one, default: none
	DefaultTimeout time.Duration
	// Alert shown on clicks by users a callback listener is not waiting for
	UnallowedClickAlertText string
	// Transport is probed for Sender, CallbackAnswerer, PeerResolver and
	// FileFetcher when those are not set one by one
	Transport        any
	Sender           Sender
	CallbackAnswerer CallbackAnswerer
	PeerResolver     PeerResolver
	FileFetcher      FileFetcher
	// Called with a listener whose deadline elapsed before a match
	OnListenerTimeout func(*Listener)
	// Called with a listener cancelled by StopListening or StopListener
	OnListenerStopped func(*Listener)
}

// NewClient creates a client with an empty listener registry.
func NewClient(cfg ClientConfig) (*Client, error) {
	log := cfg.Logger
	if log == nil {
		log = utils.NewLogger("waitfor")
	}
	if cfg.LogLevel != "" || cfg.Logger == nil {
		log.SetLevel(utils.ParseLogLevel(getStr(cfg.LogLevel, "info")))
	}
	cfg.UnallowedClickAlertText = getStr(cfg.UnallowedClickAlertText, DefaultUnallowedClickAlert)
	if cfg.DefaultTimeout < 0 {
		cfg.DefaultTimeout = 0
	}

	c := &Client{
		config:   &cfg,
		registry: NewListenerRegistry(),
		stop:     make(chan struct{}),
		sender:   cfg.Sender,
		answerer: cfg.CallbackAnswerer,
		resolver: cfg.PeerResolver,
		fetcher:  cfg.FileFetcher,
		Log:      log,
	}
	c.probeTransport(cfg.Transport)
	c.registry.OnTimeout = c.hook("TimeoutHandler", cfg.OnListenerTimeout)
	c.registry.OnStop = c.hook("StoppedHandler", cfg.OnListenerStopped)

	c.dispatcher = NewDispatcher(c.registry, log.WithPrefix(log.GetPrefix()+" dispatcher"))
	if c.answerer != nil {
		c.dispatcher.SetCallbackAnswerer(c.answerer, cfg.UnallowedClickAlertText)
	}
	c.Log.Debug("client initialized (v%s)", Version)
	return c, nil
}

func (c *Client) probeTransport(t any) {
	if t == nil {
		return
	}
	if s, ok := t.(Sender); ok && c.sender == nil {
		c.sender = s
	}
	if a, ok := t.(CallbackAnswerer); ok && c.answerer == nil {
		c.answerer = a
	}
	if r, ok := t.(PeerResolver); ok && c.resolver == nil {
		c.resolver = r
	}
	if f, ok := t.(FileFetcher); ok && c.fetcher == nil {
		c.fetcher = f
	}
}

// hook runs fn off the resolving goroutine, recovering panics.
func (c *Client) hook(name string, fn func(*Listener)) func(*Listener) {
	if fn == nil {
		return nil
	}
	return func(l *Listener) {
		go func() {
			defer utils.Recover(c.Log, name)
			fn(l)
		}()
	}
}

// Registry exposes the client's listener registry.
func (c *Client) Registry() *ListenerRegistry { return c.registry }

// Dispatch routes one decoded update to the matching listeners.
func (c *Client) Dispatch(ev Event) int {
	return c.dispatcher.Dispatch(ev)
}

func (c *Client) Stats() DispatchStats { return c.dispatcher.Stats() }

// Stop cancels every pending listener and refuses new ones. Safe to call more
// than once.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		n := c.registry.Close()
		close(c.stop)
		c.Log.Debug("client stopped, %d listener(s) cancelled", n)
	})
}

// Idle blocks until Stop is called.
func (c *Client) Idle() {
	<-c.stop
}

func getStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func getVariadic[T comparable](opts []T, def T) T {
	if len(opts) == 0 {
		return def
	}
	var zero T
	if opts[0] == zero {
		return def
	}
	return opts[0]
}
