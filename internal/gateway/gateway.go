// Package gateway connects chat platforms to agents: inbound messages
// become cognitive turns for a named agent, and the resulting speech is
// sent back to the originating channel.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nworb999/stable-genius/internal/agent"
)

// Gateway manages all platform adapters and routes messages.
type Gateway struct {
	adapters map[string]Adapter
	handler  MessageHandler
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewGateway creates a gateway manager.
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		adapters: make(map[string]Adapter),
		logger:   logger,
	}
}

// SetHandler sets the callback for all inbound messages. Call before
// Register; adapters capture the handler at registration time.
func (g *Gateway) SetHandler(h MessageHandler) {
	g.handler = h
}

// Register adds an adapter and wires its message handler.
func (g *Gateway) Register(adapter Adapter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	platform := adapter.Platform()
	g.adapters[platform] = adapter
	adapter.OnMessage(func(msg *InboundMessage) {
		if g.handler != nil {
			g.handler(msg)
		}
	})
	g.logger.Info("registered gateway adapter", zap.String("platform", platform))
}

// ConnectAll starts all registered adapters.
func (g *Gateway) ConnectAll(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for platform, adapter := range g.adapters {
		if err := adapter.Connect(ctx); err != nil {
			return fmt.Errorf("connect %s: %w", platform, err)
		}
		g.logger.Info("adapter connected", zap.String("platform", platform))
	}
	return nil
}

// Send sends a message to a specific platform channel.
func (g *Gateway) Send(ctx context.Context, msg *OutboundMessage) error {
	g.mu.RLock()
	adapter, ok := g.adapters[msg.Platform]
	g.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no adapter for platform: %s", msg.Platform)
	}
	return adapter.Send(ctx, msg)
}

// Close shuts down all adapters.
func (g *Gateway) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for platform, adapter := range g.adapters {
		if err := adapter.Close(); err != nil {
			g.logger.Error("adapter close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}

// Adapters returns the list of registered platform names.
func (g *Gateway) Adapters() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.adapters))
	for p := range g.adapters {
		names = append(names, p)
	}
	return names
}

// Dispatcher turns inbound platform messages into agent turns. Messages of
// the form "Name: text" address that agent; everything else goes to the
// default agent.
type Dispatcher struct {
	agents       *agent.Manager
	gateway      *Gateway
	defaultAgent string
	logger       *zap.Logger
}

func NewDispatcher(agents *agent.Manager, gw *Gateway, defaultAgent string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{agents: agents, gateway: gw, defaultAgent: defaultAgent, logger: logger}
}

// Handle is the MessageHandler wired into the gateway.
func (d *Dispatcher) Handle(msg *InboundMessage) {
	name, text := d.defaultAgent, msg.Content
	if before, after, ok := strings.Cut(msg.Content, ":"); ok && !strings.Contains(before, " ") {
		if _, known := d.agents.Lookup(strings.TrimSpace(before)); known {
			name, text = strings.TrimSpace(before), strings.TrimSpace(after)
		}
	}

	a, ok := d.agents.Lookup(name)
	if !ok {
		d.logger.Warn("no agent for inbound message",
			zap.String("platform", msg.Platform),
			zap.String("agent", name))
		return
	}

	ctx := context.Background()
	turn, err := a.Receive(ctx, text, msg.UserName)
	if err != nil {
		d.logger.Error("gateway turn failed",
			zap.String("agent", name), zap.Error(err))
		return
	}

	if err := d.gateway.Send(ctx, &OutboundMessage{
		Platform:  msg.Platform,
		ChannelID: msg.ChannelID,
		Agent:     a.Name(),
		Content:   turn.Speech,
		ReplyTo:   msg.ReplyTo,
	}); err != nil {
		d.logger.Error("gateway send failed",
			zap.String("platform", msg.Platform), zap.Error(err))
	}
}
