// Package conversation runs two agents against each other and tracks the
// live conversations. Each conversation is a goroutine alternating turns
// until the round limit, a stop request, or an error.
package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nworb999/stable-genius/internal/pipeline"
)

// Status of a conversation lifecycle.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusError     Status = "error"
)

// Message is one utterance in the transcript.
type Message struct {
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one live or finished exchange between two agents.
type Conversation struct {
	ID        string    `json:"id"`
	AgentA    string    `json:"agent_a"`
	AgentB    string    `json:"agent_b"`
	Opener    string    `json:"opener"`
	Rounds    int       `json:"rounds"`
	StartedAt time.Time `json:"started_at"`

	mu         sync.Mutex
	status     Status
	transcript []Message
	lastError  string
	cancel     context.CancelFunc
	done       chan struct{}
}

// Snapshot is the externally visible state of a conversation.
type Snapshot struct {
	ID         string    `json:"id"`
	AgentA     string    `json:"agent_a"`
	AgentB     string    `json:"agent_b"`
	Status     Status    `json:"status"`
	Rounds     int       `json:"rounds"`
	StartedAt  time.Time `json:"started_at"`
	Transcript []Message `json:"transcript"`
	Error      string    `json:"error,omitempty"`
}

func newConversation(agentA, agentB, opener string, rounds int) *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		AgentA:    agentA,
		AgentB:    agentB,
		Opener:    opener,
		Rounds:    rounds,
		StartedAt: time.Now(),
		status:    StatusRunning,
		done:      make(chan struct{}),
	}
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	transcript := make([]Message, len(c.transcript))
	copy(transcript, c.transcript)
	return Snapshot{
		ID:         c.ID,
		AgentA:     c.AgentA,
		AgentB:     c.AgentB,
		Status:     c.status,
		Rounds:     c.Rounds,
		StartedAt:  c.StartedAt,
		Transcript: transcript,
		Error:      c.lastError,
	}
}

// Done is closed when the conversation goroutine exits.
func (c *Conversation) Done() <-chan struct{} { return c.done }

func (c *Conversation) alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusRunning
}

func (c *Conversation) record(from, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = append(c.transcript, Message{From: from, Text: text, Timestamp: time.Now()})
}

func (c *Conversation) finish(status Status, errText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusRunning {
		c.status = status
		c.lastError = errText
	}
}

// Participant is the conversation-facing slice of an agent.
type Participant interface {
	Name() string
	Receive(ctx context.Context, message, sender string) (*pipeline.Turn, error)
}
