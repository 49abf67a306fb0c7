package reading

import (
	"context"
	"fmt"
	"strings"
)

// Send appends a user turn and asks the tutor for a reply. The mode is
// explicitMode when valid, tutoring while in the tutoring stage, reading
// otherwise. On failure the user turn stays in the transcript without a reply
// and the error is returned.
func (c *Controller) Send(ctx context.Context, text string, explicitMode Mode) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return ErrNoDocument
	}
	if c.pending() {
		c.mu.Unlock()
		return ErrRequestPending
	}

	mode := c.resolveMode(explicitMode)
	req := TutorRequest{
		Content:    c.chatContent(),
		Transcript: cloneTranscript(c.state.Transcript),
		Text:       text,
		Mode:       mode,
		DocType:    c.state.DocType,
	}
	c.appendMessage(RoleUser, text, mode)
	seq := c.begin(ClassTutorTurn)
	c.emit()
	c.mu.Unlock()

	if err := c.exchange(ctx, seq, req); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Transcript returns a copy of the whole conversation.
func (c *Controller) Transcript() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneTranscript(c.state.Transcript)
}

// TranscriptByMode returns the turns recorded under one mode, in order.
func (c *Controller) TranscriptByMode(mode Mode) []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []ChatMessage
	for _, m := range c.state.Transcript {
		if m.Mode == mode {
			out = append(out, m)
		}
	}
	return out
}

func (c *Controller) resolveMode(explicit Mode) Mode {
	if explicit.Valid() {
		return explicit
	}
	if c.state.Stage == StageTutoring {
		return ModeTutoring
	}
	return ModeReading
}

func (c *Controller) appendMessage(role Role, text string, mode Mode) {
	c.state.Transcript = append(c.state.Transcript, ChatMessage{
		Role:      role,
		Text:      text,
		Mode:      mode,
		Timestamp: c.now(),
	})
}

// exchange performs one tutor_turn call and appends the reply if the request
// is still current. A stale reply is dropped without error.
func (c *Controller) exchange(ctx context.Context, seq uint64, req TutorRequest) error {
	reply, err := c.gateway.TutorTurn(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	stale := !c.current(ClassTutorTurn, seq)
	c.finish(seq)
	if stale {
		c.logger.Debug(logModule, "Discarded stale tutor reply", map[string]interface{}{
			"seq":  seq,
			"mode": string(req.Mode),
		})
		return nil
	}
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errEmptyReply
	}
	if err != nil {
		c.logger.Warn(logModule, "Tutor turn failed", map[string]interface{}{
			"document_id": c.state.DocumentID,
			"mode":        string(req.Mode),
			"kickoff":     req.Kickoff,
			"error":       err.Error(),
		})
		return err
	}

	c.appendMessage(RoleModel, reply, req.Mode)
	c.emit()
	return nil
}
