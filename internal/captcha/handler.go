package captcha

import (
	"context"
	"log"
	"time"

	"github.com/dodocap/captcha-server/internal/protocol"
)

// renderTimeout bounds how long a single challenge render may take before the
// request is abandoned and the client has to retry.
const renderTimeout = 10 * time.Second

// Handler is the stateless protocol boundary for one session: it decodes
// inbound messages, dispatches them to the session, and encodes the replies.
// Every fault is caught and logged here; nothing propagates far enough to
// kill the connection or corrupt session state.
type Handler struct {
	sess *Session
}

// NewHandler creates a Handler bound to the given session.
func NewHandler(sess *Session) *Handler {
	return &Handler{sess: sess}
}

// HandleMessage processes one inbound frame. Malformed or unknown messages
// are logged and dropped without any session transition; the connection stays
// open.
func (h *Handler) HandleMessage(data []byte) {
	msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		log.Printf("captcha: dropping frame session=%s: %v", h.sess.ID, err)
		return
	}

	switch msg.Type {
	case protocol.TypeGetChallenge:
		h.handleGetChallenge()
	case protocol.TypeCheckResult:
		h.handleCheckResult(msg.Params)
	}
}

// handleGetChallenge issues a fresh challenge and sends the rendered document.
// A render failure yields no response at all; the client may retry.
func (h *Handler) handleGetChallenge() {
	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()

	doc, err := h.sess.RequestChallenge(ctx)
	if err != nil {
		log.Printf("captcha: challenge request failed session=%s: %v", h.sess.ID, err)
		return
	}

	h.send(protocol.TypeChallenge, doc)
	log.Printf("captcha: challenge issued session=%s", h.sess.ID)
}

// handleCheckResult verifies the candidate solution and replies with either
// captcha.verified carrying the token or captcha.not.verified with no payload.
func (h *Handler) handleCheckResult(candidate string) {
	token, ok := h.sess.SubmitSolution(candidate)
	if ok {
		h.send(protocol.TypeVerified, token)
		log.Printf("captcha: solution verified session=%s", h.sess.ID)
		return
	}
	h.send(protocol.TypeNotVerified, "")
}

// send encodes and transmits a server message. Send failures mean the channel
// is gone; they are logged and otherwise ignored, and connection teardown
// handles the rest.
func (h *Handler) send(msgType, params string) {
	data, err := protocol.NewServerMessage(msgType, params)
	if err != nil {
		log.Printf("captcha: failed to build %s message session=%s: %v", msgType, h.sess.ID, err)
		return
	}
	if err := h.sess.sender.WriteMessage(data); err != nil {
		log.Printf("captcha: failed to send %s message session=%s: %v", msgType, h.sess.ID, err)
	}
}
