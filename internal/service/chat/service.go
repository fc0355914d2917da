package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/gemini-chat/backend/internal/model/chat"
)

// ErrorTurnPrefix starts every assistant turn that records a failed generation.
const ErrorTurnPrefix = "⚠️ error: "

// Responder streams a reply for userText given the committed history.
type Responder interface {
	StreamResponse(ctx context.Context, history []chat.Turn, userText string) (*schema.StreamReader[*schema.Message], error)
}

// ResponderFactory builds a Responder bound to one API credential.
type ResponderFactory func(ctx context.Context, credential string) (Responder, error)

// Phase is the controller's position in the submission state machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStreaming Phase = "streaming"
)

// Service is the session controller: it owns the one transcript of the process and
// serialises submissions against it.
type Service struct {
	mu         sync.RWMutex
	id         string
	createdAt  time.Time
	transcript *chat.Transcript
	factory    ResponderFactory
	responder  Responder
	phase      Phase
	logger     *zap.Logger

	fallbackCredential bool
}

// Option customises a Service.
type Option func(*Service)

// WithFallbackCredential lets Configure accept an empty credential and hand it to the
// factory, for providers that carry their own credentials in the process configuration.
func WithFallbackCredential(enabled bool) Option {
	return func(s *Service) {
		s.fallbackCredential = enabled
	}
}

// Hooks observe one submission. OnStart runs once the user turn is committed and the
// reply is being generated; OnUpdate receives the accumulated reply after every non-empty
// fragment.
type Hooks struct {
	OnStart  func(user chat.Turn)
	OnUpdate func(buffer string)
}

// NewService starts a session holding only the greeting.
func NewService(greeting string, factory ResponderFactory, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		id:         uuid.NewString(),
		createdAt:  time.Now().UTC(),
		transcript: chat.NewTranscript(greeting),
		factory:    factory,
		phase:      PhaseIdle,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns a snapshot of the session for rendering.
func (s *Service) Session() chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return chat.Session{
		ID:         s.id,
		CreatedAt:  s.createdAt,
		Configured: s.responder != nil,
		Turns:      s.transcript.Turns(),
	}
}

// LoadTranscript returns the committed turns in order.
func (s *Service) LoadTranscript(_ context.Context) []chat.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript.Turns()
}

// Phase reports whether a submission is in flight.
func (s *Service) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Configured reports whether submissions are currently accepted.
func (s *Service) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.responder != nil
}

// Configure binds the session to credential. On failure the session is left unconfigured.
// An empty credential is only passed on when the service was built WithFallbackCredential.
func (s *Service) Configure(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" && !s.fallbackCredential {
		s.setResponder(nil)
		return &ConfigurationError{Err: ErrMissingCredential}
	}

	responder, err := s.factory(ctx, credential)
	if err != nil {
		s.setResponder(nil)
		s.logger.Warn("credential rejected", zap.String("sessionId", s.id), zap.Error(err))
		return &ConfigurationError{Err: err}
	}

	s.setResponder(responder)
	s.logger.Info("credential configured",
		zap.String("sessionId", s.id),
		zap.Bool("fallback", credential == ""),
	)
	return nil
}

func (s *Service) setResponder(responder Responder) {
	s.mu.Lock()
	s.responder = responder
	s.mu.Unlock()
}

// Reset replaces the transcript with the greeting alone.
func (s *Service) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseIdle {
		return ErrBusy
	}

	s.transcript.Reset()
	s.logger.Info("transcript reset", zap.String("sessionId", s.id))
	return nil
}

// Submit appends userText, streams the reply and commits it as an assistant turn.
// onUpdate receives the accumulated reply after every non-empty fragment.
func (s *Service) Submit(ctx context.Context, userText string, onUpdate func(buffer string)) (chat.Turn, error) {
	return s.SubmitWithHooks(ctx, userText, Hooks{OnUpdate: onUpdate})
}

// SubmitWithHooks is Submit with a start notification. OnStart is never called when a
// precondition fails.
//
// Precondition failures (ErrEmptyInput, ErrBusy, ConfigurationError) leave the transcript
// untouched. A failed completion is committed as an error turn and returned alongside a
// *GenerationError.
func (s *Service) SubmitWithHooks(ctx context.Context, userText string, hooks Hooks) (chat.Turn, error) {
	if strings.TrimSpace(userText) == "" {
		return chat.Turn{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return chat.Turn{}, ErrBusy
	}
	if s.responder == nil {
		s.mu.Unlock()
		return chat.Turn{}, &ConfigurationError{Err: ErrNotConfigured}
	}

	history := s.transcript.Turns()
	userTurn := chat.UserTurn(userText)
	s.transcript.Append(userTurn)
	responder := s.responder
	s.phase = PhaseStreaming
	s.mu.Unlock()

	if hooks.OnStart != nil {
		hooks.OnStart(userTurn)
	}

	reply, genErr := s.generate(ctx, responder, history, userText, hooks.OnUpdate)

	var turn chat.Turn
	if genErr != nil {
		turn = chat.AssistantTurn(ErrorTurnPrefix + genErr.Err.Error())
	} else {
		turn = chat.AssistantTurn(reply)
	}

	s.mu.Lock()
	s.transcript.Append(turn)
	turns := s.transcript.Len()
	s.phase = PhaseIdle
	s.mu.Unlock()

	if genErr != nil {
		s.logger.Warn("generation failed",
			zap.String("sessionId", s.id),
			zap.String("stage", string(genErr.Stage)),
			zap.Int("turns", turns),
			zap.Error(genErr.Err),
		)
		return turn, genErr
	}

	s.logger.Info("response committed",
		zap.String("sessionId", s.id),
		zap.Int("length", len(reply)),
		zap.Int("turns", turns),
	)
	return turn, nil
}

// generate runs one completion and returns the concatenated reply.
func (s *Service) generate(ctx context.Context, responder Responder, history []chat.Turn, userText string, onUpdate func(string)) (reply string, genErr *GenerationError) {
	defer func() {
		if p := recover(); p != nil {
			reply, genErr = "", &GenerationError{Stage: StageStream, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	stream, err := responder.StreamResponse(ctx, history, userText)
	if err != nil {
		return "", &GenerationError{Stage: StageRequest, Err: err}
	}
	defer stream.Close()

	var buffer strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", &GenerationError{Stage: StageStream, Err: recvErr}
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		buffer.WriteString(chunk.Content)
		if onUpdate != nil {
			onUpdate(buffer.String())
		}
	}

	return buffer.String(), nil
}
