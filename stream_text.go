package aiwire

import (
	"context"
	"fmt"

	"github.com/aiwire-dev/aiwire/internal/provider"
)

// TextStream is a pull-based iterator over streamed text deltas. After Next
// returns false, Err reports any failure and Message/Usage/FinishReason hold
// the merged final state.
type TextStream struct {
	next    func() bool
	delta   func() string
	message func() *Message
	usage   func() Usage
	finish  func() FinishReason
	err     func() error
	close   func() error
}

func (s *TextStream) Next() bool {
	if s == nil || s.next == nil {
		return false
	}
	return s.next()
}

func (s *TextStream) Delta() string {
	if s == nil || s.delta == nil {
		return ""
	}
	return s.delta()
}

func (s *TextStream) Message() *Message {
	if s == nil || s.message == nil {
		return nil
	}
	return s.message()
}

func (s *TextStream) Usage() Usage {
	if s == nil || s.usage == nil {
		return Usage{}
	}
	return s.usage()
}

func (s *TextStream) FinishReason() FinishReason {
	if s == nil || s.finish == nil {
		return FinishUnknown
	}
	return s.finish()
}

func (s *TextStream) Err() error {
	if s == nil || s.err == nil {
		return nil
	}
	return s.err()
}

func (s *TextStream) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

type streamText struct {
	ctx    context.Context
	cancel context.CancelFunc
	p      provider.Provider

	toolLoopMax int
	tools       []Tool

	model    ModelRef
	messages []Message
	baseReq  BaseRequest

	iter int

	cur provider.Stream

	curDelta string
	finalMsg *Message
	aggUsage Usage
	finish   FinishReason
	err      error
	closed   bool
}

func newStreamText(ctx context.Context, cancel context.CancelFunc, p provider.Provider, req StreamTextRequest) *TextStream {
	st := &streamText{
		ctx:      ctx,
		cancel:   cancel,
		p:        p,
		model:    req.Model,
		messages: append([]Message(nil), req.Messages...),
		tools:    append([]Tool(nil), req.Tools...),
		baseReq:  req.BaseRequest,
	}
	st.baseReq.Messages = nil
	st.baseReq.Tools = nil

	max := 5
	if req.ToolLoop != nil && req.ToolLoop.MaxIterations > 0 {
		max = req.ToolLoop.MaxIterations
	}
	st.toolLoopMax = max

	return &TextStream{
		next:    st.next,
		delta:   st.delta,
		message: st.message,
		usage:   st.usage,
		finish:  st.finishReason,
		err:     st.streamErr,
		close:   st.close,
	}
}

func (s *streamText) next() bool {
	if s.err != nil || s.closed {
		return false
	}
	if s.finalMsg != nil {
		return false
	}

	for {
		if s.cur == nil {
			if err := s.startStream(); err != nil {
				s.err = err
				return false
			}
		}

		if s.cur.Next() {
			d := s.cur.Delta()
			s.curDelta = d.Text
			if s.curDelta == "" {
				continue
			}
			return true
		}

		if err := s.cur.Err(); err != nil {
			s.err = mapProviderError(err)
			return false
		}

		final := s.cur.Final()
		_ = s.cur.Close()
		s.cur = nil

		if final == nil {
			s.finalMsg = &Message{Role: RoleAssistant}
			return false
		}

		msg, usage, finish, err := fromProviderResponse(*final)
		if err != nil {
			s.err = err
			return false
		}

		s.aggUsage = addUsage(s.aggUsage, usage)
		s.finish = finish
		s.messages = append(s.messages, msg)

		toolCalls := extractToolCalls(msg)
		if len(toolCalls) == 0 {
			s.finalMsg = &msg
			return false
		}

		s.iter++
		if s.iter >= s.toolLoopMax {
			s.err = fmt.Errorf("tool loop exceeded max iterations (%d)", s.toolLoopMax)
			return false
		}

		results, err := runTools(s.ctx, s.tools, toolCalls)
		if err != nil {
			s.err = err
			return false
		}
		s.messages = append(s.messages, results...)
	}
}

func (s *streamText) delta() string { return s.curDelta }

func (s *streamText) message() *Message { return s.finalMsg }

func (s *streamText) usage() Usage { return s.aggUsage }

func (s *streamText) finishReason() FinishReason {
	if s.finish == "" {
		return FinishUnknown
	}
	return s.finish
}

func (s *streamText) streamErr() error { return s.err }

func (s *streamText) close() error {
	s.closed = true
	var err error
	if s.cur != nil {
		err = s.cur.Close()
		s.cur = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	return err
}

func (s *streamText) startStream() error {
	req := s.baseReq
	req.Model = s.model
	req.Messages = append([]Message(nil), s.messages...)
	req.Tools = append([]Tool(nil), s.tools...)

	preq, err := toProviderRequest(req)
	if err != nil {
		return err
	}
	cur, err := s.p.Stream(s.ctx, preq)
	if err != nil {
		return mapProviderError(err)
	}
	s.cur = cur
	return nil
}
