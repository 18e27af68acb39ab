package anthropic

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/aiwire-dev/aiwire/internal/provider"
	"github.com/aiwire-dev/aiwire/internal/sse"
)

// stream folds the named message events back into a complete response.
//
// message_start seeds id, model and input-token usage. content_block_start
// opens a block at an index (text or tool_use); content_block_delta events
// append text_delta runs and input_json_delta fragments to that block;
// message_delta overwrites stop reason and output-token usage; message_stop
// finalizes. Ping events are skipped and an error event terminates the
// stream with a typed error.
type stream struct {
	httpResp *http.Response
	dec      *sse.Decoder

	curDelta provider.Delta
	final    *provider.Response
	err      error

	id    string
	model string

	blocks map[int]*blockAgg

	stopReason   string
	inputTokens  int
	outputTokens int
}

// blockAgg accumulates one content block across its start/delta/stop events.
type blockAgg struct {
	typ      string
	text     strings.Builder
	toolID   string
	toolName string
	args     strings.Builder
}

func newStream(httpResp *http.Response) *stream {
	return &stream{
		httpResp: httpResp,
		dec:      sse.NewDecoder(httpResp.Body),
		blocks:   map[int]*blockAgg{},
	}
}

func (s *stream) Next() bool {
	if s.err != nil || s.final != nil {
		return false
	}
	s.curDelta = provider.Delta{}

	for s.dec.Next() {
		data := bytes.TrimSpace(s.dec.Data())
		if len(data) == 0 {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.err = wireErr("decode_error", err.Error(), err)
			return false
		}

		switch ev.Type {
		case eventPing:
			continue

		case eventError:
			msg := "stream error"
			code := "stream_error"
			if ev.Error != nil {
				msg = ev.Error.Message
				code = ev.Error.Type
			}
			s.err = &provider.Error{Provider: "anthropic", Code: code, Message: msg, Retryable: code == "overloaded_error"}
			return false

		case eventMessageStart:
			if ev.Message != nil {
				s.id = ev.Message.ID
				s.model = ev.Message.Model
				s.inputTokens = ev.Message.Usage.InputTokens
				s.outputTokens = ev.Message.Usage.OutputTokens
			}

		case eventContentBlockStart:
			agg := &blockAgg{}
			if cb := ev.ContentBlock; cb != nil {
				agg.typ = cb.Type
				agg.toolID = cb.ID
				agg.toolName = cb.Name
				agg.text.WriteString(cb.Text)
				// Initial tool_use input is usually the empty object and
				// the real arguments arrive as input_json_delta fragments.
				if len(cb.Input) > 0 && string(cb.Input) != "{}" {
					agg.args.Write(cb.Input)
				}
			}
			s.blocks[ev.Index] = agg

		case eventContentBlockDelta:
			if ev.Delta == nil {
				continue
			}
			agg, ok := s.blocks[ev.Index]
			if !ok {
				agg = &blockAgg{typ: ev.Delta.Type}
				s.blocks[ev.Index] = agg
			}
			switch ev.Delta.Type {
			case "text_delta":
				agg.text.WriteString(ev.Delta.Text)
				s.curDelta.Text = ev.Delta.Text
			case "input_json_delta":
				agg.args.WriteString(ev.Delta.PartialJSON)
				s.curDelta.ToolCalls = append(s.curDelta.ToolCalls, provider.ToolCallDelta{
					Index:          ev.Index,
					ID:             agg.toolID,
					Name:           agg.toolName,
					ArgumentsDelta: ev.Delta.PartialJSON,
				})
			}

		case eventContentBlockStop:
			// Block contents are complete; nothing to fold.

		case eventMessageDelta:
			if ev.Delta != nil && ev.Delta.StopReason != "" {
				s.stopReason = ev.Delta.StopReason
			}
			if ev.Usage != nil && ev.Usage.OutputTokens > 0 {
				s.outputTokens = ev.Usage.OutputTokens
			}

		case eventMessageStop:
			s.finalize()
			return false
		}

		if s.curDelta.Text != "" || len(s.curDelta.ToolCalls) > 0 {
			return true
		}
	}

	if err := s.dec.Err(); err != nil {
		s.err = netErr(err)
	}
	s.finalize()
	return false
}

func (s *stream) Delta() provider.Delta { return s.curDelta }

func (s *stream) Final() *provider.Response { return s.final }

func (s *stream) Err() error { return s.err }

func (s *stream) Close() error {
	if s.httpResp != nil && s.httpResp.Body != nil {
		return s.httpResp.Body.Close()
	}
	return nil
}

func (s *stream) finalize() {
	if s.final != nil {
		return
	}

	indices := make([]int, 0, len(s.blocks))
	for i := range s.blocks {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var parts []provider.ContentPart
	for _, i := range indices {
		agg := s.blocks[i]
		switch {
		case agg.typ == "tool_use" && agg.toolName != "":
			args := agg.args.String()
			if args == "" {
				args = "{}"
			}
			parts = append(parts, provider.ToolCallPart{
				ID:   agg.toolID,
				Name: agg.toolName,
				Args: json.RawMessage(args),
			})
		default:
			if txt := agg.text.String(); txt != "" {
				parts = append(parts, provider.TextPart{Text: txt})
			}
		}
	}

	s.final = &provider.Response{
		ID:    s.id,
		Model: s.model,
		Message: provider.Message{
			Role:    provider.RoleAssistant,
			Content: parts,
		},
		FinishReason: finishReason(s.stopReason),
		Usage: provider.Usage{
			PromptTokens:     s.inputTokens,
			CompletionTokens: s.outputTokens,
			TotalTokens:      s.inputTokens + s.outputTokens,
		},
	}
}

var _ provider.Stream = (*stream)(nil)
