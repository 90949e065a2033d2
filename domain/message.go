package domain

import (
	"fmt"
	"strings"
)

// ContentPartKind tags a single part of a multi-part chat message.
type ContentPartKind string

const (
	ContentPartText  ContentPartKind = "text"
	ContentPartImage ContentPartKind = "image"
	ContentPartAudio ContentPartKind = "audio"
	ContentPartVideo ContentPartKind = "video"
	ContentPartFile  ContentPartKind = "file"
)

// ContentPart is one part of a chat message's content.
type ContentPart struct {
	Kind ContentPartKind
	Text string
	URI  string
	Data string
}

// Message is a chat-style message, generalized from core.Message in the
// teacher repo to carry multi-part content (the spec's RichContentPart)
// instead of a single plain-text field.
type Message struct {
	Role  string
	Parts []ContentPart
	Name  string
}

// Prepare consolidates adjacent text parts and drops empty optional
// fields, producing the normalized form that content addressing hashes
// over. Prepare is idempotent: m.Prepare().Prepare() == m.Prepare().
func (m Message) Prepare() Message {
	out := Message{Role: m.Role, Name: m.Name}
	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			out.Parts = append(out.Parts, ContentPart{Kind: ContentPartText, Text: pending.String()})
			pending.Reset()
		}
	}
	for _, p := range m.Parts {
		if p.Kind == ContentPartText {
			if p.Text == "" {
				continue
			}
			pending.WriteString(p.Text)
			continue
		}
		flush()
		out.Parts = append(out.Parts, p)
	}
	flush()
	return out
}

// CanonicalString renders the prepared message as a deterministic string
// for content addressing.
func (m Message) CanonicalString() string {
	p := m.Prepare()
	var b strings.Builder
	b.WriteString(p.Role)
	b.WriteByte('|')
	b.WriteString(p.Name)
	for _, part := range p.Parts {
		b.WriteByte('|')
		b.WriteString(string(part.Kind))
		b.WriteByte(':')
		switch part.Kind {
		case ContentPartText:
			b.WriteString(part.Text)
		default:
			b.WriteString(part.URI)
			b.WriteByte(':')
			b.WriteString(part.Data)
		}
	}
	return b.String()
}

// Messages is a sequence of prepared messages, used to build prompt_id.
type Messages []Message

// CanonicalString renders a sequence of messages deterministically.
func (ms Messages) CanonicalString() string {
	var b strings.Builder
	for i, m := range ms {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.CanonicalString())
	}
	return b.String()
}

// PromptID computes the content address of a message sequence.
func PromptID(ms Messages) string {
	return ContentAddressString(ms.CanonicalString())
}

// ToolDefinition is a tool made available to an LLM for function calling.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  Input // JSON-schema-shaped Input describing the tool's arguments
}

// ToolsID computes the content address of a tool-definition list, or the
// empty string when tools is empty (spec.md: tools_id is optional).
func ToolsID(tools []ToolDefinition) string {
	if len(tools) == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range tools {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Name)
		b.WriteByte('|')
		b.WriteString(t.Description)
		b.WriteByte('|')
		b.WriteString(t.Parameters.CanonicalJSON())
	}
	return ContentAddressString(b.String())
}

// ResponseID computes the content address of one response option. The
// address depends on the content alone, so two textually-identical
// response options at different positions hash identically
// (responses_ids are reordered independently of content, per spec.md's
// cache-pass "rearrange to current responses_ids order" rule).
func ResponseID(response Input) string {
	return ContentAddress(response)
}

// ResponsesIDs computes the content address for every response option.
func ResponsesIDs(responses []Input) []string {
	ids := make([]string, len(responses))
	for i, r := range responses {
		ids[i] = ResponseID(r)
	}
	return ids
}

// MessagesFromInput decodes the Input an evaluated `messages` expression
// produced (an array of role/content/name objects) into Messages, the
// typed shape content addressing and the live streaming pass consume.
func MessagesFromInput(in Input) (Messages, error) {
	if in.Kind != InputKindArray {
		return nil, fmt.Errorf("messages: expected array, got %s", in.Kind)
	}
	out := make(Messages, len(in.Array))
	for i, m := range in.Array {
		msg, err := messageFromInput(m)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		out[i] = msg
	}
	return out, nil
}

func messageFromInput(in Input) (Message, error) {
	if in.Kind != InputKindObject {
		return Message{}, fmt.Errorf("expected object, got %s", in.Kind)
	}
	role, _ := in.Get("role")
	name, _ := in.Get("name")
	msg := Message{Role: role.Str, Name: name.Str}

	content, ok := in.Get("content")
	if !ok {
		return msg, nil
	}
	switch content.Kind {
	case InputKindString:
		msg.Parts = []ContentPart{{Kind: ContentPartText, Text: content.Str}}
	case InputKindArray:
		for i, p := range content.Array {
			part, err := contentPartFromInput(p)
			if err != nil {
				return Message{}, fmt.Errorf("content[%d]: %w", i, err)
			}
			msg.Parts = append(msg.Parts, part)
		}
	default:
		return Message{}, fmt.Errorf("content: expected string or array, got %s", content.Kind)
	}
	return msg, nil
}

func contentPartFromInput(in Input) (ContentPart, error) {
	switch in.Kind {
	case InputKindString:
		return ContentPart{Kind: ContentPartText, Text: in.Str}, nil
	case InputKindRichContentPart:
		return ContentPart{Kind: ContentPartKind(in.Rich.Kind), URI: in.Rich.URI, Data: in.Rich.Data}, nil
	case InputKindObject:
		kind, _ := in.Get("kind")
		switch ContentPartKind(kind.Str) {
		case ContentPartText, "":
			text, _ := in.Get("text")
			return ContentPart{Kind: ContentPartText, Text: text.Str}, nil
		default:
			uri, _ := in.Get("uri")
			data, _ := in.Get("data")
			return ContentPart{Kind: ContentPartKind(kind.Str), URI: uri.Str, Data: data.Str}, nil
		}
	default:
		return ContentPart{}, fmt.Errorf("expected string, object, or rich content part, got %s", in.Kind)
	}
}

// ToolDefinitionsFromInput decodes the Input an evaluated `tools`
// expression produced (an array of name/description/parameters objects)
// into []ToolDefinition. An empty or null Input yields no tools.
func ToolDefinitionsFromInput(in Input) ([]ToolDefinition, error) {
	if in.Kind == InputKindNull {
		return nil, nil
	}
	if in.Kind != InputKindArray {
		return nil, fmt.Errorf("tools: expected array, got %s", in.Kind)
	}
	out := make([]ToolDefinition, len(in.Array))
	for i, t := range in.Array {
		if t.Kind != InputKindObject {
			return nil, fmt.Errorf("tools[%d]: expected object, got %s", i, t.Kind)
		}
		name, _ := t.Get("name")
		desc, _ := t.Get("description")
		params, _ := t.Get("parameters")
		out[i] = ToolDefinition{Name: name.Str, Description: desc.Str, Parameters: params}
	}
	return out, nil
}
