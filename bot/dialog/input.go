package dialog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// InputKind discriminates the decoded inbound update variants.
type InputKind int

const (
	// KindText is a free-text message.
	KindText InputKind = iota
	// KindCommand is a literal callback token such as "back" or "meet".
	KindCommand
	// KindEntity is a callback token carrying a record id.
	KindEntity
	// KindDecision is a speech extension decision callback.
	KindDecision
)

// Input is one inbound update, decoded exactly once at the transport
// boundary. Handlers switch on Kind instead of re-parsing raw tokens.
type Input struct {
	ChatID     int64
	MessageID  int
	CallbackID string
	Username   string

	Kind     InputKind
	Text     string
	Command  string
	EntityID int64
	Decision *ExtensionDecision
}

// ExtensionDecision is the payload of a speech extension prompt button. It
// carries everything needed to match the decision back to the exact speech
// and moment without a server-side pending-request table.
type ExtensionDecision struct {
	SpeechID int64 `json:"speech"`
	// IssuedAt is the unix timestamp of the prompt.
	IssuedAt int64 `json:"ts"`
	// ExtendMinutes is the chosen extension; 0 means "do not extend".
	ExtendMinutes int `json:"extend"`
}

// extendPrefix reserves the extension decision namespace in callback tokens.
const extendPrefix = "extend_"

// EncodeExtension serializes a decision into a callback token.
func EncodeExtension(d ExtensionDecision) string {
	raw, _ := json.Marshal(d)
	return extendPrefix + string(raw)
}

// decodeExtension parses an extension decision token, reporting whether the
// token belongs to the extension namespace at all.
func decodeExtension(token string) (*ExtensionDecision, bool) {
	raw, ok := strings.CutPrefix(token, extendPrefix)
	if !ok {
		return nil, false
	}
	var d ExtensionDecision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, true
	}
	return &d, true
}

// TextInput builds the Input for a plain text message.
func TextInput(chatID int64, messageID int, username, text string) Input {
	return Input{
		ChatID:    chatID,
		MessageID: messageID,
		Username:  username,
		Kind:      KindText,
		Text:      text,
	}
}

// CallbackInput decodes a callback token into its tagged variant: a reserved
// extension decision, a numeric record id, or a literal command.
func CallbackInput(chatID int64, messageID int, callbackID, username, token string) Input {
	in := Input{
		ChatID:     chatID,
		MessageID:  messageID,
		CallbackID: callbackID,
		Username:   username,
	}

	if d, isExtension := decodeExtension(token); isExtension {
		in.Kind = KindDecision
		in.Decision = d // nil when the payload is malformed; engine drops it
		return in
	}
	if id, err := strconv.ParseInt(token, 10, 64); err == nil && id > 0 {
		in.Kind = KindEntity
		in.EntityID = id
		return in
	}
	in.Kind = KindCommand
	in.Command = token
	return in
}

// isStartCommand reports whether the text forces a reset to the start state.
func isStartCommand(in Input) bool {
	if in.Kind != KindText {
		return false
	}
	t := strings.TrimSpace(in.Text)
	return t == "/start" || t == "start"
}
