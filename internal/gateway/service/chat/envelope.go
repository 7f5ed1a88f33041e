package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"fastform/internal/util/jsonutil"
)

const (
	actionForm    = "form"
	actionMessage = "message"
)

// reply is the model's answer to a turn.
type reply struct {
	Action  string          `json:"action"`
	Form    json.RawMessage `json:"form,omitempty"`
	Message string          `json:"message,omitempty"`
}

// parseReply accepts the action envelope or a bare form object, which is
// treated as a form action.
func parseReply(raw []byte) (reply, error) {
	obj, err := jsonutil.ExtractObject(raw)
	if err != nil {
		return reply{}, err
	}
	var r reply
	if err := json.Unmarshal(obj, &r); err != nil {
		return reply{}, err
	}
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	if r.Action == "" {
		switch {
		case len(r.Form) > 0 && string(r.Form) != "null":
			r.Action = actionForm
		case isBareForm(obj):
			r.Action = actionForm
			r.Form = obj
		case strings.TrimSpace(r.Message) != "":
			r.Action = actionMessage
		}
	}
	switch r.Action {
	case actionForm:
		if len(r.Form) == 0 || string(r.Form) == "null" {
			return reply{}, fmt.Errorf("form action without a form")
		}
		return r, nil
	case actionMessage:
		if strings.TrimSpace(r.Message) == "" {
			return reply{}, fmt.Errorf("message action without text")
		}
		return r, nil
	default:
		return reply{}, fmt.Errorf("unknown action %q", r.Action)
	}
}

func isBareForm(obj json.RawMessage) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(obj, &probe); err != nil {
		return false
	}
	_, ok := probe["elements"]
	return ok
}
