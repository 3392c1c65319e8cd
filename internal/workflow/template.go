package workflow

import (
	"encoding/json"
	"strings"
)

// Transformations are pure: every function deep-copies its input document and
// returns a new one, so a stored template is never mutated in place.

// Values carries the user-supplied strings substituted into a template.
type Values struct {
	SystemPrompt  string
	TelegramToken string
}

// BindTrigger sets the webhook identity on the document's trigger node. Chat
// triggers additionally get the namespaced path; telegram triggers only carry
// the identifier. Documents without a trigger pass through unchanged.
func BindTrigger(doc *Document, webhookID, webhookPath string) *Document {
	out := clone(doc)
	for i := range out.Nodes {
		switch out.Nodes[i].Type {
		case NodeTypeChatTrigger, NodeTypeWebhook:
			out.Nodes[i].WebhookID = webhookID
			if out.Nodes[i].Parameters == nil {
				out.Nodes[i].Parameters = map[string]interface{}{}
			}
			out.Nodes[i].Parameters["path"] = webhookPath
		case NodeTypeTelegramTrigger:
			out.Nodes[i].WebhookID = webhookID
		default:
			continue
		}
		break
	}
	return out
}

// BindTelegramCredential attaches the credential reference to every telegram
// action and trigger node. A template may hold several such nodes and all of
// them must point at the provisioned credential.
func BindTelegramCredential(doc *Document, credentialID, credentialName string) *Document {
	out := clone(doc)
	for i := range out.Nodes {
		switch out.Nodes[i].Type {
		case NodeTypeTelegram, NodeTypeTelegramTrigger:
			if out.Nodes[i].Credentials == nil {
				out.Nodes[i].Credentials = map[string]CredentialRef{}
			}
			out.Nodes[i].Credentials["telegramApi"] = CredentialRef{
				ID:   credentialID,
				Name: credentialName,
			}
		}
	}
	return out
}

// SubstitutePlaceholders replaces the {{systemPrompt}} and {{telegramToken}}
// tokens in every string leaf of the document tree, including nested arrays,
// objects and credential blocks.
func SubstitutePlaceholders(doc *Document, values Values) *Document {
	return mapStrings(doc, func(s string) string {
		s = strings.ReplaceAll(s, PlaceholderSystemPrompt, values.SystemPrompt)
		s = strings.ReplaceAll(s, PlaceholderTelegramToken, values.TelegramToken)
		return s
	})
}

// ReplaceLiteral replaces every occurrence of old with new in the document's
// string leaves. Used on the update path where the previous prompt is
// arbitrary user text: exact substring replacement, no pattern semantics.
func ReplaceLiteral(doc *Document, old, new string) *Document {
	if old == "" {
		return clone(doc)
	}
	return mapStrings(doc, func(s string) string {
		return strings.ReplaceAll(s, old, new)
	})
}

// CleanSubmission reduces a document to exactly the fields the engine accepts
// on create and update.
func CleanSubmission(doc *Document, name string) Submission {
	out := clone(doc)
	connections := out.Connections
	if connections == nil {
		connections = map[string]interface{}{}
	}
	settings := out.Settings
	if settings == nil {
		settings = map[string]interface{}{}
	}
	return Submission{
		Name:        name,
		Nodes:       out.Nodes,
		Connections: connections,
		Settings:    settings,
	}
}

// mapStrings applies f to every string leaf of the document tree. The
// document round-trips through its generic JSON form so the walk is total
// over nested parameters, connections and settings.
func mapStrings(doc *Document, f func(string) string) *Document {
	bytes, err := json.Marshal(doc)
	if err != nil {
		return clone(doc)
	}
	var generic interface{}
	if err := json.Unmarshal(bytes, &generic); err != nil {
		return clone(doc)
	}

	mapped := mapStringLeaves(generic, f)

	remarshaled, err := json.Marshal(mapped)
	if err != nil {
		return clone(doc)
	}
	var out Document
	if err := json.Unmarshal(remarshaled, &out); err != nil {
		return clone(doc)
	}
	return &out
}

func mapStringLeaves(value interface{}, f func(string) string) interface{} {
	switch v := value.(type) {
	case string:
		return f(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = mapStringLeaves(item, f)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = mapStringLeaves(item, f)
		}
		return out
	default:
		return v
	}
}

func clone(doc *Document) *Document {
	bytes, err := json.Marshal(doc)
	if err != nil {
		copied := *doc
		return &copied
	}
	var out Document
	if err := json.Unmarshal(bytes, &out); err != nil {
		copied := *doc
		return &copied
	}
	return &out
}
