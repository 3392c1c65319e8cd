package workflow

import (
	"encoding/json"
)

// Node type tags used by the templates this system provisions.
const (
	NodeTypeChatTrigger     = "@n8n/n8n-nodes-langchain.chatTrigger"
	NodeTypeWebhook         = "n8n-nodes-base.webhook"
	NodeTypeTelegram        = "n8n-nodes-base.telegram"
	NodeTypeTelegramTrigger = "n8n-nodes-base.telegramTrigger"
)

// Placeholder tokens substituted into template documents.
const (
	PlaceholderSystemPrompt  = "{{systemPrompt}}"
	PlaceholderTelegramToken = "{{telegramToken}}"
)

// CredentialRef points a node at a credential stored in the engine.
type CredentialRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Node is one step of an automation graph. Beyond the modeled fields a live
// engine document carries per-node settings this system never touches
// (onError, retryOnFail, executeOnce, notes, ...); those are kept verbatim in
// extra so a fetched document can be resubmitted without stripping them.
type Node struct {
	ID          string                   `json:"id,omitempty"`
	Name        string                   `json:"name"`
	Type        string                   `json:"type"`
	TypeVersion float64                  `json:"typeVersion,omitempty"`
	Position    []float64                `json:"position,omitempty"`
	WebhookID   string                   `json:"webhookId,omitempty"`
	Disabled    bool                     `json:"disabled,omitempty"`
	Parameters  map[string]interface{}   `json:"parameters,omitempty"`
	Credentials map[string]CredentialRef `json:"credentials,omitempty"`

	extra map[string]interface{}
}

// nodeKeys are the keys the Node struct models; everything else round-trips
// through extra.
var nodeKeys = []string{
	"id", "name", "type", "typeVersion", "position",
	"webhookId", "disabled", "parameters", "credentials",
}

type nodeAlias Node

func (n *Node) UnmarshalJSON(data []byte) error {
	var known nodeAlias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range nodeKeys {
		delete(raw, key)
	}
	if len(raw) > 0 {
		known.extra = raw
	}
	*n = Node(known)
	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(nodeAlias(n))
	if err != nil {
		return nil, err
	}
	if len(n.extra) == 0 {
		return data, nil
	}
	merged := make(map[string]interface{}, len(n.extra))
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range n.extra {
		if _, modeled := merged[key]; !modeled {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// Document is a full workflow as stored in a template or returned by the
// engine.
type Document struct {
	ID          string                 `json:"id,omitempty"`
	Name        string                 `json:"name,omitempty"`
	Active      bool                   `json:"active,omitempty"`
	Nodes       []Node                 `json:"nodes"`
	Connections map[string]interface{} `json:"connections"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
}

// Submission is the subset of a document the engine accepts on create and
// update calls.
type Submission struct {
	Name        string                 `json:"name"`
	Nodes       []Node                 `json:"nodes"`
	Connections map[string]interface{} `json:"connections"`
	Settings    map[string]interface{} `json:"settings"`
}

// ParseDocument decodes a stored template JSON value into a Document.
func ParseDocument(raw map[string]interface{}) (*Document, error) {
	bytes, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(bytes, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// TriggerNode returns the document's trigger node, or nil when the document
// has none.
func (d *Document) TriggerNode() *Node {
	for i := range d.Nodes {
		switch d.Nodes[i].Type {
		case NodeTypeChatTrigger, NodeTypeWebhook, NodeTypeTelegramTrigger:
			return &d.Nodes[i]
		}
	}
	return nil
}
