// Package richtext reads the JSON documents stored in task descriptions and
// comment bodies. Only the structure needed to find mentions is modelled:
// a document decodes into Text, Mention and Container nodes, and any node
// type it does not know is read as a Container.
package richtext

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Node is one of *Text, *Mention or *Container.
type Node interface {
	node()
}

type Text struct {
	Value string
}

type Mention struct {
	UserID uint64
	Label  string
}

type Container struct {
	Kind     string
	Children []Node
}

func (*Text) node()      {}
func (*Mention) node()   {}
func (*Container) node() {}

type wireNode struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Attrs   json.RawMessage `json:"attrs"`
	Content []wireNode      `json:"content"`
}

type mentionAttrs struct {
	ID    json.RawMessage `json:"id"`
	Label string          `json:"label"`
}

// Parse decodes a document. An empty input is an empty document.
func Parse(raw []byte) (Node, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &Container{Kind: "doc"}, nil
	}
	var root wireNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("invalid rich text document: %w", err)
	}
	return convert(&root), nil
}

func convert(w *wireNode) Node {
	switch w.Type {
	case "text":
		return &Text{Value: w.Text}
	case "mention":
		// A mention without a usable id carries no recipient.
		if m, ok := parseMention(w.Attrs); ok {
			return m
		}
		return &Text{}
	}
	c := &Container{Kind: w.Type, Children: make([]Node, 0, len(w.Content))}
	for i := range w.Content {
		c.Children = append(c.Children, convert(&w.Content[i]))
	}
	return c
}

// Ids may be encoded as numbers or numeric strings.
func parseMention(raw json.RawMessage) (*Mention, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var attrs mentionAttrs
	if err := json.Unmarshal(raw, &attrs); err != nil || len(attrs.ID) == 0 {
		return nil, false
	}
	var id uint64
	if err := json.Unmarshal(attrs.ID, &id); err != nil {
		var s string
		if err := json.Unmarshal(attrs.ID, &s); err != nil {
			return nil, false
		}
		if id, err = strconv.ParseUint(s, 10, 64); err != nil {
			return nil, false
		}
	}
	if id == 0 {
		return nil, false
	}
	return &Mention{UserID: id, Label: attrs.Label}, true
}

// collectMentions appends mention ids in document order.
func collectMentions(n Node, out []uint64) []uint64 {
	switch v := n.(type) {
	case *Mention:
		return append(out, v.UserID)
	case *Container:
		for _, child := range v.Children {
			out = collectMentions(child, out)
		}
	}
	return out
}

// PlainText concatenates text nodes, rendering mentions as @label.
func PlainText(n Node) string {
	var b strings.Builder
	writeText(n, &b)
	return b.String()
}

func writeText(n Node, b *strings.Builder) {
	switch v := n.(type) {
	case *Text:
		b.WriteString(v.Value)
	case *Mention:
		if v.Label != "" {
			b.WriteString("@" + v.Label)
		}
	case *Container:
		for _, child := range v.Children {
			writeText(child, b)
		}
	}
}

// Mentions returns the distinct mentioned user ids in document order,
// leaving out exclude.
func Mentions(raw []byte, exclude uint64) ([]uint64, error) {
	root, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint64]struct{})
	var ids []uint64
	for _, id := range collectMentions(root, nil) {
		if id == exclude {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
