// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

// Package markdown parses Discord-flavored markdown far enough to report
// the facts the search index needs: whether a message links anywhere and
// which users it mentions.
//
// The parser walks an ordered rule list. At each position the first rule
// whose pattern matches the remaining input wins; formatting spans are
// re-parsed with the same list. Code spans are opaque, so links and
// mentions inside them are not facts.
//
// Parse and Extract keep all state in a per-call parser and are safe for
// concurrent use.
package markdown

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Kind identifies a node type.
type Kind int

const (
	KindText Kind = iota
	KindNewline
	KindBold
	KindItalic
	KindUnderline
	KindStrike
	KindSpoiler
	KindCodeBlock
	KindInlineCode
	KindBlockQuote
	KindURL
	KindUserMention
	KindRoleMention
	KindChannelMention
	KindEmoji
)

// Node is one element of the parsed tree. Text holds literal text, code,
// a URL, or a mentioned id depending on Kind.
type Node struct {
	Kind     Kind
	Text     string
	Lang     string
	Animated bool
	Children []Node
}

// Facts are the structural properties reported for indexing.
type Facts struct {
	HasLinks       bool
	MentionedUsers map[string]struct{}
}

// Mentions returns the mentioned user ids in ascending order.
func (f Facts) Mentions() []string {
	out := make([]string, 0, len(f.MentionedUsers))
	for id := range f.MentionedUsers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// maxDepth bounds span nesting; deeper input is kept as text.
const maxDepth = 32

// state is passed by value down the recursion.
type state struct {
	inBlockQuote bool
	depth        int
}

type parser struct {
	facts Facts
}

// Extract returns the facts for text, discarding the tree.
func Extract(text string) Facts {
	_, facts := Parse(text)
	return facts
}

// Parse returns the node tree and the facts for text.
func Parse(text string) ([]Node, Facts) {
	p := &parser{facts: Facts{MentionedUsers: make(map[string]struct{})}}
	nodes := p.parse(text, state{})
	return nodes, p.facts
}

func (p *parser) parse(src string, st state) []Node {
	var nodes []Node
	if st.depth > maxDepth {
		return appendText(nodes, src)
	}

	lineStart := true
	for len(src) > 0 {
		var (
			node     Node
			consumed string
			ok       bool
		)
		for i := range rules {
			r := &rules[i]
			if r.lineStart && !lineStart {
				continue
			}
			if r.blockQuote && st.inBlockQuote {
				continue
			}
			m := r.match(src)
			if m == nil {
				continue
			}
			node, consumed, ok = r.parse(p, m, st), m[0], true
			break
		}
		if !ok {
			_, size := utf8.DecodeRuneInString(src)
			node, consumed = Node{Kind: KindText, Text: src[:size]}, src[:size]
		}

		if node.Kind == KindText {
			nodes = appendText(nodes, node.Text)
		} else {
			nodes = append(nodes, node)
		}
		lineStart = strings.HasSuffix(consumed, "\n")
		src = src[len(consumed):]
	}
	return nodes
}

// appendText merges adjacent text runs.
func appendText(nodes []Node, text string) []Node {
	if n := len(nodes); n > 0 && nodes[n-1].Kind == KindText {
		nodes[n-1].Text += text
		return nodes
	}
	return append(nodes, Node{Kind: KindText, Text: text})
}

func (p *parser) nested(kind Kind, inner string, st state) Node {
	st.depth++
	return Node{Kind: kind, Children: p.parse(inner, st)}
}

// PlainText flattens nodes back to their visible text.
func PlainText(nodes []Node) string {
	var b strings.Builder
	var walk func([]Node)
	walk = func(ns []Node) {
		for _, n := range ns {
			switch n.Kind {
			case KindNewline:
				b.WriteByte('\n')
			case KindText, KindCodeBlock, KindInlineCode, KindURL:
				b.WriteString(n.Text)
			default:
				walk(n.Children)
			}
		}
	}
	walk(nodes)
	return b.String()
}
