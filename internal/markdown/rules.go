// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package markdown

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// rule is one grammar production. match returns the full match followed by
// capture groups, or nil.
type rule struct {
	name       string
	match      func(src string) []string
	parse      func(p *parser, m []string, st state) Node
	lineStart  bool // only matches at the start of a line
	blockQuote bool // disabled while inside a block quote
}

func pattern(expr string) func(string) []string {
	re := regexp.MustCompile(`^(?:` + expr + `)`)
	return re.FindStringSubmatch
}

func span(kind Kind) func(*parser, []string, state) Node {
	return func(p *parser, m []string, st state) Node {
		return p.nested(kind, m[1], st)
	}
}

// rules are tried in order at every position. They are assembled in init
// because span parsers recurse back into the rule list.
var rules []rule

//nolint:gochecknoinits // rule list refers to itself through nested parses
func init() {
	rules = []rule{
		{
			name:  "codeBlock",
			match: pattern("```(?:([\\w+\\-.]+)\\n)?\\n*([\\s\\S]+?)\\n*```"),
			parse: func(_ *parser, m []string, _ state) Node {
				return Node{Kind: KindCodeBlock, Lang: m[1], Text: m[2]}
			},
		},
		{
			name:       "blockQuoteMulti",
			match:      pattern(` *>>> ([\s\S]*)`),
			parse:      blockQuote,
			lineStart:  true,
			blockQuote: true,
		},
		{
			name:       "blockQuote",
			match:      pattern(` *> ([^\n]*)(?:\n|$)`),
			parse:      blockQuote,
			lineStart:  true,
			blockQuote: true,
		},
		{
			name:  "inlineCodeDouble",
			match: pattern("``([\\s\\S]+?)``"),
			parse: inlineCode,
		},
		{
			name:  "inlineCode",
			match: pattern("`([^`]+)`"),
			parse: inlineCode,
		},
		{name: "spoiler", match: pattern(`\|\|([\s\S]+?)\|\|`), parse: span(KindSpoiler)},
		{name: "bold", match: pattern(`\*\*([\s\S]+?)\*\*`), parse: span(KindBold)},
		{name: "underline", match: pattern(`__([\s\S]+?)__`), parse: span(KindUnderline)},
		{name: "italicStar", match: pattern(`\*([^\s*][^*]*?)\*`), parse: span(KindItalic)},
		{name: "italicUnderscore", match: pattern(`_((?:__|\\[\s\S]|[^\\_])+?)_\b`), parse: span(KindItalic)},
		{name: "strike", match: pattern(`~~([\s\S]+?)~~`), parse: span(KindStrike)},
		{
			name:  "autoLink",
			match: pattern(`<(https?://[^\s>]+)>`),
			parse: link,
		},
		{
			name:  "url",
			match: pattern(`(https?://[^\s<]+[^<.,:;"')\]\s])`),
			parse: link,
		},
		{
			name:  "userMention",
			match: pattern(`<@!?(\d+)>`),
			parse: func(p *parser, m []string, _ state) Node {
				p.facts.MentionedUsers[m[1]] = struct{}{}
				return Node{Kind: KindUserMention, Text: m[1]}
			},
		},
		{
			name:  "roleMention",
			match: pattern(`<@&(\d+)>`),
			parse: func(_ *parser, m []string, _ state) Node {
				return Node{Kind: KindRoleMention, Text: m[1]}
			},
		},
		{
			name:  "channelMention",
			match: pattern(`<#(\d+)>`),
			parse: func(_ *parser, m []string, _ state) Node {
				return Node{Kind: KindChannelMention, Text: m[1]}
			},
		},
		{
			name:  "emoji",
			match: pattern(`<(a?):(\w+):(\d+)>`),
			parse: func(_ *parser, m []string, _ state) Node {
				return Node{Kind: KindEmoji, Text: m[3], Lang: m[2], Animated: m[1] == "a"}
			},
		},
		{
			name:  "escape",
			match: pattern(`\\([^0-9A-Za-z\s])`),
			parse: func(_ *parser, m []string, _ state) Node {
				return Node{Kind: KindText, Text: m[1]}
			},
		},
		{
			name:  "newline",
			match: pattern(`\n`),
			parse: func(_ *parser, _ []string, _ state) Node {
				return Node{Kind: KindNewline}
			},
		},
		{
			name:  "text",
			match: matchText,
			parse: func(_ *parser, m []string, _ state) Node {
				return Node{Kind: KindText, Text: m[0]}
			},
		},
	}
}

func blockQuote(p *parser, m []string, st state) Node {
	st.inBlockQuote = true
	return p.nested(KindBlockQuote, m[1], st)
}

func inlineCode(_ *parser, m []string, _ state) Node {
	return Node{Kind: KindInlineCode, Text: strings.TrimSpace(m[1])}
}

func link(p *parser, m []string, _ state) Node {
	p.facts.HasLinks = true
	return Node{Kind: KindURL, Text: m[1]}
}

// matchText consumes one rune, then any following letters, digits and
// blanks, stopping before anything another rule could start with.
func matchText(src string) []string {
	_, size := utf8.DecodeRuneInString(src)
	i := size
	for i < len(src) {
		if strings.HasPrefix(src[i:], "http://") || strings.HasPrefix(src[i:], "https://") {
			break
		}
		r, n := utf8.DecodeRuneInString(src[i:])
		if r == '\n' || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '\t') {
			break
		}
		i += n
	}
	return []string{src[:i]}
}
