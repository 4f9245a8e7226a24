// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package markdown

import (
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		links    bool
		mentions []string
	}{
		{"bare url", "check out https://example.com", true, []string{}},
		{"user mention", "<@123> hello", false, []string{"123"}},
		{"nickname mention", "hey <@!456>", false, []string{"456"}},
		{"plain text", "plain text", false, []string{}},
		{"empty", "", false, []string{}},
		{"auto link", "see <https://example.com/a?b=c>", true, []string{}},
		{"url glued to word", "xhttps://example.com", true, []string{}},
		{"url trailing punctuation", "go to https://example.com.", true, []string{}},
		{"link in bold", "**look https://example.com**", true, []string{}},
		{"mention in spoiler", "||<@42>||", false, []string{"42"}},
		{"nested spans", "***__~~<@7> https://a.io~~__***", true, []string{"7"}},
		{"link in inline code", "`https://example.com`", false, []string{}},
		{"mention in code block", "```go\n<@99>\n```", false, []string{}},
		{"role and channel mentions are not users", "<@&11> <#22>", false, []string{}},
		{"block quote", "> quoted <@5>\nnext https://x.y", true, []string{"5"}},
		{"multi line block quote", ">>> line one\n> not nested <@8>", false, []string{"8"}},
		{"not a quote mid line", "a > b <@9>", false, []string{"9"}},
		{"multiple mentions", "<@3> <@1> <@3>", false, []string{"1", "3"}},
		{"escaped", `\*not italic\* <@2>`, false, []string{"2"}},
		{"scheme only", "http:// nothing", false, []string{}},
		{"unclosed bold", "**bold https://a.b", true, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := Extract(tt.text)
			if facts.HasLinks != tt.links {
				t.Errorf("HasLinks = %v, want %v", facts.HasLinks, tt.links)
			}
			if got := facts.Mentions(); !reflect.DeepEqual(got, tt.mentions) {
				t.Errorf("Mentions = %v, want %v", got, tt.mentions)
			}
		})
	}
}

func TestParseTree(t *testing.T) {
	nodes, _ := Parse("hi **bold _it_** `code`")

	kinds := make([]Kind, 0, len(nodes))
	for _, n := range nodes {
		kinds = append(kinds, n.Kind)
	}
	want := []Kind{KindText, KindBold, KindText, KindInlineCode}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	bold := nodes[1]
	if len(bold.Children) != 2 || bold.Children[1].Kind != KindItalic {
		t.Fatalf("bold children = %+v", bold.Children)
	}
	if nodes[3].Text != "code" {
		t.Errorf("inline code = %q", nodes[3].Text)
	}
}

func TestBlockQuoteDoesNotNest(t *testing.T) {
	nodes, _ := Parse(">>> > inner")
	if len(nodes) != 1 || nodes[0].Kind != KindBlockQuote {
		t.Fatalf("expected one block quote, got %+v", nodes)
	}
	for _, child := range nodes[0].Children {
		if child.Kind == KindBlockQuote {
			t.Fatal("block quote nested inside block quote")
		}
	}
	if got := PlainText(nodes); got != "> inner" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestCodeBlockLanguage(t *testing.T) {
	nodes, _ := Parse("```go\nfmt.Println()\n```")
	if len(nodes) != 1 || nodes[0].Kind != KindCodeBlock {
		t.Fatalf("expected code block, got %+v", nodes)
	}
	if nodes[0].Lang != "go" || nodes[0].Text != "fmt.Println()" {
		t.Errorf("code block = %+v", nodes[0])
	}
}

func TestDeepNestingIsBounded(t *testing.T) {
	text := strings.Repeat("||", 200) + "<@1>" + strings.Repeat("||", 200)
	facts := Extract(text)
	if facts.HasLinks {
		t.Error("unexpected link")
	}
}

func TestExtractConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := "<@1> https://a.io"
			if i%2 == 0 {
				text = "plain"
			}
			facts := Extract(text)
			if (i%2 == 0) == facts.HasLinks {
				t.Errorf("goroutine %d: HasLinks = %v", i, facts.HasLinks)
			}
		}(i)
	}
	wg.Wait()
}
