// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"html"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func text(s string) Span { return Span{Kind: SpanText, Text: s} }

// =============================================================================
// SPLIT TESTS
// =============================================================================

func TestSplit_LanguageDetection(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLang string
		wantCode string
	}{
		{"tagged", "```python\nprint(1)\n```", "python", "print(1)"},
		{"upper case tag lowered", "```Go\nfunc main() {}\n```", "go", "func main() {}"},
		{"dashed tag", "```objective-c\nx\n```", "objective-c", "x"},
		{"no tag", "```\nplain\n```", DefaultLanguage, "plain"},
		{"first line is code", "```x := 1\ny := 2\n```", DefaultLanguage, "x := 1\ny := 2"},
		{"single line body", "```python```", DefaultLanguage, "python"},
		{"indent kept", "```go\n\n\tindented\n\n```", "go", "\tindented"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			segs := Split(tc.content)
			if len(segs) != 1 {
				t.Fatalf("Split returned %d segments, want 1", len(segs))
			}
			if segs[0].Kind != SegmentCode {
				t.Errorf("Kind = %v, want code", segs[0].Kind)
			}
			if segs[0].Language != tc.wantLang {
				t.Errorf("Language = %q, want %q", segs[0].Language, tc.wantLang)
			}
			if segs[0].Text != tc.wantCode {
				t.Errorf("Text = %q, want %q", segs[0].Text, tc.wantCode)
			}
		})
	}
}

func TestSplit_Alternation(t *testing.T) {
	segs := Split("intro\n```sh\nls\n```\nmiddle\n```\nb\n```\noutro")
	if len(segs) != 5 {
		t.Fatalf("Split returned %d segments, want 5", len(segs))
	}
	kinds := []SegmentKind{SegmentProse, SegmentCode, SegmentProse, SegmentCode, SegmentProse}
	for i, k := range kinds {
		if segs[i].Kind != k {
			t.Errorf("segment %d kind = %v, want %v", i, segs[i].Kind, k)
		}
	}
	if segs[1].Text != "ls" || segs[3].Text != "b" {
		t.Errorf("code segments = %q, %q", segs[1].Text, segs[3].Text)
	}
}

func TestSplit_UnterminatedFenceIsProse(t *testing.T) {
	segs := Split("look ```go\nfmt.Println(1)")
	if len(segs) != 1 {
		t.Fatalf("Split returned %d segments, want 1", len(segs))
	}
	if segs[0].Kind != SegmentProse {
		t.Errorf("Kind = %v, want prose", segs[0].Kind)
	}
	if !strings.Contains(segs[0].Text, "```go") {
		t.Errorf("prose lost the fence: %q", segs[0].Text)
	}
}

func TestSplit_OddFenceCount(t *testing.T) {
	segs := Split("```a\n1\n``` between ``` tail")
	if len(segs) != 2 {
		t.Fatalf("Split returned %d segments, want 2", len(segs))
	}
	if segs[0].Kind != SegmentCode || segs[1].Kind != SegmentProse {
		t.Errorf("kinds = %v, %v", segs[0].Kind, segs[1].Kind)
	}
	if !strings.Contains(segs[1].Text, "``` tail") {
		t.Errorf("tail = %q", segs[1].Text)
	}
}

// =============================================================================
// BLOCK TESTS
// =============================================================================

func TestParse_Blocks(t *testing.T) {
	content := "# Title\n" +
		"> quoted\n> twice\n" +
		"- one\n- two\n" +
		"3. three\n4. four\n" +
		"---\n" +
		"| a | b |\n|---|---|\n| 1 | 2 |\n" +
		"\n" +
		"para line\nnext line"

	want := []Block{
		Heading{Level: 1, Spans: []Span{text("Title")}},
		Blockquote{Spans: []Span{text("quoted"), {Kind: SpanBreak}, text("twice")}},
		List{Items: [][]Span{{text("one")}, {text("two")}}},
		List{Ordered: true, Start: 3, Items: [][]Span{{text("three")}, {text("four")}}},
		Rule{},
		Preformatted{Text: "| a | b |\n|---|---|\n| 1 | 2 |"},
		Paragraph{Spans: []Span{text("para line"), {Kind: SpanBreak}, text("next line")}},
	}

	blocks := Parse(content)
	if len(blocks) != len(want) {
		t.Fatalf("Parse returned %d blocks, want %d: %#v", len(blocks), len(want), blocks)
	}
	for i := range want {
		if !reflect.DeepEqual(blocks[i], want[i]) {
			t.Errorf("block %d = %#v, want %#v", i, blocks[i], want[i])
		}
	}
}

func TestParse_HeadingLevels(t *testing.T) {
	for level := 1; level <= 6; level++ {
		blocks := Parse(strings.Repeat("#", level) + " h")
		if len(blocks) != 1 {
			t.Fatalf("level %d: %d blocks", level, len(blocks))
		}
		h, ok := blocks[0].(Heading)
		if !ok || h.Level != level {
			t.Errorf("level %d: got %#v", level, blocks[0])
		}
	}

	// Seven hashes is not a heading.
	blocks := Parse("####### h")
	if len(blocks) != 1 {
		t.Fatalf("%d blocks, want 1", len(blocks))
	}
	if _, ok := blocks[0].(Paragraph); !ok {
		t.Errorf("got %T, want Paragraph", blocks[0])
	}
}

func TestParse_SingleTableLineIsParagraph(t *testing.T) {
	blocks := Parse("| lonely |")
	if len(blocks) != 1 {
		t.Fatalf("%d blocks, want 1", len(blocks))
	}
	if _, ok := blocks[0].(Paragraph); !ok {
		t.Errorf("got %T, want Paragraph", blocks[0])
	}
}

func TestParse_EmptyQuoteDropped(t *testing.T) {
	tests := []string{">", "> ", ">\n>   \n>", "before\n\n> \n\nafter"}
	for _, in := range tests {
		for _, b := range Parse(in) {
			if _, ok := b.(Blockquote); ok {
				t.Errorf("Parse(%q) produced an empty blockquote", in)
			}
		}
		if out := RenderHTML(in); strings.Contains(out, "<blockquote>") {
			t.Errorf("RenderHTML(%q) = %q", in, out)
		}
	}

	// A quote with text around blank lines keeps its content.
	blocks := Parse(">\n> kept\n>")
	if len(blocks) != 1 {
		t.Fatalf("%d blocks, want 1", len(blocks))
	}
	if _, ok := blocks[0].(Blockquote); !ok {
		t.Errorf("got %T, want Blockquote", blocks[0])
	}
}

// =============================================================================
// INLINE TESTS
// =============================================================================

func TestParseInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Span
	}{
		{"strong", "a **b** c", []Span{text("a "), {Kind: SpanStrong, Children: []Span{text("b")}}, text(" c")}},
		{"em", "*x*", []Span{{Kind: SpanEm, Children: []Span{text("x")}}}},
		{"strike", "~~old~~", []Span{{Kind: SpanStrike, Children: []Span{text("old")}}}},
		{"code is literal", "`**not bold**`", []Span{{Kind: SpanCode, Text: "**not bold**"}}},
		{"unterminated strong", "**open", []Span{text("**open")}},
		{"spaced star stays text", "2 * 3 * 4", []Span{text("2 * 3 * 4")}},
		{"https link", "[site](https://example.com)", []Span{{Kind: SpanLink, URL: "https://example.com", Children: []Span{text("site")}}}},
		{"javascript link dropped", "[x](javascript:alert(1))", []Span{text("x"), text(")")}},
		{"relative link dropped", "[rel](/path)", []Span{text("rel")}},
		{"nested strong in link", "[**b**](http://a.b)", []Span{{Kind: SpanLink, URL: "http://a.b", Children: []Span{{Kind: SpanStrong, Children: []Span{text("b")}}}}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseInline(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ParseInline(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

// =============================================================================
// HTML TESTS
// =============================================================================

func TestRenderHTML_FenceSafety(t *testing.T) {
	const in = "before ```<script>alert(1)</script>``` after"

	want := []Block{
		Paragraph{Spans: []Span{text("before")}},
		CodeBlock{Language: DefaultLanguage, Code: "<script>alert(1)</script>"},
		Paragraph{Spans: []Span{text("after")}},
	}
	if got := Parse(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse = %#v, want %#v", got, want)
	}

	out := RenderHTML(in)
	if strings.Contains(out, "<script") {
		t.Errorf("raw script tag in output: %s", out)
	}
	if !strings.Contains(out, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Errorf("escaped code missing: %s", out)
	}
}

func TestRenderHTML_EscapesProse(t *testing.T) {
	out := RenderHTML(`<img src=x onerror="alert('x')"> & more`)
	for _, bad := range []string{"<img", `"alert`, "'x'"} {
		if strings.Contains(out, bad) {
			t.Errorf("output contains %q: %s", bad, out)
		}
	}
	if !strings.Contains(out, "&amp; more") {
		t.Errorf("ampersand not escaped: %s", out)
	}
}

func TestRenderHTML_InvalidUTF8Replaced(t *testing.T) {
	tests := []string{
		"bad \xff byte",
		"`code \xc3\x28`",
		"```go\nx := \"\xed\xa0\x80\"\n```",
		"[link \xfe](https://a.b/\xff)",
	}
	for _, in := range tests {
		out := RenderHTML(in)
		if !utf8.ValidString(out) {
			t.Errorf("RenderHTML(%q) is not valid UTF-8: %q", in, out)
		}
		if !strings.Contains(out, "�") {
			t.Errorf("RenderHTML(%q) lost the replacement character: %q", in, out)
		}
	}

	if got := EscapeHTML("<\xff>"); got != "&lt;�&gt;" {
		t.Errorf("EscapeHTML = %q", got)
	}
}

func TestRenderHTML_LinkAttributes(t *testing.T) {
	out := RenderHTML(`[go](https://go.dev/?a=1&b="2")`)
	if !strings.Contains(out, `href="https://go.dev/?a=1&amp;b=&#34;2&#34;"`) {
		t.Errorf("href not escaped: %s", out)
	}
	if !strings.Contains(out, `rel="noopener noreferrer"`) {
		t.Errorf("rel missing: %s", out)
	}

	out = RenderHTML("[bad](javascript:alert(1))")
	if strings.Contains(out, "<a ") || strings.Contains(out, "javascript:") {
		t.Errorf("unsafe link rendered: %s", out)
	}
}

func TestRenderHTML_CopyPayloadRoundTrips(t *testing.T) {
	code := "if a < b && c > \"d\" {\n\treturn 'x'\n}"
	out := RenderHTML("```go\n" + code + "\n```")

	const marker = `data-copy="`
	start := strings.Index(out, marker)
	if start < 0 {
		t.Fatalf("no copy payload in %s", out)
	}
	rest := out[start+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		t.Fatalf("unterminated copy payload in %s", out)
	}

	if got := html.UnescapeString(rest[:end]); got != code {
		t.Errorf("payload = %q, want %q", got, code)
	}
	if !strings.Contains(out, `class="language-go"`) {
		t.Errorf("language class missing: %s", out)
	}
}

func TestRenderHTML_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"# h\n- a\n- b\n```js\nx<y\n```\n**bold** [l](https://x.y)",
		"```unterminated",
		"| a |\n| b |",
	}
	for _, in := range inputs {
		if !reflect.DeepEqual(Parse(in), Parse(in)) {
			t.Errorf("Parse(%q) is not deterministic", in)
		}
		if RenderHTML(in) != RenderHTML(in) {
			t.Errorf("RenderHTML(%q) is not deterministic", in)
		}
	}
}

func TestRenderHTML_NoPanicOnOddInput(t *testing.T) {
	inputs := []string{"[", "[]", "[a](", "[a]", "*", "**", "~~", "`", "```", "``````", "#", ">", "1.", "\x00\xff"}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("RenderHTML(%q) panicked: %v", in, r)
				}
			}()
			RenderHTML(in)
		}()
	}
}

// =============================================================================
// PLAIN TEXT TESTS
// =============================================================================

func TestPlainText(t *testing.T) {
	out := PlainText(Parse("## Hi\nsee [docs](https://d.io)\n\n1. a\n2. b\n```sh\nls\n```"))
	want := "## Hi\n\nsee docs (https://d.io)\n\n1. a\n2. b\n\n```sh\nls\n```"
	if out != want {
		t.Errorf("PlainText = %q, want %q", out, want)
	}
}

func TestCodeBlocks(t *testing.T) {
	cbs := CodeBlocks(Parse("a\n```go\nx\n```\nb\n```py\ny\n```"))
	if len(cbs) != 2 {
		t.Fatalf("CodeBlocks returned %d, want 2", len(cbs))
	}
	if cbs[0].Language != "go" || cbs[1].Code != "y" {
		t.Errorf("blocks = %+v", cbs)
	}
}
