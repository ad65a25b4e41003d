// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page with
// embedded CSS. Every piece of conversation text reaches the page either
// through render.EscapeHTML or through render.RenderHTML.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	return &HTMLExporter{options: withDefaults(opts)}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, errNilConversation
	}

	var sb strings.Builder
	title := render.EscapeHTML(conv.DisplayTitle())

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", title)
	sb.WriteString("    <meta name=\"generator\" content=\"parley\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339))
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", e.options.Theme)
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		e.writeHeader(&sb, conv, title)
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	if len(conv.Messages) == 0 {
		sb.WriteString("            <p class=\"empty\">No messages yet</p>\n")
	}
	for _, msg := range conv.Messages {
		e.writeMessage(&sb, msg)
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>parley</strong> on %s</p>\n",
		e.options.Now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString(pageScript)
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) writeHeader(sb *strings.Builder, conv *model.Conversation, title string) {
	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(sb, "            <h1>%s</h1>\n", title)
	sb.WriteString("            <div class=\"metadata\">\n")
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt))
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Updated:</strong> %s</span>\n", formatTimestamp(conv.UpdatedAt))
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages))
	if conv.IsArchived {
		sb.WriteString("                <span class=\"meta-item\">Archived</span>\n")
	}
	sb.WriteString("                <button class=\"theme-toggle\" type=\"button\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")
}

func (e *HTMLExporter) writeMessage(sb *strings.Builder, msg model.Message) {
	class := string(msg.Role) + "-message"
	if !msg.Role.Valid() {
		class = "user-message"
	}
	if msg.IsError {
		class += " error"
	}
	fmt.Fprintf(sb, "            <div class=\"message %s\">\n", class)

	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(sb, "                    <span class=\"role-label\">%s</span>\n", render.EscapeHTML(roleLabel(msg)))
	if e.options.IncludeTimestamps {
		fmt.Fprintf(sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">")
	sb.WriteString(render.RenderHTML(msg.Content))
	sb.WriteString("</div>\n")
	sb.WriteString("            </div>\n")
}

// =============================================================================
// EMBEDDED CSS AND SCRIPT
// =============================================================================

const pageCSS = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
            --font-mono: "SF Mono", Monaco, "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-secondary: #a9b1d6;
            --text-muted: #565f89;
            --border-color: #414868;
            --code-bg: #1a1b26;
            --accent-blue: #7aa2f7;
            --accent-green: #9ece6a;
            --accent-purple: #bb9af7;
            --accent-red: #f7768e;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f7f8fa;
            --bg-tertiary: #e1e4e8;
            --text-primary: #24292e;
            --text-secondary: #586069;
            --text-muted: #6a737d;
            --border-color: #e1e4e8;
            --code-bg: #f6f8fa;
            --accent-blue: #0366d6;
            --accent-green: #22863a;
            --accent-purple: #6f42c1;
            --accent-red: #d73a49;
        }

        body {
            font-family: var(--font-sans);
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container { max-width: 900px; margin: 0 auto; background: var(--bg-secondary); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: var(--bg-tertiary); }
        .header h1 { font-size: 28px; margin-bottom: 16px; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--text-secondary); align-items: center; }
        .theme-toggle { margin-left: auto; background: var(--bg-secondary); border: 1px solid var(--border-color); border-radius: 6px; padding: 6px 12px; cursor: pointer; color: inherit; }

        .conversation { padding: 24px 32px; }
        .empty { color: var(--text-muted); font-style: italic; }
        .message { margin-bottom: 24px; padding: 20px; border-radius: 8px; border-left: 4px solid transparent; }
        .user-message { border-left-color: var(--accent-blue); }
        .assistant-message { border-left-color: var(--accent-green); }
        .system-message { border-left-color: var(--accent-purple); }
        .message.error { border-left-color: var(--accent-red); color: var(--accent-red); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 12px; font-size: 14px; }
        .role-label { font-weight: 600; }
        .timestamp { color: var(--text-muted); font-family: var(--font-mono); font-size: 13px; }

        .message-content p, .message-content ul, .message-content ol,
        .message-content blockquote, .message-content pre { margin-bottom: 12px; }
        .message-content ul, .message-content ol { padding-left: 24px; }
        .message-content blockquote { border-left: 3px solid var(--border-color); padding-left: 12px; color: var(--text-secondary); }
        .message-content a { color: var(--accent-blue); }
        .message-content code { font-family: var(--font-mono); font-size: 14px; }
        .message-content :not(pre) > code { padding: 2px 6px; background: var(--code-bg); border-radius: 4px; color: var(--accent-purple); }

        .code-block { margin: 16px 0; border-radius: 8px; overflow: hidden; background: var(--code-bg); border: 1px solid var(--border-color); }
        .code-block-header { display: flex; justify-content: space-between; padding: 6px 16px; background: var(--bg-tertiary); }
        .code-lang { font-size: 12px; font-weight: 600; color: var(--text-secondary); text-transform: uppercase; }
        .copy-btn { background: none; border: 1px solid var(--border-color); border-radius: 4px; color: inherit; cursor: pointer; font-size: 12px; padding: 2px 8px; }
        .code-block pre { margin: 0; padding: 16px; overflow-x: auto; }

        .footer { padding: 20px 32px; text-align: center; font-size: 14px; color: var(--text-muted); }

        @media print {
            .theme-toggle, .copy-btn { display: none; }
            .message { page-break-inside: avoid; }
        }
    </style>
`

const pageScript = `    <script>
        function toggleTheme() {
            const body = document.body;
            const next = body.classList.contains('dark-theme') ? 'light' : 'dark';
            body.classList.remove('dark-theme', 'light-theme');
            body.classList.add(next + '-theme');
            localStorage.setItem('theme', next);
        }

        document.addEventListener('DOMContentLoaded', function() {
            const savedTheme = localStorage.getItem('theme');
            if (savedTheme) {
                document.body.classList.remove('dark-theme', 'light-theme');
                document.body.classList.add(savedTheme + '-theme');
            }
            document.querySelectorAll('.copy-btn').forEach(function(btn) {
                btn.addEventListener('click', function() {
                    navigator.clipboard.writeText(btn.dataset.copy).then(function() {
                        btn.textContent = 'Copied!';
                        setTimeout(function() { btn.textContent = 'Copy'; }, 2000);
                    });
                });
            });
        });
    </script>
`
