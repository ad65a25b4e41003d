// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns raw message text into a typed document tree and
// renders that tree as safe HTML or plain text.
//
// Parsing happens in three stages:
//
//  1. Split cuts the text on ``` fences into prose and code segments.
//  2. Prose segments are parsed into blocks (headings, quotes, lists, rules,
//     tables, paragraphs). Code segments become CodeBlock values whose
//     payload is never interpreted.
//  3. Block text is parsed into inline spans (code, strong, emphasis,
//     strikethrough, links).
//
// Spans always carry raw text. The HTML writer escapes every text node and
// attribute exactly once, so no byte of the input reaches the output
// unescaped. Links are emitted as anchors only for http and https URLs.
//
// # Usage
//
//	blocks := render.Parse(msg.Content)
//	html := render.HTML(blocks)
//	for _, cb := range render.CodeBlocks(blocks) {
//	    fmt.Println(cb.Language, len(cb.Code))
//	}
//
// Every function in this package is pure and safe for concurrent use.
package render
