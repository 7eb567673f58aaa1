// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText strips markup from user supplied text. Entities are decoded,
// the content of script and style elements is dropped and white space is
// collapsed.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	var (
		sb   strings.Builder
		skip int
	)

	z := html.NewTokenizer(strings.NewReader(s))

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is all we get
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken:
			if isRawText(z) {
				skip++
			} else {
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			if isRawText(z) && skip > 0 {
				skip--
			} else {
				sb.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.CommentToken, html.DoctypeToken:
		}
	}
}

func isRawText(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	a := atom.Lookup(name)

	return a == atom.Script || a == atom.Style
}
