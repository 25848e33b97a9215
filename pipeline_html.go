// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package fileconvert

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	tableplugin "github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// HTMLMarkupPipeline converts HTML pages to markdown.
type HTMLMarkupPipeline struct {
	keepDataURIs bool
}

// NewHTMLMarkupPipeline creates a new HTMLMarkupPipeline. Unless keepDataURIs
// is set, embedded base64 payloads are truncated to data:mime/type;base64...
func NewHTMLMarkupPipeline(keepDataURIs bool) *HTMLMarkupPipeline {
	return &HTMLMarkupPipeline{keepDataURIs: keepDataURIs}
}

func (p *HTMLMarkupPipeline) Name() string { return "html-markup" }

func (p *HTMLMarkupPipeline) Convert(_ context.Context, c *Conversion) (*Result, error) {
	src := c.Text()

	title := htmlTitle(src)
	md, err := htmlToMarkdown(removeScriptAndStyle(src))
	if err != nil {
		return nil, malformedInput("HTML", err)
	}
	if !p.keepDataURIs {
		md = truncateDataURIs(md)
	}
	md = strings.TrimSpace(md)

	if !strings.HasPrefix(md, "# ") {
		if title == "" {
			title = c.BaseName()
		}
		md = strings.TrimSpace(fmt.Sprintf("# %s\n\n%s", title, md))
	}

	return &Result{
		Payload:     []byte(md + "\n"),
		ContentType: contentTypeMarkdown,
	}, nil
}

// htmlToMarkdown converts HTML to markdown using html-to-markdown.
func htmlToMarkdown(src string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle("atx"),
			),
			tableplugin.NewTablePlugin(),
		),
	)
	return conv.ConvertString(src)
}

var (
	reScript  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	reStyle   = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	reDataURI = regexp.MustCompile(`(data:[a-zA-Z0-9/+.-]+;base64,)[A-Za-z0-9+/=]{64,}`)
	reHTMLTag = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
)

func removeScriptAndStyle(src string) string {
	src = reScript.ReplaceAllString(src, "")
	return reStyle.ReplaceAllString(src, "")
}

func truncateDataURIs(md string) string {
	return reDataURI.ReplaceAllString(md, "${1}...")
}

// looksLikeHTML reports whether s contains at least one element tag.
func looksLikeHTML(s string) bool {
	return reHTMLTag.MatchString(s)
}

// htmlTitle returns the text of the first <title> element.
func htmlTitle(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return ""
	}

	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}
	find(doc)

	return strings.Join(strings.Fields(title), " ")
}
