package fileconvert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/image/bmp"
)

func convertWith(t *testing.T, e *Engine, name, output string, data []byte) (*Result, error) {
	t.Helper()
	return e.Convert(context.Background(), Request{Data: data, Filename: name, Output: output})
}

func TestTabularRows(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "short row",
			input: "a,b\n1\n",
			want:  `[{"a":1,"b":""}]`,
		},
		{
			name:  "extra cells",
			input: "a,b\n1,2,3,x\n",
			want:  `[{"a":1,"b":2,"__parsed_extra":[3,"x"]}]`,
		},
		{
			name:  "trimmed header",
			input: " a , b.c \nx,y\n",
			want:  `[{"a":"x","b":{"c":"y"}}]`,
		},
		{
			name:  "blank lines skipped",
			input: "a\n\n1\n\n2\n",
			want:  `[{"a":1},{"a":2}]`,
		},
		{
			name:  "quoted cells",
			input: "a,b\n\"1,5\",\"say \"\"hi\"\"\"\n",
			want:  `[{"a":"1,5","b":"say \"hi\""}]`,
		},
		{
			name:  "header only",
			input: "a,b\n",
			want:  `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := convertWith(t, newTestEngine(), "t.csv", "json", []byte(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			var env struct {
				RowCount int             `json:"rowCount"`
				Data     json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(res.Payload, &env); err != nil {
				t.Fatal(err)
			}
			var compact bytes.Buffer
			if err := json.Compact(&compact, env.Data); err != nil {
				t.Fatal(err)
			}
			if compact.String() != tt.want {
				t.Errorf("data = %s, want %s", compact.String(), tt.want)
			}
		})
	}
}

func TestTabularEmptyInput(t *testing.T) {
	res, err := convertWith(t, newTestEngine(), "empty.csv", "json", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"rowCount\": 0,\n  \"fields\": [],\n  \"data\": []\n}\n"
	if string(res.Payload) != want {
		t.Errorf("payload = %q", res.Payload)
	}
}

func TestTabularCollisionIsLogged(t *testing.T) {
	var logs bytes.Buffer
	e := newTestEngine(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	res, err := convertWith(t, e, "c.csv", "json", []byte("a,a.b\n1,2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(res.Payload), "\"a\": {\n        \"b\": 2\n      }") {
		t.Errorf("expected a to become a nested record, got %s", res.Payload)
	}
	if !strings.Contains(logs.String(), "field path collision") || !strings.Contains(logs.String(), "path=a") {
		t.Errorf("collision not logged: %q", logs.String())
	}
}

func TestTabularDuplicateHeader(t *testing.T) {
	var logs bytes.Buffer
	e := newTestEngine(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	res, err := convertWith(t, e, "dup.csv", "json", []byte("a,b,a\n1,2,3\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"rowCount\": 1,\n  \"fields\": [\n    \"a\",\n    \"b\"\n  ],\n" +
		"  \"data\": [\n    {\n      \"a\": 3,\n      \"b\": 2\n    }\n  ]\n}\n"
	if string(res.Payload) != want {
		t.Errorf("payload = %q, want %q", res.Payload, want)
	}
	if !strings.Contains(logs.String(), "duplicate header") || !strings.Contains(logs.String(), "field=a") {
		t.Errorf("duplicate header not logged: %q", logs.String())
	}
}

func TestMalformedCSV(t *testing.T) {
	for _, input := range []string{"a,b\n\"1,2\n", "a\nx\"y\n"} {
		_, err := convertWith(t, newTestEngine(), "bad.csv", "json", []byte(input))
		if KindOf(err) != KindMalformedInput {
			t.Errorf("%q: kind = %q (%v)", input, KindOf(err), err)
		}
	}
}

func TestCSVCharsetHint(t *testing.T) {
	e := newTestEngine()
	res, err := e.Convert(context.Background(), Request{
		Data:     []byte("name\ncaf\xe9\n"),
		Filename: "latin.csv",
		Charset:  "windows-1252",
		Output:   "json",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(res.Payload), `"name": "café"`) {
		t.Errorf("payload = %s", res.Payload)
	}
}

func TestHierarchicalCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single object", `{"a":1,"b":[1,2]}`, "a,b\n1,\"1,2\"\n"},
		{"missing cells", `[{"a":1},{"b":2}]`, "a,b\n1,\n,2\n"},
		{"nested order", `[{"p":{"y":1,"x":2},"q":true}]`, "p.y,p.x,q\n1,2,true\n"},
		{"null and empty nested", `[{"n":null,"e":{}}]`, "n,e\n,\n"},
		{"array of objects", `[{"k":[{"a":1}]}]`, "k\n\"[{\"\"a\"\":1}]\"\n"},
		{"empty array", `[]`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := convertWith(t, newTestEngine(), "d.json", "csv", []byte(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if string(res.Payload) != tt.want {
				t.Errorf("payload = %q, want %q", res.Payload, tt.want)
			}
		})
	}
}

func TestMalformedJSON(t *testing.T) {
	for _, input := range []string{`{"a":`, `42`, `[1,2]`, ``, `{} {}`} {
		_, err := convertWith(t, newTestEngine(), "bad.json", "csv", []byte(input))
		if KindOf(err) != KindMalformedInput {
			t.Errorf("%q: kind = %q (%v)", input, KindOf(err), err)
		}
	}
}

func buildXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestXLSX(t *testing.T) {
	data := buildXLSX(t, [][]any{
		{"id", "person.name", "person.city"},
		{1, "Ada", "London"},
		{2, "Grace", "Arlington"},
	})
	e := newTestEngine()

	res, err := convertWith(t, e, "people.xlsx", "json", data)
	if err != nil {
		t.Fatal(err)
	}
	var env struct {
		RowCount int              `json:"rowCount"`
		Data     []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(res.Payload, &env); err != nil {
		t.Fatal(err)
	}
	if env.RowCount != 2 {
		t.Fatalf("rowCount = %d", env.RowCount)
	}
	person, ok := env.Data[1]["person"].(map[string]any)
	if !ok || person["name"] != "Grace" || env.Data[1]["id"] != float64(2) {
		t.Errorf("row = %v", env.Data[1])
	}

	res, err = convertWith(t, e, "people.xlsx", "csv", data)
	if err != nil {
		t.Fatal(err)
	}
	want := "id,person.name,person.city\n1,Ada,London\n2,Grace,Arlington\n"
	if string(res.Payload) != want {
		t.Errorf("csv = %q", res.Payload)
	}
	if res.Pipeline != "sheet-csv" {
		t.Errorf("pipeline = %q", res.Pipeline)
	}
}

func TestMalformedSpreadsheets(t *testing.T) {
	for _, name := range []string{"bad.xlsx", "bad.xls"} {
		_, err := convertWith(t, newTestEngine(), name, "json", []byte("definitely not a workbook"))
		if KindOf(err) != KindMalformedInput {
			t.Errorf("%s: kind = %q (%v)", name, KindOf(err), err)
		}
	}
}

func TestHTMLMarkup(t *testing.T) {
	src := `<html><head><title>  Release
	Notes </title><style>p{color:red}</style></head>
<body><p>Hello <b>world</b></p><script>alert(1)</script>
<img src="data:image/png;base64,` + strings.Repeat("A", 100) + `"></body></html>`

	res, err := convertWith(t, newTestEngine(), "page.html", "md", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	got := string(res.Payload)
	if !strings.HasPrefix(got, "# Release Notes\n\n") {
		t.Errorf("missing title heading: %q", got)
	}
	if !strings.Contains(got, "Hello **world**") {
		t.Errorf("missing body: %q", got)
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "color:red") {
		t.Errorf("script or style leaked: %q", got)
	}
	if !strings.Contains(got, "data:image/png;base64,...") {
		t.Errorf("data URI not truncated: %q", got)
	}

	res, err = convertWith(t, newTestEngine(WithKeepDataURIs(true)), "page.html", "md", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(res.Payload), strings.Repeat("A", 100)) {
		t.Error("data URI truncated despite WithKeepDataURIs(true)")
	}
}

func TestHTMLMarkupKeepsLeadingHeading(t *testing.T) {
	res, err := convertWith(t, newTestEngine(), "doc.htm", "md", []byte("<title>T</title><h1>Main</h1><p>x</p>"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(res.Payload); !strings.HasPrefix(got, "# Main\n") {
		t.Errorf("payload = %q", got)
	}

	res, err = convertWith(t, newTestEngine(), "untitled.html", "md", []byte("<p>only text</p>"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(res.Payload); got != "# untitled\n\nonly text\n" {
		t.Errorf("payload = %q", got)
	}
}

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Example Feed</title>
<link>https://example.com/</link>
<description>&lt;p&gt;Latest &lt;em&gt;news&lt;/em&gt;&lt;/p&gt;</description>
<item>
  <title>First</title>
  <link>https://example.com/1</link>
  <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  <category>go</category>
  <category>news</category>
  <description>Plain body</description>
</item>
<item>
  <title>Second</title>
  <link>https://example.com/2</link>
</item>
</channel></rss>`

func TestFeedJSON(t *testing.T) {
	res, err := convertWith(t, newTestEngine(), "news.rss", "json", []byte(sampleRSS))
	if err != nil {
		t.Fatal(err)
	}
	var env struct {
		Title       string           `json:"title"`
		Description string           `json:"description"`
		ItemCount   int              `json:"itemCount"`
		Items       []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(res.Payload, &env); err != nil {
		t.Fatal(err)
	}
	if env.Title != "Example Feed" || env.ItemCount != 2 {
		t.Errorf("envelope = %+v", env)
	}
	if env.Description != "Latest *news*" {
		t.Errorf("description = %q", env.Description)
	}
	first := env.Items[0]
	if first["title"] != "First" || first["description"] != "Plain body" {
		t.Errorf("first item = %v", first)
	}
	cats, _ := first["categories"].([]any)
	if len(cats) != 2 || cats[0] != "go" {
		t.Errorf("categories = %v", first["categories"])
	}
}

func TestFeedCSV(t *testing.T) {
	res, err := convertWith(t, newTestEngine(), "news.rss", "csv", []byte(sampleRSS))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(res.Payload)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), res.Payload)
	}
	if lines[0] != "title,link,published,updated,author.name,author.email,categories,description" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "First,https://example.com/1,") || !strings.Contains(lines[1], `"go,news"`) {
		t.Errorf("row = %q", lines[1])
	}
}

func TestMalformedFeed(t *testing.T) {
	_, err := convertWith(t, newTestEngine(), "bad.atom", "json", []byte("this is not a feed"))
	if KindOf(err) != KindMalformedInput {
		t.Errorf("kind = %q (%v)", KindOf(err), err)
	}
}

func buildZip(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func TestDocxMarkup(t *testing.T) {
	data := buildZip(t, map[string]string{
		"word/document.xml": `<w:document ` + wordNS + `><w:body>
<w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>
<w:p/>
<w:p><w:r><w:t>Revenue grew.</w:t></w:r></w:p>
</w:body></w:document>`,
		"docProps/app.xml": `<Properties><Pages>2</Pages></Properties>`,
	})

	res, err := convertWith(t, New(), "q3.docx", "md", data)
	if err != nil {
		t.Fatal(err)
	}
	want := "# q3\n\n*Converted from DOCX document*\n\nQuarterly report\n\nRevenue grew.\n"
	if string(res.Payload) != want {
		t.Errorf("payload = %q, want %q", res.Payload, want)
	}
	if res.ContentType != "text/markdown; charset=utf-8" {
		t.Errorf("content type = %q", res.ContentType)
	}
}

func TestDocxWithoutText(t *testing.T) {
	data := buildZip(t, map[string]string{
		"word/document.xml": `<w:document ` + wordNS + `><w:body><w:p/><w:p><w:r><w:drawing/></w:r></w:p></w:body></w:document>`,
		"docProps/app.xml":  `<Properties><Pages>4</Pages></Properties>`,
	})
	res, err := convertWith(t, New(), "scan.docx", "md", data)
	if err != nil {
		t.Fatal(err)
	}
	got := string(res.Payload)
	if !res.Diagnostic || !strings.Contains(got, "DOCX Document Analysis") || !strings.Contains(got, "Pages: 4") {
		t.Errorf("payload = %q", got)
	}
}

func TestCorruptOfficeDocuments(t *testing.T) {
	for _, name := range []string{"bad.docx", "bad.pptx"} {
		_, err := convertWith(t, New(), name, "md", []byte("PK but not really"))
		if KindOf(err) != KindExtractionFailed {
			t.Errorf("%s: kind = %q (%v)", name, KindOf(err), err)
		}
	}

	// A valid zip without the main part is not a document either.
	data := buildZip(t, map[string]string{"hello.txt": "hi"})
	_, err := convertWith(t, New(), "empty.docx", "md", data)
	if KindOf(err) != KindExtractionFailed {
		t.Errorf("kind = %q (%v)", KindOf(err), err)
	}
}

func TestPptxMarkup(t *testing.T) {
	const (
		pNS = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
		aNS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
		rNS = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	)
	slide := func(lines ...string) string {
		var b strings.Builder
		b.WriteString(`<p:sld ` + pNS + ` ` + aNS + `><p:cSld><p:spTree><p:sp><p:txBody>`)
		for _, l := range lines {
			b.WriteString(`<a:p><a:r><a:t>` + l + `</a:t></a:r></a:p>`)
		}
		b.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
		return b.String()
	}

	data := buildZip(t, map[string]string{
		"ppt/presentation.xml": `<p:presentation ` + pNS + ` ` + rNS + `><p:sldIdLst>
<p:sldId id="256" r:id="rId3"/><p:sldId id="257" r:id="rId2"/></p:sldIdLst></p:presentation>`,
		"ppt/_rels/presentation.xml.rels": `<Relationships>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/>
</Relationships>`,
		"ppt/slides/slide1.xml": slide("Closing"),
		"ppt/slides/slide2.xml": slide("Opening", "Agenda"),
		"ppt/slides/_rels/slide2.xml.rels": `<Relationships>
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide" Target="../notesSlides/notesSlide1.xml"/>
</Relationships>`,
		"ppt/notesSlides/notesSlide1.xml": slide("Speaker note"),
	})

	res, err := convertWith(t, New(), "deck.pptx", "md", data)
	if err != nil {
		t.Fatal(err)
	}
	want := "# deck\n\n*Converted from PPTX document*\n\nOpening\nAgenda\n\nSpeaker note\n\nClosing\n"
	if string(res.Payload) != want {
		t.Errorf("payload = %q, want %q", res.Payload, want)
	}
}

func TestPDFExtractorRejectsInvalidPDF(t *testing.T) {
	_, err := convertWith(t, New(), "broken.pdf", "txt", []byte("%PDF-1.7\nthis is not a real pdf"))
	if KindOf(err) != KindExtractionFailed {
		t.Errorf("kind = %q (%v)", KindOf(err), err)
	}
}

func TestStdImageRecoder(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	src.Set(0, 0, color.NRGBA{}) // fully transparent

	var pngIn, bmpIn bytes.Buffer
	if err := png.Encode(&pngIn, src); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpIn, src); err != nil {
		t.Fatal(err)
	}

	e := New()

	res, err := convertWith(t, e, "photo.bmp", "png", bmpIn.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	out, err := png.Decode(bytes.NewReader(res.Payload))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if out.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v", out.Bounds())
	}

	res, err = convertWith(t, e, "photo.png", "jpg", pngIn.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	out, err = jpeg.Decode(bytes.NewReader(res.Payload))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if out.Bounds() != src.Bounds() {
		t.Errorf("bounds = %v", out.Bounds())
	}

	_, err = convertWith(t, e, "photo.png", "png", []byte("not an image"))
	if KindOf(err) != KindMalformedInput {
		t.Errorf("kind = %q (%v)", KindOf(err), err)
	}
}

func TestFlattenCompositesOnWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{})
	src.Set(1, 0, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	out := flatten(src)
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if got := color.RGBAModel.Convert(out.At(0, 0)).(color.RGBA); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("transparent pixel = %v, want white", got)
	}
	if got := color.RGBAModel.Convert(out.At(1, 0)).(color.RGBA); got != (color.RGBA{200, 10, 10, 255}) {
		t.Errorf("opaque pixel = %v, want unchanged", got)
	}
}

func TestStructureText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "# t\n\n*Converted from plain text*\n\n",
		},
		{
			name:  "no newline",
			input: "Just one sentence.",
			want:  "# t\n\n*Converted from plain text*\n\nJust one sentence.\n",
		},
		{
			name:  "bullets verbatim",
			input: "- one item\n* two",
			want:  "# t\n\n*Converted from plain text*\n\n- one item\n* two\n",
		},
		{
			name:  "label rules",
			input: "Summary\nDone.\nWhy?\n" + strings.Repeat("x", 60) + "\n" + strings.Repeat("y", 59),
			want: "# t\n\n*Converted from plain text*\n\n## Summary\nDone.\nWhy?\n" +
				strings.Repeat("x", 60) + "\n## " + strings.Repeat("y", 59) + "\n",
		},
		{
			name:  "crlf and blank lines",
			input: "A\r\n\r\nB b",
			want:  "# t\n\n*Converted from plain text*\n\n## A\n\nB b\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StructureText(tt.input, "t"); got != tt.want {
				t.Errorf("StructureText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalization(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trailing whitespace",
			input: "hello   \nworld   \n",
			want:  "hello\nworld",
		},
		{
			name:  "multiple newlines",
			input: "hello\n\n\n\n\nworld",
			want:  "hello\n\nworld",
		},
		{
			name:  "crlf",
			input: "hello\r\nworld\r\n",
			want:  "hello\nworld",
		},
		{
			name:  "control characters",
			input: "hello\x00world\x01test",
			want:  "helloworldtest",
		},
		{
			name:  "invalid utf-8",
			input: "ok\xff\xfe",
			want:  "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeOutput(tt.input)
			if got != tt.want {
				t.Errorf("normalizeOutput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		charset string
		want    string
	}{
		{"utf-8", []byte("héllo"), "", "héllo"},
		{"utf-8 bom", []byte("\xef\xbb\xbfhi"), "", "hi"},
		{"utf-16le bom", []byte("\xff\xfeh\x00i\x00"), "", "hi"},
		{"utf-16be bom", []byte("\xfe\xff\x00h\x00i"), "", "hi"},
		{"latin1 hint", []byte("caf\xe9"), "ISO-8859-1", "café"},
		{"windows label alias", []byte("\x93q\x94"), "cp1252", "“q”"},
		{"unknown hint falls back", []byte("plain"), "x-nonsense", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeText(tt.data, tt.charset); got != tt.want {
				t.Errorf("decodeText = %q, want %q", got, tt.want)
			}
		})
	}
}
