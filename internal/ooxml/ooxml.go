// Package ooxml reads the parts of Office Open XML packages (DOCX, PPTX)
// that text extraction needs.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ErrPartNotFound is returned when a named part is absent from the package.
var ErrPartNotFound = errors.New("part not found")

// Relationship represents an OOXML relationship.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// Package is an opened OOXML zip container.
type Package struct {
	zr *zip.Reader
}

// Open opens data as an OOXML package.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	return &Package{zr: zr}, nil
}

// Has reports whether the package contains the named part.
func (p *Package) Has(name string) bool {
	for _, f := range p.zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ReadPart reads a part from the package.
func (p *Package) ReadPart(name string) ([]byte, error) {
	for _, f := range p.zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrPartNotFound)
}

// PartNames returns the names of parts whose path starts with prefix and ends
// with suffix, sorted.
func (p *Package) PartNames(prefix, suffix string) []string {
	var names []string
	for _, f := range p.zr.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, suffix) {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Relationships parses the .rels part belonging to partName, keyed by ID.
// A missing .rels part yields an empty map.
func (p *Package) Relationships(partName string) (map[string]Relationship, error) {
	data, err := p.ReadPart(RelsPathFor(partName))
	if errors.Is(err, ErrPartNotFound) {
		return map[string]Relationship{}, nil
	}
	if err != nil {
		return nil, err
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("decode relationships: %w", err)
	}
	result := make(map[string]Relationship, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		result[rel.ID] = rel
	}
	return result, nil
}

// RelsPathFor returns the .rels path for a given part.
func RelsPathFor(partName string) string {
	dir := path.Dir(partName)
	base := path.Base(partName)
	if dir == "." {
		return "_rels/" + base + ".rels"
	}
	return dir + "/_rels/" + base + ".rels"
}

// ResolveTarget resolves a relationship target against the part that owns it.
func ResolveTarget(basePath, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(basePath), target)
}

// AppPages returns the <Pages> value of docProps/app.xml, or 0 when the
// package does not record one.
func (p *Package) AppPages() int {
	data, err := p.ReadPart("docProps/app.xml")
	if err != nil {
		return 0
	}
	var props struct {
		Pages string `xml:"Pages"`
	}
	if err := xml.Unmarshal(data, &props); err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(props.Pages))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// TextStyle names the elements that carry text in a markup dialect.
type TextStyle struct {
	Paragraph string // element closing a paragraph, e.g. "p"
	Text      string // element holding character data, e.g. "t"
	Break     string // element forcing a line break, e.g. "br"
	Tab       string // element standing for a tab, e.g. "tab"
}

// WordprocessingText and DrawingText cover DOCX bodies and PPTX slides.
var (
	WordprocessingText = TextStyle{Paragraph: "p", Text: "t", Break: "br", Tab: "tab"}
	DrawingText        = TextStyle{Paragraph: "p", Text: "t", Break: "br"}
)

// Paragraphs walks an XML part and returns the text of every paragraph in
// document order. Empty paragraphs are kept as empty strings.
func Paragraphs(data []byte, style TextStyle) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case style.Text:
				inText = true
			case style.Break:
				current.WriteString("\n")
			case style.Tab:
				// w:tab also appears inside w:tabs as a tab stop definition.
				if !hasAttr(t, "pos") {
					current.WriteString("\t")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case style.Text:
				inText = false
			case style.Paragraph:
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs, nil
}

func hasAttr(se xml.StartElement, local string) bool {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return true
		}
	}
	return false
}
