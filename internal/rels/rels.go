// Package rels maps relationship ids to package targets.
//
// Generated documents follow a fixed id convention: rId1 is the styles
// part, rId2 the numbering part, and the n-th collected image (0-based)
// gets rId(FirstImageID+n).
package rels

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

const (
	StylesID    = "rId1"
	NumberingID = "rId2"

	// FirstImageID is the numeric suffix of the first image id.
	FirstImageID = 3
)

// Relationship type URIs.
const (
	TypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	TypeStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	TypeNumbering      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	TypeImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	TypeComments       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
)

// Header is the XML declaration every package part starts with.
const Header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const packageNS = "http://schemas.openxmlformats.org/package/2006/relationships"

// Relationship is one entry of a relationships part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// Table holds the relationships of one document in registration order.
type Table struct {
	byID  map[string]int
	items []Relationship
}

// New returns an empty Table.
func New() *Table {
	return &Table{byID: make(map[string]int)}
}

// NewDocument returns a Table preloaded with the styles and numbering
// entries every generated document carries.
func NewDocument() *Table {
	t := New()
	t.Register(StylesID, "styles.xml", TypeStyles)
	t.Register(NumberingID, "numbering.xml", TypeNumbering)
	return t
}

// Register adds or replaces the entry for id. Replacing keeps the original
// position.
func (t *Table) Register(id, target, kind string) {
	rel := Relationship{ID: id, Type: kind, Target: target}
	if i, ok := t.byID[id]; ok {
		t.items[i] = rel
		return
	}
	t.byID[id] = len(t.items)
	t.items = append(t.items, rel)
}

// Resolve returns the target registered for id.
func (t *Table) Resolve(id string) (string, bool) {
	i, ok := t.byID[id]
	if !ok {
		return "", false
	}
	return t.items[i].Target, true
}

// Get returns the full entry for id.
func (t *Table) Get(id string) (Relationship, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Relationship{}, false
	}
	return t.items[i], true
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.items) }

// All returns the entries in registration order.
func (t *Table) All() []Relationship {
	out := make([]Relationship, len(t.items))
	copy(out, t.items)
	return out
}

// ImageID returns the relationship id for the image with the given 0-based
// collection ordinal.
func ImageID(ordinal int) string {
	return fmt.Sprintf("rId%d", FirstImageID+ordinal)
}

// AddImage registers the image with the given ordinal and returns its id.
func (t *Table) AddImage(ordinal int, target string) string {
	id := ImageID(ordinal)
	t.Register(id, target, TypeImage)
	return id
}

// Parse reads a relationships part.
func Parse(data []byte) (*Table, error) {
	return parse(data, func(Relationship) bool { return true })
}

// ParseImages reads a relationships part keeping only image entries, that
// is those whose type contains "image". External targets are skipped since
// their bytes are not in the package.
func ParseImages(data []byte) (*Table, error) {
	return parse(data, func(r Relationship) bool {
		return strings.Contains(r.Type, "image") && !strings.EqualFold(r.TargetMode, "External")
	})
}

func parse(data []byte, keep func(Relationship) bool) (*Table, error) {
	var doc relationships
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse relationships: %w", err)
	}
	t := New()
	for _, r := range doc.Relationships {
		if r.ID == "" || !keep(r) {
			continue
		}
		t.Register(r.ID, r.Target, r.Type)
		if r.TargetMode != "" {
			t.items[t.byID[r.ID]].TargetMode = r.TargetMode
		}
	}
	return t, nil
}

// Marshal renders the table as a relationships part.
func (t *Table) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(Header)
	fmt.Fprintf(&buf, `<Relationships xmlns="%s">`, packageNS)
	for _, r := range t.items {
		fmt.Fprintf(&buf, `<Relationship Id="%s" Type="%s" Target="%s"`, escape(r.ID), escape(r.Type), escape(r.Target))
		if r.TargetMode != "" {
			fmt.Fprintf(&buf, ` TargetMode="%s"`, escape(r.TargetMode))
		}
		buf.WriteString("/>")
	}
	buf.WriteString("</Relationships>")
	return buf.Bytes()
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

// RelsPath returns the relationships part that belongs to part, e.g.
// "word/document.xml" → "word/_rels/document.xml.rels".
func RelsPath(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// PartPath resolves target, as written in the relationships part of
// source, to a package part name.
func PartPath(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return strings.TrimPrefix(path.Join(path.Dir(source), target), "/")
}
