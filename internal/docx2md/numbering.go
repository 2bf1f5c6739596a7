package docx2md

import (
	"strconv"

	"github.com/dgallion1/docbridge/internal/xmltree"
)

// Numbering tells ordered lists from bullet lists.
type Numbering struct {
	// ordered[numID][ilvl]
	ordered map[int]map[int]bool
}

// ParseNumbering reads word/numbering.xml. A nil tree yields a Numbering
// that treats every list as bulleted.
func ParseNumbering(t *xmltree.Tree) *Numbering {
	n := &Numbering{ordered: make(map[int]map[int]bool)}
	if t == nil {
		return n
	}
	root := t.Root()

	abstract := make(map[string]map[int]bool)
	for a := range t.ChildElements(root, "w:abstractNum") {
		id, _ := t.Attr(a, "w:abstractNumId")
		levels := make(map[int]bool)
		for lvl := range t.ChildElements(a, "w:lvl") {
			v, _ := t.Attr(lvl, "w:ilvl")
			ilvl, err := strconv.Atoi(v)
			if err != nil {
				continue
			}
			fmtNode := t.FindChild(lvl, xmltree.Element, "w:numFmt")
			if fmtNode == xmltree.NoNode {
				continue
			}
			f, _ := t.Attr(fmtNode, "w:val")
			levels[ilvl] = f != "bullet" && f != "none" && f != ""
		}
		abstract[id] = levels
	}

	for num := range t.ChildElements(root, "w:num") {
		v, _ := t.Attr(num, "w:numId")
		numID, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		ref := t.FindChild(num, xmltree.Element, "w:abstractNumId")
		if ref == xmltree.NoNode {
			continue
		}
		aid, _ := t.Attr(ref, "w:val")
		if levels, ok := abstract[aid]; ok {
			n.ordered[numID] = levels
		}
	}
	return n
}

// Ordered reports whether level ilvl of list numID is numbered.
func (n *Numbering) Ordered(numID, ilvl int) bool {
	return n.ordered[numID][ilvl]
}
