// Package selection translates serialized reading-pane selections into
// block-relative character offsets. It is the only component that touches
// markup; everything downstream works on plain strings and integers.
package selection

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// BlockIndexAttr tags reading-pane elements with the block they render.
const BlockIndexAttr = "data-block-index"

// Selection is the client's serialized text selection: the pane markup
// plus the start/end boundary, each addressed as a child-index path from
// the pane root to a node and a character offset inside that node.
type Selection struct {
	HTML        string `json:"html"`
	Text        string `json:"text"`
	StartPath   []int  `json:"start_path"`
	StartOffset int    `json:"start_offset"`
	EndPath     []int  `json:"end_path"`
	EndOffset   int    `json:"end_offset"`
}

// Captured is a selection resolved to plain-text offsets within one block.
type Captured struct {
	Text        string `json:"text"`
	BlockIndex  int    `json:"block_index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Capture resolves a selection to block-relative offsets. Returns nil
// when the selection lies outside any tracked block or its text trims to
// empty - both are normal outcomes, not errors.
//
// Offsets are computed by walking the rendered text from the block root
// to the boundary node, which normalizes positions across nested inline
// elements (an existing <mark> inside the paragraph does not shift
// them). If the boundary paths cannot be resolved against the markup the
// raw offsets are used as-is: a degraded highlight position beats a
// dropped interaction.
func Capture(sel Selection) *Captured {
	text := strings.TrimSpace(sel.Text)
	if text == "" {
		return nil
	}

	root, err := parsePane(sel.HTML)
	if err != nil {
		return nil
	}

	startNode := resolvePath(root, sel.StartPath)
	if startNode == nil {
		return nil
	}

	block := blockAncestor(startNode)
	if block == nil {
		return nil
	}
	blockIndex, ok := blockIndexOf(block)
	if !ok {
		return nil
	}

	start, ok := offsetWithin(block, startNode, sel.StartOffset)
	if !ok {
		// Malformed boundary: degrade to the raw offsets.
		return &Captured{
			Text:        text,
			BlockIndex:  blockIndex,
			StartOffset: sel.StartOffset,
			EndOffset:   sel.EndOffset,
		}
	}

	end := start + len([]rune(text))
	if endNode := resolvePath(root, sel.EndPath); endNode != nil && blockAncestor(endNode) == block {
		if resolved, ok := offsetWithin(block, endNode, sel.EndOffset); ok && resolved > start {
			end = resolved
		}
	}

	return &Captured{
		Text:        text,
		BlockIndex:  blockIndex,
		StartOffset: start,
		EndOffset:   end,
	}
}

// parsePane parses the pane markup and returns the body element the
// boundary paths are relative to.
func parsePane(markup string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if body == nil {
		return doc, nil
	}
	return body, nil
}

// resolvePath walks child indices from root. Nil when any index is out
// of range.
func resolvePath(root *html.Node, path []int) *html.Node {
	node := root
	for _, idx := range path {
		if idx < 0 {
			return nil
		}
		child := node.FirstChild
		for range idx {
			if child == nil {
				return nil
			}
			child = child.NextSibling
		}
		if child == nil {
			return nil
		}
		node = child
	}
	return node
}

// blockAncestor walks up from n to the nearest element carrying the
// block index attribute.
func blockAncestor(n *html.Node) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if _, ok := blockIndexOf(cur); ok {
			return cur
		}
	}
	return nil
}

func blockIndexOf(n *html.Node) (int, bool) {
	for _, attr := range n.Attr {
		if attr.Key != BlockIndexAttr {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(attr.Val))
		if err != nil || idx < 0 {
			return 0, false
		}
		return idx, true
	}
	return 0, false
}

// offsetWithin returns the rendered-text length from the start of block
// to the boundary (node, offset). Boundary nodes may be text nodes
// (offset counts characters) or elements (offset counts child nodes
// preceding the boundary).
func offsetWithin(block, boundary *html.Node, offset int) (int, bool) {
	if offset < 0 {
		return 0, false
	}

	total := 0
	found := false

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n == boundary {
			switch n.Type {
			case html.TextNode:
				if offset > len([]rune(n.Data)) {
					return true // malformed offset
				}
				total += offset
				found = true
			default:
				// Element boundary: count text of children before offset.
				child := n.FirstChild
				for range offset {
					if child == nil {
						break
					}
					total += textLength(child)
					child = child.NextSibling
				}
				found = true
			}
			return true
		}

		if n.Type == html.TextNode {
			total += len([]rune(n.Data))
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(block)

	if !found {
		return 0, false
	}
	return total, true
}

// textLength is the rendered text length of a subtree in runes.
func textLength(n *html.Node) int {
	if n.Type == html.TextNode {
		return len([]rune(n.Data))
	}
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += textLength(c)
	}
	return total
}
