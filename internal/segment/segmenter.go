// Package segment splits raw book text into the ordered block sequence
// used for narration, timing, and highlight anchoring.
package segment

import (
	"strings"

	"github.com/narrateapp/narrate-server/internal/domain"
)

// Segment splits raw text into blocks. Units are separated by blank
// lines (two or more consecutive newlines) or by a single newline
// immediately followed by non-whitespace. Each unit is trimmed and empty
// units are dropped, so the resulting indices are dense.
//
// Segmentation is deterministic and idempotent: highlights and time map
// entries are anchored to block indices, so identical input must always
// produce identical blocks.
func Segment(raw string) []domain.Block {
	units := splitUnits(raw)

	blocks := make([]domain.Block, 0, len(units))
	for _, unit := range units {
		text := strings.TrimSpace(unit)
		if text == "" {
			continue
		}

		kind, stripped := classify(text)
		blocks = append(blocks, domain.Block{
			Index: len(blocks),
			Text:  stripped,
			Kind:  kind,
		})
	}
	return blocks
}

// splitUnits breaks raw text at blank lines and at newlines directly
// followed by non-whitespace. A newline followed by a space or tab is
// treated as a soft wrap and kept inside the current unit.
func splitUnits(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var units []string
	var cur strings.Builder

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			if cur.Len() > 0 {
				units = append(units, cur.String())
				cur.Reset()
			}
			continue
		}

		if cur.Len() > 0 {
			// A new line starting with non-whitespace closes the current
			// unit; an indented continuation line joins it.
			if !startsWithSpace(lines[i]) {
				units = append(units, cur.String())
				cur.Reset()
			} else {
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(strings.TrimSpace(line))
	}
	if cur.Len() > 0 {
		units = append(units, cur.String())
	}
	return units
}

func startsWithSpace(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// classify detects heading markers at the start of a unit. Exactly one,
// two, or three '#' characters followed by a space mark heading levels
// 1-3; the marker is stripped from the stored text. Deeper marker runs
// are left as plain paragraphs.
func classify(text string) (domain.BlockKind, string) {
	level := 0
	for level < len(text) && text[level] == '#' {
		level++
	}
	if level < 1 || level > 3 || level >= len(text) || text[level] != ' ' {
		return domain.KindParagraph, text
	}

	stripped := strings.TrimSpace(text[level+1:])
	if stripped == "" {
		// A bare marker line carries no narratable text.
		return domain.KindParagraph, text
	}

	switch level {
	case 1:
		return domain.KindHeading1, stripped
	case 2:
		return domain.KindHeading2, stripped
	default:
		return domain.KindHeading3, stripped
	}
}
