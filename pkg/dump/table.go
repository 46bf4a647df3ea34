package dump

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"phpcore/pkg/value"
)

// MaxCellWidth bounds a table cell in terminal columns; longer text is
// truncated with an ellipsis
const MaxCellWidth = 48

// Row is one line of a Table
type Row struct {
	Key, Value string
}

// ArrayRows lists the top-level entries of a, one row per key
func ArrayRows(a *value.Array) []Row {
	rows := make([]Row, 0, a.Count())
	for k, v := range a.All() {
		rows = append(rows, Row{Key: keyText(k), Value: v.String()})
	}
	return rows
}

// Table writes rows as a bordered two-column table. Column widths are
// measured in display cells, so wide runes stay aligned.
func Table(w io.Writer, header Row, rows []Row) error {
	kw := runewidth.StringWidth(cell(header.Key))
	vw := runewidth.StringWidth(cell(header.Value))
	for _, r := range rows {
		kw = max(kw, runewidth.StringWidth(cell(r.Key)))
		vw = max(vw, runewidth.StringWidth(cell(r.Value)))
	}

	var b strings.Builder
	rule := "+" + strings.Repeat("-", kw+2) + "+" + strings.Repeat("-", vw+2) + "+\n"
	line := func(r Row) {
		b.WriteString("| ")
		b.WriteString(runewidth.FillRight(cell(r.Key), kw))
		b.WriteString(" | ")
		b.WriteString(runewidth.FillRight(cell(r.Value), vw))
		b.WriteString(" |\n")
	}

	b.WriteString(rule)
	line(header)
	b.WriteString(rule)
	for _, r := range rows {
		line(r)
	}
	if len(rows) > 0 {
		b.WriteString(rule)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	return runewidth.Truncate(s, MaxCellWidth, "…")
}
