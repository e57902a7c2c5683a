// Package costsheet renders an editing session as an HTML cost sheet fragment.
package costsheet

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"larder/internal/costing"
	"larder/internal/editor"
	"larder/internal/views/theme"
)

// Row is one display-ready composition line.
type Row struct {
	Index     int
	Name      string
	Quantity  string
	Unit      string
	Factor    string
	Status    string
	UnitCost  string
	TotalCost string
	Warnings  []string
	Invalid   []string
}

// Sheet is the display model of a composite.
type Sheet struct {
	Title        string
	Kind         string
	Portions     string
	PortionCost  string
	PortionPrice string
	Margin       string
	Priced       bool
	Rows         []Row
	Notices      []string
	Theme        theme.SheetTheme
}

// FromState formats a session state. unitNames maps unit ids to labels; unknown units are shown
// as a short id.
func FromState(state editor.State, unitNames map[uuid.UUID]string, th theme.SheetTheme) Sheet {
	sheet := Sheet{
		Title:        strings.TrimSpace(state.Name),
		Kind:         string(state.Kind),
		Portions:     strconv.Itoa(costing.EffectivePortions(state.PortionCount)),
		PortionCost:  costing.FormatMoney(state.PortionCost),
		PortionPrice: costing.FormatMoney(state.PortionPrice),
		Margin:       costing.FormatPercent(state.Margin),
		Priced:       state.Kind.Priced(),
		Theme:        th,
	}
	if sheet.Title == "" {
		sheet.Title = "Untitled " + sheet.Kind
	}

	for i, line := range state.Lines {
		name := line.Name
		if name == "" {
			name = "-"
		}
		sheet.Rows = append(sheet.Rows, Row{
			Index:     i + 1,
			Name:      name,
			Quantity:  strconv.FormatFloat(line.Quantity, 'f', -1, 64),
			Unit:      unitLabel(unitNames, line.RecipeUnit),
			Factor:    strconv.FormatFloat(line.ConversionFactor, 'g', 6, 64),
			Status:    string(line.FactorStatus),
			UnitCost:  costing.FormatMoney(line.UnitCost),
			TotalCost: costing.FormatMoney(line.TotalCost),
		})
	}
	for _, w := range state.Warnings {
		if w.Line >= 0 && w.Line < len(sheet.Rows) {
			sheet.Rows[w.Line].Warnings = append(sheet.Rows[w.Line].Warnings, w.Message)
			continue
		}
		sheet.Notices = append(sheet.Notices, w.Message)
	}
	for _, v := range state.ValidationErrors {
		if v.Line >= 0 && v.Line < len(sheet.Rows) {
			sheet.Rows[v.Line].Invalid = append(sheet.Rows[v.Line].Invalid, v.Fields...)
		}
	}
	return sheet
}

func unitLabel(names map[uuid.UUID]string, id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	if name, ok := names[id]; ok {
		return name
	}
	return id.String()[:8]
}

// Render returns the sheet as a templ component.
func Render(sheet Sheet) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		th := sheet.Theme

		p.printf(`<section class="%s" data-kind="%s">`, esc(th.SheetClass), esc(sheet.Kind))
		p.printf(`<header class="%s"><h2>%s</h2><p class="%s">%s portion(s)</p></header>`,
			esc(th.HeaderClass), esc(sheet.Title), esc(th.MutedTextClass), esc(sheet.Portions))

		for _, notice := range sheet.Notices {
			p.printf(`<p class="%s" role="alert">%s</p>`, esc(th.WarningClass), esc(notice))
		}

		p.printf(`<table class="%s"><thead><tr>`, esc(th.TableClass))
		for _, heading := range []string{"#", "Item", "Qty", "Unit", "Factor", "Unit cost", "Total"} {
			p.printf(`<th>%s</th>`, esc(heading))
		}
		p.printf(`</tr></thead><tbody>`)
		for _, row := range sheet.Rows {
			class := th.RowClass
			if len(row.Invalid) > 0 {
				class += " " + th.InvalidClass
			}
			p.printf(`<tr class="%s" data-status="%s">`, esc(class), esc(row.Status))
			p.printf(`<td>%d</td><td>%s`, row.Index, esc(row.Name))
			for _, warning := range row.Warnings {
				p.printf(`<span class="%s">%s</span>`, esc(th.WarningClass), esc(warning))
			}
			if len(row.Invalid) > 0 {
				p.printf(`<span class="%s">missing %s</span>`, esc(th.InvalidClass), esc(strings.Join(row.Invalid, ", ")))
			}
			p.printf(`</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				esc(row.Quantity), esc(row.Unit), esc(row.Factor), esc(row.UnitCost), esc(row.TotalCost))
		}
		p.printf(`</tbody></table>`)

		p.printf(`<dl class="%s"><dt>Portion cost</dt><dd data-field="portion_cost">%s</dd>`, esc(th.TotalsClass), esc(sheet.PortionCost))
		if sheet.Priced {
			p.printf(`<dt>Price</dt><dd data-field="portion_price">%s</dd>`, esc(sheet.PortionPrice))
			p.printf(`<dt>Margin</dt><dd data-field="margin">%s</dd>`, esc(sheet.Margin))
		}
		p.printf(`</dl></section>`)
		return p.err
	})
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func esc(value string) string {
	return templ.EscapeString(value)
}
