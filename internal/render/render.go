// Package render prints merge conflicts for people.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/agentflare-ai/go-jsonmerge"
)

// UseColor reports whether w is a terminal.
func UseColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes conflict reports.
type Printer struct {
	w                         io.Writer
	head, base, local, remote *color.Color
	del, ins                  *color.Color
	colored                   bool
}

// NewPrinter returns a Printer writing to w, with ANSI colors when colored
// is set.
func NewPrinter(w io.Writer, colored bool) *Printer {
	p := &Printer{
		w:       w,
		head:    color.New(color.FgYellow, color.Bold),
		base:    color.New(color.FgHiBlack),
		local:   color.New(color.FgCyan),
		remote:  color.New(color.FgMagenta),
		del:     color.New(color.FgRed),
		ins:     color.New(color.FgGreen),
		colored: colored,
	}
	for _, c := range []*color.Color{p.head, p.base, p.local, p.remote, p.del, p.ins} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Conflicts writes one block per conflict.
//
//	CONFLICT /name
//	  base:   "A"
//	  local:  "B"
//	  remote: "C"
//	  diff:   [-B-]{+C+}
//
// The diff line appears only when both sides are strings.
func (p *Printer) Conflicts(conflicts []jsonmerge.Conflict) error {
	for _, c := range conflicts {
		path := c.Path.String()
		if path == "" {
			path = "(root)"
		}
		lines := []string{
			p.head.Sprint("CONFLICT ", path),
			"  base:   " + p.base.Sprint(c.Base.String()),
			"  local:  " + p.local.Sprint(c.Local.String()),
			"  remote: " + p.remote.Sprint(c.Remote.String()),
		}
		if d, ok := p.stringDiff(c.Local, c.Remote); ok {
			lines = append(lines, "  diff:   "+d)
		}
		if _, err := fmt.Fprintln(p.w, strings.Join(lines, "\n")); err != nil {
			return err
		}
	}
	return nil
}

// Summary writes a one-line count of conflicts.
func (p *Printer) Summary(conflicts []jsonmerge.Conflict) error {
	switch len(conflicts) {
	case 0:
		_, err := fmt.Fprintln(p.w, "merged cleanly")
		return err
	case 1:
		_, err := fmt.Fprintln(p.w, p.head.Sprint("1 conflict"))
		return err
	}
	_, err := fmt.Fprintln(p.w, p.head.Sprintf("%d conflicts", len(conflicts)))
	return err
}

func (p *Printer) stringDiff(local, remote jsonmerge.Lookup) (string, bool) {
	l, ok := local.Get()
	if !ok || l.Kind() != jsonmerge.StringKind {
		return "", false
	}
	r, ok := remote.Get()
	if !ok || r.Kind() != jsonmerge.StringKind {
		return "", false
	}
	dmp := diffpatch.New()
	multiLine := strings.Contains(l.AsString(), "\n") && strings.Contains(r.AsString(), "\n")
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(l.AsString(), r.AsString(), multiLine))

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffEqual:
			b.WriteString(d.Text)
		case diffpatch.DiffDelete:
			if p.colored {
				b.WriteString(p.del.Sprint(d.Text))
			} else {
				b.WriteString("[-" + d.Text + "-]")
			}
		case diffpatch.DiffInsert:
			if p.colored {
				b.WriteString(p.ins.Sprint(d.Text))
			} else {
				b.WriteString("{+" + d.Text + "+}")
			}
		}
	}
	return b.String(), true
}
