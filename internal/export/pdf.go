/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"fitplan/internal/domain"
	applog "fitplan/internal/log"
)

// ErrNoOutput is returned when SessionPDF gets an empty output path.
var ErrNoOutput = errors.New("export: output path is empty")

// Color is an 8-bit RGB color.
type Color struct{ R, G, B uint8 }

// PDFOptions controls PDF export behavior.
// Units are points (pt). Page origin is top-left.
// Built-in Helvetica keeps text vector without embedding.
type PDFOptions struct {
	PageWidth     float64 // 0 means A4 (595)
	PageHeight    float64 // 0 means A4 (842)
	Margin        float64 // 0 means 36
	IncludeGuides bool    // draw the printable area
	RuleColor     Color
	Parts         []int // if empty, export all parts
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.PageWidth <= 0 {
		o.PageWidth = 595
	}
	if o.PageHeight <= 0 {
		o.PageHeight = 842
	}
	if o.Margin <= 0 {
		o.Margin = 36
	}
	if o.RuleColor == (Color{}) {
		o.RuleColor = Color{R: 160, G: 160, B: 160}
	}
	return o
}

const (
	titleSize = 18.0
	setSize   = 12.0
	rowSize   = 10.0
	lineGap   = 1.4
)

// SessionPDF renders a printable program sheet: one page per part, a header per set
// and one row per exercise. A session without parts still yields a title page.
func SessionPDF(s domain.Session, outPath string, opt PDFOptions) error {
	if strings.TrimSpace(outPath) == "" {
		return ErrNoOutput
	}
	opt = opt.withDefaults()
	l := applog.WithComponent("export")

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: opt.PageWidth, Ht: opt.PageHeight},
	})
	pdf.SetTitle(sessionTitle(s), true)
	pdf.SetAuthor("FitPlan", false)
	pdf.SetMargins(opt.Margin, opt.Margin, opt.Margin)
	pdf.SetAutoPageBreak(true, opt.Margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	parts := partIndexes(len(s.Parts), opt.Parts)
	if len(parts) == 0 {
		pdf.AddPage()
		guides(pdf, opt)
		heading(pdf, tr, sessionTitle(s), titleSize)
	}
	for _, pi := range parts {
		if pi < 0 || pi >= len(s.Parts) {
			continue
		}
		p := s.Parts[pi]
		pdf.AddPage()
		guides(pdf, opt)
		heading(pdf, tr, sessionTitle(s), rowSize)
		heading(pdf, tr, partTitle(pi, p), titleSize)

		width := opt.PageWidth - 2*opt.Margin
		for si, set := range p.Sets {
			pdf.Ln(setSize * 0.5)
			pdf.SetFont("Helvetica", "B", setSize)
			pdf.CellFormat(width, setSize*lineGap, tr(SetHeader(si, set)), "B", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", rowSize)
			for ei, ex := range set.Exercises {
				pdf.CellFormat(width*0.5, rowSize*lineGap, tr(fmt.Sprintf("%d. %s", ei+1, exerciseName(ex))), "", 0, "L", false, 0, "")
				pdf.CellFormat(width*0.25, rowSize*lineGap, tr(GoalText(ex.Spec.Goal)), "", 0, "L", false, 0, "")
				pdf.CellFormat(width*0.25, rowSize*lineGap, tr(LoadText(ex.Spec.Load)), "", 1, "L", false, 0, "")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	l.Info("session exported", slog.String("path", outPath), slog.Int("pages", pdf.PageNo()))
	return nil
}

func partIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}

func guides(pdf *gofpdf.Fpdf, opt PDFOptions) {
	if !opt.IncludeGuides {
		return
	}
	pdf.SetDrawColor(int(opt.RuleColor.R), int(opt.RuleColor.G), int(opt.RuleColor.B))
	pdf.SetLineWidth(0.2)
	pdf.Rect(opt.Margin, opt.Margin, opt.PageWidth-2*opt.Margin, opt.PageHeight-2*opt.Margin, "D")
}

func heading(pdf *gofpdf.Fpdf, tr func(string) string, text string, size float64) {
	pdf.SetFont("Helvetica", "B", size)
	pdf.CellFormat(0, size*lineGap, tr(text), "", 1, "L", false, 0, "")
}

func sessionTitle(s domain.Session) string {
	if n := strings.TrimSpace(s.Name); n != "" {
		return n
	}
	return "Untitled session"
}

func partTitle(i int, p domain.Part) string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return fmt.Sprintf("Part %d", i+1)
}

func exerciseName(e domain.Exercise) string {
	if n := strings.TrimSpace(e.Name); n != "" {
		return n
	}
	return "Exercise"
}

// SetHeader reads like "Set 2 - rest 90s, limit 600s".
func SetHeader(i int, s domain.Set) string {
	h := fmt.Sprintf("Set %d - rest %ds", i+1, s.RestTime)
	if s.TimeLimit != nil {
		h += fmt.Sprintf(", limit %ds", *s.TimeLimit)
	}
	return h
}

// GoalText renders a goal such as "10 reps" or "at least 30 seconds".
func GoalText(g domain.Goal) string {
	if g.Type == "" {
		return ""
	}
	t := num(g.Value) + " " + g.Type
	switch g.Rule {
	case "", "exact":
		return t
	case "min", "atLeast":
		return "at least " + t
	case "max", "atMost":
		return "at most " + t
	}
	return t + " (" + g.Rule + ")"
}

// LoadText renders a load such as "40 kg" or "red band". The weight unit is kg.
func LoadText(l domain.Load) string {
	switch l.Type {
	case "":
		return ""
	case "text":
		return l.Text
	case "weight":
		return num(l.Value) + " kg"
	case "bodyweight":
		return "bodyweight"
	}
	if l.Text != "" {
		return l.Text
	}
	return num(l.Value) + " " + l.Type
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
