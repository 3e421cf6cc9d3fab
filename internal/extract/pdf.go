// Package extract turns PDF bytes into plain page text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrEmptyDocument is returned for zero-length input.
var ErrEmptyDocument = errors.New("document is empty")

// PDFExtractor reads page text with pdfcpu.
type PDFExtractor struct {
	conf *model.Configuration
}

// NewPDFExtractor returns an extractor that validates leniently, since
// uploads come from arbitrary producers.
func NewPDFExtractor() *PDFExtractor {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return &PDFExtractor{conf: cfg}
}

// ExtractPages returns the text of every page in page order. Pages without a
// text layer yield empty strings.
func (e *PDFExtractor) ExtractPages(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	ctx, err := api.ReadAndValidate(bytes.NewReader(data), e.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	pages := make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("failed to read content of page %d: %w", pageNr, err)
		}
		if r == nil {
			pages = append(pages, "")
			continue
		}
		stream, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read content of page %d: %w", pageNr, err)
		}
		pages = append(pages, contentText(stream, pageFonts(ctx, pageNr)))
	}
	return pages, nil
}

// pageFonts collects the decoders of the fonts a page references by resource
// name. Fonts that cannot be read are left out and fall back to simple
// decoding.
func pageFonts(ctx *model.Context, pageNr int) map[string]*pageFont {
	fonts := make(map[string]*pageFont)

	d, _, inh, err := ctx.PageDict(pageNr, false)
	if err != nil || d == nil {
		return fonts
	}
	var res types.Dict
	if o, found := d.Find("Resources"); found {
		res, _ = ctx.DereferenceDict(o)
	}
	if res == nil && inh != nil {
		res = inh.Resources
	}
	if res == nil {
		return fonts
	}

	fontObj, found := res.Find("Font")
	if !found {
		return fonts
	}
	fontDict, err := ctx.DereferenceDict(fontObj)
	if err != nil || fontDict == nil {
		return fonts
	}

	for name, obj := range fontDict {
		fd, err := ctx.DereferenceDict(obj)
		if err != nil || fd == nil {
			continue
		}
		if cm := fontToUnicode(ctx, fd); cm != nil {
			fonts[name] = &pageFont{cmap: cm}
			continue
		}
		if enc := fontEncoding(ctx, fd); enc != nil {
			fonts[name] = &pageFont{enc: enc}
		}
	}
	return fonts
}

func fontToUnicode(ctx *model.Context, fd types.Dict) *toUnicode {
	tu, found := fd.Find("ToUnicode")
	if !found {
		return nil
	}
	sd, _, err := ctx.DereferenceStreamDict(tu)
	if err != nil || sd == nil {
		return nil
	}
	if err := sd.Decode(); err != nil {
		return nil
	}
	return parseToUnicode(sd.Content)
}

// fontEncoding builds the byte-to-rune table of a simple font from its
// /Encoding entry. Composite fonts get nil. A missing entry is read as
// WinAnsiEncoding, the encoding most producers write without naming it.
func fontEncoding(ctx *model.Context, fd types.Dict) *encoding {
	subtype := ""
	if o, found := fd.Find("Subtype"); found {
		if n, ok := o.(types.Name); ok {
			subtype = string(n)
		}
	}
	if subtype == "Type0" {
		return nil
	}

	enc := winAnsiEncoding
	o, found := fd.Find("Encoding")
	if !found {
		return &enc
	}
	o, err := ctx.Dereference(o)
	if err != nil {
		return &enc
	}
	switch v := o.(type) {
	case types.Name:
		enc = baseEncoding(string(v))
	case types.Dict:
		base := "WinAnsiEncoding"
		if subtype == "Type1" {
			base = "StandardEncoding"
		}
		if b, found := v.Find("BaseEncoding"); found {
			if n, ok := b.(types.Name); ok {
				base = string(n)
			}
		}
		enc = baseEncoding(base)
		if da, found := v.Find("Differences"); found {
			if arr, err := ctx.DereferenceArray(da); err == nil {
				enc = withDifferences(enc, parseDifferences(arr))
			}
		}
	}
	return &enc
}

// parseDifferences reads a /Differences array: each integer sets the code of
// the glyph names that follow it.
func parseDifferences(arr types.Array) []difference {
	var diffs []difference
	code := -1
	for _, el := range arr {
		switch v := el.(type) {
		case types.Integer:
			code = int(v)
		case types.Name:
			if code >= 0 {
				diffs = append(diffs, difference{code: code, name: string(v)})
				code++
			}
		}
	}
	return diffs
}

// CapText joins page texts in order, one page per line block, and stops once
// more than limit characters have been gathered. The result is cut to limit
// characters. A limit of zero or less disables the cap.
func CapText(pages []string, limit int) string {
	var b strings.Builder
	n := 0
	for _, p := range pages {
		if p == "" {
			continue
		}
		b.WriteString(p)
		b.WriteByte('\n')
		n += utf8.RuneCountInString(p) + 1
		if limit > 0 && n > limit {
			break
		}
	}
	return truncateRunes(b.String(), limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}
