package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

func openZip(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return zr, nil
}

// readZipFile decompresses one part, reading at most budget bytes
// (budget < 0 disables the bound).
func readZipFile(f *zip.File, budget int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if budget < 0 {
		return io.ReadAll(rc)
	}
	data, err := io.ReadAll(io.LimitReader(rc, budget+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > budget {
		return nil, fmt.Errorf("%w: %s expands past the content limit", domain.ErrContentTooLarge, f.Name)
	}
	return data, nil
}

// docxText reads word/document.xml paragraph by paragraph.
func docxText(data []byte, maxLength int64) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		content, err := readZipFile(f, maxLength)
		if err != nil {
			return "", err
		}
		return parseDocumentXML(content)
	}
	return "", fmt.Errorf("word/document.xml missing")
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", err
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
	}
	return b.String(), nil
}

// xlsxText reads the shared string table and every worksheet.
func xlsxText(data []byte, maxLength int64) (string, error) {
	return partsText(data, maxLength, func(name string) bool {
		return name == "xl/sharedStrings.xml" ||
			(strings.HasPrefix(name, "xl/worksheets/sheet") && strings.HasSuffix(name, ".xml"))
	})
}

// pptxText reads every slide in slide order.
func pptxText(data []byte, maxLength int64) (string, error) {
	return partsText(data, maxLength, func(name string) bool {
		return strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml")
	})
}

// partsText concatenates the text nodes of the matching archive parts,
// ordered by the number in their name. The decompressed parts together may
// not exceed maxLength.
func partsText(data []byte, maxLength int64, match func(string) bool) (string, error) {
	zr, err := openZip(data)
	if err != nil {
		return "", err
	}

	var parts []*zip.File
	for _, f := range zr.File {
		if match(f.Name) {
			parts = append(parts, f)
		}
	}
	sort.SliceStable(parts, func(i, j int) bool {
		return partNumber(parts[i].Name) < partNumber(parts[j].Name)
	})

	var out []string
	budget := maxLength
	for _, f := range parts {
		content, err := readZipFile(f, budget)
		if err != nil {
			return "", fmt.Errorf("%s: %w", f.Name, err)
		}
		if budget >= 0 {
			budget -= int64(len(content))
		}
		if text := xmlText(content); text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n"), nil
}

// partNumber returns the trailing number of "xl/worksheets/sheet12.xml".
func partNumber(name string) int {
	base := strings.TrimSuffix(name[strings.LastIndex(name, "/")+1:], ".xml")
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(base[i:])
	if err != nil {
		return -1
	}
	return n
}

// xmlText collects every non-blank text node, space separated.
func xmlText(data []byte) string {
	var b strings.Builder
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if cd, ok := token.(xml.CharData); ok {
			content := string(cd)
			if strings.TrimSpace(content) == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(cleanText(content))
		}
	}
	return b.String()
}

// cleanText collapses whitespace and drops non-printable runes.
func cleanText(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsPrint(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
