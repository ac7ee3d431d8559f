package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Word (.docx) contracts.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Priority ranks docx above the plain-text fallback.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the paragraph text of a Word document. The title
// comes from the document properties when set.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive", domain.ErrInvalidInput)
	}

	content, err := extractDocumentText(reader)
	if err != nil {
		return nil, err
	}

	return &driven.NormaliseResult{
		Title:   extractTitle(reader),
		Content: content,
		Format:  "docx",
	}, nil
}

// maxEntrySize bounds how much of one archive entry is read.
const maxEntrySize = 32 << 20

// extractDocumentText extracts text from word/document.xml.
// A document without a body yields ErrInvalidInput.
func extractDocumentText(reader *zip.Reader) (string, error) {
	content, err := readEntry(reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	if content == nil {
		return "", fmt.Errorf("%w: word/document.xml missing", domain.ErrInvalidInput)
	}
	return parseDocumentXML(content), nil
}

// parseDocumentXML streams the WordprocessingML body and writes one line
// per non-empty paragraph, table-cell paragraphs included. Tabs become
// spaces and manual breaks become newlines. Malformed XML yields "".
func parseDocumentXML(content []byte) string {
	var (
		lines  []string
		para   strings.Builder
		inText bool
	)
	flush := func() {
		if line := strings.TrimSpace(para.String()); line != "" {
			lines = append(lines, line)
		}
		para.Reset()
	}

	dec := xml.NewDecoder(bytes.NewReader(content))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ""
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte(' ')
			case "br", "cr":
				flush()
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				para.Write(el)
			}
		}
	}
	flush()
	return strings.Join(lines, "\n")
}

// coreXML is the part of docProps/core.xml that carries the title.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle returns the title from docProps/core.xml, if any.
func extractTitle(reader *zip.Reader) string {
	content, err := readEntry(reader, "docProps/core.xml")
	if err != nil || content == nil {
		return ""
	}
	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

// readEntry returns the bytes of a named archive entry, or nil if absent.
func readEntry(reader *zip.Reader, name string) ([]byte, error) {
	f, err := reader.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s", domain.ErrInvalidInput, name)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxEntrySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s", domain.ErrInvalidInput, name)
	}
	return content, nil
}
