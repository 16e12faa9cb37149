// ABOUTME: Text extraction for contract files (PDF, DOCX, plain text)
// ABOUTME: Produces a Document of raw blocks plus the file's SHA-256 for duplicate detection
package extract

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harper/redliner/internal/models"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file extensions no extractor handles
var ErrUnsupportedFormat = errors.New("unsupported document format")

// blockSep terminates every block so paragraph breaks survive concatenation
const blockSep = "\n\n"

// Load reads path and returns a PENDING document with one block per page
// (PDF), paragraph (DOCX) or blank-line separated chunk (text).
func Load(path string) (*models.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var blocks []string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		blocks, err = pdfBlocks(path)
	case ".docx":
		blocks, err = docxBlocks(raw)
	case ".txt", ".md", ".text":
		blocks = TextBlocks(string(raw))
	default:
		return nil, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	return &models.Document{
		ID:         uuid.New().String(),
		Filename:   filepath.Base(path),
		SHA256:     Checksum(raw),
		Blocks:     blocks,
		IngestedAt: time.Now().UTC(),
		Status:     models.StatusPending,
	}, nil
}

// FromText wraps already-extracted text as a document
func FromText(name, text string) *models.Document {
	return &models.Document{
		ID:         uuid.New().String(),
		Filename:   name,
		SHA256:     Checksum([]byte(text)),
		Blocks:     TextBlocks(text),
		IngestedAt: time.Now().UTC(),
		Status:     models.StatusPending,
	}
}

// Checksum returns the hex SHA-256 of data
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TextBlocks splits text on blank lines. Line endings are normalized to \n.
func TextBlocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.Trim(part, "\n")
		if strings.TrimSpace(part) == "" {
			continue
		}
		blocks = append(blocks, part+blockSep)
	}
	return blocks
}

func pdfBlocks(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var blocks []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		blocks = append(blocks, text+blockSep)
	}
	return blocks, nil
}

// docxBlocks reads word/document.xml and emits one block per w:p paragraph
func docxBlocks(raw []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open DOCX: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, errors.New("DOCX has no word/document.xml")
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document body: %w", err)
	}
	defer rc.Close()

	return paragraphs(rc)
}

func paragraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		blocks []string
		cur    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(cur.String()); s != "" {
					blocks = append(blocks, s+blockSep)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return blocks, nil
}
