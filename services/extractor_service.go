package services

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// InitPDFLicense registers the Unidoc license key. Extraction fails without a
// valid key, so this is called once at startup.
func InitPDFLicense(key string) {
	if err := license.SetMeteredKey(key); err != nil {
		log.Printf("ERROR: failed to set Unidoc license key: %v. PDF processing will fail.", err)
	}
}

// ExtractTextFromPDF returns all text of a PDF given its raw bytes, pages
// separated by blank lines. Unreadable input and text-free PDFs both surface
// as ErrTextExtraction.
func ExtractTextFromPDF(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: not a readable pdf: %v", ErrTextExtraction, err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("%w: could not read page count: %v", ErrTextExtraction, err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("%w: could not read page %d: %v", ErrTextExtraction, i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("%w: could not create extractor for page %d: %v", ErrTextExtraction, i, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("%w: could not extract text from page %d: %v", ErrTextExtraction, i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: pdf contains no extractable text", ErrTextExtraction)
	}
	return sb.String(), nil
}
