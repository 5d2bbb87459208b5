package excel

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"excel-insights-api/pkg/errors"

	"github.com/richardlehane/mscfb"
)

type Format string

const (
	FormatUnknown Format = "unknown"
	FormatOOXML   Format = "ooxml"
	FormatLegacy  Format = "legacy"
	FormatCSV     Format = "csv"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Sniff identifies the container format from the leading bytes. CSV has no
// signature and is never returned here.
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatOOXML
	case bytes.HasPrefix(data, oleMagic):
		return FormatLegacy
	default:
		return FormatUnknown
	}
}

// DetectFormat sniffs data and falls back to CSV for a .csv filename only
// when the bytes carry no container signature.
func DetectFormat(data []byte, filename string) Format {
	format := Sniff(data)
	if format == FormatUnknown && strings.EqualFold(filepath.Ext(filename), ".csv") {
		return FormatCSV
	}
	return format
}

// checkCompoundFile walks an OLE2 compound file and accepts it only when it
// carries a BIFF workbook stream. Encrypted OOXML packages share the
// container and are rejected here.
func checkCompoundFile(data []byte) error {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return errors.ParseError{Err: fmt.Errorf("read compound file: %w", errors.ErrInvalidFileFormat)}
	}

	found := false
	for {
		entry, err := doc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.ParseError{Err: fmt.Errorf("read compound file entry: %w", errors.ErrInvalidFileFormat)}
		}
		switch entry.Name {
		case "Workbook", "Book":
			found = true
		case "EncryptedPackage":
			return errors.ParseError{Err: errors.ErrEncryptedWorkbook}
		}
	}

	if !found {
		return errors.ParseError{Err: fmt.Errorf("compound file has no workbook stream: %w", errors.ErrInvalidFileFormat)}
	}
	return nil
}
