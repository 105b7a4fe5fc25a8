// Package exporter serializes a feed to the aggregator XML format and
// publishes it atomically.
package exporter

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ratefeed/internal/feed"
)

type xmlItem struct {
	From      string `xml:"from"`
	To        string `xml:"to"`
	In        string `xml:"in"`
	Out       string `xml:"out"`
	Amount    string `xml:"amount"`
	MinAmount string `xml:"minamount"`
	MaxAmount string `xml:"maxamount"`
	Param     string `xml:"param"`
}

type xmlRates struct {
	XMLName   xml.Name  `xml:"rates"`
	Generated string    `xml:"generated,attr"`
	Count     int       `xml:"count,attr"`
	Items     []xmlItem `xml:"item"`
}

// Render serializes a feed to UTF-8 XML. The same feed always renders to
// the same bytes; only GeneratedAt varies between cycles. Reserved XML
// characters in text content are escaped by the encoder.
func Render(f feed.Feed) ([]byte, error) {
	doc := xmlRates{
		Generated: f.GeneratedAt.Format(time.RFC3339),
		Count:     f.Count(),
		Items:     make([]xmlItem, 0, f.Count()),
	}
	for _, e := range f.Entries {
		doc.Items = append(doc.Items, xmlItem{
			From:      e.From,
			To:        e.To,
			In:        e.In.String(),
			Out:       e.Out.String(),
			Amount:    e.Amount.String(),
			MinAmount: e.MinAmount.String(),
			MaxAmount: e.MaxAmount.String(),
			Param:     e.Param,
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed: %w", err)
	}

	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// Publish writes the artifact to path atomically: the bytes go to a
// temporary file in the destination directory, are flushed to disk, and
// the temp file is renamed over the destination in one step. A reader of
// path never observes a partial write; if the rename fails the previous
// artifact stays in place.
func Publish(data []byte, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rates-*.xml.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace artifact: %w", err)
	}
	return nil
}
