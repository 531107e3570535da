// =============================================================================
// Invoice Ledger - OOXML Package Access
// =============================================================================
//
// A .docx file is a zip archive of XML parts. The extractor only needs to read
// word/document.xml; the word-template writer needs to rewrite it and hand
// back the archive with every other part untouched and in its original order.
//
// =============================================================================

package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

// Part names used by this module.
const (
	ContentTypesPart = "[Content_Types].xml"
	DocumentPart     = "word/document.xml"
)

// Package is an in-memory OOXML archive.
type Package struct {
	names []string
	parts map[string][]byte
}

// Open reads a .docx archive and checks the parts every WordprocessingML
// package must carry.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	p := &Package{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		p.names = append(p.names, f.Name)
		p.parts[f.Name] = content
	}

	for _, name := range []string{ContentTypesPart, DocumentPart} {
		if _, ok := p.parts[name]; !ok {
			return nil, fmt.Errorf("missing required part: %s", name)
		}
	}
	return p, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Part returns the content of a part.
func (p *Package) Part(name string) ([]byte, bool) {
	b, ok := p.parts[name]
	return b, ok
}

// SetPart replaces or adds a part.
func (p *Package) SetPart(name string, content []byte) {
	if _, ok := p.parts[name]; !ok {
		p.names = append(p.names, name)
	}
	p.parts[name] = content
}

// Bytes serializes the package, keeping the original part order.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range p.names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create part %s: %w", name, err)
		}
		if _, err := w.Write(p.parts[name]); err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish zip archive: %w", err)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// MINIMAL PACKAGE BUILDER
// =============================================================================

const minimalContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const minimalRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// WordNamespace is the WordprocessingML main namespace.
const WordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// BuildDocx wraps body markup (the children of w:body) into a minimal but
// valid .docx archive. Fixtures and generated templates use it.
func BuildDocx(bodyXML string) ([]byte, error) {
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="` + WordNamespace + `"` +
		` xmlns:wps="http://schemas.microsoft.com/office/word/2010/wordprocessingShape"` +
		` xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006"` +
		` xmlns:v="urn:schemas-microsoft-com:vml">` +
		`<w:body>` + bodyXML + `</w:body></w:document>`

	p := &Package{parts: map[string][]byte{}}
	p.SetPart(ContentTypesPart, []byte(minimalContentTypes))
	p.SetPart("_rels/.rels", []byte(minimalRels))
	p.SetPart(DocumentPart, []byte(document))
	return p.Bytes()
}
