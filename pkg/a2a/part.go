package a2a

import (
	"encoding/base64"

	"github.com/openagentic/a2a-core/pkg/errors"
)

/*
Part is a discriminated union over Text, File and Data parts.  We keep it
simple by embedding all optional fields in a single struct – this avoids
heavy custom JSON marshalling logic while remaining spec‑compliant.

Exactly ONE of Text, File, or Data should be populated according to the
Kind field. Validate enforces the structural constraints that matter on
the wire, most importantly the bytes-xor-uri rule for file content.
*/
type Part struct {
	Kind PartKind `json:"kind"`

	// Exactly one of the following should be populated depending on Kind.
	Text string         `json:"text,omitempty"`
	File *FileContent   `json:"file,omitempty"`
	Data map[string]any `json:"data,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// PartKind is the discriminator for a Part union.
type PartKind string

const (
	PartKindText PartKind = "text"
	PartKindFile PartKind = "file"
	PartKindData PartKind = "data"
)

/*
FileContent carries either inline base64 bytes or an absolute URI –
never both, never neither.
*/
type FileContent struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// Validate enforces the bytes-xor-uri rule.
func (f *FileContent) Validate() *errors.RpcError {
	if f.Bytes == "" && f.URI == "" {
		return errors.ErrInvalidRequest.WithMessagef("file part must carry either bytes or uri")
	}
	if f.Bytes != "" && f.URI != "" {
		return errors.ErrInvalidRequest.WithMessagef("file part must not carry both bytes and uri")
	}
	return nil
}

func NewTextPart(text string) Part {
	return Part{
		Kind: PartKindText,
		Text: text,
	}
}

func NewFilePart(name string, mimeType string, data []byte) Part {
	return Part{
		Kind: PartKindFile,
		File: &FileContent{
			Name:     name,
			MimeType: mimeType,
			Bytes:    base64.StdEncoding.EncodeToString(data),
		},
	}
}

func NewFileURIPart(name string, mimeType string, uri string) Part {
	return Part{
		Kind: PartKindFile,
		File: &FileContent{
			Name:     name,
			MimeType: mimeType,
			URI:      uri,
		},
	}
}

func NewDataPart(data map[string]any) Part {
	return Part{
		Kind: PartKindData,
		Data: data,
	}
}

// Validate checks the part against its declared kind.
func (p *Part) Validate() *errors.RpcError {
	switch p.Kind {
	case PartKindText, PartKindData:
		return nil
	case PartKindFile:
		if p.File == nil {
			return errors.ErrInvalidRequest.WithMessagef("file part missing file content")
		}
		return p.File.Validate()
	default:
		return errors.ErrInvalidRequest.WithMessagef("unknown part kind %q", p.Kind)
	}
}

// Clone produces an owned deep copy of the part.
func (p Part) Clone() Part {
	out := p
	if p.File != nil {
		file := *p.File
		out.File = &file
	}
	out.Data = cloneMap(p.Data)
	out.Metadata = cloneMap(p.Metadata)
	return out
}

func cloneParts(parts []Part) []Part {
	if parts == nil {
		return nil
	}
	out := make([]Part, len(parts))
	for i, p := range parts {
		out[i] = p.Clone()
	}
	return out
}

// cloneMap copies one level of map structure. Nested maps and slices are
// copied recursively so callers never share mutable substructure with the
// stored state.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return cloneMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
