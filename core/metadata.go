package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/smarty/repofiles/contracts"
)

// MetadataDecoder decodes one entry's opaque metadata payload into target.
type MetadataDecoder func(data []byte, target any) error

// DefaultMetadataDecoder matches JSON keys to struct fields without regard
// to case.
func DefaultMetadataDecoder(data []byte, target any) error {
	return json.Unmarshal(data, target)
}

func StrictMetadataDecoder(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func YAMLMetadataDecoder(data []byte, target any) error {
	return yaml.Unmarshal(data, target)
}

// ParseTypedManifest parses like ParseManifest and then decodes each
// entry's metadata into a T. Entries without metadata (or with blank
// metadata) get a nil Metadata; metadata that cannot be decoded fails the
// whole parse.
func ParseTypedManifest[T any](raw []byte, decoder MetadataDecoder) ([]contracts.TypedManifestEntry[T], error) {
	entries, err := ParseManifest(raw)
	if err != nil {
		return nil, err
	}
	return ProjectMetadata[T](entries, decoder)
}

func ProjectMetadata[T any](entries []contracts.ManifestEntry, decoder MetadataDecoder) ([]contracts.TypedManifestEntry[T], error) {
	if decoder == nil {
		decoder = DefaultMetadataDecoder
	}
	typed := make([]contracts.TypedManifestEntry[T], 0, len(entries))
	for _, entry := range entries {
		item := contracts.TypedManifestEntry[T]{ManifestEntry: entry}
		if entry.HasMetadata && strings.TrimSpace(entry.MetadataJSON) != "" {
			item.Metadata = new(T)
			if err := decoder([]byte(entry.MetadataJSON), item.Metadata); err != nil {
				return nil, &contracts.FormatError{
					Field:  metadataField,
					Reason: "cannot decode metadata of '" + entry.Filename + "'",
					Err:    err,
				}
			}
		}
		typed = append(typed, item)
	}
	return typed, nil
}
