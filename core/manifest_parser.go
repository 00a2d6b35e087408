package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smarty/repofiles/contracts"
)

const (
	filenameField   = "filename"
	urlField        = "url"
	sizeField       = "size"
	modifyDateField = "modifydate"
	metadataField   = "metadata"
	noteField       = "note"
)

var byteOrderMark = []byte("\xef\xbb\xbf")

// ReadManifest reads the whole stream and parses it with ParseManifest.
func ReadManifest(reader io.Reader) ([]contracts.ManifestEntry, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(raw)
}

// ParseManifest converts a JSON manifest into entries, in manifest order.
// Property names are matched case-insensitively, non-object array
// elements are skipped and sizes may be numbers or numeric strings.
func ParseManifest(raw []byte) ([]contracts.ManifestEntry, error) {
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}
	entries := make([]contracts.ManifestEntry, 0, len(records))
	for _, record := range records {
		entry, err := record.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeRecords(raw []byte) (records []manifestRecord, err error) {
	raw = bytes.TrimPrefix(raw, byteOrderMark)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &contracts.FormatError{Reason: "manifest is empty"}
	}

	var root json.RawMessage
	if err = json.Unmarshal(raw, &root); err != nil {
		return nil, &contracts.FormatError{Reason: "manifest is not valid JSON", Err: err}
	}
	if kindOf(root) != arrayKind {
		return nil, &contracts.FormatError{Reason: "manifest root must be a JSON array"}
	}

	var elements []json.RawMessage
	if err = json.Unmarshal(root, &elements); err != nil {
		return nil, &contracts.FormatError{Reason: "manifest root must be a JSON array", Err: err}
	}
	for _, element := range elements {
		if kindOf(element) != objectKind {
			continue
		}
		var record manifestRecord
		if err = json.Unmarshal(element, &record); err != nil {
			return nil, &contracts.FormatError{Reason: "malformed manifest record", Err: err}
		}
		records = append(records, record)
	}
	return records, nil
}

///////////////////////////////////////////////////////////////////////////////

// manifestRecord is the generic key/value view of one manifest object.
type manifestRecord map[string]json.RawMessage

func (this manifestRecord) entry() (entry contracts.ManifestEntry, err error) {
	if entry.Filename, err = this.requiredString(filenameField); err != nil {
		return entry, err
	}
	if strings.TrimSpace(entry.Filename) == "" {
		return entry, &contracts.FormatError{Field: filenameField, Reason: "must not be blank"}
	}
	if entry.URL, _, err = this.optionalString(urlField); err != nil {
		return entry, err
	}
	if entry.Size, err = this.size(sizeField); err != nil {
		return entry, err
	}
	if entry.ModifyDate, err = this.modifyDate(modifyDateField); err != nil {
		return entry, err
	}
	entry.MetadataJSON, entry.HasMetadata, err = this.metadata()
	return entry, err
}

// lookup finds a property regardless of casing. An exact lowercase key
// wins; otherwise the lexically first case-insensitive match is used.
func (this manifestRecord) lookup(name string) (json.RawMessage, bool) {
	if value, found := this[name]; found {
		return value, true
	}
	keys := make([]string, 0, len(this))
	for key := range this {
		if strings.EqualFold(key, name) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)
	return this[keys[0]], true
}

func (this manifestRecord) requiredString(name string) (string, error) {
	value, found := this.lookup(name)
	if !found {
		return "", &contracts.FormatError{Field: name, Reason: "missing required property"}
	}
	return readString(name, value)
}

func (this manifestRecord) optionalString(name string) (string, bool, error) {
	value, found := this.lookup(name)
	if !found {
		return "", false, nil
	}
	text, err := readString(name, value)
	return text, err == nil, err
}

func (this manifestRecord) size(name string) (int64, error) {
	value, found := this.lookup(name)
	if !found {
		return 0, &contracts.FormatError{Field: name, Reason: "missing required property"}
	}
	return readSize(name, value)
}

func (this manifestRecord) modifyDate(name string) (time.Time, error) {
	value, found := this.lookup(name)
	if !found {
		return contracts.UnknownModifyDate, nil
	}
	return readModifyDate(name, value)
}

// metadata reads the metadata (or note) string verbatim. A blank value
// counts as absent.
func (this manifestRecord) metadata() (string, bool, error) {
	name := noteField
	if _, found := this.lookup(metadataField); found {
		name = metadataField
	}
	text, found, err := this.optionalString(name)
	return text, found && strings.TrimSpace(text) != "", err
}

///////////////////////////////////////////////////////////////////////////////

func readString(name string, value json.RawMessage) (string, error) {
	if kindOf(value) != stringKind {
		return "", &contracts.FormatError{Field: name, Reason: "must be a string"}
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return "", &contracts.FormatError{Field: name, Reason: "must be a string", Err: err}
	}
	return text, nil
}

// readSize accepts a JSON integer or a string holding a base-10 integer.
func readSize(name string, value json.RawMessage) (size int64, err error) {
	switch kindOf(value) {
	case numberKind:
		size, err = strconv.ParseInt(string(value), 10, 64)
	case stringKind:
		var text string
		if err = json.Unmarshal(value, &text); err == nil {
			size, err = strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		}
	default:
		return 0, &contracts.FormatError{Field: name, Reason: "must be a number"}
	}
	if err != nil {
		return 0, &contracts.FormatError{Field: name, Reason: "must be a number", Err: err}
	}
	if size < 0 {
		return 0, &contracts.FormatError{Field: name, Reason: "must not be negative"}
	}
	return size, nil
}

func readModifyDate(name string, value json.RawMessage) (time.Time, error) {
	if kindOf(value) != stringKind {
		return contracts.UnknownModifyDate, &contracts.FormatError{Field: name, Reason: "must be a valid date string"}
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return contracts.UnknownModifyDate, &contracts.FormatError{Field: name, Reason: "must be a valid date string", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return contracts.UnknownModifyDate, nil
	}
	parsed, err := ParseTimestamp(text)
	if err != nil {
		return contracts.UnknownModifyDate, &contracts.FormatError{Field: name, Reason: "must be a valid date string", Err: err}
	}
	return parsed, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
	time.RFC1123Z,
	time.RFC1123,
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// ParseTimestamp reads the ISO-8601 style timestamps found in manifests,
// plus month/day/year text such as "1/15/2024 10:00:00 AM". Text without
// an offset is taken to be UTC; the result is always UTC.
func ParseTimestamp(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", text)
}

///////////////////////////////////////////////////////////////////////////////

type jsonKind int

const (
	invalidKind jsonKind = iota
	objectKind
	arrayKind
	stringKind
	numberKind
	literalKind
)

func kindOf(value json.RawMessage) jsonKind {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return invalidKind
	}
	switch first := trimmed[0]; {
	case first == '{':
		return objectKind
	case first == '[':
		return arrayKind
	case first == '"':
		return stringKind
	case first == '-' || (first >= '0' && first <= '9'):
		return numberKind
	default:
		return literalKind
	}
}
