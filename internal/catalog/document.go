// Package catalog assembles and validates the STAC catalog of a release directory.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// STAC object types.
const (
	TypeCatalog    = "Catalog"
	TypeCollection = "Collection"
	TypeItem       = "Feature"
)

// Link relations.
const (
	RelSelf       = "self"
	RelRoot       = "root"
	RelParent     = "parent"
	RelChild      = "child"
	RelItem       = "item"
	RelCollection = "collection"
)

// Media types.
const (
	MediaTypeJSON    = "application/json"
	MediaTypeGeoJSON = "application/geo+json"
)

const (
	fieldType        = "type"
	fieldID          = "id"
	fieldLinks       = "links"
	fieldTitle       = "title"
	fieldStacVersion = "stac_version"
	fieldAssets      = "assets"
	fieldHref        = "href"

	jsonIndent     = "  "
	fileMode       = 0o644
	directoryMode  = 0o755
	errorReadJSON  = "read %s: %w"
	errorDecode    = "decode %s: %w"
	errorEncode    = "encode %s: %w"
	errorWriteJSON = "write %s: %w"
)

// Link is a STAC link. Unknown link fields are carried through unchanged.
type Link struct {
	Rel        string
	Href       string
	Type       string
	Title      string
	Additional map[string]json.RawMessage
}

// UnmarshalJSON decodes a link, keeping unknown fields.
func (link *Link) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	known := []struct {
		key    string
		target *string
	}{
		{key: "rel", target: &link.Rel},
		{key: fieldHref, target: &link.Href},
		{key: fieldType, target: &link.Type},
		{key: fieldTitle, target: &link.Title},
	}
	for _, field := range known {
		raw, present := fields[field.key]
		if !present {
			continue
		}
		if err := json.Unmarshal(raw, field.target); err != nil {
			return fmt.Errorf("link field %s: %w", field.key, err)
		}
		delete(fields, field.key)
	}
	if len(fields) > 0 {
		link.Additional = fields
	}
	return nil
}

// MarshalJSON encodes a link with its unknown fields.
func (link Link) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(link.Additional)+4)
	for key, value := range link.Additional {
		fields[key] = value
	}
	fields["rel"] = link.Rel
	fields[fieldHref] = link.Href
	if link.Type != "" {
		fields[fieldType] = link.Type
	}
	if link.Title != "" {
		fields[fieldTitle] = link.Title
	}
	return json.Marshal(fields)
}

// Object is a STAC catalog, collection or item. Fields other than links are kept verbatim.
type Object struct {
	Fields map[string]json.RawMessage
	Links  []Link
}

// NewObject returns an empty object of the given STAC type.
func NewObject(objectType string) *Object {
	object := &Object{Fields: map[string]json.RawMessage{}}
	object.SetValue(fieldType, objectType)
	return object
}

// UnmarshalJSON decodes an object.
func (object *Object) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	object.Links = nil
	if rawLinks, present := fields[fieldLinks]; present {
		if err := json.Unmarshal(rawLinks, &object.Links); err != nil {
			return fmt.Errorf("links: %w", err)
		}
		delete(fields, fieldLinks)
	}
	object.Fields = fields
	return nil
}

// MarshalJSON encodes an object; keys are emitted in sorted order.
func (object Object) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(object.Fields)+1)
	for key, value := range object.Fields {
		fields[key] = value
	}
	links := object.Links
	if links == nil {
		links = []Link{}
	}
	fields[fieldLinks] = links
	return json.Marshal(fields)
}

// ReadObject reads and decodes a STAC JSON file.
func ReadObject(path string) (*Object, error) {
	// #nosec G304
	content, readError := os.ReadFile(path)
	if readError != nil {
		return nil, fmt.Errorf(errorReadJSON, path, readError)
	}
	object := &Object{}
	if decodeError := json.Unmarshal(content, object); decodeError != nil {
		return nil, fmt.Errorf(errorDecode, path, decodeError)
	}
	return object, nil
}

// WriteFile encodes the object as indented JSON, creating parent directories as needed.
func (object *Object) WriteFile(path string) error {
	encoded, encodeError := json.Marshal(object)
	if encodeError != nil {
		return fmt.Errorf(errorEncode, path, encodeError)
	}
	var indented bytes.Buffer
	if indentError := json.Indent(&indented, encoded, "", jsonIndent); indentError != nil {
		return fmt.Errorf(errorEncode, path, indentError)
	}
	indented.WriteByte('\n')
	if mkdirError := os.MkdirAll(filepath.Dir(path), directoryMode); mkdirError != nil {
		return fmt.Errorf(errorWriteJSON, path, mkdirError)
	}
	if writeError := os.WriteFile(path, indented.Bytes(), fileMode); writeError != nil {
		return fmt.Errorf(errorWriteJSON, path, writeError)
	}
	return nil
}

// Has reports whether the field is present.
func (object *Object) Has(key string) bool {
	_, present := object.Fields[key]
	return present
}

// String returns a string field, or "" when it is absent or not a string.
func (object *Object) String(key string) string {
	raw, present := object.Fields[key]
	if !present {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

// Type returns the STAC object type.
func (object *Object) Type() string {
	return object.String(fieldType)
}

// ID returns the object id.
func (object *Object) ID() string {
	return object.String(fieldID)
}

// Decode unmarshals a field into target.
func (object *Object) Decode(key string, target any) error {
	raw, present := object.Fields[key]
	if !present {
		return fmt.Errorf("field %s is missing", key)
	}
	return json.Unmarshal(raw, target)
}

// SetValue encodes value into the named field. Values that cannot be encoded are ignored;
// callers only pass strings, slices and maps of those.
func (object *Object) SetValue(key string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	if object.Fields == nil {
		object.Fields = map[string]json.RawMessage{}
	}
	object.Fields[key] = encoded
}

// LinksByRel returns the links with the given relation.
func (object *Object) LinksByRel(rel string) []Link {
	var matched []Link
	for _, link := range object.Links {
		if link.Rel == rel {
			matched = append(matched, link)
		}
	}
	return matched
}

// RemoveLinks drops every link whose relation is listed.
func (object *Object) RemoveLinks(rels ...string) {
	kept := object.Links[:0]
	for _, link := range object.Links {
		if containsValue(rels, link.Rel) {
			continue
		}
		kept = append(kept, link)
	}
	object.Links = kept
}

// SetLink replaces every link with link.Rel by the given link.
func (object *Object) SetLink(link Link) {
	object.RemoveLinks(link.Rel)
	object.Links = append(object.Links, link)
}

func containsValue(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
