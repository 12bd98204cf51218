package dtube

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Metadata is the part of a DTube post's json_metadata the pinner relies on:
//
//	{"video":{"info":{"snaphash":"..","spritehash":".."},"content":{"videohash":"..","video480hash":".."}}}
type Metadata struct {
	Video Video
}

type Video struct {
	Info    VideoInfo
	Content VideoContent
}

type VideoInfo struct {
	Snaphash   string
	Spritehash string
}

type VideoContent struct {
	Videohash    string
	Video480hash string
}

// SchemaError is returned when json_metadata does not match Metadata.
type SchemaError struct {
	Raw string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid dtube metadata: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ParseMetadata parses raw into Metadata. Every level and all four hash keys
// must be present with string values, otherwise the whole document is rejected.
// Keys match exactly; differently cased keys count as unknown and are ignored.
func ParseMetadata(raw string) (*Metadata, error) {
	root, err := object(json.RawMessage(raw), "")
	if err != nil {
		return nil, &SchemaError{Raw: raw, Err: err}
	}

	video, err := child(root, "video")
	if err != nil {
		return nil, &SchemaError{Raw: raw, Err: err}
	}
	info, err := child(video, "video.info")
	if err != nil {
		return nil, &SchemaError{Raw: raw, Err: err}
	}
	content, err := child(video, "video.content")
	if err != nil {
		return nil, &SchemaError{Raw: raw, Err: err}
	}

	var meta Metadata
	fields := []struct {
		obj  map[string]json.RawMessage
		path string
		dst  *string
	}{
		{info, "video.info.snaphash", &meta.Video.Info.Snaphash},
		{info, "video.info.spritehash", &meta.Video.Info.Spritehash},
		{content, "video.content.videohash", &meta.Video.Content.Videohash},
		{content, "video.content.video480hash", &meta.Video.Content.Video480hash},
	}
	for _, f := range fields {
		value, ok := lookup(f.obj, f.path)
		if !ok {
			return nil, schemaErr(raw, "missing field `"+f.path+"`")
		}
		if err := json.Unmarshal(value, f.dst); err != nil {
			return nil, &SchemaError{Raw: raw, Err: fmt.Errorf("field `%s`: %w", f.path, err)}
		}
	}

	return &meta, nil
}

func object(data json.RawMessage, path string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		if path == "" {
			return nil, err
		}
		return nil, fmt.Errorf("field `%s`: %w", path, err)
	}
	return obj, nil
}

// child returns the object stored under the last segment of path.
func child(parent map[string]json.RawMessage, path string) (map[string]json.RawMessage, error) {
	value, ok := lookup(parent, path)
	if !ok {
		return nil, fmt.Errorf("missing field `%s`", path)
	}
	return object(value, path)
}

// lookup treats an explicit null like an absent key.
func lookup(obj map[string]json.RawMessage, path string) (json.RawMessage, bool) {
	value, ok := obj[path[strings.LastIndex(path, ".")+1:]]
	if !ok || string(bytes.TrimSpace(value)) == "null" {
		return nil, false
	}
	return value, true
}

func schemaErr(raw, msg string) error {
	return &SchemaError{Raw: raw, Err: errors.New(msg)}
}
