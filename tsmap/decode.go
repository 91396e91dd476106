// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"errors"
	"fmt"

	"github.com/ohler55/ojg/oj"
)

// Decode parses raw map text into its source entries, in map order.
// Index maps are flattened section by section.
func Decode(text string) ([]SourceEntry, error) {
	doc, err := oj.ParseString(text)
	if err != nil {
		return nil, &MapFormatError{Msg: "malformed JSON", Err: err}
	}
	sm, err := readMap(doc, "")
	if err != nil {
		return nil, err
	}
	return sm.entries(nil), nil
}

func (sm *sourceMap) entries(out []SourceEntry) []SourceEntry {
	if sm.Sections != nil {
		for i := range sm.Sections {
			out = sm.Sections[i].entries(out)
		}
		return out
	}
	for i, s := range sm.Sources {
		e := SourceEntry{Source: joinMaybe(sm.SourceRoot, s)}
		if i < len(sm.SourcesContent) {
			e.Content = sm.SourcesContent[i]
		}
		out = append(out, e)
	}
	return out
}

// readMap checks the generic tree field by field. where prefixes messages
// for nested section maps.
func readMap(doc any, where string) (*sourceMap, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, formatErr("%sdocument is not an object", where)
	}
	var sm sourceMap

	v, err := readVersion(obj["version"])
	if err != nil {
		return nil, formatErr("%s%v", where, err)
	}
	sm.Version = v
	if sm.File, ok = optString(obj, "file"); !ok {
		return nil, formatErr("%s\"file\" is not a string", where)
	}

	if raw, has := obj["sections"]; has {
		secs, ok := raw.([]any)
		if !ok {
			return nil, formatErr("%s\"sections\" is not an array", where)
		}
		sm.Sections = make([]sourceMap, 0, len(secs))
		for i, s := range secs {
			sub, err := readSection(s, fmt.Sprintf("%ssections[%d]: ", where, i))
			if err != nil {
				return nil, err
			}
			sm.Sections = append(sm.Sections, *sub)
		}
		return &sm, nil
	}

	if sm.SourceRoot, ok = optString(obj, "sourceRoot"); !ok {
		return nil, formatErr("%s\"sourceRoot\" is not a string", where)
	}
	mappings, ok := obj["mappings"].(string)
	if !ok {
		return nil, formatErr("%smissing \"mappings\"", where)
	}
	sm.Mappings = mappings

	rawSources, ok := obj["sources"].([]any)
	if !ok {
		return nil, formatErr("%smissing \"sources\"", where)
	}
	sm.Sources = make([]string, len(rawSources))
	for i, s := range rawSources {
		str, ok := s.(string)
		if !ok {
			return nil, formatErr("%ssources[%d] is not a string", where, i)
		}
		sm.Sources[i] = str
	}

	switch rc := obj["sourcesContent"].(type) {
	case nil:
	case []any:
		sm.SourcesContent = make([]*string, len(rc))
		for i, c := range rc {
			switch c := c.(type) {
			case nil:
			case string:
				sm.SourcesContent[i] = &c
			default:
				return nil, formatErr("%ssourcesContent[%d] is neither a string nor null", where, i)
			}
		}
	default:
		return nil, formatErr("%s\"sourcesContent\" is not an array", where)
	}
	return &sm, nil
}

func readSection(doc any, where string) (*sourceMap, error) {
	sec, ok := doc.(map[string]any)
	if !ok {
		return nil, formatErr("%ssection is not an object", where)
	}
	if _, has := sec["url"]; has {
		return nil, formatErr("%ssections referencing a url are not supported", where)
	}
	m, has := sec["map"]
	if !has {
		return nil, formatErr("%smissing \"map\"", where)
	}
	return readMap(m, where)
}

func readVersion(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		if n == 3 {
			return 3, nil
		}
		return 0, fmt.Errorf("unsupported version %d", n)
	case float64:
		if n == 3 {
			return 3, nil
		}
		return 0, fmt.Errorf("unsupported version %v", n)
	case nil:
		return 0, errors.New("missing \"version\"")
	default:
		return 0, errors.New("\"version\" is not a number")
	}
}

// optString returns ("", true) for a missing or null key.
func optString(obj map[string]any, key string) (string, bool) {
	switch s := obj[key].(type) {
	case nil:
		return "", true
	case string:
		return s, true
	default:
		return "", false
	}
}
