package backend

import (
	"bytes"
	"cmp"
	"encoding/json"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

// UnprocessableContent is the answer text used when a reply carries nothing
// readable (JSON null, a number or a boolean).
const UnprocessableContent = "The API response could not be processed correctly."

// ContentKeys are checked in order for the answer text.
var ContentKeys = []string{"LLM", "response", "message", "content", "text", "answer", "result"}

// Answer is a chat reply from the backend.
type Answer struct {
	Content       string
	MessageID     string
	SQLQuery      any
	ExecutionTime any
	AffectedRows  any
	Raw           json.RawMessage
}

type field struct {
	key   string
	value json.RawMessage
}

// ParseAnswer extracts the answer text and metadata from a /api/response body.
func ParseAnswer(body []byte) Answer {
	ans := Answer{
		Content: ExtractContent(body),
		Raw:     Normalize(body),
	}

	fields, isObject, ok := topLevelFields(body)
	if !ok || !isObject {
		return ans
	}
	for _, f := range fields {
		switch f.key {
		case "message_id":
			ans.MessageID = scalarText(f.value)
		case "sql_query":
			ans.SQLQuery = decodeAny(f.value)
		case "execution_time":
			ans.ExecutionTime = decodeAny(f.value)
		case "affected_rows":
			ans.AffectedRows = decodeAny(f.value)
		}
	}
	return ans
}

// ExtractContent picks the displayable text out of a backend reply:
//
//  1. a non-JSON body is returned as-is, a JSON string is unquoted
//  2. the first truthy ContentKeys value; non-strings are JSON-encoded
//  3. the first non-blank string value, in property order
//  4. the whole document indented by two spaces
//
// Property order is the one a browser enumerates: array-index keys
// ascending, then the remaining keys as they first appear. Arrays are
// handled like objects whose values are the elements. null, numbers and
// booleans yield UnprocessableContent.
func ExtractContent(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return string(body)
	}

	switch trimmed[0] {
	case '"':
		var s string
		_ = json.Unmarshal(trimmed, &s)
		return s
	case '{', '[':
	default:
		return UnprocessableContent
	}

	fields, isObject, _ := topLevelFields(trimmed)

	if isObject {
		fields = orderFields(fields)
		for _, key := range ContentKeys {
			v, found := lookup(fields, key)
			if !found || !truthy(v) {
				continue
			}
			if s, isString := stringValue(v); isString {
				return s
			}
			return string(propertyOrdered(v))
		}
	}

	for _, f := range fields {
		if s, isString := stringValue(f.value); isString && strings.TrimSpace(s) != "" {
			return s
		}
	}

	var out bytes.Buffer
	if err := json.Indent(&out, propertyOrdered(trimmed), "", "  "); err != nil {
		return string(trimmed)
	}
	return out.String()
}

// topLevelFields lists the direct members of a JSON object or array in
// document order. Array members have their index as key.
func topLevelFields(body []byte) (fields []field, isObject bool, ok bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false, false
	}
	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return nil, false, false
	}

	isObject = delim == '{'
	for i := 0; dec.More(); i++ {
		key := strconv.Itoa(i)
		if isObject {
			kt, err := dec.Token()
			if err != nil {
				return fields, isObject, false
			}
			key, _ = kt.(string)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return fields, isObject, false
		}
		fields = append(fields, field{key: key, value: raw})
	}
	return fields, isObject, true
}

// orderFields puts object members in property order. A repeated key keeps
// its first position and its last value.
func orderFields(fields []field) []field {
	pos := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, seen := pos[f.key]; seen {
			out[i].value = f.value
			continue
		}
		pos[f.key] = len(out)
		out = append(out, f)
	}
	slices.SortStableFunc(out, func(a, b field) int {
		ai, aIndex := arrayIndex(a.key)
		bi, bIndex := arrayIndex(b.key)
		switch {
		case aIndex && bIndex:
			return cmp.Compare(ai, bi)
		case aIndex:
			return -1
		case bIndex:
			return 1
		}
		return 0
	})
	return out
}

// arrayIndex reports whether key is a canonical integer below 2^32-1.
func arrayIndex(key string) (uint64, bool) {
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 || strconv.FormatUint(n, 10) != key {
		return 0, false
	}
	return n, true
}

// propertyOrdered re-encodes v compactly with every nested object in
// property order.
func propertyOrdered(v json.RawMessage) []byte {
	fields, isObject, ok := topLevelFields(v)
	if !ok {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return v
		}
		return buf.Bytes()
	}

	open, end := byte('['), byte(']')
	if isObject {
		fields = orderFields(fields)
		open, end = '{', '}'
	}

	var buf bytes.Buffer
	buf.WriteByte(open)
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if isObject {
			buf.Write(quote(f.key))
			buf.WriteByte(':')
		}
		buf.Write(propertyOrdered(f.value))
	}
	buf.WriteByte(end)
	return buf.Bytes()
}

func quote(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// lookup returns the last value stored under key, as a JSON parser building a
// map would.
func lookup(fields []field, key string) (json.RawMessage, bool) {
	var (
		v     json.RawMessage
		found bool
	)
	for _, f := range fields {
		if f.key == key {
			v, found = f.value, true
		}
	}
	return v, found
}

func truthy(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return false
	}
	switch v[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		return len(v) > 2
	default:
		f, err := strconv.ParseFloat(string(v), 64)
		return err == nil && f != 0
	}
}

func stringValue(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// scalarText returns a string or number value as text; anything else is "".
func scalarText(v json.RawMessage) string {
	if s, ok := stringValue(v); ok {
		return s
	}
	v = bytes.TrimSpace(v)
	if _, err := strconv.ParseFloat(string(v), 64); err == nil && string(v) != "0" {
		return string(v)
	}
	return ""
}

func decodeAny(v json.RawMessage) any {
	var out any
	if err := json.Unmarshal(v, &out); err != nil {
		return nil
	}
	return out
}
