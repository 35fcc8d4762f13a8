package mrfstream

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	simdjson "github.com/minio/simdjson-go"

	"github.com/danishbarkat/mrfcompare/internal/mrferrors"
	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
)

// useSimd is true when the CPU supports simdjson-go's accelerated path.
var useSimd = simdjson.SupportedCPU()

// DisableSimd forces the encoding/json fallback even on a supporting CPU;
// used by tests that need deterministic, allocation-stable decoding.
func DisableSimd() {
	useSimd = false
}

// Extractor walks the top level of an MRF document and yields in_network
// items one at a time (spec §4.2), or resolves an index file's referenced
// URLs, without ever buffering the full document or the full in_network
// array.
type Extractor struct {
	dec *json.Decoder
}

// NewExtractor wraps r (typically a *Reader) in a streaming decoder.
func NewExtractor(r io.Reader) *Extractor {
	return &Extractor{dec: json.NewDecoder(r)}
}

// Each calls fn once per accepted in_network item (spec §4.2: billing_code_type
// == "CPT" and a non-empty trimmed billing_code). Items failing that
// predicate are skipped without error. fn returning an error stops the walk
// and that error is returned from Each.
func (e *Extractor) Each(fn func(mrfmodel.InNetworkItem) error) error {
	dec := e.dec

	tok, err := dec.Token()
	if err != nil {
		return mrferrors.Parse("reading opening token", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return mrferrors.Parse(fmt.Sprintf("expected '{', got %v", tok), nil)
	}

	var pj *simdjson.ParsedJson

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return mrferrors.Parse("reading key", err)
		}
		key, ok := tok.(string)
		if !ok {
			return mrferrors.Parse(fmt.Sprintf("expected string key, got %T", tok), nil)
		}

		switch key {
		case "in_network":
			pj, err = e.streamInNetwork(pj, fn)
			if err != nil {
				return err
			}
		default:
			if err := skipValue(dec); err != nil {
				return mrferrors.Parse(fmt.Sprintf("skipping key %q", key), err)
			}
		}
	}

	if _, err := dec.Token(); err != nil {
		return mrferrors.Parse("reading closing token", err)
	}
	return nil
}

func (e *Extractor) streamInNetwork(pj *simdjson.ParsedJson, fn func(mrfmodel.InNetworkItem) error) (*simdjson.ParsedJson, error) {
	dec := e.dec

	tok, err := dec.Token()
	if err != nil {
		return pj, mrferrors.Parse("reading in_network opening token", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return pj, mrferrors.Parse(fmt.Sprintf("expected in_network array, got %v", tok), nil)
	}

	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return pj, mrferrors.Parse("decoding in_network element", err)
		}

		item, maybeCPT, newPj, err := decodeInNetworkItem(raw, pj)
		pj = newPj
		if err != nil {
			return pj, mrferrors.Parse("unmarshalling in_network element", err)
		}
		if !maybeCPT {
			continue
		}

		if !accepted(item) {
			continue
		}
		if err := fn(item); err != nil {
			return pj, err
		}
	}

	if _, err := dec.Token(); err != nil {
		return pj, mrferrors.Parse("reading in_network closing token", err)
	}
	return pj, nil
}

func accepted(item mrfmodel.InNetworkItem) bool {
	if item.BillingCodeType != "CPT" {
		return false
	}
	return strings.TrimSpace(BillingCodeString(item.BillingCode)) != ""
}

// BillingCodeString coerces a decoded billing_code value (usually a string,
// occasionally a bare JSON number) to its string form.
func BillingCodeString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// decodeInNetworkItem decodes one in_network element. When the CPU supports
// simdjson-go, it is used as a cheap pre-filter on billing_code_type before
// paying for the full encoding/json decode — mirroring the teacher's
// "simdjson to gate, encoding/json to extract" split (internal/mrf/stream.go
// processInNetworkElement) rather than reimplementing struct decoding on top
// of simdjson's iterator API. maybeCPT is false only when simdjson
// confidently determined the element is not billing_code_type "CPT"; a
// failed or skipped simdjson parse always falls through to a full decode so
// no item is ever dropped on the strength of simdjson alone.
func decodeInNetworkItem(raw json.RawMessage, pj *simdjson.ParsedJson) (item mrfmodel.InNetworkItem, maybeCPT bool, newPj *simdjson.ParsedJson, err error) {
	maybeCPT = true

	if useSimd {
		if parsed, perr := simdjson.Parse(raw, pj); perr == nil {
			pj = parsed
			parsed.ForEach(func(i simdjson.Iter) error {
				maybeCPT = billingCodeTypeIsCPT(i)
				return nil
			})
			if !maybeCPT {
				return item, false, pj, nil
			}
		}
	}

	if err := json.Unmarshal(raw, &item); err != nil {
		return item, true, pj, err
	}
	return item, true, pj, nil
}

func billingCodeTypeIsCPT(i simdjson.Iter) bool {
	elem, err := i.FindElement(nil, "billing_code_type")
	if err != nil {
		return false
	}
	s, err := elem.Iter.String()
	if err != nil {
		return false
	}
	return s == "CPT"
}

// skipValue consumes and discards the next JSON value, recursing into
// objects and arrays so the decoder's position lands after it regardless of
// shape.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil // primitive; already consumed
	}

	switch delim {
	case '{':
		for dec.More() {
			if _, err := dec.Token(); err != nil { // key
				return err
			}
			if err := skipValue(dec); err != nil {
				return err
			}
		}
		_, err := dec.Token() // closing '}'
		return err
	case '[':
		for dec.More() {
			if err := skipValue(dec); err != nil {
				return err
			}
		}
		_, err := dec.Token() // closing ']'
		return err
	}
	return nil
}

// ExtractIndexURLs walks the top level for
// reporting_structure[*].in_network_files[*].location and returns the
// referenced URLs in document order, deduplicated. It returns an empty,
// non-error result when the document has no reporting_structure key at
// all, letting the caller distinguish "this is an in-network file" from a
// genuine parse failure.
func (e *Extractor) ExtractIndexURLs() ([]string, error) {
	dec := e.dec

	tok, err := dec.Token()
	if err != nil {
		return nil, mrferrors.Parse("reading opening token", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, mrferrors.Parse(fmt.Sprintf("expected '{', got %v", tok), nil)
	}

	var urls []string
	seen := map[string]bool{}

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, mrferrors.Parse("reading key", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, mrferrors.Parse(fmt.Sprintf("expected string key, got %T", tok), nil)
		}

		if key != "reporting_structure" {
			if err := skipValue(dec); err != nil {
				return nil, mrferrors.Parse(fmt.Sprintf("skipping key %q", key), err)
			}
			continue
		}

		if err := streamReportingStructure(dec, &urls, seen); err != nil {
			return nil, err
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, mrferrors.Parse("reading closing token", err)
	}
	return urls, nil
}

func streamReportingStructure(dec *json.Decoder, urls *[]string, seen map[string]bool) error {
	tok, err := dec.Token()
	if err != nil {
		return mrferrors.Parse("reading reporting_structure opening token", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return mrferrors.Parse(fmt.Sprintf("expected reporting_structure array, got %v", tok), nil)
	}

	for dec.More() {
		var rs mrfmodel.ReportingStructure
		if err := dec.Decode(&rs); err != nil {
			return mrferrors.Parse("decoding reporting_structure element", err)
		}
		for _, f := range rs.InNetworkFiles {
			loc := strings.TrimSpace(f.Location)
			if loc == "" || seen[loc] {
				continue
			}
			seen[loc] = true
			*urls = append(*urls, loc)
		}
	}

	_, err = dec.Token() // closing ']'
	return err
}
