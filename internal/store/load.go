package store

import (
	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
	"github.com/danishbarkat/mrfcompare/internal/mrfstream"
)

// PreviewLimit bounds how many accepted codes a LoadReport samples (spec §6
// operation 1: "preview of up to preview_limit=10000").
const PreviewLimit = 10000

// LoadReport is the result of loading a direct in-network document into the
// Store (spec §6 operation 1/2).
type LoadReport struct {
	SourceName string   `json:"source_name"`
	CodeCount  int      `json:"code_count"`
	ItemCount  int      `json:"item_count"`
	Preview    []string `json:"preview"`
}

// IndexReport is the result of loading a file that turned out to be an
// index rather than a direct in-network document: the referenced
// in-network file URLs, for the caller to fetch and load individually.
type IndexReport struct {
	SourceURLs []string `json:"source_urls"`
}

// LoadFromParts reads paths (a single plain/gzipped file, or a sequence of
// parts to be concatenated byte-exact) and either ingests them into name's
// entry in s, or — when the document turns out to be an index file —
// returns its referenced URLs instead of ingesting anything (spec §6
// operation 1: "JSON may be either an index ... or a direct in-network
// document").
func (s *Store) LoadFromParts(name string, paths []string) (*LoadReport, *IndexReport, error) {
	return s.LoadFromPartsWithProgress(name, paths, nil)
}

// LoadFromPartsWithProgress is LoadFromParts with onItem called after every
// ingested in-network item (never for an index file), so a caller can report
// running progress without caring how many items a part holds ahead of time.
func (s *Store) LoadFromPartsWithProgress(name string, paths []string, onItem func(n int)) (*LoadReport, *IndexReport, error) {
	isIndex, err := mrfstream.Sniff(paths)
	if err != nil {
		return nil, nil, err
	}
	if isIndex {
		idx, err := loadIndex(paths)
		return nil, idx, err
	}
	report, err := s.loadInNetwork(name, paths, onItem)
	return report, nil, err
}

func loadIndex(paths []string) (*IndexReport, error) {
	r := mrfstream.Open(paths)
	defer r.Close()

	urls, err := mrfstream.NewExtractor(r).ExtractIndexURLs()
	if err != nil {
		return nil, err
	}
	return &IndexReport{SourceURLs: urls}, nil
}

func (s *Store) loadInNetwork(name string, paths []string, onItem func(n int)) (*LoadReport, error) {
	r := mrfstream.Open(paths)
	defer r.Close()

	report := &LoadReport{SourceName: name}
	seen := map[string]bool{}

	err := mrfstream.NewExtractor(r).Each(func(item mrfmodel.InNetworkItem) error {
		code := NormalizeCode(mrfstream.BillingCodeString(item.BillingCode))
		if code == "" {
			return nil
		}
		report.ItemCount++
		rates := mrfmodel.RatesFromItem(item)
		s.InsertOrMerge(name, code, item.Description, rates)
		if !seen[code] {
			seen[code] = true
			report.CodeCount++
			if len(report.Preview) < PreviewLimit {
				report.Preview = append(report.Preview, code)
			}
		}
		if onItem != nil {
			onItem(report.ItemCount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
