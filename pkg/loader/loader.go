// Package loader reads threat relationship datasets from JSON documents and
// JSONL record streams, normalizes them and fills in missing edge ids and
// centrality metrics.
package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vanderheijden86/threatmap/pkg/analysis"
	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/model"
)

// ErrNoNodes is returned when a dataset parses but contains no usable nodes.
var ErrNoNodes = errors.New("dataset has no nodes")

// DefaultMaxBufferSize is the default buffer size for the line reader (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// edgeNamespace seeds the name-based ids given to edges that arrive without one.
var edgeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://threatmap.dev/edge"))

// Format is an on-disk dataset encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatJSONL
)

// FormatFor picks the format from a file extension. Anything other than
// .jsonl or .ndjson is read as a JSON document.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatJSON
	}
}

// ParseOptions configures parsing.
type ParseOptions struct {
	// WarningHandler is called for every skipped record. If nil, warnings go
	// to debug.Warn.
	WarningHandler func(string)

	// BufferSize sets the maximum JSONL line size. Longer lines are skipped
	// with a warning. If 0, uses DefaultMaxBufferSize.
	BufferSize int

	// Strict fails on the first invalid record instead of skipping it.
	Strict bool

	// SkipCentrality leaves zero metrics as they are.
	SkipCentrality bool

	// Analysis tunes centrality. Nil picks analysis.ConfigForSize.
	Analysis *analysis.Config
}

func (o ParseOptions) warn(msg string) {
	if o.WarningHandler != nil {
		o.WarningHandler(msg)
		return
	}
	debug.Warn("%s", msg)
}

// document is the JSON form. "links" is accepted as an alias for "edges".
type document struct {
	Nodes []model.Node `json:"nodes"`
	Edges []model.Edge `json:"edges"`
	Links []model.Edge `json:"links"`
}

// probe is the part of a JSONL line that decides its kind. Type is "node"
// or "edge"; when absent, lines with a source are edges.
type probe struct {
	Type   string `json:"type"`
	Source string `json:"source"`
}

// LoadFile reads a dataset from path, choosing the format by extension.
func LoadFile(path string, opts ParseOptions) (*model.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no dataset found at %s", path)
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	ds, err := Parse(file, FormatFor(path), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Parse reads a dataset in the given format, then normalizes it.
func Parse(r io.Reader, format Format, opts ParseOptions) (*model.Dataset, error) {
	defer metrics.Timer(metrics.DatasetLoad)()

	var nodes []model.Node
	var edges []model.Edge
	var err error
	switch format {
	case FormatJSONL:
		nodes, edges, err = parseJSONL(r, opts)
	default:
		nodes, edges, err = parseJSON(r)
	}
	if err != nil {
		return nil, err
	}
	return Normalize(nodes, edges, opts)
}

func parseJSON(r io.Reader) ([]model.Node, []model.Edge, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading dataset: %w", err)
	}
	var doc document
	if err := json.Unmarshal(stripBOM(data), &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing dataset: %w", err)
	}
	return doc.Nodes, append(doc.Edges, doc.Links...), nil
}

func parseJSONL(r io.Reader, opts ParseOptions) ([]model.Node, []model.Edge, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)

	var nodes []model.Node
	var edges []model.Edge
	lineNum := 0
	for {
		lineNum++
		// ReadLine returns a single line, not including the end-of-line bytes.
		// If the line was too long for the buffer then isPrefix is set and the
		// beginning of the line is returned.
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("error reading dataset stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			msg := fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity)
			if opts.Strict {
				return nil, nil, errors.New(msg)
			}
			opts.warn(msg)
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var p probe
		if err := json.Unmarshal(line, &p); err != nil {
			if opts.Strict {
				return nil, nil, fmt.Errorf("malformed JSON on line %d: %w", lineNum, err)
			}
			opts.warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}

		switch kind := strings.ToLower(strings.TrimSpace(p.Type)); {
		case kind == "edge", kind == "" && p.Source != "":
			var e model.Edge
			if err := json.Unmarshal(line, &e); err != nil {
				if opts.Strict {
					return nil, nil, fmt.Errorf("malformed edge on line %d: %w", lineNum, err)
				}
				opts.warn(fmt.Sprintf("skipping malformed edge on line %d: %v", lineNum, err))
				continue
			}
			edges = append(edges, e)
		case kind == "node", kind == "":
			var n model.Node
			if err := json.Unmarshal(line, &n); err != nil {
				if opts.Strict {
					return nil, nil, fmt.Errorf("malformed node on line %d: %w", lineNum, err)
				}
				opts.warn(fmt.Sprintf("skipping malformed node on line %d: %v", lineNum, err))
				continue
			}
			nodes = append(nodes, n)
		default:
			if opts.Strict {
				return nil, nil, fmt.Errorf("unknown record type %q on line %d", p.Type, lineNum)
			}
			opts.warn(fmt.Sprintf("skipping line %d: unknown record type %q", lineNum, p.Type))
		}
	}
	return nodes, edges, nil
}

// Normalize trims ids, lowercases categories, drops invalid, duplicate and
// dangling records (or fails on them in strict mode), assigns ids to edges
// without one, re-ids edges whose id is already taken and computes missing
// centrality.
func Normalize(nodes []model.Node, edges []model.Edge, opts ParseOptions) (*model.Dataset, error) {
	reject := func(msg string) error {
		if opts.Strict {
			return errors.New(msg)
		}
		opts.warn(msg)
		return nil
	}

	keptNodes := make([]model.Node, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		n.ID = strings.TrimSpace(n.ID)
		n.Category = model.Category(strings.ToLower(strings.TrimSpace(string(n.Category))))
		if err := n.Validate(); err != nil {
			if e := reject(fmt.Sprintf("skipping invalid node %d: %v", i, err)); e != nil {
				return nil, e
			}
			continue
		}
		if seen[n.ID] {
			if e := reject(fmt.Sprintf("skipping duplicate node %q", n.ID)); e != nil {
				return nil, e
			}
			continue
		}
		seen[n.ID] = true
		keptNodes = append(keptNodes, n)
	}
	if len(keptNodes) == 0 {
		return nil, ErrNoNodes
	}

	keptEdges := make([]model.Edge, 0, len(edges))
	pairCount := make(map[string]int)
	usedIDs := make(map[string]bool, len(edges))
	for i, e := range edges {
		e.ID = strings.TrimSpace(e.ID)
		e.Source = strings.TrimSpace(e.Source)
		e.Target = strings.TrimSpace(e.Target)
		if err := e.Validate(); err != nil {
			if rerr := reject(fmt.Sprintf("skipping invalid edge %d: %v", i, err)); rerr != nil {
				return nil, rerr
			}
			continue
		}
		if !seen[e.Source] || !seen[e.Target] {
			if rerr := reject(fmt.Sprintf("skipping edge %d (%s -> %s): unknown endpoint", i, e.Source, e.Target)); rerr != nil {
				return nil, rerr
			}
			continue
		}
		dup := ""
		if e.ID != "" && usedIDs[e.ID] {
			if opts.Strict {
				return nil, fmt.Errorf("duplicate edge id %q (%s -> %s)", e.ID, e.Source, e.Target)
			}
			dup, e.ID = e.ID, ""
		}
		if e.ID == "" {
			pair := e.Source + "\x00" + e.Target
			for e.ID == "" || usedIDs[e.ID] {
				e.ID = EdgeID(e.Source, e.Target, pairCount[pair])
				pairCount[pair]++
			}
		}
		if dup != "" {
			opts.warn(fmt.Sprintf("edge %d (%s -> %s): duplicate id %q renamed to %s", i, e.Source, e.Target, dup, e.ID))
		}
		usedIDs[e.ID] = true
		keptEdges = append(keptEdges, e)
	}

	ds := model.NewDataset(keptNodes, keptEdges)
	if !opts.SkipCentrality {
		cfg := analysis.ConfigForSize(len(keptNodes), len(keptEdges))
		if opts.Analysis != nil {
			cfg = *opts.Analysis
		}
		if n := analysis.Fill(ds, cfg); n > 0 {
			debug.Log("loader: computed centrality for %d nodes", n)
		}
	}
	return ds, nil
}

// EdgeID returns the stable id given to the n-th id-less edge between source
// and target.
func EdgeID(source, target string, n int) string {
	name := source + "\x00" + target + "\x00" + strconv.Itoa(n)
	return uuid.NewSHA1(edgeNamespace, []byte(name)).String()
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
