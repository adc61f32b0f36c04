package networks

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/belfry-bio/belfry/internal/models"
	"gorm.io/gorm"
)

// Export formats.
const (
	FormatJSON    = "json"
	FormatGraphML = "graphml"
	FormatSIF     = "sif"
)

// ExportJSON is the wire shape of a JSON network export.
type ExportJSON struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Version string       `json:"version,omitempty"`
	Nodes   []string     `json:"nodes"`
	Edges   []ExportEdge `json:"edges"`
}

// ExportEdge is one edge in a JSON export.
type ExportEdge struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
	Evidence string `json:"evidence,omitempty"`
	Citation string `json:"citation,omitempty"` // "db:reference"
}

// Export writes the network in the requested format.
func Export(db *gorm.DB, w io.Writer, networkID, format string) error {
	network, err := Get(db, networkID)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON, "":
		return exportJSON(w, network)
	case FormatGraphML:
		return exportGraphML(w, network)
	case FormatSIF:
		return exportSIF(w, network)
	default:
		return fmt.Errorf("networks: unsupported export format %q", format)
	}
}

// nodeNames collects the distinct node names appearing in the edges, sorted
// for stable output.
func nodeNames(network *models.Network) []string {
	seen := make(map[string]bool)
	for _, e := range network.Edges {
		seen[e.Source] = true
		seen[e.Target] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func exportJSON(w io.Writer, network *models.Network) error {
	out := ExportJSON{
		ID:      network.ID,
		Name:    network.Name,
		Version: network.Version,
		Nodes:   nodeNames(network),
		Edges:   make([]ExportEdge, len(network.Edges)),
	}
	for i, e := range network.Edges {
		ee := ExportEdge{
			Source:   e.Source,
			Relation: e.Relation,
			Target:   e.Target,
			Evidence: e.Evidence,
		}
		if e.Citation != nil {
			ee.Citation = e.Citation.Database + ":" + e.Citation.Reference
		}
		out.Edges[i] = ee
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("networks: export json: %w", err)
	}
	return nil
}

// GraphML document structure.
type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlGraph struct {
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID string `xml:"id,attr"`
}

type graphmlEdge struct {
	Source   string `xml:"source,attr"`
	Target   string `xml:"target,attr"`
	Relation string `xml:"label,attr"`
}

func exportGraphML(w io.Writer, network *models.Network) error {
	doc := graphmlDoc{
		Xmlns: "http://graphml.graphdrawing.org/xmlns",
		Graph: graphmlGraph{
			ID:          network.ID,
			EdgeDefault: "directed",
		},
	}
	for _, n := range nodeNames(network) {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{ID: n})
	}
	for _, e := range network.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source:   e.Source,
			Target:   e.Target,
			Relation: e.Relation,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("networks: export graphml: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("networks: export graphml: %w", err)
	}
	return nil
}

// exportSIF writes the simple interaction format: source relation target.
func exportSIF(w io.Writer, network *models.Network) error {
	for _, e := range network.Edges {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", e.Source, e.Relation, e.Target); err != nil {
			return fmt.Errorf("networks: export sif: %w", err)
		}
	}
	return nil
}
