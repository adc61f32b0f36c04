// Package omics stores differential-expression datasets and scores them
// against compiled networks.
package omics

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/belfry-bio/belfry/internal/models"
	"github.com/belfry-bio/belfry/internal/networks"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrEmptyDataset is returned when an upload contains no data rows.
var ErrEmptyDataset = fmt.Errorf("omics: dataset is empty")

// Upload parses a TSV of (gene, log2fc, p-value) rows and persists the
// dataset. A header line is skipped when its numeric columns don't parse.
func Upload(db *gorm.DB, userID uint, sourceName, description string, r io.Reader) (*models.Omic, error) {
	if userID == 0 {
		return nil, fmt.Errorf("omics: userID is required")
	}
	if sourceName == "" {
		return nil, fmt.Errorf("omics: sourceName is required")
	}

	rows, err := parseTSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	omic := models.Omic{
		ID:          uuid.NewString(),
		SourceName:  sourceName,
		Description: description,
		UserID:      userID,
		RowCount:    len(rows),
		CreatedAt:   time.Now(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&omic).Error; err != nil {
			return fmt.Errorf("omics: create %q: %w", sourceName, err)
		}
		for i := range rows {
			rows[i].OmicID = omic.ID
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("omics: create rows for %q: %w", sourceName, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &omic, nil
}

// parseTSV reads tab-separated (gene, log2fc, p) lines.
func parseTSV(r io.Reader) ([]models.OmicRow, error) {
	var rows []models.OmicRow
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("omics: line %d: expected at least 2 tab-separated fields", lineNo)
		}

		log2fc, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			if lineNo == 1 {
				// Header line.
				continue
			}
			return nil, fmt.Errorf("omics: line %d: bad log2fc %q", lineNo, fields[1])
		}

		row := models.OmicRow{
			Gene:   strings.TrimSpace(fields[0]),
			Log2FC: log2fc,
		}
		if len(fields) >= 3 {
			p, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("omics: line %d: bad p-value %q", lineNo, fields[2])
			}
			row.PValue = p
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("omics: read: %w", err)
	}
	return rows, nil
}

// Get loads a dataset with its rows.
func Get(db *gorm.DB, id string) (*models.Omic, error) {
	var omic models.Omic
	if err := db.Preload("Rows").Where("id = ?", id).First(&omic).Error; err != nil {
		return nil, fmt.Errorf("omics: get %s: %w", id, err)
	}
	return &omic, nil
}

// ListByUser returns a user's datasets, newest first, without rows.
func ListByUser(db *gorm.DB, userID uint) ([]models.Omic, error) {
	var list []models.Omic
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("omics: list for user %d: %w", userID, err)
	}
	return list, nil
}

// Score summarizes the overlap between a dataset and a network.
type Score struct {
	OmicID        string  `json:"omic_id"`
	NetworkID     string  `json:"network_id"`
	NetworkNodes  int     `json:"network_nodes"`
	MatchedGenes  int     `json:"matched_genes"`
	MeanAbsLog2FC float64 `json:"mean_abs_log2fc"`
}

// ScoreNetwork matches dataset genes against the node names of a network and
// averages |log2fc| over the matches. A gene matches nodes like
// "p(HGNC:AKT1)" as well as bare "AKT1".
func ScoreNetwork(db *gorm.DB, omicID, networkID string) (*Score, error) {
	omic, err := Get(db, omicID)
	if err != nil {
		return nil, err
	}
	network, err := networks.Get(db, networkID)
	if err != nil {
		return nil, err
	}

	nodeGenes := make(map[string]bool)
	var nodeCount int
	seen := make(map[string]bool)
	for _, e := range network.Edges {
		for _, node := range []string{e.Source, e.Target} {
			if !seen[node] {
				seen[node] = true
				nodeCount++
				nodeGenes[geneOf(node)] = true
			}
		}
	}

	var matched int
	var sum float64
	for _, row := range omic.Rows {
		if nodeGenes[row.Gene] {
			matched++
			sum += math.Abs(row.Log2FC)
		}
	}

	score := &Score{
		OmicID:       omicID,
		NetworkID:    networkID,
		NetworkNodes: nodeCount,
		MatchedGenes: matched,
	}
	if matched > 0 {
		score.MeanAbsLog2FC = sum / float64(matched)
	}
	return score, nil
}

// geneOf extracts the gene symbol from a node name: the token after the last
// ':' with a trailing ')' stripped, or the name itself when unqualified.
func geneOf(node string) string {
	name := strings.TrimSuffix(node, ")")
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
