// Package networks manages compiled graph artifacts: persistence, browsing,
// search, edge voting, and export.
package networks

import (
	"fmt"
	"time"

	"github.com/belfry-bio/belfry/internal/compiler"
	"github.com/belfry-bio/belfry/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateFromGraph persists a compiled graph as a network owned by userID and
// produced by reportID. Citations are deduplicated by (database, reference).
func CreateFromGraph(db *gorm.DB, userID uint, reportID string, g *compiler.Graph) (*models.Network, error) {
	if g == nil {
		return nil, fmt.Errorf("networks: graph is required")
	}

	network := models.Network{
		ID:          uuid.NewString(),
		Name:        g.Name,
		Version:     g.Version,
		Description: g.Description,
		UserID:      userID,
		ReportID:    reportID,
		NodeCount:   len(g.Nodes),
		EdgeCount:   len(g.Edges),
		CreatedAt:   time.Now(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&network).Error; err != nil {
			return fmt.Errorf("networks: create %q: %w", g.Name, err)
		}
		for i := range g.Edges {
			ge := g.Edges[i]
			edge := models.Edge{
				NetworkID: network.ID,
				Source:    ge.Source,
				Relation:  ge.Relation,
				Target:    ge.Target,
				Evidence:  ge.Evidence,
			}
			if ge.Citation != nil {
				cit, err := findOrCreateCitation(tx, ge.Citation)
				if err != nil {
					return err
				}
				edge.CitationID = &cit.ID
			}
			if err := tx.Create(&edge).Error; err != nil {
				return fmt.Errorf("networks: create edge %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &network, nil
}

func findOrCreateCitation(tx *gorm.DB, c *compiler.Citation) (*models.Citation, error) {
	var cit models.Citation
	err := tx.Where("db = ? AND reference = ?", c.Database, c.Reference).
		First(&cit).Error
	if err == nil {
		return &cit, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("networks: lookup citation %s:%s: %w", c.Database, c.Reference, err)
	}
	cit = models.Citation{Database: c.Database, Reference: c.Reference, Title: c.Title}
	if err := tx.Create(&cit).Error; err != nil {
		return nil, fmt.Errorf("networks: create citation %s:%s: %w", c.Database, c.Reference, err)
	}
	return &cit, nil
}

// Get loads a network with its edges, citations, and votes.
func Get(db *gorm.DB, id string) (*models.Network, error) {
	var network models.Network
	if err := db.Preload("Edges").Preload("Edges.Citation").Preload("Edges.Votes").
		Where("id = ?", id).First(&network).Error; err != nil {
		return nil, fmt.Errorf("networks: get %s: %w", id, err)
	}
	return &network, nil
}

// List returns all networks, newest first.
func List(db *gorm.DB) ([]models.Network, error) {
	var networks []models.Network
	if err := db.Order("created_at DESC").Find(&networks).Error; err != nil {
		return nil, fmt.Errorf("networks: list: %w", err)
	}
	return networks, nil
}

// Search matches networks whose name or description contains q.
func Search(db *gorm.DB, q string) ([]models.Network, error) {
	if q == "" {
		return List(db)
	}
	pattern := "%" + q + "%"
	var networks []models.Network
	if err := db.Where("name LIKE ? OR description LIKE ?", pattern, pattern).
		Order("created_at DESC").Find(&networks).Error; err != nil {
		return nil, fmt.Errorf("networks: search %q: %w", q, err)
	}
	return networks, nil
}

// Vote records a curator's agreement with an edge. One vote per (edge, user);
// re-voting updates the stored row.
func Vote(db *gorm.DB, edgeID, userID uint, agreed bool) (*models.EdgeVote, error) {
	if edgeID == 0 {
		return nil, fmt.Errorf("networks: edgeID is required")
	}
	if userID == 0 {
		return nil, fmt.Errorf("networks: userID is required")
	}

	var edge models.Edge
	if err := db.First(&edge, edgeID).Error; err != nil {
		return nil, fmt.Errorf("networks: edge %d: %w", edgeID, err)
	}

	vote := models.EdgeVote{EdgeID: edgeID, UserID: userID, Agreed: agreed}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "edge_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"agreed", "updated_at"}),
	}).Create(&vote)
	if result.Error != nil {
		return nil, fmt.Errorf("networks: vote on edge %d: %w", edgeID, result.Error)
	}
	return &vote, nil
}

// Tally holds the vote counts for an edge.
type Tally struct {
	Agree    int64
	Disagree int64
}

// VoteTally counts votes for an edge.
func VoteTally(db *gorm.DB, edgeID uint) (Tally, error) {
	var t Tally
	if err := db.Model(&models.EdgeVote{}).
		Where("edge_id = ? AND agreed = ?", edgeID, true).Count(&t.Agree).Error; err != nil {
		return t, fmt.Errorf("networks: tally edge %d: %w", edgeID, err)
	}
	if err := db.Model(&models.EdgeVote{}).
		Where("edge_id = ? AND agreed = ?", edgeID, false).Count(&t.Disagree).Error; err != nil {
		return t, fmt.Errorf("networks: tally edge %d: %w", edgeID, err)
	}
	return t, nil
}
