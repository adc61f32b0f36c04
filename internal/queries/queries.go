// Package queries persists saved graph queries and replays them against the
// current network data. Query rows are append-only history: created once,
// never mutated.
package queries

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/belfry-bio/belfry/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Create persists a new saved query. The referenced networks must exist.
func Create(db *gorm.DB, userID uint, networkIDs, seedNodes []string, method string) (*models.Query, error) {
	if userID == 0 {
		return nil, fmt.Errorf("queries: userID is required")
	}
	if len(networkIDs) == 0 {
		return nil, fmt.Errorf("queries: at least one network is required")
	}
	if method == "" {
		method = models.SeedInduction
	}
	switch method {
	case models.SeedInduction, models.SeedNeighbors:
	default:
		return nil, fmt.Errorf("queries: unsupported seed method %q", method)
	}

	var count int64
	if err := db.Model(&models.Network{}).Where("id IN ?", networkIDs).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("queries: verify networks: %w", err)
	}
	if int(count) != len(networkIDs) {
		return nil, fmt.Errorf("queries: unknown network in %v", networkIDs)
	}

	networksJSON, err := json.Marshal(networkIDs)
	if err != nil {
		return nil, fmt.Errorf("queries: marshal networks: %w", err)
	}
	seedsJSON, err := json.Marshal(seedNodes)
	if err != nil {
		return nil, fmt.Errorf("queries: marshal seeds: %w", err)
	}

	query := models.Query{
		ID:         uuid.NewString(),
		UserID:     userID,
		NetworkIDs: string(networksJSON),
		SeedNodes:  string(seedsJSON),
		SeedMethod: method,
		CreatedAt:  time.Now(),
	}
	if err := db.Create(&query).Error; err != nil {
		return nil, fmt.Errorf("queries: create: %w", err)
	}
	return &query, nil
}

// Get loads a query owned by userID.
func Get(db *gorm.DB, id string, userID uint) (*models.Query, error) {
	var query models.Query
	if err := db.Where("id = ? AND user_id = ?", id, userID).
		First(&query).Error; err != nil {
		return nil, fmt.Errorf("queries: get %s: %w", id, err)
	}
	return &query, nil
}

// ListByUser returns a user's saved queries, newest first.
func ListByUser(db *gorm.DB, userID uint) ([]models.Query, error) {
	var list []models.Query
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("queries: list for user %d: %w", userID, err)
	}
	return list, nil
}

// Result is the subgraph produced by running a query.
type Result struct {
	Nodes []string      `json:"nodes"`
	Edges []models.Edge `json:"edges"`
}

// Run replays a saved query against the current edge data. Induction keeps
// edges whose endpoints are both seeds; neighbors keeps edges touching any
// seed. No seeds means the full assembled graph.
func Run(db *gorm.DB, query *models.Query) (*Result, error) {
	var networkIDs []string
	if err := json.Unmarshal([]byte(query.NetworkIDs), &networkIDs); err != nil {
		return nil, fmt.Errorf("queries: decode networks for %s: %w", query.ID, err)
	}
	var seedNodes []string
	if query.SeedNodes != "" {
		if err := json.Unmarshal([]byte(query.SeedNodes), &seedNodes); err != nil {
			return nil, fmt.Errorf("queries: decode seeds for %s: %w", query.ID, err)
		}
	}

	var edges []models.Edge
	if err := db.Where("network_id IN ?", networkIDs).
		Order("id ASC").Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("queries: load edges for %s: %w", query.ID, err)
	}

	seeds := make(map[string]bool, len(seedNodes))
	for _, s := range seedNodes {
		seeds[s] = true
	}

	var kept []models.Edge
	for _, e := range edges {
		if len(seeds) == 0 {
			kept = append(kept, e)
			continue
		}
		switch query.SeedMethod {
		case models.SeedNeighbors:
			if seeds[e.Source] || seeds[e.Target] {
				kept = append(kept, e)
			}
		default: // induction
			if seeds[e.Source] && seeds[e.Target] {
				kept = append(kept, e)
			}
		}
	}

	nodeSet := make(map[string]bool)
	for _, e := range kept {
		nodeSet[e.Source] = true
		nodeSet[e.Target] = true
	}
	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	return &Result{Nodes: nodes, Edges: kept}, nil
}
