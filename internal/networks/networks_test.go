package networks

import (
	"testing"

	"github.com/belfry-bio/belfry/internal/compiler"
	"github.com/belfry-bio/belfry/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Network{},
		&models.Edge{},
		&models.Citation{},
		&models.EdgeVote{},
		&models.Project{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func testGraph() *compiler.Graph {
	return &compiler.Graph{
		Name:    "apoptosis corpus",
		Version: "1.0.0",
		Nodes:   []string{"p(HGNC:AKT1)", "p(HGNC:CASP3)", "bp(GO:apoptosis)"},
		Edges: []compiler.Edge{
			{
				Source: "p(HGNC:AKT1)", Relation: "decreases", Target: "p(HGNC:CASP3)",
				Evidence: "AKT1 suppresses caspase 3 activation",
				Citation: &compiler.Citation{Database: "pubmed", Reference: "11111", Title: "Paper one"},
			},
			{
				Source: "p(HGNC:CASP3)", Relation: "increases", Target: "bp(GO:apoptosis)",
				Evidence: "Caspase 3 drives apoptosis",
				Citation: &compiler.Citation{Database: "pubmed", Reference: "11111", Title: "Paper one"},
			},
		},
	}
}

func seedNetwork(t *testing.T, db *gorm.DB) *models.Network {
	t.Helper()
	network, err := CreateFromGraph(db, 1, "rep-1", testGraph())
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	return network
}

func TestCreateFromGraph(t *testing.T) {
	db := openTestDB(t)
	network := seedNetwork(t, db)

	if network.Name != "apoptosis corpus" {
		t.Errorf("Name = %q", network.Name)
	}
	if network.NodeCount != 3 || network.EdgeCount != 2 {
		t.Errorf("counts = (%d, %d), want (3, 2)", network.NodeCount, network.EdgeCount)
	}

	loaded, err := Get(db, network.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.Edges) != 2 {
		t.Fatalf("len(Edges) = %d, want 2", len(loaded.Edges))
	}
	if loaded.Edges[0].Citation == nil {
		t.Fatal("edge citation not loaded")
	}

	// Both edges cite the same paper; the citation row must be shared.
	var citations int64
	db.Model(&models.Citation{}).Count(&citations)
	if citations != 1 {
		t.Errorf("citation rows = %d, want deduplicated 1", citations)
	}
}

func TestCreateFromGraph_NilGraph(t *testing.T) {
	_, err := CreateFromGraph(nil, 1, "rep-1", nil)
	if err == nil {
		t.Fatal("expected error for nil graph")
	}
}

func TestSearch(t *testing.T) {
	db := openTestDB(t)
	seedNetwork(t, db)

	hits, err := Search(db, "apoptosis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("len(hits) = %d, want 1", len(hits))
	}

	none, err := Search(db, "nonexistent pathway")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len(none) = %d, want 0", len(none))
	}

	all, err := Search(db, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("empty query should list all, got %d", len(all))
	}
}

func TestVote_UpsertPerUser(t *testing.T) {
	db := openTestDB(t)
	network := seedNetwork(t, db)
	loaded, _ := Get(db, network.ID)
	edgeID := loaded.Edges[0].ID

	if _, err := Vote(db, edgeID, 7, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := Vote(db, edgeID, 8, false); err != nil {
		t.Fatalf("vote: %v", err)
	}

	tally, err := VoteTally(db, edgeID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if tally.Agree != 1 || tally.Disagree != 1 {
		t.Errorf("tally = %+v, want 1/1", tally)
	}

	// User 7 changes their mind; no second row appears.
	if _, err := Vote(db, edgeID, 7, false); err != nil {
		t.Fatalf("revote: %v", err)
	}
	tally, _ = VoteTally(db, edgeID)
	if tally.Agree != 0 || tally.Disagree != 2 {
		t.Errorf("tally after revote = %+v, want 0/2", tally)
	}

	var votes int64
	db.Model(&models.EdgeVote{}).Count(&votes)
	if votes != 2 {
		t.Errorf("vote rows = %d, want 2", votes)
	}
}

func TestVote_UnknownEdge(t *testing.T) {
	db := openTestDB(t)
	_, err := Vote(db, 999, 1, true)
	if err == nil {
		t.Fatal("expected error for unknown edge")
	}
}

func TestVote_Validation(t *testing.T) {
	db := openTestDB(t)
	if _, err := Vote(db, 0, 1, true); err == nil {
		t.Error("expected error for zero edgeID")
	}
	if _, err := Vote(db, 1, 0, true); err == nil {
		t.Error("expected error for zero userID")
	}
}
