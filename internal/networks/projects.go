package networks

import (
	"fmt"

	"github.com/belfry-bio/belfry/internal/models"
	"gorm.io/gorm"
)

// CreateProject persists a named grouping of networks. Names are unique.
func CreateProject(db *gorm.DB, name, description string) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("networks: project name is required")
	}
	project := models.Project{Name: name, Description: description}
	if err := db.Create(&project).Error; err != nil {
		return nil, fmt.Errorf("networks: create project %q: %w", name, err)
	}
	return &project, nil
}

// ListProjects returns all projects with their networks.
func ListProjects(db *gorm.DB) ([]models.Project, error) {
	var projects []models.Project
	if err := db.Preload("Networks").Order("name ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("networks: list projects: %w", err)
	}
	return projects, nil
}

// AddToProject links a network into a project. Adding twice is a no-op.
func AddToProject(db *gorm.DB, projectID uint, networkID string) error {
	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		return fmt.Errorf("networks: project %d: %w", projectID, err)
	}
	var network models.Network
	if err := db.First(&network, "id = ?", networkID).Error; err != nil {
		return fmt.Errorf("networks: network %s: %w", networkID, err)
	}
	if err := db.Model(&project).Association("Networks").Append(&network); err != nil {
		return fmt.Errorf("networks: add %s to project %d: %w", networkID, projectID, err)
	}
	return nil
}
