// services/catalog_service.go
package services

import (
	"errors"

	"quotepro-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrCatalogItemNotFound = errors.New("catalog item not found")
	ErrCatalogItemInvalid  = errors.New("catalog item cannot be quoted")
)

// MaxCategoryDepth caps the category tree at three levels.
const MaxCategoryDepth = 3

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// Snapshot resolves a catalog item for quoting. The caller copies the
// returned price/tax/unit onto the quote item; nothing keeps a live
// reference to the catalog row.
//
// A missing id returns ErrCatalogItemNotFound; an id that resolves but is
// inactive returns ErrCatalogItemInvalid, which callers treat as a hard
// failure.
func (s *CatalogService) Snapshot(tx *gorm.DB, tenantID, itemID uuid.UUID) (*models.CatalogItem, error) {
	var item models.CatalogItem
	if err := tx.Where("tenant_id = ? AND id = ?", tenantID, itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCatalogItemNotFound
		}
		return nil, err
	}
	if !item.IsActive {
		return nil, ErrCatalogItemInvalid
	}
	return &item, nil
}

type CategoryNode struct {
	Category models.Category `json:"category"`
	Children []*CategoryNode `json:"children"`
}

// CategoryTree loads the tenant's categories in a single query and assembles
// them breadth-first from a parent-indexed arena, capped at MaxCategoryDepth
// levels. No per-node queries, no unbounded recursion.
func (s *CatalogService) CategoryTree(tenantID uuid.UUID) ([]*CategoryNode, error) {
	var categories []models.Category
	if err := s.db.Where("tenant_id = ? AND is_active = true", tenantID).
		Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}

	byParent := make(map[uuid.UUID][]models.Category)
	var roots []models.Category
	for _, cat := range categories {
		if cat.ParentID == nil {
			roots = append(roots, cat)
			continue
		}
		byParent[*cat.ParentID] = append(byParent[*cat.ParentID], cat)
	}

	type queued struct {
		node  *CategoryNode
		depth int
	}

	var tree []*CategoryNode
	var queue []queued
	for _, root := range roots {
		node := &CategoryNode{Category: root}
		tree = append(tree, node)
		queue = append(queue, queued{node: node, depth: 1})
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= MaxCategoryDepth {
			continue
		}
		for _, child := range byParent[current.node.Category.ID] {
			childNode := &CategoryNode{Category: child}
			current.node.Children = append(current.node.Children, childNode)
			queue = append(queue, queued{node: childNode, depth: current.depth + 1})
		}
	}

	return tree, nil
}
