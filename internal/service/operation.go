package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/audit"
	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/queue"
)

// OperationService contains the business logic for the operations catalog.
type OperationService struct {
	db      *gorm.DB
	emitter *audit.Emitter
}

// NewOperationService creates a new OperationService.
func NewOperationService(db *gorm.DB, emitter *audit.Emitter) *OperationService {
	return &OperationService{db: db, emitter: emitter}
}

// List returns one page of catalog operations.
func (s *OperationService) List(opts ListOptions) ([]models.Operation, Pagination, error) {
	opts.Normalize()

	query := s.db.Model(&models.Operation{})
	if opts.Status != "" {
		// Status doubles as the type filter on the operations listing
		if !models.ValidOperationType(models.OperationType(opts.Status)) {
			return nil, Pagination{}, &ValidationError{Message: fmt.Sprintf("invalid operation type filter: %s", opts.Status)}
		}
		query = query.Where("operation_type = ?", opts.Status)
	}
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where("name LIKE ? OR operation_code LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var ops []models.Operation
	err := query.Preload("CreatedBy").
		Order("operation_code").
		Offset((opts.Page - 1) * opts.PerPage).
		Limit(opts.PerPage).
		Find(&ops).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	pages := int((total + int64(opts.PerPage) - 1) / int64(opts.PerPage))
	return ops, Pagination{Page: opts.Page, PerPage: opts.PerPage, Total: total, TotalPages: pages}, nil
}

// Get returns a single operation by ID.
func (s *OperationService) Get(id uint) (*models.Operation, error) {
	var op models.Operation
	if err := s.db.Preload("CreatedBy").First(&op, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &op, nil
}

// Create validates and creates a catalog operation.
func (s *OperationService) Create(ctx context.Context, req CreateOperationRequest, user *models.User) (*models.Operation, error) {
	if !models.ValidOperationType(models.OperationType(req.OperationType)) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid operation type: %s", req.OperationType)}
	}
	if req.SetupTime < 0 || req.OperationTime < 0 {
		return nil, &ValidationError{Message: "time values must not be negative"}
	}

	var existing models.Operation
	if err := s.db.Unscoped().Where("operation_code = ?", req.OperationCode).First(&existing).Error; err == nil {
		return nil, &ConflictError{Message: fmt.Sprintf("operation code %q already exists", req.OperationCode)}
	}

	op := models.Operation{
		Name:          req.Name,
		Description:   req.Description,
		OperationCode: req.OperationCode,
		OperationType: models.OperationType(req.OperationType),
		SetupTime:     req.SetupTime,
		OperationTime: req.OperationTime,
		CreatedByID:   user.ID,
	}
	op.SetEquipment(req.RequiredEquipment)
	op.SetSkills(req.RequiredSkills)
	op.SetQuality(req.QualityRequirements)

	if err := s.db.Create(&op).Error; err != nil {
		return nil, fmt.Errorf("create operation: %w", err)
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventOperationCreated,
		Description: fmt.Sprintf("Created operation %s", op.OperationCode),
		Success:     true,
		Metadata:    map[string]interface{}{"operation_id": op.ID, "operation_code": op.OperationCode},
	})
	return &op, nil
}

// Update applies changes to a catalog operation.
func (s *OperationService) Update(ctx context.Context, id uint, req UpdateOperationRequest, user *models.User) (*models.Operation, error) {
	op, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if req.OperationType != nil && !models.ValidOperationType(models.OperationType(*req.OperationType)) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid operation type: %s", *req.OperationType)}
	}
	if req.SetupTime != nil && *req.SetupTime < 0 {
		return nil, &ValidationError{Message: "setup_time must not be negative"}
	}
	if req.OperationTime != nil && *req.OperationTime < 0 {
		return nil, &ValidationError{Message: "operation_time must not be negative"}
	}

	if req.Name != nil {
		op.Name = *req.Name
	}
	if req.Description != nil {
		op.Description = *req.Description
	}
	if req.OperationType != nil {
		op.OperationType = models.OperationType(*req.OperationType)
	}
	if req.SetupTime != nil {
		op.SetupTime = *req.SetupTime
	}
	if req.OperationTime != nil {
		op.OperationTime = *req.OperationTime
	}
	if req.RequiredEquipment != nil {
		op.SetEquipment(req.RequiredEquipment)
	}
	if req.RequiredSkills != nil {
		op.SetSkills(req.RequiredSkills)
	}
	if req.QualityRequirements != nil {
		op.SetQuality(req.QualityRequirements)
	}

	if err := s.db.Save(op).Error; err != nil {
		return nil, fmt.Errorf("save operation: %w", err)
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventOperationUpdated,
		Description: fmt.Sprintf("Updated operation %s", op.OperationCode),
		Success:     true,
		Metadata:    map[string]interface{}{"operation_id": op.ID},
	})
	return op, nil
}

// Delete archives and soft-deletes an operation. Deletion is refused while
// any route still references it; the error lists the blocking routes.
func (s *OperationService) Delete(ctx context.Context, id uint, user *models.User) error {
	op, err := s.Get(id)
	if err != nil {
		return err
	}

	var routes []models.TechnologicalRoute
	if err := s.db.Model(op).Association("Routes").Find(&routes); err != nil {
		return err
	}
	if len(routes) > 0 {
		codes := make([]string, 0, len(routes))
		for _, r := range routes {
			codes = append(codes, r.RouteCode)
		}
		return &ConflictError{Message: fmt.Sprintf("operation %s is used by routes: %v", op.OperationCode, codes)}
	}

	data, err := json.Marshal(op.Info())
	if err != nil {
		return fmt.Errorf("marshal operation snapshot: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		archive := models.Archive{
			EntityType:   "operation",
			EntityID:     op.ID,
			EntityData:   string(data),
			Reason:       models.ArchiveReasonDeleted,
			ArchivedByID: user.ID,
		}
		if err := tx.Create(&archive).Error; err != nil {
			return fmt.Errorf("archive operation: %w", err)
		}
		return tx.Delete(op).Error
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventOperationDeleted,
		Description: fmt.Sprintf("Deleted operation %s", op.OperationCode),
		Success:     true,
		Metadata:    map[string]interface{}{"operation_id": op.ID},
	})
	return nil
}
