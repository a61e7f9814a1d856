package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mesfabric/routecraft/internal/audit"
	"github.com/mesfabric/routecraft/internal/graph"
	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/queue"
)

// RouteService contains the business logic for technological routes:
// CRUD with optimistic concurrency, version history, restore, duplication,
// graph validation and analysis.
type RouteService struct {
	db      *gorm.DB
	emitter *audit.Emitter
}

// NewRouteService creates a new RouteService.
func NewRouteService(db *gorm.DB, emitter *audit.Emitter) *RouteService {
	return &RouteService{db: db, emitter: emitter}
}

// routeSnapshot is the JSON shape stored in route version history and in
// the archive on delete.
type routeSnapshot struct {
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	RouteCode       string          `json:"route_code"`
	Status          string          `json:"status"`
	RouteData       json.RawMessage `json:"route_data,omitempty"`
	EstimatedTime   float64         `json:"estimated_time,omitempty"`
	ProductType     string          `json:"product_type,omitempty"`
	ComplexityLevel string          `json:"complexity_level"`
	VersionNumber   int             `json:"version_number"`
}

func snapshotOf(r *models.TechnologicalRoute) routeSnapshot {
	snap := routeSnapshot{
		Name:            r.Name,
		Description:     r.Description,
		RouteCode:       r.RouteCode,
		Status:          string(r.Status),
		EstimatedTime:   r.EstimatedTime,
		ProductType:     r.ProductType,
		ComplexityLevel: r.ComplexityLevel,
		VersionNumber:   r.VersionNumber,
	}
	if r.RouteData != "" {
		snap.RouteData = json.RawMessage(r.RouteData)
	}
	return snap
}

// diffSnapshots lists the route fields that differ between two snapshots.
func diffSnapshots(a, b routeSnapshot) []string {
	changes := []string{}
	if a.Name != b.Name {
		changes = append(changes, "name")
	}
	if a.Description != b.Description {
		changes = append(changes, "description")
	}
	if a.Status != b.Status {
		changes = append(changes, "status")
	}
	if string(a.RouteData) != string(b.RouteData) {
		changes = append(changes, "route_data")
	}
	if a.EstimatedTime != b.EstimatedTime {
		changes = append(changes, "estimated_time")
	}
	if a.ProductType != b.ProductType {
		changes = append(changes, "product_type")
	}
	if a.ComplexityLevel != b.ComplexityLevel {
		changes = append(changes, "complexity_level")
	}
	return changes
}

// List returns one page of routes matching the options.
func (s *RouteService) List(opts ListOptions) ([]models.TechnologicalRoute, Pagination, error) {
	opts.Normalize()

	query := s.db.Model(&models.TechnologicalRoute{})
	if opts.Status != "" {
		if !models.ValidRouteStatus(models.RouteStatus(opts.Status)) {
			return nil, Pagination{}, &ValidationError{Message: fmt.Sprintf("invalid status filter: %s", opts.Status)}
		}
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Product != "" {
		query = query.Where("product_type = ?", opts.Product)
	}
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where("name LIKE ? OR route_code LIKE ? OR description LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	order := "updated_at DESC"
	switch opts.SortBy {
	case "name", "route_code", "status", "created_at", "updated_at", "estimated_time":
		order = opts.SortBy
		if opts.SortDesc {
			order += " DESC"
		}
	}

	var routes []models.TechnologicalRoute
	err := query.Preload("CreatedBy").Preload("Operations").
		Order(order).
		Offset((opts.Page - 1) * opts.PerPage).
		Limit(opts.PerPage).
		Find(&routes).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	pages := int((total + int64(opts.PerPage) - 1) / int64(opts.PerPage))
	return routes, Pagination{Page: opts.Page, PerPage: opts.PerPage, Total: total, TotalPages: pages}, nil
}

// Get returns a single route by ID.
func (s *RouteService) Get(id uint) (*models.TechnologicalRoute, error) {
	var route models.TechnologicalRoute
	err := s.db.Preload("CreatedBy").Preload("Operations").First(&route, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &route, nil
}

// Create validates and creates a route, records the initial version and
// writes an audit event.
func (s *RouteService) Create(ctx context.Context, req CreateRouteRequest, user *models.User) (*models.TechnologicalRoute, error) {
	status := models.RouteStatus(req.Status)
	if req.Status == "" {
		status = models.RouteStatusDraft
	}
	if !models.ValidRouteStatus(status) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid status: %s", req.Status)}
	}
	complexity := req.ComplexityLevel
	if complexity == "" {
		complexity = models.ComplexityMedium
	}

	var existing models.TechnologicalRoute
	if err := s.db.Unscoped().Where("route_code = ?", req.RouteCode).First(&existing).Error; err == nil {
		return nil, &ConflictError{Message: fmt.Sprintf("route code %q already exists", req.RouteCode)}
	}

	route := models.TechnologicalRoute{
		Name:            req.Name,
		Description:     req.Description,
		RouteCode:       req.RouteCode,
		Status:          status,
		VersionNumber:   1,
		EstimatedTime:   req.EstimatedTime,
		ProductType:     req.ProductType,
		ComplexityLevel: complexity,
		CreatedByID:     user.ID,
	}
	if req.RouteData != nil {
		if err := route.SetGraph(req.RouteData); err != nil {
			return nil, &ValidationError{Message: "invalid route graph payload"}
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&route).Error; err != nil {
			return fmt.Errorf("create route: %w", err)
		}
		if err := s.writeVersion(tx, &route, models.ChangeTypeInitial, "Route created", user.ID); err != nil {
			return err
		}
		return s.syncRouteOperations(tx, &route)
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventRouteCreated,
		Description: fmt.Sprintf("Created route %s", route.RouteCode),
		Success:     true,
		Metadata:    map[string]interface{}{"route_id": route.ID, "route_code": route.RouteCode},
	})
	return &route, nil
}

// Update applies changes under optimistic concurrency. The submitted
// version_number must match the stored one unless ForceUpdate is set; a
// mismatch returns a VersionConflictError describing the newer save. Every
// successful save appends the resulting state to version history, so a force
// save overwrites the current state but the outpaced save's own snapshot
// stays recoverable.
func (s *RouteService) Update(ctx context.Context, id uint, req UpdateRouteRequest, user *models.User) (*models.TechnologicalRoute, error) {
	route, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if !req.ForceUpdate && req.VersionNumber != route.VersionNumber {
		details, derr := s.conflictDetails(route, req.VersionNumber)
		if derr != nil {
			details = graph.ConflictDetails{}
		}
		return nil, &VersionConflictError{
			CurrentVersion:  route.VersionNumber,
			ProvidedVersion: req.VersionNumber,
			Details:         details,
		}
	}

	if req.Status != nil && !models.ValidRouteStatus(models.RouteStatus(*req.Status)) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid status: %s", *req.Status)}
	}

	changeType := models.ChangeTypeUpdate
	eventType := audit.EventRouteUpdated
	if req.ForceUpdate && req.VersionNumber != route.VersionNumber {
		changeType = models.ChangeTypeForced
		eventType = audit.EventRouteForceSaved
	}

	before := snapshotOf(route)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.Name != nil {
			route.Name = *req.Name
		}
		if req.Description != nil {
			route.Description = *req.Description
		}
		if req.Status != nil {
			route.Status = models.RouteStatus(*req.Status)
		}
		if req.EstimatedTime != nil {
			route.EstimatedTime = *req.EstimatedTime
		}
		if req.ProductType != nil {
			route.ProductType = *req.ProductType
		}
		if req.ComplexityLevel != nil {
			route.ComplexityLevel = *req.ComplexityLevel
		}
		if req.RouteData != nil {
			if err := route.SetGraph(req.RouteData); err != nil {
				return &ValidationError{Message: "invalid route graph payload"}
			}
		}
		route.VersionNumber++

		if err := tx.Save(route).Error; err != nil {
			return fmt.Errorf("save route: %w", err)
		}

		summary := req.ChangeSummary
		if summary == "" && changeType == models.ChangeTypeForced {
			summary = "Forced overwrite over a newer version"
		}
		if err := s.writeVersion(tx, route, changeType, summary, user.ID); err != nil {
			return err
		}
		return s.syncRouteOperations(tx, route)
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   eventType,
		Description: fmt.Sprintf("Updated route %s to version %d", route.RouteCode, route.VersionNumber),
		Success:     true,
		Metadata: map[string]interface{}{
			"route_id": route.ID,
			"version":  route.VersionNumber,
			"changes":  diffSnapshots(before, snapshotOf(route)),
			"forced":   changeType == models.ChangeTypeForced,
		},
	})
	return route, nil
}

// conflictDetails describes the save that outran the caller's edits.
func (s *RouteService) conflictDetails(route *models.TechnologicalRoute, providedVersion int) (graph.ConflictDetails, error) {
	details := graph.ConflictDetails{
		LastModifiedAt: route.UpdatedAt.UTC().Format(time.RFC3339),
	}

	var latest models.RouteVersion
	err := s.db.Preload("CreatedBy").
		Where("route_id = ?", route.ID).
		Order("version_number DESC").
		First(&latest).Error
	if err != nil {
		return details, err
	}
	if latest.CreatedBy != nil {
		details.LastModifiedBy = latest.CreatedBy.Username
	}

	// Compare the caller's base version against the current state so the
	// conflict dialog can list exactly what moved underneath them.
	var base models.RouteVersion
	err = s.db.Where("route_id = ? AND version_number = ?", route.ID, providedVersion).
		First(&base).Error
	if err == nil {
		var baseSnap routeSnapshot
		if json.Unmarshal([]byte(base.RouteData), &baseSnap) == nil {
			details.Changes = diffSnapshots(baseSnap, snapshotOf(route))
		}
	}
	return details, nil
}

// writeVersion appends a snapshot of the route's current state to its
// version history.
func (s *RouteService) writeVersion(tx *gorm.DB, route *models.TechnologicalRoute, changeType, summary string, userID uint) error {
	data, err := json.Marshal(snapshotOf(route))
	if err != nil {
		return fmt.Errorf("marshal route snapshot: %w", err)
	}
	version := models.RouteVersion{
		RouteID:       route.ID,
		VersionNumber: route.VersionNumber,
		ChangeType:    changeType,
		ChangeSummary: summary,
		RouteData:     string(data),
		CreatedByID:   userID,
	}
	if err := tx.Create(&version).Error; err != nil {
		return fmt.Errorf("write route version: %w", err)
	}
	return nil
}

// syncRouteOperations reconciles the route_operations join table with the
// operation IDs referenced by the graph.
func (s *RouteService) syncRouteOperations(tx *gorm.DB, route *models.TechnologicalRoute) error {
	doc, err := route.Graph()
	if err != nil {
		return nil
	}

	ids := []uint{}
	seen := map[uint]bool{}
	for _, node := range doc.OperationNodes() {
		if node.Data.Operation != nil && node.Data.Operation.ID != 0 && !seen[node.Data.Operation.ID] {
			seen[node.Data.Operation.ID] = true
			ids = append(ids, node.Data.Operation.ID)
		}
	}

	var ops []models.Operation
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&ops).Error; err != nil {
			return err
		}
	}
	return tx.Model(route).Association("Operations").Replace(ops)
}

// Delete archives a full snapshot of the route and soft-deletes it.
func (s *RouteService) Delete(ctx context.Context, id uint, user *models.User) error {
	route, err := s.Get(id)
	if err != nil {
		return err
	}

	data, err := json.Marshal(snapshotOf(route))
	if err != nil {
		return fmt.Errorf("marshal route snapshot: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		archive := models.Archive{
			EntityType:   "route",
			EntityID:     route.ID,
			EntityData:   string(data),
			Reason:       models.ArchiveReasonDeleted,
			ArchivedByID: user.ID,
		}
		if err := tx.Create(&archive).Error; err != nil {
			return fmt.Errorf("archive route: %w", err)
		}
		return tx.Delete(route).Error
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventRouteDeleted,
		Description: fmt.Sprintf("Deleted route %s", route.RouteCode),
		Success:     true,
		Metadata:    map[string]interface{}{"route_id": route.ID, "route_code": route.RouteCode},
	})
	return nil
}

// ListVersions returns the version history of a route, newest first.
func (s *RouteService) ListVersions(id uint) ([]models.RouteVersion, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	var versions []models.RouteVersion
	err := s.db.Preload("CreatedBy").
		Where("route_id = ?", id).
		Order("version_number DESC").
		Find(&versions).Error
	return versions, err
}

// GetVersion returns one snapshot from a route's history.
func (s *RouteService) GetVersion(id uint, versionNumber int) (*models.RouteVersion, error) {
	var version models.RouteVersion
	err := s.db.Preload("CreatedBy").
		Where("route_id = ? AND version_number = ?", id, versionNumber).
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &version, nil
}

// CreateVersion snapshots the route's current state as a new history entry
// without changing the state itself. The route moves to the next version
// number so later saves keep appending after the snapshot.
func (s *RouteService) CreateVersion(ctx context.Context, id uint, description string, user *models.User) (*models.RouteVersion, error) {
	route, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if description == "" {
		description = fmt.Sprintf("Version %d", route.VersionNumber+1)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		route.VersionNumber++
		if err := tx.Save(route).Error; err != nil {
			return fmt.Errorf("save route: %w", err)
		}
		data, err := json.Marshal(snapshotOf(route))
		if err != nil {
			return fmt.Errorf("marshal route snapshot: %w", err)
		}
		version := models.RouteVersion{
			RouteID:       route.ID,
			VersionNumber: route.VersionNumber,
			Description:   description,
			ChangeType:    models.ChangeTypeManual,
			ChangeSummary: "Manual snapshot",
			RouteData:     string(data),
			CreatedByID:   user.ID,
		}
		return tx.Create(&version).Error
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventVersionCreated,
		Description: fmt.Sprintf("Created version %d of route %s", route.VersionNumber, route.RouteCode),
		Success:     true,
		Metadata:    map[string]interface{}{"route_id": route.ID, "version": route.VersionNumber},
	})
	return s.GetVersion(id, route.VersionNumber)
}

// MaterializeVersion rebuilds a detached route carrying the state stored in
// one history snapshot, for exports and previews. The live row is untouched.
func (s *RouteService) MaterializeVersion(id uint, versionNumber int) (*models.TechnologicalRoute, error) {
	route, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	version, err := s.GetVersion(id, versionNumber)
	if err != nil {
		return nil, err
	}

	var snap routeSnapshot
	if err := json.Unmarshal([]byte(version.RouteData), &snap); err != nil {
		return nil, fmt.Errorf("decode version snapshot: %w", err)
	}

	detached := *route
	detached.Name = snap.Name
	detached.Description = snap.Description
	detached.RouteCode = snap.RouteCode
	detached.Status = models.RouteStatus(snap.Status)
	detached.RouteData = string(snap.RouteData)
	detached.EstimatedTime = snap.EstimatedTime
	detached.ProductType = snap.ProductType
	detached.ComplexityLevel = snap.ComplexityLevel
	detached.VersionNumber = version.VersionNumber
	detached.UpdatedAt = version.CreatedAt
	return &detached, nil
}

// Restore brings a historical snapshot back as the route's current state.
// History stays append-only: the route moves to a new version number and the
// restored state is recorded under it.
func (s *RouteService) Restore(ctx context.Context, id uint, versionNumber int, user *models.User) (*models.TechnologicalRoute, error) {
	route, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	version, err := s.GetVersion(id, versionNumber)
	if err != nil {
		return nil, err
	}

	var snap routeSnapshot
	if err := json.Unmarshal([]byte(version.RouteData), &snap); err != nil {
		return nil, fmt.Errorf("decode version snapshot: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		route.Name = snap.Name
		route.Description = snap.Description
		route.Status = models.RouteStatus(snap.Status)
		route.RouteData = string(snap.RouteData)
		route.EstimatedTime = snap.EstimatedTime
		route.ProductType = snap.ProductType
		route.ComplexityLevel = snap.ComplexityLevel
		route.VersionNumber++

		if err := tx.Save(route).Error; err != nil {
			return fmt.Errorf("save restored route: %w", err)
		}
		summary := fmt.Sprintf("Restored from version %d", versionNumber)
		if err := s.writeVersion(tx, route, models.ChangeTypeRestore, summary, user.ID); err != nil {
			return err
		}
		return s.syncRouteOperations(tx, route)
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventRouteRestored,
		Description: fmt.Sprintf("Restored route %s from version %d", route.RouteCode, versionNumber),
		Success:     true,
		Metadata:    map[string]interface{}{"route_id": route.ID, "restored_version": versionNumber, "new_version": route.VersionNumber},
	})
	return route, nil
}

// DiffVersions lists the fields that changed between two versions.
func (s *RouteService) DiffVersions(id uint, fromVersion, toVersion int) ([]string, error) {
	from, err := s.GetVersion(id, fromVersion)
	if err != nil {
		return nil, err
	}
	to, err := s.GetVersion(id, toVersion)
	if err != nil {
		return nil, err
	}

	var a, b routeSnapshot
	if err := json.Unmarshal([]byte(from.RouteData), &a); err != nil {
		return nil, fmt.Errorf("decode version %d: %w", fromVersion, err)
	}
	if err := json.Unmarshal([]byte(to.RouteData), &b); err != nil {
		return nil, fmt.Errorf("decode version %d: %w", toVersion, err)
	}
	return diffSnapshots(a, b), nil
}

// Duplicate creates a draft copy of a route at version 1 with its own
// history.
func (s *RouteService) Duplicate(ctx context.Context, id uint, req DuplicateRequest, user *models.User) (*models.TechnologicalRoute, error) {
	source, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = source.Name + " (copy)"
	}
	code := req.RouteCode
	if code == "" {
		code = fmt.Sprintf("%s-COPY-%d", source.RouteCode, time.Now().Unix())
	}

	var existing models.TechnologicalRoute
	if err := s.db.Unscoped().Where("route_code = ?", code).First(&existing).Error; err == nil {
		return nil, &ConflictError{Message: fmt.Sprintf("route code %q already exists", code)}
	}

	dup := models.TechnologicalRoute{
		Name:            name,
		Description:     source.Description,
		RouteCode:       code,
		Status:          models.RouteStatusDraft,
		RouteData:       source.RouteData,
		VersionNumber:   1,
		EstimatedTime:   source.EstimatedTime,
		ProductType:     source.ProductType,
		ComplexityLevel: source.ComplexityLevel,
		CreatedByID:     user.ID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dup).Error; err != nil {
			return fmt.Errorf("create route copy: %w", err)
		}
		summary := fmt.Sprintf("Duplicated from %s", source.RouteCode)
		if err := s.writeVersion(tx, &dup, models.ChangeTypeDuplicate, summary, user.ID); err != nil {
			return err
		}
		return s.syncRouteOperations(tx, &dup)
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, queue.Event{
		UserID:      &user.ID,
		Username:    user.Username,
		EventType:   audit.EventRouteCreated,
		Description: fmt.Sprintf("Duplicated route %s as %s", source.RouteCode, dup.RouteCode),
		Success:     true,
		Metadata:    map[string]interface{}{"source_route_id": source.ID, "route_id": dup.ID},
	})
	return &dup, nil
}

// Validate checks a route's graph for structural problems. Errors block
// activation; warnings are advisory.
func (s *RouteService) Validate(id uint) (*ValidationResult, error) {
	route, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	doc, err := route.Graph()
	if err != nil {
		return &ValidationResult{Valid: false, Errors: []string{"route graph payload is not valid JSON"}, Warnings: []string{}}, nil
	}
	return ValidateGraph(doc), nil
}

// ValidateGraph runs the structural checks on a graph document.
func ValidateGraph(doc *graph.Document) *ValidationResult {
	result := &ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}

	if doc == nil || doc.Empty() {
		result.Valid = false
		result.Errors = append(result.Errors, "route graph is empty")
		return result
	}

	nodeIDs := map[string]bool{}
	for _, n := range doc.Nodes {
		if nodeIDs[n.ID] {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		nodeIDs[n.ID] = true

		if n.Type == graph.NodeOperation {
			op := n.Data.Operation
			if op == nil || op.Name == "" {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("operation node %q has no operation data", n.ID))
			} else if op.SetupTime < 0 || op.OperationTime < 0 {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("operation node %q has negative time values", n.ID))
			}
		}
	}

	connected := map[string]bool{}
	for _, e := range doc.Edges {
		if !nodeIDs[e.Source] {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("edge %q references missing source node %q", e.ID, e.Source))
		}
		if !nodeIDs[e.Target] {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("edge %q references missing target node %q", e.ID, e.Target))
		}
		if e.Source == e.Target {
			result.Warnings = append(result.Warnings, fmt.Sprintf("edge %q is a self-loop", e.ID))
		}
		connected[e.Source] = true
		connected[e.Target] = true
	}

	if len(doc.Nodes) > 1 {
		for _, n := range doc.Nodes {
			if !connected[n.ID] {
				result.Warnings = append(result.Warnings, fmt.Sprintf("node %q is not connected to the route", n.ID))
			}
		}
	}

	hasStart := false
	hasEnd := false
	for _, n := range doc.Nodes {
		switch n.Type {
		case graph.NodeStart:
			hasStart = true
		case graph.NodeEnd:
			hasEnd = true
		}
	}
	if !hasStart {
		result.Warnings = append(result.Warnings, "route has no start node")
	}
	if !hasEnd {
		result.Warnings = append(result.Warnings, "route has no end node")
	}

	if hasCycle(doc) {
		result.Warnings = append(result.Warnings, "route graph contains a cycle")
	}

	return result
}

// hasCycle detects directed cycles with an iterative DFS.
func hasCycle(doc *graph.Document) bool {
	successors := map[string][]string{}
	for _, e := range doc.Edges {
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := map[string]int{}

	var visit func(id string) bool
	visit = func(id string) bool {
		state[id] = inStack
		for _, next := range successors[id] {
			switch state[next] {
			case inStack:
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	for _, n := range doc.Nodes {
		if state[n.ID] == unvisited && visit(n.ID) {
			return true
		}
	}
	return false
}

// Statistics aggregates timing and structure facts for a route.
func (s *RouteService) Statistics(id uint) (*RouteStatistics, error) {
	route, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	doc, err := route.Graph()
	if err != nil {
		return nil, &ValidationError{Message: "route graph payload is not valid JSON"}
	}

	stats := &RouteStatistics{
		RouteID:          route.ID,
		RouteCode:        route.RouteCode,
		NodeCount:        len(doc.Nodes),
		EdgeCount:        len(doc.Edges),
		OperationsByType: map[string]int{},
		TimeByType:       map[string]float64{},
	}

	for _, n := range doc.OperationNodes() {
		op := n.Data.Operation
		if op == nil {
			continue
		}
		stats.OperationCount++
		stats.TotalSetupTime += op.SetupTime
		stats.TotalWorkTime += op.OperationTime
		stats.OperationsByType[op.OperationType]++
		stats.TimeByType[op.OperationType] += op.SetupTime + op.OperationTime
	}
	stats.TotalTime = stats.TotalSetupTime + stats.TotalWorkTime
	return stats, nil
}

// Dependencies projects the route graph onto plain adjacency data.
func (s *RouteService) Dependencies(id uint) (*RouteDependencies, error) {
	route, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	doc, err := route.Graph()
	if err != nil {
		return nil, &ValidationError{Message: "route graph payload is not valid JSON"}
	}

	deps := &RouteDependencies{
		RouteID:    route.ID,
		Nodes:      []DependencyNode{},
		Edges:      [][2]string{},
		Successors: map[string][]string{},
	}
	for _, n := range doc.Nodes {
		deps.Nodes = append(deps.Nodes, DependencyNode{ID: n.ID, Type: string(n.Type), Label: n.Data.Label})
	}
	for _, e := range doc.Edges {
		deps.Edges = append(deps.Edges, [2]string{e.Source, e.Target})
		deps.Successors[e.Source] = append(deps.Successors[e.Source], e.Target)
	}
	return deps, nil
}

// Optimize analyzes a route and returns advisory suggestions. Nothing is
// changed; acting on them is the engineer's call.
func (s *RouteService) Optimize(id uint) ([]OptimizeSuggestion, error) {
	route, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	doc, err := route.Graph()
	if err != nil {
		return nil, &ValidationError{Message: "route graph payload is not valid JSON"}
	}

	suggestions := []OptimizeSuggestion{}

	// Setup-heavy operations dominate their own work time
	for _, n := range doc.OperationNodes() {
		op := n.Data.Operation
		if op == nil {
			continue
		}
		if op.OperationTime > 0 && op.SetupTime > op.OperationTime {
			suggestions = append(suggestions, OptimizeSuggestion{
				Kind:    "setup_heavy",
				NodeID:  n.ID,
				Message: fmt.Sprintf("operation %q spends more time on setup (%.1f min) than on work (%.1f min); consider batching", op.Name, op.SetupTime, op.OperationTime),
				Minutes: op.SetupTime - op.OperationTime,
			})
		}
	}

	// Consecutive operations of the same type can often share a setup
	opByNode := map[string]*graph.OperationData{}
	for i := range doc.Nodes {
		n := doc.Nodes[i]
		if n.Type == graph.NodeOperation && n.Data.Operation != nil {
			opByNode[n.ID] = n.Data.Operation
		}
	}
	for _, e := range doc.Edges {
		src, srcOK := opByNode[e.Source]
		dst, dstOK := opByNode[e.Target]
		if srcOK && dstOK && src.OperationType == dst.OperationType && src.OperationType != "" {
			suggestions = append(suggestions, OptimizeSuggestion{
				Kind:    "mergeable_sequence",
				NodeID:  e.Target,
				Message: fmt.Sprintf("consecutive %s operations %q and %q may share a setup", src.OperationType, src.Name, dst.Name),
				Minutes: dst.SetupTime,
			})
		}
	}

	// Estimated time drifting from the graph's actual total
	stats, err := s.Statistics(id)
	if err == nil && route.EstimatedTime > 0 && stats.TotalTime > 0 {
		estimatedMinutes := route.EstimatedTime * 60
		if stats.TotalTime > estimatedMinutes*1.2 || stats.TotalTime < estimatedMinutes*0.8 {
			suggestions = append(suggestions, OptimizeSuggestion{
				Kind:    "estimate_drift",
				Message: fmt.Sprintf("estimated time (%.1f h) differs from graph total (%.1f h) by more than 20%%", route.EstimatedTime, stats.TotalTime/60),
			})
		}
	}

	return suggestions, nil
}
