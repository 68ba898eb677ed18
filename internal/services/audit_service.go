package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/esalinasbarros/zmartboard/internal/models"
)

// AuditEntry captures a single audit event to persist.
type AuditEntry struct {
	UserID    *string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	Metadata  map[string]any
}

// AuditFilters encapsulates optional filters when querying audit logs.
type AuditFilters struct {
	UserID   string
	Action   string
	Result   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService persists and retrieves audit log entries.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Log stores an audit entry, marshalling metadata into JSON form.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit service: action is required")
	}
	if strings.TrimSpace(entry.Result) == "" {
		return errors.New("audit service: result is required")
	}

	var payload datatypes.JSON
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		payload = datatypes.JSON(encoded)
	}

	log := models.AuditLog{
		Action:    strings.TrimSpace(entry.Action),
		Resource:  strings.TrimSpace(entry.Resource),
		Result:    strings.TrimSpace(entry.Result),
		IPAddress: strings.TrimSpace(entry.IPAddress),
		Metadata:  payload,
	}

	if entry.UserID != nil && strings.TrimSpace(*entry.UserID) != "" {
		id := strings.TrimSpace(*entry.UserID)
		log.UserID = &id
	}

	return s.db.WithContext(ctx).Create(&log).Error
}

// List returns paginated audit logs ordered by creation time descending.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.AuditLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	query = applyAuditFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count logs: %w", err)
	}

	err := query.
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&results).Error
	if err != nil {
		return nil, 0, fmt.Errorf("audit service: list logs: %w", err)
	}

	return results, total, nil
}

// CleanupOlderThan removes audit logs older than the retention period in days.
func (s *AuditService) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	ctx = ensureContext(ctx)

	if days <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if v := strings.TrimSpace(filters.UserID); v != "" {
		query = query.Where("user_id = ?", v)
	}
	if v := strings.TrimSpace(filters.Action); v != "" {
		query = query.Where("action = ?", v)
	}
	if v := strings.TrimSpace(filters.Result); v != "" {
		query = query.Where("result = ?", v)
	}
	if v := strings.TrimSpace(filters.Resource); v != "" {
		query = query.Where("resource = ?", v)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}

// recordAudit logs the supplied entry while tolerating audit failures.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	_ = audit.Log(ctx, entry)
}
