package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-publisher/internal/models"
)

type contentTable struct {
	name    string
	columns string
}

var contentTables = map[models.ContentKind]contentTable{
	models.ContentKindMaterial: {
		name:    "materials",
		columns: "t.material_type, t.file_path, t.link_url, NULL::timestamptz AS due_date",
	},
	models.ContentKindAssignment: {
		name:    "assignments",
		columns: "NULL::varchar AS material_type, NULL::varchar AS file_path, NULL::varchar AS link_url, t.due_date",
	},
}

// ContentRepository reads and updates publishable materials and assignments.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs the repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func tableFor(kind models.ContentKind) (contentTable, error) {
	table, ok := contentTables[kind]
	if !ok {
		return contentTable{}, fmt.Errorf("unknown content kind %q", kind)
	}
	return table, nil
}

func selectContent(table contentTable) string {
	return fmt.Sprintf(`SELECT t.id, t.course_id, c.title AS course_title, c.teacher_id AS course_teacher_id, t.tema_id, t.title, t.description, %s, t.is_published, t.scheduled_publish_at, t.send_notification_email, t.created_at, t.updated_at FROM %s t JOIN courses c ON c.id = t.course_id`, table.columns, table.name)
}

func tagKind(items []models.PublishableItem, kind models.ContentKind) {
	for i := range items {
		items[i].Kind = kind
	}
}

// ListDueForPublish returns unpublished items whose schedule is at or before now.
func (r *ContentRepository) ListDueForPublish(ctx context.Context, kind models.ContentKind, now time.Time) ([]models.PublishableItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := selectContent(table) + ` WHERE t.is_published = FALSE AND t.scheduled_publish_at IS NOT NULL AND t.scheduled_publish_at <= $1 ORDER BY t.scheduled_publish_at ASC, t.id ASC`
	var items []models.PublishableItem
	if err := r.db.SelectContext(ctx, &items, query, now); err != nil {
		return nil, fmt.Errorf("list due %s: %w", table.name, err)
	}
	tagKind(items, kind)
	return items, nil
}

// MarkPublished flips is_published for a single unpublished row. It returns
// false when the row was already published or no longer exists.
func (r *ContentRepository) MarkPublished(ctx context.Context, kind models.ContentKind, id string) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`UPDATE %s SET is_published = TRUE WHERE id = $1 AND is_published = FALSE`, table.name)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark %s published: %w", table.name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark %s published rows: %w", table.name, err)
	}
	return affected == 1, nil
}

// GetByID fetches a single item with its course title.
func (r *ContentRepository) GetByID(ctx context.Context, kind models.ContentKind, id string) (*models.PublishableItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := selectContent(table) + ` WHERE t.id = $1`
	var item models.PublishableItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get %s: %w", table.name, err)
	}
	item.Kind = kind
	return &item, nil
}

// ListScheduled returns unpublished items with a schedule, soonest first.
func (r *ContentRepository) ListScheduled(ctx context.Context, kind models.ContentKind, courseID string, limit, offset int) ([]models.PublishableItem, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := selectContent(table) + ` WHERE t.is_published = FALSE AND t.scheduled_publish_at IS NOT NULL AND ($1 = '' OR t.course_id::text = $1) ORDER BY t.scheduled_publish_at ASC, t.id ASC LIMIT $2 OFFSET $3`
	var items []models.PublishableItem
	if err := r.db.SelectContext(ctx, &items, query, courseID, limit, offset); err != nil {
		return nil, fmt.Errorf("list scheduled %s: %w", table.name, err)
	}
	tagKind(items, kind)
	return items, nil
}

// CountScheduled counts the rows ListScheduled pages over.
func (r *ContentRepository) CountScheduled(ctx context.Context, kind models.ContentKind, courseID string) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s t WHERE t.is_published = FALSE AND t.scheduled_publish_at IS NOT NULL AND ($1 = '' OR t.course_id::text = $1)`, table.name)
	var total int
	if err := r.db.GetContext(ctx, &total, query, courseID); err != nil {
		return 0, fmt.Errorf("count scheduled %s: %w", table.name, err)
	}
	return total, nil
}

// UpdatePublication overwrites the publication fields of an item.
func (r *ContentRepository) UpdatePublication(ctx context.Context, kind models.ContentKind, id string, published bool, scheduledAt *time.Time, notify bool, updatedAt time.Time) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET is_published = $2, scheduled_publish_at = $3, send_notification_email = $4, updated_at = $5 WHERE id = $1`, table.name)
	res, err := r.db.ExecContext(ctx, query, id, published, scheduledAt, notify, updatedAt)
	if err != nil {
		return fmt.Errorf("update %s publication: %w", table.name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s publication rows: %w", table.name, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an item and returns the stored file paths that belonged to it.
func (r *ContentRepository) Delete(ctx context.Context, kind models.ContentKind, id string) ([]string, error) {
	switch kind {
	case models.ContentKindMaterial:
		return r.deleteMaterial(ctx, id)
	case models.ContentKindAssignment:
		return r.deleteAssignment(ctx, id)
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
}

func (r *ContentRepository) deleteMaterial(ctx context.Context, id string) ([]string, error) {
	const query = `DELETE FROM materials WHERE id = $1 RETURNING file_path`
	var path sql.NullString
	if err := r.db.GetContext(ctx, &path, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("delete material: %w", err)
	}
	if path.Valid && path.String != "" {
		return []string{path.String}, nil
	}
	return nil, nil
}

func (r *ContentRepository) deleteAssignment(ctx context.Context, id string) (paths []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const listQuery = `SELECT file_path FROM assignment_submissions WHERE assignment_id = $1`
	if err = tx.SelectContext(ctx, &paths, listQuery, id); err != nil {
		return nil, fmt.Errorf("list submission files: %w", err)
	}

	const deleteQuery = `DELETE FROM assignments WHERE id = $1`
	res, err := tx.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return nil, fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete assignment rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete assignment: %w", err)
	}
	return paths, nil
}
