package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gigboard/gig-backend/internal/models"
	"github.com/gigboard/gig-backend/internal/repository/common"
)

var ErrMediaNotFound = errors.New("media file not found")

// MediaRepository отвечает за метаданные загруженных файлов.
type MediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create сохраняет метаданные файла.
func (r *MediaRepository) Create(ctx context.Context, m *models.MediaFile) error {
	query := `
		INSERT INTO media_files (user_id, file_path, file_type, file_size, is_public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		m.UserID, m.FilePath, m.FileType, m.FileSize, m.IsPublic,
	).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("media repository: create %w", err)
	}
	return nil
}

// GetByID возвращает метаданные файла.
func (r *MediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error) {
	var m models.MediaFile
	if err := r.db.GetContext(ctx, &m, `SELECT * FROM media_files WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("media repository: get by id %w", err)
	}
	return &m, nil
}

// Delete удаляет метаданные файла и возвращает путь для очистки хранилища.
func (r *MediaRepository) Delete(ctx context.Context, id, userID uuid.UUID) (string, error) {
	var filePath string
	err := r.db.GetContext(ctx, &filePath,
		`DELETE FROM media_files WHERE id = $1 AND user_id = $2 RETURNING file_path`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrMediaNotFound
		}
		return "", fmt.Errorf("media repository: delete %w", err)
	}
	return filePath, nil
}

// AttachManyToGig связывает несколько файлов с гигом одной транзакцией.
// Чужие и несуществующие media id молча пропускаются.
func (r *MediaRepository) AttachManyToGig(ctx context.Context, gigID, userID uuid.UUID, mediaIDs []uuid.UUID) error {
	if len(mediaIDs) == 0 {
		return nil
	}

	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		inserter := common.NewBatchInserter(tx,
			`INSERT INTO gig_attachments (gig_id, media_id)`, 2, 100)

		for _, mediaID := range mediaIDs {
			var owned bool
			err := tx.GetContext(ctx, &owned,
				`SELECT EXISTS (SELECT 1 FROM media_files WHERE id = $1 AND user_id = $2)`,
				mediaID, userID)
			if err != nil {
				return fmt.Errorf("media repository: check ownership %w", err)
			}
			if !owned {
				continue
			}
			if err := inserter.Add(ctx, gigID, mediaID); err != nil {
				return fmt.Errorf("media repository: attach many %w", err)
			}
		}

		return inserter.Flush(ctx)
	})
}

// ListByGig возвращает вложения гига вместе с метаданными файлов.
func (r *MediaRepository) ListByGig(ctx context.Context, gigID uuid.UUID) ([]models.GigAttachment, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT a.id, a.gig_id, a.media_id, a.created_at,
		       m.id AS m_id, m.user_id, m.file_path, m.file_type, m.file_size, m.is_public, m.created_at AS m_created_at
		FROM gig_attachments a
		JOIN media_files m ON m.id = a.media_id
		WHERE a.gig_id = $1
		ORDER BY a.created_at
	`, gigID)
	if err != nil {
		return nil, fmt.Errorf("media repository: list by gig %w", err)
	}
	defer rows.Close()

	var attachments []models.GigAttachment
	for rows.Next() {
		var a models.GigAttachment
		var m models.MediaFile
		if err := rows.Scan(
			&a.ID, &a.GigID, &a.MediaID, &a.CreatedAt,
			&m.ID, &m.UserID, &m.FilePath, &m.FileType, &m.FileSize, &m.IsPublic, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("media repository: scan attachment %w", err)
		}
		a.Media = &m
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
