package datastore

import (
	"context"

	"codedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableProject(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Project)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Project)(nil)).Index("index_project_slug").IfNotExists().Unique().Column("slug").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertProject(ctx context.Context, db *bun.DB, project *models.Project) error {
	_, err := db.NewInsert().Model(project).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// GetProjectBySlug resolves a public redemption link. Soft-deleted projects
// are invisible here; the active flag is checked by the caller so it can
// distinguish "missing" from "paused" if it ever needs to.
func GetProjectBySlug(ctx context.Context, db *bun.DB, slug string) (*models.Project, error) {
	var project models.Project
	err := db.NewSelect().Model(&project).
		Where("slug = ?", slug).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &project, nil
}

func GetActiveProjectIDs(ctx context.Context, db *bun.DB) ([]string, error) {
	var ids []string
	err := db.NewSelect().Model((*models.Project)(nil)).
		Column("id").
		Where("is_active = TRUE").
		Where("deleted_at IS NULL").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	return ids, nil
}
