package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"taskboard/internal/models"
)

// SeedOptions configure the demo data.
type SeedOptions struct {
	Email    string
	Password string
}

// SeedResult reports what the seeder created or reused.
type SeedResult struct {
	Categories  []models.Category
	User        models.User
	Project     models.Project
	Task        *models.Task
	CreatedUser bool
}

var seedCategories = []models.Category{
	{Name: "Bug", Color: "red"},
	{Name: "Feature", Color: "blue"},
	{Name: "Refactor", Color: "green"},
}

const (
	seedProjectName     = "My New Project"
	seedTaskTitle       = "Fix login bug"
	seedTaskDescription = "User reported issues with login functionality. Need to investigate and fix."
	seedTaskDue         = "2024-07-15T23:59:59.000Z"
)

// Seed fills an empty board with demo data. Each table is only populated when
// it is empty, so running it twice does not duplicate anything.
func (b *Board) Seed(ctx context.Context, opts SeedOptions) (SeedResult, error) {
	var (
		categories []models.Category
		users      []models.User
		projects   []models.Project
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		categories, err = b.store.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = b.store.ListUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		projects, err = b.store.ListProjects(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return SeedResult{}, fmt.Errorf("seed: check existing data: %w", err)
	}

	b.logger.Info("seed: database status",
		slog.Int("categories", len(categories)),
		slog.Int("users", len(users)),
		slog.Int("projects", len(projects)),
	)

	var res SeedResult

	if len(categories) == 0 {
		for _, c := range seedCategories {
			created, err := b.CreateCategory(ctx, c.Name, c.Color)
			if err != nil {
				return res, fmt.Errorf("seed: %w", err)
			}
			categories = append(categories, created)
		}
	}
	res.Categories = categories

	if len(users) == 0 {
		user, err := b.CreateOrFetchUser(ctx, opts.Email, opts.Password)
		if err != nil {
			return res, fmt.Errorf("seed: create demo user: %w", err)
		}
		res.User = user
		res.CreatedUser = true
	} else {
		res.User = users[0]
	}

	if len(projects) == 0 {
		project, err := b.CreateProject(ctx, ProjectInput{
			Name:          seedProjectName,
			SelectedUsers: []string{},
			CreatedBy:     res.User.Email,
			CreatorID:     res.User.ID,
		})
		if err != nil {
			return res, fmt.Errorf("seed: %w", err)
		}
		res.Project = project
	} else {
		res.Project = projects[0]
	}

	if _, err := b.CreateProjectMember(ctx, res.Project.ID, res.User.ID); err != nil && !errors.Is(err, ErrAlreadyMember) {
		return res, fmt.Errorf("seed: %w", err)
	}

	tasks, err := b.store.TasksByProject(ctx, res.Project.ID)
	if err != nil {
		return res, fmt.Errorf("seed: %w", err)
	}
	if len(tasks) > 0 {
		b.logger.Info("seed: project already has tasks", slog.String("project_id", res.Project.ID))
		return res, nil
	}

	in := TaskInput{
		ProjectID:   res.Project.ID,
		Title:       seedTaskTitle,
		Description: seedTaskDescription,
		Status:      models.StatusTodo,
		AssignedTo:  res.User.ID,
		DueDate:     seedTaskDue,
	}
	for _, c := range categories {
		if c.Name == "Bug" {
			in.CategoryID = c.ID
			break
		}
	}

	task, err := b.CreateTask(ctx, in)
	if err != nil {
		return res, fmt.Errorf("seed: %w", err)
	}
	res.Task = &task

	b.logger.Info("seed completed", slog.String("project_id", res.Project.ID), slog.String("user_id", res.User.ID))
	return res, nil
}
