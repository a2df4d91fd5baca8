package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
)

// UpsertGame stores game metadata. An existing game may only be overwritten by its author.
func (that *StoreManager) UpsertGame(ctx context.Context, meta *entity.GameMeta) (*entity.GameMeta, error) {
	log := that.logger.With("method", "UpsertGame")

	meta.Name = strings.TrimSpace(meta.Name)
	if meta.Name == "" {
		return nil, fmt.Errorf("%w: game name is required", apperror.ErrValidation)
	}

	existing, err := that.gameRepo.GetByName(ctx, meta.Name)

	switch {
	case errors.Is(err, apperror.ErrNotFound):
		meta.CreatedAt = that.now()
	case err != nil:
		return nil, fmt.Errorf("failed to get game: %w", err)
	case existing.Author != meta.Author:
		log.Warn("overwrite by non-author rejected", "game", meta.Name, "author", meta.Author)

		return nil, apperror.ErrPermission
	default:
		meta.CreatedAt = existing.CreatedAt
	}

	meta.Normalize()

	if err = that.gameRepo.CreateOrUpdate(ctx, meta); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	log.Info("game saved", "game", meta.Name, "version", meta.Version, "author", meta.Author)

	return meta, nil
}

func (that *StoreManager) GetGame(ctx context.Context, name string) (*entity.GameMeta, error) {
	game, err := that.gameRepo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

func (that *StoreManager) ListGames(ctx context.Context) ([]entity.GameSummary, error) {
	games, err := that.gameRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	summaries := make([]entity.GameSummary, 0, len(games))
	for _, game := range games {
		summaries = append(summaries, game.Summary())
	}

	return summaries, nil
}

func (that *StoreManager) DeleteGame(ctx context.Context, name, author string) error {
	game, err := that.gameRepo.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}

	if game.Author != author {
		return apperror.ErrPermission
	}

	if err = that.gameRepo.DeleteByName(ctx, name); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}

// AddReview requires an existing game, a finished match of it and a 1-5 rating.
func (that *StoreManager) AddReview(ctx context.Context, review *entity.Review) error {
	if _, err := that.gameRepo.GetByName(ctx, review.GameName); err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}

	played, err := that.historyRepo.HasPlayed(ctx, review.UserID, review.GameName)
	if err != nil {
		return fmt.Errorf("failed to check history: %w", err)
	}

	if !played {
		return apperror.ErrNotPlayed
	}

	if err = review.Validate(); err != nil {
		return err
	}

	if user, err := that.userRepo.GetByID(ctx, review.UserID); err == nil {
		review.Username = user.Username
	}

	review.CreatedAt = that.now()

	if err = that.reviewRepo.Add(ctx, review); err != nil {
		return fmt.Errorf("failed to add review: %w", err)
	}

	return nil
}

func (that *StoreManager) ListReviews(ctx context.Context, gameName string) ([]*entity.Review, error) {
	reviews, err := that.reviewRepo.ListByGame(ctx, gameName)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return reviews, nil
}

func (that *StoreManager) History(ctx context.Context, userID int64) ([]string, error) {
	games, err := that.historyRepo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return games, nil
}
