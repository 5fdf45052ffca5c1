package store

import (
	"context"
	"fmt"

	"github.com/de7fp/restaurant-rag/models"
)

func (p *Pg) RecordChat(ctx context.Context, query, answer string, fallback bool) error {
	entry := models.ChatHistory{Query: query, Answer: answer, Fallback: fallback}
	if err := p.db(ctx, KindChatHistory).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record chat history: %w", err)
	}

	return nil
}

// ChatQueries returns the most recent user queries, newest first.
func (p *Pg) ChatQueries(ctx context.Context, limit int) ([]string, error) {
	var queries []string
	q := p.db(ctx, KindChatHistory).Model(&models.ChatHistory{}).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("query", &queries).Error; err != nil {
		return nil, fmt.Errorf("failed to list chat queries: %w", err)
	}

	return queries, nil
}

func (p *Pg) ListChatHistory(ctx context.Context, page Page) ([]models.ChatHistory, error) {
	var history []models.ChatHistory
	err := p.db(ctx, KindChatHistory).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}

	return history, nil
}

func (p *Pg) CreateMapSearch(ctx context.Context, m *models.MapSearchHistory) error {
	if err := p.db(ctx, KindMapSearch).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create map search: %w", err)
	}

	return nil
}

func (p *Pg) ListMapSearches(ctx context.Context, page Page) ([]models.MapSearchHistory, error) {
	var searches []models.MapSearchHistory
	err := p.db(ctx, KindMapSearch).
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&searches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list map searches: %w", err)
	}

	return searches, nil
}

func (p *Pg) DeleteMapSearch(ctx context.Context, id uint64) error {
	res := p.db(ctx, KindMapSearch).Delete(&models.MapSearchHistory{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete map search: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
