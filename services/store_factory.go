package services

import (
	"context"

	"diary/config"
)

// NewStore は設定されたバックエンドのストアを返します。DynamoDB の場合はテーブルも用意します。
func NewStore(ctx context.Context, cfg config.Config) (DocumentStore, error) {
	if cfg.Backend != config.BackendDynamoDB {
		return NewGitHubStore(cfg), nil
	}
	client, err := NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := NewDynamoStore(client, cfg)
	store.EnsureTable(ctx)
	return store, nil
}
