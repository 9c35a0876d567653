package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lib/pq"

	"diary/models"
)

// DeliveryRecorder は webhook の処理結果を記録します。重複排除には使いません。
type DeliveryRecorder interface {
	Record(ctx context.Context, delivery models.Delivery) error
}

type NopDeliveryLog struct{}

func (NopDeliveryLog) Record(ctx context.Context, delivery models.Delivery) error {
	return nil
}

// PostgresDeliveryLog は webhook_deliveries テーブルに1配信1行で記録します。
type PostgresDeliveryLog struct {
	db        *sql.DB
	tableName string
}

func NewPostgresDeliveryLog(postgresURI string) (*PostgresDeliveryLog, error) {
	connStr := postgresURI
	if !strings.Contains(postgresURI, "sslmode=") {
		if strings.Contains(postgresURI, "?") {
			connStr += "&sslmode=disable"
		} else if strings.Contains(postgresURI, "://") {
			connStr += "?sslmode=disable"
		} else {
			connStr += " sslmode=disable"
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// 接続テスト
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	l := &PostgresDeliveryLog{db: db, tableName: "webhook_deliveries"}
	if err := l.ensureTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *PostgresDeliveryLog) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id BIGSERIAL PRIMARY KEY,
            request_id TEXT NOT NULL,
            uid TEXT NOT NULL DEFAULT '',
            conversation_id TEXT NOT NULL DEFAULT '',
            diary_date TEXT NOT NULL,
            documents TEXT[] NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `, pq.QuoteIdentifier(l.tableName))
	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", l.tableName, err)
	}
	return nil
}

func (l *PostgresDeliveryLog) Record(ctx context.Context, delivery models.Delivery) error {
	query := fmt.Sprintf(`
        INSERT INTO %s
        (request_id, uid, conversation_id, diary_date, documents, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, pq.QuoteIdentifier(l.tableName))

	createdAt := delivery.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, query,
		delivery.RequestID,
		delivery.UID,
		delivery.ConversationID,
		delivery.Date,
		delivery.Documents,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}

	log.Printf("%srecorded delivery for conversation %q", logPrefix(ctx), delivery.ConversationID)
	return nil
}

func (l *PostgresDeliveryLog) Recent(ctx context.Context, limit int) ([]models.Delivery, error) {
	query := fmt.Sprintf(`
        SELECT id, request_id, uid, conversation_id, diary_date, documents, created_at
        FROM %s
        ORDER BY id DESC
        LIMIT $1
    `, pq.QuoteIdentifier(l.tableName))

	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []models.Delivery
	for rows.Next() {
		var d models.Delivery
		var id int64
		if err := rows.Scan(&id, &d.RequestID, &d.UID, &d.ConversationID, &d.Date, &d.Documents, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		d.ID = fmt.Sprint(id)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func (l *PostgresDeliveryLog) Close() error {
	return l.db.Close()
}
