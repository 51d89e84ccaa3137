package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"cannapos/internal/core/id"
	"cannapos/internal/domain/audit"
)

// Compression algorithms stored with each action_history row.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

const compressThreshold = 10 * 1024

var _ audit.Recorder = (*AuditService)(nil)

// AuditService writes action_history rows.
type AuditService struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

// NewAuditService creates an audit recorder.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditService{txManager: txManager, encoder: encoder, decoder: decoder}, nil
}

// encodeFields returns the JSON fields, or their zstd frame when large.
func (s *AuditService) encodeFields(fields map[string]any) (plain, compressed []byte, algo string, err error) {
	if len(fields) == 0 {
		return nil, nil, CompressionNone, nil
	}
	plain, err = json.Marshal(fields)
	if err != nil {
		return nil, nil, "", fmt.Errorf("marshal audit fields: %w", err)
	}
	if len(plain) > compressThreshold {
		return nil, s.encoder.EncodeAll(plain, nil), CompressionZstd, nil
	}
	return plain, nil, CompressionNone, nil
}

// Record implements audit.Recorder.
func (s *AuditService) Record(ctx context.Context, e audit.Entry) error {
	audit.Enrich(ctx, &e)

	plain, compressed, algo, err := s.encodeFields(e.Fields)
	if err != nil {
		return err
	}

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO action_history (
			id, action, entity_type, entity_id, dispensary_id, user_id,
			order_id, package_label, fields, fields_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id.New(), string(e.Action), e.EntityType, e.EntityID, e.DispensaryID, e.UserID,
		nullInt(e.OrderID), nullString(e.PackageLabel), plain, compressed, algo, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert action history: %w", MapError(err))
	}
	return nil
}

// DecodeFields restores stored fields regardless of compression.
func (s *AuditService) DecodeFields(plain, compressed []byte, algo string) (map[string]any, error) {
	raw := plain
	if algo == CompressionZstd {
		var err error
		raw, err = s.decoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress audit fields: %w", err)
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal audit fields: %w", err)
	}
	return fields, nil
}

func nullInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
