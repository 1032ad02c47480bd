package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/outcomefi/engine/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver.
//
// The archiver only requires the query methods it actually calls, not the
// full domain store interfaces. The Postgres stores satisfy these implicitly.
// ---------------------------------------------------------------------------

// OrderArchiveStore provides read access to a market's full order ledger.
type OrderArchiveStore interface {
	ListAllByMarket(ctx context.Context, marketID string) ([]domain.Order, error)
}

// TradeArchiveStore provides read and prune access to a market's trades.
type TradeArchiveStore interface {
	ListAllByMarket(ctx context.Context, marketID string) ([]domain.Trade, error)
	DeleteByMarket(ctx context.Context, marketID string) (int64, error)
}

// ClaimArchiveStore provides read access to a market's claim ledger.
type ClaimArchiveStore interface {
	ListByMarket(ctx context.Context, marketID string) ([]domain.ClaimBalance, error)
}

// multipartThreshold switches trade uploads to the multipart path. Orders
// and claims stay small; trade history is the table that grows unbounded.
const multipartThreshold = 8 * 1024 * 1024

// Archiver implements domain.Archiver: it exports a closed market's order
// ledger, trade history, and claim balances to object storage as JSONL, then
// prunes the trade rows from the primary store. Orders and claims are kept
// in Postgres; trades are the unbounded table.
type Archiver struct {
	writer *Writer
	orders OrderArchiveStore
	trades TradeArchiveStore
	claims ClaimArchiveStore
	audit  domain.AuditStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(
	writer *Writer,
	orders OrderArchiveStore,
	trades TradeArchiveStore,
	claims ClaimArchiveStore,
	audit domain.AuditStore,
) *Archiver {
	return &Archiver{
		writer: writer,
		orders: orders,
		trades: trades,
		claims: claims,
		audit:  audit,
	}
}

var _ domain.Archiver = (*Archiver)(nil)

// ArchiveMarket exports one market to cold storage and returns the number of
// trade rows pruned from the primary store. Uploads run before the prune, so
// a failed upload leaves the primary store untouched.
//
// Layout:
//
//	archive/markets/{id}/orders.jsonl
//	archive/markets/{id}/trades.jsonl
//	archive/markets/{id}/claims.jsonl
func (a *Archiver) ArchiveMarket(ctx context.Context, marketID string) (int64, error) {
	orders, err := a.orders.ListAllByMarket(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s: orders query: %w", marketID, err)
	}
	trades, err := a.trades.ListAllByMarket(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s: trades query: %w", marketID, err)
	}
	claims, err := a.claims.ListByMarket(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s: claims query: %w", marketID, err)
	}

	if err := uploadJSONL(ctx, a.writer, domain.ArchivePath(marketID, "orders"), orders); err != nil {
		return 0, err
	}
	if err := uploadJSONL(ctx, a.writer, domain.ArchivePath(marketID, "trades"), trades); err != nil {
		return 0, err
	}
	if err := uploadJSONL(ctx, a.writer, domain.ArchivePath(marketID, "claims"), claims); err != nil {
		return 0, err
	}

	pruned, err := a.trades.DeleteByMarket(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive %s: prune trades: %w", marketID, err)
	}

	if err := a.audit.Log(ctx, "market_archived", map[string]any{
		"market_id": marketID,
		"orders":    len(orders),
		"trades":    len(trades),
		"claims":    len(claims),
		"pruned":    pruned,
	}); err != nil {
		return pruned, fmt.Errorf("s3blob: archive %s: audit log: %w", marketID, err)
	}

	return pruned, nil
}

// uploadJSONL serializes records as JSONL and writes them to the given key.
// Empty record sets still produce an object so the archive layout is uniform.
// Large payloads go through the multipart uploader.
func uploadJSONL[T any](ctx context.Context, w *Writer, path string, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: marshal %s: %w", path, err)
	}

	if int64(len(buf)) >= multipartThreshold {
		if err := w.PutMultipart(ctx, path, bytes.NewReader(buf), jsonlContentType, minPartSize); err != nil {
			return fmt.Errorf("s3blob: upload %s: %w", path, err)
		}
		return nil
	}
	if err := w.Put(ctx, path, bytes.NewReader(buf), jsonlContentType); err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", path, err)
	}
	return nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
