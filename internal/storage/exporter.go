package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-errors/errors"
)

var ErrMissingTxID = errors.New("signed transaction has no txid")

// Exporter saves signed transactions as <txid>.hex.
type Exporter struct {
	storage Storage
}

func NewExporter(storage Storage) *Exporter {
	return &Exporter{storage: storage}
}

func FileName(txid string) string {
	return txid + ".hex"
}

func (e *Exporter) ExportSigned(ctx context.Context, txid, hex string) error {
	if txid == "" {
		return ErrMissingTxID
	}
	name := FileName(txid)
	if err := e.storage.WriteFile(ctx, name, []byte(hex+"\n")); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	slog.Info("Exported signed transaction", "file", name)
	return nil
}
