package models

import (
	"time"

	"github.com/mattn/go-nulltype"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RewriteStatus string

const (
	RewriteStatusBroadcast RewriteStatus = "broadcast"
	RewriteStatusSigned    RewriteStatus = "signed"
	RewriteStatusCancelled RewriteStatus = "cancelled"
	RewriteStatusFailed    RewriteStatus = "failed"
)

// Rewrite is one fee rewrite attempt that got as far as a plan.
type Rewrite struct {
	ID             uint            `json:"-" gorm:"primaryKey"`
	RunID          string          `json:"run_id" gorm:"uniqueIndex;size:36"`
	TxID           string          `json:"txid" gorm:"index;size:64"`
	Payer          string          `json:"payer"`
	Recipient      string          `json:"recipient"`
	OriginalFee    decimal.Decimal `json:"original_fee" gorm:"type:varchar(78);not null"`
	NewFee         decimal.Decimal `json:"new_fee" gorm:"type:varchar(78);not null"`
	FeeDelta       decimal.Decimal `json:"fee_delta" gorm:"type:varchar(78);not null"`
	OriginalAmount decimal.Decimal `json:"original_amount" gorm:"type:varchar(78);not null"`
	NewAmount      decimal.Decimal `json:"new_amount" gorm:"type:varchar(78);not null"`
	Status         RewriteStatus   `json:"status" gorm:"size:16"`
	// State is the last workflow state reached.
	State     string              `json:"state" gorm:"size:32"`
	NewTxID   nulltype.NullString `json:"new_txid"`
	SignedHex nulltype.NullString `json:"-"`
	Error     nulltype.NullString `json:"error"`
	CreatedAt time.Time           `json:"created_at"`
}

func (r Rewrite) TableName() string {
	return "rewrites"
}

func CreateRewrite(db *gorm.DB, rewrite *Rewrite) error {
	return db.Create(rewrite).Error
}

func FindRewriteByRunID(db *gorm.DB, runID string) (Rewrite, error) {
	var rewrite Rewrite
	err := db.Where("run_id = ?", runID).First(&rewrite).Error
	return rewrite, err
}

func ListRewrites(db *gorm.DB) ([]Rewrite, error) {
	var rewrites []Rewrite
	err := db.Order("id asc").Find(&rewrites).Error
	return rewrites, err
}

func ListRewritesByTxID(db *gorm.DB, txid string) ([]Rewrite, error) {
	var rewrites []Rewrite
	err := db.Where("tx_id = ?", txid).Order("id asc").Find(&rewrites).Error
	return rewrites, err
}

func CountRewrites(db *gorm.DB) (int, error) {
	var count int64
	err := db.Model(&Rewrite{}).Count(&count).Error
	return int(count), err
}
