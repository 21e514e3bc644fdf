package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rfqingest/internal"
	"rfqingest/internal/parselog"
)

// ReplaceItems drops the items stored for emailID and writes items in their
// discovery order.
func (d *DB) ReplaceItems(emailID int, requestID string, items []internal.PriceRequestItem) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM items WHERE emailId = ?`, emailID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO items (emailId, requestId, position, description, quantity, unit, internalCode, supplierCode, brand, confidence, needsReview, itemJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		itemJSON, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("encode item %d: %w", i, err)
		}
		if _, err := stmt.Exec(
			emailID, requestID, i, it.Description, it.Quantity, it.Unit,
			it.InternalCode, it.SupplierCode, it.Brand, it.Confidence, it.NeedsManualReview, string(itemJSON),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ListItems(emailID int) ([]internal.PriceRequestItem, error) {
	rows, err := d.conn.Query(`SELECT itemJson FROM items WHERE emailId = ? ORDER BY position ASC`, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.PriceRequestItem
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var it internal.PriceRequestItem
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SaveParseLog stores log under its request id. emailID may be zero for
// runs that did not come from the mailbox.
func (d *DB) SaveParseLog(emailID int, log parselog.ParseLog) error {
	logJSON, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode parse log: %w", err)
	}
	var email any
	if emailID > 0 {
		email = emailID
	}
	_, err = d.conn.Exec(`
INSERT INTO parse_logs (requestId, emailId, referenceNumber, itemCount, needsVerification, durationMs, logJson)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(requestId) DO UPDATE SET
  referenceNumber=excluded.referenceNumber,
  itemCount=excluded.itemCount,
  needsVerification=excluded.needsVerification,
  durationMs=excluded.durationMs,
  logJson=excluded.logJson
`, log.RequestID, email, log.ReferenceNumber, log.ItemCount, log.NeedsVerification, log.DurationMs, string(logJSON))
	return err
}

func (d *DB) GetParseLog(requestID string) (*parselog.ParseLog, error) {
	return d.scanParseLog(d.conn.QueryRow(`SELECT logJson FROM parse_logs WHERE requestId = ?`, requestID))
}

// LatestParseLog returns the most recent log recorded for emailID.
func (d *DB) LatestParseLog(emailID int) (*parselog.ParseLog, error) {
	return d.scanParseLog(d.conn.QueryRow(`
SELECT logJson FROM parse_logs WHERE emailId = ? ORDER BY createdAt DESC, rowid DESC LIMIT 1
`, emailID))
}

func (d *DB) scanParseLog(row *sql.Row) (*parselog.ParseLog, error) {
	var raw string
	err := row.Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var log parselog.ParseLog
	if err := json.Unmarshal([]byte(raw), &log); err != nil {
		return nil, fmt.Errorf("decode parse log: %w", err)
	}
	return &log, nil
}
