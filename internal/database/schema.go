package database // MySQL schema bootstrap

import (
	"context"      // context carries deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"fmt"          // fmt wraps errors with context
)

// schema is applied in order on startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS parcels (
		id             CHAR(36)      NOT NULL PRIMARY KEY,
		parcel_name    VARCHAR(255)  NOT NULL,
		sender_email   VARCHAR(255)  NOT NULL,
		cost           DECIMAL(12,2) NOT NULL,
		payment_status ENUM('unpaid','paid') NOT NULL DEFAULT 'unpaid',
		tracking_id    VARCHAR(32)   NULL,
		details        JSON          NULL,
		created_at     DATETIME(3)   NOT NULL,
		KEY idx_parcels_sender_created (sender_email, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS payments (
		id             CHAR(36)     NOT NULL PRIMARY KEY,
		parcel_id      CHAR(36)     NOT NULL,
		parcel_name    VARCHAR(255) NOT NULL,
		customer_email VARCHAR(255) NOT NULL,
		currency       CHAR(3)      NOT NULL,
		amount_cents   BIGINT       NOT NULL,
		transaction_id VARCHAR(255) NOT NULL,
		tracking_id    VARCHAR(32)  NOT NULL,
		paid_at        DATETIME(3)  NOT NULL,
		payment_status ENUM('unpaid','paid') NOT NULL,
		UNIQUE KEY uq_payments_transaction (transaction_id),
		KEY idx_payments_email_paid (customer_email, paid_at),
		KEY idx_payments_paid_txn (paid_at, transaction_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id           CHAR(36)     NOT NULL PRIMARY KEY,
		email        VARCHAR(255) NOT NULL,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		photo_url    VARCHAR(1024) NOT NULL DEFAULT '',
		role         ENUM('user','rider','admin') NOT NULL DEFAULT 'user',
		created_at   DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS riders (
		id                CHAR(36)     NOT NULL PRIMARY KEY,
		name              VARCHAR(255) NOT NULL,
		email             VARCHAR(255) NOT NULL,
		age               INT          NOT NULL DEFAULT 0,
		region            VARCHAR(128) NOT NULL DEFAULT '',
		district          VARCHAR(128) NOT NULL DEFAULT '',
		nid               VARCHAR(64)  NOT NULL DEFAULT '',
		contact           VARCHAR(64)  NOT NULL DEFAULT '',
		bike_brand        VARCHAR(128) NOT NULL DEFAULT '',
		bike_registration VARCHAR(128) NOT NULL DEFAULT '',
		status            ENUM('pending','active','rejected') NOT NULL DEFAULT 'pending',
		created_at        DATETIME(3)  NOT NULL,
		KEY idx_riders_status_created (status, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
