package sigstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Klingon-tech/token-claim/internal/claim"
	klog "github.com/Klingon-tech/token-claim/internal/log"
	"github.com/Klingon-tech/token-claim/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// signatureRow is the signatures table.
type signatureRow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	LskAddress  string    `gorm:"not null;uniqueIndex:idx_signatures_account_signer,priority:1"`
	Signer      string    `gorm:"not null;uniqueIndex:idx_signatures_account_signer,priority:2"`
	Destination string    `gorm:"not null;index"`
	IsOptional  bool      `gorm:"not null"`
	R           string    `gorm:"not null"`
	S           string    `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (signatureRow) TableName() string {
	return "signatures"
}

// BeforeSave assigns an id to new rows and lower-cases the signature halves.
func (r *signatureRow) BeforeSave(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.R = strings.ToLower(r.R)
	r.S = strings.ToLower(r.S)
	return nil
}

func rowFromRecord(rec *claim.SignatureRecord) signatureRow {
	return signatureRow{
		LskAddress:  rec.Account.String(),
		Signer:      rec.Signer.String(),
		Destination: rec.Destination.Hex(),
		IsOptional:  rec.IsOptional,
		R:           rec.R.String(),
		S:           rec.S.String(),
	}
}

func (r *signatureRow) toRecord() (claim.SignatureRecord, error) {
	account, err := types.ParseLisk32Address(r.LskAddress)
	if err != nil {
		return claim.SignatureRecord{}, fmt.Errorf("row %s: account: %w", r.ID, err)
	}
	signer, err := types.HexToPublicKey(r.Signer)
	if err != nil {
		return claim.SignatureRecord{}, fmt.Errorf("row %s: signer: %w", r.ID, err)
	}
	if !common.IsHexAddress(r.Destination) {
		return claim.SignatureRecord{}, fmt.Errorf("row %s: destination %q", r.ID, r.Destination)
	}
	sr, err := types.HexToHash(r.R)
	if err != nil {
		return claim.SignatureRecord{}, fmt.Errorf("row %s: r: %w", r.ID, err)
	}
	ss, err := types.HexToHash(r.S)
	if err != nil {
		return claim.SignatureRecord{}, fmt.Errorf("row %s: s: %w", r.ID, err)
	}
	return claim.SignatureRecord{
		Account:     account,
		Destination: common.HexToAddress(r.Destination),
		Signer:      signer,
		IsOptional:  r.IsOptional,
		R:           sr,
		S:           ss,
	}, nil
}

// PostgresStore keeps signature records in the signatures table.
type PostgresStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// OpenPostgres connects to dsn, verifies the connection and migrates the
// signatures table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore wraps an open gorm handle.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db, logger: klog.WithComponent("sigstore")}
}

// Migrate creates or updates the signatures table.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&signatureRow{}); err != nil {
		return fmt.Errorf("migrate signatures: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (p *PostgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Find returns the record of (account, signer), or nil.
func (p *PostgresStore) Find(ctx context.Context, account types.Address, signer types.PublicKey) (*claim.SignatureRecord, error) {
	var row signatureRow
	err := p.db.WithContext(ctx).
		Where("lsk_address = ? AND signer = ?", account.String(), signer.String()).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, p.logError("find signature", err, account)
	}
	rec, err := row.toRecord()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts rec, failing with claim.ErrDuplicateSigner on collision.
func (p *PostgresStore) Create(ctx context.Context, rec *claim.SignatureRecord) error {
	row := rowFromRecord(rec)
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return claim.ErrDuplicateSigner
		}
		return p.logError("create signature", err, rec.Account)
	}
	return nil
}

// Update replaces the destination and signature of an existing record.
func (p *PostgresStore) Update(ctx context.Context, rec *claim.SignatureRecord) error {
	row := rowFromRecord(rec)
	res := p.db.WithContext(ctx).Model(&signatureRow{}).
		Where("lsk_address = ? AND signer = ?", row.LskAddress, row.Signer).
		Updates(map[string]any{
			"destination": row.Destination,
			"r":           strings.ToLower(row.R),
			"s":           strings.ToLower(row.S),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return p.logError("update signature", res.Error, rec.Account)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update signature: no record for %s", rec.Account)
	}
	return nil
}

// Count returns the number of records of account targeting destination.
func (p *PostgresStore) Count(ctx context.Context, account types.Address, destination common.Address) (int, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&signatureRow{}).
		Where("lsk_address = ? AND destination = ?", account.String(), destination.Hex()).
		Count(&n).
		Error
	if err != nil {
		return 0, p.logError("count signatures", err, account)
	}
	return int(n), nil
}

// CountOptional counts optional-key records of account targeting destination.
func (p *PostgresStore) CountOptional(ctx context.Context, account types.Address, destination common.Address) (int, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&signatureRow{}).
		Where("lsk_address = ? AND destination = ? AND is_optional = ?", account.String(), destination.Hex(), true).
		Count(&n).
		Error
	if err != nil {
		return 0, p.logError("count optional signatures", err, account)
	}
	return int(n), nil
}

// ListByAccounts returns every record of the given accounts.
func (p *PostgresStore) ListByAccounts(ctx context.Context, accounts []types.Address) ([]claim.SignatureRecord, error) {
	if len(accounts) == 0 {
		return nil, nil
	}
	addrs := make([]string, len(accounts))
	for i, a := range accounts {
		addrs[i] = a.String()
	}

	var rows []signatureRow
	if err := p.db.WithContext(ctx).
		Where("lsk_address IN ?", addrs).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, p.logError("list signatures", err, accounts[0])
	}

	out := make([]claim.SignatureRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Reset deletes every row of the signatures table.
func (p *PostgresStore) Reset(ctx context.Context) (int, error) {
	res := p.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&signatureRow{})
	if res.Error != nil {
		p.logger.Error().Err(res.Error).Msg("Reset signatures failed")
		return 0, fmt.Errorf("reset signatures: %w", res.Error)
	}
	p.logger.Info().Int64("deleted", res.RowsAffected).Msg("Signatures reset")
	return int(res.RowsAffected), nil
}

func (p *PostgresStore) logError(op string, err error, account types.Address) error {
	p.logger.Error().Err(err).Str("account", account.String()).Msg(op + " failed")
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

