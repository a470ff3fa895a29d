package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/securecloudx/securecloudx/internal/blob"
	"github.com/securecloudx/securecloudx/internal/common"
	"github.com/securecloudx/securecloudx/internal/cryptox"
	"github.com/securecloudx/securecloudx/internal/ledger"
	"github.com/securecloudx/securecloudx/internal/logging"
	"github.com/securecloudx/securecloudx/internal/server/models"
	"github.com/securecloudx/securecloudx/internal/server/repositories/repomanager"
)

// CustodyService implements the key custody protocol over the cipher, the
// key agreement scheme, the ledger, and the stores. A file key exists in
// plaintext only inside Issue, Grant, and Retrieve call frames; at rest it
// is always a wrapped envelope inside a ledger record.
type CustodyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	chain       *ledger.Ledger
	blobs       blob.Store
	logger      logging.Logger
}

func NewCustodyService(db *sql.DB, m repomanager.RepositoryManager, chain *ledger.Ledger, blobs blob.Store, logger logging.Logger) *CustodyService {
	return &CustodyService{
		db:          db,
		repomanager: m,
		chain:       chain,
		blobs:       blobs,
		logger:      logger,
	}
}

// GetRandomStorageKey returns a date-partitioned blob key for a new upload.
// The random suffix is independent of the file ID, so a leaked storage key
// reveals nothing about ledger or metadata rows.
func GetRandomStorageKey() (string, error) {
	suffix, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	d := time.Now()
	return fmt.Sprintf("files/%d/%d/%d/%s", d.Year(), d.Month(), d.Day(), suffix), nil
}

// Issue encrypts plaintext under a fresh AES-256 key, stores the ciphertext,
// wraps the key for the owner's own public key, and appends the issue record.
// The file metadata row is the last step, so a ledger record always exists
// for every row that references it.
func (s *CustodyService) Issue(ctx context.Context, ownerID, filename string, plaintext []byte) (*models.File, error) {
	owner, err := s.repomanager.Users(s.db).GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error loading owner: %w", err)
	}

	key := cryptox.GenerateKey()
	defer common.WipeByteArray(key)

	payload, err := cryptox.Encrypt(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("error encrypting file: %w", err)
	}

	envelope, err := cryptox.Wrap(key, owner.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("error wrapping key: %w", err)
	}

	fileID := uuid.New().String()
	storageKey, err := GetRandomStorageKey()
	if err != nil {
		return nil, fmt.Errorf("error generating storage key: %w", err)
	}

	if err := s.blobs.Put(ctx, storageKey, payload.Ciphertext); err != nil {
		return nil, fmt.Errorf("error storing ciphertext: %w", err)
	}

	record, err := s.chain.Append(ctx, ledger.Payload{
		Action:     ledger.ActionIssue,
		FileID:     fileID,
		OwnerID:    ownerID,
		Filename:   filename,
		WrappedKey: envelope,
	})
	if err != nil {
		return nil, fmt.Errorf("error appending issue record: %w", err)
	}

	file := &models.File{
		ID:          fileID,
		OwnerID:     ownerID,
		Filename:    filename,
		StorageKey:  storageKey,
		IV:          payload.IV,
		LedgerIndex: record.Index,
	}

	f, err := s.repomanager.Files(s.db).Create(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("error creating file record: %w", err)
	}

	s.logger.Info(ctx, "file issued", "file_id", fileID, "owner_id", ownerID, "ledger_index", record.Index)
	return f, nil
}

// Grant re-wraps the file key for a recipient. Only the owner can grant:
// the owner's newest envelope is unwrapped with the owner's private key and
// the key is immediately re-wrapped for the recipient's public key.
func (s *CustodyService) Grant(ctx context.Context, fileID, ownerID, recipientID string) (int, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return 0, err
	}
	if file.OwnerID != ownerID {
		return 0, common.ErrorAccessDenied
	}

	record, ok := s.chain.Grant(fileID, ownerID)
	if !ok || record.Data.WrappedKey == nil {
		return 0, common.ErrorAccessDenied
	}

	users := s.repomanager.Users(s.db)
	owner, err := users.GetByID(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("error loading owner: %w", err)
	}
	recipient, err := users.GetByID(ctx, recipientID)
	if err != nil {
		return 0, err
	}

	key, err := cryptox.Unwrap(record.Data.WrappedKey, owner.PrivateKeyPEM)
	if err != nil {
		return 0, fmt.Errorf("error unwrapping key: %w", err)
	}
	defer common.WipeByteArray(key)

	envelope, err := cryptox.Wrap(key, recipient.PublicKeyPEM)
	if err != nil {
		return 0, fmt.Errorf("error wrapping key for recipient: %w", err)
	}

	grant, err := s.chain.Append(ctx, ledger.Payload{
		Action:      ledger.ActionGrant,
		FileID:      fileID,
		OwnerID:     ownerID,
		RecipientID: recipientID,
		Filename:    file.Filename,
		WrappedKey:  envelope,
	})
	if err != nil {
		return 0, fmt.Errorf("error appending grant record: %w", err)
	}

	s.logger.Info(ctx, "file shared", "file_id", fileID, "owner_id", ownerID, "recipient_id", recipientID, "ledger_index", grant.Index)
	return grant.Index, nil
}

// Retrieve returns the decrypted content for a requester the ledger has an
// envelope for. Requesters without an issue or grant record addressed to
// them get ErrorAccessDenied regardless of whether the file exists for
// someone else.
func (s *CustodyService) Retrieve(ctx context.Context, fileID, requesterID string) (*models.File, []byte, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	record, ok := s.chain.Grant(fileID, requesterID)
	if !ok || record.Data.WrappedKey == nil {
		return nil, nil, common.ErrorAccessDenied
	}

	requester, err := s.repomanager.Users(s.db).GetByID(ctx, requesterID)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading requester: %w", err)
	}

	key, err := cryptox.Unwrap(record.Data.WrappedKey, requester.PrivateKeyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("error unwrapping key: %w", err)
	}
	defer common.WipeByteArray(key)

	ciphertext, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading ciphertext: %w", err)
	}

	plaintext, err := cryptox.Decrypt(&cryptox.EncryptedPayload{IV: file.IV, Ciphertext: ciphertext}, key)
	if err != nil {
		return nil, nil, fmt.Errorf("error decrypting file: %w", err)
	}

	return file, plaintext, nil
}

// ListFiles returns the files a user owns and the files shared with them
// through grant records.
func (s *CustodyService) ListFiles(ctx context.Context, userID string) (owned, shared []*models.File, err error) {
	filesRepo := s.repomanager.Files(s.db)

	owned, err = filesRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	for _, record := range s.chain.Records() {
		p := record.Data
		if p.Action != ledger.ActionGrant || p.RecipientID != userID || seen[p.FileID] {
			continue
		}
		seen[p.FileID] = true

		file, err := filesRepo.GetByID(ctx, p.FileID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// Ledger entries are never deleted; the metadata row may be.
				continue
			}
			return nil, nil, err
		}
		shared = append(shared, file)
	}

	return owned, shared, nil
}

// Audit reports whether the chain currently validates, the index of the
// first broken record (-1 when valid), and a copy of the full chain.
func (s *CustodyService) Audit(ctx context.Context) (valid bool, firstBad int, records []*ledger.Record) {
	firstBad = -1
	err := s.chain.Validate()
	if err == nil {
		return true, firstBad, s.chain.Records()
	}

	var vErr *ledger.ChainValidationError
	if errors.As(err, &vErr) {
		firstBad = vErr.Index
	}
	s.logger.Warn(ctx, "ledger validation failed", "error", err.Error())
	return false, firstBad, s.chain.Records()
}
