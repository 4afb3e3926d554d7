package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/voebb-loans/internal/crypto"
	"github.com/pfrederiksen/voebb-loans/internal/loan"
	bolt "go.etcd.io/bbolt"
)

// DefaultDataDir is where the database lives unless configured otherwise
const DefaultDataDir = "~/.local/share/voebb"

const dbFile = "voebb.db"

var bucketSnapshots = []byte("snapshots")

// Storage handles persistence of loan snapshots
type Storage struct {
	db  *bolt.DB
	enc *crypto.Encryptor
}

// New opens (or creates) the database in dataDir. A nil encryptor stores plain JSON.
func New(dataDir string, enc *crypto.Encryptor) (*Storage, error) {
	dataDir, err := ExpandHome(dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dataDir, dbFile), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &Storage{db: db, enc: enc}, nil
}

// ExpandHome expands a leading ~/ to the user's home directory
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// LoadSnapshot loads the snapshot of an account.
// Returns an empty snapshot if the account has none yet.
func (s *Storage) LoadSnapshot(account string) (*loan.Snapshot, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSnapshots).Get([]byte(account)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if data == nil {
		return loan.NewSnapshot(), nil
	}

	data, err = s.enc.Open(data)
	if err != nil {
		return nil, fmt.Errorf("decrypting snapshot: %w", err)
	}

	var snapshot loan.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	// Ensure collections are initialized
	if snapshot.Items == nil {
		snapshot.Items = make([]loan.Item, 0)
	}
	if snapshot.Reminded == nil {
		snapshot.Reminded = make(map[string]loan.Date)
	}

	return &snapshot, nil
}

// SaveSnapshot saves the snapshot of an account
func (s *Storage) SaveSnapshot(account string, snapshot *loan.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	data, err = s.enc.Seal(data)
	if err != nil {
		return fmt.Errorf("encrypting snapshot: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte(account), data)
	})
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// DeleteSnapshot removes the snapshot of an account
func (s *Storage) DeleteSnapshot(account string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(account))
	})
}

// Accounts lists the accounts that have a stored snapshot, sorted
func (s *Storage) Accounts() ([]string, error) {
	accounts := make([]string, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, _ []byte) error {
			accounts = append(accounts, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	sort.Strings(accounts)
	return accounts, nil
}
