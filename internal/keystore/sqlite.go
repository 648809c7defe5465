package keystore

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/sensiblebit/pkcs1doc"
	_ "modernc.org/sqlite"
)

// sqliteKeyRow maps a row in the SQLite public_keys table.
type sqliteKeyRow struct {
	SubjectKeyIdentifier string         `db:"subject_key_identifier"`
	BitLength            int            `db:"bit_length"`
	PublicExponent       string         `db:"public_exponent"`
	TrustAnchor          bool           `db:"trust_anchor"`
	SourcesJSON          types.JSONText `db:"sources"`
	DER                  []byte         `db:"der"`
}

// openMemDB creates an in-memory SQLite database with the key catalog schema.
func openMemDB() (*sqlx.DB, error) {
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// initSQLiteSchema creates the public_keys table.
func initSQLiteSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS public_keys (
			subject_key_identifier TEXT PRIMARY KEY,
			bit_length             INTEGER NOT NULL,
			public_exponent        TEXT NOT NULL,
			trust_anchor           INTEGER NOT NULL DEFAULT 0,
			sources                TEXT,
			der                    BLOB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating public_keys table: %w", err)
	}
	return nil
}

// LoadFromSQLite opens a SQLite database file and copies its keys into the
// given MemStore. Each row's DER is validated again; a row that fails
// validation, or whose stored SKI does not match its key, aborts the load.
func LoadFromSQLite(store *MemStore, dbPath string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	db, err := openMemDB()
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	// ATTACH the on-disk database and copy data into memory
	if _, err := db.Exec("ATTACH DATABASE ? AS diskdb", dbPath); err != nil {
		return fmt.Errorf("attaching database %s: %w", dbPath, err)
	}
	defer func() {
		if _, detachErr := db.Exec("DETACH DATABASE diskdb"); detachErr != nil {
			slog.Warn("detaching database", "path", dbPath, "error", detachErr)
		}
	}()

	if _, err := db.Exec("INSERT OR IGNORE INTO public_keys SELECT * FROM diskdb.public_keys"); err != nil {
		return fmt.Errorf("loading keys from %s: %w", dbPath, err)
	}

	var rows []sqliteKeyRow
	if err := db.Select(&rows, "SELECT * FROM public_keys ORDER BY subject_key_identifier"); err != nil {
		return fmt.Errorf("reading keys: %w", err)
	}
	for _, row := range rows {
		doc, err := pkcs1doc.FromDER(row.DER)
		if err != nil {
			return fmt.Errorf("key %s in %s: %w", row.SubjectKeyIdentifier, dbPath, err)
		}
		ski := hex.EncodeToString(doc.SKI())
		if ski != row.SubjectKeyIdentifier {
			return fmt.Errorf("key %s in %s: stored SKI does not match key (computed %s)", row.SubjectKeyIdentifier, dbPath, ski)
		}

		var sources []string
		if len(row.SourcesJSON) > 0 {
			if err := row.SourcesJSON.Unmarshal(&sources); err != nil {
				slog.Warn("ignoring unreadable sources", "ski", ski, "error", err)
			}
		}
		if len(sources) == 0 {
			sources = []string{"db:" + filepath.Base(dbPath)}
		}
		for _, source := range sources {
			if err := store.HandleKey(doc, source); err != nil {
				return fmt.Errorf("loading key %s: %w", ski, err)
			}
		}
		if row.TrustAnchor {
			store.Get(ski).TrustAnchor = true
		}
	}

	slog.Info("loaded database into store", "path", dbPath, "keys", len(rows))
	return nil
}

// SaveToSQLite writes the contents of a MemStore to a SQLite database file,
// replacing any existing file at dbPath.
func SaveToSQLite(store *MemStore, dbPath string) error {
	db, err := openMemDB()
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	for _, rec := range store.All() {
		sources, err := json.Marshal(rec.Sources)
		if err != nil {
			return fmt.Errorf("encoding sources for %s: %w", rec.SKI, err)
		}
		row := sqliteKeyRow{
			SubjectKeyIdentifier: rec.SKI,
			BitLength:            rec.BitLength,
			PublicExponent:       rec.Exponent,
			TrustAnchor:          rec.TrustAnchor,
			SourcesJSON:          types.JSONText(sources),
			DER:                  rec.Doc.Bytes(),
		}
		_, err = db.NamedExec(`
			INSERT OR IGNORE INTO public_keys (subject_key_identifier, bit_length, public_exponent, trust_anchor, sources, der)
			VALUES (:subject_key_identifier, :bit_length, :public_exponent, :trust_anchor, :sources, :der)
		`, row)
		if err != nil {
			return fmt.Errorf("saving key %s: %w", rec.SKI, err)
		}
	}

	// VACUUM INTO refuses to overwrite, so write beside the target and rename.
	tmpPath := dbPath + ".tmp"
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale %s: %w", tmpPath, err)
	}
	if _, err := db.Exec("VACUUM INTO ?", tmpPath); err != nil {
		return fmt.Errorf("saving database to %s: %w", dbPath, err)
	}
	if err := os.Rename(tmpPath, dbPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving database to %s: %w", dbPath, err)
	}

	slog.Info("database saved", "path", dbPath, "keys", store.Len())
	return nil
}
