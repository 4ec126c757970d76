package analytics

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// profileSchema creates the single table backing the store. One row per
// distinct ID; the property set is a tagged-JSON blob so value kinds
// survive the round trip.
const profileSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	distinct_id TEXT PRIMARY KEY,
	properties  TEXT NOT NULL,
	updated_at  INTEGER NOT NULL
);`

// SQLiteProfileStore is a durable ProfileStore backed by a SQLite file.
// Profiles survive process restarts. Mutations run read-modify-write
// inside a transaction so the profile math stays atomic per call.
//
// SQLiteProfileStore is safe for concurrent use; the database handle
// serializes access.
type SQLiteProfileStore struct {
	db *sql.DB
}

// NewSQLiteProfileStore opens (or creates) the profile database at path.
func NewSQLiteProfileStore(path string) (*SQLiteProfileStore, error) {
	if err := ValidateRequired("path", path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, NewResultError("open", err)
	}
	if _, err := db.Exec(profileSchema); err != nil {
		db.Close()
		return nil, NewResultError("open", err)
	}
	return &SQLiteProfileStore{db: db}, nil
}

// storedValue is the tagged on-disk form of a PropertyValue. The plain
// wire form is ambiguous on read-back (int vs number vs date), so the
// store keeps the kind explicit.
type storedValue struct {
	Kind    string   `json:"kind"`
	Bool    bool     `json:"bool,omitempty"`
	Int     int64    `json:"int,omitempty"`
	Number  float64  `json:"number,omitempty"`
	String  string   `json:"string,omitempty"`
	Seconds int64    `json:"seconds,omitempty"`
	Micros  int64    `json:"micros,omitempty"`
	List    []string `json:"list,omitempty"`
}

// encodeProfile serializes a profile map to its tagged-JSON blob.
func encodeProfile(profile map[string]PropertyValue) ([]byte, error) {
	stored := make(map[string]storedValue, len(profile))
	for k, v := range profile {
		sv := storedValue{Kind: v.Kind().String()}
		switch v.Kind() {
		case KindBool:
			sv.Bool = v.Bool()
		case KindInt:
			sv.Int = v.Int()
		case KindNumber:
			sv.Number = v.Number()
		case KindString:
			sv.String = v.Str()
		case KindDate:
			sv.Seconds, sv.Micros = v.Date()
		case KindList:
			sv.List = v.List()
		default:
			return nil, fmt.Errorf("analytics: cannot store invalid property value for key %q", k)
		}
		stored[k] = sv
	}
	return json.Marshal(stored)
}

// decodeProfile deserializes a tagged-JSON blob back to a profile map.
func decodeProfile(blob []byte) (map[string]PropertyValue, error) {
	var stored map[string]storedValue
	if err := json.Unmarshal(blob, &stored); err != nil {
		return nil, WrapError(err, "decode stored profile")
	}
	profile := make(map[string]PropertyValue, len(stored))
	for k, sv := range stored {
		switch sv.Kind {
		case "bool":
			profile[k] = BoolValue(sv.Bool)
		case "int":
			profile[k] = IntValue(sv.Int)
		case "number":
			profile[k] = NumberValue(sv.Number)
		case "string":
			profile[k] = StringValue(sv.String)
		case "date":
			profile[k] = DateValue(sv.Seconds, sv.Micros)
		case "list":
			profile[k] = ListValue(sv.List...)
		default:
			return nil, fmt.Errorf("analytics: unknown stored kind %q for key %q", sv.Kind, k)
		}
	}
	return profile, nil
}

// loadTx reads the profile for id within tx. Missing rows yield an empty map.
func loadTx(tx *sql.Tx, id string) (map[string]PropertyValue, error) {
	var blob []byte
	err := tx.QueryRow(`SELECT properties FROM profiles WHERE distinct_id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return make(map[string]PropertyValue), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeProfile(blob)
}

// saveTx upserts the profile for id within tx.
func saveTx(tx *sql.Tx, id string, profile map[string]PropertyValue) error {
	blob, err := encodeProfile(profile)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO profiles (distinct_id, properties, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(distinct_id) DO UPDATE SET properties = excluded.properties, updated_at = excluded.updated_at`,
		id, string(blob), time.Now().UnixMilli())
	return err
}

// mutate runs a read-modify-write cycle for id inside a transaction.
// Validation errors from the profile math roll back and pass through
// unwrapped; storage failures come back as ResultError.
func (s *SQLiteProfileStore) mutate(id string, apply func(map[string]PropertyValue) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return NewResultError("store", err)
	}
	defer tx.Rollback()

	profile, err := loadTx(tx, id)
	if err != nil {
		return NewResultError("store", err)
	}
	if err := apply(profile); err != nil {
		return err
	}
	if err := saveTx(tx, id, profile); err != nil {
		return NewResultError("store", err)
	}
	if err := tx.Commit(); err != nil {
		return NewResultError("store", err)
	}
	return nil
}

// Get implements ProfileStore.
func (s *SQLiteProfileStore) Get(distinctID string) (map[string]PropertyValue, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT properties FROM profiles WHERE distinct_id = ?`, distinctID).Scan(&blob)
	if err == sql.ErrNoRows {
		return make(map[string]PropertyValue), nil
	}
	if err != nil {
		return nil, NewResultError("store", err)
	}
	profile, err := decodeProfile(blob)
	if err != nil {
		return nil, NewResultError("store", err)
	}
	return profile, nil
}

// Set implements ProfileStore.
func (s *SQLiteProfileStore) Set(distinctID string, props map[string]PropertyValue) error {
	return s.mutate(distinctID, func(profile map[string]PropertyValue) error {
		applySet(profile, props)
		return nil
	})
}

// SetOnce implements ProfileStore.
func (s *SQLiteProfileStore) SetOnce(distinctID string, props map[string]PropertyValue) error {
	return s.mutate(distinctID, func(profile map[string]PropertyValue) error {
		applySetOnce(profile, props)
		return nil
	})
}

// Increment implements ProfileStore.
func (s *SQLiteProfileStore) Increment(distinctID string, deltas map[string]PropertyValue) error {
	return s.mutate(distinctID, func(profile map[string]PropertyValue) error {
		return applyIncrement(profile, deltas)
	})
}

// Append implements ProfileStore.
func (s *SQLiteProfileStore) Append(distinctID string, lists map[string]PropertyValue) error {
	return s.mutate(distinctID, func(profile map[string]PropertyValue) error {
		return applyAppend(profile, lists)
	})
}

// Unset implements ProfileStore.
func (s *SQLiteProfileStore) Unset(distinctID, key string) error {
	return s.mutate(distinctID, func(profile map[string]PropertyValue) error {
		delete(profile, key)
		return nil
	})
}

// Delete implements ProfileStore.
func (s *SQLiteProfileStore) Delete(distinctID string) error {
	if _, err := s.db.Exec(`DELETE FROM profiles WHERE distinct_id = ?`, distinctID); err != nil {
		return NewResultError("store", err)
	}
	return nil
}

// Close implements ProfileStore.
func (s *SQLiteProfileStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewResultError("close", err)
	}
	return nil
}

// Ensure SQLiteProfileStore implements ProfileStore.
var _ ProfileStore = (*SQLiteProfileStore)(nil)
