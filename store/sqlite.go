// ABOUTME: SQLite persistence of infrastructures and their RailJSON objects, one row per object.
// ABOUTME: Serves as the cache's ObjectSource and applies edit operations transactionally.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/logging"
	"github.com/2389-research/infracache/schema"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// ErrInfraNotFound indicates no infrastructure exists with the requested id.
var ErrInfraNotFound = errors.New("infra not found")

// Infra is a row of the infras table.
type Infra struct {
	ID              ulid.ULID `json:"id"`
	Name            string    `json:"name"`
	Version         int64     `json:"version"`
	RailJSONVersion string    `json:"railjson_version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SqliteStore keeps every infrastructure in a single SQLite database.
type SqliteStore struct {
	db  *sql.DB
	log *logrus.Entry
}

// OpenSqlite opens or creates the database at path and ensures the schema exists.
func OpenSqlite(path string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	ddl := `
		CREATE TABLE IF NOT EXISTS infras (
			infra_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			railjson_version TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS objects (
			infra_id TEXT NOT NULL,
			obj_type TEXT NOT NULL,
			obj_id TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (infra_id, obj_type, obj_id),
			FOREIGN KEY (infra_id) REFERENCES infras(infra_id) ON DELETE CASCADE
		);`

	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SqliteStore{db: db, log: logging.Component("store")}, nil
}

// Close closes the database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// CreateInfra inserts an empty infrastructure.
func (s *SqliteStore) CreateInfra(ctx context.Context, name string) (Infra, error) {
	now := time.Now().UTC().Truncate(time.Second)
	infra := Infra{
		ID:              ulid.Make(),
		Name:            name,
		RailJSONVersion: schema.RailJSONVersion,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO infras (infra_id, name, version, railjson_version, created_at, updated_at)
		 VALUES (?, ?, 0, ?, ?, ?)`,
		infra.ID.String(), infra.Name, infra.RailJSONVersion,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return Infra{}, fmt.Errorf("insert infra: %w", err)
	}
	s.log.WithFields(logrus.Fields{"action": "create_infra", "infra_id": infra.ID.String(), "name": name}).Info("infra created")
	return infra, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfra(row rowScanner) (Infra, error) {
	var (
		infra            Infra
		id               string
		created, updated string
	)
	if err := row.Scan(&id, &infra.Name, &infra.Version, &infra.RailJSONVersion, &created, &updated); err != nil {
		return Infra{}, err
	}
	var err error
	if infra.ID, err = ulid.Parse(id); err != nil {
		return Infra{}, fmt.Errorf("parse infra id %q: %w", id, err)
	}
	if infra.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Infra{}, fmt.Errorf("parse created_at: %w", err)
	}
	if infra.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Infra{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return infra, nil
}

// GetInfra returns one infrastructure or ErrInfraNotFound.
func (s *SqliteStore) GetInfra(ctx context.Context, infraID ulid.ULID) (Infra, error) {
	return getInfra(ctx, s.db, infraID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getInfra(ctx context.Context, q querier, infraID ulid.ULID) (Infra, error) {
	row := q.QueryRowContext(ctx,
		`SELECT infra_id, name, version, railjson_version, created_at, updated_at
		 FROM infras WHERE infra_id = ?`, infraID.String())
	infra, err := scanInfra(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Infra{}, fmt.Errorf("%w: %s", ErrInfraNotFound, infraID)
	}
	if err != nil {
		return Infra{}, fmt.Errorf("query infra: %w", err)
	}
	return infra, nil
}

// ListInfras returns every infrastructure, oldest first.
func (s *SqliteStore) ListInfras(ctx context.Context) ([]Infra, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT infra_id, name, version, railjson_version, created_at, updated_at
		 FROM infras ORDER BY infra_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query infras: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infras []Infra
	for rows.Next() {
		infra, err := scanInfra(rows)
		if err != nil {
			return nil, fmt.Errorf("scan infra row: %w", err)
		}
		infras = append(infras, infra)
	}
	return infras, rows.Err()
}

// ImportRailJSON inserts every object of doc into an existing infrastructure
// and returns the number of objects written. Nothing is written on error.
func (s *SqliteStore) ImportRailJSON(ctx context.Context, infraID ulid.ULID, doc *schema.RailJSON) (int, error) {
	objs := doc.Objects()
	err := s.inTx(ctx, infraID, func(tx *sql.Tx) error {
		for _, obj := range objs {
			if err := insertObject(ctx, tx, infraID, obj); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"action": "import", "infra_id": infraID.String(), "objects": len(objs)}).Info("railjson imported")
	return len(objs), nil
}

// LoadObjects returns the objects of one type sorted by id.
func (s *SqliteStore) LoadObjects(ctx context.Context, infraID ulid.ULID, objType schema.ObjectType) ([]schema.InfraObject, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM objects WHERE infra_id = ? AND obj_type = ? ORDER BY obj_id ASC",
		infraID.String(), string(objType))
	if err != nil {
		return nil, fmt.Errorf("query %s objects: %w", objType, err)
	}
	defer func() { _ = rows.Close() }()

	var objs []schema.InfraObject
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", objType, err)
		}
		obj, err := schema.DecodeRailjson(objType, []byte(data))
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, rows.Err()
}

// ApplyOperations persists ops in order within one transaction and returns
// the matching cache operations. Either every operation is written or none.
func (s *SqliteStore) ApplyOperations(ctx context.Context, infraID ulid.ULID, ops []schema.Operation) ([]cache.CacheOperation, error) {
	cacheOps := make([]cache.CacheOperation, 0, len(ops))
	err := s.inTx(ctx, infraID, func(tx *sql.Tx) error {
		for _, op := range ops {
			cacheOp, err := applyOperation(ctx, tx, infraID, op)
			if err != nil {
				return err
			}
			cacheOps = append(cacheOps, cacheOp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"action": "apply", "infra_id": infraID.String(), "operations": len(ops)}).Info("operations applied")
	return cacheOps, nil
}

func applyOperation(ctx context.Context, tx *sql.Tx, infraID ulid.ULID, op schema.Operation) (cache.CacheOperation, error) {
	switch o := op.(type) {
	case schema.CreateOperation:
		if err := insertObject(ctx, tx, infraID, o.Object); err != nil {
			return nil, err
		}
		return cache.NewCreateCacheOperation(o.Object)

	case schema.UpdateOperation:
		current, err := selectObject(ctx, tx, infraID, o.Ref())
		if err != nil {
			return nil, err
		}
		patched, err := o.Apply(current)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(patched)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", o.Ref(), err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE objects SET data = ? WHERE infra_id = ? AND obj_type = ? AND obj_id = ?",
			string(data), infraID.String(), string(o.ObjType), o.ObjID); err != nil {
			return nil, fmt.Errorf("update %s: %w", o.Ref(), err)
		}
		return cache.NewUpdateCacheOperation(patched)

	case schema.DeleteOperation:
		res, err := tx.ExecContext(ctx,
			"DELETE FROM objects WHERE infra_id = ? AND obj_type = ? AND obj_id = ?",
			infraID.String(), string(o.ObjType), o.ObjID)
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", o.Ref(), err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, &cache.ObjectNotFoundError{ObjType: o.ObjType, ObjID: o.ObjID}
		}
		return cache.DeleteCacheOperation{ObjRef: o.Ref()}, nil

	default:
		return nil, fmt.Errorf("unknown operation %T", op)
	}
}

func insertObject(ctx context.Context, tx *sql.Tx, infraID ulid.ULID, obj schema.InfraObject) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", schema.RefOf(obj), err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO objects (infra_id, obj_type, obj_id, data) VALUES (?, ?, ?, ?)",
		infraID.String(), string(obj.ObjectType()), obj.ObjectID(), string(data))
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return &cache.DuplicateIDsProvidedError{ObjType: obj.ObjectType(), ObjID: obj.ObjectID()}
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", schema.RefOf(obj), err)
	}
	return nil
}

func selectObject(ctx context.Context, tx *sql.Tx, infraID ulid.ULID, ref schema.ObjectRef) (schema.InfraObject, error) {
	var data string
	err := tx.QueryRowContext(ctx,
		"SELECT data FROM objects WHERE infra_id = ? AND obj_type = ? AND obj_id = ?",
		infraID.String(), string(ref.Type), ref.ID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &cache.ObjectNotFoundError{ObjType: ref.Type, ObjID: ref.ID}
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", ref, err)
	}
	return schema.DecodeRailjson(ref.Type, []byte(data))
}

// inTx runs fn in a transaction on an existing infrastructure and bumps its
// version when fn succeeds.
func (s *SqliteStore) inTx(ctx context.Context, infraID ulid.ULID, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getInfra(ctx, tx, infraID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE infras SET version = version + 1, updated_at = ? WHERE infra_id = ?",
		time.Now().UTC().Format(timeLayout), infraID.String()); err != nil {
		return fmt.Errorf("bump infra version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RoutesFromWaypoint lists the routes starting and ending at a waypoint.
type RoutesFromWaypoint struct {
	Starting []string `json:"starting"`
	Ending   []string `json:"ending"`
}

// GetRoutesFromWaypoint returns the ids of the routes whose entry or exit
// point is w, sorted.
func (s *SqliteStore) GetRoutesFromWaypoint(ctx context.Context, infraID ulid.ULID, w schema.Waypoint) (RoutesFromWaypoint, error) {
	if _, err := s.GetInfra(ctx, infraID); err != nil {
		return RoutesFromWaypoint{}, err
	}
	result := RoutesFromWaypoint{Starting: []string{}, Ending: []string{}}
	for _, side := range []struct {
		field string
		ids   *[]string
	}{
		{"entry_point", &result.Starting},
		{"exit_point", &result.Ending},
	} {
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
			`SELECT obj_id FROM objects
			 WHERE infra_id = ? AND obj_type = ?
			   AND json_extract(data, '$.%s.type') = ? AND json_extract(data, '$.%s.id') = ?
			 ORDER BY obj_id ASC`, side.field, side.field),
			infraID.String(), string(schema.Route), string(w.Type), w.ID)
		if err != nil {
			return RoutesFromWaypoint{}, fmt.Errorf("query routes by %s: %w", side.field, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return RoutesFromWaypoint{}, fmt.Errorf("scan route id: %w", err)
			}
			*side.ids = append(*side.ids, id)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return RoutesFromWaypoint{}, err
		}
	}
	return result, nil
}
