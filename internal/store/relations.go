package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-records/internal/query"
	"github.com/nerrad567/gray-logic-records/internal/record"
	"github.com/nerrad567/gray-logic-records/internal/schema"
)

// RelationKind is the cardinality of a relation.
type RelationKind string

// Relation kinds.
const (
	OneToMany  RelationKind = "one_to_many"
	ManyToMany RelationKind = "many_to_many"
)

// Relation is a registered link between two user tables.
//
// For OneToMany, Left is the parent and Right the child; LeftKey is the
// foreign-key column added to the child. For ManyToMany, Junction holds one
// row per link with LeftKey and RightKey referencing each side.
type Relation struct {
	ID        int64        `json:"id"`
	Kind      RelationKind `json:"kind"`
	Left      string       `json:"left"`
	Right     string       `json:"right"`
	Junction  string       `json:"junction,omitempty"`
	LeftKey   string       `json:"left_key"`
	RightKey  string       `json:"right_key,omitempty"`
	CreatedAt string       `json:"created_at,omitempty"`
}

const relationColumns = "id, kind, left_table, right_table, junction_table, left_key, right_key, created_at"

const (
	selectRelationSQL = "SELECT " + relationColumns + " FROM " + relationsTable +
		" WHERE (left_table = @a AND right_table = @b) OR (left_table = @b AND right_table = @a)"

	listRelationsSQL = "SELECT " + relationColumns + " FROM " + relationsTable + " ORDER BY id"

	relationsForTableSQL = "SELECT " + relationColumns + " FROM " + relationsTable +
		" WHERE left_table = @t OR right_table = @t OR junction_table = @t"

	insertRelationSQL = "INSERT INTO " + relationsTable +
		" (kind, left_table, right_table, junction_table, left_key, right_key)" +
		" VALUES (@kind, @left, @right, @junction, @left_key, @right_key)"

	deleteRelationsForTableSQL = "DELETE FROM " + relationsTable +
		" WHERE left_table = @t OR right_table = @t OR junction_table = @t"
)

func text(rec record.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.AsText()
	return s
}

func relationFromRecord(rec record.Record) Relation {
	v, _ := rec.Get("id")
	id, _ := v.AsInt()
	return Relation{
		ID:        id,
		Kind:      RelationKind(text(rec, "kind")),
		Left:      text(rec, "left_table"),
		Right:     text(rec, "right_table"),
		Junction:  text(rec, "junction_table"),
		LeftKey:   text(rec, "left_key"),
		RightKey:  text(rec, "right_key"),
		CreatedAt: text(rec, "created_at"),
	}
}

func insertRelation(rel Relation) query.Statement {
	return query.Statement{
		SQL: insertRelationSQL,
		Params: query.Params{
			sql.Named("kind", string(rel.Kind)),
			sql.Named("left", rel.Left),
			sql.Named("right", rel.Right),
			sql.Named("junction", nullIfEmpty(rel.Junction)),
			sql.Named("left_key", rel.LeftKey),
			sql.Named("right_key", nullIfEmpty(rel.RightKey)),
		},
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// findRelation returns the relation between a and b in either direction.
func (s *Store) findRelation(ctx context.Context, a, b string) (Relation, bool, error) {
	rows, err := s.exec.Query(ctx, query.Statement{
		SQL:    selectRelationSQL,
		Params: query.Params{sql.Named("a", a), sql.Named("b", b)},
	})
	if err != nil {
		return Relation{}, false, err
	}
	if len(rows) == 0 {
		return Relation{}, false, nil
	}
	return relationFromRecord(rows[0]), true, nil
}

// requirePair validates two user tables and checks both exist.
func (s *Store) requirePair(ctx context.Context, a, b string) error {
	for _, t := range []string{a, b} {
		if err := checkTable(t); err != nil {
			return err
		}
	}
	for _, t := range []string{a, b} {
		if err := s.requireTable(ctx, t); err != nil {
			return fmt.Errorf("%w: %s", err, t)
		}
	}
	return nil
}

// CreateOneToMany relates parent to child by adding a nullable foreign-key
// column named <parent><IdColumn> to child. Deleting a parent row sets the
// key of its children to NULL.
func (s *Store) CreateOneToMany(ctx context.Context, parent, child string) (Relation, error) {
	const op = "create one-to-many"
	if err := s.requirePair(ctx, parent, child); err != nil {
		return Relation{}, opError(op, child, err)
	}
	if _, exists, err := s.findRelation(ctx, parent, child); err != nil {
		return Relation{}, opError(op, child, err)
	} else if exists {
		return Relation{}, opError(op, child, ErrRelationExists)
	}

	fk := schema.Column{
		Name: parent + s.IDColumn(),
		Type: "INTEGER REFERENCES " + parent + "(" + s.IDColumn() + ") ON DELETE SET NULL",
	}
	if err := schema.ValidateColumnTypes(schema.Columns{fk}); err != nil {
		return Relation{}, opError(op, child, err)
	}
	meta, err := s.exec.ColumnMetadata(ctx, child)
	if err != nil {
		return Relation{}, opError(op, child, err)
	}
	if meta.Has(fk.Name) {
		return Relation{}, opError(op, child, fmt.Errorf("%w: %s", schema.ErrDuplicateColumn, fk.Name))
	}

	rel := Relation{Kind: OneToMany, Left: parent, Right: child, LeftKey: fk.Name}
	res, err := s.exec.ExecInTransaction(ctx, []query.Statement{
		s.builder.AddColumn(child, fk),
		insertRelation(rel),
	})
	if err != nil {
		return Relation{}, opError(op, child, err)
	}
	rel.ID = res.LastInsertID

	s.logger.Info("relation created", "kind", rel.Kind, "parent", parent, "child", child)
	s.emit(ctx, OpRelate, child, 0)
	return rel, nil
}

// CreateManyToMany relates left and right through a new junction table
// named <left>_<right>. Deleting a row on either side deletes its links.
func (s *Store) CreateManyToMany(ctx context.Context, left, right string) (Relation, error) {
	const op = "create many-to-many"
	junction := left + "_" + right
	if strings.EqualFold(left, right) {
		return Relation{}, opError(op, junction, fmt.Errorf("%w: %s cannot relate to itself", ErrInvalidRelation, left))
	}
	if err := s.requirePair(ctx, left, right); err != nil {
		return Relation{}, opError(op, junction, err)
	}
	if _, exists, err := s.findRelation(ctx, left, right); err != nil {
		return Relation{}, opError(op, junction, err)
	} else if exists {
		return Relation{}, opError(op, junction, ErrRelationExists)
	}
	if exists, err := s.tableExists(ctx, junction); err != nil {
		return Relation{}, opError(op, junction, err)
	} else if exists {
		return Relation{}, opError(op, junction, ErrTableAlreadyExists)
	}

	id := s.IDColumn()
	cols := schema.Columns{
		{Name: left + id, Type: "INTEGER NOT NULL REFERENCES " + left + "(" + id + ") ON DELETE CASCADE"},
		{Name: right + id, Type: "INTEGER NOT NULL REFERENCES " + right + "(" + id + ") ON DELETE CASCADE"},
	}
	if err := schema.ValidateColumnTypes(cols); err != nil {
		return Relation{}, opError(op, junction, err)
	}

	rel := Relation{
		Kind:     ManyToMany,
		Left:     left,
		Right:    right,
		Junction: junction,
		LeftKey:  cols[0].Name,
		RightKey: cols[1].Name,
	}
	res, err := s.exec.ExecInTransaction(ctx, []query.Statement{
		s.builder.CreateTable(junction, cols),
		s.builder.CreateUniqueIndex("ux_"+junction, junction, rel.LeftKey, rel.RightKey),
		insertRelation(rel),
	})
	if err != nil {
		return Relation{}, opError(op, junction, err)
	}
	rel.ID = res.LastInsertID

	s.logger.Info("relation created", "kind", rel.Kind, "left", left, "right", right, "junction", junction)
	s.emit(ctx, OpCreateTable, junction, 0)
	return rel, nil
}

// relationBetween validates both ids and returns the relation between a and b.
func (s *Store) relationBetween(ctx context.Context, a, b string, ids ...record.Value) (Relation, error) {
	for _, t := range []string{a, b} {
		if err := checkTable(t); err != nil {
			return Relation{}, err
		}
	}
	for _, id := range ids {
		if err := schema.ValidateID(id); err != nil {
			return Relation{}, err
		}
	}
	rel, ok, err := s.findRelation(ctx, a, b)
	if err != nil {
		return Relation{}, err
	}
	if !ok {
		return Relation{}, fmt.Errorf("%w: %s and %s", ErrRelationNotFound, a, b)
	}
	return rel, nil
}

// orient returns (leftID, rightID) given ids supplied for tables a and b.
func (rel Relation) orient(a string, aID, bID record.Value) (record.Value, record.Value) {
	if strings.EqualFold(rel.Left, a) {
		return aID, bID
	}
	return bID, aID
}

// Link connects row aID of table a to row bID of table b and returns the
// number of rows written. For a one-to-many relation the child row's key is
// set; for many-to-many a junction row is inserted.
func (s *Store) Link(ctx context.Context, a, b string, aID, bID record.Value) (int64, error) {
	const op = "link"
	rel, err := s.relationBetween(ctx, a, b, aID, bID)
	if err != nil {
		return 0, opError(op, a, err)
	}
	leftID, rightID := rel.orient(a, aID, bID)

	switch rel.Kind {
	case ManyToMany:
		row := record.New()
		row.Set(rel.LeftKey, leftID)
		row.Set(rel.RightKey, rightID)
		res, err := s.exec.Exec(ctx, s.builder.Insert(rel.Junction, row))
		if err != nil {
			return 0, opError(op, rel.Junction, err)
		}
		s.emit(ctx, OpLink, rel.Junction, res.RowsAffected, res.LastInsertID)
		return res.RowsAffected, nil

	default:
		values := record.New()
		values.Set(rel.LeftKey, leftID)
		stmt, err := s.builder.Update(rel.Right, rightID, values)
		if err != nil {
			return 0, opError(op, rel.Right, err)
		}
		res, err := s.exec.Exec(ctx, stmt)
		if err != nil {
			return 0, opError(op, rel.Right, err)
		}
		if res.RowsAffected > 0 {
			s.emit(ctx, OpLink, rel.Right, res.RowsAffected, idOf(rightID)...)
		}
		return res.RowsAffected, nil
	}
}

// Unlink removes the link between row aID of table a and row bID of table b
// and returns the number of rows changed (0 when they were not linked).
func (s *Store) Unlink(ctx context.Context, a, b string, aID, bID record.Value) (int64, error) {
	const op = "unlink"
	rel, err := s.relationBetween(ctx, a, b, aID, bID)
	if err != nil {
		return 0, opError(op, a, err)
	}
	leftID, rightID := rel.orient(a, aID, bID)

	var (
		stmt  query.Statement
		table string
	)
	switch rel.Kind {
	case ManyToMany:
		table = rel.Junction
		stmt = s.builder.DeleteWhere(table,
			rel.LeftKey+" = @left AND "+rel.RightKey+" = @right",
			query.Params{sql.Named("left", leftID), sql.Named("right", rightID)})
	default:
		table = rel.Right
		values := record.New()
		values.Set(rel.LeftKey, record.Null())
		stmt, err = s.builder.UpdateWhere(table, values,
			s.IDColumn()+" = @child AND "+rel.LeftKey+" = @parent",
			query.Params{sql.Named("child", rightID), sql.Named("parent", leftID)})
		if err != nil {
			return 0, opError(op, table, err)
		}
	}

	res, err := s.exec.Exec(ctx, stmt)
	if err != nil {
		return 0, opError(op, table, err)
	}
	if res.RowsAffected > 0 {
		s.emit(ctx, OpUnlink, table, res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// GetRelated returns the rows of other related to row id of table.
//
// For one-to-many, a parent row yields its children and a child row yields
// its parent (zero or one row). For many-to-many the junction is followed.
func (s *Store) GetRelated(ctx context.Context, table string, id record.Value, other string) ([]record.Record, error) {
	const op = "get related"
	rel, err := s.relationBetween(ctx, table, other, id)
	if err != nil {
		return nil, opError(op, table, err)
	}

	var stmt query.Statement
	switch {
	case rel.Kind == ManyToMany:
		ownerKey, targetKey := rel.LeftKey, rel.RightKey
		if !strings.EqualFold(rel.Left, table) {
			ownerKey, targetKey = targetKey, ownerKey
		}
		stmt = s.builder.SelectThrough(other, rel.Junction, targetKey, ownerKey, id)
	case strings.EqualFold(rel.Left, table):
		stmt = s.builder.Select(other, rel.LeftKey+" = @owner", query.Params{sql.Named("owner", id)})
	default:
		stmt = s.builder.SelectThrough(other, table, rel.LeftKey, s.IDColumn(), id)
	}

	rows, err := s.exec.Query(ctx, stmt)
	if err != nil {
		return nil, opError(op, table, err)
	}
	return rows, nil
}

// ListRelations returns every registered relation in creation order.
func (s *Store) ListRelations(ctx context.Context) ([]Relation, error) {
	const op = "list relations"
	ok, err := s.tableExists(ctx, relationsTable)
	if err != nil {
		return nil, opError(op, "", err)
	}
	if !ok {
		return []Relation{}, nil
	}

	rows, err := s.exec.Query(ctx, query.Statement{SQL: listRelationsSQL})
	if err != nil {
		return nil, opError(op, "", err)
	}
	rels := make([]Relation, len(rows))
	for i, row := range rows {
		rels[i] = relationFromRecord(row)
	}
	return rels, nil
}

// dropRelationsStatements returns the statements that remove every relation
// involving table: junction drops to run before the table itself is dropped,
// and the registry cleanup to run after. Both are empty when the registry
// has not been created.
func (s *Store) dropRelationsStatements(ctx context.Context, table string) (before, after []query.Statement, err error) {
	ok, err := s.tableExists(ctx, relationsTable)
	if err != nil || !ok {
		return nil, nil, err
	}

	params := query.Params{sql.Named("t", table)}
	rows, err := s.exec.Query(ctx, query.Statement{SQL: relationsForTableSQL, Params: params})
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	for _, row := range rows {
		rel := relationFromRecord(row)
		if rel.Kind == ManyToMany && !strings.EqualFold(rel.Junction, table) {
			before = append(before, s.builder.DropTable(rel.Junction))
		}
	}
	after = []query.Statement{{SQL: deleteRelationsForTableSQL, Params: params}}
	return before, after, nil
}
