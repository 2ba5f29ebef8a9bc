package store

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-records/internal/record"
	"github.com/nerrad567/gray-logic-records/internal/schema"
)

func named(name string) record.Record {
	r := record.New()
	r.Set("Name", record.Text(name))
	return r
}

func addNamed(t *testing.T, s *Store, table string, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, len(names))
	for i, n := range names {
		id, err := s.AddRecord(context.Background(), table, named(n))
		if err != nil {
			t.Fatalf("AddRecord(%s, %s) error = %v", table, n, err)
		}
		ids[i] = id
	}
	return ids
}

func names(t *testing.T, rows []record.Record) []string {
	t.Helper()
	out := make([]string, len(rows))
	for i, row := range rows {
		v := field(t, row, "Name")
		out[i], _ = v.AsText()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOneToMany(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()
	nameCol := schema.Columns{{Name: "Name", Type: "TEXT"}}
	mustCreate(t, s, "Sites", nameCol)
	mustCreate(t, s, "Rooms", nameCol)

	rel, err := s.CreateOneToMany(ctx, "Sites", "Rooms")
	if err != nil {
		t.Fatalf("CreateOneToMany() error = %v", err)
	}
	if rel.Kind != OneToMany || rel.LeftKey != "SitesId" || rel.ID == 0 {
		t.Errorf("relation = %+v", rel)
	}

	meta, _ := s.GetColumnMetadata(ctx, "Rooms")
	if !meta.Has("SitesId") {
		t.Fatalf("Rooms columns = %v, want SitesId", meta.Names())
	}

	if _, err := s.CreateOneToMany(ctx, "Rooms", "Sites"); !errors.Is(err, ErrRelationExists) {
		t.Errorf("reverse CreateOneToMany() error = %v, want ErrRelationExists", err)
	}

	sites := addNamed(t, s, "Sites", "North", "South")
	rooms := addNamed(t, s, "Rooms", "Kitchen", "Lounge", "Plant")

	for _, room := range rooms[:2] {
		if n, err := s.Link(ctx, "Sites", "Rooms", record.Int(sites[0]), record.Int(room)); err != nil || n != 1 {
			t.Fatalf("Link() = %d, %v", n, err)
		}
	}
	// Arguments may be given child first.
	if n, err := s.Link(ctx, "Rooms", "Sites", record.Int(rooms[2]), record.Int(sites[1])); err != nil || n != 1 {
		t.Fatalf("Link(child first) = %d, %v", n, err)
	}

	children, err := s.GetRelated(ctx, "Sites", record.Int(sites[0]), "Rooms")
	if err != nil {
		t.Fatalf("GetRelated(parent) error = %v", err)
	}
	if got := names(t, children); !equalStrings(got, []string{"Kitchen", "Lounge"}) {
		t.Errorf("children of North = %v", got)
	}

	parent, err := s.GetRelated(ctx, "Rooms", record.Int(rooms[2]), "Sites")
	if err != nil {
		t.Fatalf("GetRelated(child) error = %v", err)
	}
	if got := names(t, parent); !equalStrings(got, []string{"South"}) {
		t.Errorf("parent of Plant = %v", got)
	}

	if n, err := s.Unlink(ctx, "Sites", "Rooms", record.Int(sites[1]), record.Int(rooms[0])); err != nil || n != 0 {
		t.Errorf("Unlink(not linked) = %d, %v, want 0", n, err)
	}
	if n, err := s.Unlink(ctx, "Sites", "Rooms", record.Int(sites[0]), record.Int(rooms[0])); err != nil || n != 1 {
		t.Errorf("Unlink() = %d, %v, want 1", n, err)
	}
	children, _ = s.GetRelated(ctx, "Sites", record.Int(sites[0]), "Rooms")
	if got := names(t, children); !equalStrings(got, []string{"Lounge"}) {
		t.Errorf("children after unlink = %v", got)
	}

	// Deleting the parent row clears the key on its children.
	if _, err := s.DeleteRecord(ctx, "Sites", record.Int(sites[0])); err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	lounge, _, _ := s.GetRecordByID(ctx, "Rooms", record.Int(rooms[1]))
	if v := field(t, lounge, "SitesId"); !v.IsNull() {
		t.Errorf("SitesId after parent delete = %v, want NULL", v)
	}
}

func TestManyToMany(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()
	nameCol := schema.Columns{{Name: "Name", Type: "TEXT"}}
	mustCreate(t, s, "Devices", nameCol)
	mustCreate(t, s, "Scenes", nameCol)

	rel, err := s.CreateManyToMany(ctx, "Devices", "Scenes")
	if err != nil {
		t.Fatalf("CreateManyToMany() error = %v", err)
	}
	if rel.Junction != "Devices_Scenes" || rel.LeftKey != "DevicesId" || rel.RightKey != "ScenesId" {
		t.Errorf("relation = %+v", rel)
	}

	tables, _ := s.GetTables(ctx)
	if !equalStrings(tables, []string{"Devices", "Devices_Scenes", "Scenes"}) {
		t.Errorf("GetTables() = %v", tables)
	}

	devices := addNamed(t, s, "Devices", "Lamp", "Blind")
	scenes := addNamed(t, s, "Scenes", "Evening", "Away")

	links := [][2]int64{{devices[0], scenes[0]}, {devices[0], scenes[1]}, {devices[1], scenes[1]}}
	for _, l := range links {
		if _, err := s.Link(ctx, "Devices", "Scenes", record.Int(l[0]), record.Int(l[1])); err != nil {
			t.Fatalf("Link(%v) error = %v", l, err)
		}
	}

	if _, err := s.Link(ctx, "Scenes", "Devices", record.Int(scenes[0]), record.Int(devices[0])); err == nil {
		t.Error("duplicate Link() succeeded, want unique violation")
	}
	if _, err := s.Link(ctx, "Devices", "Scenes", record.Int(999), record.Int(scenes[0])); err == nil {
		t.Error("Link() to missing row succeeded, want foreign key violation")
	}

	got, err := s.GetRelated(ctx, "Devices", record.Int(devices[0]), "Scenes")
	if err != nil {
		t.Fatalf("GetRelated() error = %v", err)
	}
	if n := names(t, got); !equalStrings(n, []string{"Evening", "Away"}) {
		t.Errorf("scenes of Lamp = %v", n)
	}

	got, err = s.GetRelated(ctx, "Scenes", record.Int(scenes[1]), "Devices")
	if err != nil {
		t.Fatalf("GetRelated(reverse) error = %v", err)
	}
	if n := names(t, got); !equalStrings(n, []string{"Lamp", "Blind"}) {
		t.Errorf("devices of Away = %v", n)
	}

	if n, err := s.Unlink(ctx, "Scenes", "Devices", record.Int(scenes[1]), record.Int(devices[0])); err != nil || n != 1 {
		t.Errorf("Unlink() = %d, %v, want 1", n, err)
	}

	// Deleting a row removes its links.
	if _, err := s.DeleteRecord(ctx, "Devices", record.Int(devices[1])); err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	if n := count(t, s, "Devices_Scenes"); n != 1 {
		t.Errorf("junction rows = %d, want 1", n)
	}
}

func TestRelationErrors(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()
	mustCreate(t, s, "A", nil)
	mustCreate(t, s, "B", nil)

	if _, err := s.CreateManyToMany(ctx, "A", "a"); !errors.Is(err, ErrInvalidRelation) {
		t.Errorf("self CreateManyToMany() error = %v, want ErrInvalidRelation", err)
	}
	if _, err := s.CreateOneToMany(ctx, "A", "Missing"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("CreateOneToMany(missing) error = %v, want ErrTableNotFound", err)
	}
	if _, err := s.CreateManyToMany(ctx, "A", "table_relations"); !errors.Is(err, ErrReservedTable) {
		t.Errorf("CreateManyToMany(internal) error = %v, want ErrReservedTable", err)
	}
	if _, err := s.Link(ctx, "A", "B", record.Int(1), record.Int(1)); !errors.Is(err, ErrRelationNotFound) {
		t.Errorf("Link(unrelated) error = %v, want ErrRelationNotFound", err)
	}
	if _, err := s.GetRelated(ctx, "A", record.Null(), "B"); !errors.Is(err, schema.ErrMissingID) {
		t.Errorf("GetRelated(null id) error = %v, want ErrMissingID", err)
	}

	mustCreate(t, s, "A_B", nil)
	if _, err := s.CreateManyToMany(ctx, "A", "B"); !errors.Is(err, ErrTableAlreadyExists) {
		t.Errorf("CreateManyToMany(junction exists) error = %v, want ErrTableAlreadyExists", err)
	}
}

func TestDeleteTableRemovesRelations(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()
	for _, table := range []string{"Users", "Groups", "Notes"} {
		mustCreate(t, s, table, schema.Columns{{Name: "Name", Type: "TEXT"}})
	}

	if _, err := s.CreateManyToMany(ctx, "Users", "Groups"); err != nil {
		t.Fatalf("CreateManyToMany() error = %v", err)
	}
	if _, err := s.CreateOneToMany(ctx, "Groups", "Notes"); err != nil {
		t.Fatalf("CreateOneToMany() error = %v", err)
	}

	rels, err := s.ListRelations(ctx)
	if err != nil || len(rels) != 2 {
		t.Fatalf("ListRelations() = %v, %v", rels, err)
	}

	if err := s.DeleteTable(ctx, "Groups"); err != nil {
		t.Fatalf("DeleteTable() error = %v", err)
	}

	tables, _ := s.GetTables(ctx)
	if !equalStrings(tables, []string{"Notes", "Users"}) {
		t.Errorf("GetTables() = %v, want junction dropped", tables)
	}
	rels, _ = s.ListRelations(ctx)
	if len(rels) != 0 {
		t.Errorf("ListRelations() after drop = %+v, want none", rels)
	}

	// The relation can be recreated from scratch.
	mustCreate(t, s, "Groups", schema.Columns{{Name: "Name", Type: "TEXT"}})
	if _, err := s.CreateManyToMany(ctx, "Users", "Groups"); err != nil {
		t.Errorf("CreateManyToMany() after drop error = %v", err)
	}
}
