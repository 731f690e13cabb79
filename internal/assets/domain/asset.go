// Package assets models the Enterprise → Site → Area → Line → Cell
// hierarchy. The five kinds share one entity and one repository; the
// per-kind differences (table name, parent and child kind) live in a
// small lookup table instead of a type hierarchy.
package assets

import "context"

// Kind identifies a level of the asset hierarchy. The numeric values
// are the wire-level type discriminator (4=Enterprise … 0=Cell).
type Kind int

const (
	KindCell       Kind = 0
	KindLine       Kind = 1
	KindArea       Kind = 2
	KindSite       Kind = 3
	KindEnterprise Kind = 4
)

type kindInfo struct {
	name   string
	table  string
	parent Kind
	child  Kind
}

// noKind marks the absent parent of Enterprise and the absent child of Cell.
const noKind Kind = -1

var kindTable = map[Kind]kindInfo{
	KindEnterprise: {name: "enterprise", table: "obj_enterprises", parent: noKind, child: KindSite},
	KindSite:       {name: "site", table: "obj_sites", parent: KindEnterprise, child: KindArea},
	KindArea:       {name: "area", table: "obj_areas", parent: KindSite, child: KindLine},
	KindLine:       {name: "line", table: "obj_lines", parent: KindArea, child: KindCell},
	KindCell:       {name: "cell", table: "obj_cells", parent: KindLine, child: noKind},
}

// KindFromCode resolves a numeric type discriminator.
func KindFromCode(code int) (Kind, bool) {
	k := Kind(code)
	_, ok := kindTable[k]
	return k, ok
}

// KindFromName resolves a kind by its lowercase route name.
func KindFromName(name string) (Kind, bool) {
	for k, info := range kindTable {
		if info.name == name {
			return k, true
		}
	}
	return noKind, false
}

// Valid reports whether the kind is one of the five hierarchy levels.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

func (k Kind) String() string {
	if info, ok := kindTable[k]; ok {
		return info.name
	}
	return "unknown"
}

// Table returns the backing table name. Table names are compile-time
// constants, never user input.
func (k Kind) Table() string {
	return kindTable[k].table
}

// Parent returns the immediate-parent kind; ok is false for Enterprise.
func (k Kind) Parent() (Kind, bool) {
	info, known := kindTable[k]
	if !known || info.parent == noKind {
		return noKind, false
	}
	return info.parent, true
}

// Child returns the immediate-child kind; ok is false for Cell.
func (k Kind) Child() (Kind, bool) {
	info, known := kindTable[k]
	if !known || info.child == noKind {
		return noKind, false
	}
	return info.child, true
}

// Asset is one node of the hierarchy. ParentID is nil for Enterprise
// rows. Deprecated rows are invisible to every read path.
type Asset struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id"`
	ObjectType  int    `json:"object_type"`
}

// Repository provides CRUD for one asset kind at a time. "Delete" is a
// soft delete: rows are marked deprecated and never removed; deleting
// an absent or already deprecated asset reports not-found.
type Repository interface {
	Create(ctx context.Context, kind Kind, name, description string, parentID *int64) (*Asset, error)
	Get(ctx context.Context, kind Kind, id int64) (*Asset, error)
	GetAll(ctx context.Context, kind Kind) ([]Asset, error)
	Update(ctx context.Context, kind Kind, id int64, name, description string) (*Asset, error)
	Delete(ctx context.Context, kind Kind, id int64) (*Asset, error)
	GetChildren(ctx context.Context, kind Kind, id int64) ([]Asset, error)
	GetParent(ctx context.Context, kind Kind, id int64) (*Asset, error)
}
