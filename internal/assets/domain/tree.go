package assets

import "context"

// FlatRow is one row of the denormalized vw_obj_all view: the names of
// the ancestors down to the row's own level, plus the id of the
// leaf-most populated asset. Levels below the row's own level are nil.
type FlatRow struct {
	Enterprise string
	Site       *string
	Area       *string
	Line       *string
	Cell       *string
	ObjectID   int64
}

// Level returns the kind of the leaf-most populated level of the row;
// ObjectID belongs to that level.
func (r FlatRow) Level() Kind {
	switch {
	case r.Cell != nil:
		return KindCell
	case r.Line != nil:
		return KindLine
	case r.Area != nil:
		return KindArea
	case r.Site != nil:
		return KindSite
	default:
		return KindEnterprise
	}
}

// Names returns the level names from enterprise down to the row's own
// level, in hierarchy order.
func (r FlatRow) Names() []string {
	names := []string{r.Enterprise}
	for _, name := range []*string{r.Site, r.Area, r.Line, r.Cell} {
		if name == nil {
			break
		}
		names = append(names, *name)
	}
	return names
}

// FlatViewReader reads the flattened all-assets view.
type FlatViewReader interface {
	ListFlat(ctx context.Context) ([]FlatRow, error)
}
