// Package application composes the asset repository, the flattened
// view and the OEE series into the read-time asset tree.
package application

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"oee-backend/internal/apperr"
	assets "oee-backend/internal/assets/domain"
	oee "oee-backend/internal/oee/domain"
)

// AssetReader is the slice of the asset repository the builder needs.
type AssetReader interface {
	Get(ctx context.Context, kind assets.Kind, id int64) (*assets.Asset, error)
}

// TreeNode is one node of the derived tree: the asset's own fields,
// its latest OEE record when one exists, and its children keyed by
// name. Nodes referenced by a deeper row before their own row arrives
// exist as empty shells until that row fills them.
type TreeNode struct {
	Data     *assets.Asset
	Oee      *oee.Record
	Children map[string]*TreeNode
}

// MarshalJSON renders the node in the nested wire shape: "data" and
// "oee" entries beside one entry per child name.
func (n *TreeNode) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Children)+2)
	if n.Data != nil {
		out["data"] = n.Data
	}
	if n.Oee != nil && n.Data != nil {
		out["oee"] = n.Oee
	}
	for name, child := range n.Children {
		out[name] = child
	}
	return json.Marshal(out)
}

// Tree is the full derived hierarchy keyed by enterprise name.
//
// Known limitation: nodes are keyed by raw name, so two sibling assets
// sharing a name collapse into one entry; the first one encountered
// wins.
type Tree map[string]*TreeNode

// TreeBuilder rebuilds the tree from the flat view on every call.
// Nothing is cached across calls.
type TreeBuilder struct {
	view   assets.FlatViewReader
	reader AssetReader
	latest oee.LatestReader
	logger *zap.Logger
}

// NewTreeBuilder constructs a builder.
func NewTreeBuilder(view assets.FlatViewReader, reader AssetReader, latest oee.LatestReader, logger *zap.Logger) (*TreeBuilder, error) {
	if view == nil {
		return nil, errors.New("tree builder: nil view reader")
	}
	if reader == nil {
		return nil, errors.New("tree builder: nil asset reader")
	}
	if latest == nil {
		return nil, errors.New("tree builder: nil latest reader")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeBuilder{view: view, reader: reader, latest: latest, logger: logger}, nil
}

// GetTree folds the flat view into the nested hierarchy. Each row
// materializes exactly the leaf-most populated level it describes,
// fetching that level's asset record and latest OEE reading with the
// level's own type code; ancestor entries are created as shells when
// first referenced and filled by their own rows.
func (b *TreeBuilder) GetTree(ctx context.Context) (Tree, error) {
	rows, err := b.view.ListFlat(ctx)
	if err != nil {
		return nil, err
	}

	tree := Tree{}
	for _, row := range rows {
		names := row.Names()
		if len(names) == 0 || names[0] == "" {
			continue
		}

		node := ensureNode(tree, names[0])
		for _, name := range names[1:] {
			if node.Children == nil {
				node.Children = map[string]*TreeNode{}
			}
			node = ensureNode(node.Children, name)
		}

		if node.Data != nil {
			// duplicate name at this level; first row wins
			continue
		}
		if err := b.fill(ctx, node, row.Level(), row.ObjectID); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func (b *TreeBuilder) fill(ctx context.Context, node *TreeNode, level assets.Kind, objectID int64) error {
	asset, err := b.reader.Get(ctx, level, objectID)
	if err != nil {
		if apperr.IsNotFound(err) {
			// deleted between the view read and this fetch
			b.logger.Debug("tree: asset vanished during traversal",
				zap.String("kind", level.String()),
				zap.Int64("id", objectID))
			return nil
		}
		return err
	}
	node.Data = asset

	latest, err := b.latest.GetLatest(ctx, int(level), objectID)
	if err != nil {
		return err
	}
	node.Oee = latest
	return nil
}

func ensureNode(nodes map[string]*TreeNode, name string) *TreeNode {
	if node, ok := nodes[name]; ok {
		return node
	}
	node := &TreeNode{}
	nodes[name] = node
	return node
}
