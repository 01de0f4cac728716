package trainer

import "context"

import "github.com/neurlang/sincnet/centroid"
import "github.com/neurlang/sincnet/net/feedforward"
import "github.com/neurlang/sincnet/net/sincge2e"

// Resume loads the weights from dstmodel and the centroids from store, when
// resume is set. Without a store the returned table is empty.
func Resume(ctx context.Context, model *sincge2e.Model, resume bool, dstmodel string, store *centroid.Store) (*centroid.Table, error) {
	dim := model.Config().EmbeddingDim
	if !resume {
		return centroid.NewTable(dim), nil
	}
	if err := feedforward.ReadParametersFromFile(dstmodel, model.Parameters()); err != nil {
		return nil, err
	}
	if store == nil {
		return centroid.NewTable(dim), nil
	}
	return store.Load(ctx, dim)
}

// Save writes the weights to dstmodel and, with a store, the centroids.
func Save(ctx context.Context, model *sincge2e.Model, table *centroid.Table, dstmodel string, store *centroid.Store) error {
	if err := feedforward.WriteParametersToFile(dstmodel, model.Parameters()); err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	return store.Save(ctx, table)
}
