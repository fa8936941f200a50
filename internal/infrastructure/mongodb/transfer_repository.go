package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
	pkgmongo "github.com/wms-platform/transfer-service/pkg/mongodb"
)

const (
	designatedCollection = "designated_transfers"
	residualCollection   = "residual_transfers"
)

func itemFilter(orderID, itemCode string) bson.M {
	return bson.M{"orderId": orderID, "itemCode": itemCode}
}

func ensureItemIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "itemCode", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	collection.Indexes().CreateMany(ctx, indexes)
}

// DesignatedTransferRepository stores one document per order line
type DesignatedTransferRepository struct {
	collection *mongo.Collection
	observer   *pkgmongo.Observer
}

func NewDesignatedTransferRepository(db *mongo.Database, m *metrics.Metrics, logger *logging.Logger) *DesignatedTransferRepository {
	repo := &DesignatedTransferRepository{
		collection: db.Collection(designatedCollection),
		observer:   pkgmongo.NewObserver(designatedCollection, m, logger),
	}
	ensureItemIndexes(context.Background(), repo.collection)
	return repo
}

func (r *DesignatedTransferRepository) Save(ctx context.Context, transfer *domain.DesignatedTransfer) error {
	return r.observer.Observe(ctx, "save", func(ctx context.Context) error {
		opts := options.Update().SetUpsert(true)
		update := bson.M{"$set": transfer}
		_, err := r.collection.UpdateOne(ctx, itemFilter(transfer.OrderID, transfer.ItemCode), update, opts)
		return err
	})
}

func (r *DesignatedTransferRepository) FindByItem(ctx context.Context, orderID, itemCode string) (*domain.DesignatedTransfer, error) {
	var transfer *domain.DesignatedTransfer
	err := r.observer.Observe(ctx, "find_by_item", func(ctx context.Context) error {
		var doc domain.DesignatedTransfer
		err := r.collection.FindOne(ctx, itemFilter(orderID, itemCode)).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			return nil
		}
		if err != nil {
			return err
		}
		transfer = &doc
		return nil
	})
	return transfer, err
}

func (r *DesignatedTransferRepository) FindByOrder(ctx context.Context, orderID string) ([]*domain.DesignatedTransfer, error) {
	var transfers []*domain.DesignatedTransfer
	err := r.observer.Observe(ctx, "find_by_order", func(ctx context.Context) error {
		opts := options.Find().SetSort(bson.D{{Key: "itemCode", Value: 1}})
		cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &transfers)
	})
	return transfers, err
}

// ResidualTransferRepository stores one document per order line with embedded sources
type ResidualTransferRepository struct {
	collection *mongo.Collection
	observer   *pkgmongo.Observer
}

func NewResidualTransferRepository(db *mongo.Database, m *metrics.Metrics, logger *logging.Logger) *ResidualTransferRepository {
	repo := &ResidualTransferRepository{
		collection: db.Collection(residualCollection),
		observer:   pkgmongo.NewObserver(residualCollection, m, logger),
	}
	ensureItemIndexes(context.Background(), repo.collection)
	return repo
}

func (r *ResidualTransferRepository) Save(ctx context.Context, transfer *domain.ResidualTransfer) error {
	return r.observer.Observe(ctx, "save", func(ctx context.Context) error {
		opts := options.Update().SetUpsert(true)
		set := bson.M{"$set": transfer}
		if transfer.CompletedAt == nil {
			// $set skips the omitted field, so a reopened record has to drop it explicitly
			set["$unset"] = bson.M{"completedAt": ""}
		}
		_, err := r.collection.UpdateOne(ctx, itemFilter(transfer.OrderID, transfer.ItemCode), set, opts)
		return err
	})
}

func (r *ResidualTransferRepository) FindByItem(ctx context.Context, orderID, itemCode string) (*domain.ResidualTransfer, error) {
	var transfer *domain.ResidualTransfer
	err := r.observer.Observe(ctx, "find_by_item", func(ctx context.Context) error {
		var doc domain.ResidualTransfer
		err := r.collection.FindOne(ctx, itemFilter(orderID, itemCode)).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			return nil
		}
		if err != nil {
			return err
		}
		transfer = &doc
		return nil
	})
	return transfer, err
}
